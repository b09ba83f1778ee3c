package input

type RegisterInput struct {
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Age       int      `json:"age"`
	Gender    string   `json:"gender"`
	Interests []string `json:"interests"`
}
