package input

type CreateRoomInput struct {
	Username        string `json:"username"`
	Nickname        string `json:"nickname"`
	MaxParticipants int    `json:"max_participants"`
}

type JoinRoomInput struct {
	Code     string `json:"code"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}
