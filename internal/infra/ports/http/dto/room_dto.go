package dto

type CreateRoomRequest struct {
	Nickname        string `json:"nickname"`
	MaxParticipants int    `json:"max_participants"`
}

type JoinRoomRequest struct {
	Nickname string `json:"nickname"`
}
