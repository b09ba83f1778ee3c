package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Типы входящих сообщений
const (
	TypeCreate        = "create"
	TypeJoin          = "join"
	TypeQuestion      = "question"
	TypeAnswer        = "answer"
	TypeGenerateStory = "generate_story"
	TypeLeave         = "leave"
	TypePing          = "ping"
)

// Типы исходящих событий
const (
	TypeRoomCreated     = "room_created"
	TypeRoomJoined      = "room_joined"
	TypeCurrentQuestion = "question"
	TypeParticipants    = "update_participants"
	TypeHistory         = "update_participant_data"
	TypeTurnFinished    = "finish_turn"
	TypeUnauthorized    = "unauthorized"
	TypeParticipantLeft = "alert_leave_room"
	TypeStory           = "story"
	TypeStoryFailed     = "story_failed"
	TypeError           = "error"
	TypePong            = "pong"
)

// Message - общее событие
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage упаковывает полезную нагрузку в конверт
func NewMessage(eventType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: eventType}, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	return Message{Type: eventType, Data: data}, nil
}

// Decode разбирает data строго: неизвестные поля отклоняются, обязательные проверяются.
func Decode(data json.RawMessage, v validator) error {
	if len(data) == 0 {
		return errors.New("empty event data")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode event data: %w", err)
	}

	return v.Validate()
}

type validator interface {
	Validate() error
}

// CreateRoomEvent - создание комнаты через соединение
type CreateRoomEvent struct {
	Nickname        string `json:"nickname"`
	MaxParticipants int    `json:"max_participants"`
}

func (e *CreateRoomEvent) Validate() error {
	if e.MaxParticipants == 0 {
		return errors.New("max_participants is required")
	}

	return nil
}

// JoinRoomEvent - вход в комнату или переподключение к ней
type JoinRoomEvent struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname"`
}

func (e *JoinRoomEvent) Validate() error {
	if e.Code == "" {
		return errors.New("code is required")
	}

	return nil
}

// AnswerEvent - ответ на текущий вопрос
type AnswerEvent struct {
	QuestionIndex *int   `json:"question_index"`
	Answer        string `json:"answer"`
}

func (e *AnswerEvent) Validate() error {
	if e.QuestionIndex == nil {
		return errors.New("question_index is required")
	}

	return nil
}

// RoomEvent - ответ на создание/вход
type RoomEvent struct {
	Code string `json:"room_code"`
}

// ParticipantListEvent - событие со списком участников комнаты
type ParticipantListEvent struct {
	List   []string `json:"participants"`
	IsFull bool     `json:"is_full"`
}

// TurnFinishedEvent - ход принят
type TurnFinishedEvent struct {
	RoomCode   string `json:"room_code"`
	IsLastTurn bool   `json:"is_last_turn"`
}

type UnauthorizedEvent struct {
	Message string `json:"message"`
}

// ParticipantLeftEvent - участник покинул комнату. CallNextTurn выставлен,
// если уходил владелец текущего хода.
type ParticipantLeftEvent struct {
	Nickname     string `json:"nickname"`
	CallNextTurn bool   `json:"call_next_turn"`
	RoomCode     string `json:"room_code"`
}
