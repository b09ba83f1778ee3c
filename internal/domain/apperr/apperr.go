// Package apperr описывает структурированные ошибки ядра: стабильный вид ошибки
// и читаемое сообщение.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	RoomNotFound         Kind = "RoomNotFound"
	RoomFull             Kind = "RoomFull"
	InvalidNickname      Kind = "InvalidNickname"
	InvalidRoomSize      Kind = "InvalidRoomSize"
	NotParticipant       Kind = "NotParticipant"
	NotYourTurn          Kind = "NotYourTurn"
	InvalidAnswer        Kind = "InvalidAnswer"
	RoomComplete         Kind = "RoomComplete"
	StoryNotReady        Kind = "StoryNotReady"
	JobNotFound          Kind = "JobNotFound"
	ClassificationFailed Kind = "ClassificationFailed"
	GenerationFailed     Kind = "GenerationFailed"
	InvalidImage         Kind = "InvalidImage"
	InvalidMessage       Kind = "InvalidMessage"
	Internal             Kind = "Internal"
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is сравнивает ошибки по виду, сообщение не учитывается.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrRoomNotFound         = New(RoomNotFound, "room does not exist")
	ErrRoomFull             = New(RoomFull, "the room is already full, please create a new room")
	ErrInvalidNickname      = New(InvalidNickname, "please enter a name")
	ErrInvalidRoomSize      = New(InvalidRoomSize, "please select the number of participants")
	ErrNotParticipant       = New(NotParticipant, "you are not a participant of this room")
	ErrNotYourTurn          = New(NotYourTurn, "it's not your turn to answer")
	ErrInvalidAnswer        = New(InvalidAnswer, "answer is not valid for the current question")
	ErrRoomComplete         = New(RoomComplete, "all questions are already answered")
	ErrStoryNotReady        = New(StoryNotReady, "not all questions are answered yet")
	ErrJobNotFound          = New(JobNotFound, "ID not found")
	ErrClassificationFailed = New(ClassificationFailed, "classification failed")
	ErrGenerationFailed     = New(GenerationFailed, "story generation failed")
	ErrInvalidImage         = New(InvalidImage, "invalid image")
	ErrInvalidMessage       = New(InvalidMessage, "malformed message")
)

// KindOf достает вид ошибки из цепочки. Для посторонних ошибок возвращает Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Internal
}

// From приводит любую ошибку к *Error, скрывая детали внутренних ошибок.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return New(Internal, "internal error")
}
