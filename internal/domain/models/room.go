package models

import (
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/TaleRoom/internal/domain/apperr"
)

type Phase string

const (
	PhaseAwaitingStart Phase = "awaiting_start"
	PhaseInProgress    Phase = "in_progress"
	PhaseComplete      Phase = "complete"
)

type Participant struct {
	Username     string    `json:"username"`
	Nickname     string    `json:"nickname"`
	ConnectionID uuid.UUID `json:"connection_id"`
}

type AnsweredTurn struct {
	Username      string `json:"-"`
	Nickname      string `json:"current_participant_name"`
	TurnNumber    int    `json:"current_turn"`
	QuestionIndex int    `json:"question_index"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
}

// ShuffleFunc совпадает по сигнатуре с rand.Shuffle
type ShuffleFunc func(n int, swap func(i, j int))

// Room - состояние одной комнаты. Методы не синхронизированы: все вызовы
// выполняются под блокировкой комнаты в реестре.
//
// Инварианты: len(Participants) <= MaxParticipants, len(History) == TurnNumber,
// TurnOrder после вычисления не переставляется.
type Room struct {
	Code            string
	MaxParticipants int
	Participants    []Participant
	TurnOrder       []string
	TurnNumber      int
	History         []AnsweredTurn
	// Connections хранит connection_id -> username подписанных соединений
	Connections    map[uuid.UUID]string
	StoryRequested bool

	CreatedAt    time.Time
	LastActivity time.Time

	shuffle ShuffleFunc
}

func NewRoom(code string, maxParticipants int, creator Participant, shuffle ShuffleFunc) *Room {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	now := time.Now()

	return &Room{
		Code:            code,
		MaxParticipants: maxParticipants,
		Participants:    []Participant{creator},
		History:         make([]AnsweredTurn, 0, len(Questions)),
		Connections:     make(map[uuid.UUID]string),
		CreatedAt:       now,
		LastActivity:    now,
		shuffle:         shuffle,
	}
}

// NormalizeNickname обрезает пробелы и отклоняет пустой ник.
func NormalizeNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return "", apperr.ErrInvalidNickname
	}

	return nickname, nil
}

func (r *Room) Phase() Phase {
	switch {
	case r.TurnOrder == nil:
		return PhaseAwaitingStart
	case r.TurnNumber >= len(Questions):
		return PhaseComplete
	default:
		return PhaseInProgress
	}
}

func (r *Room) IsFull() bool {
	return len(r.Participants) >= r.MaxParticipants
}

func (r *Room) IsEmpty() bool {
	return len(r.Participants) == 0
}

func (r *Room) participantIndex(username string) int {
	return slices.IndexFunc(r.Participants, func(p Participant) bool { return p.Username == username })
}

func (r *Room) Participant(username string) (Participant, bool) {
	i := r.participantIndex(username)
	if i < 0 {
		return Participant{}, false
	}

	return r.Participants[i], true
}

// Join добавляет участника. Повторный вход того же пользователя ничего не меняет:
// у участника один ник в пределах комнаты.
func (r *Room) Join(p Participant) error {
	if r.participantIndex(p.Username) >= 0 {
		return nil
	}

	if r.IsFull() {
		return apperr.ErrRoomFull
	}

	r.Participants = append(r.Participants, p)

	return nil
}

type LeaveResult struct {
	Nickname       string
	WasCurrentTurn bool
	// Connections - соединения ушедшего участника, отписанные от комнаты
	Connections []uuid.UUID
}

func (r *Room) Leave(username string) (LeaveResult, error) {
	i := r.participantIndex(username)
	if i < 0 {
		return LeaveResult{}, apperr.ErrNotParticipant
	}

	holder, ok := r.CurrentTurnHolder()

	res := LeaveResult{
		Nickname:       r.Participants[i].Nickname,
		WasCurrentTurn: ok && r.Phase() == PhaseInProgress && holder == username,
	}

	r.Participants = slices.Delete(r.Participants, i, i+1)

	if r.TurnOrder != nil {
		r.TurnOrder = slices.DeleteFunc(r.TurnOrder, func(u string) bool { return u == username })
	}

	for connID, u := range r.Connections {
		if u == username {
			delete(r.Connections, connID)
			res.Connections = append(res.Connections, connID)
		}
	}

	return res, nil
}

// Subscribe привязывает соединение к комнате. Переподключение того же
// пользователя не меняет список участников.
func (r *Room) Subscribe(connID uuid.UUID, username string) error {
	i := r.participantIndex(username)
	if i < 0 {
		return apperr.ErrNotParticipant
	}

	r.Participants[i].ConnectionID = connID
	r.Connections[connID] = username

	return nil
}

func (r *Room) Unsubscribe(connID uuid.UUID) (string, bool) {
	username, ok := r.Connections[connID]
	if !ok {
		return "", false
	}

	delete(r.Connections, connID)

	return username, true
}

func (r *Room) ConnectionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Connections))
	for id := range r.Connections {
		ids = append(ids, id)
	}

	return ids
}

func (r *Room) Nicknames() []string {
	names := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		names = append(names, p.Nickname)
	}

	return names
}

// startTurns один раз фиксирует порядок ходов случайной перестановкой текущих участников.
func (r *Room) startTurns() {
	if r.TurnOrder != nil {
		return
	}

	order := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		order = append(order, p.Username)
	}

	r.shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	r.TurnOrder = order
}

func (r *Room) CurrentTurnHolder() (string, bool) {
	if len(r.TurnOrder) == 0 {
		return "", false
	}

	return r.TurnOrder[r.TurnNumber%len(r.TurnOrder)], true
}

type QuestionView struct {
	Index              int      `json:"index"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	IsParticipantTurn  bool     `json:"is_participant_turn"`
	CurrentParticipant string   `json:"current_participant_name"`
}

// CurrentQuestion переводит комнату из AwaitingStart в InProgress при первом вызове.
func (r *Room) CurrentQuestion(username string) (QuestionView, error) {
	if r.participantIndex(username) < 0 {
		return QuestionView{}, apperr.ErrNotParticipant
	}

	r.startTurns()

	if r.Phase() == PhaseComplete {
		return QuestionView{}, apperr.ErrRoomComplete
	}

	q := Questions[r.TurnNumber]

	view := QuestionView{
		Index:    r.TurnNumber,
		Question: q.Prompt,
		Options:  slices.Clone(q.Options),
	}

	if view.Options == nil {
		view.Options = []string{}
	}

	if holder, ok := r.CurrentTurnHolder(); ok {
		view.IsParticipantTurn = holder == username
		if p, ok := r.Participant(holder); ok {
			view.CurrentParticipant = p.Nickname
		}
	}

	return view, nil
}

// Answer принимает ответ только от текущего владельца хода на активный вопрос.
// Отклоненный ответ не меняет ни TurnNumber, ни History.
func (r *Room) Answer(username string, questionIndex int, answer string) (AnsweredTurn, error) {
	i := r.participantIndex(username)
	if i < 0 {
		return AnsweredTurn{}, apperr.ErrNotParticipant
	}

	switch r.Phase() {
	case PhaseAwaitingStart:
		return AnsweredTurn{}, apperr.New(apperr.InvalidAnswer, "turns have not started yet")
	case PhaseComplete:
		return AnsweredTurn{}, apperr.ErrRoomComplete
	}

	holder, ok := r.CurrentTurnHolder()
	if !ok || holder != username {
		return AnsweredTurn{}, apperr.ErrNotYourTurn
	}

	if questionIndex != r.TurnNumber {
		return AnsweredTurn{}, apperr.Newf(apperr.InvalidAnswer, "question %d is not active", questionIndex)
	}

	answer = strings.TrimSpace(answer)

	q := Questions[r.TurnNumber]
	if !q.Accepts(answer) {
		return AnsweredTurn{}, apperr.ErrInvalidAnswer
	}

	turn := AnsweredTurn{
		Username:      username,
		Nickname:      r.Participants[i].Nickname,
		TurnNumber:    r.TurnNumber,
		QuestionIndex: r.TurnNumber,
		Question:      q.Prompt,
		Answer:        answer,
	}

	r.History = append(r.History, turn)
	r.TurnNumber++

	return turn, nil
}

// StorySnapshot - данные для сборки истории, снятые под блокировкой комнаты
type StorySnapshot struct {
	Code      string
	Usernames []string
	Answers   []string
}

// RequestStory срабатывает один раз за жизнь комнаты. Повторный вызов
// возвращает false без ошибки.
func (r *Room) RequestStory() (StorySnapshot, bool, error) {
	if r.Phase() != PhaseComplete {
		return StorySnapshot{}, false, apperr.ErrStoryNotReady
	}

	if r.StoryRequested {
		return StorySnapshot{}, false, nil
	}

	r.StoryRequested = true

	snap := StorySnapshot{
		Code:      r.Code,
		Usernames: make([]string, 0, len(r.Participants)),
		Answers:   make([]string, 0, len(r.History)),
	}

	for _, p := range r.Participants {
		snap.Usernames = append(snap.Usernames, p.Username)
	}

	for _, h := range r.History {
		snap.Answers = append(snap.Answers, h.Answer)
	}

	return snap, true, nil
}

type RoomSnapshot struct {
	Code            string         `json:"code"`
	MaxParticipants int            `json:"max_participants"`
	Participants    []string       `json:"participants"`
	IsFull          bool           `json:"is_full"`
	Phase           Phase          `json:"phase"`
	TurnNumber      int            `json:"turn_number"`
	History         []AnsweredTurn `json:"history"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (r *Room) Snapshot() RoomSnapshot {
	return RoomSnapshot{
		Code:            r.Code,
		MaxParticipants: r.MaxParticipants,
		Participants:    r.Nicknames(),
		IsFull:          r.IsFull(),
		Phase:           r.Phase(),
		TurnNumber:      r.TurnNumber,
		History:         slices.Clone(r.History),
		CreatedAt:       r.CreatedAt,
	}
}
