package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/application/metric"
	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/domain/events"
	"github.com/qrave1/TaleRoom/internal/domain/input"
	"github.com/qrave1/TaleRoom/internal/domain/models"
	"github.com/qrave1/TaleRoom/internal/infra/adapters/memory"
)

// Generator - внешний генератор текста
type Generator interface {
	Generate(ctx context.Context, prompt models.Prompt) (string, error)
}

// ProfileRepository - хранилище профилей участников
type ProfileRepository interface {
	GetProfiles(ctx context.Context, usernames []string) ([]*models.User, error)
}

// RoomUsecase координирует комнаты, ходы и сборку истории
type RoomUsecase interface {
	// Create создает комнату. Если connID не uuid.Nil, соединение сразу подписывается.
	Create(ctx context.Context, in input.CreateRoomInput, connID uuid.UUID) (models.RoomSnapshot, error)
	// Join добавляет участника. Повторный вход того же пользователя - переподключение.
	Join(ctx context.Context, in input.JoinRoomInput, connID uuid.UUID) (models.RoomSnapshot, error)
	Get(ctx context.Context, code string) (models.RoomSnapshot, error)

	Unsubscribe(ctx context.Context, code string, connID uuid.UUID)
	Leave(ctx context.Context, code, username string) error

	// Question отправляет текущий вопрос только запросившему соединению.
	Question(ctx context.Context, code, username string, connID uuid.UUID) error
	Answer(ctx context.Context, code, username string, questionIndex int, answer string) error
	// GenerateStory запускает сборку истории. Повторные вызовы ничего не делают.
	GenerateStory(ctx context.Context, code, username string) error

	// RunJanitor удаляет комнаты без соединений, неактивные дольше idleTTL.
	RunJanitor(ctx context.Context, interval, idleTTL time.Duration)
	// Wait ждет завершения запущенных сборок истории.
	Wait()
}

type roomUsecase struct {
	maxParticipants int

	roomRepo    memory.RoomRepository
	profileRepo ProfileRepository
	generator   Generator
	broadcaster Broadcaster

	// pick выбирает интерес для промпта
	pick func(n int) int

	stories sync.WaitGroup
}

func NewRoomUsecase(
	maxParticipants int,
	roomRepo memory.RoomRepository,
	profileRepo ProfileRepository,
	generator Generator,
	broadcaster Broadcaster,
) RoomUsecase {
	return &roomUsecase{
		maxParticipants: maxParticipants,
		roomRepo:        roomRepo,
		profileRepo:     profileRepo,
		generator:       generator,
		broadcaster:     broadcaster,
		pick:            rand.IntN,
	}
}

func (uc *roomUsecase) Create(ctx context.Context, in input.CreateRoomInput, connID uuid.UUID) (models.RoomSnapshot, error) {
	nickname, err := models.NormalizeNickname(in.Nickname)
	if err != nil {
		return models.RoomSnapshot{}, err
	}

	if in.MaxParticipants < 1 || in.MaxParticipants > uc.maxParticipants {
		return models.RoomSnapshot{}, apperr.Newf(
			apperr.InvalidRoomSize,
			"number of participants must be between 1 and %d",
			uc.maxParticipants,
		)
	}

	code, err := uc.roomRepo.Create(in.MaxParticipants, models.Participant{
		Username: in.Username,
		Nickname: nickname,
	})
	if err != nil {
		return models.RoomSnapshot{}, fmt.Errorf("create room: %w", err)
	}

	slog.Info(
		"room created",
		slog.String(constant.RoomCode, code),
		slog.String(constant.UserName, in.Username),
	)

	if connID == uuid.Nil {
		return uc.Get(ctx, code)
	}

	return uc.subscribe(code, in.Username, connID, events.TypeRoomCreated)
}

func (uc *roomUsecase) Join(ctx context.Context, in input.JoinRoomInput, connID uuid.UUID) (models.RoomSnapshot, error) {
	nickname, err := models.NormalizeNickname(in.Nickname)
	if err != nil {
		return models.RoomSnapshot{}, err
	}

	var (
		snap  models.RoomSnapshot
		conns []uuid.UUID
	)

	err = uc.roomRepo.Update(in.Code, func(room *models.Room) error {
		if err := room.Join(models.Participant{Username: in.Username, Nickname: nickname}); err != nil {
			return err
		}

		snap = room.Snapshot()
		conns = room.ConnectionIDs()

		return nil
	})
	if err != nil {
		return models.RoomSnapshot{}, err
	}

	if connID == uuid.Nil {
		uc.broadcaster.Broadcast(conns, events.TypeParticipants, participantList(snap))
		return snap, nil
	}

	return uc.subscribe(in.Code, in.Username, connID, events.TypeRoomJoined)
}

// subscribe привязывает соединение и сообщает ему текущее состояние комнаты:
// событие из прошлого повторно не доставляется.
func (uc *roomUsecase) subscribe(code, username string, connID uuid.UUID, ack string) (models.RoomSnapshot, error) {
	var (
		snap  models.RoomSnapshot
		conns []uuid.UUID
	)

	err := uc.roomRepo.Update(code, func(room *models.Room) error {
		if err := room.Subscribe(connID, username); err != nil {
			return err
		}

		snap = room.Snapshot()
		conns = room.ConnectionIDs()

		return nil
	})
	if err != nil {
		return models.RoomSnapshot{}, err
	}

	uc.broadcaster.Send(connID, ack, events.RoomEvent{Code: code})
	uc.broadcaster.Broadcast(conns, events.TypeParticipants, participantList(snap))

	if len(snap.History) > 0 {
		uc.broadcaster.Send(connID, events.TypeHistory, snap.History)
	}

	return snap, nil
}

func (uc *roomUsecase) Get(_ context.Context, code string) (models.RoomSnapshot, error) {
	var snap models.RoomSnapshot

	err := uc.roomRepo.View(code, func(room *models.Room) {
		snap = room.Snapshot()
	})

	return snap, err
}

func (uc *roomUsecase) Unsubscribe(_ context.Context, code string, connID uuid.UUID) {
	err := uc.roomRepo.Update(code, func(room *models.Room) error {
		room.Unsubscribe(connID)
		return nil
	})
	if err != nil && !errors.Is(err, apperr.ErrRoomNotFound) {
		slog.Error(
			"unsubscribe connection",
			slog.String(constant.RoomCode, code),
			slog.Any(constant.ConnectionID, connID),
			slog.Any(constant.Error, err),
		)
	}
}

func (uc *roomUsecase) Leave(_ context.Context, code, username string) error {
	var (
		res   models.LeaveResult
		snap  models.RoomSnapshot
		conns []uuid.UUID
	)

	err := uc.roomRepo.Update(code, func(room *models.Room) error {
		var err error

		res, err = room.Leave(username)
		if err != nil {
			return err
		}

		snap = room.Snapshot()
		conns = room.ConnectionIDs()

		return nil
	})
	if err != nil {
		return err
	}

	slog.Info(
		"participant left room",
		slog.String(constant.RoomCode, code),
		slog.String(constant.UserName, username),
	)

	uc.broadcaster.Broadcast(conns, events.TypeParticipantLeft, events.ParticipantLeftEvent{
		Nickname:     res.Nickname,
		CallNextTurn: res.WasCurrentTurn,
		RoomCode:     code,
	})
	uc.broadcaster.Broadcast(conns, events.TypeParticipants, participantList(snap))

	return nil
}

func (uc *roomUsecase) Question(_ context.Context, code, username string, connID uuid.UUID) error {
	var view models.QuestionView

	err := uc.roomRepo.Update(code, func(room *models.Room) error {
		var err error

		view, err = room.CurrentQuestion(username)

		return err
	})
	if err != nil {
		return err
	}

	uc.broadcaster.Send(connID, events.TypeCurrentQuestion, view)

	return nil
}

func (uc *roomUsecase) Answer(ctx context.Context, code, username string, questionIndex int, answer string) error {
	var (
		history []models.AnsweredTurn
		conns   []uuid.UUID
		isLast  bool
		story   models.StorySnapshot
		trigger bool
	)

	err := uc.roomRepo.Update(code, func(room *models.Room) error {
		conns = room.ConnectionIDs()

		if _, err := room.Answer(username, questionIndex, answer); err != nil {
			return err
		}

		history = room.Snapshot().History
		isLast = room.Phase() == models.PhaseComplete

		if isLast {
			var err error

			story, trigger, err = room.RequestStory()
			if err != nil {
				return err
			}
		}

		return nil
	})

	switch {
	case errors.Is(err, apperr.ErrNotYourTurn):
		uc.broadcaster.Broadcast(conns, events.TypeUnauthorized, events.UnauthorizedEvent{
			Message: apperr.ErrNotYourTurn.Message,
		})

		return nil
	case err != nil:
		return err
	}

	uc.broadcaster.Broadcast(conns, events.TypeHistory, history)
	uc.broadcaster.Broadcast(conns, events.TypeTurnFinished, events.TurnFinishedEvent{
		RoomCode:   code,
		IsLastTurn: isLast,
	})

	if trigger {
		uc.startStory(ctx, story)
	}

	return nil
}

func (uc *roomUsecase) GenerateStory(ctx context.Context, code, username string) error {
	var (
		story   models.StorySnapshot
		trigger bool
	)

	err := uc.roomRepo.Update(code, func(room *models.Room) error {
		if _, ok := room.Participant(username); !ok {
			return apperr.ErrNotParticipant
		}

		var err error

		story, trigger, err = room.RequestStory()

		return err
	})
	if err != nil {
		return err
	}

	if trigger {
		uc.startStory(ctx, story)
	}

	return nil
}

func (uc *roomUsecase) RunJanitor(ctx context.Context, interval, idleTTL time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := uc.roomRepo.RemoveIdle(time.Now().Add(-idleTTL)); removed > 0 {
				slog.Info("idle rooms removed", slog.Int("count", removed))
			}
		}
	}
}

func (uc *roomUsecase) Wait() {
	uc.stories.Wait()
}

// startStory выполняет сборку вне блокировки комнаты и вне контекста запроса.
func (uc *roomUsecase) startStory(ctx context.Context, snap models.StorySnapshot) {
	uc.stories.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"story assembly panicked",
					slog.String(constant.RoomCode, snap.Code),
					slog.Any(constant.Error, fmt.Errorf("panic: %v", r)),
				)
			}
		}()

		uc.assembleStory(context.WithoutCancel(ctx), snap)
	})
}

func (uc *roomUsecase) assembleStory(ctx context.Context, snap models.StorySnapshot) {
	start := time.Now()

	story, err := uc.generateStory(ctx, snap)

	var conns []uuid.UUID

	viewErr := uc.roomRepo.View(snap.Code, func(room *models.Room) {
		conns = room.ConnectionIDs()
	})
	if viewErr != nil {
		slog.Warn("room gone before story was ready", slog.String(constant.RoomCode, snap.Code))
	}

	if err != nil {
		metric.RecordStory("failed")
		slog.Error(
			"generate story",
			slog.String(constant.RoomCode, snap.Code),
			slog.Any(constant.Error, err),
		)

		uc.broadcaster.Broadcast(conns, events.TypeStoryFailed, apperr.From(err))

		return
	}

	metric.RecordStory("success")
	slog.Info(
		"story generated",
		slog.String(constant.RoomCode, snap.Code),
		slog.Duration("duration", time.Since(start)),
	)

	uc.broadcaster.Broadcast(conns, events.TypeStory, story)
}

func (uc *roomUsecase) generateStory(ctx context.Context, snap models.StorySnapshot) (models.Story, error) {
	profiles, err := uc.profileRepo.GetProfiles(ctx, snap.Usernames)
	if err != nil {
		return models.Story{}, fmt.Errorf("%w: get profiles: %v", apperr.ErrGenerationFailed, err)
	}

	if len(profiles) < len(snap.Usernames) {
		slog.Warn(
			"some participant profiles are missing",
			slog.String(constant.RoomCode, snap.Code),
			slog.Int("found", len(profiles)),
			slog.Int("participants", len(snap.Usernames)),
		)
	}

	req, err := models.NewStoryRequest(snap.Answers, profiles)
	if err != nil {
		return models.Story{}, err
	}

	text, err := uc.generator.Generate(ctx, models.Prompt{
		Text: buildStoryPrompt(req, uc.pick),
		JSON: true,
	})
	if err != nil {
		return models.Story{}, fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
	}

	var story models.Story

	if err = json.Unmarshal([]byte(text), &story); err != nil {
		return models.Story{}, fmt.Errorf("%w: decode story: %v", apperr.ErrGenerationFailed, err)
	}

	if err = story.Validate(); err != nil {
		return models.Story{}, fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
	}

	return story, nil
}

func participantList(snap models.RoomSnapshot) events.ParticipantListEvent {
	return events.ParticipantListEvent{
		List:   snap.Participants,
		IsFull: snap.IsFull,
	}
}
