package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/domain/events"
	"github.com/qrave1/TaleRoom/internal/domain/input"
	"github.com/qrave1/TaleRoom/internal/domain/models"
	"github.com/qrave1/TaleRoom/internal/infra/adapters/memory"
)

var validAnswers = []string{"Be kind", "Max", "Luna", "Classic", models.InspirationIgnored}

type roomFixture struct {
	uc          RoomUsecase
	broadcaster *recordingBroadcaster
	generator   *MockGenerator
	profiles    *MockProfileRepository
}

func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()

	f := &roomFixture{
		broadcaster: &recordingBroadcaster{},
		generator:   &MockGenerator{},
		profiles:    &MockProfileRepository{},
	}

	// порядок ходов совпадает с порядком входа
	keepOrder := memory.WithShuffle(func(int, func(i, j int)) {})

	f.uc = NewRoomUsecase(5, memory.NewRoomRepository(keepOrder), f.profiles, f.generator, f.broadcaster)

	t.Cleanup(f.uc.Wait)

	return f
}

func (f *roomFixture) create(t *testing.T, username string, maxParticipants int) (string, uuid.UUID) {
	t.Helper()

	connID := uuid.New()

	snap, err := f.uc.Create(context.Background(), input.CreateRoomInput{
		Username:        username,
		Nickname:        username + "-nick",
		MaxParticipants: maxParticipants,
	}, connID)
	require.NoError(t, err)

	return snap.Code, connID
}

func (f *roomFixture) join(t *testing.T, code, username string) uuid.UUID {
	t.Helper()

	connID := uuid.New()

	_, err := f.uc.Join(context.Background(), input.JoinRoomInput{
		Code:     code,
		Username: username,
		Nickname: username + "-nick",
	}, connID)
	require.NoError(t, err)

	return connID
}

func TestRoomUsecase_CreateValidation(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	_, err := f.uc.Create(ctx, input.CreateRoomInput{Username: "u", Nickname: "  ", MaxParticipants: 2}, uuid.Nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidNickname)

	for _, size := range []int{0, -1, 6} {
		_, err = f.uc.Create(ctx, input.CreateRoomInput{Username: "u", Nickname: "n", MaxParticipants: size}, uuid.Nil)
		assert.ErrorIs(t, err, apperr.ErrInvalidRoomSize, "size %d", size)
	}
}

func TestRoomUsecase_CreateSubscribesConnection(t *testing.T) {
	f := newRoomFixture(t)

	code, conn := f.create(t, "host", 2)

	created := f.broadcaster.to(conn, events.TypeRoomCreated)
	require.Len(t, created, 1)
	assert.Equal(t, events.RoomEvent{Code: code}, created[0].Payload)

	participants := f.broadcaster.to(conn, events.TypeParticipants)
	require.Len(t, participants, 1)
	assert.Equal(t, events.ParticipantListEvent{List: []string{"host-nick"}, IsFull: false}, participants[0].Payload)
}

func TestRoomUsecase_JoinUntilFull(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	code, hostConn := f.create(t, "host", 2)
	f.join(t, code, "bob")

	_, err := f.uc.Join(ctx, input.JoinRoomInput{Code: code, Username: "eve", Nickname: "eve"}, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrRoomFull)

	_, err = f.uc.Join(ctx, input.JoinRoomInput{Code: "missing", Username: "eve", Nickname: "eve"}, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrRoomNotFound)

	_, err = f.uc.Join(ctx, input.JoinRoomInput{Code: code, Username: "eve", Nickname: ""}, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrInvalidNickname)

	snap, err := f.uc.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, []string{"host-nick", "bob-nick"}, snap.Participants)
	assert.True(t, snap.IsFull)

	last := f.broadcaster.to(hostConn, events.TypeParticipants)
	require.NotEmpty(t, last)
	assert.Equal(t, events.ParticipantListEvent{List: []string{"host-nick", "bob-nick"}, IsFull: true}, last[len(last)-1].Payload)
}

func TestRoomUsecase_ReconnectDoesNotRejoin(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	code, hostConn := f.create(t, "host", 3)
	f.join(t, code, "bob")

	require.NoError(t, f.uc.Question(ctx, code, "host", hostConn))
	require.NoError(t, f.uc.Answer(ctx, code, "host", 0, "Be kind"))

	reconnect := f.join(t, code, "bob")

	snap, err := f.uc.Get(ctx, code)
	require.NoError(t, err)
	assert.Len(t, snap.Participants, 2)

	assert.Len(t, f.broadcaster.to(reconnect, events.TypeRoomJoined), 1)

	history := f.broadcaster.to(reconnect, events.TypeHistory)
	require.Len(t, history, 1)
	assert.Len(t, history[0].Payload, 1)
}

func TestRoomUsecase_AnswerOutOfTurn(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	code, hostConn := f.create(t, "host", 2)
	bobConn := f.join(t, code, "bob")

	require.NoError(t, f.uc.Question(ctx, code, "bob", bobConn))

	questions := f.broadcaster.to(bobConn, events.TypeCurrentQuestion)
	require.Len(t, questions, 1)

	view := questions[0].Payload.(models.QuestionView)
	assert.False(t, view.IsParticipantTurn)
	assert.Equal(t, "host-nick", view.CurrentParticipant)

	// ход хоста, bob отвечает не в свою очередь
	require.NoError(t, f.uc.Answer(ctx, code, "bob", 0, "Be brave"))

	snap, err := f.uc.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TurnNumber)
	assert.Empty(t, snap.History)

	assert.Len(t, f.broadcaster.to(hostConn, events.TypeUnauthorized), 1)
	assert.Len(t, f.broadcaster.to(bobConn, events.TypeUnauthorized), 1)

	require.NoError(t, f.uc.Answer(ctx, code, "host", 0, "Be kind"))

	snap, err = f.uc.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TurnNumber)
	assert.Len(t, snap.History, 1)

	finished := f.broadcaster.to(bobConn, events.TypeTurnFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, events.TurnFinishedEvent{RoomCode: code, IsLastTurn: false}, finished[0].Payload)
}

func TestRoomUsecase_AnswerErrorsGoToSender(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	code, hostConn := f.create(t, "host", 2)

	err := f.uc.Answer(ctx, code, "host", 0, "Be kind")
	assert.ErrorIs(t, err, apperr.ErrInvalidAnswer)

	require.NoError(t, f.uc.Question(ctx, code, "host", hostConn))

	assert.ErrorIs(t, f.uc.Answer(ctx, code, "host", 3, "Classic"), apperr.ErrInvalidAnswer)
	assert.ErrorIs(t, f.uc.Answer(ctx, code, "stranger", 0, "x"), apperr.ErrNotParticipant)
	assert.ErrorIs(t, f.uc.Answer(ctx, "missing", "host", 0, "x"), apperr.ErrRoomNotFound)

	assert.Empty(t, f.broadcaster.ofType(events.TypeUnauthorized))
}

func TestRoomUsecase_StoryTriggeredOnce(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	f.profiles.
		On("GetProfiles", mock.Anything, []string{"host"}).
		Return([]*models.User{{Username: "host", Age: 7, Gender: "girl", Interests: models.Interests{"lego"}}}, nil)
	f.generator.
		On("Generate", mock.Anything, mock.MatchedBy(func(p models.Prompt) bool { return p.JSON })).
		Return(`{"title":"Max and Luna","story":"Once upon a time"}`, nil)

	code, hostConn := f.create(t, "host", 1)

	require.NoError(t, f.uc.Question(ctx, code, "host", hostConn))

	for i, answer := range validAnswers[:len(validAnswers)-1] {
		require.NoError(t, f.uc.Answer(ctx, code, "host", i, answer))
	}

	last := len(validAnswers) - 1

	var wg sync.WaitGroup

	for range 4 {
		wg.Add(2)

		go func() {
			defer wg.Done()
			_ = f.uc.Answer(ctx, code, "host", last, validAnswers[last])
		}()

		go func() {
			defer wg.Done()
			_ = f.uc.GenerateStory(ctx, code, "host")
		}()
	}

	wg.Wait()
	f.uc.Wait()

	f.generator.AssertNumberOfCalls(t, "Generate", 1)

	snap, err := f.uc.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseComplete, snap.Phase)
	assert.Len(t, snap.History, len(models.Questions))

	stories := f.broadcaster.to(hostConn, events.TypeStory)
	require.Len(t, stories, 1)
	assert.Equal(t, models.Story{Title: "Max and Luna", Story: "Once upon a time"}, stories[0].Payload)
}

func TestRoomUsecase_StoryFailureNotRetried(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	f.profiles.On("GetProfiles", mock.Anything, mock.Anything).Return([]*models.User{}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return("this is not json", nil)

	code, hostConn := f.create(t, "host", 1)

	assert.ErrorIs(t, f.uc.GenerateStory(ctx, code, "host"), apperr.ErrStoryNotReady)

	require.NoError(t, f.uc.Question(ctx, code, "host", hostConn))

	for i, answer := range validAnswers {
		require.NoError(t, f.uc.Answer(ctx, code, "host", i, answer))
	}

	f.uc.Wait()

	failed := f.broadcaster.to(hostConn, events.TypeStoryFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, apperr.GenerationFailed, failed[0].Payload.(*apperr.Error).Kind)

	require.NoError(t, f.uc.GenerateStory(ctx, code, "host"))
	f.uc.Wait()

	f.generator.AssertNumberOfCalls(t, "Generate", 1)

	// комната остается доступной после провала генерации
	_, err := f.uc.Get(ctx, code)
	assert.NoError(t, err)
}

func TestRoomUsecase_LeaveCurrentTurnHolder(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	code, hostConn := f.create(t, "host", 3)
	bobConn := f.join(t, code, "bob")

	require.NoError(t, f.uc.Question(ctx, code, "host", hostConn))
	require.NoError(t, f.uc.Leave(ctx, code, "host"))

	left := f.broadcaster.to(bobConn, events.TypeParticipantLeft)
	require.Len(t, left, 1)
	assert.Equal(t, events.ParticipantLeftEvent{Nickname: "host-nick", CallNextTurn: true, RoomCode: code}, left[0].Payload)

	assert.Empty(t, f.broadcaster.to(hostConn, events.TypeParticipantLeft))

	require.NoError(t, f.uc.Question(ctx, code, "bob", bobConn))

	questions := f.broadcaster.to(bobConn, events.TypeCurrentQuestion)
	require.Len(t, questions, 1)
	assert.True(t, questions[0].Payload.(models.QuestionView).IsParticipantTurn)

	assert.ErrorIs(t, f.uc.Leave(ctx, code, "host"), apperr.ErrNotParticipant)
}

func TestRoomUsecase_UnsubscribeKeepsParticipant(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	code, hostConn := f.create(t, "host", 2)
	bobConn := f.join(t, code, "bob")

	f.uc.Unsubscribe(ctx, code, bobConn)
	f.uc.Unsubscribe(ctx, "missing", bobConn)

	snap, err := f.uc.Get(ctx, code)
	require.NoError(t, err)
	assert.Len(t, snap.Participants, 2)

	require.NoError(t, f.uc.Question(ctx, code, "host", hostConn))
	require.NoError(t, f.uc.Answer(ctx, code, "host", 0, "Be kind"))

	assert.Empty(t, f.broadcaster.to(bobConn, events.TypeHistory))
}

func TestRoomUsecase_GenerateStoryRequiresParticipant(t *testing.T) {
	f := newRoomFixture(t)
	ctx := context.Background()

	code, hostConn := f.create(t, "host", 1)

	require.NoError(t, f.uc.Question(ctx, code, "host", hostConn))

	for i, answer := range validAnswers[:len(validAnswers)-1] {
		require.NoError(t, f.uc.Answer(ctx, code, "host", i, answer))
	}

	assert.ErrorIs(t, f.uc.GenerateStory(ctx, code, "stranger"), apperr.ErrNotParticipant)
	assert.ErrorIs(t, f.uc.GenerateStory(ctx, "missing", "host"), apperr.ErrRoomNotFound)

	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}
