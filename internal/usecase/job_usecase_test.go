package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/TaleRoom/internal/application/worker"
	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/domain/models"
	"github.com/qrave1/TaleRoom/internal/infra/adapters/memory"
)

var catImage = models.Image{Filename: "cat.png", Data: []byte{0x89, 'P', 'N', 'G'}}

func newJobUsecase(t *testing.T, gen Generator) (JobUsecase, *memory.JobRepository) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pool := worker.NewPool(2, 16)
	go func() { _ = pool.Run(ctx) }()

	repo := memory.NewJobRepository()

	return NewJobUsecase(repo, gen, pool), repo
}

func eventuallyTerminal(t *testing.T, uc JobUsecase, id string) JobView {
	t.Helper()

	var view JobView

	require.Eventually(t, func() bool {
		var err error

		view, err = uc.Poll(context.Background(), id)
		require.NoError(t, err)

		return view.Status != JobViewRunning
	}, 2*time.Second, 5*time.Millisecond)

	return view
}

func TestJobUsecase_RoundTrip(t *testing.T) {
	release := make(chan struct{})

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p models.Prompt) bool {
		return len(p.Images) == 1 && p.Text == classificationPrompt
	})).
		Run(func(mock.Arguments) { <-release }).
		Return("Cat.", nil).
		Once()

	uc, _ := newJobUsecase(t, gen)
	ctx := context.Background()

	id, err := uc.Submit(ctx, catImage)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	view, err := uc.Poll(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, JobView{Status: JobViewRunning}, view)

	close(release)

	view = eventuallyTerminal(t, uc, id)
	assert.Equal(t, JobViewCompleted, view.Status)
	require.NotNil(t, view.Result)
	assert.Equal(t, []models.Match{{Name: "Cat", Score: 0.9}}, view.Result.Matches)
	assert.Empty(t, view.Error)

	gen.AssertExpectations(t)
	assert.Equal(t, 1, uc.Stats().Completed)
}

func TestJobUsecase_UnknownID(t *testing.T) {
	uc, _ := newJobUsecase(t, &MockGenerator{})

	for _, id := range []string{"", "123", "not-a-number"} {
		_, err := uc.Poll(context.Background(), id)
		assert.ErrorIs(t, err, apperr.ErrJobNotFound)
	}
}

func TestJobUsecase_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(gen *MockGenerator)
	}{
		{
			name: "generator error",
			setup: func(gen *MockGenerator) {
				gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota"))
			},
		},
		{
			name: "empty label",
			setup: func(gen *MockGenerator) {
				gen.On("Generate", mock.Anything, mock.Anything).Return("  ", nil)
			},
		},
		{
			name: "generator panics",
			setup: func(gen *MockGenerator) {
				gen.On("Generate", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") })
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &MockGenerator{}
			tt.setup(gen)

			uc, _ := newJobUsecase(t, gen)

			id, err := uc.Submit(context.Background(), catImage)
			require.NoError(t, err)

			view := eventuallyTerminal(t, uc, id)
			assert.Equal(t, JobViewFailed, view.Status)
			assert.Nil(t, view.Result)
			assert.Equal(t, apperr.ErrClassificationFailed.Message, view.Error)

			assert.Equal(t, 1, uc.Stats().Failed)
			gen.AssertNumberOfCalls(t, "Generate", 1)
		})
	}
}

func TestJobUsecase_InvalidImageNotTracked(t *testing.T) {
	gen := &MockGenerator{}
	uc, _ := newJobUsecase(t, gen)

	_, err := uc.Submit(context.Background(), models.Image{Filename: "cat.gif", Data: []byte("x")})
	assert.ErrorIs(t, err, apperr.ErrInvalidImage)

	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestJobUsecase_QueueFull(t *testing.T) {
	gen := &MockGenerator{}

	// пул без обработчиков и без очереди
	uc := NewJobUsecase(memory.NewJobRepository(), gen, worker.NewPool(1, 0))

	id, err := uc.Submit(context.Background(), catImage)
	require.NoError(t, err)

	view, err := uc.Poll(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, JobViewFailed, view.Status)
	assert.Nil(t, view.Result)

	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestJobUsecase_Classify(t *testing.T) {
	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return("dog", nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("down")).Once()

	uc, _ := newJobUsecase(t, gen)
	ctx := context.Background()

	res, err := uc.Classify(ctx, catImage)
	require.NoError(t, err)
	assert.Equal(t, []models.Match{{Name: "dog", Score: 0.9}}, res.Matches)

	_, err = uc.Classify(ctx, catImage)
	assert.ErrorIs(t, err, apperr.ErrClassificationFailed)

	_, err = uc.Classify(ctx, models.Image{Filename: "", Data: []byte("x")})
	assert.ErrorIs(t, err, apperr.ErrInvalidImage)

	stats := uc.Stats()
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Running)
}

func TestJobUsecase_Janitor(t *testing.T) {
	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return("cat", nil)

	uc, repo := newJobUsecase(t, gen)

	id, err := uc.Submit(context.Background(), catImage)
	require.NoError(t, err)

	eventuallyTerminal(t, uc, id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go uc.RunJanitor(ctx, 5*time.Millisecond, 0)

	assert.Eventually(t, func() bool {
		_, err := repo.Get(context.Background(), id)
		return errors.Is(err, apperr.ErrJobNotFound)
	}, time.Second, 5*time.Millisecond)
}
