package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/domain/models"
)

func TestJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	require.NoError(t, repo.Create(ctx, models.NewJob("42")))
	assert.ErrorIs(t, repo.Create(ctx, models.NewJob("42")), models.ErrJobExists)

	job, err := repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, job.Status)
	assert.Nil(t, job.Result)

	result := models.ClassificationResult{Matches: []models.Match{{Name: "cat", Score: 0.9}}}
	require.NoError(t, repo.Complete(ctx, "42", result))

	job, err = repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, result, *job.Result)

	assert.ErrorIs(t, repo.Fail(ctx, "42", "late"), models.ErrJobNotPending)

	job, err = repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Empty(t, job.Error)
}

func TestJobRepository_UnknownID(t *testing.T) {
	repo := NewJobRepository()

	_, err := repo.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperr.ErrJobNotFound))

	assert.True(t, errors.Is(repo.Complete(context.Background(), "missing", models.ClassificationResult{}), apperr.ErrJobNotFound))
}

func TestJobRepository_SingleTerminalTransition(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	require.NoError(t, repo.Create(ctx, models.NewJob("1")))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)

	for i := range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			var err error
			if i%2 == 0 {
				err = repo.Complete(ctx, "1", models.ClassificationResult{})
			} else {
				err = repo.Fail(ctx, "1", "boom")
			}

			if err == nil {
				wins.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestJobRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	require.NoError(t, repo.Create(ctx, models.NewJob("7")))
	require.NoError(t, repo.Complete(ctx, "7", models.ClassificationResult{Matches: []models.Match{{Name: "dog", Score: 0.9}}}))

	job, err := repo.Get(ctx, "7")
	require.NoError(t, err)

	job.Result.Matches[0].Name = "mutated"
	job.Status = models.JobFailed

	again, err := repo.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "dog", again.Result.Matches[0].Name)
	assert.Equal(t, models.JobCompleted, again.Status)
}

func TestJobRepository_DeleteFinishedBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	require.NoError(t, repo.Create(ctx, models.NewJob("done")))
	require.NoError(t, repo.Create(ctx, models.NewJob("running")))
	require.NoError(t, repo.Fail(ctx, "done", "boom"))

	deleted, err := repo.DeleteFinishedBefore(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = repo.Get(ctx, "done")
	assert.ErrorIs(t, err, apperr.ErrJobNotFound)

	_, err = repo.Get(ctx, "running")
	assert.NoError(t, err)
}
