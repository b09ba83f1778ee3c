package memory

import (
	"context"
	"sync"
	"time"

	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/domain/models"
)

// JobRepository хранит задачи классификации в памяти процесса.
// Наружу отдаются только копии, поэтому читатель не видит частично
// записанную задачу.
type JobRepository struct {
	jobs map[string]models.Job

	mu sync.RWMutex
}

func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs: make(map[string]models.Job, 64),
	}
}

func (r *JobRepository) Create(_ context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return models.ErrJobExists
	}

	r.jobs[job.ID] = *job

	return nil
}

func (r *JobRepository) Get(_ context.Context, id string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, apperr.ErrJobNotFound
	}

	if job.Result != nil {
		res := models.ClassificationResult{Matches: append([]models.Match(nil), job.Result.Matches...)}
		job.Result = &res
	}

	return &job, nil
}

func (r *JobRepository) Complete(_ context.Context, id string, result models.ClassificationResult) error {
	return r.finish(id, func(job *models.Job) {
		job.Status = models.JobCompleted
		job.Result = &models.ClassificationResult{Matches: append([]models.Match(nil), result.Matches...)}
	})
}

func (r *JobRepository) Fail(_ context.Context, id string, reason string) error {
	return r.finish(id, func(job *models.Job) {
		job.Status = models.JobFailed
		job.Error = reason
	})
}

func (r *JobRepository) DeleteFinishedBefore(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0

	for id, job := range r.jobs {
		if job.Status.IsTerminal() && job.UpdatedAt.Before(before) {
			delete(r.jobs, id)
			deleted++
		}
	}

	return deleted, nil
}

// finish переводит pending задачу в терминальный статус ровно один раз.
func (r *JobRepository) finish(id string, apply func(job *models.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return apperr.ErrJobNotFound
	}

	if job.Status != models.JobPending {
		return models.ErrJobNotPending
	}

	apply(&job)
	job.UpdatedAt = time.Now()

	r.jobs[id] = job

	return nil
}
