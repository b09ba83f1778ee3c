package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/application/metric"
	"github.com/qrave1/TaleRoom/internal/application/worker"
	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/domain/models"
)

const (
	classificationPrompt = "What is the main object in the photo? answer just in one word- the main object"
	classificationScore  = 0.9

	jobIDAttempts = 8
)

// Статусы, которые видит клиент при опросе
const (
	JobViewRunning   = "running"
	JobViewCompleted = "completed"
	JobViewFailed    = "failed"
)

// JobRepository - хранилище задач. Complete и Fail переводят задачу из
// pending атомарно и не более одного раза.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	Complete(ctx context.Context, id string, result models.ClassificationResult) error
	Fail(ctx context.Context, id string, reason string) error
	DeleteFinishedBefore(ctx context.Context, before time.Time) (int, error)
}

// JobView - ответ на опрос задачи
type JobView struct {
	Status string                       `json:"status"`
	Result *models.ClassificationResult `json:"result,omitempty"`
	Error  string                       `json:"error,omitempty"`
}

type JobUsecase interface {
	// Submit регистрирует задачу и сразу возвращает ее id, не дожидаясь обработки.
	Submit(ctx context.Context, img models.Image) (string, error)
	Poll(ctx context.Context, id string) (JobView, error)
	// Classify выполняет классификацию в контексте запроса.
	Classify(ctx context.Context, img models.Image) (models.ClassificationResult, error)
	Stats() models.JobStats

	// RunJanitor удаляет завершенные задачи старше retention, пока ctx жив.
	RunJanitor(ctx context.Context, interval, retention time.Duration)
}

type jobUsecase struct {
	jobRepo   JobRepository
	generator Generator
	pool      *worker.Pool

	completed atomic.Int64
	failed    atomic.Int64
	running   atomic.Int64
}

func NewJobUsecase(jobRepo JobRepository, generator Generator, pool *worker.Pool) JobUsecase {
	return &jobUsecase{
		jobRepo:   jobRepo,
		generator: generator,
		pool:      pool,
	}
}

func (uc *jobUsecase) Submit(ctx context.Context, img models.Image) (string, error) {
	if err := img.Validate(); err != nil {
		return "", err
	}

	job, err := uc.register(ctx)
	if err != nil {
		return "", err
	}

	submitted := uc.pool.TrySubmit(func(wctx context.Context) {
		uc.process(wctx, job.ID, img)
	})

	if !submitted {
		slog.Warn("job queue is full", slog.String(constant.JobID, job.ID))
		uc.finish(
			context.WithoutCancel(ctx),
			job.ID,
			time.Now(),
			models.ClassificationResult{},
			apperr.New(apperr.ClassificationFailed, "job queue is full"),
		)
	}

	return job.ID, nil
}

// register выдает случайный числовой id, повторяя попытку при коллизии.
func (uc *jobUsecase) register(ctx context.Context) (*models.Job, error) {
	for range jobIDAttempts {
		job := models.NewJob(strconv.FormatUint(rand.Uint64(), 10))

		err := uc.jobRepo.Create(ctx, job)
		if err == nil {
			return job, nil
		}

		if !errors.Is(err, models.ErrJobExists) {
			return nil, fmt.Errorf("create job: %w", err)
		}
	}

	return nil, errors.New("create job: could not allocate unique id")
}

func (uc *jobUsecase) Poll(ctx context.Context, id string) (JobView, error) {
	job, err := uc.jobRepo.Get(ctx, id)
	if err != nil {
		return JobView{}, err
	}

	switch job.Status {
	case models.JobCompleted:
		return JobView{Status: JobViewCompleted, Result: job.Result}, nil
	case models.JobFailed:
		return JobView{Status: JobViewFailed, Error: job.Error}, nil
	default:
		return JobView{Status: JobViewRunning}, nil
	}
}

func (uc *jobUsecase) Classify(ctx context.Context, img models.Image) (models.ClassificationResult, error) {
	if err := img.Validate(); err != nil {
		return models.ClassificationResult{}, err
	}

	start := time.Now()

	res, err := uc.classify(ctx, img)
	if err != nil {
		uc.failed.Add(1)
		metric.RecordJob(string(models.JobFailed), time.Since(start))

		return models.ClassificationResult{}, err
	}

	uc.completed.Add(1)
	metric.RecordJob(string(models.JobCompleted), time.Since(start))

	return res, nil
}

func (uc *jobUsecase) Stats() models.JobStats {
	return models.JobStats{
		Completed: int(uc.completed.Load()),
		Failed:    int(uc.failed.Load()),
		Running:   int(uc.running.Load()),
		Queued:    uc.pool.Queued(),
	}
}

func (uc *jobUsecase) RunJanitor(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := uc.jobRepo.DeleteFinishedBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				slog.Error("sweep finished jobs", slog.Any(constant.Error, err))
				continue
			}

			if deleted > 0 {
				slog.Debug("finished jobs swept", slog.Int("count", deleted))
			}
		}
	}
}

func (uc *jobUsecase) process(ctx context.Context, id string, img models.Image) {
	uc.running.Add(1)
	defer uc.running.Add(-1)

	start := time.Now()

	res, err := uc.safeClassify(ctx, img)

	uc.finish(context.WithoutCancel(ctx), id, start, res, err)
}

// safeClassify превращает панику обработчика в обычный провал задачи.
func (uc *jobUsecase) safeClassify(ctx context.Context, img models.Image) (res models.ClassificationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", apperr.ErrClassificationFailed, r)
		}
	}()

	return uc.classify(ctx, img)
}

// finish записывает терминальный статус. Результат и статус пишутся одной операцией хранилища.
func (uc *jobUsecase) finish(ctx context.Context, id string, start time.Time, res models.ClassificationResult, jobErr error) {
	var err error

	if jobErr != nil {
		uc.failed.Add(1)
		metric.RecordJob(string(models.JobFailed), time.Since(start))

		slog.Warn("classification job failed", slog.String(constant.JobID, id), slog.Any(constant.Error, jobErr))

		err = uc.jobRepo.Fail(ctx, id, apperr.From(jobErr).Message)
	} else {
		uc.completed.Add(1)
		metric.RecordJob(string(models.JobCompleted), time.Since(start))

		err = uc.jobRepo.Complete(ctx, id, res)
	}

	if err != nil {
		slog.Error("store job result", slog.String(constant.JobID, id), slog.Any(constant.Error, err))
	}
}

func (uc *jobUsecase) classify(ctx context.Context, img models.Image) (models.ClassificationResult, error) {
	text, err := uc.generator.Generate(ctx, models.Prompt{
		Text:   classificationPrompt,
		Images: []models.Image{img},
	})
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("%w: %v", apperr.ErrClassificationFailed, err)
	}

	label := firstWord(text)
	if label == "" {
		return models.ClassificationResult{}, fmt.Errorf("%w: empty label", apperr.ErrClassificationFailed)
	}

	return models.ClassificationResult{
		Matches: []models.Match{{Name: label, Score: classificationScore}},
	}, nil
}

func firstWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	return strings.Trim(fields[0], ".,!?;:\"'`*")
}
