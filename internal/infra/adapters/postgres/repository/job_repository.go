package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/domain/models"
)

type jobRow struct {
	ID        string         `db:"id"`
	Status    string         `db:"status"`
	Result    []byte         `db:"result"`
	Error     sql.NullString `db:"error"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (row jobRow) toModel() (*models.Job, error) {
	job := &models.Job{
		ID:        row.ID,
		Status:    models.JobStatus(row.Status),
		Error:     row.Error.String,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	if len(row.Result) > 0 {
		var res models.ClassificationResult
		if err := json.Unmarshal(row.Result, &res); err != nil {
			return nil, fmt.Errorf("decode job result: %w", err)
		}

		job.Result = &res
	}

	return job, nil
}

// JobRepository хранит задачи классификации в postgres. Переход из pending
// делается одним условным UPDATE, поэтому второй финал не проходит.
type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepo(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	res, err := r.db.ExecContext(
		ctx,
		`INSERT INTO classification_jobs (id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		job.ID,
		string(job.Status),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create job rows affected: %w", err)
	}

	if aff == 0 {
		return models.ErrJobExists
	}

	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	var row jobRow

	err := r.db.GetContext(
		ctx,
		&row,
		"SELECT id, status, result, error, created_at, updated_at FROM classification_jobs WHERE id = $1",
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrJobNotFound
		}

		return nil, fmt.Errorf("get job: %w", err)
	}

	return row.toModel()
}

func (r *JobRepository) Complete(ctx context.Context, id string, result models.ClassificationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode job result: %w", err)
	}

	return r.finish(
		ctx,
		id,
		"UPDATE classification_jobs SET status = 'completed', result = $2, updated_at = now() WHERE id = $1 AND status = 'pending'",
		string(data),
	)
}

func (r *JobRepository) Fail(ctx context.Context, id string, reason string) error {
	return r.finish(
		ctx,
		id,
		"UPDATE classification_jobs SET status = 'failed', error = $2, updated_at = now() WHERE id = $1 AND status = 'pending'",
		reason,
	)
}

func (r *JobRepository) DeleteFinishedBefore(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(
		ctx,
		"DELETE FROM classification_jobs WHERE status <> 'pending' AND updated_at < $1",
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("delete finished jobs: %w", err)
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete finished jobs rows affected: %w", err)
	}

	return int(aff), nil
}

func (r *JobRepository) finish(ctx context.Context, id, query string, arg any) error {
	res, err := r.db.ExecContext(ctx, query, id, arg)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish job rows affected: %w", err)
	}

	if aff == 1 {
		return nil
	}

	var exists bool

	err = r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM classification_jobs WHERE id = $1)", id)
	if err != nil {
		return fmt.Errorf("check job: %w", err)
	}

	if !exists {
		return apperr.ErrJobNotFound
	}

	return models.ErrJobNotPending
}
