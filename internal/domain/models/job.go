package models

import (
	"errors"
	"time"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

type Match struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type ClassificationResult struct {
	Matches []Match `json:"matches"`
}

// Job - запись трекера задач. Входные байты сюда не попадают: ими владеет
// обработчик, пока задача выполняется.
//
// Result заполнен только при JobCompleted, Error - только при JobFailed.
type Job struct {
	ID        string
	Status    JobStatus
	Result    *ClassificationResult
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewJob(id string) *Job {
	now := time.Now().UTC()

	return &Job{
		ID:        id,
		Status:    JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type JobStats struct {
	Completed int `json:"success"`
	Failed    int `json:"fail"`
	Running   int `json:"running"`
	Queued    int `json:"queued"`
}

var (
	ErrJobExists     = errors.New("job already exists")
	ErrJobNotPending = errors.New("job is not pending")
)
