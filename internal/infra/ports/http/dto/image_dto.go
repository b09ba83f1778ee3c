package dto

import "github.com/qrave1/TaleRoom/internal/domain/models"

type JobAcceptedResponse struct {
	JobID string `json:"job_id"`
}

type ServiceStatus struct {
	Uptime     float64         `json:"uptime"`
	Processed  models.JobStats `json:"processed"`
	Health     string          `json:"health"`
	APIVersion string          `json:"api_version"`
}

type StatusResponse struct {
	Status ServiceStatus `json:"status"`
}
