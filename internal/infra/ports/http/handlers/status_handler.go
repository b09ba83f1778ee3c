package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/infra/ports/http/dto"
	"github.com/qrave1/TaleRoom/internal/usecase"
)

type StatusHandler struct {
	startedAt time.Time

	jobUsecase usecase.JobUsecase
}

func NewStatusHandler(jobUsecase usecase.JobUsecase) *StatusHandler {
	return &StatusHandler{
		startedAt:  time.Now(),
		jobUsecase: jobUsecase,
	}
}

func (h *StatusHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.StatusResponse{
		Status: dto.ServiceStatus{
			Uptime:     time.Since(h.startedAt).Seconds(),
			Processed:  h.jobUsecase.Stats(),
			Health:     "ok",
			APIVersion: constant.APIVersion,
		},
	})
}
