package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/domain/apperr"
	"github.com/qrave1/TaleRoom/internal/infra/ports/http/dto"
)

var statusByKind = map[apperr.Kind]int{
	apperr.RoomNotFound:         http.StatusNotFound,
	apperr.RoomFull:             http.StatusConflict,
	apperr.InvalidNickname:      http.StatusBadRequest,
	apperr.InvalidRoomSize:      http.StatusBadRequest,
	apperr.NotParticipant:       http.StatusForbidden,
	apperr.NotYourTurn:          http.StatusForbidden,
	apperr.InvalidAnswer:        http.StatusBadRequest,
	apperr.RoomComplete:         http.StatusConflict,
	apperr.StoryNotReady:        http.StatusConflict,
	apperr.JobNotFound:          http.StatusNotFound,
	apperr.ClassificationFailed: http.StatusBadGateway,
	apperr.GenerationFailed:     http.StatusBadGateway,
	apperr.InvalidImage:         http.StatusBadRequest,
	apperr.InvalidMessage:       http.StatusBadRequest,
}

// errorResponse отвечает структурированной ошибкой. Внутренние ошибки
// логируются, клиенту уходит только их вид.
func errorResponse(c echo.Context, err error) error {
	e := apperr.From(err)

	status, ok := statusByKind[e.Kind]
	if !ok {
		status = http.StatusInternalServerError

		slog.Error(
			"request failed",
			slog.String("uri", c.Request().RequestURI),
			slog.Any(constant.Error, err),
		)
	}

	return c.JSON(status, dto.ErrorResponse{Error: e})
}
