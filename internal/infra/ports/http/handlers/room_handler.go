package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"

	"github.com/qrave1/TaleRoom/internal/application/config"
	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/domain/input"
	"github.com/qrave1/TaleRoom/internal/infra/appctx"
	"github.com/qrave1/TaleRoom/internal/infra/ports/http/dto"
	"github.com/qrave1/TaleRoom/internal/usecase"
)

const qrSize = 320

type RoomHandler struct {
	cfg *config.Config

	roomUsecase usecase.RoomUsecase
}

func NewRoomHandler(cfg *config.Config, roomUsecase usecase.RoomUsecase) *RoomHandler {
	return &RoomHandler{
		cfg:         cfg,
		roomUsecase: roomUsecase,
	}
}

func (h *RoomHandler) CreateRoom(c echo.Context) error {
	username, ok := appctx.UserName(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user in context"})
	}

	var req dto.CreateRoomRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	snap, err := h.roomUsecase.Create(c.Request().Context(), input.CreateRoomInput{
		Username:        username,
		Nickname:        req.Nickname,
		MaxParticipants: req.MaxParticipants,
	}, uuid.Nil)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, snap)
}

func (h *RoomHandler) JoinRoom(c echo.Context) error {
	username, ok := appctx.UserName(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user in context"})
	}

	var req dto.JoinRoomRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	snap, err := h.roomUsecase.Join(c.Request().Context(), input.JoinRoomInput{
		Code:     c.Param("code"),
		Username: username,
		Nickname: req.Nickname,
	}, uuid.Nil)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, snap)
}

func (h *RoomHandler) GetRoom(c echo.Context) error {
	snap, err := h.roomUsecase.Get(c.Request().Context(), c.Param("code"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, snap)
}

func (h *RoomHandler) LeaveRoom(c echo.Context) error {
	username, ok := appctx.UserName(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user in context"})
	}

	if err := h.roomUsecase.Leave(c.Request().Context(), c.Param("code"), username); err != nil {
		return errorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GenerateStory запускает сборку истории. Результат придет по websocket.
func (h *RoomHandler) GenerateStory(c echo.Context) error {
	username, ok := appctx.UserName(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user in context"})
	}

	if err := h.roomUsecase.GenerateStory(c.Request().Context(), c.Param("code"), username); err != nil {
		return errorResponse(c, err)
	}

	return c.NoContent(http.StatusAccepted)
}

// QRCode отдает PNG со ссылкой-приглашением в комнату
func (h *RoomHandler) QRCode(c echo.Context) error {
	code := c.Param("code")

	if _, err := h.roomUsecase.Get(c.Request().Context(), code); err != nil {
		return errorResponse(c, err)
	}

	png, err := qrcode.Encode(h.inviteURL(code), qrcode.Medium, qrSize)
	if err != nil {
		slog.Error("encode qr code", slog.String(constant.RoomCode, code), slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not build qr code"})
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

func (h *RoomHandler) inviteURL(code string) string {
	return strings.TrimRight(h.cfg.Domain, "/") + "/join/" + code
}
