package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/TaleRoom/internal/application/config"
	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/domain/input"
	"github.com/qrave1/TaleRoom/internal/domain/models"
	"github.com/qrave1/TaleRoom/internal/infra/appctx"
	"github.com/qrave1/TaleRoom/internal/infra/ports/http/dto"
	"github.com/qrave1/TaleRoom/internal/infra/ports/http/middleware"
	"github.com/qrave1/TaleRoom/internal/usecase"
)

type AuthHandler struct {
	cfg *config.Config

	userUsecase usecase.UserUsecase
}

func NewAuthHandler(cfg *config.Config, userUsecase usecase.UserUsecase) *AuthHandler {
	return &AuthHandler{
		cfg:         cfg,
		userUsecase: userUsecase,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	user, err := h.userUsecase.CreateUser(c.Request().Context(), input.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		Age:       req.Age,
		Gender:    req.Gender,
		Interests: req.Interests,
	})

	switch {
	case errors.Is(err, usecase.ErrInvalidProfile):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrUserExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": "username is already taken"})
	case err != nil:
		slog.Error("create user failed", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create user"})
	}

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	user, err := h.userUsecase.ValidateCredentials(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		slog.Warn("validate credentials failed", slog.String(constant.UserName, req.Username), slog.Any(constant.Error, err))
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}

	token, err := h.userUsecase.GenerateJWT(user)
	if err != nil {
		slog.Error("generate JWT failed", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create token"})
	}

	c.SetCookie(h.cookie(c, token, time.Now().Add(usecase.TokenTTL)))

	return c.NoContent(http.StatusOK)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.cookie(c, "", time.Unix(0, 0)))

	return c.NoContent(http.StatusOK)
}

func (h *AuthHandler) GetMe(c echo.Context) error {
	userID, ok := appctx.UserID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user ID in context"})
	}

	user, err := h.userUsecase.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, dto.GetMeResponse{
		ID:        user.ID,
		Username:  user.Username,
		Age:       user.Age,
		Gender:    user.Gender,
		Interests: user.Interests,
	})
}

func (h *AuthHandler) cookie(c echo.Context, value string, expires time.Time) *http.Cookie {
	host := c.Request().Host
	if u, err := url.Parse(h.cfg.Domain); err == nil && u.Host != "" {
		host = u.Host
	}

	return &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Expires:  expires,
		Domain:   middleware.BuildCookieDomain(host),
		Path:     "/",
		Secure:   !h.cfg.Debug,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
