package metric

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readyTimeout = 2 * time.Second

// Pinger проверяет готовность зависимости (например, *sqlx.DB)
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewServer создает сервер метрик. /health отвечает всегда,
// /ready - только когда все зависимости доступны.
func NewServer(deps ...Pinger) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
		defer cancel()

		for _, dep := range deps {
			if err := dep.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			}
		}

		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	return e
}
