package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/TaleRoom/internal/application/metric"
)

// PrometheusMiddleware собирает метрики HTTP запросов. Маршруты из skipRoutes
// (долгоживущие websocket) в гистограмму длительности не попадают.
func PrometheusMiddleware(skipRoutes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if slices.Contains(skipRoutes, route) {
				return next(c)
			}

			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if status == 0 {
				status = http.StatusOK
			}

			if err != nil && status < http.StatusBadRequest {
				status = http.StatusInternalServerError
			}

			metric.RecordHTTPMetrics(c.Request().Method, route, status, time.Since(start))

			return err
		}
	}
}
