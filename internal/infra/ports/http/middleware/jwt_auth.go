package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/TaleRoom/internal/infra/appctx"
	"github.com/qrave1/TaleRoom/internal/usecase"
)

const CookieName = "jwt"

// TokenParser - часть UserUsecase, нужная для проверки cookie
type TokenParser interface {
	ParseJWT(token string) (*usecase.TokenClaims, error)
}

func JWTAuthMiddleware(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(CookieName)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing or malformed jwt"})
			}

			claims, err := parser.ParseJWT(cookie.Value)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired jwt"})
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid subject"})
			}

			ctx := appctx.WithUserID(c.Request().Context(), userID)
			ctx = appctx.WithUserName(ctx, claims.Username)

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// BuildCookieDomain возвращает значение для cookie.Domain или пустую строку,
// если Domain задавать не нужно (localhost, IP, пустой host).
func BuildCookieDomain(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	host = strings.ToLower(strings.TrimSpace(host))

	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		return ""
	}

	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return ""
	}

	return "." + strings.Join(parts[len(parts)-2:], ".")
}
