package server

import (
	"github.com/labstack/echo/v4"

	"github.com/qrave1/TaleRoom/internal/application/config"
	"github.com/qrave1/TaleRoom/internal/infra/ports/http/handlers"
	"github.com/qrave1/TaleRoom/internal/infra/ports/http/middleware"
)

const wsRoute = "/api/v1/ws"

func New(
	cfg *config.Config,
	tokenParser middleware.TokenParser,
	authHandler *handlers.AuthHandler,
	roomHandler *handlers.RoomHandler,
	imageHandler *handlers.ImageHandler,
	statusHandler *handlers.StatusHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware(wsRoute))

	e.GET("/status", statusHandler.Status)

	api := e.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/logout", authHandler.Logout)
		}

		v1 := api.Group("/v1")
		v1.Use(middleware.JWTAuthMiddleware(tokenParser))
		{
			v1.GET("/me", authHandler.GetMe)

			v1.GET("/ws", wsHandler.Handle)

			rooms := v1.Group("/rooms")
			{
				rooms.POST("", roomHandler.CreateRoom)
				rooms.GET("/:code", roomHandler.GetRoom)
				rooms.POST("/:code/join", roomHandler.JoinRoom)
				rooms.POST("/:code/leave", roomHandler.LeaveRoom)
				rooms.POST("/:code/story", roomHandler.GenerateStory)
				rooms.GET("/:code/qr", roomHandler.QRCode)
			}

			images := v1.Group("/images")
			images.Use(middleware.UploadRateLimit(cfg.UploadRateLimit))
			{
				images.POST("", imageHandler.Classify)
				images.POST("/async", imageHandler.Submit)
				images.GET("/results/:id", imageHandler.Result)
			}
		}
	}

	return e
}
