package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qrave1/TaleRoom/internal/application/config"
	"github.com/qrave1/TaleRoom/internal/application/constant"
	"github.com/qrave1/TaleRoom/internal/application/metric"
	"github.com/qrave1/TaleRoom/internal/application/worker"
	"github.com/qrave1/TaleRoom/internal/infra/adapters/gemini"
	"github.com/qrave1/TaleRoom/internal/infra/adapters/memory"
	"github.com/qrave1/TaleRoom/internal/infra/adapters/postgres"
	"github.com/qrave1/TaleRoom/internal/infra/adapters/postgres/repository"
	"github.com/qrave1/TaleRoom/internal/infra/ports/http/handlers"
	"github.com/qrave1/TaleRoom/internal/infra/ports/http/server"
	"github.com/qrave1/TaleRoom/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: level},
			),
		),
	)

	slog.Info("Running app", slog.Bool("debug", cfg.Debug), slog.String("generator", cfg.Generator.Backend))

	dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		slog.Error("connect to postgres", slog.Any(constant.Error, err))
		os.Exit(1)
	}
	defer dbConn.Close()

	userRepo := repository.NewUserRepo(dbConn)
	wsConnRepo := memory.NewWSConnectionRepository()
	roomRepo := memory.NewRoomRepository(
		memory.WithCodeLength(cfg.Rooms.CodeLength),
		memory.WithEmptyGrace(cfg.Rooms.EmptyGrace),
	)

	var jobRepo usecase.JobRepository = memory.NewJobRepository()
	if cfg.Jobs.Store == config.JobStorePostgres {
		jobRepo = repository.NewJobRepo(dbConn)
	}

	var generator usecase.Generator = gemini.NewStatic()
	if cfg.Generator.Backend == config.GeneratorGemini {
		generator = gemini.NewClient(cfg.Generator.BaseURL, cfg.Generator.APIKey, cfg.Generator.Model, cfg.Generator.Timeout)
	}

	pool := worker.NewPool(cfg.Jobs.Workers, cfg.Jobs.QueueSize)

	broadcaster := usecase.NewBroadcaster(wsConnRepo)
	userUsecase := usecase.NewUserUsecase([]byte(cfg.JWTSecret), userRepo)
	roomUsecase := usecase.NewRoomUsecase(cfg.Rooms.MaxParticipants, roomRepo, userRepo, generator, broadcaster)
	jobUsecase := usecase.NewJobUsecase(jobRepo, generator, pool)

	authHandler := handlers.NewAuthHandler(cfg, userUsecase)
	roomHandler := handlers.NewRoomHandler(cfg, roomUsecase)
	imageHandler := handlers.NewImageHandler(cfg.UploadMaxBytes, jobUsecase)
	statusHandler := handlers.NewStatusHandler(jobUsecase)
	wsHandler := handlers.NewWebSocketHandler(cfg, wsConnRepo, broadcaster, roomUsecase)

	echoSrv := server.New(cfg, userUsecase, authHandler, roomHandler, imageHandler, statusHandler, wsHandler)
	metricsSrv := metric.NewServer(dbConn)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pool.Run(gctx)
	})

	g.Go(func() error {
		roomUsecase.RunJanitor(gctx, time.Minute, cfg.Rooms.IdleTTL)
		return nil
	})

	g.Go(func() error {
		jobUsecase.RunJanitor(gctx, cfg.Jobs.SweepInterval, cfg.Jobs.Retention)
		return nil
	})

	// Запускаем HTTP сервер
	g.Go(func() error {
		if err := echoSrv.Start(":" + cfg.Port); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", slog.Any(constant.Error, err))
			return err
		}

		return nil
	})

	// Запускаем сервер метрик
	g.Go(func() error {
		if err := metricsSrv.Start(":" + cfg.MetricPort); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", slog.Any(constant.Error, err))
			return err
		}

		return nil
	})

	// Graceful shutdown: по сигналу или по падению любого из процессов
	g.Go(func() error {
		<-gctx.Done()

		slog.Info("Shutting down servers")

		timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer timeoutCancel()

		if err := echoSrv.Shutdown(timeoutCtx); err != nil {
			slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
		}

		if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
			slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
		}

		return nil
	})

	err = g.Wait()

	// Истории, которые уже собираются, дописываем до выхода
	roomUsecase.Wait()

	if err != nil {
		dbConn.Close()
		os.Exit(1)
	}
}
