package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/database"
	"github.com/stemsi/exstem-practice/internal/examapi"
	"github.com/stemsi/exstem-practice/internal/handler"
	"github.com/stemsi/exstem-practice/internal/logger"
	"github.com/stemsi/exstem-practice/internal/router"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
	"github.com/stemsi/exstem-practice/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("exam_api", cfg.ExamAPIURL).
		Str("answer_dispatch", string(cfg.AnswerDispatch)).
		Msg("Starting ExStem Practice")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	// Required for the answer outbox; otherwise only the theme cache uses it.
	var rdb *redis.Client
	if client, err := database.NewRedisClient(ctx, cfg, log); err != nil {
		if cfg.AnswerDispatch == config.AnswerDispatchOutbox {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Warn().Err(err).Msg("Redis unavailable, theme cache disabled")
	} else {
		rdb = client
		defer rdb.Close()
	}

	// ─── Remote Exam Store ─────────────────────────────────────────────
	examClient := examapi.NewClient(cfg.ExamAPIURL,
		examapi.WithToken(cfg.ExamAPIToken),
		examapi.WithTimeout(cfg.ExamAPITimeout),
	)

	// ─── Answer Dispatch ───────────────────────────────────────────────
	direct := service.NewDirectDispatcher(examClient, log)
	var dispatcher service.AnswerDispatcher = direct
	var (
		queue        *worker.RedisQueue
		outboxWorker *worker.AnswerOutboxWorker
	)
	if cfg.AnswerDispatch == config.AnswerDispatchOutbox {
		queue = worker.NewRedisQueue(rdb)
		dispatcher = service.NewOutboxDispatcher(queue, direct, log)

		outboxWorker = worker.NewAnswerOutboxWorker(queue, examClient, cfg.OutboxRetryInterval, log)
		outboxWorker.Run(context.Background())
	}

	// ─── Initialize Services ──────────────────────────────────────────
	answerSync := service.NewAnswerSynchronizer(dispatcher)
	finalizer := service.NewFinalizer(examClient, log)
	sessionService := service.NewExamSessionService(examClient, answerSync, finalizer, log)
	themeService := service.NewThemeService(examClient, rdb, cfg.ThemeCacheTTL, log)
	specService := service.NewSpecService(examClient, themeService, sessionService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	systemHandler := handler.NewSystemHandler(rdb, sessionService, string(cfg.AnswerDispatch), log)
	if queue != nil {
		systemHandler.WithOutbox(queue)
	}
	handlers := &router.Handlers{
		Theme:   handler.NewThemeHandler(themeService),
		Exam:    handler.NewExamHandler(specService, log),
		Session: handler.NewSessionHandler(sessionService),
		WS:      handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		System:  systemHandler,
	}

	// ─── Prewarm Theme Cache ──────────────────────────────────────────
	if _, err := themeService.List(ctx); err != nil {
		log.Warn().Err(err).Msg("Theme prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Flush buffered outbox pushes and wait for in-flight direct writes (10s for both steps).
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		log.Warn().Err(err).Msg("Some answer writes were still in flight")
	}

	// 3. Stop the outbox worker; it drains the queue until the same deadline.
	if outboxWorker != nil {
		if err := outboxWorker.Shutdown(drainCtx); err != nil {
			log.Warn().Err(err).Msg("Outbox drain cut short, remaining writes stay queued")
		}
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
