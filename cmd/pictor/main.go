package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pictor-board/pictor/internal/access"
	"github.com/pictor-board/pictor/internal/api"
	"github.com/pictor-board/pictor/internal/app"
	"github.com/pictor-board/pictor/internal/audit"
	"github.com/pictor-board/pictor/internal/auth"
	"github.com/pictor-board/pictor/internal/mail"
	"github.com/pictor-board/pictor/internal/platform/cache"
	"github.com/pictor-board/pictor/internal/platform/db"
	"github.com/pictor-board/pictor/internal/reverse"
	"github.com/pictor-board/pictor/internal/tags"
	"github.com/pictor-board/pictor/internal/users"
	"github.com/pictor-board/pictor/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	resolver, err := access.NewResolver(cfg.Privileges)
	if err != nil {
		logger.Error("parse privilege table", slog.Any("error", err))
		os.Exit(1)
	}

	queueClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()
	mailer := mail.NewQueueMailer(queueClient, cfg.AppBaseURL)

	userRepo := users.NewRepository(dbpool)
	tagRepo := tags.NewRepository(dbpool)

	tokenStore := auth.NewTokenStore(redisClient)
	authService := auth.NewService(userRepo, tokenStore, cfg.TokenTTL)
	authHandler := auth.NewHandler(logger, authService)

	auditSinks := []audit.Sink{audit.NewPGSink(dbpool)}
	if cfg.AuditLogPath != "" {
		logFile, err := os.OpenFile(cfg.AuditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("open audit log", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := logFile.Close(); err != nil {
				logger.Warn("audit log close", slog.Any("error", err))
			}
		}()
		auditSinks = append(auditSinks, audit.NewLineSink(logFile))
	}
	auditLogger := audit.NewLogger(auditSinks...)

	registry, err := api.NewRegistry(
		users.NewRegisterJob(userRepo, mailer, resolver, users.RegisterConfig{
			PassMinLength:           cfg.PassMinLength,
			NeedEmailForRegistering: cfg.NeedEmailForRegistering,
		}),
		tags.NewMergeJob(tagRepo),
	)
	if err != nil {
		logger.Error("build job registry", slog.Any("error", err))
		os.Exit(1)
	}

	runner := api.NewRunner(logger, resolver, db.NewTransactor(dbpool), auditLogger)
	jobHandler := api.NewHandler(logger, registry, runner)

	reverseClient := reverse.NewClient(cfg.ReverseSearchURL)
	reverseHandler := reverse.NewHandler(logger, reverseClient, resolver)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthService:    authService,
		AuthHandler:    authHandler,
		JobHandler:     jobHandler,
		ReverseHandler: reverseHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
