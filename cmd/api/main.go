package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/msntech/reports-api/internal/config"
	"github.com/msntech/reports-api/internal/domain/report"
	"github.com/msntech/reports-api/internal/middleware"
	"github.com/msntech/reports-api/internal/pkg/crypto"
	"github.com/msntech/reports-api/internal/pkg/database"
	"github.com/msntech/reports-api/internal/pkg/jwt"
	"github.com/msntech/reports-api/internal/pkg/logger"
	"github.com/msntech/reports-api/internal/pkg/ratelimit"
	"github.com/msntech/reports-api/internal/pkg/response"
	"github.com/msntech/reports-api/internal/pkg/webhook"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	pendingSweepInterval   = 5 * time.Second
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.Env)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("driver", cfg.DBDriver).
		Msg("Starting Reports API")

	if cfg.UsingDefaultKey() {
		log.Warn().Msg("Using default encryption key! Set ENCRYPTION_KEY for real deployments")
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close(db)

	codec := crypto.New(cfg.EncryptionKey)
	limiter := ratelimit.New()
	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Repositories ----------
	reportRepo := report.NewRepository(db, codec, cfg.DBDriver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := reportRepo.EnsureSchema(schemaCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create report schema")
	}
	if err := reportRepo.MigrateLegacySchema(schemaCtx); err != nil {
		// Non-fatal: the schema stays at whatever state it reached.
		log.Error().Err(err).Msg("Legacy schema migration failed")
	}

	// ---------- Services ----------
	sender := webhook.NewSender(cfg, limiter)
	reportService := report.NewService(reportRepo, sender)

	// ---------- Handlers ----------
	reportHandler := report.NewHandler(reportService, limiter)

	authMiddleware := middleware.Auth(jwtService)
	staffMiddleware := middleware.RequireStaff()

	// ---------- Background jobs ----------
	go limiter.StartCleanup(ctx, limiterCleanupInterval)
	go reportService.StartPendingSweep(ctx, pendingSweepInterval)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/reports", reportHandler.Routes(authMiddleware, staffMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
