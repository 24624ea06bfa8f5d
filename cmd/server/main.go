// anticlanker - GroupMe spam moderation server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/vaayuronics/anticlanker/internal/api"
	"github.com/vaayuronics/anticlanker/internal/config"
	"github.com/vaayuronics/anticlanker/internal/events"
	"github.com/vaayuronics/anticlanker/internal/groupme"
	"github.com/vaayuronics/anticlanker/internal/middleware"
	"github.com/vaayuronics/anticlanker/internal/moderation"
	"github.com/vaayuronics/anticlanker/internal/oracle"
	"github.com/vaayuronics/anticlanker/internal/persona"
	"github.com/vaayuronics/anticlanker/internal/store"
	"github.com/vaayuronics/anticlanker/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "model", cfg.OllamaModel)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Classifier backend. The model is pulled if the host is reachable but
	// the model is missing; an unreachable host is tolerated because the
	// pipeline fails open.
	ollama := oracle.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, repo)
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	available, err := ollama.Available(bootCtx)
	switch {
	case err != nil:
		slog.Warn("Classifier backend unreachable, moderation will fail open", "error", err, "host", cfg.OllamaHost)
	case !available:
		slog.Info("Pulling classifier model", "model", cfg.OllamaModel)
		if err := ollama.Pull(bootCtx); err != nil {
			slog.Warn("Failed to pull classifier model, moderation will fail open", "error", err, "model", cfg.OllamaModel)
		} else {
			slog.Info("Classifier model ready", "model", cfg.OllamaModel)
		}
	default:
		slog.Info("Classifier model ready", "model", cfg.OllamaModel)
	}
	bootCancel()

	var classifier oracle.Classifier = ollama
	if len(cfg.SpamKeywords) > 0 {
		classifier = oracle.NewKeywordFallback(ollama, cfg.SpamKeywords)
		slog.Info("Keyword fallback enabled", "keywords", len(cfg.SpamKeywords))
	}

	// Platform client.
	gm := groupme.NewClient(cfg.GroupMeBaseURL, cfg.AccessToken, cfg.GroupID, cfg.BotAuthID)

	// Initialize services.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broadcaster := events.NewBroadcaster()
	engine := moderation.NewEngine(repo, gm, moderation.NewUndoRegister(), broadcaster, cfg.WarnStrikes, cfg.HardBans)
	ignore := moderation.NewIgnoreRegistry(repo)
	interpreter := moderation.NewInterpreter(engine, ignore, gm, gm, broadcaster)
	personaSvc := persona.NewService(repo, ollama, gm)
	sweeper := moderation.NewSweeper(ctx, gm, classifier, engine, broadcaster, cfg.SweepDelay, cfg.BotName, cfg.MentionToken, cfg.SweepExemptNames)

	// Initialize handlers.
	handler := api.NewHandler(cfg, repo, classifier, personaSvc, engine, interpreter, ignore, sweeper, gm)
	wsHandler := events.NewWebSocketHandler(broadcaster)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	handler.RegisterRoutes(r)

	// WebSocket endpoint for the live moderation event feed.
	r.Get("/ws/events", wsHandler.ServeHTTP)

	// Embedded moderation dashboard.
	r.Handle("/*", web.DashboardHandler())

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // classification can outlive any fixed write timeout
		IdleTimeout:  120 * time.Second,
	}

	// Start invite screening worker.
	moderation.StartInviteWorker(ctx, repo, gm, broadcaster, cfg.InvitePollPeriod)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
