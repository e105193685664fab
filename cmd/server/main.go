// Tradedesk - trading dashboard and assistant chat server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ashureev/tradedesk/internal/agent"
	"github.com/ashureev/tradedesk/internal/api"
	"github.com/ashureev/tradedesk/internal/backend"
	"github.com/ashureev/tradedesk/internal/config"
	"github.com/ashureev/tradedesk/internal/identity"
	"github.com/ashureev/tradedesk/internal/middleware"
	"github.com/ashureev/tradedesk/internal/render"
	"github.com/ashureev/tradedesk/internal/status"
	"github.com/ashureev/tradedesk/internal/store"
	"github.com/ashureev/tradedesk/internal/transcript"
	"github.com/ashureev/tradedesk/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "backend", cfg.Backend.URL)

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("Invalid display timezone", "error", err)
		os.Exit(1)
	}

	// Transcripts survive restarts only with a working database; chat keeps
	// working in memory otherwise.
	var repo store.Repository
	sqlite, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Warn("Failed to initialize database, transcripts will not persist", "error", err)
		repo = store.NewMemory()
	} else {
		repo = sqlite
		slog.Info("Database connected", "path", cfg.DBPath)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	templates, err := web.LoadTemplates()
	if err != nil {
		slog.Error("Failed to parse templates", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize services.
	tradingAPI := backend.NewClient(cfg.Backend.URL, cfg.Backend.APIKey,
		backend.WithLogger(logger),
		backend.WithTimeout(cfg.Backend.Timeout),
	)

	hub := status.NewHub(cfg.AllowedOrigins(), cfg.IsDevelopment())
	monitor := status.NewMonitor(tradingAPI, cfg.Status.PollInterval, cfg.Status.Timeout, hub)
	monitor.Start(ctx)

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}

	transcripts := transcript.NewManager(repo, transcript.WithLogger(logger))
	chatService := agent.NewService(agent.NewClient(tradingAPI, agent.WithQueryTimeout(cfg.ChatTimeout)), transcripts, conversationLogger)
	defer chatService.Close()

	transcript.StartSweeper(ctx, repo, cfg.TranscriptTTL, chatService.Evict)

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(repo, monitor)
	proxyHandler := api.NewProxyHandler(tradingAPI, monitor)
	pageHandler := api.NewPageHandler(tradingAPI, monitor, templates, cfg.ActionLogPage)
	rateLimiter := agent.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	chatHandler := agent.NewHandler(chatService, render.New(loc), templates, rateLimiter, monitor.Available)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))

	// Public routes.
	healthHandler.RegisterRoutes(r)
	r.Get("/ws/status", hub.ServeHTTP)
	r.Handle("/static/*", web.StaticHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(cfg.AllowedOrigins()))
		proxyHandler.RegisterRoutes(r)
	})

	// Pages and chat share the browser session cookie.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		pageHandler.RegisterRoutes(r)
		chatHandler.RegisterRoutes(r)
	})

	r.NotFound(pageHandler.NotFound)

	// Create server.
	// Note: the status websocket is long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

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
		return
	}

	slog.Info("Server stopped successfully")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
