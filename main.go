package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"echochat-backend/internal/api"
	"echochat-backend/internal/auth"
	"echochat-backend/internal/boltstore"
	"echochat-backend/internal/chat"
	"echochat-backend/internal/config"
	"echochat-backend/internal/database"
	"echochat-backend/internal/llm"
)

func main() {
	configPath := flag.String("config", os.Getenv("ECHOCHAT_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ensure absolute path
	dbPath := cfg.Database.Path
	if dbPath != database.MemoryPath && !filepath.IsAbs(dbPath) {
		cwd, _ := os.Getwd()
		dbPath = filepath.Join(cwd, dbPath)
	}

	logger.Info("initializing database", "path", dbPath)
	db, err := database.Open(ctx, database.Config{Path: dbPath})
	if err != nil {
		return err
	}
	defer db.Close()

	var sessionStore auth.SessionStore = database.NewSessionRepo(db)
	if cfg.Session.Store == config.SessionStoreBolt {
		bolt, err := boltstore.New(cfg.Session.BoltPath)
		if err != nil {
			return err
		}
		defer bolt.Close()
		sessionStore = bolt
	}

	users := database.NewUserRepo(db)
	authSvc := auth.NewService(users, logger)
	sessions := auth.NewSessionManager(sessionStore, cfg.Session.IdleTimeout, !cfg.IsDevelopment(), logger)

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}

	var history chat.Store = chat.NewDatabaseStore(database.NewChatRepo(db))
	if cfg.Chat.Backend == config.BackendSession {
		history = chat.NewSessionStore()
	}
	chatSvc := chat.NewService(history, client, chat.Config{
		Window:       cfg.Chat.Window,
		HistoryLimit: cfg.Chat.HistoryLimit,
		SystemPrompt: cfg.Chat.SystemPrompt,
	}, logger)

	csrf := auth.NewCSRFProtection()
	limiter := auth.DefaultRateLimiter()
	janitor := auth.NewJanitor(sessions, users, cfg.Session.CleanupInterval, logger)

	go csrf.Run(ctx)
	go limiter.Run(ctx)
	go janitor.Run(ctx)

	e := api.NewServer(api.ServerConfig{
		Development:    cfg.IsDevelopment(),
		AllowedOrigins: cfg.AllowedOrigins,
	}, api.Deps{
		Auth:        authSvc,
		Sessions:    sessions,
		Chat:        chatSvc,
		AuditRepo:   database.NewAuditRepo(db),
		CSRF:        csrf,
		RateLimiter: limiter,
		Logger:      logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting echochat backend",
			"addr", cfg.ListenAddr,
			"environment", cfg.Environment,
			"chat_backend", cfg.Chat.Backend,
			"session_store", cfg.Session.Store,
			"provider", cfg.LLM.Provider,
			"model", cfg.LLM.Model,
		)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// newLogger writes text logs in development and JSON otherwise
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level))); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
