package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/help-center/backend/internal/config"
	"github.com/zhouzirui/help-center/backend/internal/handler"
	"github.com/zhouzirui/help-center/backend/internal/handler/mcptools"
	"github.com/zhouzirui/help-center/backend/internal/logging"
	"github.com/zhouzirui/help-center/backend/internal/middleware"
	"github.com/zhouzirui/help-center/backend/internal/model/article"
	"github.com/zhouzirui/help-center/backend/internal/model/persona"
	"github.com/zhouzirui/help-center/backend/internal/service/ai"
	"github.com/zhouzirui/help-center/backend/internal/service/helpdesk"
	"github.com/zhouzirui/help-center/backend/internal/service/identify"
	personaservice "github.com/zhouzirui/help-center/backend/internal/service/persona"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
	"github.com/zhouzirui/help-center/backend/internal/storage/sqlite"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("help center backend stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

// run 组装所有依赖并阻塞到 ctx 结束。返回前会关闭存储。
func run(ctx context.Context) error {
	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(cfg.Log, os.Stdout)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", "error", envErr)
	}

	storage, closeStorage, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := closeStorage.Close(); err != nil {
			logger.Warn("failed to close storage", "error", err)
		}
	}()

	// Initialize article catalog and persona state
	articles, err := article.LoadBundled()
	if err != nil {
		return fmt.Errorf("failed to load bundled articles: %w", err)
	}
	engine := search.NewEngine(articles)
	personas := personaservice.NewManager(storage, logger)

	// Initialize AI service
	chatModel, err := ai.NewChatModel(ctx, cfg.AI)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn("AI credentials not configured, answers will fail until they are set", "provider", cfg.AI.Provider)
	case err != nil:
		logger.Warn("failed to initialize AI model, continuing without answers", "provider", cfg.AI.Provider, "error", err)
		chatModel = nil
	default:
		logger.Info("AI service initialized", "provider", cfg.AI.Provider, "model", cfg.AI.Model)
	}
	aiService := ai.NewService(chatModel, logger)

	helpDesk := helpdesk.NewService(helpdesk.NewClient(cfg.HelpDesk.BaseURL, cfg.HelpDesk.Timeout), aiService, logger)

	// Initialize visitor identification
	lookup := identify.NewClient(cfg.Identify.APIKey, cfg.Identify.BaseURL, cfg.Identify.Timeout)
	var detector *identify.Detector
	if cfg.Identify.Enabled() {
		detector = identify.NewDetector(lookup, personas, cfg.Identify.Window, cfg.Identify.Timeout, logger)
		logger.Info("visitor identification enabled", "window", cfg.Identify.Window)
	} else {
		logger.Info("SNITCHER_API_KEY not set, skipping visitor identification")
	}

	var mcpHandler http.Handler
	if cfg.Server.MCPEnabled {
		var asker mcptools.Asker
		if aiService.Enabled() {
			asker = helpDesk
		}
		// MCP 会话没有访客 Cookie，所有客户端共享同一个提问额度
		askLimit := rate.NewLimiter(rate.Limit(cfg.HelpDesk.AskRatePerMin/60), cfg.HelpDesk.AskBurst)
		tools := mcptools.New(engine, asker, mcptools.WithAskLimit(askLimit))
		mcpHandler = mcptools.Handler(tools.NewServer(version))
	}

	router := handler.NewRouter(handler.Dependencies{
		Logger:     logger,
		Engine:     engine,
		Personas:   personas,
		Detector:   detector,
		Identify:   lookup,
		HelpDesk:   helpDesk,
		Visitors:   middleware.NewVisitors(cfg.Server.SessionSecret, cfg.Server.SecureCookies, logger),
		AskLimiter: middleware.NewVisitorLimiter(cfg.HelpDesk.AskRatePerMin, cfg.HelpDesk.AskBurst),
		MCP:        mcpHandler,
	})

	if err := startServer(ctx, logger, cfg.Server, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStorage 根据 STORAGE_DRIVER 选择持久化实现。
func openStorage(cfg config.StorageConfig) (persona.Storage, io.Closer, error) {
	switch cfg.Driver {
	case "memory":
		return persona.NewMemoryStorage(), nopCloser{}, nil
	case "sqlite":
		db := sqlite.NewDB(cfg.Path)
		if err := db.Open(); err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
}

func startServer(ctx context.Context, logger *slog.Logger, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	logger.Info("help center backend listening", "addr", addr, "mcp", serverCfg.MCPEnabled)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
