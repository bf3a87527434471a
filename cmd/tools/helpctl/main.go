// Command helpctl queries the help center catalog and its upstream services from a terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/help-center/backend/internal/config"
	"github.com/zhouzirui/help-center/backend/internal/logging"
	"github.com/zhouzirui/help-center/backend/internal/model/article"
	"github.com/zhouzirui/help-center/backend/internal/service/ai"
	"github.com/zhouzirui/help-center/backend/internal/service/helpdesk"
	"github.com/zhouzirui/help-center/backend/internal/service/identify"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
)

func main() {
	_ = godotenv.Load()

	if err := NewMain().Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config is loaded from the environment when nil.
	Config *config.Config
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("helpctl"),
		kong.Description("Query the help center from the command line."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'helpctl --help' to see available commands")
	}
	switch args[0] {
	case "help", "--help", "-h":
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg := m.Config
	if cfg == nil {
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}
	logger := logging.New(config.LogConfig{Level: "warn", Format: "text"}, stderr)

	articles, err := article.LoadBundled()
	if err != nil {
		return fmt.Errorf("failed to load bundled articles: %w", err)
	}
	deps.Engine = search.NewEngine(articles)

	switch args[0] {
	case "ask":
		deps.Asker = newAsker(ctx, cfg, logger)
	case "identify":
		deps.Lookup = identify.NewClient(cfg.Identify.APIKey, cfg.Identify.BaseURL, cfg.Identify.Timeout)
	}

	return kongCtx.Run(deps)
}

func newAsker(ctx context.Context, cfg *config.Config, logger *slog.Logger) Asker {
	chatModel, err := ai.NewChatModel(ctx, cfg.AI)
	if err != nil {
		// Ask reports ErrNotConfigured after searching.
		logger.Warn("AI model unavailable", "provider", cfg.AI.Provider, "error", err)
		chatModel = nil
	}
	client := helpdesk.NewClient(cfg.HelpDesk.BaseURL, cfg.HelpDesk.Timeout)
	return helpdesk.NewService(client, ai.NewService(chatModel, logger), logger)
}
