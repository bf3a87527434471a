package main_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	main "github.com/zhouzirui/help-center/backend/cmd/tools/helpctl"
	"github.com/zhouzirui/help-center/backend/internal/config"
	"github.com/zhouzirui/help-center/backend/internal/model/article"
	"github.com/zhouzirui/help-center/backend/internal/model/helpdesk"
	"github.com/zhouzirui/help-center/backend/internal/model/persona"
	"github.com/zhouzirui/help-center/backend/internal/service/identify"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
)

type askerFunc func(ctx context.Context, query string) (helpdesk.Answer, error)

func (f askerFunc) Ask(ctx context.Context, query string) (helpdesk.Answer, error) {
	return f(ctx, query)
}

type lookupFunc func(ctx context.Context, ip string) (identify.Result, error)

func (f lookupFunc) Lookup(ctx context.Context, ip string) (identify.Result, error) {
	return f(ctx, ip)
}

func newDeps(t *testing.T) (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	store, err := article.LoadBundled()
	require.NoError(t, err)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:    context.Background(),
		Stdout: stdout,
		Stderr: stderr,
		Engine: search.NewEngine(store),
	}, stdout, stderr
}

func TestCLI_HelpShowsAllCommands(t *testing.T) {
	t.Parallel()

	stdout := &bytes.Buffer{}
	parser, err := kong.New(&main.CLI{},
		kong.Writers(stdout, &bytes.Buffer{}),
		kong.Exit(func(int) {}),
	)
	require.NoError(t, err)

	_, _ = parser.Parse([]string{"--help"})

	for _, cmd := range []string{"search", "article", "guides", "ask", "identify"} {
		assert.Contains(t, stdout.String(), cmd, "Help should mention %s command", cmd)
	}
}

func TestMain_Run(t *testing.T) {
	t.Parallel()

	t.Run("help succeeds", func(t *testing.T) {
		t.Parallel()
		stdout := &bytes.Buffer{}
		err := main.NewMain().Run(context.Background(), []string{"--help"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "Usage:")
	})

	t.Run("no command is an error", func(t *testing.T) {
		t.Parallel()
		err := main.NewMain().Run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "no command specified")
	})

	t.Run("search with injected config", func(t *testing.T) {
		t.Parallel()
		m := &main.Main{Config: &config.Config{}}
		stdout := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{"search", "mileage"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "submitting-reimbursements")
	})
}

func TestSearchCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("filters by audience", func(t *testing.T) {
		t.Parallel()
		deps, stdout, _ := newDeps(t)

		cmd := &main.SearchCmd{Query: "login", Audience: "vendor"}
		require.NoError(t, cmd.Run(deps))
		assert.NotContains(t, stdout.String(), "login-troubleshooting")
	})

	t.Run("reports no matches", func(t *testing.T) {
		t.Parallel()
		deps, stdout, _ := newDeps(t)

		cmd := &main.SearchCmd{Query: "zzzznotfound"}
		require.NoError(t, cmd.Run(deps))
		assert.Contains(t, stdout.String(), "No articles found.")
	})

	t.Run("rejects unknown audience", func(t *testing.T) {
		t.Parallel()
		deps, _, stderr := newDeps(t)

		cmd := &main.SearchCmd{Audience: "wizard"}
		assert.Error(t, cmd.Run(deps))
		assert.Contains(t, stderr.String(), "unknown audience")
	})
}

func TestArticleCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints article", func(t *testing.T) {
		t.Parallel()
		deps, stdout, _ := newDeps(t)

		cmd := &main.ArticleCmd{Slug: "login-troubleshooting"}
		require.NoError(t, cmd.Run(deps))
		assert.Contains(t, stdout.String(), "Troubleshooting Ramp Login Issues")
		assert.Contains(t, stdout.String(), "## Before You Begin")
	})

	t.Run("unknown slug", func(t *testing.T) {
		t.Parallel()
		deps, _, stderr := newDeps(t)

		cmd := &main.ArticleCmd{Slug: "nope"}
		assert.Error(t, cmd.Run(deps))
		assert.Contains(t, stderr.String(), `"nope" not found`)
	})
}

func TestGuidesCmd_Run(t *testing.T) {
	t.Parallel()
	deps, stdout, _ := newDeps(t)

	require.NoError(t, (&main.GuidesCmd{}).Run(deps))
	assert.Contains(t, stdout.String(), "Account & Support")
	assert.Contains(t, stdout.String(), "  booking-travel")
}

func TestAskCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints answer and sources", func(t *testing.T) {
		t.Parallel()
		deps, stdout, _ := newDeps(t)
		deps.Asker = askerFunc(func(_ context.Context, query string) (helpdesk.Answer, error) {
			assert.Equal(t, "mileage", query)
			return helpdesk.Answer{
				Answer:  "Submit it from the app.",
				Sources: []helpdesk.Source{{Title: "Submitting reimbursements", URL: "https://help.example.com/1"}},
			}, nil
		})

		require.NoError(t, (&main.AskCmd{Query: "mileage"}).Run(deps))
		assert.Contains(t, stdout.String(), "Submit it from the app.")
		assert.Contains(t, stdout.String(), "1. Submitting reimbursements  https://help.example.com/1")
	})

	t.Run("reports failure", func(t *testing.T) {
		t.Parallel()
		deps, _, stderr := newDeps(t)
		deps.Asker = askerFunc(func(context.Context, string) (helpdesk.Answer, error) {
			return helpdesk.Answer{}, errors.New("rate limited")
		})

		assert.Error(t, (&main.AskCmd{Query: "mileage"}).Run(deps))
		assert.Contains(t, stderr.String(), "rate limited")
	})
}

func TestIdentifyCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("identified", func(t *testing.T) {
		t.Parallel()
		deps, stdout, _ := newDeps(t)
		deps.Lookup = lookupFunc(func(_ context.Context, ip string) (identify.Result, error) {
			assert.Equal(t, "203.0.113.9", ip)
			return identify.Result{
				Identified: true,
				Company:    &persona.Company{Name: "Acme", Industry: "Retail"},
			}, nil
		})

		require.NoError(t, (&main.IdentifyCmd{IP: "203.0.113.9"}).Run(deps))
		assert.Contains(t, stdout.String(), "Acme")
		assert.Contains(t, stdout.String(), "Industry: Retail")
		assert.NotContains(t, stdout.String(), "Domain:")
	})

	t.Run("not identified", func(t *testing.T) {
		t.Parallel()
		deps, stdout, _ := newDeps(t)
		deps.Lookup = lookupFunc(func(context.Context, string) (identify.Result, error) {
			return identify.Result{Reason: identify.ReasonNoCompany}, nil
		})

		require.NoError(t, (&main.IdentifyCmd{IP: "203.0.113.9"}).Run(deps))
		assert.Contains(t, stdout.String(), "Not identified: No company found")
	})
}
