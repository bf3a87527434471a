package main

import (
	"context"
	"io"

	"github.com/zhouzirui/help-center/backend/internal/model/helpdesk"
	"github.com/zhouzirui/help-center/backend/internal/service/identify"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
)

// Asker answers a question from the remote help desk.
type Asker interface {
	Ask(ctx context.Context, query string) (helpdesk.Answer, error)
}

// Lookuper resolves an IP to a company.
type Lookuper interface {
	Lookup(ctx context.Context, ip string) (identify.Result, error)
}

// Dependencies holds the services commands run against.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Engine *search.Engine
	Asker  Asker
	Lookup Lookuper
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Search   SearchCmd   `cmd:"" help:"Search bundled help articles"`
	Article  ArticleCmd  `cmd:"" help:"Show one article with related reading"`
	Guides   GuidesCmd   `cmd:"" help:"List guides by topic"`
	Ask      AskCmd      `cmd:"" help:"Ask the remote help desk a question"`
	Identify IdentifyCmd `cmd:"" help:"Look up the company behind an IP address"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query    string `arg:"" optional:"" help:"Text to look for"`
	Audience string `short:"a" help:"Only articles for this audience (employee, admin, bookkeeper, vendor)"`
	Category string `short:"c" help:"Exact category label"`
}

// ArticleCmd is the "article" subcommand.
type ArticleCmd struct {
	Slug string `arg:"" help:"Article slug"`
}

// GuidesCmd is the "guides" subcommand.
type GuidesCmd struct{}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Query string `arg:"" help:"Question to answer"`
}

// IdentifyCmd is the "identify" subcommand.
type IdentifyCmd struct {
	IP string `arg:"" help:"Visitor IP address"`
}
