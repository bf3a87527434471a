// Package mcptools exposes the help center to MCP clients.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/help-center/backend/internal/model/article"
	"github.com/zhouzirui/help-center/backend/internal/model/helpdesk"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
)

// Asker answers a free-form question from help-desk articles.
type Asker interface {
	Ask(ctx context.Context, query string) (helpdesk.Answer, error)
}

// ErrRateLimited is returned by ask_help_center when the shared budget is spent.
var ErrRateLimited = errors.New("rate limit exceeded, try again later")

// Tools binds the article engine and the answer proxy to MCP tools.
type Tools struct {
	engine   *search.Engine
	asker    Asker
	askLimit *rate.Limiter
}

// Option configures Tools.
type Option func(*Tools)

// WithAskLimit bounds ask_help_center calls. MCP clients carry no visitor
// cookie, so one limiter is shared by every session on the endpoint.
func WithAskLimit(l *rate.Limiter) Option {
	return func(t *Tools) { t.askLimit = l }
}

// New creates the tool set. A nil asker leaves ask_help_center unregistered.
func New(engine *search.Engine, asker Asker, opts ...Option) *Tools {
	t := &Tools{engine: engine, asker: asker}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewServer returns an MCP server with every tool registered.
func (t *Tools) NewServer(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "help-center", Version: version}, nil)
	t.Register(srv)
	return srv
}

// Handler serves srv over streamable HTTP.
func Handler(srv *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
}

// Register adds the tools to srv.
func (t *Tools) Register(srv *mcp.Server) {
	addTool(srv, &mcp.Tool{
		Name:        "search_articles",
		Description: "Search the bundled help center articles by text, audience and category.",
		InputSchema: inputSchema(map[string]any{
			"query":    map[string]any{"type": "string", "description": "Case-insensitive text to look for"},
			"audience": map[string]any{"type": "string", "enum": audienceNames(), "description": "Only articles for this audience"},
			"category": map[string]any{"type": "string", "description": "Exact category label"},
		}, nil),
	}, t.searchArticles)

	addTool(srv, &mcp.Tool{
		Name:        "get_article",
		Description: "Fetch one help center article by slug, with related articles.",
		InputSchema: inputSchema(map[string]any{
			"slug": map[string]any{"type": "string", "description": "Article slug"},
		}, []string{"slug"}),
	}, t.getArticle)

	if t.asker != nil {
		addTool(srv, &mcp.Tool{
			Name:        "ask_help_center",
			Description: "Answer a support question from the remote help desk, citing the articles used.",
			InputSchema: inputSchema(map[string]any{
				"query": map[string]any{"type": "string", "description": "The question to answer"},
			}, []string{"query"}),
		}, t.askHelpCenter)
	}
}

type searchArgs struct {
	Query    string `json:"query"`
	Audience string `json:"audience"`
	Category string `json:"category"`
}

// ArticleSummary is the compact form returned by search_articles.
type ArticleSummary struct {
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Audience    []article.Audience `json:"audience"`
}

// SearchResult is the search_articles payload.
type SearchResult struct {
	Count   int              `json:"count"`
	Results []ArticleSummary `json:"results"`
}

func (t *Tools) searchArticles(_ context.Context, raw json.RawMessage) (any, error) {
	var args searchArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	audience, err := article.ParseAudience(args.Audience)
	if err != nil {
		return nil, err
	}

	items := t.engine.Browse(search.Query{
		Text:     strings.TrimSpace(args.Query),
		Audience: audience,
		Category: strings.TrimSpace(args.Category),
	})

	result := SearchResult{Count: len(items), Results: make([]ArticleSummary, 0, len(items))}
	for _, item := range items {
		result.Results = append(result.Results, ArticleSummary{
			Slug:        item.Slug,
			Title:       item.Title,
			Description: item.Description,
			Category:    item.Category,
			Audience:    item.Audience,
		})
	}
	return result, nil
}

// ArticleResult is the get_article payload.
type ArticleResult struct {
	Article article.Article `json:"article"`
	Related []string        `json:"related"`
}

func (t *Tools) getArticle(_ context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Slug string `json:"slug"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Slug == "" {
		return nil, errors.New("slug is required")
	}

	item, ok := t.engine.Store().FindBySlug(args.Slug)
	if !ok {
		return nil, fmt.Errorf("article %q not found", args.Slug)
	}

	related := t.engine.Related(item, search.RelatedLimit)
	slugs := make([]string, 0, len(related))
	for _, rel := range related {
		slugs = append(slugs, rel.Slug)
	}
	return ArticleResult{Article: item, Related: slugs}, nil
}

func (t *Tools) askHelpCenter(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if t.askLimit != nil && !t.askLimit.Allow() {
		return nil, ErrRateLimited
	}
	return t.asker.Ask(ctx, args.Query)
}

func addTool(srv *mcp.Server, tool *mcp.Tool, endpoint func(context.Context, json.RawMessage) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := endpoint(ctx, req.Params.Arguments)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func audienceNames() []string {
	names := make([]string, 0, len(article.Audiences()))
	for _, a := range article.Audiences() {
		names = append(names, string(a))
	}
	return names
}
