package mcptools_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/help-center/backend/internal/handler/mcptools"
	"github.com/zhouzirui/help-center/backend/internal/model/article"
	"github.com/zhouzirui/help-center/backend/internal/model/helpdesk"
	"github.com/zhouzirui/help-center/backend/internal/service/search"
)

var testImpl = &mcp.Implementation{Name: "help-center-test", Version: "0.1.0"}

type stubAsker struct{}

func (stubAsker) Ask(_ context.Context, query string) (helpdesk.Answer, error) {
	return helpdesk.Answer{Answer: "answer for " + query, Sources: []helpdesk.Source{}, Query: query}, nil
}

func session(t *testing.T, asker mcptools.Asker, opts ...mcptools.Option) (*mcp.ClientSession, *search.Engine) {
	t.Helper()
	store, err := article.LoadBundled()
	require.NoError(t, err)
	engine := search.NewEngine(store)

	srv := mcptools.New(engine, asker, opts...).NewServer("test")
	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testImpl, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs, engine
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args any) (string, error) {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if err := result.GetError(); err != nil {
		return "", err
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	return tc.Text, nil
}

func TestSearchArticlesMatchesEngine(t *testing.T) {
	cs, engine := session(t, nil)

	text, err := callTool(t, cs, "search_articles", map[string]any{"query": "ach", "audience": "vendor"})
	require.NoError(t, err)

	var got mcptools.SearchResult
	require.NoError(t, json.Unmarshal([]byte(text), &got))

	want := engine.Search("ach", article.AudienceVendor)
	require.Equal(t, len(want), got.Count)
	for i, item := range want {
		assert.Equal(t, item.Slug, got.Results[i].Slug)
	}
}

func TestSearchArticlesRejectsUnknownAudience(t *testing.T) {
	cs, _ := session(t, nil)

	_, err := callTool(t, cs, "search_articles", map[string]any{"audience": "wizard"})
	assert.Error(t, err)
}

func TestGetArticle(t *testing.T) {
	cs, _ := session(t, nil)

	text, err := callTool(t, cs, "get_article", map[string]any{"slug": "vendor-portal"})
	require.NoError(t, err)

	var got mcptools.ArticleResult
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, "vendor-portal", got.Article.Slug)
	assert.NotContains(t, got.Related, "vendor-portal")
	assert.LessOrEqual(t, len(got.Related), search.RelatedLimit)

	_, err = callTool(t, cs, "get_article", map[string]any{"slug": "missing"})
	assert.Error(t, err)
}

func TestAskHelpCenter(t *testing.T) {
	cs, _ := session(t, stubAsker{})

	text, err := callTool(t, cs, "ask_help_center", map[string]any{"query": "cards"})
	require.NoError(t, err)

	var got helpdesk.Answer
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, "answer for cards", got.Answer)
}

func TestAskHelpCenterRateLimited(t *testing.T) {
	cs, _ := session(t, stubAsker{}, mcptools.WithAskLimit(rate.NewLimiter(rate.Every(time.Hour), 1)))

	_, err := callTool(t, cs, "ask_help_center", map[string]any{"query": "cards"})
	require.NoError(t, err)

	_, err = callTool(t, cs, "ask_help_center", map[string]any{"query": "cards"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")

	// Browsing tools are not limited.
	_, err = callTool(t, cs, "search_articles", map[string]any{"query": "cards"})
	assert.NoError(t, err)
}

func TestAskHelpCenterUnregisteredWithoutAsker(t *testing.T) {
	cs, _ := session(t, nil)

	tools, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search_articles", "get_article"}, names)
}
