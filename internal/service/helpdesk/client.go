package helpdesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zhouzirui/help-center/backend/internal/model/helpdesk"
)

// MaxSources caps how many search results are used as answer context.
const MaxSources = 5

// ErrSearchBackend is returned when the help-desk search API fails or is unreachable.
var ErrSearchBackend = errors.New("help desk search failed")

type searchResponse struct {
	Results []struct {
		ID      int64  `json:"id"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		HTMLURL string `json:"html_url"`
	} `json:"results"`
	Count int `json:"count"`
}

// Client queries a Zendesk-compatible help center search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a search client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search returns at most MaxSources results for query with markup stripped from snippets.
func (c *Client) Search(ctx context.Context, query string) ([]helpdesk.Source, error) {
	endpoint := c.baseURL + "/api/v2/help_center/articles/search?query=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchBackend, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrSearchBackend, err)
	}

	results := decoded.Results
	if len(results) > MaxSources {
		results = results[:MaxSources]
	}

	sources := make([]helpdesk.Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, helpdesk.Source{
			Title:   r.Title,
			Snippet: StripMarkup(r.Snippet),
			URL:     r.HTMLURL,
		})
	}
	return sources, nil
}
