package identify

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

	"github.com/zhouzirui/help-center/backend/internal/model/persona"
)

// Reasons reported when a visitor is not identified.
const (
	ReasonNoIP          = "No IP detected"
	ReasonUpstreamError = "identification API error"
	ReasonNoCompany     = "No company found"
	ReasonTimeout       = "identification timed out"
	ReasonFailed        = "identification failed"
)

// ErrNotConfigured is returned when no identification API key is set.
var ErrNotConfigured = errors.New("identification API key not configured")

// Result is the outcome of a single company lookup.
type Result struct {
	Identified bool             `json:"identified"`
	Company    *persona.Company `json:"company,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Status     int              `json:"status,omitempty"`
}

type upstreamCompany struct {
	Name          string `json:"name"`
	Industry      string `json:"industry"`
	EmployeeRange string `json:"employee_range"`
	Size          string `json:"size"`
	Domain        string `json:"domain"`
	Logo          string `json:"logo"`
}

type upstreamResponse struct {
	Company *upstreamCompany `json:"company"`
}

// Client resolves visitor IPs to companies through a Snitcher-compatible API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a lookup client. An empty apiKey makes every lookup fail with ErrNotConfigured.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup asks the upstream API which company owns ip. Upstream refusals are
// reported in the Result, not as errors.
func (c *Client) Lookup(ctx context.Context, ip string) (Result, error) {
	if c.apiKey == "" {
		return Result{}, ErrNotConfigured
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return Result{Reason: ReasonNoIP}, nil
	}

	endpoint := c.baseURL + "/company/find?ip=" + url.QueryEscape(ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call identification API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Result{Reason: ReasonUpstreamError, Status: resp.StatusCode}, nil
	}

	var decoded upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("decode identification response: %w", err)
	}
	if decoded.Company == nil {
		return Result{Reason: ReasonNoCompany}, nil
	}

	size := decoded.Company.EmployeeRange
	if size == "" {
		size = decoded.Company.Size
	}

	return Result{
		Identified: true,
		Company: &persona.Company{
			Name:     decoded.Company.Name,
			Industry: decoded.Company.Industry,
			Size:     size,
			Domain:   decoded.Company.Domain,
			Logo:     decoded.Company.Logo,
		},
	}, nil
}
