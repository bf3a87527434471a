package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var _ model.ChatModel = (*GatewayModel)(nil)

// GatewayConfig configures an OpenAI-compatible chat-completions endpoint.
type GatewayConfig struct {
	URL         string
	APIKey      string
	Model       string
	Temperature *float32
	MaxTokens   *int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// GatewayModel talks to an OpenAI-compatible /chat/completions endpoint.
type GatewayModel struct {
	url      string
	apiKey   string
	defaults model.Options
	client   *http.Client
}

// NewGatewayModel creates a gateway-backed chat model.
func NewGatewayModel(cfg GatewayConfig) (*GatewayModel, error) {
	if cfg.URL == "" || cfg.APIKey == "" || cfg.Model == "" {
		return nil, ErrNotConfigured
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	modelName := cfg.Model
	return &GatewayModel{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		defaults: model.Options{
			Model:       &modelName,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
		client: client,
	}, nil
}

type gatewayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type gatewayRequest struct {
	Model       string           `json:"model"`
	Messages    []gatewayMessage `json:"messages"`
	Temperature *float32         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	Stop        []string         `json:"stop,omitempty"`
}

type gatewayResponse struct {
	Choices []struct {
		Message gatewayMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends input as one chat-completions request and returns the first choice.
func (g *GatewayModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	base := g.defaults
	options := model.GetCommonOptions(&base, opts...)

	payload := gatewayRequest{
		Messages:    make([]gatewayMessage, 0, len(input)),
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	}
	if options.Model != nil {
		payload.Model = *options.Model
	}
	for _, msg := range input {
		payload.Messages = append(payload.Messages, gatewayMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call completion endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var decoded gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCompletion, err)
	}

	if len(decoded.Choices) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	return schema.AssistantMessage(decoded.Choices[0].Message.Content, nil), nil
}

// Stream runs Generate and replays the completion as a single chunk.
func (g *GatewayModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := g.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is a no-op; the gateway is only used for plain completions.
func (g *GatewayModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}
