package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/help-center/backend/internal/config"
	"github.com/zhouzirui/help-center/backend/internal/service/ai"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *ai.GatewayModel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gw, err := ai.NewGatewayModel(ai.GatewayConfig{URL: srv.URL + "/v1/chat/completions", APIKey: "secret", Model: "google/gemini-2.5-flash"})
	require.NoError(t, err)
	return gw
}

func TestGatewayGenerate(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens *int   `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	})

	msg, err := gw.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("hi"),
	}, model.WithMaxTokens(64))
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, schema.Assistant, msg.Role)

	assert.Equal(t, "google/gemini-2.5-flash", got.Model)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 64, *got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
}

func TestGatewayStatusError(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := gw.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	var statusErr *ai.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "slow down")
}

func TestGatewayNoChoices(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	msg, err := gw.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
}

func TestGatewayMalformedBody(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := gw.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, ai.ErrMalformedCompletion)
}

func TestGatewayStream(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"chunk"}}]}`))
	})

	stream, err := gw.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer stream.Close()

	msg, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "chunk", msg.Content)
}

func TestNewChatModel(t *testing.T) {
	_, err := ai.NewChatModel(context.Background(), config.AIConfig{Provider: config.ProviderGateway, Model: "m"})
	assert.ErrorIs(t, err, ai.ErrNotConfigured)

	chatModel, err := ai.NewChatModel(context.Background(), config.AIConfig{
		Provider: config.ProviderGateway,
		APIKey:   "k",
		BaseURL:  "http://localhost/v1/chat/completions",
		Model:    "m",
	})
	require.NoError(t, err)
	assert.IsType(t, &ai.GatewayModel{}, chatModel)
}
