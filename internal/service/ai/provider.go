package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/zhouzirui/help-center/backend/internal/config"
)

// NewChatModel 根据配置选择模型供应商。未配置密钥时返回 ErrNotConfigured。
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	var temperature *float32
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		temperature = &val
	}

	switch cfg.Provider {
	case config.ProviderGateway:
		gateway, err := NewGatewayModel(GatewayConfig{
			URL:         cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return gateway, nil

	case config.ProviderArk:
		arkModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     cfg.BaseURL,
			Region:      cfg.Region,
			APIKey:      cfg.APIKey,
			AccessKey:   cfg.AccessKey,
			SecretKey:   cfg.SecretKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("create ark chat model: %w", err)
		}
		return arkModel, nil

	case config.ProviderGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     cfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return NewGeminiModel(client, cfg.Model, temperature, cfg.MaxTokens), nil
	}

	return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
}
