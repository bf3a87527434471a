package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/help-center/backend/internal/model/helpdesk"
)

// NoAnswer is returned as the answer when the model produced no usable completion.
const NoAnswer = "Unable to generate an answer."

// Service turns retrieved help articles plus a question into a grounded answer.
type Service struct {
	chatModel model.BaseChatModel
	template  prompt.ChatTemplate
	logger    *slog.Logger
}

// NewService creates a new AI service instance. A nil chatModel yields a
// service whose Answer always fails with ErrNotConfigured.
func NewService(chatModel model.BaseChatModel, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	return &Service{
		chatModel: chatModel,
		template:  promptTemplate,
		logger:    logger,
	}
}

// Enabled reports whether a chat model is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.chatModel != nil
}

// Answer asks the model to answer query using only sources as context.
func (s *Service) Answer(ctx context.Context, query string, sources []helpdesk.Source) (string, error) {
	if !s.Enabled() {
		return "", ErrNotConfigured
	}

	messages, err := s.template.Format(ctx, map[string]any{
		"system": BuildSystemPrompt(sources),
		"query":  query,
	})
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}

	response, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		if errors.Is(err, ErrMalformedCompletion) {
			s.logger.Warn("discarding malformed completion", "error", err)
			return NoAnswer, nil
		}
		s.logger.Error("chat model call failed", "error", err)
		return "", classify(err)
	}

	if response == nil || strings.TrimSpace(response.Content) == "" {
		return NoAnswer, nil
	}

	s.logger.Info("generated answer", "sources", len(sources), "length", len(response.Content))
	return response.Content, nil
}
