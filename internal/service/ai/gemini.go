package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

var _ model.BaseChatModel = (*GeminiModel)(nil)

// GeminiModel adapts the Google GenAI client to eino's chat model contract.
type GeminiModel struct {
	client      *genai.Client
	model       string
	temperature *float32
	maxTokens   int32
}

// NewGeminiModel wraps client for the given model name.
func NewGeminiModel(client *genai.Client, modelName string, temperature *float32, maxTokens *int) *GeminiModel {
	m := &GeminiModel{client: client, model: modelName, temperature: temperature}
	if maxTokens != nil {
		m.maxTokens = int32(*maxTokens)
	}
	return m
}

// Generate folds system messages into the system instruction and sends the rest as contents.
func (m *GeminiModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{Temperature: m.temperature}, opts...)

	config := &genai.GenerateContentConfig{
		Temperature:     options.Temperature,
		MaxOutputTokens: m.maxTokens,
	}

	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(input))
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			system = append(system, &genai.Part{Text: msg.Content})
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: system}
	}

	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, config)
	if err != nil {
		if statusErr := geminiStatus(err); statusErr != nil {
			return nil, statusErr
		}
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if result == nil {
		return schema.AssistantMessage("", nil), nil
	}
	return schema.AssistantMessage(result.Text(), nil), nil
}

// Stream runs Generate and replays the completion as a single chunk.
func (m *GeminiModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// geminiStatus extracts the HTTP status from a genai.APIError, returned by value or pointer.
func geminiStatus(err error) *StatusError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return nil
}
