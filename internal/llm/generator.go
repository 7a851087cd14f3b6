package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/guildcare/internal/config"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o-mini"

// Request is a single prompt sent to the text generation service
type Request struct {
	SystemPrompt string
	TaskPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Generator is the boundary to the text generation service. Implementations
// must wrap connectivity failures in ErrServiceUnavailable.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Pinger is implemented by generators that can check connectivity cheaply
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpenAIGenerator implements Generator with the OpenAI chat completions API
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator from the LLM configuration
func NewOpenAIGenerator(cfg config.LLMConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Generate sends one chat completion request and returns the raw text
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.TaskPrompt,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

// Ping lists models to confirm the service is reachable and the key is accepted
func (g *OpenAIGenerator) Ping(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return classifyError(err)
	}
	return nil
}

// classifyError separates infrastructure absence from per-request failures.
// Deadline expiry and 4xx request errors stay plain errors so the caller can
// degrade to a fallback; everything else means the service is not usable.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if unavailableStatus(apiErr.HTTPStatusCode) {
			return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
		return err
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && !unavailableStatus(reqErr.HTTPStatusCode) {
		return err
	}

	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}

func unavailableStatus(code int) bool {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return true
	case code == http.StatusTooManyRequests:
		return true
	case code >= http.StatusInternalServerError:
		return true
	}
	return false
}
