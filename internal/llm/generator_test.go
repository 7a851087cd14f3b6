package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildcare/internal/config"
)

func TestNewOpenAIGenerator(t *testing.T) {
	_, err := NewOpenAIGenerator(config.LLMConfig{})
	assert.Error(t, err)

	gen, err := NewOpenAIGenerator(config.LLMConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, gen.model)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
	}{
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), false},
		{"canceled", context.Canceled, false},
		{"bad request", &openai.APIError{HTTPStatusCode: 400, Message: "bad"}, false},
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401, Message: "key"}, true},
		{"rate limited", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, true},
		{"server error", &openai.APIError{HTTPStatusCode: 503, Message: "down"}, true},
		{"request error 502", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("gateway")}, true},
		{"request error 404", &openai.RequestError{HTTPStatusCode: 404, Err: errors.New("missing")}, false},
		{"transport", errors.New("dial tcp: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			assert.Equal(t, tt.wantUnavailable, errors.Is(got, ErrServiceUnavailable))
		})
	}
}
