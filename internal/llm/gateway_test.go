package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/llm"
	"github.com/guildcare/internal/llm/llmtest"
)

var labelTask = llm.NewTask("label", "You are a classifier.", "Task: label\nMessage: {{.Message}}", 0.1, 50)

type labelResult struct {
	Label string `json:"label"`
}

func newGateway(gen llm.Generator, ttl time.Duration) *llm.Gateway {
	return llm.NewGateway(gen, config.LLMConfig{CallTimeout: time.Second, CacheTTL: ttl}, nil)
}

func TestGatewayClassifyParsesStructuredOutput(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: `Result: {"label": "bug"}`})
	gw := newGateway(gen, 0)

	var out labelResult
	outcome, err := gw.Classify(context.Background(), labelTask, map[string]string{"Message": "hi"}, &out)
	require.NoError(t, err)
	assert.True(t, outcome.Parsed)
	assert.Equal(t, llm.StageExtracted, outcome.Stage)
	assert.Equal(t, "bug", out.Label)
}

func TestGatewayClassifyMalformedOutputIsNotAnError(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: "no json here"})
	gw := newGateway(gen, 0)

	var out labelResult
	outcome, err := gw.Classify(context.Background(), labelTask, map[string]string{"Message": "hi"}, &out)
	require.NoError(t, err)
	assert.False(t, outcome.Parsed)
	assert.Equal(t, llm.StageNone, outcome.Stage)
}

func TestGatewayClassifyRequestFailureDegrades(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Err: errors.New("bad request")})
	gw := newGateway(gen, 0)

	var out labelResult
	outcome, err := gw.Classify(context.Background(), labelTask, map[string]string{"Message": "hi"}, &out)
	require.NoError(t, err)
	assert.False(t, outcome.Parsed)
}

func TestGatewayClassifyServiceUnavailable(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Err: fmt.Errorf("%w: connection refused", llm.ErrServiceUnavailable)})
	gw := newGateway(gen, 0)

	var out labelResult
	_, err := gw.Classify(context.Background(), labelTask, map[string]string{"Message": "hi"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrServiceUnavailable)
}

func TestGatewayWithoutGeneratorIsUnavailable(t *testing.T) {
	gw := newGateway(nil, 0)

	_, err := gw.Generate(context.Background(), labelTask, map[string]string{"Message": "hi"})
	assert.ErrorIs(t, err, llm.ErrServiceUnavailable)
	assert.ErrorIs(t, gw.Ping(context.Background()), llm.ErrNoGenerator)
}

func TestGatewayResendIsServedFromCache(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: `{"label": "bug"}`})
	gw := newGateway(gen, time.Minute)
	inputs := map[string]string{"Message": "same message"}

	var first, second labelResult
	o1, err := gw.Classify(context.Background(), labelTask, inputs, &first)
	require.NoError(t, err)
	o2, err := gw.Classify(context.Background(), labelTask, inputs, &second)
	require.NoError(t, err)

	assert.False(t, o1.Cached)
	assert.True(t, o2.Cached)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.Calls())
}

func TestGatewayGenerateTrimsText(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: "  We are sorry about the trouble.  \n"})
	gw := newGateway(gen, 0)

	text, err := gw.Generate(context.Background(), labelTask, map[string]string{"Message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "We are sorry about the trouble.", text)
}

func TestGatewayCallerCancellation(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: `{"label": "bug"}`})
	gw := newGateway(gen, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out labelResult
	_, err := gw.Classify(ctx, labelTask, map[string]string{"Message": "hi"}, &out)
	assert.ErrorIs(t, err, context.Canceled)
}

// stallingGenerator never answers before its context ends
type stallingGenerator struct{}

func (stallingGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGatewayCallTimeoutDegrades(t *testing.T) {
	gw := llm.NewGateway(stallingGenerator{}, config.LLMConfig{CallTimeout: 20 * time.Millisecond}, nil)

	var out labelResult
	start := time.Now()
	outcome, err := gw.Classify(context.Background(), labelTask, map[string]string{"Message": "hi"}, &out)
	require.NoError(t, err)
	assert.False(t, outcome.Parsed)
	assert.Equal(t, llm.StageNone, outcome.Stage)
	assert.Less(t, time.Since(start), time.Second)

	text, err := gw.Generate(context.Background(), labelTask, map[string]string{"Message": "hi"})
	require.NoError(t, err)
	assert.Empty(t, text)
}
