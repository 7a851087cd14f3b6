package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/logging"
	"github.com/guildcare/internal/metrics"
	"github.com/guildcare/internal/telemetry"
)

// Outcome describes how a classification call ended
type Outcome struct {
	Parsed bool       `json:"parsed"`
	Stage  ParseStage `json:"stage"`
	Cached bool       `json:"cached"`
	Raw    string     `json:"-"`
}

// Gateway wraps the text generation service for the decision core. Bad model
// output never surfaces as an error: callers receive Parsed=false and apply
// their own fallback. Only ErrServiceUnavailable and caller cancellation are
// returned as errors.
type Gateway struct {
	generator   Generator
	responses   *cache.Cache
	callTimeout time.Duration
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewGateway creates a gateway over generator
func NewGateway(generator Generator, cfg config.LLMConfig, logger *zap.Logger) *Gateway {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	var responses *cache.Cache
	if cfg.CacheTTL > 0 {
		responses = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	return &Gateway{
		generator:   generator,
		responses:   responses,
		callTimeout: timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logging.OrNop(logger).Named("llm"),
	}
}

// Classify renders the task prompt, sends it, and decodes the structured result into out
func (g *Gateway) Classify(ctx context.Context, task Task, inputs any, out any) (Outcome, error) {
	raw, cached, err := g.send(ctx, task, inputs)
	if err != nil {
		if errors.Is(err, ErrServiceUnavailable) || ctx.Err() != nil {
			return Outcome{Stage: StageNone}, err
		}
		g.logger.Warn("classifier call failed, using fallback",
			zap.String("task", task.Name),
			zap.Error(err),
		)
		metrics.ClassifierCallsTotal.WithLabelValues(task.Name, "fallback").Inc()
		return Outcome{Stage: StageNone}, nil
	}

	stage := ParseStructured(raw, out)
	outcome := Outcome{Parsed: stage != StageNone, Stage: stage, Cached: cached, Raw: raw}

	if !outcome.Parsed {
		g.logger.Warn("unparseable classifier output, using fallback",
			zap.String("task", task.Name),
			zap.Int("response_length", len(raw)),
		)
		metrics.ClassifierCallsTotal.WithLabelValues(task.Name, "fallback").Inc()
		return outcome, nil
	}

	metrics.ClassifierCallsTotal.WithLabelValues(task.Name, string(stage)).Inc()
	return outcome, nil
}

// Generate renders the task prompt and returns the trimmed free-text response.
// A failed call returns an empty string and no error unless the service is unavailable.
func (g *Gateway) Generate(ctx context.Context, task Task, inputs any) (string, error) {
	raw, _, err := g.send(ctx, task, inputs)
	if err != nil {
		if errors.Is(err, ErrServiceUnavailable) || ctx.Err() != nil {
			return "", err
		}
		g.logger.Warn("generation call failed",
			zap.String("task", task.Name),
			zap.Error(err),
		)
		metrics.ClassifierCallsTotal.WithLabelValues(task.Name, "fallback").Inc()
		return "", nil
	}

	metrics.ClassifierCallsTotal.WithLabelValues(task.Name, "generated").Inc()
	return strings.TrimSpace(raw), nil
}

// Ping checks that the generator is reachable
func (g *Gateway) Ping(ctx context.Context) error {
	if g.generator == nil {
		return ErrNoGenerator
	}
	if p, ok := g.generator.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (g *Gateway) send(ctx context.Context, task Task, inputs any) (string, bool, error) {
	if g.generator == nil {
		return "", false, fmt.Errorf("%w: %v", ErrServiceUnavailable, ErrNoGenerator)
	}

	prompt, err := task.Render(inputs)
	if err != nil {
		return "", false, err
	}

	key := task.Name + "\x00" + prompt
	if g.responses != nil {
		if raw, found := g.responses.Get(key); found {
			metrics.ClassifierCallsTotal.WithLabelValues(task.Name, "cached").Inc()
			return raw.(string), true, nil
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "llm."+task.Name)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	start := time.Now()
	raw, err := g.generator.Generate(callCtx, Request{
		SystemPrompt: task.SystemPrompt,
		TaskPrompt:   prompt,
		Temperature:  pick(task.Temperature, g.temperature),
		MaxTokens:    pickInt(task.MaxTokens, g.maxTokens),
	})
	metrics.ClassifierDuration.WithLabelValues(task.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		if errors.Is(err, ErrServiceUnavailable) {
			metrics.ClassifierCallsTotal.WithLabelValues(task.Name, "unavailable").Inc()
			g.logger.Error("text generation service unavailable",
				zap.String("task", task.Name),
				zap.Error(err),
			)
		}
		return "", false, err
	}

	if g.responses != nil {
		g.responses.Set(key, raw, cache.DefaultExpiration)
	}
	return raw, false, nil
}

func pick(v, fallback float32) float32 {
	if v > 0 {
		return v
	}
	return fallback
}

func pickInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
