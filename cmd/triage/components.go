package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/escalation"
	"github.com/guildcare/internal/events"
	"github.com/guildcare/internal/health"
	"github.com/guildcare/internal/kafka"
	"github.com/guildcare/internal/ledger"
	"github.com/guildcare/internal/llm"
	"github.com/guildcare/internal/logging"
	"github.com/guildcare/internal/telemetry"
	"github.com/guildcare/internal/triage"
)

// components is the wired service graph
type components struct {
	logger   *zap.Logger
	analyzer *triage.Analyzer
	ledger   *ledger.Ledger
	manager  *escalation.Manager
	health   *health.Checker

	closers []func(context.Context) error
}

func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	c := &components{logger: logger, health: health.NewChecker(cfg.Health.CheckTimeout, logger)}

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	c.closers = append(c.closers, shutdownTracing)

	generator, err := llm.NewOpenAIGenerator(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize text generator: %w", err)
	}
	gateway := llm.NewGateway(generator, cfg.LLM, logger)
	c.health.Register(health.NewPingCheck("generator", gateway, 2*time.Second, true))

	policy, err := triage.PolicyFromConfig(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load compensation policy: %w", err)
	}
	c.analyzer = triage.NewAnalyzer(gateway, policy, logger)

	requests, cases := c.buildStores(cfg)

	producer, err := c.buildProducer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	publisher := events.NewPublisher(producer, cfg.Kafka, cfg.Tracing.ServiceName)

	c.ledger = ledger.New(requests, publisher, logger)
	c.manager = escalation.NewManager(cfg.Escalation, cases, c.analyzer, c.ledger, publisher, publisher, logger)

	logger.Info("components initialized",
		zap.String("model", cfg.LLM.Model),
		zap.String("ledger_backend", cfg.Ledger.Backend),
		zap.Bool("kafka", cfg.Kafka.Enabled),
	)
	return c, nil
}

// buildStores picks the request ledger and case backends. Both share one
// Redis client when the redis backend is selected.
func (c *components) buildStores(cfg *config.Config) (ledger.Store, escalation.Store) {
	if strings.ToLower(cfg.Ledger.Backend) != "redis" {
		return ledger.NewMemoryStore(), escalation.NewMemoryStore()
	}

	client := ledger.NewRedisClient(cfg.Redis)
	c.closers = append(c.closers, func(context.Context) error { return client.Close() })
	requests := ledger.NewRedisStore(client, cfg.Ledger.KeyPrefix)
	c.health.Register(health.NewPingCheck("redis", requests, 500*time.Millisecond, true))
	return requests, escalation.NewRedisStore(client, cfg.Ledger.KeyPrefix)
}

func (c *components) buildProducer(ctx context.Context, cfg *config.Config) (kafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return kafka.NewNopProducer(c.logger), nil
	}

	topics := kafka.NewTopicManager(cfg.Kafka.Brokers, c.logger)
	if err := topics.CreateTopics(ctx, kafka.Topics(cfg.Kafka)); err != nil {
		c.logger.Warn("failed to ensure kafka topics", zap.Error(err))
	}
	c.health.Register(health.NewPingCheck("kafka", topics, time.Second, false))

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kafka producer: %w", err)
	}
	c.closers = append(c.closers, func(context.Context) error { return producer.Close() })
	return producer, nil
}

// Close releases resources in reverse construction order
func (c *components) Close(ctx context.Context) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			c.logger.Warn("failed to close component", zap.Error(err))
		}
	}
	_ = c.logger.Sync()
}
