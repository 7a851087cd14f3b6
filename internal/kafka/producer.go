package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/logging"
)

// Header is a Kafka record header
type Header = kafka.Header

// Producer defines the interface for Kafka message production
type Producer interface {
	Send(ctx context.Context, topic string, key []byte, value []byte, headers ...Header) error
	Close() error
}

// kafkaProducer implements the Producer interface
type kafkaProducer struct {
	writer *kafka.Writer
	mu     sync.Mutex
	closed bool
}

// NewProducer creates a new Kafka producer. Records are partitioned by key so
// events for one player stay ordered.
func NewProducer(cfg config.KafkaConfig) (Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrInvalidBrokers
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.Timeout,
		AllowAutoTopicCreation: false,
	}
	if cfg.CompressionGzip {
		writer.Compression = kafka.Gzip
	}

	return &kafkaProducer{
		writer: writer,
		closed: false,
	}, nil
}

// Send sends a message to Kafka
func (p *kafkaProducer) Send(ctx context.Context, topic string, key []byte, value []byte, headers ...Header) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProducerClosed
	}
	p.mu.Unlock()

	message := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: headers,
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write to %s: %w", topic, err)
	}
	return nil
}

// Close closes the producer
func (p *kafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	return p.writer.Close()
}

// nopProducer drops messages when Kafka is disabled
type nopProducer struct {
	logger *zap.Logger
}

// NewNopProducer creates a producer that only logs what it would send
func NewNopProducer(logger *zap.Logger) Producer {
	return &nopProducer{logger: logging.OrNop(logger).Named("kafka")}
}

func (p *nopProducer) Send(ctx context.Context, topic string, key []byte, value []byte, headers ...Header) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	p.logger.Debug("kafka disabled, dropping message",
		zap.String("topic", topic),
		zap.ByteString("key", key),
		zap.Int("size", len(value)),
	)
	return nil
}

func (p *nopProducer) Close() error { return nil }
