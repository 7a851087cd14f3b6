package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/logging"
)

// TopicConfig defines Kafka topic configuration
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
	KeyField          string
}

// Topics returns the topics the triage service publishes to
func Topics(cfg config.KafkaConfig) []TopicConfig {
	return []TopicConfig{
		// Compensation request lifecycle
		{
			Name:              cfg.RequestsTopic,
			Partitions:        8,
			ReplicationFactor: 3,
			RetentionMs:       7776000000, // 90 days
			CleanupPolicy:     "delete",
			KeyField:          "player_id",
		},
		// Escalation case transitions
		{
			Name:              cfg.CasesTopic,
			Partitions:        8,
			ReplicationFactor: 3,
			RetentionMs:       2592000000, // 30 days
			CleanupPolicy:     "delete",
			KeyField:          "case_id",
		},
		// Released player-facing responses
		{
			Name:              cfg.DeliveryTopic,
			Partitions:        12,
			ReplicationFactor: 3,
			RetentionMs:       604800000, // 7 days
			CleanupPolicy:     "delete",
			KeyField:          "player_id",
		},
	}
}

// TopicManager handles Kafka topic creation and connectivity checks
type TopicManager struct {
	brokers []string
	logger  *zap.Logger
}

// NewTopicManager creates a new topic manager
func NewTopicManager(brokers []string, logger *zap.Logger) *TopicManager {
	return &TopicManager{
		brokers: brokers,
		logger:  logging.OrNop(logger).Named("kafka"),
	}
}

// CreateTopics creates the given topics if they don't exist
func (tm *TopicManager) CreateTopics(ctx context.Context, topics []TopicConfig) error {
	if len(tm.brokers) == 0 {
		return ErrInvalidBrokers
	}

	var dialer kafka.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", tm.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get controller: %w", err)
	}

	controllerConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to connect to controller: %w", err)
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		if topic.Name == "" {
			return ErrInvalidTopic
		}
		err := controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic.Name,
			NumPartitions:     topic.Partitions,
			ReplicationFactor: topic.ReplicationFactor,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(topic.RetentionMs, 10)},
				{ConfigName: "cleanup.policy", ConfigValue: topic.CleanupPolicy},
			},
		})
		if err != nil {
			// Topic might already exist, log warning but continue
			tm.logger.Warn("topic creation failed", zap.String("topic", topic.Name), zap.Error(err))
		} else {
			tm.logger.Info("created topic", zap.String("topic", topic.Name))
		}
	}

	return nil
}

// Ping checks that the first broker answers and knows its controller
func (tm *TopicManager) Ping(ctx context.Context) error {
	if len(tm.brokers) == 0 {
		return ErrInvalidBrokers
	}

	var dialer kafka.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", tm.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	_, err = conn.Controller()
	return err
}
