package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/escalation"
	"github.com/guildcare/internal/kafka"
	"github.com/guildcare/internal/ledger"
)

// EventType names an envelope's payload
type EventType string

const (
	EventRequestTransitioned EventType = "compensation.request.transitioned"
	EventCaseTransitioned    EventType = "escalation.case.transitioned"
	EventResponseReleased    EventType = "player.response.released"
)

// Envelope wraps every event written to Kafka
type Envelope struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// RequestEvent is the payload of a request transition
type RequestEvent struct {
	Transition ledger.Transition           `json:"transition"`
	Request    *ledger.CompensationRequest `json:"request"`
}

// CaseEvent is the payload of a case transition
type CaseEvent struct {
	CaseID           string                `json:"case_id"`
	PlayerID         string                `json:"player_id"`
	RequestID        string                `json:"request_id,omitempty"`
	EscalationReason string                `json:"escalation_reason,omitempty"`
	Transition       escalation.Transition `json:"transition"`
}

// Publisher writes lifecycle and delivery events to Kafka. It implements
// ledger.Publisher, escalation.Publisher and escalation.Deliverer.
type Publisher struct {
	producer kafka.Producer
	topics   config.KafkaConfig
	source   string
	now      func() time.Time
}

// NewPublisher creates a publisher over producer
func NewPublisher(producer kafka.Producer, topics config.KafkaConfig, source string) *Publisher {
	return &Publisher{
		producer: producer,
		topics:   topics,
		source:   source,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PublishTransition publishes a compensation request transition keyed by player
func (p *Publisher) PublishTransition(ctx context.Context, t ledger.Transition, req *ledger.CompensationRequest) error {
	return p.publish(ctx, p.topics.RequestsTopic, t.PlayerID, EventRequestTransitioned, RequestEvent{
		Transition: t,
		Request:    req,
	})
}

// PublishCaseTransition publishes a case transition keyed by case
func (p *Publisher) PublishCaseTransition(ctx context.Context, c *escalation.Case, t escalation.Transition) error {
	return p.publish(ctx, p.topics.CasesTopic, c.ID, EventCaseTransitioned, CaseEvent{
		CaseID:           c.ID,
		PlayerID:         c.Player.PlayerID,
		RequestID:        c.RequestID,
		EscalationReason: c.EscalationReason,
		Transition:       t,
	})
}

// Deliver publishes a released response for the player-facing transport
func (p *Publisher) Deliver(ctx context.Context, r escalation.Release) error {
	return p.publish(ctx, p.topics.DeliveryTopic, r.PlayerID, EventResponseReleased, r)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, eventType EventType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	env := Envelope{
		ID:         uuid.New().String(),
		Type:       eventType,
		Source:     p.source,
		OccurredAt: p.now(),
		Payload:    body,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(eventType)},
		{Key: "event_id", Value: []byte(env.ID)},
		{Key: "content_type", Value: []byte("application/json")},
		{Key: "timestamp", Value: []byte(env.OccurredAt.Format(time.RFC3339))},
	}

	if err := p.producer.Send(ctx, topic, []byte(key), data, headers...); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}
