package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/escalation"
	"github.com/guildcare/internal/kafka"
	"github.com/guildcare/internal/ledger"
	"github.com/guildcare/internal/triage"
)

type sent struct {
	topic   string
	key     string
	value   []byte
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeProducer) Send(ctx context.Context, topic string, key []byte, value []byte, headers ...kafka.Header) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	h := make(map[string]string, len(headers))
	for _, header := range headers {
		h[header.Key] = string(header.Value)
	}
	f.msgs = append(f.msgs, sent{topic: topic, key: string(key), value: value, headers: h})
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func decode(t *testing.T, msg sent, payload any) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(msg.value, &env))
	require.NoError(t, json.Unmarshal(env.Payload, payload))
	return env
}

func TestPublishRequestTransition(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewPublisher(producer, config.Default().Kafka, "guildcare-test")

	req := &ledger.CompensationRequest{
		ID:           "req-1",
		PlayerID:     "p-1",
		Tier:         triage.TierP2,
		Compensation: triage.NewBundle(triage.Gold{Amount: 500}),
		Status:       ledger.StatusApproved,
	}
	tr := ledger.Transition{RequestID: "req-1", PlayerID: "p-1", From: ledger.StatusPending, To: ledger.StatusApproved, Actor: "agent"}

	require.NoError(t, pub.PublishTransition(context.Background(), tr, req))
	require.Len(t, producer.msgs, 1)

	msg := producer.msgs[0]
	assert.Equal(t, "compensation.requests", msg.topic)
	assert.Equal(t, "p-1", msg.key)
	assert.Equal(t, string(EventRequestTransitioned), msg.headers["event_type"])

	var payload RequestEvent
	env := decode(t, msg, &payload)
	assert.Equal(t, "guildcare-test", env.Source)
	assert.Equal(t, env.ID, msg.headers["event_id"])
	assert.Equal(t, ledger.StatusApproved, payload.Transition.To)
	assert.Equal(t, 500, payload.Request.Compensation.Gold())
	assert.Equal(t, triage.TierP2, payload.Request.Tier)
}

func TestPublishCaseTransitionAndRelease(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewPublisher(producer, config.Default().Kafka, "guildcare-test")
	ctx := context.Background()

	c := &escalation.Case{
		ID:               "case-9",
		Player:           triage.PlayerContext{PlayerID: "p-9"},
		RequestID:        "req-9",
		EscalationReason: "player tone angry needs personal delivery",
	}
	tr := escalation.Transition{From: escalation.StateAnalyzing, To: escalation.StateEscalated, At: time.Now()}
	require.NoError(t, pub.PublishCaseTransition(ctx, c, tr))

	release := escalation.Release{CaseID: "case-9", PlayerID: "p-9", State: escalation.StateApproved, Text: "Sorry!"}
	require.NoError(t, pub.Deliver(ctx, release))

	require.Len(t, producer.msgs, 2)

	var caseEvent CaseEvent
	decode(t, producer.msgs[0], &caseEvent)
	assert.Equal(t, "escalation.cases", producer.msgs[0].topic)
	assert.Equal(t, "case-9", producer.msgs[0].key)
	assert.Equal(t, escalation.StateEscalated, caseEvent.Transition.To)
	assert.Equal(t, "req-9", caseEvent.RequestID)

	var released escalation.Release
	decode(t, producer.msgs[1], &released)
	assert.Equal(t, "player.delivery", producer.msgs[1].topic)
	assert.Equal(t, "p-9", producer.msgs[1].key)
	assert.Equal(t, "Sorry!", released.Text)
}

func TestPublishWrapsProducerErrors(t *testing.T) {
	producer := &fakeProducer{err: kafka.ErrProducerClosed}
	pub := NewPublisher(producer, config.Default().Kafka, "guildcare-test")

	err := pub.Deliver(context.Background(), escalation.Release{CaseID: "c", PlayerID: "p"})
	assert.True(t, errors.Is(err, kafka.ErrProducerClosed))
}
