package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/guildcare/internal/logging"
	"github.com/guildcare/internal/metrics"
)

// Publisher forwards applied transitions to an external system
type Publisher interface {
	PublishTransition(ctx context.Context, t Transition, req *CompensationRequest) error
}

// Ledger owns the lifecycle of compensation requests. The first transition
// out of a status wins; later attempts are logged and ignored.
type Ledger struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.RWMutex
	subscribers []func(Transition)
}

// New creates a ledger over store. publisher may be nil.
func New(store Store, publisher Publisher, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
		logger:    logging.OrNop(logger).Named("ledger"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers fn to be called after every applied transition
func (l *Ledger) Subscribe(fn func(Transition)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, fn)
}

// Open records a pending request. Opening an existing id returns the stored
// record unchanged. The caller's req is never modified.
func (l *Ledger) Open(ctx context.Context, req *CompensationRequest) (*CompensationRequest, error) {
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.PlayerID) == "" {
		return nil, fmt.Errorf("%w: id and player id are required", ErrInvalidRequest)
	}
	req = req.clone()
	if req.Status == "" {
		req.Status = StatusPending
	}
	if req.Status != StatusPending {
		return nil, fmt.Errorf("%w: new requests must be pending, got %s", ErrInvalidTransition, req.Status)
	}
	now := l.now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	stored, created, err := l.store.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if !created {
		l.logger.Debug("request already exists", zap.String("request_id", req.ID))
		return stored, nil
	}

	l.emit(ctx, Transition{
		RequestID: stored.ID,
		CaseID:    stored.CaseID,
		PlayerID:  stored.PlayerID,
		To:        StatusPending,
		At:        now,
	}, stored)
	return stored, nil
}

// Approve moves a pending request to approved
func (l *Ledger) Approve(ctx context.Context, id, actor string) (Result, error) {
	return l.transition(ctx, id, StatusPending, StatusApproved, actor, "")
}

// Reject moves a pending request to rejected
func (l *Ledger) Reject(ctx context.Context, id, actor, note string) (Result, error) {
	return l.transition(ctx, id, StatusPending, StatusRejected, actor, note)
}

// MarkDistributed records that an approved grant reached the player
func (l *Ledger) MarkDistributed(ctx context.Context, id, actor string) (Result, error) {
	res, err := l.transition(ctx, id, StatusApproved, StatusDistributed, actor, "")
	if err != nil {
		return res, err
	}
	if !res.Applied && res.Request.Status != StatusDistributed {
		return res, fmt.Errorf("%w: cannot distribute a %s request", ErrInvalidTransition, res.Request.Status)
	}
	return res, nil
}

// Status returns the current status of a request
func (l *Ledger) Status(ctx context.Context, id string) (Status, error) {
	req, err := l.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return req.Status, nil
}

// Get returns a request by id
func (l *Ledger) Get(ctx context.Context, id string) (*CompensationRequest, error) {
	return l.store.Get(ctx, id)
}

// ListByPlayer returns every request recorded for a player
func (l *Ledger) ListByPlayer(ctx context.Context, playerID string) ([]*CompensationRequest, error) {
	return l.store.ListByPlayer(ctx, playerID)
}

func (l *Ledger) transition(ctx context.Context, id string, from, to Status, actor, note string) (Result, error) {
	now := l.now()
	req, applied, err := l.store.CompareAndSetStatus(ctx, id, from, to, func(r *CompensationRequest) {
		r.UpdatedAt = now
		if to != StatusDistributed {
			r.ResolvedAt = &now
			r.ResolvedBy = actor
		}
		if note != "" {
			r.Note = note
		}
	})
	if err != nil {
		return Result{}, err
	}

	if !applied {
		metrics.LedgerTransitionsTotal.WithLabelValues(string(to), "ignored").Inc()
		l.logger.Warn("transition ignored, request already moved on",
			zap.String("request_id", id),
			zap.String("requested", string(to)),
			zap.String("current", string(req.Status)),
			zap.String("actor", actor),
		)
		return Result{Applied: false, Request: req}, nil
	}

	metrics.LedgerTransitionsTotal.WithLabelValues(string(to), "applied").Inc()
	l.logger.Info("request transitioned",
		zap.String("request_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor),
	)

	l.emit(ctx, Transition{
		RequestID: req.ID,
		CaseID:    req.CaseID,
		PlayerID:  req.PlayerID,
		From:      from,
		To:        to,
		Actor:     actor,
		Note:      note,
		At:        now,
	}, req)

	return Result{Applied: true, Request: req}, nil
}

func (l *Ledger) emit(ctx context.Context, t Transition, req *CompensationRequest) {
	if l.publisher != nil {
		if err := l.publisher.PublishTransition(ctx, t, req); err != nil {
			l.logger.Warn("failed to publish request transition",
				zap.String("request_id", t.RequestID),
				zap.Error(err),
			)
		}
	}

	l.mu.RLock()
	subscribers := append([]func(Transition){}, l.subscribers...)
	l.mu.RUnlock()

	for _, fn := range subscribers {
		fn(t)
	}
}
