package escalation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/ledger"
	"github.com/guildcare/internal/logging"
	"github.com/guildcare/internal/metrics"
	"github.com/guildcare/internal/triage"
)

// SystemActor resolves requests for automatically resolved cases
const SystemActor = "system"

// requestNamespace derives stable request ids from case ids
var requestNamespace = uuid.MustParse("6f1c7a52-9d43-4e0b-8a57-3c2f40d1b9e8")

// Analyzer runs the decision pipeline
type Analyzer interface {
	Analyze(ctx context.Context, message string, player triage.PlayerContext) (*triage.Analysis, error)
}

// Requests is the part of the request ledger the manager drives
type Requests interface {
	Open(ctx context.Context, req *ledger.CompensationRequest) (*ledger.CompensationRequest, error)
	Approve(ctx context.Context, id, actor string) (ledger.Result, error)
	Reject(ctx context.Context, id, actor, note string) (ledger.Result, error)
}

// Deliverer hands released text to the player-facing transport
type Deliverer interface {
	Deliver(ctx context.Context, r Release) error
}

// Publisher receives case state transitions
type Publisher interface {
	PublishCaseTransition(ctx context.Context, c *Case, t Transition) error
}

// Manager drives escalation cases through the approval flow. Every
// transition is written to the Store before it is published or delivered.
type Manager struct {
	store          Store
	analyzer       Analyzer
	requests       Requests
	deliverer      Deliverer
	publisher      Publisher
	autoResolvable map[triage.IssueType]bool
	overrideTones  map[string]bool
	rejectionText  string
	noIssueText    string
	analysisLease  time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewManager creates a manager. publisher may be nil.
func NewManager(cfg config.EscalationConfig, store Store, analyzer Analyzer, requests Requests, deliverer Deliverer, publisher Publisher, logger *zap.Logger) *Manager {
	m := &Manager{
		store:          store,
		analyzer:       analyzer,
		requests:       requests,
		deliverer:      deliverer,
		publisher:      publisher,
		autoResolvable: make(map[triage.IssueType]bool),
		overrideTones:  make(map[string]bool),
		rejectionText:  cfg.RejectionMessage,
		noIssueText:    cfg.NoIssueMessage,
		analysisLease:  cfg.AnalysisLease,
		logger:         logging.OrNop(logger).Named("escalation"),
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, c := range cfg.AutoResolvableCategories {
		m.autoResolvable[triage.IssueType(strings.ToLower(c))] = true
	}
	for _, t := range cfg.OverrideTones {
		m.overrideTones[strings.ToLower(t)] = true
	}
	return m
}

// Open registers a case in intake. Opening an existing case id returns it unchanged.
func (m *Manager) Open(ctx context.Context, in Intake) (*Case, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, triage.ErrEmptyMessage
	}
	if err := in.Player.Validate(); err != nil {
		return nil, err
	}

	id := in.CaseID
	if id == "" {
		id = uuid.New().String()
	}

	now := m.now()
	stored, created, err := m.store.Create(ctx, &Case{
		ID:        id,
		State:     StateIntake,
		Message:   in.Message,
		Player:    in.Player,
		History:   []Transition{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store case %s: %w", id, err)
	}
	if !created {
		return stored, nil
	}

	m.logger.Info("case opened", zap.String("case_id", id), zap.String("player_id", in.Player.PlayerID))
	metrics.CaseRoutesTotal.WithLabelValues(string(StateIntake)).Inc()
	return stored, nil
}

// Process opens a case and submits it
func (m *Manager) Process(ctx context.Context, in Intake) (*Case, error) {
	c, err := m.Open(ctx, in)
	if err != nil {
		return nil, err
	}
	return m.Submit(ctx, c.ID)
}

// Submit analyzes a case in intake and routes it. Submitting a case that is
// being analyzed or already finalized is a no-op returning the case; an
// analysis older than the lease is treated as abandoned and claimed again.
// When the generation service or the ledger fails the case goes back to
// intake and the error is returned so the caller can retry or hand it to an
// agent.
func (m *Manager) Submit(ctx context.Context, caseID string) (*Case, error) {
	claimed, ok, err := m.store.Update(ctx, caseID, func(c *Case) bool {
		if c.Finalized {
			return false
		}
		switch c.State {
		case StateIntake:
		case StateAnalyzing:
			if m.analysisLease <= 0 || m.now().Sub(c.UpdatedAt) < m.analysisLease {
				return false
			}
			c.moveTo(StateIntake, SystemActor, "analysis lease expired", m.now())
		default:
			return false
		}
		c.moveTo(StateAnalyzing, "", "", m.now())
		return true
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		m.logger.Info("duplicate submission ignored",
			zap.String("case_id", caseID),
			zap.String("state", string(claimed.State)),
		)
		return claimed, nil
	}
	m.publish(ctx, claimed)

	analysis, err := m.analyzer.Analyze(ctx, claimed.Message, claimed.Player)
	if err != nil {
		m.revert(ctx, caseID, err)
		return nil, fmt.Errorf("failed to analyze case %s: %w", caseID, err)
	}

	requestID, err := m.openRequest(ctx, caseID, claimed.Player, analysis)
	if err != nil {
		m.revert(ctx, caseID, err)
		return nil, err
	}

	state, reason := m.route(analysis)
	text := m.draft(analysis)

	// The ledger is resolved before the case is finalized so that a failure
	// leaves nothing released. Open is idempotent on the derived request id,
	// which makes the retry safe.
	if state == StateAutoResolved && requestID != "" {
		if _, err := m.requests.Approve(ctx, requestID, SystemActor); err != nil {
			err = fmt.Errorf("failed to approve request for case %s: %w", caseID, err)
			m.revert(ctx, caseID, err)
			return nil, err
		}
	}

	routed, ok, err := m.store.Update(ctx, caseID, func(c *Case) bool {
		if c.State != StateAnalyzing {
			return false
		}
		c.Analysis = analysis
		c.RequestID = requestID
		c.Finalized = true
		c.EscalationReason = reason
		c.moveTo(state, "", reason, m.now())
		if state == StateAutoResolved {
			c.ReleasedText = text
		} else {
			c.PendingResponseText = text
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store routed case %s: %w", caseID, err)
	}
	if !ok {
		m.logger.Warn("case moved during analysis, dropping result",
			zap.String("case_id", caseID),
			zap.String("state", string(routed.State)),
		)
		return routed, nil
	}

	metrics.CaseRoutesTotal.WithLabelValues(string(state)).Inc()
	m.logger.Info("case routed",
		zap.String("case_id", caseID),
		zap.String("state", string(state)),
		zap.String("reason", reason),
	)
	m.publish(ctx, routed)

	if state == StateAutoResolved {
		m.deliver(ctx, Release{
			CaseID:   routed.ID,
			PlayerID: routed.Player.PlayerID,
			State:    state,
			Text:     routed.ReleasedText,
			Actor:    SystemActor,
			At:       routed.UpdatedAt,
		})
	}
	return routed, nil
}

// Approve releases the held text verbatim and approves the case's request
func (m *Manager) Approve(ctx context.Context, caseID, agent string) (*Case, error) {
	return m.decide(ctx, caseID, agent, StateApproved, "")
}

// Reject discards the held text, releases the generic no-compensation message
// and rejects the case's request
func (m *Manager) Reject(ctx context.Context, caseID, agent, reason string) (*Case, error) {
	return m.decide(ctx, caseID, agent, StateRejected, reason)
}

func (m *Manager) decide(ctx context.Context, caseID, agent string, to State, reason string) (*Case, error) {
	c, err := m.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.State == StateApproved || c.State == StateRejected {
		m.ignoreDecision(c, to, agent)
		return c, nil
	}
	if !c.State.Held() {
		return nil, fmt.Errorf("%w: case %s is %s", ErrNotAwaitingApproval, caseID, c.State)
	}

	// Resolve the request first; on failure the case stays held for a retry.
	if c.RequestID != "" {
		var res ledger.Result
		if to == StateApproved {
			res, err = m.requests.Approve(ctx, c.RequestID, agent)
		} else {
			res, err = m.requests.Reject(ctx, c.RequestID, agent, reason)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve request for case %s: %w", caseID, err)
		}
		if !res.Applied && res.Request != nil && !agrees(res.Request.Status, to) {
			// A competing decision resolved the request the other way
			m.ignoreDecision(c, to, agent)
			return m.store.Get(ctx, caseID)
		}
	}

	decided, ok, err := m.store.Update(ctx, caseID, func(c *Case) bool {
		if !c.State.Held() {
			return false
		}
		text := c.PendingResponseText
		if to == StateRejected {
			text = m.rejectionText
		}
		c.PendingResponseText = ""
		c.ReleasedText = text
		c.moveTo(to, agent, reason, m.now())
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store decision for case %s: %w", caseID, err)
	}
	if !ok {
		m.ignoreDecision(decided, to, agent)
		return decided, nil
	}

	metrics.CaseRoutesTotal.WithLabelValues(string(to)).Inc()
	m.logger.Info("case decided",
		zap.String("case_id", caseID),
		zap.String("state", string(to)),
		zap.String("agent", agent),
	)
	m.publish(ctx, decided)

	m.deliver(ctx, Release{
		CaseID:   decided.ID,
		PlayerID: decided.Player.PlayerID,
		State:    to,
		Text:     decided.ReleasedText,
		Actor:    agent,
		At:       decided.UpdatedAt,
	})
	return decided, nil
}

func (m *Manager) ignoreDecision(c *Case, requested State, agent string) {
	m.logger.Warn("case already decided, ignoring",
		zap.String("case_id", c.ID),
		zap.String("state", string(c.State)),
		zap.String("requested", string(requested)),
		zap.String("agent", agent),
	)
}

// agrees reports whether a request status is the outcome of deciding a case as to
func agrees(status ledger.Status, to State) bool {
	if to == StateApproved {
		return status == ledger.StatusApproved || status == ledger.StatusDistributed
	}
	return status == ledger.StatusRejected
}

// Get returns a copy of the case
func (m *Manager) Get(ctx context.Context, caseID string) (*Case, error) {
	return m.store.Get(ctx, caseID)
}

// List returns cases in state (any state when empty) at least olderThan old, oldest first
func (m *Manager) List(ctx context.Context, state State, olderThan time.Duration) ([]*Case, error) {
	return m.filter(ctx, olderThan, func(c *Case) bool {
		return state == "" || c.State == state
	})
}

// Pending returns held cases at least olderThan old, oldest first
func (m *Manager) Pending(ctx context.Context, olderThan time.Duration) ([]*Case, error) {
	return m.filter(ctx, olderThan, func(c *Case) bool {
		return c.State.Held()
	})
}

func (m *Manager) filter(ctx context.Context, olderThan time.Duration, keep func(*Case) bool) ([]*Case, error) {
	all, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	now := m.now()
	out := make([]*Case, 0, len(all))
	for _, c := range all {
		if keep(c) && c.Age(now) >= olderThan {
			out = append(out, c)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

// route picks the state a freshly analyzed case moves to, with the reason
func (m *Manager) route(a *triage.Analysis) (State, string) {
	if !a.IssueDetected {
		return StateAutoResolved, "no issue detected"
	}
	if a.Sentiment != nil && m.overrideTones[string(a.Sentiment.Tone)] {
		return StateEscalated, fmt.Sprintf("player tone %s needs personal delivery", a.Sentiment.Tone)
	}
	if a.Recommendation.RequiresHumanReview {
		return StateAwaitingApproval, "recommendation requires human review"
	}
	if m.autoResolvable[a.Issue.IssueType] {
		return StateAutoResolved, ""
	}
	return StateEscalated, fmt.Sprintf("%s issues are not auto-resolvable", categoryLabel(a.Issue.IssueType))
}

// draft builds the player-facing response for an analysis
func (m *Manager) draft(a *triage.Analysis) string {
	if !a.IssueDetected {
		return m.noIssueText
	}
	rec := a.Recommendation
	if !rec.GrantsCompensation() {
		return rec.Reasoning
	}
	return fmt.Sprintf("%s\n\nCompensation: %s", rec.Reasoning, rec.SuggestedCompensation)
}

// openRequest records a ledger request when the recommendation grants anything
func (m *Manager) openRequest(ctx context.Context, caseID string, player triage.PlayerContext, a *triage.Analysis) (string, error) {
	if !a.IssueDetected || a.Recommendation == nil || !a.Recommendation.GrantsCompensation() {
		return "", nil
	}

	req := ledger.NewRequest(caseID, player, *a.Recommendation)
	req.ID = uuid.NewSHA1(requestNamespace, []byte(caseID)).String()
	stored, err := m.requests.Open(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to open compensation request for case %s: %w", caseID, err)
	}
	return stored.ID, nil
}

func (m *Manager) revert(ctx context.Context, caseID string, cause error) {
	reverted, ok, err := m.store.Update(ctx, caseID, func(c *Case) bool {
		if c.State != StateAnalyzing {
			return false
		}
		c.moveTo(StateIntake, "", cause.Error(), m.now())
		return true
	})
	if err != nil {
		m.logger.Error("failed to return case to intake", zap.String("case_id", caseID), zap.Error(err))
		return
	}

	m.logger.Error("case returned to intake", zap.String("case_id", caseID), zap.Error(cause))
	if ok {
		metrics.CaseRoutesTotal.WithLabelValues(string(StateIntake)).Inc()
		m.publish(ctx, reverted)
	}
}

func (m *Manager) deliver(ctx context.Context, r Release) {
	if m.deliverer == nil {
		return
	}
	if err := m.deliverer.Deliver(ctx, r); err != nil {
		m.logger.Error("failed to release response",
			zap.String("case_id", r.CaseID),
			zap.String("state", string(r.State)),
			zap.Error(err),
		)
	}
}

func (m *Manager) publish(ctx context.Context, c *Case) {
	if m.publisher == nil || len(c.History) == 0 {
		return
	}

	last := c.History[len(c.History)-1]
	if err := m.publisher.PublishCaseTransition(ctx, c, last); err != nil {
		m.logger.Warn("failed to publish case transition",
			zap.String("case_id", c.ID),
			zap.Error(err),
		)
	}
}

func categoryLabel(t triage.IssueType) string {
	if t == triage.IssueNone {
		return "uncategorized"
	}
	return string(t)
}

func sortOldestFirst(cases []*Case) {
	sort.Slice(cases, func(i, j int) bool {
		return cases[i].CreatedAt.Before(cases[j].CreatedAt)
	})
}
