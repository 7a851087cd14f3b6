package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/guildcare/internal/triage"
)

// Status is the lifecycle state of a compensation request
type Status string

const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusDistributed Status = "distributed"
)

// Resolved reports whether the status is past the approval gate
func (s Status) Resolved() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusDistributed
}

// CompensationRequest is the only shared mutable record across cases. Its
// status only moves forward: pending to approved or rejected, approved to distributed.
type CompensationRequest struct {
	ID             string               `json:"id"`
	CaseID         string               `json:"case_id"`
	PlayerID       string               `json:"player_id"`
	Tier           triage.Tier          `json:"tier"`
	Compensation   triage.Bundle        `json:"compensation"`
	Reasoning      string               `json:"reasoning"`
	Status         Status               `json:"status"`
	PlayerSnapshot triage.PlayerContext `json:"player_snapshot"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	ResolvedAt     *time.Time           `json:"resolved_at,omitempty"`
	ResolvedBy     string               `json:"resolved_by,omitempty"`
	Note           string               `json:"note,omitempty"`
}

// NewRequest builds a pending request for a recommendation
func NewRequest(caseID string, player triage.PlayerContext, rec triage.CompensationRecommendation) *CompensationRequest {
	return &CompensationRequest{
		ID:             uuid.New().String(),
		CaseID:         caseID,
		PlayerID:       player.PlayerID,
		Tier:           rec.Tier,
		Compensation:   rec.SuggestedCompensation,
		Reasoning:      rec.Reasoning,
		Status:         StatusPending,
		PlayerSnapshot: player,
	}
}

// Transition is a lifecycle event emitted once per applied status change
type Transition struct {
	RequestID string    `json:"request_id"`
	CaseID    string    `json:"case_id"`
	PlayerID  string    `json:"player_id"`
	From      Status    `json:"from,omitempty"`
	To        Status    `json:"to"`
	Actor     string    `json:"actor,omitempty"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

// Result is the outcome of a transition attempt. Applied is false when the
// request had already left the source status; Request is its current state.
type Result struct {
	Applied bool                 `json:"applied"`
	Request *CompensationRequest `json:"request"`
}

func (r *CompensationRequest) clone() *CompensationRequest {
	out := *r
	if r.ResolvedAt != nil {
		at := *r.ResolvedAt
		out.ResolvedAt = &at
	}
	return &out
}
