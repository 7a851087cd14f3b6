package escalation

import (
	"time"

	"github.com/guildcare/internal/triage"
)

// State is a case's position in the approval flow
type State string

const (
	StateIntake           State = "intake"
	StateAnalyzing        State = "analyzing"
	StateAutoResolved     State = "auto_resolved"
	StateAwaitingApproval State = "awaiting_approval"
	StateEscalated        State = "escalated"
	StateApproved         State = "approved"
	StateRejected         State = "rejected"
)

// Held reports whether the state holds drafted text until an agent acts
func (s State) Held() bool {
	return s == StateAwaitingApproval || s == StateEscalated
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateAutoResolved || s == StateApproved || s == StateRejected
}

// ParseState parses a state name
func ParseState(s string) (State, bool) {
	switch st := State(s); st {
	case StateIntake, StateAnalyzing, StateAutoResolved, StateAwaitingApproval,
		StateEscalated, StateApproved, StateRejected:
		return st, true
	}
	return "", false
}

// Intake is a new support message
type Intake struct {
	CaseID  string               `json:"case_id,omitempty"`
	Message string               `json:"message"`
	Player  triage.PlayerContext `json:"player"`
}

// Transition is one entry of a case's history
type Transition struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	Actor  string    `json:"actor,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// Case is one support conversation moving through the approval flow. The
// Manager owns every case through its Store; callers get copies and refer to
// cases by id. Version increases by one with every stored write.
type Case struct {
	ID                  string               `json:"id"`
	State               State                `json:"state"`
	Message             string               `json:"message"`
	Player              triage.PlayerContext `json:"player"`
	Analysis            *triage.Analysis     `json:"analysis,omitempty"`
	RequestID           string               `json:"request_id,omitempty"`
	PendingResponseText string               `json:"pending_response_text,omitempty"`
	ReleasedText        string               `json:"released_text,omitempty"`
	Finalized           bool                 `json:"finalized"`
	EscalationReason    string               `json:"escalation_reason,omitempty"`
	History             []Transition         `json:"history"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
	Version             int64                `json:"version"`
}

// AwaitingApproval reports whether the case waits on an approve or reject action
func (c *Case) AwaitingApproval() bool {
	return c.State.Held()
}

// Age is how long the case has existed. Expiry policy is left to callers.
func (c *Case) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}

func (c *Case) moveTo(to State, actor, reason string, at time.Time) {
	c.History = append(c.History, Transition{From: c.State, To: to, Actor: actor, Reason: reason, At: at})
	c.State = to
	c.UpdatedAt = at
}

func (c *Case) clone() *Case {
	out := *c
	out.History = append([]Transition(nil), c.History...)
	return &out
}

// Release asks the delivery layer to send text to the player
type Release struct {
	CaseID   string    `json:"case_id"`
	PlayerID string    `json:"player_id"`
	State    State     `json:"state"`
	Text     string    `json:"text"`
	Actor    string    `json:"actor,omitempty"`
	At       time.Time `json:"at"`
}
