package escalation

import "errors"

var (
	// ErrCaseNotFound is returned when no case exists for an id
	ErrCaseNotFound = errors.New("case not found")

	// ErrNotAwaitingApproval is returned when approve or reject targets a case
	// that never reached the approval gate
	ErrNotAwaitingApproval = errors.New("case is not awaiting approval")
)
