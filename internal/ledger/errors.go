package ledger

import "errors"

var (
	// ErrNotFound is returned when no request exists for an id
	ErrNotFound = errors.New("compensation request not found")

	// ErrInvalidTransition is returned for a status change the lifecycle never allows
	ErrInvalidTransition = errors.New("invalid compensation request transition")

	// ErrInvalidRequest is returned when a request is missing its id or player
	ErrInvalidRequest = errors.New("invalid compensation request")
)
