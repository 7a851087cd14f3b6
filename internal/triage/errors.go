package triage

import "errors"

var (
	// ErrInvalidPlayer is returned when the supplied player telemetry is out of range
	ErrInvalidPlayer = errors.New("invalid player context")

	// ErrInvalidReward is returned when a reward is constructed with an empty grant
	ErrInvalidReward = errors.New("invalid reward")

	// ErrEmptyMessage is returned when there is no player message to analyze
	ErrEmptyMessage = errors.New("player message is empty")
)
