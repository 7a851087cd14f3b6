package llm

import "errors"

var (
	// ErrServiceUnavailable is returned when the text generation service cannot be reached
	ErrServiceUnavailable = errors.New("text generation service unavailable")

	// ErrEmptyResponse is returned when the service answers without any choices
	ErrEmptyResponse = errors.New("text generation service returned no choices")

	// ErrNoGenerator is returned when a gateway is built without a generator
	ErrNoGenerator = errors.New("no text generator configured")
)
