package kafka

import "errors"

var (
	// ErrProducerClosed is returned by Send after Close
	ErrProducerClosed = errors.New("kafka producer closed")

	// ErrInvalidBrokers is returned when the broker list is empty
	ErrInvalidBrokers = errors.New("kafka brokers not configured")

	// ErrInvalidTopic is returned when a record or topic definition has no topic name
	ErrInvalidTopic = errors.New("kafka topic name is empty")
)
