package domain

import (
	"context"
)

// EventBus defines the interface for notifying external collaborators about
// evaluation progress. Supports Go channels (default) or NATS.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Payload   []byte `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings
	ChannelBufferSize int

	// NATS settings
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Topics published by the evaluation pipeline.
const (
	// TopicPatternEvaluated fires after each pattern's result partition
	// commits. Payload: PatternEvaluatedEvent.
	TopicPatternEvaluated = "unicorn.pattern.evaluated"

	// TopicTop50Published fires after the Top-50 snapshot commits.
	// Payload: Top50PublishedEvent. Serving-layer caches invalidate on it.
	TopicTop50Published = "unicorn.top50.published"
)

// PatternEvaluatedEvent is the payload for TopicPatternEvaluated.
type PatternEvaluatedEvent struct {
	RunDate   string `json:"runDate"`
	PatternID string `json:"patternId"`
	Rows      int    `json:"rows"`
}

// Top50PublishedEvent is the payload for TopicTop50Published.
type Top50PublishedEvent struct {
	RunDate string `json:"runDate"`
	Entries int    `json:"entries"`
}
