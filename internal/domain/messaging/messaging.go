package messaging

import "context"

// Message is a broker-neutral envelope.
type Message struct {
	Topic   string
	Key     string
	Payload []byte
	Headers map[string]string
	// Attempt counts deliveries, starting at 1.
	Attempt int
}

// Handler processes one delivered message. A nil error acknowledges it.
type Handler func(ctx context.Context, m Message) error

// Publisher hands messages to the broker.
type Publisher interface {
	Publish(ctx context.Context, m Message) error
}

// Subscriber registers handlers for topics.
type Subscriber interface {
	Subscribe(topic string, h Handler)
}

const deadLetterSuffix = ".dlq"

// DeadLetterTopic names the operator channel for topic.
func DeadLetterTopic(topic string) string { return topic + deadLetterSuffix }

// Header keys set on dead-lettered messages.
const (
	HeaderDeadLetterReason = "x-dead-letter-reason"
	HeaderOriginalTopic    = "x-original-topic"
	HeaderAttempts         = "x-attempts"
)
