package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-parts-fulfillment/internal/events"
)

const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
	HeaderProducer  = "producer"
)

// Message wraps an envelope for the wire. The event type travels as a header so consumers can
// skip foreign events without decoding the body.
func Message(topic string, key []byte, env events.Envelope) (kafka.Message, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s envelope: %w", env.EventType, err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   key,
		Value: b,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(env.EventType)},
			{Key: HeaderEventID, Value: []byte(env.EventID)},
			{Key: HeaderProducer, Value: []byte(env.Producer)},
		},
	}, nil
}

// Header returns the first header value for key, or "".
func Header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
