package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttrEventType is the metadata attribute consumers route on.
const AttrEventType = "event_type"

// MessageEnvelope is the wire format of every message on the rule events topic.
type MessageEnvelope struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  Metadata               `json:"metadata"`
}

type Metadata struct {
	TraceID    string                 `json:"trace_id,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

func (m *Metadata) SetAttribute(key string, value interface{}) {
	if m.Attributes == nil {
		m.Attributes = make(map[string]interface{})
	}
	m.Attributes[key] = value
}

func (m Metadata) StringAttribute(key string) (string, bool) {
	v, ok := m.Attributes[key].(string)
	return v, ok
}

type EnvelopeOption func(*MessageEnvelope)

func WithEnvelopeID(id string) EnvelopeOption {
	return func(e *MessageEnvelope) { e.ID = id }
}

func WithTimestamp(ts time.Time) EnvelopeOption {
	return func(e *MessageEnvelope) { e.Timestamp = ts }
}

func WithTraceID(traceID string) EnvelopeOption {
	return func(e *MessageEnvelope) { e.Metadata.TraceID = traceID }
}

func WithEventType(eventType string) EnvelopeOption {
	return func(e *MessageEnvelope) { e.Metadata.SetAttribute(AttrEventType, eventType) }
}

// NewEnvelope stamps a fresh id and the current UTC time unless options set them.
func NewEnvelope(source string, payload map[string]interface{}, opts ...EnvelopeOption) MessageEnvelope {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	env := MessageEnvelope{
		ID:        uuid.New().String(),
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	for _, opt := range opts {
		opt(&env)
	}
	return env
}

// EventType reads the routing attribute, falling back to the payload for
// producers that only set it there.
func (e MessageEnvelope) EventType() string {
	if v, ok := e.Metadata.StringAttribute(AttrEventType); ok && v != "" {
		return v
	}
	v, _ := e.Payload[AttrEventType].(string)
	return v
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid envelope field %s: %s", e.Field, e.Message)
}

// Validate checks the fields every consumer relies on.
func (e MessageEnvelope) Validate() error {
	switch {
	case e.ID == "":
		return &ValidationError{Field: "id", Message: "is required"}
	case e.Source == "":
		return &ValidationError{Field: "source", Message: "is required"}
	case e.Timestamp.IsZero():
		return &ValidationError{Field: "timestamp", Message: "is required"}
	case e.Payload == nil:
		return &ValidationError{Field: "payload", Message: "is required"}
	}
	return nil
}
