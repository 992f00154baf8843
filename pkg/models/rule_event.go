package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RuleEvent announces a rule or parser settings change to downstream consumers.
type RuleEvent struct {
	EventType  string    `json:"event_type"`
	RuleID     string    `json:"rule_id,omitempty"`
	Action     string    `json:"action"`
	RuleType   string    `json:"rule_type,omitempty"`
	RuleAction string    `json:"rule_action,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	ChangedBy  string    `json:"changed_by,omitempty"`
}

const (
	EventTypeRuleChanged         = "rule_changed"
	EventTypeParserConfigUpdated = "parser_config_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Envelope wraps the event for publishing.
func (e RuleEvent) Envelope(source string, opts ...EnvelopeOption) (MessageEnvelope, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return MessageEnvelope{}, fmt.Errorf("failed to marshal rule event: %w", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return MessageEnvelope{}, fmt.Errorf("failed to convert rule event to payload: %w", err)
	}

	opts = append([]EnvelopeOption{WithTimestamp(e.Timestamp), WithEventType(e.EventType)}, opts...)
	return NewEnvelope(source, payload, opts...), nil
}

// DecodeRuleEvent reads a RuleEvent back out of an envelope payload.
func DecodeRuleEvent(env MessageEnvelope) (RuleEvent, error) {
	var event RuleEvent
	data, err := json.Marshal(env.Payload)
	if err != nil {
		return event, fmt.Errorf("failed to marshal envelope payload: %w", err)
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return event, fmt.Errorf("failed to decode rule event: %w", err)
	}
	if event.Action == "" {
		return event, &ValidationError{Field: "payload.action", Message: "is required"}
	}
	return event, nil
}
