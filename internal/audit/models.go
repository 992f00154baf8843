package audit

import (
	"context"
	"time"

	"triage/pkg/logging"
)

type Action string

const (
	ActionRuleCreated    Action = "RULE_CREATED"
	ActionRuleUpdated    Action = "RULE_UPDATED"
	ActionRuleDeleted    Action = "RULE_DELETED"
	ActionConfigUpdated  Action = "CONFIG_UPDATED"
	ActionParserFallback Action = "PARSER_FALLBACK"
)

const (
	EntityRule   = "rule"
	EntityConfig = "config"
	EntityParser = "parser"
)

// SystemActor is recorded when no user is attached to the request context.
const SystemActor = "system"

// Event is an append-only audit record. Details are redacted before they are stored.
type Event struct {
	ID        string                 `json:"id" bson:"_id"`
	Actor     string                 `json:"actor" bson:"actor"`
	Action    Action                 `json:"action" bson:"action"`
	Entity    string                 `json:"entity" bson:"entity"`
	EntityID  string                 `json:"entity_id,omitempty" bson:"entity_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
}

// Entry is what callers hand to the Recorder.
type Entry struct {
	Actor    string
	Action   Action
	Entity   string
	EntityID string
	Details  map[string]interface{}
}

type Filter struct {
	EntityID string
	Action   Action
	Limit    int
}

// ActorFromContext returns the user id set by the HTTP layer, or SystemActor.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return SystemActor
	}
	if userID := logging.Actor(ctx); userID != "" {
		return userID
	}
	return SystemActor
}
