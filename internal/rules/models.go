package rules

import "time"

type RuleType string

const (
	TypeEmail  RuleType = "EMAIL"
	TypeDomain RuleType = "DOMAIN"
	TypeTopic  RuleType = "TOPIC"
)

type Action string

const (
	ActionVIP      Action = "VIP"
	ActionSuppress Action = "SUPPRESS"
)

// Rule is a stored matching rule. Pattern is always canonical for Type.
type Rule struct {
	ID             string    `json:"id" db:"id"`
	Type           RuleType  `json:"type" db:"type"`
	Pattern        string    `json:"pattern" db:"pattern"`
	Action         Action    `json:"action" db:"action"`
	UnlessContains *string   `json:"unless_contains,omitempty" db:"unless_contains"`
	Notes          *string   `json:"notes,omitempty" db:"notes"`
	Confidence     *float64  `json:"confidence,omitempty" db:"confidence"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// RuleRecord is the wire shape accepted by create/import and produced by the parser.
type RuleRecord struct {
	Type           RuleType `json:"type" binding:"required"`
	Pattern        string   `json:"pattern" binding:"required"`
	Action         Action   `json:"action" binding:"required"`
	UnlessContains *string  `json:"unless_contains,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
}

func (r Rule) Record() RuleRecord {
	return RuleRecord{
		Type:           r.Type,
		Pattern:        r.Pattern,
		Action:         r.Action,
		UnlessContains: r.UnlessContains,
		Notes:          r.Notes,
		Confidence:     r.Confidence,
	}
}

var validTypes = map[RuleType]bool{
	TypeEmail:  true,
	TypeDomain: true,
	TypeTopic:  true,
}

var validActions = map[Action]bool{
	ActionVIP:      true,
	ActionSuppress: true,
}

func (t RuleType) Valid() bool {
	return validTypes[t]
}

func (a Action) Valid() bool {
	return validActions[a]
}
