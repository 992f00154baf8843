package management

import (
	"triage/internal/matcher"
	"triage/internal/rules"
)

type ParseRuleRequest struct {
	Text          string        `json:"text"`
	DefaultAction *rules.Action `json:"default_action,omitempty"`
}

type ParseRuleResponse struct {
	Rule     rules.RuleRecord `json:"rule"`
	Strategy string           `json:"strategy"`
}

type ImportRulesRequest struct {
	Rules []rules.RuleRecord `json:"rules"`
}

type ImportRulesResponse struct {
	Count int `json:"count"`
}

type DeleteRuleResponse struct {
	OK bool `json:"ok"`
}

// EvaluateRequest carries a thread's raw participants encoding and subject line.
type EvaluateRequest struct {
	Participants string `json:"participants"`
	Title        string `json:"title"`
}

type EvaluateResponse struct {
	Subject      matcher.Subject `json:"subject"`
	Suppressed   bool            `json:"suppressed"`
	VIP          bool            `json:"vip"`
	SuppressedBy *rules.Rule     `json:"suppressed_by,omitempty"`
	VIPBy        *rules.Rule     `json:"vip_by,omitempty"`
}

type AuditQuery struct {
	EntityID string `form:"entity_id"`
	Action   string `form:"action"`
	Limit    int    `form:"limit"`
}

// ParserSettings are the runtime-tunable parser options.
type ParserSettings struct {
	DefaultAction     rules.Action `json:"default_action"`
	AIFallbackEnabled bool         `json:"ai_fallback_enabled"`
}

type UpdateParserSettingsRequest struct {
	DefaultAction     *rules.Action `json:"default_action,omitempty"`
	AIFallbackEnabled *bool         `json:"ai_fallback_enabled,omitempty"`
}
