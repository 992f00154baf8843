package management

import (
	"context"

	"triage/internal/audit"
	"triage/internal/parser"
	"triage/internal/rules"
	"triage/pkg/models"
)

type Service interface {
	ParseRule(ctx context.Context, req ParseRuleRequest) (*ParseRuleResponse, error)
	CreateRule(ctx context.Context, rec rules.RuleRecord) (*rules.Rule, error)
	ImportRules(ctx context.Context, recs []rules.RuleRecord) ([]rules.Rule, error)
	DeleteRule(ctx context.Context, id string) error
	ListRules(ctx context.Context) ([]rules.Rule, error)
	EvaluateSubject(ctx context.Context, req EvaluateRequest) (*EvaluateResponse, error)

	ListAuditEvents(ctx context.Context, query AuditQuery) ([]audit.Event, error)

	GetParserSettings(ctx context.Context) (*ParserSettings, error)
	UpdateParserSettings(ctx context.Context, req UpdateParserSettingsRequest) (*ParserSettings, error)
}

type RuleParser interface {
	Parse(ctx context.Context, text string, opts parser.Options) (parser.Result, error)
}

type AuditLog interface {
	Record(ctx context.Context, entry audit.Entry)
	List(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

type RuleEventPublisher interface {
	PublishRuleEvent(ctx context.Context, event models.RuleEvent) error
}
