package management

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"triage/internal/audit"
	"triage/internal/config"
	"triage/internal/constants"
	"triage/internal/logger"
	"triage/internal/matcher"
	"triage/internal/parser"
	"triage/internal/rules"
	pkgerrors "triage/pkg/errors"
	"triage/pkg/metrics"
	"triage/pkg/models"
	"triage/pkg/tracing"
)

const (
	sourceSingle = "single"
	sourceImport = "import"
)

type service struct {
	repo     Repository
	parser   RuleParser
	auditLog AuditLog
	events   RuleEventPublisher
	logger   logger.Logger

	settings   ParserSettings
	settingsMu sync.RWMutex
}

type ServiceOption func(*service)

func WithParser(p RuleParser) ServiceOption {
	return func(s *service) {
		s.parser = p
	}
}

func WithAuditLog(log AuditLog) ServiceOption {
	return func(s *service) {
		s.auditLog = log
	}
}

func WithRuleEvents(publisher RuleEventPublisher) ServiceOption {
	return func(s *service) {
		s.events = publisher
	}
}

func WithLogger(log logger.Logger) ServiceOption {
	return func(s *service) {
		s.logger = log
	}
}

func WithParserSettings(cfg config.ParserConfig) ServiceOption {
	return func(s *service) {
		action := rules.Action(cfg.DefaultAction)
		if !action.Valid() {
			action = rules.Action(constants.DefaultParserDefaultAction)
		}
		s.settings = ParserSettings{
			DefaultAction:     action,
			AIFallbackEnabled: cfg.AIFallbackEnabled,
		}
	}
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		logger: logger.NopLogger(),
		settings: ParserSettings{
			DefaultAction:     rules.Action(constants.DefaultParserDefaultAction),
			AIFallbackEnabled: true,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) ParseRule(ctx context.Context, req ParseRuleRequest) (*ParseRuleResponse, error) {
	if err := ValidateParseRequest(req); err != nil {
		return nil, validationError(err)
	}
	if s.parser == nil {
		return nil, pkgerrors.ErrInternal.WithMessage("rule parser not configured")
	}

	settings := s.currentSettings()
	opts := parser.Options{
		DefaultAction: settings.DefaultAction,
		DisableAI:     !settings.AIFallbackEnabled,
	}
	if req.DefaultAction != nil {
		opts.DefaultAction = *req.DefaultAction
	}

	result, err := s.parser.Parse(ctx, req.Text, opts)
	if err != nil {
		return nil, err
	}

	return &ParseRuleResponse{Rule: result.Rule, Strategy: result.Strategy}, nil
}

func (s *service) CreateRule(ctx context.Context, rec rules.RuleRecord) (*rules.Rule, error) {
	if err := rules.ValidateRecord(rec); err != nil {
		return nil, validationError(err)
	}

	rule := newRule(rules.Canonicalize(rec))
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrStore)
	}

	metrics.RulesCreatedTotal.WithLabelValues(sourceSingle, string(rule.Action)).Inc()
	s.recordRuleCreated(ctx, rule, sourceSingle)
	s.publishRuleEvent(ctx, models.ActionCreate, rule)

	created := *rule
	return &created, nil
}

// ImportRules validates every record before touching the store, collapses
// duplicates by canonical key and inserts the survivors in one transaction.
func (s *service) ImportRules(ctx context.Context, recs []rules.RuleRecord) ([]rules.Rule, error) {
	ctx, span := tracing.Start(ctx, tracing.TracerRules, "rules.Import")
	defer span.End()

	if len(recs) == 0 {
		return nil, pkgerrors.ErrValidation.WithMessage("no rules to import")
	}
	if err := rules.ValidateRecords(recs); err != nil {
		tracing.Fail(span, err)
		return nil, validationError(err)
	}

	unique := rules.Dedup(recs)
	if dupes := len(recs) - len(unique); dupes > 0 {
		metrics.RulesImportDuplicatesTotal.Add(float64(dupes))
	}
	span.SetAttributes(
		attribute.Int("rules.received", len(recs)),
		attribute.Int("rules.unique", len(unique)),
	)

	batch := make([]*rules.Rule, len(unique))
	for i, rec := range unique {
		batch[i] = newRule(rec)
	}

	if err := s.repo.CreateRules(ctx, batch); err != nil {
		tracing.Fail(span, err)
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrStore)
	}

	created := make([]rules.Rule, len(batch))
	for i, rule := range batch {
		metrics.RulesCreatedTotal.WithLabelValues(sourceImport, string(rule.Action)).Inc()
		s.recordRuleCreated(ctx, rule, sourceImport)
		s.publishRuleEvent(ctx, models.ActionCreate, rule)
		created[i] = *rule
	}

	return created, nil
}

func (s *service) DeleteRule(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return s.handleNotFoundError(err, id)
	}

	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return s.handleNotFoundError(err, id)
	}

	metrics.RulesDeletedTotal.WithLabelValues(string(rule.Action)).Inc()
	s.record(ctx, audit.Entry{
		Action:   audit.ActionRuleDeleted,
		Entity:   audit.EntityRule,
		EntityID: rule.ID,
		Details: map[string]interface{}{
			"type":    string(rule.Type),
			"pattern": rule.Pattern,
			"action":  string(rule.Action),
		},
	})
	s.publishRuleEvent(ctx, models.ActionDelete, rule)

	return nil
}

func (s *service) ListRules(ctx context.Context) ([]rules.Rule, error) {
	list, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrStore)
	}

	counts := map[rules.Action]int{rules.ActionVIP: 0, rules.ActionSuppress: 0}
	for _, r := range list {
		counts[r.Action]++
	}
	for action, n := range counts {
		metrics.SetActiveRules(string(action), n)
	}

	return list, nil
}

func (s *service) EvaluateSubject(ctx context.Context, req EvaluateRequest) (*EvaluateResponse, error) {
	list, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrStore)
	}

	subject := matcher.NewSubject(req.Participants, req.Title)
	suppress := matcher.Evaluate(subject, list)
	vip := matcher.EvaluateVIP(subject, list)
	metrics.IncMatcherDecision("api", suppress.Suppressed)

	return &EvaluateResponse{
		Subject:      subject,
		Suppressed:   suppress.Suppressed,
		VIP:          vip.VIP,
		SuppressedBy: suppress.FiredRule,
		VIPBy:        vip.FiredRule,
	}, nil
}

func (s *service) ListAuditEvents(ctx context.Context, query AuditQuery) ([]audit.Event, error) {
	if s.auditLog == nil {
		return nil, pkgerrors.ErrInternal.WithMessage("audit logging not enabled")
	}
	if query.Limit <= 0 || query.Limit > constants.MaxLimit {
		query.Limit = constants.DefaultLimit
	}

	events, err := s.auditLog.List(ctx, audit.Filter{
		EntityID: query.EntityID,
		Action:   audit.Action(query.Action),
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrStore)
	}
	return events, nil
}

func (s *service) GetParserSettings(ctx context.Context) (*ParserSettings, error) {
	settings := s.currentSettings()
	return &settings, nil
}

func (s *service) UpdateParserSettings(ctx context.Context, req UpdateParserSettingsRequest) (*ParserSettings, error) {
	if err := ValidateParserSettings(req); err != nil {
		return nil, validationError(err)
	}

	s.settingsMu.Lock()
	previous := s.settings
	if req.DefaultAction != nil {
		s.settings.DefaultAction = *req.DefaultAction
	}
	if req.AIFallbackEnabled != nil {
		s.settings.AIFallbackEnabled = *req.AIFallbackEnabled
	}
	updated := s.settings
	s.settingsMu.Unlock()

	s.record(ctx, audit.Entry{
		Action:   audit.ActionConfigUpdated,
		Entity:   audit.EntityConfig,
		EntityID: "parser",
		Details: map[string]interface{}{
			"old": settingsDetails(previous),
			"new": settingsDetails(updated),
		},
	})

	if s.events != nil {
		event := models.RuleEvent{
			EventType: models.EventTypeParserConfigUpdated,
			Action:    models.ActionUpdate,
			Timestamp: time.Now().UTC(),
			ChangedBy: audit.ActorFromContext(ctx),
		}
		if err := s.events.PublishRuleEvent(ctx, event); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to publish parser config event", "error", err)
		}
	}

	return &updated, nil
}

func (s *service) currentSettings() ParserSettings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

func (s *service) handleNotFoundError(err error, id string) error {
	if errors.Is(err, ErrRuleNotFound) {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrStore)
}

func (s *service) recordRuleCreated(ctx context.Context, rule *rules.Rule, source string) {
	details := map[string]interface{}{
		"type":    string(rule.Type),
		"pattern": rule.Pattern,
		"action":  string(rule.Action),
		"source":  source,
	}
	if rule.UnlessContains != nil {
		details["unless_contains"] = *rule.UnlessContains
	}
	s.record(ctx, audit.Entry{
		Action:   audit.ActionRuleCreated,
		Entity:   audit.EntityRule,
		EntityID: rule.ID,
		Details:  details,
	})
}

func (s *service) record(ctx context.Context, entry audit.Entry) {
	if s.auditLog == nil {
		return
	}
	s.auditLog.Record(ctx, entry)
}

func (s *service) publishRuleEvent(ctx context.Context, action string, rule *rules.Rule) {
	if s.events == nil {
		return
	}
	event := models.RuleEvent{
		EventType:  models.EventTypeRuleChanged,
		RuleID:     rule.ID,
		Action:     action,
		RuleType:   string(rule.Type),
		RuleAction: string(rule.Action),
		Timestamp:  time.Now().UTC(),
		ChangedBy:  audit.ActorFromContext(ctx),
	}
	if err := s.events.PublishRuleEvent(ctx, event); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish rule event", "error", err, "rule_id", rule.ID, "action", action)
	}
}

func newRule(rec rules.RuleRecord) *rules.Rule {
	return &rules.Rule{
		ID:             uuid.New().String(),
		Type:           rec.Type,
		Pattern:        rec.Pattern,
		Action:         rec.Action,
		UnlessContains: rec.UnlessContains,
		Notes:          rec.Notes,
		Confidence:     rec.Confidence,
	}
}

func validationError(err error) *pkgerrors.Error {
	return pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error())
}

func settingsDetails(s ParserSettings) map[string]interface{} {
	return map[string]interface{}{
		"default_action":      string(s.DefaultAction),
		"ai_fallback_enabled": s.AIFallbackEnabled,
	}
}
