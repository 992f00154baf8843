package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"triage/internal/audit"
	"triage/internal/constants"
	"triage/internal/logger"
	"triage/internal/rules"
	"triage/pkg/cel"
	pkgerrors "triage/pkg/errors"
	"triage/pkg/metrics"
	"triage/pkg/tracing"
)

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// outputCache is implemented by extractors that keep validated output.
type outputCache interface {
	Remember(ctx context.Context, text string, defaultAction rules.Action, output string)
}

type Options struct {
	DefaultAction rules.Action
	DisableAI     bool
}

type Result struct {
	Rule     rules.RuleRecord `json:"rule"`
	Strategy string           `json:"strategy"`
}

type Option func(*Parser)

func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(p *Parser) {
		p.audit = recorder
	}
}

func WithLogger(log logger.Logger) Option {
	return func(p *Parser) {
		p.logger = log
	}
}

// Parser runs heuristics first and escalates to the TextToRule extractor only
// when they are inconclusive.
type Parser struct {
	extractor TextToRule
	schema    *cel.Schema
	audit     AuditRecorder
	logger    logger.Logger
}

// NewParser accepts a nil extractor; AI fallback then always fails with a parse error.
func NewParser(extractor TextToRule, opts ...Option) (*Parser, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}
	schema, err := evaluator.CompileSchema(cel.RuleRecordConstraints)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rule schema: %w", err)
	}

	p := &Parser{
		extractor: extractor,
		schema:    schema,
		logger:    logger.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Parser) Parse(ctx context.Context, text string, opts Options) (Result, error) {
	ctx, span := tracing.Start(ctx, tracing.TracerParser, "parser.Parse")
	defer span.End()

	start := time.Now()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		metrics.IncParserRequest(constants.StrategyHeuristic, "error")
		return Result{}, parseError("rule text is empty", nil)
	}

	action, err := resolveDefaultAction(opts.DefaultAction)
	if err != nil {
		return Result{}, err
	}

	h := ApplyHeuristics(trimmed, action)
	if !h.NeedsAI {
		span.SetAttributes(attribute.String("parser.strategy", constants.StrategyHeuristic))
		metrics.IncParserRequest(constants.StrategyHeuristic, "success")
		metrics.ObserveParserDuration(constants.StrategyHeuristic, time.Since(start))
		return Result{Rule: h.Rule, Strategy: constants.StrategyHeuristic}, nil
	}

	span.SetAttributes(attribute.String("parser.strategy", constants.StrategyAI))
	metrics.FallbackUsageTotal.WithLabelValues("parser", constants.StrategyAI, "heuristics_inconclusive").Inc()
	if p.audit != nil {
		p.audit.Record(ctx, audit.Entry{
			Action: audit.ActionParserFallback,
			Entity: audit.EntityParser,
			Details: map[string]interface{}{
				"text":           trimmed,
				"default_action": string(action),
				"ai_enabled":     !opts.DisableAI && p.extractor != nil,
			},
		})
	}

	if opts.DisableAI || p.extractor == nil {
		metrics.IncParserRequest(constants.StrategyAI, "unavailable")
		err := parseError("heuristics were inconclusive and AI fallback is unavailable", nil)
		tracing.Fail(span, err)
		return Result{}, err
	}

	result, err := p.ParseRuleText(ctx, trimmed, Options{DefaultAction: action})
	metrics.ObserveParserDuration(constants.StrategyAI, time.Since(start))
	if err != nil {
		tracing.Fail(span, err)
		return Result{}, err
	}
	return result, nil
}

// ParseRuleText asks the extractor for a rule and validates its output.
func (p *Parser) ParseRuleText(ctx context.Context, text string, opts Options) (Result, error) {
	if p.extractor == nil {
		return Result{}, parseError("no text-to-rule extractor configured", nil)
	}

	action, err := resolveDefaultAction(opts.DefaultAction)
	if err != nil {
		return Result{}, err
	}

	raw, err := p.extractor.Extract(ctx, text, action)
	if err != nil {
		metrics.IncParserRequest(constants.StrategyAI, "error")
		p.logger.WarnwCtx(ctx, "Text-to-rule extraction failed", "error", err)

		var appErr *pkgerrors.Error
		if errors.As(err, &appErr) {
			return Result{}, appErr
		}
		return Result{}, parseError("text-to-rule extraction failed", err)
	}

	rec, err := decodeRecord(ctx, p.schema, raw)
	if err != nil {
		metrics.IncParserRequest(constants.StrategyAI, "invalid")
		p.logger.WarnwCtx(ctx, "Extractor output rejected", "error", err)
		return Result{}, err
	}
	if cache, ok := p.extractor.(outputCache); ok {
		cache.Remember(ctx, text, action, raw)
	}

	metrics.IncParserRequest(constants.StrategyAI, "success")
	return Result{Rule: rec, Strategy: constants.StrategyAI}, nil
}

func resolveDefaultAction(action rules.Action) (rules.Action, error) {
	if action == "" {
		return rules.Action(constants.DefaultParserDefaultAction), nil
	}
	if !action.Valid() {
		return "", pkgerrors.ErrValidation.WithMessage(fmt.Sprintf("invalid default action: %q", action))
	}
	return action, nil
}
