package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"triage/internal/rules"
	"triage/pkg/cel"
	pkgerrors "triage/pkg/errors"
)

var codeFenceRe = regexp.MustCompile("(?s)^```[A-Za-z]*\\s*(.*?)\\s*```$")

// stripCodeFence removes an optional Markdown code fence around model output.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// decodeRecord validates untrusted extractor output against the rule schema
// and returns a canonical record. Every failure is a parse error.
func decodeRecord(ctx context.Context, schema *cel.Schema, raw string) (rules.RuleRecord, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return rules.RuleRecord{}, parseError("extractor returned empty output", nil)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return rules.RuleRecord{}, parseError("extractor output is not a JSON object", err)
	}
	if fields == nil {
		return rules.RuleRecord{}, parseError("extractor output is not a JSON object", nil)
	}

	if err := schema.Check(ctx, fields); err != nil {
		var violation *cel.ViolationError
		if errors.As(err, &violation) {
			return rules.RuleRecord{}, parseError("extractor output failed schema", err).
				WithDetail("constraint", violation.Constraint)
		}
		return rules.RuleRecord{}, parseError("extractor output failed schema", err)
	}

	rec := rules.RuleRecord{
		Type:           rules.RuleType(fields["type"].(string)),
		Pattern:        fields["pattern"].(string),
		Action:         rules.Action(fields["action"].(string)),
		UnlessContains: optionalString(fields["unless_contains"]),
		Notes:          optionalString(fields["notes"]),
		Confidence:     optionalFloat(fields["confidence"]),
	}
	rec = rules.Canonicalize(rec)

	if err := rules.ValidateRecord(rec); err != nil {
		return rules.RuleRecord{}, parseError(fmt.Sprintf("extractor output is not a valid rule: %v", err), err)
	}
	return rec, nil
}

func optionalString(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func optionalFloat(v interface{}) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

func parseError(message string, cause error) *pkgerrors.Error {
	err := pkgerrors.ErrParse.WithMessage(message)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}
