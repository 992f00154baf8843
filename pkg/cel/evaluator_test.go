package cel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateConstraintExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid membership check",
			expr:      `record.type in ["EMAIL", "DOMAIN"]`,
			wantError: false,
		},
		{
			name:      "non-bool result",
			expr:      `record.pattern`,
			wantError: true,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `payload == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateConstraintExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompileSchema_RejectsBadConstraint(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.CompileSchema([]Constraint{{Name: "broken", Expression: `record.`}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRuleRecordConstraints(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	schema, err := eval.CompileSchema(RuleRecordConstraints)
	require.NoError(t, err)
	assert.Equal(t, len(RuleRecordConstraints), schema.Len())

	tests := []struct {
		name          string
		record        map[string]interface{}
		wantViolation string
	}{
		{
			name:   "minimal valid record",
			record: map[string]interface{}{"type": "DOMAIN", "pattern": "acme.com", "action": "SUPPRESS"},
		},
		{
			name: "full valid record",
			record: map[string]interface{}{
				"type": "TOPIC", "pattern": "invoice", "action": "SUPPRESS",
				"unless_contains": "urgent", "notes": nil, "confidence": 0.8,
			},
		},
		{
			name:          "unknown key",
			record:        map[string]interface{}{"type": "EMAIL", "pattern": "a@b.com", "action": "VIP", "priority": 1.0},
			wantViolation: "known_fields",
		},
		{
			name:          "missing type",
			record:        map[string]interface{}{"pattern": "a@b.com", "action": "VIP"},
			wantViolation: "type_enum",
		},
		{
			name:          "lowercase type",
			record:        map[string]interface{}{"type": "email", "pattern": "a@b.com", "action": "VIP"},
			wantViolation: "type_enum",
		},
		{
			name:          "blank pattern",
			record:        map[string]interface{}{"type": "TOPIC", "pattern": "   ", "action": "VIP"},
			wantViolation: "pattern_non_empty",
		},
		{
			name:          "numeric pattern",
			record:        map[string]interface{}{"type": "TOPIC", "pattern": 42.0, "action": "VIP"},
			wantViolation: "pattern_non_empty",
		},
		{
			name:          "bad action",
			record:        map[string]interface{}{"type": "TOPIC", "pattern": "x", "action": "BLOCK"},
			wantViolation: "action_enum",
		},
		{
			name:          "non-string exception",
			record:        map[string]interface{}{"type": "TOPIC", "pattern": "x", "action": "VIP", "unless_contains": true},
			wantViolation: "unless_contains_string",
		},
		{
			name:          "confidence above range",
			record:        map[string]interface{}{"type": "TOPIC", "pattern": "x", "action": "VIP", "confidence": 1.5},
			wantViolation: "confidence_range",
		},
		{
			name:          "confidence as string",
			record:        map[string]interface{}{"type": "TOPIC", "pattern": "x", "action": "VIP", "confidence": "high"},
			wantViolation: "confidence_range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Check(context.Background(), tt.record)
			if tt.wantViolation == "" {
				assert.NoError(t, err)
				return
			}

			var violation *ViolationError
			require.True(t, errors.As(err, &violation), "expected ViolationError, got %v", err)
			assert.Equal(t, tt.wantViolation, violation.Constraint)
		})
	}
}
