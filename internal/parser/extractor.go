package parser

import (
	"context"

	"triage/internal/rules"
)

// TextToRule turns free text into a raw rule record (JSON, optionally inside a
// Markdown code fence). Output is untrusted and is schema-validated by the Parser.
type TextToRule interface {
	Extract(ctx context.Context, text string, defaultAction rules.Action) (string, error)
}

// OutputSchema is sent to extractors that accept a schema hint.
const OutputSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["type", "pattern", "action"],
  "properties": {
    "type": {"enum": ["EMAIL", "DOMAIN", "TOPIC"]},
    "pattern": {"type": "string", "minLength": 1},
    "action": {"enum": ["VIP", "SUPPRESS"]},
    "unless_contains": {"type": ["string", "null"]},
    "notes": {"type": ["string", "null"]},
    "confidence": {"type": ["number", "null"], "minimum": 0, "maximum": 1}
  }
}`

// ExtractorFunc adapts a function to TextToRule.
type ExtractorFunc func(ctx context.Context, text string, defaultAction rules.Action) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, text string, defaultAction rules.Action) (string, error) {
	return f(ctx, text, defaultAction)
}
