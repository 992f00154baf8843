package rules

import (
	"fmt"
	"strings"
)

// ValidateRecord checks a record against the wire schema. It does not mutate rec.
func ValidateRecord(rec RuleRecord) error {
	if !rec.Type.Valid() {
		return fmt.Errorf("invalid type: %q. Allowed: EMAIL, DOMAIN, TOPIC", rec.Type)
	}
	if !rec.Action.Valid() {
		return fmt.Errorf("invalid action: %q. Allowed: VIP, SUPPRESS", rec.Action)
	}

	pattern := Normalize(rec.Type, rec.Pattern)
	if pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	switch rec.Type {
	case TypeEmail:
		at := strings.LastIndex(pattern, "@")
		if at <= 0 || at == len(pattern)-1 {
			return fmt.Errorf("pattern %q is not an email address", pattern)
		}
	case TypeDomain:
		if strings.Contains(pattern, "@") {
			return fmt.Errorf("pattern %q is not a domain", pattern)
		}
	}

	if rec.Confidence != nil && (*rec.Confidence < 0 || *rec.Confidence > 1) {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	return nil
}

// ValidateRecords validates every record and reports the index of the first failure.
func ValidateRecords(recs []RuleRecord) error {
	for i, rec := range recs {
		if err := ValidateRecord(rec); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return nil
}
