package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DedupKey identifies a rule by its canonical tuple
// (type, pattern, action, unlessContains, notes). Confidence is provenance and is not part of it.
func DedupKey(rec RuleRecord) string {
	c := Canonicalize(rec)

	parts := []string{
		string(c.Type),
		c.Pattern,
		string(c.Action),
		optional(c.UnlessContains),
		optional(c.Notes),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Dedup keeps the first occurrence of every canonical tuple, preserving input order.
func Dedup(recs []RuleRecord) []RuleRecord {
	seen := make(map[string]struct{}, len(recs))
	out := make([]RuleRecord, 0, len(recs))
	for _, rec := range recs {
		key := DedupKey(rec)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Canonicalize(rec))
	}
	return out
}

func optional(v *string) string {
	if v == nil {
		return "\x00"
	}
	return *v
}
