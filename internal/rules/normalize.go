package rules

import (
	"strings"
	"unicode"
)

// Normalize returns the canonical form of pattern for the given rule type.
// It is idempotent: Normalize(t, Normalize(t, p)) == Normalize(t, p).
func Normalize(t RuleType, pattern string) string {
	p := strings.TrimSpace(pattern)
	switch t {
	case TypeDomain:
		// strip the whole leading run so "@@x.com" normalizes in one pass
		p = strings.TrimLeftFunc(p, func(r rune) bool {
			return r == '@' || unicode.IsSpace(r)
		})
	}
	return strings.ToLower(p)
}

// Canonicalize normalizes every comparable field of a record.
// UnlessContains is lowercased because it is compared against the lowercased title.
func Canonicalize(rec RuleRecord) RuleRecord {
	out := rec
	out.Pattern = Normalize(rec.Type, rec.Pattern)
	out.UnlessContains = canonicalOptional(rec.UnlessContains, true)
	out.Notes = canonicalOptional(rec.Notes, false)
	return out
}

func canonicalOptional(v *string, lower bool) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	if lower {
		s = strings.ToLower(s)
	}
	return &s
}
