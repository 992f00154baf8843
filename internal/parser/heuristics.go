package parser

import (
	"regexp"
	"strings"
	"unicode"

	"triage/internal/rules"
)

var (
	emailRe  = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)
	domainRe = regexp.MustCompile(`^@?(?:[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?\.)+[A-Za-z]{2,}$`)
)

// File extensions that look like top-level domains in free text.
var nonDomainSuffixes = map[string]bool{
	"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true, "ppt": true, "pptx": true,
	"png": true, "jpg": true, "jpeg": true, "gif": true, "txt": true, "csv": true, "zip": true,
	"html": true, "htm": true, "ics": true,
}

// Words that qualify a sender with a condition the heuristics cannot express
// (an exception, a negation or a restriction).
var qualifierWords = map[string]bool{
	"unless": true, "except": true, "excluding": true, "but": true,
	"not": true, "only": true, "without": true, "when": true, "if": true,
}

// HeuristicResult is the outcome of the deterministic parse. When NeedsAI is
// set, Rule is partial and must not be persisted.
type HeuristicResult struct {
	Rule    rules.RuleRecord
	NeedsAI bool
}

// ApplyHeuristics recognizes a single sender address or domain in text.
// It performs no I/O and is deterministic.
func ApplyHeuristics(text string, defaultAction rules.Action) HeuristicResult {
	trimmed := strings.TrimSpace(text)
	partial := HeuristicResult{
		Rule:    rules.RuleRecord{Action: defaultAction},
		NeedsAI: true,
	}
	if trimmed == "" {
		return partial
	}

	if isEmail(trimmed) {
		return resolved(rules.TypeEmail, trimmed, defaultAction)
	}
	if isDomain(trimmed) {
		return resolved(rules.TypeDomain, trimmed, defaultAction)
	}

	var emails, domains []string
	for _, token := range tokenize(trimmed) {
		switch {
		case isQualifier(token):
			return partial
		case isEmail(token):
			emails = appendUnique(emails, strings.ToLower(token))
		case isDomain(token):
			domains = appendUnique(domains, rules.Normalize(rules.TypeDomain, token))
		}
	}

	switch {
	case len(emails) == 1:
		return resolved(rules.TypeEmail, emails[0], defaultAction)
	case len(emails) == 0 && len(domains) == 1:
		return resolved(rules.TypeDomain, domains[0], defaultAction)
	default:
		return partial
	}
}

func resolved(t rules.RuleType, pattern string, action rules.Action) HeuristicResult {
	return HeuristicResult{
		Rule: rules.RuleRecord{
			Type:    t,
			Pattern: rules.Normalize(t, pattern),
			Action:  action,
		},
	}
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		t := strings.TrimRight(f, `.,;:!?"')]}>`)
		t = strings.TrimLeft(t, `"'([{<`)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func isQualifier(token string) bool {
	word := strings.ToLower(token)
	if qualifierWords[word] {
		return true
	}
	return strings.HasSuffix(word, "n't") || strings.HasSuffix(word, "n’t")
}

func isEmail(s string) bool {
	return emailRe.MatchString(s)
}

func isDomain(s string) bool {
	if !domainRe.MatchString(s) {
		return false
	}
	suffix := strings.ToLower(s[strings.LastIndex(s, ".")+1:])
	return !nonDomainSuffixes[suffix]
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
