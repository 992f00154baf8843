package matcher

import (
	"strings"

	"triage/internal/rules"
)

// Decision is the outcome of evaluating a subject against a rule set.
// FiredRule is the first rule, in evaluation order, that matched without exception.
type Decision struct {
	Suppressed bool        `json:"suppressed"`
	VIP        bool        `json:"vip"`
	FiredRule  *rules.Rule `json:"fired_rule,omitempty"`
}

type normalizedSubject struct {
	email  string
	domain string
	title  string
}

func normalize(s Subject) normalizedSubject {
	email := strings.ToLower(strings.TrimSpace(s.SenderEmail))
	return normalizedSubject{
		email:  email,
		domain: DomainOf(email),
		title:  strings.ToLower(s.Title),
	}
}

// Evaluate decides suppression. Only SUPPRESS rules participate.
func Evaluate(subject Subject, ruleSet []rules.Rule) Decision {
	fired := firstMatch(normalize(subject), ruleSet, rules.ActionSuppress)
	return Decision{Suppressed: fired != nil, FiredRule: fired}
}

// EvaluateVIP applies the same predicate to VIP rules.
func EvaluateVIP(subject Subject, ruleSet []rules.Rule) Decision {
	fired := firstMatch(normalize(subject), ruleSet, rules.ActionVIP)
	return Decision{VIP: fired != nil, FiredRule: fired}
}

// Matches reports whether a single rule matches the subject, honoring its exception.
// The rule's action is not consulted.
func Matches(rule rules.Rule, subject Subject) bool {
	return matches(rule, normalize(subject))
}

func firstMatch(s normalizedSubject, ruleSet []rules.Rule, action rules.Action) *rules.Rule {
	for i := range ruleSet {
		if ruleSet[i].Action != action {
			continue
		}
		if matches(ruleSet[i], s) {
			r := ruleSet[i]
			return &r
		}
	}
	return nil
}

func matches(rule rules.Rule, s normalizedSubject) bool {
	if rule.Pattern == "" {
		return false
	}

	var hit bool
	switch rule.Type {
	case rules.TypeEmail:
		hit = s.email == rule.Pattern
	case rules.TypeDomain:
		hit = s.domain != "" && s.domain == rule.Pattern
	case rules.TypeTopic:
		hit = strings.Contains(s.title, rule.Pattern)
	}
	if !hit {
		return false
	}

	if rule.UnlessContains != nil && *rule.UnlessContains != "" &&
		strings.Contains(s.title, strings.ToLower(*rule.UnlessContains)) {
		return false
	}
	return true
}
