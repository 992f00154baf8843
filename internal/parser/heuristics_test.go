package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"triage/internal/rules"
)

func TestApplyHeuristics(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantNeedsAI bool
		wantType    rules.RuleType
		wantPattern string
	}{
		{"bare email", "  Boss@Corp.com ", false, rules.TypeEmail, "boss@corp.com"},
		{"bare domain", "Acme.COM", false, rules.TypeDomain, "acme.com"},
		{"at domain", "@newsletters.example.org", false, rules.TypeDomain, "newsletters.example.org"},
		{"domain in sentence", "ignore everyone from acme.com", false, rules.TypeDomain, "acme.com"},
		{"domain with trailing period", "Suppress anything sent by acme.com.", false, rules.TypeDomain, "acme.com"},
		{"email in sentence", "always show mail from (ceo@corp.com), please", false, rules.TypeEmail, "ceo@corp.com"},
		{"email wins over its own domain", "mute noreply@acme.com and acme.io", false, rules.TypeEmail, "noreply@acme.com"},
		{"domain with unless", "ignore acme.com unless urgent", true, "", ""},
		{"domain with except", "mute everything from acme.com except invoices", true, "", ""},
		{"email with unless", "suppress boss@corp.com unless it says urgent", true, "", ""},
		{"negated domain", "do not hide acme.com", true, "", ""},
		{"contraction", "don't mute acme.com", true, "", ""},
		{"restricted email", "only show ceo@corp.com, nothing else", true, "", ""},
		{"qualifier casing", "Ignore acme.com UNLESS urgent", true, "", ""},
		{"same email twice", "vip@x.com and again vip@x.com", false, rules.TypeEmail, "vip@x.com"},
		{"two emails", "a@x.com or b@y.com", true, "", ""},
		{"two domains", "acme.com and globex.com", true, "", ""},
		{"topic only", "hide anything about invoices unless urgent", true, "", ""},
		{"file name is not a domain", "ignore anything with report.pdf attached", true, "", ""},
		{"empty", "   ", true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyHeuristics(tt.text, rules.ActionSuppress)
			assert.Equal(t, tt.wantNeedsAI, got.NeedsAI)
			assert.Equal(t, rules.ActionSuppress, got.Rule.Action)
			if !tt.wantNeedsAI {
				assert.Equal(t, tt.wantType, got.Rule.Type)
				assert.Equal(t, tt.wantPattern, got.Rule.Pattern)
			}
		})
	}
}

func TestApplyHeuristics_Deterministic(t *testing.T) {
	text := "ignore everyone from acme.com"
	assert.Equal(t, ApplyHeuristics(text, rules.ActionVIP), ApplyHeuristics(text, rules.ActionVIP))
}
