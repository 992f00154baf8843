package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/rules"
)

func strPtr(s string) *string { return &s }

func TestEvaluate(t *testing.T) {
	emailRule := rules.Rule{ID: "r-email", Type: rules.TypeEmail, Pattern: "vip@example.com", Action: rules.ActionSuppress}
	domainRule := rules.Rule{ID: "r-domain", Type: rules.TypeDomain, Pattern: "acme.com", Action: rules.ActionSuppress}
	topicRule := rules.Rule{
		ID: "r-topic", Type: rules.TypeTopic, Pattern: "invoice", Action: rules.ActionSuppress,
		UnlessContains: strPtr("urgent"),
	}
	vipRule := rules.Rule{ID: "r-vip", Type: rules.TypeDomain, Pattern: "example.com", Action: rules.ActionVIP}

	tests := []struct {
		name      string
		subject   Subject
		ruleSet   []rules.Rule
		wantSupp  bool
		wantFired string
	}{
		{
			name:      "email exact match",
			subject:   Subject{SenderEmail: "vip@example.com", Title: "hello"},
			ruleSet:   []rules.Rule{emailRule},
			wantSupp:  true,
			wantFired: "r-email",
		},
		{
			name:     "email other sender",
			subject:  Subject{SenderEmail: "other@example.com", Title: "hello"},
			ruleSet:  []rules.Rule{emailRule},
			wantSupp: false,
		},
		{
			name:      "domain match",
			subject:   Subject{SenderEmail: "billing@acme.com"},
			ruleSet:   []rules.Rule{domainRule},
			wantSupp:  true,
			wantFired: "r-domain",
		},
		{
			name:     "domain does not match subdomain",
			subject:  Subject{SenderEmail: "billing@mail.acme.com"},
			ruleSet:  []rules.Rule{domainRule},
			wantSupp: false,
		},
		{
			name:     "domain needs an at sign",
			subject:  Subject{SenderEmail: "acme.com"},
			ruleSet:  []rules.Rule{domainRule},
			wantSupp: false,
		},
		{
			name:      "topic substring is case-insensitive",
			subject:   Subject{Title: "Your INVOICE is ready"},
			ruleSet:   []rules.Rule{topicRule},
			wantSupp:  true,
			wantFired: "r-topic",
		},
		{
			name:     "topic exception wins",
			subject:  Subject{Title: "Invoice: urgent payment due"},
			ruleSet:  []rules.Rule{topicRule},
			wantSupp: false,
		},
		{
			name:     "vip rules never suppress",
			subject:  Subject{SenderEmail: "vip@example.com"},
			ruleSet:  []rules.Rule{vipRule},
			wantSupp: false,
		},
		{
			name:      "first matching rule is reported",
			subject:   Subject{SenderEmail: "billing@acme.com", Title: "invoice"},
			ruleSet:   []rules.Rule{vipRule, topicRule, domainRule},
			wantSupp:  true,
			wantFired: "r-topic",
		},
		{
			name:      "excepted rule does not stop later matches",
			subject:   Subject{SenderEmail: "billing@acme.com", Title: "urgent invoice"},
			ruleSet:   []rules.Rule{topicRule, domainRule},
			wantSupp:  true,
			wantFired: "r-domain",
		},
		{
			name:     "no rules",
			subject:  Subject{SenderEmail: "a@b.com"},
			wantSupp: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.subject, tt.ruleSet)
			assert.Equal(t, tt.wantSupp, got.Suppressed)
			if tt.wantFired == "" {
				assert.Nil(t, got.FiredRule)
				return
			}
			require.NotNil(t, got.FiredRule)
			assert.Equal(t, tt.wantFired, got.FiredRule.ID)
		})
	}
}

func TestEvaluateVIP(t *testing.T) {
	ruleSet := []rules.Rule{
		{ID: "s", Type: rules.TypeEmail, Pattern: "ceo@example.com", Action: rules.ActionSuppress},
		{ID: "v", Type: rules.TypeEmail, Pattern: "ceo@example.com", Action: rules.ActionVIP},
	}

	got := EvaluateVIP(NewSubject(`"CEO" <CEO@example.com>`, "Board meeting"), ruleSet)
	assert.True(t, got.VIP)
	assert.False(t, got.Suppressed)
	require.NotNil(t, got.FiredRule)
	assert.Equal(t, "v", got.FiredRule.ID)
}

func TestMatches_IgnoresAction(t *testing.T) {
	rule := rules.Rule{Type: rules.TypeTopic, Pattern: "newsletter", Action: rules.ActionVIP}
	assert.True(t, Matches(rule, Subject{Title: "Weekly Newsletter"}))
	assert.False(t, Matches(rules.Rule{Type: rules.TypeTopic, Action: rules.ActionVIP}, Subject{Title: "x"}))
}
