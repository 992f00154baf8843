package management

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/audit"
	"triage/internal/config"
	"triage/internal/logger"
	"triage/internal/parser"
	"triage/internal/rules"
	pkgerrors "triage/pkg/errors"
	"triage/pkg/logging"
	"triage/pkg/models"
)

func newTestService(repo Repository, opts ...ServiceOption) (*service, *fakeAuditLog, *fakePublisher) {
	auditLog := &fakeAuditLog{}
	events := &fakePublisher{}
	all := append([]ServiceOption{WithAuditLog(auditLog), WithRuleEvents(events)}, opts...)
	return NewService(repo, all...).(*service), auditLog, events
}

func TestCreateRule(t *testing.T) {
	ctx := logging.WithActor(context.Background(), "user-42")
	repo := newFakeRepository()
	svc, auditLog, events := newTestService(repo)

	rule, err := svc.CreateRule(ctx, rules.RuleRecord{
		Type:           rules.TypeDomain,
		Pattern:        "  @Acme.COM ",
		Action:         rules.ActionSuppress,
		UnlessContains: strPtr(" URGENT "),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "acme.com", rule.Pattern)
	require.NotNil(t, rule.UnlessContains)
	assert.Equal(t, "urgent", *rule.UnlessContains)

	stored, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme.com", stored.Pattern)

	assert.Equal(t, []audit.Action{audit.ActionRuleCreated}, auditLog.actions())
	require.Len(t, events.events, 1)
	assert.Equal(t, models.ActionCreate, events.events[0].Action)
	assert.Equal(t, "SUPPRESS", events.events[0].RuleAction)
	assert.Equal(t, "user-42", events.events[0].ChangedBy)
}

func TestAuditDetailsNeverHoldFullAddress(t *testing.T) {
	tests := []struct {
		address string
		masked  string
	}{
		{"jane.doe@acme.com", "ja***@acme.com"},
		{"jösé@example.com", "jö***@example.com"},
		{"jane@exämple.com", "ja***@exämple.com"},
		{"admin@localhost", "ad***@localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			store := &memoryAuditStore{}
			recorder := audit.NewRecorder(store, logger.NopLogger(), audit.WithWorkers(1))
			p, err := parser.NewParser(nil, parser.WithAuditRecorder(recorder))
			require.NoError(t, err)
			svc := NewService(newFakeRepository(), WithAuditLog(recorder), WithParser(p))
			ctx := context.Background()

			rule, err := svc.CreateRule(ctx, rules.RuleRecord{
				Type: rules.TypeEmail, Pattern: tt.address, Action: rules.ActionSuppress,
			})
			require.NoError(t, err)
			require.NoError(t, svc.DeleteRule(ctx, rule.ID))

			_, err = svc.ParseRule(ctx, ParseRuleRequest{Text: "suppress " + tt.address + " unless urgent"})
			assert.True(t, pkgerrors.IsParse(err))

			recorder.Close()
			events := store.snapshot()
			require.Len(t, events, 3)

			assert.Equal(t, audit.ActionRuleCreated, events[0].Action)
			assert.Equal(t, tt.masked, events[0].Details["pattern"])
			assert.Equal(t, audit.ActionRuleDeleted, events[1].Action)
			assert.Equal(t, tt.masked, events[1].Details["pattern"])
			assert.Equal(t, audit.ActionParserFallback, events[2].Action)
			assert.Equal(t, "suppress "+tt.masked+" unless urgent", events[2].Details["text"])

			for _, e := range events {
				for key, v := range e.Details {
					if s, ok := v.(string); ok {
						assert.NotContains(t, s, tt.address, "%s.%s", e.Action, key)
					}
				}
			}
		})
	}
}

func TestCreateRule_Validation(t *testing.T) {
	tests := []struct {
		name string
		rec  rules.RuleRecord
	}{
		{name: "unknown type", rec: rules.RuleRecord{Type: "PHONE", Pattern: "x", Action: rules.ActionVIP}},
		{name: "unknown action", rec: rules.RuleRecord{Type: rules.TypeTopic, Pattern: "x", Action: "BLOCK"}},
		{name: "blank pattern", rec: rules.RuleRecord{Type: rules.TypeTopic, Pattern: "   ", Action: rules.ActionVIP}},
		{name: "email without at", rec: rules.RuleRecord{Type: rules.TypeEmail, Pattern: "nobody", Action: rules.ActionVIP}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			svc, auditLog, _ := newTestService(repo)

			_, err := svc.CreateRule(context.Background(), tt.rec)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Equal(t, 0, repo.callCount())
			assert.Empty(t, auditLog.actions())
		})
	}
}

func TestCreateRule_StoreFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.createErr = errDatabaseDown
	svc, auditLog, events := newTestService(repo)

	_, err := svc.CreateRule(context.Background(), rules.RuleRecord{
		Type: rules.TypeEmail, Pattern: "a@b.com", Action: rules.ActionVIP,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStore(err))
	assert.Empty(t, auditLog.actions())
	assert.Empty(t, events.events)
}

func TestCreateRule_EventFailureDoesNotFail(t *testing.T) {
	repo := newFakeRepository()
	svc, _, events := newTestService(repo)
	events.err = errDatabaseDown

	_, err := svc.CreateRule(context.Background(), rules.RuleRecord{
		Type: rules.TypeEmail, Pattern: "a@b.com", Action: rules.ActionVIP,
	})
	require.NoError(t, err)
}

func TestImportRules_Dedup(t *testing.T) {
	repo := newFakeRepository()
	svc, auditLog, events := newTestService(repo)

	created, err := svc.ImportRules(context.Background(), []rules.RuleRecord{
		{Type: rules.TypeEmail, Pattern: "VIP@Example.com ", Action: rules.ActionSuppress},
		{Type: rules.TypeEmail, Pattern: " vip@example.com", Action: rules.ActionSuppress},
		{Type: rules.TypeTopic, Pattern: "invoice", Action: rules.ActionSuppress},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "vip@example.com", created[0].Pattern)

	all, err := repo.ListRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, auditLog.actions(), 2)
	assert.Len(t, events.events, 2)
}

func TestImportRules_EmptyNeverTouchesStore(t *testing.T) {
	repo := newFakeRepository()
	svc, _, _ := newTestService(repo)

	_, err := svc.ImportRules(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, 0, repo.callCount())
}

func TestImportRules_AllOrNothing(t *testing.T) {
	repo := newFakeRepository()
	svc, auditLog, _ := newTestService(repo)

	_, err := svc.ImportRules(context.Background(), []rules.RuleRecord{
		{Type: rules.TypeEmail, Pattern: "a@b.com", Action: rules.ActionVIP},
		{Type: rules.TypeTopic, Pattern: "", Action: rules.ActionVIP},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Contains(t, err.Error(), "rules[1]")
	assert.Equal(t, 0, repo.callCount())
	assert.Empty(t, auditLog.actions())
}

func TestImportRules_StoreFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.createErr = errDatabaseDown
	svc, auditLog, _ := newTestService(repo)

	_, err := svc.ImportRules(context.Background(), []rules.RuleRecord{
		{Type: rules.TypeEmail, Pattern: "a@b.com", Action: rules.ActionVIP},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStore(err))
	assert.Empty(t, auditLog.actions())
}

func TestDeleteRule(t *testing.T) {
	repo := newFakeRepository()
	svc, auditLog, events := newTestService(repo)
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, rules.RuleRecord{
		Type: rules.TypeEmail, Pattern: "jane.doe@acme.com", Action: rules.ActionSuppress,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRule(ctx, rule.ID))

	_, err = repo.GetRule(ctx, rule.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)

	assert.Equal(t, []audit.Action{audit.ActionRuleCreated, audit.ActionRuleDeleted}, auditLog.actions())
	deleted := auditLog.entries[1]
	assert.Equal(t, rule.ID, deleted.EntityID)
	assert.Equal(t, "EMAIL", deleted.Details["type"])
	assert.Equal(t, "SUPPRESS", deleted.Details["action"])
	require.Len(t, events.events, 2)
	assert.Equal(t, models.ActionDelete, events.events[1].Action)
}

func TestDeleteRule_NotFound(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "unknown uuid", id: "9f1c2f7e-5a42-4b8e-9a57-3f1e1c9a0b11"},
		{name: "malformed id", id: "not-a-uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			svc, auditLog, events := newTestService(repo)

			err := svc.DeleteRule(context.Background(), tt.id)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsNotFound(err))
			assert.Empty(t, auditLog.actions())
			assert.Empty(t, events.events)
		})
	}
}

func TestListRules_NewestFirst(t *testing.T) {
	repo := newFakeRepository()
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	first, err := svc.CreateRule(ctx, rules.RuleRecord{Type: rules.TypeTopic, Pattern: "first", Action: rules.ActionVIP})
	require.NoError(t, err)
	second, err := svc.CreateRule(ctx, rules.RuleRecord{Type: rules.TypeTopic, Pattern: "second", Action: rules.ActionVIP})
	require.NoError(t, err)

	list, err := svc.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestListRules_StoreFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.listErr = errDatabaseDown
	svc, _, _ := newTestService(repo)

	_, err := svc.ListRules(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStore(err))
}

func TestEvaluateSubject(t *testing.T) {
	repo := newFakeRepository()
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, rules.RuleRecord{
		Type: rules.TypeTopic, Pattern: "invoice", Action: rules.ActionSuppress, UnlessContains: strPtr("urgent"),
	})
	require.NoError(t, err)
	vip, err := svc.CreateRule(ctx, rules.RuleRecord{Type: rules.TypeDomain, Pattern: "acme.com", Action: rules.ActionVIP})
	require.NoError(t, err)

	tests := []struct {
		name           string
		req            EvaluateRequest
		wantSuppressed bool
		wantVIP        bool
	}{
		{
			name:           "suppressed by topic",
			req:            EvaluateRequest{Participants: `["Billing <billing@vendor.io>"]`, Title: "Your invoice is ready"},
			wantSuppressed: true,
		},
		{
			name: "exception keeps thread",
			req:  EvaluateRequest{Participants: `billing@vendor.io`, Title: "Invoice: urgent payment due"},
		},
		{
			name:    "vip domain",
			req:     EvaluateRequest{Participants: `"Jane" <jane@acme.com>`, Title: "Lunch?"},
			wantVIP: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.EvaluateSubject(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuppressed, resp.Suppressed)
			assert.Equal(t, tt.wantVIP, resp.VIP)
			if tt.wantSuppressed {
				require.NotNil(t, resp.SuppressedBy)
				assert.Equal(t, "invoice", resp.SuppressedBy.Pattern)
			} else {
				assert.Nil(t, resp.SuppressedBy)
			}
			if tt.wantVIP {
				require.NotNil(t, resp.VIPBy)
				assert.Equal(t, vip.ID, resp.VIPBy.ID)
			}
		})
	}
}

func TestParseRule_UsesSettings(t *testing.T) {
	p := &fakeParser{result: parser.Result{
		Rule:     rules.RuleRecord{Type: rules.TypeDomain, Pattern: "acme.com", Action: rules.ActionVIP},
		Strategy: "heuristic",
	}}
	svc, _, _ := newTestService(newFakeRepository(),
		WithParser(p),
		WithParserSettings(config.ParserConfig{DefaultAction: "VIP", AIFallbackEnabled: false}),
	)

	resp, err := svc.ParseRule(context.Background(), ParseRuleRequest{Text: "acme.com"})
	require.NoError(t, err)
	assert.Equal(t, "heuristic", resp.Strategy)
	assert.Equal(t, rules.ActionVIP, p.lastOpt.DefaultAction)
	assert.True(t, p.lastOpt.DisableAI)

	override := rules.ActionSuppress
	_, err = svc.ParseRule(context.Background(), ParseRuleRequest{Text: "acme.com", DefaultAction: &override})
	require.NoError(t, err)
	assert.Equal(t, rules.ActionSuppress, p.lastOpt.DefaultAction)
}

func TestParseRule_PropagatesParseError(t *testing.T) {
	p := &fakeParser{err: pkgerrors.ErrParse.WithMessage("inconclusive")}
	svc, _, _ := newTestService(newFakeRepository(), WithParser(p))

	_, err := svc.ParseRule(context.Background(), ParseRuleRequest{Text: "something vague"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsParse(err))
}

func TestParseRule_InvalidDefaultAction(t *testing.T) {
	p := &fakeParser{}
	svc, _, _ := newTestService(newFakeRepository(), WithParser(p))

	bad := rules.Action("BLOCK")
	_, err := svc.ParseRule(context.Background(), ParseRuleRequest{Text: "acme.com", DefaultAction: &bad})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestUpdateParserSettings(t *testing.T) {
	svc, auditLog, events := newTestService(newFakeRepository())
	ctx := context.Background()

	current, err := svc.GetParserSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, rules.ActionSuppress, current.DefaultAction)
	assert.True(t, current.AIFallbackEnabled)

	disabled := false
	updated, err := svc.UpdateParserSettings(ctx, UpdateParserSettingsRequest{AIFallbackEnabled: &disabled})
	require.NoError(t, err)
	assert.False(t, updated.AIFallbackEnabled)
	assert.Equal(t, rules.ActionSuppress, updated.DefaultAction)

	assert.Equal(t, []audit.Action{audit.ActionConfigUpdated}, auditLog.actions())
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventTypeParserConfigUpdated, events.events[0].EventType)

	_, err = svc.UpdateParserSettings(ctx, UpdateParserSettingsRequest{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestListAuditEvents(t *testing.T) {
	repo := newFakeRepository()
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, rules.RuleRecord{Type: rules.TypeTopic, Pattern: "promo", Action: rules.ActionSuppress})
	require.NoError(t, err)

	events, err := svc.ListAuditEvents(ctx, AuditQuery{Action: string(audit.ActionRuleCreated)})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	noAudit := NewService(repo)
	_, err = noAudit.ListAuditEvents(ctx, AuditQuery{})
	require.Error(t, err)
}
