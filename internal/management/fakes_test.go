package management

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"triage/internal/audit"
	"triage/internal/parser"
	"triage/internal/rules"
	"triage/pkg/models"
)

type fakeRepository struct {
	mu        sync.Mutex
	rules     map[string]rules.Rule
	calls     int
	createErr error
	listErr   error
	clock     time.Time
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		rules: make(map[string]rules.Rule),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeRepository) stamp(rule *rules.Rule) {
	r.clock = r.clock.Add(time.Second)
	rule.CreatedAt = r.clock
}

func (r *fakeRepository) CreateRule(ctx context.Context, rule *rules.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.createErr != nil {
		return r.createErr
	}
	r.stamp(rule)
	r.rules[rule.ID] = *rule
	return nil
}

func (r *fakeRepository) CreateRules(ctx context.Context, batch []*rules.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.createErr != nil {
		return r.createErr
	}
	for _, rule := range batch {
		r.stamp(rule)
		r.rules[rule.ID] = *rule
	}
	return nil
}

func (r *fakeRepository) GetRule(ctx context.Context, id string) (*rules.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	rule, ok := r.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return &rule, nil
}

func (r *fakeRepository) DeleteRule(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if _, ok := r.rules[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	delete(r.rules, id)
	return nil
}

func (r *fakeRepository) ListRules(ctx context.Context) ([]rules.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]rules.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepository) ListRulesByAction(ctx context.Context, action rules.Action) ([]rules.Rule, error) {
	all, err := r.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]rules.Rule, 0, len(all))
	for _, rule := range all {
		if rule.Action == action {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRepository) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeAuditLog struct {
	mu      sync.Mutex
	entries []audit.Entry
	listErr error
}

func (a *fakeAuditLog) Record(ctx context.Context, entry audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *fakeAuditLog) List(ctx context.Context, filter audit.Filter) ([]audit.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listErr != nil {
		return nil, a.listErr
	}
	var out []audit.Event
	for _, e := range a.entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, audit.Event{Action: e.Action, Entity: e.Entity, EntityID: e.EntityID, Details: e.Details})
	}
	return out, nil
}

func (a *fakeAuditLog) actions() []audit.Action {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Action, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

// memoryAuditStore backs a real audit.Recorder.
type memoryAuditStore struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *memoryAuditStore) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memoryAuditStore) List(ctx context.Context, filter audit.Filter) ([]audit.Event, error) {
	return s.snapshot(), nil
}

func (s *memoryAuditStore) snapshot() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.RuleEvent
	err    error
}

func (p *fakePublisher) PublishRuleEvent(ctx context.Context, event models.RuleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type fakeParser struct {
	result  parser.Result
	err     error
	lastOpt parser.Options
}

func (p *fakeParser) Parse(ctx context.Context, text string, opts parser.Options) (parser.Result, error) {
	p.lastOpt = opts
	return p.result, p.err
}

var errDatabaseDown = errors.New("connection refused")

func strPtr(s string) *string { return &s }
