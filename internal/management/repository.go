package management

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"triage/internal/rules"
	"triage/pkg/metrics"
)

const metricsService = "rules-service"

var ErrRuleNotFound = errors.New("rule not found")

type Repository interface {
	CreateRule(ctx context.Context, rule *rules.Rule) error
	CreateRules(ctx context.Context, batch []*rules.Rule) error
	GetRule(ctx context.Context, id string) (*rules.Rule, error)
	DeleteRule(ctx context.Context, id string) error
	ListRules(ctx context.Context) ([]rules.Rule, error)
	ListRulesByAction(ctx context.Context, action rules.Action) ([]rules.Rule, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

const insertRuleQuery = `
	INSERT INTO triage_rules (id, type, pattern, action, unless_contains, notes, confidence, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const selectRuleColumns = `id, type, pattern, action, unless_contains, notes, confidence, created_at`

func (r *PostgresRepository) CreateRule(ctx context.Context, rule *rules.Rule) (err error) {
	defer func(start time.Time) {
		metrics.ObserveDatabaseQuery(metricsService, "postgres", "create_rule", start, err)
	}(time.Now())

	if err := r.insert(ctx, r.db, rule); err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// CreateRules inserts the whole batch in one transaction; nothing is stored
// unless every insert succeeds.
func (r *PostgresRepository) CreateRules(ctx context.Context, batch []*rules.Rule) (err error) {
	defer func(start time.Time) {
		metrics.ObserveDatabaseQuery(metricsService, "postgres", "create_rules", start, err)
	}(time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, rule := range batch {
		if err := r.insert(ctx, tx, rule); err != nil {
			return fmt.Errorf("failed to create rule %d of %d: %w", i+1, len(batch), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rules: %w", err)
	}
	return nil
}

func (r *PostgresRepository) insert(ctx context.Context, db execer, rule *rules.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = r.now().UTC()
	}

	_, err := db.ExecContext(ctx, insertRuleQuery,
		rule.ID, string(rule.Type), rule.Pattern, string(rule.Action),
		nullString(rule.UnlessContains), nullString(rule.Notes), nullFloat(rule.Confidence),
		rule.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) GetRule(ctx context.Context, id string) (*rules.Rule, error) {
	query := `SELECT ` + selectRuleColumns + ` FROM triage_rules WHERE id = $1`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

func (r *PostgresRepository) DeleteRule(ctx context.Context, id string) error {
	start := time.Now()
	res, err := r.db.ExecContext(ctx, `DELETE FROM triage_rules WHERE id = $1`, id)
	metrics.ObserveDatabaseQuery(metricsService, "postgres", "delete_rule", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return nil
}

func (r *PostgresRepository) ListRules(ctx context.Context) ([]rules.Rule, error) {
	query := `SELECT ` + selectRuleColumns + ` FROM triage_rules ORDER BY created_at DESC, id`
	return r.list(ctx, query)
}

func (r *PostgresRepository) ListRulesByAction(ctx context.Context, action rules.Action) ([]rules.Rule, error) {
	query := `SELECT ` + selectRuleColumns + ` FROM triage_rules WHERE action = $1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, string(action))
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...interface{}) ([]rules.Rule, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	metrics.ObserveDatabaseQuery(metricsService, "postgres", "list_rules", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	result := make([]rules.Rule, 0)
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		result = append(result, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*rules.Rule, error) {
	var (
		rule           rules.Rule
		ruleType       string
		action         string
		unlessContains sql.NullString
		notes          sql.NullString
		confidence     sql.NullFloat64
	)
	if err := row.Scan(
		&rule.ID, &ruleType, &rule.Pattern, &action,
		&unlessContains, &notes, &confidence, &rule.CreatedAt,
	); err != nil {
		return nil, err
	}

	rule.Type = rules.RuleType(ruleType)
	rule.Action = rules.Action(action)
	if unlessContains.Valid {
		rule.UnlessContains = &unlessContains.String
	}
	if notes.Valid {
		rule.Notes = &notes.String
	}
	if confidence.Valid {
		rule.Confidence = &confidence.Float64
	}
	return &rule, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
