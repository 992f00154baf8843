package sweep

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"triage/internal/matcher"
	"triage/internal/rules"
	"triage/pkg/metrics"
)

const metricsService = "sweep-service"

type RuleSource interface {
	ListRulesByAction(ctx context.Context, action rules.Action) ([]rules.Rule, error)
}

type TaskRepository interface {
	ListTasks(ctx context.Context) ([]Task, error)
	// DeleteTask reports false when the task was already gone.
	DeleteTask(ctx context.Context, id string) (bool, error)
}

type PostgresTaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func (r *PostgresTaskRepository) ListTasks(ctx context.Context) ([]Task, error) {
	query := `
		SELECT t.id, t.thread_id, th.participants, th.subject
		FROM tasks t
		JOIN threads th ON th.id = t.thread_id
	`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	metrics.ObserveDatabaseQuery(metricsService, "postgres", "list_tasks", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		var (
			task         Task
			participants sql.NullString
			title        sql.NullString
		)
		if err := rows.Scan(&task.ID, &task.ThreadID, &participants, &title); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		task.Subject = matcher.NewSubject(participants.String, title.String)
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

func (r *PostgresTaskRepository) DeleteTask(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	metrics.ObserveDatabaseQuery(metricsService, "postgres", "delete_task", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to delete task %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
