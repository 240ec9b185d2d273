package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"replyflow/internal/models"
)

type taskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a repository for workflow step cursors
func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Begin creates the task row or, on redelivery, loads it with every completed step output.
// Attempts only grows while the task is still running.
func (r *taskRepository) Begin(ctx context.Context, id, kind string) (*models.TaskRecord, error) {
	query := `
		INSERT INTO workflow_tasks (id, kind, status, attempts)
		VALUES ($1, $2, 'running', 1)
		ON CONFLICT (id) DO UPDATE SET
			attempts = CASE WHEN workflow_tasks.status = 'running'
				THEN workflow_tasks.attempts + 1 ELSE workflow_tasks.attempts END,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, kind, status, reason, last_completed_step, attempts, created_at, updated_at
	`

	task := &models.TaskRecord{}
	err := r.db.QueryRowContext(ctx, query, id, kind).Scan(
		&task.ID,
		&task.Kind,
		&task.Status,
		&task.Reason,
		&task.LastCompletedStep,
		&task.Attempts,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to begin task: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT step, output FROM workflow_steps WHERE task_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task steps: %w", err)
	}
	defer rows.Close()

	task.Steps = map[string]json.RawMessage{}
	for rows.Next() {
		var step string
		var output []byte
		if err := rows.Scan(&step, &output); err != nil {
			return nil, fmt.Errorf("failed to scan task step: %w", err)
		}
		task.Steps[step] = json.RawMessage(output)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task steps: %w", err)
	}

	return task, nil
}

// SaveStep checkpoints a step output and moves the task cursor in one statement
func (r *taskRepository) SaveStep(ctx context.Context, id, step string, output json.RawMessage) error {
	query := `
		WITH saved AS (
			INSERT INTO workflow_steps (task_id, step, output)
			VALUES ($1, $2, $3)
			ON CONFLICT (task_id, step) DO UPDATE SET output = EXCLUDED.output
		)
		UPDATE workflow_tasks
		SET last_completed_step = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, step, []byte(output))
	if err != nil {
		return fmt.Errorf("failed to save step %s: %w", step, err)
	}

	return expectOneRow(result)
}

// Finish records the final task status
func (r *taskRepository) Finish(ctx context.Context, id string, status models.TaskStatus, reason string) error {
	query := `
		UPDATE workflow_tasks
		SET status = $2, reason = NULLIF($3, ''), updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, reason)
	if err != nil {
		return fmt.Errorf("failed to finish task: %w", err)
	}

	return expectOneRow(result)
}
