package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"replyflow/internal/models"
)

const sequenceColumns = `id, tenant_id, name, is_active, is_default, steps, trigger_condition, created_at, updated_at`

type sequenceRepository struct {
	db *sql.DB
}

// NewSequenceRepository creates a new follow-up sequence repository
func NewSequenceRepository(db *sql.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func scanSequence(s scanner) (*models.FollowUpSequence, error) {
	sequence := &models.FollowUpSequence{}
	var steps []byte
	err := s.Scan(
		&sequence.ID,
		&sequence.TenantID,
		&sequence.Name,
		&sequence.IsActive,
		&sequence.IsDefault,
		&steps,
		&sequence.TriggerCondition,
		&sequence.CreatedAt,
		&sequence.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(steps, &sequence.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps of sequence %d: %w", sequence.ID, err)
	}
	return sequence, nil
}

// Create stores a sequence. A default sequence replaces the tenant's previous
// default within the same transaction.
func (r *sequenceRepository) Create(ctx context.Context, sequence *models.FollowUpSequence) error {
	steps, err := json.Marshal(sequence.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if sequence.IsDefault {
		_, err = tx.ExecContext(ctx, `
			UPDATE follow_up_sequences
			SET is_default = FALSE, updated_at = CURRENT_TIMESTAMP
			WHERE tenant_id = $1 AND is_default
		`, sequence.TenantID)
		if err != nil {
			return fmt.Errorf("failed to clear previous default: %w", err)
		}
	}

	query := `
		INSERT INTO follow_up_sequences (tenant_id, name, is_active, is_default, steps, trigger_condition)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRowContext(
		ctx,
		query,
		sequence.TenantID,
		sequence.Name,
		sequence.IsActive,
		sequence.IsDefault,
		steps,
		sequence.TriggerCondition,
	).Scan(&sequence.ID, &sequence.CreatedAt, &sequence.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sequence: %w", err)
	}

	return nil
}

// GetByID retrieves a sequence by ID
func (r *sequenceRepository) GetByID(ctx context.Context, id int) (*models.FollowUpSequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM follow_up_sequences WHERE id = $1`

	sequence, err := scanSequence(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}

	return sequence, nil
}

// GetDefault retrieves the tenant's default sequence
func (r *sequenceRepository) GetDefault(ctx context.Context, tenantID int) (*models.FollowUpSequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM follow_up_sequences WHERE tenant_id = $1 AND is_default`

	sequence, err := scanSequence(r.db.QueryRowContext(ctx, query, tenantID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default sequence: %w", err)
	}

	return sequence, nil
}
