package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"replyflow/internal/models"

	"github.com/lib/pq"
)

const contactColumns = `id, tenant_id, phone, name, status, follow_up_sequence_id, follow_up_step,
	last_follow_up_at, next_follow_up_at, handoff_requested, created_at, updated_at`

type contactRepository struct {
	db *sql.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *sql.DB) ContactRepository {
	return &contactRepository{db: db}
}

func scanContact(s scanner) (*models.Contact, error) {
	contact := &models.Contact{}
	err := s.Scan(
		&contact.ID,
		&contact.TenantID,
		&contact.Phone,
		&contact.Name,
		&contact.Status,
		&contact.FollowUpSequenceID,
		&contact.FollowUpStep,
		&contact.LastFollowUpAt,
		&contact.NextFollowUpAt,
		&contact.HandoffRequested,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// GetByID retrieves a contact by ID
func (r *contactRepository) GetByID(ctx context.Context, id int) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`

	contact, err := scanContact(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return contact, nil
}

// GetByIDs retrieves the contacts that still exist among ids
func (r *contactRepository) GetByIDs(ctx context.Context, ids []int) ([]*models.Contact, error) {
	if len(ids) == 0 {
		return []*models.Contact{}, nil
	}

	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*models.Contact{}
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, nil
}

// FindOrCreateByPhone returns the tenant's contact for phone, creating it as new
func (r *contactRepository) FindOrCreateByPhone(ctx context.Context, tenantID int, phone string, name *string) (*models.Contact, error) {
	query := `
		INSERT INTO contacts (tenant_id, phone, name, status)
		VALUES ($1, $2, $3, 'new')
		ON CONFLICT (tenant_id, phone)
		DO UPDATE SET name = COALESCE(contacts.name, EXCLUDED.name), updated_at = CURRENT_TIMESTAMP
		RETURNING ` + contactColumns

	contact, err := scanContact(r.db.QueryRowContext(ctx, query, tenantID, phone, name))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert contact: %w", err)
	}

	return contact, nil
}

// UpdateStatus updates contact status
func (r *contactRepository) UpdateStatus(ctx context.Context, id int, status models.ContactStatus) error {
	query := `
		UPDATE contacts
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update contact status: %w", err)
	}

	return expectOneRow(result)
}

// ActivateIfNew moves a contact from new to active; it reports whether it changed
func (r *contactRepository) ActivateIfNew(ctx context.Context, id int) (bool, error) {
	query := `
		UPDATE contacts
		SET status = 'active', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'new'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to activate contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// SetHandoff flags or unflags a contact for human handoff
func (r *contactRepository) SetHandoff(ctx context.Context, id int, requested bool) error {
	query := `
		UPDATE contacts
		SET handoff_requested = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, requested, id)
	if err != nil {
		return fmt.Errorf("failed to update handoff: %w", err)
	}

	return expectOneRow(result)
}

// SetFollowUp enrolls a contact in a sequence at the given step
func (r *contactRepository) SetFollowUp(ctx context.Context, id int, sequenceID int, step int, nextAt time.Time) error {
	query := `
		UPDATE contacts
		SET follow_up_sequence_id = $2,
			follow_up_step = $3,
			next_follow_up_at = $4,
			last_follow_up_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, sequenceID, step, nextAt)
	if err != nil {
		return fmt.Errorf("failed to set follow-up: %w", err)
	}

	return expectOneRow(result)
}

// AdvanceFollowUp moves the contact to nextStep only if it is still at fromStep of sequenceID
func (r *contactRepository) AdvanceFollowUp(ctx context.Context, id int, sequenceID int, fromStep int, nextStep int, lastAt time.Time, nextAt time.Time) error {
	query := `
		UPDATE contacts
		SET follow_up_step = $4,
			last_follow_up_at = $5,
			next_follow_up_at = $6,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND follow_up_sequence_id = $2 AND follow_up_step = $3
	`

	result, err := r.db.ExecContext(ctx, query, id, sequenceID, fromStep, nextStep, lastAt, nextAt)
	if err != nil {
		return fmt.Errorf("failed to advance follow-up: %w", err)
	}

	if err := expectOneRow(result); err != nil {
		if err == ErrNotFound {
			return ErrStaleState
		}
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return nil
}

// ClearFollowUp nulls all follow-up fields in one statement
func (r *contactRepository) ClearFollowUp(ctx context.Context, id int) error {
	query := `
		UPDATE contacts
		SET follow_up_sequence_id = NULL,
			follow_up_step = NULL,
			last_follow_up_at = NULL,
			next_follow_up_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to clear follow-up: %w", err)
	}

	return expectOneRow(result)
}

// ClearFollowUpIf clears follow-up fields only if the contact is still at step of sequenceID
func (r *contactRepository) ClearFollowUpIf(ctx context.Context, id int, sequenceID int, step int) error {
	query := `
		UPDATE contacts
		SET follow_up_sequence_id = NULL,
			follow_up_step = NULL,
			last_follow_up_at = NULL,
			next_follow_up_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND follow_up_sequence_id = $2 AND follow_up_step = $3
	`

	result, err := r.db.ExecContext(ctx, query, id, sequenceID, step)
	if err != nil {
		return fmt.Errorf("failed to clear follow-up: %w", err)
	}

	if err := expectOneRow(result); err != nil {
		if err == ErrNotFound {
			return ErrStaleState
		}
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return nil
}

// ListDueFollowUps returns enrolled contacts whose next follow-up is due.
// A nil tenantID scans every tenant.
func (r *contactRepository) ListDueFollowUps(ctx context.Context, tenantID *int, now time.Time, limit int) ([]*models.Contact, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + contactColumns + `
		FROM contacts
		WHERE follow_up_sequence_id IS NOT NULL
			AND next_follow_up_at <= $1
			AND ($2::INT IS NULL OR tenant_id = $2)
		ORDER BY next_follow_up_at ASC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, now, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due follow-ups: %w", err)
	}
	defer rows.Close()

	contacts := []*models.Contact{}
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, nil
}
