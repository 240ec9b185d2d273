package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"replyflow/internal/models"
)

type tenantRepository struct {
	db *sql.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *sql.DB) TenantRepository {
	return &tenantRepository{db: db}
}

// GetByID retrieves a tenant with its credit window
func (r *tenantRepository) GetByID(ctx context.Context, id int) (*models.Tenant, error) {
	query := `
		SELECT id, name, period_start, period_end, credits_used, credits_limit, created_at
		FROM tenants
		WHERE id = $1
	`

	tenant := &models.Tenant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.PeriodStart,
		&tenant.PeriodEnd,
		&tenant.CreditsUsed,
		&tenant.CreditsLimit,
		&tenant.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return tenant, nil
}

// GetContext loads the settings snapshot used by workflow tasks
func (r *tenantRepository) GetContext(ctx context.Context, id int) (*models.TenantContext, error) {
	query := `
		SELECT id, name, auto_reply_enabled, follow_up_enabled,
			COALESCE(persona, ''), COALESCE(ai_model, ''), ai_temperature
		FROM tenants
		WHERE id = $1
	`

	tc := &models.TenantContext{}
	var temperature sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tc.TenantID,
		&tc.BusinessName,
		&tc.AutoReplyEnabled,
		&tc.FollowUpEnabled,
		&tc.Persona,
		&tc.Model,
		&temperature,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant context: %w", err)
	}
	if temperature.Valid {
		tc.Temperature = &temperature.Float64
	}

	return tc, nil
}

// IncrementCreditsUsed atomically consumes cost credits.
// The update never lets credits_used pass credits_limit.
func (r *tenantRepository) IncrementCreditsUsed(ctx context.Context, id int, cost int) (int, error) {
	query := `
		UPDATE tenants
		SET credits_used = credits_used + $2
		WHERE id = $1 AND credits_used + $2 <= credits_limit
		RETURNING credits_used
	`

	var used int
	err := r.db.QueryRowContext(ctx, query, id, cost).Scan(&used)
	if err == nil {
		return used, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to increment credits: %w", err)
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tenants WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check tenant: %w", err)
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, ErrLimitExceeded
}

// RollExpiredPeriods starts a fresh credit window for tenants whose period ended
func (r *tenantRepository) RollExpiredPeriods(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE tenants
		SET credits_used = 0,
			period_start = period_end,
			period_end = period_end + (period_end - period_start)
		WHERE period_end <= $1
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to roll credit periods: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}
