package repository

import (
	"context"
	"database/sql"
	"fmt"

	"replyflow/internal/models"
)

type instanceRepository struct {
	db *sql.DB
}

// NewInstanceRepository creates a new gateway instance repository
func NewInstanceRepository(db *sql.DB) InstanceRepository {
	return &instanceRepository{db: db}
}

// Create registers a gateway session for a tenant
func (r *instanceRepository) Create(ctx context.Context, instance *models.Instance) error {
	query := `
		INSERT INTO instances (id, tenant_id, status)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, instance.ID, instance.TenantID, instance.Status).
		Scan(&instance.CreatedAt, &instance.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}

	return nil
}

// GetByID retrieves an instance by its session name
func (r *instanceRepository) GetByID(ctx context.Context, id string) (*models.Instance, error) {
	query := `
		SELECT id, tenant_id, status, created_at, updated_at
		FROM instances
		WHERE id = $1
	`

	instance := &models.Instance{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&instance.ID,
		&instance.TenantID,
		&instance.Status,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return instance, nil
}

// GetForTenant returns the tenant's sending instance, preferring a working one
func (r *instanceRepository) GetForTenant(ctx context.Context, tenantID int) (*models.Instance, error) {
	query := `
		SELECT id, tenant_id, status, created_at, updated_at
		FROM instances
		WHERE tenant_id = $1
		ORDER BY (status = 'WORKING') DESC, updated_at DESC
		LIMIT 1
	`

	instance := &models.Instance{}
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&instance.ID,
		&instance.TenantID,
		&instance.Status,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant instance: %w", err)
	}

	return instance, nil
}

// UpdateStatus records the latest session status reported by the gateway
func (r *instanceRepository) UpdateStatus(ctx context.Context, id string, status models.InstanceStatus) error {
	query := `
		UPDATE instances
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update instance status: %w", err)
	}

	return expectOneRow(result)
}

// Delete removes an instance
func (r *instanceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM instances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete instance: %w", err)
	}

	return expectOneRow(result)
}
