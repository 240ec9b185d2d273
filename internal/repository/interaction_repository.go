package repository

import (
	"context"
	"database/sql"
	"fmt"

	"replyflow/internal/models"

	"github.com/google/uuid"
)

type interactionRepository struct {
	db *sql.DB
}

// NewInteractionRepository creates a new interaction log repository.
// The log is append-only: rows are never updated or deleted.
func NewInteractionRepository(db *sql.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

// Create appends an interaction, assigning a UUID when ID is empty
func (r *interactionRepository) Create(ctx context.Context, interaction *models.Interaction) error {
	if interaction.ID == "" {
		interaction.ID = uuid.NewString()
	}

	query := `
		INSERT INTO interactions (id, contact_id, tenant_id, type, content, source, step_index, campaign_id, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		interaction.ID,
		interaction.ContactID,
		interaction.TenantID,
		interaction.Type,
		interaction.Content,
		interaction.Source,
		interaction.StepIndex,
		interaction.CampaignID,
		interaction.ExternalID,
	).Scan(&interaction.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create interaction: %w", err)
	}

	return nil
}

// CreateInbound logs a customer message once per gateway message id. A repeat
// delivery loads the existing row into interaction and reports created=false.
func (r *interactionRepository) CreateInbound(ctx context.Context, interaction *models.Interaction) (bool, error) {
	if interaction.ExternalID == nil {
		return true, r.Create(ctx, interaction)
	}
	if interaction.ID == "" {
		interaction.ID = uuid.NewString()
	}
	interaction.Type = models.InteractionInbound

	query := `
		INSERT INTO interactions (id, contact_id, tenant_id, type, content, source, step_index, campaign_id, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, external_id) WHERE type = 'inbound' DO NOTHING
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		interaction.ID,
		interaction.ContactID,
		interaction.TenantID,
		interaction.Type,
		interaction.Content,
		interaction.Source,
		interaction.StepIndex,
		interaction.CampaignID,
		interaction.ExternalID,
	).Scan(&interaction.CreatedAt)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to create inbound interaction: %w", err)
	}

	query = `
		SELECT id, created_at
		FROM interactions
		WHERE tenant_id = $1 AND external_id = $2 AND type = 'inbound'
	`
	err = r.db.QueryRowContext(ctx, query, interaction.TenantID, interaction.ExternalID).
		Scan(&interaction.ID, &interaction.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to load logged inbound interaction: %w", err)
	}

	return false, nil
}

// ListRecent returns up to limit of the contact's latest interactions in
// chronological order, leaving out excludeID when it is set.
func (r *interactionRepository) ListRecent(ctx context.Context, contactID int, excludeID string, limit int) ([]*models.Interaction, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, contact_id, tenant_id, type, content, source, step_index, campaign_id, external_id, created_at
		FROM interactions
		WHERE contact_id = $1 AND ($2 = '' OR id::TEXT <> $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, contactID, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	interactions := []*models.Interaction{}
	for rows.Next() {
		interaction := &models.Interaction{}
		err := rows.Scan(
			&interaction.ID,
			&interaction.ContactID,
			&interaction.TenantID,
			&interaction.Type,
			&interaction.Content,
			&interaction.Source,
			&interaction.StepIndex,
			&interaction.CampaignID,
			&interaction.ExternalID,
			&interaction.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, interaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}

	// newest first from the query; callers want oldest first
	for i, j := 0, len(interactions)-1; i < j; i, j = i+1, j-1 {
		interactions[i], interactions[j] = interactions[j], interactions[i]
	}

	return interactions, nil
}
