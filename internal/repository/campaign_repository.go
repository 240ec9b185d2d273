package repository

import (
	"context"
	"database/sql"
	"fmt"

	"replyflow/internal/models"

	"github.com/lib/pq"
)

type campaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

// Create creates a new campaign
func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO campaigns (tenant_id, instance_id, name, message, contact_ids, status, total_contacts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, sent_count, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		campaign.TenantID,
		campaign.InstanceID,
		campaign.Name,
		campaign.Message,
		pq.Array(campaign.ContactIDs),
		campaign.Status,
		campaign.TotalContacts,
	).Scan(&campaign.ID, &campaign.SentCount, &campaign.CreatedAt, &campaign.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign by ID
func (r *campaignRepository) GetByID(ctx context.Context, id int) (*models.Campaign, error) {
	query := `
		SELECT id, tenant_id, instance_id, name, message, contact_ids, status,
			sent_count, total_contacts, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`

	campaign := &models.Campaign{}
	var contactIDs pq.Int64Array
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&campaign.ID,
		&campaign.TenantID,
		&campaign.InstanceID,
		&campaign.Name,
		&campaign.Message,
		&contactIDs,
		&campaign.Status,
		&campaign.SentCount,
		&campaign.TotalContacts,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	campaign.ContactIDs = make([]int, len(contactIDs))
	for i, id := range contactIDs {
		campaign.ContactIDs[i] = int(id)
	}

	return campaign, nil
}

// TransitionStatus moves a campaign from one status to the next.
// It returns ErrStaleState when the campaign is no longer in from.
func (r *campaignRepository) TransitionStatus(ctx context.Context, id int, from, to models.CampaignStatus) error {
	query := `
		UPDATE campaigns
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}

	if err := expectOneRow(result); err != nil {
		if err == ErrNotFound {
			return ErrStaleState
		}
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	return nil
}

// IncrementSentCount bumps sent_count, never past total_contacts
func (r *campaignRepository) IncrementSentCount(ctx context.Context, id int) error {
	query := `
		UPDATE campaigns
		SET sent_count = sent_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND sent_count < total_contacts
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment sent count: %w", err)
	}

	if err := expectOneRow(result); err != nil {
		if err == ErrNotFound {
			return ErrLimitExceeded
		}
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	return nil
}
