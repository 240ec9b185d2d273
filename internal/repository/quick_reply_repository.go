package repository

import (
	"context"
	"database/sql"
	"fmt"

	"replyflow/internal/models"
)

type quickReplyRepository struct {
	db *sql.DB
}

// NewQuickReplyRepository creates a new quick reply repository
func NewQuickReplyRepository(db *sql.DB) QuickReplyRepository {
	return &quickReplyRepository{db: db}
}

// ListActive returns the tenant's active quick replies ordered by label
func (r *quickReplyRepository) ListActive(ctx context.Context, tenantID int) ([]*models.QuickReply, error) {
	query := `
		SELECT id, tenant_id, label, content, is_active, created_at
		FROM quick_replies
		WHERE tenant_id = $1 AND is_active
		ORDER BY label ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quick replies: %w", err)
	}
	defer rows.Close()

	replies := []*models.QuickReply{}
	for rows.Next() {
		reply := &models.QuickReply{}
		if err := rows.Scan(&reply.ID, &reply.TenantID, &reply.Label, &reply.Content, &reply.IsActive, &reply.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quick reply: %w", err)
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quick replies: %w", err)
	}

	return replies, nil
}
