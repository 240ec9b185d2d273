package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"replyflow/internal/models"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// ErrLimitExceeded is returned when a guarded counter update would pass its cap
var ErrLimitExceeded = errors.New("limit exceeded")

// ErrStaleState is returned when a guarded update no longer matches the row
var ErrStaleState = errors.New("stale state")

// TenantRepository defines tenant and credit data access operations
type TenantRepository interface {
	GetByID(ctx context.Context, id int) (*models.Tenant, error)
	GetContext(ctx context.Context, id int) (*models.TenantContext, error)
	IncrementCreditsUsed(ctx context.Context, id int, cost int) (int, error)
	RollExpiredPeriods(ctx context.Context, now time.Time) (int64, error)
}

// ContactRepository defines contact data access operations
type ContactRepository interface {
	GetByID(ctx context.Context, id int) (*models.Contact, error)
	GetByIDs(ctx context.Context, ids []int) ([]*models.Contact, error)
	FindOrCreateByPhone(ctx context.Context, tenantID int, phone string, name *string) (*models.Contact, error)
	UpdateStatus(ctx context.Context, id int, status models.ContactStatus) error
	ActivateIfNew(ctx context.Context, id int) (bool, error)
	SetHandoff(ctx context.Context, id int, requested bool) error
	SetFollowUp(ctx context.Context, id int, sequenceID int, step int, nextAt time.Time) error
	AdvanceFollowUp(ctx context.Context, id int, sequenceID int, fromStep int, nextStep int, lastAt time.Time, nextAt time.Time) error
	ClearFollowUp(ctx context.Context, id int) error
	ClearFollowUpIf(ctx context.Context, id int, sequenceID int, step int) error
	ListDueFollowUps(ctx context.Context, tenantID *int, now time.Time, limit int) ([]*models.Contact, error)
}

// SequenceRepository defines follow-up sequence data access operations
type SequenceRepository interface {
	Create(ctx context.Context, sequence *models.FollowUpSequence) error
	GetByID(ctx context.Context, id int) (*models.FollowUpSequence, error)
	GetDefault(ctx context.Context, tenantID int) (*models.FollowUpSequence, error)
}

// CampaignRepository defines campaign data access operations
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id int) (*models.Campaign, error)
	TransitionStatus(ctx context.Context, id int, from, to models.CampaignStatus) error
	IncrementSentCount(ctx context.Context, id int) error
}

// InteractionRepository defines the append-only interaction log
type InteractionRepository interface {
	Create(ctx context.Context, interaction *models.Interaction) error
	CreateInbound(ctx context.Context, interaction *models.Interaction) (bool, error)
	ListRecent(ctx context.Context, contactID int, excludeID string, limit int) ([]*models.Interaction, error)
}

// QuickReplyRepository defines knowledge snippet access
type QuickReplyRepository interface {
	ListActive(ctx context.Context, tenantID int) ([]*models.QuickReply, error)
}

// InstanceRepository defines gateway session data access operations
type InstanceRepository interface {
	Create(ctx context.Context, instance *models.Instance) error
	GetByID(ctx context.Context, id string) (*models.Instance, error)
	GetForTenant(ctx context.Context, tenantID int) (*models.Instance, error)
	UpdateStatus(ctx context.Context, id string, status models.InstanceStatus) error
	Delete(ctx context.Context, id string) error
}

// TaskRepository persists the step cursor of durable workflow tasks
type TaskRepository interface {
	Begin(ctx context.Context, id, kind string) (*models.TaskRecord, error)
	SaveStep(ctx context.Context, id, step string, output json.RawMessage) error
	Finish(ctx context.Context, id string, status models.TaskStatus, reason string) error
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// expectOneRow maps a zero RowsAffected to ErrNotFound
func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
