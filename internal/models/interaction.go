package models

import "time"

// InteractionType is the direction of a logged message
type InteractionType string

const (
	InteractionInbound  InteractionType = "inbound"
	InteractionOutbound InteractionType = "outbound"
)

// InteractionSource records which workflow produced an interaction
type InteractionSource string

const (
	SourceCustomer InteractionSource = "customer"
	SourceAI       InteractionSource = "ai"
	SourceFollowUp InteractionSource = "followup"
	SourceCampaign InteractionSource = "campaign"
)

// Interaction is an append-only message log row
type Interaction struct {
	ID         string            `json:"id" db:"id"`
	ContactID  int               `json:"contact_id" db:"contact_id"`
	TenantID   int               `json:"tenant_id" db:"tenant_id"`
	Type       InteractionType   `json:"type" db:"type"`
	Content    string            `json:"content" db:"content"`
	Source     InteractionSource `json:"source" db:"source"`
	StepIndex  *int              `json:"step_index,omitempty" db:"step_index"`
	CampaignID *int              `json:"campaign_id,omitempty" db:"campaign_id"`
	ExternalID *string           `json:"external_id,omitempty" db:"external_id"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}
