package queue

import "time"

// Queue names
const (
	InboundQueue  = "inbound_messages"
	CampaignQueue = "campaign_sends"
	FollowUpQueue = "followup_sends"
)

// InboundMessageJob asks the worker to run the AI reply pipeline for one inbound message
type InboundMessageJob struct {
	TaskID               string    `json:"task_id"`
	TenantID             int       `json:"tenant_id"`
	InstanceID           string    `json:"instance_id"`
	ContactID            int       `json:"contact_id"`
	Phone                string    `json:"phone"`
	Body                 string    `json:"body"`
	GatewayMessageID     string    `json:"gateway_message_id,omitempty"`
	InboundInteractionID string    `json:"inbound_interaction_id"`
	ReceivedAt           time.Time `json:"received_at"`
}

// FollowUpJob asks the worker to send one due sequence step
type FollowUpJob struct {
	ContactID  int       `json:"contact_id"`
	TenantID   int       `json:"tenant_id"`
	InstanceID string    `json:"instance_id"`
	Phone      string    `json:"phone"`
	SequenceID int       `json:"sequence_id"`
	StepIndex  int       `json:"step_index"`
	Message    string    `json:"message"`
	DueAt      time.Time `json:"due_at"`
}

// CampaignJob asks the worker to dispatch a campaign
type CampaignJob struct {
	CampaignID int `json:"campaign_id"`
	TenantID   int `json:"tenant_id"`
}
