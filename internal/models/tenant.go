package models

import "time"

// Credit costs charged per automated send
const (
	CreditCostText   = 1
	CreditCostVision = 2
)

// Tenant represents a customer account and its credit window
type Tenant struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	PeriodStart  time.Time `json:"period_start" db:"period_start"`
	PeriodEnd    time.Time `json:"period_end" db:"period_end"`
	CreditsUsed  int       `json:"credits_used" db:"credits_used"`
	CreditsLimit int       `json:"credits_limit" db:"credits_limit"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// HasCredits reports whether at least one more credit can be consumed
func (t *Tenant) HasCredits() bool {
	return t.CreditsUsed < t.CreditsLimit
}

// Remaining returns the credits left in the current period
func (t *Tenant) Remaining() int {
	if t.CreditsUsed >= t.CreditsLimit {
		return 0
	}
	return t.CreditsLimit - t.CreditsUsed
}

// TenantContext is the immutable per-task view of tenant settings.
// It is loaded once when a task starts and passed into each workflow.
type TenantContext struct {
	TenantID         int      `json:"tenant_id"`
	BusinessName     string   `json:"business_name"`
	AutoReplyEnabled bool     `json:"auto_reply_enabled"`
	FollowUpEnabled  bool     `json:"follow_up_enabled"`
	Persona          string   `json:"persona"`
	Model            string   `json:"model"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

// QuickReply is a tenant-authored knowledge snippet fed to the model
type QuickReply struct {
	ID        int       `json:"id" db:"id"`
	TenantID  int       `json:"tenant_id" db:"tenant_id"`
	Label     string    `json:"label" db:"label"`
	Content   string    `json:"content" db:"content"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
