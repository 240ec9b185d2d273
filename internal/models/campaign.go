package models

import (
	"fmt"
	"time"
)

// CampaignStatus represents valid campaign statuses.
// Status only moves forward: draft -> sending -> completed.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Valid reports whether s is a known campaign status
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusSending, CampaignStatusCompleted:
		return true
	}
	return false
}

// Campaign represents a one-time broadcast to a fixed contact list
type Campaign struct {
	ID            int            `json:"id" db:"id"`
	TenantID      int            `json:"tenant_id" db:"tenant_id"`
	InstanceID    string         `json:"instance_id" db:"instance_id"`
	Name          string         `json:"name" db:"name"`
	Message       string         `json:"message" db:"message"`
	ContactIDs    []int          `json:"contact_ids" db:"contact_ids"`
	Status        CampaignStatus `json:"status" db:"status"`
	SentCount     int            `json:"sent_count" db:"sent_count"`
	TotalContacts int            `json:"total_contacts" db:"total_contacts"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks if the campaign fields are valid
func (c *Campaign) Validate() error {
	if c.TenantID <= 0 {
		return fmt.Errorf("tenant_id is required")
	}
	if c.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("campaign name is required")
	}
	if c.Message == "" {
		return fmt.Errorf("message is required")
	}
	if len(c.ContactIDs) == 0 {
		return fmt.Errorf("at least one contact is required")
	}
	return nil
}

// CanStart checks if the campaign can still be dispatched
func (c *Campaign) CanStart() bool {
	return c.Status == CampaignStatusDraft
}
