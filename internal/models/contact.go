package models

import (
	"fmt"
	"time"
)

// ContactStatus represents valid contact statuses
type ContactStatus string

const (
	ContactStatusNew    ContactStatus = "new"
	ContactStatusActive ContactStatus = "active"
	ContactStatusPaused ContactStatus = "paused"
)

// Valid reports whether s is a known contact status
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusActive, ContactStatusPaused:
		return true
	}
	return false
}

// CanTransitionTo reports whether an operator may move a contact from s to next.
// Nothing moves back to new; new only leaves through the AI pipeline or a pause.
func (s ContactStatus) CanTransitionTo(next ContactStatus) bool {
	switch s {
	case ContactStatusNew:
		return next == ContactStatusActive || next == ContactStatusPaused
	case ContactStatusActive:
		return next == ContactStatusPaused || next == ContactStatusActive
	case ContactStatusPaused:
		return next == ContactStatusActive || next == ContactStatusPaused
	}
	return false
}

// Contact represents a conversation partner of a tenant
type Contact struct {
	ID                 int           `json:"id" db:"id"`
	TenantID           int           `json:"tenant_id" db:"tenant_id"`
	Phone              string        `json:"phone" db:"phone"`
	Name               *string       `json:"name,omitempty" db:"name"`
	Status             ContactStatus `json:"status" db:"status"`
	FollowUpSequenceID *int          `json:"follow_up_sequence_id,omitempty" db:"follow_up_sequence_id"`
	FollowUpStep       *int          `json:"follow_up_step,omitempty" db:"follow_up_step"`
	LastFollowUpAt     *time.Time    `json:"last_follow_up_at,omitempty" db:"last_follow_up_at"`
	NextFollowUpAt     *time.Time    `json:"next_follow_up_at,omitempty" db:"next_follow_up_at"`
	HandoffRequested   bool          `json:"handoff_requested" db:"handoff_requested"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// HasActiveSequence reports whether the contact is enrolled in a sequence
func (c *Contact) HasActiveSequence() bool {
	return c.FollowUpSequenceID != nil && c.FollowUpStep != nil
}

// AutomationBlocked reports whether AI replies and follow-ups must skip this contact
func (c *Contact) AutomationBlocked() bool {
	return c.Status == ContactStatusPaused || c.HandoffRequested
}

// ClearFollowUp resets every follow-up field together
func (c *Contact) ClearFollowUp() {
	c.FollowUpSequenceID = nil
	c.FollowUpStep = nil
	c.LastFollowUpAt = nil
	c.NextFollowUpAt = nil
}

// ValidateFollowUp checks that follow-up fields are either all set or all unset
func (c *Contact) ValidateFollowUp() error {
	set := c.FollowUpSequenceID != nil
	if set != (c.FollowUpStep != nil) || set != (c.NextFollowUpAt != nil) {
		return fmt.Errorf("contact %d has partial follow-up state", c.ID)
	}
	if !set && c.LastFollowUpAt != nil {
		return fmt.Errorf("contact %d has last_follow_up_at without a sequence", c.ID)
	}
	return nil
}
