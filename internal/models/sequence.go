package models

import (
	"fmt"
	"time"
)

// TriggerCondition describes when a sequence gets assigned
type TriggerCondition string

const (
	TriggerManual     TriggerCondition = "manual"
	TriggerNoReply    TriggerCondition = "no_reply"
	TriggerNewContact TriggerCondition = "new_contact"
)

// SequenceStep is one timed message of a follow-up sequence
type SequenceStep struct {
	DelayHours  int    `json:"delay_hours"`
	Message     string `json:"message"`
	StopOnReply bool   `json:"stop_on_reply"`
}

// Delay returns the wait before this step fires
func (s SequenceStep) Delay() time.Duration {
	return time.Duration(s.DelayHours) * time.Hour
}

// FollowUpSequence is an ordered list of timed follow-up steps
type FollowUpSequence struct {
	ID               int              `json:"id" db:"id"`
	TenantID         int              `json:"tenant_id" db:"tenant_id"`
	Name             string           `json:"name" db:"name"`
	IsActive         bool             `json:"is_active" db:"is_active"`
	IsDefault        bool             `json:"is_default" db:"is_default"`
	Steps            []SequenceStep   `json:"steps" db:"steps"`
	TriggerCondition TriggerCondition `json:"trigger_condition" db:"trigger_condition"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// StepAt returns the step at index i, if present
func (s *FollowUpSequence) StepAt(i int) (SequenceStep, bool) {
	if i < 0 || i >= len(s.Steps) {
		return SequenceStep{}, false
	}
	return s.Steps[i], true
}

// Validate checks the sequence definition
func (s *FollowUpSequence) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("sequence name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("sequence must have at least one step")
	}
	for i, step := range s.Steps {
		if step.DelayHours < 0 {
			return fmt.Errorf("step %d: delay_hours cannot be negative", i)
		}
		if step.Message == "" {
			return fmt.Errorf("step %d: message is required", i)
		}
	}
	switch s.TriggerCondition {
	case TriggerManual, TriggerNoReply, TriggerNewContact:
	default:
		return fmt.Errorf("invalid trigger_condition: %q", s.TriggerCondition)
	}
	return nil
}

// DefaultSequence returns the template seeded for new tenants
func DefaultSequence(tenantID int) *FollowUpSequence {
	return &FollowUpSequence{
		TenantID:         tenantID,
		Name:             "Default follow-up",
		IsActive:         true,
		IsDefault:        true,
		TriggerCondition: TriggerNoReply,
		Steps: []SequenceStep{
			{DelayHours: 24, Message: "Hi {Name}, just checking in. Did you have any questions?", StopOnReply: true},
			{DelayHours: 72, Message: "Hi {Name}, we are still here if you need anything.", StopOnReply: true},
			{DelayHours: 168, Message: "Hi {Name}, this is our last check-in. Reply any time to pick things up again.", StopOnReply: true},
		},
	}
}
