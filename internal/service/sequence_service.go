package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"replyflow/internal/models"
	"replyflow/internal/repository"
)

// Advance outcomes
const (
	AdvanceAdvanced         = "advanced"
	AdvanceSequenceFinished = "sequence_finished"
	AdvanceSequenceDeleted  = "sequence_deleted"
)

// StopOnReply reasons
const (
	StopCustomerReplied  = "customer_replied"
	StopOnReplyDisabled  = "stop_on_reply_disabled"
	StopNoActiveSequence = "no_active_sequence"
)

// AdvanceResult describes where a contact ended up after a step was sent
type AdvanceResult struct {
	Status         string     `json:"status"`
	NextStep       *int       `json:"next_step,omitempty"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at,omitempty"`
}

// StopResult describes what an inbound reply did to a contact's sequence
type StopResult struct {
	Stopped bool   `json:"stopped"`
	Reason  string `json:"reason"`
}

// SequenceService is the follow-up sequence engine
type SequenceService struct {
	sequences repository.SequenceRepository
	contacts  repository.ContactRepository
	now       func() time.Time
}

// NewSequenceService creates a new sequence service
func NewSequenceService(sequences repository.SequenceRepository, contacts repository.ContactRepository) *SequenceService {
	return &SequenceService{
		sequences: sequences,
		contacts:  contacts,
		now:       time.Now,
	}
}

func (s *SequenceService) getSequence(ctx context.Context, id int) (*models.FollowUpSequence, error) {
	seq, err := s.sequences.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "sequence", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}
	return seq, nil
}

// Assign enrolls a contact in a sequence starting at startFromStep
func (s *SequenceService) Assign(ctx context.Context, contactID, sequenceID, startFromStep int) (*models.Contact, error) {
	seq, err := s.getSequence(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	if !seq.IsActive {
		return nil, &SequenceInactiveError{SequenceID: sequenceID}
	}

	step, ok := seq.StepAt(startFromStep)
	if !ok {
		return nil, &ValidationError{
			Message: fmt.Sprintf("step %d is out of range for sequence %d with %d steps", startFromStep, sequenceID, len(seq.Steps)),
		}
	}

	contact, err := s.contacts.GetByID(ctx, contactID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "contact", ID: contactID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if contact.TenantID != seq.TenantID {
		return nil, &ValidationError{Message: "sequence belongs to another tenant"}
	}

	nextAt := s.now().Add(step.Delay())
	if err := s.contacts.SetFollowUp(ctx, contactID, sequenceID, startFromStep, nextAt); err != nil {
		return nil, fmt.Errorf("failed to assign sequence: %w", err)
	}

	contact.ClearFollowUp()
	contact.FollowUpSequenceID = &sequenceID
	contact.FollowUpStep = &startFromStep
	contact.NextFollowUpAt = &nextAt
	return contact, nil
}

// DueContacts lists enrolled contacts whose next follow-up is at or before now.
// A nil tenantID scans every tenant.
func (s *SequenceService) DueContacts(ctx context.Context, tenantID *int, now time.Time, limit int) ([]*models.Contact, error) {
	contacts, err := s.contacts.ListDueFollowUps(ctx, tenantID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due contacts: %w", err)
	}
	return contacts, nil
}

// Advance moves a contact past its current step
func (s *SequenceService) Advance(ctx context.Context, contactID int) (*AdvanceResult, error) {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "contact", ID: contactID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if !contact.HasActiveSequence() {
		return nil, &BusinessLogicError{Message: fmt.Sprintf("contact %d has no active sequence", contactID)}
	}

	return s.AdvanceFrom(ctx, contactID, *contact.FollowUpSequenceID, *contact.FollowUpStep, s.now())
}

// AdvanceFrom moves a contact from fromStep to the next step of sequenceID,
// only if the contact still sits at exactly that sequence and step.
func (s *SequenceService) AdvanceFrom(ctx context.Context, contactID, sequenceID, fromStep int, sentAt time.Time) (*AdvanceResult, error) {
	seq, err := s.sequences.GetByID(ctx, sequenceID)
	if errors.Is(err, repository.ErrNotFound) {
		if err := s.clearIf(ctx, contactID, sequenceID, fromStep); err != nil {
			return nil, err
		}
		return &AdvanceResult{Status: AdvanceSequenceDeleted}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}

	nextStep := fromStep + 1
	step, ok := seq.StepAt(nextStep)
	if !ok {
		if err := s.clearIf(ctx, contactID, sequenceID, fromStep); err != nil {
			return nil, err
		}
		return &AdvanceResult{Status: AdvanceSequenceFinished}, nil
	}

	nextAt := sentAt.Add(step.Delay())
	err = s.contacts.AdvanceFollowUp(ctx, contactID, sequenceID, fromStep, nextStep, sentAt, nextAt)
	if errors.Is(err, repository.ErrStaleState) {
		return nil, &SequenceChangedError{ContactID: contactID, SequenceID: sequenceID, Step: fromStep}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to advance contact: %w", err)
	}

	return &AdvanceResult{Status: AdvanceAdvanced, NextStep: &nextStep, NextFollowUpAt: &nextAt}, nil
}

func (s *SequenceService) clearIf(ctx context.Context, contactID, sequenceID, step int) error {
	err := s.contacts.ClearFollowUpIf(ctx, contactID, sequenceID, step)
	if errors.Is(err, repository.ErrStaleState) {
		return &SequenceChangedError{ContactID: contactID, SequenceID: sequenceID, Step: step}
	}
	if err != nil {
		return fmt.Errorf("failed to clear follow-up: %w", err)
	}
	return nil
}

// StopOnReply ends a contact's sequence when the step it is waiting on says so.
// Calling it again after a stop is a no-op.
func (s *SequenceService) StopOnReply(ctx context.Context, contactID int) (*StopResult, error) {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "contact", ID: contactID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if !contact.HasActiveSequence() {
		return &StopResult{Stopped: false, Reason: StopNoActiveSequence}, nil
	}

	seq, err := s.sequences.GetByID(ctx, *contact.FollowUpSequenceID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}
	if seq != nil {
		if step, ok := seq.StepAt(*contact.FollowUpStep); ok && !step.StopOnReply {
			return &StopResult{Stopped: false, Reason: StopOnReplyDisabled}, nil
		}
	}

	if err := s.contacts.ClearFollowUp(ctx, contactID); err != nil {
		return nil, fmt.Errorf("failed to stop sequence: %w", err)
	}
	log.Printf("🛑 Contact %d replied, sequence %d stopped", contactID, *contact.FollowUpSequenceID)
	return &StopResult{Stopped: true, Reason: StopCustomerReplied}, nil
}

// SeedDefaultSequence creates the standard three-step sequence and makes it the tenant default
func (s *SequenceService) SeedDefaultSequence(ctx context.Context, tenantID int) (*models.FollowUpSequence, error) {
	seq := models.DefaultSequence(tenantID)
	if err := seq.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if err := s.sequences.Create(ctx, seq); err != nil {
		return nil, fmt.Errorf("failed to seed default sequence: %w", err)
	}
	return seq, nil
}
