package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"replyflow/internal/models"
	"replyflow/internal/repository"
)

// ContactService owns contact status and follow-up fields
type ContactService struct {
	contacts repository.ContactRepository
}

// NewContactService creates a new contact service
func NewContactService(contacts repository.ContactRepository) *ContactService {
	return &ContactService{contacts: contacts}
}

// GetContact retrieves a contact by ID
func (s *ContactService) GetContact(ctx context.Context, id int) (*models.Contact, error) {
	contact, err := s.contacts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "contact", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

// CheckAutomation loads the contact and returns a ContactPausedError when
// AI replies and follow-ups must leave it alone.
func (s *ContactService) CheckAutomation(ctx context.Context, id int) (*models.Contact, error) {
	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case contact.Status == models.ContactStatusPaused:
		return contact, &ContactPausedError{ContactID: id}
	case contact.HandoffRequested:
		return contact, &ContactPausedError{ContactID: id, Handoff: true}
	}
	return contact, nil
}

// UpdateStatus applies an operator status change. Contacts never return to new.
func (s *ContactService) UpdateStatus(ctx context.Context, id int, status models.ContactStatus) (*models.Contact, error) {
	if !status.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid status: %q", status)}
	}

	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if !contact.Status.CanTransitionTo(status) {
		return nil, &BusinessLogicError{
			Message: fmt.Sprintf("contact cannot move from %s to %s", contact.Status, status),
		}
	}

	if err := s.contacts.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update contact status: %w", err)
	}
	contact.Status = status
	return contact, nil
}

// SetHandoff flags a contact for a human; automation skips it while set
func (s *ContactService) SetHandoff(ctx context.Context, id int, requested bool) (*models.Contact, error) {
	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.contacts.SetHandoff(ctx, id, requested); err != nil {
		return nil, fmt.Errorf("failed to set handoff: %w", err)
	}
	contact.HandoffRequested = requested
	return contact, nil
}

// ActivateIfNew promotes a new contact to active after its first automated reply
func (s *ContactService) ActivateIfNew(ctx context.Context, id int) (bool, error) {
	changed, err := s.contacts.ActivateIfNew(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to activate contact: %w", err)
	}
	return changed, nil
}

// AssignSequence stores the follow-up cursor of a contact
func (s *ContactService) AssignSequence(ctx context.Context, id, sequenceID, step int, nextAt time.Time) error {
	err := s.contacts.SetFollowUp(ctx, id, sequenceID, step, nextAt)
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: "contact", ID: id}
	}
	return err
}

// ClearSequence removes a contact from its sequence, nulling every follow-up field together
func (s *ContactService) ClearSequence(ctx context.Context, id int) error {
	err := s.contacts.ClearFollowUp(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: "contact", ID: id}
	}
	return err
}
