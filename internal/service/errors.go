package service

import (
	"errors"
	"fmt"
)

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// BusinessLogicError represents a business logic error
type BusinessLogicError struct {
	Message string
}

func (e *BusinessLogicError) Error() string {
	return fmt.Sprintf("business logic error: %s", e.Message)
}

// ConflictError represents a conflict error (e.g., duplicate)
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict with %s: %s", e.Resource, e.Message)
}

// InsufficientCreditsError is returned when a charge would pass the tenant's limit
type InsufficientCreditsError struct {
	TenantID  int
	Requested int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("tenant %d has insufficient credits for a charge of %d", e.TenantID, e.Requested)
}

// ContactPausedError is returned when automation targets a paused or handed-off contact
type ContactPausedError struct {
	ContactID int
	Handoff   bool
}

func (e *ContactPausedError) Error() string {
	if e.Handoff {
		return fmt.Sprintf("contact %d is handed off to a human", e.ContactID)
	}
	return fmt.Sprintf("contact %d is paused", e.ContactID)
}

// SequenceInactiveError is returned when assigning a disabled sequence
type SequenceInactiveError struct {
	SequenceID int
}

func (e *SequenceInactiveError) Error() string {
	return fmt.Sprintf("sequence %d is inactive", e.SequenceID)
}

// SequenceChangedError is returned when a contact moved on before a guarded update landed
type SequenceChangedError struct {
	ContactID  int
	SequenceID int
	Step       int
}

func (e *SequenceChangedError) Error() string {
	return fmt.Sprintf("contact %d is no longer at step %d of sequence %d", e.ContactID, e.Step, e.SequenceID)
}

// GatewaySendError wraps a failed gateway call. It is retryable.
type GatewaySendError struct {
	Op  string
	Err error
}

func (e *GatewaySendError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewaySendError) Unwrap() error {
	return e.Err
}

// GenerativeModelError wraps a failed generation. It is retryable.
type GenerativeModelError struct {
	Err error
}

func (e *GenerativeModelError) Error() string {
	return fmt.Sprintf("generative model failed: %v", e.Err)
}

func (e *GenerativeModelError) Unwrap() error {
	return e.Err
}

// RateLimitExceededError is returned when a limiter cannot admit a call in time
type RateLimitExceededError struct {
	Key string
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Key)
}

// IsTerminal reports whether retrying err can never succeed
func IsTerminal(err error) bool {
	var (
		notFound   *NotFoundError
		validation *ValidationError
		business   *BusinessLogicError
		conflict   *ConflictError
		credits    *InsufficientCreditsError
		paused     *ContactPausedError
		inactive   *SequenceInactiveError
		changed    *SequenceChangedError
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &validation) ||
		errors.As(err, &business) ||
		errors.As(err, &conflict) ||
		errors.As(err, &credits) ||
		errors.As(err, &paused) ||
		errors.As(err, &inactive) ||
		errors.As(err, &changed)
}
