package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"replyflow/internal/repository"
)

// CreditStatus is a read-only snapshot of a tenant's credit window
type CreditStatus struct {
	TenantID     int       `json:"tenant_id"`
	HasCredits   bool      `json:"has_credits"`
	CreditsUsed  int       `json:"credits_used"`
	CreditsLimit int       `json:"credits_limit"`
	Remaining    int       `json:"remaining"`
	PeriodEnd    time.Time `json:"period_end"`
}

// CreditService is the tenant credit ledger
type CreditService struct {
	tenants repository.TenantRepository
}

// NewCreditService creates a new credit service
func NewCreditService(tenants repository.TenantRepository) *CreditService {
	return &CreditService{tenants: tenants}
}

// CheckCredits reports whether the tenant may spend at least one more credit
func (s *CreditService) CheckCredits(ctx context.Context, tenantID int) (*CreditStatus, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "tenant", ID: tenantID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check credits: %w", err)
	}

	return &CreditStatus{
		TenantID:     tenant.ID,
		HasCredits:   tenant.HasCredits(),
		CreditsUsed:  tenant.CreditsUsed,
		CreditsLimit: tenant.CreditsLimit,
		Remaining:    tenant.Remaining(),
		PeriodEnd:    tenant.PeriodEnd,
	}, nil
}

// DecrementCredits consumes cost credits in one atomic update.
// A charge that would pass the limit is rejected and nothing is consumed.
func (s *CreditService) DecrementCredits(ctx context.Context, tenantID int, cost int) error {
	if cost <= 0 {
		return &ValidationError{Message: "credit cost must be positive"}
	}

	_, err := s.tenants.IncrementCreditsUsed(ctx, tenantID, cost)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return &NotFoundError{Resource: "tenant", ID: tenantID}
	case errors.Is(err, repository.ErrLimitExceeded):
		return &InsufficientCreditsError{TenantID: tenantID, Requested: cost}
	default:
		return fmt.Errorf("failed to decrement credits: %w", err)
	}
}

// RollExpiredPeriods opens a new credit window for every tenant whose period ended
func (s *CreditService) RollExpiredPeriods(ctx context.Context, now time.Time) (int64, error) {
	rolled, err := s.tenants.RollExpiredPeriods(ctx, now)
	if err != nil {
		return 0, err
	}
	if rolled > 0 {
		log.Printf("💳 Reset credit period for %d tenant(s)", rolled)
	}
	return rolled, nil
}
