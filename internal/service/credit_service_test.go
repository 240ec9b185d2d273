package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCheckCredits(t *testing.T) {
	tenants := NewMockTenantRepository()
	tenants.Add(newTenant(1, 9, 10), nil)
	svc := NewCreditService(tenants)

	status, err := svc.CheckCredits(context.Background(), 1)
	AssertNoError(t, err)
	AssertEqual(t, status.HasCredits, true)
	AssertEqual(t, status.Remaining, 1)

	_, err = svc.CheckCredits(context.Background(), 99)
	var notFound *NotFoundError
	AssertErrorAs(t, err, &notFound)
}

func TestDecrementCredits_RejectsOverage(t *testing.T) {
	tenants := NewMockTenantRepository()
	tenants.Add(newTenant(1, 9, 10), nil)
	svc := NewCreditService(tenants)

	err := svc.DecrementCredits(context.Background(), 1, 2)
	var insufficient *InsufficientCreditsError
	AssertErrorAs(t, err, &insufficient)
	AssertEqual(t, tenants.Used(1), 9)

	AssertNoError(t, svc.DecrementCredits(context.Background(), 1, 1))
	AssertEqual(t, tenants.Used(1), 10)

	status, _ := svc.CheckCredits(context.Background(), 1)
	AssertEqual(t, status.HasCredits, false)
}

func TestDecrementCredits_InvalidCost(t *testing.T) {
	svc := NewCreditService(NewMockTenantRepository())

	for _, cost := range []int{0, -3} {
		err := svc.DecrementCredits(context.Background(), 1, cost)
		var validation *ValidationError
		AssertErrorAs(t, err, &validation)
	}
}

func TestDecrementCredits_ConcurrentNeverExceedsLimit(t *testing.T) {
	tenants := NewMockTenantRepository()
	tenants.Add(newTenant(1, 0, 25), nil)
	svc := NewCreditService(tenants)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.DecrementCredits(context.Background(), 1, 1)
			mu.Lock()
			defer mu.Unlock()
			var insufficient *InsufficientCreditsError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &insufficient):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	AssertEqual(t, ok, 25)
	AssertEqual(t, rejected, 75)
	AssertEqual(t, tenants.Used(1), 25)
}

func TestRollExpiredPeriods(t *testing.T) {
	tenants := NewMockTenantRepository()
	expired := newTenant(1, 10, 10)
	expired.PeriodStart = time.Now().AddDate(0, -2, 0)
	expired.PeriodEnd = time.Now().AddDate(0, -1, 0)
	tenants.Add(expired, nil)
	tenants.Add(newTenant(2, 5, 10), nil)
	svc := NewCreditService(tenants)

	rolled, err := svc.RollExpiredPeriods(context.Background(), time.Now())
	AssertNoError(t, err)
	AssertEqual(t, rolled, int64(1))
	AssertEqual(t, tenants.Used(1), 0)
	AssertEqual(t, tenants.Used(2), 5)
}
