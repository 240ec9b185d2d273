package service

import (
	"context"
	"testing"
	"time"
)

func TestKeyedLimiter_IndependentKeys(t *testing.T) {
	limiter := NewKeyedLimiter(1, 1)
	AssertNoError(t, limiter.Wait(context.Background(), "shop-1"))

	// shop-1 has spent its token; shop-2 has not
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	AssertNoError(t, limiter.Wait(ctx, "shop-2"))
	var limited *RateLimitExceededError
	AssertErrorAs(t, limiter.Wait(ctx, "shop-1"), &limited)
}

func TestKeyedLimiter_WaitRespectsDeadline(t *testing.T) {
	limiter := NewKeyedLimiter(1, 1)
	AssertNoError(t, limiter.Wait(context.Background(), "tenant:1"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := limiter.Wait(ctx, "tenant:1")
	var limited *RateLimitExceededError
	AssertErrorAs(t, err, &limited)
	AssertEqual(t, limited.Key, "tenant:1")
}

func TestKeyedLimiter_DisabledWhenNonPositive(t *testing.T) {
	limiter := NewKeyedLimiter(0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx, "k"); err != nil {
			t.Fatalf("Expected unlimited limiter to admit call %d: %v", i, err)
		}
	}
}
