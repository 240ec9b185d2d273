package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTerminal(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		terminal bool
	}{
		{"not found", &NotFoundError{Resource: "contact", ID: 1}, true},
		{"wrapped validation", fmt.Errorf("step: %w", &ValidationError{Message: "bad"}), true},
		{"insufficient credits", &InsufficientCreditsError{TenantID: 1, Requested: 1}, true},
		{"sequence changed", &SequenceChangedError{ContactID: 1}, true},
		{"gateway", &GatewaySendError{Op: "send_text", Err: errors.New("timeout")}, false},
		{"model", &GenerativeModelError{Err: errors.New("503")}, false},
		{"rate limit", &RateLimitExceededError{Key: "k"}, false},
		{"plain", errors.New("connection reset"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			AssertEqual(t, IsTerminal(tc.err), tc.terminal)
		})
	}
}

func TestGatewaySendError_Unwraps(t *testing.T) {
	cause := errors.New("session offline")
	err := fmt.Errorf("reply: %w", &GatewaySendError{Op: "send_text", Err: cause})
	AssertEqual(t, errors.Is(err, cause), true)
}
