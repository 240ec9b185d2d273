package service

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

type fakeQueue struct{ connected bool }

func (q fakeQueue) IsConnected() bool { return q.connected }

func TestCheckHealth(t *testing.T) {
	testCases := []struct {
		name   string
		db     error
		queue  bool
		status string
	}{
		{"all up", nil, true, StatusHealthy},
		{"queue down", nil, false, StatusDegraded},
		{"database down", errors.New("refused"), true, StatusUnhealthy},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewHealthService(fakePinger{err: tc.db}, fakeQueue{connected: tc.queue}, "1.0.0")
			health := svc.CheckHealth(context.Background())
			AssertEqual(t, health.Status, tc.status)
			AssertEqual(t, health.Version, "1.0.0")
		})
	}
}
