package queue

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestDeathCount(t *testing.T) {
	d := amqp.Delivery{Headers: amqp.Table{
		"x-death": []interface{}{
			amqp.Table{"queue": "inbound_messages.retry", "count": int64(2), "reason": "expired"},
			amqp.Table{"queue": "inbound_messages", "count": int64(3), "reason": "rejected"},
		},
	}}

	if got := DeathCount(d, "inbound_messages"); got != 3 {
		t.Errorf("Expected 3 deaths on main queue but got %d", got)
	}
	if got := DeathCount(d, "campaign_sends"); got != 0 {
		t.Errorf("Expected 0 deaths on unrelated queue but got %d", got)
	}
	if got := DeathCount(amqp.Delivery{}, "inbound_messages"); got != 0 {
		t.Errorf("Expected 0 deaths without headers but got %d", got)
	}
}

func TestJSONHandler_DecodeFailureIsPoison(t *testing.T) {
	called := false
	h := JSONHandler(func(ctx context.Context, job CampaignJob) error {
		called = true
		return nil
	})

	err := h(context.Background(), []byte("{not json"))
	if !errors.Is(err, ErrPoison) {
		t.Errorf("Expected ErrPoison but got %v", err)
	}
	if called {
		t.Error("Handler should not run for undecodable body")
	}
}

func TestJSONHandler_PassesDecodedJob(t *testing.T) {
	var got CampaignJob
	h := JSONHandler(func(ctx context.Context, job CampaignJob) error {
		got = job
		return nil
	})

	if err := h(context.Background(), []byte(`{"campaign_id":7,"tenant_id":2}`)); err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if got.CampaignID != 7 || got.TenantID != 2 {
		t.Errorf("Unexpected job: %+v", got)
	}
}

func TestDispose(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want disposition
	}{
		{"success acks", nil, dispositionAck},
		{"poison parks", ErrPoison, dispositionPark},
		{"transient retries", errors.New("gateway timeout"), dispositionRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dispose(tt.err); got != tt.want {
				t.Errorf("Expected %v but got %v", tt.want, got)
			}
		})
	}
}

func TestQueueSpecNames(t *testing.T) {
	s := QueueSpec{Name: FollowUpQueue}
	if s.RetryQueue() != "followup_sends.retry" || s.FailedQueue() != "followup_sends.failed" {
		t.Errorf("Unexpected derived names: %s %s", s.RetryQueue(), s.FailedQueue())
	}
}
