package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"replyflow/internal/gateway"
	"replyflow/internal/models"
	"replyflow/internal/queue"
	"replyflow/internal/repository"

	"github.com/google/uuid"
)

// Webhook outcomes
const (
	WebhookQueued  = "queued"
	WebhookIgnored = "ignored"
	WebhookUpdated = "updated"
)

// WebhookEvent is the gateway's event envelope
type WebhookEvent struct {
	Session string          `json:"session"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// MessagePayload is the payload of a message event
type MessagePayload struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	FromMe    bool   `json:"fromMe"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	Data      struct {
		NotifyName string `json:"notifyName"`
	} `json:"_data"`
}

// SessionStatusPayload is the payload of a session.status event
type SessionStatusPayload struct {
	Status string `json:"status"`
}

// WebhookResult reports what an event did
type WebhookResult struct {
	Status    string `json:"status"`
	ContactID int    `json:"contact_id,omitempty"`
	TaskID    string `json:"task_id,omitempty"`
	Stopped   bool   `json:"sequence_stopped,omitempty"`
}

// WebhookService turns gateway events into contact updates and reply jobs
type WebhookService struct {
	instances    repository.InstanceRepository
	contacts     repository.ContactRepository
	interactions repository.InteractionRepository
	engine       *SequenceService
	publisher    JobPublisher
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	instances repository.InstanceRepository,
	contacts repository.ContactRepository,
	interactions repository.InteractionRepository,
	engine *SequenceService,
	publisher JobPublisher,
) *WebhookService {
	return &WebhookService{
		instances:    instances,
		contacts:     contacts,
		interactions: interactions,
		engine:       engine,
		publisher:    publisher,
	}
}

// HandleEvent processes one verified webhook event
func (s *WebhookService) HandleEvent(ctx context.Context, event *WebhookEvent) (*WebhookResult, error) {
	if event.Session == "" {
		return nil, &ValidationError{Message: "session is required"}
	}

	instance, err := s.instances.GetByID(ctx, event.Session)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "instance", ID: event.Session}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	switch event.Event {
	case "session.status":
		return s.handleStatus(ctx, instance, event.Payload)
	case "message":
		return s.handleMessage(ctx, instance, event.Payload)
	default:
		return &WebhookResult{Status: WebhookIgnored}, nil
	}
}

func (s *WebhookService) handleStatus(ctx context.Context, instance *models.Instance, raw json.RawMessage) (*WebhookResult, error) {
	var payload SessionStatusPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ValidationError{Message: "invalid session.status payload"}
	}

	status := models.InstanceStatus(strings.ToUpper(payload.Status))
	if !status.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown session status %q", payload.Status)}
	}

	if err := s.instances.UpdateStatus(ctx, instance.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update instance status: %w", err)
	}
	log.Printf("📶 Instance %s is now %s", instance.ID, status)
	return &WebhookResult{Status: WebhookUpdated}, nil
}

func (s *WebhookService) handleMessage(ctx context.Context, instance *models.Instance, raw json.RawMessage) (*WebhookResult, error) {
	var payload MessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ValidationError{Message: "invalid message payload"}
	}
	if payload.FromMe || strings.TrimSpace(payload.Body) == "" {
		return &WebhookResult{Status: WebhookIgnored}, nil
	}

	phone := gateway.NormalizePhone(payload.From)
	if phone == "" {
		return nil, &ValidationError{Message: "message has no sender"}
	}

	contact, err := s.contacts.FindOrCreateByPhone(ctx, instance.TenantID, phone, optionalString(payload.Data.NotifyName))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve contact: %w", err)
	}

	inbound := &models.Interaction{
		ContactID:  contact.ID,
		TenantID:   instance.TenantID,
		Type:       models.InteractionInbound,
		Content:    payload.Body,
		Source:     models.SourceCustomer,
		ExternalID: optionalString(payload.ID),
	}
	created, err := s.interactions.CreateInbound(ctx, inbound)
	if err != nil {
		return nil, fmt.Errorf("failed to log inbound message: %w", err)
	}
	if !created {
		log.Printf("🔁 Message %s already logged, re-enqueueing its reply", payload.ID)
	}

	result := &WebhookResult{Status: WebhookQueued, ContactID: contact.ID}
	if contact.HasActiveSequence() {
		stop, err := s.engine.StopOnReply(ctx, contact.ID)
		if err != nil {
			return nil, err
		}
		result.Stopped = stop.Stopped
	}

	taskID := payload.ID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	job := queue.InboundMessageJob{
		TaskID:               "reply:" + taskID,
		TenantID:             instance.TenantID,
		InstanceID:           instance.ID,
		ContactID:            contact.ID,
		Phone:                phone,
		Body:                 payload.Body,
		GatewayMessageID:     payload.ID,
		InboundInteractionID: inbound.ID,
		ReceivedAt:           receivedAt(payload.Timestamp),
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue reply: %w", err)
	}

	result.TaskID = job.TaskID
	return result, nil
}

func receivedAt(unix int64) time.Time {
	if unix <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(unix, 0).UTC()
}
