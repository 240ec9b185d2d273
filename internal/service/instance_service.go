package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"replyflow/internal/gateway"
	"replyflow/internal/models"
	"replyflow/internal/repository"
)

var instanceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

// InstanceService manages gateway sessions on behalf of tenants
type InstanceService struct {
	instances repository.InstanceRepository
	gateway   gateway.Gateway
}

// NewInstanceService creates a new instance service
func NewInstanceService(instances repository.InstanceRepository, gw gateway.Gateway) *InstanceService {
	return &InstanceService{instances: instances, gateway: gw}
}

func (s *InstanceService) get(ctx context.Context, id string) (*models.Instance, error) {
	instance, err := s.instances.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "instance", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	return instance, nil
}

// Create starts a gateway session and registers it for the tenant
func (s *InstanceService) Create(ctx context.Context, tenantID int, id string) (*models.Instance, error) {
	if tenantID <= 0 {
		return nil, &ValidationError{Message: "tenant_id is required"}
	}
	if !instanceNamePattern.MatchString(id) {
		return nil, &ValidationError{Message: "instance name must be 3-64 letters, digits, '-' or '_'"}
	}

	if _, err := s.instances.GetByID(ctx, id); err == nil {
		return nil, &ConflictError{Resource: "instance", Message: fmt.Sprintf("%s already exists", id)}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check instance: %w", err)
	}

	res := s.gateway.CreateInstance(ctx, id)
	if !res.Success {
		return nil, &GatewaySendError{Op: "create_instance", Err: res.Error}
	}

	instance := &models.Instance{ID: id, TenantID: tenantID, Status: res.Status}
	if err := s.instances.Create(ctx, instance); err != nil {
		return nil, fmt.Errorf("failed to save instance: %w", err)
	}
	return instance, nil
}

// Delete stops the gateway session and forgets the instance
func (s *InstanceService) Delete(ctx context.Context, id string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	res := s.gateway.DeleteInstance(ctx, id)
	if !res.Success {
		return &GatewaySendError{Op: "delete_instance", Err: res.Error}
	}

	if err := s.instances.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete instance: %w", err)
	}
	return nil
}

// Status refreshes the stored status from the gateway
func (s *InstanceService) Status(ctx context.Context, id string) (*models.Instance, error) {
	instance, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := s.gateway.GetInstanceStatus(ctx, id)
	if !res.Success {
		return nil, &GatewaySendError{Op: "instance_status", Err: res.Error}
	}

	if res.Status != instance.Status {
		if err := s.instances.UpdateStatus(ctx, id, res.Status); err != nil {
			return nil, fmt.Errorf("failed to update instance status: %w", err)
		}
		instance.Status = res.Status
	}
	return instance, nil
}

// QRCode returns the pairing code of a session
func (s *InstanceService) QRCode(ctx context.Context, id string) (string, error) {
	if _, err := s.get(ctx, id); err != nil {
		return "", err
	}

	res := s.gateway.GetQRCode(ctx, id)
	if !res.Success {
		return "", &GatewaySendError{Op: "qr_code", Err: res.Error}
	}
	return res.Value, nil
}

// Chats lists the session's recent chats
func (s *InstanceService) Chats(ctx context.Context, id string, limit int) ([]gateway.Chat, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	res := s.gateway.GetChats(ctx, id, limit)
	if !res.Success {
		return nil, &GatewaySendError{Op: "chats", Err: res.Error}
	}
	return res.Chats, nil
}
