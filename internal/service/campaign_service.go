package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"replyflow/internal/gateway"
	"replyflow/internal/models"
	"replyflow/internal/queue"
	"replyflow/internal/repository"
)

// CampaignService handles campaign CRUD and start requests
type CampaignService struct {
	campaignRepo repository.CampaignRepository
	instanceRepo repository.InstanceRepository
	templateSvc  *TemplateService
	publisher    JobPublisher
}

// NewCampaignService creates a new campaign service
func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	instanceRepo repository.InstanceRepository,
	templateSvc *TemplateService,
	publisher JobPublisher,
) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		instanceRepo: instanceRepo,
		templateSvc:  templateSvc,
		publisher:    publisher,
	}
}

// CreateCampaignRequest represents a request to create a campaign
type CreateCampaignRequest struct {
	TenantID   int    `json:"tenant_id"`
	InstanceID string `json:"instance_id"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	ContactIDs []int  `json:"contact_ids"`
}

// CreateCampaign stores a draft campaign. Duplicate contact ids are dropped, first occurrence wins.
func (s *CampaignService) CreateCampaign(ctx context.Context, req *CreateCampaignRequest) (*models.Campaign, error) {
	campaign := &models.Campaign{
		TenantID:   req.TenantID,
		InstanceID: req.InstanceID,
		Name:       req.Name,
		Message:    req.Message,
		ContactIDs: uniqueIDs(req.ContactIDs),
		Status:     models.CampaignStatusDraft,
	}
	campaign.TotalContacts = len(campaign.ContactIDs)

	if err := campaign.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	instance, err := s.instanceRepo.GetByID(ctx, req.InstanceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "instance", ID: req.InstanceID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	if instance.TenantID != req.TenantID {
		return nil, &ValidationError{Message: "instance belongs to another tenant"}
	}

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	return campaign, nil
}

// GetCampaign retrieves a campaign by ID
func (s *CampaignService) GetCampaign(ctx context.Context, id int) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "campaign", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

// StartCampaignResult represents an accepted start request
type StartCampaignResult struct {
	CampaignID    int                   `json:"campaign_id"`
	TotalContacts int                   `json:"total_contacts"`
	Status        models.CampaignStatus `json:"status"`
}

// RequestStart enqueues a draft campaign for dispatch
func (s *CampaignService) RequestStart(ctx context.Context, id int) (*StartCampaignResult, error) {
	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if !campaign.CanStart() {
		return nil, &BusinessLogicError{
			Message: fmt.Sprintf("campaign cannot be started: status is %s", campaign.Status),
		}
	}

	job := queue.CampaignJob{CampaignID: campaign.ID, TenantID: campaign.TenantID}
	if err := s.publisher.Publish(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue campaign: %w", err)
	}

	return &StartCampaignResult{
		CampaignID:    campaign.ID,
		TotalContacts: campaign.TotalContacts,
		Status:        campaign.Status,
	}, nil
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CampaignResult summarizes a dispatch run
type CampaignResult struct {
	CampaignID int                   `json:"campaign_id"`
	Sent       int                   `json:"sent"`
	Failed     int                   `json:"failed"`
	Skipped    int                   `json:"skipped"`
	Aborted    bool                  `json:"aborted"`
	Status     models.CampaignStatus `json:"status"`
}

type campaignSend struct {
	Sent      bool   `json:"sent"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DispatcherConfig tunes campaign pacing
type DispatcherConfig struct {
	MinDelay               time.Duration
	MaxDelay               time.Duration
	MaxConsecutiveFailures int
}

// CampaignDispatcher sends a campaign to its contacts one at a time
type CampaignDispatcher struct {
	steps        *StepRunner
	locker       repository.Locker
	campaigns    repository.CampaignRepository
	contacts     repository.ContactRepository
	interactions repository.InteractionRepository
	templates    *TemplateService
	gateway      gateway.Gateway
	sendLimiter  *KeyedLimiter
	startLimiter *KeyedLimiter
	cfg          DispatcherConfig

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(min, max time.Duration) time.Duration
}

// NewCampaignDispatcher creates a dispatcher.
// locker is keyed by campaign, sendLimiter by instance and startLimiter by tenant.
func NewCampaignDispatcher(
	steps *StepRunner,
	locker repository.Locker,
	campaigns repository.CampaignRepository,
	contacts repository.ContactRepository,
	interactions repository.InteractionRepository,
	templates *TemplateService,
	gw gateway.Gateway,
	sendLimiter *KeyedLimiter,
	startLimiter *KeyedLimiter,
	cfg DispatcherConfig,
) *CampaignDispatcher {
	return &CampaignDispatcher{
		steps:        steps,
		locker:       locker,
		campaigns:    campaigns,
		contacts:     contacts,
		interactions: interactions,
		templates:    templates,
		gateway:      gw,
		sendLimiter:  sendLimiter,
		startLimiter: startLimiter,
		cfg:          cfg,
		sleep:        sleepContext,
		jitter:       uniformDelay,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func uniformDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// CampaignTaskID is the idempotency key of a campaign dispatch
func CampaignTaskID(campaignID int) string {
	return fmt.Sprintf("campaign:%d", campaignID)
}

// Start dispatches a draft campaign. Failed sends are counted and skipped;
// the campaign always ends completed.
func (d *CampaignDispatcher) Start(ctx context.Context, job queue.CampaignJob) (*CampaignResult, error) {
	if d.startLimiter != nil {
		if err := d.startLimiter.Wait(ctx, fmt.Sprintf("tenant:%d", job.TenantID)); err != nil {
			return nil, err
		}
	}

	// One run per campaign at a time. A duplicate job waits here, then
	// finds the task finished or resumes from the checkpoints it left.
	unlock, err := d.locker.Lock(ctx, job.CampaignID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, err := d.steps.Begin(ctx, CampaignTaskID(job.CampaignID), "campaign")
	if err != nil {
		return nil, err
	}

	campaign, err := d.campaigns.GetByID(ctx, job.CampaignID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, failTask(ctx, task, &NotFoundError{Resource: "campaign", ID: job.CampaignID})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	if task.Finished() {
		return &CampaignResult{CampaignID: campaign.ID, Sent: campaign.SentCount, Status: campaign.Status}, nil
	}

	_, err = RunStep(ctx, task, "mark_sending", func(ctx context.Context) (bool, error) {
		err := d.campaigns.TransitionStatus(ctx, campaign.ID, models.CampaignStatusDraft, models.CampaignStatusSending)
		if errors.Is(err, repository.ErrStaleState) {
			// a previous attempt may have moved it before its checkpoint was written
			if task.Resumed() && campaign.Status == models.CampaignStatusSending {
				return true, nil
			}
			return false, &BusinessLogicError{
				Message: fmt.Sprintf("campaign %d cannot be started: status is %s", campaign.ID, campaign.Status),
			}
		}
		return err == nil, err
	})
	if err != nil {
		return nil, failTask(ctx, task, err)
	}

	contacts, err := d.orderedContacts(ctx, campaign)
	if err != nil {
		return nil, err
	}

	log.Printf("📣 Dispatching campaign %d to %d contact(s)", campaign.ID, len(contacts))
	result := &CampaignResult{
		CampaignID: campaign.ID,
		Skipped:    len(campaign.ContactIDs) - len(contacts),
	}

	attempted := false
	consecutiveFailures := 0
	for _, contact := range contacts {
		stepName := fmt.Sprintf("send:%d", contact.ID)

		if !task.Done(stepName) {
			if attempted {
				if err := d.sleep(ctx, d.jitter(d.cfg.MinDelay, d.cfg.MaxDelay)); err != nil {
					return nil, err
				}
			}
			if d.sendLimiter != nil {
				if err := d.sendLimiter.Wait(ctx, campaign.InstanceID); err != nil {
					return nil, err
				}
			}
			attempted = true
		}

		send, err := RunStep(ctx, task, stepName, func(ctx context.Context) (campaignSend, error) {
			text := d.templates.Render(campaign.Message, contact)
			res := d.gateway.SendText(ctx, campaign.InstanceID, contact.Phone, text)
			if !res.Success {
				return campaignSend{Error: fmt.Sprint(res.Error)}, nil
			}
			return campaignSend{Sent: true, MessageID: res.MessageID}, nil
		}, WithMaxTries(1))
		if err != nil {
			return nil, err
		}

		if !send.Sent {
			result.Failed++
			consecutiveFailures++
			log.Printf("❌ Campaign %d: send to contact %d failed: %s", campaign.ID, contact.ID, send.Error)
			if d.cfg.MaxConsecutiveFailures > 0 && consecutiveFailures >= d.cfg.MaxConsecutiveFailures {
				log.Printf("🧯 Campaign %d aborted after %d consecutive failures", campaign.ID, consecutiveFailures)
				result.Aborted = true
				break
			}
			continue
		}

		consecutiveFailures = 0
		_, err = RunStep(ctx, task, fmt.Sprintf("record:%d", contact.ID), func(ctx context.Context) (bool, error) {
			campaignID := campaign.ID
			interaction := &models.Interaction{
				ContactID:  contact.ID,
				TenantID:   campaign.TenantID,
				Type:       models.InteractionOutbound,
				Content:    d.templates.Render(campaign.Message, contact),
				Source:     models.SourceCampaign,
				CampaignID: &campaignID,
				ExternalID: optionalString(send.MessageID),
			}
			if err := d.interactions.Create(ctx, interaction); err != nil {
				return false, err
			}
			err := d.campaigns.IncrementSentCount(ctx, campaign.ID)
			if errors.Is(err, repository.ErrLimitExceeded) {
				return true, nil
			}
			return err == nil, err
		})
		if err != nil {
			return nil, err
		}
		result.Sent++
	}

	_, err = RunStep(ctx, task, "mark_completed", func(ctx context.Context) (bool, error) {
		err := d.campaigns.TransitionStatus(ctx, campaign.ID, models.CampaignStatusSending, models.CampaignStatusCompleted)
		if errors.Is(err, repository.ErrStaleState) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}

	if err := task.Finish(ctx, models.TaskCompleted, ""); err != nil {
		return nil, err
	}

	result.Status = models.CampaignStatusCompleted
	log.Printf("✅ Campaign %d completed: %d sent, %d failed, %d skipped", campaign.ID, result.Sent, result.Failed, result.Skipped)
	return result, nil
}

// orderedContacts resolves contact ids in campaign order, dropping ids that no longer exist
func (d *CampaignDispatcher) orderedContacts(ctx context.Context, campaign *models.Campaign) ([]*models.Contact, error) {
	found, err := d.contacts.GetByIDs(ctx, campaign.ContactIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get contacts: %w", err)
	}

	byID := make(map[int]*models.Contact, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	ordered := make([]*models.Contact, 0, len(found))
	for _, id := range campaign.ContactIDs {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}
