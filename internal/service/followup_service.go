package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"replyflow/internal/gateway"
	"replyflow/internal/models"
	"replyflow/internal/queue"
	"replyflow/internal/repository"
)

// Follow-up skip reasons
const (
	FollowUpSent                   = "sent"
	FollowUpSequenceChanged        = "sequence_changed"
	FollowUpDisabled               = "followup_disabled"
	FollowUpContactPausedOrHandoff = "contact_paused_or_handoff"
	FollowUpNoCredits              = "no_credits"
)

// TickResult summarizes one scheduler scan
type TickResult struct {
	Scanned  int
	Enqueued int
	Skipped  int
}

// FollowUpScheduler scans for due contacts and enqueues their next step
type FollowUpScheduler struct {
	sequences repository.SequenceRepository
	instances repository.InstanceRepository
	engine    *SequenceService
	credits   *CreditService
	templates *TemplateService
	publisher JobPublisher
	interval  time.Duration
	batchSize int
}

// NewFollowUpScheduler creates a new scheduler
func NewFollowUpScheduler(
	sequences repository.SequenceRepository,
	instances repository.InstanceRepository,
	engine *SequenceService,
	credits *CreditService,
	templates *TemplateService,
	publisher JobPublisher,
	interval time.Duration,
	batchSize int,
) *FollowUpScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &FollowUpScheduler{
		sequences: sequences,
		instances: instances,
		engine:    engine,
		credits:   credits,
		templates: templates,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run ticks until ctx is cancelled
func (s *FollowUpScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("⏰ Follow-up scheduler running every %v", s.interval)
	for {
		if _, err := s.Tick(ctx, time.Now()); err != nil {
			log.Printf("❌ Follow-up scan failed: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Println("Follow-up scheduler stopping...")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick enqueues a FollowUpJob for every due contact whose sequence and step still exist
func (s *FollowUpScheduler) Tick(ctx context.Context, now time.Time) (*TickResult, error) {
	if _, err := s.credits.RollExpiredPeriods(ctx, now); err != nil {
		log.Printf("⚠️  Credit period roll failed: %v", err)
	}

	due, err := s.engine.DueContacts(ctx, nil, now, s.batchSize)
	if err != nil {
		return nil, err
	}

	result := &TickResult{Scanned: len(due)}
	sequences := map[int]*models.FollowUpSequence{}
	instances := map[int]*models.Instance{}

	for _, contact := range due {
		job, reason := s.buildJob(ctx, contact, sequences, instances)
		if job == nil {
			result.Skipped++
			log.Printf("⏭️  Skipping follow-up for contact %d: %s", contact.ID, reason)
			continue
		}

		if err := s.publisher.Publish(ctx, job); err != nil {
			return result, fmt.Errorf("failed to enqueue follow-up for contact %d: %w", contact.ID, err)
		}
		result.Enqueued++
	}

	if result.Scanned > 0 {
		log.Printf("📬 Follow-up scan: %d due, %d enqueued, %d skipped", result.Scanned, result.Enqueued, result.Skipped)
	}
	return result, nil
}

func (s *FollowUpScheduler) buildJob(
	ctx context.Context,
	contact *models.Contact,
	sequences map[int]*models.FollowUpSequence,
	instances map[int]*models.Instance,
) (*queue.FollowUpJob, string) {
	if !contact.HasActiveSequence() || contact.NextFollowUpAt == nil {
		return nil, "no active sequence"
	}

	seqID := *contact.FollowUpSequenceID
	seq, ok := sequences[seqID]
	if !ok {
		var err error
		seq, err = s.sequences.GetByID(ctx, seqID)
		if err != nil {
			seq = nil
		}
		sequences[seqID] = seq
	}
	if seq == nil {
		return nil, "sequence missing"
	}
	if !seq.IsActive {
		return nil, "sequence inactive"
	}

	step, ok := seq.StepAt(*contact.FollowUpStep)
	if !ok {
		return nil, "step missing"
	}

	instance, ok := instances[contact.TenantID]
	if !ok {
		var err error
		instance, err = s.instances.GetForTenant(ctx, contact.TenantID)
		if err != nil {
			instance = nil
		}
		instances[contact.TenantID] = instance
	}
	if instance == nil {
		return nil, "tenant has no instance"
	}

	return &queue.FollowUpJob{
		ContactID:  contact.ID,
		TenantID:   contact.TenantID,
		InstanceID: instance.ID,
		Phone:      contact.Phone,
		SequenceID: seqID,
		StepIndex:  *contact.FollowUpStep,
		Message:    s.templates.Render(step.Message, contact),
		DueAt:      *contact.NextFollowUpAt,
	}, ""
}

// FollowUpResult is the outcome of one follow-up send task
type FollowUpResult struct {
	Status  string         `json:"status"`
	Advance *AdvanceResult `json:"advance,omitempty"`
}

// FollowUpSender delivers one due sequence step
type FollowUpSender struct {
	steps        *StepRunner
	locker       repository.Locker
	tenants      repository.TenantRepository
	contacts     repository.ContactRepository
	interactions repository.InteractionRepository
	credits      *CreditService
	engine       *SequenceService
	gateway      gateway.Gateway
	now          func() time.Time
}

// NewFollowUpSender creates a new follow-up sender
func NewFollowUpSender(
	steps *StepRunner,
	locker repository.Locker,
	tenants repository.TenantRepository,
	contacts repository.ContactRepository,
	interactions repository.InteractionRepository,
	credits *CreditService,
	engine *SequenceService,
	gw gateway.Gateway,
) *FollowUpSender {
	return &FollowUpSender{
		steps:        steps,
		locker:       locker,
		tenants:      tenants,
		contacts:     contacts,
		interactions: interactions,
		credits:      credits,
		engine:       engine,
		gateway:      gw,
		now:          time.Now,
	}
}

// FollowUpTaskID is the idempotency key of a follow-up send. DueAt pins it to
// one enrollment, so re-enrolling a contact in the same sequence starts fresh.
func FollowUpTaskID(job queue.FollowUpJob) string {
	return fmt.Sprintf("followup:%d:%d:%d:%d", job.ContactID, job.SequenceID, job.StepIndex, job.DueAt.UnixMilli())
}

// finalSkip reports whether a skip reason can never clear for this step.
// The others leave the contact due and the task open for the next scan.
func finalSkip(reason string) bool {
	return reason == FollowUpSequenceChanged
}

// Process sends the step described by job if the contact is still waiting on it
func (s *FollowUpSender) Process(ctx context.Context, job queue.FollowUpJob) (*FollowUpResult, error) {
	unlock, err := s.locker.Lock(ctx, job.ContactID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, err := s.steps.Begin(ctx, FollowUpTaskID(job), "followup")
	if err != nil {
		return nil, err
	}
	if task.Finished() {
		_, reason := task.Outcome()
		return &FollowUpResult{Status: reason}, nil
	}

	tc, err := s.tenants.GetContext(ctx, job.TenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, failTask(ctx, task, &NotFoundError{Resource: "tenant", ID: job.TenantID})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant context: %w", err)
	}

	// Preconditions are re-read on every attempt until the message is out.
	if !task.Done("send") {
		reason, err := s.verify(ctx, tc, job)
		if err != nil {
			return nil, failTask(ctx, task, err)
		}
		if reason != "" {
			log.Printf("⏭️  Follow-up %s skipped: %s", task.ID(), reason)
			if finalSkip(reason) {
				if err := task.Finish(ctx, models.TaskSkipped, reason); err != nil {
					return nil, err
				}
			}
			return &FollowUpResult{Status: reason}, nil
		}
	}

	messageID, err := RunStep(ctx, task, "send", func(ctx context.Context) (string, error) {
		res := s.gateway.SendText(ctx, job.InstanceID, job.Phone, job.Message)
		if !res.Success {
			return "", &GatewaySendError{Op: "send_text", Err: res.Error}
		}
		return res.MessageID, nil
	})
	if err != nil {
		return nil, failTask(ctx, task, err)
	}

	_, err = RunStep(ctx, task, "log", func(ctx context.Context) (string, error) {
		step := job.StepIndex
		interaction := &models.Interaction{
			ContactID:  job.ContactID,
			TenantID:   job.TenantID,
			Type:       models.InteractionOutbound,
			Content:    job.Message,
			Source:     models.SourceFollowUp,
			StepIndex:  &step,
			ExternalID: optionalString(messageID),
		}
		if err := s.interactions.Create(ctx, interaction); err != nil {
			return "", err
		}
		return interaction.ID, nil
	})
	if err != nil {
		return nil, failTask(ctx, task, err)
	}

	_, err = RunStep(ctx, task, "charge", func(ctx context.Context) (bool, error) {
		return chargeAfterSend(ctx, s.credits, job.TenantID)
	})
	if err != nil {
		return nil, failTask(ctx, task, err)
	}

	advance, err := RunStep(ctx, task, "advance", func(ctx context.Context) (*AdvanceResult, error) {
		res, err := s.engine.AdvanceFrom(ctx, job.ContactID, job.SequenceID, job.StepIndex, s.now())
		var changed *SequenceChangedError
		if errors.As(err, &changed) {
			// The contact replied or was reassigned while we were sending.
			log.Printf("⚠️  %v; leaving contact as is", err)
			return &AdvanceResult{Status: FollowUpSequenceChanged}, nil
		}
		return res, err
	})
	if err != nil {
		return nil, failTask(ctx, task, err)
	}

	if err := task.Finish(ctx, models.TaskCompleted, FollowUpSent); err != nil {
		return nil, err
	}
	log.Printf("✅ Follow-up step %d sent to contact %d (%s)", job.StepIndex, job.ContactID, advance.Status)
	return &FollowUpResult{Status: FollowUpSent, Advance: advance}, nil
}

func (s *FollowUpSender) verify(ctx context.Context, tc *models.TenantContext, job queue.FollowUpJob) (string, error) {
	contact, err := s.contacts.GetByID(ctx, job.ContactID)
	if errors.Is(err, repository.ErrNotFound) {
		return FollowUpSequenceChanged, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get contact: %w", err)
	}

	if !contact.HasActiveSequence() ||
		*contact.FollowUpSequenceID != job.SequenceID ||
		*contact.FollowUpStep != job.StepIndex {
		return FollowUpSequenceChanged, nil
	}
	if !tc.FollowUpEnabled {
		return FollowUpDisabled, nil
	}
	if contact.AutomationBlocked() {
		return FollowUpContactPausedOrHandoff, nil
	}

	status, err := s.credits.CheckCredits(ctx, job.TenantID)
	if err != nil {
		return "", err
	}
	if !status.HasCredits {
		return FollowUpNoCredits, nil
	}
	return "", nil
}

// failTask marks the task failed when err can never succeed, then returns err
func failTask(ctx context.Context, task *Task, err error) error {
	if IsTerminal(err) {
		if ferr := task.Finish(ctx, models.TaskFailed, err.Error()); ferr != nil {
			log.Printf("⚠️  Failed to mark task %s failed: %v", task.ID(), ferr)
		}
	}
	return err
}

// chargeAfterSend bills a message that was already delivered. Running out of
// credits at this point is logged, not raised, since the send cannot be undone.
func chargeAfterSend(ctx context.Context, credits *CreditService, tenantID int) (bool, error) {
	err := credits.DecrementCredits(ctx, tenantID, models.CreditCostText)
	var insufficient *InsufficientCreditsError
	if errors.As(err, &insufficient) {
		log.Printf("⚠️  Tenant %d sent past its credit limit: %v", tenantID, err)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
