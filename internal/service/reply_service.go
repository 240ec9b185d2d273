package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"replyflow/internal/gateway"
	"replyflow/internal/llm"
	"replyflow/internal/models"
	"replyflow/internal/queue"
	"replyflow/internal/repository"
)

// Reply outcomes
const (
	ReplySent     = "sent"
	ReplyDisabled = "disabled"
	ReplyBlocked  = "blocked"
	ReplyPaused   = "paused"
	ReplyHandoff  = "handoff"
)

// ReplyResult is the outcome of one AI reply task
type ReplyResult struct {
	Status    string `json:"status"`
	Reply     string `json:"reply,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// ReplyConfig holds reply pipeline defaults
type ReplyConfig struct {
	HistoryLimit       int
	DefaultModel       string
	DefaultTemperature float64
}

type historyLine struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ReplyService is the AI reply pipeline
type ReplyService struct {
	steps        *StepRunner
	locker       repository.Locker
	contacts     repository.ContactRepository
	interactions repository.InteractionRepository
	quickReplies repository.QuickReplyRepository
	credits      *CreditService
	contactSvc   *ContactService
	generator    llm.Generator
	gateway      gateway.Gateway
	cfg          ReplyConfig
}

// NewReplyService creates a new reply service
func NewReplyService(
	steps *StepRunner,
	locker repository.Locker,
	contacts repository.ContactRepository,
	interactions repository.InteractionRepository,
	quickReplies repository.QuickReplyRepository,
	credits *CreditService,
	contactSvc *ContactService,
	generator llm.Generator,
	gw gateway.Gateway,
	cfg ReplyConfig,
) *ReplyService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	return &ReplyService{
		steps:        steps,
		locker:       locker,
		contacts:     contacts,
		interactions: interactions,
		quickReplies: quickReplies,
		credits:      credits,
		contactSvc:   contactSvc,
		generator:    generator,
		gateway:      gw,
		cfg:          cfg,
	}
}

// HandleInbound answers one inbound message. Each stage is checkpointed,
// so a redelivered job never generates, sends or charges twice.
func (s *ReplyService) HandleInbound(ctx context.Context, tc models.TenantContext, job queue.InboundMessageJob) (*ReplyResult, error) {
	unlock, err := s.locker.Lock(ctx, job.ContactID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// The cursor is read under the lock so a concurrent delivery sees every checkpoint.
	task, err := s.steps.Begin(ctx, job.TaskID, "reply")
	if err != nil {
		return nil, err
	}
	if task.Finished() {
		_, reason := task.Outcome()
		return &ReplyResult{Status: reason}, nil
	}

	enabled, err := RunStep(ctx, task, "check_enabled", func(ctx context.Context) (bool, error) {
		return tc.AutoReplyEnabled, nil
	})
	if err != nil {
		return nil, err
	}
	if !enabled {
		return s.skip(ctx, task, ReplyDisabled)
	}

	hasCredits, err := RunStep(ctx, task, "check_credits", func(ctx context.Context) (bool, error) {
		status, err := s.credits.CheckCredits(ctx, tc.TenantID)
		if err != nil {
			return false, err
		}
		return status.HasCredits, nil
	})
	if err != nil {
		return nil, failTask(ctx, task, err)
	}
	if !hasCredits {
		return s.skip(ctx, task, ReplyBlocked)
	}

	block, err := RunStep(ctx, task, "check_contact", func(ctx context.Context) (string, error) {
		_, err := s.contactSvc.CheckAutomation(ctx, job.ContactID)
		var paused *ContactPausedError
		if errors.As(err, &paused) {
			if paused.Handoff {
				return ReplyHandoff, nil
			}
			return ReplyPaused, nil
		}
		return "", err
	})
	if err != nil {
		return nil, failTask(ctx, task, err)
	}
	if block != "" {
		return s.skip(ctx, task, block)
	}

	history, err := RunStep(ctx, task, "history", func(ctx context.Context) ([]historyLine, error) {
		rows, err := s.interactions.ListRecent(ctx, job.ContactID, job.InboundInteractionID, s.cfg.HistoryLimit)
		if err != nil {
			return nil, err
		}
		lines := make([]historyLine, 0, len(rows))
		for _, row := range rows {
			role := "Customer"
			if row.Type == models.InteractionOutbound {
				role = "Assistant"
			}
			lines = append(lines, historyLine{Role: role, Content: row.Content})
		}
		return lines, nil
	})
	if err != nil {
		return nil, err
	}

	knowledge, err := RunStep(ctx, task, "knowledge", func(ctx context.Context) (string, error) {
		replies, err := s.quickReplies.ListActive(ctx, tc.TenantID)
		if err != nil {
			return "", err
		}
		lines := make([]string, 0, len(replies))
		for _, qr := range replies {
			lines = append(lines, fmt.Sprintf("- %s: %s", qr.Label, qr.Content))
		}
		return strings.Join(lines, "\n"), nil
	})
	if err != nil {
		return nil, err
	}

	reply, err := RunStep(ctx, task, "generate", func(ctx context.Context) (string, error) {
		text, err := s.generator.Generate(ctx, s.buildPrompt(tc, history, knowledge, job.Body))
		if err != nil {
			return "", &GenerativeModelError{Err: err}
		}
		return text, nil
	})
	if err != nil {
		return nil, err
	}

	messageID, err := RunStep(ctx, task, "send", func(ctx context.Context) (string, error) {
		res := s.gateway.SendText(ctx, job.InstanceID, job.Phone, reply)
		if !res.Success {
			return "", &GatewaySendError{Op: "send_text", Err: res.Error}
		}
		return res.MessageID, nil
	})
	if err != nil {
		return nil, err
	}

	_, err = RunStep(ctx, task, "log", func(ctx context.Context) (string, error) {
		interaction := &models.Interaction{
			ContactID:  job.ContactID,
			TenantID:   tc.TenantID,
			Type:       models.InteractionOutbound,
			Content:    reply,
			Source:     models.SourceAI,
			ExternalID: optionalString(messageID),
		}
		if err := s.interactions.Create(ctx, interaction); err != nil {
			return "", err
		}
		return interaction.ID, nil
	})
	if err != nil {
		return nil, err
	}

	_, err = RunStep(ctx, task, "charge", func(ctx context.Context) (bool, error) {
		return chargeAfterSend(ctx, s.credits, tc.TenantID)
	})
	if err != nil {
		return nil, failTask(ctx, task, err)
	}

	_, err = RunStep(ctx, task, "activate", func(ctx context.Context) (bool, error) {
		return s.contactSvc.ActivateIfNew(ctx, job.ContactID)
	})
	if err != nil {
		return nil, err
	}

	if err := task.Finish(ctx, models.TaskCompleted, ReplySent); err != nil {
		return nil, err
	}
	log.Printf("🤖 Replied to contact %d (task %s)", job.ContactID, task.ID())
	return &ReplyResult{Status: ReplySent, Reply: reply, MessageID: messageID}, nil
}

func (s *ReplyService) skip(ctx context.Context, task *Task, status string) (*ReplyResult, error) {
	log.Printf("⏭️  Reply task %s skipped: %s", task.ID(), status)
	if err := task.Finish(ctx, models.TaskSkipped, status); err != nil {
		return nil, err
	}
	return &ReplyResult{Status: status}, nil
}

func (s *ReplyService) buildPrompt(tc models.TenantContext, history []historyLine, knowledge, message string) llm.Prompt {
	var system strings.Builder
	persona := tc.Persona
	if persona == "" {
		persona = "a friendly and helpful customer support assistant"
	}
	fmt.Fprintf(&system, "You are %s for %s.\n", persona, tc.BusinessName)
	system.WriteString("Reply to the customer in a short, natural chat message in the language they use. ")
	system.WriteString("If you do not know the answer, say a team member will follow up.")
	if knowledge != "" {
		system.WriteString("\n\nBusiness knowledge:\n")
		system.WriteString(knowledge)
	}

	var user strings.Builder
	if len(history) > 0 {
		user.WriteString("Conversation so far:\n")
		for _, line := range history {
			fmt.Fprintf(&user, "%s: %s\n", line.Role, line.Content)
		}
		user.WriteString("\n")
	}
	fmt.Fprintf(&user, "Customer: %s\nAssistant:", message)

	temperature := s.cfg.DefaultTemperature
	if tc.Temperature != nil {
		temperature = *tc.Temperature
	}
	model := tc.Model
	if model == "" {
		model = s.cfg.DefaultModel
	}

	return llm.Prompt{
		System:      system.String(),
		User:        user.String(),
		Temperature: temperature,
		Model:       model,
	}
}
