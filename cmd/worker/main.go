package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"replyflow/internal/app"
	"replyflow/internal/config"
	"replyflow/internal/queue"
	"replyflow/internal/repository"
	"replyflow/internal/service"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := app.OpenDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Connected to database")

	conn, err := queue.NewConnection(cfg.GetRabbitMQURL())
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	log.Println("✅ Connected to RabbitMQ")

	followUpPublisher, err := queue.NewPublisher(conn, app.QueueSpec(cfg, queue.FollowUpQueue))
	if err != nil {
		log.Fatalf("Failed to create follow-up publisher: %v", err)
	}

	// Repositories
	tenantRepo := repository.NewTenantRepository(db)
	contactRepo := repository.NewContactRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)
	quickReplyRepo := repository.NewQuickReplyRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	contactLocker := repository.NewAdvisoryLocker(db, repository.ContactLockClass)
	campaignLocker := repository.NewAdvisoryLocker(db, repository.CampaignLockClass)

	// Services
	gw := app.NewGateway(cfg)
	steps := service.NewStepRunner(taskRepo, service.WithStepRetries(
		cfg.Worker.StepMaxAttempts,
		cfg.Worker.StepInitialBackoff,
		cfg.Worker.StepMaxBackoff,
	))
	templateSvc := service.NewTemplateService()
	contactSvc := service.NewContactService(contactRepo)
	sequenceSvc := service.NewSequenceService(sequenceRepo, contactRepo)
	creditSvc := service.NewCreditService(tenantRepo)
	sendLimiter := service.NewKeyedLimiter(cfg.Worker.SendsPerMinute, 1)

	replySvc := service.NewReplyService(
		steps, contactLocker, contactRepo, interactionRepo, quickReplyRepo,
		creditSvc, contactSvc, app.NewGenerator(cfg), gw,
		service.ReplyConfig{
			HistoryLimit:       cfg.Worker.HistoryLimit,
			DefaultModel:       cfg.Model.DefaultModel,
			DefaultTemperature: cfg.Model.DefaultTemperature,
		},
	)
	dispatcher := service.NewCampaignDispatcher(
		steps, campaignLocker, campaignRepo, contactRepo, interactionRepo, templateSvc, gw,
		sendLimiter,
		service.NewKeyedLimiter(cfg.Worker.CampaignStartsPerMinute, 5),
		service.DispatcherConfig{
			MinDelay:               cfg.Worker.CampaignMinDelay,
			MaxDelay:               cfg.Worker.CampaignMaxDelay,
			MaxConsecutiveFailures: cfg.Worker.MaxConsecutiveFailures,
		},
	)
	sender := service.NewFollowUpSender(steps, contactLocker, tenantRepo, contactRepo, interactionRepo, creditSvc, sequenceSvc, gw)
	scheduler := service.NewFollowUpScheduler(
		sequenceRepo, instanceRepo, sequenceSvc, creditSvc, templateSvc, followUpPublisher,
		cfg.Worker.FollowUpInterval, cfg.Worker.FollowUpBatchSize,
	)
	log.Println("✅ Services initialized")

	inboundHandler := queue.JSONHandler(func(ctx context.Context, job queue.InboundMessageJob) error {
		tc, err := tenantRepo.GetContext(ctx, job.TenantID)
		if errors.Is(err, repository.ErrNotFound) {
			return settle("reply", job.TaskID, &service.NotFoundError{Resource: "tenant", ID: job.TenantID})
		}
		if err != nil {
			return err
		}

		result, err := replySvc.HandleInbound(ctx, *tc, job)
		if err == nil {
			log.Printf("💬 Reply task %s: %s", job.TaskID, result.Status)
		}
		return settle("reply", job.TaskID, err)
	})

	campaignHandler := queue.JSONHandler(func(ctx context.Context, job queue.CampaignJob) error {
		result, err := dispatcher.Start(ctx, job)
		if err == nil {
			log.Printf("📣 Campaign %d: %s (sent %d, failed %d, skipped %d)",
				result.CampaignID, result.Status, result.Sent, result.Failed, result.Skipped)
		}
		return settle("campaign", service.CampaignTaskID(job.CampaignID), err)
	})

	followUpHandler := queue.JSONHandler(func(ctx context.Context, job queue.FollowUpJob) error {
		result, err := sender.Process(ctx, job)
		if err == nil {
			log.Printf("🔁 Follow-up %s: %s", service.FollowUpTaskID(job), result.Status)
		}
		return settle("follow-up", service.FollowUpTaskID(job), err)
	})

	consumers := map[string]queue.MessageHandler{
		queue.InboundQueue:  inboundHandler,
		queue.CampaignQueue: campaignHandler,
		queue.FollowUpQueue: followUpHandler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for name, h := range consumers {
		consumer, err := queue.NewConsumer(conn, app.QueueSpec(cfg, name), h)
		if err != nil {
			log.Fatalf("Failed to create consumer for %s: %v", name, err)
		}
		g.Go(func() error { return consumer.Run(gctx) })
	}
	g.Go(func() error { return scheduler.Run(gctx) })

	log.Println("✅ Worker started")

	if err := g.Wait(); err != nil {
		log.Printf("❌ Worker stopped with error: %v", err)
	}

	log.Println("🛑 Shutting down gracefully...")
	log.Println("✅ Worker stopped")
}

// settle turns a handler error into a delivery outcome. Terminal errors
// have already been recorded on the task, so the message is acked.
func settle(kind, taskID string, err error) error {
	if err == nil {
		return nil
	}
	if service.IsTerminal(err) {
		log.Printf("⚠️  %s task %s will not be retried: %v", kind, taskID, err)
		return nil
	}
	return err
}
