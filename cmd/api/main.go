package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"replyflow/internal/app"
	"replyflow/internal/config"
	"replyflow/internal/handler"
	"replyflow/internal/middleware"
	"replyflow/internal/queue"
	"replyflow/internal/repository"
	"replyflow/internal/service"
)

const version = "1.0.0"

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

	inboundPublisher, err := queue.NewPublisher(conn, app.QueueSpec(cfg, queue.InboundQueue))
	if err != nil {
		log.Fatalf("Failed to create inbound publisher: %v", err)
	}
	campaignPublisher, err := queue.NewPublisher(conn, app.QueueSpec(cfg, queue.CampaignQueue))
	if err != nil {
		log.Fatalf("Failed to create campaign publisher: %v", err)
	}

	// Repositories
	tenantRepo := repository.NewTenantRepository(db)
	contactRepo := repository.NewContactRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)

	// Services
	templateSvc := service.NewTemplateService()
	contactSvc := service.NewContactService(contactRepo)
	sequenceSvc := service.NewSequenceService(sequenceRepo, contactRepo)
	creditSvc := service.NewCreditService(tenantRepo)
	campaignSvc := service.NewCampaignService(campaignRepo, instanceRepo, templateSvc, campaignPublisher)
	webhookSvc := service.NewWebhookService(instanceRepo, contactRepo, interactionRepo, sequenceSvc, inboundPublisher)
	instanceSvc := service.NewInstanceService(instanceRepo, app.NewGateway(cfg))
	healthSvc := service.NewHealthService(db, conn, version)
	log.Println("✅ Services initialized")

	if cfg.Server.WebhookSecret == "" {
		log.Println("⚠️  WEBHOOK_SECRET is empty, every webhook will be rejected")
	}

	router := handler.NewRouter(handler.Handlers{
		Health:   handler.NewHealthHandler(healthSvc),
		Webhook:  handler.NewWebhookHandler(webhookSvc, cfg.Server.WebhookSecret),
		Campaign: handler.NewCampaignHandler(campaignSvc),
		Contact:  handler.NewContactHandler(contactSvc, sequenceSvc),
		Tenant:   handler.NewTenantHandler(creditSvc, sequenceSvc),
		Instance: handler.NewInstanceHandler(instanceSvc),
	}, middleware.Recovery, middleware.Logging)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		log.Printf("🚀 API Server starting on port %s", srv.Addr)
		log.Printf("📍 Health check: http://localhost%s/health", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	log.Println("✅ API stopped")
}
