// Package app builds the infrastructure shared by the api and worker binaries.
package app

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"replyflow/internal/config"
	"replyflow/internal/gateway"
	"replyflow/internal/llm"
	"replyflow/internal/queue"
)

// OpenDatabase connects to PostgreSQL and verifies the connection
func OpenDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// QueueSpec returns the retry pipeline settings for a work queue
func QueueSpec(cfg *config.Config, name string) queue.QueueSpec {
	spec := queue.QueueSpec{
		Name:        name,
		RetryDelay:  cfg.RabbitMQ.RetryDelay,
		MaxAttempts: cfg.RabbitMQ.MaxAttempts,
		Prefetch:    1,
	}
	// inbound replies are independent of each other
	if name == queue.InboundQueue {
		spec.Prefetch = 5
	}
	return spec
}

// NewGateway returns the REST gateway client, or the simulated one when GATEWAY_MODE=simulated
func NewGateway(cfg *config.Config) gateway.Gateway {
	if cfg.Gateway.Mode == "simulated" {
		log.Printf("🧪 Using simulated gateway (success rate %.2f)", cfg.Gateway.SuccessRate)
		return gateway.NewSimulatedGateway(cfg.Gateway.SuccessRate)
	}

	return gateway.NewHTTPGateway(gateway.HTTPConfig{
		BaseURL:    cfg.Gateway.BaseURL,
		APIKey:     cfg.Gateway.APIKey,
		WebhookURL: cfg.Gateway.WebhookURL,
		HTTPClient: &http.Client{Timeout: cfg.Gateway.Timeout},
	})
}

// NewGenerator returns the configured generative model client
func NewGenerator(cfg *config.Config) llm.Generator {
	if cfg.Model.Provider == "static" || cfg.Model.APIKey == "" {
		log.Println("🧪 No model API key configured, replies use a static answer")
		return llm.StaticGenerator{Reply: "Thanks for your message! Someone from our team will get back to you shortly."}
	}
	return llm.NewOpenAIGenerator(cfg.Model.APIKey, cfg.Model.BaseURL, cfg.Model.DefaultModel)
}
