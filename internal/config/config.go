package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Gateway  GatewayConfig
	Model    ModelConfig
	Worker   WorkerConfig
	Env      string `env:"ENV" envDefault:"development"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string `env:"PORT" envDefault:"8080"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     string `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"replyflow"`
	Password string `env:"POSTGRES_PASSWORD"`
	DBName   string `env:"POSTGRES_DB" envDefault:"replyflow_db"`
}

// RabbitMQConfig holds RabbitMQ configuration
type RabbitMQConfig struct {
	Host        string        `env:"RABBITMQ_HOST" envDefault:"localhost"`
	Port        string        `env:"RABBITMQ_PORT" envDefault:"5672"`
	User        string        `env:"RABBITMQ_DEFAULT_USER" envDefault:"guest"`
	Password    string        `env:"RABBITMQ_DEFAULT_PASS" envDefault:"guest"`
	RetryDelay  time.Duration `env:"QUEUE_RETRY_DELAY" envDefault:"30s"`
	MaxAttempts int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
}

// GatewayConfig holds messaging gateway configuration.
// Mode "simulated" swaps the HTTP client for an in-process gateway.
type GatewayConfig struct {
	Mode        string        `env:"GATEWAY_MODE" envDefault:"http"`
	BaseURL     string        `env:"GATEWAY_URL" envDefault:"http://localhost:3000"`
	APIKey      string        `env:"GATEWAY_API_KEY"`
	WebhookURL  string        `env:"GATEWAY_WEBHOOK_URL"`
	Timeout     time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`
	SuccessRate float64       `env:"GATEWAY_SIMULATED_SUCCESS_RATE" envDefault:"0.95"`
}

// ModelConfig holds generative model configuration
type ModelConfig struct {
	Provider           string  `env:"MODEL_PROVIDER" envDefault:"openai"`
	APIKey             string  `env:"OPENAI_API_KEY"`
	BaseURL            string  `env:"OPENAI_BASE_URL"`
	DefaultModel       string  `env:"MODEL_NAME" envDefault:"gpt-4o-mini"`
	DefaultTemperature float64 `env:"MODEL_TEMPERATURE" envDefault:"0.7"`
}

// WorkerConfig holds orchestrator tuning knobs
type WorkerConfig struct {
	FollowUpInterval        time.Duration `env:"FOLLOWUP_SCAN_INTERVAL" envDefault:"5m"`
	FollowUpBatchSize       int           `env:"FOLLOWUP_BATCH_SIZE" envDefault:"200"`
	StepMaxAttempts         uint          `env:"STEP_MAX_ATTEMPTS" envDefault:"3"`
	StepInitialBackoff      time.Duration `env:"STEP_INITIAL_BACKOFF" envDefault:"500ms"`
	StepMaxBackoff          time.Duration `env:"STEP_MAX_BACKOFF" envDefault:"10s"`
	CampaignMinDelay        time.Duration `env:"CAMPAIGN_MIN_DELAY" envDefault:"2s"`
	CampaignMaxDelay        time.Duration `env:"CAMPAIGN_MAX_DELAY" envDefault:"5s"`
	SendsPerMinute          int           `env:"SENDS_PER_MINUTE" envDefault:"30"`
	CampaignStartsPerMinute int           `env:"CAMPAIGN_STARTS_PER_MINUTE" envDefault:"30"`
	MaxConsecutiveFailures  int           `env:"CAMPAIGN_MAX_CONSECUTIVE_FAILURES" envDefault:"10"`
	HistoryLimit            int           `env:"REPLY_HISTORY_LIMIT" envDefault:"10"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate required fields
	if config.Database.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if config.Worker.CampaignMaxDelay < config.Worker.CampaignMinDelay {
		return nil, fmt.Errorf("CAMPAIGN_MAX_DELAY must be >= CAMPAIGN_MIN_DELAY")
	}
	if config.Worker.SendsPerMinute <= 0 {
		return nil, fmt.Errorf("SENDS_PER_MINUTE must be positive")
	}
	if !config.IsDevelopment() && config.Server.WebhookSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required outside development")
	}

	return config, nil
}

// GetDatabaseDSN returns PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// GetRabbitMQURL returns RabbitMQ connection URL
func (c *Config) GetRabbitMQURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		c.RabbitMQ.User,
		c.RabbitMQ.Password,
		c.RabbitMQ.Host,
		c.RabbitMQ.Port,
	)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
