package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Worker.FollowUpInterval != 5*time.Minute {
		t.Errorf("Expected 5m follow-up interval, got %v", cfg.Worker.FollowUpInterval)
	}
	if cfg.Worker.CampaignMinDelay != 2*time.Second || cfg.Worker.CampaignMaxDelay != 5*time.Second {
		t.Errorf("Unexpected campaign pacing %v-%v", cfg.Worker.CampaignMinDelay, cfg.Worker.CampaignMaxDelay)
	}
	if cfg.RabbitMQ.MaxAttempts != 3 {
		t.Errorf("Expected 3 queue attempts, got %d", cfg.RabbitMQ.MaxAttempts)
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development mode")
	}
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing password",
			env:     map[string]string{"POSTGRES_PASSWORD": ""},
			wantErr: "POSTGRES_PASSWORD",
		},
		{
			name:    "inverted pacing",
			env:     map[string]string{"CAMPAIGN_MIN_DELAY": "10s", "CAMPAIGN_MAX_DELAY": "1s"},
			wantErr: "CAMPAIGN_MAX_DELAY",
		},
		{
			name:    "zero send rate",
			env:     map[string]string{"SENDS_PER_MINUTE": "0"},
			wantErr: "SENDS_PER_MINUTE",
		},
		{
			name:    "production without webhook secret",
			env:     map[string]string{"ENV": "production", "WEBHOOK_SECRET": ""},
			wantErr: "WEBHOOK_SECRET",
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"FOLLOWUP_SCAN_INTERVAL": "soon"},
			wantErr: "failed to parse environment",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("POSTGRES_PASSWORD", "secret")
			t.Setenv("ENV", "development")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConnectionStrings(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Host: "db", Port: "5432", User: "rf", Password: "pw", DBName: "replyflow"},
		RabbitMQ: RabbitMQConfig{Host: "mq", Port: "5672", User: "guest", Password: "guest"},
	}

	if got := cfg.GetDatabaseDSN(); got != "host=db port=5432 user=rf password=pw dbname=replyflow sslmode=disable" {
		t.Errorf("Unexpected DSN: %s", got)
	}
	if got := cfg.GetRabbitMQURL(); got != "amqp://guest:guest@mq:5672/" {
		t.Errorf("Unexpected AMQP URL: %s", got)
	}
}
