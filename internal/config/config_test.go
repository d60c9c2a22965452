package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{BaseURL: "https://colorcompete.example.com"},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:     "localhost",
				Database: "colorcompete",
				User:     "colorcompete",
			},
		},
		Scheduler: SchedulerConfig{DefaultTimezone: "America/New_York"},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Expected valid config to pass, got %v", err)
	}
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.App.BaseURL = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing base URL")
	}
}

func TestValidate_InvalidTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.DefaultTimezone = "Mars/Olympus_Mons"

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown timezone")
	}
}

func TestValidate_EnabledEmailRequiresKey(t *testing.T) {
	cfg := validConfig()
	cfg.Email.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for enabled email without API key")
	}
}

func TestSendDelay(t *testing.T) {
	cfg := &SchedulerConfig{SendDelayMillis: 500}
	if cfg.SendDelay() != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", cfg.SendDelay())
	}
}
