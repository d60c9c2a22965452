// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Email     EmailConfig     `mapstructure:"email"`
	GiftCard  GiftCardConfig  `mapstructure:"gift_card"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// AppConfig contains platform-wide settings substituted into email templates.
type AppConfig struct {
	BaseURL    string `mapstructure:"base_url"` // used to build contest, dashboard and unsubscribe links
	SenderName string `mapstructure:"sender_name"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// RedisConfig contains Redis connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// EmailConfig contains transactional email provider settings.
type EmailConfig struct {
	APIURL      string `mapstructure:"api_url"`
	APIKey      string `mapstructure:"api_key"`
	SenderEmail string `mapstructure:"sender_email"`
	SenderName  string `mapstructure:"sender_name"`
	Enabled     bool   `mapstructure:"enabled"`
}

// GiftCardConfig contains gift card provider settings.
type GiftCardConfig struct {
	APIURL  string `mapstructure:"api_url"`
	APIKey  string `mapstructure:"api_key"`
	Enabled bool   `mapstructure:"enabled"`
}

// SchedulerConfig contains automation scheduler settings.
type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	DefaultTimezone string `mapstructure:"default_timezone"`  // fallback when an automation has no timezone
	SendDelayMillis int    `mapstructure:"send_delay_millis"` // inter-send delay for drawing participant fan-out
}

// MetricsConfig contains metrics exporter settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/colorcompete/")
	}

	// Bind specific environment variables (explicit bindings for 12-factor app compliance)
	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// App configuration
	_ = v.BindEnv("app.base_url", "APP_BASE_URL")
	_ = v.BindEnv("app.sender_name", "APP_SENDER_NAME")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	// Email provider configuration
	_ = v.BindEnv("email.api_url", "EMAIL_API_URL")
	_ = v.BindEnv("email.api_key", "EMAIL_API_KEY", "BREVO_API_KEY")
	_ = v.BindEnv("email.sender_email", "EMAIL_SENDER_EMAIL")
	_ = v.BindEnv("email.sender_name", "EMAIL_SENDER_NAME")
	_ = v.BindEnv("email.enabled", "EMAIL_ENABLED")

	// Gift card provider configuration
	_ = v.BindEnv("gift_card.api_url", "GIFT_CARD_API_URL")
	_ = v.BindEnv("gift_card.api_key", "GIFT_CARD_API_KEY")
	_ = v.BindEnv("gift_card.enabled", "GIFT_CARD_ENABLED")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.default_timezone", "SCHEDULER_DEFAULT_TIMEZONE")
	_ = v.BindEnv("scheduler.send_delay_millis", "SCHEDULER_SEND_DELAY_MILLIS")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.default_timezone", "America/New_York")
	v.SetDefault("scheduler.send_delay_millis", 500)
	v.SetDefault("metrics.prometheus.path", "/metrics")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.App.BaseURL == "" {
		return fmt.Errorf("app.base_url is required")
	}
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Email.Enabled && c.Email.APIKey == "" {
		return fmt.Errorf("email.api_key is required when email is enabled")
	}
	if c.Email.Enabled && c.Email.SenderEmail == "" {
		return fmt.Errorf("email.sender_email is required when email is enabled")
	}
	if c.GiftCard.Enabled && c.GiftCard.APIKey == "" {
		return fmt.Errorf("gift_card.api_key is required when gift cards are enabled")
	}
	if _, err := c.Scheduler.GetDefaultLocation(); err != nil {
		return fmt.Errorf("scheduler.default_timezone is invalid: %w", err)
	}

	return nil
}

// GetDefaultLocation returns the fallback timezone location.
func (c *SchedulerConfig) GetDefaultLocation() (*time.Location, error) {
	return time.LoadLocation(c.DefaultTimezone)
}

// SendDelay returns the inter-send delay as a duration.
func (c *SchedulerConfig) SendDelay() time.Duration {
	return time.Duration(c.SendDelayMillis) * time.Millisecond
}
