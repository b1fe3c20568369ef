// Package config loads and validates application configuration from a TOML
// file and CLAUSEWATCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Logging  LoggingConfig  `koanf:"logging"`
	Alerts   AlertsConfig   `koanf:"alerts"`
	Email    EmailConfig    `koanf:"email"`
	SMS      SMSConfig      `koanf:"sms"`
	Voice    VoiceConfig    `koanf:"voice"`
	Calendar CalendarConfig `koanf:"calendar"`
	AI       AIConfig       `koanf:"ai"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	HTTPServerTimeout time.Duration `koanf:"http_server_timeout"`
}

// SQLiteConfig holds database settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// AlertsConfig controls the dispatch loop and channel planning.
type AlertsConfig struct {
	Enabled bool `koanf:"enabled"`
	// DispatchInterval is the scheduler cadence for dispatch runs.
	DispatchInterval time.Duration `koanf:"dispatch_interval"`
	// BatchLimit bounds how many due alerts one run processes.
	BatchLimit int `koanf:"batch_limit"`
	// MaxAttempts is the delivery retry budget before an alert goes dead.
	MaxAttempts int `koanf:"max_attempts"`
	// SeverityThreshold is the planner's high-severity cutoff; at or above
	// it the default channel plan includes SMS, voice, and calendar.
	SeverityThreshold int `koanf:"severity_threshold"`
	// FallbackEmail receives every alert whose merged recipient list would
	// otherwise have no email address.
	FallbackEmail string `koanf:"fallback_email"`
	// NotificationTimeout bounds each individual channel-send call.
	NotificationTimeout time.Duration `koanf:"notification_timeout"`
	// SubjectTemplate renders the notification subject. Available
	// variables: {{kind}}, {{severity}}, {{contract_id}}.
	SubjectTemplate string `koanf:"subject_template"`
}

// EmailConfig selects and configures the outbound email provider.
type EmailConfig struct {
	// Provider is "smtp" or "resend".
	Provider      string `koanf:"provider"`
	From          string `koanf:"from"`
	ReplyTo       string `koanf:"reply_to"`
	SMTPHost      string `koanf:"smtp_host"`
	SMTPPort      int    `koanf:"smtp_port"`
	SMTPUsername  string `koanf:"smtp_username"`
	SMTPPassword  string `koanf:"smtp_password"`
	SMTPSecurity  string `koanf:"smtp_security"` // none, starttls, tls
	SkipTLSVerify bool   `koanf:"tls_insecure_skip_verify"`
	ResendAPIKey  string `koanf:"resend_api_key"`
}

// SMSConfig points at the SMS gateway.
type SMSConfig struct {
	GatewayURL string `koanf:"gateway_url"`
	AuthToken  string `koanf:"auth_token"`
	From       string `koanf:"from"`
}

// VoiceConfig points at the voice-call gateway.
type VoiceConfig struct {
	GatewayURL string `koanf:"gateway_url"`
	AuthToken  string `koanf:"auth_token"`
	From       string `koanf:"from"`
}

// CalendarConfig points at the calendar gateway. Calendar delivery is
// best-effort and never affects alert status.
type CalendarConfig struct {
	GatewayURL string `koanf:"gateway_url"`
	AuthToken  string `koanf:"auth_token"`
}

// AIConfig controls optional LLM polishing of alert messages.
type AIConfig struct {
	Enabled     bool    `koanf:"enabled"`
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float32 `koanf:"temperature"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8125,
			HTTPServerTimeout: 30 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "clausewatch.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Alerts: AlertsConfig{
			Enabled:             true,
			DispatchInterval:    time.Minute,
			BatchLimit:          50,
			MaxAttempts:         3,
			SeverityThreshold:   8,
			FallbackEmail:       "legal@acme.com",
			NotificationTimeout: 5 * time.Second,
			SubjectTemplate:     "[Contract Alert] {{kind}} (sev {{severity}})",
		},
		Email: EmailConfig{
			Provider:     "smtp",
			SMTPPort:     587,
			SMTPSecurity: "starttls",
		},
		AI: AIConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   256,
			Temperature: 0.2,
		},
	}
}

// Load reads configuration from the given TOML file (if present) and
// overlays CLAUSEWATCH_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q: %w", path, err)
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// CLAUSEWATCH_ALERTS_FALLBACK_EMAIL -> alerts.fallback_email
	if err := k.Load(env.Provider("CLAUSEWATCH_", ".", func(s string) string {
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, "CLAUSEWATCH_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Alerts.BatchLimit <= 0 {
		c.Alerts.BatchLimit = 50
	}
	if c.Alerts.MaxAttempts <= 0 {
		c.Alerts.MaxAttempts = 3
	}
	if c.Alerts.DispatchInterval <= 0 {
		c.Alerts.DispatchInterval = time.Minute
	}
	if c.Alerts.NotificationTimeout <= 0 {
		c.Alerts.NotificationTimeout = 5 * time.Second
	}
	if c.Alerts.SeverityThreshold < 0 || c.Alerts.SeverityThreshold > 10 {
		return fmt.Errorf("alerts.severity_threshold must be within [0,10], got %d", c.Alerts.SeverityThreshold)
	}
	if c.Alerts.FallbackEmail == "" {
		return fmt.Errorf("alerts.fallback_email is required")
	}
	switch strings.ToLower(c.Email.Provider) {
	case "smtp", "resend":
	default:
		return fmt.Errorf("email.provider must be smtp or resend, got %q", c.Email.Provider)
	}
	if c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path is required")
	}
	return nil
}
