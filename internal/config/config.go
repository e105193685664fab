// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	FrontendURL     string
	DBPath          string
	LogLevel        string
	Backend         BackendConfig
	Status          StatusConfig
	TranscriptTTL   time.Duration
	DisplayTimezone string
	ActionLogPage   int
	ChatTimeout     time.Duration
	ConversationLog ConversationLogConfig
	RateLimit       RateLimitConfig
}

// BackendConfig locates the trading backend API.
type BackendConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// StatusConfig controls the backend availability poller.
type StatusConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// RateLimitConfig throttles chat submissions per browser session.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/tradedesk.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Backend: BackendConfig{
			URL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000"), "/"),
			APIKey:  getEnv("BACKEND_API_KEY", ""),
			Timeout: getEnvDuration("BACKEND_TIMEOUT", 30*time.Second),
		},
		Status: StatusConfig{
			PollInterval: getEnvDuration("STATUS_POLL_INTERVAL", 30*time.Second),
			Timeout:      getEnvDuration("STATUS_TIMEOUT", 2*time.Second),
		},
		TranscriptTTL:   getEnvDuration("TRANSCRIPT_TTL", 30*24*time.Hour),
		DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "Local"),
		ActionLogPage:   getEnvInt("ACTION_LOG_PAGE_SIZE", 50),
		ChatTimeout:     getEnvDuration("CHAT_QUERY_TIMEOUT", 30*time.Second),
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("CHAT_RATE_LIMIT", 10),
			WindowDuration:    getEnvDuration("CHAT_RATE_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("BACKEND_URL cannot be empty")
	}
	if c.Status.PollInterval <= 0 {
		return fmt.Errorf("STATUS_POLL_INTERVAL must be > 0")
	}
	if c.Status.Timeout <= 0 {
		return fmt.Errorf("STATUS_TIMEOUT must be > 0")
	}
	if c.TranscriptTTL <= 0 {
		return fmt.Errorf("TRANSCRIPT_TTL must be > 0")
	}
	if c.ActionLogPage <= 0 {
		return fmt.Errorf("ACTION_LOG_PAGE_SIZE must be > 0")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be > 0")
	}
	if c.ChatTimeout <= 0 {
		return fmt.Errorf("CHAT_QUERY_TIMEOUT must be > 0")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE: %w", err)
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("CHAT_RATE_WINDOW must be > 0")
	}
	return nil
}

// Location resolves DisplayTimezone.
func (c *Config) Location() (*time.Location, error) {
	if c.DisplayTimezone == "" || c.DisplayTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.DisplayTimezone)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the proxy routes.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
