// Package config provides configuration for the task tracker.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the task tracker configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`
	// AllowedOrigins may make credentialed cross-origin requests. Empty means same-origin only.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Database
	DatabaseDriver string `yaml:"database_driver"`
	DatabaseURL    string `yaml:"database_url"`

	// LLM settings
	LLMBaseURL string        `yaml:"llm_base_url"`
	LLMAPIKey  string        `yaml:"llm_api_key"`
	LLMModel   string        `yaml:"llm_model"`
	LLMTimeout time.Duration `yaml:"-"`
	Mode       string        `yaml:"mode"`

	// Chat turn bounds
	ChatMaxSteps    int           `yaml:"chat_max_steps"`
	ChatTurnTimeout time.Duration `yaml:"-"`

	// Idempotency
	IdempotencyBucket time.Duration `yaml:"-"`
	IdempotencyTTL    time.Duration `yaml:"-"`
	IdempotencyWait   time.Duration `yaml:"-"`

	// Auth
	SecretPassword   string        `yaml:"secret_password"`
	SessionTTL       time.Duration `yaml:"-"`
	LoginMaxAttempts int           `yaml:"login_max_attempts"`
	LoginLockout     time.Duration `yaml:"-"`

	// Tool guard limits
	ToolMaxBatch       int `yaml:"tool_max_batch"`
	ToolMaxDetailChars int `yaml:"tool_max_detail_chars"`

	// Websocket
	WSPingInterval time.Duration `yaml:"-"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// fileConfig mirrors the YAML overlay. Durations are given in milliseconds.
type fileConfig struct {
	Config              `yaml:",inline"`
	LLMTimeoutMS        int `yaml:"llm_timeout_ms"`
	ChatTurnTimeoutMS   int `yaml:"chat_turn_timeout_ms"`
	IdempotencyBucketMS int `yaml:"idempotency_bucket_ms"`
	IdempotencyTTLMS    int `yaml:"idempotency_ttl_ms"`
	IdempotencyWaitMS   int `yaml:"idempotency_wait_ms"`
	SessionTTLHours     int `yaml:"session_ttl_hours"`
	LoginLockoutMinutes int `yaml:"login_lockout_minutes"`
	WSPingIntervalMS    int `yaml:"ws_ping_interval_ms"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		HTTPPort:           8080,
		DatabaseDriver:     "sqlite3",
		DatabaseURL:        "file:tasks.db?cache=shared&mode=rwc",
		LLMBaseURL:         "https://openrouter.ai/api",
		LLMModel:           "openai/gpt-4o-mini",
		LLMTimeout:         120 * time.Second,
		ChatMaxSteps:       10,
		ChatTurnTimeout:    5 * time.Minute,
		IdempotencyBucket:  10 * time.Second,
		IdempotencyTTL:     10 * time.Minute,
		IdempotencyWait:    30 * time.Second,
		SessionTTL:         24 * time.Hour,
		LoginMaxAttempts:   3,
		LoginLockout:       15 * time.Minute,
		ToolMaxBatch:       25,
		ToolMaxDetailChars: 20000,
		WSPingInterval:     30 * time.Second,
		LogLevel:           "info",
	}
}

// Load loads configuration from CONFIG_FILE (if set) and environment variables.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	fc := fileConfig{Config: *c}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	*c = fc.Config
	setMillis(&c.LLMTimeout, fc.LLMTimeoutMS)
	setMillis(&c.ChatTurnTimeout, fc.ChatTurnTimeoutMS)
	setMillis(&c.IdempotencyBucket, fc.IdempotencyBucketMS)
	setMillis(&c.IdempotencyTTL, fc.IdempotencyTTLMS)
	setMillis(&c.IdempotencyWait, fc.IdempotencyWaitMS)
	setMillis(&c.WSPingInterval, fc.WSPingIntervalMS)
	if fc.SessionTTLHours > 0 {
		c.SessionTTL = time.Duration(fc.SessionTTLHours) * time.Hour
	}
	if fc.LoginLockoutMinutes > 0 {
		c.LoginLockout = time.Duration(fc.LoginLockoutMinutes) * time.Minute
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.DatabaseDriver = getEnv("DATABASE_DRIVER", c.DatabaseDriver)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.LLMAPIKey = getEnv("LLM_API_KEY", getEnv("OPENROUTER_API_KEY", c.LLMAPIKey))
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.LLMTimeout = getEnvMillis("LLM_TIMEOUT_MS", c.LLMTimeout)
	c.Mode = getEnv("MODE", c.Mode)
	c.ChatMaxSteps = getEnvInt("CHAT_MAX_STEPS", c.ChatMaxSteps)
	c.ChatTurnTimeout = getEnvMillis("CHAT_TURN_TIMEOUT_MS", c.ChatTurnTimeout)
	c.IdempotencyBucket = getEnvMillis("IDEMPOTENCY_BUCKET_MS", c.IdempotencyBucket)
	c.IdempotencyTTL = getEnvMillis("IDEMPOTENCY_TTL_MS", c.IdempotencyTTL)
	c.IdempotencyWait = getEnvMillis("IDEMPOTENCY_WAIT_MS", c.IdempotencyWait)
	c.SecretPassword = getEnv("SECRET_PASSWORD", c.SecretPassword)
	c.SessionTTL = time.Duration(getEnvInt("SESSION_TTL_HOURS", int(c.SessionTTL/time.Hour))) * time.Hour
	c.LoginMaxAttempts = getEnvInt("LOGIN_MAX_ATTEMPTS", c.LoginMaxAttempts)
	c.LoginLockout = time.Duration(getEnvInt("LOGIN_LOCKOUT_MINUTES", int(c.LoginLockout/time.Minute))) * time.Minute
	c.ToolMaxBatch = getEnvInt("TOOL_MAX_BATCH", c.ToolMaxBatch)
	c.ToolMaxDetailChars = getEnvInt("TOOL_MAX_DETAIL_CHARS", c.ToolMaxDetailChars)
	c.WSPingInterval = getEnvMillis("WS_PING_INTERVAL_MS", c.WSPingInterval)
	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		c.AllowedOrigins = splitList(val)
	}
}

// Validate rejects unknown drivers and non-positive bounds.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL %q", c.LogLevel)
	}
	positive := map[string]int64{
		"HTTP_PORT":             int64(c.HTTPPort),
		"CHAT_MAX_STEPS":        int64(c.ChatMaxSteps),
		"CHAT_TURN_TIMEOUT_MS":  int64(c.ChatTurnTimeout),
		"IDEMPOTENCY_BUCKET_MS": int64(c.IdempotencyBucket),
		"IDEMPOTENCY_TTL_MS":    int64(c.IdempotencyTTL),
		"IDEMPOTENCY_WAIT_MS":   int64(c.IdempotencyWait),
		"SESSION_TTL_HOURS":     int64(c.SessionTTL),
		"LOGIN_MAX_ATTEMPTS":    int64(c.LoginMaxAttempts),
		"TOOL_MAX_BATCH":        int64(c.ToolMaxBatch),
		"TOOL_MAX_DETAIL_CHARS": int64(c.ToolMaxDetailChars),
	}
	for key, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

// AuthEnabled reports whether a password gate is configured.
func (c *Config) AuthEnabled() bool {
	return c.SecretPassword != ""
}

// OriginAllowed reports whether origin is in AllowedOrigins.
func (c *Config) OriginAllowed(origin string) bool {
	for _, o := range c.AllowedOrigins {
		if strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	return false
}

// MockMode reports whether the scripted LLM client should be used.
func (c *Config) MockMode() bool {
	return c.Mode == "MOCK"
}

func setMillis(d *time.Duration, ms int) {
	if ms > 0 {
		*d = time.Duration(ms) * time.Millisecond
	}
}

func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvMillis(key string, defaultVal time.Duration) time.Duration {
	return time.Duration(getEnvInt(key, int(defaultVal/time.Millisecond))) * time.Millisecond
}
