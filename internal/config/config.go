// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level gateway configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Assistant     AssistantConfig     `yaml:"assistant"`
	Database      DatabaseConfig      `yaml:"database"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings. WriteTimeout defaults to 0:
// an in-progress event stream must never be truncated by the server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig holds the model provider settings. The gateway talks
// to exactly one OpenAI-compatible upstream; there is no failover.
type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`        // default text model
	VisionModel string        `yaml:"vision_model"` // selected when the request carries an image part
	OpenTimeout time.Duration `yaml:"open_timeout"` // stream-open deadline; never applied mid-stream
	Auth        *AuthEntry    `yaml:"auth"`         // explicit auth; api_key header when absent
}

// AuthEntry configures upstream authentication.
type AuthEntry struct {
	Type         string   `yaml:"type"` // "api_key", "oauth"
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

// TranscriptionConfig holds the speech-to-text collaborator settings.
// An empty BaseURL leaves transcription unconfigured; audio attachments
// then degrade to a "transcription failed" instruction.
type TranscriptionConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"` // bounded independently of the request timeout
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// Enabled reports whether a transcription endpoint is configured.
func (t TranscriptionConfig) Enabled() bool { return t.BaseURL != "" }

// RateLimitConfig holds the fixed-window admission settings.
type RateLimitConfig struct {
	Window  time.Duration `yaml:"window"`
	Ceiling int           `yaml:"ceiling"`
}

// AssistantConfig holds conversation shaping settings.
type AssistantConfig struct {
	DefaultLanguage string `yaml:"default_language"`
	HistoryWindow   int    `yaml:"history_window"`
	MaxMessageChars int    `yaml:"max_message_chars"`
}

// DatabaseConfig holds SQLite settings for the audit store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // file path or ":memory:"
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0,
			ShutdownTimeout: 30 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			VisionModel: "gpt-4o",
			OpenTimeout: 30 * time.Second,
		},
		Transcription: TranscriptionConfig{
			Model:     "whisper-1",
			Timeout:   15 * time.Second,
			CacheSize: 512,
			CacheTTL:  10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Window:  time.Minute,
			Ceiling: 20,
		},
		Assistant: AssistantConfig{
			DefaultLanguage: "fr",
			HistoryWindow:   12,
			MaxMessageChars: 8000,
		},
		Database: DatabaseConfig{
			DSN: "assistant.db",
		},
	}
}

// Validate reports configuration that would only fail at request time.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if c.Upstream.Model == "" {
		return fmt.Errorf("upstream.model is required")
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.Ceiling <= 0 {
		return fmt.Errorf("rate_limit.window and rate_limit.ceiling must be positive")
	}
	return nil
}
