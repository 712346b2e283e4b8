// Package config loads and validates the Hanashi configuration file.
//
// The configuration is read once at process start and the resulting *Config is
// handed to every component constructor. Nothing in Hanashi reaches for it
// through a package-level variable.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PlaceholderAPIKey is the key shipped in the default file. Validate rejects
// it so the bot never starts against the real API with a dummy credential.
const PlaceholderAPIKey = "sk-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"

// DefaultPath is used when HANASHI_CONFIG is not set.
const DefaultPath = "data/hanashi/config.yaml"

// ErrDefaultWritten is returned by Load when no configuration file existed
// and a default one has just been written. The operator must edit it (at least
// api_key) before the bot can start.
var ErrDefaultWritten = errors.New("config: default configuration written; edit it and restart")

// Config is the full Hanashi configuration.
type Config struct {
	// APIURL is the full chat-completions endpoint of an OpenAI-compatible API.
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`

	// SystemPrompt is sent verbatim as the system instruction of every reply.
	SystemPrompt string `yaml:"system_prompt"`

	// ImpressionPrompt must contain the {previous_impression} and
	// {user_messages} placeholders.
	ImpressionPrompt string `yaml:"impression_prompt"`

	BaseReplyProbability float64 `yaml:"base_reply_probability"`

	// MinReplyInterval is the minimum number of seconds between two idle
	// (non-addressed) replies in the same group.
	MinReplyInterval int `yaml:"min_reply_interval"`

	MaxTokens             int    `yaml:"max_tokens"`
	ChatModel             string `yaml:"chat_model"`
	ImpressionModel       string `yaml:"impression_model"`
	ContextLength         int    `yaml:"context_length"`
	ImpressionMinMessages int    `yaml:"impression_min_messages"`

	// ReplyTimeout bounds the primary completion call.
	ReplyTimeout time.Duration `yaml:"reply_timeout"`

	Impression ImpressionConfig `yaml:"impression"`
	Matrix     MatrixConfig     `yaml:"matrix"`

	DatabasePath string `yaml:"database_path"`
	// HTTPAddr enables the health/metrics server when non-empty.
	HTTPAddr  string `yaml:"http_addr"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ImpressionConfig tunes the background impression refresh.
type ImpressionConfig struct {
	MaxTokens     int           `yaml:"max_tokens"`
	Temperature   float64       `yaml:"temperature"`
	Timeout       time.Duration `yaml:"timeout"`
	QueueSize     int           `yaml:"queue_size"`
	RatePerMinute int           `yaml:"rate_per_minute"`
}

// MatrixConfig holds the chat transport credentials.
type MatrixConfig struct {
	Homeserver  string `yaml:"homeserver"`
	UserID      string `yaml:"user_id"`
	AccessToken string `yaml:"access_token"`
	// Rooms are joined on startup. The bot also answers in any other room it
	// is already a member of.
	Rooms []string `yaml:"rooms"`
	// AdminSenders may run /hanashi commands. Empty means nobody can.
	AdminSenders []string `yaml:"admin_senders"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		APIURL:       "https://api.openai.com/v1/chat/completions",
		APIKey:       PlaceholderAPIKey,
		SystemPrompt: "You are a friendly and helpful AI assistant.",
		ImpressionPrompt: "Please generate a concise impression description (max 100 characters) for the user " +
			"based on their recent messages and previous impression (if any).\n" +
			"Previous impression: {previous_impression}\n" +
			"Recent messages:\n" +
			"{user_messages}\n" +
			"Generated impression:",
		BaseReplyProbability:  0.05,
		MinReplyInterval:      300,
		MaxTokens:             1000,
		ChatModel:             "gpt-3.5-turbo",
		ImpressionModel:       "gpt-3.5-turbo",
		ContextLength:         30,
		ImpressionMinMessages: 5,
		ReplyTimeout:          60 * time.Second,
		Impression: ImpressionConfig{
			MaxTokens:     150,
			Temperature:   0.6,
			Timeout:       45 * time.Second,
			QueueSize:     64,
			RatePerMinute: 30,
		},
		DatabasePath: "data/hanashi/hanashi.db",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Path returns the configuration file path from HANASHI_CONFIG, or
// DefaultPath.
func Path() string {
	return stringFromEnv("HANASHI_CONFIG", DefaultPath)
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result.
//
// When the file does not exist a default one is written and ErrDefaultWritten
// is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if werr := writeDefault(path); werr != nil {
			return nil, werr
		}
		slog.Warn("configuration file not found; default written", "path", path)
		return nil, fmt.Errorf("%w: %s", ErrDefaultWritten, path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes raw YAML on top of Default, applies environment overrides and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.APIKey == "" || c.APIKey == PlaceholderAPIKey {
		errs = append(errs, errors.New("api_key must be set to a valid key"))
	}
	if c.APIURL == "" {
		errs = append(errs, errors.New("api_url must not be empty"))
	}
	if c.BaseReplyProbability < 0 || c.BaseReplyProbability > 1 {
		errs = append(errs, fmt.Errorf("base_reply_probability must be within [0,1], got %v", c.BaseReplyProbability))
	}
	if c.MinReplyInterval <= 0 {
		errs = append(errs, fmt.Errorf("min_reply_interval must be > 0, got %d", c.MinReplyInterval))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be > 0, got %d", c.MaxTokens))
	}
	if c.ContextLength <= 0 || c.ContextLength > 100 {
		errs = append(errs, fmt.Errorf("context_length must be within [1,100], got %d", c.ContextLength))
	}
	if c.ImpressionMinMessages <= 0 {
		errs = append(errs, fmt.Errorf("impression_min_messages must be > 0, got %d", c.ImpressionMinMessages))
	}
	if c.ChatModel == "" || c.ImpressionModel == "" {
		errs = append(errs, errors.New("chat_model and impression_model must not be empty"))
	}
	if c.ReplyTimeout <= 0 || c.Impression.Timeout <= 0 {
		errs = append(errs, errors.New("reply_timeout and impression.timeout must be positive"))
	}
	if c.Impression.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("impression.max_tokens must be > 0, got %d", c.Impression.MaxTokens))
	}
	return errors.Join(errs...)
}

// ValidateMatrix checks the fields needed to connect to a homeserver. It is
// separate from Validate so that tooling and tests can load a config without
// chat credentials.
func (c *Config) ValidateMatrix() error {
	var missing []string
	if c.Matrix.Homeserver == "" {
		missing = append(missing, "matrix.homeserver")
	}
	if c.Matrix.UserID == "" {
		missing = append(missing, "matrix.user_id")
	}
	if c.Matrix.AccessToken == "" {
		missing = append(missing, "matrix.access_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MinInterval returns MinReplyInterval as a duration.
func (c *Config) MinInterval() time.Duration {
	return time.Duration(c.MinReplyInterval) * time.Second
}

// IsAdmin reports whether sender is listed in matrix.admin_senders.
func (c *Config) IsAdmin(sender string) bool {
	for _, s := range c.Matrix.AdminSenders {
		if s == sender {
			return true
		}
	}
	return false
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultYAML), 0o600); err != nil {
		return fmt.Errorf("config: write default file: %w", err)
	}
	return nil
}
