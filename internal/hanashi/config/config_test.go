package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/hanashi/internal/hanashi/config"
)

const validYAML = `
api_key: "sk-test-valid"
system_prompt: "be brief"
base_reply_probability: 0.2
min_reply_interval: 120
reply_timeout: 30s
impression:
  timeout: 10s
matrix:
  homeserver: "https://hs.example.org"
  user_id: "@bot:example.org"
  access_token: "syt_token"
  admin_senders: ["@alice:example.org"]
`

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.SystemPrompt != "be brief" {
		t.Errorf("SystemPrompt: got %q, want %q", cfg.SystemPrompt, "be brief")
	}
	if cfg.BaseReplyProbability != 0.2 {
		t.Errorf("BaseReplyProbability: got %v, want 0.2", cfg.BaseReplyProbability)
	}
	if cfg.MinInterval() != 2*time.Minute {
		t.Errorf("MinInterval: got %v, want 2m", cfg.MinInterval())
	}
	if cfg.ReplyTimeout != 30*time.Second {
		t.Errorf("ReplyTimeout: got %v, want 30s", cfg.ReplyTimeout)
	}
	if cfg.Impression.Timeout != 10*time.Second {
		t.Errorf("Impression.Timeout: got %v, want 10s", cfg.Impression.Timeout)
	}
	// Untouched keys keep their defaults.
	if cfg.ContextLength != 30 {
		t.Errorf("ContextLength: got %d, want 30", cfg.ContextLength)
	}
	if cfg.ImpressionMinMessages != 5 {
		t.Errorf("ImpressionMinMessages: got %d, want 5", cfg.ImpressionMinMessages)
	}
	if cfg.Impression.Temperature != 0.6 {
		t.Errorf("Impression.Temperature: got %v, want 0.6", cfg.Impression.Temperature)
	}
	if !cfg.IsAdmin("@alice:example.org") || cfg.IsAdmin("@mallory:example.org") {
		t.Error("IsAdmin does not match admin_senders")
	}
	if err := cfg.ValidateMatrix(); err != nil {
		t.Errorf("ValidateMatrix: %v", err)
	}
}

func TestParse_RejectsPlaceholderKey(t *testing.T) {
	_, err := config.Parse([]byte(config.DefaultYAML))
	if err == nil {
		t.Fatal("expected error for placeholder api_key")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error should mention api_key: %v", err)
	}
}

func TestParse_EnvOverridesKey(t *testing.T) {
	t.Setenv("HANASHI_API_KEY", "sk-from-env")
	cfg, err := config.Parse([]byte(config.DefaultYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.APIKey != "sk-from-env" {
		t.Errorf("APIKey: got %q, want %q", cfg.APIKey, "sk-from-env")
	}
}

func TestValidate_OutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"probability above one", func(c *config.Config) { c.BaseReplyProbability = 1.5 }, "base_reply_probability"},
		{"negative probability", func(c *config.Config) { c.BaseReplyProbability = -0.1 }, "base_reply_probability"},
		{"zero interval", func(c *config.Config) { c.MinReplyInterval = 0 }, "min_reply_interval"},
		{"zero tokens", func(c *config.Config) { c.MaxTokens = 0 }, "max_tokens"},
		{"context too long", func(c *config.Config) { c.ContextLength = 101 }, "context_length"},
		{"zero min messages", func(c *config.Config) { c.ImpressionMinMessages = 0 }, "impression_min_messages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.APIKey = "sk-valid"
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_WritesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	_, err := config.Load(path)
	if !errors.Is(err, config.ErrDefaultWritten) {
		t.Fatalf("Load: got %v, want ErrDefaultWritten", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	if string(data) != config.DefaultYAML {
		t.Error("written file does not match DefaultYAML")
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Matrix.UserID != "@bot:example.org" {
		t.Errorf("Matrix.UserID: got %q", cfg.Matrix.UserID)
	}
}

func TestValidateMatrix_Missing(t *testing.T) {
	cfg := config.Default()
	err := cfg.ValidateMatrix()
	if err == nil {
		t.Fatal("expected error for empty matrix config")
	}
	if !strings.Contains(err.Error(), "matrix.access_token") {
		t.Errorf("error should list access_token: %v", err)
	}
}
