package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scrivo.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := NewDefaultConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if config.Worker.StuckThresholdDuration() != 10*time.Minute {
		t.Errorf("stuck threshold = %v", config.Worker.StuckThresholdDuration())
	}
	if config.Worker.RetentionDuration() != 24*time.Hour {
		t.Errorf("retention = %v", config.Worker.RetentionDuration())
	}
}

func TestLoadFromFilesMergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = 9090

[generator]
provider = "gemini"

[worker]
max_retries = 5
`)

	config, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if config.Server.Port != 9090 {
		t.Errorf("port = %d", config.Server.Port)
	}
	if config.Generator.Provider != "gemini" {
		t.Errorf("provider = %s", config.Generator.Provider)
	}
	if config.Worker.MaxRetries != 5 {
		t.Errorf("max_retries = %d", config.Worker.MaxRetries)
	}
	// Untouched sections keep their defaults.
	if config.Server.Host != "0.0.0.0" {
		t.Errorf("host = %s", config.Server.Host)
	}
	if config.Crawler.MaxPages != 5 {
		t.Errorf("max_pages = %d", config.Crawler.MaxPages)
	}
}

func TestLoadFromFilesSkipsMissing(t *testing.T) {
	config, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file treated as error: %v", err)
	}
	if config.Server.Port != 8085 {
		t.Errorf("port = %d", config.Server.Port)
	}
}

func TestLoadFromFilesRejectsBadTOML(t *testing.T) {
	path := writeConfigFile(t, "[server\nport = ")
	if _, err := LoadFromFiles(path); err == nil {
		t.Error("malformed TOML accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCRIVO_SERVER_PORT", "7070")
	t.Setenv("SCRIVO_GENERATOR_PROVIDER", "gemini")
	t.Setenv("SCRIVO_WORKER_STUCK_THRESHOLD", "5m")
	t.Setenv("SCRIVO_WORKER_RETENTION", "not-a-duration")

	config, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if config.Server.Port != 7070 {
		t.Errorf("port = %d", config.Server.Port)
	}
	if config.Generator.Provider != "gemini" {
		t.Errorf("provider = %s", config.Generator.Provider)
	}
	if config.Worker.StuckThreshold != "5m" {
		t.Errorf("stuck threshold = %s", config.Worker.StuckThreshold)
	}
	// Unparseable durations are ignored, not applied.
	if config.Worker.Retention != "24h" {
		t.Errorf("retention = %s", config.Worker.Retention)
	}
}

func TestClaudeKeyFallsBackToVendorVariable(t *testing.T) {
	t.Setenv("SCRIVO_CLAUDE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	config, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if config.Generator.Claude.APIKey != "sk-ant-test" {
		t.Errorf("claude api key = %q", config.Generator.Claude.APIKey)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	config.ApplyFlagOverrides(6060, "127.0.0.1")
	if config.Server.Port != 6060 || config.Server.Host != "127.0.0.1" {
		t.Errorf("flag overrides not applied: %s:%d", config.Server.Host, config.Server.Port)
	}

	config.ApplyFlagOverrides(0, "")
	if config.Server.Port != 6060 || config.Server.Host != "127.0.0.1" {
		t.Error("zero-value flags overwrote config")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty storage path", func(c *Config) { c.Storage.Badger.Path = "" }},
		{"unknown provider", func(c *Config) { c.Generator.Provider = "llama" }},
		{"zero retries", func(c *Config) { c.Worker.MaxRetries = 0 }},
		{"zero pages", func(c *Config) { c.Crawler.MaxPages = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tc.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}
