// -----------------------------------------------------------------------
// Configuration: defaults -> TOML file(s) -> environment -> CLI flags.
// Later sources override earlier ones.
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Crawler   CrawlerConfig   `toml:"crawler"`
	Generator GeneratorConfig `toml:"generator"`
	Worker    WorkerConfig    `toml:"worker"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`
	Output []string `toml:"output"`
}

type CrawlerConfig struct {
	UserAgent       string `toml:"user_agent"`
	MaxPages        int    `toml:"max_pages"`
	Concurrency     int    `toml:"concurrency"`
	FetchTimeout    string `toml:"fetch_timeout"`
	RequestDelay    string `toml:"request_delay"`
	MaxBodySize     int64  `toml:"max_body_size"`
	MinContextWords int    `toml:"min_context_words"`
	MaxContextWords int    `toml:"max_context_words"`
}

// FetchTimeoutDuration parses the configured fetch timeout, falling back to
// 15 seconds on bad input.
func (c CrawlerConfig) FetchTimeoutDuration() time.Duration {
	return parseDuration(c.FetchTimeout, 15*time.Second)
}

// RequestDelayDuration parses the delay between page fetches.
func (c CrawlerConfig) RequestDelayDuration() time.Duration {
	return parseDuration(c.RequestDelay, 500*time.Millisecond)
}

// GeneratorConfig selects and configures the LLM provider.
type GeneratorConfig struct {
	Provider string         `toml:"provider"`
	Claude   ProviderConfig `toml:"claude"`
	Gemini   ProviderConfig `toml:"gemini"`
}

type ProviderConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// TimeoutDuration parses the provider call budget, falling back to 2 minutes.
func (p ProviderConfig) TimeoutDuration() time.Duration {
	return parseDuration(p.Timeout, 2*time.Minute)
}

type WorkerConfig struct {
	Enabled        bool   `toml:"enabled"`
	MaxRetries     int    `toml:"max_retries"`
	StuckThreshold string `toml:"stuck_threshold"`
	Retention      string `toml:"retention"`
	Schedule       string `toml:"schedule"`
}

// StuckThresholdDuration parses the staleness cutoff for in-flight jobs.
func (w WorkerConfig) StuckThresholdDuration() time.Duration {
	return parseDuration(w.StuckThreshold, 10*time.Minute)
}

// RetentionDuration parses how long terminal jobs are kept.
func (w WorkerConfig) RetentionDuration() time.Duration {
	return parseDuration(w.Retention, 24*time.Hour)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewDefaultConfig returns the configuration used when no file or override
// is present.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8085,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/scrivo",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Crawler: CrawlerConfig{
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			MaxPages:        5,
			Concurrency:     2,
			FetchTimeout:    "15s",
			RequestDelay:    "500ms",
			MaxBodySize:     5 * 1024 * 1024,
			MinContextWords: 50,
			MaxContextWords: 1500,
		},
		Generator: GeneratorConfig{
			Provider: "claude",
			Claude: ProviderConfig{
				Model:       "claude-sonnet-4-5",
				MaxTokens:   8192,
				Timeout:     "120s",
				Temperature: 0.7,
			},
			Gemini: ProviderConfig{
				Model:       "gemini-2.5-flash",
				MaxTokens:   8192,
				Timeout:     "120s",
				Temperature: 0.7,
			},
		},
		Worker: WorkerConfig{
			Enabled:        true,
			MaxRetries:     3,
			StuckThreshold: "10m",
			Retention:      "24h",
			Schedule:       "@every 30s",
		},
	}
}

// LoadFromFiles builds the config from defaults, then merges each TOML file
// in order, then applies environment overrides. Missing files are skipped.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnvOverrides()
	return config, nil
}

// applyEnvOverrides maps SCRIVO_* environment variables onto the config.
// Provider API keys also honor the vendors' conventional variable names.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCRIVO_SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SCRIVO_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SCRIVO_STORAGE_PATH"); v != "" {
		c.Storage.Badger.Path = v
	}
	if v := os.Getenv("SCRIVO_STORAGE_RESET"); v != "" {
		if reset, err := strconv.ParseBool(v); err == nil {
			c.Storage.Badger.ResetOnStartup = reset
		}
	}
	if v := os.Getenv("SCRIVO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SCRIVO_LOG_OUTPUT"); v != "" {
		c.Logging.Output = strings.Split(v, ",")
	}
	if v := os.Getenv("SCRIVO_CRAWLER_USER_AGENT"); v != "" {
		c.Crawler.UserAgent = v
	}
	if v := os.Getenv("SCRIVO_CRAWLER_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Crawler.MaxPages = n
		}
	}
	if v := os.Getenv("SCRIVO_GENERATOR_PROVIDER"); v != "" {
		c.Generator.Provider = v
	}
	if v := os.Getenv("SCRIVO_CLAUDE_API_KEY"); v != "" {
		c.Generator.Claude.APIKey = v
	} else if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && c.Generator.Claude.APIKey == "" {
		c.Generator.Claude.APIKey = v
	}
	if v := os.Getenv("SCRIVO_CLAUDE_MODEL"); v != "" {
		c.Generator.Claude.Model = v
	}
	if v := os.Getenv("SCRIVO_GEMINI_API_KEY"); v != "" {
		c.Generator.Gemini.APIKey = v
	} else if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.Generator.Gemini.APIKey == "" {
		c.Generator.Gemini.APIKey = v
	}
	if v := os.Getenv("SCRIVO_GEMINI_MODEL"); v != "" {
		c.Generator.Gemini.Model = v
	}
	if v := os.Getenv("SCRIVO_WORKER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Worker.Enabled = enabled
		}
	}
	if v := os.Getenv("SCRIVO_WORKER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Worker.MaxRetries = n
		}
	}
	if v := os.Getenv("SCRIVO_WORKER_SCHEDULE"); v != "" {
		c.Worker.Schedule = v
	}
	if v := os.Getenv("SCRIVO_WORKER_STUCK_THRESHOLD"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			c.Worker.StuckThreshold = v
		}
	}
	if v := os.Getenv("SCRIVO_WORKER_RETENTION"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			c.Worker.Retention = v
		}
	}
}

// ApplyFlagOverrides applies CLI flag values on top of file and env config.
func (c *Config) ApplyFlagOverrides(port int, host string) {
	if port > 0 {
		c.Server.Port = port
	}
	if host != "" {
		c.Server.Host = host
	}
}

// Validate checks the configuration is internally usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.Badger.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	switch c.Generator.Provider {
	case "claude", "gemini":
	default:
		return fmt.Errorf("unknown generator provider: %s", c.Generator.Provider)
	}
	if c.Worker.MaxRetries < 1 {
		return fmt.Errorf("worker max_retries must be at least 1")
	}
	if c.Crawler.MaxPages < 1 {
		return fmt.Errorf("crawler max_pages must be at least 1")
	}
	return nil
}
