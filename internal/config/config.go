package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Queue contains claim and retry semantics for the work queue. These values
// are the single source of truth for the lock TTL and attempt cap; every
// call site receives them from here.
type Queue struct {
	LockTTLMinutes  int `toml:"lock_ttl_minutes"`
	MaxAttempts     int `toml:"max_attempts"`
	ClaimBatchSize  int `toml:"claim_batch_size"`
	DefaultPriority int `toml:"default_priority"`
	MetricsScanCap  int `toml:"metrics_scan_cap"`
}

// LockTTL returns the orphan-lock TTL as a duration.
func (q Queue) LockTTL() time.Duration {
	return time.Duration(q.LockTTLMinutes) * time.Minute
}

// Workflow contains cycle scheduling and dispatch fan-out settings.
type Workflow struct {
	CycleIntervalMinutes     int `toml:"cycle_interval_minutes"`
	FanOut                   int `toml:"fan_out"`
	PolitenessDelaySeconds   int `toml:"politeness_delay_seconds"`
	DispatchGraceSeconds     int `toml:"dispatch_grace_seconds"`
	ErrorRetryIntervalSecond int `toml:"error_retry_interval_seconds"`
}

// CycleInterval returns the scheduler period between orchestration cycles.
func (w Workflow) CycleInterval() time.Duration {
	return time.Duration(w.CycleIntervalMinutes) * time.Minute
}

// PolitenessDelay returns the pause inserted between sequential fetches
// against rate-limited hosts.
func (w Workflow) PolitenessDelay() time.Duration {
	return time.Duration(w.PolitenessDelaySeconds) * time.Second
}

// ErrorRetryInterval returns how soon the scheduler retries after a failed
// cycle instead of waiting out the full cycle interval.
func (w Workflow) ErrorRetryInterval() time.Duration {
	return time.Duration(w.ErrorRetryIntervalSecond) * time.Second
}

// Extractors configures the downstream extractor function endpoints.
type Extractors struct {
	BaseURL                  string `toml:"base_url"`
	APIKey                   string `toml:"api_key"`
	CoreTimeoutSeconds       int    `toml:"core_timeout_seconds"`
	EnrichmentTimeoutSeconds int    `toml:"enrichment_timeout_seconds"`
	BatchTimeoutSeconds      int    `toml:"batch_timeout_seconds"`
	BatchSize                int    `toml:"batch_size"`
}

// Routes configures the URL-pattern routing table consumed by the
// processor selector.
type Routes struct {
	BatchHosts    []string          `toml:"batch_hosts"`
	TwoStepHosts  []string          `toml:"two_step_hosts"`
	ImporterHosts map[string]string `toml:"importer_hosts"`
}

// Scrapers configures the upstream discovery scrapers the cycle triggers.
type Scrapers struct {
	Endpoints             map[string]string `toml:"endpoints"`
	TriggerTimeoutSeconds int               `toml:"trigger_timeout_seconds"`
}

// Telegram contains push notification settings.
type Telegram struct {
	BotToken       string `toml:"bot_token"`
	ChatID         string `toml:"chat_id"`
	RequestTimeout int    `toml:"request_timeout"`
	CycleFailures  bool   `toml:"cycle_failures"`
	ExhaustedItems bool   `toml:"exhausted_items"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for driveline.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Queue: claim batch size, lock TTL, attempt cap
//   - Workflow: cycle interval, dispatch fan-out, politeness delays
//   - Extractors: downstream extractor endpoints and timeouts
//   - Routes: URL routing table for processor selection
//   - Scrapers: upstream discovery trigger endpoints
//   - Telegram: push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Queue      Queue      `toml:"queue"`
	Workflow   Workflow   `toml:"workflow"`
	Extractors Extractors `toml:"extractors"`
	Routes     Routes     `toml:"routes"`
	Scrapers   Scrapers   `toml:"scrapers"`
	Telegram   Telegram   `toml:"telegram"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/driveline/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = os.Getenv("DRIVELINE_CONFIG")
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}
