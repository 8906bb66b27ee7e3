package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeWorkflow()
	c.normalizeExtractors()
	c.normalizeRoutes()
	c.normalizeScrapers()
	c.normalizeTelegram()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("DRIVELINE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeQueue() {
	if c.Queue.LockTTLMinutes <= 0 {
		c.Queue.LockTTLMinutes = defaultLockTTLMinutes
	}
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = defaultMaxAttempts
	}
	if c.Queue.ClaimBatchSize <= 0 {
		c.Queue.ClaimBatchSize = defaultClaimBatchSize
	}
	if c.Queue.DefaultPriority <= 0 {
		c.Queue.DefaultPriority = defaultPriority
	}
	if c.Queue.MetricsScanCap <= 0 {
		c.Queue.MetricsScanCap = defaultMetricsScanCap
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.CycleIntervalMinutes <= 0 {
		c.Workflow.CycleIntervalMinutes = defaultCycleIntervalM
	}
	if c.Workflow.FanOut <= 0 {
		c.Workflow.FanOut = defaultFanOut
	}
	if c.Workflow.PolitenessDelaySeconds < 0 {
		c.Workflow.PolitenessDelaySeconds = defaultPolitenessDelay
	}
	if c.Workflow.DispatchGraceSeconds <= 0 {
		c.Workflow.DispatchGraceSeconds = defaultDispatchGrace
	}
	if c.Workflow.ErrorRetryIntervalSecond <= 0 {
		c.Workflow.ErrorRetryIntervalSecond = defaultErrorRetrySecs
	}
}

func (c *Config) normalizeExtractors() {
	c.Extractors.BaseURL = strings.TrimRight(strings.TrimSpace(c.Extractors.BaseURL), "/")
	c.Extractors.APIKey = strings.TrimSpace(c.Extractors.APIKey)
	if c.Extractors.APIKey == "" {
		if value, ok := os.LookupEnv("DRIVELINE_EXTRACTOR_KEY"); ok {
			c.Extractors.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Extractors.CoreTimeoutSeconds <= 0 {
		c.Extractors.CoreTimeoutSeconds = defaultCoreTimeoutSeconds
	}
	if c.Extractors.EnrichmentTimeoutSeconds <= 0 {
		c.Extractors.EnrichmentTimeoutSeconds = defaultEnrichmentTimeoutSeconds
	}
	if c.Extractors.BatchTimeoutSeconds <= 0 {
		c.Extractors.BatchTimeoutSeconds = defaultBatchTimeoutSeconds
	}
	if c.Extractors.BatchSize <= 0 {
		c.Extractors.BatchSize = defaultBatchSize
	}
}

func (c *Config) normalizeRoutes() {
	c.Routes.BatchHosts = normalizeHostList(c.Routes.BatchHosts)
	c.Routes.TwoStepHosts = normalizeHostList(c.Routes.TwoStepHosts)
	if len(c.Routes.ImporterHosts) > 0 {
		normalized := make(map[string]string, len(c.Routes.ImporterHosts))
		for host, processor := range c.Routes.ImporterHosts {
			host = normalizeHost(host)
			processor = strings.TrimSpace(processor)
			if host == "" || processor == "" {
				continue
			}
			normalized[host] = processor
		}
		c.Routes.ImporterHosts = normalized
	}
}

func (c *Config) normalizeScrapers() {
	if len(c.Scrapers.Endpoints) > 0 {
		normalized := make(map[string]string, len(c.Scrapers.Endpoints))
		for name, endpoint := range c.Scrapers.Endpoints {
			name = strings.TrimSpace(name)
			endpoint = strings.TrimSpace(endpoint)
			if name == "" || endpoint == "" {
				continue
			}
			normalized[name] = endpoint
		}
		c.Scrapers.Endpoints = normalized
	}
	if c.Scrapers.TriggerTimeoutSeconds <= 0 {
		c.Scrapers.TriggerTimeoutSeconds = defaultScraperTriggerTimeout
	}
}

func (c *Config) normalizeTelegram() {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	if c.Telegram.BotToken == "" {
		if value, ok := os.LookupEnv("TELEGRAM_BOT_TOKEN"); ok {
			c.Telegram.BotToken = strings.TrimSpace(value)
		}
	}
	c.Telegram.ChatID = strings.TrimSpace(c.Telegram.ChatID)
	if c.Telegram.RequestTimeout <= 0 {
		c.Telegram.RequestTimeout = defaultTelegramRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}

func normalizeHostList(hosts []string) []string {
	if len(hosts) == 0 {
		return hosts
	}
	out := make([]string, 0, len(hosts))
	seen := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		host = normalizeHost(host)
		if host == "" {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		out = append(out, host)
	}
	return out
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	return host
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
