package config

const (
	defaultDataDir  = "~/.local/share/driveline"
	defaultLogDir   = "~/.local/share/driveline/logs"
	defaultAPIBind  = "127.0.0.1:7601"
	defaultLogLevel = "info"
	// defaultLogFormat mirrors the daemon's interactive default; services
	// deployed behind a collector switch to "json".
	defaultLogFormat        = "console"
	defaultLogRetentionDays = 60

	defaultLockTTLMinutes  = 15
	defaultMaxAttempts     = 3
	defaultClaimBatchSize  = 25
	defaultPriority        = 100
	defaultMetricsScanCap  = 5000
	defaultCycleIntervalM  = 5
	defaultFanOut          = 3
	defaultPolitenessDelay = 2
	defaultDispatchGrace   = 10
	defaultErrorRetrySecs  = 60

	defaultCoreTimeoutSeconds       = 45
	defaultEnrichmentTimeoutSeconds = 30
	defaultBatchTimeoutSeconds      = 60
	defaultBatchSize                = 50
	defaultScraperTriggerTimeout    = 10
	defaultTelegramRequestTimeout   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Queue: Queue{
			LockTTLMinutes:  defaultLockTTLMinutes,
			MaxAttempts:     defaultMaxAttempts,
			ClaimBatchSize:  defaultClaimBatchSize,
			DefaultPriority: defaultPriority,
			MetricsScanCap:  defaultMetricsScanCap,
		},
		Workflow: Workflow{
			CycleIntervalMinutes:     defaultCycleIntervalM,
			FanOut:                   defaultFanOut,
			PolitenessDelaySeconds:   defaultPolitenessDelay,
			DispatchGraceSeconds:     defaultDispatchGrace,
			ErrorRetryIntervalSecond: defaultErrorRetrySecs,
		},
		Extractors: Extractors{
			CoreTimeoutSeconds:       defaultCoreTimeoutSeconds,
			EnrichmentTimeoutSeconds: defaultEnrichmentTimeoutSeconds,
			BatchTimeoutSeconds:      defaultBatchTimeoutSeconds,
			BatchSize:                defaultBatchSize,
		},
		Routes: Routes{
			BatchHosts:   []string{"barrett-jackson.com", "mecum.com"},
			TwoStepHosts: []string{"bringatrailer.com"},
		},
		Scrapers: Scrapers{
			TriggerTimeoutSeconds: defaultScraperTriggerTimeout,
		},
		Telegram: Telegram{
			RequestTimeout: defaultTelegramRequestTimeout,
			CycleFailures:  true,
			ExhaustedItems: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
