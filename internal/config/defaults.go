package config

const (
	defaultLedgerDir          = "~/.local/share/intake"
	defaultLogDir             = "~/.local/share/intake/logs"
	defaultStoreBaseURL       = "https://api.airtable.com/v0"
	defaultStoreTimeout       = 15
	defaultMaxRetries         = 3
	defaultWatchdogSeconds    = 10
	defaultWorkers            = 4
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultClusterCount       = 8
	defaultClusterIterations  = 300
	defaultClusterModel       = "gaussian"
	defaultClusterCovariance  = "full"
)

var defaultParticipantTypes = []string{"sme", "fls", "mop"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LedgerDir: defaultLedgerDir,
			LogDir:    defaultLogDir,
		},
		Store: Store{
			BaseURL:        defaultStoreBaseURL,
			RequestTimeout: defaultStoreTimeout,
		},
		Matching: Matching{
			ParticipantTypes: append([]string(nil), defaultParticipantTypes...),
			MaxRetries:       defaultMaxRetries,
		},
		Workflow: Workflow{
			WatchdogSeconds: defaultWatchdogSeconds,
			Workers:         defaultWorkers,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Clustering: Clustering{
			NClusters:      defaultClusterCount,
			MaxIterations:  defaultClusterIterations,
			ModelType:      defaultClusterModel,
			CovarianceType: defaultClusterCovariance,
		},
	}
}
