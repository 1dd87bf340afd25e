package config

import (
	_ "embed"
	"time"
)

// Default configuration values. They mirror default.yaml.
const (
	DefaultLayout       = "local"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultEngine       = "badger"
	DefaultBaseURL      = "https://api.dropboxapi.com"
	DefaultExportFormat = "markdown"
	DefaultTimeout      = 30 * time.Second
	DefaultRetryMax     = 3
	DefaultRateLimit    = 10
	DefaultPageSize     = 100
)

// File names used by the store.
const (
	// FileName is the user configuration file name, both for discovery and
	// for the generated file in etc_dir.
	FileName = "docmirror.yaml"

	// lockName guards first-run creation of the user configuration.
	lockName = "docmirror-cfg.lck"
)

// Layer names with a fixed meaning.
const (
	LayerDefaults = "defaults"
	LayerUser     = "user"
)

//go:embed default.yaml
var defaultSchema []byte

//go:embed user.yaml.tmpl
var userTemplate []byte

// DefaultSchema returns a copy of the embedded default configuration.
func DefaultSchema() []byte {
	return append([]byte(nil), defaultSchema...)
}

// Default returns the default typed configuration.
func Default() *Config {
	return &Config{
		Main: MainSection{
			Layout: DefaultLayout,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Storage: StorageSection{
			Engine: DefaultEngine,
		},
		Remote: RemoteSection{
			BaseURL:      DefaultBaseURL,
			ExportFormat: DefaultExportFormat,
			Timeout:      DefaultTimeout,
			RetryMax:     DefaultRetryMax,
			RateLimit:    DefaultRateLimit,
			PageSize:     DefaultPageSize,
		},
	}
}
