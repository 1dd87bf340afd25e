package config

import "time"

// Config is the typed view of the merged configuration.
type Config struct {
	Main    MainSection    `koanf:"main" json:"main" yaml:"main"`
	Log     LogSection     `koanf:"log" json:"log" yaml:"log"`
	Storage StorageSection `koanf:"storage" json:"storage" yaml:"storage"`
	Remote  RemoteSection  `koanf:"remote" json:"remote" yaml:"remote"`
	Metrics MetricsSection `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// MainSection selects the path layout.
type MainSection struct {
	Layout string `koanf:"layout" json:"layout" yaml:"layout"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`

	// ToFile additionally writes logs to <log_dir>/docmirror.log.
	ToFile bool `koanf:"to_file" json:"to_file" yaml:"to_file"`
}

// StorageSection configures the catalog database.
type StorageSection struct {
	// Engine is "badger" or "bolt". Database files live in data_dir.
	Engine string `koanf:"engine" json:"engine" yaml:"engine"`
}

// RemoteSection configures the remote document store client.
type RemoteSection struct {
	BaseURL  string `koanf:"base_url" json:"base_url" yaml:"base_url"`
	APIToken string `koanf:"api_token" json:"api_token" yaml:"api_token"`

	// ExportFormat is "markdown" or "html".
	ExportFormat string `koanf:"export_format" json:"export_format" yaml:"export_format"`

	Timeout   time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
	RetryMax  int           `koanf:"retry_max" json:"retry_max" yaml:"retry_max"`
	RateLimit float64       `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	PageSize  int           `koanf:"page_size" json:"page_size" yaml:"page_size"`

	// CAFile adds PEM root certificates to the system pool.
	CAFile string `koanf:"ca_file" json:"ca_file" yaml:"ca_file"`
}

// MetricsSection configures the Prometheus textfile export.
type MetricsSection struct {
	// Textfile writes <var_dir>/docmirror.prom after each sync run.
	Textfile bool `koanf:"textfile" json:"textfile" yaml:"textfile"`
}
