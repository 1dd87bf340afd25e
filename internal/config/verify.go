package config

import (
	"errors"
	"fmt"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyRemote(&cfg.Remote); err != nil {
		return err
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Engine {
	case "badger", "bolt":
		return nil
	case "":
		return errors.New("storage.engine is required")
	default:
		return fmt.Errorf("storage.engine: unknown engine %q", cfg.Engine)
	}
}

func verifyRemote(cfg *RemoteSection) error {
	switch cfg.ExportFormat {
	case "markdown", "html":
	default:
		return fmt.Errorf("remote.export_format: unknown format %q", cfg.ExportFormat)
	}
	if cfg.RetryMax < 0 {
		return errors.New("remote.retry_max must not be negative")
	}
	if cfg.RateLimit < 0 {
		return errors.New("remote.rate_limit must not be negative")
	}
	if cfg.Timeout < 0 {
		return errors.New("remote.timeout must not be negative")
	}
	return nil
}
