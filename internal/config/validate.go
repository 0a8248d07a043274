package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// maxWorkers bounds batch.workers; each worker holds its own fetcher and
// model client.
const maxWorkers = 16

// Validate checks the settings a command mode needs. Modes: "analyze",
// "resolve", "serve", "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze", "serve":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateBatch()...)
		if c.Fetch.SourceIntervalMs < 0 {
			errs = append(errs, "fetch.source_interval_ms must be >= 0")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if mode == "serve" && c.Monitoring.Enabled {
			errs = append(errs, c.validateMonitoring()...)
		}
	case "resolve":
	case "runs":
		errs = append(errs, c.validateStore()...)
		if c.Store.Driver == "none" {
			errs = append(errs, "runs requires a store driver other than none")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Resolve.ConfidenceThreshold < 1 || c.Resolve.ConfidenceThreshold > 10 {
		errs = append(errs, "resolve.confidence_threshold must be between 1 and 10")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return []string{"store.sqlite_path is required for sqlite"}
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
	case "none":
	default:
		return []string{fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver)}
	}
	return nil
}

func (c *Config) validateBatch() []string {
	var errs []string
	if c.Batch.Workers < 1 || c.Batch.Workers > maxWorkers {
		errs = append(errs, fmt.Sprintf("batch.workers must be between 1 and %d", maxWorkers))
	}
	if c.Batch.TimeoutSecs < 1 {
		errs = append(errs, "batch.timeout_secs must be > 0")
	}
	return errs
}

func (c *Config) validateMonitoring() []string {
	var errs []string
	if c.Store.Driver == "none" {
		errs = append(errs, "monitoring requires a store driver other than none")
	}
	if c.Monitoring.WebhookURL == "" {
		errs = append(errs, "monitoring.webhook_url is required when monitoring is enabled")
	}
	if c.Monitoring.FailureRateThreshold <= 0 || c.Monitoring.FailureRateThreshold > 1 {
		errs = append(errs, "monitoring.failure_rate_threshold must be in (0, 1]")
	}
	return errs
}
