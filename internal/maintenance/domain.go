// Package maintenance coordinates the platform's idempotent background
// upkeep tasks under per-key mutual exclusion and minimum-interval
// throttling.
package maintenance

import "time"

// TaskResult reports one task's outcome for a coordinator invocation.
// Executed tracks whether the body was attempted, not whether it succeeded;
// a throttled or already-running task reports Executed=false with no error.
type TaskResult struct {
	Name     string `json:"name"`
	Executed bool   `json:"executed"`
	Error    string `json:"error,omitempty"`
}

// Config collects the throttle intervals and dedupe windows that used to be
// scattered magic numbers at call sites.
type Config struct {
	// QualityScanInterval throttles per-user data-quality scans.
	QualityScanInterval time.Duration
	// InvoiceSyncInterval throttles the global invoice/milestone sync.
	InvoiceSyncInterval time.Duration
	// CatalogSeedInterval throttles default-catalog seeding.
	CatalogSeedInterval time.Duration
	// QualityDedupeWindow is passed to NotifyUserOnce by the quality scans.
	QualityDedupeWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.QualityScanInterval <= 0 {
		c.QualityScanInterval = 20 * time.Minute
	}
	if c.InvoiceSyncInterval <= 0 {
		c.InvoiceSyncInterval = 15 * time.Minute
	}
	if c.CatalogSeedInterval <= 0 {
		c.CatalogSeedInterval = 30 * time.Minute
	}
	if c.QualityDedupeWindow <= 0 {
		c.QualityDedupeWindow = 8 * time.Hour
	}
	return c
}
