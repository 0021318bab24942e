// Package config owns quotron configuration loading and validation.
package config

import "time"

// Config represents the core quotron configuration
type Config struct {
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	History   HistoryConfig   `mapstructure:"history"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Log       LogConfig       `mapstructure:"log"`
}

// RedisConfig configures the Redis key-value backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SchedulerConfig configures the background scheduling loop
type SchedulerConfig struct {
	// How often the loop checks for due jobs (default: 60 seconds)
	CheckIntervalSeconds int `mapstructure:"check_interval_seconds"`

	// Fetch range used when a job sets neither a fixed start date nor a
	// sliding window (default: 30 days back from the execution date)
	DefaultLookbackDays int `mapstructure:"default_lookback_days"`

	// How long Stop waits for the polling loop to exit (default: 5 seconds)
	StopTimeoutSeconds int `mapstructure:"stop_timeout_seconds"`
}

// HistoryConfig configures execution history retention
type HistoryConfig struct {
	// Retention TTL for persisted execution records (default: 30 days)
	TTLDays int `mapstructure:"ttl_days"`

	// Per-job history index capacity; oldest ids are evicted beyond this
	// (default: 100)
	MaxPerJob int `mapstructure:"max_per_job"`
}

// FetchConfig configures the external market-data source
type FetchConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LogConfig configures log output
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// CheckInterval returns the scheduler poll interval as a duration.
func (c SchedulerConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// StopTimeout returns the scheduler stop timeout as a duration.
func (c SchedulerConfig) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

// TTL returns the execution record retention period as a duration.
func (c HistoryConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// Timeout returns the fetch HTTP timeout as a duration.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
