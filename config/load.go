package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/quotron/quotron/errors"
)

// Load reads the quotron configuration using Viper.
// Configuration sources, in precedence order: environment variables
// (QUOTRON_ prefix), quotron.toml in the working directory, defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("QUOTRON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	v.SetConfigName("quotron")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine - defaults and env vars apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Scheduler defaults
	v.SetDefault("scheduler.check_interval_seconds", 60)
	v.SetDefault("scheduler.default_lookback_days", 30)
	v.SetDefault("scheduler.stop_timeout_seconds", 5)

	// Execution history defaults
	v.SetDefault("history.ttl_days", 30)
	v.SetDefault("history.max_per_job", 100)

	// Market data fetch defaults
	v.SetDefault("fetch.base_url", "https://stooq.com/q/d/l")
	v.SetDefault("fetch.timeout_seconds", 30)

	// Log defaults
	v.SetDefault("log.json", false)
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return errors.New("redis.addr cannot be empty")
	}
	if c.Scheduler.CheckIntervalSeconds <= 0 {
		return errors.Newf("scheduler.check_interval_seconds must be > 0, got %d", c.Scheduler.CheckIntervalSeconds)
	}
	if c.Scheduler.DefaultLookbackDays <= 0 {
		return errors.Newf("scheduler.default_lookback_days must be > 0, got %d", c.Scheduler.DefaultLookbackDays)
	}
	if c.Scheduler.StopTimeoutSeconds <= 0 {
		return errors.Newf("scheduler.stop_timeout_seconds must be > 0, got %d", c.Scheduler.StopTimeoutSeconds)
	}
	if c.History.TTLDays <= 0 {
		return errors.Newf("history.ttl_days must be > 0, got %d", c.History.TTLDays)
	}
	if c.History.MaxPerJob <= 0 {
		return errors.Newf("history.max_per_job must be > 0, got %d", c.History.MaxPerJob)
	}
	if c.Fetch.BaseURL == "" {
		return errors.New("fetch.base_url cannot be empty")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.Newf("fetch.timeout_seconds must be > 0, got %d", c.Fetch.TimeoutSeconds)
	}
	return nil
}
