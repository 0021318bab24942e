package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quotron/quotron/config"
	"github.com/quotron/quotron/kv"
	"github.com/quotron/quotron/logger"
	"github.com/quotron/quotron/marketdata"
	"github.com/quotron/quotron/schedule"
)

// app holds the wired components a command operates on. Close releases
// the Redis connection.
type app struct {
	cfg       *config.Config
	store     *kv.Redis
	service   *schedule.Service
	scheduler *schedule.Scheduler
}

func (a *app) Close() error {
	return a.store.Close()
}

// buildApp loads configuration, connects to Redis, and wires the
// scheduling components. Every command goes through here so they all
// honor the same config sources.
func buildApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := kv.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	fetcher := marketdata.NewHTTPFetcher(cfg.Fetch.BaseURL, cfg.Fetch.Timeout())
	results := marketdata.NewKVStore(store)

	registry := schedule.NewRegistry(store, logger.Logger)
	history := schedule.NewHistoryRegistry(store, cfg.History.TTL(), cfg.History.MaxPerJob, logger.Logger)
	executor := schedule.NewExecutor(fetcher, results, history, cfg.Scheduler.DefaultLookbackDays, logger.Logger)

	schedCfg := schedule.SchedulerConfig{
		CheckInterval: cfg.Scheduler.CheckInterval(),
		StopTimeout:   cfg.Scheduler.StopTimeout(),
	}
	scheduler := schedule.NewScheduler(ctx, registry, executor, schedCfg, logger.Logger)
	service := schedule.NewService(registry, history, executor, scheduler, logger.Logger)

	return &app{
		cfg:       cfg,
		store:     store,
		service:   service,
		scheduler: scheduler,
	}, nil
}
