package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"duende/internal/config"
	"duende/internal/logging"
	"duende/internal/pipeline"
	"duende/internal/scheduler"
	"duende/internal/source"
	"duende/internal/store"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fallback := logging.New(logging.Config{})
		fallback.Fatal().Err(err).Msg("configuration")
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	strategy, err := config.Load(cfg.SourcesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SourcesPath).Msg("load strategy config")
	}
	strategy.Source.Generative.APIKey = cfg.GenAIKey

	adapter, err := source.New(strategy.Source)
	if err != nil {
		log.Fatal().Err(err).Msg("build source adapter")
	}

	runner := &pipeline.Runner{
		Adapter: adapter,
		OpenStore: func(ctx context.Context) (pipeline.EventStore, error) {
			return store.Open(ctx, cfg.DatabaseURL)
		},
		Queries: strategy.Queries,
		Pacing:  strategy.Pipeline.Pacing.Std(),
		Log:     log,
	}

	job := func(ctx context.Context) error {
		if _, err := runner.Run(ctx); err != nil {
			return err
		}
		if cfg.RetentionSweep {
			sweep(ctx, cfg.DatabaseURL, log)
		}
		return nil
	}

	loc, err := time.LoadLocation(strategy.Schedule.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("load timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := &scheduler.Scheduler{
		At:  strategy.Schedule.At,
		Loc: loc,
		Job: job,
		Log: log,
	}
	_ = sched.Start(ctx)
}

// sweep removes already-stored events whose date has passed. Kept out of the
// ingest pipeline and off by default so retention stays an explicit choice.
func sweep(ctx context.Context, dsn string, log zerolog.Logger) {
	st, err := store.Open(ctx, dsn)
	if err != nil {
		log.Error().Err(err).Msg("retention sweep: open store")
		return
	}
	defer st.Close()

	n, err := st.DeletePast(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("retention sweep")
		return
	}
	log.Info().Int64("deleted", n).Msg("retention sweep complete")
}
