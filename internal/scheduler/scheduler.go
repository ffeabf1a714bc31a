// Package scheduler fires the ingestion job once per day at a fixed local
// time, plus one eager run at process start.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler triggers Job on a daily cadence. Triggers that arrive while a
// previous run is still in flight are skipped, not queued: runs share one
// store and one upstream rate budget, so overlapping them helps nobody and
// upserts make the next day's run a safe retry.
type Scheduler struct {
	At  string         // "HH:MM" local to Loc
	Loc *time.Location // IANA timezone
	Job func(ctx context.Context) error
	Log zerolog.Logger

	mu      sync.Mutex
	inRun   bool
	started time.Time
}

// Start blocks, firing the job eagerly once and then at every daily
// occurrence of At until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.Log.Info().Str("at", s.At).Str("timezone", s.Loc.String()).
		Msg("scheduler started, running once eagerly")
	s.trigger(ctx)

	for {
		next := s.nextAfter(time.Now().In(s.Loc))
		s.Log.Info().Time("next_run", next).Msg("sleeping until next trigger")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			s.trigger(ctx)
		case <-ctx.Done():
			timer.Stop()
			s.Log.Info().Msg("scheduler stopped")
			return ctx.Err()
		}
	}
}

// trigger runs the job unless one is already in flight, in which case the
// trigger is dropped and logged.
func (s *Scheduler) trigger(ctx context.Context) {
	s.mu.Lock()
	if s.inRun {
		since := time.Since(s.started)
		s.mu.Unlock()
		s.Log.Warn().Dur("in_flight", since).
			Msg("previous run still in progress, skipping trigger")
		return
	}
	s.inRun = true
	s.started = time.Now()
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.inRun = false
			s.mu.Unlock()
		}()
		if err := s.Job(ctx); err != nil {
			s.Log.Error().Err(err).Msg("run ended with error")
		}
	}()
}

// nextAfter returns the next occurrence of the configured fire time strictly
// after now.
func (s *Scheduler) nextAfter(now time.Time) time.Time {
	at, _ := time.Parse("15:04", s.At)
	next := time.Date(now.Year(), now.Month(), now.Day(),
		at.Hour(), at.Minute(), 0, 0, s.Loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
