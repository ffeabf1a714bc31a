// Package pipeline orchestrates one ingestion cycle: for each configured
// query, fetch candidates from the source adapter, normalize them, drop past
// events, and reconcile the remainder into the store. Query-items are
// processed strictly in order with a pacing delay between them; one item
// failing never stops the next.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"duende/internal/event"
	"duende/internal/source"
	"duende/internal/store"
)

// State is the lifecycle position of one query-item within a run.
type State string

const (
	StatePending     State = "pending"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateFiltering   State = "filtering"
	StatePersisting  State = "persisting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// ErrRunAborted marks a run ended early because the store stopped making
// progress. The next scheduled run retries from scratch.
var ErrRunAborted = errors.New("run aborted")

// EventStore is the slice of the store the pipeline needs. The production
// implementation is *store.Store; tests substitute fakes.
type EventStore interface {
	UpsertBatch(ctx context.Context, recs []event.Record) (store.BatchResult, error)
	Close() error
}

// ItemReport is the observable outcome of one query-item.
type ItemReport struct {
	Query    string
	State    State
	Reason   string
	Fetched  int
	Rejected int
	Stale    int
	Written  int
	Skipped  int
}

// Report summarizes one completed cycle.
type Report struct {
	RunID   string
	Items   []ItemReport
	Written int
	Failed  int
}

// Runner drives ingestion cycles. The store connection is acquired per run
// and released on every exit path; nothing is held between runs.
type Runner struct {
	Adapter   source.Adapter
	OpenStore func(ctx context.Context) (EventStore, error)
	Queries   []string
	Pacing    time.Duration
	Now       func() time.Time
	Log       zerolog.Logger
}

// Run executes one full cycle and reports per-item counts. Per-item fetch
// failures are isolated; a persistence failure ends the run early with
// ErrRunAborted after the store has been released.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	report := Report{RunID: uuid.New().String()}
	log := r.Log.With().Str("run_id", report.RunID).Logger()
	log.Info().Str("source", r.Adapter.Name()).Int("queries", len(r.Queries)).
		Msg("ingestion cycle starting")

	st, err := r.OpenStore(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: open store: %v", ErrRunAborted, err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("close store")
		}
	}()

	for i, query := range r.Queries {
		if i > 0 {
			// Cooperative pacing toward the upstream source. Not a retry
			// backoff; failed items are not retried within a cycle.
			r.pause(ctx)
		}

		item := r.runItem(ctx, log, st, query, now())
		report.Items = append(report.Items, item)
		report.Written += item.Written
		if item.State == StateFailed {
			report.Failed++
			if item.Reason == reasonPersist {
				log.Error().Str("query", query).
					Msg("store unreachable, ending cycle early")
				return report, fmt.Errorf("%w: persisting %q", ErrRunAborted, query)
			}
		}
	}

	log.Info().Int("written", report.Written).Int("failed", report.Failed).
		Msg("cycle complete")
	return report, nil
}

const reasonPersist = "persist"

func (r *Runner) runItem(ctx context.Context, log zerolog.Logger, st EventStore, query string, ref time.Time) ItemReport {
	item := ItemReport{Query: query, State: StatePending}
	ilog := log.With().Str("query", query).Logger()

	item.State = StateFetching
	cands, err := r.Adapter.Fetch(ctx, query)
	if err != nil {
		ilog.Error().Err(err).Msg("fetch failed, skipping item")
		item.State = StateFailed
		item.Reason = "fetch"
		return item
	}
	item.Fetched = len(cands)
	if len(cands) == 0 {
		ilog.Info().Msg("no candidates")
		item.State = StateDone
		return item
	}

	item.State = StateNormalizing
	var records []event.Record
	for _, c := range cands {
		rec, err := event.Normalize(c)
		if err != nil {
			item.Rejected++
			ilog.Debug().Err(err).Msg("candidate rejected")
			continue
		}
		records = append(records, rec)
	}

	item.State = StateFiltering
	upcoming := records[:0]
	for _, rec := range records {
		if !event.Upcoming(rec, ref) {
			item.Stale++
			continue
		}
		upcoming = append(upcoming, rec)
	}

	item.State = StatePersisting
	res, err := st.UpsertBatch(ctx, upcoming)
	item.Written = res.Written
	item.Skipped = res.Skipped
	if err != nil {
		ilog.Error().Err(err).Msg("persist failed")
		item.State = StateFailed
		item.Reason = reasonPersist
		return item
	}

	item.State = StateDone
	ilog.Info().
		Int("fetched", item.Fetched).
		Int("rejected", item.Rejected).
		Int("stale", item.Stale).
		Int("written", item.Written).
		Int("skipped", item.Skipped).
		Msg("item done")
	return item
}

func (r *Runner) pause(ctx context.Context) {
	if r.Pacing <= 0 {
		return
	}
	t := time.NewTimer(r.Pacing)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
