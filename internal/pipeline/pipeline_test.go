package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"duende/internal/event"
	"duende/internal/store"
)

type fakeAdapter struct {
	candidates map[string][]event.Candidate
	errs       map[string]error
	calls      []string
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Fetch(ctx context.Context, query string) ([]event.Candidate, error) {
	f.calls = append(f.calls, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.candidates[query], nil
}

type fakeStore struct {
	records  []event.Record
	batchErr error
	closed   bool
}

func (f *fakeStore) UpsertBatch(ctx context.Context, recs []event.Record) (store.BatchResult, error) {
	if f.batchErr != nil {
		return store.BatchResult{}, f.batchErr
	}
	f.records = append(f.records, recs...)
	return store.BatchResult{Written: len(recs)}, nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func newRunner(adapter *fakeAdapter, st *fakeStore, queries ...string) *Runner {
	return &Runner{
		Adapter: adapter,
		OpenStore: func(ctx context.Context) (EventStore, error) {
			return st, nil
		},
		Queries: queries,
		Now: func() time.Time {
			return time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)
		},
		Log: zerolog.Nop(),
	}
}

func validCandidate(artist string) event.Candidate {
	return event.Candidate{
		"name":   "Recital",
		"artist": artist,
		"date":   "2025-09-14",
		"city":   "Sevilla",
	}
}

func TestRunIsolatesFetchFailures(t *testing.T) {
	adapter := &fakeAdapter{
		candidates: map[string][]event.Candidate{
			"Q2": {validCandidate("Miguel Poveda")},
		},
		errs: map[string]error{"Q1": errors.New("backend down")},
	}
	st := &fakeStore{}

	report, err := newRunner(adapter, st, "Q1", "Q2").Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(adapter.calls) != 2 {
		t.Fatalf("fetch calls = %v, want both queries attempted", adapter.calls)
	}
	if report.Failed != 1 || report.Written != 1 {
		t.Fatalf("failed=%d written=%d, want 1/1", report.Failed, report.Written)
	}
	if report.Items[0].State != StateFailed || report.Items[0].Reason != "fetch" {
		t.Errorf("item 0 = %+v, want failed at fetch", report.Items[0])
	}
	if report.Items[1].State != StateDone {
		t.Errorf("item 1 state = %s, want done", report.Items[1].State)
	}
	if len(st.records) != 1 {
		t.Fatalf("persisted %d records, want 1", len(st.records))
	}
	if !st.closed {
		t.Error("store must be released at end of run")
	}
}

func TestRunNormalizesAndFilters(t *testing.T) {
	adapter := &fakeAdapter{
		candidates: map[string][]event.Candidate{
			"Q": {
				validCandidate("Miguel Poveda"),                                         // kept
				{"name": "Recital", "artist": "X", "city": "Cádiz"},                     // no date: rejected
				{"name": "Viejo", "artist": "Y", "city": "Jerez", "date": "2024-01-01"}, // past: stale
			},
		},
	}
	st := &fakeStore{}

	report, err := newRunner(adapter, st, "Q").Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	item := report.Items[0]
	if item.Fetched != 3 || item.Rejected != 1 || item.Stale != 1 || item.Written != 1 {
		t.Fatalf("item = %+v, want fetched=3 rejected=1 stale=1 written=1", item)
	}
	if len(st.records) != 1 || st.records[0].Artist != "Miguel Poveda" {
		t.Fatalf("persisted records = %v", st.records)
	}
}

func TestRunSameDayEventSurvivesFilter(t *testing.T) {
	adapter := &fakeAdapter{
		candidates: map[string][]event.Candidate{
			"Q": {{
				"name": "Hoy", "artist": "Z", "city": "Granada", "date": "2025-06-10",
			}},
		},
	}
	st := &fakeStore{}

	report, err := newRunner(adapter, st, "Q").Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Items[0].Stale != 0 || report.Written != 1 {
		t.Fatalf("same-day event was dropped: %+v", report.Items[0])
	}
}

func TestRunAbortsWhenStoreUnreachable(t *testing.T) {
	adapter := &fakeAdapter{
		candidates: map[string][]event.Candidate{
			"Q1": {validCandidate("A")},
			"Q2": {validCandidate("B")},
		},
	}
	st := &fakeStore{batchErr: errors.New("connection refused")}

	r := newRunner(adapter, st, "Q1", "Q2")
	report, err := r.Run(context.Background())
	if !errors.Is(err, ErrRunAborted) {
		t.Fatalf("expected ErrRunAborted, got %v", err)
	}
	// The run ends at the first persistence failure; Q2 is never fetched.
	if len(adapter.calls) != 1 {
		t.Fatalf("fetch calls = %v, want only Q1", adapter.calls)
	}
	if report.Items[0].State != StateFailed {
		t.Fatalf("item 0 = %+v, want failed", report.Items[0])
	}
	if !st.closed {
		t.Error("store must be released even on the abort path")
	}
}

func TestRunOpenStoreFailure(t *testing.T) {
	r := &Runner{
		Adapter: &fakeAdapter{},
		OpenStore: func(ctx context.Context) (EventStore, error) {
			return nil, errors.New("dns failure")
		},
		Queries: []string{"Q"},
		Log:     zerolog.Nop(),
	}
	if _, err := r.Run(context.Background()); !errors.Is(err, ErrRunAborted) {
		t.Fatalf("expected ErrRunAborted, got %v", err)
	}
}

func TestRunPacesBetweenItems(t *testing.T) {
	adapter := &fakeAdapter{}
	st := &fakeStore{}
	r := newRunner(adapter, st, "Q1", "Q2", "Q3")
	r.Pacing = 20 * time.Millisecond

	start := time.Now()
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// Two gaps between three items.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("run finished in %v, pacing not applied", elapsed)
	}
}
