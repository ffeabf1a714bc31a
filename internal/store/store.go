// Package store is the persistence boundary: idempotent upsert of event
// records by id, backed by Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"duende/internal/event"
)

// Store provides reconciliation writes backed by Postgres. A Store is scoped
// to one pipeline run: Open at run start, Close on every exit path.
type Store struct {
	db *sql.DB
}

// BatchResult reports what a batch upsert did.
type BatchResult struct {
	Written int
	Skipped int
}

// Open establishes a database connection and pings until the instance
// responds or the wait budget runs out.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	const (
		pingTimeout    = 5 * time.Second
		maxWait        = 30 * time.Second
		initialBackoff = 500 * time.Millisecond
		maxBackoff     = 5 * time.Second
	)

	deadline := time.Now().Add(maxWait)
	backoff := initialBackoff
	var lastErr error

	for {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			return New(db), nil
		}

		// Respect caller cancellation.
		if ctx.Err() != nil {
			break
		}
		if time.Now().After(deadline) {
			break
		}

		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("ping database: %w", lastErr)
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const upsertQuery = `
	INSERT INTO events (id, name, artist, description, date, time, venue, city, country, verified)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		artist = EXCLUDED.artist,
		description = EXCLUDED.description,
		date = EXCLUDED.date,
		time = EXCLUDED.time,
		venue = EXCLUDED.venue,
		city = EXCLUDED.city,
		country = EXCLUDED.country,
		verified = EXCLUDED.verified
`

// Upsert inserts the record or fully replaces the one sharing its id.
// Last write wins on the whole record; calling it twice with the same
// record changes nothing observable.
func (s *Store) Upsert(ctx context.Context, rec event.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("refusing to persist: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertQuery,
		rec.ID, rec.Name, rec.Artist, rec.Description, rec.Date,
		rec.Time, rec.Venue, rec.City, rec.Country, rec.Verified,
	); err != nil {
		return fmt.Errorf("upsert event %q: %w", rec.ID, err)
	}
	return nil
}

// UpsertBatch writes every valid record and counts what happened. Invalid
// records are skipped rather than partially written; a database error aborts
// the batch and surfaces to the caller.
func (s *Store) UpsertBatch(ctx context.Context, recs []event.Record) (BatchResult, error) {
	var res BatchResult
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			res.Skipped++
			continue
		}
		if err := s.Upsert(ctx, rec); err != nil {
			return res, err
		}
		res.Written++
	}
	return res, nil
}

// DeletePast removes events dated strictly before ref, day granularity.
// Retention is a separate, explicitly enabled concern; the ingest pipeline
// itself never deletes.
func (s *Store) DeletePast(ctx context.Context, ref time.Time) (int64, error) {
	cutoff := ref.Format(event.DateLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete past events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
