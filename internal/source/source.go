// Package source contains the pluggable upstream connectors that produce
// raw event candidates. All site- and model-specific behavior lives behind
// the Adapter interface so the pipeline never changes when the extraction
// strategy does.
package source

import (
	"context"
	"fmt"

	"duende/internal/config"
	"duende/internal/event"
)

// Adapter wraps one upstream source. Fetch returns zero or more raw
// candidates for a query; "no results" is an empty slice, not an error.
// Errors returned here abort the current query only, never the run.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, query string) ([]event.Candidate, error)
}

// New builds the adapter selected by the strategy config.
func New(cfg config.SourceConfig) (Adapter, error) {
	switch cfg.Type {
	case "generative":
		return NewGenerative(cfg.Generative), nil
	case "scrape":
		return NewScrape(cfg.Scrape), nil
	default:
		return nil, fmt.Errorf("unknown source type: %q", cfg.Type)
	}
}
