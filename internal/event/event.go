package event

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMissingField signals a required field was absent or empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidDate signals the date did not parse as a calendar date.
	ErrInvalidDate = errors.New("invalid date")
)

// Sentinel values applied to optional fields so downstream consumers
// never have to branch on field presence.
const (
	TimeUnspecified    = "unspecified"
	VenueUnspecified   = "unspecified"
	DefaultDescription = "consult source"
	ArtistVarious      = "various"
)

// DateLayout is the wire form for event dates.
const DateLayout = "2006-01-02"

// Record is the normalized shape every source is mapped into. It is the
// unit of persistence: records are written whole or not at all, keyed by ID.
type Record struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Venue       string `json:"venue"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Verified    bool   `json:"verified"`
}

// Validate checks the invariants a record must satisfy before it may be
// persisted: required fields present and a parseable calendar date.
func (r Record) Validate() error {
	required := []struct {
		name, value string
	}{
		{"id", r.ID},
		{"name", r.Name},
		{"artist", r.Artist},
		{"date", r.Date},
		{"city", r.City},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, r.Date)
	}
	return nil
}

// SynthesizeID derives a stable slug from (artist, city, date) so repeated
// ingestion of the same logical event converges to the same key even when
// the source cannot supply one.
func SynthesizeID(artist, city, date string) string {
	return Slugify(artist + "-" + city + "-" + date)
}

// Slugify lower-cases s and collapses every run of non-alphanumeric bytes
// into a single hyphen. Deterministic: equal input, equal output.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	hyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		default:
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
