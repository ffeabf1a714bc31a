package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Candidate is an unvalidated, source-provided representation of a possible
// event. Sources stuff whatever they extracted into it; only Normalize
// decides whether it becomes a Record.
type Candidate map[string]any

// Normalize coerces a candidate into a well-formed Record or rejects it.
// Required fields are name, artist, date and city; optional fields default
// to sentinels so no Record ever has an absent field. The ID is taken from
// the candidate when it is already slug-shaped, otherwise synthesized from
// (artist, city, date).
func Normalize(c Candidate) (Record, error) {
	rec := Record{
		Name:        stringField(c, "name"),
		Artist:      stringField(c, "artist"),
		Description: stringField(c, "description"),
		Date:        stringField(c, "date"),
		Time:        stringField(c, "time"),
		Venue:       stringField(c, "venue"),
		City:        stringField(c, "city"),
		Country:     stringField(c, "country"),
		Verified:    boolField(c, "verified"),
	}

	for _, f := range []struct {
		name, value string
	}{
		{"name", rec.Name},
		{"artist", rec.Artist},
		{"date", rec.Date},
		{"city", rec.City},
	} {
		if f.value == "" {
			return Record{}, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	if _, err := time.Parse(DateLayout, rec.Date); err != nil {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidDate, rec.Date)
	}

	if rec.Description == "" {
		rec.Description = DefaultDescription
	}
	if rec.Time == "" {
		rec.Time = TimeUnspecified
	}
	if rec.Venue == "" {
		rec.Venue = VenueUnspecified
	}

	if id := Slugify(stringField(c, "id")); id != "" {
		rec.ID = id
	} else {
		rec.ID = SynthesizeID(rec.Artist, rec.City, rec.Date)
	}

	return rec, rec.Validate()
}

func stringField(c Candidate, key string) string {
	switch v := c[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func boolField(c Candidate, key string) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return false
	}
}
