package event

import (
	"errors"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	rec, err := Normalize(Candidate{
		"name":   "Festival de Jerez",
		"artist": "Eva Yerbabuena",
		"date":   "2025-06-10",
		"city":   "Jerez de la Frontera",
	})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	if rec.Time != TimeUnspecified {
		t.Errorf("time = %q, want sentinel %q", rec.Time, TimeUnspecified)
	}
	if rec.Venue != VenueUnspecified {
		t.Errorf("venue = %q, want sentinel %q", rec.Venue, VenueUnspecified)
	}
	if rec.Description != DefaultDescription {
		t.Errorf("description = %q, want sentinel %q", rec.Description, DefaultDescription)
	}
	if rec.Verified {
		t.Error("verified should default to false")
	}
	if rec.ID != "eva-yerbabuena-jerez-de-la-frontera-2025-06-10" {
		t.Errorf("unexpected synthesized id %q", rec.ID)
	}
}

func TestNormalizeRejections(t *testing.T) {
	tests := []struct {
		name    string
		cand    Candidate
		wantErr error
	}{
		{
			name: "missing date",
			cand: Candidate{
				"name": "Recital", "artist": "Arcángel", "city": "Huelva",
			},
			wantErr: ErrMissingField,
		},
		{
			name: "unparseable date",
			cand: Candidate{
				"name": "Recital", "artist": "Arcángel",
				"city": "Huelva", "date": "next summer",
			},
			wantErr: ErrInvalidDate,
		},
		{
			name: "non-padded date",
			cand: Candidate{
				"name": "Recital", "artist": "Arcángel",
				"city": "Huelva", "date": "2025-7-5",
			},
			wantErr: ErrInvalidDate,
		},
		{
			name: "missing artist",
			cand: Candidate{
				"name": "Recital", "city": "Huelva", "date": "2025-06-10",
			},
			wantErr: ErrMissingField,
		},
		{
			name:    "empty candidate",
			cand:    Candidate{},
			wantErr: ErrMissingField,
		},
		{
			name: "wrong types ignored",
			cand: Candidate{
				"name": 12.5, "artist": []string{"x"},
				"city": "Huelva", "date": "2025-06-10",
			},
			wantErr: ErrMissingField,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.cand); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNormalizeKeepsWellFormedID(t *testing.T) {
	rec, err := Normalize(Candidate{
		"id":     "sara-baras-vuela-paris-2025",
		"name":   "Vuela",
		"artist": "Sara Baras",
		"date":   "2025-10-01",
		"city":   "Paris",
		"time":   "20:30",
		"venue":  "Théâtre du Châtelet",
	})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if rec.ID != "sara-baras-vuela-paris-2025" {
		t.Errorf("id = %q, want the source id kept", rec.ID)
	}
	if rec.Time != "20:30" {
		t.Errorf("time = %q, want supplied value kept", rec.Time)
	}
}

func TestNormalizeSlugsUglySourceID(t *testing.T) {
	rec, err := Normalize(Candidate{
		"id":     "Sara Baras // Vuela (Paris)",
		"name":   "Vuela",
		"artist": "Sara Baras",
		"date":   "2025-10-01",
		"city":   "Paris",
	})
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if rec.ID != "sara-baras-vuela-paris" {
		t.Errorf("id = %q, want a slugged form of the source id", rec.ID)
	}
}

func TestNormalizeVerifiedCoercion(t *testing.T) {
	base := Candidate{
		"name": "Recital", "artist": "Marina Heredia",
		"city": "Granada", "date": "2025-05-01",
	}

	for _, tc := range []struct {
		value any
		want  bool
	}{
		{true, true},
		{"true", true},
		{"false", false},
		{"yes", false},
		{nil, false},
	} {
		c := Candidate{}
		for k, v := range base {
			c[k] = v
		}
		c["verified"] = tc.value
		rec, err := Normalize(c)
		if err != nil {
			t.Fatalf("Normalize error for %v: %v", tc.value, err)
		}
		if rec.Verified != tc.want {
			t.Errorf("verified(%v) = %v, want %v", tc.value, rec.Verified, tc.want)
		}
	}
}
