package models

import (
	"encoding/json"
	"testing"
)

func TestParseTripPatch(t *testing.T) {
	var changes map[string]any
	if err := json.Unmarshal([]byte(`{"title":"Final","budget":1200,"maxParticipants":6,"startDate":"2026-07-01"}`), &changes); err != nil {
		t.Fatal(err)
	}

	patch, err := ParseTripPatch(changes)
	if err != nil {
		t.Fatalf("ParseTripPatch failed: %v", err)
	}

	trip := &Trip{Title: "Draft", Destination: "Lisbon", Budget: 100}
	patch.Apply(trip)

	if trip.Title != "Final" {
		t.Errorf("expected title Final, got %q", trip.Title)
	}
	if trip.Destination != "Lisbon" {
		t.Errorf("untouched field changed: %q", trip.Destination)
	}
	if trip.Budget != 1200 {
		t.Errorf("expected budget 1200, got %f", trip.Budget)
	}
	if trip.MaxParticipants != 6 {
		t.Errorf("expected maxParticipants 6, got %d", trip.MaxParticipants)
	}
	if trip.StartDate != "2026-07-01" {
		t.Errorf("expected startDate 2026-07-01, got %q", trip.StartDate)
	}
}

func TestParseTripPatch_Empty(t *testing.T) {
	patch, err := ParseTripPatch(nil)
	if err != nil {
		t.Fatalf("ParseTripPatch failed: %v", err)
	}
	if !patch.Empty() {
		t.Error("expected empty patch")
	}
}

func TestParseTripPatch_Rejects(t *testing.T) {
	tests := map[string]map[string]any{
		"unknown field":        {"creatorId": "u2"},
		"wrong type":           {"title": 5.0},
		"bad date":             {"endDate": "07/01/2026"},
		"negative budget":      {"budget": -1.0},
		"fractional capacity":  {"maxParticipants": 2.5},
		"non-numeric capacity": {"maxParticipants": "three"},
	}
	for name, changes := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseTripPatch(changes); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestTripValidate(t *testing.T) {
	tests := []struct {
		name    string
		trip    Trip
		wantErr bool
	}{
		{"minimal", Trip{Title: "Porto"}, false},
		{"full", Trip{Title: "Porto", StartDate: "2026-07-01", EndDate: "2026-07-09", Budget: 900, MaxParticipants: 4}, false},
		{"same day", Trip{Title: "Porto", StartDate: "2026-07-01", EndDate: "2026-07-01"}, false},
		{"blank title", Trip{Title: "  "}, true},
		{"end before start", Trip{Title: "Porto", StartDate: "2026-07-09", EndDate: "2026-07-01"}, true},
		{"bad date", Trip{Title: "Porto", StartDate: "tomorrow"}, true},
		{"negative budget", Trip{Title: "Porto", Budget: -5}, true},
		{"negative capacity", Trip{Title: "Porto", MaxParticipants: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.trip.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
