package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Participant statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Trip represents a planned group journey.
type Trip struct {
	// ID is the unique identifier for the trip (UUID format).
	ID string

	// CreatorID is the user who owns the trip. Ownership moves to the
	// earliest-joined remaining participant when the creator leaves.
	CreatorID string

	Title       string
	Destination string
	Description string

	// StartDate and EndDate are calendar dates (YYYY-MM-DD). Empty when unset.
	StartDate string
	EndDate   string

	// Budget is the planned total spend for the group.
	Budget float64

	// MaxParticipants caps accepted participants, including the creator. Zero means no cap.
	MaxParticipants int

	CreatedAt int64
	UpdatedAt int64
}

// Validate checks the invariants of the editable fields.
func (t *Trip) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("title is required")
	}
	for key, date := range map[string]string{"startDate": t.StartDate, "endDate": t.EndDate} {
		if date == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return fmt.Errorf("%s must be a YYYY-MM-DD date", key)
		}
	}
	// DateOnly strings order lexically
	if t.StartDate != "" && t.EndDate != "" && t.EndDate < t.StartDate {
		return errors.New("endDate must not be before startDate")
	}
	if t.Budget < 0 {
		return errors.New("budget must not be negative")
	}
	if t.MaxParticipants < 0 {
		return errors.New("maxParticipants must not be negative")
	}
	return nil
}

// TripParticipant links a user to a trip.
type TripParticipant struct {
	TripID string
	UserID string

	// Status is one of StatusPending, StatusAccepted, StatusRejected.
	Status string

	// JoinedAt is the Unix timestamp of the join request.
	JoinedAt int64
}

// TripPatch is a partial update of a trip's editable fields. Nil fields are left untouched.
type TripPatch struct {
	Title           *string
	Destination     *string
	Description     *string
	StartDate       *string
	EndDate         *string
	Budget          *float64
	MaxParticipants *int
}

// Empty reports whether the patch changes nothing.
func (p TripPatch) Empty() bool {
	return p.Title == nil && p.Destination == nil && p.Description == nil &&
		p.StartDate == nil && p.EndDate == nil && p.Budget == nil && p.MaxParticipants == nil
}

// Apply copies the set fields of the patch onto trip.
func (p TripPatch) Apply(trip *Trip) {
	if p.Title != nil {
		trip.Title = *p.Title
	}
	if p.Destination != nil {
		trip.Destination = *p.Destination
	}
	if p.Description != nil {
		trip.Description = *p.Description
	}
	if p.StartDate != nil {
		trip.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		trip.EndDate = *p.EndDate
	}
	if p.Budget != nil {
		trip.Budget = *p.Budget
	}
	if p.MaxParticipants != nil {
		trip.MaxParticipants = *p.MaxParticipants
	}
}

// ParseTripPatch builds a TripPatch from a field-change map as sent by editing
// clients. Keys use the client field names (title, startDate, maxParticipants, ...).
// Unknown keys and values of the wrong type are rejected.
func ParseTripPatch(changes map[string]any) (TripPatch, error) {
	var p TripPatch
	for key, value := range changes {
		var err error
		switch key {
		case "title":
			p.Title, err = stringField(key, value)
		case "destination":
			p.Destination, err = stringField(key, value)
		case "description":
			p.Description, err = stringField(key, value)
		case "startDate":
			p.StartDate, err = dateField(key, value)
		case "endDate":
			p.EndDate, err = dateField(key, value)
		case "budget":
			var f float64
			f, err = numberField(key, value)
			if err == nil {
				if f < 0 {
					err = fmt.Errorf("budget must not be negative")
				}
				p.Budget = &f
			}
		case "maxParticipants":
			var f float64
			f, err = numberField(key, value)
			if err == nil {
				n := int(f)
				if float64(n) != f || n < 0 {
					err = fmt.Errorf("maxParticipants must be a non-negative integer")
				}
				p.MaxParticipants = &n
			}
		default:
			err = fmt.Errorf("unknown trip field %q", key)
		}
		if err != nil {
			return TripPatch{}, err
		}
	}
	return p, nil
}

func stringField(key string, value any) (*string, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string", key)
	}
	return &s, nil
}

func dateField(key string, value any) (*string, error) {
	s, err := stringField(key, value)
	if err != nil {
		return nil, err
	}
	if *s != "" {
		if _, err := time.Parse(time.DateOnly, *s); err != nil {
			return nil, fmt.Errorf("%s must be a YYYY-MM-DD date", key)
		}
	}
	return s, nil
}

func numberField(key string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}
