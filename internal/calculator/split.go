package calculator

import (
	"errors"
)

var (
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrNoParticipants = errors.New("must have at least one participant")
)

// Share is one participant's part of an equally split amount.
type Share struct {
	UserID string
	Amount float64
}

// EqualSplit divides amount equally among participants.
// Duplicate participant IDs are counted once; shares keep the order of first appearance.
// The division is exact float division: no rounding and no remainder assignment.
func EqualSplit(amount float64, participants []string) ([]Share, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	unique := dedupe(participants)
	if len(unique) == 0 {
		return nil, ErrNoParticipants
	}

	perPerson := amount / float64(len(unique))
	shares := make([]Share, len(unique))
	for i, p := range unique {
		shares[i] = Share{UserID: p, Amount: perPerson}
	}
	return shares, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
