package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devinvista/Trip-sub001/internal/models"
)

// RemovalOutcome describes what happened to a trip when a participant was removed.
type RemovalOutcome struct {
	// TripDeleted is true when the removed user was the last participant.
	TripDeleted bool

	// NewCreatorID is set when ownership moved to another participant.
	NewCreatorID string
}

// RemoveParticipant removes a user from a trip and keeps the ledger consistent:
//   - the last participant leaving deletes the trip with its expenses and splits
//   - a leaving creator hands the trip to the earliest-joined remaining participant
//   - whenever the trip survives, splits are recalculated for the new group
func (l *Ledger) RemoveParticipant(ctx context.Context, tripID, userID string) (RemovalOutcome, error) {
	var out RemovalOutcome

	trip, err := l.store.GetTrip(ctx, tripID)
	if err != nil {
		return out, err
	}
	member, err := l.store.GetParticipant(ctx, tripID, userID)
	if err != nil {
		return out, err
	}

	accepted, err := l.acceptedParticipantIDs(ctx, tripID)
	if err != nil {
		return out, err
	}
	var remaining []string
	for _, id := range accepted {
		if id != userID {
			remaining = append(remaining, id)
		}
	}

	if len(remaining) == 0 {
		if err := l.store.DeleteTrip(ctx, tripID); err != nil {
			return out, fmt.Errorf("failed to delete trip: %w", err)
		}
		slog.Info("Last participant left, trip deleted", "trip_id", tripID, "user_id", userID)
		out.TripDeleted = true
		return out, nil
	}

	if err := l.store.RemoveParticipant(ctx, tripID, userID); err != nil {
		return out, err
	}

	if trip.CreatorID == userID {
		// remaining is in join order
		out.NewCreatorID = remaining[0]
		if err := l.store.SetTripCreator(ctx, tripID, out.NewCreatorID); err != nil {
			return out, fmt.Errorf("failed to transfer trip ownership: %w", err)
		}
		slog.Info("Trip ownership transferred", "trip_id", tripID, "from", userID, "to", out.NewCreatorID)
	}

	// Pending or rejected members never had a share.
	if member.Status != models.StatusAccepted {
		return out, nil
	}

	if err := l.RecalculateSplits(ctx, tripID); err != nil {
		return out, fmt.Errorf("failed to recalculate splits: %w", err)
	}

	return out, nil
}

// IsAcceptedParticipant reports whether userID is an accepted participant of the trip.
func (l *Ledger) IsAcceptedParticipant(ctx context.Context, tripID, userID string) (bool, error) {
	p, err := l.store.GetParticipant(ctx, tripID, userID)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Status == models.StatusAccepted, nil
}
