package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/devinvista/Trip-sub001/internal/auth"
	"github.com/devinvista/Trip-sub001/internal/middleware"
	"github.com/devinvista/Trip-sub001/internal/models"
	"github.com/devinvista/Trip-sub001/internal/storage"
)

var (
	errMissingTripID  = errors.New("trip_id is required")
	errNotParticipant = errors.New("caller is not an accepted participant of this trip")
	errNotCreator     = errors.New("only the trip creator can do this")
)

// callerID returns the authenticated user ID or an Unauthenticated error.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// internalError logs err and returns a Connect error with a generic message so
// storage details never reach the client.
func internalError(msg string, err error, args ...any) *connect.Error {
	slog.Error(msg, append(args, "error", err)...)
	return connect.NewError(connect.CodeInternal, errors.New(msg))
}

// lookupError maps a storage lookup failure to NotFound or Internal.
func lookupError(msg string, err error, args ...any) *connect.Error {
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return internalError(msg, err, args...)
}

// loadTripForMember loads a trip and checks that userID is its creator or an
// accepted participant.
func loadTripForMember(ctx context.Context, store storage.TripStore, tripID, userID string) (*models.Trip, error) {
	if tripID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingTripID)
	}
	trip, err := store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, lookupError("could not load trip", err, "trip_id", tripID)
	}
	if trip.CreatorID == userID {
		return trip, nil
	}

	p, err := store.GetParticipant(ctx, tripID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotParticipant)
	}
	if err != nil {
		return nil, internalError("could not load membership", err, "trip_id", tripID, "user_id", userID)
	}
	if p.Status != models.StatusAccepted {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotParticipant)
	}
	return trip, nil
}
