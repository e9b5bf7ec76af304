package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/devinvista/Trip-sub001/internal/api"
	"github.com/devinvista/Trip-sub001/internal/hub"
	"github.com/devinvista/Trip-sub001/internal/ledger"
	"github.com/devinvista/Trip-sub001/internal/middleware"
	"github.com/devinvista/Trip-sub001/internal/models"
	"github.com/devinvista/Trip-sub001/internal/storage"
)

var (
	errTripFull        = errors.New("trip has no free places")
	errAlreadyMember   = errors.New("already a participant of this trip")
	errNotPending      = errors.New("there is no pending request from this user")
	errMissingUserID   = errors.New("user_id is required")
	errCreatorIsMember = errors.New("the creator cannot request to join their own trip")
)

// EditHub is the part of the collaboration hub the trip service talks to.
type EditHub interface {
	Saved(tripID, userID, username string)
	Presence(tripID string) []hub.Member
	Evict(tripID, userID string) int
}

// TripService implements the Connect TripService.
type TripService struct {
	store  storage.Store
	ledger *ledger.Ledger
	hub    EditHub
}

// NewTripService creates a TripService. Collaborative saves are announced on h.
func NewTripService(store storage.Store, l *ledger.Ledger, h EditHub) *TripService {
	return &TripService{store: store, ledger: l, hub: h}
}

// CreateTrip creates a trip owned by the caller.
func (s *TripService) CreateTrip(ctx context.Context, req *connect.Request[api.CreateTripRequest]) (*connect.Response[api.CreateTripResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateTrip request received", "user_id", userID, "title", req.Msg.Title)

	trip := &models.Trip{
		CreatorID:       userID,
		Title:           strings.TrimSpace(req.Msg.Title),
		Destination:     req.Msg.Destination,
		Description:     req.Msg.Description,
		StartDate:       req.Msg.StartDate,
		EndDate:         req.Msg.EndDate,
		Budget:          req.Msg.Budget,
		MaxParticipants: req.Msg.MaxParticipants,
	}
	if err := trip.Validate(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, internalError("could not create trip", err, "user_id", userID)
	}

	slog.Info("Trip created", "trip_id", trip.ID, "creator_id", userID)
	return connect.NewResponse(&api.CreateTripResponse{Trip: toAPITrip(trip)}), nil
}

// GetTrip returns a trip with its accepted participants. Any signed-in user may
// look at a trip so they can decide to request to join.
func (s *TripService) GetTrip(ctx context.Context, req *connect.Request[api.GetTripRequest]) (*connect.Response[api.GetTripResponse], error) {
	if _, err := callerID(ctx); err != nil {
		return nil, err
	}
	slog.Info("GetTrip request received", "trip_id", req.Msg.TripID)

	trip, err := s.store.GetTrip(ctx, req.Msg.TripID)
	if err != nil {
		return nil, lookupError("could not load trip", err, "trip_id", req.Msg.TripID)
	}

	participants, err := s.participants(ctx, trip.ID, models.StatusAccepted)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.GetTripResponse{
		Trip:         toAPITrip(trip),
		Participants: participants,
	}), nil
}

// RequestToJoin records a pending membership for the caller.
// Repeating a pending request returns it unchanged.
func (s *TripService) RequestToJoin(ctx context.Context, req *connect.Request[api.RequestToJoinRequest]) (*connect.Response[api.RequestToJoinResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	tripID := req.Msg.TripID
	slog.Info("RequestToJoin request received", "trip_id", tripID, "user_id", userID)

	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, lookupError("could not load trip", err, "trip_id", tripID)
	}
	if trip.CreatorID == userID {
		return nil, connect.NewError(connect.CodeAlreadyExists, errCreatorIsMember)
	}

	existing, err := s.store.GetParticipant(ctx, tripID, userID)
	switch {
	case err == nil && existing.Status == models.StatusAccepted:
		return nil, connect.NewError(connect.CodeAlreadyExists, errAlreadyMember)
	case err == nil && existing.Status == models.StatusPending:
		return connect.NewResponse(&api.RequestToJoinResponse{Participant: participantView(existing)}), nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, internalError("could not load membership", err, "trip_id", tripID, "user_id", userID)
	}

	if err := s.checkCapacity(ctx, trip); err != nil {
		return nil, err
	}

	p := &models.TripParticipant{TripID: tripID, UserID: userID, Status: models.StatusPending}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		return nil, internalError("could not request to join", err, "trip_id", tripID, "user_id", userID)
	}

	slog.Info("Join requested", "trip_id", tripID, "user_id", userID)
	return connect.NewResponse(&api.RequestToJoinResponse{Participant: participantView(p)}), nil
}

// RespondToRequest lets the creator accept or reject a pending request.
func (s *TripService) RespondToRequest(ctx context.Context, req *connect.Request[api.RespondToRequestRequest]) (*connect.Response[api.RespondToRequestResponse], error) {
	creatorID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	tripID, userID := req.Msg.TripID, req.Msg.UserID
	slog.Info("RespondToRequest request received", "trip_id", tripID, "user_id", userID, "accept", req.Msg.Accept)

	trip, err := s.loadTripForCreator(ctx, tripID, creatorID)
	if err != nil {
		return nil, err
	}

	p, err := s.store.GetParticipant(ctx, tripID, userID)
	if err != nil {
		return nil, lookupError("could not load membership", err, "trip_id", tripID, "user_id", userID)
	}
	if p.Status != models.StatusPending {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errNotPending)
	}

	status := models.StatusRejected
	if req.Msg.Accept {
		if err := s.checkCapacity(ctx, trip); err != nil {
			return nil, err
		}
		status = models.StatusAccepted
	}
	if err := s.store.SetParticipantStatus(ctx, tripID, userID, status); err != nil {
		return nil, internalError("could not update membership", err, "trip_id", tripID, "user_id", userID)
	}
	p.Status = status

	slog.Info("Join request answered", "trip_id", tripID, "user_id", userID, "status", status)
	return connect.NewResponse(&api.RespondToRequestResponse{Participant: participantView(p)}), nil
}

// ListParticipants lists memberships of a trip, optionally filtered by status.
func (s *TripService) ListParticipants(ctx context.Context, req *connect.Request[api.ListParticipantsRequest]) (*connect.Response[api.ListParticipantsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListParticipants request received", "trip_id", req.Msg.TripID, "status", req.Msg.Status)

	switch req.Msg.Status {
	case "", models.StatusPending, models.StatusAccepted, models.StatusRejected:
	default:
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("unknown participant status"))
	}

	if _, err := loadTripForMember(ctx, s.store, req.Msg.TripID, userID); err != nil {
		return nil, err
	}

	participants, err := s.participants(ctx, req.Msg.TripID, req.Msg.Status)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.ListParticipantsResponse{Participants: participants}), nil
}

// LeaveTrip removes the caller from a trip.
func (s *TripService) LeaveTrip(ctx context.Context, req *connect.Request[api.LeaveTripRequest]) (*connect.Response[api.LeaveTripResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("LeaveTrip request received", "trip_id", req.Msg.TripID, "user_id", userID)

	out, err := s.remove(ctx, req.Msg.TripID, userID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.LeaveTripResponse{TripDeleted: out.TripDeleted, NewCreatorID: out.NewCreatorID}), nil
}

// RemoveParticipant lets the creator remove another participant.
func (s *TripService) RemoveParticipant(ctx context.Context, req *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error) {
	creatorID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("RemoveParticipant request received", "trip_id", req.Msg.TripID, "user_id", req.Msg.UserID)

	if req.Msg.UserID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingUserID)
	}
	if _, err := s.loadTripForCreator(ctx, req.Msg.TripID, creatorID); err != nil {
		return nil, err
	}

	out, err := s.remove(ctx, req.Msg.TripID, req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.RemoveParticipantResponse{TripDeleted: out.TripDeleted, NewCreatorID: out.NewCreatorID}), nil
}

// GetPresence returns who is editing the trip right now.
func (s *TripService) GetPresence(ctx context.Context, req *connect.Request[api.GetPresenceRequest]) (*connect.Response[api.GetPresenceResponse], error) {
	if _, err := callerID(ctx); err != nil {
		return nil, err
	}
	if req.Msg.TripID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingTripID)
	}

	roster := s.hub.Presence(req.Msg.TripID)
	members := make([]api.PresenceMember, len(roster))
	for i, m := range roster {
		members[i] = api.PresenceMember{UserID: m.UserID, Username: m.Username, Cursor: m.Cursor}
	}
	return connect.NewResponse(&api.GetPresenceResponse{Participants: members}), nil
}

// CollaborativeSave persists the changes worked out in a live editing session,
// clears the session's unsaved state and tells every editor.
func (s *TripService) CollaborativeSave(ctx context.Context, req *connect.Request[api.CollaborativeSaveRequest]) (*connect.Response[api.CollaborativeSaveResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	tripID := req.Msg.TripID
	slog.Info("CollaborativeSave request received", "trip_id", tripID, "user_id", userID, "fields", len(req.Msg.Changes))

	trip, err := loadTripForMember(ctx, s.store, tripID, userID)
	if err != nil {
		return nil, err
	}

	patch, err := models.ParseTripPatch(req.Msg.Changes)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	patched := *trip
	patch.Apply(&patched)
	if err := patched.Validate(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	updated, err := s.store.UpdateTrip(ctx, tripID, patch)
	if err != nil {
		return nil, lookupError("could not save trip", err, "trip_id", tripID)
	}

	s.hub.Saved(tripID, userID, s.displayName(ctx, userID))

	slog.Info("Trip saved collaboratively", "trip_id", tripID, "user_id", userID)
	return connect.NewResponse(&api.CollaborativeSaveResponse{Trip: toAPITrip(updated)}), nil
}

func (s *TripService) remove(ctx context.Context, tripID, userID string) (ledger.RemovalOutcome, error) {
	if tripID == "" {
		return ledger.RemovalOutcome{}, connect.NewError(connect.CodeInvalidArgument, errMissingTripID)
	}
	out, err := s.ledger.RemoveParticipant(ctx, tripID, userID)
	if err != nil {
		return out, lookupError("could not remove participant", err, "trip_id", tripID, "user_id", userID)
	}

	// Removed users lose edit access, and a deleted trip has no session to edit.
	evictID := userID
	if out.TripDeleted {
		evictID = ""
	}
	evicted := s.hub.Evict(tripID, evictID)

	slog.Info("Participant removed",
		"trip_id", tripID,
		"user_id", userID,
		"trip_deleted", out.TripDeleted,
		"new_creator_id", out.NewCreatorID,
		"evicted_connections", evicted,
	)
	return out, nil
}

func (s *TripService) loadTripForCreator(ctx context.Context, tripID, userID string) (*models.Trip, error) {
	if tripID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingTripID)
	}
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, lookupError("could not load trip", err, "trip_id", tripID)
	}
	if trip.CreatorID != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotCreator)
	}
	return trip, nil
}

// checkCapacity fails when the trip already has MaxParticipants accepted members.
func (s *TripService) checkCapacity(ctx context.Context, trip *models.Trip) error {
	if trip.MaxParticipants <= 0 {
		return nil
	}
	accepted, err := s.store.ListParticipants(ctx, trip.ID, models.StatusAccepted)
	if err != nil {
		return internalError("could not count participants", err, "trip_id", trip.ID)
	}
	if len(accepted) >= trip.MaxParticipants {
		return connect.NewError(connect.CodeFailedPrecondition, errTripFull)
	}
	return nil
}

func (s *TripService) participants(ctx context.Context, tripID, status string) ([]api.Participant, error) {
	members, err := s.store.ListParticipants(ctx, tripID, status)
	if err != nil {
		return nil, internalError("could not list participants", err, "trip_id", tripID)
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, internalError("could not load users", err, "trip_id", tripID)
	}

	out := make([]api.Participant, len(members))
	for i, m := range members {
		out[i] = toAPIParticipant(m, users)
	}
	return out, nil
}

// displayName prefers the name from the token and falls back to the user record.
func (s *TripService) displayName(ctx context.Context, userID string) string {
	if name := middleware.GetDisplayName(ctx); name != "" {
		return name
	}
	if u, err := s.store.GetUserByID(ctx, userID); err == nil && u != nil {
		return u.DisplayName
	}
	return ""
}

func participantView(p *models.TripParticipant) *api.Participant {
	v := toAPIParticipant(p, nil)
	return &v
}
