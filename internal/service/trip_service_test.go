package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devinvista/Trip-sub001/internal/api"
	"github.com/devinvista/Trip-sub001/internal/hub"
	"github.com/devinvista/Trip-sub001/internal/models"
)

func TestCreateTrip(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	resp, err := env.trips.CreateTrip(ctx, as("u1", &api.CreateTripRequest{
		Title:       "Porto",
		Destination: "Portugal",
		StartDate:   "2026-07-01",
		EndDate:     "2026-07-09",
		Budget:      1500,
	}))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Msg.Trip.ID)
	assert.Equal(t, "u1", resp.Msg.Trip.CreatorID)

	got, err := env.trips.GetTrip(ctx, as("u2", &api.GetTripRequest{TripID: resp.Msg.Trip.ID}))
	require.NoError(t, err)
	assert.Equal(t, "Porto", got.Msg.Trip.Title)
	require.Len(t, got.Msg.Participants, 1)
	assert.Equal(t, "u1", got.Msg.Participants[0].UserID)
	assert.Equal(t, models.StatusAccepted, got.Msg.Participants[0].Status)

	_, err = env.trips.CreateTrip(ctx, as("u1", &api.CreateTripRequest{Title: "Porto", StartDate: "2026-07-09", EndDate: "2026-07-01"}))
	requireCode(t, err, connect.CodeInvalidArgument)

	_, err = env.trips.CreateTrip(ctx, as("", &api.CreateTripRequest{Title: "Porto"}))
	requireCode(t, err, connect.CodeUnauthenticated)

	_, err = env.trips.GetTrip(ctx, as("u1", &api.GetTripRequest{TripID: "missing"}))
	requireCode(t, err, connect.CodeNotFound)
}

func TestJoinRequestFlow(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	created, err := env.trips.CreateTrip(ctx, as("u1", &api.CreateTripRequest{Title: "Porto", MaxParticipants: 2}))
	require.NoError(t, err)
	tripID := created.Msg.Trip.ID

	req, err := env.trips.RequestToJoin(ctx, as("u2", &api.RequestToJoinRequest{TripID: tripID}))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Msg.Participant.Status)

	again, err := env.trips.RequestToJoin(ctx, as("u2", &api.RequestToJoinRequest{TripID: tripID}))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Msg.Participant.Status)

	_, err = env.trips.RequestToJoin(ctx, as("u1", &api.RequestToJoinRequest{TripID: tripID}))
	requireCode(t, err, connect.CodeAlreadyExists)

	_, err = env.trips.RespondToRequest(ctx, as("u2", &api.RespondToRequestRequest{TripID: tripID, UserID: "u2", Accept: true}))
	requireCode(t, err, connect.CodePermissionDenied)

	// pending members cannot see the member list yet
	_, err = env.trips.ListParticipants(ctx, as("u2", &api.ListParticipantsRequest{TripID: tripID}))
	requireCode(t, err, connect.CodePermissionDenied)

	_, err = env.trips.RequestToJoin(ctx, as("u3", &api.RequestToJoinRequest{TripID: tripID}))
	require.NoError(t, err)

	accepted, err := env.trips.RespondToRequest(ctx, as("u1", &api.RespondToRequestRequest{TripID: tripID, UserID: "u2", Accept: true}))
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Msg.Participant.Status)

	_, err = env.trips.RespondToRequest(ctx, as("u1", &api.RespondToRequestRequest{TripID: tripID, UserID: "u2", Accept: true}))
	requireCode(t, err, connect.CodeFailedPrecondition)

	// two accepted members fill the trip
	_, err = env.trips.RespondToRequest(ctx, as("u1", &api.RespondToRequestRequest{TripID: tripID, UserID: "u3", Accept: true}))
	requireCode(t, err, connect.CodeFailedPrecondition)
	_, err = env.trips.RequestToJoin(ctx, as("u4", &api.RequestToJoinRequest{TripID: tripID}))
	requireCode(t, err, connect.CodeFailedPrecondition)

	rejected, err := env.trips.RespondToRequest(ctx, as("u1", &api.RespondToRequestRequest{TripID: tripID, UserID: "u3", Accept: false}))
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Msg.Participant.Status)

	all, err := env.trips.ListParticipants(ctx, as("u2", &api.ListParticipantsRequest{TripID: tripID}))
	require.NoError(t, err)
	var ids []string
	for _, p := range all.Msg.Participants {
		ids = append(ids, p.UserID+":"+p.Status)
	}
	assert.Equal(t, []string{"u1:accepted", "u2:accepted", "u3:rejected"}, ids)

	onlyAccepted, err := env.trips.ListParticipants(ctx, as("u1", &api.ListParticipantsRequest{TripID: tripID, Status: models.StatusAccepted}))
	require.NoError(t, err)
	assert.Len(t, onlyAccepted.Msg.Participants, 2)
}

func TestLeaveTrip_RecalculatesSplits(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	tripID := env.newTrip(t, "u1", "u2", "u3")

	_, err := env.expenses.CreateExpense(ctx, as("u1", &api.CreateExpenseRequest{TripID: tripID, Amount: 90, Description: "Dinner"}))
	require.NoError(t, err)

	left, err := env.trips.LeaveTrip(ctx, as("u3", &api.LeaveTripRequest{TripID: tripID}))
	require.NoError(t, err)
	assert.False(t, left.Msg.TripDeleted)
	assert.Empty(t, left.Msg.NewCreatorID)

	list, err := env.expenses.ListExpenses(ctx, as("u1", &api.ListExpensesRequest{TripID: tripID}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Expenses, 1)
	splits := list.Msg.Expenses[0].Splits
	require.Len(t, splits, 2)
	for _, s := range splits {
		assert.InDelta(t, 45.0, s.Amount, 1e-9)
		assert.Equal(t, s.UserID == "u1", s.Paid, "only the payer's split is paid")
	}

	_, err = env.expenses.ListExpenses(ctx, as("u3", &api.ListExpensesRequest{TripID: tripID}))
	requireCode(t, err, connect.CodePermissionDenied)
}

func TestLeaveTrip_CreatorHandsOver(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	tripID := env.newTrip(t, "u1", "u2", "u3")

	left, err := env.trips.LeaveTrip(ctx, as("u1", &api.LeaveTripRequest{TripID: tripID}))
	require.NoError(t, err)
	assert.Equal(t, "u2", left.Msg.NewCreatorID)

	got, err := env.trips.GetTrip(ctx, as("u2", &api.GetTripRequest{TripID: tripID}))
	require.NoError(t, err)
	assert.Equal(t, "u2", got.Msg.Trip.CreatorID)
}

func TestLeaveTrip_LastParticipantDeletesTrip(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	tripID := env.newTrip(t, "u1")

	left, err := env.trips.LeaveTrip(ctx, as("u1", &api.LeaveTripRequest{TripID: tripID}))
	require.NoError(t, err)
	assert.True(t, left.Msg.TripDeleted)

	_, err = env.trips.GetTrip(ctx, as("u1", &api.GetTripRequest{TripID: tripID}))
	requireCode(t, err, connect.CodeNotFound)

	_, err = env.trips.LeaveTrip(ctx, as("u9", &api.LeaveTripRequest{TripID: "missing"}))
	requireCode(t, err, connect.CodeNotFound)
}

func TestRemoveParticipant(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	tripID := env.newTrip(t, "u1", "u2", "u3")

	_, err := env.trips.RemoveParticipant(ctx, as("u2", &api.RemoveParticipantRequest{TripID: tripID, UserID: "u3"}))
	requireCode(t, err, connect.CodePermissionDenied)

	_, err = env.trips.RemoveParticipant(ctx, as("u1", &api.RemoveParticipantRequest{TripID: tripID}))
	requireCode(t, err, connect.CodeInvalidArgument)

	_, err = env.trips.RemoveParticipant(ctx, as("u1", &api.RemoveParticipantRequest{TripID: tripID, UserID: "u3"}))
	require.NoError(t, err)

	list, err := env.trips.ListParticipants(ctx, as("u1", &api.ListParticipantsRequest{TripID: tripID}))
	require.NoError(t, err)
	assert.Len(t, list.Msg.Participants, 2)
}

func TestRemoveParticipant_EvictsFromEditSession(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	tripID := env.newTrip(t, "u1", "u2", "u3")

	owner := env.joinHub(t, "u1", tripID)
	removed := env.joinHub(t, "u3", tripID)
	require.Len(t, env.hub.Presence(tripID), 2)

	_, err := env.trips.RemoveParticipant(ctx, as("u1", &api.RemoveParticipantRequest{TripID: tripID, UserID: "u3"}))
	require.NoError(t, err)

	presence := env.hub.Presence(tripID)
	require.Len(t, presence, 1)
	assert.Equal(t, "u1", presence[0].UserID)
	assert.Equal(t, 1, removed.count("error"))
	assert.Equal(t, 1, owner.count("user_left"))

	_, err = env.trips.CollaborativeSave(ctx, as("u1", &api.CollaborativeSaveRequest{
		TripID:  tripID,
		Changes: map[string]any{"title": "Porto"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, owner.count("trip_saved"))
	assert.Zero(t, removed.count("trip_saved"))
}

func TestLeaveTrip_DeletedTripEndsEditSession(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	tripID := env.newTrip(t, "u1")

	editor := env.joinHub(t, "u1", tripID)
	require.Len(t, env.hub.Presence(tripID), 1)

	left, err := env.trips.LeaveTrip(ctx, as("u1", &api.LeaveTripRequest{TripID: tripID}))
	require.NoError(t, err)
	require.True(t, left.Msg.TripDeleted)

	assert.Empty(t, env.hub.Presence(tripID))
	assert.Equal(t, 1, editor.count("error"))
}

func TestCollaborativeSave(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	tripID := env.newTrip(t, "u1", "u2")

	editor := env.joinHub(t, "u1", tripID)
	watcher := env.joinHub(t, "u2", tripID)
	env.hub.HandleMessage(ctx, editor.connID, []byte(`{"type":"trip_edit","changes":{"title":"Final"}}`))
	require.Equal(t, map[string]any{"title": "Final"}, env.hub.PendingChanges(tripID))
	require.Equal(t, 1, watcher.count(hub.TypeTripUpdated))

	saved, err := env.trips.CollaborativeSave(ctx, as("u1", &api.CollaborativeSaveRequest{
		TripID:  tripID,
		Changes: map[string]any{"title": "Final", "budget": 800},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Final", saved.Msg.Trip.Title)
	assert.Equal(t, 800.0, saved.Msg.Trip.Budget)

	assert.Nil(t, env.hub.PendingChanges(tripID))
	assert.Equal(t, 1, editor.count(hub.TypeTripSaved))
	assert.Equal(t, 1, watcher.count(hub.TypeTripSaved))

	got, err := env.trips.GetTrip(ctx, as("u2", &api.GetTripRequest{TripID: tripID}))
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Msg.Trip.Title)

	late := env.joinHub(t, "u2", tripID)
	assert.Equal(t, 0, late.count(hub.TypeTripState))
}

func TestCollaborativeSave_Errors(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	tripID := env.newTrip(t, "u1", "u2")
	env.addMember(t, tripID, "u3", models.StatusPending)

	_, err := env.trips.CollaborativeSave(ctx, as("u1", &api.CollaborativeSaveRequest{TripID: "missing", Changes: map[string]any{"title": "x"}}))
	requireCode(t, err, connect.CodeNotFound)

	_, err = env.trips.CollaborativeSave(ctx, as("u3", &api.CollaborativeSaveRequest{TripID: tripID, Changes: map[string]any{"title": "x"}}))
	requireCode(t, err, connect.CodePermissionDenied)

	_, err = env.trips.CollaborativeSave(ctx, as("u9", &api.CollaborativeSaveRequest{TripID: tripID, Changes: map[string]any{"title": "x"}}))
	requireCode(t, err, connect.CodePermissionDenied)

	_, err = env.trips.CollaborativeSave(ctx, as("u2", &api.CollaborativeSaveRequest{TripID: tripID, Changes: map[string]any{"creatorId": "u2"}}))
	requireCode(t, err, connect.CodeInvalidArgument)

	_, err = env.trips.CollaborativeSave(ctx, as("u2", &api.CollaborativeSaveRequest{TripID: tripID, Changes: map[string]any{"title": ""}}))
	requireCode(t, err, connect.CodeInvalidArgument)
}

func TestGetPresence(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	tripID := env.newTrip(t, "u1", "u2")

	empty, err := env.trips.GetPresence(ctx, as("u1", &api.GetPresenceRequest{TripID: tripID}))
	require.NoError(t, err)
	assert.NotNil(t, empty.Msg.Participants)
	assert.Empty(t, empty.Msg.Participants)

	env.joinHub(t, "u1", tripID)
	env.joinHub(t, "u2", tripID)

	resp, err := env.trips.GetPresence(ctx, as("u1", &api.GetPresenceRequest{TripID: tripID}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Participants, 2)
	assert.Equal(t, "u1", resp.Msg.Participants[0].UserID)
	assert.Equal(t, "name-u2", resp.Msg.Participants[1].Username)

	_, err = env.trips.GetPresence(ctx, as("", &api.GetPresenceRequest{TripID: tripID}))
	requireCode(t, err, connect.CodeUnauthenticated)
}
