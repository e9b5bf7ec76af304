package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// TripServiceName is the fully-qualified name of the TripService service.
const TripServiceName = "tripmate.v1.TripService"

// Procedure paths of TripService.
const (
	TripServiceCreateTripProcedure        = "/tripmate.v1.TripService/CreateTrip"
	TripServiceGetTripProcedure           = "/tripmate.v1.TripService/GetTrip"
	TripServiceRequestToJoinProcedure     = "/tripmate.v1.TripService/RequestToJoin"
	TripServiceRespondToRequestProcedure  = "/tripmate.v1.TripService/RespondToRequest"
	TripServiceListParticipantsProcedure  = "/tripmate.v1.TripService/ListParticipants"
	TripServiceLeaveTripProcedure         = "/tripmate.v1.TripService/LeaveTrip"
	TripServiceRemoveParticipantProcedure = "/tripmate.v1.TripService/RemoveParticipant"
	TripServiceGetPresenceProcedure       = "/tripmate.v1.TripService/GetPresence"
	TripServiceCollaborativeSaveProcedure = "/tripmate.v1.TripService/CollaborativeSave"
)

// TripServiceHandler is implemented by the server side of TripService.
type TripServiceHandler interface {
	CreateTrip(context.Context, *connect.Request[CreateTripRequest]) (*connect.Response[CreateTripResponse], error)
	GetTrip(context.Context, *connect.Request[GetTripRequest]) (*connect.Response[GetTripResponse], error)
	RequestToJoin(context.Context, *connect.Request[RequestToJoinRequest]) (*connect.Response[RequestToJoinResponse], error)
	RespondToRequest(context.Context, *connect.Request[RespondToRequestRequest]) (*connect.Response[RespondToRequestResponse], error)
	ListParticipants(context.Context, *connect.Request[ListParticipantsRequest]) (*connect.Response[ListParticipantsResponse], error)
	LeaveTrip(context.Context, *connect.Request[LeaveTripRequest]) (*connect.Response[LeaveTripResponse], error)
	RemoveParticipant(context.Context, *connect.Request[RemoveParticipantRequest]) (*connect.Response[RemoveParticipantResponse], error)
	GetPresence(context.Context, *connect.Request[GetPresenceRequest]) (*connect.Response[GetPresenceResponse], error)
	CollaborativeSave(context.Context, *connect.Request[CollaborativeSaveRequest]) (*connect.Response[CollaborativeSaveResponse], error)
}

// NewTripServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewTripServiceHandler(svc TripServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	routes := map[string]http.Handler{
		TripServiceCreateTripProcedure:        connect.NewUnaryHandler(TripServiceCreateTripProcedure, svc.CreateTrip, opts...),
		TripServiceGetTripProcedure:           connect.NewUnaryHandler(TripServiceGetTripProcedure, svc.GetTrip, opts...),
		TripServiceRequestToJoinProcedure:     connect.NewUnaryHandler(TripServiceRequestToJoinProcedure, svc.RequestToJoin, opts...),
		TripServiceRespondToRequestProcedure:  connect.NewUnaryHandler(TripServiceRespondToRequestProcedure, svc.RespondToRequest, opts...),
		TripServiceListParticipantsProcedure:  connect.NewUnaryHandler(TripServiceListParticipantsProcedure, svc.ListParticipants, opts...),
		TripServiceLeaveTripProcedure:         connect.NewUnaryHandler(TripServiceLeaveTripProcedure, svc.LeaveTrip, opts...),
		TripServiceRemoveParticipantProcedure: connect.NewUnaryHandler(TripServiceRemoveParticipantProcedure, svc.RemoveParticipant, opts...),
		TripServiceGetPresenceProcedure:       connect.NewUnaryHandler(TripServiceGetPresenceProcedure, svc.GetPresence, opts...),
		TripServiceCollaborativeSaveProcedure: connect.NewUnaryHandler(TripServiceCollaborativeSaveProcedure, svc.CollaborativeSave, opts...),
	}
	return "/" + TripServiceName + "/", routeByPath(routes)
}

// TripServiceClient is a client for TripService.
type TripServiceClient struct {
	createTrip        *connect.Client[CreateTripRequest, CreateTripResponse]
	getTrip           *connect.Client[GetTripRequest, GetTripResponse]
	requestToJoin     *connect.Client[RequestToJoinRequest, RequestToJoinResponse]
	respondToRequest  *connect.Client[RespondToRequestRequest, RespondToRequestResponse]
	listParticipants  *connect.Client[ListParticipantsRequest, ListParticipantsResponse]
	leaveTrip         *connect.Client[LeaveTripRequest, LeaveTripResponse]
	removeParticipant *connect.Client[RemoveParticipantRequest, RemoveParticipantResponse]
	getPresence       *connect.Client[GetPresenceRequest, GetPresenceResponse]
	collaborativeSave *connect.Client[CollaborativeSaveRequest, CollaborativeSaveResponse]
}

// NewTripServiceClient constructs a client for TripService rooted at baseURL.
func NewTripServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TripServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &TripServiceClient{
		createTrip:        connect.NewClient[CreateTripRequest, CreateTripResponse](httpClient, baseURL+TripServiceCreateTripProcedure, opts...),
		getTrip:           connect.NewClient[GetTripRequest, GetTripResponse](httpClient, baseURL+TripServiceGetTripProcedure, opts...),
		requestToJoin:     connect.NewClient[RequestToJoinRequest, RequestToJoinResponse](httpClient, baseURL+TripServiceRequestToJoinProcedure, opts...),
		respondToRequest:  connect.NewClient[RespondToRequestRequest, RespondToRequestResponse](httpClient, baseURL+TripServiceRespondToRequestProcedure, opts...),
		listParticipants:  connect.NewClient[ListParticipantsRequest, ListParticipantsResponse](httpClient, baseURL+TripServiceListParticipantsProcedure, opts...),
		leaveTrip:         connect.NewClient[LeaveTripRequest, LeaveTripResponse](httpClient, baseURL+TripServiceLeaveTripProcedure, opts...),
		removeParticipant: connect.NewClient[RemoveParticipantRequest, RemoveParticipantResponse](httpClient, baseURL+TripServiceRemoveParticipantProcedure, opts...),
		getPresence:       connect.NewClient[GetPresenceRequest, GetPresenceResponse](httpClient, baseURL+TripServiceGetPresenceProcedure, opts...),
		collaborativeSave: connect.NewClient[CollaborativeSaveRequest, CollaborativeSaveResponse](httpClient, baseURL+TripServiceCollaborativeSaveProcedure, opts...),
	}
}

func (c *TripServiceClient) CreateTrip(ctx context.Context, req *connect.Request[CreateTripRequest]) (*connect.Response[CreateTripResponse], error) {
	return c.createTrip.CallUnary(ctx, req)
}

func (c *TripServiceClient) GetTrip(ctx context.Context, req *connect.Request[GetTripRequest]) (*connect.Response[GetTripResponse], error) {
	return c.getTrip.CallUnary(ctx, req)
}

func (c *TripServiceClient) RequestToJoin(ctx context.Context, req *connect.Request[RequestToJoinRequest]) (*connect.Response[RequestToJoinResponse], error) {
	return c.requestToJoin.CallUnary(ctx, req)
}

func (c *TripServiceClient) RespondToRequest(ctx context.Context, req *connect.Request[RespondToRequestRequest]) (*connect.Response[RespondToRequestResponse], error) {
	return c.respondToRequest.CallUnary(ctx, req)
}

func (c *TripServiceClient) ListParticipants(ctx context.Context, req *connect.Request[ListParticipantsRequest]) (*connect.Response[ListParticipantsResponse], error) {
	return c.listParticipants.CallUnary(ctx, req)
}

func (c *TripServiceClient) LeaveTrip(ctx context.Context, req *connect.Request[LeaveTripRequest]) (*connect.Response[LeaveTripResponse], error) {
	return c.leaveTrip.CallUnary(ctx, req)
}

func (c *TripServiceClient) RemoveParticipant(ctx context.Context, req *connect.Request[RemoveParticipantRequest]) (*connect.Response[RemoveParticipantResponse], error) {
	return c.removeParticipant.CallUnary(ctx, req)
}

func (c *TripServiceClient) GetPresence(ctx context.Context, req *connect.Request[GetPresenceRequest]) (*connect.Response[GetPresenceResponse], error) {
	return c.getPresence.CallUnary(ctx, req)
}

func (c *TripServiceClient) CollaborativeSave(ctx context.Context, req *connect.Request[CollaborativeSaveRequest]) (*connect.Response[CollaborativeSaveResponse], error) {
	return c.collaborativeSave.CallUnary(ctx, req)
}
