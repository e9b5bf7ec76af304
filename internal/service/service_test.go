package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/devinvista/Trip-sub001/internal/api"
	"github.com/devinvista/Trip-sub001/internal/auth"
	"github.com/devinvista/Trip-sub001/internal/hub"
	"github.com/devinvista/Trip-sub001/internal/idempotency"
	"github.com/devinvista/Trip-sub001/internal/ledger"
	"github.com/devinvista/Trip-sub001/internal/middleware"
	"github.com/devinvista/Trip-sub001/internal/models"
	"github.com/devinvista/Trip-sub001/internal/storage/sqlite"
)

const testUserHeader = "X-Test-User"

// testAuthInterceptor returns a Connect interceptor that takes the caller's user ID
// from a test header instead of a JWT.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if userID := req.Header().Get(testUserHeader); userID != "" {
				ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
				ctx = context.WithValue(ctx, middleware.DisplayNameKey, "name-"+userID)
			}
			return next(ctx, req)
		}
	}
}

type testEnv struct {
	store    *sqlite.SQLiteStore
	hub      *hub.Hub
	auth     *api.AuthServiceClient
	trips    *api.TripServiceClient
	expenses *api.ExpenseServiceClient
}

// setupTestServer wires every service against a temp SQLite database.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	idem, err := idempotency.New(filepath.Join(dir, "idem.db"), time.Hour)
	if err != nil {
		t.Fatalf("failed to create idempotency store: %v", err)
	}
	t.Cleanup(func() { idem.Close() })

	h := hub.New()
	l := ledger.New(store)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	testAuth := connect.WithInterceptors(testAuthInterceptor())
	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(
		NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, slog.Default()),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager)),
	))
	mux.Handle(api.NewTripServiceHandler(NewTripService(store, l, h), testAuth))
	mux.Handle(api.NewExpenseServiceHandler(NewExpenseService(store, l, idem), testAuth))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		store:    store,
		hub:      h,
		auth:     api.NewAuthServiceClient(http.DefaultClient, server.URL),
		trips:    api.NewTripServiceClient(http.DefaultClient, server.URL),
		expenses: api.NewExpenseServiceClient(http.DefaultClient, server.URL),
	}
}

// as builds a request sent by userID.
func as[T any](userID string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if userID != "" {
		req.Header().Set(testUserHeader, userID)
	}
	return req
}

// newTrip creates a trip owned by owner with the other members accepted.
func (e *testEnv) newTrip(t *testing.T, owner string, members ...string) string {
	t.Helper()
	resp, err := e.trips.CreateTrip(context.Background(), as(owner, &api.CreateTripRequest{Title: "Lisbon"}))
	if err != nil {
		t.Fatalf("CreateTrip failed: %v", err)
	}
	tripID := resp.Msg.Trip.ID
	for _, m := range members {
		e.addMember(t, tripID, m, models.StatusAccepted)
	}
	return tripID
}

func (e *testEnv) addMember(t *testing.T, tripID, userID, status string) {
	t.Helper()
	err := e.store.AddParticipant(context.Background(), &models.TripParticipant{TripID: tripID, UserID: userID, Status: status})
	if err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
}

func requireCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, connect.CodeOf(err), "unexpected error: %v", err)
}

// recordingClient is a hub client that keeps every message it is sent.
type recordingClient struct {
	connID string

	mu   sync.Mutex
	msgs []map[string]any
}

func (c *recordingClient) Send(msg []byte) bool {
	var m map[string]any
	if err := json.Unmarshal(msg, &m); err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return true
}

func (c *recordingClient) count(msgType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.msgs {
		if m["type"] == msgType {
			n++
		}
	}
	return n
}

// joinHub connects a recording client to the hub as userID editing tripID.
func (e *testEnv) joinHub(t *testing.T, userID, tripID string) *recordingClient {
	t.Helper()
	client := &recordingClient{}
	client.connID = e.hub.Connect(client)
	ctx := context.Background()
	e.hub.HandleMessage(ctx, client.connID, []byte(`{"type":"auth","userId":"`+userID+`","username":"name-`+userID+`"}`))
	e.hub.HandleMessage(ctx, client.connID, []byte(`{"type":"join_trip","tripId":"`+tripID+`"}`))
	return client
}
