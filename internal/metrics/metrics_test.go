package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devinvista/Trip-sub001/internal/hub"
)

var _ hub.Metrics = (*Metrics)(nil)

func TestHubCollectors(t *testing.T) {
	m := New()

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.SessionsChanged(3)
	m.MessageReceived("trip_edit")
	m.MessageReceived("trip_edit")
	m.MessageReceived("auth")
	m.MessageDropped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.hubConnections))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.hubSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.hubMessages.WithLabelValues("trip_edit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hubMessages.WithLabelValues("auth")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hubDropped))
}

func TestHandlerExposesRPCMetrics(t *testing.T) {
	m := New()
	m.ObserveRPC("/tripmate.v1.ExpenseService/CreateExpense", "ok", 20*time.Millisecond)
	m.ObserveRPC("/tripmate.v1.ExpenseService/CreateExpense", "not_found", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, `tripmate_rpc_requests_total{code="ok",procedure="/tripmate.v1.ExpenseService/CreateExpense"} 1`), text)
	assert.Contains(t, text, "tripmate_rpc_request_duration_seconds_bucket")
	assert.Contains(t, text, "go_goroutines")
}
