package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecUnmarshal(t *testing.T) {
	var req CreateExpenseRequest
	require.NoError(t, Codec{}.Unmarshal([]byte(`{"tripId":"t1","amount":300,"splitWith":["u1","u2"]}`), &req))
	assert.Equal(t, "t1", req.TripID)
	assert.Equal(t, 300.0, req.Amount)
	assert.Equal(t, []string{"u1", "u2"}, req.SplitWith)

	var empty GetCurrentUserRequest
	assert.NoError(t, Codec{}.Unmarshal(nil, &empty))
	assert.NoError(t, Codec{}.Unmarshal([]byte("  "), &empty))

	assert.Error(t, Codec{}.Unmarshal([]byte(`{"tripId":"t1","amout":300}`), &req), "unknown fields are rejected")
	assert.Error(t, Codec{}.Unmarshal([]byte(`{"tripId":`), &req))
}

func TestCodecMarshalUsesWireNames(t *testing.T) {
	settled := int64(1700000000)
	data, err := Codec{}.Marshal(&Split{ID: "s1", ExpenseID: "e1", UserID: "u1", Amount: 100, Paid: true, SettledAt: &settled})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s1","expenseId":"e1","userId":"u1","amount":100,"paid":true,"settledAt":1700000000}`, string(data))
}
