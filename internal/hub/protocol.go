package hub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Inbound event types (client to hub).
const (
	TypeAuth       = "auth"
	TypeJoinTrip   = "join_trip"
	TypeLeaveTrip  = "leave_trip"
	TypeTripEdit   = "trip_edit"
	TypeCursorMove = "cursor_move"
	TypeFieldFocus = "field_focus"
	TypeFieldBlur  = "field_blur"
)

// Outbound message types (hub to client).
const (
	TypeAuthSuccess   = "auth_success"
	TypeTripState     = "trip_state"
	TypeUserJoined    = "user_joined"
	TypeTripUpdated   = "trip_updated"
	TypeCursorUpdated = "cursor_updated"
	TypeFieldFocused  = "field_focused"
	TypeFieldBlurred  = "field_blurred"
	TypeUserLeft      = "user_left"
	TypeTripSaved     = "trip_saved"
	TypeError         = "error"
)

// ErrInvalidMessage is returned by Decode for anything that is not a well-formed event.
var ErrInvalidMessage = errors.New("invalid message")

const envelopeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"enum": ["auth", "join_trip", "leave_trip", "trip_edit", "cursor_move", "field_focus", "field_blur"]}
  },
  "allOf": [
    {
      "if": {"properties": {"type": {"const": "auth"}}},
      "then": {
        "anyOf": [{"required": ["userId"]}, {"required": ["token"]}],
        "properties": {
          "userId": {"$ref": "#/definitions/id"},
          "username": {"type": "string"},
          "token": {"type": "string", "minLength": 1}
        }
      }
    },
    {
      "if": {"properties": {"type": {"const": "join_trip"}}},
      "then": {"required": ["tripId"], "properties": {"tripId": {"$ref": "#/definitions/id"}}}
    },
    {
      "if": {"properties": {"type": {"const": "trip_edit"}}},
      "then": {"required": ["changes"], "properties": {"changes": {"type": "object"}}}
    },
    {
      "if": {"properties": {"type": {"const": "cursor_move"}}},
      "then": {"required": ["cursor"]}
    },
    {
      "if": {"properties": {"type": {"enum": ["field_focus", "field_blur"]}}},
      "then": {"required": ["fieldName"], "properties": {"fieldName": {"type": "string", "minLength": 1}}}
    }
  ],
  "definitions": {
    "id": {"type": ["string", "integer"], "minLength": 1}
  }
}`

var compiledEnvelope = jsonschema.MustCompileString("tripmate://hub/envelope.json", envelopeSchema)

// Event is an inbound client event. The concrete type identifies the event.
type Event interface {
	Type() string
}

// AuthEvent binds an identity to the connection. With a token verifier configured
// the identity comes from Token; otherwise UserID and Username are trusted as sent.
type AuthEvent struct {
	UserID   ID     `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// JoinTripEvent joins the trip's edit session.
type JoinTripEvent struct {
	TripID ID `json:"tripId"`
}

// LeaveTripEvent leaves the current edit session without closing the connection.
type LeaveTripEvent struct{}

// TripEditEvent carries a partial field map of unsaved changes.
type TripEditEvent struct {
	Changes map[string]any `json:"changes"`
}

// CursorMoveEvent carries an opaque cursor position ({line, col} or anything else).
type CursorMoveEvent struct {
	Cursor json.RawMessage `json:"cursor"`
}

// FieldFocusEvent announces that the sender started editing a field.
type FieldFocusEvent struct {
	FieldName string `json:"fieldName"`
}

// FieldBlurEvent announces that the sender stopped editing a field.
type FieldBlurEvent struct {
	FieldName string `json:"fieldName"`
}

func (AuthEvent) Type() string       { return TypeAuth }
func (JoinTripEvent) Type() string   { return TypeJoinTrip }
func (LeaveTripEvent) Type() string  { return TypeLeaveTrip }
func (TripEditEvent) Type() string   { return TypeTripEdit }
func (CursorMoveEvent) Type() string { return TypeCursorMove }
func (FieldFocusEvent) Type() string { return TypeFieldFocus }
func (FieldBlurEvent) Type() string  { return TypeFieldBlur }

// ID is an identifier that browsers may send either as a JSON string or a JSON integer.
type ID string

// UnmarshalJSON accepts "7" and 7 alike. Integral numbers written as 7.0 or 7e0
// are normalized to "7".
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("id must be a string or integer: %w", err)
	}
	if n, err := num.Int64(); err == nil {
		*id = ID(strconv.FormatInt(n, 10))
		return nil
	}
	r, ok := new(big.Rat).SetString(num.String())
	if !ok || !r.IsInt() {
		return fmt.Errorf("id must be a string or integer, got %s", num)
	}
	*id = ID(r.Num().String())
	return nil
}

// Decode validates a raw message against the envelope schema and returns the typed event.
// Unknown types and schema violations return an error wrapping ErrInvalidMessage.
func Decode(data []byte) (Event, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := compiledEnvelope.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	// The schema guarantees an object with a known string type.
	eventType := raw.(map[string]any)["type"].(string)

	var event Event
	var err error
	switch eventType {
	case TypeAuth:
		event, err = decodeAs[AuthEvent](data)
	case TypeJoinTrip:
		event, err = decodeAs[JoinTripEvent](data)
	case TypeLeaveTrip:
		event = LeaveTripEvent{}
	case TypeTripEdit:
		event, err = decodeAs[TripEditEvent](data)
	case TypeCursorMove:
		event, err = decodeAs[CursorMoveEvent](data)
	case TypeFieldFocus:
		event, err = decodeAs[FieldFocusEvent](data)
	case TypeFieldBlur:
		event, err = decodeAs[FieldBlurEvent](data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return event, nil
}

func decodeAs[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Member is one entry of a session roster.
type Member struct {
	UserID   string          `json:"userId"`
	Username string          `json:"username"`
	Cursor   json.RawMessage `json:"cursor"`
}

// AuthSuccessMessage confirms the identity bound to the connection.
type AuthSuccessMessage struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// TripStateMessage replays the pending unsaved changes to a joining client.
type TripStateMessage struct {
	Type    string         `json:"type"`
	TripID  string         `json:"tripId"`
	Changes map[string]any `json:"changes"`
}

// PresenceMessage is used for user_joined and user_left.
type PresenceMessage struct {
	Type         string    `json:"type"`
	TripID       string    `json:"tripId"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Participants []Member  `json:"participants"`
	Timestamp    time.Time `json:"timestamp"`
}

// TripUpdatedMessage relays another member's edit.
type TripUpdatedMessage struct {
	Type      string         `json:"type"`
	TripID    string         `json:"tripId"`
	Changes   map[string]any `json:"changes"`
	UserID    string         `json:"userId"`
	Username  string         `json:"username"`
	Timestamp time.Time      `json:"timestamp"`
}

// CursorUpdatedMessage relays another member's cursor.
type CursorUpdatedMessage struct {
	Type      string          `json:"type"`
	TripID    string          `json:"tripId"`
	UserID    string          `json:"userId"`
	Username  string          `json:"username"`
	Cursor    json.RawMessage `json:"cursor"`
	Timestamp time.Time       `json:"timestamp"`
}

// FieldMessage is used for field_focused and field_blurred.
type FieldMessage struct {
	Type      string    `json:"type"`
	TripID    string    `json:"tripId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	FieldName string    `json:"fieldName"`
	Timestamp time.Time `json:"timestamp"`
}

// TripSavedMessage tells members that the pending changes were persisted.
type TripSavedMessage struct {
	Type      string    `json:"type"`
	TripID    string    `json:"tripId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorMessage reports a rejected event. The connection stays open.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
