// Package hub implements live collaborative trip editing.
//
// A Hub tracks open client connections, groups them into per-trip edit sessions,
// keeps the merged set of unsaved field changes for each trip so late joiners can
// catch up, and fans events out to the other members of a session.
//
// Delivery is best-effort and at-most-once: messages are enqueued on each client
// without blocking, a full or closed client drops them, and nothing is acknowledged
// or retried. A client that missed events re-syncs by joining again. State lives in
// process memory only and is lost on restart; the persisted trip is the source of truth.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client is the sending half of one transport connection.
type Client interface {
	// Send enqueues msg without blocking. It reports false if the message was dropped.
	Send(msg []byte) bool
}

// Identity is a verified user identity.
type Identity struct {
	UserID   string
	Username string
}

// TokenVerifier checks the token carried by an auth event.
type TokenVerifier interface {
	VerifyToken(token string) (Identity, error)
}

// TokenVerifierFunc adapts a function to TokenVerifier.
type TokenVerifierFunc func(token string) (Identity, error)

// VerifyToken calls f(token).
func (f TokenVerifierFunc) VerifyToken(token string) (Identity, error) { return f(token) }

// JoinPolicy decides whether a user may join a trip's edit session.
type JoinPolicy func(ctx context.Context, tripID, userID string) (bool, error)

// Metrics receives hub activity. See internal/metrics for the prometheus implementation.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	SessionsChanged(n int)
	MessageReceived(eventType string)
	MessageDropped()
}

type noopMetrics struct{}

func (noopMetrics) ConnectionOpened()      {}
func (noopMetrics) ConnectionClosed()      {}
func (noopMetrics) SessionsChanged(int)    {}
func (noopMetrics) MessageReceived(string) {}
func (noopMetrics) MessageDropped()        {}

// Error replies sent to clients.
const (
	errMsgInvalid         = "invalid message"
	errMsgNotAuthed       = "not authenticated"
	errMsgAuthFailed      = "authentication failed"
	errMsgNotJoined       = "not joined to a trip"
	errMsgJoinDenied      = "not allowed to edit this trip"
	errMsgJoinUnavailable = "could not join trip"
	errMsgRemoved         = "removed from trip"
)

// connection is one entry of the connection registry.
type connection struct {
	id       string
	client   Client
	userID   string
	username string
	authed   bool
	tripID   string // empty while not joined
	cursor   json.RawMessage
}

// session is the ordered member list of one trip's edit session.
type session struct {
	members []*connection
}

// Hub owns the connection registry, session table and edit state cache.
// It is safe for concurrent use; each event is applied under a single lock.
type Hub struct {
	mu       sync.Mutex
	conns    map[string]*connection
	sessions map[string]*session
	drafts   map[string]map[string]any

	verifier   TokenVerifier
	joinPolicy JoinPolicy
	metrics    Metrics
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithTokenVerifier makes auth events require a verifiable token.
// Without it the identity in the auth event is trusted as sent.
func WithTokenVerifier(v TokenVerifier) Option {
	return func(h *Hub) { h.verifier = v }
}

// WithJoinPolicy restricts which users may join which trips.
func WithJoinPolicy(p JoinPolicy) Option {
	return func(h *Hub) { h.joinPolicy = p }
}

// WithMetrics reports hub activity to m.
func WithMetrics(m Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		conns:    make(map[string]*connection),
		sessions: make(map[string]*session),
		drafts:   make(map[string]map[string]any),
		metrics:  noopMetrics{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers a new transport connection and returns its ID.
func (h *Hub) Connect(client Client) string {
	c := &connection{id: uuid.New().String(), client: client}

	h.mu.Lock()
	h.conns[c.id] = c
	count := len(h.conns)
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	h.logger.Debug("Hub connection opened", "conn_id", c.id, "connections", count)
	return c.id
}

// Disconnect removes a connection, leaving its session if it had joined one.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	h.leaveLocked(c)
	delete(h.conns, connID)
	count := len(h.conns)
	h.mu.Unlock()

	h.metrics.ConnectionClosed()
	h.logger.Debug("Hub connection closed", "conn_id", connID, "user_id", c.userID, "connections", count)
}

// HandleMessage decodes one raw client message and applies it.
// Failures are reported to the sender as error messages; the connection stays usable.
func (h *Hub) HandleMessage(ctx context.Context, connID string, data []byte) {
	event, err := Decode(data)
	if err != nil {
		h.logger.Warn("Hub received malformed message", "conn_id", connID, "error", err)
		h.metrics.MessageReceived("invalid")
		h.replyError(connID, errMsgInvalid)
		return
	}
	h.metrics.MessageReceived(event.Type())
	h.Handle(ctx, connID, event)
}

// Handle applies a decoded event sent by connection connID.
func (h *Hub) Handle(ctx context.Context, connID string, event Event) {
	switch e := event.(type) {
	case AuthEvent:
		h.authenticate(connID, e)
	case JoinTripEvent:
		h.joinTrip(ctx, connID, string(e.TripID))
	case LeaveTripEvent:
		h.withJoined(connID, func(c *connection) { h.leaveLocked(c) })
	case TripEditEvent:
		h.withJoined(connID, func(c *connection) { h.editLocked(c, e.Changes) })
	case CursorMoveEvent:
		h.withJoined(connID, func(c *connection) { h.moveCursorLocked(c, e.Cursor) })
	case FieldFocusEvent:
		h.withJoined(connID, func(c *connection) { h.fieldLocked(c, TypeFieldFocused, e.FieldName) })
	case FieldBlurEvent:
		h.withJoined(connID, func(c *connection) { h.fieldLocked(c, TypeFieldBlurred, e.FieldName) })
	default:
		h.replyError(connID, errMsgInvalid)
	}
}

func (h *Hub) authenticate(connID string, e AuthEvent) {
	identity := Identity{UserID: string(e.UserID), Username: e.Username}

	if h.verifier != nil {
		verified, err := h.verifier.VerifyToken(e.Token)
		if err != nil || (identity.UserID != "" && identity.UserID != verified.UserID) {
			h.logger.Warn("Hub auth rejected", "conn_id", connID, "claimed_user_id", identity.UserID, "error", err)
			h.replyError(connID, errMsgAuthFailed)
			return
		}
		if identity.Username == "" {
			identity.Username = verified.Username
		}
		identity.UserID = verified.UserID
	}
	if identity.UserID == "" {
		h.replyError(connID, errMsgAuthFailed)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return
	}
	if c.tripID != "" && c.userID != identity.UserID {
		// identity changes must not leak into a session joined under another user
		h.leaveLocked(c)
	}
	c.userID = identity.UserID
	c.username = identity.Username
	c.authed = true

	h.sendLocked(c, AuthSuccessMessage{Type: TypeAuthSuccess, UserID: c.userID, Username: c.username})
}

func (h *Hub) joinTrip(ctx context.Context, connID, tripID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if !c.authed {
		h.sendLocked(c, ErrorMessage{Type: TypeError, Message: errMsgNotAuthed})
		h.mu.Unlock()
		return
	}
	userID := c.userID
	h.mu.Unlock()

	// The policy may hit the database, so it runs outside the lock.
	if h.joinPolicy != nil {
		allowed, err := h.joinPolicy(ctx, tripID, userID)
		if err != nil {
			h.logger.Error("Hub join policy failed", "trip_id", tripID, "user_id", userID, "error", err)
			h.replyError(connID, errMsgJoinUnavailable)
			return
		}
		if !allowed {
			h.replyError(connID, errMsgJoinDenied)
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok = h.conns[connID]
	if !ok || c.userID != userID {
		// disconnected or re-authenticated while the policy ran
		return
	}

	alreadyMember := c.tripID == tripID
	if !alreadyMember {
		h.leaveLocked(c)

		s, ok := h.sessions[tripID]
		if !ok {
			s = &session{}
			h.sessions[tripID] = s
			h.metrics.SessionsChanged(len(h.sessions))
		}
		s.members = append(s.members, c)
		c.tripID = tripID
	}

	if draft := h.drafts[tripID]; len(draft) > 0 {
		h.sendLocked(c, TripStateMessage{Type: TypeTripState, TripID: tripID, Changes: draft})
	}

	if alreadyMember {
		return
	}

	h.broadcastLocked(tripID, c.id, PresenceMessage{
		Type:         TypeUserJoined,
		TripID:       tripID,
		UserID:       c.userID,
		Username:     c.username,
		Participants: h.rosterLocked(tripID),
		Timestamp:    h.now(),
	})
	h.logger.Info("User joined trip edit session", "trip_id", tripID, "user_id", c.userID, "members", len(h.sessions[tripID].members))
}

// withJoined runs fn under the lock if the connection has joined a session,
// and replies with an error otherwise.
func (h *Hub) withJoined(connID string, fn func(c *connection)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return
	}
	if !c.authed {
		h.sendLocked(c, ErrorMessage{Type: TypeError, Message: errMsgNotAuthed})
		return
	}
	if c.tripID == "" {
		h.sendLocked(c, ErrorMessage{Type: TypeError, Message: errMsgNotJoined})
		return
	}
	fn(c)
}

func (h *Hub) editLocked(c *connection, changes map[string]any) {
	draft, ok := h.drafts[c.tripID]
	if !ok {
		draft = make(map[string]any, len(changes))
		h.drafts[c.tripID] = draft
	}
	// shallow merge, last write wins per key
	for k, v := range changes {
		draft[k] = v
	}

	h.broadcastLocked(c.tripID, c.id, TripUpdatedMessage{
		Type:      TypeTripUpdated,
		TripID:    c.tripID,
		Changes:   changes,
		UserID:    c.userID,
		Username:  c.username,
		Timestamp: h.now(),
	})
}

func (h *Hub) moveCursorLocked(c *connection, cursor json.RawMessage) {
	c.cursor = cursor
	h.broadcastLocked(c.tripID, c.id, CursorUpdatedMessage{
		Type:      TypeCursorUpdated,
		TripID:    c.tripID,
		UserID:    c.userID,
		Username:  c.username,
		Cursor:    cursor,
		Timestamp: h.now(),
	})
}

func (h *Hub) fieldLocked(c *connection, msgType, fieldName string) {
	h.broadcastLocked(c.tripID, c.id, FieldMessage{
		Type:      msgType,
		TripID:    c.tripID,
		UserID:    c.userID,
		Username:  c.username,
		FieldName: fieldName,
		Timestamp: h.now(),
	})
}

// leaveLocked removes c from its session, tells the remaining members, and drops the
// session together with its unsaved changes once nobody is left.
func (h *Hub) leaveLocked(c *connection) {
	tripID := c.tripID
	if tripID == "" {
		return
	}
	c.tripID = ""
	c.cursor = nil

	s, ok := h.sessions[tripID]
	if !ok {
		return
	}
	for i, m := range s.members {
		if m == c {
			s.members = append(s.members[:i], s.members[i+1:]...)
			break
		}
	}

	if len(s.members) == 0 {
		delete(h.sessions, tripID)
		if len(h.drafts[tripID]) > 0 {
			h.logger.Info("Edit session emptied, discarding unsaved changes", "trip_id", tripID)
		}
		delete(h.drafts, tripID)
		h.metrics.SessionsChanged(len(h.sessions))
		return
	}

	h.broadcastLocked(tripID, c.id, PresenceMessage{
		Type:         TypeUserLeft,
		TripID:       tripID,
		UserID:       c.userID,
		Username:     c.username,
		Participants: h.rosterLocked(tripID),
		Timestamp:    h.now(),
	})
	h.logger.Info("User left trip edit session", "trip_id", tripID, "user_id", c.userID, "members", len(s.members))
}

// Saved clears the trip's unsaved changes and tells every member, including the saver.
func (h *Hub) Saved(tripID, userID, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.drafts, tripID)
	h.broadcastLocked(tripID, "", TripSavedMessage{
		Type:      TypeTripSaved,
		TripID:    tripID,
		UserID:    userID,
		Username:  username,
		Timestamp: h.now(),
	})
}

// Evict takes userID's connections out of the trip's edit session, or every member
// when userID is empty, and tells each evicted connection why. The connections stay
// open and authenticated. It returns how many connections were evicted.
func (h *Hub) Evict(tripID, userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[tripID]
	if !ok {
		return 0
	}
	var evicted []*connection
	for _, m := range s.members {
		if userID == "" || m.userID == userID {
			evicted = append(evicted, m)
		}
	}
	for _, c := range evicted {
		h.leaveLocked(c)
		h.sendLocked(c, ErrorMessage{Type: TypeError, Message: errMsgRemoved})
	}
	if len(evicted) > 0 {
		h.logger.Info("Evicted from trip edit session", "trip_id", tripID, "user_id", userID, "connections", len(evicted))
	}
	return len(evicted)
}

// Presence returns the roster of a trip's edit session, or an empty list.
func (h *Hub) Presence(tripID string) []Member {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rosterLocked(tripID)
}

// PendingChanges returns a copy of the trip's merged unsaved changes, or nil.
func (h *Hub) PendingChanges(tripID string) map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return maps.Clone(h.drafts[tripID])
}

// Stats returns the number of open connections and live sessions.
func (h *Hub) Stats() (connections, sessions int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns), len(h.sessions)
}

func (h *Hub) rosterLocked(tripID string) []Member {
	roster := []Member{}
	s, ok := h.sessions[tripID]
	if !ok {
		return roster
	}
	for _, m := range s.members {
		roster = append(roster, Member{UserID: m.userID, Username: m.username, Cursor: m.cursor})
	}
	return roster
}

// broadcastLocked sends msg to every member of the trip's session except the
// connection with ID exceptID.
func (h *Hub) broadcastLocked(tripID, exceptID string, msg any) {
	s, ok := h.sessions[tripID]
	if !ok {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Hub failed to encode message", "trip_id", tripID, "error", err)
		return
	}
	for _, m := range s.members {
		if m.id == exceptID {
			continue
		}
		h.deliver(m, data)
	}
}

func (h *Hub) sendLocked(c *connection, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Hub failed to encode message", "conn_id", c.id, "error", err)
		return
	}
	h.deliver(c, data)
}

func (h *Hub) deliver(c *connection, data []byte) {
	if !c.client.Send(data) {
		h.metrics.MessageDropped()
		h.logger.Debug("Hub dropped message", "conn_id", c.id, "user_id", c.userID)
	}
}

func (h *Hub) replyError(connID, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[connID]; ok {
		h.sendLocked(c, ErrorMessage{Type: TypeError, Message: message})
	}
}
