package api

import "encoding/json"

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
}

// Trip is a planned group journey.
type Trip struct {
	ID              string  `json:"id"`
	CreatorID       string  `json:"creatorId"`
	Title           string  `json:"title"`
	Destination     string  `json:"destination"`
	Description     string  `json:"description"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	Budget          float64 `json:"budget"`
	MaxParticipants int     `json:"maxParticipants"`
	CreatedAt       int64   `json:"createdAt"`
	UpdatedAt       int64   `json:"updatedAt"`
}

// Participant is a user's membership in a trip.
type Participant struct {
	UserID   string `json:"userId"`
	User     *User  `json:"user,omitempty"`
	Status   string `json:"status"`
	JoinedAt int64  `json:"joinedAt"`
}

// PresenceMember is one live editor of a trip.
type PresenceMember struct {
	UserID   string          `json:"userId"`
	Username string          `json:"username"`
	Cursor   json.RawMessage `json:"cursor"`
}

// Expense is a cost paid by one participant on behalf of the group.
type Expense struct {
	ID          string  `json:"id"`
	TripID      string  `json:"tripId"`
	PaidBy      string  `json:"paidBy"`
	Payer       *User   `json:"payer,omitempty"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Receipt     string  `json:"receipt,omitempty"`
	CreatedAt   int64   `json:"createdAt"`
	SettledAt   *int64  `json:"settledAt"`
	Splits      []Split `json:"splits,omitempty"`
}

// Split is one participant's share of an expense.
type Split struct {
	ID        string  `json:"id"`
	ExpenseID string  `json:"expenseId"`
	UserID    string  `json:"userId"`
	User      *User   `json:"user,omitempty"`
	Amount    float64 `json:"amount"`
	Paid      bool    `json:"paid"`
	SettledAt *int64  `json:"settledAt"`
}

// Balance is a participant's net position: positive means they are owed money.
type Balance struct {
	UserID  string  `json:"userId"`
	User    *User   `json:"user"`
	Balance float64 `json:"balance"`
}

// Settlement is a suggested payment that moves balances toward zero.
type Settlement struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// AuthService messages.

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// TripService messages.

type CreateTripRequest struct {
	Title           string  `json:"title"`
	Destination     string  `json:"destination"`
	Description     string  `json:"description"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	Budget          float64 `json:"budget"`
	MaxParticipants int     `json:"maxParticipants"`
}

type CreateTripResponse struct {
	Trip *Trip `json:"trip"`
}

type GetTripRequest struct {
	TripID string `json:"tripId"`
}

type GetTripResponse struct {
	Trip         *Trip         `json:"trip"`
	Participants []Participant `json:"participants"`
}

type RequestToJoinRequest struct {
	TripID string `json:"tripId"`
}

type RequestToJoinResponse struct {
	Participant *Participant `json:"participant"`
}

type RespondToRequestRequest struct {
	TripID string `json:"tripId"`
	UserID string `json:"userId"`
	Accept bool   `json:"accept"`
}

type RespondToRequestResponse struct {
	Participant *Participant `json:"participant"`
}

type ListParticipantsRequest struct {
	TripID string `json:"tripId"`
	// Status filters by membership status; empty returns all.
	Status string `json:"status"`
}

type ListParticipantsResponse struct {
	Participants []Participant `json:"participants"`
}

type LeaveTripRequest struct {
	TripID string `json:"tripId"`
}

type LeaveTripResponse struct {
	TripDeleted  bool   `json:"tripDeleted"`
	NewCreatorID string `json:"newCreatorId,omitempty"`
}

type RemoveParticipantRequest struct {
	TripID string `json:"tripId"`
	UserID string `json:"userId"`
}

type RemoveParticipantResponse struct {
	TripDeleted  bool   `json:"tripDeleted"`
	NewCreatorID string `json:"newCreatorId,omitempty"`
}

type GetPresenceRequest struct {
	TripID string `json:"tripId"`
}

type GetPresenceResponse struct {
	Participants []PresenceMember `json:"participants"`
}

type CollaborativeSaveRequest struct {
	TripID  string         `json:"tripId"`
	Changes map[string]any `json:"changes"`
}

type CollaborativeSaveResponse struct {
	Trip *Trip `json:"trip"`
}

// ExpenseService messages.

type CreateExpenseRequest struct {
	TripID      string  `json:"tripId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Receipt     string  `json:"receipt,omitempty"`
	// PaidBy defaults to the caller.
	PaidBy string `json:"paidBy,omitempty"`
	// SplitWith defaults to every accepted participant.
	SplitWith []string `json:"splitWith,omitempty"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
	Splits  []Split  `json:"splits"`
}

type ListExpensesRequest struct {
	TripID string `json:"tripId"`
}

type ListExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

type GetBalancesRequest struct {
	TripID string `json:"tripId"`
}

type GetBalancesResponse struct {
	Balances    []Balance    `json:"balances"`
	Settlements []Settlement `json:"settlements"`
}

type MarkSplitPaidRequest struct {
	SplitID string `json:"splitId"`
	Paid    bool   `json:"paid"`
}

type MarkSplitPaidResponse struct {
	Split *Split `json:"split"`
}
