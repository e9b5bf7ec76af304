package models

// Expense represents one cost incurred during a trip.
// Amount is always positive. An expense is immutable after creation except for
// settlement bookkeeping, and is removed only together with its trip.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// TripID is the trip this expense belongs to.
	TripID string

	// PaidBy is the user who paid.
	PaidBy string

	Amount      float64
	Description string

	// Category is a free-form tag (food, transport, lodging, ...).
	Category string

	// Receipt is an optional reference (URL or file key) to a receipt image.
	Receipt string

	CreatedAt int64

	// SettledAt is set once every split is paid. Nil while open.
	SettledAt *int64
}

// ExpenseSplit is one participant's obligated share of an expense.
type ExpenseSplit struct {
	ID        string
	ExpenseID string
	UserID    string
	Amount    float64

	// Paid is true once the participant has settled this share. The payer's own
	// split is paid from creation.
	Paid bool

	SettledAt *int64
}
