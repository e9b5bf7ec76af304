// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/devinvista/Trip-sub001/internal/models"
)

// ErrNotFound is returned (wrapped) when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// UserStore covers user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil and no error when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil and no error when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns a map of user ID to user; unknown IDs are omitted.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// TripStore covers trips and their participants.
type TripStore interface {
	// CreateTrip persists a new trip and inserts the creator as an accepted participant.
	// The trip.ID field will be populated by the store.
	CreateTrip(ctx context.Context, trip *models.Trip) error

	// GetTrip returns an error wrapping ErrNotFound if the trip does not exist.
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)

	// UpdateTrip applies patch and returns the updated trip.
	UpdateTrip(ctx context.Context, tripID string, patch models.TripPatch) (*models.Trip, error)

	// SetTripCreator transfers ownership of a trip.
	SetTripCreator(ctx context.Context, tripID, userID string) error

	// DeleteTrip removes a trip together with its participants, expenses and splits.
	DeleteTrip(ctx context.Context, tripID string) error

	// AddParticipant inserts or updates a membership row.
	AddParticipant(ctx context.Context, p *models.TripParticipant) error

	// GetParticipant returns an error wrapping ErrNotFound if there is no membership row.
	GetParticipant(ctx context.Context, tripID, userID string) (*models.TripParticipant, error)

	SetParticipantStatus(ctx context.Context, tripID, userID, status string) error
	RemoveParticipant(ctx context.Context, tripID, userID string) error

	// ListParticipants returns memberships ordered by join time (earliest first).
	// An empty status returns every membership.
	ListParticipants(ctx context.Context, tripID, status string) ([]*models.TripParticipant, error)
}

// ExpenseStore covers the expense ledger rows.
type ExpenseStore interface {
	// CreateExpense persists an expense and its splits in one transaction.
	CreateExpense(ctx context.Context, expense *models.Expense, splits []*models.ExpenseSplit) error

	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByTrip returns a trip's expenses, newest first.
	ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error)

	// ListSplitsByTrip returns every split of every expense on the trip, keyed by expense ID.
	ListSplitsByTrip(ctx context.Context, tripID string) (map[string][]*models.ExpenseSplit, error)

	GetSplit(ctx context.Context, splitID string) (*models.ExpenseSplit, error)

	// SetSplitPaid updates the paid flag and settlement timestamp of a split and
	// keeps the parent expense's settlement timestamp in step.
	SetSplitPaid(ctx context.Context, splitID string, paid bool, at int64) (*models.ExpenseSplit, error)

	// ReplaceSplits discards all splits of an expense and inserts the given ones atomically.
	// The expense is settled at the given time when every new split is paid.
	ReplaceSplits(ctx context.Context, expenseID string, splits []*models.ExpenseSplit, at int64) error
}

// Store defines the full storage surface.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	TripStore
	ExpenseStore

	// Close releases any resources held by the store.
	Close() error
}
