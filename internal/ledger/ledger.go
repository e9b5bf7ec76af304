// Package ledger implements the trip expense ledger: equal-split expense creation,
// split settlement, balance derivation and split recalculation when the group changes.
//
// The ledger trusts its caller's authorization checks.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/devinvista/Trip-sub001/internal/calculator"
	"github.com/devinvista/Trip-sub001/internal/models"
	"github.com/devinvista/Trip-sub001/internal/storage"
)

// Ledger computes and persists expense splits for trips.
type Ledger struct {
	store storage.Store
	now   func() time.Time
}

// New creates a Ledger on top of store.
func New(store storage.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// NewExpense is the input of CreateExpense.
type NewExpense struct {
	TripID      string
	PaidBy      string
	Amount      float64
	Description string
	Category    string
	Receipt     string

	// SplitWith lists the users to split with. Empty means every accepted participant.
	SplitWith []string
}

// UserBalance is a participant's net balance with their user record attached.
// User is nil when the account no longer exists.
type UserBalance struct {
	UserID  string
	User    *models.User
	Balance float64
}

// CreateExpense persists an expense and one equal split per participant in the split set.
// The payer's own split is marked paid.
func (l *Ledger) CreateExpense(ctx context.Context, in NewExpense) (*models.Expense, []*models.ExpenseSplit, error) {
	if in.Amount <= 0 {
		return nil, nil, calculator.ErrInvalidAmount
	}

	splitWith := in.SplitWith
	if len(splitWith) == 0 {
		accepted, err := l.acceptedParticipantIDs(ctx, in.TripID)
		if err != nil {
			return nil, nil, err
		}
		splitWith = accepted
	}

	now := l.now().Unix()
	splits, err := l.buildSplits(in.Amount, in.PaidBy, splitWith, now)
	if err != nil {
		return nil, nil, err
	}

	expense := &models.Expense{
		TripID:      in.TripID,
		PaidBy:      in.PaidBy,
		Amount:      in.Amount,
		Description: in.Description,
		Category:    in.Category,
		Receipt:     in.Receipt,
		CreatedAt:   now,
	}
	if allPaid(splits) {
		expense.SettledAt = &now
	}

	if err := l.store.CreateExpense(ctx, expense, splits); err != nil {
		return nil, nil, fmt.Errorf("failed to create expense: %w", err)
	}

	slog.Info("Expense created",
		"trip_id", expense.TripID,
		"expense_id", expense.ID,
		"amount", expense.Amount,
		"splits_count", len(splits),
	)
	return expense, splits, nil
}

// MarkSplitPaid sets the paid flag of a split and its settlement timestamp.
// Returns an error wrapping storage.ErrNotFound for unknown splits.
func (l *Ledger) MarkSplitPaid(ctx context.Context, splitID string, paid bool) (*models.ExpenseSplit, error) {
	split, err := l.store.SetSplitPaid(ctx, splitID, paid, l.now().Unix())
	if err != nil {
		return nil, err
	}
	slog.Info("Split payment updated", "split_id", splitID, "paid", paid)
	return split, nil
}

// Balances derives every participant's net balance for a trip.
func (l *Ledger) Balances(ctx context.Context, tripID string) ([]UserBalance, error) {
	participants, err := l.acceptedParticipantIDs(ctx, tripID)
	if err != nil {
		return nil, err
	}

	expenses, err := l.store.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	splitsByExpense, err := l.store.ListSplitsByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	forBalance := make([]calculator.ExpenseForBalance, len(expenses))
	for i, e := range expenses {
		splits := splitsByExpense[e.ID]
		shares := make([]calculator.Share, len(splits))
		for j, sp := range splits {
			shares[j] = calculator.Share{UserID: sp.UserID, Amount: sp.Amount}
		}
		forBalance[i] = calculator.ExpenseForBalance{PaidBy: e.PaidBy, Amount: e.Amount, Splits: shares}
	}

	balances := calculator.CalculateBalances(participants, forBalance)

	ids := make([]string, len(balances))
	for i, b := range balances {
		ids[i] = b.UserID
	}
	users, err := l.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]UserBalance, len(balances))
	for i, b := range balances {
		result[i] = UserBalance{UserID: b.UserID, User: users[b.UserID], Balance: b.Balance}
	}
	return result, nil
}

// RecalculateSplits regenerates the splits of every expense on the trip that has at
// least one split, dividing it equally among the currently accepted participants.
// Only the payer's split stays paid; other payment acknowledgements are reset.
//
// Expenses that were deliberately split among a subset are flattened to the whole
// group as well.
func (l *Ledger) RecalculateSplits(ctx context.Context, tripID string) error {
	participants, err := l.acceptedParticipantIDs(ctx, tripID)
	if err != nil {
		return err
	}
	if len(participants) == 0 {
		return nil
	}

	expenses, err := l.store.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return err
	}
	splitsByExpense, err := l.store.ListSplitsByTrip(ctx, tripID)
	if err != nil {
		return err
	}

	now := l.now().Unix()
	recalculated := 0
	for _, e := range expenses {
		if len(splitsByExpense[e.ID]) == 0 {
			continue
		}

		splits, err := l.buildSplits(e.Amount, e.PaidBy, participants, now)
		if err != nil {
			return err
		}
		if err := l.store.ReplaceSplits(ctx, e.ID, splits, now); err != nil {
			return fmt.Errorf("failed to replace splits for expense %s: %w", e.ID, err)
		}
		recalculated++
	}

	slog.Info("Splits recalculated",
		"trip_id", tripID,
		"participants_count", len(participants),
		"expenses_count", recalculated,
	)
	return nil
}

func (l *Ledger) buildSplits(amount float64, payer string, participants []string, now int64) ([]*models.ExpenseSplit, error) {
	shares, err := calculator.EqualSplit(amount, participants)
	if err != nil {
		return nil, err
	}

	splits := make([]*models.ExpenseSplit, len(shares))
	for i, share := range shares {
		split := &models.ExpenseSplit{UserID: share.UserID, Amount: share.Amount}
		if share.UserID == payer {
			paidAt := now
			split.Paid = true
			split.SettledAt = &paidAt
		}
		splits[i] = split
	}
	return splits, nil
}

func (l *Ledger) acceptedParticipantIDs(ctx context.Context, tripID string) ([]string, error) {
	participants, err := l.store.ListParticipants(ctx, tripID, models.StatusAccepted)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	return ids, nil
}

func allPaid(splits []*models.ExpenseSplit) bool {
	for _, s := range splits {
		if !s.Paid {
			return false
		}
	}
	return true
}

// IsNotFound reports whether err means a referenced row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
