package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devinvista/Trip-sub001/internal/models"
)

const expenseColumns = "id, trip_id, paid_by, amount, description, category, receipt, created_at, settled_at"

// CreateExpense persists a new expense and its splits in a single transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, splits []*models.ExpenseSplit) error {
	// Generate IDs if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	var receipt any
	if expense.Receipt != "" {
		receipt = expense.Receipt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		expense.ID, expense.TripID, expense.PaidBy, expense.Amount, expense.Description,
		expense.Category, receipt, expense.CreatedAt, nullInt64(expense.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertSplits(ctx, tx, expense.ID, splits); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, expenseID string, splits []*models.ExpenseSplit) error {
	for _, split := range splits {
		if split.ID == "" {
			split.ID = uuid.New().String()
		}
		split.ExpenseID = expenseID

		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (id, expense_id, user_id, amount, paid, settled_at) VALUES (?, ?, ?, ?, ?, ?)",
			split.ID, split.ExpenseID, split.UserID, split.Amount, split.Paid, nullInt64(split.SettledAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense split: %w", err)
		}
	}
	return nil
}

func scanExpense(scan func(dest ...any) error) (*models.Expense, error) {
	e := &models.Expense{}
	var receipt sql.NullString
	var settledAt sql.NullInt64
	if err := scan(&e.ID, &e.TripID, &e.PaidBy, &e.Amount, &e.Description,
		&e.Category, &receipt, &e.CreatedAt, &settledAt); err != nil {
		return nil, err
	}
	if receipt.Valid {
		e.Receipt = receipt.String
	}
	e.SettledAt = int64Ptr(settledAt)
	return e, nil
}

// GetExpense retrieves an expense by ID.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", expenseID)
	e, err := scanExpense(row.Scan)
	if isNoRows(err) {
		return nil, notFound("expense", expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// ListExpensesByTrip retrieves all expenses for a trip, newest first.
func (s *SQLiteStore) ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE trip_id = ? ORDER BY created_at DESC, rowid DESC",
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by trip: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	return expenses, nil
}

func scanSplit(scan func(dest ...any) error) (*models.ExpenseSplit, error) {
	sp := &models.ExpenseSplit{}
	var settledAt sql.NullInt64
	if err := scan(&sp.ID, &sp.ExpenseID, &sp.UserID, &sp.Amount, &sp.Paid, &settledAt); err != nil {
		return nil, err
	}
	sp.SettledAt = int64Ptr(settledAt)
	return sp, nil
}

// ListSplitsByTrip retrieves every split of the trip's expenses, keyed by expense ID.
func (s *SQLiteStore) ListSplitsByTrip(ctx context.Context, tripID string) (map[string][]*models.ExpenseSplit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.expense_id, s.user_id, s.amount, s.paid, s.settled_at
		 FROM expense_splits s JOIN expenses e ON e.id = s.expense_id
		 WHERE e.trip_id = ? ORDER BY s.rowid`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits by trip: %w", err)
	}
	defer rows.Close()

	splits := make(map[string][]*models.ExpenseSplit)
	for rows.Next() {
		sp, err := scanSplit(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits[sp.ExpenseID] = append(splits[sp.ExpenseID], sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return splits, nil
}

// GetSplit retrieves a split by ID.
func (s *SQLiteStore) GetSplit(ctx context.Context, splitID string) (*models.ExpenseSplit, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, expense_id, user_id, amount, paid, settled_at FROM expense_splits WHERE id = ?",
		splitID,
	)
	sp, err := scanSplit(row.Scan)
	if isNoRows(err) {
		return nil, notFound("split", splitID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split: %w", err)
	}
	return sp, nil
}

// SetSplitPaid marks a split paid or unpaid. The parent expense is marked settled
// once all of its splits are paid, and unsettled again otherwise.
func (s *SQLiteStore) SetSplitPaid(ctx context.Context, splitID string, paid bool, at int64) (*models.ExpenseSplit, error) {
	var settledAt *int64
	if paid {
		settledAt = &at
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE expense_splits SET paid = ?, settled_at = ? WHERE id = ?",
		paid, nullInt64(settledAt), splitID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update split: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, notFound("split", splitID)
	}

	row := tx.QueryRowContext(ctx,
		"SELECT id, expense_id, user_id, amount, paid, settled_at FROM expense_splits WHERE id = ?",
		splitID,
	)
	split, err := scanSplit(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to reload split: %w", err)
	}

	if err := updateExpenseSettlement(ctx, tx, split.ExpenseID, at); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return split, nil
}

// ReplaceSplits swaps all splits of an expense for new ones and recomputes whether
// the expense is settled, using at as the settlement time.
func (s *SQLiteStore) ReplaceSplits(ctx context.Context, expenseID string, splits []*models.ExpenseSplit, at int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", expenseID); err != nil {
		return fmt.Errorf("failed to delete expense splits: %w", err)
	}

	if err := insertSplits(ctx, tx, expenseID, splits); err != nil {
		return err
	}

	if err := updateExpenseSettlement(ctx, tx, expenseID, at); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// updateExpenseSettlement keeps settled_at set only while every split is paid.
// A settled expense keeps its original settlement time.
func updateExpenseSettlement(ctx context.Context, tx *sql.Tx, expenseID string, at int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE expenses SET settled_at = CASE
		     WHEN NOT EXISTS (SELECT 1 FROM expense_splits WHERE expense_id = ? AND paid = 0) THEN COALESCE(settled_at, ?)
		     ELSE NULL END
		 WHERE id = ?`,
		expenseID, at, expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense settlement: %w", err)
	}
	return nil
}
