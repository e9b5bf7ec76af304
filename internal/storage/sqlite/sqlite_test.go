package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/devinvista/Trip-sub001/internal/models"
	"github.com/devinvista/Trip-sub001/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestTrip(t *testing.T, store *SQLiteStore, creatorID string, members ...string) *models.Trip {
	t.Helper()
	ctx := context.Background()
	trip := &models.Trip{CreatorID: creatorID, Title: "Lisbon", StartDate: "2026-05-01", EndDate: "2026-05-07", Budget: 900}
	if err := store.CreateTrip(ctx, trip); err != nil {
		t.Fatalf("CreateTrip failed: %v", err)
	}
	for _, m := range members {
		err := store.AddParticipant(ctx, &models.TripParticipant{TripID: trip.ID, UserID: m, Status: models.StatusAccepted})
		if err != nil {
			t.Fatalf("AddParticipant failed: %v", err)
		}
	}
	return trip
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := models.NewUser("alice@example.com", "Alice", "hash")
	if err := store.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("duplicate email is rejected", func(t *testing.T) {
		dup := models.NewUser("alice@example.com", "Other Alice", "hash")
		if err := store.CreateUser(ctx, dup); err == nil {
			t.Error("Expected duplicate email to fail")
		}
	})

	t.Run("lookup by email and ID", func(t *testing.T) {
		byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if byEmail == nil || byEmail.ID != alice.ID {
			t.Fatalf("Expected user %s, got %+v", alice.ID, byEmail)
		}

		byID, err := store.GetUserByID(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if byID.DisplayName != "Alice" || byID.PasswordHash != "hash" {
			t.Errorf("Unexpected user: %+v", byID)
		}
	})

	t.Run("missing users are nil", func(t *testing.T) {
		u, err := store.GetUserByEmail(ctx, "nobody@example.com")
		if err != nil || u != nil {
			t.Errorf("Expected nil user and no error, got %+v, %v", u, err)
		}
		u, err = store.GetUserByID(ctx, "missing")
		if err != nil || u != nil {
			t.Errorf("Expected nil user and no error, got %+v, %v", u, err)
		}
	})

	t.Run("GetUsersByIDs omits unknown IDs", func(t *testing.T) {
		users, err := store.GetUsersByIDs(ctx, []string{alice.ID, "missing", alice.ID})
		if err != nil {
			t.Fatalf("GetUsersByIDs failed: %v", err)
		}
		if len(users) != 1 || users[alice.ID] == nil {
			t.Errorf("Expected only Alice, got %v", users)
		}

		empty, err := store.GetUsersByIDs(ctx, nil)
		if err != nil || len(empty) != 0 {
			t.Errorf("Expected empty map, got %v, %v", empty, err)
		}
	})
}

func TestTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateTrip adds the creator as accepted participant", func(t *testing.T) {
		trip := newTestTrip(t, store, "u1")
		if trip.ID == "" || trip.CreatedAt == 0 {
			t.Fatalf("Expected ID and CreatedAt to be set: %+v", trip)
		}

		got, err := store.GetTrip(ctx, trip.ID)
		if err != nil {
			t.Fatalf("GetTrip failed: %v", err)
		}
		if got.Title != "Lisbon" || got.Budget != 900 || got.EndDate != "2026-05-07" {
			t.Errorf("Unexpected trip: %+v", got)
		}

		p, err := store.GetParticipant(ctx, trip.ID, "u1")
		if err != nil {
			t.Fatalf("GetParticipant failed: %v", err)
		}
		if p.Status != models.StatusAccepted {
			t.Errorf("Expected creator to be accepted, got %s", p.Status)
		}
	})

	t.Run("missing trip wraps ErrNotFound", func(t *testing.T) {
		_, err := store.GetTrip(ctx, "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		_, err = store.UpdateTrip(ctx, "missing", models.TripPatch{})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if err := store.SetTripCreator(ctx, "missing", "u1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if err := store.DeleteTrip(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateTrip applies only set fields", func(t *testing.T) {
		trip := newTestTrip(t, store, "u1")
		title := "Porto"
		budget := 1200.0
		updated, err := store.UpdateTrip(ctx, trip.ID, models.TripPatch{Title: &title, Budget: &budget})
		if err != nil {
			t.Fatalf("UpdateTrip failed: %v", err)
		}
		if updated.Title != "Porto" || updated.Budget != 1200 || updated.StartDate != "2026-05-01" {
			t.Errorf("Unexpected trip after update: %+v", updated)
		}

		got, _ := store.GetTrip(ctx, trip.ID)
		if got.Title != "Porto" {
			t.Errorf("Expected persisted title Porto, got %s", got.Title)
		}
	})

	t.Run("SetTripCreator", func(t *testing.T) {
		trip := newTestTrip(t, store, "u1", "u2")
		if err := store.SetTripCreator(ctx, trip.ID, "u2"); err != nil {
			t.Fatalf("SetTripCreator failed: %v", err)
		}
		got, _ := store.GetTrip(ctx, trip.ID)
		if got.CreatorID != "u2" {
			t.Errorf("Expected creator u2, got %s", got.CreatorID)
		}
	})
}

func TestParticipants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	trip := newTestTrip(t, store, "u1", "u2")

	if err := store.AddParticipant(ctx, &models.TripParticipant{TripID: trip.ID, UserID: "u3", Status: models.StatusPending}); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}

	t.Run("list in join order with status filter", func(t *testing.T) {
		all, err := store.ListParticipants(ctx, trip.ID, "")
		if err != nil {
			t.Fatalf("ListParticipants failed: %v", err)
		}
		if len(all) != 3 || all[0].UserID != "u1" || all[1].UserID != "u2" || all[2].UserID != "u3" {
			t.Errorf("Unexpected participants: %+v", all)
		}

		accepted, err := store.ListParticipants(ctx, trip.ID, models.StatusAccepted)
		if err != nil {
			t.Fatalf("ListParticipants failed: %v", err)
		}
		if len(accepted) != 2 {
			t.Errorf("Expected 2 accepted participants, got %d", len(accepted))
		}
	})

	t.Run("re-adding keeps join order", func(t *testing.T) {
		err := store.AddParticipant(ctx, &models.TripParticipant{TripID: trip.ID, UserID: "u2", Status: models.StatusRejected, JoinedAt: 1 << 40})
		if err != nil {
			t.Fatalf("AddParticipant failed: %v", err)
		}
		all, _ := store.ListParticipants(ctx, trip.ID, "")
		if all[1].UserID != "u2" || all[1].Status != models.StatusRejected {
			t.Errorf("Expected u2 second and rejected, got %+v", all[1])
		}
		if err := store.SetParticipantStatus(ctx, trip.ID, "u2", models.StatusAccepted); err != nil {
			t.Fatalf("SetParticipantStatus failed: %v", err)
		}
	})

	t.Run("missing membership wraps ErrNotFound", func(t *testing.T) {
		if _, err := store.GetParticipant(ctx, trip.ID, "u9"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if err := store.SetParticipantStatus(ctx, trip.ID, "u9", models.StatusAccepted); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if err := store.RemoveParticipant(ctx, trip.ID, "u9"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RemoveParticipant", func(t *testing.T) {
		if err := store.RemoveParticipant(ctx, trip.ID, "u3"); err != nil {
			t.Fatalf("RemoveParticipant failed: %v", err)
		}
		all, _ := store.ListParticipants(ctx, trip.ID, "")
		if len(all) != 2 {
			t.Errorf("Expected 2 participants, got %d", len(all))
		}
	})
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	trip := newTestTrip(t, store, "u1", "u2")

	paidAt := int64(1700000000)
	expense := &models.Expense{TripID: trip.ID, PaidBy: "u1", Amount: 60, Description: "Dinner", Category: "food"}
	splits := []*models.ExpenseSplit{
		{UserID: "u1", Amount: 30, Paid: true, SettledAt: &paidAt},
		{UserID: "u2", Amount: 30},
	}
	if err := store.CreateExpense(ctx, expense, splits); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	t.Run("CreateExpense generates IDs", func(t *testing.T) {
		if expense.ID == "" || expense.CreatedAt == 0 {
			t.Fatalf("Expected ID and CreatedAt to be set: %+v", expense)
		}
		for _, s := range splits {
			if s.ID == "" || s.ExpenseID != expense.ID {
				t.Errorf("Expected split ID and expense ID to be set: %+v", s)
			}
		}
	})

	t.Run("round trip", func(t *testing.T) {
		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Amount != 60 || got.Category != "food" || got.Receipt != "" || got.SettledAt != nil {
			t.Errorf("Unexpected expense: %+v", got)
		}

		byExpense, err := store.ListSplitsByTrip(ctx, trip.ID)
		if err != nil {
			t.Fatalf("ListSplitsByTrip failed: %v", err)
		}
		got2 := byExpense[expense.ID]
		if len(got2) != 2 {
			t.Fatalf("Expected 2 splits, got %d", len(got2))
		}
		if !got2[0].Paid || got2[0].SettledAt == nil || *got2[0].SettledAt != paidAt {
			t.Errorf("Expected payer split paid at %d: %+v", paidAt, got2[0])
		}
		if got2[1].Paid || got2[1].SettledAt != nil {
			t.Errorf("Expected second split unpaid: %+v", got2[1])
		}
	})

	t.Run("SetSplitPaid settles and reopens the expense", func(t *testing.T) {
		split, err := store.SetSplitPaid(ctx, splits[1].ID, true, 1700000500)
		if err != nil {
			t.Fatalf("SetSplitPaid failed: %v", err)
		}
		if !split.Paid || split.SettledAt == nil {
			t.Errorf("Expected split paid: %+v", split)
		}
		got, _ := store.GetExpense(ctx, expense.ID)
		if got.SettledAt == nil || *got.SettledAt != 1700000500 {
			t.Errorf("Expected expense settled at 1700000500, got %v", got.SettledAt)
		}

		if _, err := store.SetSplitPaid(ctx, splits[1].ID, false, 1700000600); err != nil {
			t.Fatalf("SetSplitPaid failed: %v", err)
		}
		got, _ = store.GetExpense(ctx, expense.ID)
		if got.SettledAt != nil {
			t.Errorf("Expected expense to be open again, got %v", *got.SettledAt)
		}

		if _, err := store.SetSplitPaid(ctx, "missing", true, 1); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ReplaceSplits", func(t *testing.T) {
		replacement := []*models.ExpenseSplit{
			{UserID: "u1", Amount: 20, Paid: true, SettledAt: &paidAt},
			{UserID: "u2", Amount: 20},
			{UserID: "u3", Amount: 20},
		}
		if err := store.ReplaceSplits(ctx, expense.ID, replacement, 1700000700); err != nil {
			t.Fatalf("ReplaceSplits failed: %v", err)
		}
		byExpense, _ := store.ListSplitsByTrip(ctx, trip.ID)
		if len(byExpense[expense.ID]) != 3 {
			t.Errorf("Expected 3 splits, got %d", len(byExpense[expense.ID]))
		}
		if _, err := store.GetSplit(ctx, splits[0].ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected old split to be gone, got %v", err)
		}
		got, _ := store.GetExpense(ctx, expense.ID)
		if got.SettledAt != nil {
			t.Errorf("Expected expense with unpaid splits to be open, got %v", *got.SettledAt)
		}

		payerOnly := []*models.ExpenseSplit{{UserID: "u1", Amount: 60, Paid: true, SettledAt: &paidAt}}
		if err := store.ReplaceSplits(ctx, expense.ID, payerOnly, 1700000800); err != nil {
			t.Fatalf("ReplaceSplits failed: %v", err)
		}
		got, _ = store.GetExpense(ctx, expense.ID)
		if got.SettledAt == nil || *got.SettledAt != 1700000800 {
			t.Errorf("Expected expense settled at 1700000800, got %v", got.SettledAt)
		}

		if err := store.ReplaceSplits(ctx, expense.ID, replacement, 1700000900); err != nil {
			t.Fatalf("ReplaceSplits failed: %v", err)
		}
		got, _ = store.GetExpense(ctx, expense.ID)
		if got.SettledAt != nil {
			t.Errorf("Expected expense to be reopened, got %v", *got.SettledAt)
		}
	})

	t.Run("ListExpensesByTrip is newest first", func(t *testing.T) {
		later := &models.Expense{TripID: trip.ID, PaidBy: "u2", Amount: 10, Receipt: "receipts/taxi.jpg", CreatedAt: expense.CreatedAt + 10}
		if err := store.CreateExpense(ctx, later, nil); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		list, err := store.ListExpensesByTrip(ctx, trip.ID)
		if err != nil {
			t.Fatalf("ListExpensesByTrip failed: %v", err)
		}
		if len(list) != 2 || list[0].ID != later.ID {
			t.Fatalf("Expected newest expense first, got %+v", list)
		}
		if list[0].Receipt != "receipts/taxi.jpg" {
			t.Errorf("Expected receipt to round trip, got %q", list[0].Receipt)
		}
	})

	t.Run("DeleteTrip cascades", func(t *testing.T) {
		if err := store.DeleteTrip(ctx, trip.ID); err != nil {
			t.Fatalf("DeleteTrip failed: %v", err)
		}
		if _, err := store.GetExpense(ctx, expense.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected expense to be deleted, got %v", err)
		}
		byExpense, err := store.ListSplitsByTrip(ctx, trip.ID)
		if err != nil {
			t.Fatalf("ListSplitsByTrip failed: %v", err)
		}
		if len(byExpense) != 0 {
			t.Errorf("Expected no splits, got %d", len(byExpense))
		}
		participants, _ := store.ListParticipants(ctx, trip.ID, "")
		if len(participants) != 0 {
			t.Errorf("Expected no participants, got %d", len(participants))
		}
	})
}
