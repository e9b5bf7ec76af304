package calculator

import (
	"math"
	"testing"
)

func balanceOf(t *testing.T, balances []Balance, userID string) float64 {
	t.Helper()
	for _, b := range balances {
		if b.UserID == userID {
			return b.Balance
		}
	}
	t.Fatalf("no balance for %s", userID)
	return 0
}

func TestCalculateBalances(t *testing.T) {
	t.Run("payer is credited net of own share", func(t *testing.T) {
		balances := CalculateBalances([]string{"u1", "u2", "u3"}, []ExpenseForBalance{
			{
				PaidBy: "u1",
				Amount: 300,
				Splits: []Share{{"u1", 100}, {"u2", 100}, {"u3", 100}},
			},
		})

		if got := balanceOf(t, balances, "u1"); got != 200 {
			t.Errorf("u1 balance = %v, want 200", got)
		}
		if got := balanceOf(t, balances, "u2"); got != -100 {
			t.Errorf("u2 balance = %v, want -100", got)
		}
		if got := balanceOf(t, balances, "u3"); got != -100 {
			t.Errorf("u3 balance = %v, want -100", got)
		}
	})

	t.Run("participants without expenses get zero entries in order", func(t *testing.T) {
		balances := CalculateBalances([]string{"u3", "u1", "u2"}, nil)
		if len(balances) != 3 {
			t.Fatalf("expected 3 balances, got %d", len(balances))
		}
		for i, want := range []string{"u3", "u1", "u2"} {
			if balances[i].UserID != want || balances[i].Balance != 0 {
				t.Errorf("balances[%d] = %+v, want %s at 0", i, balances[i], want)
			}
		}
	})

	t.Run("former participants keep the fold zero-sum", func(t *testing.T) {
		balances := CalculateBalances([]string{"u1"}, []ExpenseForBalance{
			{PaidBy: "gone", Amount: 50, Splits: []Share{{"u1", 25}, {"gone", 25}}},
		})
		if len(balances) != 2 {
			t.Fatalf("expected 2 balances, got %d", len(balances))
		}
		if balances[1].UserID != "gone" {
			t.Errorf("expected former participant last, got %s", balances[1].UserID)
		}
	})

	t.Run("sum of balances is zero", func(t *testing.T) {
		participants := []string{"a", "b", "c", "d"}
		var expenses []ExpenseForBalance
		for i, payer := range []string{"a", "b", "c", "a", "d"} {
			amount := float64(17*(i+1)) + 0.33
			shares, err := EqualSplit(amount, participants[:2+i%3])
			if err != nil {
				t.Fatalf("EqualSplit failed: %v", err)
			}
			expenses = append(expenses, ExpenseForBalance{PaidBy: payer, Amount: amount, Splits: shares})
		}

		sum := 0.0
		for _, b := range CalculateBalances(participants, expenses) {
			sum += b.Balance
		}
		if math.Abs(sum) > 1e-9 {
			t.Errorf("sum of balances = %v, want 0", sum)
		}
	})
}

func TestSuggestSettlements(t *testing.T) {
	edges := SuggestSettlements([]Balance{
		{UserID: "u1", Balance: 200},
		{UserID: "u2", Balance: -100},
		{UserID: "u3", Balance: -100},
		{UserID: "u4", Balance: 0.004},
	})

	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d: %+v", len(edges), edges)
	}
	total := 0.0
	for _, e := range edges {
		if e.To != "u1" {
			t.Errorf("expected payment to u1, got %+v", e)
		}
		total += e.Amount
	}
	if math.Abs(total-200) > 0.01 {
		t.Errorf("total settled = %v, want 200", total)
	}
}
