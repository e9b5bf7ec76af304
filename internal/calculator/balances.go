package calculator

import (
	"math"
	"sort"
)

// ExpenseForBalance represents an expense with the minimal information needed for balance calculations.
type ExpenseForBalance struct {
	PaidBy string
	Amount float64
	Splits []Share
}

// Balance is one participant's net position on a trip.
type Balance struct {
	UserID string
	// Balance is positive when the participant is owed money and negative when they owe.
	Balance float64
}

// DebtEdge represents a suggested payment from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount float64
}

// settleEpsilon ignores floating point noise below one cent.
const settleEpsilon = 0.01

// CalculateBalances folds expenses into net balances.
//
// Algorithm:
//   - every participant starts at 0
//   - each expense credits its payer with the full amount
//   - each split debits its owner by the split amount
//
// Every participant gets an entry, in the given order, even at zero. Users who appear
// only as payer or split owner (for example after leaving the trip) follow, sorted by
// ID, so the result always sums to zero.
func CalculateBalances(participants []string, expenses []ExpenseForBalance) []Balance {
	balances := make(map[string]float64)
	order := make([]string, 0, len(participants))
	for _, p := range dedupe(participants) {
		balances[p] = 0
		order = append(order, p)
	}

	var extra []string
	touch := func(userID string) {
		if _, ok := balances[userID]; !ok {
			balances[userID] = 0
			extra = append(extra, userID)
		}
	}

	for _, e := range expenses {
		touch(e.PaidBy)
		balances[e.PaidBy] += e.Amount

		for _, s := range e.Splits {
			touch(s.UserID)
			balances[s.UserID] -= s.Amount
		}
	}

	sort.Strings(extra)
	order = append(order, extra...)

	result := make([]Balance, len(order))
	for i, id := range order {
		result[i] = Balance{UserID: id, Balance: balances[id]}
	}
	return result
}

// SuggestSettlements turns net balances into a short list of payments that would
// clear them, matching the largest debts with the largest credits first.
func SuggestSettlements(balances []Balance) []DebtEdge {
	type entry struct {
		id     string
		amount float64
	}

	var creditors, debtors []entry
	for _, b := range balances {
		if b.Balance > settleEpsilon {
			creditors = append(creditors, entry{b.UserID, b.Balance})
		} else if b.Balance < -settleEpsilon {
			debtors = append(debtors, entry{b.UserID, -b.Balance}) // Make positive
		}
	}

	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].amount > creditors[j].amount })
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].amount > debtors[j].amount })

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		// Amount to settle is minimum of what debtor owes and creditor is owed
		amount := math.Min(debtors[i].amount, creditors[j].amount)

		if amount > settleEpsilon {
			edges = append(edges, DebtEdge{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: amount,
			})
		}

		debtors[i].amount -= amount
		creditors[j].amount -= amount

		// Move to next debtor/creditor if fully settled
		if debtors[i].amount < settleEpsilon {
			i++
		}
		if creditors[j].amount < settleEpsilon {
			j++
		}
	}

	return edges
}
