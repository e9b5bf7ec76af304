package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/devinvista/Trip-sub001/internal/api"
	"github.com/devinvista/Trip-sub001/internal/calculator"
	"github.com/devinvista/Trip-sub001/internal/idempotency"
	"github.com/devinvista/Trip-sub001/internal/ledger"
	"github.com/devinvista/Trip-sub001/internal/models"
	"github.com/devinvista/Trip-sub001/internal/storage"
)

var (
	errPayerNotParticipant = errors.New("payer must be an accepted participant of the trip")
	errSplitNotParticipant = errors.New("expenses can only be split among accepted participants")
	errNotSplitParty       = errors.New("only the split owner or the payer can change a split")
)

// ExpenseService implements the Connect ExpenseService.
type ExpenseService struct {
	store  storage.Store
	ledger *ledger.Ledger
	idem   *idempotency.Store
}

// NewExpenseService creates an ExpenseService. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewExpenseService(store storage.Store, l *ledger.Ledger, idem *idempotency.Store) *ExpenseService {
	return &ExpenseService{store: store, ledger: l, idem: idem}
}

// CreateExpense records an expense paid by the caller (or by PaidBy) and splits it
// equally. A retried request with the same Idempotency-Key gets the original response;
// concurrent retries wait for the first one to finish.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	slog.Info("CreateExpense request received",
		"trip_id", msg.TripID,
		"user_id", userID,
		"amount", msg.Amount,
		"split_with_count", len(msg.SplitWith),
	)

	if _, err := loadTripForMember(ctx, s.store, msg.TripID, userID); err != nil {
		return nil, err
	}

	key := req.Header().Get(api.IdempotencyKeyHeader)
	var fingerprint string
	if key != "" && s.idem != nil {
		fingerprint, err = idempotency.Fingerprint(msg)
		if err != nil {
			return nil, internalError("could not create expense", err)
		}
		unlock := s.idem.Lock(userID, key)
		defer unlock()
		if replay, err := s.replay(userID, key, fingerprint); replay != nil || err != nil {
			return replay, err
		}
	}

	if msg.Amount <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, calculator.ErrInvalidAmount)
	}

	payer := msg.PaidBy
	if payer == "" {
		payer = userID
	}
	accepted, err := s.acceptedSet(ctx, msg.TripID)
	if err != nil {
		return nil, err
	}
	if !accepted[payer] {
		return nil, connect.NewError(connect.CodeInvalidArgument, errPayerNotParticipant)
	}
	for _, id := range msg.SplitWith {
		if !accepted[id] {
			return nil, connect.NewError(connect.CodeInvalidArgument, errSplitNotParticipant)
		}
	}

	expense, splits, err := s.ledger.CreateExpense(ctx, ledger.NewExpense{
		TripID:      msg.TripID,
		PaidBy:      payer,
		Amount:      msg.Amount,
		Description: msg.Description,
		Category:    msg.Category,
		Receipt:     msg.Receipt,
		SplitWith:   msg.SplitWith,
	})
	if errors.Is(err, calculator.ErrInvalidAmount) || errors.Is(err, calculator.ErrNoParticipants) {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err != nil {
		return nil, internalError("could not create expense", err, "trip_id", msg.TripID)
	}

	users, err := s.store.GetUsersByIDs(ctx, userIDsOf(expense, splits))
	if err != nil {
		return nil, internalError("could not load users", err, "trip_id", msg.TripID)
	}
	resp := &api.CreateExpenseResponse{
		Expense: toAPIExpense(expense, users),
		Splits:  toAPISplits(splits, users),
	}

	if key != "" && s.idem != nil {
		s.remember(userID, key, fingerprint, resp)
	}

	return connect.NewResponse(resp), nil
}

// replay returns the stored response for an idempotency key, or nil when the
// request has not been seen.
func (s *ExpenseService) replay(userID, key, fingerprint string) (*connect.Response[api.CreateExpenseResponse], error) {
	stored, err := s.idem.Lookup(userID, key, fingerprint)
	switch {
	case errors.Is(err, idempotency.ErrNotFound):
		return nil, nil
	case errors.Is(err, idempotency.ErrKeyReused):
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	case err != nil:
		return nil, internalError("could not create expense", err, "user_id", userID)
	}

	var resp api.CreateExpenseResponse
	if err := json.Unmarshal(stored, &resp); err != nil {
		return nil, internalError("could not create expense", err, "user_id", userID)
	}
	slog.Info("CreateExpense replayed", "user_id", userID, "expense_id", resp.Expense.ID)

	out := connect.NewResponse(&resp)
	out.Header().Set("Idempotent-Replayed", "true")
	return out, nil
}

func (s *ExpenseService) remember(userID, key, fingerprint string, resp *api.CreateExpenseResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Warn("Failed to encode response for idempotency", "user_id", userID, "error", err)
		return
	}
	if _, created, err := s.idem.Put(userID, key, fingerprint, data); err != nil {
		slog.Warn("Failed to store idempotency record", "user_id", userID, "error", err)
	} else if !created {
		slog.Warn("Idempotency record already present", "user_id", userID, "expense_id", resp.Expense.ID)
	}
}

// ListExpenses returns a trip's expenses, newest first, with payer and split users expanded.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	tripID := req.Msg.TripID
	slog.Info("ListExpenses request received", "trip_id", tripID, "user_id", userID)

	if _, err := loadTripForMember(ctx, s.store, tripID, userID); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, internalError("could not list expenses", err, "trip_id", tripID)
	}
	splitsByExpense, err := s.store.ListSplitsByTrip(ctx, tripID)
	if err != nil {
		return nil, internalError("could not list expenses", err, "trip_id", tripID)
	}

	var ids []string
	for _, e := range expenses {
		ids = append(ids, userIDsOf(e, splitsByExpense[e.ID])...)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, internalError("could not load users", err, "trip_id", tripID)
	}

	out := make([]api.Expense, len(expenses))
	for i, e := range expenses {
		view := toAPIExpense(e, users)
		view.Splits = toAPISplits(splitsByExpense[e.ID], users)
		out[i] = *view
	}

	slog.Info("ListExpenses successful", "trip_id", tripID, "count", len(out))
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// GetBalances returns every participant's net balance plus suggested settle-up payments.
func (s *ExpenseService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	tripID := req.Msg.TripID
	slog.Info("GetBalances request received", "trip_id", tripID, "user_id", userID)

	if _, err := loadTripForMember(ctx, s.store, tripID, userID); err != nil {
		return nil, err
	}

	balances, err := s.ledger.Balances(ctx, tripID)
	if err != nil {
		return nil, internalError("could not fetch balances", err, "trip_id", tripID)
	}

	out := make([]api.Balance, len(balances))
	plain := make([]calculator.Balance, len(balances))
	for i, b := range balances {
		out[i] = api.Balance{UserID: b.UserID, User: toAPIUser(b.User), Balance: b.Balance}
		plain[i] = calculator.Balance{UserID: b.UserID, Balance: b.Balance}
	}

	edges := calculator.SuggestSettlements(plain)
	settlements := make([]api.Settlement, len(edges))
	for i, e := range edges {
		settlements[i] = api.Settlement{From: e.From, To: e.To, Amount: e.Amount}
	}

	return connect.NewResponse(&api.GetBalancesResponse{Balances: out, Settlements: settlements}), nil
}

// MarkSplitPaid sets or clears the paid flag of a split.
func (s *ExpenseService) MarkSplitPaid(ctx context.Context, req *connect.Request[api.MarkSplitPaidRequest]) (*connect.Response[api.MarkSplitPaidResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	splitID := req.Msg.SplitID
	slog.Info("MarkSplitPaid request received", "split_id", splitID, "user_id", userID, "paid", req.Msg.Paid)

	split, err := s.store.GetSplit(ctx, splitID)
	if err != nil {
		return nil, lookupError("could not load split", err, "split_id", splitID)
	}
	expense, err := s.store.GetExpense(ctx, split.ExpenseID)
	if err != nil {
		return nil, lookupError("could not load expense", err, "expense_id", split.ExpenseID)
	}
	if split.UserID != userID && expense.PaidBy != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotSplitParty)
	}

	updated, err := s.ledger.MarkSplitPaid(ctx, splitID, req.Msg.Paid)
	if err != nil {
		return nil, lookupError("could not update split", err, "split_id", splitID)
	}

	users, err := s.store.GetUsersByIDs(ctx, []string{updated.UserID})
	if err != nil {
		return nil, internalError("could not load users", err, "split_id", splitID)
	}
	view := toAPISplit(updated, users)
	return connect.NewResponse(&api.MarkSplitPaidResponse{Split: &view}), nil
}

func (s *ExpenseService) acceptedSet(ctx context.Context, tripID string) (map[string]bool, error) {
	participants, err := s.store.ListParticipants(ctx, tripID, models.StatusAccepted)
	if err != nil {
		return nil, internalError("could not list participants", err, "trip_id", tripID)
	}
	set := make(map[string]bool, len(participants))
	for _, p := range participants {
		set[p.UserID] = true
	}
	return set, nil
}

func userIDsOf(e *models.Expense, splits []*models.ExpenseSplit) []string {
	ids := make([]string, 0, len(splits)+1)
	ids = append(ids, e.PaidBy)
	for _, sp := range splits {
		ids = append(ids, sp.UserID)
	}
	return ids
}
