package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// ExpenseServiceName is the fully-qualified name of the ExpenseService service.
const ExpenseServiceName = "tripmate.v1.ExpenseService"

// Procedure paths of ExpenseService.
const (
	ExpenseServiceCreateExpenseProcedure = "/tripmate.v1.ExpenseService/CreateExpense"
	ExpenseServiceListExpensesProcedure  = "/tripmate.v1.ExpenseService/ListExpenses"
	ExpenseServiceGetBalancesProcedure   = "/tripmate.v1.ExpenseService/GetBalances"
	ExpenseServiceMarkSplitPaidProcedure = "/tripmate.v1.ExpenseService/MarkSplitPaid"
)

// IdempotencyKeyHeader lets clients retry CreateExpense safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// ExpenseServiceHandler is implemented by the server side of ExpenseService.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	MarkSplitPaid(context.Context, *connect.Request[MarkSplitPaidRequest]) (*connect.Response[MarkSplitPaidResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	routes := map[string]http.Handler{
		ExpenseServiceCreateExpenseProcedure: connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts...),
		ExpenseServiceListExpensesProcedure:  connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...),
		ExpenseServiceGetBalancesProcedure:   connect.NewUnaryHandler(ExpenseServiceGetBalancesProcedure, svc.GetBalances, opts...),
		ExpenseServiceMarkSplitPaidProcedure: connect.NewUnaryHandler(ExpenseServiceMarkSplitPaidProcedure, svc.MarkSplitPaid, opts...),
	}
	return "/" + ExpenseServiceName + "/", routeByPath(routes)
}

// ExpenseServiceClient is a client for ExpenseService.
type ExpenseServiceClient struct {
	createExpense *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	listExpenses  *connect.Client[ListExpensesRequest, ListExpensesResponse]
	getBalances   *connect.Client[GetBalancesRequest, GetBalancesResponse]
	markSplitPaid *connect.Client[MarkSplitPaidRequest, MarkSplitPaidResponse]
}

// NewExpenseServiceClient constructs a client for ExpenseService rooted at baseURL.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ExpenseServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ExpenseServiceClient{
		createExpense: connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		listExpenses:  connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		getBalances:   connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+ExpenseServiceGetBalancesProcedure, opts...),
		markSplitPaid: connect.NewClient[MarkSplitPaidRequest, MarkSplitPaidResponse](httpClient, baseURL+ExpenseServiceMarkSplitPaidProcedure, opts...),
	}
}

func (c *ExpenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) MarkSplitPaid(ctx context.Context, req *connect.Request[MarkSplitPaidRequest]) (*connect.Response[MarkSplitPaidResponse], error) {
	return c.markSplitPaid.CallUnary(ctx, req)
}
