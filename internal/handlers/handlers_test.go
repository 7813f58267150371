package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ledgerly/backend/internal/auth"
	"github.com/ledgerly/backend/internal/fx"
	"github.com/ledgerly/backend/internal/logger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/services"
	"github.com/ledgerly/backend/internal/store/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRates struct{ rate decimal.Decimal }

func (f fixedRates) GetRate(_ context.Context, from, to string) fx.Rate {
	return fx.Rate{From: from, To: to, Rate: f.rate, Source: fx.SourceStatic}
}

const testUserHeader = "X-Test-User"

// withTestUser stands in for the JWT middleware.
func withTestUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithUserID(r.Context(), r.Header.Get(testUserHeader))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestRouter() http.Handler {
	log := zerolog.Nop()
	deps := services.Deps{
		Store: memory.New(),
		Log:   log,
		Now:   func() time.Time { return time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC) },
	}
	rates := fixedRates{rate: decimal.RequireFromString("0.85")}

	bills := services.NewBillService(deps, rates, 3)
	goals := services.NewGoalService(deps)
	api := &API{
		Accounts:     NewAccountHandler(services.NewAccountService(deps), log),
		Transactions: NewTransactionHandler(services.NewTransactionService(deps, rates), log),
		Transfers:    NewTransferHandler(services.NewTransferService(deps, rates), log),
		Bills:        NewBillHandler(bills, log),
		Loans:        NewLoanHandler(services.NewLoanService(deps, rates), log),
		Goals:        NewGoalHandler(goals, log),
		Savings:      NewSavingsPlanHandler(services.NewSavingsPlanService(deps, rates), log),
		Reports:      NewReportHandler(services.NewReportService(deps, bills, goals), log),
		FX:           NewFXHandler(rates),
	}

	r := chi.NewRouter()
	r.Use(withTestUser)
	api.Routes(r)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func createAccount(t *testing.T, h http.Handler, name string, typ models.AccountType, currency, balance string) models.Account {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/accounts", "user-1", map[string]any{
		"name":        name,
		"type":        typ,
		"currency":    currency,
		"balance":     balance,
		"creditLimit": "5000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var acct models.Account
	decodeData(t, rec, &acct)
	return acct
}

func TestAccounts(t *testing.T) {
	h := newTestRouter()

	t.Run("anonymous create is unauthorized", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/accounts", "", map[string]any{
			"name": "Checking", "type": "checking", "currency": "USD",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("anonymous list is empty", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/accounts", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var accts []models.Account
		decodeData(t, rec, &accts)
		assert.Empty(t, accts)
	})

	t.Run("create then get", func(t *testing.T) {
		acct := createAccount(t, h, "Checking", models.AccountChecking, "usd", "1000")
		assert.Equal(t, "USD", acct.Currency)

		rec := do(t, h, http.MethodGet, "/accounts/"+acct.ID, "user-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got models.Account
		decodeData(t, rec, &got)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("other users see not found", func(t *testing.T) {
		acct := createAccount(t, h, "Private", models.AccountSavings, "USD", "10")
		rec := do(t, h, http.MethodGet, "/accounts/"+acct.ID, "user-2", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("validation details", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/accounts", "user-1", map[string]any{
			"name": "Bad", "type": "brokerage", "currency": "USD",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp services.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "Type")
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/accounts", "user-1", `{"name":"x","type":"checking","currency":"USD","owner":"me"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("statement on checking is a bad request", func(t *testing.T) {
		acct := createAccount(t, h, "Plain", models.AccountChecking, "USD", "0")
		rec := do(t, h, http.MethodGet, "/accounts/"+acct.ID+"/statement", "user-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTransactions(t *testing.T) {
	h := newTestRouter()
	acct := createAccount(t, h, "Checking", models.AccountChecking, "USD", "1000")

	rec := do(t, h, http.MethodPost, "/transactions", "user-1", map[string]any{
		"accountId":   acct.ID,
		"description": "Groceries",
		"amount":      "45.50",
		"type":        "expense",
		"category":    "Food",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var txn models.Transaction
	decodeData(t, rec, &txn)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("-45.50")))

	t.Run("zero amount", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/transactions", "user-1", map[string]any{
			"accountId": acct.ID, "description": "Nothing", "amount": "0", "type": "expense",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp services.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "Amount")
	})

	t.Run("list filters by category", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/transactions?category=Food", "user-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var txns []models.Transaction
		decodeData(t, rec, &txns)
		assert.Len(t, txns, 1)

		rec = do(t, h, http.MethodGet, "/transactions?from=yesterday", "user-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete restores the balance", func(t *testing.T) {
		rec := do(t, h, http.MethodDelete, "/transactions/"+txn.ID, "user-1", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(t, h, http.MethodGet, "/accounts/"+acct.ID, "user-1", nil)
		var got models.Account
		decodeData(t, rec, &got)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(1000)))

		rec = do(t, h, http.MethodDelete, "/transactions/"+txn.ID, "user-1", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTransfers(t *testing.T) {
	h := newTestRouter()
	checking := createAccount(t, h, "Checking", models.AccountChecking, "USD", "1000")
	card := createAccount(t, h, "Card", models.AccountCredit, "USD", "200")

	rec := do(t, h, http.MethodPost, "/transfers", "user-1", map[string]any{
		"fromAccountId": checking.ID,
		"toAccountId":   card.ID,
		"amount":        "150",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res services.TransferResult
	decodeData(t, rec, &res)
	assert.True(t, res.From.Balance.Equal(decimal.NewFromInt(850)))
	assert.True(t, res.To.Balance.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, models.CategoryCreditCardPayment, res.Out.Category)

	t.Run("same account", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/transfers", "user-1", map[string]any{
			"fromAccountId": checking.ID, "toAccountId": checking.ID, "amount": "1",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReports(t *testing.T) {
	h := newTestRouter()

	t.Run("month out of range", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/reports/monthly?year=2024&month=13", "user-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("dashboard for anonymous caller", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/dashboard", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("fx rate", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/fx/rate?from=USD&to=EUR", "user-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var rate fx.Rate
		decodeData(t, rec, &rate)
		assert.True(t, rate.Rate.Equal(decimal.RequireFromString("0.85")))

		rec = do(t, h, http.MethodGet, "/fx/rate?from=dollars", "user-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoanBills(t *testing.T) {
	h := newTestRouter()
	checking := createAccount(t, h, "Checking", models.AccountChecking, "USD", "1000")

	rec := do(t, h, http.MethodPost, "/loans", "user-1", map[string]any{
		"name":             "Car",
		"principal":        "1000",
		"interestRate":     "0",
		"paymentAmount":    "100",
		"paymentFrequency": "monthly",
		"nextDueDate":      "2024-03-20T00:00:00Z",
		"currency":         "USD",
		"accountId":        checking.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var loan models.Loan
	decodeData(t, rec, &loan)

	rec = do(t, h, http.MethodPost, "/bills/loan-"+loan.ID+"/pay", "user-1", map[string]any{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var paid services.BillPayment
	decodeData(t, rec, &paid)
	assert.Equal(t, models.TxLoanPayment, paid.Transaction.Type)
	assert.True(t, paid.Account.Balance.Equal(decimal.NewFromInt(900)))

	rec = do(t, h, http.MethodGet, "/loans/"+loan.ID+"/projection", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var proj map[string]any
	decodeData(t, rec, &proj)
	assert.Equal(t, "9", proj["periodsDisplay"])
	assert.Equal(t, "900.00", proj["totalRepayDisplay"])

	t.Run("unknown loan bill", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/bills/loan-missing/pay", "user-1", map[string]any{})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestWriteError_UsesRequestLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req = req.WithContext(logger.WithContext(req.Context(), logger.NewWithWriter(buf).With().Str("request_id", "r-1").Logger()))
	rec := httptest.NewRecorder()

	writeError(rec, req, zerolog.Nop(), errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"request_id":"r-1"`)
	assert.Contains(t, buf.String(), `"message":"request failed"`)
}
