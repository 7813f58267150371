package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, s *Store) models.Account {
	t.Helper()
	acct := models.Account{
		ID:          "acc1",
		UserID:      "u1",
		Name:        "Visa",
		Type:        models.AccountCredit,
		Currency:    "USD",
		Balance:     decimal.NewFromInt(100),
		CreditLimit: decimal.NewFromInt(1000),
	}
	require.NoError(t, s.InsertAccount(context.Background(), acct))
	got, err := s.GetAccount(context.Background(), "u1", "acc1")
	require.NoError(t, err)
	return got
}

func TestStore_AccountDerivedAndScoped(t *testing.T) {
	s := New()
	acct := seed(t, s)

	assert.Equal(t, 1, acct.Version)
	assert.True(t, decimal.NewFromInt(900).Equal(acct.AvailableCredit))

	_, err := s.GetAccount(context.Background(), "someone-else", "acc1")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	list, err := s.ListAccounts(context.Background(), "someone-else")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_UpdateAccountVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	acct := seed(t, s)

	acct.Balance = decimal.NewFromInt(150)
	updated, err := s.UpdateAccount(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.True(t, decimal.NewFromInt(850).Equal(updated.AvailableCredit))

	// stale copy
	_, err = s.UpdateAccount(ctx, acct)
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestStore_RunInTxRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	acct := seed(t, s)
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(q store.Queries) error {
		acct.Balance = decimal.NewFromInt(500)
		if _, err := q.UpdateAccount(ctx, acct); err != nil {
			return err
		}
		if err := q.InsertTransaction(ctx, models.Transaction{ID: "t1", UserID: "u1", AccountID: "acc1"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, "u1", "acc1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Balance))
	_, err = s.GetTransaction(ctx, "u1", "t1")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_RunInTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s)

	err := s.RunInTx(ctx, func(q store.Queries) error {
		locked, err := q.LockAccounts(ctx, "u1", "acc1")
		if err != nil {
			return err
		}
		a := ledger.ApplyDelta(locked["acc1"], decimal.NewFromInt(-40))
		if _, err := q.UpdateAccount(ctx, a); err != nil {
			return err
		}
		return q.InsertLedgerEntry(ctx, models.LedgerEntry{UserID: "u1", TransactionID: "t1", AccountID: "acc1", Amount: decimal.NewFromInt(-40), EntryType: models.EntryDebit, Balance: a.Balance})
	})
	require.NoError(t, err)

	got, _ := s.GetAccount(ctx, "u1", "acc1")
	assert.True(t, decimal.NewFromInt(60).Equal(got.Balance))

	entries, err := s.ListLedgerEntries(ctx, "u1", "acc1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ID)
}

func TestStore_RunInTxCancelled(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunInTx(ctx, func(q store.Queries) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_ListTransactionsFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s)

	txns := []models.Transaction{
		{ID: "a", UserID: "u1", AccountID: "acc1", Type: models.TxExpense, Category: "Food", Date: day(1)},
		{ID: "b", UserID: "u1", AccountID: "acc1", Type: models.TxIncome, Category: "Salary", Date: day(5)},
		{ID: "c", UserID: "u1", AccountID: "acc2", Type: models.TxExpense, Category: "Food", Date: day(10)},
		{ID: "d", UserID: "u1", AccountID: "acc1", Type: models.TxExpense, Category: "Food", Date: day(12), Deleted: true},
		{ID: "e", UserID: "u2", AccountID: "acc1", Type: models.TxExpense, Category: "Food", Date: day(3)},
	}
	for _, tx := range txns {
		require.NoError(t, s.InsertTransaction(ctx, tx))
	}

	all, err := s.ListTransactions(ctx, "u1", models.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(all))

	food, _ := s.ListTransactions(ctx, "u1", models.TransactionFilter{Category: "food"})
	assert.Equal(t, []string{"c", "a"}, ids(food))

	ranged, _ := s.ListTransactions(ctx, "u1", models.TransactionFilter{From: day(2), To: day(10)})
	assert.Equal(t, []string{"c", "b"}, ids(ranged))

	limited, _ := s.ListTransactions(ctx, "u1", models.TransactionFilter{AccountID: "acc1", Limit: 1})
	assert.Equal(t, []string{"b"}, ids(limited))

	_, err = s.GetTransaction(ctx, "u1", "d")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_DeleteAccountCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s)
	require.NoError(t, s.InsertTransaction(ctx, models.Transaction{ID: "t1", UserID: "u1", AccountID: "acc1", Date: day(1)}))
	require.NoError(t, s.InsertLedgerEntry(ctx, models.LedgerEntry{UserID: "u1", AccountID: "acc1"}))

	require.NoError(t, s.DeleteAccount(ctx, "u1", "acc1"))

	txns, _ := s.ListTransactions(ctx, "u1", models.TransactionFilter{})
	assert.Empty(t, txns)
	entries, _ := s.ListLedgerEntries(ctx, "u1", "")
	assert.Empty(t, entries)
	assert.ErrorIs(t, s.DeleteAccount(ctx, "u1", "acc1"), ledger.ErrNotFound)
}

func TestStore_Obligations(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.InsertBill(ctx, models.Bill{ID: "b2", UserID: "u1", DueDate: day(20)}))
	require.NoError(t, s.InsertBill(ctx, models.Bill{ID: "b1", UserID: "u1", DueDate: day(5)}))
	bills, err := s.ListBills(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.Equal(t, "b1", bills[0].ID)

	assert.ErrorIs(t, s.UpdateLoan(ctx, models.Loan{ID: "missing", UserID: "u1"}), ledger.ErrNotFound)
	assert.ErrorIs(t, s.DeleteGoal(ctx, "u1", "missing"), ledger.ErrNotFound)

	require.NoError(t, s.InsertSavingsPlan(ctx, models.SavingsPlan{ID: "p1", UserID: "u1"}))
	_, err = s.GetSavingsPlan(ctx, "u2", "p1")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func ids(txns []models.Transaction) []string {
	out := make([]string, 0, len(txns))
	for _, t := range txns {
		out = append(out, t.ID)
	}
	return out
}
