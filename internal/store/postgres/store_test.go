package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/store"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	accountCols = []string{"id", "user_id", "name", "type", "currency", "balance", "credit_limit",
		"statement_date", "statement_due_date", "statement_amount", "version", "created_at", "updated_at"}
	transactionCols = []string{"id", "user_id", "account_id", "description", "amount", "type", "date", "category",
		"loan_id", "bill_id", "savings_plan_id", "related_transaction_id", "fx_rate", "fx_from", "fx_to", "converted_amount",
		"deleted", "created_at", "updated_at"}
	ts = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func accountRow(id string, typ models.AccountType, balance, limit string, version int) []driver.Value {
	return []driver.Value{id, "u1", "Card", string(typ), "USD", balance, limit, int64(15), nil, "0", int64(version), ts, ts}
}

func TestStore_GetAccount(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	t.Run("found derives available credit", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs("acc1", "u1").
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(accountRow("acc1", models.AccountCredit, "250", "1000", 3)...))

		a, err := s.GetAccount(ctx, "u1", "acc1")
		require.NoError(t, err)
		assert.Equal(t, 3, a.Version)
		assert.True(t, decimal.NewFromInt(750).Equal(a.AvailableCredit))
		require.NotNil(t, a.StatementDate)
		assert.Equal(t, 15, *a.StatementDate)
		assert.Nil(t, a.StatementDueDate)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs("nope", "u1").
			WillReturnRows(sqlmock.NewRows(accountCols))

		_, err := s.GetAccount(ctx, "u1", "nope")
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateAccount(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()
	acct := models.Account{ID: "acc1", UserID: "u1", Type: models.AccountChecking, Balance: decimal.NewFromInt(10), Version: 2}

	t.Run("bumps version", func(t *testing.T) {
		mock.ExpectQuery("UPDATE accounts").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), "acc1", "u1", 2).
			WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(3, ts))

		got, err := s.UpdateAccount(ctx, acct)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Version)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		mock.ExpectQuery("UPDATE accounts").
			WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("acc1", "u1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := s.UpdateAccount(ctx, acct)
		assert.ErrorIs(t, err, ledger.ErrConflict)
	})

	t.Run("missing row is not found", func(t *testing.T) {
		mock.ExpectQuery("UPDATE accounts").
			WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))
		mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := s.UpdateAccount(ctx, acct)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("locks in id order and commits", func(t *testing.T) {
		s, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .* FROM accounts WHERE user_id = \\$1 AND id = ANY\\(\\$2\\) ORDER BY id FOR UPDATE").
			WithArgs("u1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(accountCols).
				AddRow(accountRow("a", models.AccountChecking, "100", "0", 1)...).
				AddRow(accountRow("b", models.AccountCredit, "50", "500", 1)...))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs("u1", "t1", "a", sqlmock.AnyArg(), models.EntryDebit, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := s.RunInTx(ctx, func(q store.Queries) error {
			locked, err := q.LockAccounts(ctx, "u1", "b", "a", "b")
			if err != nil {
				return err
			}
			assert.Len(t, locked, 2)
			return q.InsertLedgerEntry(ctx, models.LedgerEntry{
				UserID: "u1", TransactionID: "t1", AccountID: "a",
				Amount: decimal.NewFromInt(-5), EntryType: models.EntryDebit, Balance: decimal.NewFromInt(95),
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("callback error rolls back", func(t *testing.T) {
		s, mock := newMock(t)
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := s.RunInTx(ctx, func(q store.Queries) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure is a partial failure", func(t *testing.T) {
		s, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

		err := s.RunInTx(ctx, func(q store.Queries) error { return nil })
		assert.ErrorIs(t, err, ledger.ErrPartialFailure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account inside lock", func(t *testing.T) {
		s, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM accounts WHERE user_id = \\$1 AND id = ANY").
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(accountRow("a", models.AccountChecking, "1", "0", 1)...))
		mock.ExpectRollback()

		err := s.RunInTx(ctx, func(q store.Queries) error {
			_, err := q.LockAccounts(ctx, "u1", "a", "z")
			return err
		})
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reads inside a transaction lock rows", func(t *testing.T) {
		s, mock := newMock(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM transactions WHERE id = \\$1 AND user_id = \\$2 AND NOT deleted FOR UPDATE").
			WithArgs("t1", "u1").
			WillReturnRows(sqlmock.NewRows(transactionCols))
		mock.ExpectRollback()

		err := s.RunInTx(ctx, func(q store.Queries) error {
			_, err := q.GetTransaction(ctx, "u1", "t1")
			return err
		})
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_ListTransactions(t *testing.T) {
	s, mock := newMock(t)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("WHERE user_id = \\$1 AND NOT deleted AND account_id = \\$2 AND type = \\$3 AND date >= \\$4 ORDER BY date DESC, created_at DESC, id LIMIT \\$5").
		WithArgs("u1", "acc1", "expense", from, 10).
		WillReturnRows(sqlmock.NewRows(transactionCols).
			AddRow("t1", "u1", "acc1", "Dinner", "-42.50", "expense", from, "Food",
				nil, "bill1", nil, nil, "0.85", "EUR", "USD", "42.50", false, ts, ts).
			AddRow("t2", "u1", "acc1", "Lunch", "-10", "expense", from, "Food",
				nil, nil, "plan1", nil, nil, nil, nil, nil, false, ts, ts))

	txns, err := s.ListTransactions(context.Background(), "u1", models.TransactionFilter{
		AccountID: "acc1", Type: models.TxExpense, From: from, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, txns, 2)

	require.NotNil(t, txns[0].FX)
	assert.Equal(t, "EUR", txns[0].FX.From)
	assert.True(t, decimal.RequireFromString("0.85").Equal(txns[0].FX.Rate))
	require.NotNil(t, txns[0].BillID)
	assert.Equal(t, "bill1", *txns[0].BillID)
	assert.Nil(t, txns[1].FX)
	require.NotNil(t, txns[1].SavingsPlanID)
	assert.Equal(t, "plan1", *txns[1].SavingsPlanID)
	assert.True(t, decimal.NewFromInt(-10).Equal(txns[1].Amount))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateTransactionMissing(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec("UPDATE transactions").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateTransaction(context.Background(), models.Transaction{ID: "t1", UserID: "u1"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MapsPostgresErrors(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO transactions").WillReturnError(&pq.Error{Code: "23503", Message: "fk violation"})
	err := s.InsertTransaction(ctx, models.Transaction{ID: "t1", UserID: "u1", AccountID: "missing"})
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	mock.ExpectExec("INSERT INTO accounts").WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})
	err = s.InsertAccount(ctx, models.Account{ID: "a", UserID: "u1"})
	assert.ErrorIs(t, err, ledger.ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Loans(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()
	due := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM loans WHERE user_id = \\$1 ORDER BY next_due_date, id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "principal", "balance", "interest_rate",
			"payment_amount", "payment_frequency", "next_due_date", "currency", "account_id", "created_at", "updated_at"}).
			AddRow("l1", "u1", "Car", "10000", "8000", "6.5", "300", "monthly", due, "USD", "acc1", ts, ts))

	loans, err := s.ListLoans(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, models.Monthly, loans[0].PaymentFrequency)
	assert.True(t, decimal.RequireFromString("6.5").Equal(loans[0].InterestRate))

	mock.ExpectExec("DELETE FROM loans WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("l1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, s.DeleteLoan(ctx, "u1", "l1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
