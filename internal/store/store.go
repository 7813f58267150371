// Package store defines the persistence boundary used by the services.
//
// Every lookup is scoped by user id; a record owned by another user is
// reported as ledger.ErrNotFound. Multi-record mutations go through
// Store.RunInTx, which commits all writes made through the supplied Queries
// or none of them.
package store

import (
	"context"

	"github.com/ledgerly/backend/internal/models"
)

type AccountQueries interface {
	GetAccount(ctx context.Context, userID, id string) (models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	InsertAccount(ctx context.Context, a models.Account) error
	// UpdateAccount persists a, failing with ledger.ErrConflict when the
	// stored version no longer equals a.Version. The returned account
	// carries the bumped version.
	UpdateAccount(ctx context.Context, a models.Account) (models.Account, error)
	DeleteAccount(ctx context.Context, userID, id string) error
	// LockAccounts loads the given accounts, locking them in id order for
	// the rest of the enclosing transaction.
	LockAccounts(ctx context.Context, userID string, ids ...string) (map[string]models.Account, error)
}

type TransactionQueries interface {
	// GetTransaction never returns soft-deleted records.
	GetTransaction(ctx context.Context, userID, id string) (models.Transaction, error)
	ListTransactions(ctx context.Context, userID string, f models.TransactionFilter) ([]models.Transaction, error)
	InsertTransaction(ctx context.Context, t models.Transaction) error
	UpdateTransaction(ctx context.Context, t models.Transaction) error
	DeleteTransactionsByAccount(ctx context.Context, userID, accountID string) (int64, error)

	InsertLedgerEntry(ctx context.Context, e models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, userID, accountID string) ([]models.LedgerEntry, error)
}

type ObligationQueries interface {
	GetBill(ctx context.Context, userID, id string) (models.Bill, error)
	ListBills(ctx context.Context, userID string) ([]models.Bill, error)
	InsertBill(ctx context.Context, b models.Bill) error
	UpdateBill(ctx context.Context, b models.Bill) error
	DeleteBill(ctx context.Context, userID, id string) error

	GetLoan(ctx context.Context, userID, id string) (models.Loan, error)
	ListLoans(ctx context.Context, userID string) ([]models.Loan, error)
	InsertLoan(ctx context.Context, l models.Loan) error
	UpdateLoan(ctx context.Context, l models.Loan) error
	DeleteLoan(ctx context.Context, userID, id string) error

	GetGoal(ctx context.Context, userID, id string) (models.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]models.Goal, error)
	InsertGoal(ctx context.Context, g models.Goal) error
	UpdateGoal(ctx context.Context, g models.Goal) error
	DeleteGoal(ctx context.Context, userID, id string) error

	GetSavingsPlan(ctx context.Context, userID, id string) (models.SavingsPlan, error)
	ListSavingsPlans(ctx context.Context, userID string) ([]models.SavingsPlan, error)
	InsertSavingsPlan(ctx context.Context, p models.SavingsPlan) error
	UpdateSavingsPlan(ctx context.Context, p models.SavingsPlan) error
	DeleteSavingsPlan(ctx context.Context, userID, id string) error
}

// Queries is everything readable and writable through a store, either
// directly or inside RunInTx.
type Queries interface {
	AccountQueries
	TransactionQueries
	ObligationQueries
}

type Store interface {
	Queries
	// RunInTx runs fn atomically. If fn returns an error nothing it wrote is
	// visible. A commit whose outcome cannot be confirmed is reported as
	// ledger.ErrPartialFailure.
	RunInTx(ctx context.Context, fn func(q Queries) error) error
	Close() error
}
