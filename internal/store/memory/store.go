package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/store"
)

// Store is an in-process store.Store. Transactions are serialised and work
// on a private copy of the data that replaces the live copy only when the
// callback succeeds.
type Store struct {
	mu  sync.RWMutex
	d   *data
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{d: newData(), now: time.Now}
}

func (s *Store) view() *queries {
	return &queries{d: s.d, now: s.now}
}

func (s *Store) RunInTx(ctx context.Context, fn func(q store.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.d.clone()
	if err := fn(&queries{d: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit aborted: %w", err)
	}
	s.d = work
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) GetAccount(ctx context.Context, userID, id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetAccount(ctx, userID, id)
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListAccounts(ctx, userID)
}

func (s *Store) LockAccounts(ctx context.Context, userID string, ids ...string) (map[string]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().LockAccounts(ctx, userID, ids...)
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetTransaction(ctx, userID, id)
}

func (s *Store) ListTransactions(ctx context.Context, userID string, f models.TransactionFilter) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListTransactions(ctx, userID, f)
}

func (s *Store) ListLedgerEntries(ctx context.Context, userID, accountID string) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListLedgerEntries(ctx, userID, accountID)
}

func (s *Store) GetBill(ctx context.Context, userID, id string) (models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetBill(ctx, userID, id)
}

func (s *Store) ListBills(ctx context.Context, userID string) ([]models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListBills(ctx, userID)
}

func (s *Store) GetLoan(ctx context.Context, userID, id string) (models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetLoan(ctx, userID, id)
}

func (s *Store) ListLoans(ctx context.Context, userID string) ([]models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListLoans(ctx, userID)
}

func (s *Store) GetGoal(ctx context.Context, userID, id string) (models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetGoal(ctx, userID, id)
}

func (s *Store) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListGoals(ctx, userID)
}

func (s *Store) GetSavingsPlan(ctx context.Context, userID, id string) (models.SavingsPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetSavingsPlan(ctx, userID, id)
}

func (s *Store) ListSavingsPlans(ctx context.Context, userID string) ([]models.SavingsPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListSavingsPlans(ctx, userID)
}

func (s *Store) InsertAccount(ctx context.Context, a models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertAccount(ctx, a)
}

func (s *Store) UpdateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateAccount(ctx, a)
}

func (s *Store) DeleteAccount(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteAccount(ctx, userID, id)
}

func (s *Store) InsertTransaction(ctx context.Context, t models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertTransaction(ctx, t)
}

func (s *Store) UpdateTransaction(ctx context.Context, t models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateTransaction(ctx, t)
}

func (s *Store) DeleteTransactionsByAccount(ctx context.Context, userID, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteTransactionsByAccount(ctx, userID, accountID)
}

func (s *Store) InsertLedgerEntry(ctx context.Context, e models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertLedgerEntry(ctx, e)
}

func (s *Store) InsertBill(ctx context.Context, b models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertBill(ctx, b)
}

func (s *Store) UpdateBill(ctx context.Context, b models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateBill(ctx, b)
}

func (s *Store) DeleteBill(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteBill(ctx, userID, id)
}

func (s *Store) InsertLoan(ctx context.Context, l models.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertLoan(ctx, l)
}

func (s *Store) UpdateLoan(ctx context.Context, l models.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateLoan(ctx, l)
}

func (s *Store) DeleteLoan(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteLoan(ctx, userID, id)
}

func (s *Store) InsertGoal(ctx context.Context, g models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertGoal(ctx, g)
}

func (s *Store) UpdateGoal(ctx context.Context, g models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateGoal(ctx, g)
}

func (s *Store) DeleteGoal(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteGoal(ctx, userID, id)
}

func (s *Store) InsertSavingsPlan(ctx context.Context, p models.SavingsPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().InsertSavingsPlan(ctx, p)
}

func (s *Store) UpdateSavingsPlan(ctx context.Context, p models.SavingsPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateSavingsPlan(ctx, p)
}

func (s *Store) DeleteSavingsPlan(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteSavingsPlan(ctx, userID, id)
}
