package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/schedule"
)

// queries implements store.Queries over a snapshot. Callers hold the lock.
type queries struct {
	d   *data
	now func() time.Time
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ledger.ErrNotFound)
}

// Accounts

func (q *queries) GetAccount(_ context.Context, userID, id string) (models.Account, error) {
	a, ok := q.d.accounts[id]
	if !ok || a.UserID != userID {
		return models.Account{}, notFound("account", id)
	}
	return ledger.Derive(a), nil
}

func (q *queries) ListAccounts(_ context.Context, userID string) ([]models.Account, error) {
	var out []models.Account
	for _, a := range q.d.accounts {
		if a.UserID == userID {
			out = append(out, ledger.Derive(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *queries) InsertAccount(_ context.Context, a models.Account) error {
	if _, exists := q.d.accounts[a.ID]; exists {
		return fmt.Errorf("account %s already exists", a.ID)
	}
	now := q.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Version == 0 {
		a.Version = 1
	}
	q.d.accounts[a.ID] = ledger.Derive(a)
	return nil
}

func (q *queries) UpdateAccount(_ context.Context, a models.Account) (models.Account, error) {
	cur, ok := q.d.accounts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return models.Account{}, notFound("account", a.ID)
	}
	if cur.Version != a.Version {
		return models.Account{}, fmt.Errorf("account %s: %w", a.ID, ledger.ErrConflict)
	}
	a.Version++
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = q.now()
	a = ledger.Derive(a)
	q.d.accounts[a.ID] = a
	return a, nil
}

func (q *queries) DeleteAccount(_ context.Context, userID, id string) error {
	a, ok := q.d.accounts[id]
	if !ok || a.UserID != userID {
		return notFound("account", id)
	}
	delete(q.d.accounts, id)
	for txID, t := range q.d.transactions {
		if t.AccountID == id {
			delete(q.d.transactions, txID)
		}
	}
	q.d.entries = slices.DeleteFunc(q.d.entries, func(e models.LedgerEntry) bool {
		return e.AccountID == id
	})
	return nil
}

func (q *queries) LockAccounts(ctx context.Context, userID string, ids ...string) (map[string]models.Account, error) {
	out := make(map[string]models.Account, len(ids))
	for _, id := range ids {
		a, err := q.GetAccount(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		out[id] = a
	}
	return out, nil
}

// Transactions

func (q *queries) GetTransaction(_ context.Context, userID, id string) (models.Transaction, error) {
	t, ok := q.d.transactions[id]
	if !ok || t.UserID != userID || t.Deleted {
		return models.Transaction{}, notFound("transaction", id)
	}
	return t, nil
}

func (q *queries) ListTransactions(_ context.Context, userID string, f models.TransactionFilter) ([]models.Transaction, error) {
	from, to := schedule.Day(f.From), schedule.Day(f.To)
	var out []models.Transaction
	for _, t := range q.d.transactions {
		if t.UserID != userID || t.Deleted {
			continue
		}
		if f.AccountID != "" && t.AccountID != f.AccountID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
			continue
		}
		d := schedule.Day(t.Date)
		if !f.From.IsZero() && d.Before(from) {
			continue
		}
		if !f.To.IsZero() && d.After(to) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (q *queries) InsertTransaction(_ context.Context, t models.Transaction) error {
	if _, exists := q.d.transactions[t.ID]; exists {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	now := q.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	q.d.transactions[t.ID] = t
	return nil
}

func (q *queries) UpdateTransaction(_ context.Context, t models.Transaction) error {
	cur, ok := q.d.transactions[t.ID]
	if !ok || cur.UserID != t.UserID || cur.Deleted {
		return notFound("transaction", t.ID)
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = q.now()
	q.d.transactions[t.ID] = t
	return nil
}

func (q *queries) DeleteTransactionsByAccount(_ context.Context, userID, accountID string) (int64, error) {
	var n int64
	for id, t := range q.d.transactions {
		if t.UserID == userID && t.AccountID == accountID {
			delete(q.d.transactions, id)
			n++
		}
	}
	return n, nil
}

func (q *queries) InsertLedgerEntry(_ context.Context, e models.LedgerEntry) error {
	q.d.nextEntryID++
	e.ID = q.d.nextEntryID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = q.now()
	}
	q.d.entries = append(q.d.entries, e)
	return nil
}

func (q *queries) ListLedgerEntries(_ context.Context, userID, accountID string) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range q.d.entries {
		if e.UserID == userID && (accountID == "" || e.AccountID == accountID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Bills

func (q *queries) GetBill(_ context.Context, userID, id string) (models.Bill, error) {
	b, ok := q.d.bills[id]
	if !ok || b.UserID != userID {
		return models.Bill{}, notFound("bill", id)
	}
	return b, nil
}

func (q *queries) ListBills(_ context.Context, userID string) ([]models.Bill, error) {
	var out []models.Bill
	for _, b := range q.d.bills {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *queries) InsertBill(_ context.Context, b models.Bill) error {
	now := q.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	q.d.bills[b.ID] = b
	return nil
}

func (q *queries) UpdateBill(_ context.Context, b models.Bill) error {
	cur, ok := q.d.bills[b.ID]
	if !ok || cur.UserID != b.UserID {
		return notFound("bill", b.ID)
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = q.now()
	q.d.bills[b.ID] = b
	return nil
}

func (q *queries) DeleteBill(_ context.Context, userID, id string) error {
	if b, ok := q.d.bills[id]; !ok || b.UserID != userID {
		return notFound("bill", id)
	}
	delete(q.d.bills, id)
	return nil
}

// Loans

func (q *queries) GetLoan(_ context.Context, userID, id string) (models.Loan, error) {
	l, ok := q.d.loans[id]
	if !ok || l.UserID != userID {
		return models.Loan{}, notFound("loan", id)
	}
	return l, nil
}

func (q *queries) ListLoans(_ context.Context, userID string) ([]models.Loan, error) {
	var out []models.Loan
	for _, l := range q.d.loans {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDueDate.Equal(out[j].NextDueDate) {
			return out[i].NextDueDate.Before(out[j].NextDueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *queries) InsertLoan(_ context.Context, l models.Loan) error {
	now := q.now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	q.d.loans[l.ID] = l
	return nil
}

func (q *queries) UpdateLoan(_ context.Context, l models.Loan) error {
	cur, ok := q.d.loans[l.ID]
	if !ok || cur.UserID != l.UserID {
		return notFound("loan", l.ID)
	}
	l.CreatedAt = cur.CreatedAt
	l.UpdatedAt = q.now()
	q.d.loans[l.ID] = l
	return nil
}

func (q *queries) DeleteLoan(_ context.Context, userID, id string) error {
	if l, ok := q.d.loans[id]; !ok || l.UserID != userID {
		return notFound("loan", id)
	}
	delete(q.d.loans, id)
	return nil
}

// Goals

func (q *queries) GetGoal(_ context.Context, userID, id string) (models.Goal, error) {
	g, ok := q.d.goals[id]
	if !ok || g.UserID != userID {
		return models.Goal{}, notFound("goal", id)
	}
	return g, nil
}

func (q *queries) ListGoals(_ context.Context, userID string) ([]models.Goal, error) {
	var out []models.Goal
	for _, g := range q.d.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *queries) InsertGoal(_ context.Context, g models.Goal) error {
	now := q.now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	q.d.goals[g.ID] = g
	return nil
}

func (q *queries) UpdateGoal(_ context.Context, g models.Goal) error {
	cur, ok := q.d.goals[g.ID]
	if !ok || cur.UserID != g.UserID {
		return notFound("goal", g.ID)
	}
	g.CreatedAt = cur.CreatedAt
	g.UpdatedAt = q.now()
	q.d.goals[g.ID] = g
	return nil
}

func (q *queries) DeleteGoal(_ context.Context, userID, id string) error {
	if g, ok := q.d.goals[id]; !ok || g.UserID != userID {
		return notFound("goal", id)
	}
	delete(q.d.goals, id)
	return nil
}

// Savings plans

func (q *queries) GetSavingsPlan(_ context.Context, userID, id string) (models.SavingsPlan, error) {
	p, ok := q.d.plans[id]
	if !ok || p.UserID != userID {
		return models.SavingsPlan{}, notFound("savings plan", id)
	}
	return p, nil
}

func (q *queries) ListSavingsPlans(_ context.Context, userID string) ([]models.SavingsPlan, error) {
	var out []models.SavingsPlan
	for _, p := range q.d.plans {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *queries) InsertSavingsPlan(_ context.Context, p models.SavingsPlan) error {
	now := q.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	q.d.plans[p.ID] = p
	return nil
}

func (q *queries) UpdateSavingsPlan(_ context.Context, p models.SavingsPlan) error {
	cur, ok := q.d.plans[p.ID]
	if !ok || cur.UserID != p.UserID {
		return notFound("savings plan", p.ID)
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = q.now()
	q.d.plans[p.ID] = p
	return nil
}

func (q *queries) DeleteSavingsPlan(_ context.Context, userID, id string) error {
	if p, ok := q.d.plans[id]; !ok || p.UserID != userID {
		return notFound("savings plan", id)
	}
	delete(q.d.plans, id)
	return nil
}
