package memory

import (
	"slices"

	"github.com/ledgerly/backend/internal/models"
)

// data is one snapshot of every collection. Transactions work on a clone
// and replace the live snapshot on success.
type data struct {
	accounts     map[string]models.Account
	transactions map[string]models.Transaction
	entries      []models.LedgerEntry
	nextEntryID  int64
	bills        map[string]models.Bill
	loans        map[string]models.Loan
	goals        map[string]models.Goal
	plans        map[string]models.SavingsPlan
}

func newData() *data {
	return &data{
		accounts:     make(map[string]models.Account),
		transactions: make(map[string]models.Transaction),
		bills:        make(map[string]models.Bill),
		loans:        make(map[string]models.Loan),
		goals:        make(map[string]models.Goal),
		plans:        make(map[string]models.SavingsPlan),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) clone() *data {
	return &data{
		accounts:     cloneMap(d.accounts),
		transactions: cloneMap(d.transactions),
		entries:      slices.Clone(d.entries),
		nextEntryID:  d.nextEntryID,
		bills:        cloneMap(d.bills),
		loans:        cloneMap(d.loans),
		goals:        cloneMap(d.goals),
		plans:        cloneMap(d.plans),
	}
}
