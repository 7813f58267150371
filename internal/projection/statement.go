// Package projection computes read-only views over account and loan state:
// credit card statement status and loan amortization projections.
package projection

import (
	"time"

	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/schedule"
	"github.com/shopspring/decimal"
)

type Statement struct {
	AccountID       string          `json:"accountId"`
	CutoffDate      time.Time       `json:"cutoffDate"`
	DueDate         *time.Time      `json:"dueDate,omitempty"`
	StatementAmount decimal.Decimal `json:"statementAmount"`
	PaidThisCycle   decimal.Decimal `json:"paidThisCycle"`
	OwedOnStatement decimal.Decimal `json:"owedOnStatement"`
	Status          string          `json:"status"`
}

// Statement payment states.
const (
	StatementPaid    = "paid"
	StatementPartial = "partial"
	StatementUnpaid  = "unpaid"
)

// StatementCutoff returns the most recent occurrence of day-of-month day on
// or before today. The day is clamped to the month length.
func StatementCutoff(day int, today time.Time) time.Time {
	today = schedule.Day(today)
	cutoff := dayInMonth(today.Year(), today.Month(), day)
	if cutoff.After(today) {
		prev := schedule.AddMonths(time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), -1)
		cutoff = dayInMonth(prev.Year(), prev.Month(), day)
	}
	return cutoff
}

func dayInMonth(y int, m time.Month, day int) time.Time {
	if last := schedule.DaysIn(y, m); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// StatementStatus reports how much of the last statement is still owed.
// Only negative "Credit Card Payment" records dated from the cutoff through
// today count as payments. ok is false when the account has no statement
// day configured.
func StatementStatus(acct models.Account, txns []models.Transaction, today time.Time) (Statement, bool) {
	if !acct.IsCredit() || acct.StatementDate == nil {
		return Statement{}, false
	}

	today = schedule.Day(today)
	cutoff := StatementCutoff(*acct.StatementDate, today)

	paid := decimal.Zero
	for _, tx := range txns {
		if tx.Deleted || tx.AccountID != acct.ID {
			continue
		}
		if tx.Category != models.CategoryCreditCardPayment || !tx.Amount.IsNegative() {
			continue
		}
		d := schedule.Day(tx.Date)
		if d.Before(cutoff) || d.After(today) {
			continue
		}
		paid = paid.Add(tx.Amount.Abs())
	}

	owed := decimal.Max(decimal.Zero, acct.StatementAmount.Sub(paid))
	st := Statement{
		AccountID:       acct.ID,
		CutoffDate:      cutoff,
		StatementAmount: acct.StatementAmount,
		PaidThisCycle:   paid,
		OwedOnStatement: owed,
	}

	switch {
	case owed.IsZero():
		st.Status = StatementPaid
	case paid.IsPositive():
		st.Status = StatementPartial
	default:
		st.Status = StatementUnpaid
	}

	if acct.StatementDueDate != nil {
		due := dayInMonth(cutoff.Year(), cutoff.Month(), *acct.StatementDueDate)
		if !due.After(cutoff) {
			next := schedule.AddMonths(time.Date(cutoff.Year(), cutoff.Month(), 1, 0, 0, 0, 0, time.UTC), 1)
			due = dayInMonth(next.Year(), next.Month(), *acct.StatementDueDate)
		}
		st.DueDate = &due
	}

	return st, true
}
