package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry sides.
const (
	EntryDebit  = "DEBIT"
	EntryCredit = "CREDIT"
)

// LedgerEntry records a single balance mutation applied to an account.
type LedgerEntry struct {
	ID            int64           `json:"id" db:"id"`
	UserID        string          `json:"-" db:"user_id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	AccountID     string          `json:"account_id" db:"account_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`         // signed delta
	EntryType     string          `json:"entry_type" db:"entry_type"` // DEBIT or CREDIT
	Balance       decimal.Decimal `json:"balance" db:"balance"`       // after the mutation
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type AccountType string

const (
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
	AccountCredit   AccountType = "credit"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit:
		return true
	}
	return false
}

type Account struct {
	ID       string          `json:"id" db:"id"`
	UserID   string          `json:"-" db:"user_id"`
	Name     string          `json:"name" db:"name"`
	Type     AccountType     `json:"type" db:"type"`
	Currency string          `json:"currency" db:"currency"`
	Balance  decimal.Decimal `json:"balance" db:"balance"`

	// Credit accounts only. AvailableCredit is derived from CreditLimit and
	// Balance and is never persisted.
	CreditLimit      decimal.Decimal `json:"creditLimit" db:"credit_limit"`
	AvailableCredit  decimal.Decimal `json:"availableCredit" db:"-"`
	StatementDate    *int            `json:"statementDate,omitempty" db:"statement_date"`
	StatementDueDate *int            `json:"statementDueDate,omitempty" db:"statement_due_date"`
	StatementAmount  decimal.Decimal `json:"statementAmount" db:"statement_amount"`

	Version   int       `json:"version" db:"version"` // for optimistic locking
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

func (a Account) IsCredit() bool {
	return a.Type == AccountCredit
}
