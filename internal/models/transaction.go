package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxExpense     TransactionType = "expense"
	TxIncome      TransactionType = "income"
	TxTransfer    TransactionType = "transfer" // legacy single-record transfer
	TxTransferOut TransactionType = "transfer_out"
	TxTransferIn  TransactionType = "transfer_in"
	TxLoanPayment TransactionType = "loan_payment"
	TxBillPayment TransactionType = "bill_payment"
)

// Well-known categories assigned by the ledger itself.
const (
	CategoryTransfer          = "Transfer"
	CategoryCreditCardPayment = "Credit Card Payment"
	CategoryLoanPayment       = "Loan Payment"
	CategorySavings           = "Savings"
)

// FX holds the conversion applied when the paying account's currency
// differs from the obligation's currency.
type FX struct {
	Rate            decimal.Decimal `json:"fxRate" db:"fx_rate"`
	From            string          `json:"fxFrom" db:"fx_from"`
	To              string          `json:"fxTo" db:"fx_to"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount" db:"converted_amount"`
}

// Transaction is a single ledger record. Amount is signed and always equals
// the delta applied to the owning account's balance.
type Transaction struct {
	ID                   string          `json:"id" db:"id"`
	UserID               string          `json:"-" db:"user_id"`
	AccountID            string          `json:"accountId" db:"account_id"`
	Description          string          `json:"description" db:"description"`
	Amount               decimal.Decimal `json:"amount" db:"amount"`
	Type                 TransactionType `json:"type" db:"type"`
	Date                 time.Time       `json:"date" db:"date"`
	Category             string          `json:"category" db:"category"`
	LoanID               *string         `json:"loanId,omitempty" db:"loan_id"`
	BillID               *string         `json:"billId,omitempty" db:"bill_id"`
	SavingsPlanID        *string         `json:"savingsPlanId,omitempty" db:"savings_plan_id"`
	RelatedTransactionID *string         `json:"relatedTransactionId,omitempty" db:"related_transaction_id"`
	FX                   *FX             `json:"fx,omitempty"`
	Deleted              bool            `json:"-" db:"deleted"`
	CreatedAt            time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time       `json:"updatedAt" db:"updated_at"`
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	AccountID string
	Type      TransactionType
	Category  string
	From      time.Time
	To        time.Time
	Limit     int
}
