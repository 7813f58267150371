// Package ledger holds the balance arithmetic shared by every mutation that
// touches an account: sign conventions per account and transaction type,
// apply/reverse of effects, credit derivations and currency conversion.
//
// Everything here is pure. Persistence and atomicity live in the store and
// services packages.
package ledger

import (
	"fmt"

	"github.com/ledgerly/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Kind is the closed set of balance-affecting transaction variants.
type Kind int

const (
	Income Kind = iota + 1
	Expense
	TransferOut
	TransferIn
	LoanPayment
	BillPayment
)

type Direction int

const (
	Inflow Direction = iota + 1
	Outflow
)

// ParseKind maps a stored transaction type onto its variant. The legacy
// single-record "transfer" type carries its direction in the amount sign.
func ParseKind(t models.TransactionType, amount decimal.Decimal) (Kind, error) {
	switch t {
	case models.TxIncome:
		return Income, nil
	case models.TxExpense:
		return Expense, nil
	case models.TxTransferOut:
		return TransferOut, nil
	case models.TxTransferIn:
		return TransferIn, nil
	case models.TxLoanPayment:
		return LoanPayment, nil
	case models.TxBillPayment:
		return BillPayment, nil
	case models.TxTransfer:
		if amount.IsNegative() {
			return TransferOut, nil
		}
		return TransferIn, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, t)
}

func (k Kind) Type() models.TransactionType {
	switch k {
	case Income:
		return models.TxIncome
	case Expense:
		return models.TxExpense
	case TransferOut:
		return models.TxTransferOut
	case TransferIn:
		return models.TxTransferIn
	case LoanPayment:
		return models.TxLoanPayment
	case BillPayment:
		return models.TxBillPayment
	}
	return ""
}

func (k Kind) Direction() (Direction, error) {
	switch k {
	case Income, TransferIn:
		return Inflow, nil
	case Expense, TransferOut, LoanPayment, BillPayment:
		return Outflow, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
}

// Effect returns the signed delta a transaction of kind k and magnitude
// |amount| applies to an account of type t.
//
// For non-credit accounts inflows add and outflows subtract. A credit
// account's balance is the amount owed, so charges (outflows) add to it and
// payments (inflows) reduce it.
func Effect(t models.AccountType, k Kind, amount decimal.Decimal) (decimal.Decimal, error) {
	dir, err := k.Direction()
	if err != nil {
		return decimal.Zero, err
	}
	mag := amount.Abs()
	if t == models.AccountCredit {
		if dir == Outflow {
			return mag, nil
		}
		return mag.Neg(), nil
	}
	if dir == Inflow {
		return mag, nil
	}
	return mag.Neg(), nil
}

// ApplyTransactionEffect returns a copy of acct with the effect of kind k and
// amount applied.
func ApplyTransactionEffect(acct models.Account, k Kind, amount decimal.Decimal) (models.Account, error) {
	delta, err := Effect(acct.Type, k, amount)
	if err != nil {
		return acct, err
	}
	return ApplyDelta(acct, delta), nil
}

// ReverseTransactionEffect is the exact negation of ApplyTransactionEffect.
func ReverseTransactionEffect(acct models.Account, k Kind, amount decimal.Decimal) (models.Account, error) {
	delta, err := Effect(acct.Type, k, amount)
	if err != nil {
		return acct, err
	}
	return ApplyDelta(acct, delta.Neg()), nil
}

// ApplyDelta adds a signed delta to the balance and recomputes derived
// credit fields.
func ApplyDelta(acct models.Account, delta decimal.Decimal) models.Account {
	acct.Balance = acct.Balance.Add(delta)
	return Derive(acct)
}

// ReverseDelta undoes a previously applied signed delta, typically a stored
// transaction amount.
func ReverseDelta(acct models.Account, delta decimal.Decimal) models.Account {
	return ApplyDelta(acct, delta.Neg())
}

// Derive recomputes fields that depend on Balance. Balance is canonical.
func Derive(acct models.Account) models.Account {
	if acct.IsCredit() {
		acct.AvailableCredit = acct.CreditLimit.Sub(acct.Balance)
	} else {
		acct.AvailableCredit = decimal.Zero
	}
	return acct
}

// CurrentBalance is the single derivation of an account's displayed balance.
// For credit accounts this is the amount owed.
func CurrentBalance(acct models.Account) decimal.Decimal {
	return acct.Balance
}

// NetWorthContribution is the signed amount an account adds to net worth.
func NetWorthContribution(acct models.Account) decimal.Decimal {
	if acct.IsCredit() {
		return acct.Balance.Neg()
	}
	return acct.Balance
}

// EntryType classifies a delta as DEBIT (balance falls) or CREDIT.
func EntryType(delta decimal.Decimal) string {
	if delta.IsNegative() {
		return models.EntryDebit
	}
	return models.EntryCredit
}
