package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/logger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/schedule"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type TransactionService struct {
	Deps
	rates     RateSource
	log       zerolog.Logger
	validator *ValidationHelper
}

// CreateTransactionRequest books a single-account transaction. Amount is a
// magnitude in Currency (the account's currency when empty); the sign is
// derived from Type and the account type.
type CreateTransactionRequest struct {
	AccountID   string                 `json:"accountId" validate:"required"`
	Description string                 `json:"description" validate:"required,max=200"`
	Amount      decimal.Decimal        `json:"amount" validate:"gt=0"`
	Type        models.TransactionType `json:"type" validate:"required,oneof=expense income loan_payment bill_payment"`
	Date        time.Time              `json:"date"`
	Category    string                 `json:"category" validate:"max=50"`
	Currency    string                 `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	FXRate      decimal.Decimal        `json:"fxRate,omitempty" validate:"gte=0"`
}

// UpdateTransactionRequest edits a transaction. A new Amount on a converted
// transaction is read in the original currency and re-converted at the
// stored rate.
type UpdateTransactionRequest struct {
	AccountID   *string                 `json:"accountId,omitempty" validate:"omitempty,min=1"`
	Description *string                 `json:"description,omitempty" validate:"omitempty,max=200"`
	Amount      *decimal.Decimal        `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Type        *models.TransactionType `json:"type,omitempty" validate:"omitempty,oneof=expense income loan_payment bill_payment"`
	Date        *time.Time              `json:"date,omitempty"`
	Category    *string                 `json:"category,omitempty" validate:"omitempty,max=50"`
}

func NewTransactionService(deps Deps, rates RateSource) *TransactionService {
	deps = deps.withDefaults()
	return &TransactionService{
		Deps:      deps,
		rates:     rates,
		log:       logger.Component(deps.Log, "transactions"),
		validator: NewValidationHelper(),
	}
}

func (s *TransactionService) Create(ctx context.Context, req CreateTransactionRequest) (models.Transaction, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return models.Transaction{}, err
	}
	kind, err := ledger.ParseKind(req.Type, req.Amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%w: %w", ledger.ErrInvalidArgument, err)
	}

	// Rates are looked up before the store transaction so no lock is held
	// across a network call.
	acct, err := s.Store.GetAccount(ctx, userID, req.AccountID)
	if err != nil {
		return models.Transaction{}, err
	}
	fxBlock, err := resolveFX(ctx, s.rates, req.Amount, req.FXRate, req.Currency, acct.Currency)
	if err != nil {
		return models.Transaction{}, err
	}

	txn := models.Transaction{
		ID:          s.NewID(),
		UserID:      userID,
		AccountID:   req.AccountID,
		Description: req.Description,
		Type:        kind.Type(),
		Date:        dateOr(req.Date, s.Now()),
		Category:    req.Category,
		FX:          fxBlock,
	}

	err = s.post(ctx, userID, func(p *posting) error {
		acct, err := p.account(ctx, req.AccountID)
		if err != nil {
			return err
		}
		delta, err := ledger.Effect(acct.Type, kind, ledger.SettledAmount(req.Amount, fxBlock))
		if err != nil {
			return err
		}
		txn.Amount = delta

		if err := p.q.InsertTransaction(ctx, txn); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		_, err = p.apply(ctx, acct.ID, txn.ID, "apply", delta)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}

	s.log.Info().Str("user_id", userID).Str("transaction_id", txn.ID).Str("type", string(txn.Type)).Str("amount", txn.Amount.String()).Msg("transaction created")
	return s.Store.GetTransaction(ctx, userID, txn.ID)
}

func (s *TransactionService) Get(ctx context.Context, id string) (models.Transaction, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Transaction{}, err
	}
	return s.Store.GetTransaction(ctx, userID, id)
}

// List returns non-deleted transactions, newest first.
func (s *TransactionService) List(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return []models.Transaction{}, nil
	}
	txns, err := s.Store.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// Update reverses the stored effect and applies the edited one in a single
// commit.
func (s *TransactionService) Update(ctx context.Context, id string, req UpdateTransactionRequest) (models.Transaction, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return models.Transaction{}, err
	}

	err = s.post(ctx, userID, func(p *posting) error {
		old, err := p.q.GetTransaction(ctx, userID, id)
		if err != nil {
			return err
		}
		updated := old

		if req.Description != nil {
			updated.Description = *req.Description
		}
		if req.Category != nil {
			updated.Category = *req.Category
		}
		if req.Date != nil {
			updated.Date = dayOf(*req.Date)
		}

		balanceChange := req.Amount != nil || req.Type != nil || (req.AccountID != nil && *req.AccountID != old.AccountID)
		if !balanceChange {
			return p.q.UpdateTransaction(ctx, updated)
		}
		if old.RelatedTransactionID != nil {
			return invalid("transfer legs can only change description, date or category")
		}

		oldKind, err := ledger.ParseKind(old.Type, old.Amount)
		if err != nil {
			return err
		}
		kind := oldKind
		if req.Type != nil {
			if kind, err = ledger.ParseKind(*req.Type, decimal.Zero); err != nil {
				return fmt.Errorf("%w: %w", ledger.ErrInvalidArgument, err)
			}
		}
		linked := old.LoanID != nil || old.BillID != nil || old.SavingsPlanID != nil
		if linked && kind.Type() != old.Type {
			return invalid("a linked %s cannot change type", old.Type)
		}
		if old.SavingsPlanID != nil && req.Amount != nil {
			return invalid("savings contributions cannot change amount")
		}
		if req.AccountID != nil {
			updated.AccountID = *req.AccountID
		}

		if err := p.lock(ctx, old.AccountID, updated.AccountID); err != nil {
			return err
		}
		target := p.accounts[updated.AccountID]
		if target.ID != old.AccountID && !equalCurrency(target.Currency, p.accounts[old.AccountID].Currency) {
			return invalid("cannot move a transaction between currencies")
		}

		settled := old.Amount.Abs()
		if req.Amount != nil {
			settled = *req.Amount
			if old.FX != nil {
				if updated.FX, err = ledger.Convert(*req.Amount, old.FX.Rate, old.FX.From, old.FX.To); err != nil {
					return err
				}
				settled = updated.FX.ConvertedAmount
			}
		}

		delta, err := ledger.Effect(target.Type, kind, settled)
		if err != nil {
			return err
		}
		updated.Type = kind.Type()
		updated.Amount = delta

		if old.LoanID != nil && req.Amount != nil {
			if err := shiftLoan(ctx, p, *old.LoanID, originalAmount(old).Sub(originalAmount(updated))); err != nil {
				return err
			}
		}
		if _, err := p.reverse(ctx, old); err != nil {
			return err
		}
		if _, err := p.apply(ctx, updated.AccountID, updated.ID, "apply", delta); err != nil {
			return err
		}
		return p.q.UpdateTransaction(ctx, updated)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return s.Store.GetTransaction(ctx, userID, id)
}

// Delete soft-deletes a transaction and reverses its balance effect exactly
// once. Deleting either leg of a transfer deletes both. A second delete
// reports ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = s.post(ctx, userID, func(p *posting) error {
		t, err := p.q.GetTransaction(ctx, userID, id)
		if err != nil {
			return err
		}
		legs := []models.Transaction{t}
		if t.RelatedTransactionID != nil {
			sibling, err := p.q.GetTransaction(ctx, userID, *t.RelatedTransactionID)
			switch {
			case err == nil:
				legs = append(legs, sibling)
			case !errors.Is(err, ledger.ErrNotFound):
				return err
			}
		}

		ids := make([]string, 0, len(legs))
		for _, leg := range legs {
			ids = append(ids, leg.AccountID)
		}
		if err := p.lock(ctx, ids...); err != nil {
			return err
		}

		for _, leg := range legs {
			if _, err := p.reverse(ctx, leg); err != nil {
				return err
			}
			leg.Deleted = true
			if err := p.q.UpdateTransaction(ctx, leg); err != nil {
				return fmt.Errorf("mark transaction %s deleted: %w", leg.ID, err)
			}
			if err := restoreLinked(ctx, p, leg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Str("transaction_id", id).Msg("transaction deleted")
	return nil
}

// restoreLinked undoes what a deleted payment did to its loan, bill or
// savings plan.
func restoreLinked(ctx context.Context, p *posting, t models.Transaction) error {
	switch {
	case t.LoanID != nil:
		return shiftLoan(ctx, p, *t.LoanID, originalAmount(t))
	case t.BillID != nil:
		return restoreBill(ctx, p, t)
	case t.SavingsPlanID != nil:
		return restoreSavingsPlan(ctx, p, t)
	}
	return nil
}

// shiftLoan adds restored to the loan balance, capped at the principal. A
// negative value takes more off the balance and may not exceed it. The due
// date is left where it is.
func shiftLoan(ctx context.Context, p *posting, loanID string, restored decimal.Decimal) error {
	loan, err := p.q.GetLoan(ctx, p.userID, loanID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	balance := loan.Balance.Add(restored)
	if balance.IsNegative() {
		return invalid("payment exceeds the outstanding balance of loan %s", loanID)
	}
	if loan.Principal.IsPositive() && balance.GreaterThan(loan.Principal) {
		balance = loan.Principal
	}
	loan.Balance = balance
	return p.q.UpdateLoan(ctx, loan)
}

// restoreBill reopens the bill a deleted payment settled. A one-time bill is
// marked unpaid; a recurring bill steps back one period.
func restoreBill(ctx context.Context, p *posting, t models.Transaction) error {
	bill, err := p.q.GetBill(ctx, p.userID, *t.BillID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if schedule.Recurring(bill.Frequency) {
		if bill.DueDate, err = schedule.RewindDueDate(bill.DueDate, bill.Frequency, 1); err != nil {
			return err
		}
	} else {
		bill.Paid = false
	}
	if bill.LastPaidAt != nil && bill.LastPaidAt.Equal(t.Date) {
		bill.LastPaidAt = nil
	}
	return p.q.UpdateBill(ctx, bill)
}

// restoreSavingsPlan takes a deleted contribution back off the plan's
// contributed total and payment count.
func restoreSavingsPlan(ctx context.Context, p *posting, t models.Transaction) error {
	plan, err := p.q.GetSavingsPlan(ctx, p.userID, *t.SavingsPlanID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	amount := originalAmount(t)
	periods := 0
	if plan.AmountPerPeriod.IsPositive() {
		periods = int(amount.DivRound(plan.AmountPerPeriod, 0).IntPart())
	}
	plan.PaymentsMade = max(0, plan.PaymentsMade-periods)
	plan.TotalContributed = decimal.Max(decimal.Zero, plan.TotalContributed.Sub(amount))
	return p.q.UpdateSavingsPlan(ctx, plan)
}
