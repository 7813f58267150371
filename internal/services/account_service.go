package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/logger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/projection"
	"github.com/ledgerly/backend/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type AccountService struct {
	Deps
	log       zerolog.Logger
	validator *ValidationHelper
}

type CreateAccountRequest struct {
	Name             string             `json:"name" validate:"required,max=100"`
	Type             models.AccountType `json:"type" validate:"required,oneof=checking savings credit"`
	Currency         string             `json:"currency" validate:"required,len=3,alpha"`
	Balance          decimal.Decimal    `json:"balance"`
	CreditLimit      decimal.Decimal    `json:"creditLimit" validate:"gte=0"`
	StatementDate    *int               `json:"statementDate,omitempty" validate:"omitempty,min=1,max=31"`
	StatementDueDate *int               `json:"statementDueDate,omitempty" validate:"omitempty,min=1,max=31"`
	StatementAmount  decimal.Decimal    `json:"statementAmount" validate:"gte=0"`
}

// UpdateAccountRequest changes account metadata. Balances only move through
// transactions.
type UpdateAccountRequest struct {
	Name             *string          `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	CreditLimit      *decimal.Decimal `json:"creditLimit,omitempty" validate:"omitempty,gte=0"`
	StatementDate    *int             `json:"statementDate,omitempty" validate:"omitempty,min=1,max=31"`
	StatementDueDate *int             `json:"statementDueDate,omitempty" validate:"omitempty,min=1,max=31"`
	StatementAmount  *decimal.Decimal `json:"statementAmount,omitempty" validate:"omitempty,gte=0"`
}

func NewAccountService(deps Deps) *AccountService {
	deps = deps.withDefaults()
	return &AccountService{
		Deps:      deps,
		log:       logger.Component(deps.Log, "accounts"),
		validator: NewValidationHelper(),
	}
}

func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (models.Account, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Account{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return models.Account{}, err
	}

	acct := models.Account{
		ID:       s.NewID(),
		UserID:   userID,
		Name:     req.Name,
		Type:     req.Type,
		Currency: normalizeCurrency(req.Currency),
		Balance:  req.Balance,
	}
	if acct.IsCredit() {
		acct.CreditLimit = req.CreditLimit
		acct.StatementDate = req.StatementDate
		acct.StatementDueDate = req.StatementDueDate
		acct.StatementAmount = req.StatementAmount
	}

	if err := s.Store.InsertAccount(ctx, acct); err != nil {
		return models.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("account_id", acct.ID).Str("type", string(acct.Type)).Msg("account created")
	return s.Store.GetAccount(ctx, userID, acct.ID)
}

func (s *AccountService) Get(ctx context.Context, id string) (models.Account, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Account{}, err
	}
	return s.Store.GetAccount(ctx, userID, id)
}

// List returns the user's accounts, or nothing for an anonymous caller.
func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return []models.Account{}, nil
	}
	accts, err := s.Store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accts, nil
}

func (s *AccountService) Update(ctx context.Context, id string, req UpdateAccountRequest) (models.Account, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Account{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return models.Account{}, err
	}

	var out models.Account
	err = s.post(ctx, userID, func(p *posting) error {
		acct, err := p.account(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			acct.Name = *req.Name
		}
		if acct.IsCredit() {
			if req.CreditLimit != nil {
				acct.CreditLimit = *req.CreditLimit
			}
			if req.StatementDate != nil {
				acct.StatementDate = req.StatementDate
			}
			if req.StatementDueDate != nil {
				acct.StatementDueDate = req.StatementDueDate
			}
			if req.StatementAmount != nil {
				acct.StatementAmount = *req.StatementAmount
			}
		} else if req.CreditLimit != nil || req.StatementDate != nil || req.StatementDueDate != nil || req.StatementAmount != nil {
			return invalid("credit fields apply to credit accounts only")
		}

		out, err = p.q.UpdateAccount(ctx, ledger.Derive(acct))
		return err
	})
	return out, err
}

// Delete removes the account and every transaction booked against it in one
// commit.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	var removed int64
	err = s.Store.RunInTx(ctx, func(q store.Queries) error {
		if _, err := q.LockAccounts(ctx, userID, id); err != nil {
			return err
		}
		n, err := q.DeleteTransactionsByAccount(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("delete transactions of account %s: %w", id, err)
		}
		removed = n
		return q.DeleteAccount(ctx, userID, id)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Str("account_id", id).Int64("transactions", removed).Msg("account deleted")
	return nil
}

// StatementStatus reports the current statement cycle of a credit account.
func (s *AccountService) StatementStatus(ctx context.Context, id string, today time.Time) (projection.Statement, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return projection.Statement{}, err
	}
	acct, err := s.Store.GetAccount(ctx, userID, id)
	if err != nil {
		return projection.Statement{}, err
	}
	if today.IsZero() {
		today = s.today()
	}
	if acct.StatementDate == nil {
		return projection.Statement{}, invalid("account %s has no statement configured", id)
	}

	txns, err := s.Store.ListTransactions(ctx, userID, models.TransactionFilter{
		AccountID: id,
		Category:  models.CategoryCreditCardPayment,
		From:      projection.StatementCutoff(*acct.StatementDate, today),
		To:        today,
	})
	if err != nil {
		return projection.Statement{}, fmt.Errorf("list statement payments: %w", err)
	}

	st, ok := projection.StatementStatus(acct, txns, today)
	if !ok {
		return projection.Statement{}, invalid("account %s has no statement configured", id)
	}
	return st, nil
}

// LedgerEntries lists the balance journal of one account, oldest first.
func (s *AccountService) LedgerEntries(ctx context.Context, id string) ([]models.LedgerEntry, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return []models.LedgerEntry{}, nil
	}
	if _, err := s.Store.GetAccount(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.Store.ListLedgerEntries(ctx, userID, id)
}
