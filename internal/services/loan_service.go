package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/logger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/projection"
	"github.com/ledgerly/backend/internal/schedule"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type LoanService struct {
	Deps
	rates     RateSource
	log       zerolog.Logger
	validator *ValidationHelper
}

type CreateLoanRequest struct {
	Name             string           `json:"name" validate:"required,max=100"`
	Principal        decimal.Decimal  `json:"principal" validate:"gt=0"`
	Balance          *decimal.Decimal `json:"balance,omitempty" validate:"omitempty,gte=0"`
	InterestRate     decimal.Decimal  `json:"interestRate" validate:"gte=0,lte=100"`
	PaymentAmount    decimal.Decimal  `json:"paymentAmount" validate:"gt=0"`
	PaymentFrequency models.Frequency `json:"paymentFrequency" validate:"required,recurring"`
	NextDueDate      time.Time        `json:"nextDueDate" validate:"required"`
	Currency         string           `json:"currency" validate:"required,len=3,alpha"`
	AccountID        string           `json:"accountId"`
}

// LoanPaymentRequest pays a loan installment. Amount defaults to the loan's
// payment amount and AccountID to the loan's account; without any account
// only the loan itself is updated.
type LoanPaymentRequest struct {
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount,omitempty" validate:"gte=0"`
	Rate      decimal.Decimal `json:"rate,omitempty" validate:"gte=0"`
	Date      time.Time       `json:"date"`
}

type LoanPayment struct {
	Loan        models.Loan         `json:"loan"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Account     *models.Account     `json:"account,omitempty"`
}

func NewLoanService(deps Deps, rates RateSource) *LoanService {
	deps = deps.withDefaults()
	return &LoanService{
		Deps:      deps,
		rates:     rates,
		log:       logger.Component(deps.Log, "loans"),
		validator: NewValidationHelper(),
	}
}

func (s *LoanService) Create(ctx context.Context, req CreateLoanRequest) (models.Loan, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Loan{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return models.Loan{}, err
	}
	if req.AccountID != "" {
		if _, err := s.Store.GetAccount(ctx, userID, req.AccountID); err != nil {
			return models.Loan{}, err
		}
	}

	balance := req.Principal
	if req.Balance != nil {
		balance = *req.Balance
	}
	loan := models.Loan{
		ID:               s.NewID(),
		UserID:           userID,
		Name:             req.Name,
		Principal:        req.Principal,
		Balance:          balance,
		InterestRate:     req.InterestRate,
		PaymentAmount:    req.PaymentAmount,
		PaymentFrequency: req.PaymentFrequency,
		NextDueDate:      dayOf(req.NextDueDate),
		Currency:         normalizeCurrency(req.Currency),
		AccountID:        req.AccountID,
	}
	if err := s.Store.InsertLoan(ctx, loan); err != nil {
		return models.Loan{}, fmt.Errorf("create loan: %w", err)
	}
	return s.Store.GetLoan(ctx, userID, loan.ID)
}

func (s *LoanService) Get(ctx context.Context, id string) (models.Loan, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Loan{}, err
	}
	return s.Store.GetLoan(ctx, userID, id)
}

func (s *LoanService) List(ctx context.Context) ([]models.Loan, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return []models.Loan{}, nil
	}
	return s.Store.ListLoans(ctx, userID)
}

func (s *LoanService) Delete(ctx context.Context, id string) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	return s.Store.DeleteLoan(ctx, userID, id)
}

func (s *LoanService) Projection(ctx context.Context, id string) (projection.LoanProjection, error) {
	loan, err := s.Get(ctx, id)
	if err != nil {
		return projection.LoanProjection{}, err
	}
	return projection.ProjectLoan(loan), nil
}

// ApplyPayment reduces the loan balance, advances its due date one period
// and, when an account pays, books the loan_payment in the same commit.
// Payments above the outstanding balance are capped at the balance.
func (s *LoanService) ApplyPayment(ctx context.Context, id string, req LoanPaymentRequest) (LoanPayment, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return LoanPayment{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return LoanPayment{}, err
	}

	loan, err := s.Store.GetLoan(ctx, userID, id)
	if err != nil {
		return LoanPayment{}, err
	}
	accountID := req.AccountID
	if accountID == "" {
		accountID = loan.AccountID
	}
	var quote *fxQuote
	if accountID != "" {
		acct, err := s.Store.GetAccount(ctx, userID, accountID)
		if err != nil {
			return LoanPayment{}, err
		}
		if quote, err = quoteFX(ctx, s.rates, req.Rate, loan.Currency, acct.Currency); err != nil {
			return LoanPayment{}, err
		}
	}

	date := dateOr(req.Date, s.Now())
	var res LoanPayment
	var amount decimal.Decimal
	err = s.post(ctx, userID, func(p *posting) error {
		loan, err := p.q.GetLoan(ctx, userID, id)
		if err != nil {
			return err
		}
		if !loan.Balance.IsPositive() {
			return invalid("loan %s is paid off", id)
		}
		amount = req.Amount
		if amount.IsZero() {
			amount = loan.PaymentAmount
		}
		amount = decimal.Min(amount, loan.Balance)
		if err := positive("payment amount", amount); err != nil {
			return err
		}

		loan.Balance = loan.Balance.Sub(amount)
		if loan.NextDueDate, err = schedule.AdvanceDueDate(loan.NextDueDate, loan.PaymentFrequency, 1); err != nil {
			return err
		}
		if err := p.q.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		res.Loan = loan

		if accountID == "" {
			return nil
		}
		acct, err := p.account(ctx, accountID)
		if err != nil {
			return err
		}
		fxBlock, err := quote.convert(amount)
		if err != nil {
			return err
		}
		delta, err := ledger.Effect(acct.Type, ledger.LoanPayment, ledger.SettledAmount(amount, fxBlock))
		if err != nil {
			return err
		}
		loanID := loan.ID
		txn := models.Transaction{
			ID:          s.NewID(),
			UserID:      userID,
			AccountID:   acct.ID,
			Description: loan.Name,
			Amount:      delta,
			Type:        models.TxLoanPayment,
			Date:        date,
			Category:    models.CategoryLoanPayment,
			LoanID:      &loanID,
			FX:          fxBlock,
		}
		if err := p.q.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		updated, err := p.apply(ctx, acct.ID, txn.ID, "loan_payment", delta)
		if err != nil {
			return err
		}
		res.Transaction, res.Account = &txn, &updated
		return nil
	})
	if err != nil {
		return LoanPayment{}, err
	}

	s.log.Info().Str("user_id", userID).Str("loan_id", id).Str("amount", amount.String()).Str("balance", res.Loan.Balance.String()).Msg("loan payment applied")
	return res, nil
}
