package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/logger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/schedule"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type BillService struct {
	Deps
	rates       RateSource
	loans       *LoanService
	dueSoonDays int
	log         zerolog.Logger
	validator   *ValidationHelper
}

type CreateBillRequest struct {
	Title     string           `json:"title" validate:"required,max=100"`
	Amount    decimal.Decimal  `json:"amount" validate:"gt=0"`
	Currency  string           `json:"currency" validate:"required,len=3,alpha"`
	DueDate   time.Time        `json:"dueDate" validate:"required"`
	Frequency models.Frequency `json:"frequency" validate:"required,frequency"`
	Category  string           `json:"category" validate:"max=50"`
	AccountID string           `json:"accountId"`
}

type UpdateBillRequest struct {
	Title     *string           `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Amount    *decimal.Decimal  `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Currency  *string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	DueDate   *time.Time        `json:"dueDate,omitempty"`
	Frequency *models.Frequency `json:"frequency,omitempty" validate:"omitempty,frequency"`
	Category  *string           `json:"category,omitempty" validate:"omitempty,max=50"`
	AccountID *string           `json:"accountId,omitempty"`
	Paid      *bool             `json:"paid,omitempty"`
}

// PayBillRequest pays a bill from AccountID, or from the bill's own account
// when empty. Rate converts the bill currency into the account currency.
type PayBillRequest struct {
	AccountID string          `json:"accountId"`
	Rate      decimal.Decimal `json:"rate,omitempty" validate:"gte=0"`
	Date      time.Time       `json:"date"`
}

type BillPayment struct {
	Transaction models.Transaction `json:"transaction"`
	Bill        models.Bill        `json:"bill"`
	Account     models.Account     `json:"account"`
}

func NewBillService(deps Deps, rates RateSource, dueSoonDays int) *BillService {
	deps = deps.withDefaults()
	if dueSoonDays <= 0 {
		dueSoonDays = schedule.DueSoonDays
	}
	return &BillService{
		Deps:        deps,
		rates:       rates,
		loans:       NewLoanService(deps, rates),
		dueSoonDays: dueSoonDays,
		log:         logger.Component(deps.Log, "bills"),
		validator:   NewValidationHelper(),
	}
}

func (s *BillService) Create(ctx context.Context, req CreateBillRequest) (models.Bill, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Bill{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return models.Bill{}, err
	}
	if req.AccountID != "" {
		if _, err := s.Store.GetAccount(ctx, userID, req.AccountID); err != nil {
			return models.Bill{}, err
		}
	}

	bill := models.Bill{
		ID:        s.NewID(),
		UserID:    userID,
		Title:     req.Title,
		Amount:    req.Amount,
		Currency:  normalizeCurrency(req.Currency),
		DueDate:   dayOf(req.DueDate),
		Frequency: req.Frequency,
		Category:  req.Category,
		AccountID: req.AccountID,
	}
	if err := s.Store.InsertBill(ctx, bill); err != nil {
		return models.Bill{}, fmt.Errorf("create bill: %w", err)
	}
	return s.decorate(bill, s.today()), nil
}

func (s *BillService) Get(ctx context.Context, id string) (models.Bill, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Bill{}, err
	}
	b, err := s.Store.GetBill(ctx, userID, id)
	if err != nil {
		return models.Bill{}, err
	}
	return s.decorate(b, s.today()), nil
}

// List returns stored bills merged with one synthetic bill per outstanding
// loan, each with its status as of today, ordered by due date.
func (s *BillService) List(ctx context.Context, today time.Time) ([]models.Bill, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return []models.Bill{}, nil
	}
	if today.IsZero() {
		today = s.today()
	}

	bills, err := s.Store.ListBills(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	loans, err := s.Store.ListLoans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}

	out := make([]models.Bill, 0, len(bills)+len(loans))
	for _, b := range bills {
		out = append(out, s.decorate(b, today))
	}
	for _, l := range loans {
		if !l.Balance.IsPositive() {
			continue
		}
		out = append(out, s.decorate(loanBill(l), today))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

const loanBillPrefix = "loan-"

// loanBill presents a loan's next installment as a bill.
func loanBill(l models.Loan) models.Bill {
	loanID := l.ID
	return models.Bill{
		ID:        loanBillPrefix + l.ID,
		UserID:    l.UserID,
		Title:     l.Name,
		Amount:    decimal.Min(l.PaymentAmount, l.Balance),
		Currency:  l.Currency,
		DueDate:   l.NextDueDate,
		Frequency: l.PaymentFrequency,
		Category:  models.CategoryLoanPayment,
		AccountID: l.AccountID,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
		Source:    models.SourceLoan,
		LoanID:    &loanID,
	}
}

func (s *BillService) decorate(b models.Bill, today time.Time) models.Bill {
	if b.Source == "" {
		b.Source = models.SourceBill
	}
	if b.Paid {
		b.Status = models.StatusPaid
	} else {
		b.Status = schedule.StatusWithin(b.DueDate, today, s.dueSoonDays)
	}
	return b
}

func (s *BillService) Update(ctx context.Context, id string, req UpdateBillRequest) (models.Bill, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Bill{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return models.Bill{}, err
	}

	b, err := s.Store.GetBill(ctx, userID, id)
	if err != nil {
		return models.Bill{}, err
	}
	if req.Title != nil {
		b.Title = *req.Title
	}
	if req.Amount != nil {
		b.Amount = *req.Amount
	}
	if req.Currency != nil {
		b.Currency = normalizeCurrency(*req.Currency)
	}
	if req.DueDate != nil {
		b.DueDate = dayOf(*req.DueDate)
	}
	if req.Frequency != nil {
		b.Frequency = *req.Frequency
	}
	if req.Category != nil {
		b.Category = *req.Category
	}
	if req.AccountID != nil {
		if *req.AccountID != "" {
			if _, err := s.Store.GetAccount(ctx, userID, *req.AccountID); err != nil {
				return models.Bill{}, err
			}
		}
		b.AccountID = *req.AccountID
	}
	if req.Paid != nil {
		b.Paid = *req.Paid
	}

	if err := s.Store.UpdateBill(ctx, b); err != nil {
		return models.Bill{}, err
	}
	return s.decorate(b, s.today()), nil
}

func (s *BillService) Delete(ctx context.Context, id string) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	return s.Store.DeleteBill(ctx, userID, id)
}

// Pay books a bill_payment against the paying account and rolls the bill
// forward: recurring bills move to their next due date, one-time bills
// become paid.
func (s *BillService) Pay(ctx context.Context, id string, req PayBillRequest) (BillPayment, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return BillPayment{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return BillPayment{}, err
	}

	if loanID, ok := strings.CutPrefix(id, loanBillPrefix); ok {
		return s.payLoan(ctx, userID, loanID, req)
	}

	bill, err := s.Store.GetBill(ctx, userID, id)
	if err != nil {
		return BillPayment{}, err
	}
	accountID := req.AccountID
	if accountID == "" {
		accountID = bill.AccountID
	}
	if accountID == "" {
		return BillPayment{}, invalid("no paying account for bill %s", id)
	}

	acct, err := s.Store.GetAccount(ctx, userID, accountID)
	if err != nil {
		return BillPayment{}, err
	}
	quote, err := quoteFX(ctx, s.rates, req.Rate, bill.Currency, acct.Currency)
	if err != nil {
		return BillPayment{}, err
	}

	date := dateOr(req.Date, s.Now())
	billID := bill.ID
	var res BillPayment
	err = s.post(ctx, userID, func(p *posting) error {
		bill, err := p.q.GetBill(ctx, userID, id)
		if err != nil {
			return err
		}
		if bill.Paid {
			return invalid("bill %s is already paid", id)
		}
		acct, err := p.account(ctx, accountID)
		if err != nil {
			return err
		}
		fxBlock, err := quote.convert(bill.Amount)
		if err != nil {
			return err
		}
		delta, err := ledger.Effect(acct.Type, ledger.BillPayment, ledger.SettledAmount(bill.Amount, fxBlock))
		if err != nil {
			return err
		}

		res.Transaction = models.Transaction{
			ID:          s.NewID(),
			UserID:      userID,
			AccountID:   acct.ID,
			Description: bill.Title,
			Amount:      delta,
			Type:        models.TxBillPayment,
			Date:        date,
			Category:    bill.Category,
			BillID:      &billID,
			FX:          fxBlock,
		}
		if err := p.q.InsertTransaction(ctx, res.Transaction); err != nil {
			return err
		}
		if res.Account, err = p.apply(ctx, acct.ID, res.Transaction.ID, "bill_payment", delta); err != nil {
			return err
		}

		paidAt := date
		bill.LastPaidAt = &paidAt
		if schedule.Recurring(bill.Frequency) {
			if bill.DueDate, err = schedule.AdvanceDueDate(bill.DueDate, bill.Frequency, 1); err != nil {
				return err
			}
		} else {
			bill.Paid = true
		}
		res.Bill = bill
		return p.q.UpdateBill(ctx, bill)
	})
	if err != nil {
		return BillPayment{}, err
	}

	res.Bill = s.decorate(res.Bill, s.today())
	s.log.Info().Str("user_id", userID).Str("bill_id", id).Str("transaction_id", res.Transaction.ID).Msg("bill paid")
	return res, nil
}

// payLoan pays the installment behind a loan-derived bill through the loan
// payment path.
func (s *BillService) payLoan(ctx context.Context, userID, loanID string, req PayBillRequest) (BillPayment, error) {
	loan, err := s.Store.GetLoan(ctx, userID, loanID)
	if err != nil {
		return BillPayment{}, err
	}
	if req.AccountID == "" && loan.AccountID == "" {
		return BillPayment{}, invalid("no paying account for loan %s", loanID)
	}
	res, err := s.loans.ApplyPayment(ctx, loanID, LoanPaymentRequest{
		AccountID: req.AccountID,
		Rate:      req.Rate,
		Date:      req.Date,
	})
	if err != nil {
		return BillPayment{}, err
	}
	return BillPayment{
		Transaction: *res.Transaction,
		Bill:        s.decorate(loanBill(res.Loan), s.today()),
		Account:     *res.Account,
	}, nil
}
