package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/logger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/schedule"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type SavingsPlanService struct {
	Deps
	rates     RateSource
	log       zerolog.Logger
	validator *ValidationHelper
}

type CreateSavingsPlanRequest struct {
	Name            string           `json:"name" validate:"required,max=100"`
	AmountPerPeriod decimal.Decimal  `json:"amountPerPeriod" validate:"gt=0"`
	Currency        string           `json:"currency" validate:"required,len=3,alpha"`
	Frequency       models.Frequency `json:"frequency" validate:"required,recurring"`
	TotalPeriods    int              `json:"totalPeriods" validate:"required,min=1,max=1200"`
	StartDate       time.Time        `json:"startDate" validate:"required"`
	AccountID       *string          `json:"accountId,omitempty" validate:"omitempty,min=1"`
}

// ContributeRequest records Periods installments. When the plan has a
// funding account the total is debited from it in the same commit.
type ContributeRequest struct {
	Periods int             `json:"periods" validate:"min=0"`
	Rate    decimal.Decimal `json:"rate,omitempty" validate:"gte=0"`
	Date    time.Time       `json:"date"`
}

type Contribution struct {
	Plan        models.SavingsPlan  `json:"plan"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Account     *models.Account     `json:"account,omitempty"`
}

func NewSavingsPlanService(deps Deps, rates RateSource) *SavingsPlanService {
	deps = deps.withDefaults()
	return &SavingsPlanService{
		Deps:      deps,
		rates:     rates,
		log:       logger.Component(deps.Log, "savings"),
		validator: NewValidationHelper(),
	}
}

// withNextDue derives NextDueDate from the start date and payments made.
func withNextDue(p models.SavingsPlan) models.SavingsPlan {
	if next, err := schedule.AdvanceDueDate(p.StartDate, p.Frequency, p.PaymentsMade); err == nil {
		p.NextDueDate = next
	}
	return p
}

func (s *SavingsPlanService) Create(ctx context.Context, req CreateSavingsPlanRequest) (models.SavingsPlan, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.SavingsPlan{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return models.SavingsPlan{}, err
	}
	if req.AccountID != nil {
		if _, err := s.Store.GetAccount(ctx, userID, *req.AccountID); err != nil {
			return models.SavingsPlan{}, err
		}
	}

	plan := models.SavingsPlan{
		ID:              s.NewID(),
		UserID:          userID,
		Name:            req.Name,
		AmountPerPeriod: req.AmountPerPeriod,
		Currency:        normalizeCurrency(req.Currency),
		Frequency:       req.Frequency,
		TotalPeriods:    req.TotalPeriods,
		StartDate:       dayOf(req.StartDate),
		AccountID:       req.AccountID,
	}
	if err := s.Store.InsertSavingsPlan(ctx, plan); err != nil {
		return models.SavingsPlan{}, fmt.Errorf("create savings plan: %w", err)
	}
	return withNextDue(plan), nil
}

func (s *SavingsPlanService) Get(ctx context.Context, id string) (models.SavingsPlan, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.SavingsPlan{}, err
	}
	p, err := s.Store.GetSavingsPlan(ctx, userID, id)
	if err != nil {
		return models.SavingsPlan{}, err
	}
	return withNextDue(p), nil
}

func (s *SavingsPlanService) List(ctx context.Context) ([]models.SavingsPlan, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return []models.SavingsPlan{}, nil
	}
	plans, err := s.Store.ListSavingsPlans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings plans: %w", err)
	}
	for i := range plans {
		plans[i] = withNextDue(plans[i])
	}
	return plans, nil
}

func (s *SavingsPlanService) Delete(ctx context.Context, id string) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	return s.Store.DeleteSavingsPlan(ctx, userID, id)
}

// Contribute advances the plan by req.Periods (at least one) and adds
// AmountPerPeriod for each to the contributed total.
func (s *SavingsPlanService) Contribute(ctx context.Context, id string, req ContributeRequest) (Contribution, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return Contribution{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return Contribution{}, err
	}
	periods := req.Periods
	if periods == 0 {
		periods = 1
	}

	plan, err := s.Store.GetSavingsPlan(ctx, userID, id)
	if err != nil {
		return Contribution{}, err
	}
	var quote *fxQuote
	if plan.AccountID != nil {
		acct, err := s.Store.GetAccount(ctx, userID, *plan.AccountID)
		if err != nil {
			return Contribution{}, err
		}
		if quote, err = quoteFX(ctx, s.rates, req.Rate, plan.Currency, acct.Currency); err != nil {
			return Contribution{}, err
		}
	}

	date := dateOr(req.Date, s.Now())
	var res Contribution
	err = s.post(ctx, userID, func(p *posting) error {
		plan, err := p.q.GetSavingsPlan(ctx, userID, id)
		if err != nil {
			return err
		}
		if plan.Completed() {
			return invalid("savings plan %s is complete", id)
		}
		if remaining := plan.TotalPeriods - plan.PaymentsMade; plan.TotalPeriods > 0 && periods > remaining {
			return invalid("only %d periods remain on savings plan %s", remaining, id)
		}
		amount := plan.AmountPerPeriod.Mul(decimal.NewFromInt(int64(periods)))

		plan.PaymentsMade += periods
		plan.TotalContributed = plan.TotalContributed.Add(amount)
		if err := p.q.UpdateSavingsPlan(ctx, plan); err != nil {
			return err
		}
		res.Plan = withNextDue(plan)

		if plan.AccountID == nil {
			return nil
		}
		acct, err := p.account(ctx, *plan.AccountID)
		if err != nil {
			return err
		}
		fxBlock, err := quote.convert(amount)
		if err != nil {
			return err
		}
		delta, err := ledger.Effect(acct.Type, ledger.Expense, ledger.SettledAmount(amount, fxBlock))
		if err != nil {
			return err
		}
		planID := plan.ID
		txn := models.Transaction{
			ID:            s.NewID(),
			UserID:        userID,
			AccountID:     acct.ID,
			Description:   plan.Name,
			Amount:        delta,
			Type:          models.TxExpense,
			Date:          date,
			Category:      models.CategorySavings,
			SavingsPlanID: &planID,
			FX:            fxBlock,
		}
		if err := p.q.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		updated, err := p.apply(ctx, acct.ID, txn.ID, "savings_contribution", delta)
		if err != nil {
			return err
		}
		res.Transaction, res.Account = &txn, &updated
		return nil
	})
	if err != nil {
		return Contribution{}, err
	}

	s.log.Info().Str("user_id", userID).Str("plan_id", id).Int("periods", periods).Msg("savings contribution recorded")
	return res, nil
}
