package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/shopspring/decimal"
)

type GoalService struct {
	Deps
	validator *ValidationHelper
}

type CreateGoalRequest struct {
	Name            string          `json:"name" validate:"required,max=100"`
	TargetAmount    decimal.Decimal `json:"targetAmount" validate:"gt=0"`
	CurrentSaved    decimal.Decimal `json:"currentSaved" validate:"gte=0"`
	LinkedAccountID *string         `json:"linkedAccountId,omitempty" validate:"omitempty,min=1"`
	TargetDate      *time.Time      `json:"targetDate,omitempty"`
}

func NewGoalService(deps Deps) *GoalService {
	return &GoalService{Deps: deps.withDefaults(), validator: NewValidationHelper()}
}

func (s *GoalService) Create(ctx context.Context, req CreateGoalRequest) (models.Goal, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Goal{}, err
	}
	if err := s.validator.check(&req); err != nil {
		return models.Goal{}, err
	}
	if req.LinkedAccountID != nil {
		if _, err := s.Store.GetAccount(ctx, userID, *req.LinkedAccountID); err != nil {
			return models.Goal{}, err
		}
	}

	g := models.Goal{
		ID:              s.NewID(),
		UserID:          userID,
		Name:            req.Name,
		TargetAmount:    req.TargetAmount,
		CurrentSaved:    req.CurrentSaved,
		LinkedAccountID: req.LinkedAccountID,
		TargetDate:      req.TargetDate,
		Status:          models.GoalActive,
	}
	if err := s.Store.InsertGoal(ctx, g); err != nil {
		return models.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return s.resolve(ctx, g)
}

// List returns goals with mirrored balances and progress filled in.
func (s *GoalService) List(ctx context.Context) ([]models.Goal, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return []models.Goal{}, nil
	}
	goals, err := s.Store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	for i := range goals {
		if goals[i], err = s.resolve(ctx, goals[i]); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

// UpdateSaved sets the manually tracked saved amount. Goals linked to an
// account mirror its balance and cannot be edited this way.
func (s *GoalService) UpdateSaved(ctx context.Context, id string, saved decimal.Decimal) (models.Goal, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Goal{}, err
	}
	if saved.IsNegative() {
		return models.Goal{}, invalid("saved amount cannot be negative")
	}
	g, err := s.Store.GetGoal(ctx, userID, id)
	if err != nil {
		return models.Goal{}, err
	}
	if g.LinkedAccountID != nil {
		return models.Goal{}, invalid("goal %s mirrors an account balance", id)
	}

	g.CurrentSaved = saved
	if g.Status == models.GoalActive && saved.GreaterThanOrEqual(g.TargetAmount) {
		g.Status = models.GoalAchieved
	} else if g.Status == models.GoalAchieved && saved.LessThan(g.TargetAmount) {
		g.Status = models.GoalActive
	}
	if err := s.Store.UpdateGoal(ctx, g); err != nil {
		return models.Goal{}, err
	}
	return s.resolve(ctx, g)
}

func (s *GoalService) SetStatus(ctx context.Context, id string, status models.GoalStatus) (models.Goal, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return models.Goal{}, err
	}
	switch status {
	case models.GoalActive, models.GoalAchieved, models.GoalPaused:
	default:
		return models.Goal{}, invalid("unknown goal status %q", status)
	}
	g, err := s.Store.GetGoal(ctx, userID, id)
	if err != nil {
		return models.Goal{}, err
	}
	g.Status = status
	if err := s.Store.UpdateGoal(ctx, g); err != nil {
		return models.Goal{}, err
	}
	return s.resolve(ctx, g)
}

func (s *GoalService) Delete(ctx context.Context, id string) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	return s.Store.DeleteGoal(ctx, userID, id)
}

// resolve mirrors the linked account's balance and computes progress. A
// link to a deleted account falls back to the stored amount.
func (s *GoalService) resolve(ctx context.Context, g models.Goal) (models.Goal, error) {
	if g.LinkedAccountID != nil {
		acct, err := s.Store.GetAccount(ctx, g.UserID, *g.LinkedAccountID)
		switch {
		case err == nil:
			g.CurrentSaved = ledger.CurrentBalance(acct)
		case !errors.Is(err, ledger.ErrNotFound):
			return g, err
		}
	}
	g.Progress = GoalProgress(g.CurrentSaved, g.TargetAmount)
	return g, nil
}

// GoalProgress is saved/target in [0, 1], rounded to four places; 0 for a
// zero target.
func GoalProgress(saved, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() || !saved.IsPositive() {
		return decimal.Zero
	}
	p := saved.DivRound(target, 4)
	one := decimal.NewFromInt(1)
	if p.GreaterThan(one) {
		return one
	}
	return p
}
