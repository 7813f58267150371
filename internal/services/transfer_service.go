package services

import (
	"context"
	"time"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/logger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type TransferService struct {
	Deps
	rates     RateSource
	log       zerolog.Logger
	validator *ValidationHelper
}

// TransferRequest moves Amount, in the source account's currency, to the
// destination. Rate converts into the destination currency; it is ignored
// between same-currency accounts and looked up when zero.
type TransferRequest struct {
	FromAccountID string          `json:"fromAccountId" validate:"required"`
	ToAccountID   string          `json:"toAccountId" validate:"required,nefield=FromAccountID"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	Rate          decimal.Decimal `json:"rate,omitempty" validate:"gte=0"`
	Description   string          `json:"description" validate:"max=200"`
	Date          time.Time       `json:"date"`
}

// TransferResult holds both legs and both accounts after the commit.
type TransferResult struct {
	Out  models.Transaction `json:"out"`
	In   models.Transaction `json:"in"`
	From models.Account     `json:"from"`
	To   models.Account     `json:"to"`
}

func NewTransferService(deps Deps, rates RateSource) *TransferService {
	deps = deps.withDefaults()
	return &TransferService{
		Deps:      deps,
		rates:     rates,
		log:       logger.Component(deps.Log, "transfer"),
		validator: NewValidationHelper(),
	}
}

// CreateTransfer writes a transfer_out leg on the source and a transfer_in
// leg on the destination, already linked to each other, together with both
// balance effects. Either everything is committed or nothing is.
func (s *TransferService) CreateTransfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return TransferResult{}, err
	}
	if req.FromAccountID != "" && req.FromAccountID == req.ToAccountID {
		return TransferResult{}, invalid("source and destination accounts must differ")
	}
	if !req.Amount.IsPositive() {
		return TransferResult{}, invalid("transfer amount must be positive")
	}
	if err := s.validator.check(&req); err != nil {
		return TransferResult{}, err
	}

	from, err := s.Store.GetAccount(ctx, userID, req.FromAccountID)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := s.Store.GetAccount(ctx, userID, req.ToAccountID)
	if err != nil {
		return TransferResult{}, err
	}
	fxBlock, err := resolveFX(ctx, s.rates, req.Amount, req.Rate, from.Currency, to.Currency)
	if err != nil {
		return TransferResult{}, err
	}

	outID, inID := s.NewID(), s.NewID()
	date := dateOr(req.Date, s.Now())
	category := models.CategoryTransfer
	if to.IsCredit() {
		category = models.CategoryCreditCardPayment
	}
	description := req.Description
	if description == "" {
		description = "Transfer to " + to.Name
	}

	var res TransferResult
	err = s.post(ctx, userID, func(p *posting) error {
		if err := p.lock(ctx, req.FromAccountID, req.ToAccountID); err != nil {
			return err
		}
		from, to := p.accounts[req.FromAccountID], p.accounts[req.ToAccountID]
		if !equalCurrency(from.Currency, to.Currency) && fxBlock == nil {
			return invalid("account currency changed during transfer")
		}

		outDelta, err := ledger.Effect(from.Type, ledger.TransferOut, req.Amount)
		if err != nil {
			return err
		}
		inDelta, err := ledger.Effect(to.Type, ledger.TransferIn, ledger.SettledAmount(req.Amount, fxBlock))
		if err != nil {
			return err
		}

		res.Out = models.Transaction{
			ID:                   outID,
			UserID:               userID,
			AccountID:            from.ID,
			Description:          description,
			Amount:               outDelta,
			Type:                 models.TxTransferOut,
			Date:                 date,
			Category:             category,
			RelatedTransactionID: &inID,
		}
		res.In = models.Transaction{
			ID:                   inID,
			UserID:               userID,
			AccountID:            to.ID,
			Description:          description,
			Amount:               inDelta,
			Type:                 models.TxTransferIn,
			Date:                 date,
			Category:             category,
			RelatedTransactionID: &outID,
			FX:                   fxBlock,
		}

		for _, t := range []models.Transaction{res.Out, res.In} {
			if err := p.q.InsertTransaction(ctx, t); err != nil {
				return err
			}
		}
		if res.From, err = p.apply(ctx, from.ID, outID, "transfer_out", outDelta); err != nil {
			return err
		}
		res.To, err = p.apply(ctx, to.ID, inID, "transfer_in", inDelta)
		return err
	})
	if err != nil {
		s.Audit.LogTransfer(userID, outID, inID, req.FromAccountID, req.ToAccountID, req.Amount, "FAILED")
		return TransferResult{}, err
	}

	if out, err := s.Store.GetTransaction(ctx, userID, outID); err == nil {
		res.Out = out
	}
	if in, err := s.Store.GetTransaction(ctx, userID, inID); err == nil {
		res.In = in
	}

	s.Audit.LogTransfer(userID, outID, inID, req.FromAccountID, req.ToAccountID, req.Amount, "SUCCESS")
	s.log.Info().
		Str("user_id", userID).
		Str("from", req.FromAccountID).
		Str("to", req.ToAccountID).
		Str("amount", req.Amount.String()).
		Msg("transfer committed")
	return res, nil
}
