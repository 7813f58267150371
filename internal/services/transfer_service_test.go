package services

import (
	"context"
	"testing"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferService_SameCurrency(t *testing.T) {
	f := newFixture(t)
	svc := NewTransferService(f.deps, nil)
	a := f.account(t, "Checking", models.AccountChecking, "USD", "500")
	b := f.account(t, "Savings", models.AccountSavings, "USD", "50")

	res, err := svc.CreateTransfer(f.ctx, TransferRequest{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        d("100"),
		Rate:          d("1"),
	})
	require.NoError(t, err)

	assertDecimal(t, "400", f.balance(t, a.ID))
	assertDecimal(t, "150", f.balance(t, b.ID))

	assert.Equal(t, models.TxTransferOut, res.Out.Type)
	assert.Equal(t, models.TxTransferIn, res.In.Type)
	assertDecimal(t, "-100", res.Out.Amount)
	assertDecimal(t, "100", res.In.Amount)
	require.NotNil(t, res.Out.RelatedTransactionID)
	require.NotNil(t, res.In.RelatedTransactionID)
	assert.Equal(t, res.In.ID, *res.Out.RelatedTransactionID)
	assert.Equal(t, res.Out.ID, *res.In.RelatedTransactionID)
	assert.Equal(t, models.CategoryTransfer, res.In.Category)
	assert.Nil(t, res.In.FX)
	assert.Contains(t, f.audit.String(), `"TRANSFER"`)
}

func TestTransferService_FX(t *testing.T) {
	f := newFixture(t)
	svc := NewTransferService(f.deps, nil)
	usd := f.account(t, "USD Checking", models.AccountChecking, "USD", "1000")
	eur := f.account(t, "EUR Checking", models.AccountChecking, "EUR", "0")

	res, err := svc.CreateTransfer(f.ctx, TransferRequest{
		FromAccountID: usd.ID,
		ToAccountID:   eur.ID,
		Amount:        d("100"),
		Rate:          d("0.85"),
	})
	require.NoError(t, err)

	assertDecimal(t, "900", f.balance(t, usd.ID))
	assertDecimal(t, "85", f.balance(t, eur.ID))
	require.NotNil(t, res.In.FX)
	assertDecimal(t, "0.85", res.In.FX.Rate)
	assertDecimal(t, "85", res.In.FX.ConvertedAmount)
	assert.Equal(t, "USD", res.In.FX.From)
	assert.Equal(t, "EUR", res.In.FX.To)
}

func TestTransferService_LooksUpMissingRate(t *testing.T) {
	f := newFixture(t)
	rates := &MockRateSource{}
	rates.On("GetRate", "USD", "EUR").Return(d("0.9"))
	svc := NewTransferService(f.deps, rates)
	usd := f.account(t, "USD", models.AccountChecking, "USD", "1000")
	eur := f.account(t, "EUR", models.AccountChecking, "EUR", "0")

	_, err := svc.CreateTransfer(f.ctx, TransferRequest{FromAccountID: usd.ID, ToAccountID: eur.ID, Amount: d("10")})
	require.NoError(t, err)

	assertDecimal(t, "9", f.balance(t, eur.ID))
	rates.AssertExpectations(t)
}

func TestTransferService_ToCreditCard(t *testing.T) {
	f := newFixture(t)
	svc := NewTransferService(f.deps, nil)
	checking := f.account(t, "Checking", models.AccountChecking, "EUR", "1000")
	card := f.account(t, "Card", models.AccountCredit, "EUR", "300")

	res, err := svc.CreateTransfer(f.ctx, TransferRequest{FromAccountID: checking.ID, ToAccountID: card.ID, Amount: d("120")})
	require.NoError(t, err)

	assertDecimal(t, "880", f.balance(t, checking.ID))
	assertDecimal(t, "180", f.balance(t, card.ID))
	assertDecimal(t, "-120", res.In.Amount)
	assertDecimal(t, "4820", res.To.AvailableCredit)
	assert.Equal(t, models.CategoryCreditCardPayment, res.In.Category)
	assert.Equal(t, models.CategoryCreditCardPayment, res.Out.Category)
}

func TestTransferService_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewTransferService(f.deps, nil)
	a := f.account(t, "A", models.AccountChecking, "USD", "100")
	b := f.account(t, "B", models.AccountChecking, "USD", "100")

	tests := []struct {
		name    string
		ctx     context.Context
		req     TransferRequest
		wantErr error
	}{
		{"anonymous", context.Background(), TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: d("1")}, ledger.ErrNotAuthenticated},
		{"same account", f.ctx, TransferRequest{FromAccountID: a.ID, ToAccountID: a.ID, Amount: d("1")}, ledger.ErrInvalidArgument},
		{"zero amount", f.ctx, TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: d("0")}, ledger.ErrInvalidArgument},
		{"negative amount", f.ctx, TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: d("-5")}, ledger.ErrInvalidArgument},
		{"missing source", f.ctx, TransferRequest{ToAccountID: b.ID, Amount: d("1")}, ledger.ErrInvalidArgument},
		{"unknown destination", f.ctx, TransferRequest{FromAccountID: a.ID, ToAccountID: "nope", Amount: d("1")}, ledger.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransfer(tt.ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assertDecimal(t, "100", f.balance(t, a.ID))
	assertDecimal(t, "100", f.balance(t, b.ID))
}

func TestTransferService_DeleteEitherLeg(t *testing.T) {
	f := newFixture(t)
	transfers := NewTransferService(f.deps, nil)
	txns := NewTransactionService(f.deps, nil)
	a := f.account(t, "A", models.AccountChecking, "USD", "500")
	b := f.account(t, "B", models.AccountSavings, "USD", "0")

	res, err := transfers.CreateTransfer(f.ctx, TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: d("200")})
	require.NoError(t, err)

	require.NoError(t, txns.Delete(f.ctx, res.In.ID))

	assertDecimal(t, "500", f.balance(t, a.ID))
	assertDecimal(t, "0", f.balance(t, b.ID))
	_, err = txns.Get(f.ctx, res.Out.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.ErrorIs(t, txns.Delete(f.ctx, res.Out.ID), ledger.ErrNotFound)
}

func TestTransferService_RollsBackBothLegs(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, "A", models.AccountChecking, "USD", "500")
	b := f.account(t, "B", models.AccountChecking, "USD", "0")

	deps := f.deps
	deps.Store = &failingStore{Store: f.store, err: ledger.ErrPartialFailure}
	svc := NewTransferService(deps, nil)

	_, err := svc.CreateTransfer(f.ctx, TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: d("200")})
	assert.ErrorIs(t, err, ledger.ErrPartialFailure)

	assertDecimal(t, "500", f.balance(t, a.ID))
	assertDecimal(t, "0", f.balance(t, b.ID))
	list, err := f.store.ListTransactions(f.ctx, "user-1", models.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Contains(t, f.audit.String(), `"FAILED"`)
}
