package services

import (
	"context"
	"testing"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillService_ListMergesLoansWithStatus(t *testing.T) {
	f := newFixture(t)
	bills := NewBillService(f.deps, nil, 3)
	loans := NewLoanService(f.deps, nil)

	mk := func(title string, due, freq string) models.Bill {
		b, err := bills.Create(f.ctx, CreateBillRequest{
			Title: title, Amount: d("50"), Currency: "usd", DueDate: mustDate(t, due), Frequency: models.Frequency(freq),
		})
		require.NoError(t, err)
		return b
	}
	mk("Rent", "2024-03-14", "monthly")
	mk("Phone", "2024-03-18", "monthly")
	mk("Gym", "2024-03-25", "monthly")

	_, err := loans.Create(f.ctx, CreateLoanRequest{
		Name: "Car", Principal: d("1000"), InterestRate: d("0"), PaymentAmount: d("100"),
		PaymentFrequency: models.Monthly, NextDueDate: mustDate(t, "2024-03-16"), Currency: "USD",
	})
	require.NoError(t, err)
	_, err = loans.Create(f.ctx, CreateLoanRequest{
		Name: "Old", Principal: d("1000"), Balance: ptr(d("0")), InterestRate: d("0"), PaymentAmount: d("100"),
		PaymentFrequency: models.Monthly, NextDueDate: mustDate(t, "2024-03-16"), Currency: "USD",
	})
	require.NoError(t, err)

	list, err := bills.List(f.ctx, testToday)
	require.NoError(t, err)
	require.Len(t, list, 4)

	want := []struct {
		title  string
		status models.BillStatus
		source string
	}{
		{"Rent", models.StatusOverdue, models.SourceBill},
		{"Car", models.StatusDueSoon, models.SourceLoan},
		{"Phone", models.StatusDueSoon, models.SourceBill},
		{"Gym", models.StatusUpcoming, models.SourceBill},
	}
	for i, w := range want {
		assert.Equal(t, w.title, list[i].Title)
		assert.Equal(t, w.status, list[i].Status, w.title)
		assert.Equal(t, w.source, list[i].Source, w.title)
	}
	assert.Equal(t, "USD", list[0].Currency)
	require.NotNil(t, list[1].LoanID)
	assert.Equal(t, models.CategoryLoanPayment, list[1].Category)

	t.Run("anonymous gets nothing", func(t *testing.T) {
		list, err := bills.List(context.Background(), testToday)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestBillService_Pay(t *testing.T) {
	f := newFixture(t)
	bills := NewBillService(f.deps, nil, 0)
	checking := f.account(t, "Checking", models.AccountChecking, "USD", "1000")

	t.Run("recurring bill rolls forward", func(t *testing.T) {
		bill, err := bills.Create(f.ctx, CreateBillRequest{
			Title: "Rent", Amount: d("400"), Currency: "USD", DueDate: mustDate(t, "2024-01-31"),
			Frequency: models.Monthly, Category: "Housing", AccountID: checking.ID,
		})
		require.NoError(t, err)

		res, err := bills.Pay(f.ctx, bill.ID, PayBillRequest{})
		require.NoError(t, err)

		assertDecimal(t, "600", f.balance(t, checking.ID))
		assertDecimal(t, "-400", res.Transaction.Amount)
		assert.Equal(t, models.TxBillPayment, res.Transaction.Type)
		require.NotNil(t, res.Transaction.BillID)
		assert.Equal(t, bill.ID, *res.Transaction.BillID)
		assert.Equal(t, "Housing", res.Transaction.Category)
		assert.Equal(t, "2024-02-29", res.Bill.DueDate.Format("2006-01-02"))
		assert.False(t, res.Bill.Paid)
		require.NotNil(t, res.Bill.LastPaidAt)
	})

	t.Run("one-time bill becomes paid", func(t *testing.T) {
		bill, err := bills.Create(f.ctx, CreateBillRequest{
			Title: "Visa fee", Amount: d("100"), Currency: "EUR", DueDate: mustDate(t, "2024-03-20"),
			Frequency: models.OneTime,
		})
		require.NoError(t, err)

		res, err := bills.Pay(f.ctx, bill.ID, PayBillRequest{AccountID: checking.ID, Rate: d("1.08")})
		require.NoError(t, err)

		assert.True(t, res.Bill.Paid)
		assert.Equal(t, models.StatusPaid, res.Bill.Status)
		require.NotNil(t, res.Transaction.FX)
		assertDecimal(t, "108", res.Transaction.FX.ConvertedAmount)
		assertDecimal(t, "492", f.balance(t, checking.ID))

		_, err = bills.Pay(f.ctx, bill.ID, PayBillRequest{AccountID: checking.ID, Rate: d("1.08")})
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
		assertDecimal(t, "492", f.balance(t, checking.ID))
	})

	t.Run("no paying account", func(t *testing.T) {
		bill, err := bills.Create(f.ctx, CreateBillRequest{
			Title: "Water", Amount: d("30"), Currency: "USD", DueDate: mustDate(t, "2024-03-20"), Frequency: models.Monthly,
		})
		require.NoError(t, err)

		_, err = bills.Pay(f.ctx, bill.ID, PayBillRequest{})
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	})
}

func TestBillService_PayLoanBill(t *testing.T) {
	f := newFixture(t)
	checking := f.account(t, "Checking", models.AccountChecking, "USD", "1000")
	bills := NewBillService(f.deps, nil, 3)
	loan := newLoan(t, f, checking.ID)

	list, err := bills.List(f.ctx, testToday)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "loan-"+loan.ID, list[0].ID)

	res, err := bills.Pay(f.ctx, list[0].ID, PayBillRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.TxLoanPayment, res.Transaction.Type)
	require.NotNil(t, res.Transaction.LoanID)
	assert.Equal(t, loan.ID, *res.Transaction.LoanID)
	assert.Equal(t, models.SourceLoan, res.Bill.Source)
	assert.Equal(t, "2024-02-29", res.Bill.DueDate.Format("2006-01-02"))
	assertDecimal(t, "900", f.balance(t, checking.ID))

	got, err := NewLoanService(f.deps, nil).Get(f.ctx, loan.ID)
	require.NoError(t, err)
	assertDecimal(t, "900", got.Balance)

	t.Run("unknown loan", func(t *testing.T) {
		_, err := bills.Pay(f.ctx, "loan-missing", PayBillRequest{})
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("loan without an account", func(t *testing.T) {
		bare := newLoan(t, f, "")
		_, err := bills.Pay(f.ctx, "loan-"+bare.ID, PayBillRequest{})
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	})
}

func TestBillService_UpdateDelete(t *testing.T) {
	f := newFixture(t)
	bills := NewBillService(f.deps, nil, 3)

	bill, err := bills.Create(f.ctx, CreateBillRequest{
		Title: "Internet", Amount: d("60"), Currency: "USD", DueDate: mustDate(t, "2024-03-30"), Frequency: models.Monthly,
	})
	require.NoError(t, err)

	amount := d("65")
	freq := models.Quarterly
	updated, err := bills.Update(f.ctx, bill.ID, UpdateBillRequest{Amount: &amount, Frequency: &freq})
	require.NoError(t, err)
	assertDecimal(t, "65", updated.Amount)
	assert.Equal(t, models.Quarterly, updated.Frequency)

	bad := models.Frequency("daily")
	_, err = bills.Update(f.ctx, bill.ID, UpdateBillRequest{Frequency: &bad})
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	require.NoError(t, bills.Delete(f.ctx, bill.ID))
	assert.ErrorIs(t, bills.Delete(f.ctx, bill.ID), ledger.ErrNotFound)
}
