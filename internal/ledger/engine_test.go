package ledger

import (
	"errors"
	"testing"

	"github.com/ledgerly/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func checking(balance string) models.Account {
	return models.Account{ID: "chk", Type: models.AccountChecking, Currency: "USD", Balance: dec(balance)}
}

func credit(limit, balance string) models.Account {
	return Derive(models.Account{ID: "cc", Type: models.AccountCredit, Currency: "USD", CreditLimit: dec(limit), Balance: dec(balance)})
}

func TestEffect_SignRules(t *testing.T) {
	tests := []struct {
		name   string
		acct   models.AccountType
		kind   Kind
		amount string
		want   string
	}{
		{"income on checking adds", models.AccountChecking, Income, "50", "50"},
		{"negative income still adds magnitude", models.AccountChecking, Income, "-50", "50"},
		{"expense on savings subtracts", models.AccountSavings, Expense, "20.25", "-20.25"},
		{"bill payment subtracts", models.AccountChecking, BillPayment, "10", "-10"},
		{"loan payment subtracts", models.AccountChecking, LoanPayment, "10", "-10"},
		{"transfer out subtracts", models.AccountChecking, TransferOut, "100", "-100"},
		{"transfer in adds", models.AccountChecking, TransferIn, "100", "100"},
		{"charge on credit increases owed", models.AccountCredit, Expense, "30", "30"},
		{"payment to credit reduces owed", models.AccountCredit, TransferIn, "30", "-30"},
		{"income to credit reduces owed", models.AccountCredit, Income, "5", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Effect(tt.acct, tt.kind, dec(tt.amount))
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestEffect_UnknownKind(t *testing.T) {
	_, err := Effect(models.AccountChecking, Kind(99), dec("1"))
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestApplyReverse_IsIdentity(t *testing.T) {
	accounts := []models.Account{
		checking("1000.10"),
		checking("-3.33"),
		credit("5000", "1200.50"),
		credit("300", "0"),
	}
	kinds := []Kind{Income, Expense, TransferOut, TransferIn, LoanPayment, BillPayment}
	amounts := []string{"0.01", "19.99", "100", "7333.333333"}

	for _, a := range accounts {
		for _, k := range kinds {
			for _, amt := range amounts {
				applied, err := ApplyTransactionEffect(a, k, dec(amt))
				require.NoError(t, err)
				restored, err := ReverseTransactionEffect(applied, k, dec(amt))
				require.NoError(t, err)

				assert.True(t, a.Balance.Equal(restored.Balance), "%s kind=%d amt=%s", a.ID, k, amt)
				assert.True(t, a.AvailableCredit.Equal(restored.AvailableCredit), "%s kind=%d amt=%s", a.ID, k, amt)
			}
		}
	}
}

func TestCreditPolarity(t *testing.T) {
	acct := credit("1000", "200")
	assert.True(t, dec("800").Equal(acct.AvailableCredit))

	charged, err := ApplyTransactionEffect(acct, Expense, dec("50"))
	require.NoError(t, err)
	assert.True(t, dec("250").Equal(charged.Balance))
	assert.True(t, dec("750").Equal(charged.AvailableCredit))

	paid, err := ApplyTransactionEffect(acct, TransferIn, dec("50"))
	require.NoError(t, err)
	assert.True(t, dec("150").Equal(paid.Balance))
	assert.True(t, dec("850").Equal(paid.AvailableCredit))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(models.TxTransfer, dec("-10"))
	require.NoError(t, err)
	assert.Equal(t, TransferOut, k)

	k, err = ParseKind(models.TxTransfer, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, TransferIn, k)

	k, err = ParseKind(models.TxBillPayment, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, models.TxBillPayment, k.Type())

	_, err = ParseKind("refund", dec("1"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDerive_NonCreditHasNoAvailableCredit(t *testing.T) {
	acct := checking("10")
	acct.AvailableCredit = dec("99")
	assert.True(t, Derive(acct).AvailableCredit.IsZero())
}

func TestNetWorthContribution(t *testing.T) {
	assert.True(t, dec("-200").Equal(NetWorthContribution(credit("1000", "200"))))
	assert.True(t, dec("15").Equal(NetWorthContribution(checking("15"))))
}

func TestConvert(t *testing.T) {
	t.Run("same currency needs no fx", func(t *testing.T) {
		fx, err := Convert(dec("100"), dec("1"), "usd", "USD")
		assert.NoError(t, err)
		assert.Nil(t, fx)
	})

	t.Run("cross currency multiplies", func(t *testing.T) {
		fx, err := Convert(dec("100"), dec("0.85"), "USD", "EUR")
		require.NoError(t, err)
		assert.True(t, dec("85").Equal(fx.ConvertedAmount))
		assert.Equal(t, "USD", fx.From)
		assert.Equal(t, "EUR", fx.To)
		assert.True(t, dec("85").Equal(SettledAmount(dec("100"), fx)))
	})

	t.Run("non-positive rate rejected", func(t *testing.T) {
		_, err := Convert(dec("100"), decimal.Zero, "USD", "EUR")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("missing currency rejected", func(t *testing.T) {
		_, err := Convert(dec("100"), dec("1"), "", "EUR")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestEntryType(t *testing.T) {
	assert.Equal(t, models.EntryDebit, EntryType(dec("-1")))
	assert.Equal(t, models.EntryCredit, EntryType(dec("1")))
}
