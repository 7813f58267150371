package ledger

import (
	"fmt"
	"strings"

	"github.com/ledgerly/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Convert expresses amount (in currency from) in currency to using rate.
// It returns nil when no conversion is needed.
func Convert(amount, rate decimal.Decimal, from, to string) (*models.FX, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrInvalidArgument)
	}
	if from == to {
		return nil, nil
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w: fx rate must be positive for %s->%s", ErrInvalidArgument, from, to)
	}
	return &models.FX{
		Rate:            rate,
		From:            from,
		To:              to,
		ConvertedAmount: amount.Abs().Mul(rate),
	}, nil
}

// SettledAmount is the magnitude charged to the paying account: the
// converted amount when an FX block is present, else the source amount.
func SettledAmount(amount decimal.Decimal, fx *models.FX) decimal.Decimal {
	if fx != nil {
		return fx.ConvertedAmount
	}
	return amount.Abs()
}
