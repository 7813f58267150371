package projection

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/schedule"
	"github.com/shopspring/decimal"
)

// Placeholder shown for projections that never converge.
const NotApplicable = "—"

// LoanProjection describes how a loan amortizes from its current balance with
// a fixed installment. When Finite is false the installment does not cover
// the periodic interest and the period/total fields are nil.
type LoanProjection struct {
	LoanID            string           `json:"loanId"`
	PeriodicRate      decimal.Decimal  `json:"periodicRate"`
	PeriodicInterest  decimal.Decimal  `json:"periodicInterest"`
	Finite            bool             `json:"finite"`
	RemainingPeriods  *int             `json:"remainingPeriods"`
	TotalRepay        *decimal.Decimal `json:"totalRepay"`
	RemainingInterest *decimal.Decimal `json:"remainingInterest"`
	PayoffDate        *time.Time       `json:"payoffDate,omitempty"`
}

// PeriodsDisplay renders RemainingPeriods, or NotApplicable.
func (p LoanProjection) PeriodsDisplay() string {
	if !p.Finite || p.RemainingPeriods == nil {
		return NotApplicable
	}
	return strconv.Itoa(*p.RemainingPeriods)
}

// TotalRepayDisplay renders TotalRepay with two decimals, or NotApplicable.
func (p LoanProjection) TotalRepayDisplay() string {
	if !p.Finite || p.TotalRepay == nil {
		return NotApplicable
	}
	return p.TotalRepay.StringFixed(2)
}

// MarshalJSON adds periodsDisplay and totalRepayDisplay to the raw fields.
func (p LoanProjection) MarshalJSON() ([]byte, error) {
	type plain LoanProjection
	return json.Marshal(struct {
		plain
		PeriodsDisplay    string `json:"periodsDisplay"`
		TotalRepayDisplay string `json:"totalRepayDisplay"`
	}{plain(p), p.PeriodsDisplay(), p.TotalRepayDisplay()})
}

// ProjectLoan computes the closed-form amortization of the loan's remaining
// balance. It never iterates per period.
func ProjectLoan(loan models.Loan) LoanProjection {
	proj := LoanProjection{LoanID: loan.ID}

	perYear := schedule.PeriodsPerYear(loan.PaymentFrequency)
	balance := loan.Balance.InexactFloat64()
	payment := loan.PaymentAmount.InexactFloat64()

	if balance <= 0 {
		zero := 0
		total, interest := decimal.Zero, decimal.Zero
		proj.Finite = true
		proj.RemainingPeriods = &zero
		proj.TotalRepay = &total
		proj.RemainingInterest = &interest
		return proj
	}
	if perYear == 0 || payment <= 0 {
		return proj
	}

	periodic := loan.InterestRate.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(perYear)))
	proj.PeriodicRate = periodic.Round(8)
	proj.PeriodicInterest = loan.Balance.Mul(periodic).Round(2)
	rate := periodic.InexactFloat64()

	var n float64
	if periodic.IsZero() {
		n = balance / payment
	} else {
		// The installment must exceed the interest accrued each period.
		if loan.PaymentAmount.LessThanOrEqual(proj.PeriodicInterest) {
			return proj
		}
		n = -math.Log(1-rate*balance/payment) / math.Log(1+rate)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return proj
	}

	periods := int(math.Ceil(n - 1e-9))
	total := decimal.NewFromFloat(payment * n).Round(2)
	if periodic.IsZero() {
		total = loan.Balance
	}
	interest := decimal.Max(decimal.Zero, total.Sub(loan.Balance))

	proj.Finite = true
	proj.RemainingPeriods = &periods
	proj.TotalRepay = &total
	proj.RemainingInterest = &interest

	if !loan.NextDueDate.IsZero() && periods > 0 {
		if payoff, err := schedule.AdvanceDueDate(loan.NextDueDate, loan.PaymentFrequency, periods-1); err == nil {
			proj.PayoffDate = &payoff
		}
	}
	return proj
}
