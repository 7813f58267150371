package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	OneTime   Frequency = "one-time"
	Weekly    Frequency = "weekly"
	BiWeekly  Frequency = "bi-weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

type BillStatus string

const (
	StatusUpcoming BillStatus = "upcoming"
	StatusDueSoon  BillStatus = "due-soon"
	StatusOverdue  BillStatus = "overdue"
	StatusPaid     BillStatus = "paid"
)

// Bill sources.
const (
	SourceBill = "bill"
	SourceLoan = "loan"
)

type Bill struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"-" db:"user_id"`
	Title      string          `json:"title" db:"title"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Currency   string          `json:"currency" db:"currency"`
	DueDate    time.Time       `json:"dueDate" db:"due_date"`
	Frequency  Frequency       `json:"frequency" db:"frequency"`
	Category   string          `json:"category" db:"category"`
	AccountID  string          `json:"accountId" db:"account_id"`
	Paid       bool            `json:"paid" db:"paid"`
	LastPaidAt *time.Time      `json:"lastPaidAt,omitempty" db:"last_paid_at"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`

	// Computed fields
	Status BillStatus `json:"status" db:"-"`
	Source string     `json:"source" db:"-"`
	LoanID *string    `json:"loanId,omitempty" db:"-"`
}

type Loan struct {
	ID               string          `json:"id" db:"id"`
	UserID           string          `json:"-" db:"user_id"`
	Name             string          `json:"name" db:"name"`
	Principal        decimal.Decimal `json:"principal" db:"principal"`
	Balance          decimal.Decimal `json:"balance" db:"balance"`
	InterestRate     decimal.Decimal `json:"interestRate" db:"interest_rate"` // annual percent
	PaymentAmount    decimal.Decimal `json:"paymentAmount" db:"payment_amount"`
	PaymentFrequency Frequency       `json:"paymentFrequency" db:"payment_frequency"`
	NextDueDate      time.Time       `json:"nextDueDate" db:"next_due_date"`
	Currency         string          `json:"currency" db:"currency"`
	AccountID        string          `json:"accountId,omitempty" db:"account_id"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

type GoalStatus string

const (
	GoalActive   GoalStatus = "active"
	GoalAchieved GoalStatus = "achieved"
	GoalPaused   GoalStatus = "paused"
)

type Goal struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"-" db:"user_id"`
	Name            string          `json:"name" db:"name"`
	TargetAmount    decimal.Decimal `json:"targetAmount" db:"target_amount"`
	CurrentSaved    decimal.Decimal `json:"currentSaved" db:"current_saved"`
	LinkedAccountID *string         `json:"linkedAccountId,omitempty" db:"linked_account_id"`
	TargetDate      *time.Time      `json:"targetDate,omitempty" db:"target_date"`
	Status          GoalStatus      `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`

	// Computed fields
	Progress decimal.Decimal `json:"progress" db:"-"`
}

type SavingsPlan struct {
	ID               string          `json:"id" db:"id"`
	UserID           string          `json:"-" db:"user_id"`
	Name             string          `json:"name" db:"name"`
	AmountPerPeriod  decimal.Decimal `json:"amountPerPeriod" db:"amount_per_period"`
	Currency         string          `json:"currency" db:"currency"`
	Frequency        Frequency       `json:"frequency" db:"frequency"`
	TotalPeriods     int             `json:"totalPeriods" db:"total_periods"`
	PaymentsMade     int             `json:"paymentsMade" db:"payments_made"`
	TotalContributed decimal.Decimal `json:"totalContributed" db:"total_contributed"`
	StartDate        time.Time       `json:"startDate" db:"start_date"`
	NextDueDate      time.Time       `json:"nextDueDate" db:"-"` // derived from StartDate and PaymentsMade
	AccountID        *string         `json:"accountId,omitempty" db:"account_id"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// Completed reports whether every planned period has been contributed.
func (p SavingsPlan) Completed() bool {
	return p.TotalPeriods > 0 && p.PaymentsMade >= p.TotalPeriods
}
