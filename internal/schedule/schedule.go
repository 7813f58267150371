// Package schedule implements the calendar arithmetic behind bills, loans and
// savings plans: rolling a due date forward by a frequency and classifying a
// due date relative to today.
package schedule

import (
	"fmt"
	"time"

	"github.com/ledgerly/backend/internal/models"
)

// DueSoonDays is the inclusive window in which a due date counts as due soon.
const DueSoonDays = 3

// Stepper advances a date by n periods of one frequency.
type Stepper interface {
	Advance(date time.Time, n int) time.Time
}

type dayStepper struct{ days int }

func (s dayStepper) Advance(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, s.days*n)
}

// monthStepper moves by calendar months and clamps to the last day of the
// target month, so Jan 31 + 1 month is Feb 28 (or 29).
type monthStepper struct{ months int }

func (s monthStepper) Advance(date time.Time, n int) time.Time {
	return AddMonths(date, s.months*n)
}

type fixedStepper struct{}

func (fixedStepper) Advance(date time.Time, _ int) time.Time {
	return date
}

var steppers = map[models.Frequency]Stepper{
	models.OneTime:   fixedStepper{},
	models.Weekly:    dayStepper{days: 7},
	models.BiWeekly:  dayStepper{days: 14},
	models.Monthly:   monthStepper{months: 1},
	models.Quarterly: monthStepper{months: 3},
	models.Yearly:    monthStepper{months: 12},
}

// ValidFrequency reports whether f has a registered stepper.
func ValidFrequency(f models.Frequency) bool {
	_, ok := steppers[f]
	return ok
}

// Recurring reports whether f rolls forward after a payment.
func Recurring(f models.Frequency) bool {
	return ValidFrequency(f) && f != models.OneTime
}

// AdvanceDueDate moves date forward by periods steps of frequency f.
// Month-based steps are computed from the original date rather than chained,
// so the anchor day is preserved after a short month.
func AdvanceDueDate(date time.Time, f models.Frequency, periods int) (time.Time, error) {
	s, ok := steppers[f]
	if !ok {
		return date, fmt.Errorf("unknown frequency: %s", f)
	}
	if periods < 0 {
		return date, fmt.Errorf("periods must be non-negative, got %d", periods)
	}
	return s.Advance(date, periods), nil
}

// RewindDueDate moves date back by periods steps of frequency f. It undoes
// AdvanceDueDate except where a month step was clamped.
func RewindDueDate(date time.Time, f models.Frequency, periods int) (time.Time, error) {
	s, ok := steppers[f]
	if !ok {
		return date, fmt.Errorf("unknown frequency: %s", f)
	}
	if periods < 0 {
		return date, fmt.Errorf("periods must be non-negative, got %d", periods)
	}
	return s.Advance(date, -periods), nil
}

// AddMonths adds n calendar months to t, clamping the day to the length of
// the target month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	ty := y + total/12
	tm := total % 12
	if tm < 0 {
		tm += 12
		ty--
	}
	month := time.Month(tm + 1)
	if last := DaysIn(ty, month); d > last {
		d = last
	}
	return time.Date(ty, month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in month m of year y.
func DaysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil is the whole number of calendar days from today to due.
func DaysUntil(due, today time.Time) int {
	return int(Day(due).Sub(Day(today)).Hours() / 24)
}

// ComputeStatus classifies a due date: overdue once it has passed, due-soon
// within DueSoonDays, otherwise upcoming.
func ComputeStatus(due, today time.Time) models.BillStatus {
	return StatusWithin(due, today, DueSoonDays)
}

// StatusWithin is ComputeStatus with a caller-supplied due-soon window.
func StatusWithin(due, today time.Time, window int) models.BillStatus {
	days := DaysUntil(due, today)
	switch {
	case days < 0:
		return models.StatusOverdue
	case days <= window:
		return models.StatusDueSoon
	default:
		return models.StatusUpcoming
	}
}

// PeriodsPerYear returns how many payment periods of f fit in a year, or 0
// for frequencies that do not repeat.
func PeriodsPerYear(f models.Frequency) int {
	switch f {
	case models.Weekly:
		return 52
	case models.BiWeekly:
		return 26
	case models.Monthly:
		return 12
	case models.Quarterly:
		return 4
	case models.Yearly:
		return 1
	}
	return 0
}
