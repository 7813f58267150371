package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerly/backend/internal/models"
)

// Bills

const billColumns = `id, user_id, title, amount, currency, due_date, frequency, category, account_id, paid, last_paid_at, created_at, updated_at`

func scanBill(s scanner) (models.Bill, error) {
	var (
		b        models.Bill
		lastPaid sql.NullTime
	)
	err := s.Scan(&b.ID, &b.UserID, &b.Title, &b.Amount, &b.Currency, &b.DueDate, &b.Frequency, &b.Category,
		&b.AccountID, &b.Paid, &lastPaid, &b.CreatedAt, &b.UpdatedAt)
	b.LastPaidAt = timePtr(lastPaid)
	b.Source = models.SourceBill
	return b, err
}

func (q *queries) GetBill(ctx context.Context, userID, id string) (models.Bill, error) {
	b, err := scanBill(q.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = $1 AND user_id = $2`+q.lockClause(), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Bill{}, notFound("bill", id)
	}
	if err != nil {
		return models.Bill{}, fmt.Errorf("get bill: %w", mapErr(err))
	}
	return b, nil
}

func (q *queries) ListBills(ctx context.Context, userID string) ([]models.Bill, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE user_id = $1 ORDER BY due_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", mapErr(err))
	}
	defer rows.Close()

	var out []models.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *queries) InsertBill(ctx context.Context, b models.Bill) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO bills (id, user_id, title, amount, currency, due_date, frequency, category,
			account_id, paid, last_paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`,
		b.ID, b.UserID, b.Title, b.Amount, b.Currency, b.DueDate, b.Frequency, b.Category,
		b.AccountID, b.Paid, nullTime(b.LastPaidAt))
	if err != nil {
		return fmt.Errorf("insert bill: %w", mapErr(err))
	}
	return nil
}

func (q *queries) UpdateBill(ctx context.Context, b models.Bill) error {
	return q.execOne(ctx, "bill", b.ID, `
		UPDATE bills
		SET title = $1, amount = $2, currency = $3, due_date = $4, frequency = $5, category = $6,
			account_id = $7, paid = $8, last_paid_at = $9, updated_at = NOW()
		WHERE id = $10 AND user_id = $11`,
		b.Title, b.Amount, b.Currency, b.DueDate, b.Frequency, b.Category,
		b.AccountID, b.Paid, nullTime(b.LastPaidAt), b.ID, b.UserID)
}

func (q *queries) DeleteBill(ctx context.Context, userID, id string) error {
	return q.execOne(ctx, "bill", id, `DELETE FROM bills WHERE id = $1 AND user_id = $2`, id, userID)
}

// Loans

const loanColumns = `id, user_id, name, principal, balance, interest_rate, payment_amount, payment_frequency, next_due_date, currency, account_id, created_at, updated_at`

func scanLoan(s scanner) (models.Loan, error) {
	var l models.Loan
	err := s.Scan(&l.ID, &l.UserID, &l.Name, &l.Principal, &l.Balance, &l.InterestRate, &l.PaymentAmount,
		&l.PaymentFrequency, &l.NextDueDate, &l.Currency, &l.AccountID, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (q *queries) GetLoan(ctx context.Context, userID, id string) (models.Loan, error) {
	l, err := scanLoan(q.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 AND user_id = $2`+q.lockClause(), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Loan{}, notFound("loan", id)
	}
	if err != nil {
		return models.Loan{}, fmt.Errorf("get loan: %w", mapErr(err))
	}
	return l, nil
}

func (q *queries) ListLoans(ctx context.Context, userID string) ([]models.Loan, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE user_id = $1 ORDER BY next_due_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", mapErr(err))
	}
	defer rows.Close()

	var out []models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (q *queries) InsertLoan(ctx context.Context, l models.Loan) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO loans (id, user_id, name, principal, balance, interest_rate, payment_amount,
			payment_frequency, next_due_date, currency, account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`,
		l.ID, l.UserID, l.Name, l.Principal, l.Balance, l.InterestRate, l.PaymentAmount,
		l.PaymentFrequency, l.NextDueDate, l.Currency, l.AccountID)
	if err != nil {
		return fmt.Errorf("insert loan: %w", mapErr(err))
	}
	return nil
}

func (q *queries) UpdateLoan(ctx context.Context, l models.Loan) error {
	return q.execOne(ctx, "loan", l.ID, `
		UPDATE loans
		SET name = $1, principal = $2, balance = $3, interest_rate = $4, payment_amount = $5,
			payment_frequency = $6, next_due_date = $7, currency = $8, account_id = $9, updated_at = NOW()
		WHERE id = $10 AND user_id = $11`,
		l.Name, l.Principal, l.Balance, l.InterestRate, l.PaymentAmount,
		l.PaymentFrequency, l.NextDueDate, l.Currency, l.AccountID, l.ID, l.UserID)
}

func (q *queries) DeleteLoan(ctx context.Context, userID, id string) error {
	return q.execOne(ctx, "loan", id, `DELETE FROM loans WHERE id = $1 AND user_id = $2`, id, userID)
}

// Goals

const goalColumns = `id, user_id, name, target_amount, current_saved, linked_account_id, target_date, status, created_at, updated_at`

func scanGoal(s scanner) (models.Goal, error) {
	var (
		g          models.Goal
		linked     sql.NullString
		targetDate sql.NullTime
	)
	err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentSaved, &linked,
		&targetDate, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	g.LinkedAccountID = strPtr(linked)
	g.TargetDate = timePtr(targetDate)
	return g, err
}

func (q *queries) GetGoal(ctx context.Context, userID, id string) (models.Goal, error) {
	g, err := scanGoal(q.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = $1 AND user_id = $2`+q.lockClause(), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Goal{}, notFound("goal", id)
	}
	if err != nil {
		return models.Goal{}, fmt.Errorf("get goal: %w", mapErr(err))
	}
	return g, nil
}

func (q *queries) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", mapErr(err))
	}
	defer rows.Close()

	var out []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (q *queries) InsertGoal(ctx context.Context, g models.Goal) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, name, target_amount, current_saved, linked_account_id,
			target_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		g.ID, g.UserID, g.Name, g.TargetAmount, g.CurrentSaved, nullString(g.LinkedAccountID),
		nullTime(g.TargetDate), g.Status)
	if err != nil {
		return fmt.Errorf("insert goal: %w", mapErr(err))
	}
	return nil
}

func (q *queries) UpdateGoal(ctx context.Context, g models.Goal) error {
	return q.execOne(ctx, "goal", g.ID, `
		UPDATE goals
		SET name = $1, target_amount = $2, current_saved = $3, linked_account_id = $4,
			target_date = $5, status = $6, updated_at = NOW()
		WHERE id = $7 AND user_id = $8`,
		g.Name, g.TargetAmount, g.CurrentSaved, nullString(g.LinkedAccountID),
		nullTime(g.TargetDate), g.Status, g.ID, g.UserID)
}

func (q *queries) DeleteGoal(ctx context.Context, userID, id string) error {
	return q.execOne(ctx, "goal", id, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, id, userID)
}

// Savings plans

const planColumns = `id, user_id, name, amount_per_period, currency, frequency, total_periods, payments_made, total_contributed, start_date, account_id, created_at, updated_at`

func scanPlan(s scanner) (models.SavingsPlan, error) {
	var (
		p       models.SavingsPlan
		account sql.NullString
	)
	err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.AmountPerPeriod, &p.Currency, &p.Frequency, &p.TotalPeriods,
		&p.PaymentsMade, &p.TotalContributed, &p.StartDate, &account, &p.CreatedAt, &p.UpdatedAt)
	p.AccountID = strPtr(account)
	return p, err
}

func (q *queries) GetSavingsPlan(ctx context.Context, userID, id string) (models.SavingsPlan, error) {
	p, err := scanPlan(q.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM savings_plans WHERE id = $1 AND user_id = $2`+q.lockClause(), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SavingsPlan{}, notFound("savings plan", id)
	}
	if err != nil {
		return models.SavingsPlan{}, fmt.Errorf("get savings plan: %w", mapErr(err))
	}
	return p, nil
}

func (q *queries) ListSavingsPlans(ctx context.Context, userID string) ([]models.SavingsPlan, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM savings_plans WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings plans: %w", mapErr(err))
	}
	defer rows.Close()

	var out []models.SavingsPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *queries) InsertSavingsPlan(ctx context.Context, p models.SavingsPlan) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO savings_plans (id, user_id, name, amount_per_period, currency, frequency, total_periods,
			payments_made, total_contributed, start_date, account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`,
		p.ID, p.UserID, p.Name, p.AmountPerPeriod, p.Currency, p.Frequency, p.TotalPeriods,
		p.PaymentsMade, p.TotalContributed, p.StartDate, nullString(p.AccountID))
	if err != nil {
		return fmt.Errorf("insert savings plan: %w", mapErr(err))
	}
	return nil
}

func (q *queries) UpdateSavingsPlan(ctx context.Context, p models.SavingsPlan) error {
	return q.execOne(ctx, "savings plan", p.ID, `
		UPDATE savings_plans
		SET name = $1, amount_per_period = $2, currency = $3, frequency = $4, total_periods = $5,
			payments_made = $6, total_contributed = $7, start_date = $8, account_id = $9, updated_at = NOW()
		WHERE id = $10 AND user_id = $11`,
		p.Name, p.AmountPerPeriod, p.Currency, p.Frequency, p.TotalPeriods,
		p.PaymentsMade, p.TotalContributed, p.StartDate, nullString(p.AccountID), p.ID, p.UserID)
}

func (q *queries) DeleteSavingsPlan(ctx context.Context, userID, id string) error {
	return q.execOne(ctx, "savings plan", id, `DELETE FROM savings_plans WHERE id = $1 AND user_id = $2`, id, userID)
}
