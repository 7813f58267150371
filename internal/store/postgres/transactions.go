package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerly/backend/internal/models"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, account_id, description, amount, type, date, category, loan_id, bill_id, savings_plan_id, related_transaction_id, fx_rate, fx_from, fx_to, converted_amount, deleted, created_at, updated_at`

func scanTransaction(s scanner) (models.Transaction, error) {
	var (
		t                             models.Transaction
		loanID, billID, planID, relID sql.NullString
		fxFrom, fxTo                  sql.NullString
		fxRate, converted             decimal.NullDecimal
	)
	err := s.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Description, &t.Amount, &t.Type, &t.Date, &t.Category,
		&loanID, &billID, &planID, &relID, &fxRate, &fxFrom, &fxTo, &converted,
		&t.Deleted, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Transaction{}, err
	}
	t.LoanID = strPtr(loanID)
	t.BillID = strPtr(billID)
	t.SavingsPlanID = strPtr(planID)
	t.RelatedTransactionID = strPtr(relID)
	if fxRate.Valid {
		t.FX = &models.FX{
			Rate:            fxRate.Decimal,
			From:            strings.TrimSpace(fxFrom.String),
			To:              strings.TrimSpace(fxTo.String),
			ConvertedAmount: converted.Decimal,
		}
	}
	return t, nil
}

func fxArgs(fx *models.FX) (decimal.NullDecimal, sql.NullString, sql.NullString, decimal.NullDecimal) {
	if fx == nil {
		return decimal.NullDecimal{}, sql.NullString{}, sql.NullString{}, decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(fx.Rate),
		sql.NullString{String: fx.From, Valid: true},
		sql.NullString{String: fx.To, Valid: true},
		decimal.NewNullDecimal(fx.ConvertedAmount)
}

func (q *queries) GetTransaction(ctx context.Context, userID, id string) (models.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2 AND NOT deleted`+q.lockClause(),
		id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, notFound("transaction", id)
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("get transaction: %w", mapErr(err))
	}
	return t, nil
}

func (q *queries) ListTransactions(ctx context.Context, userID string, f models.TransactionFilter) ([]models.Transaction, error) {
	where := []string{"user_id = $1", "NOT deleted"}
	args := []any{userID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.AccountID != "" {
		add("account_id = $%d", f.AccountID)
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.Category != "" {
		add("LOWER(category) = LOWER($%d)", f.Category)
	}
	if !f.From.IsZero() {
		add("date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("date <= $%d", f.To)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", mapErr(err))
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) InsertTransaction(ctx context.Context, t models.Transaction) error {
	rate, from, to, converted := fxArgs(t.FX)
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, account_id, description, amount, type, date, category,
			loan_id, bill_id, savings_plan_id, related_transaction_id, fx_rate, fx_from, fx_to,
			converted_amount, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, FALSE, NOW(), NOW())`,
		t.ID, t.UserID, t.AccountID, t.Description, t.Amount, t.Type, t.Date, t.Category,
		nullString(t.LoanID), nullString(t.BillID), nullString(t.SavingsPlanID), nullString(t.RelatedTransactionID),
		rate, from, to, converted)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", mapErr(err))
	}
	return nil
}

func (q *queries) UpdateTransaction(ctx context.Context, t models.Transaction) error {
	rate, from, to, converted := fxArgs(t.FX)
	return q.execOne(ctx, "transaction", t.ID, `
		UPDATE transactions
		SET account_id = $1, description = $2, amount = $3, type = $4, date = $5, category = $6,
			loan_id = $7, bill_id = $8, savings_plan_id = $9, related_transaction_id = $10, fx_rate = $11,
			fx_from = $12, fx_to = $13, converted_amount = $14, deleted = $15, updated_at = NOW()
		WHERE id = $16 AND user_id = $17 AND NOT deleted`,
		t.AccountID, t.Description, t.Amount, t.Type, t.Date, t.Category,
		nullString(t.LoanID), nullString(t.BillID), nullString(t.SavingsPlanID), nullString(t.RelatedTransactionID),
		rate, from, to, converted, t.Deleted, t.ID, t.UserID)
}

func (q *queries) DeleteTransactionsByAccount(ctx context.Context, userID, accountID string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE account_id = $1 AND user_id = $2`, accountID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", mapErr(err))
	}
	return res.RowsAffected()
}

func (q *queries) InsertLedgerEntry(ctx context.Context, e models.LedgerEntry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (user_id, transaction_id, account_id, amount, entry_type, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		e.UserID, e.TransactionID, e.AccountID, e.Amount, e.EntryType, e.Balance)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", mapErr(err))
	}
	return nil
}

func (q *queries) ListLedgerEntries(ctx context.Context, userID, accountID string) ([]models.LedgerEntry, error) {
	query := `SELECT id, user_id, transaction_id, account_id, amount, entry_type, balance, created_at
		FROM ledger_entries WHERE user_id = $1`
	args := []any{userID}
	if accountID != "" {
		query += ` AND account_id = $2`
		args = append(args, accountID)
	}
	query += ` ORDER BY id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", mapErr(err))
	}
	defer rows.Close()

	var out []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.TransactionID, &e.AccountID, &e.Amount, &e.EntryType, &e.Balance, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
