package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/lib/pq"
)

const accountColumns = `id, user_id, name, type, currency, balance, credit_limit, statement_date, statement_due_date, statement_amount, version, created_at, updated_at`

func scanAccount(s scanner) (models.Account, error) {
	var (
		a               models.Account
		stmtDay, dueDay sql.NullInt64
	)
	err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Currency, &a.Balance, &a.CreditLimit,
		&stmtDay, &dueDay, &a.StatementAmount, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.Account{}, err
	}
	a.StatementDate = intPtr(stmtDay)
	a.StatementDueDate = intPtr(dueDay)
	return ledger.Derive(a), nil
}

func (q *queries) GetAccount(ctx context.Context, userID, id string) (models.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND user_id = $2`+q.lockClause(),
		id, userID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, notFound("account", id)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("get account: %w", mapErr(err))
	}
	return a, nil
}

func (q *queries) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", mapErr(err))
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *queries) InsertAccount(ctx context.Context, a models.Account) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, type, currency, balance, credit_limit,
			statement_date, statement_due_date, statement_amount, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, NOW(), NOW())`,
		a.ID, a.UserID, a.Name, a.Type, a.Currency, a.Balance, a.CreditLimit,
		nullInt(a.StatementDate), nullInt(a.StatementDueDate), a.StatementAmount)
	if err != nil {
		return fmt.Errorf("insert account: %w", mapErr(err))
	}
	return nil
}

func (q *queries) UpdateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	err := q.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET name = $1, currency = $2, balance = $3, credit_limit = $4, statement_date = $5,
			statement_due_date = $6, statement_amount = $7, version = version + 1, updated_at = NOW()
		WHERE id = $8 AND user_id = $9 AND version = $10
		RETURNING version, updated_at`,
		a.Name, a.Currency, a.Balance, a.CreditLimit, nullInt(a.StatementDate),
		nullInt(a.StatementDueDate), a.StatementAmount, a.ID, a.UserID, a.Version,
	).Scan(&a.Version, &a.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := q.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1 AND user_id = $2)`,
			a.ID, a.UserID).Scan(&exists); err != nil {
			return models.Account{}, fmt.Errorf("update account: %w", mapErr(err))
		}
		if !exists {
			return models.Account{}, notFound("account", a.ID)
		}
		return models.Account{}, fmt.Errorf("optimistic lock failed for account %s: %w", a.ID, ledger.ErrConflict)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("update account: %w", mapErr(err))
	}
	return ledger.Derive(a), nil
}

func (q *queries) DeleteAccount(ctx context.Context, userID, id string) error {
	return q.execOne(ctx, "account", id,
		`DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, userID)
}

// LockAccounts selects FOR UPDATE ordered by id so concurrent callers
// always acquire row locks in the same order.
func (q *queries) LockAccounts(ctx context.Context, userID string, ids ...string) (map[string]models.Account, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 AND id = ANY($2) ORDER BY id`+q.lockClause(),
		userID, pq.Array(uniq))
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", mapErr(err))
	}
	defer rows.Close()

	out := make(map[string]models.Account, len(uniq))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range uniq {
		if _, ok := out[id]; !ok {
			return nil, notFound("account", id)
		}
	}
	return out, nil
}
