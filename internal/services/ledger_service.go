package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerly/backend/internal/audit"
	"github.com/ledgerly/backend/internal/auth"
	"github.com/ledgerly/backend/internal/fx"
	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/schedule"
	"github.com/ledgerly/backend/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Store store.Store
	Audit *audit.AuditLogger
	Log   zerolog.Logger
	Now   func() time.Time
	NewID func() string
}

func (d Deps) withDefaults() Deps {
	if d.Audit == nil {
		d.Audit = audit.NewAuditLogger(d.Log)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}

func (d Deps) today() time.Time {
	return dayOf(d.Now())
}

// currentUser returns the authenticated user or ErrNotAuthenticated.
func currentUser(ctx context.Context) (string, error) {
	id, ok := auth.CurrentUserID(ctx)
	if !ok {
		return "", ledger.ErrNotAuthenticated
	}
	return id, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ledger.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

type effect struct {
	txID      string
	accountID string
	op        string
	delta     decimal.Decimal
	balance   decimal.Decimal
}

// posting applies balance deltas inside one store transaction. Every delta
// is written through the version-checked account update and recorded as a
// ledger entry; the effects are audited once the transaction commits.
type posting struct {
	q        store.Queries
	userID   string
	now      time.Time
	accounts map[string]models.Account
	effects  []effect
}

// lock loads accounts in id order. Accounts already locked are kept.
func (p *posting) lock(ctx context.Context, ids ...string) error {
	var missing []string
	for _, id := range ids {
		if _, ok := p.accounts[id]; !ok && id != "" {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	locked, err := p.q.LockAccounts(ctx, p.userID, missing...)
	if err != nil {
		return err
	}
	for id, a := range locked {
		p.accounts[id] = a
	}
	return nil
}

func (p *posting) account(ctx context.Context, id string) (models.Account, error) {
	if err := p.lock(ctx, id); err != nil {
		return models.Account{}, err
	}
	return p.accounts[id], nil
}

// apply adds delta to the account's balance and journals it against txID.
func (p *posting) apply(ctx context.Context, accountID, txID, op string, delta decimal.Decimal) (models.Account, error) {
	return p.write(ctx, accountID, txID, op, delta, func(a models.Account) models.Account {
		return ledger.ApplyDelta(a, delta)
	})
}

// reverse undoes the stored signed amount of t.
func (p *posting) reverse(ctx context.Context, t models.Transaction) (models.Account, error) {
	return p.write(ctx, t.AccountID, t.ID, "reverse", t.Amount.Neg(), func(a models.Account) models.Account {
		return ledger.ReverseDelta(a, t.Amount)
	})
}

// write stores next(account) and journals delta, which must be the balance
// change next makes.
func (p *posting) write(ctx context.Context, accountID, txID, op string, delta decimal.Decimal, next func(models.Account) models.Account) (models.Account, error) {
	acct, err := p.account(ctx, accountID)
	if err != nil {
		return models.Account{}, err
	}

	updated, err := p.q.UpdateAccount(ctx, next(acct))
	if err != nil {
		return models.Account{}, fmt.Errorf("update balance of account %s: %w", accountID, err)
	}
	p.accounts[accountID] = updated

	entry := models.LedgerEntry{
		UserID:        p.userID,
		TransactionID: txID,
		AccountID:     accountID,
		Amount:        delta,
		EntryType:     ledger.EntryType(delta),
		Balance:       updated.Balance,
		CreatedAt:     p.now,
	}
	if err := p.q.InsertLedgerEntry(ctx, entry); err != nil {
		return models.Account{}, fmt.Errorf("record ledger entry: %w", err)
	}

	p.effects = append(p.effects, effect{
		txID:      txID,
		accountID: accountID,
		op:        op,
		delta:     delta,
		balance:   updated.Balance,
	})
	return updated, nil
}

// post runs fn in one store transaction. Nothing fn wrote is visible unless
// it returns nil.
func (d Deps) post(ctx context.Context, userID string, fn func(p *posting) error) error {
	var committed *posting
	err := d.Store.RunInTx(ctx, func(q store.Queries) error {
		p := &posting{
			q:        q,
			userID:   userID,
			now:      d.Now(),
			accounts: make(map[string]models.Account),
		}
		if err := fn(p); err != nil {
			return err
		}
		committed = p
		return nil
	})
	if err != nil {
		if !errors.Is(err, ledger.ErrInvalidArgument) && !errors.Is(err, ledger.ErrNotFound) {
			d.Audit.LogError(userID, "", "", err)
		}
		return err
	}

	for _, e := range committed.effects {
		d.Audit.LogBalanceEffect(userID, e.txID, e.accountID, e.op, e.delta, e.balance)
	}
	return nil
}

// resolveFX converts amount, expressed in currency from, into the paying
// account's currency. A zero rate is looked up; a negative one is rejected.
func resolveFX(ctx context.Context, rates RateSource, amount, rate decimal.Decimal, from, to string) (*models.FX, error) {
	q, err := quoteFX(ctx, rates, rate, from, to)
	if err != nil {
		return nil, err
	}
	return q.convert(amount)
}

// fxQuote is a rate fixed before a store transaction opens so the amount,
// which may depend on rows read inside it, is converted there.
type fxQuote struct {
	rate     decimal.Decimal
	from, to string
}

// quoteFX returns nil when from and to are the same currency.
func quoteFX(ctx context.Context, rates RateSource, rate decimal.Decimal, from, to string) (*fxQuote, error) {
	if from == "" || equalCurrency(from, to) {
		return nil, nil
	}
	if rate.IsNegative() {
		return nil, invalid("fx rate must be positive")
	}
	if rate.IsZero() {
		if rates == nil {
			return nil, invalid("fx rate required for %s->%s", from, to)
		}
		rate = rates.GetRate(ctx, from, to).Rate
	}
	return &fxQuote{rate: rate, from: from, to: to}, nil
}

func (q *fxQuote) convert(amount decimal.Decimal) (*models.FX, error) {
	if q == nil {
		return nil, nil
	}
	return ledger.Convert(amount, q.rate, q.from, q.to)
}

// originalAmount is the magnitude of t in the currency it was entered in:
// the loan, bill or plan currency for converted payments.
func originalAmount(t models.Transaction) decimal.Decimal {
	if t.FX != nil && t.FX.Rate.IsPositive() {
		return t.FX.ConvertedAmount.DivRound(t.FX.Rate, 4)
	}
	return t.Amount.Abs()
}

// RateSource is the currency-rate lookup consulted when a caller omits a
// cross-currency rate. *fx.Service satisfies it.
type RateSource interface {
	GetRate(ctx context.Context, from, to string) fx.Rate
}

func normalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

func equalCurrency(a, b string) bool {
	return normalizeCurrency(a) == normalizeCurrency(b)
}

func dayOf(t time.Time) time.Time {
	return schedule.Day(t)
}

// dateOr returns the calendar day of t, or of fallback when t is zero.
func dateOr(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return dayOf(fallback)
	}
	return dayOf(t)
}

func positive(name string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return invalid("%s must be positive", name)
	}
	return nil
}
