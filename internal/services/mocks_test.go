package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ledgerly/backend/internal/audit"
	"github.com/ledgerly/backend/internal/auth"
	"github.com/ledgerly/backend/internal/fx"
	"github.com/ledgerly/backend/internal/logger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/ledgerly/backend/internal/store"
	"github.com/ledgerly/backend/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) GetRate(ctx context.Context, from, to string) fx.Rate {
	args := m.Called(from, to)
	return fx.Rate{From: from, To: to, Rate: args.Get(0).(decimal.Decimal), Source: fx.SourceLive}
}

// failingStore fails every RunInTx after fn has run, so tests can check that
// nothing fn wrote survives.
type failingStore struct {
	store.Store
	err error
}

func (f *failingStore) RunInTx(ctx context.Context, fn func(q store.Queries) error) error {
	return f.Store.RunInTx(ctx, func(q store.Queries) error {
		if err := fn(q); err != nil {
			return err
		}
		return f.err
	})
}

// gateStore holds every GetAccount call until two callers are waiting, so
// two requests pass their pre-transaction reads before either commits.
type gateStore struct {
	store.Store
	mu      sync.Mutex
	waiting int
	release chan struct{}
}

func newGateStore(st store.Store) *gateStore {
	return &gateStore{Store: st, release: make(chan struct{})}
}

// gatedDeps shares the fixture's store behind a gateStore. Logs are
// discarded since the fixture buffers are not safe for concurrent writers.
func (f *fixture) gatedDeps() Deps {
	deps := f.deps
	deps.Store = newGateStore(f.store)
	deps.Audit = audit.NewAuditLogger(logger.NewWithWriter(io.Discard))
	deps.Log = logger.NewWithWriter(io.Discard)
	return deps
}

func (g *gateStore) GetAccount(ctx context.Context, userID, id string) (models.Account, error) {
	g.mu.Lock()
	g.waiting++
	if g.waiting == 2 {
		close(g.release)
	}
	g.mu.Unlock()
	<-g.release
	return g.Store.GetAccount(ctx, userID, id)
}

// race runs fn twice concurrently and returns both errors.
func race(fn func() error) []error {
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fn()
		}(i)
	}
	wg.Wait()
	return errs
}

var testToday = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	deps  Deps
	audit *bytes.Buffer
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	buf := &bytes.Buffer{}
	seq := 0
	deps := Deps{
		Store: st,
		Audit: audit.NewAuditLogger(logger.NewWithWriter(buf)),
		Log:   logger.NewWithWriter(&bytes.Buffer{}),
		Now:   func() time.Time { return testToday },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	}
	return &fixture{
		store: st,
		deps:  deps,
		audit: buf,
		ctx:   auth.WithUserID(context.Background(), "user-1"),
	}
}

func (f *fixture) account(t *testing.T, name string, typ models.AccountType, currency, balance string) models.Account {
	t.Helper()
	req := CreateAccountRequest{Name: name, Type: typ, Currency: currency, Balance: d(balance)}
	if typ == models.AccountCredit {
		req.CreditLimit = d("5000")
	}
	acct, err := NewAccountService(f.deps).Create(f.ctx, req)
	require.NoError(t, err)
	return acct
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	acct, err := f.store.GetAccount(f.ctx, "user-1", id)
	require.NoError(t, err)
	return acct.Balance
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return v
}

func ptr[T any](v T) *T {
	return &v
}
