package fx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (p *stubProvider) Rate(_ context.Context, _, _ string) (decimal.Decimal, error) {
	p.calls++
	return p.rate, p.err
}

func TestService_GetRate_SameCurrency(t *testing.T) {
	p := &stubProvider{}
	s := NewService(p, nil, Options{}, zerolog.Nop())

	r := s.GetRate(context.Background(), "usd", "USD")
	assert.True(t, r.Rate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, SourceIdentity, r.Source)
	assert.Zero(t, p.calls)
}

func TestService_GetRate_LiveThenMemory(t *testing.T) {
	p := &stubProvider{rate: decimal.RequireFromString("0.85")}
	s := NewService(p, nil, Options{}, zerolog.Nop())
	ctx := context.Background()

	r := s.GetRate(ctx, "USD", "EUR")
	assert.Equal(t, SourceLive, r.Source)
	assert.True(t, r.Rate.Equal(decimal.RequireFromString("0.85")))

	r = s.GetRate(ctx, "USD", "EUR")
	assert.Equal(t, SourceMemory, r.Source)
	assert.Equal(t, 1, p.calls)
}

func TestService_GetRate_MemoryExpires(t *testing.T) {
	p := &stubProvider{rate: decimal.RequireFromString("0.85")}
	s := NewService(p, nil, Options{CacheTTL: 50 * time.Millisecond}, zerolog.Nop())

	s.GetRate(context.Background(), "USD", "EUR")
	time.Sleep(120 * time.Millisecond)
	r := s.GetRate(context.Background(), "USD", "EUR")

	assert.Equal(t, 2, p.calls)
	assert.Equal(t, SourceLive, r.Source)
}

func TestService_GetRate_Fallbacks(t *testing.T) {
	p := &stubProvider{err: errors.New("provider down")}
	s := NewService(p, nil, Options{}, zerolog.Nop())
	ctx := context.Background()

	t.Run("static table", func(t *testing.T) {
		r := s.GetRate(ctx, "USD", "GBP")
		assert.Equal(t, SourceStatic, r.Source)
		assert.True(t, r.Rate.Equal(decimal.RequireFromString("0.79")))
	})

	t.Run("static inverse", func(t *testing.T) {
		r := s.GetRate(ctx, "JPY", "USD")
		assert.Equal(t, SourceStatic, r.Source)
		assert.Equal(t, "0.00666667", r.Rate.String())
	})

	t.Run("unknown pair defaults to one", func(t *testing.T) {
		r := s.GetRate(ctx, "XAU", "XAG")
		assert.Equal(t, SourceDefault, r.Source)
		assert.True(t, r.Rate.Equal(decimal.NewFromInt(1)))
	})
}

func TestService_GetRate_Redis(t *testing.T) {
	ctx := context.Background()

	t.Run("miss fetches live and stores", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		p := &stubProvider{rate: decimal.RequireFromString("0.92")}
		s := NewService(p, rdb, Options{}, zerolog.Nop())

		mock.ExpectGet("fx:USD:EUR").RedisNil()
		mock.ExpectSet("fx:USD:EUR", "0.92", DefaultCacheTTL).SetVal("OK")

		r := s.GetRate(ctx, "USD", "EUR")
		assert.Equal(t, SourceLive, r.Source)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hit skips provider", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		p := &stubProvider{}
		s := NewService(p, rdb, Options{}, zerolog.Nop())

		mock.ExpectGet("fx:EUR:USD").SetVal("1.08")

		r := s.GetRate(ctx, "EUR", "USD")
		assert.Equal(t, SourceRedis, r.Source)
		assert.True(t, r.Rate.Equal(decimal.RequireFromString("1.08")))
		assert.Zero(t, p.calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error falls through", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		p := &stubProvider{rate: decimal.RequireFromString("0.5")}
		s := NewService(p, rdb, Options{}, zerolog.Nop())

		mock.ExpectGet("fx:CAD:CHF").SetErr(errors.New("connection refused"))
		mock.ExpectSet("fx:CAD:CHF", "0.5", DefaultCacheTTL).SetErr(errors.New("connection refused"))

		r := s.GetRate(ctx, "CAD", "CHF")
		assert.Equal(t, SourceLive, r.Source)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestService_MemoryCacheBounded(t *testing.T) {
	p := &stubProvider{rate: decimal.RequireFromString("2")}
	s := NewService(p, nil, Options{CacheSize: 2, CacheTTL: time.Minute}, zerolog.Nop())
	ctx := context.Background()

	s.GetRate(ctx, "USD", "EUR")
	s.GetRate(ctx, "USD", "GBP")
	s.GetRate(ctx, "USD", "EUR")
	s.GetRate(ctx, "USD", "JPY")
	require.Equal(t, 3, p.calls)
	assert.Equal(t, 2, s.cache.Len())

	assert.Equal(t, SourceMemory, s.GetRate(ctx, "USD", "EUR").Source)
	assert.Equal(t, SourceLive, s.GetRate(ctx, "USD", "GBP").Source)
}

func TestHTTPProvider_Rate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		if r.URL.Query().Get("to") == "XXX" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"USD","rates":{"EUR":0.9132}}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, time.Second)

	rate, err := p.Rate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.9132")))

	_, err = p.Rate(context.Background(), "USD", "XXX")
	assert.Error(t, err)
}
