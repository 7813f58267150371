// Package fx resolves currency exchange rates for cross-currency
// transactions and transfers.
package fx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Source names which tier answered a lookup.
type Source string

const (
	SourceIdentity Source = "identity"
	SourceMemory   Source = "memory"
	SourceRedis    Source = "redis"
	SourceLive     Source = "live"
	SourceStatic   Source = "static"
	SourceDefault  Source = "default"
)

type Rate struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Rate   decimal.Decimal `json:"rate"`
	Source Source          `json:"source"`
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	CacheTTL  time.Duration
	CacheSize int
	Static    map[string]decimal.Decimal
}

const (
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 256
)

// Service looks rates up through an in-process cache, an optional redis
// cache, the live provider and finally a static table. It never fails: when
// nothing knows the pair the rate is 1.
type Service struct {
	provider RateProvider
	redis    *redis.Client
	cache    *expirable.LRU[string, decimal.Decimal]
	ttl      time.Duration
	static   map[string]decimal.Decimal
	log      zerolog.Logger
}

func NewService(provider RateProvider, rdb *redis.Client, opts Options, log zerolog.Logger) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Static == nil {
		opts.Static = StaticRates()
	}
	return &Service{
		provider: provider,
		redis:    rdb,
		cache:    expirable.NewLRU[string, decimal.Decimal](opts.CacheSize, nil, opts.CacheTTL),
		ttl:      opts.CacheTTL,
		static:   opts.Static,
		log:      log.With().Str("component", "fx").Logger(),
	}
}

func pairKey(from, to string) string {
	return from + ":" + to
}

func redisKey(from, to string) string {
	return fmt.Sprintf("fx:%s:%s", from, to)
}

// GetRate returns the multiplier converting one unit of from into to.
func (s *Service) GetRate(ctx context.Context, from, to string) Rate {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	r := Rate{From: from, To: to}

	if from == to {
		r.Rate, r.Source = decimal.NewFromInt(1), SourceIdentity
		return r
	}

	key := pairKey(from, to)
	if rate, ok := s.cache.Get(key); ok {
		r.Rate, r.Source = rate, SourceMemory
		return r
	}

	if rate, ok := s.fromRedis(ctx, from, to); ok {
		s.cache.Add(key, rate)
		r.Rate, r.Source = rate, SourceRedis
		return r
	}

	if s.provider != nil {
		rate, err := s.provider.Rate(ctx, from, to)
		if err == nil {
			s.cache.Add(key, rate)
			s.toRedis(ctx, from, to, rate)
			r.Rate, r.Source = rate, SourceLive
			return r
		}
		s.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("live rate lookup failed, using fallback")
	}

	if rate, ok := s.staticRate(from, to); ok {
		r.Rate, r.Source = rate, SourceStatic
		return r
	}

	s.log.Warn().Str("from", from).Str("to", to).Msg("no rate known for pair, defaulting to 1")
	r.Rate, r.Source = decimal.NewFromInt(1), SourceDefault
	return r
}

func (s *Service) fromRedis(ctx context.Context, from, to string) (decimal.Decimal, bool) {
	if s.redis == nil {
		return decimal.Zero, false
	}

	val, err := s.redis.Get(ctx, redisKey(from, to)).Result()
	if err == redis.Nil {
		return decimal.Zero, false
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("redis rate lookup failed")
		return decimal.Zero, false
	}

	rate, err := decimal.NewFromString(val)
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, false
	}
	return rate, true
}

func (s *Service) toRedis(ctx context.Context, from, to string, rate decimal.Decimal) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, redisKey(from, to), rate.String(), s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("redis rate store failed")
	}
}

func (s *Service) staticRate(from, to string) (decimal.Decimal, bool) {
	if rate, ok := s.static[pairKey(from, to)]; ok {
		return rate, true
	}
	if inv, ok := s.static[pairKey(to, from)]; ok && inv.IsPositive() {
		return decimal.NewFromInt(1).DivRound(inv, 8), true
	}
	return decimal.Zero, false
}

// StaticRates is the offline table used when no live rate is available.
func StaticRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"USD:EUR": decimal.RequireFromString("0.92"),
		"USD:GBP": decimal.RequireFromString("0.79"),
		"USD:JPY": decimal.RequireFromString("150"),
		"USD:CAD": decimal.RequireFromString("1.36"),
		"USD:AUD": decimal.RequireFromString("1.52"),
		"USD:CHF": decimal.RequireFromString("0.88"),
		"USD:INR": decimal.RequireFromString("83"),
		"USD:NGN": decimal.RequireFromString("1500"),
		"EUR:GBP": decimal.RequireFromString("0.86"),
	}
}
