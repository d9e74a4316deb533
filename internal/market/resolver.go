package market

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Policy constants. The cache re-validates a pair after CacheTTL; a quote
// older than StaleThreshold is reported stale regardless of what the
// source says about it.
const (
	CacheTTL       = 5 * time.Minute
	StaleThreshold = 24 * time.Hour
)

type cacheEntry struct {
	quote    PriceQuote
	cachedAt time.Time
}

// Resolver produces current prices for (variety, grade) pairs, caching
// fresh base quotes and exposing staleness to callers who must decide
// whether to act on old data. It owns its cache exclusively; entries live
// only as long as the resolver does.
type Resolver struct {
	source QuoteSource
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock injects the time source used for TTL and staleness checks.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the resolver's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a Resolver around the given quote source.
func NewResolver(source QuoteSource, opts ...Option) (*Resolver, error) {
	if source == nil {
		return nil, &ConfigurationError{Reason: "quote source is required"}
	}
	r := &Resolver{
		source: source,
		logger: zap.NewNop(),
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// stale reports whether a quote's timestamp has aged past the freshness
// window. A zero timestamp is infinitely old.
func (r *Resolver) stale(lastUpdated time.Time) bool {
	if lastUpdated.IsZero() {
		return true
	}
	return r.now().Sub(lastUpdated) > StaleThreshold
}

// cachedQuote returns a live, fresh cache entry for key. Expired entries
// and entries whose quote has crossed the staleness window since being
// cached are evicted on the spot.
func (r *Resolver) cachedQuote(key string) (PriceQuote, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache[key]
	if !ok {
		return PriceQuote{}, false
	}
	if r.now().Sub(e.cachedAt) > CacheTTL {
		delete(r.cache, key)
		return PriceQuote{}, false
	}
	if e.quote.IsStale || r.stale(e.quote.LastUpdated) {
		// Stale data is never served from cache.
		delete(r.cache, key)
		r.logger.Debug("evicted stale cache entry", zap.String("key", key))
		return PriceQuote{}, false
	}
	return e.quote, true
}

func (r *Resolver) storeQuote(key string, q PriceQuote) {
	if q.IsStale {
		return
	}
	r.mu.Lock()
	r.cache[key] = cacheEntry{quote: q, cachedAt: r.now()}
	r.mu.Unlock()
}

func (r *Resolver) evict(key string) {
	r.mu.Lock()
	delete(r.cache, key)
	r.mu.Unlock()
}

// GetQuote returns the current base quote for a variety and grade,
// serving from cache when a fresh entry is within its TTL. A stale result
// is returned to the caller but never cached, so the next call re-checks
// upstream.
func (r *Resolver) GetQuote(ctx context.Context, variety string, grade int) (PriceQuote, error) {
	v, err := ParseVariety(variety)
	if err != nil {
		return PriceQuote{}, err
	}
	if err := ValidateGrade(grade); err != nil {
		return PriceQuote{}, err
	}

	key := CacheKey(v, grade)
	if q, ok := r.cachedQuote(key); ok {
		r.logger.Debug("cache hit", zap.String("key", key))
		return q, nil
	}

	sq, err := r.source.FetchQuote(ctx, v, grade)
	if err != nil {
		return PriceQuote{}, &PriceFetchError{Op: "fetch quote", Variety: v, Grade: grade, Err: err}
	}

	q := PriceQuote{
		Variety:     v,
		Grade:       grade,
		BasePrice:   sq.BasePrice,
		LastUpdated: sq.LastUpdated,
		IsActive:    sq.IsActive,
		IsStale:     r.stale(sq.LastUpdated),
	}
	r.storeQuote(key, q)
	if q.IsStale {
		r.logger.Warn("quote is stale",
			zap.String("key", key),
			zap.Time("last_updated", q.LastUpdated))
	}
	return q, nil
}

// GetSeasonalQuote returns the month-adjusted quote for a variety and
// grade. Seasonal quotes are not cached; every call is a remote round trip.
func (r *Resolver) GetSeasonalQuote(ctx context.Context, variety string, grade, month int) (SeasonalQuote, error) {
	v, err := ParseVariety(variety)
	if err != nil {
		return SeasonalQuote{}, err
	}
	if err := ValidateGrade(grade); err != nil {
		return SeasonalQuote{}, err
	}
	if err := ValidateMonth(month); err != nil {
		return SeasonalQuote{}, err
	}

	sq, err := r.source.FetchSeasonalQuote(ctx, v, grade, month)
	if err != nil {
		return SeasonalQuote{}, &PriceFetchError{Op: "fetch seasonal quote", Variety: v, Grade: grade, Err: err}
	}

	return SeasonalQuote{
		PriceQuote: PriceQuote{
			Variety:     v,
			Grade:       grade,
			BasePrice:   sq.BasePrice,
			LastUpdated: sq.LastUpdated,
			IsActive:    sq.IsActive,
			IsStale:     r.stale(sq.LastUpdated),
		},
		SeasonalPrice: sq.SeasonalPrice,
		Multiplier:    sq.Multiplier,
		Month:         month,
	}, nil
}

// GetAllQuotes fetches every (variety, grade) quote the source knows in a
// single call, annotating each with a locally computed staleness flag.
// Results bypass the cache entirely.
func (r *Resolver) GetAllQuotes(ctx context.Context) ([]PriceQuote, error) {
	sqs, err := r.source.FetchAllQuotes(ctx)
	if err != nil {
		return nil, &PriceFetchError{Op: "fetch all quotes", Err: err}
	}
	out := make([]PriceQuote, 0, len(sqs))
	for _, sq := range sqs {
		out = append(out, PriceQuote{
			Variety:     sq.Variety,
			Grade:       sq.Grade,
			BasePrice:   sq.BasePrice,
			LastUpdated: sq.LastUpdated,
			IsActive:    sq.IsActive,
			IsStale:     r.stale(sq.LastUpdated),
		})
	}
	return out, nil
}

// GetSeasonalMultipliers returns the source's month -> multiplier table.
func (r *Resolver) GetSeasonalMultipliers(ctx context.Context) (map[int]decimal.Decimal, error) {
	ms, err := r.source.FetchSeasonalMultipliers(ctx)
	if err != nil {
		return nil, &PriceFetchError{Op: "fetch seasonal multipliers", Err: err}
	}
	return ms, nil
}

// ComputeRevenueProjection derives the seasonally adjusted revenue for a
// grove token's expected harvest. The cache entry for the pair is evicted
// before delegating so the projection can never ride on a mid-TTL quote;
// a fresh result repopulates the cache so a subsequent GetQuote benefits.
func (r *Resolver) ComputeRevenueProjection(ctx context.Context, groveToken, variety string, grade int, yieldKg decimal.Decimal, harvestMonth int) (RevenueProjection, error) {
	v, err := ParseVariety(variety)
	if err != nil {
		return RevenueProjection{}, err
	}
	if err := ValidateGrade(grade); err != nil {
		return RevenueProjection{}, err
	}
	if !yieldKg.IsPositive() {
		return RevenueProjection{}, &InvalidAmountError{Field: "yield", Input: yieldKg.String()}
	}
	if err := ValidateMonth(harvestMonth); err != nil {
		return RevenueProjection{}, err
	}

	key := CacheKey(v, grade)
	r.evict(key)

	sp, err := r.source.ComputeRevenue(ctx, ProjectionRequest{
		GroveToken:   groveToken,
		Variety:      v,
		Grade:        grade,
		YieldKg:      yieldKg,
		HarvestMonth: harvestMonth,
	})
	if err != nil {
		return RevenueProjection{}, &PriceFetchError{Op: "compute revenue", Variety: v, Grade: grade, Err: err}
	}

	isStale := r.stale(sp.LastUpdated)
	if isStale {
		r.evict(key)
	} else {
		r.storeQuote(key, PriceQuote{
			Variety:     v,
			Grade:       grade,
			BasePrice:   sp.BasePrice,
			LastUpdated: sp.LastUpdated,
			IsActive:    true,
		})
	}

	return RevenueProjection{
		GroveToken:       groveToken,
		Variety:          v,
		Grade:            grade,
		YieldKg:          yieldKg,
		HarvestMonth:     harvestMonth,
		BasePrice:        sp.BasePrice,
		Multiplier:       sp.Multiplier,
		SeasonalPrice:    sp.SeasonalPrice,
		ProjectedRevenue: sp.ProjectedRevenue,
		LastUpdated:      sp.LastUpdated,
		IsStale:          isStale,
	}, nil
}

// ValidateSalePrice checks a proposed transaction price against the
// market price band. The band verdict comes from the source; staleness of
// the underlying market price is recomputed locally.
func (r *Resolver) ValidateSalePrice(ctx context.Context, variety string, grade int, proposedPrice decimal.Decimal) (ValidationResult, error) {
	v, err := ParseVariety(variety)
	if err != nil {
		return ValidationResult{}, err
	}
	if err := ValidateGrade(grade); err != nil {
		return ValidationResult{}, err
	}
	if !proposedPrice.IsPositive() {
		return ValidationResult{}, &InvalidAmountError{Field: "proposed price", Input: proposedPrice.String()}
	}

	sv, err := r.source.ValidatePrice(ctx, v, grade, proposedPrice)
	if err != nil {
		return ValidationResult{}, &PriceFetchError{Op: "validate price", Variety: v, Grade: grade, Err: err}
	}

	return ValidationResult{
		Variety:       v,
		Grade:         grade,
		ProposedPrice: proposedPrice,
		IsValid:       sv.IsValid,
		MarketPrice:   sv.MarketPrice,
		MinPrice:      sv.MinPrice,
		MaxPrice:      sv.MaxPrice,
		IsStale:       r.stale(sv.LastUpdated),
		Reason:        sv.Reason,
	}, nil
}
