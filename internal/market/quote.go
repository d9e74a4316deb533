package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is the normalized quote shape returned to callers.
// IsStale is always computed locally against the staleness window and is
// never taken from the wire.
type PriceQuote struct {
	Variety     Variety         `json:"variety"`
	Grade       int             `json:"grade"`
	BasePrice   decimal.Decimal `json:"base_price"`
	LastUpdated time.Time       `json:"last_updated"`
	IsActive    bool            `json:"is_active"`
	IsStale     bool            `json:"is_stale"`
}

// SeasonalQuote is a PriceQuote adjusted by the month's multiplier.
// SeasonalPrice = BasePrice * Multiplier.
type SeasonalQuote struct {
	PriceQuote
	SeasonalPrice decimal.Decimal `json:"seasonal_price"`
	Multiplier    decimal.Decimal `json:"multiplier"`
	Month         int             `json:"month"`
}

// RevenueProjection is the seasonally adjusted revenue expectation for one
// grove token's harvest. Projections are derived per call and never cached.
type RevenueProjection struct {
	GroveToken       string          `json:"grove_token"`
	Variety          Variety         `json:"variety"`
	Grade            int             `json:"grade"`
	YieldKg          decimal.Decimal `json:"yield_kg"`
	HarvestMonth     int             `json:"harvest_month"`
	BasePrice        decimal.Decimal `json:"base_price"`
	Multiplier       decimal.Decimal `json:"multiplier"`
	SeasonalPrice    decimal.Decimal `json:"seasonal_price"`
	ProjectedRevenue decimal.Decimal `json:"projected_revenue"`
	LastUpdated      time.Time       `json:"last_updated"`
	IsStale          bool            `json:"is_stale"`
}

// ValidationResult is the outcome of checking a proposed sale price
// against the market price band.
type ValidationResult struct {
	Variety       Variety         `json:"variety"`
	Grade         int             `json:"grade"`
	ProposedPrice decimal.Decimal `json:"proposed_price"`
	IsValid       bool            `json:"is_valid"`
	MarketPrice   decimal.Decimal `json:"market_price"`
	MinPrice      decimal.Decimal `json:"min_price"`
	MaxPrice      decimal.Decimal `json:"max_price"`
	IsStale       bool            `json:"is_stale"`
	Reason        string          `json:"reason,omitempty"`
}

var (
	minPriceMultiplier = decimal.New(5, -1) // 0.5
	maxPriceMultiplier = decimal.New(2, 0)  // 2.0
)

// PriceRange returns the acceptable [50%, 200%] band around a market
// price. It is a pure helper for client-side pre-checks that avoid a
// round trip to the source.
func PriceRange(marketPrice decimal.Decimal) (minPrice, maxPrice decimal.Decimal) {
	return marketPrice.Mul(minPriceMultiplier), marketPrice.Mul(maxPriceMultiplier)
}
