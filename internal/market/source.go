package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SourceQuote is a base quote as reported by the quote source.
// A zero LastUpdated means the source did not supply a usable timestamp;
// staleness handling treats such quotes as infinitely old.
type SourceQuote struct {
	Variety     Variety
	Grade       int
	BasePrice   decimal.Decimal
	LastUpdated time.Time
	IsActive    bool
}

// SourceSeasonalQuote is a seasonally adjusted quote from the source.
type SourceSeasonalQuote struct {
	SourceQuote
	SeasonalPrice decimal.Decimal
	Multiplier    decimal.Decimal
	Month         int
}

// ProjectionRequest asks the source to compute a revenue projection for a
// grove token's expected harvest.
type ProjectionRequest struct {
	GroveToken   string
	Variety      Variety
	Grade        int
	YieldKg      decimal.Decimal
	HarvestMonth int
}

// SourceProjection is the source's full projection breakdown.
type SourceProjection struct {
	GroveToken       string
	Variety          Variety
	Grade            int
	YieldKg          decimal.Decimal
	HarvestMonth     int
	BasePrice        decimal.Decimal
	Multiplier       decimal.Decimal
	SeasonalPrice    decimal.Decimal
	ProjectedRevenue decimal.Decimal
	LastUpdated      time.Time
}

// SourceValidation is the source's verdict on a proposed sale price.
type SourceValidation struct {
	IsValid     bool
	MarketPrice decimal.Decimal
	MinPrice    decimal.Decimal
	MaxPrice    decimal.Decimal
	Reason      string
	LastUpdated time.Time
}

// QuoteSource is the remote price service boundary. Transport,
// authentication and retry policy all live behind it.
type QuoteSource interface {
	FetchQuote(ctx context.Context, variety Variety, grade int) (SourceQuote, error)
	FetchSeasonalQuote(ctx context.Context, variety Variety, grade, month int) (SourceSeasonalQuote, error)
	FetchAllQuotes(ctx context.Context) ([]SourceQuote, error)
	FetchSeasonalMultipliers(ctx context.Context) (map[int]decimal.Decimal, error)
	ComputeRevenue(ctx context.Context, req ProjectionRequest) (SourceProjection, error)
	ValidatePrice(ctx context.Context, variety Variety, grade int, proposed decimal.Decimal) (SourceValidation, error)
}
