package exchange

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"coffeemarket/internal/market"
)

type projectionRequestPayload struct {
	GroveTokenID string          `json:"groveTokenId"`
	Variety      string          `json:"variety"`
	Grade        int             `json:"grade"`
	YieldKg      decimal.Decimal `json:"yieldKg"`
	HarvestMonth int             `json:"harvestMonth"`
}

type projectionPayload struct {
	GroveTokenID     string          `json:"groveTokenId"`
	Variety          string          `json:"variety"`
	Grade            int             `json:"grade"`
	YieldKg          decimal.Decimal `json:"yieldKg"`
	HarvestMonth     int             `json:"harvestMonth"`
	BasePrice        decimal.Decimal `json:"basePrice"`
	Multiplier       decimal.Decimal `json:"multiplier"`
	SeasonalPrice    decimal.Decimal `json:"seasonalPrice"`
	ProjectedRevenue decimal.Decimal `json:"projectedRevenue"`
	LastUpdated      string          `json:"lastUpdated"`
}

// ComputeRevenue asks the exchange to price a grove token's expected
// harvest: base price lookup, seasonal adjustment and yield multiplication
// all happen server-side; the full breakdown comes back.
func (c *Client) ComputeRevenue(ctx context.Context, req market.ProjectionRequest) (market.SourceProjection, error) {
	payload := projectionRequestPayload{
		GroveTokenID: req.GroveToken,
		Variety:      string(req.Variety),
		Grade:        req.Grade,
		YieldKg:      req.YieldKg,
		HarvestMonth: req.HarvestMonth,
	}
	var p projectionPayload
	if err := c.do(ctx, http.MethodPost, "/api/v1/market/revenue-projection", nil, payload, &p); err != nil {
		return market.SourceProjection{}, err
	}
	return market.SourceProjection{
		GroveToken:       p.GroveTokenID,
		Variety:          market.Variety(p.Variety),
		Grade:            p.Grade,
		YieldKg:          p.YieldKg,
		HarvestMonth:     p.HarvestMonth,
		BasePrice:        p.BasePrice,
		Multiplier:       p.Multiplier,
		SeasonalPrice:    p.SeasonalPrice,
		ProjectedRevenue: p.ProjectedRevenue,
		LastUpdated:      parseTimestamp(p.LastUpdated),
	}, nil
}

type validatePricePayload struct {
	Variety       string          `json:"variety"`
	Grade         int             `json:"grade"`
	ProposedPrice decimal.Decimal `json:"proposedPrice"`
}

type validationPayload struct {
	IsValid     bool            `json:"isValid"`
	MarketPrice decimal.Decimal `json:"marketPrice"`
	MinPrice    decimal.Decimal `json:"minPrice"`
	MaxPrice    decimal.Decimal `json:"maxPrice"`
	Reason      string          `json:"reason"`
	LastUpdated string          `json:"lastUpdated"`
}

// ValidatePrice asks the exchange whether a proposed sale price falls
// inside the acceptable band around the current market price.
func (c *Client) ValidatePrice(ctx context.Context, variety market.Variety, grade int, proposed decimal.Decimal) (market.SourceValidation, error) {
	payload := validatePricePayload{
		Variety:       string(variety),
		Grade:         grade,
		ProposedPrice: proposed,
	}
	var p validationPayload
	if err := c.do(ctx, http.MethodPost, "/api/v1/market/validate-price", nil, payload, &p); err != nil {
		return market.SourceValidation{}, err
	}
	return market.SourceValidation{
		IsValid:     p.IsValid,
		MarketPrice: p.MarketPrice,
		MinPrice:    p.MinPrice,
		MaxPrice:    p.MaxPrice,
		Reason:      p.Reason,
		LastUpdated: parseTimestamp(p.LastUpdated),
	}, nil
}
