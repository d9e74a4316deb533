package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"coffeemarket/internal/market"
)

var _ market.QuoteSource = (*Client)(nil)

type quotePayload struct {
	Variety     string          `json:"variety"`
	Grade       int             `json:"grade"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	LastUpdated string          `json:"lastUpdated"`
	IsActive    bool            `json:"isActive"`
}

func (p quotePayload) toSourceQuote() market.SourceQuote {
	return market.SourceQuote{
		Variety:     market.Variety(p.Variety),
		Grade:       p.Grade,
		BasePrice:   p.BasePrice,
		LastUpdated: parseTimestamp(p.LastUpdated),
		IsActive:    p.IsActive,
	}
}

// FetchQuote retrieves the base quote for one variety and grade.
func (c *Client) FetchQuote(ctx context.Context, variety market.Variety, grade int) (market.SourceQuote, error) {
	path := fmt.Sprintf("/api/v1/market/price/%s/%d", url.PathEscape(string(variety)), grade)
	var p quotePayload
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &p); err != nil {
		return market.SourceQuote{}, err
	}
	return p.toSourceQuote(), nil
}

type seasonalQuotePayload struct {
	quotePayload
	SeasonalPrice decimal.Decimal `json:"seasonalPrice"`
	Multiplier    decimal.Decimal `json:"multiplier"`
	Month         int             `json:"month"`
}

// FetchSeasonalQuote retrieves the month-adjusted quote for one variety
// and grade.
func (c *Client) FetchSeasonalQuote(ctx context.Context, variety market.Variety, grade, month int) (market.SourceSeasonalQuote, error) {
	path := fmt.Sprintf("/api/v1/market/price/%s/%d/seasonal", url.PathEscape(string(variety)), grade)
	query := url.Values{"month": []string{strconv.Itoa(month)}}
	var p seasonalQuotePayload
	if err := c.do(ctx, http.MethodGet, path, query, nil, &p); err != nil {
		return market.SourceSeasonalQuote{}, err
	}
	return market.SourceSeasonalQuote{
		SourceQuote:   p.toSourceQuote(),
		SeasonalPrice: p.SeasonalPrice,
		Multiplier:    p.Multiplier,
		Month:         p.Month,
	}, nil
}

// FetchAllQuotes retrieves every (variety, grade) quote the exchange
// publishes in one call.
func (c *Client) FetchAllQuotes(ctx context.Context) ([]market.SourceQuote, error) {
	var body struct {
		Prices []quotePayload `json:"prices"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/market/prices", nil, nil, &body); err != nil {
		return nil, err
	}
	out := make([]market.SourceQuote, 0, len(body.Prices))
	for _, p := range body.Prices {
		out = append(out, p.toSourceQuote())
	}
	return out, nil
}

// FetchSeasonalMultipliers retrieves the month -> multiplier table for
// months 1-12.
func (c *Client) FetchSeasonalMultipliers(ctx context.Context) (map[int]decimal.Decimal, error) {
	var body struct {
		Multipliers map[string]decimal.Decimal `json:"multipliers"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/market/seasonal-multipliers", nil, nil, &body); err != nil {
		return nil, err
	}
	out := make(map[int]decimal.Decimal, len(body.Multipliers))
	for k, v := range body.Multipliers {
		m, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Wrapf(err, "unexpected multiplier month %q", k)
		}
		out[m] = v
	}
	return out, nil
}
