package exchange_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"coffeemarket/internal/exchange"
	"coffeemarket/internal/market"
)

func jsonResponse(t *testing.T, status int, v any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(v))
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(buffer),
	}
}

func TestFetchQuote(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "/api/v1/market/price/ARABICA/5", req.URL.Path)
			require.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))

			return jsonResponse(t, http.StatusOK, map[string]any{
				"variety":     "ARABICA",
				"grade":       5,
				"basePrice":   "5.00",
				"lastUpdated": "2025-06-15T10:00:00Z",
				"isActive":    true,
			}), nil
		}).
		Times(1)

	client, err := exchange.NewClient("test-key", exchange.WithHTTPClient(httpClient))
	require.NoError(t, err)

	q, err := client.FetchQuote(context.Background(), market.Arabica, 5)
	require.NoError(t, err)
	require.Equal(t, market.Arabica, q.Variety)
	require.Equal(t, 5, q.Grade)
	require.Equal(t, "5", q.BasePrice.String())
	require.Equal(t, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), q.LastUpdated)
	require.True(t, q.IsActive)
}

func TestFetchQuote_UnparseableTimestampYieldsZeroTime(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(t, http.StatusOK, map[string]any{
				"variety":     "ROBUSTA",
				"grade":       3,
				"basePrice":   3.25,
				"lastUpdated": "not-a-timestamp",
				"isActive":    true,
			}), nil
		}).
		Times(1)

	client, err := exchange.NewClient("", exchange.WithHTTPClient(httpClient))
	require.NoError(t, err)

	q, err := client.FetchQuote(context.Background(), market.Robusta, 3)
	require.NoError(t, err)
	require.True(t, q.LastUpdated.IsZero(), "garbage timestamps must map to the zero time")
}

func TestFetchQuote_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("error")
		}).
		Times(1)

	client, err := exchange.NewClient("", exchange.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.FetchQuote(context.Background(), market.Arabica, 5)
	require.Error(t, err)
}

func TestFetchQuote_ErrUnexpectedStatusCode(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusBadGateway,
				Body:       io.NopCloser(bytes.NewReader(nil)),
			}, nil
		}).
		Times(1)

	client, err := exchange.NewClient("", exchange.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.FetchQuote(context.Background(), market.Arabica, 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status code: 502")
}

func TestFetchSeasonalQuote(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/api/v1/market/price/TYPICA/8/seasonal", req.URL.Path)
			require.Equal(t, "4", req.URL.Query().Get("month"))

			return jsonResponse(t, http.StatusOK, map[string]any{
				"variety":       "TYPICA",
				"grade":         8,
				"basePrice":     "5.00",
				"seasonalPrice": "6.00",
				"multiplier":    "1.2",
				"month":         4,
				"lastUpdated":   "2025-06-15T10:00:00Z",
				"isActive":      true,
			}), nil
		}).
		Times(1)

	client, err := exchange.NewClient("", exchange.WithHTTPClient(httpClient))
	require.NoError(t, err)

	q, err := client.FetchSeasonalQuote(context.Background(), market.Typica, 8, 4)
	require.NoError(t, err)
	require.Equal(t, "6", q.SeasonalPrice.String())
	require.Equal(t, "1.2", q.Multiplier.String())
	require.Equal(t, 4, q.Month)
	require.True(t, q.SeasonalPrice.Equal(q.BasePrice.Mul(q.Multiplier)))
}

func TestFetchAllQuotes(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/api/v1/market/prices", req.URL.Path)
			return jsonResponse(t, http.StatusOK, map[string]any{
				"prices": []map[string]any{
					{"variety": "ARABICA", "grade": 5, "basePrice": "5.00", "lastUpdated": "2025-06-15T10:00:00Z", "isActive": true},
					{"variety": "ROBUSTA", "grade": 2, "basePrice": "3.10", "isActive": false},
				},
			}), nil
		}).
		Times(1)

	client, err := exchange.NewClient("", exchange.WithHTTPClient(httpClient))
	require.NoError(t, err)

	qs, err := client.FetchAllQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, qs, 2)
	require.Equal(t, market.Arabica, qs[0].Variety)
	require.True(t, qs[1].LastUpdated.IsZero())
}

func TestFetchSeasonalMultipliers(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/api/v1/market/seasonal-multipliers", req.URL.Path)
			return jsonResponse(t, http.StatusOK, map[string]any{
				"multipliers": map[string]any{"1": "0.9", "4": "1.2", "12": 1.0},
			}), nil
		}).
		Times(1)

	client, err := exchange.NewClient("", exchange.WithHTTPClient(httpClient))
	require.NoError(t, err)

	ms, err := client.FetchSeasonalMultipliers(context.Background())
	require.NoError(t, err)
	require.Len(t, ms, 3)
	require.Equal(t, "1.2", ms[4].String())
}

func TestComputeRevenue(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodPost, req.Method)
			require.Equal(t, "/api/v1/market/revenue-projection", req.URL.Path)
			require.Equal(t, "application/json", req.Header.Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			require.Equal(t, "GROVE-001", body["groveTokenId"])
			require.Equal(t, "ARABICA", body["variety"])

			return jsonResponse(t, http.StatusOK, map[string]any{
				"groveTokenId":     "GROVE-001",
				"variety":          "ARABICA",
				"grade":            5,
				"yieldKg":          "1000",
				"harvestMonth":     4,
				"basePrice":        "5.00",
				"multiplier":       "1.2",
				"seasonalPrice":    "6.00",
				"projectedRevenue": "6000.00",
				"lastUpdated":      "2025-06-15T10:00:00Z",
			}), nil
		}).
		Times(1)

	client, err := exchange.NewClient("", exchange.WithHTTPClient(httpClient))
	require.NoError(t, err)

	p, err := client.ComputeRevenue(context.Background(), market.ProjectionRequest{
		GroveToken:   "GROVE-001",
		Variety:      market.Arabica,
		Grade:        5,
		YieldKg:      decimal.RequireFromString("1000"),
		HarvestMonth: 4,
	})
	require.NoError(t, err)
	require.Equal(t, "GROVE-001", p.GroveToken)
	require.Equal(t, "6000", p.ProjectedRevenue.String())
	require.Equal(t, "6", p.SeasonalPrice.String())
}

func TestValidatePrice(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodPost, req.Method)
			require.Equal(t, "/api/v1/market/validate-price", req.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			require.Equal(t, "ARABICA", body["variety"])

			return jsonResponse(t, http.StatusOK, map[string]any{
				"isValid":     false,
				"marketPrice": "10.00",
				"minPrice":    "5.00",
				"maxPrice":    "20.00",
				"reason":      "price outside acceptable range",
				"lastUpdated": "2025-06-15T10:00:00Z",
			}), nil
		}).
		Times(1)

	client, err := exchange.NewClient("", exchange.WithHTTPClient(httpClient))
	require.NoError(t, err)

	v, err := client.ValidatePrice(context.Background(), market.Arabica, 5, decimal.RequireFromString("25.00"))
	require.NoError(t, err)
	require.False(t, v.IsValid)
	require.Equal(t, "10", v.MarketPrice.String())
	require.Equal(t, "price outside acceptable range", v.Reason)
}
