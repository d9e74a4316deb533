package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coffeemarket/internal/config"
	"coffeemarket/internal/exchange"
	"coffeemarket/internal/httpx"
	"coffeemarket/internal/market"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if cfg.Exchange.APIKey == "" {
		logger.Warn("EXCHANGE_API_KEY not set; exchange may reject requests")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	opts := []exchange.ClientOption{
		exchange.WithBaseURL(cfg.Exchange.Endpoint),
		exchange.WithHTTPClient(httpClient.HTTP),
		exchange.WithHeader(http.Header{"User-Agent": []string{httpClient.UserAgent}}),
	}
	if cfg.Exchange.MaxRequestsPerMinute > 0 {
		opts = append(opts, exchange.WithRateLimit(cfg.Exchange.MaxRequestsPerMinute, cfg.Exchange.Burst))
	} else if cfg.Exchange.MinRequestIntervalSec > 0 {
		opts = append(opts, exchange.WithMinInterval(time.Duration(cfg.Exchange.MinRequestIntervalSec)*time.Second))
	}
	client, err := exchange.NewClient(cfg.Exchange.APIKey, opts...)
	if err != nil {
		logger.Fatal("exchange client", zap.Error(err))
	}

	resolver, err := market.NewResolver(client, market.WithLogger(logger))
	if err != nil {
		logger.Fatal("resolver", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/price", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodGet, func() { handleGetPrice(w, r, resolver) })
	})
	mux.HandleFunc("/api/price/seasonal", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodGet, func() { handleGetSeasonalPrice(w, r, resolver) })
	})
	mux.HandleFunc("/api/prices", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodGet, func() { handleGetAllPrices(w, r, resolver) })
	})
	mux.HandleFunc("/api/seasonal-multipliers", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodGet, func() { handleGetMultipliers(w, r, resolver) })
	})
	mux.HandleFunc("/api/revenue-projection", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodPost, func() { handleProjection(w, r, resolver) })
	})
	mux.HandleFunc("/api/validate-price", func(w http.ResponseWriter, r *http.Request) {
		requireMethod(w, r, http.MethodPost, func() { handleValidatePrice(w, r, resolver) })
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(recoverPanic(logger, mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string, next func()) {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	next()
}

func handleGetPrice(w http.ResponseWriter, r *http.Request, resolver *market.Resolver) {
	grade, err := market.ParseGrade(r.URL.Query().Get("grade"))
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := resolver.GetQuote(r.Context(), r.URL.Query().Get("variety"), grade)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, q)
}

func handleGetSeasonalPrice(w http.ResponseWriter, r *http.Request, resolver *market.Resolver) {
	grade, err := market.ParseGrade(r.URL.Query().Get("grade"))
	if err != nil {
		writeError(w, err)
		return
	}
	month, err := market.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := resolver.GetSeasonalQuote(r.Context(), r.URL.Query().Get("variety"), grade, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, q)
}

func handleGetAllPrices(w http.ResponseWriter, r *http.Request, resolver *market.Resolver) {
	qs, err := resolver.GetAllQuotes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct {
		Prices []market.PriceQuote `json:"prices"`
	}{Prices: qs})
}

func handleGetMultipliers(w http.ResponseWriter, r *http.Request, resolver *market.Resolver) {
	ms, err := resolver.GetSeasonalMultipliers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct {
		Multipliers map[int]decimal.Decimal `json:"multipliers"`
	}{Multipliers: ms})
}

type projectionBody struct {
	GroveTokenID string `json:"groveTokenId"`
	Variety      string `json:"variety"`
	Grade        string `json:"grade"`
	YieldKg      string `json:"yieldKg"`
	HarvestMonth string `json:"harvestMonth"`
}

func handleProjection(w http.ResponseWriter, r *http.Request, resolver *market.Resolver) {
	var b projectionBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	grade, err := market.ParseGrade(b.Grade)
	if err != nil {
		writeError(w, err)
		return
	}
	month, err := market.ParseMonth(b.HarvestMonth)
	if err != nil {
		writeError(w, err)
		return
	}
	yieldKg, err := market.ParseAmount("yield", b.YieldKg)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := resolver.ComputeRevenueProjection(r.Context(), b.GroveTokenID, b.Variety, grade, yieldKg, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, p)
}

type validateBody struct {
	Variety       string `json:"variety"`
	Grade         string `json:"grade"`
	ProposedPrice string `json:"proposedPrice"`
}

func handleValidatePrice(w http.ResponseWriter, r *http.Request, resolver *market.Resolver) {
	var b validateBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	grade, err := market.ParseGrade(b.Grade)
	if err != nil {
		writeError(w, err)
		return
	}
	price, err := market.ParseAmount("proposed price", b.ProposedPrice)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := resolver.ValidateSalePrice(r.Context(), b.Variety, grade, price)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, res)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError maps engine errors onto HTTP statuses: bad input is the
// caller's fault, upstream failures are a bad gateway.
func writeError(w http.ResponseWriter, err error) {
	var (
		varietyErr *market.InvalidVarietyError
		gradeErr   *market.InvalidGradeError
		monthErr   *market.InvalidMonthError
		amountErr  *market.InvalidAmountError
		fetchErr   *market.PriceFetchError
	)
	switch {
	case errors.As(err, &varietyErr),
		errors.As(err, &gradeErr),
		errors.As(err, &monthErr),
		errors.As(err, &amountErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &fetchErr):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func recoverPanic(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic", zap.Any("recover", rec), zap.String("path", r.URL.Path))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
