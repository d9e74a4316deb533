package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"coffeemarket/internal/config"
	"coffeemarket/internal/exchange"
	"coffeemarket/internal/httpx"
	"coffeemarket/internal/market"
)

func main() {
	_ = godotenv.Load()

	var variety string
	var grade string
	var month string
	var yieldKg string
	var groveToken string
	var proposedPrice string
	var timeout int
	var configPath string

	flag.StringVar(&variety, "variety", getenv("VARIETY", "ARABICA"), "coffee variety (ARABICA, ROBUSTA, SPECIALTY, ORGANIC, TYPICA)")
	flag.StringVar(&grade, "grade", getenv("GRADE", "5"), "quality grade 1-10")
	flag.StringVar(&month, "month", "", "month 1-12 for a seasonal quote (optional)")
	flag.StringVar(&yieldKg, "yield", "", "expected yield in kg; requires -grove and -month for a projection")
	flag.StringVar(&groveToken, "grove", "", "grove token id for a revenue projection")
	flag.StringVar(&proposedPrice, "validate", "", "proposed sale price to validate (optional)")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "request timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeout != 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	client, err := exchange.NewClient(
		cfg.Exchange.APIKey,
		exchange.WithBaseURL(cfg.Exchange.Endpoint),
		exchange.WithHTTPClient(httpClient.HTTP),
		exchange.WithHeader(http.Header{"User-Agent": []string{httpClient.UserAgent}}),
	)
	if err != nil {
		log.Fatalf("exchange client: %v", err)
	}
	resolver, err := market.NewResolver(client)
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}

	g, err := market.ParseGrade(grade)
	if err != nil {
		log.Fatalf("grade: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	defer cancel()

	var out any
	switch {
	case proposedPrice != "":
		price, err := market.ParseAmount("proposed price", proposedPrice)
		if err != nil {
			log.Fatalf("validate: %v", err)
		}
		out, err = resolver.ValidateSalePrice(ctx, variety, g, price)
		if err != nil {
			log.Fatalf("validate: %v", err)
		}
	case yieldKg != "":
		m, err := market.ParseMonth(month)
		if err != nil {
			log.Fatalf("projection: %v", err)
		}
		y, err := market.ParseAmount("yield", yieldKg)
		if err != nil {
			log.Fatalf("projection: %v", err)
		}
		out, err = resolver.ComputeRevenueProjection(ctx, groveToken, variety, g, y, m)
		if err != nil {
			log.Fatalf("projection: %v", err)
		}
	case month != "":
		m, err := market.ParseMonth(month)
		if err != nil {
			log.Fatalf("seasonal: %v", err)
		}
		out, err = resolver.GetSeasonalQuote(ctx, variety, g, m)
		if err != nil {
			log.Fatalf("seasonal: %v", err)
		}
	default:
		out, err = resolver.GetQuote(ctx, variety, g)
		if err != nil {
			log.Fatalf("quote: %v", err)
		}
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x != 0 {
			return x
		}
	}
	return def
}
