package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go_signals_project/models"

	"github.com/shopspring/decimal"
)

// PriceRequestTimeout bounds the single round trip to the price feed
const PriceRequestTimeout = 10 * time.Second

// PriceLookupError reports a failed price lookup. The delivery task treats it
// as terminal for its remaining steps; the service never retries internally.
type PriceLookupError struct {
	Symbol string
	Cause  string
}

func (e *PriceLookupError) Error() string {
	return fmt.Sprintf("price lookup failed for %s: %s", e.Symbol, e.Cause)
}

// priceResponse is the expected price-feed payload
type priceResponse struct {
	Price json.Number `json:"price"`
}

// PriceService fetches current market prices from an external feed
type PriceService struct {
	apiURL string
	client *http.Client
}

// NewPriceService creates a price service against the configured feed URL
func NewPriceService(apiURL string) *PriceService {
	return &PriceService{
		apiURL: apiURL,
		client: &http.Client{Timeout: PriceRequestTimeout},
	}
}

// GetPrice returns the current price for an asset identifier. Any transport
// error, non-2xx status or response without a numeric price field fails with
// a *PriceLookupError.
func (s *PriceService) GetPrice(ctx context.Context, ativo string) (decimal.Decimal, error) {
	symbol := models.FeedSymbol(ativo)

	reqURL := fmt.Sprintf("%s?symbol=%s", s.apiURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, &PriceLookupError{Symbol: symbol, Cause: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, &PriceLookupError{Symbol: symbol, Cause: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, &PriceLookupError{Symbol: symbol, Cause: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, &PriceLookupError{
			Symbol: symbol,
			Cause:  fmt.Sprintf("feed returned status %d: %s", resp.StatusCode, preview(body)),
		}
	}

	var parsed priceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, &PriceLookupError{Symbol: symbol, Cause: fmt.Sprintf("failed to parse response: %v", err)}
	}
	if parsed.Price == "" {
		return decimal.Zero, &PriceLookupError{Symbol: symbol, Cause: "response missing price field"}
	}

	price, err := decimal.NewFromString(parsed.Price.String())
	if err != nil {
		return decimal.Zero, &PriceLookupError{Symbol: symbol, Cause: fmt.Sprintf("invalid price %q", parsed.Price.String())}
	}
	return price, nil
}

// preview truncates a response body for error messages
func preview(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
