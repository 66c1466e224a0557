package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceServiceGetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSD", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price": 60123.45}`))
	}))
	defer srv.Close()

	svc := NewPriceService(srv.URL)
	price, err := svc.GetPrice(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, "60123.45", price.String())
}

func TestPriceServiceNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "symbol not found", http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewPriceService(srv.URL)
	_, err := svc.GetPrice(context.Background(), "BTC/USD")

	var lookupErr *PriceLookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "BTCUSD", lookupErr.Symbol)
	assert.Contains(t, lookupErr.Cause, "404")
}

func TestPriceServiceMissingPriceField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol": "BTCUSD"}`))
	}))
	defer srv.Close()

	svc := NewPriceService(srv.URL)
	_, err := svc.GetPrice(context.Background(), "BTC/USD")

	var lookupErr *PriceLookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Contains(t, lookupErr.Cause, "missing price field")
}

func TestPriceServiceMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	svc := NewPriceService(srv.URL)
	_, err := svc.GetPrice(context.Background(), "BTC/USD")

	var lookupErr *PriceLookupError
	require.ErrorAs(t, err, &lookupErr)
}

func TestPriceServiceTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	svc := NewPriceService(srv.URL)
	_, err := svc.GetPrice(context.Background(), "BTC/USD")

	var lookupErr *PriceLookupError
	require.ErrorAs(t, err, &lookupErr)
}
