package vci

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktsys/stockcollect/config"
	"github.com/viktsys/stockcollect/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.ProviderConfig{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		RequestsPerMinute: 6000,
		TimeoutSeconds:    5,
	}, srv.Client())
}

func TestPrices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote/history", r.URL.Path)
		assert.Equal(t, "VNM", r.URL.Query().Get("symbol"))
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("start"))
		assert.Equal(t, "2024-01-10", r.URL.Query().Get("end"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"time":"2024-01-09","open":65.1,"high":66.0,"low":64.8,"close":65.5,"volume":1200300},
			{"time":"2024-01-10","open":65.5,"high":67.2,"low":65.4,"close":67.0,"volume":1500000}
		]}`))
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	bars, err := client.Prices(context.Background(), "VNM", from, to)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), bars[0].TradeDate)
	assert.True(t, bars[0].Open.Equal(decimal.NewFromFloat(65.1)))
	assert.Equal(t, int64(1200300), bars[0].Volume)
	assert.True(t, bars[1].Close.Equal(decimal.NewFromFloat(67.0)))
}

func TestListings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listing/all", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"symbol":"VNM","organ_name":"Vietnam Dairy Products JSC","organ_short_name":"Vinamilk","exchange":"HOSE","icb_name":"Food Products"},
			{"symbol":"","organ_name":"broken row"},
			{"symbol":"FPT","organ_name":"FPT Corporation","exchange":"HOSE"}
		]}`))
	})

	listings, err := client.Listings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2, "rows without a symbol are dropped")
	assert.Equal(t, "VNM", listings[0].Symbol)
	assert.Equal(t, "Vinamilk", listings[0].OrganShortName)
	assert.Equal(t, "FPT", listings[1].Symbol)
}

func TestFinancials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/finance/statements", r.URL.Path)
		assert.Equal(t, "quarter", r.URL.Query().Get("period"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"type":"income","year":2023,"quarter":4,"items":{"revenue":15230000000,"net_income":2410000000}},
			{"type":"balance","year":2023,"quarter":4,"items":{"total_assets":52000000000}},
			{"type":"cashflow","year":2023,"quarter":4,"items":{}}
		]}`))
	})

	stmts, err := client.Financials(context.Background(), "VNM", provider.PeriodQuarter)
	require.NoError(t, err)
	require.Len(t, stmts, 2, "unknown statement types are dropped")
	assert.Equal(t, "income", stmts[0].StatementType)
	assert.Equal(t, 2023, stmts[0].Year)
	assert.Equal(t, 4, stmts[0].Quarter)
	assert.True(t, stmts[0].Items["revenue"].Equal(decimal.NewFromInt(15230000000)))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"404 is not found", http.StatusNotFound, func(t *testing.T, err error) {
			assert.True(t, provider.IsNotFound(err))
		}},
		{"401 is auth failure", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.True(t, provider.IsAuthFailed(err))
		}},
		{"403 is auth failure", http.StatusForbidden, func(t *testing.T, err error) {
			assert.True(t, provider.IsAuthFailed(err))
		}},
		{"429 is rate limited transient", http.StatusTooManyRequests, func(t *testing.T, err error) {
			assert.True(t, provider.IsTransient(err))
			assert.True(t, provider.IsRateLimited(err))
		}},
		{"503 is transient", http.StatusServiceUnavailable, func(t *testing.T, err error) {
			assert.True(t, provider.IsTransient(err))
			assert.False(t, provider.IsRateLimited(err))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := client.Prices(context.Background(), "VNM", time.Now().AddDate(0, 0, -1), time.Now())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
