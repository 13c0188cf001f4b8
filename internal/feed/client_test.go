package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastHTTPConfig() HTTPClientConfig {
	cfg := DefaultHTTPClientConfig()
	cfg.RateLimit = 1000
	cfg.MaxRetries = 0
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	return cfg
}

const barsPayload = `{
  "symbol": "AAPL",
  "bars": [
    {"timestamp": "2024-01-02T00:00:00Z", "open": "104", "high": "108", "low": "103", "close": "107", "volume": "12000"},
    {"timestamp": "2024-01-01T00:00:00Z", "open": "100", "high": "105", "low": "99", "close": "104", "volume": "10000"}
  ]
}`

func TestAPIClientFetchesAndNormalizesBars(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(barsPayload))
	}))
	defer server.Close()

	client, err := NewAPIClient(APIClientConfig{
		BaseURL: server.URL,
		APIKey:  "secret",
		HTTP:    fastHTTPConfig(),
	}, testLogger())
	require.NoError(t, err)
	defer client.Close()

	bars, err := client.FetchBars(context.Background(), "AAPL", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "/v1/bars/AAPL", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	// Out-of-order provider bars come back sorted.
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp))
	assert.True(t, bars[0].Close.Equal(decimal.NewFromInt(104)))
}

func TestAPIClientCachesResponses(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(barsPayload))
	}))
	defer server.Close()

	client, err := NewAPIClient(APIClientConfig{
		BaseURL:  server.URL,
		CacheTTL: time.Minute,
		HTTP:     fastHTTPConfig(),
	}, testLogger())
	require.NoError(t, err)
	defer client.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	first, err := client.FetchBars(context.Background(), "AAPL", start, end)
	require.NoError(t, err)
	second, err := client.FetchBars(context.Background(), "AAPL", start, end)
	require.NoError(t, err)

	assert.Equal(t, 1, requests)
	assert.Equal(t, len(first), len(second))

	// A different range misses the cache.
	_, err = client.FetchBars(context.Background(), "AAPL", start, end.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestAPIClientDropsUnparseableBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
  "symbol": "AAPL",
  "bars": [
    {"timestamp": "2024-01-01T00:00:00Z", "open": "100", "high": "105", "low": "99", "close": "104", "volume": "10000"},
    {"timestamp": "2024-01-02T00:00:00Z", "open": "bad", "high": "105", "low": "99", "close": "104", "volume": "10000"}
  ]
}`))
	}))
	defer server.Close()

	client, err := NewAPIClient(APIClientConfig{BaseURL: server.URL, HTTP: fastHTTPConfig()}, testLogger())
	require.NoError(t, err)
	defer client.Close()

	bars, err := client.FetchBars(context.Background(), "AAPL", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 1)
}

func TestAPIClientSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewAPIClient(APIClientConfig{BaseURL: server.URL, HTTP: fastHTTPConfig()}, testLogger())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.FetchBars(context.Background(), "AAPL", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestAPIClientRequiresBaseURL(t *testing.T) {
	_, err := NewAPIClient(APIClientConfig{}, testLogger())
	assert.Error(t, err)
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := fastHTTPConfig()
	cfg.MaxRetries = 3
	client := NewRateLimitedHTTPClient(cfg, testLogger())
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, attempts)
}

func TestHTTPClientCircuitBreakerOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every request now fails to connect

	cfg := fastHTTPConfig()
	cfg.CircuitBreakerMax = 2
	client := NewRateLimitedHTTPClient(cfg, testLogger())
	defer client.Close()

	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), server.URL)
		require.Error(t, err)
	}

	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestHTTPClientConcurrentFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every request now fails to connect

	cfg := fastHTTPConfig()
	cfg.CircuitBreakerMax = 3
	client := NewRateLimitedHTTPClient(cfg, testLogger())
	defer client.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Get(context.Background(), server.URL)
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}
