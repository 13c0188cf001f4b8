package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/quantbench/internal/models"
)

// APIClientConfig configures the HTTP bar feed
type APIClientConfig struct {
	BaseURL  string
	APIKey   string
	CacheTTL time.Duration
	HTTP     HTTPClientConfig
}

// APIClient fetches historical bars from an HTTP market data API. Responses
// are cached per (symbol, range) so repeated walk-forward runs over the same
// data hit the network once.
type APIClient struct {
	cfg    APIClientConfig
	http   *RateLimitedHTTPClient
	cache  *cache.Cache
	logger *logrus.Logger
}

// apiBar is the provider's wire format for one bar
type apiBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      string    `json:"open"`
	High      string    `json:"high"`
	Low       string    `json:"low"`
	Close     string    `json:"close"`
	Volume    string    `json:"volume"`
}

type apiBarsResponse struct {
	Symbol string   `json:"symbol"`
	Bars   []apiBar `json:"bars"`
}

// NewAPIClient creates an HTTP-backed bar source
func NewAPIClient(cfg APIClientConfig, logger *logrus.Logger) (*APIClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: feed api url is required", models.ErrInvalidConfig)
	}
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	return &APIClient{
		cfg:    cfg,
		http:   NewRateLimitedHTTPClient(cfg.HTTP, logger),
		cache:  cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		logger: logger,
	}, nil
}

// Name returns the name of the data source
func (c *APIClient) Name() string {
	return "http_api"
}

// FetchBars retrieves bars for a symbol, end exclusive
func (c *APIClient) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]*models.PriceBar, error) {
	cacheKey := fmt.Sprintf("%s:%d:%d", symbol, start.Unix(), end.Unix())
	if cached, found := c.cache.Get(cacheKey); found {
		if bars, ok := cached.([]*models.PriceBar); ok {
			return bars, nil
		}
	}

	endpoint, err := c.barsURL(symbol, start, end)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed request returned %d: %s", resp.StatusCode, string(body))
	}

	var payload apiBarsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}

	bars, err := c.convertBars(symbol, payload.Bars)
	if err != nil {
		return nil, err
	}

	bars = normalizeBars(bars)
	c.cache.Set(cacheKey, bars, cache.DefaultExpiration)
	return bars, nil
}

func (c *APIClient) barsURL(symbol string, start, end time.Time) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: bad feed api url: %v", models.ErrInvalidConfig, err)
	}
	u = u.JoinPath("v1", "bars", symbol)

	q := u.Query()
	if !start.IsZero() {
		q.Set("start", start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		q.Set("end", end.UTC().Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *APIClient) convertBars(symbol string, raw []apiBar) ([]*models.PriceBar, error) {
	bars := make([]*models.PriceBar, 0, len(raw))
	for _, rb := range raw {
		bar, err := c.convertBar(symbol, rb)
		if err != nil {
			c.logger.Warnf("Dropping feed bar at %s: %v", rb.Timestamp, err)
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (c *APIClient) convertBar(symbol string, rb apiBar) (*models.PriceBar, error) {
	open, err := decimal.NewFromString(rb.Open)
	if err != nil {
		return nil, fmt.Errorf("bad open: %w", err)
	}
	high, err := decimal.NewFromString(rb.High)
	if err != nil {
		return nil, fmt.Errorf("bad high: %w", err)
	}
	low, err := decimal.NewFromString(rb.Low)
	if err != nil {
		return nil, fmt.Errorf("bad low: %w", err)
	}
	closePrice, err := decimal.NewFromString(rb.Close)
	if err != nil {
		return nil, fmt.Errorf("bad close: %w", err)
	}
	volume, err := decimal.NewFromString(rb.Volume)
	if err != nil {
		return nil, fmt.Errorf("bad volume: %w", err)
	}

	bar := &models.PriceBar{
		Symbol:    symbol,
		Timestamp: rb.Timestamp.UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}
	return bar, bar.Validate()
}

// Close releases the underlying HTTP client
func (c *APIClient) Close() error {
	return c.http.Close()
}
