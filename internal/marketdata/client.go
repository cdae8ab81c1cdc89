package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ClientConfig configures the vendor HTTP client.
type ClientConfig struct {
	BaseURL         string      `yaml:"base_url"`
	APIKey          string      `yaml:"api_key"`
	BenchmarkSymbol string      `yaml:"benchmark_symbol"` // default SPY
	TimeoutSecs     int         `yaml:"timeout_secs"`     // per-call, default 10
	RatePerSecond   float64     `yaml:"rate_per_second"`  // default 5
	RateBurst       int         `yaml:"rate_burst"`       // default 10
	Retry           RetryConfig `yaml:"retry"`

	// Circuit breaker trips after this many consecutive failures and
	// half-opens after the cooldown.
	BreakerFailures     uint32 `yaml:"breaker_failures"`      // default 5
	BreakerCooldownSecs int    `yaml:"breaker_cooldown_secs"` // default 60
}

// GetRequestTimeout returns the per-call timeout as a time.Duration.
func (c ClientConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// GetBreakerCooldown returns the breaker cooldown as a time.Duration.
func (c ClientConfig) GetBreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSecs) * time.Second
}

// DefaultClientConfig returns production client settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BenchmarkSymbol:     "SPY",
		TimeoutSecs:         10,
		RatePerSecond:       5,
		RateBurst:           10,
		Retry:               DefaultRetryConfig(),
		BreakerFailures:     5,
		BreakerCooldownSecs: 60,
	}
}

// Client fetches prices and benchmark data from the market-data vendor.
// Every call is rate limited, guarded by a circuit breaker, and retried
// with bounded exponential backoff; a per-call timeout keeps one slow
// instrument from stalling the batch.
type Client struct {
	config  ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a market-data client.
func NewClient(config ClientConfig) *Client {
	if config.TimeoutSecs <= 0 {
		config.TimeoutSecs = 10
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 5
	}
	if config.RateBurst <= 0 {
		config.RateBurst = 10
	}
	if config.BenchmarkSymbol == "" {
		config.BenchmarkSymbol = "SPY"
	}
	if config.BreakerFailures == 0 {
		config.BreakerFailures = 5
	}
	if config.BreakerCooldownSecs <= 0 {
		config.BreakerCooldownSecs = 60
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "marketdata",
		Timeout: config.GetBreakerCooldown(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("market data circuit breaker state change")
		},
	})

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.GetRequestTimeout()},
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.RateBurst),
		breaker: breaker,
	}
}

// PriceAt returns the instrument's close on the given date. A vendor
// "no data" answer maps to ErrUnavailable, distinct from a zero price.
func (c *Client) PriceAt(ctx context.Context, instrument string, date time.Time) (float64, error) {
	var resp struct {
		Close float64 `json:"close"`
	}
	params := url.Values{
		"symbol": {instrument},
		"date":   {date.Format("2006-01-02")},
	}
	if err := c.get(ctx, "/v1/price", params, &resp); err != nil {
		return 0, fmt.Errorf("price %s@%s: %w", instrument, date.Format("2006-01-02"), err)
	}
	return resp.Close, nil
}

// History returns the instrument's daily bars for the trailing window,
// oldest first.
func (c *Client) History(ctx context.Context, instrument string, asOf time.Time, days int) ([]OHLCV, error) {
	var resp struct {
		Bars []OHLCV `json:"bars"`
	}
	params := url.Values{
		"symbol": {instrument},
		"to":     {asOf.Format("2006-01-02")},
		"days":   {fmt.Sprintf("%d", days)},
	}
	if err := c.get(ctx, "/v1/history", params, &resp); err != nil {
		return nil, fmt.Errorf("history %s: %w", instrument, err)
	}
	return resp.Bars, nil
}

// BenchmarkCloses returns the benchmark index closes for the trailing
// window, oldest first. Satisfies the regime detector's source contract.
func (c *Client) BenchmarkCloses(ctx context.Context, asOf time.Time, days int) ([]float64, error) {
	bars, err := c.History(ctx, c.config.BenchmarkSymbol, asOf, days)
	if err != nil {
		return nil, fmt.Errorf("benchmark closes: %w", err)
	}
	closes := make([]float64, 0, len(bars))
	for _, bar := range bars {
		closes = append(closes, bar.Close)
	}
	return closes, nil
}

// BenchmarkReturn returns the benchmark's percent return over the window.
func (c *Client) BenchmarkReturn(ctx context.Context, from, to time.Time) (float64, error) {
	start, err := c.PriceAt(ctx, c.config.BenchmarkSymbol, from)
	if err != nil {
		return 0, fmt.Errorf("benchmark start: %w", err)
	}
	end, err := c.PriceAt(ctx, c.config.BenchmarkSymbol, to)
	if err != nil {
		return 0, fmt.Errorf("benchmark end: %w", err)
	}
	if start == 0 {
		return 0, ErrUnavailable
	}
	return (end - start) / start * 100, nil
}

// get runs one rate-limited, breaker-guarded, retried JSON GET.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return withRetry(ctx, c.config.Retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.doGet(ctx, path, params, out)
		})
		return err
	})
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.config.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUnavailable
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("vendor returned %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
