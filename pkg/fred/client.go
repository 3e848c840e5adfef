package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/vignesh-goutham/bondstress/pkg/marketdata"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.stlouisfed.org/fred"

var ErrUpstream = errors.New("fred upstream error")

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond stays below the documented 120 requests per minute
	RequestsPerSecond float64
	Burst             int
	// FailuresToTrip consecutive failures open the breaker for BreakerTimeout
	FailuresToTrip uint32
	BreakerTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		APIKey:            os.Getenv("FRED_API_KEY"),
		Timeout:           10 * time.Second,
		RequestsPerSecond: 1.5,
		Burst:             3,
		FailuresToTrip:    3,
		BreakerTimeout:    60 * time.Second,
	}
}

// Client reads series observations from the FRED API
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("FRED_API_KEY must be set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("fred requests per second must be positive, got %f", cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	settings := gobreaker.Settings{
		Name:    "fred",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailuresToTrip
		},
		// unknown series and caller cancellation say nothing about FRED health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, marketdata.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}, nil
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Observations gets the values of seriesID within [from, to]. FRED reports
// holidays as "." and those days are omitted.
func (c *Client) Observations(ctx context.Context, seriesID string, from, to time.Time) (series.Series, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return series.Series{}, err
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, seriesID, from, to)
	})
	if err != nil {
		return series.Series{}, fmt.Errorf("fetch %s: %w", seriesID, err)
	}

	var resp observationsResponse
	if err := json.Unmarshal(body.([]byte), &resp); err != nil {
		return series.Series{}, fmt.Errorf("decode %s: %w", seriesID, err)
	}

	values := make(map[time.Time]float64, len(resp.Observations))
	for _, obs := range resp.Observations {
		if obs.Value == "." || obs.Value == "" {
			continue
		}
		date, err := time.Parse(series.DateLayout, obs.Date)
		if err != nil {
			return series.Series{}, fmt.Errorf("decode %s: %w: date %q", seriesID, series.ErrMalformed, obs.Date)
		}
		v, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			return series.Series{}, fmt.Errorf("decode %s: %w: value %q", seriesID, series.ErrMalformed, obs.Value)
		}
		values[date] = v
	}

	c.logger.Debug().Str("series", seriesID).Int("observations", len(values)).Msg("Fetched FRED series")
	return series.FromMap(seriesID, values), nil
}

func (c *Client) fetch(ctx context.Context, seriesID string, from, to time.Time) ([]byte, error) {
	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.cfg.APIKey)
	q.Set("file_type", "json")
	if !from.IsZero() {
		q.Set("observation_start", from.Format(series.DateLayout))
	}
	if !to.IsZero() {
		q.Set("observation_end", to.Format(series.DateLayout))
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/series/observations?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		// FRED answers unknown series with 400
		return nil, fmt.Errorf("%w: %s: status %d", marketdata.ErrNotFound, seriesID, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
