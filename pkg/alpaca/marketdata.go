package alpaca

import (
	"context"
	"fmt"
	"os"
	"time"

	alpacadata "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"golang.org/x/time/rate"
)

// barsClient is the subset of the Alpaca market data client used here
type barsClient interface {
	GetBars(symbol string, req alpacadata.GetBarsRequest) ([]alpacadata.Bar, error)
}

// requestsPerMinute stays under the free plan limit of 200
const requestsPerMinute = 180

// MarketData serves daily closes and the trading calendar from Alpaca
type MarketData struct {
	client  barsClient
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewMarketData creates an Alpaca market data client from explicit credentials.
// Empty credentials fall back to ALPACA_API_KEY and ALPACA_SECRET_KEY.
func NewMarketData(apiKey, secretKey string, logger zerolog.Logger) (*MarketData, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ALPACA_API_KEY")
	}
	if secretKey == "" {
		secretKey = os.Getenv("ALPACA_SECRET_KEY")
	}
	if apiKey == "" || secretKey == "" {
		return nil, fmt.Errorf("ALPACA_API_KEY and ALPACA_SECRET_KEY must be set")
	}

	client := alpacadata.NewClient(alpacadata.ClientOpts{
		APIKey:    apiKey,
		APISecret: secretKey,
	})
	return newMarketData(client, logger), nil
}

func newMarketData(client barsClient, logger zerolog.Logger) *MarketData {
	return &MarketData{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Minute/requestsPerMinute), 5),
		logger:  logger,
	}
}

// DailyCloses gets the daily closing prices for symbol within [from, to]
func (a *MarketData) DailyCloses(ctx context.Context, symbol string, from, to time.Time) (series.Series, error) {
	bars, err := a.bars(ctx, symbol, from, to)
	if err != nil {
		return series.Series{}, fmt.Errorf("error getting historical bars for %s: %w", symbol, err)
	}

	closes := make(map[time.Time]float64, len(bars))
	for _, bar := range bars {
		date := series.Day(bar.Timestamp)
		if date.Before(series.Day(from)) || date.After(series.Day(to)) {
			continue
		}
		closes[date] = bar.Close
	}

	a.logger.Debug().Str("symbol", symbol).Int("bars", len(closes)).Msg("Fetched daily closes")
	return series.FromMap(symbol, closes), nil
}

// IsMarketOpenOnDate checks if the market is open on a given date
func (a *MarketData) IsMarketOpenOnDate(ctx context.Context, date time.Time) (bool, error) {
	weekday := date.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return false, nil
	}

	// SPY trades on every session, so a bar on date means the market was open
	from := series.Day(date)
	bars, err := a.bars(ctx, "SPY", from, from.Add(24*time.Hour))
	if err != nil {
		return false, fmt.Errorf("error checking market data for date %s: %w", from.Format(series.DateLayout), err)
	}
	return len(bars) > 0, nil
}

func (a *MarketData) bars(ctx context.Context, symbol string, from, to time.Time) ([]alpacadata.Bar, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return a.client.GetBars(symbol, alpacadata.GetBarsRequest{
		Start:     from,
		End:       to,
		TimeFrame: alpacadata.OneDay,
	})
}
