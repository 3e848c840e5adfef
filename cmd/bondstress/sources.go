package bondstress

import (
	"context"
	"fmt"
	"time"

	"github.com/vignesh-goutham/bondstress/pkg/alpaca"
	"github.com/vignesh-goutham/bondstress/pkg/config"
	"github.com/vignesh-goutham/bondstress/pkg/dynamodb"
	"github.com/vignesh-goutham/bondstress/pkg/fred"
	"github.com/vignesh-goutham/bondstress/pkg/marketdata"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/store"
)

// warmupDays of extra history are loaded ahead of any requested range so the
// long z-score and correlation windows are populated from the first day
const warmupDays = 120

// newSources returns the bar and yield providers for the configured source
func newSources() (marketdata.BarProvider, marketdata.YieldProvider, error) {
	switch cfg.Data.Source {
	case config.SourceCSV:
		p, err := marketdata.NewCSVProvider(cfg.Data.CSVDir)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		bars, err := alpaca.NewMarketData(cfg.Alpaca.APIKey, cfg.Alpaca.SecretKey, logger.With().Str("component", "alpaca").Logger())
		if err != nil {
			return nil, nil, fmt.Errorf("error creating alpaca client: %w", err)
		}
		yields, err := fred.NewClient(cfg.FREDConfig(), logger.With().Str("component", "fred").Logger())
		if err != nil {
			return nil, nil, fmt.Errorf("error creating fred client: %w", err)
		}
		return bars, yields, nil
	}
}

func newStore(ctx context.Context) (store.SignalStore, error) {
	if cfg.Store.Backend == config.StoreDynamoDB {
		return dynamodb.NewService(ctx, cfg.Store.Region, cfg.Store.TableName, logger.With().Str("component", "dynamodb").Logger())
	}
	return store.NewMemory(), nil
}

func parseDate(flag, raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(series.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q, expected %s", flag, raw, series.DateLayout)
	}
	return t, nil
}
