package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/vignesh-goutham/bondstress/pkg/marketdata"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

var ErrInvalidConfig = errors.New("invalid pipeline config")

// MarketData is everything one tick needs, already fetched. Bars holds the
// equity closes keyed by symbol plus the TLT, LQD and HYG bond ETFs.
type MarketData struct {
	TenYear series.Series
	TwoYear series.Series
	VIX     series.Series
	Bars    map[string]series.Series
}

// Until truncates every series to observations on or before date
func (md MarketData) Until(date time.Time) MarketData {
	out := MarketData{
		TenYear: md.TenYear.Until(date),
		TwoYear: md.TwoYear.Until(date),
		VIX:     md.VIX.Until(date),
		Bars:    make(map[string]series.Series, len(md.Bars)),
	}
	for symbol, s := range md.Bars {
		out.Bars[symbol] = s.Until(date)
	}
	return out
}

// Features are the three stress inputs derived from MarketData
type Features struct {
	Spread     series.Series
	Volatility series.Series
	Credit     series.Series
}

type Config struct {
	Symbols             []string
	VolatilityWindow    int
	AnnualizationFactor float64
	// FallbackVIX sizes positions when no VIX observation is available
	FallbackVIX float64
	// LookbackDays of calendar history are loaded for a single tick
	LookbackDays int
}

func DefaultConfig() Config {
	return Config{
		Symbols:             signals.DefaultSymbols,
		VolatilityWindow:    20,
		AnnualizationFactor: 252,
		FallbackVIX:         30,
		LookbackDays:        180,
	}
}

func (c Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: at least one symbol is required", ErrInvalidConfig)
	}
	if c.VolatilityWindow < 2 {
		return fmt.Errorf("%w: volatility window must be at least 2, got %d", ErrInvalidConfig, c.VolatilityWindow)
	}
	if c.AnnualizationFactor <= 0 {
		return fmt.Errorf("%w: annualization factor must be positive, got %f", ErrInvalidConfig, c.AnnualizationFactor)
	}
	if math.IsNaN(c.FallbackVIX) || c.FallbackVIX < 0 {
		return fmt.Errorf("%w: fallback vix must not be negative, got %f", ErrInvalidConfig, c.FallbackVIX)
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("%w: lookback days must be positive, got %d", ErrInvalidConfig, c.LookbackDays)
	}
	return nil
}

// Derive builds the yield spread, bond volatility and credit proxy series.
// Inputs that are missing or share no dates produce an empty feature, which
// the scorer treats as insufficient data.
func Derive(md MarketData, cfg Config, logger zerolog.Logger) (Features, error) {
	var f Features

	spread, err := stress.YieldSpread(md.TenYear, md.TwoYear)
	switch {
	case errors.Is(err, series.ErrNoOverlap):
		logger.Warn().Err(err).Msg("No common treasury dates, spread unavailable")
	case err != nil:
		return Features{}, err
	}
	f.Spread = spread

	f.Volatility = stress.BondVolatility(md.Bars[marketdata.BondETF], cfg.VolatilityWindow, cfg.AnnualizationFactor)
	if f.Volatility.Empty() {
		logger.Warn().Str("symbol", marketdata.BondETF).Msg("Bond volatility unavailable")
	}

	credit, err := stress.CreditProxy(md.Bars[marketdata.InvestmentGradeETF], md.Bars[marketdata.HighYieldETF])
	switch {
	case errors.Is(err, series.ErrNoOverlap):
		logger.Warn().Err(err).Msg("Credit proxy unavailable")
	case err != nil:
		return Features{}, err
	}
	f.Credit = credit

	return f, nil
}
