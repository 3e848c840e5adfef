package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/vignesh-goutham/bondstress/pkg/marketdata"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/sizing"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

// Snapshot is the output of one tick
type Snapshot struct {
	Stress   stress.Signal
	Signals  []signals.TradingSignal
	VIX      float64
	Exposure float64
}

// Generator runs scorer, translator and sizer over one set of market data
type Generator struct {
	cfg        Config
	scorer     *stress.Scorer
	translator *signals.Translator
	sizer      *sizing.Sizer
	logger     zerolog.Logger
}

func NewGenerator(cfg Config, scorer *stress.Scorer, translator *signals.Translator, sizer *sizing.Sizer, logger zerolog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil || translator == nil || sizer == nil {
		return nil, fmt.Errorf("%w: scorer, translator and sizer are required", ErrInvalidConfig)
	}
	return &Generator{
		cfg:        cfg,
		scorer:     scorer,
		translator: translator,
		sizer:      sizer,
		logger:     logger,
	}, nil
}

// Tick scores the latest stress reading and translates it for every
// configured symbol. Directional sizes are cut to what the sizer allows
// given the latest VIX and the exposure already taken earlier in the tick.
func (g *Generator) Tick(md MarketData) (Snapshot, error) {
	features, err := Derive(md, g.cfg, g.logger)
	if err != nil {
		return Snapshot{}, err
	}

	sig, err := g.scorer.Compute(features.Spread, features.Volatility, features.Credit)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Stress: sig, VIX: g.latestVIX(md.VIX)}
	snap.Signals = g.translator.GenerateAll(sig, g.cfg.Symbols, md.Bars, features.Spread)
	snap.Exposure = g.size(snap.Signals, snap.VIX)

	g.logger.Debug().
		Str("level", string(sig.Level)).
		Float64("confidence", sig.Confidence).
		Int("signals", len(snap.Signals)).
		Float64("exposure", snap.Exposure).
		Msg("Tick completed")
	return snap, nil
}

// History replays Tick over every spread date within [from, to] using only
// data available on that date. Trading signals are stamped with the tick
// date so the stream is chronological even when a symbol's prices lag.
func (g *Generator) History(md MarketData, from, to time.Time) ([]stress.Signal, []signals.TradingSignal, error) {
	spread, err := stress.YieldSpread(md.TenYear, md.TwoYear)
	if err != nil {
		return nil, nil, fmt.Errorf("build spread dates: %w", err)
	}

	var (
		readings []stress.Signal
		stream   []signals.TradingSignal
	)
	for _, date := range spread.Between(from, to).Dates() {
		snap, err := g.Tick(md.Until(date))
		if err != nil {
			return nil, nil, fmt.Errorf("tick %s: %w", date.Format(series.DateLayout), err)
		}
		readings = append(readings, snap.Stress)
		for _, ts := range snap.Signals {
			ts.Timestamp = date
			stream = append(stream, ts)
		}
	}

	g.logger.Info().Int("ticks", len(readings)).Int("signals", len(stream)).Msg("Signal history generated")
	return readings, stream, nil
}

// size caps each directional signal in place and returns the total exposure
func (g *Generator) size(sigs []signals.TradingSignal, vix float64) float64 {
	exposure := 0.0
	for i := range sigs {
		ts := &sigs[i]
		if !ts.IsDirectional() {
			continue
		}
		allowed, err := g.sizer.Size(ts.Confidence, vix, exposure)
		if err != nil {
			g.logger.Warn().Err(err).Str("symbol", ts.Symbol).Msg("Sizing rejected, zeroing position")
			allowed = 0
		}
		ts.PositionSize = math.Min(ts.PositionSize, allowed)
		exposure += ts.PositionSize
	}
	return exposure
}

func (g *Generator) latestVIX(vix series.Series) float64 {
	if last, ok := vix.Last(); ok && !math.IsNaN(last.Value) && last.Value >= 0 {
		return last.Value
	}
	g.logger.Warn().Float64("fallback", g.cfg.FallbackVIX).Msg("No VIX observation, using fallback")
	return g.cfg.FallbackVIX
}

// Load fetches the treasury yields, VIX and bars needed for symbols over
// [from, to]. Missing equity history is logged and left out; a failed yield
// fetch is returned.
func Load(ctx context.Context, bars marketdata.BarProvider, yields marketdata.YieldProvider, symbols []string, from, to time.Time, logger zerolog.Logger) (MarketData, error) {
	md := MarketData{Bars: make(map[string]series.Series)}

	for _, target := range []struct {
		id  string
		out *series.Series
	}{
		{marketdata.SeriesTenYear, &md.TenYear},
		{marketdata.SeriesTwoYear, &md.TwoYear},
		{marketdata.SeriesVIX, &md.VIX},
	} {
		s, err := yields.Observations(ctx, target.id, from, to)
		if err != nil {
			return MarketData{}, fmt.Errorf("load %s: %w", target.id, err)
		}
		*target.out = s
	}

	all := append([]string{marketdata.BondETF, marketdata.InvestmentGradeETF, marketdata.HighYieldETF}, symbols...)
	for _, symbol := range all {
		if _, done := md.Bars[symbol]; done {
			continue
		}
		s, err := bars.DailyCloses(ctx, symbol, from, to)
		if err != nil {
			if ctx.Err() != nil {
				return MarketData{}, ctx.Err()
			}
			logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to load bars, skipping symbol")
			continue
		}
		md.Bars[symbol] = s
	}

	logger.Info().
		Int("symbols", len(md.Bars)).
		Int("spread_days", min(md.TenYear.Len(), md.TwoYear.Len())).
		Msg("Market data loaded")
	return md, nil
}
