package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/bondstress/pkg/brokerage"
	"github.com/vignesh-goutham/bondstress/pkg/engine"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
)

var (
	ErrInvalidConfig = errors.New("invalid backtest config")
	ErrUnordered     = errors.New("signal stream is not in chronological order")
)

type Config struct {
	InitialCapital      float64
	TransactionCost     float64
	RiskFreeRate        float64
	AnnualizationFactor float64
	TrainWindow         int
	TestWindow          int
}

func DefaultConfig() Config {
	return Config{
		InitialCapital:      100000,
		TransactionCost:     0.001,
		RiskFreeRate:        0.02,
		AnnualizationFactor: 252,
		TrainWindow:         252,
		TestWindow:          63,
	}
}

func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive, got %f", ErrInvalidConfig, c.InitialCapital)
	}
	if c.TransactionCost < 0 || c.TransactionCost >= 1 {
		return fmt.Errorf("%w: transaction cost must be within [0, 1), got %f", ErrInvalidConfig, c.TransactionCost)
	}
	if c.AnnualizationFactor <= 0 {
		return fmt.Errorf("%w: annualization factor must be positive, got %f", ErrInvalidConfig, c.AnnualizationFactor)
	}
	if c.TrainWindow <= 0 || c.TestWindow <= 0 {
		return fmt.Errorf("%w: walk-forward windows must be positive, got train=%d test=%d", ErrInvalidConfig, c.TrainWindow, c.TestWindow)
	}
	return nil
}

// Backtester replays a trading signal stream against price history
type Backtester struct {
	cfg    Config
	logger zerolog.Logger
}

func NewBacktester(cfg Config, logger zerolog.Logger) (*Backtester, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Backtester{cfg: cfg, logger: logger}, nil
}

func (b *Backtester) Config() Config {
	return b.cfg
}

// NewPortfolio returns a flat portfolio funded per the backtester config
func (b *Backtester) NewPortfolio() (*brokerage.Portfolio, error) {
	return brokerage.NewPortfolio(
		decimal.NewFromFloat(b.cfg.InitialCapital),
		decimal.NewFromFloat(b.cfg.TransactionCost),
	)
}

// RunFresh runs the backtest on a newly funded portfolio
func (b *Backtester) RunFresh(stream []signals.TradingSignal, prices map[string]series.Series, start, end time.Time) (*Result, error) {
	portfolio, err := b.NewPortfolio()
	if err != nil {
		return nil, err
	}
	return b.Run(portfolio, stream, prices, start, end)
}

// Run replays the signals dated within [start, end] in chronological order
// against portfolio. A zero start or end leaves that side open. Signals for
// symbols with no price at or before their date are skipped. The portfolio
// is marked to market after every date on which a signal was processed.
func (b *Backtester) Run(portfolio *brokerage.Portfolio, stream []signals.TradingSignal, prices map[string]series.Series, start, end time.Time) (*Result, error) {
	if portfolio == nil {
		return nil, errors.New("portfolio is required")
	}
	inRange, err := filterRange(stream, start, end)
	if err != nil {
		return nil, err
	}
	days := groupByDate(inRange)
	if len(days) == 0 {
		b.logger.Warn().Msg("No signals in backtest range")
		return &Result{}, nil
	}
	priorTrades := len(portfolio.Trades())

	var (
		events  []engine.Event
		opening *series.Point
		marks   []series.Point
	)
	for _, day := range days {
		quotes := quotesAt(prices, day.date)
		before := portfolio.Value(heldPrice(portfolio, quotes))

		eng := engine.New(day.signals, quotes, portfolio, day.date, b.logger)
		dayEvents, processed := eng.Run()
		events = append(events, dayEvents...)
		if !processed {
			continue
		}

		if opening == nil {
			opening = &series.Point{Date: day.date, Value: before.InexactFloat64()}
		}
		value := portfolio.MarkToMarket(day.date, heldPrice(portfolio, quotes))
		marks = append(marks, series.Point{Date: day.date, Value: value.InexactFloat64()})
	}

	if opening == nil {
		b.logger.Warn().Msg("No signal had a price in range")
		return &Result{Events: events}, nil
	}

	result := b.metrics(*opening, marks, portfolio.Trades()[priorTrades:])
	result.Events = events

	b.logger.Info().
		Int("trades", result.TotalTrades).
		Float64("annual_return", result.AnnualReturn).
		Float64("sharpe", result.SharpeRatio).
		Msg("Backtest completed")
	return result, nil
}

type dayBatch struct {
	date    time.Time
	signals []signals.TradingSignal
}

func filterRange(stream []signals.TradingSignal, start, end time.Time) ([]signals.TradingSignal, error) {
	out := make([]signals.TradingSignal, 0, len(stream))
	for i, sig := range stream {
		day := series.Day(sig.Timestamp)
		if i > 0 && day.Before(series.Day(stream[i-1].Timestamp)) {
			return nil, fmt.Errorf("%w: %s follows %s", ErrUnordered,
				day.Format(series.DateLayout), series.Day(stream[i-1].Timestamp).Format(series.DateLayout))
		}
		if !start.IsZero() && day.Before(series.Day(start)) {
			continue
		}
		if !end.IsZero() && day.After(series.Day(end)) {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

func groupByDate(stream []signals.TradingSignal) []dayBatch {
	var days []dayBatch
	for _, sig := range stream {
		day := series.Day(sig.Timestamp)
		if n := len(days); n > 0 && days[n-1].date.Equal(day) {
			days[n-1].signals = append(days[n-1].signals, sig)
			continue
		}
		days = append(days, dayBatch{date: day, signals: []signals.TradingSignal{sig}})
	}
	return days
}

func heldPrice(portfolio *brokerage.Portfolio, quotes map[string]decimal.Decimal) decimal.Decimal {
	if pos, ok := portfolio.Position(); ok {
		return quotes[pos.Symbol]
	}
	return decimal.Zero
}

func quotesAt(prices map[string]series.Series, date time.Time) map[string]decimal.Decimal {
	quotes := make(map[string]decimal.Decimal, len(prices))
	for symbol, history := range prices {
		if v, ok := history.ValueAt(date); ok && v > 0 {
			quotes[symbol] = decimal.NewFromFloat(v)
		}
	}
	return quotes
}
