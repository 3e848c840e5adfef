package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/bondstress/pkg/marketdata"
	"github.com/vignesh-goutham/bondstress/pkg/notification"
	"github.com/vignesh-goutham/bondstress/pkg/pipeline"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/store"
)

// StatusNotifier reports run level events outside of signal alerts
type StatusNotifier interface {
	NotifyError(ctx context.Context, errorType string, message string, details string) error
	NotifyRunComplete(ctx context.Context, level string, confidence float64, tradingSignals int, alerts int) error
	NotifyMarketClosed(ctx context.Context) error
}

type Config struct {
	Symbols []string
	// LookbackDays of calendar history fetched each run, enough for the
	// long z-score and correlation windows
	LookbackDays int
	Threshold    float64
}

// Deps are the collaborators of a Scheduler
type Deps struct {
	Calendar   marketdata.Calendar
	Bars       marketdata.BarProvider
	Yields     marketdata.YieldProvider
	Generator  *pipeline.Generator
	Store      store.SignalStore
	Dispatcher *notification.Dispatcher
	Status     StatusNotifier
}

// Result summarises one run
type Result struct {
	MarketClosed  bool
	Snapshot      pipeline.Snapshot
	StressAlerted bool
	TradingAlerts int
}

// Scheduler runs one refresh: fetch, score, store, alert
type Scheduler struct {
	config Config
	deps   Deps
	now    func() time.Time
	logger zerolog.Logger
}

func NewScheduler(config Config, deps Deps, logger zerolog.Logger) (*Scheduler, error) {
	if len(config.Symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required")
	}
	if config.LookbackDays <= 0 {
		return nil, fmt.Errorf("lookback days must be positive, got %d", config.LookbackDays)
	}
	if deps.Bars == nil || deps.Yields == nil || deps.Generator == nil || deps.Store == nil || deps.Dispatcher == nil || deps.Status == nil {
		return nil, fmt.Errorf("bars, yields, generator, store, dispatcher and status notifier are required")
	}
	return &Scheduler{
		config: config,
		deps:   deps,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Run executes one refresh. A closed market skips the run without error.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	s.logger.Info().Msg("Starting bond stress refresh")
	today := series.Day(s.now())

	if s.deps.Calendar != nil {
		open, err := s.deps.Calendar.IsMarketOpenOnDate(ctx, today)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("Could not check market status, continuing")
		case !open:
			s.logger.Info().Time("date", today).Msg("Market is closed, skipping refresh")
			s.notify(s.deps.Status.NotifyMarketClosed(ctx))
			return Result{MarketClosed: true}, nil
		}
	}

	md, err := pipeline.Load(ctx, s.deps.Bars, s.deps.Yields, s.config.Symbols, today.AddDate(0, 0, -s.config.LookbackDays), today, s.logger)
	if err != nil {
		return Result{}, s.fail(ctx, "Data Load", "Failed to load market data", err)
	}

	snap, err := s.deps.Generator.Tick(md)
	if err != nil {
		return Result{}, s.fail(ctx, "Signal Generation", "Failed to generate signals", err)
	}
	s.logger.Info().
		Str("level", string(snap.Stress.Level)).
		Float64("confidence", snap.Stress.Confidence).
		Float64("spread", snap.Stress.Spread).
		Bool("insufficient_data", snap.Stress.InsufficientData).
		Int("trading_signals", len(snap.Signals)).
		Msg("Signals generated")

	if _, err := s.deps.Store.SaveStress(ctx, snap.Stress); err != nil {
		return Result{}, s.fail(ctx, "Data Save", "Failed to save stress signal", err)
	}
	if len(snap.Signals) > 0 {
		if _, err := s.deps.Store.SaveTrading(ctx, snap.Signals); err != nil {
			return Result{}, s.fail(ctx, "Data Save", "Failed to save trading signals", err)
		}
	}

	result := Result{Snapshot: snap}

	// alert failures are reported but never fail the run
	result.StressAlerted, err = s.deps.Dispatcher.Offer(ctx, snap.Stress, s.config.Threshold)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Stress alert partially failed")
	}
	result.TradingAlerts, err = s.deps.Dispatcher.OfferTrading(ctx, snap.Signals, s.config.Threshold)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Trading alerts partially failed")
	}

	alerts := result.TradingAlerts
	if result.StressAlerted {
		alerts++
	}
	s.notify(s.deps.Status.NotifyRunComplete(ctx, string(snap.Stress.Level), snap.Stress.Confidence, len(snap.Signals), alerts))

	s.logger.Info().Int("alerts", alerts).Msg("Bond stress refresh completed")
	return result, nil
}

func (s *Scheduler) fail(ctx context.Context, errorType, message string, err error) error {
	s.logger.Error().Err(err).Str("stage", errorType).Msg(message)
	s.notify(s.deps.Status.NotifyError(ctx, errorType, message, err.Error()))
	return fmt.Errorf("%s: %w", strings.ToLower(errorType), err)
}

func (s *Scheduler) notify(err error) {
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to send status notification")
	}
}
