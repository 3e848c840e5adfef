package backtest

import (
	"time"

	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
)

// Window is one walk-forward fold. Only the test slice is traded; the train
// slice marks the history that preceded it.
type Window struct {
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
	Result     *Result
}

type WalkForwardResult struct {
	Windows          []Window
	MeanAnnualReturn float64
	MeanSharpe       float64
	MeanMaxDrawdown  float64
	MeanWinRate      float64
	PositiveWindows  int
}

// WalkForward rolls a TrainWindow/TestWindow split across the distinct
// signal dates and backtests each test slice on a fresh portfolio. Folds
// start after the first full train window and advance by TestWindow while a
// full test window remains.
func (b *Backtester) WalkForward(stream []signals.TradingSignal, prices map[string]series.Series) (*WalkForwardResult, error) {
	dates := distinctDates(stream)
	train, test := b.cfg.TrainWindow, b.cfg.TestWindow

	out := &WalkForwardResult{}
	for i := train; i+test <= len(dates); i += test {
		w := Window{
			TrainStart: dates[i-train],
			TrainEnd:   dates[i-1],
			TestStart:  dates[i],
			TestEnd:    dates[i+test-1],
		}
		result, err := b.RunFresh(stream, prices, w.TestStart, w.TestEnd)
		if err != nil {
			return nil, err
		}
		w.Result = result
		out.Windows = append(out.Windows, w)

		b.logger.Debug().
			Str("test_start", w.TestStart.Format(series.DateLayout)).
			Str("test_end", w.TestEnd.Format(series.DateLayout)).
			Int("trades", result.TotalTrades).
			Msg("Walk-forward fold completed")
	}

	if n := float64(len(out.Windows)); n > 0 {
		for _, w := range out.Windows {
			out.MeanAnnualReturn += w.Result.AnnualReturn / n
			out.MeanSharpe += w.Result.SharpeRatio / n
			out.MeanMaxDrawdown += w.Result.MaxDrawdown / n
			out.MeanWinRate += w.Result.WinRate / n
			if w.Result.TotalReturn > 0 {
				out.PositiveWindows++
			}
		}
	}

	b.logger.Info().Int("folds", len(out.Windows)).Msg("Walk-forward analysis completed")
	return out, nil
}

func distinctDates(stream []signals.TradingSignal) []time.Time {
	var dates []time.Time
	for _, sig := range stream {
		day := series.Day(sig.Timestamp)
		if n := len(dates); n > 0 && !day.After(dates[n-1]) {
			continue
		}
		dates = append(dates, day)
	}
	return dates
}
