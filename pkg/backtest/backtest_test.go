package backtest

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vignesh-goutham/bondstress/pkg/brokerage"
	"github.com/vignesh-goutham/bondstress/pkg/engine"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/sizing"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

func date(s string) time.Time {
	t, err := time.Parse(series.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sig(day, symbol string, action signals.Action, size float64) signals.TradingSignal {
	return signals.TradingSignal{
		Timestamp:    date(day),
		Symbol:       symbol,
		Action:       action,
		Level:        stress.LevelNow,
		PositionSize: size,
	}
}

func priceSeries(t *testing.T, name string, points map[string]float64) series.Series {
	t.Helper()
	values := make(map[time.Time]float64, len(points))
	for d, v := range points {
		values[date(d)] = v
	}
	s := series.FromMap(name, values)
	require.NoError(t, s.Validate())
	return s
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newBacktester(t *testing.T) *Backtester {
	t.Helper()
	b, err := NewBacktester(DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	return b
}

func TestRun_SingleRoundTrip(t *testing.T) {
	b := newBacktester(t)
	prices := map[string]series.Series{
		"NVDA": priceSeries(t, "NVDA", map[string]float64{"2024-01-02": 100, "2024-01-31": 110}),
	}
	stream := []signals.TradingSignal{
		sig("2024-01-02", "NVDA", signals.ActionBuy, 0.10),
		sig("2024-01-31", "NVDA", signals.ActionSell, 0),
	}

	result, err := b.RunFresh(stream, prices, time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.True(t, trade.ProfitLoss.Sub(decimalFromString(t, "978.011")).Abs().LessThan(decimalFromString(t, "0.000001")))
	assert.InDelta(t, 0.0978011, trade.Return, 1e-9)
	assert.Equal(t, 29, trade.HoldingDays)

	assert.Equal(t, 1, result.TotalTrades)
	assert.Equal(t, 1.0, result.WinRate)
	assert.InDelta(t, 100000, result.InitialValue, 1e-6)
	assert.InDelta(t, 100978.011, result.FinalValue, 1e-6)
	assert.InDelta(t, 100978.011/100000-1, result.TotalReturn, 1e-9)
	assert.True(t, result.HasInfiniteProfitFactor())
	assert.Equal(t, date("2024-01-02"), result.StartDate)
	assert.Equal(t, date("2024-01-31"), result.EndDate)
	assert.Equal(t, 2, result.Values.Len())
	assert.LessOrEqual(t, result.MaxDrawdown, 0.0)
}

func TestRun_BreakEvenTradeHasInfiniteProfitFactor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TransactionCost = 0
	b, err := NewBacktester(cfg, zerolog.Nop())
	require.NoError(t, err)

	prices := map[string]series.Series{
		"AMD": priceSeries(t, "AMD", map[string]float64{"2024-02-01": 100, "2024-02-15": 100}),
	}
	stream := []signals.TradingSignal{
		sig("2024-02-01", "AMD", signals.ActionBuy, 0.10),
		sig("2024-02-15", "AMD", signals.ActionSell, 0),
	}

	result, err := b.RunFresh(stream, prices, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalTrades)
	assert.Zero(t, result.TotalReturn)
	assert.Zero(t, result.WinRate)
	assert.True(t, result.HasInfiniteProfitFactor())
	assert.Equal(t, "inf (no losing trades)", FormatProfitFactor(result.ProfitFactor))
}

func TestRun_NoTradesYieldsZeroMetrics(t *testing.T) {
	b := newBacktester(t)
	prices := map[string]series.Series{
		"NVDA": priceSeries(t, "NVDA", map[string]float64{"2024-01-02": 100}),
	}

	tests := []struct {
		name   string
		stream []signals.TradingSignal
	}{
		{name: "empty stream", stream: nil},
		{name: "only holds", stream: []signals.TradingSignal{
			sig("2024-01-02", "NVDA", signals.ActionHold, 0),
			sig("2024-01-03", "NVDA", signals.ActionWatch, 0),
		}},
		{name: "open position never closed", stream: []signals.TradingSignal{
			sig("2024-01-02", "NVDA", signals.ActionBuy, 0.1),
		}},
		{name: "no price for symbol", stream: []signals.TradingSignal{
			sig("2024-01-02", "AMD", signals.ActionBuy, 0.1),
			sig("2024-01-05", "AMD", signals.ActionSell, 0),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := b.RunFresh(tt.stream, prices, time.Time{}, time.Time{})
			require.NoError(t, err)
			assert.Zero(t, result.TotalTrades)
			assert.Zero(t, result.TotalReturn)
			assert.Zero(t, result.AnnualReturn)
			assert.Zero(t, result.SharpeRatio)
			assert.Zero(t, result.MaxDrawdown)
			assert.Zero(t, result.WinRate)
			assert.Zero(t, result.ProfitFactor)
		})
	}
}

func TestRun_ForwardFillsPrices(t *testing.T) {
	b := newBacktester(t)
	prices := map[string]series.Series{
		"AMD": priceSeries(t, "AMD", map[string]float64{"2024-03-01": 50, "2024-03-08": 55}),
	}
	stream := []signals.TradingSignal{
		sig("2024-03-04", "AMD", signals.ActionBuy, 0.2),
		sig("2024-03-10", "AMD", signals.ActionSell, 0),
	}

	result, err := b.RunFresh(stream, prices, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, "50", result.Trades[0].EntryPrice.String())
	assert.Equal(t, "55", result.Trades[0].ExitPrice.String())
}

func TestRun_DateRangeFilter(t *testing.T) {
	b := newBacktester(t)
	prices := map[string]series.Series{
		"TSM": priceSeries(t, "TSM", map[string]float64{
			"2024-01-02": 100, "2024-02-01": 90, "2024-03-01": 120, "2024-04-01": 130,
		}),
	}
	stream := []signals.TradingSignal{
		sig("2024-01-02", "TSM", signals.ActionBuy, 0.1),
		sig("2024-02-01", "TSM", signals.ActionSell, 0),
		sig("2024-03-01", "TSM", signals.ActionBuy, 0.1),
		sig("2024-04-01", "TSM", signals.ActionSell, 0),
	}

	result, err := b.RunFresh(stream, prices, date("2024-03-01"), date("2024-04-30"))
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, date("2024-03-01"), result.Trades[0].EntryDate)
	assert.Greater(t, result.Trades[0].Return, 0.0)
}

func TestRun_RejectsUnorderedStream(t *testing.T) {
	b := newBacktester(t)
	stream := []signals.TradingSignal{
		sig("2024-01-05", "NVDA", signals.ActionBuy, 0.1),
		sig("2024-01-02", "NVDA", signals.ActionSell, 0),
	}
	_, err := b.RunFresh(stream, map[string]series.Series{}, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrUnordered)
}

func TestRun_RequiresPortfolio(t *testing.T) {
	b := newBacktester(t)
	_, err := b.Run(nil, nil, nil, time.Time{}, time.Time{})
	assert.Error(t, err)
}

func TestRun_ReusedPortfolioCountsOnlyNewTrades(t *testing.T) {
	b := newBacktester(t)
	prices := map[string]series.Series{
		"INTC": priceSeries(t, "INTC", map[string]float64{"2024-01-02": 40, "2024-01-10": 44, "2024-02-01": 42, "2024-02-10": 40}),
	}
	portfolio, err := b.NewPortfolio()
	require.NoError(t, err)

	first := []signals.TradingSignal{
		sig("2024-01-02", "INTC", signals.ActionBuy, 0.1),
		sig("2024-01-10", "INTC", signals.ActionSell, 0),
	}
	_, err = b.Run(portfolio, first, prices, time.Time{}, time.Time{})
	require.NoError(t, err)

	second := []signals.TradingSignal{
		sig("2024-02-01", "INTC", signals.ActionBuy, 0.1),
		sig("2024-02-10", "INTC", signals.ActionSell, 0),
	}
	result, err := b.Run(portfolio, second, prices, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalTrades)
	assert.Zero(t, result.WinRate)
	assert.Len(t, portfolio.Trades(), 2)
}

func TestRun_RecordsEvents(t *testing.T) {
	b := newBacktester(t)
	prices := map[string]series.Series{
		"NVDA": priceSeries(t, "NVDA", map[string]float64{"2024-01-02": 100, "2024-01-03": 101}),
	}
	stream := []signals.TradingSignal{
		sig("2024-01-02", "NVDA", signals.ActionBuy, 0.1),
		sig("2024-01-02", "QCOM", signals.ActionBuy, 0.1),
		sig("2024-01-03", "NVDA", signals.ActionBuy, 0.1),
		sig("2024-01-03", "NVDA", signals.ActionSell, 0),
	}

	result, err := b.RunFresh(stream, prices, time.Time{}, time.Time{})
	require.NoError(t, err)

	kinds := make([]engine.EventKind, 0, len(result.Events))
	for _, ev := range result.Events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []engine.EventKind{engine.EventOpened, engine.EventSkipped, engine.EventIgnored, engine.EventClosed}, kinds)
}

func TestMetricHelpers(t *testing.T) {
	trades := []brokerage.Trade{
		{Return: 0.10, HoldingDays: 10},
		{Return: -0.05, HoldingDays: 4},
		{Return: 0.02, HoldingDays: 1},
		{Return: -0.01, HoldingDays: 5},
	}

	assert.InDelta(t, 0.5, WinRate(trades), 1e-12)
	assert.InDelta(t, 0.12/0.06, ProfitFactor(trades), 1e-12)
	assert.InDelta(t, 5.0, AvgHoldingDays(trades), 1e-12)

	avgWin, avgLoss := AvgWinLoss(trades)
	assert.InDelta(t, 0.06, avgWin, 1e-12)
	assert.InDelta(t, 0.03, avgLoss, 1e-12)

	best, worst := BestWorst(trades)
	assert.Equal(t, 0.10, best)
	assert.Equal(t, -0.05, worst)

	assert.True(t, math.IsInf(ProfitFactor([]brokerage.Trade{{Return: 0.01}}), 1))
	assert.True(t, math.IsInf(ProfitFactor([]brokerage.Trade{{Return: 0}}), 1))
	assert.Zero(t, ProfitFactor(nil))
	assert.Zero(t, WinRate(nil))
}

func TestPrintKelly(t *testing.T) {
	sizer, err := sizing.New(sizing.DefaultConfig())
	require.NoError(t, err)

	trades := []brokerage.Trade{{Return: 0.10}, {Return: 0.10}, {Return: 0.10}, {Return: -0.05}}
	var buf bytes.Buffer
	PrintKelly(&buf, &Result{TotalTrades: 4, WinRate: WinRate(trades), Trades: trades}, sizer)
	assert.Equal(t, "Suggested Kelly Size: 5.00% (win rate 75.00%, avg win 10.00%, avg loss 5.00%)\n", buf.String())

	buf.Reset()
	PrintKelly(&buf, &Result{}, sizer)
	assert.Contains(t, buf.String(), "no completed trades")
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "monotonic up", values: []float64{100, 110, 120}, want: 0},
		{name: "single dip", values: []float64{100, 80, 120}, want: -0.2},
		{name: "deepest after new peak", values: []float64{100, 90, 200, 100}, want: -0.5},
		{name: "empty", values: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := make([]series.Point, len(tt.values))
			for i, v := range tt.values {
				points[i] = series.Point{Date: date("2024-01-01").AddDate(0, 0, i), Value: v}
			}
			assert.InDelta(t, tt.want, MaxDrawdown(points), 1e-12)
		})
	}
}

func TestWalkForward(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrainWindow = 4
	cfg.TestWindow = 2
	b, err := NewBacktester(cfg, zerolog.Nop())
	require.NoError(t, err)

	points := make(map[string]float64)
	var stream []signals.TradingSignal
	start := date("2024-01-01")
	for i := 0; i < 11; i++ {
		day := start.AddDate(0, 0, i).Format(series.DateLayout)
		points[day] = 100 + float64(i)
		action := signals.ActionBuy
		if i%2 == 1 {
			action = signals.ActionSell
		}
		stream = append(stream, sig(day, "NVDA", action, 0.1))
	}
	prices := map[string]series.Series{"NVDA": priceSeries(t, "NVDA", points)}

	wf, err := b.WalkForward(stream, prices)
	require.NoError(t, err)

	// 11 dates, train 4, test 2: folds test [4,5], [6,7], [8,9]
	require.Len(t, wf.Windows, 3)
	assert.Equal(t, start, wf.Windows[0].TrainStart)
	assert.Equal(t, start.AddDate(0, 0, 3), wf.Windows[0].TrainEnd)
	assert.Equal(t, start.AddDate(0, 0, 4), wf.Windows[0].TestStart)
	assert.Equal(t, start.AddDate(0, 0, 5), wf.Windows[0].TestEnd)
	assert.Equal(t, start.AddDate(0, 0, 8), wf.Windows[2].TestStart)

	for _, w := range wf.Windows {
		assert.Equal(t, 1, w.Result.TotalTrades)
	}
	assert.Equal(t, 3, wf.PositiveWindows)
}

func TestWalkForward_TooShort(t *testing.T) {
	b := newBacktester(t)
	stream := []signals.TradingSignal{sig("2024-01-02", "NVDA", signals.ActionBuy, 0.1)}
	wf, err := b.WalkForward(stream, nil)
	require.NoError(t, err)
	assert.Empty(t, wf.Windows)
}

func TestSignalQuality(t *testing.T) {
	points := map[string]float64{}
	start := date("2024-01-01")
	for i := 0; i < 8; i++ {
		points[start.AddDate(0, 0, i).Format(series.DateLayout)] = 100 + 10*float64(i)
	}
	prices := map[string]series.Series{"NVDA": priceSeries(t, "NVDA", points)}

	soon := sig("2024-01-02", "NVDA", signals.ActionHold, 0)
	soon.Level = stress.LevelSoon
	stream := []signals.TradingSignal{
		sig("2024-01-01", "NVDA", signals.ActionBuy, 0.1),
		soon,
		sig("2024-01-07", "NVDA", signals.ActionBuy, 0.1),
	}

	stats := SignalQuality(stream, prices, []int{1, 5})
	require.Len(t, stats, 4)

	assert.Equal(t, stress.LevelNow, stats[0].Level)
	assert.Equal(t, 1, stats[0].Horizon)
	assert.Equal(t, 2, stats[0].SampleSize)
	assert.InDelta(t, 1.0, stats[0].HitRate, 1e-12)
	assert.InDelta(t, (0.1+10.0/160)/2, stats[0].MeanReturn, 1e-12)

	assert.Equal(t, stress.LevelNow, stats[1].Level)
	assert.Equal(t, 5, stats[1].Horizon)
	assert.Equal(t, 1, stats[1].SampleSize)
	assert.InDelta(t, 0.5, stats[1].MeanReturn, 1e-12)
	assert.Zero(t, stats[1].StdReturn)

	assert.Equal(t, stress.LevelSoon, stats[2].Level)
	assert.Equal(t, 1, stats[2].Horizon)
	assert.Equal(t, stress.LevelSoon, stats[3].Level)
	assert.Equal(t, 5, stats[3].Horizon)
}

func TestPrintResults(t *testing.T) {
	b := newBacktester(t)
	prices := map[string]series.Series{
		"NVDA": priceSeries(t, "NVDA", map[string]float64{"2024-01-02": 100, "2024-01-31": 110}),
	}
	stream := []signals.TradingSignal{
		sig("2024-01-02", "NVDA", signals.ActionBuy, 0.10),
		sig("2024-01-31", "NVDA", signals.ActionSell, 0),
	}
	result, err := b.RunFresh(stream, prices, time.Time{}, time.Time{})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintResults(&buf, result)
	out := buf.String()
	assert.Contains(t, out, "NVDA")
	assert.Contains(t, out, "Trades: 1")
	assert.Contains(t, out, "Profit Factor: inf")

	buf.Reset()
	PrintResults(&buf, &Result{})
	assert.Contains(t, buf.String(), "No completed trades")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero capital", mutate: func(c *Config) { c.InitialCapital = 0 }},
		{name: "negative cost", mutate: func(c *Config) { c.TransactionCost = -0.01 }},
		{name: "cost of one", mutate: func(c *Config) { c.TransactionCost = 1 }},
		{name: "zero annualization", mutate: func(c *Config) { c.AnnualizationFactor = 0 }},
		{name: "zero test window", mutate: func(c *Config) { c.TestWindow = 0 }},
	}

	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewBacktester(cfg, zerolog.Nop())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
