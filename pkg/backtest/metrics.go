package backtest

import (
	"math"
	"time"

	"github.com/vignesh-goutham/bondstress/pkg/brokerage"
	"github.com/vignesh-goutham/bondstress/pkg/engine"
	"github.com/vignesh-goutham/bondstress/pkg/series"
)

// Result summarizes one replay. ProfitFactor is +Inf when there were winning
// trades but no losing ones. Streams that produce no trades yield a Result
// whose metrics are all zero.
type Result struct {
	StartDate      time.Time
	EndDate        time.Time
	InitialValue   float64
	FinalValue     float64
	TotalReturn    float64
	AnnualReturn   float64
	Volatility     float64
	SharpeRatio    float64
	MaxDrawdown    float64
	WinRate        float64
	TotalTrades    int
	AvgHoldingDays float64
	BestTrade      float64
	WorstTrade     float64
	ProfitFactor   float64
	Trades         []brokerage.Trade
	Values         series.Series
	Events         []engine.Event
}

// HasInfiniteProfitFactor reports whether the run had no losing trades
func (r *Result) HasInfiniteProfitFactor() bool {
	return math.IsInf(r.ProfitFactor, 1)
}

func (b *Backtester) metrics(opening series.Point, marks []series.Point, trades []brokerage.Trade) *Result {
	if len(trades) == 0 || len(marks) == 0 {
		return &Result{}
	}

	values := append([]series.Point{opening}, marks...)
	first, last := values[0], values[len(values)-1]

	r := &Result{
		StartDate:    first.Date,
		EndDate:      last.Date,
		InitialValue: first.Value,
		FinalValue:   last.Value,
		Trades:       trades,
		Values:       series.Series{Name: "portfolio_value", Points: marks},
	}

	if first.Value != 0 {
		r.TotalReturn = last.Value/first.Value - 1
	}
	days := last.Date.Sub(first.Date).Hours() / 24
	if days > 0 {
		r.AnnualReturn = math.Pow(1+r.TotalReturn, 365.25/days) - 1
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1].Value != 0 {
			returns = append(returns, values[i].Value/values[i-1].Value-1)
		}
	}
	if std := series.StdDev(returns); !math.IsNaN(std) {
		r.Volatility = std * math.Sqrt(b.cfg.AnnualizationFactor)
	}
	if r.Volatility > 0 {
		r.SharpeRatio = (r.AnnualReturn - b.cfg.RiskFreeRate) / r.Volatility
	}
	r.MaxDrawdown = MaxDrawdown(values)

	r.TotalTrades = len(trades)
	r.WinRate = WinRate(trades)
	r.AvgHoldingDays = AvgHoldingDays(trades)
	r.BestTrade, r.WorstTrade = BestWorst(trades)
	r.ProfitFactor = ProfitFactor(trades)
	return r
}

// MaxDrawdown is the most negative (value - running peak) / running peak
func MaxDrawdown(values []series.Point) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, p := range values {
		peak = math.Max(peak, p.Value)
		if peak <= 0 {
			continue
		}
		worst = math.Min(worst, (p.Value-peak)/peak)
	}
	return worst
}

// WinRate is the fraction of trades with a positive net return
func WinRate(trades []brokerage.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.Return > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// ProfitFactor is gross winning return over gross losing return. Any closed
// trades with no losses give +Inf, break-even ones included; no trades give 0.
func ProfitFactor(trades []brokerage.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	var profit, loss float64
	for _, t := range trades {
		if t.Return > 0 {
			profit += t.Return
		} else if t.Return < 0 {
			loss -= t.Return
		}
	}
	if loss == 0 {
		return math.Inf(1)
	}
	return profit / loss
}

// AvgWinLoss returns the mean winning return and the mean losing return
// magnitude, the inputs of Kelly sizing.
func AvgWinLoss(trades []brokerage.Trade) (float64, float64) {
	var (
		winSum, lossSum float64
		wins, losses    int
	)
	for _, t := range trades {
		switch {
		case t.Return > 0:
			winSum += t.Return
			wins++
		case t.Return < 0:
			lossSum -= t.Return
			losses++
		}
	}
	var avgWin, avgLoss float64
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	return avgWin, avgLoss
}

func AvgHoldingDays(trades []brokerage.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	total := 0
	for _, t := range trades {
		total += t.HoldingDays
	}
	return float64(total) / float64(len(trades))
}

// BestWorst returns the highest and lowest trade return
func BestWorst(trades []brokerage.Trade) (float64, float64) {
	if len(trades) == 0 {
		return 0, 0
	}
	best, worst := trades[0].Return, trades[0].Return
	for _, t := range trades[1:] {
		best = math.Max(best, t.Return)
		worst = math.Min(worst, t.Return)
	}
	return best, worst
}
