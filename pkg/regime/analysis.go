package regime

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/bondstress/pkg/brokerage"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

// Performance is the closed trade record of one regime, keyed by entry date
type Performance struct {
	Regime           string
	Description      string
	TotalTrades      int
	WinRate          float64
	AvgReturn        float64
	ReturnVolatility float64
	TotalPnL         decimal.Decimal
	BestTrade        float64
	WorstTrade       float64
}

// Pattern describes how signals were generated during one regime
type Pattern struct {
	Regime             string
	TotalSignals       int
	SignalsPerMonth    float64
	ActionDistribution map[signals.Action]int
	AvgConfidence      float64
	TopSymbols         []SymbolCount
}

type SymbolCount struct {
	Symbol string
	Count  int
}

// Assessment describes the regime a given day falls in
type Assessment struct {
	Regime          string
	Description     string
	Characteristics string
	DaysInRegime    int
	AssessedAt      time.Time
}

// SimilarPeriod is a calendar month whose average bond conditions resemble
// a reference stress reading
type SimilarPeriod struct {
	Month         string
	Similarity    float64
	AvgSpread     float64
	AvgVolatility float64
	AvgConfidence float64
}

// Performance groups trades by the regime of their entry date. Regimes are
// returned in table order with Unknown last.
func (c *Classifier) Performance(trades []brokerage.Trade) []Performance {
	groups := make(map[string][]brokerage.Trade)
	for _, t := range trades {
		name := c.Classify(t.EntryDate)
		groups[name] = append(groups[name], t)
	}

	out := make([]Performance, 0, len(groups))
	for _, name := range orderedNames(c, groups) {
		group := groups[name]
		returns := make([]float64, len(group))
		wins := 0
		pnl := decimal.Zero
		for i, t := range group {
			returns[i] = t.Return
			if t.Return > 0 {
				wins++
			}
			pnl = pnl.Add(t.ProfitLoss)
		}
		vol := series.StdDev(returns)
		if math.IsNaN(vol) {
			vol = 0
		}
		best, worst := returns[0], returns[0]
		for _, r := range returns[1:] {
			best = math.Max(best, r)
			worst = math.Min(worst, r)
		}

		out = append(out, Performance{
			Regime:           name,
			Description:      c.description(name),
			TotalTrades:      len(group),
			WinRate:          float64(wins) / float64(len(group)),
			AvgReturn:        series.Mean(returns),
			ReturnVolatility: vol,
			TotalPnL:         pnl,
			BestTrade:        best,
			WorstTrade:       worst,
		})
	}
	return out
}

// SignalPatterns groups signals by the regime of their timestamp
func (c *Classifier) SignalPatterns(sigs []signals.TradingSignal) []Pattern {
	groups := make(map[string][]signals.TradingSignal)
	for _, s := range sigs {
		name := c.Classify(s.Timestamp)
		groups[name] = append(groups[name], s)
	}

	out := make([]Pattern, 0, len(groups))
	for _, name := range orderedNames(c, groups) {
		group := groups[name]
		months := 1
		if p, ok := c.Period(name); ok {
			months = p.Months()
		}

		dist := make(map[signals.Action]int)
		counts := make(map[string]int)
		confidence := 0.0
		for _, s := range group {
			dist[s.Action]++
			counts[s.Symbol]++
			confidence += s.Confidence
		}

		out = append(out, Pattern{
			Regime:             name,
			TotalSignals:       len(group),
			SignalsPerMonth:    float64(len(group)) / float64(months),
			ActionDistribution: dist,
			AvgConfidence:      confidence / float64(len(group)),
			TopSymbols:         topSymbols(counts, 3),
		})
	}
	return out
}

// Current assesses the regime containing now
func (c *Classifier) Current(now time.Time) Assessment {
	p, ok := c.Lookup(now)
	if !ok {
		return Assessment{
			Regime:          Unknown,
			Description:     "Unknown",
			Characteristics: "Unknown",
			AssessedAt:      now,
		}
	}
	return Assessment{
		Regime:          p.Name,
		Description:     p.Description,
		Characteristics: p.Characteristics,
		DaysInRegime:    int(series.Day(now).Sub(p.Start).Hours() / 24),
		AssessedAt:      now,
	}
}

// SimilarPeriods ranks calendar months of history by how close their mean
// spread and bond volatility are to current, returning at most n months.
// Readings with a NaN spread or volatility are ignored.
func SimilarPeriods(current stress.Signal, history []stress.Signal, n int) []SimilarPeriod {
	type acc struct {
		spread, vol, confidence float64
		count                   int
	}
	months := make(map[string]*acc)
	for _, s := range history {
		if math.IsNaN(s.Spread) || math.IsNaN(s.Volatility) {
			continue
		}
		key := s.Timestamp.UTC().Format("2006-01")
		a, ok := months[key]
		if !ok {
			a = &acc{}
			months[key] = a
		}
		a.spread += s.Spread
		a.vol += s.Volatility
		a.confidence += s.Confidence
		a.count++
	}

	out := make([]SimilarPeriod, 0, len(months))
	for month, a := range months {
		count := float64(a.count)
		sp := SimilarPeriod{
			Month:         month,
			AvgSpread:     a.spread / count,
			AvgVolatility: a.vol / count,
			AvgConfidence: a.confidence / count,
		}
		sp.Similarity = 1 / (1 + math.Abs(sp.AvgSpread-current.Spread) + math.Abs(sp.AvgVolatility-current.Volatility))
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Month < out[j].Month
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (c *Classifier) description(name string) string {
	if p, ok := c.Period(name); ok {
		return p.Description
	}
	return "Unknown Period"
}

// orderedNames returns the keys of groups in table order followed by Unknown
func orderedNames[T any](c *Classifier, groups map[string][]T) []string {
	names := make([]string, 0, len(groups))
	for _, p := range c.periods {
		if _, ok := groups[p.Name]; ok {
			names = append(names, p.Name)
		}
	}
	if _, ok := groups[Unknown]; ok {
		names = append(names, Unknown)
	}
	return names
}

func topSymbols(counts map[string]int, n int) []SymbolCount {
	out := make([]SymbolCount, 0, len(counts))
	for symbol, count := range counts {
		out = append(out, SymbolCount{Symbol: symbol, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Symbol < out[j].Symbol
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
