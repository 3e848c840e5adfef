package backtest

import (
	"math"
	"sort"

	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

// DefaultHorizons are the forward return horizons, in observations
var DefaultHorizons = []int{5, 10, 20, 60}

// QualityStat describes the forward returns that followed signals of one
// stress level over one horizon
type QualityStat struct {
	Level      stress.Level
	Horizon    int
	MeanReturn float64
	HitRate    float64
	StdReturn  float64
	SampleSize int
}

var levelOrder = map[stress.Level]int{
	stress.LevelNow:     0,
	stress.LevelSoon:    1,
	stress.LevelWatch:   2,
	stress.LevelNeutral: 3,
}

// SignalQuality measures the symbol's return from each signal's date to
// horizon observations later. Signals too close to the end of the price
// history for a horizon are left out of that horizon.
func SignalQuality(stream []signals.TradingSignal, prices map[string]series.Series, horizons []int) []QualityStat {
	type key struct {
		level   stress.Level
		horizon int
	}
	samples := make(map[key][]float64)

	for _, sig := range stream {
		history, ok := prices[sig.Symbol]
		if !ok {
			continue
		}
		idx := history.IndexAt(sig.Timestamp)
		if idx < 0 {
			continue
		}
		entry := history.Points[idx].Value
		if entry <= 0 {
			continue
		}
		for _, h := range horizons {
			if h <= 0 || idx+h >= history.Len() {
				continue
			}
			k := key{level: sig.Level, horizon: h}
			samples[k] = append(samples[k], history.Points[idx+h].Value/entry-1)
		}
	}

	stats := make([]QualityStat, 0, len(samples))
	for k, returns := range samples {
		hits := 0
		for _, r := range returns {
			if r > 0 {
				hits++
			}
		}
		std := series.StdDev(returns)
		if math.IsNaN(std) {
			std = 0
		}
		stats = append(stats, QualityStat{
			Level:      k.level,
			Horizon:    k.horizon,
			MeanReturn: series.Mean(returns),
			HitRate:    float64(hits) / float64(len(returns)),
			StdReturn:  std,
			SampleSize: len(returns),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Level != stats[j].Level {
			return rank(stats[i].Level) < rank(stats[j].Level)
		}
		return stats[i].Horizon < stats[j].Horizon
	})
	return stats
}

func rank(level stress.Level) int {
	if r, ok := levelOrder[level]; ok {
		return r
	}
	return len(levelOrder)
}
