package signals

import (
	"math"

	"github.com/vignesh-goutham/bondstress/pkg/series"
)

// PeriodReturn is the return from period observations back to the latest
// price. It is 0 when the history is shorter than period.
func PeriodReturn(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period {
		return 0
	}
	past := prices[len(prices)-period]
	if past == 0 {
		return 0
	}
	return (prices[len(prices)-1] - past) / past
}

// RSI averages gains and losses of the last period returns. It reads 50 when
// there are not enough returns or no losses at all.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}
	var gains, losses float64
	for i := len(prices) - period; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 {
			continue
		}
		r := (prices[i] - prev) / prev
		if r > 0 {
			gains += r
		} else {
			losses -= r
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 50
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func ComputeMomentum(prices []float64, rsiPeriod int) Momentum {
	return Momentum{
		Return5d:  PeriodReturn(prices, 5),
		Return10d: PeriodReturn(prices, 10),
		Return20d: PeriodReturn(prices, 20),
		RSI:       RSI(prices, rsiPeriod),
	}
}

// Correlation is the Pearson correlation between the bond stress series and
// the symbol's daily returns over the last window common dates. ok is false
// when there is not enough overlap or the result is undefined.
func Correlation(bond, prices series.Series, window int) (float64, bool) {
	_, b, r, err := series.Align(bond, prices.PctChange())
	if err != nil || len(b) < window {
		return 0, false
	}
	c := series.Pearson(b[len(b)-window:], r[len(r)-window:])
	if math.IsNaN(c) {
		return 0, false
	}
	return c, true
}
