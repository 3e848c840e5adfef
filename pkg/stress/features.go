package stress

import (
	"math"

	"github.com/vignesh-goutham/bondstress/pkg/series"
)

// YieldSpread is the long minus short yield in basis points, on common dates
func YieldSpread(longYield, shortYield series.Series) (series.Series, error) {
	return series.Combine("yield_spread", longYield, shortYield, func(l, s float64) float64 {
		return (l - s) * 100
	})
}

// BondVolatility is the rolling std of daily returns of a bond price series,
// annualized by sqrt(annualization). Dates before a full window are dropped.
func BondVolatility(prices series.Series, window int, annualization float64) series.Series {
	returns := prices.PctChange()
	out := series.Series{Name: "bond_volatility"}
	if window < 2 {
		return out
	}
	values := returns.Values()
	for i := window - 1; i < len(values); i++ {
		std := series.StdDev(values[i-window+1 : i+1])
		if math.IsNaN(std) {
			continue
		}
		out.Points = append(out.Points, series.Point{
			Date:  returns.Points[i].Date,
			Value: std * math.Sqrt(annualization),
		})
	}
	return out
}

// CreditProxy is the investment grade return minus the high yield return.
// It rises when high yield underperforms.
func CreditProxy(investmentGrade, highYield series.Series) (series.Series, error) {
	return series.Combine("credit_proxy", investmentGrade.PctChange(), highYield.PctChange(), func(ig, hy float64) float64 {
		return ig - hy
	})
}
