package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/vignesh-goutham/bondstress/pkg/series"
)

// FRED series the stress indicator is built from
const (
	SeriesTenYear = "DGS10"
	SeriesTwoYear = "DGS2"
	SeriesVIX     = "VIXCLS"
)

// Bond ETFs used for the volatility and credit inputs
const (
	BondETF            = "TLT"
	InvestmentGradeETF = "LQD"
	HighYieldETF       = "HYG"
)

// ErrNotFound is returned when a provider has no data source for a symbol or series
var ErrNotFound = errors.New("market data not found")

// BarProvider returns daily closing prices for equities and ETFs
type BarProvider interface {
	// DailyCloses gets the closes for symbol within [from, to], one point per
	// trading day, dated at UTC midnight
	DailyCloses(ctx context.Context, symbol string, from, to time.Time) (series.Series, error)
}

// YieldProvider returns economic observations such as treasury yields
type YieldProvider interface {
	// Observations gets the values of seriesID within [from, to]. Days
	// without an observation are omitted.
	Observations(ctx context.Context, seriesID string, from, to time.Time) (series.Series, error)
}

// Calendar reports whether the equity market traded on a date
type Calendar interface {
	IsMarketOpenOnDate(ctx context.Context, date time.Time) (bool, error)
}
