package regime

import (
	"errors"
	"fmt"
	"time"

	"github.com/vignesh-goutham/bondstress/pkg/series"
)

// Unknown is the name of every date outside the configured periods
const Unknown = "unknown"

var ErrInvalidPeriod = errors.New("invalid regime period")

// Period is a named calendar window. Start and End are whole days and both
// are inclusive.
type Period struct {
	Name            string
	Start           time.Time
	End             time.Time
	Description     string
	Characteristics string
}

func (p Period) contains(t time.Time) bool {
	day := series.Day(t)
	return !day.Before(p.Start) && !day.After(p.End)
}

// Months is the approximate length of the period in 30 day months, at least 1
func (p Period) Months() int {
	return max(1, int(p.End.Sub(p.Start).Hours()/24)/30)
}

func mustDay(s string) time.Time {
	t, err := time.Parse(series.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultPeriods are the market regimes signal history is segmented by
func DefaultPeriods() []Period {
	return []Period{
		{
			Name:            "covid_crash",
			Start:           mustDay("2020-02-01"),
			End:             mustDay("2020-04-30"),
			Description:     "COVID-19 Market Crash",
			Characteristics: "High volatility, flight to quality, tech weakness",
		},
		{
			Name:            "covid_recovery",
			Start:           mustDay("2020-05-01"),
			End:             mustDay("2021-12-31"),
			Description:     "COVID Recovery Rally",
			Characteristics: "QE-driven rally, tech strength, low rates",
		},
		{
			Name:            "rate_hike_cycle",
			Start:           mustDay("2022-01-01"),
			End:             mustDay("2023-06-30"),
			Description:     "Fed Rate Hiking Cycle",
			Characteristics: "Rising rates, bond stress, growth concerns",
		},
		{
			Name:            "ai_boom",
			Start:           mustDay("2023-07-01"),
			End:             mustDay("2024-12-31"),
			Description:     "AI and Chip Boom",
			Characteristics: "AI hype, semiconductor strength, selective rally",
		},
		{
			Name:            "current_period",
			Start:           mustDay("2025-01-01"),
			End:             mustDay("2025-12-31"),
			Description:     "Current Trading Period",
			Characteristics: "Active signal generation period",
		},
	}
}

// Classifier maps dates onto a fixed, ordered table of regime periods
type Classifier struct {
	periods []Period
}

// New validates periods and returns a classifier over them. Order matters:
// when periods overlap the earliest listed one wins.
func New(periods []Period) (*Classifier, error) {
	out := make([]Period, len(periods))
	for i, p := range periods {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: period %d has no name", ErrInvalidPeriod, i)
		}
		if p.Name == Unknown {
			return nil, fmt.Errorf("%w: %q is reserved", ErrInvalidPeriod, Unknown)
		}
		p.Start, p.End = series.Day(p.Start), series.Day(p.End)
		if p.End.Before(p.Start) {
			return nil, fmt.Errorf("%w: %s ends %s before it starts %s", ErrInvalidPeriod, p.Name,
				p.End.Format(series.DateLayout), p.Start.Format(series.DateLayout))
		}
		out[i] = p
	}
	return &Classifier{periods: out}, nil
}

// NewDefault returns a classifier over DefaultPeriods
func NewDefault() *Classifier {
	c, err := New(DefaultPeriods())
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the name of the first period containing t, or Unknown
func (c *Classifier) Classify(t time.Time) string {
	if p, ok := c.Lookup(t); ok {
		return p.Name
	}
	return Unknown
}

// Lookup returns the first period containing t
func (c *Classifier) Lookup(t time.Time) (Period, bool) {
	for _, p := range c.periods {
		if p.contains(t) {
			return p, true
		}
	}
	return Period{}, false
}

// Period returns the period with the given name
func (c *Classifier) Period(name string) (Period, bool) {
	for _, p := range c.periods {
		if p.Name == name {
			return p, true
		}
	}
	return Period{}, false
}

func (c *Classifier) Periods() []Period {
	return append([]Period(nil), c.periods...)
}
