package stress

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vignesh-goutham/bondstress/pkg/series"
)

// ZScores are the latest z-scores fed into classification
type ZScores struct {
	SpreadShort float64
	SpreadLong  float64
	Volatility  float64
	Credit      float64
}

// Classification is the outcome of thresholding a set of z-scores
type Classification struct {
	Score        int
	Level        Level
	Confidence   float64
	Factors      []string
	Action       string
	Valid        int
	Insufficient bool
}

// Scorer turns spread, volatility and credit series into stress signals
type Scorer struct {
	cfg    Config
	logger zerolog.Logger
}

func NewScorer(cfg Config, logger zerolog.Logger) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg, logger: logger}, nil
}

// Compute scores the latest observation of the three input series. Missing
// or short series lower the confidence of the result; only series with
// out-of-order dates produce an error.
func (s *Scorer) Compute(spread, volatility, credit series.Series) (Signal, error) {
	for _, in := range []series.Series{spread, volatility, credit} {
		if err := in.Validate(); err != nil {
			return Signal{}, err
		}
	}

	spreadValues := spread.Values()
	z := ZScores{
		SpreadShort: last(s.zscores("spread", spreadValues, s.cfg.ShortWindow)),
		SpreadLong:  last(s.zscores("spread", spreadValues, s.cfg.LongWindow)),
		Volatility:  last(s.zscores("volatility", volatility.Values(), s.cfg.ShortWindow)),
		Credit:      last(s.zscores("credit", credit.Values(), s.cfg.ShortWindow)),
	}

	class := Classify(z)
	if spread.Len() < s.cfg.MinObservations && !class.Insufficient {
		s.logger.Warn().
			Int("observations", spread.Len()).
			Int("required", s.cfg.MinObservations).
			Msg("Spread history too short, forcing neutral signal")
		class = insufficient(class.Valid)
	}

	return Signal{
		Timestamp:        latestDate(spread, volatility, credit),
		Spread:           lastValue(spread),
		SpreadZShort:     z.SpreadShort,
		SpreadZLong:      z.SpreadLong,
		Volatility:       lastValue(volatility),
		VolatilityZ:      z.Volatility,
		Credit:           lastValue(credit),
		CreditZ:          z.Credit,
		Score:            class.Score,
		Level:            class.Level,
		Confidence:       class.Confidence,
		Factors:          class.Factors,
		Action:           class.Action,
		InsufficientData: class.Insufficient,
	}, nil
}

func (s *Scorer) zscores(name string, values []float64, window int) []float64 {
	if len(values) < s.cfg.MinObservations {
		s.logger.Debug().
			Str("series", name).
			Int("observations", len(values)).
			Int("required", s.cfg.MinObservations).
			Msg("Insufficient history for z-score")
	}
	return RollingZScore(values, window, s.cfg.MinObservations, s.cfg.FlatStdThreshold)
}

// Classify thresholds the available z-scores into a stress level. NaN inputs
// add nothing to the score and are left out of the valid-input count.
func Classify(z ZScores) Classification {
	var valid []string
	if !math.IsNaN(z.SpreadShort) {
		valid = append(valid, fmt.Sprintf("Yield curve z-score: %.2f", z.SpreadShort))
	}
	if !math.IsNaN(z.Volatility) {
		valid = append(valid, fmt.Sprintf("Volatility z-score: %.2f", z.Volatility))
	}
	if !math.IsNaN(z.Credit) {
		valid = append(valid, fmt.Sprintf("Credit z-score: %.2f", z.Credit))
	}
	if len(valid) == 0 {
		return insufficient(0)
	}

	score := 0
	var factors []string

	if !math.IsNaN(z.SpreadShort) {
		switch {
		case z.SpreadShort < -2.0:
			score += 3
			factors = append(factors, fmt.Sprintf("Strong yield curve inversion (%.2fσ)", z.SpreadShort))
		case z.SpreadShort < -1.5:
			score += 2
			factors = append(factors, fmt.Sprintf("Moderate yield curve flattening (%.2fσ)", z.SpreadShort))
		case z.SpreadShort < -1.0:
			score++
			factors = append(factors, fmt.Sprintf("Mild yield curve flattening (%.2fσ)", z.SpreadShort))
		}
	}

	if !math.IsNaN(z.Volatility) {
		switch {
		case z.Volatility > 2.0:
			score += 3
			factors = append(factors, fmt.Sprintf("High bond volatility spike (%.2fσ)", z.Volatility))
		case z.Volatility > 1.5:
			score += 2
			factors = append(factors, fmt.Sprintf("Elevated bond volatility (%.2fσ)", z.Volatility))
		case z.Volatility > 1.0:
			score++
			factors = append(factors, fmt.Sprintf("Rising bond volatility (%.2fσ)", z.Volatility))
		}
	}

	if !math.IsNaN(z.Credit) {
		switch {
		case z.Credit > 2.0:
			score += 3
			factors = append(factors, fmt.Sprintf("Significant credit spread widening (%.2fσ)", z.Credit))
		case z.Credit > 1.5:
			score += 2
			factors = append(factors, fmt.Sprintf("Moderate credit stress (%.2fσ)", z.Credit))
		case z.Credit > 1.0:
			score++
			factors = append(factors, fmt.Sprintf("Minor credit spread widening (%.2fσ)", z.Credit))
		}
	}

	// accelerating inversion
	if !math.IsNaN(z.SpreadShort) && !math.IsNaN(z.SpreadLong) && z.SpreadLong < -1.0 && z.SpreadShort < z.SpreadLong {
		score++
		factors = append(factors, "Sustained yield curve trend")
	}

	quality := "Real data: " + strings.Join(valid, ", ")
	n := float64(len(valid))
	c := Classification{Score: score, Factors: factors, Valid: len(valid)}

	switch {
	case score >= 7:
		c.Level = LevelNow
		c.Confidence = math.Min(10, float64(score)+n)
		c.Action = fmt.Sprintf("TRADE NOW - %s | %s", strings.Join(head(factors, 2), "; "), quality)
	case score >= 4:
		c.Level = LevelSoon
		c.Confidence = math.Min(8, float64(score)+n)
		c.Action = fmt.Sprintf("PREPARE TO TRADE - %s | %s", strings.Join(head(factors, 2), "; "), quality)
	case score >= 2:
		c.Level = LevelWatch
		c.Confidence = math.Min(6, float64(score)+n)
		c.Action = fmt.Sprintf("MONITOR CLOSELY - %s | %s", strings.Join(head(factors, 1), "; "), quality)
	default:
		c.Level = LevelNeutral
		c.Confidence = math.Max(1, n)
		c.Action = "No significant stress detected | " + quality
	}
	return c
}

func insufficient(valid int) Classification {
	return Classification{
		Level:        LevelNeutral,
		Confidence:   0.5,
		Action:       InsufficientDataAction,
		Valid:        valid,
		Insufficient: true,
	}
}

func head(factors []string, n int) []string {
	if len(factors) < n {
		return factors
	}
	return factors[:n]
}

func lastValue(s series.Series) float64 {
	p, ok := s.Last()
	if !ok {
		return math.NaN()
	}
	return p.Value
}

func latestDate(all ...series.Series) time.Time {
	var latest time.Time
	for _, s := range all {
		if p, ok := s.Last(); ok && p.Date.After(latest) {
			latest = p.Date
		}
	}
	return latest
}
