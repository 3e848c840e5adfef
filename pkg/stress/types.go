package stress

import (
	"errors"
	"fmt"
	"time"
)

// Level is the discrete urgency of bond market stress
type Level string

const (
	LevelNow     Level = "NOW"
	LevelSoon    Level = "SOON"
	LevelWatch   Level = "WATCH"
	LevelNeutral Level = "NEUTRAL"
)

// InsufficientDataAction is the action text for a signal computed without any
// usable z-score.
const InsufficientDataAction = "INSUFFICIENT HISTORICAL DATA - Need 10+ days for real z-scores"

var ErrInvalidConfig = errors.New("invalid stress scorer config")

// Signal is one immutable bond stress reading.
//
// Z-score fields are NaN when the underlying series had too little history
// or was flat over the trailing window. They are never coerced to zero.
type Signal struct {
	Timestamp        time.Time
	Spread           float64 // 10Y minus 2Y, basis points
	SpreadZShort     float64
	SpreadZLong      float64
	Volatility       float64 // annualized
	VolatilityZ      float64
	Credit           float64
	CreditZ          float64
	Score            int
	Level            Level
	Confidence       float64
	Factors          []string
	Action           string
	InsufficientData bool
}

// Config controls the rolling windows used for scoring
type Config struct {
	ShortWindow      int
	LongWindow       int
	MinObservations  int
	FlatStdThreshold float64
}

func DefaultConfig() Config {
	return Config{
		ShortWindow:      20,
		LongWindow:       60,
		MinObservations:  10,
		FlatStdThreshold: 0.001,
	}
}

func (c Config) Validate() error {
	if c.ShortWindow <= 0 || c.LongWindow <= 0 {
		return fmt.Errorf("%w: windows must be positive, got short=%d long=%d", ErrInvalidConfig, c.ShortWindow, c.LongWindow)
	}
	if c.MinObservations < 2 {
		return fmt.Errorf("%w: min observations must be at least 2, got %d", ErrInvalidConfig, c.MinObservations)
	}
	if c.FlatStdThreshold < 0 {
		return fmt.Errorf("%w: flat std threshold must not be negative, got %f", ErrInvalidConfig, c.FlatStdThreshold)
	}
	return nil
}
