package sizing

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidConfig = errors.New("invalid position sizer config")
	ErrInvalidInput  = errors.New("invalid position sizer input")
)

// Config holds the VIX brackets and hard risk caps.
//
// Base size is LowVolSize below CalmVIX, MidVolSize below StressedVIX and
// HighVolSize otherwise. All sizes are fractions of the portfolio.
type Config struct {
	CalmVIX       float64
	StressedVIX   float64
	LowVolSize    float64
	MidVolSize    float64
	HighVolSize   float64
	MaxPosition   float64
	MaxExposure   float64
	KellyFraction float64
	KellyCap      float64
}

func DefaultConfig() Config {
	return Config{
		CalmVIX:       20,
		StressedVIX:   30,
		LowVolSize:    0.02,
		MidVolSize:    0.015,
		HighVolSize:   0.005,
		MaxPosition:   0.03,
		MaxExposure:   0.20,
		KellyFraction: 0.25,
		KellyCap:      0.05,
	}
}

func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"low vol size":   c.LowVolSize,
		"mid vol size":   c.MidVolSize,
		"high vol size":  c.HighVolSize,
		"max position":   c.MaxPosition,
		"max exposure":   c.MaxExposure,
		"kelly fraction": c.KellyFraction,
		"kelly cap":      c.KellyCap,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s must not be negative, got %f", ErrInvalidConfig, name, v)
		}
	}
	if c.CalmVIX <= 0 || c.StressedVIX <= c.CalmVIX {
		return fmt.Errorf("%w: vix brackets must satisfy 0 < calm < stressed, got %f and %f", ErrInvalidConfig, c.CalmVIX, c.StressedVIX)
	}
	if c.MaxPosition > c.MaxExposure {
		return fmt.Errorf("%w: max position %f exceeds max exposure %f", ErrInvalidConfig, c.MaxPosition, c.MaxExposure)
	}
	return nil
}

// Sizer bounds position sizes by volatility regime and portfolio exposure
type Sizer struct {
	cfg Config
}

func New(cfg Config) (*Sizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sizer{cfg: cfg}, nil
}

// Size returns the position fraction for a signal of the given confidence
// (0 to 10). The result never exceeds MaxPosition and never pushes exposure
// past MaxExposure; it shrinks to zero once the exposure budget is used up.
func (s *Sizer) Size(confidence, vix, exposure float64) (float64, error) {
	switch {
	case math.IsNaN(confidence) || confidence < 0 || confidence > 10:
		return 0, fmt.Errorf("%w: confidence must be within [0, 10], got %f", ErrInvalidInput, confidence)
	case math.IsNaN(vix) || vix < 0:
		return 0, fmt.Errorf("%w: vix must not be negative, got %f", ErrInvalidInput, vix)
	case math.IsNaN(exposure) || exposure < 0:
		return 0, fmt.Errorf("%w: exposure must not be negative, got %f", ErrInvalidInput, exposure)
	}

	base := s.cfg.HighVolSize
	switch {
	case vix < s.cfg.CalmVIX:
		base = s.cfg.LowVolSize
	case vix < s.cfg.StressedVIX:
		base = s.cfg.MidVolSize
	}

	size := math.Min(base*confidence/10, s.cfg.MaxPosition)
	remaining := math.Max(0, s.cfg.MaxExposure-exposure)
	return math.Min(size, remaining), nil
}

// Kelly returns the fractional Kelly size for a strategy with the given
// trailing win rate and average win and loss magnitudes. Strategies without
// an edge size to zero.
func (s *Sizer) Kelly(winRate, avgWin, avgLoss float64) float64 {
	if !(winRate > 0.5) || !(avgWin > 0) || !(avgLoss > 0) {
		return 0
	}
	b := avgWin / avgLoss
	q := 1 - winRate
	f := (b*winRate - q) / b
	return math.Max(0, math.Min(f*s.cfg.KellyFraction, s.cfg.KellyCap))
}
