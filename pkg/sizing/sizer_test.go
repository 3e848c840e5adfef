package sizing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSizer(t *testing.T) *Sizer {
	t.Helper()
	s, err := New(DefaultConfig())
	require.NoError(t, err)
	return s
}

func TestSize(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		vix        float64
		exposure   float64
		expected   float64
	}{
		{name: "calm market full confidence", confidence: 10, vix: 15, exposure: 0, expected: 0.02},
		{name: "calm market half confidence", confidence: 5, vix: 15, exposure: 0, expected: 0.01},
		{name: "vix at calm bracket edge", confidence: 10, vix: 20, exposure: 0, expected: 0.015},
		{name: "elevated vix", confidence: 8, vix: 25, exposure: 0, expected: 0.012},
		{name: "stressed vix", confidence: 10, vix: 30, exposure: 0, expected: 0.005},
		{name: "budget nearly used", confidence: 10, vix: 15, exposure: 0.19, expected: 0.01},
		{name: "budget exhausted", confidence: 10, vix: 15, exposure: 0.20, expected: 0},
		{name: "over budget", confidence: 10, vix: 15, exposure: 0.35, expected: 0},
		{name: "zero confidence", confidence: 0, vix: 15, exposure: 0, expected: 0},
	}

	s := newSizer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Size(tt.confidence, tt.vix, tt.exposure)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestSizeRespectsCaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LowVolSize = 0.08
	s, err := New(cfg)
	require.NoError(t, err)

	for _, confidence := range []float64{0, 1, 3.5, 7, 10} {
		for _, vix := range []float64{0, 12, 19.99, 20, 29.99, 30, 80} {
			for _, exposure := range []float64{0, 0.05, 0.18, 0.199, 0.2, 0.5} {
				got, err := s.Size(confidence, vix, exposure)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 0.03)
				if exposure <= 0.2 {
					assert.LessOrEqual(t, exposure+got, 0.2+1e-12)
				} else {
					assert.Zero(t, got)
				}
			}
		}
	}
}

func TestSizeRejectsMalformedInput(t *testing.T) {
	s := newSizer(t)

	tests := []struct {
		name       string
		confidence float64
		vix        float64
		exposure   float64
	}{
		{name: "nan confidence", confidence: math.NaN(), vix: 15},
		{name: "confidence above ten", confidence: 11, vix: 15},
		{name: "negative vix", confidence: 5, vix: -1},
		{name: "negative exposure", confidence: 5, vix: 15, exposure: -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Size(tt.confidence, tt.vix, tt.exposure)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestKelly(t *testing.T) {
	tests := []struct {
		name     string
		winRate  float64
		avgWin   float64
		avgLoss  float64
		expected float64
	}{
		{name: "losing win rate", winRate: 0.45, avgWin: 0.5, avgLoss: 0.01, expected: 0},
		{name: "coin flip", winRate: 0.5, avgWin: 0.1, avgLoss: 0.05, expected: 0},
		{name: "no average win", winRate: 0.6, avgWin: 0, avgLoss: 0.05, expected: 0},
		{name: "no average loss", winRate: 0.6, avgWin: 0.05, avgLoss: 0, expected: 0},
		{name: "modest edge", winRate: 0.55, avgWin: 0.05, avgLoss: 0.05, expected: 0.025},
		{name: "large edge capped", winRate: 0.7, avgWin: 0.1, avgLoss: 0.05, expected: 0.05},
	}

	s := newSizer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, s.Kelly(tt.winRate, tt.avgWin, tt.avgLoss), 1e-12)
		})
	}
}

func TestKellyIgnoresPayoffBelowBreakEven(t *testing.T) {
	s := newSizer(t)
	for _, win := range []float64{0.01, 1, 100} {
		for _, loss := range []float64{0.01, 1, 100} {
			assert.Equal(t, 0.0, s.Kelly(0.45, win, loss))
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "negative max position", mutate: func(c *Config) { c.MaxPosition = -0.01 }},
		{name: "negative exposure cap", mutate: func(c *Config) { c.MaxExposure = -1 }},
		{name: "inverted brackets", mutate: func(c *Config) { c.StressedVIX = 10 }},
		{name: "position above exposure", mutate: func(c *Config) { c.MaxPosition = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
