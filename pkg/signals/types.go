package signals

import (
	"errors"
	"fmt"
	"time"

	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionHold  Action = "HOLD"
	ActionWatch Action = "WATCH"
)

// DefaultSymbols is the semiconductor basket signals are generated for
var DefaultSymbols = []string{"NVDA", "AMD", "TSM", "INTC", "QCOM"}

var (
	ErrInvalidConfig = errors.New("invalid signal translator config")
	ErrNoPriceData   = errors.New("no price data")
)

// TradingSignal is the per symbol action derived from one stress signal
type TradingSignal struct {
	Timestamp    time.Time
	Symbol       string
	Action       Action
	Level        stress.Level
	Confidence   float64
	HorizonDays  int
	Correlation  float64
	PositionSize float64
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	Reasoning    string
}

// IsDirectional reports whether the signal asks for a position change
func (s TradingSignal) IsDirectional() bool {
	return s.Action == ActionBuy || s.Action == ActionSell
}

// Momentum holds the price derived indicators for one symbol
type Momentum struct {
	Return5d  float64
	Return10d float64
	Return20d float64
	RSI       float64
}

type Config struct {
	CorrelationWindow int
	BasePositionSize  float64
	MaxPositionSize   float64
	RSIPeriod         int
}

func DefaultConfig() Config {
	return Config{
		CorrelationWindow: 60,
		BasePositionSize:  0.10,
		MaxPositionSize:   0.25,
		RSIPeriod:         14,
	}
}

func (c Config) Validate() error {
	if c.CorrelationWindow < 2 {
		return fmt.Errorf("%w: correlation window must be at least 2, got %d", ErrInvalidConfig, c.CorrelationWindow)
	}
	if c.RSIPeriod <= 0 {
		return fmt.Errorf("%w: rsi period must be positive, got %d", ErrInvalidConfig, c.RSIPeriod)
	}
	if c.BasePositionSize < 0 || c.MaxPositionSize < 0 {
		return fmt.Errorf("%w: position sizes must not be negative", ErrInvalidConfig)
	}
	return nil
}

var horizons = map[stress.Level]int{
	stress.LevelNow:     7,
	stress.LevelSoon:    21,
	stress.LevelWatch:   42,
	stress.LevelNeutral: 60,
}

// HorizonDays maps a stress level to its holding horizon
func HorizonDays(level stress.Level) int {
	if days, ok := horizons[level]; ok {
		return days
	}
	return 30
}
