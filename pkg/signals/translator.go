package signals

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
)

var strengthMultipliers = map[stress.Level]float64{
	stress.LevelNow:   1.5,
	stress.LevelSoon:  1.0,
	stress.LevelWatch: 0.5,
}

// Decision is the action chosen for one symbol before risk levels are set
type Decision struct {
	Action       Action
	Confidence   float64
	PositionSize float64
	Reasoning    string
}

// Translator maps stress signals onto per symbol trading signals
type Translator struct {
	cfg    Config
	logger zerolog.Logger
}

func NewTranslator(cfg Config, logger zerolog.Logger) (*Translator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Translator{cfg: cfg, logger: logger}, nil
}

// Generate builds the trading signal for symbol from its closing prices and
// the bond stress series used for correlation.
func (t *Translator) Generate(sig stress.Signal, symbol string, prices, bond series.Series) (TradingSignal, error) {
	latest, ok := prices.Last()
	if !ok {
		return TradingSignal{}, fmt.Errorf("%w for %s", ErrNoPriceData, symbol)
	}

	correlation, ok := Correlation(bond, prices, t.cfg.CorrelationWindow)
	if !ok {
		t.logger.Debug().
			Str("symbol", symbol).
			Int("window", t.cfg.CorrelationWindow).
			Msg("Insufficient aligned history for correlation, using 0")
	}

	momentum := ComputeMomentum(prices.Values(), t.cfg.RSIPeriod)
	decision := t.Decide(sig.Level, sig.Confidence, correlation, momentum, symbol)
	stop, take := RiskLevels(latest.Value, decision.Action, momentum.Return20d)

	return TradingSignal{
		Timestamp:    latest.Date,
		Symbol:       symbol,
		Action:       decision.Action,
		Level:        sig.Level,
		Confidence:   decision.Confidence,
		HorizonDays:  HorizonDays(sig.Level),
		Correlation:  correlation,
		PositionSize: decision.PositionSize,
		EntryPrice:   latest.Value,
		StopLoss:     stop,
		TakeProfit:   take,
		Reasoning:    decision.Reasoning,
	}, nil
}

// GenerateAll runs Generate for every symbol with price history, in the
// order given. Symbols without prices are logged and skipped.
func (t *Translator) GenerateAll(sig stress.Signal, symbols []string, prices map[string]series.Series, bond series.Series) []TradingSignal {
	out := make([]TradingSignal, 0, len(symbols))
	for _, symbol := range symbols {
		ts, err := t.Generate(sig, symbol, prices[symbol], bond)
		if err != nil {
			t.logger.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol")
			continue
		}
		out = append(out, ts)
	}
	return out
}

// Decide applies the stress level table and the momentum and RSI overlays
func (t *Translator) Decide(level stress.Level, baseConfidence, correlation float64, m Momentum, symbol string) Decision {
	var (
		action Action
		boost  float64
		parts  []string
	)

	switch level {
	case stress.LevelNow:
		switch {
		case correlation < -0.3:
			action, boost = ActionBuy, 2.0
			parts = append(parts, "Strong bond stress + negative correlation")
		case correlation > 0.3:
			action, boost = ActionSell, 1.5
			parts = append(parts, "Bond stress + positive correlation")
		default:
			action, boost = ActionHold, 0.5
			parts = append(parts, "Bond stress but unclear correlation")
		}
	case stress.LevelSoon:
		if correlation < -0.2 {
			action, boost = ActionBuy, 1.5
			parts = append(parts, "Moderate bond stress + negative correlation")
		} else {
			action, boost = ActionWatch, 1.0
			parts = append(parts, "Moderate bond stress - monitoring")
		}
	default:
		action, boost = ActionHold, 0.5
		parts = append(parts, "Low bond stress")
	}

	switch {
	case m.Return5d > 0.03 && m.Return20d > 0.10:
		if action == ActionBuy {
			boost += 1.0
			parts = append(parts, "Strong upward momentum")
		} else if action == ActionSell {
			boost -= 0.5
		}
	case m.Return5d < -0.03 && m.Return20d < -0.10:
		if action == ActionSell {
			boost += 1.0
			parts = append(parts, "Strong downward momentum")
		} else if action == ActionBuy {
			boost -= 0.5
		}
	}

	if m.RSI > 70 && action == ActionBuy {
		boost -= 1.0
		parts = append(parts, "Overbought condition")
	} else if m.RSI < 30 && action == ActionSell {
		boost -= 1.0
		parts = append(parts, "Oversold condition")
	}

	confidence := math.Min(10, math.Max(1, baseConfidence+boost))

	size := 0.0
	if action == ActionBuy || action == ActionSell {
		mult, ok := strengthMultipliers[level]
		if !ok {
			mult = 0.5
		}
		size = math.Min(t.cfg.MaxPositionSize, t.cfg.BasePositionSize*(confidence/10)*mult)
	}

	return Decision{
		Action:       action,
		Confidence:   confidence,
		PositionSize: size,
		Reasoning:    fmt.Sprintf("%s: %s", symbol, strings.Join(parts, " + ")),
	}
}

// RiskLevels returns stop loss and take profit prices for an entry. The stop
// widens from 3% to 5% when 20 day momentum exceeds 5% either way, and the
// target is always twice the stop distance.
func RiskLevels(price float64, action Action, momentum20d float64) (float64, float64) {
	stop := 0.03
	if math.Abs(momentum20d) >= 0.05 {
		stop = 0.05
	}
	switch action {
	case ActionBuy:
		return price * (1 - stop), price * (1 + 2*stop)
	case ActionSell:
		return price * (1 + stop), price * (1 - 2*stop)
	default:
		return price * 0.95, price * 1.10
	}
}
