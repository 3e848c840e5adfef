package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vignesh-goutham/bondstress/pkg/brokerage"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
)

var today = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func signal(symbol string, action signals.Action, size float64) signals.TradingSignal {
	return signals.TradingSignal{Timestamp: today, Symbol: symbol, Action: action, PositionSize: size}
}

func newPortfolio(t *testing.T) *brokerage.Portfolio {
	t.Helper()
	p, err := brokerage.NewPortfolio(decimal.NewFromInt(100000), decimal.NewFromFloat(0.001))
	require.NoError(t, err)
	return p
}

func TestRunTransitions(t *testing.T) {
	quotes := map[string]decimal.Decimal{
		"NVDA": decimal.NewFromInt(100),
		"AMD":  decimal.NewFromInt(50),
	}

	tests := []struct {
		name     string
		holding  string
		signal   signals.TradingSignal
		expected EventKind
		flat     bool
	}{
		{name: "buy while flat opens", signal: signal("NVDA", signals.ActionBuy, 0.1), expected: EventOpened},
		{name: "sell while flat is ignored", signal: signal("NVDA", signals.ActionSell, 0.1), expected: EventIgnored, flat: true},
		{name: "hold while flat is ignored", signal: signal("NVDA", signals.ActionHold, 0), expected: EventIgnored, flat: true},
		{name: "watch while flat is ignored", signal: signal("NVDA", signals.ActionWatch, 0), expected: EventIgnored, flat: true},
		{name: "zero size buy is ignored", signal: signal("NVDA", signals.ActionBuy, 0), expected: EventIgnored, flat: true},
		{name: "sell of held symbol closes", holding: "AMD", signal: signal("AMD", signals.ActionSell, 0.1), expected: EventClosed, flat: true},
		{name: "sell of other symbol is ignored", holding: "AMD", signal: signal("NVDA", signals.ActionSell, 0.1), expected: EventIgnored},
		{name: "buy while long is ignored", holding: "AMD", signal: signal("NVDA", signals.ActionBuy, 0.1), expected: EventIgnored},
		{name: "missing price skips", signal: signal("TSM", signals.ActionBuy, 0.1), expected: EventSkipped, flat: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPortfolio(t)
			if tt.holding != "" {
				_, err := p.OpenLong(tt.holding, decimal.NewFromInt(1000), quotes[tt.holding], today.AddDate(0, 0, -5))
				require.NoError(t, err)
			}

			events, processed := New([]signals.TradingSignal{tt.signal}, quotes, p, today, zerolog.Nop()).Run()

			require.Len(t, events, 1)
			assert.Equal(t, tt.expected, events[0].Kind)
			assert.Equal(t, tt.expected != EventSkipped, processed)
			assert.Equal(t, tt.flat, p.IsFlat())
			if tt.expected == EventClosed {
				require.NotNil(t, events[0].Trade)
				assert.Equal(t, 5, events[0].Trade.HoldingDays)
			}
		})
	}
}

func TestBuyAllocationIsCappedByCash(t *testing.T) {
	p, err := brokerage.NewPortfolio(decimal.NewFromInt(1000), decimal.Zero)
	require.NoError(t, err)

	quotes := map[string]decimal.Decimal{"NVDA": decimal.NewFromInt(10)}
	events, _ := New([]signals.TradingSignal{signal("NVDA", signals.ActionBuy, 1.5)}, quotes, p, today, zerolog.Nop()).Run()

	require.Len(t, events, 1)
	assert.Equal(t, EventOpened, events[0].Kind)
	assert.True(t, p.Cash().IsZero())
	pos, ok := p.Position()
	require.True(t, ok)
	assert.True(t, pos.Shares.Equal(decimal.NewFromInt(100)))
}

func TestSameDayBuyThenSell(t *testing.T) {
	p := newPortfolio(t)
	quotes := map[string]decimal.Decimal{"NVDA": decimal.NewFromInt(100)}

	events, processed := New([]signals.TradingSignal{
		signal("NVDA", signals.ActionBuy, 0.1),
		signal("NVDA", signals.ActionSell, 0.1),
	}, quotes, p, today, zerolog.Nop()).Run()

	require.True(t, processed)
	require.Len(t, events, 2)
	assert.Equal(t, EventOpened, events[0].Kind)
	assert.Equal(t, EventClosed, events[1].Kind)
	assert.True(t, p.IsFlat())
	assert.Equal(t, 0, events[1].Trade.HoldingDays)
}
