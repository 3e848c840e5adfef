package brokerage

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day1 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func newPortfolio(t *testing.T) *Portfolio {
	t.Helper()
	p, err := NewPortfolio(dec(100000), dec(0.001))
	require.NoError(t, err)
	return p
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	want, err := decimal.NewFromString(expected)
	require.NoError(t, err)
	assert.True(t, want.Equal(actual), "expected %s, got %s", want, actual)
}

func TestNewPortfolio(t *testing.T) {
	tests := []struct {
		name    string
		capital decimal.Decimal
		cost    decimal.Decimal
		wantErr bool
	}{
		{name: "standard account", capital: dec(100000), cost: dec(0.001)},
		{name: "zero cost", capital: dec(5000), cost: decimal.Zero},
		{name: "negative capital", capital: dec(-1), cost: dec(0.001), wantErr: true},
		{name: "negative cost", capital: dec(100), cost: dec(-0.001), wantErr: true},
		{name: "cost of one", capital: dec(100), cost: dec(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPortfolio(tt.capital, tt.cost)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOrder)
				return
			}
			require.NoError(t, err)
			assert.True(t, p.Cash().Equal(tt.capital))
			assert.True(t, p.IsFlat())
			assert.Empty(t, p.Trades())
		})
	}
}

func TestRoundTripAppliesCostTwice(t *testing.T) {
	p := newPortfolio(t)

	pos, err := p.OpenLong("NVDA", dec(10000), dec(100), day1)
	require.NoError(t, err)
	assertDecimal(t, "99.9", pos.Shares)
	assertDecimal(t, "90000", p.Cash())
	assertDecimal(t, "100989", p.Value(dec(110)))

	trade, err := p.CloseLong(dec(110), day2)
	require.NoError(t, err)

	assertDecimal(t, "10978.011", trade.Proceeds)
	assertDecimal(t, "978.011", trade.ProfitLoss)
	assert.InDelta(t, 0.0978011, trade.Return, 1e-12)
	assert.InDelta(t, 0.10, trade.GrossReturn, 1e-12)
	assert.Equal(t, 1, trade.HoldingDays)
	assert.Equal(t, "NVDA", trade.Symbol)
	assertDecimal(t, "100978.011", p.Cash())
	assert.True(t, p.IsFlat())
	assert.Len(t, p.Trades(), 1)
}

func TestSinglePositionDiscipline(t *testing.T) {
	p := newPortfolio(t)

	_, err := p.CloseLong(dec(100), day1)
	assert.ErrorIs(t, err, ErrNoPosition)

	_, err = p.OpenLong("AMD", dec(5000), dec(50), day1)
	require.NoError(t, err)

	_, err = p.OpenLong("NVDA", dec(5000), dec(50), day1)
	assert.ErrorIs(t, err, ErrPositionOpen)

	pos, ok := p.Position()
	require.True(t, ok)
	assert.Equal(t, "AMD", pos.Symbol)
	assert.Equal(t, day1, pos.EntryDate)
}

func TestOpenLongValidation(t *testing.T) {
	tests := []struct {
		name       string
		allocation decimal.Decimal
		price      decimal.Decimal
		err        error
	}{
		{name: "zero price", allocation: dec(100), price: decimal.Zero, err: ErrInvalidOrder},
		{name: "zero allocation", allocation: decimal.Zero, price: dec(10), err: ErrInvalidOrder},
		{name: "more than cash", allocation: dec(200000), price: dec(10), err: ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPortfolio(t)
			_, err := p.OpenLong("TSM", tt.allocation, tt.price, day1)
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, p.IsFlat())
			assertDecimal(t, "100000", p.Cash())
		})
	}
}

func TestMarkToMarket(t *testing.T) {
	p := newPortfolio(t)

	v := p.MarkToMarket(day1, dec(100))
	assertDecimal(t, "100000", v)

	_, err := p.OpenLong("INTC", dec(10000), dec(100), day1)
	require.NoError(t, err)
	p.MarkToMarket(day1, dec(100))
	p.MarkToMarket(day2, dec(90))

	values := p.Values()
	require.Equal(t, 2, values.Len())
	assert.InDelta(t, 99990.0, values.Points[0].Value, 1e-6)
	assert.InDelta(t, 90000+99.9*90, values.Points[1].Value, 1e-6)
}

func TestConcurrentOpenLong(t *testing.T) {
	p := newPortfolio(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.OpenLong("QCOM", dec(1000), dec(100), day1); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assertDecimal(t, "99000", p.Cash())
}
