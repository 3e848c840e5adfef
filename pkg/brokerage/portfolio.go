package brokerage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/bondstress/pkg/series"
)

var (
	ErrPositionOpen      = errors.New("position already open")
	ErrNoPosition        = errors.New("no open position")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidOrder      = errors.New("invalid order")
)

// Position is the single open long position of a portfolio
type Position struct {
	Symbol     string
	Shares     decimal.Decimal
	EntryPrice decimal.Decimal
	EntryDate  time.Time
	Cost       decimal.Decimal
}

// Trade is a closed round trip
type Trade struct {
	Symbol      string
	EntryDate   time.Time
	ExitDate    time.Time
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	Quantity    decimal.Decimal
	Cost        decimal.Decimal
	Proceeds    decimal.Decimal
	ProfitLoss  decimal.Decimal
	Return      float64 // net of transaction costs, relative to Cost
	GrossReturn float64 // exit over entry price
	HoldingDays int
}

// Portfolio is a simulated account holding at most one long position.
// Value at any date is cash plus the marked value of the open position.
type Portfolio struct {
	mu       sync.RWMutex
	initial  decimal.Decimal
	cash     decimal.Decimal
	costRate decimal.Decimal
	position *Position
	trades   []Trade
	values   []series.Point
}

// NewPortfolio creates a flat portfolio funded with initialCapital. Every
// fill pays transactionCost as a fraction of its value.
func NewPortfolio(initialCapital, transactionCost decimal.Decimal) (*Portfolio, error) {
	if initialCapital.IsNegative() {
		return nil, fmt.Errorf("%w: initial capital %s is negative", ErrInvalidOrder, initialCapital)
	}
	if transactionCost.IsNegative() || transactionCost.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: transaction cost %s must be within [0, 1)", ErrInvalidOrder, transactionCost)
	}
	return &Portfolio{
		initial:  initialCapital,
		cash:     initialCapital,
		costRate: transactionCost,
	}, nil
}

func (p *Portfolio) InitialCapital() decimal.Decimal {
	return p.initial
}

func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.cash
}

// Position returns the open position, ok is false when flat
func (p *Portfolio) Position() (Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.position == nil {
		return Position{}, false
	}
	return *p.position, true
}

func (p *Portfolio) IsFlat() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.position == nil
}

// OpenLong spends allocation on symbol at price. The transaction cost is
// taken out of the share count.
func (p *Portfolio) OpenLong(symbol string, allocation, price decimal.Decimal, date time.Time) (Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.position != nil {
		return Position{}, fmt.Errorf("%w: holding %s", ErrPositionOpen, p.position.Symbol)
	}
	if !price.IsPositive() || !allocation.IsPositive() {
		return Position{}, fmt.Errorf("%w: allocation %s at price %s", ErrInvalidOrder, allocation, price)
	}
	if p.cash.LessThan(allocation) {
		return Position{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, allocation, p.cash)
	}

	shares := allocation.Div(price).Mul(decimal.NewFromInt(1).Sub(p.costRate))
	p.cash = p.cash.Sub(allocation)
	p.position = &Position{
		Symbol:     symbol,
		Shares:     shares,
		EntryPrice: price,
		EntryDate:  series.Day(date),
		Cost:       allocation,
	}
	return *p.position, nil
}

// CloseLong sells the whole position at price, net of transaction cost
func (p *Portfolio) CloseLong(price decimal.Decimal, date time.Time) (Trade, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.position == nil {
		return Trade{}, ErrNoPosition
	}
	if !price.IsPositive() {
		return Trade{}, fmt.Errorf("%w: exit price %s", ErrInvalidOrder, price)
	}

	pos := p.position
	proceeds := pos.Shares.Mul(price).Mul(decimal.NewFromInt(1).Sub(p.costRate))
	pnl := proceeds.Sub(pos.Cost)
	exitDate := series.Day(date)

	trade := Trade{
		Symbol:      pos.Symbol,
		EntryDate:   pos.EntryDate,
		ExitDate:    exitDate,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   price,
		Quantity:    pos.Shares,
		Cost:        pos.Cost,
		Proceeds:    proceeds,
		ProfitLoss:  pnl,
		Return:      pnl.Div(pos.Cost).InexactFloat64(),
		GrossReturn: price.Sub(pos.EntryPrice).Div(pos.EntryPrice).InexactFloat64(),
		HoldingDays: int(exitDate.Sub(pos.EntryDate).Hours() / 24),
	}

	p.cash = p.cash.Add(proceeds)
	p.position = nil
	p.trades = append(p.trades, trade)
	return trade, nil
}

// Value is cash plus the open position marked at price
func (p *Portfolio) Value(price decimal.Decimal) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.value(price)
}

func (p *Portfolio) value(price decimal.Decimal) decimal.Decimal {
	if p.position == nil {
		return p.cash
	}
	return p.cash.Add(p.position.Shares.Mul(price))
}

// MarkToMarket records the portfolio value for date. A second mark on the
// same date replaces the first.
func (p *Portfolio) MarkToMarket(date time.Time, price decimal.Decimal) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := p.value(price)
	point := series.Point{Date: series.Day(date), Value: v.InexactFloat64()}
	if n := len(p.values); n > 0 && p.values[n-1].Date.Equal(point.Date) {
		p.values[n-1] = point
	} else {
		p.values = append(p.values, point)
	}
	return v
}

// Trades returns a copy of the closed trade log
func (p *Portfolio) Trades() []Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Trade, len(p.trades))
	copy(out, p.trades)
	return out
}

// Values returns a copy of the marked value history
func (p *Portfolio) Values() series.Series {
	p.mu.RLock()
	defer p.mu.RUnlock()

	points := make([]series.Point, len(p.values))
	copy(points, p.values)
	return series.Series{Name: "portfolio_value", Points: points}
}
