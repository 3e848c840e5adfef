package engine

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vignesh-goutham/bondstress/pkg/brokerage"
	"github.com/vignesh-goutham/bondstress/pkg/series"
	"github.com/vignesh-goutham/bondstress/pkg/signals"
)

type EventKind string

const (
	EventOpened  EventKind = "OPENED"
	EventClosed  EventKind = "CLOSED"
	EventIgnored EventKind = "IGNORED"
	EventSkipped EventKind = "SKIPPED"
)

// Event records what one signal did to the portfolio
type Event struct {
	Date   time.Time
	Symbol string
	Action signals.Action
	Kind   EventKind
	Trade  *brokerage.Trade
	Reason string
}

// Engine applies the signals of one date to a portfolio
type Engine struct {
	signals     []signals.TradingSignal
	quotes      map[string]decimal.Decimal
	portfolio   *brokerage.Portfolio
	currentDate time.Time
	logger      zerolog.Logger
}

// New builds an engine for currentDate. quotes holds the latest price at or
// before currentDate for each symbol that has one.
func New(sigs []signals.TradingSignal, quotes map[string]decimal.Decimal, portfolio *brokerage.Portfolio, currentDate time.Time, logger zerolog.Logger) *Engine {
	return &Engine{
		signals:     sigs,
		quotes:      quotes,
		portfolio:   portfolio,
		currentDate: series.Day(currentDate),
		logger:      logger,
	}
}

// Run processes the signals in order. A BUY while flat opens a position, a
// SELL for the held symbol closes it, and everything else is ignored.
// Signals whose symbol has no price are skipped. Run reports whether any
// signal was processed, in which case the caller should mark the portfolio.
func (e *Engine) Run() ([]Event, bool) {
	events := make([]Event, 0, len(e.signals))
	processed := false

	for _, sig := range e.signals {
		price, ok := e.quotes[sig.Symbol]
		if !ok {
			e.logger.Debug().
				Str("symbol", sig.Symbol).
				Str("date", e.currentDate.Format(series.DateLayout)).
				Msg("No price at or before date, skipping")
			events = append(events, e.event(sig, EventSkipped, "no price"))
			continue
		}
		processed = true

		switch {
		case sig.Action == signals.ActionBuy && e.portfolio.IsFlat():
			events = append(events, e.executeBuy(sig, price))
		case sig.Action == signals.ActionSell && e.holds(sig.Symbol):
			events = append(events, e.executeSell(sig, price))
		default:
			events = append(events, e.event(sig, EventIgnored, "no transition"))
		}
	}
	return events, processed
}

func (e *Engine) holds(symbol string) bool {
	pos, ok := e.portfolio.Position()
	return ok && pos.Symbol == symbol
}

func (e *Engine) executeBuy(sig signals.TradingSignal, price decimal.Decimal) Event {
	allocation := e.portfolio.InitialCapital().Mul(decimal.NewFromFloat(sig.PositionSize))
	if cash := e.portfolio.Cash(); allocation.GreaterThan(cash) {
		allocation = cash
	}
	if !allocation.IsPositive() {
		return e.event(sig, EventIgnored, "zero allocation")
	}

	pos, err := e.portfolio.OpenLong(sig.Symbol, allocation, price, e.currentDate)
	if err != nil {
		e.logger.Warn().Err(err).Str("symbol", sig.Symbol).Msg("Buy rejected")
		return e.event(sig, EventIgnored, err.Error())
	}

	e.logger.Debug().
		Str("symbol", sig.Symbol).
		Str("date", e.currentDate.Format(series.DateLayout)).
		Str("shares", pos.Shares.StringFixed(4)).
		Str("price", price.StringFixed(2)).
		Msg("Opened position")
	return e.event(sig, EventOpened, "")
}

func (e *Engine) executeSell(sig signals.TradingSignal, price decimal.Decimal) Event {
	trade, err := e.portfolio.CloseLong(price, e.currentDate)
	if err != nil {
		if !errors.Is(err, brokerage.ErrNoPosition) {
			e.logger.Warn().Err(err).Str("symbol", sig.Symbol).Msg("Sell rejected")
		}
		return e.event(sig, EventIgnored, err.Error())
	}

	e.logger.Debug().
		Str("symbol", sig.Symbol).
		Str("date", e.currentDate.Format(series.DateLayout)).
		Str("pnl", trade.ProfitLoss.StringFixed(2)).
		Msg("Closed position")
	ev := e.event(sig, EventClosed, "")
	ev.Trade = &trade
	return ev
}

func (e *Engine) event(sig signals.TradingSignal, kind EventKind, reason string) Event {
	return Event{
		Date:   e.currentDate,
		Symbol: sig.Symbol,
		Action: sig.Action,
		Kind:   kind,
		Reason: reason,
	}
}
