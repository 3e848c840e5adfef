package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vignesh-goutham/bondstress/pkg/signals"
	"github.com/vignesh-goutham/bondstress/pkg/stress"
	"github.com/vignesh-goutham/bondstress/pkg/types"
)

var ErrSymbolRequired = errors.New("symbol is required")

// SignalStore persists stress and trading signals. Recent queries return the
// newest records first; TradingSince returns records oldest first.
type SignalStore interface {
	SaveStress(ctx context.Context, sig stress.Signal) (types.StressRecord, error)
	SaveTrading(ctx context.Context, sigs []signals.TradingSignal) ([]types.TradingRecord, error)
	RecentStress(ctx context.Context, n int) ([]types.StressRecord, error)
	RecentTrading(ctx context.Context, symbol string, n int) ([]types.TradingRecord, error)
	TradingSince(ctx context.Context, symbol string, since time.Time) ([]types.TradingRecord, error)
}

// Memory is an in-process SignalStore used by the CLI and tests
type Memory struct {
	mu      sync.RWMutex
	stress  []types.StressRecord
	trading map[string][]types.TradingRecord
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		trading: make(map[string][]types.TradingRecord),
		now:     time.Now,
	}
}

func (m *Memory) SaveStress(ctx context.Context, sig stress.Signal) (types.StressRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.StressRecord{}, err
	}
	rec := types.NewStressRecord(sig, m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stress = append(m.stress, rec)
	sort.SliceStable(m.stress, func(i, j int) bool { return m.stress[i].Timestamp.Before(m.stress[j].Timestamp) })
	return rec, nil
}

func (m *Memory) SaveTrading(ctx context.Context, sigs []signals.TradingSignal) ([]types.TradingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, sig := range sigs {
		if sig.Symbol == "" {
			return nil, ErrSymbolRequired
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.TradingRecord, 0, len(sigs))
	touched := make(map[string]bool)
	for _, sig := range sigs {
		rec := types.NewTradingRecord(sig, m.now())
		m.trading[sig.Symbol] = append(m.trading[sig.Symbol], rec)
		touched[sig.Symbol] = true
		out = append(out, rec)
	}
	for symbol := range touched {
		recs := m.trading[symbol]
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })
	}
	return out, nil
}

func (m *Memory) RecentStress(ctx context.Context, n int) ([]types.StressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.stress, n), nil
}

func (m *Memory) RecentTrading(ctx context.Context, symbol string, n int) ([]types.TradingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" {
		return nil, ErrSymbolRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.trading[symbol], n), nil
}

func (m *Memory) TradingSince(ctx context.Context, symbol string, since time.Time) ([]types.TradingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" {
		return nil, ErrSymbolRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.trading[symbol]
	idx := sort.Search(len(recs), func(i int) bool { return !recs[i].Timestamp.Before(since) })
	return append([]types.TradingRecord(nil), recs[idx:]...), nil
}

// newestFirst returns up to n records from the end of an ascending slice,
// reversed. A non-positive n returns nothing.
func newestFirst[T any](recs []T, n int) []T {
	if n <= 0 {
		return nil
	}
	n = min(n, len(recs))
	out := make([]T, 0, n)
	for i := len(recs) - 1; i >= len(recs)-n; i-- {
		out = append(out, recs[i])
	}
	return out
}
