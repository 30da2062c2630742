// Package history keeps per-engine tick snapshots, executed trades and observed prices.
package history

import (
	"context"
	"slices"
	"sync"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// Store persists what an engine observed and did.
// Read methods return records oldest first; limit <= 0 means no limit.
type Store interface {
	AppendSnapshot(ctx context.Context, snapshot types.Snapshot) error
	AppendTrade(ctx context.Context, trade types.TradeRecord) error
	Snapshots(ctx context.Context, engine types.StrategyName, limit int) ([]types.Snapshot, error)
	Trades(ctx context.Context, engine types.StrategyName, limit int) ([]types.TradeRecord, error)
	// PriceHistory returns recorded closes for a symbol across all engines.
	PriceHistory(ctx context.Context, symbol string, limit int) ([]types.PricePoint, error)
	Close() error
}

// DefaultMemoryLimit is the number of records kept per engine by the memory store.
const DefaultMemoryLimit = 1000

// MemoryStore is a bounded in-memory Store. The oldest records are dropped once the limit is reached.
type MemoryStore struct {
	mu        sync.RWMutex
	limit     int
	snapshots map[types.StrategyName][]types.Snapshot
	trades    map[types.StrategyName][]types.TradeRecord
	prices    map[string][]types.PricePoint
	closed    bool
}

// NewMemoryStore creates a memory store holding at most limit records per engine and per symbol.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}

	return &MemoryStore{
		mu:        sync.RWMutex{},
		limit:     limit,
		snapshots: make(map[types.StrategyName][]types.Snapshot),
		trades:    make(map[types.StrategyName][]types.TradeRecord),
		prices:    make(map[string][]types.PricePoint),
		closed:    false,
	}
}

func appendBounded[T any](list []T, item T, limit int) []T {
	list = append(list, item)
	if len(list) > limit {
		list = slices.Clone(list[len(list)-limit:])
	}

	return list
}

func tail[T any](list []T, limit int) []T {
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}

	return slices.Clone(list)
}

func (m *MemoryStore) AppendSnapshot(_ context.Context, snapshot types.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New(errors.ErrCodeHistoryWriteFailed, "history store is closed")
	}

	m.snapshots[snapshot.Engine] = appendBounded(m.snapshots[snapshot.Engine], snapshot, m.limit)

	for symbol, price := range snapshot.Prices {
		m.prices[symbol] = appendBounded(m.prices[symbol], types.PricePoint{
			Symbol: symbol,
			Time:   snapshot.Time,
			Close:  price,
		}, m.limit)
	}

	return nil
}

func (m *MemoryStore) AppendTrade(_ context.Context, trade types.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New(errors.ErrCodeHistoryWriteFailed, "history store is closed")
	}

	m.trades[trade.Engine] = appendBounded(m.trades[trade.Engine], trade, m.limit)

	return nil
}

func (m *MemoryStore) Snapshots(_ context.Context, engine types.StrategyName, limit int) ([]types.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return tail(m.snapshots[engine], limit), nil
}

func (m *MemoryStore) Trades(_ context.Context, engine types.StrategyName, limit int) ([]types.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return tail(m.trades[engine], limit), nil
}

func (m *MemoryStore) PriceHistory(_ context.Context, symbol string, limit int) ([]types.PricePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return tail(m.prices[symbol], limit), nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

var _ Store = (*MemoryStore)(nil)
