package warmup

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/strategy"
	tradingprovider "github.com/rxtech-lab/argo-signal/internal/trading/provider"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

// staleIntervals is how many kline intervals stored history may lag behind now and still be used.
const staleIntervals = 10

// Source says where a symbol's warm-up closes came from.
type Source string

const (
	SourceStore    Source = "store"
	SourceExchange Source = "exchange"
	SourceNone     Source = "none"
)

// SymbolResult is the outcome of warming up one symbol.
type SymbolResult struct {
	Symbol  string
	Source  Source
	Samples int
}

// ProgressFunc is called after each symbol is loaded.
type ProgressFunc func(done, total int, result SymbolResult)

// WarmupManager pre-fills strategy windows from recorded ticks, falling back to exchange klines.
type WarmupManager struct {
	store    history.Store
	exchange tradingprovider.Exchange
	logger   *logger.Logger
	interval string
	now      func() time.Time
}

// NewWarmupManager creates a WarmupManager. store may be nil, in which case klines are always used.
func NewWarmupManager(store history.Store, exchange tradingprovider.Exchange, interval string, log *logger.Logger) *WarmupManager {
	return &WarmupManager{
		store:    store,
		exchange: exchange,
		logger:   log,
		interval: interval,
		now:      time.Now,
	}
}

// ParseIntervalDuration converts a kline interval string to a time.Duration.
func ParseIntervalDuration(interval string) time.Duration {
	switch interval {
	case "1s":
		return time.Second
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "6h":
		return 6 * time.Hour
	case "8h":
		return 8 * time.Hour
	case "12h":
		return 12 * time.Hour
	case "1d":
		return 24 * time.Hour
	case "3d":
		return 72 * time.Hour
	case "1w":
		return 168 * time.Hour
	default:
		return time.Minute
	}
}

// Warmup loads WarmupSize closes for every symbol of strat and pushes them into its windows.
// A symbol that cannot be loaded is logged and skipped; the strategy then fills from live ticks.
func (w *WarmupManager) Warmup(ctx context.Context, strat strategy.Strategy, progress ProgressFunc) ([]SymbolResult, error) {
	size := strat.WarmupSize()
	symbols := strat.Symbols()

	if size <= 0 || len(symbols) == 0 {
		return nil, nil
	}

	closes := make(map[string][]float64, len(symbols))
	results := make([]SymbolResult, 0, len(symbols))

	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return results, errors.Wrap(errors.ErrCodeInsufficientHistory, "warm-up cancelled", err)
		}

		series, source := w.load(ctx, symbol, size)
		closes[symbol] = series

		result := SymbolResult{Symbol: symbol, Source: source, Samples: len(series)}
		results = append(results, result)

		if progress != nil {
			progress(i+1, len(symbols), result)
		}
	}

	strat.Warmup(closes)

	w.logger.Info("Warm-up completed",
		zap.String("strategy", string(strat.Name())),
		zap.Int("window", size),
		zap.Any("results", results),
	)

	return results, nil
}

func (w *WarmupManager) load(ctx context.Context, symbol string, size int) ([]float64, Source) {
	if series, ok := w.fromStore(ctx, symbol, size); ok {
		return series, SourceStore
	}

	if w.exchange == nil {
		return nil, SourceNone
	}

	points, err := w.exchange.GetRecentPrices(ctx, symbol, w.interval, size)
	if err != nil {
		w.logger.Warn("Failed to fetch warm-up klines",
			zap.String("symbol", symbol),
			zap.String("interval", w.interval),
			zap.Error(err),
		)

		return nil, SourceNone
	}

	series := make([]float64, 0, len(points))
	for _, p := range points {
		series = append(series, p.Close)
	}

	return series, SourceExchange
}

// fromStore uses recorded ticks only when there are enough of them and they are recent.
func (w *WarmupManager) fromStore(ctx context.Context, symbol string, size int) ([]float64, bool) {
	if w.store == nil {
		return nil, false
	}

	points, err := w.store.PriceHistory(ctx, symbol, size)
	if err != nil {
		w.logger.Warn("Failed to read stored prices", zap.String("symbol", symbol), zap.Error(err))

		return nil, false
	}

	if len(points) < size {
		return nil, false
	}

	maxAge := ParseIntervalDuration(w.interval) * staleIntervals
	if w.now().Sub(points[len(points)-1].Time) > maxAge {
		return nil, false
	}

	series := make([]float64, 0, len(points))
	for _, p := range points {
		series = append(series, p.Close)
	}

	return series, true
}
