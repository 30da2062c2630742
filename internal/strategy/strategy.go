// Package strategy turns rolling-window statistics into trade decisions.
//
// Each variant has a pure evaluator (EvaluateMeanReversion, EvaluateBollinger, EvaluateTrend) that
// only reads statistics, the position and the config. The Strategy wrappers own the windows and the
// small amount of cross-tick state the evaluators need.
package strategy

import (
	"time"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// Observation is the result of pushing one tick of prices into a strategy.
type Observation struct {
	Time time.Time
	// Prices are keyed by symbol.
	Prices map[string]float64
	// Sample is the value pushed into the window (a price, or a ratio for pairs).
	Sample float64
	// Raw is the sample before outlier clamping.
	Raw     float64
	Outlier bool
}

// Strategy is the stateful side of a signal evaluator.
//
// Observe and Acknowledge mutate the strategy and must be serialised by the caller.
// Evaluate is a pure function of the observation, the position and the strategy's current windows.
type Strategy interface {
	Name() types.StrategyName
	// Symbols are the exchange symbols fetched every tick.
	Symbols() []string
	Observe(prices map[string]float64, now time.Time) (Observation, error)
	Evaluate(obs Observation, pos types.Position, now time.Time) types.Decision
	// SetConfig applies a config whose WindowKey matches the one the strategy was built with.
	SetConfig(cfg Config) error
	// Acknowledge records that a trade decision was executed.
	Acknowledge(decision types.Decision)
	Indicators() map[string]float64
	Clone() Strategy
	// Warmup pre-fills the windows from historical closes keyed by symbol, oldest first.
	Warmup(history map[string][]float64)
	// WarmupSize is how many historical samples fill the windows.
	WarmupSize() int
}

func priceOf(prices map[string]float64, symbol string) (float64, error) {
	price, ok := prices[symbol]
	if !ok || price <= 0 {
		return 0, errors.Newf(errors.ErrCodeMarketDataUnavailable, "no valid price for %s", symbol)
	}

	return price, nil
}
