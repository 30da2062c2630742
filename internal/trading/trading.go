package trading

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/strategy"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine"
	"github.com/rxtech-lab/argo-signal/internal/types"
)

// EventType names the kind of payload carried by an Event.
type EventType string

const (
	EventStatus EventType = "status"
	EventTick   EventType = "tick"
	EventTrade  EventType = "trade"
	EventError  EventType = "error"
)

// Event is what the status stream pushes to dashboard clients.
type Event struct {
	Type    EventType          `json:"type"`
	Engine  types.StrategyName `json:"engine"`
	Time    time.Time          `json:"time"`
	Payload any                `json:"payload,omitempty"`
}

// EventSink receives engine events. It must not block.
type EventSink func(Event)

// PairSuggestion is a tuned mean-reversion config with the health of the ratio it was tuned on.
type PairSuggestion struct {
	Pair    strategy.Pair                `json:"pair"`
	Config  strategy.MeanReversionConfig `json:"config"`
	Health  strategy.PairHealth          `json:"health"`
	Samples int                          `json:"samples"`
}

// System is the set of engines the HTTP layer operates on.
type System interface {
	// Engine returns the engine running name.
	Engine(name types.StrategyName) (engine.SignalEngine, error)
	// Engines returns every engine in a stable order.
	Engines() []engine.SignalEngine
	// Pairs lists the tradable pairs of the mean-reversion engine.
	Pairs() []strategy.Pair
	// SuggestPair tunes a mean-reversion config from recent kline closes of a pair.
	SuggestPair(ctx context.Context, pair strategy.Pair, interval string, limit int) (PairSuggestion, error)
}
