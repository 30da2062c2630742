package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/strategy"
	tradingprovider "github.com/rxtech-lab/argo-signal/internal/trading/provider"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/shopspring/decimal"
)

// Lifecycle callback types for signal engine phases.
// Callbacks returning an error never abort a tick; the error is logged and reported through OnError.

// OnEngineStartCallback is called once the loop goroutine is running.
type OnEngineStartCallback func(engine types.StrategyName) error

// OnEngineStopCallback is called when the loop exits (always called via defer).
type OnEngineStopCallback func(engine types.StrategyName, err error)

// OnTickCallback is called with the snapshot recorded for every tick.
type OnTickCallback func(snapshot types.Snapshot) error

// OnDecisionCallback is called with every evaluated decision, trading or not.
type OnDecisionCallback func(decision types.Decision) error

// OnOrderPlacedCallback is called right before an order is sent to the exchange.
type OnOrderPlacedCallback func(order types.OrderRequest) error

// OnOrderFilledCallback is called when the exchange reports a fill and the ledger has applied it.
type OnOrderFilledCallback func(trade types.TradeRecord) error

// OnErrorCallback is called when a non-fatal error occurs.
type OnErrorCallback func(engine types.StrategyName, err error)

// OnStatusUpdateCallback is called after every tick and every operator action.
type OnStatusUpdateCallback func(status types.EngineStatus) error

// Callbacks holds all lifecycle callback functions for a signal engine.
// All fields are pointers - nil means no callback will be invoked.
type Callbacks struct {
	// OnEngineStart is called once the loop goroutine is running.
	OnEngineStart *OnEngineStartCallback

	// OnEngineStop is called when the loop exits (always called via defer).
	OnEngineStop *OnEngineStopCallback

	// OnTick is called with the snapshot recorded for every tick.
	OnTick *OnTickCallback

	// OnDecision is called with every evaluated decision.
	OnDecision *OnDecisionCallback

	// OnOrderPlaced is called right before an order is sent.
	OnOrderPlaced *OnOrderPlacedCallback

	// OnOrderFilled is called once a fill has been applied to the ledger.
	OnOrderFilled *OnOrderFilledCallback

	// OnError is called when a non-fatal error occurs.
	OnError *OnErrorCallback

	// OnStatusUpdate is called when engine status changes.
	OnStatusUpdate *OnStatusUpdateCallback
}

// Default engine settings.
const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultStopTimeout    = 30 * time.Second
	DefaultWarmupInterval = "1m"
)

// Settings are the engine-wide options shared by every strategy engine.
type Settings struct {
	// Environment selects testnet or live trading and with it the quote asset.
	Environment tradingprovider.Environment `json:"environment" yaml:"environment" mapstructure:"environment" validate:"required" jsonschema:"title=Environment,enum=binance-testnet,enum=binance-live"`

	// RequestTimeout bounds every exchange call made by a tick.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout" jsonschema:"title=Request Timeout,default=10s"`

	// StopTimeout bounds how long Stop waits for the in-flight tick.
	StopTimeout time.Duration `json:"stop_timeout" yaml:"stop_timeout" mapstructure:"stop_timeout" jsonschema:"title=Stop Timeout,default=30s"`

	// StateDir holds one ledger state file per engine. Empty disables persistence.
	StateDir string `json:"state_dir" yaml:"state_dir" mapstructure:"state_dir" jsonschema:"title=State Directory"`

	// WarmupInterval is the kline interval used to pre-fill windows on start.
	WarmupInterval string `json:"warmup_interval" yaml:"warmup_interval" mapstructure:"warmup_interval" jsonschema:"title=Warm-up Interval,default=1m"`
}

// WithDefaults fills unset durations and intervals.
func (s Settings) WithDefaults() Settings {
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}

	if s.StopTimeout <= 0 {
		s.StopTimeout = DefaultStopTimeout
	}

	if s.WarmupInterval == "" {
		s.WarmupInterval = DefaultWarmupInterval
	}

	return s
}

// GetSettingsSchema returns the JSON schema for Settings.
func GetSettingsSchema() (string, error) {
	return strategy.ToJSONSchema(&Settings{}) //nolint:exhaustruct // Empty config for schema generation
}

// ManualTradeRequest is an operator-initiated trade.
type ManualTradeRequest struct {
	// Action is enter_long or exit for single-asset engines, rotate or exit for pair engines.
	Action types.DecisionAction `json:"action" yaml:"action" validate:"required,oneof=enter_long exit rotate"`

	// ToAsset is the asset a pair engine rotates into. Ignored by single-asset engines.
	ToAsset string `json:"to_asset,omitempty" yaml:"to_asset,omitempty"`

	// Quantity overrides the sized quantity of the first leg. It is still clamped to exchange filters.
	Quantity optional.Option[decimal.Decimal] `json:"quantity" yaml:"quantity"`
}

// History is the recorded activity of one engine, oldest first.
type History struct {
	Snapshots []types.Snapshot    `json:"snapshots" yaml:"snapshots"`
	Trades    []types.TradeRecord `json:"trades" yaml:"trades"`
}

// SignalEngine runs one strategy against one exchange account.
//
//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type SignalEngine interface {
	// Name returns the strategy the engine runs.
	Name() types.StrategyName

	// Status builds the current status, pricing unrealized PnL at the latest prices.
	Status(ctx context.Context) types.EngineStatus

	// Config returns the active configuration snapshot.
	Config() strategy.Config

	// SetConfig validates and swaps the configuration. An invalid config leaves the old one active.
	SetConfig(cfg strategy.Config) error

	// Start launches the tick loop. It returns immediately.
	Start(ctx context.Context) error

	// Stop cancels the loop and waits for the in-flight tick.
	Stop() error

	// Preview evaluates the current prices on a copy of the strategy without side effects.
	Preview(ctx context.Context) (types.Decision, error)

	// ManualTrade executes an operator trade through the same path as the loop.
	ManualTrade(ctx context.Context, req ManualTradeRequest) (types.Decision, error)

	// SyncFromBalances reconciles the ledger with exchange balances.
	SyncFromBalances(ctx context.Context) (types.Position, error)

	// History returns up to limit recent snapshots and trades.
	History(ctx context.Context, limit int) (History, error)

	// Stats returns the accumulated trade statistics.
	Stats() types.TradeStats

	// Reset clears the ledger and realized PnL.
	Reset() error
}
