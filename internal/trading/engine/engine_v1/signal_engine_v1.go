package engine_v1

import (
	"context"
	"maps"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/ledger"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/strategy"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine/engine_v1/warmup"
	tradingprovider "github.com/rxtech-lab/argo-signal/internal/trading/provider"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

// configHolder lets a strategy.Config interface value live behind an atomic pointer.
type configHolder struct {
	cfg strategy.Config
}

// Dependencies are the collaborators of an engine. Only Exchange is required.
type Dependencies struct {
	Exchange tradingprovider.Exchange
	// Store receives snapshots and trades. Defaults to a memory store.
	Store history.Store
	// Logger defaults to a production logger named after the strategy.
	Logger    *logger.Logger
	Callbacks engine.Callbacks
	// Fees defaults to the Binance fee model.
	Fees ledger.CommissionFee
}

// SignalEngineV1 implements engine.SignalEngine with a polling tick loop.
type SignalEngineV1 struct {
	name      types.StrategyName
	settings  engine.Settings
	quote     string
	exchange  tradingprovider.Exchange
	store     history.Store
	writer    *history.AsyncWriter
	warmup    *warmup.WarmupManager
	fees      ledger.CommissionFee
	log       *logger.Logger
	callbacks engine.Callbacks
	now       func() time.Time

	config atomic.Pointer[configHolder]

	// mu guards everything below. It is never held across exchange calls.
	mu           sync.Mutex
	applied      *configHolder
	strat        strategy.Strategy
	windowKey    string
	market       strategy.Market
	ledger       *ledger.Ledger
	prices       map[string]float64
	lastDecision *types.Decision
	lastTickAt   time.Time
	lastError    string
	needsSync    bool
	warmedUp     bool

	// tradeMu serializes trades, syncs, resets and market changes. Taken before mu, never inside it.
	tradeMu sync.Mutex

	runMu   sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSignalEngineV1 builds an engine for cfg. The ledger is restored from the state directory when a
// state file exists; otherwise the first tick syncs it from exchange balances.
func NewSignalEngineV1(cfg strategy.Config, settings engine.Settings, deps Dependencies) (*SignalEngineV1, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "engine config is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, ensureCode(err, errors.ErrCodeConfigInvalid, "invalid engine config")
	}

	settings = settings.WithDefaults()

	quote, err := tradingprovider.QuoteAssetFor(settings.Environment)
	if err != nil {
		return nil, err
	}

	strat, err := cfg.NewStrategy(quote)
	if err != nil {
		return nil, ensureCode(err, errors.ErrCodeConfigInvalid, "failed to build strategy")
	}

	log := deps.Logger
	if log == nil {
		log, err = logger.NewLogger()
		if err != nil {
			return nil, err
		}
	}

	name := cfg.StrategyName()
	log = log.Named(string(name))

	store := deps.Store
	if store == nil {
		store = history.NewMemoryStore(history.DefaultMemoryLimit)
	}

	fees := deps.Fees
	if fees == nil {
		fees = ledger.GetCommissionFeeHandler(ledger.BrokerBinance)
	}

	market := cfg.Market(quote)
	holder := &configHolder{cfg: cfg}

	e := &SignalEngineV1{
		name:         name,
		settings:     settings,
		quote:        quote,
		exchange:     deps.Exchange,
		store:        store,
		writer:       history.NewAsyncWriter(store, log, history.DefaultQueueSize),
		warmup:       warmup.NewWarmupManager(store, deps.Exchange, settings.WarmupInterval, log),
		fees:         fees,
		log:          log,
		callbacks:    deps.Callbacks,
		now:          time.Now,
		mu:           sync.Mutex{},
		applied:      holder,
		strat:        strat,
		windowKey:    cfg.WindowKey(),
		market:       market,
		ledger:       newLedger(market, fees),
		prices:       map[string]float64{},
		lastDecision: nil,
		lastTickAt:   time.Time{},
		lastError:    "",
		needsSync:    true,
		warmedUp:     false,
		runMu:        sync.Mutex{},
		cancel:       nil,
		done:         nil,
	}
	e.config.Store(holder)

	if path := e.statePath(); path != "" {
		loaded, err := e.ledger.LoadState(path, name)
		if err != nil {
			e.writer.Close()

			return nil, err
		}

		if loaded {
			e.needsSync = false
			log.Info("Restored ledger state", zap.String("path", path), zap.Any("position", e.ledger.Snapshot()))
		}
	}

	return e, nil
}

func newLedger(market strategy.Market, fees ledger.CommissionFee) *ledger.Ledger {
	if market.Pair {
		return ledger.NewPairLedger(market.Base, market.Other, market.Quote, fees)
	}

	return ledger.NewSingleAssetLedger(market.Base, market.Quote, fees)
}

// ensureCode keeps an existing coded error and wraps anything else with code.
func ensureCode(err error, code errors.ErrorCode, message string) error {
	if errors.GetCode(err) != errors.ErrCodeUnknown {
		return err
	}

	return errors.Wrap(code, message, err)
}

func (e *SignalEngineV1) Name() types.StrategyName {
	return e.name
}

// Config returns the active configuration snapshot.
func (e *SignalEngineV1) Config() strategy.Config {
	return e.config.Load().cfg
}

// SetConfig validates cfg and swaps it in, after any trade in flight has finished. Changing the traded
// market is refused while a position is open; otherwise the ledger is rebuilt and resynced.
// Window-shaping changes rebuild the strategy.
func (e *SignalEngineV1) SetConfig(cfg strategy.Config) error {
	if cfg == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "config is required")
	}

	if cfg.StrategyName() != e.name {
		return errors.Newf(errors.ErrCodeConfigInvalid, "config for %s cannot be applied to %s", cfg.StrategyName(), e.name)
	}

	if err := cfg.Validate(); err != nil {
		return ensureCode(err, errors.ErrCodeConfigInvalid, "invalid engine config")
	}

	market := cfg.Market(e.quote)

	e.tradeMu.Lock()
	defer e.tradeMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	marketChanged := market.Key() != e.market.Key()
	if marketChanged {
		if e.ledger.Snapshot().IsOpen() {
			return errors.Newf(errors.ErrCodeInvalidTransition,
				"cannot move %s from %s to %s while a position is open", e.name, e.market.Key(), market.Key())
		}
	}

	holder := &configHolder{cfg: cfg}
	if err := e.applyLocked(holder); err != nil {
		return err
	}

	if marketChanged {
		e.ledger = newLedger(market, e.fees)
		e.market = market
		e.needsSync = true
		e.prices = map[string]float64{}
	}

	e.config.Store(holder)
	e.log.Info("Config updated",
		zap.Bool("enabled", cfg.IsEnabled()),
		zap.String("market", market.Key()),
		zap.Bool("market_changed", marketChanged),
	)

	return nil
}

// applyLocked brings the live strategy in line with holder. Caller holds mu.
func (e *SignalEngineV1) applyLocked(holder *configHolder) error {
	if holder == e.applied {
		return nil
	}

	cfg := holder.cfg
	if key := cfg.WindowKey(); key != e.windowKey {
		strat, err := cfg.NewStrategy(e.quote)
		if err != nil {
			return ensureCode(err, errors.ErrCodeConfigInvalid, "failed to rebuild strategy")
		}

		e.strat = strat
		e.windowKey = key
		e.warmedUp = false
	} else if err := e.strat.SetConfig(cfg); err != nil {
		return ensureCode(err, errors.ErrCodeConfigInvalid, "failed to apply config")
	}

	e.applied = holder

	return nil
}

// preRunCheck verifies the engine has everything it needs to run.
func (e *SignalEngineV1) preRunCheck() error {
	if e.exchange == nil {
		return errors.New(errors.ErrCodeEngineMissingCollaborate, "exchange is not set")
	}

	return nil
}

// Start launches the tick loop. The loop stops when ctx is cancelled or Stop is called.
func (e *SignalEngineV1) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.running.Load() {
		return errors.Newf(errors.ErrCodeEngineAlreadyRunning, "%s is already running", e.name)
	}

	if err := e.preRunCheck(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	e.cancel = cancel
	e.done = done
	e.running.Store(true)

	go e.run(runCtx, done)

	return nil
}

// Stop cancels the loop and waits for the in-flight tick. Orders already sent are allowed to finish.
func (e *SignalEngineV1) Stop() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if !e.running.Load() {
		return errors.Newf(errors.ErrCodeEngineNotRunning, "%s is not running", e.name)
	}

	e.cancel()

	select {
	case <-e.done:
		return nil
	case <-time.After(e.settings.StopTimeout):
		return errors.Newf(errors.ErrCodeEngineStopTimeout, "%s did not stop within %s", e.name, e.settings.StopTimeout)
	}
}

// Close stops the loop if needed and flushes pending history writes. The store is left open.
func (e *SignalEngineV1) Close() {
	if err := e.Stop(); err != nil && !errors.HasCode(err, errors.ErrCodeEngineNotRunning) {
		e.log.Warn("Failed to stop engine", zap.Error(err))
	}

	e.writer.Close()
}

func (e *SignalEngineV1) run(ctx context.Context, done chan struct{}) {
	var runErr error

	defer func() {
		e.running.Store(false)
		e.persistState()
		e.emitStatus(e.cachedStatus())

		if e.callbacks.OnEngineStop != nil {
			(*e.callbacks.OnEngineStop)(e.name, runErr)
		}

		e.log.Info("Signal engine stopped", zap.Error(runErr))
		close(done)
	}()

	e.log.Info("Signal engine started",
		zap.String("environment", string(e.settings.Environment)),
		zap.String("quote", e.quote),
		zap.Duration("poll_interval", e.Config().PollInterval()),
	)

	if e.callbacks.OnEngineStart != nil {
		if err := (*e.callbacks.OnEngineStart)(e.name); err != nil {
			runErr = errors.Wrap(errors.ErrCodeCallbackFailed, "OnEngineStart callback failed", err)

			return
		}
	}

	if err := e.warmupIfNeeded(ctx); err != nil {
		e.log.Warn("Warm-up failed, windows will fill from live ticks", zap.Error(err))
	}

	for {
		e.tick(ctx)

		timer := time.NewTimer(e.Config().PollInterval())

		select {
		case <-ctx.Done():
			timer.Stop()

			return
		case <-timer.C:
		}
	}
}

// Warmup pre-fills the strategy windows. It runs on a copy so ticks are never blocked by the download.
func (e *SignalEngineV1) Warmup(ctx context.Context, progress warmup.ProgressFunc) ([]warmup.SymbolResult, error) {
	e.mu.Lock()
	clone := e.strat.Clone()
	key := e.windowKey
	e.mu.Unlock()

	results, err := e.warmup.Warmup(ctx, clone, progress)
	if err != nil {
		return results, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.windowKey == key {
		e.strat = clone
		e.warmedUp = true
		// The clone carries the config it was copied with; force a re-apply on the next tick.
		e.applied = nil
	}

	return results, nil
}

func (e *SignalEngineV1) warmupIfNeeded(ctx context.Context) error {
	e.mu.Lock()
	warmed := e.warmedUp
	e.mu.Unlock()

	if warmed {
		return nil
	}

	_, err := e.Warmup(ctx, nil)

	return err
}

func (e *SignalEngineV1) statePath() string {
	if e.settings.StateDir == "" {
		return ""
	}

	return filepath.Join(e.settings.StateDir, string(e.name)+".yaml")
}

func (e *SignalEngineV1) persistState() {
	path := e.statePath()
	if path == "" {
		return
	}

	if err := e.ledgerRef().SaveState(path, e.name, e.now()); err != nil {
		e.log.Warn("Failed to save ledger state", zap.String("path", path), zap.Error(err))
	}
}

func (e *SignalEngineV1) ledgerRef() *ledger.Ledger {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.ledger
}

func (e *SignalEngineV1) position() types.Position {
	return e.ledgerRef().Snapshot()
}

func (e *SignalEngineV1) marketRef() strategy.Market {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.market
}

func (e *SignalEngineV1) syncPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.needsSync
}

func (e *SignalEngineV1) markNeedsSync() {
	e.mu.Lock()
	e.needsSync = true
	e.mu.Unlock()
}

func (e *SignalEngineV1) setLastError(err error) {
	e.mu.Lock()
	e.lastError = err.Error()
	e.mu.Unlock()
}

// beginExecution waits for the engine's trade slot.
func (e *SignalEngineV1) beginExecution() {
	e.tradeMu.Lock()
}

func (e *SignalEngineV1) endExecution() {
	e.tradeMu.Unlock()
}

// assetPrices maps each asset of the market to its quote price. The quote itself is worth 1.
func assetPrices(market strategy.Market, prices map[string]float64) map[string]float64 {
	out := map[string]float64{market.Quote: 1}

	for _, asset := range []string{market.Base, market.Other} {
		if asset == "" {
			continue
		}

		if price, ok := prices[market.SymbolFor(asset)]; ok {
			out[asset] = price
		}
	}

	return out
}

// statusLocked builds a status from prices. Caller holds mu.
func (e *SignalEngineV1) statusLocked(cfg strategy.Config, prices map[string]float64) types.EngineStatus {
	pos := e.ledger.Snapshot()

	state := types.EngineStateStopped
	if e.running.Load() {
		state = types.EngineStateRunning
	}

	status := types.EngineStatus{
		Engine:        e.name,
		State:         state,
		Enabled:       cfg.IsEnabled(),
		Environment:   string(e.settings.Environment),
		Prices:        maps.Clone(prices),
		Indicators:    e.strat.Indicators(),
		Position:      pos,
		RealizedPnL:   pos.RealizedPnL.InexactFloat64(),
		UnrealizedPnL: ledger.UnrealizedPnL(pos, assetPrices(e.market, prices)).InexactFloat64(),
		LastDecision:  nil,
		LastTickAt:    e.lastTickAt,
		LastError:     e.lastError,
		NeedsSync:     e.needsSync,
	}

	if e.lastDecision != nil {
		decision := *e.lastDecision
		status.LastDecision = &decision
	}

	return status
}

// cachedStatus builds a status from the prices of the last tick.
func (e *SignalEngineV1) cachedStatus() types.EngineStatus {
	cfg := e.Config()

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.statusLocked(cfg, e.prices)
}

// Status prices unrealized PnL at fresh prices, falling back to the last tick's prices.
func (e *SignalEngineV1) Status(ctx context.Context) types.EngineStatus {
	cfg := e.Config()
	market := e.marketRef()

	prices, err := e.fetchPrices(ctx, market.Symbols)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.log.Debug("Status uses cached prices", zap.Error(err))

		prices = e.prices
	}

	return e.statusLocked(cfg, prices)
}

func (e *SignalEngineV1) reportError(err error) {
	e.log.Warn("Engine error", zap.Error(err))

	if e.callbacks.OnError != nil {
		(*e.callbacks.OnError)(e.name, err)
	}
}

func (e *SignalEngineV1) callbackFailed(callback string, err error) {
	if err == nil {
		return
	}

	e.log.Warn("Callback failed",
		zap.String("callback", callback),
		zap.Error(errors.Wrap(errors.ErrCodeCallbackFailed, callback+" callback failed", err)),
	)
}

func (e *SignalEngineV1) emitStatus(status types.EngineStatus) {
	if e.callbacks.OnStatusUpdate != nil {
		e.callbackFailed("OnStatusUpdate", (*e.callbacks.OnStatusUpdate)(status))
	}
}

var _ engine.SignalEngine = (*SignalEngineV1)(nil)
