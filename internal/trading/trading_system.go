package trading

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/notify"
	"github.com/rxtech-lab/argo-signal/internal/strategy"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine/engine_v1"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine/engine_v1/warmup"
	tradingprovider "github.com/rxtech-lab/argo-signal/internal/trading/provider"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

// notifyTimeout bounds one alert delivery, retries included.
const notifyTimeout = 30 * time.Second

// Options are the collaborators shared by every engine of a TradingSystem.
type Options struct {
	Settings engine.Settings
	Engines  []strategy.Config
	Exchange tradingprovider.Exchange
	Store    history.Store
	Notifier notify.Notifier
	Logger   *logger.Logger
	OnEvent  EventSink
}

// TradingSystem owns one signal engine per strategy and fans their callbacks out to
// the notifier and the event sink.
type TradingSystem struct {
	settings engine.Settings
	exchange tradingprovider.Exchange
	notifier notify.Notifier
	log      *logger.Logger
	onEvent  EventSink

	engines []*engine_v1.SignalEngineV1
	byName  map[types.StrategyName]*engine_v1.SignalEngineV1

	notifications sync.WaitGroup
}

// NewTradingSystem builds an engine for every config in opts.
func NewTradingSystem(opts Options) (*TradingSystem, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}

	ts := &TradingSystem{
		settings:      opts.Settings.WithDefaults(),
		exchange:      opts.Exchange,
		notifier:      notifier,
		log:           log,
		onEvent:       opts.OnEvent,
		engines:       make([]*engine_v1.SignalEngineV1, 0, len(opts.Engines)),
		byName:        make(map[types.StrategyName]*engine_v1.SignalEngineV1, len(opts.Engines)),
		notifications: sync.WaitGroup{},
	}

	for _, cfg := range opts.Engines {
		name := cfg.StrategyName()
		if _, exists := ts.byName[name]; exists {
			ts.Close()

			return nil, errors.Newf(errors.ErrCodeConfigInvalid, "duplicate engine %s", name)
		}

		e, err := engine_v1.NewSignalEngineV1(cfg, ts.settings, engine_v1.Dependencies{
			Exchange:  opts.Exchange,
			Store:     opts.Store,
			Logger:    log,
			Callbacks: ts.callbacksFor(),
			Fees:      nil,
		})
		if err != nil {
			ts.Close()

			return nil, errors.Wrapf(errors.GetCode(err), err, "failed to create %s engine", name)
		}

		ts.engines = append(ts.engines, e)
		ts.byName[name] = e
	}

	return ts, nil
}

func (ts *TradingSystem) publish(eventType EventType, name types.StrategyName, payload any) {
	if ts.onEvent == nil {
		return
	}

	ts.onEvent(Event{Type: eventType, Engine: name, Time: time.Now(), Payload: payload})
}

// dispatch delivers an alert off the engine goroutine.
func (ts *TradingSystem) dispatch(kind string, send func(ctx context.Context) error) {
	ts.notifications.Add(1)

	go func() {
		defer ts.notifications.Done()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			ts.log.Warn("Failed to send notification", zap.String("kind", kind), zap.Error(err))
		}
	}()
}

func (ts *TradingSystem) callbacksFor() engine.Callbacks {
	onStart := engine.OnEngineStartCallback(func(name types.StrategyName) error {
		ts.dispatch("engine_state", func(ctx context.Context) error {
			return ts.notifier.NotifyEngineState(ctx, name, types.EngineStateRunning, nil)
		})

		return nil
	})

	onStop := engine.OnEngineStopCallback(func(name types.StrategyName, err error) {
		ts.dispatch("engine_state", func(ctx context.Context) error {
			return ts.notifier.NotifyEngineState(ctx, name, types.EngineStateStopped, err)
		})
	})

	onTick := engine.OnTickCallback(func(snapshot types.Snapshot) error {
		ts.publish(EventTick, snapshot.Engine, snapshot)

		return nil
	})

	onFilled := engine.OnOrderFilledCallback(func(trade types.TradeRecord) error {
		ts.publish(EventTrade, trade.Engine, trade)
		ts.dispatch("trade", func(ctx context.Context) error {
			return ts.notifier.NotifyTrade(ctx, trade)
		})

		return nil
	})

	onError := engine.OnErrorCallback(func(name types.StrategyName, err error) {
		code := errors.GetCode(err)
		ts.publish(EventError, name, map[string]any{
			"code":    code,
			"error":   code.String(),
			"message": err.Error(),
		})
		ts.dispatch("error", func(ctx context.Context) error {
			return ts.notifier.NotifyError(ctx, name, err)
		})
	})

	onStatus := engine.OnStatusUpdateCallback(func(status types.EngineStatus) error {
		ts.publish(EventStatus, status.Engine, status)

		return nil
	})

	return engine.Callbacks{
		OnEngineStart:  &onStart,
		OnEngineStop:   &onStop,
		OnTick:         &onTick,
		OnDecision:     nil,
		OnOrderPlaced:  nil,
		OnOrderFilled:  &onFilled,
		OnError:        &onError,
		OnStatusUpdate: &onStatus,
	}
}

func (ts *TradingSystem) Engine(name types.StrategyName) (engine.SignalEngine, error) {
	e, ok := ts.byName[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "no engine named %s", name)
	}

	return e, nil
}

func (ts *TradingSystem) Engines() []engine.SignalEngine {
	out := make([]engine.SignalEngine, 0, len(ts.engines))
	for _, e := range ts.engines {
		out = append(out, e)
	}

	return out
}

func (ts *TradingSystem) Pairs() []strategy.Pair {
	return slices.Clone(strategy.AvailablePairs)
}

// Warmup pre-fills the windows of every engine. progress is called per symbol.
func (ts *TradingSystem) Warmup(ctx context.Context, progress func(name types.StrategyName, done, total int, result warmup.SymbolResult)) error {
	for _, e := range ts.engines {
		name := e.Name()

		var fn warmup.ProgressFunc
		if progress != nil {
			fn = func(done, total int, result warmup.SymbolResult) {
				progress(name, done, total, result)
			}
		}

		if _, err := e.Warmup(ctx, fn); err != nil {
			return errors.Wrapf(errors.GetCode(err), err, "failed to warm up %s", name)
		}
	}

	return nil
}

// StartAll starts every engine that is not already running.
func (ts *TradingSystem) StartAll(ctx context.Context) error {
	for _, e := range ts.engines {
		err := e.Start(ctx)
		if err != nil && !errors.HasCode(err, errors.ErrCodeEngineAlreadyRunning) {
			return errors.Wrapf(errors.GetCode(err), err, "failed to start %s", e.Name())
		}
	}

	return nil
}

// StopAll stops every running engine and returns the first failure.
func (ts *TradingSystem) StopAll() error {
	var first error

	for _, e := range ts.engines {
		err := e.Stop()
		if err != nil && !errors.HasCode(err, errors.ErrCodeEngineNotRunning) && first == nil {
			first = err
		}
	}

	return first
}

// Close stops every engine, flushes their history writers and waits for pending alerts.
func (ts *TradingSystem) Close() {
	for _, e := range ts.engines {
		e.Close()
	}

	ts.notifications.Wait()
}

// SuggestPair fetches limit closes of both legs and tunes a config on their ratio.
func (ts *TradingSystem) SuggestPair(ctx context.Context, pair strategy.Pair, interval string, limit int) (PairSuggestion, error) {
	if ts.exchange == nil {
		return PairSuggestion{}, errors.New(errors.ErrCodeEngineMissingCollaborate, "exchange is not set")
	}

	if pair.AssetA == "" || pair.AssetB == "" || pair.AssetA == pair.AssetB {
		return PairSuggestion{}, errors.Newf(errors.ErrCodeInvalidParameter, "invalid pair %s/%s", pair.AssetA, pair.AssetB)
	}

	quote, err := tradingprovider.QuoteAssetFor(ts.settings.Environment)
	if err != nil {
		return PairSuggestion{}, err
	}

	closesA, err := ts.exchange.GetRecentPrices(ctx, pair.AssetA+quote, interval, limit)
	if err != nil {
		return PairSuggestion{}, errors.Wrapf(errors.ErrCodeMarketDataUnavailable, err, "failed to fetch %s%s", pair.AssetA, quote)
	}

	closesB, err := ts.exchange.GetRecentPrices(ctx, pair.AssetB+quote, interval, limit)
	if err != nil {
		return PairSuggestion{}, errors.Wrapf(errors.ErrCodeMarketDataUnavailable, err, "failed to fetch %s%s", pair.AssetB, quote)
	}

	n := min(len(closesA), len(closesB))
	closesA, closesB = closesA[len(closesA)-n:], closesB[len(closesB)-n:]

	ratios := make([]float64, 0, n)

	for i := range n {
		if closesA[i].Close > 0 && closesB[i].Close > 0 {
			ratios = append(ratios, closesA[i].Close/closesB[i].Close)
		}
	}

	base := strategy.DefaultMeanReversionConfig()
	if e, ok := ts.byName[types.StrategyMeanReversion]; ok {
		if current, ok := e.Config().(strategy.MeanReversionConfig); ok {
			base = current
		}
	}

	base.AssetA, base.AssetB = pair.AssetA, pair.AssetB

	cfg, err := strategy.SuggestMeanReversionConfig(ratios, base)
	if err != nil {
		return PairSuggestion{}, err
	}

	return PairSuggestion{
		Pair:    pair,
		Config:  cfg,
		Health:  strategy.EvaluatePairHealth(ratios, cfg.WindowSize),
		Samples: len(ratios),
	}, nil
}

var _ System = (*TradingSystem)(nil)
