package engine_v1

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-signal/internal/ledger"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Preview evaluates fresh prices on a copy of the strategy. Windows, ledger and history are untouched.
func (e *SignalEngineV1) Preview(ctx context.Context) (types.Decision, error) {
	holder := e.config.Load()
	market := e.marketRef()

	prices, err := e.fetchPrices(ctx, market.Symbols)
	if err != nil {
		return types.Decision{}, err
	}

	now := e.now()

	e.mu.Lock()
	clone := e.strat.Clone()
	applied := e.applied == holder
	windowKey := e.windowKey
	pos := e.ledger.Snapshot()
	e.mu.Unlock()

	if !applied {
		if holder.cfg.WindowKey() != windowKey {
			clone, err = holder.cfg.NewStrategy(e.quote)
		} else {
			err = clone.SetConfig(holder.cfg)
		}

		if err != nil {
			return types.Decision{}, ensureCode(err, errors.ErrCodeConfigInvalid, "failed to apply config to preview")
		}
	}

	obs, err := clone.Observe(prices, now)
	if err != nil {
		return types.Decision{}, err
	}

	return clone.Evaluate(obs, pos, now), nil
}

// ManualTrade builds a decision from req and runs it through the same path as the loop.
// It is refused while trading is disabled.
func (e *SignalEngineV1) ManualTrade(ctx context.Context, req engine.ManualTradeRequest) (types.Decision, error) {
	if err := validator.New().Struct(req); err != nil {
		return types.Decision{}, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid manual trade request", err)
	}

	cfg := e.Config()
	if !cfg.IsEnabled() {
		return types.Decision{}, errors.Newf(errors.ErrCodeTradingDisabled, "trading is disabled for %s", e.name)
	}

	market := e.marketRef()

	prices, err := e.fetchPrices(ctx, market.Symbols)
	if err != nil {
		return types.Decision{}, err
	}

	now := e.now()
	pos := e.position()
	decision := types.NewHoldDecision(e.name, req.Action, types.ReasonManual, now, map[string]float64{})

	if market.Pair {
		switch req.Action {
		case types.ActionRotate:
			if req.ToAsset == "" {
				return decision, errors.New(errors.ErrCodeInvalidParameter, "to_asset is required to rotate")
			}

			decision.FromAsset = pos.HeldAsset
			decision.ToAsset = req.ToAsset
		case types.ActionExit:
			if !pos.IsRotated() {
				return decision, errors.New(errors.ErrCodeInvalidTransition, "pair is not rotated, nothing to exit")
			}

			decision.FromAsset = pos.HeldAsset
			decision.ToAsset = pos.OriginAsset
		default:
			return decision, errors.Newf(errors.ErrCodeInvalidParameter, "%s is not supported by a pair engine", req.Action)
		}

		if price := prices[market.SymbolFor(decision.ToAsset)]; price > 0 {
			decision.Price = price
		}
	} else {
		if req.Action == types.ActionRotate {
			return decision, errors.New(errors.ErrCodeInvalidParameter, "rotate is only supported by pair engines")
		}

		decision.Symbol = market.Symbols[0]
		decision.Price = prices[decision.Symbol]
	}

	executed, err := e.execute(ctx, execution{
		cfg:      cfg,
		market:   market,
		decision: decision,
		prices:   prices,
		manual:   true,
		quantity: req.Quantity,
	})
	if err != nil {
		e.log.Warn("Manual trade failed", zap.String("action", string(req.Action)), zap.Error(err))

		return decision, err
	}

	e.mu.Lock()
	e.lastDecision = &executed
	e.mu.Unlock()

	e.emitStatus(e.cachedStatus())

	return executed, nil
}

// SyncFromBalances overwrites the ledger holding from exchange balances. Realized PnL is kept.
func (e *SignalEngineV1) SyncFromBalances(ctx context.Context) (types.Position, error) {
	if err := e.preRunCheck(); err != nil {
		return types.Position{}, err
	}

	e.beginExecution()
	defer e.endExecution()

	market := e.marketRef()

	assets := []string{market.Base}
	if market.Pair {
		assets = append(assets, market.Other)
	}

	assets = append(assets, market.Quote)

	balances := make(map[string]types.Balance, len(assets))

	for _, asset := range assets {
		balance, err := e.balance(ctx, asset)
		if err != nil {
			return types.Position{}, err
		}

		balances[asset] = balance
	}

	prices, err := e.fetchPrices(ctx, market.Symbols)
	if err != nil {
		return types.Position{}, err
	}

	minNotional := decimal.Zero

	if !market.Pair {
		filters, err := e.symbolFilters(ctx, market.Symbols[0])
		if err != nil {
			return types.Position{}, err
		}

		minNotional = filters.MinNotional
	}

	pos := e.ledgerRef().Sync(ledger.SyncInput{
		Balances:    balances,
		AssetPrices: assetPrices(market, prices),
		MinNotional: minNotional,
		Now:         e.now(),
	})

	e.mu.Lock()
	e.needsSync = false
	e.mu.Unlock()

	e.persistState()
	e.log.Info("Ledger synced from balances",
		zap.String("state", string(pos.State)),
		zap.String("held_asset", pos.HeldAsset),
		zap.String("held_qty", pos.HeldQty.String()),
	)
	e.emitStatus(e.cachedStatus())

	return pos, nil
}

// History returns the engine's recent snapshots and trades, oldest first.
func (e *SignalEngineV1) History(ctx context.Context, limit int) (engine.History, error) {
	snapshots, err := e.store.Snapshots(ctx, e.name, limit)
	if err != nil {
		return engine.History{}, ensureCode(err, errors.ErrCodeQueryFailed, "failed to read snapshots")
	}

	trades, err := e.store.Trades(ctx, e.name, limit)
	if err != nil {
		return engine.History{}, ensureCode(err, errors.ErrCodeQueryFailed, "failed to read trades")
	}

	return engine.History{Snapshots: snapshots, Trades: trades}, nil
}

func (e *SignalEngineV1) Stats() types.TradeStats {
	return e.ledgerRef().Stats()
}

// Reset clears the ledger, its realized PnL and statistics. Holdings are re-read on the next tick.
func (e *SignalEngineV1) Reset() error {
	e.beginExecution()
	defer e.endExecution()

	e.mu.Lock()
	e.ledger.Reset()
	e.lastDecision = nil
	e.lastError = ""
	e.needsSync = true
	e.mu.Unlock()

	e.persistState()
	e.log.Info("Ledger reset")
	e.emitStatus(e.cachedStatus())

	return nil
}
