package engine_v1

import (
	"context"
	"maps"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-signal/internal/ledger"
	"github.com/rxtech-lab/argo-signal/internal/strategy"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

// fetchPrices gets one price per symbol within the request timeout.
// Every failure is reported as ErrCodeMarketDataUnavailable.
func (e *SignalEngineV1) fetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if e.exchange == nil {
		return nil, errors.New(errors.ErrCodeEngineMissingCollaborate, "exchange is not set")
	}

	callCtx, cancel := context.WithTimeout(ctx, e.settings.RequestTimeout)
	defer cancel()

	prices, err := e.exchange.GetPrices(callCtx, symbols)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeMarketDataUnavailable) {
			return nil, err
		}

		return nil, errors.Wrap(errors.ErrCodeMarketDataUnavailable, "failed to fetch prices", err)
	}

	for _, symbol := range symbols {
		if price, ok := prices[symbol]; !ok || price <= 0 {
			return nil, errors.Newf(errors.ErrCodeMarketDataUnavailable, "no valid price for %s", symbol)
		}
	}

	return prices, nil
}

// tick runs one fetch, evaluate, act and record cycle. Every error is contained.
func (e *SignalEngineV1) tick(ctx context.Context) {
	holder := e.config.Load()
	cfg := holder.cfg
	now := e.now()

	if e.syncPending() {
		if _, err := e.SyncFromBalances(ctx); err != nil {
			e.reportError(err)
		}
	}

	market := e.marketRef()

	prices, err := e.fetchPrices(ctx, market.Symbols)
	if err != nil {
		e.setLastError(err)
		e.reportError(err)

		return
	}

	e.mu.Lock()

	if err := e.applyLocked(holder); err != nil {
		e.lastError = err.Error()
		e.mu.Unlock()
		e.reportError(err)

		return
	}

	obs, err := e.strat.Observe(prices, now)
	if err != nil {
		e.lastError = err.Error()
		e.mu.Unlock()
		e.reportError(err)

		return
	}

	if !market.Pair {
		e.ledger.ObservePrice(prices[market.Symbols[0]])
	}

	pos := e.ledger.Snapshot()
	decision := e.strat.Evaluate(obs, pos, now)
	indicators := e.strat.Indicators()

	e.prices = maps.Clone(prices)
	e.lastTickAt = now
	e.lastDecision = &decision
	e.lastError = ""
	e.mu.Unlock()

	if obs.Outlier {
		e.log.Warn("Outlier sample clamped", zap.Float64("raw", obs.Raw), zap.Float64("sample", obs.Sample))
	}

	if e.callbacks.OnDecision != nil {
		e.callbackFailed("OnDecision", (*e.callbacks.OnDecision)(decision))
	}

	snapshot := types.Snapshot{
		ID:            uuid.NewString(),
		Engine:        e.name,
		Time:          now,
		Prices:        prices,
		Indicators:    indicators,
		Action:        decision.Action,
		Reason:        decision.Reason,
		Executed:      false,
		Rejection:     "",
		State:         "",
		HeldAsset:     "",
		RealizedPnL:   0,
		UnrealizedPnL: 0,
	}

	if decision.IsTrade() {
		snapshot.Executed, snapshot.Rejection = e.act(ctx, cfg, market, decision, prices, pos)
	}

	pos = e.position()
	snapshot.State = pos.State
	snapshot.HeldAsset = pos.HeldAsset
	snapshot.RealizedPnL = pos.RealizedPnL.InexactFloat64()
	snapshot.UnrealizedPnL = ledger.UnrealizedPnL(pos, assetPrices(market, prices)).InexactFloat64()

	e.writer.AppendSnapshot(snapshot)

	if e.callbacks.OnTick != nil {
		e.callbackFailed("OnTick", (*e.callbacks.OnTick)(snapshot))
	}

	e.emitStatus(e.cachedStatus())
}

// act executes a trade decision from the loop. It returns whether an order went through and,
// when it did not, why.
func (e *SignalEngineV1) act(
	ctx context.Context,
	cfg strategy.Config,
	market strategy.Market,
	decision types.Decision,
	prices map[string]float64,
	pos types.Position,
) (bool, string) {
	if !cfg.IsEnabled() {
		e.log.Info("Trading disabled, decision recorded only",
			zap.String("action", string(decision.Action)),
			zap.String("reason", string(decision.Reason)),
		)

		return false, errors.New(errors.ErrCodeTradingDisabled, "trading is disabled").Error()
	}

	if decision.IsEntry() && pos.InCooldown(decision.Time, cfg.Cooldown()) {
		return false, errors.New(errors.ErrCodeEngineCooldown, "engine is in cooldown").Error()
	}

	if ctx.Err() != nil {
		return false, errors.New(errors.ErrCodeEngineNotRunning, "engine is stopping").Error()
	}

	executed, err := e.execute(ctx, execution{
		cfg:      cfg,
		market:   market,
		decision: decision,
		prices:   prices,
		manual:   false,
		quantity: decision.Quantity,
	})
	if err != nil {
		// A manual trade that ran while this one waited can leave the decision stale.
		if errors.IsOrderRejection(err) || errors.HasCode(err, errors.ErrCodeInvalidTransition) {
			e.log.Warn("Order not executed",
				zap.String("action", string(decision.Action)),
				zap.Error(err),
			)
		} else {
			e.setLastError(err)
			e.reportError(err)
		}

		return false, err.Error()
	}

	e.mu.Lock()
	e.lastDecision = &executed
	e.mu.Unlock()

	return true, ""
}
