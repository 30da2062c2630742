package engine_v1

import (
	"context"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-signal/internal/sizing"
	"github.com/rxtech-lab/argo-signal/internal/strategy"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// execution is one trade decision together with what sizing needs to carry it out.
type execution struct {
	cfg      strategy.Config
	market   strategy.Market
	decision types.Decision
	prices   map[string]float64
	manual   bool
	// quantity overrides the sized quantity of the first leg.
	quantity optional.Option[decimal.Decimal]
}

// execute sizes, clamps, places and books a decision. Executions on one engine run one at a time;
// a second caller waits for the first to finish.
// On success the returned decision carries the executed quantity.
func (e *SignalEngineV1) execute(ctx context.Context, ex execution) (types.Decision, error) {
	e.beginExecution()
	defer e.endExecution()

	// A started execution ignores loop cancellation; each call is bounded by the request timeout.
	ctx = context.WithoutCancel(ctx)

	var (
		qty decimal.Decimal
		err error
	)

	switch ex.decision.Action {
	case types.ActionEnterLong:
		qty, err = e.enterLong(ctx, ex)
	case types.ActionEnterShort:
		err = errors.New(errors.ErrCodeInvalidTransition, "short entries are not supported on a spot account")
	case types.ActionExit:
		if ex.market.Pair {
			qty, err = e.rotate(ctx, ex)
		} else {
			qty, err = e.exitLong(ctx, ex)
		}
	case types.ActionRotate:
		qty, err = e.rotate(ctx, ex)
	case types.ActionHold, types.ActionNone:
		err = errors.Newf(errors.ErrCodeInvalidParameter, "%s is not a trade action", ex.decision.Action)
	default:
		err = errors.Newf(errors.ErrCodeInvalidParameter, "unknown action %s", ex.decision.Action)
	}

	if err != nil {
		return ex.decision, err
	}

	executed := ex.decision
	executed.Quantity = optional.Some(qty)

	e.persistState()
	e.log.Info("Decision executed",
		zap.String("action", string(executed.Action)),
		zap.String("reason", string(executed.Reason)),
		zap.String("quantity", qty.String()),
		zap.Bool("manual", ex.manual),
	)

	return executed, nil
}

func priceFor(prices map[string]float64, symbol string) (decimal.Decimal, error) {
	price, ok := prices[symbol]
	if !ok || price <= 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeMarketDataUnavailable, "no valid price for %s", symbol)
	}

	return decimal.NewFromFloat(price), nil
}

func (e *SignalEngineV1) enterLong(ctx context.Context, ex execution) (decimal.Decimal, error) {
	if e.position().State != types.PositionStateFlat {
		return decimal.Zero, errors.New(errors.ErrCodeInvalidTransition, "cannot enter while a position is open")
	}

	symbol := ex.market.Symbols[0]

	price, err := priceFor(ex.prices, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	qty, err := e.sizeOrOverride(ex.quantity, func() (decimal.Decimal, error) {
		quote, err := e.balance(ctx, ex.market.Quote)
		if err != nil {
			return decimal.Zero, err
		}

		return ex.cfg.SizingPolicy().BuyQuantity(price, quote.Free)
	})
	if err != nil {
		return decimal.Zero, err
	}

	fill, _, err := e.placeOrder(ctx, ex, symbol, types.PurchaseTypeBuy, qty, price)
	if err != nil {
		return decimal.Zero, err
	}

	e.mu.Lock()
	effect, err := e.ledger.Enter(fill, types.PositionStateLong, ex.manual)

	if err == nil {
		e.strat.Acknowledge(ex.decision)
	}
	e.mu.Unlock()

	if err != nil {
		e.markNeedsSync()

		return decimal.Zero, errors.Wrap(errors.GetCode(err), "order filled but the ledger refused it", err)
	}

	e.recordTrade(ex, fill, effect.Fee, effect.RealizedPnL)

	return fill.ExecutedQty, nil
}

func (e *SignalEngineV1) exitLong(ctx context.Context, ex execution) (decimal.Decimal, error) {
	pos := e.position()
	if !pos.IsOpen() {
		return decimal.Zero, errors.New(errors.ErrCodeInvalidTransition, "no open position to exit")
	}

	symbol := ex.market.Symbols[0]

	price, err := priceFor(ex.prices, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	qty, err := e.sizeOrOverride(ex.quantity, func() (decimal.Decimal, error) {
		base, err := e.balance(ctx, ex.market.Base)
		if err != nil {
			return decimal.Zero, err
		}

		return sizing.ExitQuantity(pos.HeldQty, base.Free)
	})
	if err != nil {
		return decimal.Zero, err
	}

	fill, filters, err := e.placeOrder(ctx, ex, symbol, types.PurchaseTypeSell, qty, price)
	if errors.HasCode(err, errors.ErrCodeOrderTooSmall) && isDust(pos.HeldQty, price, filters) {
		return e.writeOffDust(ex, pos, price)
	}

	if err != nil {
		return decimal.Zero, err
	}

	// A remainder the exchange would refuse to sell is written off as dust.
	remainder := pos.HeldQty.Sub(fill.ExecutedQty)
	closeRemainder := !remainder.IsPositive() || isDust(remainder, price, filters)

	e.mu.Lock()
	effect, err := e.ledger.Exit(fill, closeRemainder, ex.manual)

	if err == nil {
		e.strat.Acknowledge(ex.decision)
	}
	e.mu.Unlock()

	if err != nil {
		e.markNeedsSync()

		return decimal.Zero, errors.Wrap(errors.GetCode(err), "order filled but the ledger refused it", err)
	}

	e.recordTrade(ex, fill, effect.Fee, effect.RealizedPnL)

	return fill.ExecutedQty, nil
}

func isDust(qty, price decimal.Decimal, filters types.SymbolFilters) bool {
	return qty.Mul(price).LessThan(filters.MinNotional) || qty.LessThan(filters.MinQty)
}

// writeOffDust closes a position the exchange will never let us sell. No order is placed; the
// holding is marked at price and the ledger goes FLAT so the strategy can trade again.
func (e *SignalEngineV1) writeOffDust(ex execution, pos types.Position, price decimal.Decimal) (decimal.Decimal, error) {
	e.mu.Lock()
	effect, err := e.ledger.WriteOff(price, e.now(), ex.manual)

	if err == nil {
		e.strat.Acknowledge(ex.decision)
	}
	e.mu.Unlock()

	if err != nil {
		return decimal.Zero, err
	}

	e.log.Warn("Position below exchange minimums written off",
		zap.String("asset", pos.HeldAsset),
		zap.String("quantity", pos.HeldQty.String()),
		zap.String("price", price.String()),
		zap.String("realized_pnl", effect.RealizedPnL.String()),
	)

	return pos.HeldQty, nil
}

// rotate moves a pair holding from one asset to the other through the quote asset. The buy leg is
// sized from the quote the sell leg actually returned. A failed buy leg leaves the engine holding
// quote, so it is flagged for a sync.
func (e *SignalEngineV1) rotate(ctx context.Context, ex execution) (decimal.Decimal, error) {
	pos := e.position()
	from, to := ex.decision.FromAsset, ex.decision.ToAsset

	if from == "" {
		from = pos.HeldAsset
	}

	if ex.decision.Action == types.ActionExit && to == "" {
		to = pos.OriginAsset
	}

	switch {
	case to == "":
		return decimal.Zero, errors.New(errors.ErrCodeInvalidTransition, "no asset to rotate into")
	case from == to:
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidTransition, "already holding %s", to)
	case from != pos.HeldAsset:
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidTransition, "cannot rotate from %s while holding %s", from, pos.HeldAsset)
	case to != ex.market.Base && to != ex.market.Other:
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidTransition, "%s is not part of %s", to, ex.market.Key())
	}

	policy := ex.cfg.SizingPolicy()

	var (
		sell   types.Fill
		budget decimal.Decimal
	)

	if from == ex.market.Quote {
		quote, err := e.balance(ctx, ex.market.Quote)
		if err != nil {
			return decimal.Zero, err
		}

		budget = quote.Free
	} else {
		sellSymbol := ex.market.SymbolFor(from)

		price, err := priceFor(ex.prices, sellSymbol)
		if err != nil {
			return decimal.Zero, err
		}

		qty, err := e.sizeOrOverride(ex.quantity, func() (decimal.Decimal, error) {
			held, err := e.balance(ctx, from)
			if err != nil {
				return decimal.Zero, err
			}

			return policy.SellQuantity(price, held.Free)
		})
		if err != nil {
			return decimal.Zero, err
		}

		sell, _, err = e.placeOrder(ctx, ex, sellSymbol, types.PurchaseTypeSell, qty, price)
		if err != nil {
			return decimal.Zero, err
		}

		sellFee := e.fees.Calculate(sell)
		e.recordTrade(ex, sell, sellFee, decimal.Zero)

		budget = sell.Notional().Sub(sellFee)
		// Only what the sell returned is spent; the rest of the quote balance is not ours.
		policy.UseAllBalance = true
	}

	buySymbol := ex.market.SymbolFor(to)

	buy, err := e.buyLeg(ctx, ex, buySymbol, policy, budget, from == ex.market.Quote)
	if err != nil {
		if sell.IsEmpty() {
			return decimal.Zero, err
		}

		e.markNeedsSync()

		return decimal.Zero, errors.Wrapf(errors.ErrCodePartialRotation, err,
			"sold %s %s but buying %s failed", sell.ExecutedQty, from, to)
	}

	e.mu.Lock()
	effect, err := e.ledger.Rotate(from, to, sell, buy, ex.manual)

	if err == nil {
		e.strat.Acknowledge(ex.decision)
	}
	e.mu.Unlock()

	if err != nil {
		e.markNeedsSync()

		return decimal.Zero, errors.Wrap(errors.GetCode(err), "orders filled but the ledger refused the rotation", err)
	}

	e.recordTrade(ex, buy, e.fees.Calculate(buy), effect.RealizedPnL)

	return buy.ExecutedQty, nil
}

// buyLeg buys the target asset of a rotation with budget quote.
func (e *SignalEngineV1) buyLeg(
	ctx context.Context,
	ex execution,
	symbol string,
	policy sizing.Policy,
	budget decimal.Decimal,
	firstLeg bool,
) (types.Fill, error) {
	price, err := priceFor(ex.prices, symbol)
	if err != nil {
		return types.Fill{}, err
	}

	override := optional.None[decimal.Decimal]()
	if firstLeg {
		override = ex.quantity
	}

	qty, err := e.sizeOrOverride(override, func() (decimal.Decimal, error) {
		return policy.BuyQuantity(price, budget)
	})
	if err != nil {
		return types.Fill{}, err
	}

	fill, _, err := e.placeOrder(ctx, ex, symbol, types.PurchaseTypeBuy, qty, price)

	return fill, err
}

func (e *SignalEngineV1) sizeOrOverride(override optional.Option[decimal.Decimal], size func() (decimal.Decimal, error)) (decimal.Decimal, error) {
	if override.IsSome() {
		qty := override.Unwrap()
		if !qty.IsPositive() {
			return decimal.Zero, errors.Newf(errors.ErrCodeInvalidParameter, "quantity must be positive, got %s", qty)
		}

		return qty, nil
	}

	return size()
}

func (e *SignalEngineV1) balance(ctx context.Context, asset string) (types.Balance, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.settings.RequestTimeout)
	defer cancel()

	balance, err := e.exchange.GetBalance(callCtx, asset)
	if err != nil {
		return types.Balance{}, ensureCode(err, errors.ErrCodeExchangeUnavailable, "failed to fetch balance of "+asset)
	}

	return balance, nil
}

func (e *SignalEngineV1) symbolFilters(ctx context.Context, symbol string) (types.SymbolFilters, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.settings.RequestTimeout)
	defer cancel()

	filters, err := e.exchange.GetSymbolFilters(callCtx, symbol)
	if err != nil {
		return types.SymbolFilters{}, ensureCode(err, errors.ErrCodeExchangeUnavailable, "failed to fetch filters of "+symbol)
	}

	return filters, nil
}

// placeOrder clamps qty to the symbol's filters and submits a market order.
func (e *SignalEngineV1) placeOrder(
	ctx context.Context,
	ex execution,
	symbol string,
	side types.PurchaseType,
	qty decimal.Decimal,
	price decimal.Decimal,
) (types.Fill, types.SymbolFilters, error) {
	filters, err := e.symbolFilters(ctx, symbol)
	if err != nil {
		return types.Fill{}, filters, err
	}

	clamped, err := sizing.Clamp(qty, price, filters)
	if err != nil {
		return types.Fill{}, filters, err
	}

	order := types.OrderRequest{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		OrderType: types.OrderTypeMarket,
		Quantity:  clamped.Quantity,
		Price:     price.InexactFloat64(),
		Reason:    ex.decision.Reason,
		Strategy:  e.name,
		Manual:    ex.manual,
	}

	if e.callbacks.OnOrderPlaced != nil {
		e.callbackFailed("OnOrderPlaced", (*e.callbacks.OnOrderPlaced)(order))
	}

	e.log.Info("Placing order",
		zap.String("id", order.ID),
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.String("quantity", clamped.Quantity.String()),
		zap.String("notional", clamped.Notional.StringFixed(4)),
	)

	callCtx, cancel := context.WithTimeout(ctx, e.settings.RequestTimeout)
	defer cancel()

	fill, err := e.exchange.PlaceOrder(callCtx, order)
	if err != nil {
		return types.Fill{}, filters, ensureCode(err, errors.ErrCodeExchangeUnavailable, "failed to place order")
	}

	if fill.IsEmpty() {
		return types.Fill{}, filters, errors.Newf(errors.ErrCodeOrderRejectedByExchange,
			"order %s for %s was not executed (status %s)", order.ID, symbol, fill.Status)
	}

	if fill.ExecutedAt.IsZero() {
		fill.ExecutedAt = e.now()
	}

	if fill.Symbol == "" {
		fill.Symbol = symbol
	}

	if fill.Side == "" {
		fill.Side = side
	}

	return fill, filters, nil
}

func (e *SignalEngineV1) recordTrade(ex execution, fill types.Fill, fee, pnl decimal.Decimal) {
	trade := types.TradeRecord{
		ID:          uuid.NewString(),
		Engine:      e.name,
		OrderID:     fill.OrderID,
		Time:        fill.ExecutedAt,
		Symbol:      fill.Symbol,
		Side:        fill.Side,
		Quantity:    fill.ExecutedQty.InexactFloat64(),
		Price:       fill.AveragePrice().InexactFloat64(),
		QuoteQty:    fill.Notional().InexactFloat64(),
		Fee:         fee.InexactFloat64(),
		RealizedPnL: pnl.InexactFloat64(),
		Reason:      ex.decision.Reason,
		Manual:      ex.manual,
	}

	e.writer.AppendTrade(trade)

	if e.callbacks.OnOrderFilled != nil {
		e.callbackFailed("OnOrderFilled", (*e.callbacks.OnOrderFilled)(trade))
	}
}
