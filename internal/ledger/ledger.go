// Package ledger tracks an engine's holdings and PnL as a small state machine.
//
// Single-asset ledgers move FLAT -> LONG/SHORT -> FLAT. Pair ledgers are always HOLDING one asset
// and move between the two sides of the pair; the side they rotated away from is remembered as the
// origin so the round trip back to it can be realized.
package ledger

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindSingleAsset Kind = "single_asset"
	KindPair        Kind = "pair"
)

// dustValue is the quote value under which a pair balance is ignored on sync.
var dustValue = decimal.RequireFromString("0.000001")

// Effect is what applying a fill did to the ledger.
type Effect struct {
	Fee         decimal.Decimal
	RealizedPnL decimal.Decimal
	// RoundTrip is true when the fill closed a position.
	RoundTrip bool
}

// Ledger is safe for concurrent use. Mutations validate before writing, so a rejected
// transition leaves the ledger untouched.
type Ledger struct {
	mu    sync.RWMutex
	kind  Kind
	base  string
	other string
	quote string
	fees  CommissionFee
	pos   types.Position
	stats *StatsAccumulator
}

// NewSingleAssetLedger creates a FLAT ledger trading base against quote.
func NewSingleAssetLedger(base, quote string, fees CommissionFee) *Ledger {
	l := &Ledger{
		mu:    sync.RWMutex{},
		kind:  KindSingleAsset,
		base:  base,
		other: "",
		quote: quote,
		fees:  fees,
		pos:   types.Position{}, //nolint:exhaustruct // set by reset
		stats: NewStatsAccumulator(),
	}
	l.reset()

	return l
}

// NewPairLedger creates a ledger holding assetA with zero quantity until a sync or trade.
func NewPairLedger(assetA, assetB, quote string, fees CommissionFee) *Ledger {
	l := &Ledger{
		mu:    sync.RWMutex{},
		kind:  KindPair,
		base:  assetA,
		other: assetB,
		quote: quote,
		fees:  fees,
		pos:   types.Position{}, //nolint:exhaustruct // set by reset
		stats: NewStatsAccumulator(),
	}
	l.reset()

	return l
}

func (l *Ledger) reset() {
	l.pos = types.Position{
		State:       types.PositionStateFlat,
		HeldAsset:   "",
		HeldQty:     decimal.Zero,
		EntryPrice:  decimal.Zero,
		OriginAsset: "",
		OriginQty:   decimal.Zero,
		EntryFees:   decimal.Zero,
		EntryTime:   time.Time{},
		PeakPrice:   decimal.Zero,
		RealizedPnL: decimal.Zero,
		TotalFees:   decimal.Zero,
		LastTradeAt: time.Time{},
		LastExitAt:  time.Time{},
		TradeCount:  0,
	}

	if l.kind == KindPair {
		l.pos.State = types.PositionStateHolding
		l.pos.HeldAsset = l.base
	}
}

// Kind returns whether this is a single-asset or pair ledger.
func (l *Ledger) Kind() Kind {
	return l.kind
}

// Assets returns the traded assets and the quote asset.
func (l *Ledger) Assets() (base, other, quote string) {
	return l.base, l.other, l.quote
}

// Snapshot returns a copy of the current position.
func (l *Ledger) Snapshot() types.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.pos
}

// Stats returns the trade statistics accumulated so far.
func (l *Ledger) Stats() types.TradeStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.stats.Build()
}

// Reset returns the ledger to its initial state, clearing realized PnL. Operator action only.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reset()
	l.stats = NewStatsAccumulator()
}

// Restore replaces the position, e.g. from a state file.
func (l *Ledger) Restore(pos types.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pos = pos
}

// netQty removes a fee charged in the received asset from the executed quantity.
func netQty(fill types.Fill, asset string, fee decimal.Decimal) decimal.Decimal {
	qty := fill.ExecutedQty
	price := fill.AveragePrice()

	if fill.FeeAsset == asset && fee.IsPositive() && price.IsPositive() {
		qty = qty.Sub(fee.Div(price))
	}

	if qty.IsNegative() {
		return decimal.Zero
	}

	return qty
}

// Enter opens a LONG or SHORT position from a fill.
func (l *Ledger) Enter(fill types.Fill, side types.PositionState, manual bool) (Effect, error) {
	if l.kind != KindSingleAsset {
		return Effect{}, errors.New(errors.ErrCodeInvalidTransition, "enter is only valid on a single-asset ledger")
	}

	if side != types.PositionStateLong && side != types.PositionStateShort {
		return Effect{}, errors.Newf(errors.ErrCodeInvalidTransition, "cannot enter %s", side)
	}

	if fill.IsEmpty() {
		return Effect{}, errors.New(errors.ErrCodeInvalidParameter, "cannot enter from an empty fill")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pos.State != types.PositionStateFlat {
		return Effect{}, errors.Newf(errors.ErrCodeInvalidTransition, "cannot enter while %s", l.pos.State)
	}

	fee := l.fees.Calculate(fill)
	price := fill.AveragePrice()

	qty := fill.ExecutedQty
	if side == types.PositionStateLong {
		qty = netQty(fill, l.base, fee)
	}

	l.pos.State = side
	l.pos.HeldAsset = l.base
	l.pos.HeldQty = qty
	l.pos.EntryPrice = price
	l.pos.EntryFees = fee
	l.pos.EntryTime = fill.ExecutedAt
	l.pos.PeakPrice = price
	l.pos.TotalFees = l.pos.TotalFees.Add(fee)
	l.pos.LastTradeAt = fill.ExecutedAt
	l.pos.TradeCount++

	effect := Effect{Fee: fee, RealizedPnL: decimal.Zero, RoundTrip: false}
	l.stats.Record(effect, manual)

	return effect, nil
}

// Exit closes (or partially closes) the open position from a fill.
// When closeRemainder is true any quantity left after the fill is written off as dust.
func (l *Ledger) Exit(fill types.Fill, closeRemainder bool, manual bool) (Effect, error) {
	if l.kind != KindSingleAsset {
		return Effect{}, errors.New(errors.ErrCodeInvalidTransition, "exit is only valid on a single-asset ledger")
	}

	if fill.IsEmpty() {
		return Effect{}, errors.New(errors.ErrCodeInvalidParameter, "cannot exit from an empty fill")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pos.State != types.PositionStateLong && l.pos.State != types.PositionStateShort {
		return Effect{}, errors.Newf(errors.ErrCodeInvalidTransition, "cannot exit while %s", l.pos.State)
	}

	fee := l.fees.Calculate(fill)
	exitPrice := fill.AveragePrice()
	qty := decimal.Min(fill.ExecutedQty, l.pos.HeldQty)

	move := exitPrice.Sub(l.pos.EntryPrice)
	if l.pos.State == types.PositionStateShort {
		move = move.Neg()
	}

	// Entry fees are released pro rata to the quantity closed.
	entryFeeShare := l.pos.EntryFees
	if l.pos.HeldQty.IsPositive() && qty.LessThan(l.pos.HeldQty) {
		entryFeeShare = l.pos.EntryFees.Mul(qty).Div(l.pos.HeldQty)
	}

	pnl := move.Mul(qty).Sub(fee).Sub(entryFeeShare)
	remaining := l.pos.HeldQty.Sub(qty)

	l.pos.RealizedPnL = l.pos.RealizedPnL.Add(pnl)
	l.pos.TotalFees = l.pos.TotalFees.Add(fee)
	l.pos.LastTradeAt = fill.ExecutedAt
	l.pos.TradeCount++

	roundTrip := closeRemainder || !remaining.IsPositive()
	if roundTrip {
		l.pos.State = types.PositionStateFlat
		l.pos.HeldQty = decimal.Zero
		l.pos.EntryPrice = decimal.Zero
		l.pos.EntryFees = decimal.Zero
		l.pos.EntryTime = time.Time{}
		l.pos.PeakPrice = decimal.Zero
		l.pos.LastExitAt = fill.ExecutedAt
	} else {
		l.pos.HeldQty = remaining
		l.pos.EntryFees = l.pos.EntryFees.Sub(entryFeeShare)
	}

	effect := Effect{Fee: fee, RealizedPnL: pnl, RoundTrip: roundTrip}
	l.stats.Record(effect, manual)

	return effect, nil
}

// WriteOff closes a single-asset position that is too small to sell. The held quantity is marked
// at price, the move is realized without a fee and the ledger goes FLAT.
func (l *Ledger) WriteOff(price decimal.Decimal, at time.Time, manual bool) (Effect, error) {
	if l.kind != KindSingleAsset {
		return Effect{}, errors.New(errors.ErrCodeInvalidTransition, "write-off is only valid on a single-asset ledger")
	}

	if !price.IsPositive() {
		return Effect{}, errors.Newf(errors.ErrCodeInvalidParameter, "write-off price must be positive, got %s", price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pos.State != types.PositionStateLong && l.pos.State != types.PositionStateShort {
		return Effect{}, errors.Newf(errors.ErrCodeInvalidTransition, "cannot write off while %s", l.pos.State)
	}

	move := price.Sub(l.pos.EntryPrice)
	if l.pos.State == types.PositionStateShort {
		move = move.Neg()
	}

	pnl := move.Mul(l.pos.HeldQty).Sub(l.pos.EntryFees)

	l.pos.RealizedPnL = l.pos.RealizedPnL.Add(pnl)
	l.pos.LastTradeAt = at
	l.pos.TradeCount++
	l.pos.State = types.PositionStateFlat
	l.pos.HeldQty = decimal.Zero
	l.pos.EntryPrice = decimal.Zero
	l.pos.EntryFees = decimal.Zero
	l.pos.EntryTime = time.Time{}
	l.pos.PeakPrice = decimal.Zero
	l.pos.LastExitAt = at

	effect := Effect{Fee: decimal.Zero, RealizedPnL: pnl, RoundTrip: true}
	l.stats.Record(effect, manual)

	return effect, nil
}

// Rotate moves a pair holding from one asset to another. sell may be empty when the
// holding was the quote asset. Rotating into the origin asset realizes the round trip.
func (l *Ledger) Rotate(from, to string, sell, buy types.Fill, manual bool) (Effect, error) {
	if l.kind != KindPair {
		return Effect{}, errors.New(errors.ErrCodeInvalidTransition, "rotate is only valid on a pair ledger")
	}

	if to != l.base && to != l.other {
		return Effect{}, errors.Newf(errors.ErrCodeInvalidTransition, "cannot rotate into %s, pair is %s/%s", to, l.base, l.other)
	}

	if buy.IsEmpty() {
		return Effect{}, errors.New(errors.ErrCodeInvalidParameter, "cannot rotate from an empty buy fill")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pos.HeldAsset != from {
		return Effect{}, errors.Newf(errors.ErrCodeInvalidTransition, "cannot rotate from %s while holding %s", from, l.pos.HeldAsset)
	}

	if from == to {
		return Effect{}, errors.Newf(errors.ErrCodeInvalidTransition, "already holding %s", to)
	}

	sellFee := decimal.Zero
	if !sell.IsEmpty() {
		sellFee = l.fees.Calculate(sell)
	}

	buyFee := l.fees.Calculate(buy)
	fee := sellFee.Add(buyFee)
	newQty := netQty(buy, to, buyFee)

	// The buy leg is sized from sell proceeds net of the sell fee, and a buy fee charged in the
	// received asset is netted out of newQty. Only a buy fee paid elsewhere is outside the quantities.
	outsideFee := buyFee
	if buy.FeeAsset == to {
		outsideFee = decimal.Zero
	}

	effect := Effect{Fee: fee, RealizedPnL: decimal.Zero, RoundTrip: false}

	switch {
	case from == l.quote:
		l.pos.OriginAsset = ""
		l.pos.OriginQty = decimal.Zero
		l.pos.EntryFees = decimal.Zero
		l.pos.EntryPrice = decimal.Zero
		l.pos.EntryTime = buy.ExecutedAt
	case l.pos.OriginAsset == to:
		// Back at the origin: the gain is the extra origin units, valued at the buy price.
		pnl := newQty.Sub(l.pos.OriginQty).Mul(buy.AveragePrice()).Sub(l.pos.EntryFees).Sub(outsideFee)
		l.pos.RealizedPnL = l.pos.RealizedPnL.Add(pnl)
		l.pos.OriginAsset = ""
		l.pos.OriginQty = decimal.Zero
		l.pos.EntryFees = decimal.Zero
		l.pos.EntryPrice = decimal.Zero
		l.pos.EntryTime = time.Time{}
		l.pos.LastExitAt = buy.ExecutedAt
		effect.RealizedPnL = pnl
		effect.RoundTrip = true
	default:
		l.pos.OriginAsset = from
		l.pos.OriginQty = sell.ExecutedQty
		l.pos.EntryFees = outsideFee
		l.pos.EntryTime = buy.ExecutedAt

		if buy.AveragePrice().IsPositive() {
			l.pos.EntryPrice = sell.AveragePrice().Div(buy.AveragePrice())
		}
	}

	l.pos.State = types.PositionStateHolding
	l.pos.HeldAsset = to
	l.pos.HeldQty = newQty
	l.pos.TotalFees = l.pos.TotalFees.Add(fee)
	l.pos.LastTradeAt = buy.ExecutedAt
	l.pos.TradeCount++

	l.stats.Record(effect, manual)

	return effect, nil
}

// ObservePrice updates the highest price seen since entry while LONG.
func (l *Ledger) ObservePrice(price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pos.State != types.PositionStateLong {
		return
	}

	p := decimal.NewFromFloat(price)
	if p.GreaterThan(l.pos.PeakPrice) {
		l.pos.PeakPrice = p
	}
}

// Unrealized derives unrealized PnL from asset prices in quote terms. It is never stored.
func (l *Ledger) Unrealized(assetPrices map[string]float64) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return UnrealizedPnL(l.pos, assetPrices)
}

// UnrealizedPnL computes unrealized PnL for a position snapshot.
func UnrealizedPnL(pos types.Position, assetPrices map[string]float64) decimal.Decimal {
	switch pos.State {
	case types.PositionStateLong:
		price, ok := assetPrices[pos.HeldAsset]
		if !ok {
			return decimal.Zero
		}

		return decimal.NewFromFloat(price).Sub(pos.EntryPrice).Mul(pos.HeldQty)
	case types.PositionStateShort:
		price, ok := assetPrices[pos.HeldAsset]
		if !ok {
			return decimal.Zero
		}

		return pos.EntryPrice.Sub(decimal.NewFromFloat(price)).Mul(pos.HeldQty)
	case types.PositionStateHolding:
		if !pos.IsRotated() {
			return decimal.Zero
		}

		held, okHeld := assetPrices[pos.HeldAsset]
		origin, okOrigin := assetPrices[pos.OriginAsset]

		if !okHeld || !okOrigin {
			return decimal.Zero
		}

		return pos.HeldQty.Mul(decimal.NewFromFloat(held)).Sub(pos.OriginQty.Mul(decimal.NewFromFloat(origin)))
	default:
		return decimal.Zero
	}
}

// SyncInput is the authoritative account view used to reconcile the ledger.
type SyncInput struct {
	Balances map[string]types.Balance
	// AssetPrices are quote prices per asset; the quote asset itself is valued at 1.
	AssetPrices map[string]float64
	// MinNotional marks single-asset balances below it as dust.
	MinNotional decimal.Decimal
	Now         time.Time
}

// Sync overwrites held asset and quantity from exchange balances. Realized PnL is never changed
// and calling it twice with the same input yields the same position.
func (l *Ledger) Sync(in SyncInput) types.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.kind == KindSingleAsset {
		l.syncSingle(in)
	} else {
		l.syncPair(in)
	}

	return l.pos
}

func (l *Ledger) syncSingle(in SyncInput) {
	qty := in.Balances[l.base].Total()
	price := decimal.NewFromFloat(in.AssetPrices[l.base])
	value := qty.Mul(price)

	isPosition := qty.IsPositive() && value.IsPositive() && !value.LessThan(in.MinNotional)
	if !isPosition {
		if l.pos.State != types.PositionStateFlat {
			l.pos.LastExitAt = in.Now
		}

		l.pos.State = types.PositionStateFlat
		l.pos.HeldAsset = ""
		l.pos.HeldQty = decimal.Zero
		l.pos.EntryPrice = decimal.Zero
		l.pos.EntryFees = decimal.Zero
		l.pos.EntryTime = time.Time{}
		l.pos.PeakPrice = decimal.Zero

		return
	}

	if l.pos.State != types.PositionStateLong {
		l.pos.State = types.PositionStateLong
		l.pos.EntryPrice = price
		l.pos.EntryFees = decimal.Zero
		l.pos.EntryTime = in.Now
		l.pos.PeakPrice = price
	}

	if !l.pos.EntryPrice.IsPositive() {
		l.pos.EntryPrice = price
	}

	l.pos.HeldAsset = l.base
	l.pos.HeldQty = qty
}

func (l *Ledger) syncPair(in SyncInput) {
	valueOf := func(asset string) (decimal.Decimal, decimal.Decimal) {
		qty := in.Balances[asset].Total()
		if asset == l.quote {
			return qty, qty
		}

		return qty, qty.Mul(decimal.NewFromFloat(in.AssetPrices[asset]))
	}

	best := l.quote
	bestQty, bestValue := valueOf(l.quote)

	// Deterministic order keeps repeated syncs identical on ties.
	for _, asset := range []string{l.base, l.other} {
		qty, value := valueOf(asset)
		if value.GreaterThan(bestValue) {
			best, bestQty, bestValue = asset, qty, value
		}
	}

	if !bestValue.GreaterThan(dustValue) {
		best, bestQty = l.quote, in.Balances[l.quote].Total()
	}

	if best == l.quote || best == l.pos.OriginAsset {
		l.pos.OriginAsset = ""
		l.pos.OriginQty = decimal.Zero
		l.pos.EntryFees = decimal.Zero
		l.pos.EntryPrice = decimal.Zero
	}

	l.pos.State = types.PositionStateHolding
	l.pos.HeldAsset = best
	l.pos.HeldQty = bestQty
}
