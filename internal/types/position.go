package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type PositionState string

const (
	PositionStateFlat  PositionState = "FLAT"
	PositionStateLong  PositionState = "LONG"
	PositionStateShort PositionState = "SHORT"
	// PositionStateHolding is used by pair engines, which are always invested in one asset.
	PositionStateHolding PositionState = "HOLDING"
)

// Position is a point-in-time copy of a ledger.
type Position struct {
	State     PositionState   `yaml:"state" json:"state"`
	HeldAsset string          `yaml:"held_asset" json:"held_asset"`
	HeldQty   decimal.Decimal `yaml:"held_qty" json:"held_qty"`
	// EntryPrice is only meaningful while HeldQty > 0 on a single-asset engine.
	EntryPrice decimal.Decimal `yaml:"entry_price" json:"entry_price"`
	// OriginAsset is set while a pair engine is rotated away from the asset it started from.
	OriginAsset string          `yaml:"origin_asset,omitempty" json:"origin_asset,omitempty"`
	OriginQty   decimal.Decimal `yaml:"origin_qty" json:"origin_qty"`
	EntryFees   decimal.Decimal `yaml:"entry_fees" json:"entry_fees"`
	EntryTime   time.Time       `yaml:"entry_time" json:"entry_time"`
	// PeakPrice is the highest price seen since entry; reset on every entry.
	PeakPrice   decimal.Decimal `yaml:"peak_price" json:"peak_price"`
	RealizedPnL decimal.Decimal `yaml:"realized_pnl" json:"realized_pnl"`
	TotalFees   decimal.Decimal `yaml:"total_fees" json:"total_fees"`
	LastTradeAt time.Time       `yaml:"last_trade_at" json:"last_trade_at"`
	LastExitAt  time.Time       `yaml:"last_exit_at" json:"last_exit_at"`
	TradeCount  int             `yaml:"trade_count" json:"trade_count"`
}

// IsOpen reports whether the position carries exposure that can be exited.
func (p Position) IsOpen() bool {
	switch p.State {
	case PositionStateLong, PositionStateShort:
		return p.HeldQty.IsPositive()
	case PositionStateHolding:
		return p.IsRotated()
	default:
		return false
	}
}

// IsRotated reports whether a pair position sits away from its origin asset.
func (p Position) IsRotated() bool {
	return p.State == PositionStateHolding && p.OriginAsset != "" && p.OriginAsset != p.HeldAsset
}

// InCooldown reports whether now is within cooldown of the last exit.
func (p Position) InCooldown(now time.Time, cooldown time.Duration) bool {
	if cooldown <= 0 || p.LastExitAt.IsZero() {
		return false
	}

	return now.Sub(p.LastExitAt) < cooldown
}
