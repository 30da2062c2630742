package types

import (
	"time"
)

// Snapshot is one tick record kept for display and later analysis.
type Snapshot struct {
	ID            string             `yaml:"id" json:"id"`
	Engine        StrategyName       `yaml:"engine" json:"engine"`
	Time          time.Time          `yaml:"time" json:"time"`
	Prices        map[string]float64 `yaml:"prices" json:"prices"`
	Indicators    map[string]float64 `yaml:"indicators" json:"indicators"`
	Action        DecisionAction     `yaml:"action" json:"action"`
	Reason        SignalReason       `yaml:"reason" json:"reason"`
	Executed      bool               `yaml:"executed" json:"executed"`
	Rejection     string             `yaml:"rejection,omitempty" json:"rejection,omitempty"`
	State         PositionState      `yaml:"state" json:"state"`
	HeldAsset     string             `yaml:"held_asset" json:"held_asset"`
	RealizedPnL   float64            `yaml:"realized_pnl" json:"realized_pnl"`
	UnrealizedPnL float64            `yaml:"unrealized_pnl" json:"unrealized_pnl"`
}

// TradeRecord is an executed order leg together with the ledger effect it had.
type TradeRecord struct {
	ID          string       `yaml:"id" json:"id"`
	Engine      StrategyName `yaml:"engine" json:"engine"`
	OrderID     string       `yaml:"order_id" json:"order_id"`
	Time        time.Time    `yaml:"time" json:"time"`
	Symbol      string       `yaml:"symbol" json:"symbol"`
	Side        PurchaseType `yaml:"side" json:"side"`
	Quantity    float64      `yaml:"quantity" json:"quantity"`
	Price       float64      `yaml:"price" json:"price"`
	QuoteQty    float64      `yaml:"quote_qty" json:"quote_qty"`
	Fee         float64      `yaml:"fee" json:"fee"`
	RealizedPnL float64      `yaml:"realized_pnl" json:"realized_pnl"`
	Reason      SignalReason `yaml:"reason" json:"reason"`
	Manual      bool         `yaml:"manual" json:"manual"`
}
