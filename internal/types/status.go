package types

import (
	"time"
)

// EngineState is the lifecycle state of an engine loop.
type EngineState string

const (
	EngineStateStopped EngineState = "STOPPED"
	EngineStateRunning EngineState = "RUNNING"
)

// EngineStatus is what the HTTP layer shows for one engine.
// Unrealized PnL is computed from the latest prices at the moment the status is built.
type EngineStatus struct {
	Engine        StrategyName       `yaml:"engine" json:"engine"`
	State         EngineState        `yaml:"state" json:"state"`
	Enabled       bool               `yaml:"enabled" json:"enabled"`
	Environment   string             `yaml:"environment" json:"environment"`
	Prices        map[string]float64 `yaml:"prices" json:"prices"`
	Indicators    map[string]float64 `yaml:"indicators" json:"indicators"`
	Position      Position           `yaml:"position" json:"position"`
	RealizedPnL   float64            `yaml:"realized_pnl" json:"realized_pnl"`
	UnrealizedPnL float64            `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	LastDecision  *Decision          `yaml:"last_decision,omitempty" json:"last_decision,omitempty"`
	LastTickAt    time.Time          `yaml:"last_tick_at" json:"last_tick_at"`
	LastError     string             `yaml:"last_error,omitempty" json:"last_error,omitempty"`
	NeedsSync     bool               `yaml:"needs_sync" json:"needs_sync"`
}

// TradeStats summarises completed round trips.
type TradeStats struct {
	TotalTrades int     `yaml:"total_trades" json:"total_trades"`
	RoundTrips  int     `yaml:"round_trips" json:"round_trips"`
	Wins        int     `yaml:"wins" json:"wins"`
	Losses      int     `yaml:"losses" json:"losses"`
	WinRate     float64 `yaml:"win_rate" json:"win_rate"`
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl"`
	TotalFees   float64 `yaml:"total_fees" json:"total_fees"`
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	PeakPnL     float64 `yaml:"peak_pnl" json:"peak_pnl"`
	ManualTrade int     `yaml:"manual_trades" json:"manual_trades"`
}
