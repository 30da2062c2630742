package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

type StrategyName string

const (
	StrategyMeanReversion  StrategyName = "mean_reversion"
	StrategyBollinger      StrategyName = "bollinger"
	StrategyTrendFollowing StrategyName = "trend_following"
)

type DecisionAction string

const (
	// ActionEnterLong opens a long position in the engine's symbol.
	ActionEnterLong DecisionAction = "enter_long"
	// ActionEnterShort opens a short position. Spot venues never emit it.
	ActionEnterShort DecisionAction = "enter_short"
	// ActionRotate moves the whole pair holding from FromAsset to ToAsset.
	ActionRotate DecisionAction = "rotate"
	// ActionExit closes the open position (or rotates a pair back to its origin asset).
	ActionExit DecisionAction = "exit"
	// ActionHold means the window was evaluated and no rule fired.
	ActionHold DecisionAction = "hold"
	// ActionNone means there was not enough data to evaluate.
	ActionNone DecisionAction = "none"
)

type SignalReason string

const (
	ReasonInsufficientData SignalReason = "insufficient_data"
	ReasonStdZero          SignalReason = "std_zero"
	ReasonNoSignal         SignalReason = "no_signal"
	ReasonOutlier          SignalReason = "outlier"
	ReasonNotInPair        SignalReason = "not_in_pair"
	ReasonCooldown         SignalReason = "cooldown"
	ReasonZScoreEntry      SignalReason = "z_score_entry"
	ReasonZScoreExit       SignalReason = "z_score_exit"
	ReasonRatioThreshold   SignalReason = "ratio_threshold"
	ReasonLowerBand        SignalReason = "lower_band"
	ReasonBandExit         SignalReason = "band_exit"
	ReasonStopLoss         SignalReason = "stop_loss"
	ReasonTakeProfit       SignalReason = "take_profit"
	ReasonEMACrossUp       SignalReason = "ema_cross_up"
	ReasonEMACrossDown     SignalReason = "ema_cross_down"
	ReasonTrailingStop     SignalReason = "trailing_stop"
	ReasonManual           SignalReason = "manual"
)

// Statistic keys shared by decisions, status and history.
const (
	StatRatio     = "ratio"
	StatMean      = "mean"
	StatStdDev    = "stddev"
	StatZScore    = "z"
	StatUpperBand = "upper"
	StatLowerBand = "lower"
	StatFastEMA   = "ema_fast"
	StatSlowEMA   = "ema_slow"
	StatATR       = "atr"
	StatStop      = "stop"
)

// Decision is the transient output of one evaluation.
type Decision struct {
	Time     time.Time      `yaml:"time" json:"time"`
	Strategy StrategyName   `yaml:"strategy" json:"strategy"`
	Action   DecisionAction `yaml:"action" json:"action"`
	Reason   SignalReason   `yaml:"reason" json:"reason"`
	// Symbol is the traded symbol for single-asset strategies.
	Symbol string `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	// FromAsset and ToAsset describe a pair rotation.
	FromAsset string `yaml:"from_asset,omitempty" json:"from_asset,omitempty"`
	ToAsset   string `yaml:"to_asset,omitempty" json:"to_asset,omitempty"`
	// Price is the reference value the rule fired on (price, or ratio for pairs).
	Price      float64            `yaml:"price" json:"price"`
	Statistics map[string]float64 `yaml:"statistics" json:"statistics"`
	// Quantity is the proposed order size, filled in by sizing when known.
	Quantity optional.Option[decimal.Decimal] `yaml:"quantity" json:"quantity"`
}

// IsTrade reports whether the decision asks for an order.
func (d Decision) IsTrade() bool {
	switch d.Action {
	case ActionEnterLong, ActionEnterShort, ActionRotate, ActionExit:
		return true
	default:
		return false
	}
}

// IsEntry reports whether the decision opens new exposure.
func (d Decision) IsEntry() bool {
	return d.Action == ActionEnterLong || d.Action == ActionEnterShort || d.Action == ActionRotate
}

// Stat returns a named statistic, or 0 when absent.
func (d Decision) Stat(name string) float64 {
	if d.Statistics == nil {
		return 0
	}

	return d.Statistics[name]
}

// NewHoldDecision builds a non-trading decision.
func NewHoldDecision(strategy StrategyName, action DecisionAction, reason SignalReason, now time.Time, stats map[string]float64) Decision {
	return Decision{
		Time:       now,
		Strategy:   strategy,
		Action:     action,
		Reason:     reason,
		Symbol:     "",
		FromAsset:  "",
		ToAsset:    "",
		Price:      0,
		Statistics: stats,
		Quantity:   optional.None[decimal.Decimal](),
	}
}
