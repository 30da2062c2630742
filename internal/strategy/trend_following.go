package strategy

import (
	"maps"
	"math"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/indicator"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// TrendInput is everything the trend evaluator reads.
type TrendInput struct {
	Price    float64
	Fast     float64
	Slow     float64
	PrevFast float64
	PrevSlow float64
	// HasPrev is false until two samples have been seen.
	HasPrev bool
	ATR     float64
	Ready   bool
}

func (in TrendInput) crossedUp() bool {
	return in.HasPrev && in.PrevFast <= in.PrevSlow && in.Fast > in.Slow
}

func (in TrendInput) crossedDown() bool {
	return in.HasPrev && in.PrevFast >= in.PrevSlow && in.Fast < in.Slow
}

// EvaluateTrend enters on a fast/slow EMA cross up and exits on a trailing ATR stop or a cross down.
func EvaluateTrend(cfg TrendConfig, in TrendInput, pos types.Position, now time.Time) types.Decision {
	stats := map[string]float64{
		types.StatFastEMA: in.Fast,
		types.StatSlowEMA: in.Slow,
		types.StatATR:     in.ATR,
	}

	decide := func(action types.DecisionAction, reason types.SignalReason) types.Decision {
		d := types.NewHoldDecision(types.StrategyTrendFollowing, action, reason, now, stats)
		d.Symbol = cfg.Symbol
		d.Price = in.Price

		return d
	}

	if !in.Ready {
		return decide(types.ActionNone, types.ReasonInsufficientData)
	}

	if pos.State == types.PositionStateLong {
		peak := math.Max(pos.PeakPrice.InexactFloat64(), in.Price)
		stop := peak - cfg.ATRStopMult*in.ATR
		stats[types.StatStop] = stop

		if in.ATR > 0 && in.Price < stop {
			return decide(types.ActionExit, types.ReasonTrailingStop)
		}

		if in.crossedDown() {
			return decide(types.ActionExit, types.ReasonEMACrossDown)
		}

		return decide(types.ActionHold, types.ReasonNoSignal)
	}

	if pos.State != types.PositionStateFlat {
		return decide(types.ActionHold, types.ReasonNoSignal)
	}

	if pos.InCooldown(now, cfg.Cooldown()) {
		return decide(types.ActionHold, types.ReasonCooldown)
	}

	if in.crossedUp() {
		return decide(types.ActionEnterLong, types.ReasonEMACrossUp)
	}

	return decide(types.ActionHold, types.ReasonNoSignal)
}

// TrendFollowing streams prices through two EMAs and an ATR window.
type TrendFollowing struct {
	cfg        TrendConfig
	fast       *indicator.EMA
	slow       *indicator.EMA
	atr        *indicator.RollingWindow
	prevFast   float64
	prevSlow   float64
	hasPrev    bool
	indicators map[string]float64
}

func NewTrendFollowing(cfg TrendConfig) (*TrendFollowing, error) {
	fast, err := indicator.NewEMA(cfg.FastPeriod)
	if err != nil {
		return nil, err
	}

	slow, err := indicator.NewEMA(cfg.SlowPeriod)
	if err != nil {
		return nil, err
	}

	atr, err := indicator.NewRollingWindow(cfg.ATRPeriod + 1)
	if err != nil {
		return nil, err
	}

	return &TrendFollowing{
		cfg:        cfg,
		fast:       fast,
		slow:       slow,
		atr:        atr,
		prevFast:   0,
		prevSlow:   0,
		hasPrev:    false,
		indicators: map[string]float64{},
	}, nil
}

func (t *TrendFollowing) Name() types.StrategyName {
	return types.StrategyTrendFollowing
}

func (t *TrendFollowing) Symbols() []string {
	return []string{t.cfg.Symbol}
}

func (t *TrendFollowing) SetConfig(cfg Config) error {
	c, ok := cfg.(TrendConfig)
	if !ok {
		return errors.Newf(errors.ErrCodeConfigInvalid, "expected trend following config, got %s", cfg.StrategyName())
	}

	t.cfg = c

	return nil
}

func (t *TrendFollowing) push(price float64) {
	if t.fast.Count() > 0 {
		t.prevFast = t.fast.Value()
		t.prevSlow = t.slow.Value()
		t.hasPrev = true
	}

	t.fast.Update(price)
	t.slow.Update(price)
	t.atr.Push(price)

	t.indicators = map[string]float64{
		types.StatFastEMA: t.fast.Value(),
		types.StatSlowEMA: t.slow.Value(),
		types.StatATR:     t.atr.ATR(),
	}
}

func (t *TrendFollowing) ready() bool {
	return t.slow.Ready() && t.atr.IsFull()
}

func (t *TrendFollowing) Observe(prices map[string]float64, now time.Time) (Observation, error) {
	price, err := priceOf(prices, t.cfg.Symbol)
	if err != nil {
		return Observation{}, err
	}

	t.push(price)

	return Observation{
		Time:    now,
		Prices:  map[string]float64{t.cfg.Symbol: price},
		Sample:  price,
		Raw:     price,
		Outlier: false,
	}, nil
}

func (t *TrendFollowing) Evaluate(obs Observation, pos types.Position, now time.Time) types.Decision {
	return EvaluateTrend(t.cfg, TrendInput{
		Price:    obs.Sample,
		Fast:     t.fast.Value(),
		Slow:     t.slow.Value(),
		PrevFast: t.prevFast,
		PrevSlow: t.prevSlow,
		HasPrev:  t.hasPrev,
		ATR:      t.atr.ATR(),
		Ready:    t.ready(),
	}, pos, now)
}

func (t *TrendFollowing) Acknowledge(types.Decision) {}

func (t *TrendFollowing) Indicators() map[string]float64 {
	return maps.Clone(t.indicators)
}

func (t *TrendFollowing) Clone() Strategy {
	return &TrendFollowing{
		cfg:        t.cfg,
		fast:       t.fast.Clone(),
		slow:       t.slow.Clone(),
		atr:        t.atr.Clone(),
		prevFast:   t.prevFast,
		prevSlow:   t.prevSlow,
		hasPrev:    t.hasPrev,
		indicators: maps.Clone(t.indicators),
	}
}

func (t *TrendFollowing) Warmup(history map[string][]float64) {
	for _, p := range history[t.cfg.Symbol] {
		if p > 0 {
			t.push(p)
		}
	}
}

func (t *TrendFollowing) WarmupSize() int {
	return max(t.cfg.SlowPeriod, t.cfg.ATRPeriod+1)
}

var _ Strategy = (*TrendFollowing)(nil)
