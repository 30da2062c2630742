package strategy

import (
	"maps"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/indicator"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// EvaluateBollinger buys below the lower band and sells back above the mean, or above the upper band
// when the exit trigger is "upper", with a hard stop-loss and take-profit around the entry price.
func EvaluateBollinger(cfg BollingerConfig, price float64, window indicator.Stats, pos types.Position, now time.Time) types.Decision {
	stats := map[string]float64{
		types.StatMean:   window.Mean(),
		types.StatStdDev: window.StdDev(),
	}

	decide := func(action types.DecisionAction, reason types.SignalReason) types.Decision {
		d := types.NewHoldDecision(types.StrategyBollinger, action, reason, now, stats)
		d.Symbol = cfg.Symbol
		d.Price = price

		return d
	}

	long := pos.State == types.PositionStateLong

	// Stops run before the window guard so a restart with an empty window still protects the position.
	if long && pos.EntryPrice.IsPositive() {
		entry := pos.EntryPrice.InexactFloat64()

		if cfg.StopLossPct > 0 && price <= entry*(1-cfg.StopLossPct) {
			return decide(types.ActionExit, types.ReasonStopLoss)
		}

		if cfg.TakeProfitPct > 0 && price >= entry*(1+cfg.TakeProfitPct) {
			return decide(types.ActionExit, types.ReasonTakeProfit)
		}
	}

	if !window.IsFull() {
		return decide(types.ActionNone, types.ReasonInsufficientData)
	}

	if window.StdDev() == 0 {
		return decide(types.ActionHold, types.ReasonStdZero)
	}

	bands := indicator.BollingerBands(window, cfg.NumStd)
	stats[types.StatUpperBand] = bands.Upper
	stats[types.StatLowerBand] = bands.Lower

	if long {
		exitAbove := bands.Middle
		if cfg.ExitTrigger == ExitTriggerUpper {
			exitAbove = bands.Upper
		}

		if price > exitAbove {
			return decide(types.ActionExit, types.ReasonBandExit)
		}

		return decide(types.ActionHold, types.ReasonNoSignal)
	}

	if pos.State != types.PositionStateFlat {
		return decide(types.ActionHold, types.ReasonNoSignal)
	}

	if pos.InCooldown(now, cfg.Cooldown()) {
		return decide(types.ActionHold, types.ReasonCooldown)
	}

	if price < bands.Lower {
		return decide(types.ActionEnterLong, types.ReasonLowerBand)
	}

	return decide(types.ActionHold, types.ReasonNoSignal)
}

// Bollinger keeps a price window for one symbol.
type Bollinger struct {
	cfg        BollingerConfig
	window     *indicator.RollingWindow
	indicators map[string]float64
}

func NewBollinger(cfg BollingerConfig) (*Bollinger, error) {
	window, err := indicator.NewRollingWindow(cfg.WindowSize)
	if err != nil {
		return nil, err
	}

	return &Bollinger{
		cfg:        cfg,
		window:     window,
		indicators: map[string]float64{},
	}, nil
}

func (b *Bollinger) Name() types.StrategyName {
	return types.StrategyBollinger
}

func (b *Bollinger) Symbols() []string {
	return []string{b.cfg.Symbol}
}

func (b *Bollinger) SetConfig(cfg Config) error {
	c, ok := cfg.(BollingerConfig)
	if !ok {
		return errors.Newf(errors.ErrCodeConfigInvalid, "expected bollinger config, got %s", cfg.StrategyName())
	}

	b.cfg = c

	return nil
}

func (b *Bollinger) Observe(prices map[string]float64, now time.Time) (Observation, error) {
	price, err := priceOf(prices, b.cfg.Symbol)
	if err != nil {
		return Observation{}, err
	}

	b.window.Push(price)
	b.indicators = indicator.BollingerBands(b.window, b.cfg.NumStd).RawValue()

	return Observation{
		Time:    now,
		Prices:  map[string]float64{b.cfg.Symbol: price},
		Sample:  price,
		Raw:     price,
		Outlier: false,
	}, nil
}

func (b *Bollinger) Evaluate(obs Observation, pos types.Position, now time.Time) types.Decision {
	return EvaluateBollinger(b.cfg, obs.Sample, b.window, pos, now)
}

func (b *Bollinger) Acknowledge(types.Decision) {}

func (b *Bollinger) Indicators() map[string]float64 {
	return maps.Clone(b.indicators)
}

func (b *Bollinger) Clone() Strategy {
	return &Bollinger{
		cfg:        b.cfg,
		window:     b.window.Clone(),
		indicators: maps.Clone(b.indicators),
	}
}

func (b *Bollinger) Warmup(history map[string][]float64) {
	for _, p := range history[b.cfg.Symbol] {
		if p > 0 {
			b.window.Push(p)
		}
	}
}

func (b *Bollinger) WarmupSize() int {
	return b.cfg.WindowSize
}

var _ Strategy = (*Bollinger)(nil)
