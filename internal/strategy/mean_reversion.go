package strategy

import (
	"maps"
	"math"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/indicator"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// minOutlierHistory is the floor on samples needed before outliers are filtered.
const minOutlierHistory = 5

// RearmLatch blocks a second same-direction entry until the z-score has returned inside the exit band.
type RearmLatch struct {
	Ready bool
	// LastSign is +1 after an A->B entry, -1 after B->A, 0 once rearmed.
	LastSign int
}

// allows reports whether an entry with the given sign may fire.
func (l RearmLatch) allows(sign int) bool {
	return l.Ready || l.LastSign == -sign
}

// PairInput is everything the mean-reversion evaluator reads.
type PairInput struct {
	Ratio   float64
	Window  indicator.Stats
	Outlier bool
	Latch   RearmLatch
}

// EvaluateMeanReversion decides whether to rotate between the two assets of a pair.
func EvaluateMeanReversion(cfg MeanReversionConfig, in PairInput, pos types.Position, now time.Time) types.Decision {
	stats := map[string]float64{
		types.StatRatio:  in.Ratio,
		types.StatMean:   in.Window.Mean(),
		types.StatStdDev: in.Window.StdDev(),
	}

	z, zOK := indicator.ZScore(in.Window, in.Ratio)
	if zOK {
		stats[types.StatZScore] = z
	}

	hold := func(action types.DecisionAction, reason types.SignalReason) types.Decision {
		d := types.NewHoldDecision(types.StrategyMeanReversion, action, reason, now, stats)
		d.Price = in.Ratio

		return d
	}

	if !in.Window.IsFull() {
		return hold(types.ActionNone, types.ReasonInsufficientData)
	}

	if in.Outlier {
		return hold(types.ActionHold, types.ReasonOutlier)
	}

	holdingA := pos.HeldAsset == cfg.AssetA
	holdingB := pos.HeldAsset == cfg.AssetB

	if !holdingA && !holdingB {
		return hold(types.ActionHold, types.ReasonNotInPair)
	}

	rotate := func(action types.DecisionAction, reason types.SignalReason, from, to string) types.Decision {
		d := hold(action, reason)
		d.FromAsset = from
		d.ToAsset = to

		return d
	}

	if cfg.UseRatioThresholds {
		switch {
		case holdingA && cfg.SellRatioThreshold > 0 && in.Ratio >= cfg.SellRatioThreshold:
			return rotate(types.ActionRotate, types.ReasonRatioThreshold, cfg.AssetA, cfg.AssetB)
		case holdingB && cfg.BuyRatioThreshold > 0 && in.Ratio <= cfg.BuyRatioThreshold:
			return rotate(types.ActionRotate, types.ReasonRatioThreshold, cfg.AssetB, cfg.AssetA)
		default:
			return hold(types.ActionHold, types.ReasonNoSignal)
		}
	}

	if !zOK {
		return hold(types.ActionHold, types.ReasonStdZero)
	}

	// Exit wins over a new entry on the same tick.
	if pos.IsRotated() && math.Abs(z) <= cfg.ZExit {
		return rotate(types.ActionExit, types.ReasonZScoreExit, pos.HeldAsset, pos.OriginAsset)
	}

	switch {
	case holdingA && z >= cfg.ZEntry && in.Latch.allows(1):
		return rotate(types.ActionRotate, types.ReasonZScoreEntry, cfg.AssetA, cfg.AssetB)
	case holdingB && z <= -cfg.ZEntry && in.Latch.allows(-1):
		return rotate(types.ActionRotate, types.ReasonZScoreEntry, cfg.AssetB, cfg.AssetA)
	default:
		return hold(types.ActionHold, types.ReasonNoSignal)
	}
}

// MeanReversion tracks the price ratio of a pair.
type MeanReversion struct {
	cfg        MeanReversionConfig
	symbolA    string
	symbolB    string
	window     *indicator.RollingWindow
	latch      RearmLatch
	indicators map[string]float64
}

// NewMeanReversion creates the pair strategy; quote is the asset both legs are priced in.
func NewMeanReversion(cfg MeanReversionConfig, quote string) (*MeanReversion, error) {
	window, err := indicator.NewRollingWindow(cfg.WindowSize)
	if err != nil {
		return nil, err
	}

	return &MeanReversion{
		cfg:        cfg,
		symbolA:    cfg.AssetA + quote,
		symbolB:    cfg.AssetB + quote,
		window:     window,
		latch:      RearmLatch{Ready: true, LastSign: 0},
		indicators: map[string]float64{},
	}, nil
}

func (m *MeanReversion) Name() types.StrategyName {
	return types.StrategyMeanReversion
}

func (m *MeanReversion) Symbols() []string {
	return []string{m.symbolA, m.symbolB}
}

func (m *MeanReversion) SetConfig(cfg Config) error {
	c, ok := cfg.(MeanReversionConfig)
	if !ok {
		return errors.Newf(errors.ErrCodeConfigInvalid, "expected mean reversion config, got %s", cfg.StrategyName())
	}

	m.cfg = c

	return nil
}

func (m *MeanReversion) requiredHistory() int {
	return max(minOutlierHistory, m.cfg.WindowSize/2)
}

// filterOutlier clamps a ratio that is both far from the mean and a large jump from the last sample.
func (m *MeanReversion) filterOutlier(ratio float64) (float64, bool) {
	if m.window.Len() < m.requiredHistory() {
		return ratio, false
	}

	std := m.window.StdDev()
	if std == 0 {
		return ratio, false
	}

	prev := m.window.Last()
	mean := m.window.Mean()
	relJump := math.Abs(ratio-prev) / math.Max(prev, 1e-9)

	exceedsSigma := math.Abs(ratio-mean) > m.cfg.OutlierSigma*std
	exceedsJump := relJump > m.cfg.MaxRatioJump

	if !exceedsSigma || !exceedsJump {
		return ratio, false
	}

	if ratio > mean {
		return mean + m.cfg.OutlierSigma*std, true
	}

	return mean - m.cfg.OutlierSigma*std, true
}

func (m *MeanReversion) Observe(prices map[string]float64, now time.Time) (Observation, error) {
	priceA, err := priceOf(prices, m.symbolA)
	if err != nil {
		return Observation{}, err
	}

	priceB, err := priceOf(prices, m.symbolB)
	if err != nil {
		return Observation{}, err
	}

	ratio := priceA / priceB
	sample, outlier := m.filterOutlier(ratio)
	m.window.Push(sample)

	z, ok := indicator.ZScore(m.window, sample)
	if ok && !m.cfg.UseRatioThresholds && math.Abs(z) <= m.cfg.ZExit {
		m.latch = RearmLatch{Ready: true, LastSign: 0}
	}

	m.indicators = map[string]float64{
		types.StatRatio:  sample,
		types.StatMean:   m.window.Mean(),
		types.StatStdDev: m.window.StdDev(),
	}
	if ok {
		m.indicators[types.StatZScore] = z
	}

	return Observation{
		Time:    now,
		Prices:  map[string]float64{m.symbolA: priceA, m.symbolB: priceB},
		Sample:  sample,
		Raw:     ratio,
		Outlier: outlier,
	}, nil
}

func (m *MeanReversion) Evaluate(obs Observation, pos types.Position, now time.Time) types.Decision {
	return EvaluateMeanReversion(m.cfg, PairInput{
		Ratio:   obs.Sample,
		Window:  m.window,
		Outlier: obs.Outlier,
		Latch:   m.latch,
	}, pos, now)
}

func (m *MeanReversion) Acknowledge(decision types.Decision) {
	if decision.Action != types.ActionRotate {
		return
	}

	sign := -1
	if decision.FromAsset == m.cfg.AssetA {
		sign = 1
	}

	m.latch = RearmLatch{Ready: false, LastSign: sign}
}

// Latch returns the current rearm state.
func (m *MeanReversion) Latch() RearmLatch {
	return m.latch
}

func (m *MeanReversion) Indicators() map[string]float64 {
	return maps.Clone(m.indicators)
}

func (m *MeanReversion) Clone() Strategy {
	return &MeanReversion{
		cfg:        m.cfg,
		symbolA:    m.symbolA,
		symbolB:    m.symbolB,
		window:     m.window.Clone(),
		latch:      m.latch,
		indicators: maps.Clone(m.indicators),
	}
}

// Warmup pushes the ratio of the aligned tails of both legs' histories.
func (m *MeanReversion) Warmup(history map[string][]float64) {
	a, b := history[m.symbolA], history[m.symbolB]
	n := min(len(a), len(b))
	a, b = a[len(a)-n:], b[len(b)-n:]

	for i := range n {
		if a[i] > 0 && b[i] > 0 {
			m.window.Push(a[i] / b[i])
		}
	}
}

func (m *MeanReversion) WarmupSize() int {
	return m.cfg.WindowSize
}

// Window exposes the ratio window for status and health checks.
func (m *MeanReversion) Window() *indicator.RollingWindow {
	return m.window
}

var _ Strategy = (*MeanReversion)(nil)
