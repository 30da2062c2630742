package strategy

import (
	"math"
	"slices"

	"github.com/rxtech-lab/argo-signal/internal/indicator"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

const (
	suggestPercentile   = 0.85
	suggestMinZEntry    = 1.0
	suggestMaxZEntry    = 4.0
	suggestMinZExit     = 0.2
	suggestRatioSpan    = 2.0
	suggestMinWindow    = 20
	suggestMaxWindow    = 500
	healthMinStdDev     = 1e-4
	healthHistoryFactor = 2
)

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))

	return math.Round(v*p) / p
}

// ratioStats returns the mean and population std of the last n ratios.
func ratioStats(ratios []float64, n int) (float64, float64, error) {
	n = max(min(n, len(ratios)), indicator.MinWindowSize)

	window, err := indicator.NewRollingWindow(n)
	if err != nil {
		return 0, 0, err
	}

	for _, r := range ratios[max(0, len(ratios)-n):] {
		window.Push(r)
	}

	return window.Mean(), window.StdDev(), nil
}

// SuggestMeanReversionConfig derives z and ratio thresholds from a ratio history, oldest first.
// Fields it does not tune are copied from base.
func SuggestMeanReversionConfig(ratios []float64, base MeanReversionConfig) (MeanReversionConfig, error) {
	if len(ratios) == 0 {
		return base, errors.New(errors.ErrCodeInsufficientHistory, "not enough history to suggest a config")
	}

	mean, std, err := ratioStats(ratios, base.WindowSize)
	if err != nil {
		return base, err
	}

	zEntry := base.ZEntry
	if std > 0 {
		zs := make([]float64, 0, len(ratios))
		for _, r := range ratios {
			zs = append(zs, math.Abs((r-mean)/std))
		}

		slices.Sort(zs)
		idx := max(0, int(float64(len(zs))*suggestPercentile)-1)
		zEntry = math.Max(suggestMinZEntry, math.Min(suggestMaxZEntry, zs[idx]))
	}

	cfg := base
	cfg.WindowSize = min(max(suggestMinWindow, len(ratios)/2), suggestMaxWindow)
	cfg.ZEntry = round(zEntry, 2)
	cfg.ZExit = math.Max(suggestMinZExit, round(zEntry/3, 2))
	cfg.UseRatioThresholds = std > 0
	cfg.SellRatioThreshold = 0
	cfg.BuyRatioThreshold = 0

	if std > 0 {
		cfg.SellRatioThreshold = round(mean+std*suggestRatioSpan, 6)
		cfg.BuyRatioThreshold = round(mean-std*suggestRatioSpan, 6)
	}

	return cfg, nil
}

// PairHealth summarises whether a pair's ratio moves enough to trade.
type PairHealth struct {
	Samples  int     `json:"samples" yaml:"samples"`
	Required int     `json:"required" yaml:"required"`
	Mean     float64 `json:"mean" yaml:"mean"`
	StdDev   float64 `json:"stddev" yaml:"stddev"`
	// CV is the coefficient of variation, std / mean.
	CV      float64 `json:"cv" yaml:"cv"`
	Healthy bool    `json:"healthy" yaml:"healthy"`
	Reason  string  `json:"reason" yaml:"reason"`
}

// EvaluatePairHealth checks a ratio history against a window size.
func EvaluatePairHealth(ratios []float64, windowSize int) PairHealth {
	health := PairHealth{
		Samples:  len(ratios),
		Required: max(minOutlierHistory, windowSize/healthHistoryFactor),
		Mean:     0,
		StdDev:   0,
		CV:       0,
		Healthy:  false,
		Reason:   "",
	}

	if len(ratios) == 0 {
		health.Reason = "no history"

		return health
	}

	mean, std, err := ratioStats(ratios, windowSize)
	if err != nil {
		health.Reason = err.Error()

		return health
	}

	health.Mean = mean
	health.StdDev = std

	if mean != 0 {
		health.CV = std / mean
	}

	switch {
	case health.Samples < health.Required:
		health.Reason = "not enough history"
	case std <= healthMinStdDev:
		health.Reason = "ratio is flat"
	default:
		health.Healthy = true
		health.Reason = "ok"
	}

	return health
}
