package strategy

import (
	"testing"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SuggestTestSuite struct {
	suite.Suite
}

func TestSuggestSuite(t *testing.T) {
	suite.Run(t, new(SuggestTestSuite))
}

func alternating(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo
		if i%2 == 1 {
			out[i] = hi
		}
	}

	return out
}

func (s *SuggestTestSuite) TestSuggestFromMovingRatio() {
	cfg, err := SuggestMeanReversionConfig(alternating(100, 0.9, 1.1), DefaultMeanReversionConfig())
	s.Require().NoError(err)

	s.Equal(50, cfg.WindowSize)
	s.InDelta(1.0, cfg.ZEntry, 1e-9)
	s.InDelta(0.33, cfg.ZExit, 1e-9)
	s.True(cfg.UseRatioThresholds)
	s.InDelta(1.2, cfg.SellRatioThreshold, 1e-6)
	s.InDelta(0.8, cfg.BuyRatioThreshold, 1e-6)
	s.Equal("HBAR", cfg.AssetA)
	s.NoError(cfg.Validate())
}

func (s *SuggestTestSuite) TestSuggestFromFlatRatioKeepsZEntry() {
	flatRatios := []float64{1, 1, 1, 1, 1}

	cfg, err := SuggestMeanReversionConfig(flatRatios, DefaultMeanReversionConfig())
	s.Require().NoError(err)

	s.Equal(20, cfg.WindowSize)
	s.InDelta(3.0, cfg.ZEntry, 1e-12)
	s.InDelta(1.0, cfg.ZExit, 1e-12)
	s.False(cfg.UseRatioThresholds)
	s.Zero(cfg.SellRatioThreshold)
}

func (s *SuggestTestSuite) TestSuggestWithoutHistory() {
	_, err := SuggestMeanReversionConfig(nil, DefaultMeanReversionConfig())
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientHistory))
}

func (s *SuggestTestSuite) TestPairHealth() {
	healthy := EvaluatePairHealth(alternating(60, 0.9, 1.1), 100)
	s.True(healthy.Healthy)
	s.Equal(50, healthy.Required)
	s.InDelta(0.1, healthy.CV, 1e-9)

	short := EvaluatePairHealth(alternating(10, 0.9, 1.1), 100)
	s.False(short.Healthy)
	s.Equal("not enough history", short.Reason)

	flatHealth := EvaluatePairHealth(make([]float64, 60), 100)
	s.False(flatHealth.Healthy)
	s.Equal("ratio is flat", flatHealth.Reason)

	empty := EvaluatePairHealth(nil, 100)
	s.False(empty.Healthy)
	s.Equal("no history", empty.Reason)
}
