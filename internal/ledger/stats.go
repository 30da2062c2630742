package ledger

import (
	"github.com/rxtech-lab/argo-signal/internal/types"
)

// StatsAccumulator holds running statistics for the trades applied to a ledger.
type StatsAccumulator struct {
	TotalTrades  int     `yaml:"total_trades"`
	RoundTrips   int     `yaml:"round_trips"`
	Wins         int     `yaml:"wins"`
	Losses       int     `yaml:"losses"`
	RealizedPnL  float64 `yaml:"realized_pnl"`
	TotalFees    float64 `yaml:"total_fees"`
	MaxProfit    float64 `yaml:"max_profit"`
	MaxLoss      float64 `yaml:"max_loss"`
	MaxDrawdown  float64 `yaml:"max_drawdown"`
	PeakPnL      float64 `yaml:"peak_pnl"`
	ManualTrades int     `yaml:"manual_trades"`
}

// NewStatsAccumulator creates a new initialized StatsAccumulator.
func NewStatsAccumulator() *StatsAccumulator {
	return &StatsAccumulator{
		TotalTrades:  0,
		RoundTrips:   0,
		Wins:         0,
		Losses:       0,
		RealizedPnL:  0,
		TotalFees:    0,
		MaxProfit:    0,
		MaxLoss:      0,
		MaxDrawdown:  0,
		PeakPnL:      0,
		ManualTrades: 0,
	}
}

// Record updates the accumulator with the effect of one fill.
func (acc *StatsAccumulator) Record(effect Effect, manual bool) {
	pnl := effect.RealizedPnL.InexactFloat64()

	acc.TotalTrades++
	acc.TotalFees += effect.Fee.InexactFloat64()
	acc.RealizedPnL += pnl

	if manual {
		acc.ManualTrades++
	}

	if !effect.RoundTrip {
		return
	}

	acc.RoundTrips++

	if pnl > 0 {
		acc.Wins++
	} else if pnl < 0 {
		acc.Losses++
	}

	if pnl > acc.MaxProfit {
		acc.MaxProfit = pnl
	}

	if pnl < acc.MaxLoss {
		acc.MaxLoss = pnl
	}

	if acc.RealizedPnL > acc.PeakPnL {
		acc.PeakPnL = acc.RealizedPnL
	}

	drawdown := acc.PeakPnL - acc.RealizedPnL
	if drawdown > acc.MaxDrawdown {
		acc.MaxDrawdown = drawdown
	}
}

// Build converts the accumulator into the status view.
func (acc *StatsAccumulator) Build() types.TradeStats {
	winRate := 0.0
	if acc.RoundTrips > 0 {
		winRate = float64(acc.Wins) / float64(acc.RoundTrips)
	}

	return types.TradeStats{
		TotalTrades: acc.TotalTrades,
		RoundTrips:  acc.RoundTrips,
		Wins:        acc.Wins,
		Losses:      acc.Losses,
		WinRate:     winRate,
		RealizedPnL: acc.RealizedPnL,
		TotalFees:   acc.TotalFees,
		MaxDrawdown: acc.MaxDrawdown,
		PeakPnL:     acc.PeakPnL,
		ManualTrade: acc.ManualTrades,
	}
}

// Clone returns an independent copy.
func (acc *StatsAccumulator) Clone() *StatsAccumulator {
	c := *acc

	return &c
}
