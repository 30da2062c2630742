package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-signal/internal/types"
)

// PriceGenerator generates close-price series for testing warm-up and engine loops.
type PriceGenerator struct {
	rng *rand.Rand
}

// NewPriceGenerator creates a new PriceGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewPriceGenerator(seed int64) *PriceGenerator {
	return &PriceGenerator{
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec // test data only
	}
}

// GeneratorConfig configures how a price series is generated.
type GeneratorConfig struct {
	// Symbol is the exchange symbol (e.g., "BNBUSDT")
	Symbol string
	// StartTime is the time of the first close
	StartTime time.Time
	// Interval is the duration between closes
	Interval time.Duration
	// Count is the number of closes to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement per step (0.002 = 0.2%)
	Volatility float64
	// Trend is the total drift over the series (-0.01 to 0.01 for bearish to bullish)
	Trend float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "BNBUSDT",
		StartTime:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:     time.Minute,
		Count:        100,
		InitialPrice: 600.0,
		Volatility:   0.002,
		Trend:        0.0,
	}
}

// Generate creates a geometric Brownian motion close series.
func (g *PriceGenerator) Generate(config GeneratorConfig) []types.PricePoint {
	points := make([]types.PricePoint, config.Count)
	price := config.InitialPrice
	at := config.StartTime

	for i := range config.Count {
		// Box-Muller transform for a standard normal step
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		next := price * (1 + config.Volatility*z + drift)
		if next <= 0 {
			next = price * 0.99
		}

		points[i] = types.PricePoint{
			Symbol: config.Symbol,
			Time:   at,
			Close:  roundToDecimals(next, 4),
		}

		price = next
		at = at.Add(config.Interval)
	}

	return points
}

// Closes returns only the close values of a series.
func Closes(points []types.PricePoint) []float64 {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}

	return closes
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
