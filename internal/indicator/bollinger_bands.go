package indicator

// Bands holds Bollinger band levels around a moving average.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
	StdDev float64
}

// BollingerBands computes mean ± k*stddev over the window.
func BollingerBands(stats Stats, k float64) Bands {
	mean := stats.Mean()
	std := stats.StdDev()

	return Bands{
		Upper:  mean + k*std,
		Middle: mean,
		Lower:  mean - k*std,
		StdDev: std,
	}
}

// RawValue returns the bands as the statistics map used by decisions and history.
func (b Bands) RawValue() map[string]float64 {
	return map[string]float64{
		"upper":  b.Upper,
		"mean":   b.Middle,
		"lower":  b.Lower,
		"stddev": b.StdDev,
	}
}
