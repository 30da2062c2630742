package indicator

import (
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// EMA is an exponential moving average over an unbounded stream, seeded by its first sample.
type EMA struct {
	period int
	alpha  float64
	value  float64
	count  int
}

// NewEMA creates a stream EMA with smoothing factor 2/(period+1).
func NewEMA(period int) (*EMA, error) {
	if period < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "ema period must be a positive integer, got %d", period)
	}

	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
		value:  0,
		count:  0,
	}, nil
}

// Update folds a sample into the average and returns the new value.
func (e *EMA) Update(sample float64) float64 {
	if e.count == 0 {
		e.value = sample
	} else {
		e.value = e.alpha*sample + (1-e.alpha)*e.value
	}

	e.count++

	return e.value
}

// Value returns the current average.
func (e *EMA) Value() float64 {
	return e.value
}

// Period returns the configured period.
func (e *EMA) Period() int {
	return e.period
}

// Count returns how many samples have been folded in.
func (e *EMA) Count() int {
	return e.count
}

// Ready reports whether at least one full period has been seen.
func (e *EMA) Ready() bool {
	return e.count >= e.period
}

// Reset forgets all samples.
func (e *EMA) Reset() {
	e.value = 0
	e.count = 0
}

// Clone returns an independent copy.
func (e *EMA) Clone() *EMA {
	c := *e

	return &c
}
