package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// MinWindowSize is the smallest capacity that yields a standard deviation.
const MinWindowSize = 2

// Stats is the read side of a window that evaluators depend on.
type Stats interface {
	Mean() float64
	StdDev() float64
	IsFull() bool
	Len() int
}

// RollingWindow is a fixed-capacity FIFO series with O(1) running statistics.
//
// Sums are kept relative to a shift value (the oldest sample at the last rebase) which keeps the
// variance numerically stable for series like price ratios that sit close to a large constant.
// Accumulators are rebuilt from the contents once per capacity evictions to bound float drift.
type RollingWindow struct {
	buf      []float64
	start    int
	size     int
	shift    float64
	sum      float64 // sum of (x - shift)
	sumSq    float64 // sum of (x - shift)^2
	absDiff  float64 // sum of |x_i - x_{i-1}| over the contents
	evicted  int
	capacity int
}

var _ Stats = (*RollingWindow)(nil)

// NewRollingWindow creates a window holding at most capacity samples.
func NewRollingWindow(capacity int) (*RollingWindow, error) {
	if capacity < MinWindowSize {
		return nil, errors.Newf(errors.ErrCodeConfigInvalid, "window size must be at least %d, got %d", MinWindowSize, capacity)
	}

	return &RollingWindow{
		buf:      make([]float64, capacity),
		start:    0,
		size:     0,
		shift:    0,
		sum:      0,
		sumSq:    0,
		absDiff:  0,
		evicted:  0,
		capacity: capacity,
	}, nil
}

// Push appends a sample, evicting the oldest one when the window is full.
func (w *RollingWindow) Push(sample float64) {
	if w.size == 0 {
		w.shift = sample
	}

	hasLast := w.size > 0
	last := w.Last()

	if w.size == w.capacity {
		old := w.buf[w.start]
		second := w.buf[(w.start+1)%w.capacity]
		d := old - w.shift
		w.sum -= d
		w.sumSq -= d * d
		w.absDiff -= math.Abs(second - old)

		w.buf[w.start] = sample
		w.start = (w.start + 1) % w.capacity
		w.evicted++
	} else {
		w.buf[(w.start+w.size)%w.capacity] = sample
		w.size++
	}

	d := sample - w.shift
	w.sum += d
	w.sumSq += d * d

	if hasLast {
		w.absDiff += math.Abs(sample - last)
	}

	if w.evicted >= w.capacity {
		w.rebuild()
	}
}

// rebuild recomputes every accumulator from the current contents.
func (w *RollingWindow) rebuild() {
	w.evicted = 0
	w.sum = 0
	w.sumSq = 0
	w.absDiff = 0

	if w.size == 0 {
		return
	}

	w.shift = w.at(0)

	for i := 0; i < w.size; i++ {
		d := w.at(i) - w.shift
		w.sum += d
		w.sumSq += d * d

		if i > 0 {
			w.absDiff += math.Abs(w.at(i) - w.at(i-1))
		}
	}
}

func (w *RollingWindow) at(i int) float64 {
	return w.buf[(w.start+i)%w.capacity]
}

// Len returns the number of samples currently held.
func (w *RollingWindow) Len() int {
	return w.size
}

// Cap returns the window capacity.
func (w *RollingWindow) Cap() int {
	return w.capacity
}

// IsFull reports whether the window holds capacity samples.
// Signals must not fire before this is true.
func (w *RollingWindow) IsFull() bool {
	return w.size == w.capacity
}

// Last returns the newest sample, or 0 when empty.
func (w *RollingWindow) Last() float64 {
	if w.size == 0 {
		return 0
	}

	return w.at(w.size - 1)
}

// Values returns the contents oldest first.
func (w *RollingWindow) Values() []float64 {
	out := make([]float64, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.at(i)
	}

	return out
}

// Mean returns the arithmetic mean, or 0 when empty.
func (w *RollingWindow) Mean() float64 {
	if w.size == 0 {
		return 0
	}

	return w.shift + w.sum/float64(w.size)
}

// Variance returns the population variance (divides by N), or 0 below two samples.
func (w *RollingWindow) Variance() float64 {
	if w.size < MinWindowSize {
		return 0
	}

	n := float64(w.size)
	v := (w.sumSq - w.sum*w.sum/n) / n

	if v < 0 {
		return 0
	}

	return v
}

// StdDev returns the population standard deviation, or 0 below two samples.
func (w *RollingWindow) StdDev() float64 {
	return math.Sqrt(w.Variance())
}

// EMA returns the exponential moving average of the contents with alpha = 2/(period+1),
// seeded by the oldest sample. Returns 0 when empty or period < 1.
func (w *RollingWindow) EMA(period int) float64 {
	if w.size == 0 || period < 1 {
		return 0
	}

	alpha := 2.0 / float64(period+1)
	ema := w.at(0)

	for i := 1; i < w.size; i++ {
		ema = alpha*w.at(i) + (1-alpha)*ema
	}

	return ema
}

// ATR returns the mean absolute move between consecutive samples.
// Tick data carries no high/low, so the true range of a step is |p_i - p_{i-1}|.
func (w *RollingWindow) ATR() float64 {
	if w.size < MinWindowSize {
		return 0
	}

	return w.absDiff / float64(w.size-1)
}

// Reset empties the window keeping its capacity.
func (w *RollingWindow) Reset() {
	w.start = 0
	w.size = 0
	w.shift = 0
	w.sum = 0
	w.sumSq = 0
	w.absDiff = 0
	w.evicted = 0
}

// Clone returns an independent copy.
func (w *RollingWindow) Clone() *RollingWindow {
	buf := make([]float64, len(w.buf))
	copy(buf, w.buf)

	clone := *w
	clone.buf = buf

	return &clone
}

// ZScore returns (value - mean) / stddev. ok is false when the deviation is zero.
func ZScore(stats Stats, value float64) (z float64, ok bool) {
	std := stats.StdDev()
	if std == 0 || math.IsNaN(std) {
		return 0, false
	}

	return (value - stats.Mean()) / std, true
}
