package bench

import "time"

// rateSmoothing is the EMA factor applied to each new throughput sample.
const rateSmoothing = 0.3

// rate tracks an exponentially smoothed ops-per-second figure from
// cumulative op counts sampled at irregular times.
type rate struct {
	value       float64
	initialized bool

	lastOps  int64
	lastTime time.Time
}

func newRate(start time.Time) *rate {
	return &rate{lastTime: start}
}

// sample folds the ops completed since the previous sample into the average
// and returns it. Samples with no elapsed time are ignored.
func (r *rate) sample(ops int64, now time.Time) float64 {
	elapsed := now.Sub(r.lastTime).Seconds()
	if elapsed <= 0 {
		return r.value
	}

	current := float64(ops-r.lastOps) / elapsed
	r.lastOps, r.lastTime = ops, now

	if !r.initialized {
		r.value, r.initialized = current, true

		return r.value
	}

	r.value = rateSmoothing*current + (1-rateSmoothing)*r.value

	return r.value
}
