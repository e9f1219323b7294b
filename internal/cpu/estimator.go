package cpu

import (
	"codeberg.org/mutker/hwmond/internal/logger"
)

// Estimate converts two counter snapshots into per-core and aggregate
// utilization percentages.
//
// Only the overlapping prefix of the two snapshots is compared, since the
// visible processor count can change between reads. If any overlapping
// processor accumulated less than threshold total time, the estimate is
// skipped entirely (ok == false) and nothing is published; dividing by a
// near-zero delta would only produce noise when polling happens faster
// than the counter resolution. Thread indices outside the overlap are
// excluded from the averages, not treated as zero.
func Estimate(previous, current CounterSnapshot, topo Topology, threshold uint64) (perCore []float32, total float32, ok bool) {
	n := len(previous)
	if len(current) < n {
		n = len(current)
	}
	if n == 0 {
		return nil, 0, false
	}

	for i := 0; i < n; i++ {
		if current[i].Total < previous[i].Total ||
			current[i].Total-previous[i].Total < threshold {
			return nil, 0, false
		}
	}

	idleFraction := make([]float64, n)
	for i := 0; i < n; i++ {
		deltaTotal := current[i].Total - previous[i].Total
		var deltaIdle uint64
		if current[i].Idle > previous[i].Idle {
			deltaIdle = current[i].Idle - previous[i].Idle
		}
		idleFraction[i] = float64(deltaIdle) / float64(deltaTotal)
	}

	perCore = make([]float32, topo.CoreCount())
	totalSum := 0.0
	totalCount := 0
	for c, threads := range topo {
		coreSum := 0.0
		coreCount := 0
		for _, t := range threads {
			if t < 0 || t >= n {
				continue
			}
			coreSum += idleFraction[t]
			coreCount++
			totalSum += idleFraction[t]
			totalCount++
		}
		if coreCount > 0 {
			perCore[c] = loadFromIdle(coreSum / float64(coreCount))
		}
	}

	if totalCount == 0 {
		return perCore, 0, true
	}

	return perCore, loadFromIdle(totalSum / float64(totalCount)), true
}

func loadFromIdle(idleFraction float64) float32 {
	load := (1 - idleFraction) * 100
	if load < 0 {
		return 0
	}

	return float32(load)
}

// Estimator owns the previous/current snapshot pair for one CPU device.
// Two separately owned snapshot values are kept, replaced only on a
// successful estimate, so a skipped estimate never loses the baseline.
// Not safe for concurrent use; the polling loop serializes calls.
type Estimator struct {
	source    CounterSource
	topology  Topology
	threshold uint64
	previous  CounterSnapshot
	available bool
}

// NewEstimator primes the estimator with a first snapshot. If the source
// cannot be queried at all, the estimator is permanently unavailable and
// every Next call becomes a no-op.
func NewEstimator(source CounterSource, topo Topology, threshold uint64) *Estimator {
	e := &Estimator{
		source:    source,
		topology:  topo,
		threshold: threshold,
	}

	snapshot, err := source.Sample()
	if err != nil {
		logger.Warn().Err(err).Msg("Counter source unavailable, load estimation disabled")
		return e
	}

	e.previous = snapshot
	e.available = true

	return e
}

// Available reports whether the counter source could ever be queried.
func (e *Estimator) Available() bool {
	return e.available
}

// Next acquires a fresh snapshot and estimates the load since the
// retained one. ok is false when the estimator is unavailable, the
// acquisition failed, or the delta guard skipped the estimate; in every
// such case the previous snapshot (if any) is retained unmutated. On
// success the fresh snapshot becomes the new baseline; snapshots are
// consumed and retired, never replayed.
func (e *Estimator) Next() (perCore []float32, total float32, ok bool) {
	if !e.available {
		return nil, 0, false
	}

	current, err := e.source.Sample()
	if err != nil {
		logger.Warn().Err(err).Msg("Counter acquisition failed, load estimation disabled")
		e.available = false
		return nil, 0, false
	}

	perCore, total, ok = Estimate(e.previous, current, e.topology, e.threshold)
	if !ok {
		return nil, 0, false
	}

	e.previous = current

	return perCore, total, true
}
