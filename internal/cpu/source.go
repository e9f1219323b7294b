package cpu

import (
	"codeberg.org/mutker/hwmond/internal/errors"
	pscpu "github.com/shirou/gopsutil/v3/cpu"
)

// Counter times are normalized to 100ns units regardless of what the OS
// reports, so the skip threshold keeps one meaning across platforms.
const ticksPerSecond = 1e7

// CounterSample holds one logical processor's cumulative idle and total
// (busy + idle) time since boot, in 100ns units. Both values are
// monotonically non-decreasing.
type CounterSample struct {
	Idle  uint64
	Total uint64
}

// CounterSnapshot is a point-in-time capture of every visible logical
// processor's counters, in a stable index order across calls.
type CounterSnapshot []CounterSample

// CounterSource produces counter snapshots. The entries of consecutive
// snapshots must line up by index for delta comparison to be meaningful.
type CounterSource interface {
	Sample() (CounterSnapshot, error)
}

type systemSource struct{}

// NewSystemSource returns a counter source backed by the OS per-CPU time
// accounting.
func NewSystemSource() CounterSource {
	return systemSource{}
}

func (systemSource) Sample() (CounterSnapshot, error) {
	errFactory := errors.New()

	times, err := pscpu.Times(true)
	if err != nil {
		return nil, errFactory.Wrap(ErrCounterQueryFailed, err)
	}
	if len(times) == 0 {
		return nil, errFactory.New(ErrNoProcessors)
	}

	snapshot := make(CounterSnapshot, len(times))
	for i, t := range times {
		idle := t.Idle + t.Iowait
		busy := t.User + t.System + t.Nice + t.Irq + t.Softirq + t.Steal
		snapshot[i] = CounterSample{
			Idle:  uint64(idle * ticksPerSecond),
			Total: uint64((idle + busy) * ticksPerSecond),
		}
	}

	return snapshot, nil
}
