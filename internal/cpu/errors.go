package cpu

import "codeberg.org/mutker/hwmond/internal/errors"

const (
	ErrCounterQueryFailed = errors.ErrorCode("cpu_counter_query_failed")
	ErrNoProcessors       = errors.ErrorCode("cpu_no_processors")
	ErrTopologyFailed     = errors.ErrorCode("cpu_topology_failed")
)
