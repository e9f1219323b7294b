package gpu

import "fmt"

// Op identifies one operation of the vendor diagnostic API. Drivers
// export an arbitrary subset; callers either check Supports(op) up front
// or handle StatusNotSupported from the call itself.
type Op int

const (
	OpName Op = iota
	OpTemperature
	OpCoreClock
	OpCoreClockAlt
	OpMemoryClock
	OpDynamicPstates
	OpUtilization
	OpFanCount
	OpFanSpeed
	OpFanControl
	OpMemoryInfo
	OpPowerUsage
	OpPowerLimit
)

// Ops lists every operation in diagnostic report order.
var Ops = []Op{
	OpName,
	OpTemperature,
	OpCoreClock,
	OpCoreClockAlt,
	OpMemoryClock,
	OpDynamicPstates,
	OpUtilization,
	OpFanCount,
	OpFanSpeed,
	OpFanControl,
	OpMemoryInfo,
	OpPowerUsage,
	OpPowerLimit,
}

func (op Op) Label() string {
	switch op {
	case OpName:
		return "Device name"
	case OpTemperature:
		return "Core temperature"
	case OpCoreClock:
		return "Core clock"
	case OpCoreClockAlt:
		return "Core clock (alternate slot)"
	case OpMemoryClock:
		return "Memory clock"
	case OpDynamicPstates:
		return "Dynamic P-state utilization"
	case OpUtilization:
		return "Utilization counters"
	case OpFanCount:
		return "Fan count"
	case OpFanSpeed:
		return "Fan speed"
	case OpFanControl:
		return "Fan control"
	case OpMemoryInfo:
		return "Memory info"
	case OpPowerUsage:
		return "Power usage"
	case OpPowerLimit:
		return "Power limit"
	default:
		return fmt.Sprintf("Operation %d", int(op))
	}
}

// Status is the raw outcome of one vendor API call. Zero is success,
// StatusNotSupported marks an operation the installed driver does not
// export, and positive values carry the raw vendor error code.
type Status int

const (
	StatusOK           Status = 0
	StatusNotSupported Status = -1
)

func (s Status) OK() bool {
	return s == StatusOK
}

func (s Status) Supported() bool {
	return s != StatusNotSupported
}

func (s Status) String() string {
	switch {
	case s == StatusOK:
		return "OK"
	case s == StatusNotSupported:
		return "NOT_SUPPORTED"
	default:
		return fmt.Sprintf("ERROR(%d)", int(s))
	}
}

// ClockSlot selects which clock register to read. Firmware revisions
// expose the core clock at different offsets, so callers read ClockCore
// first and fall back to ClockCoreAlt.
type ClockSlot int

const (
	ClockCore ClockSlot = iota
	ClockCoreAlt
	ClockMemory
)

// API is the narrow interface to the vendor GPU diagnostic library. Every
// call is synchronous and bounded; every call returns a Status and the
// device must tolerate any subset of operations being unbound. Clock
// values are MHz, temperatures °C, fan speeds and utilizations percent,
// power milliwatts, memory bytes.
type API interface {
	Supports(op Op) bool

	Name() (string, Status)
	Temperature() (uint32, Status)
	Clock(slot ClockSlot) (uint32, Status)

	// DynamicPstates reports per-domain activity percentages attached to
	// the current performance state; preferred load source.
	DynamicPstates() (gpu, memory uint32, st Status)
	// UtilizationRates reports the rolling per-metric usage counters;
	// fallback load source.
	UtilizationRates() (gpu, memory uint32, st Status)

	FanCount() (int, Status)
	FanSpeed(index int) (uint32, Status)
	FanSpeedLimits() (minSpeed, maxSpeed uint32, st Status)
	SetFanSpeed(index int, percent uint32) Status
	SetDefaultFanSpeed(index int) Status

	MemoryInfo() (total, used uint64, st Status)
	PowerUsage() (uint32, Status)
	PowerLimitConstraints() (minLimit, maxLimit, defaultLimit uint32, st Status)
	SetPowerLimit(milliwatts uint32) Status
}
