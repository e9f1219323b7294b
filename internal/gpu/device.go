package gpu

import (
	"fmt"

	"codeberg.org/mutker/hwmond/internal/hwmon"
	"codeberg.org/mutker/hwmond/internal/logger"
)

const (
	milliwattsPerWatt = 1000
	bytesPerMegabyte  = 1 << 20

	// Sensor index layout shared by clocks and loads: core first,
	// memory second.
	coreIndex   = 0
	memoryIndex = 1
)

// Device is a GPU monitored through the vendor API. Every query in
// Update is independent and best-effort: a failed or unsupported query
// leaves its sensor inactive while the siblings keep updating, and the
// raw status of every operation is retained for the diagnostic report.
type Device struct {
	api      API
	name     string
	fanCount int
	sensors  []*hwmon.Sensor
	controls []*hwmon.Control
	status   map[Op]Status
}

func NewDevice(api API) *Device {
	d := &Device{
		api:    api,
		name:   "GPU",
		status: make(map[Op]Status, len(Ops)),
	}

	if name, st := api.Name(); d.record(OpName, st) {
		d.name = name
	}

	d.sensors = []*hwmon.Sensor{
		hwmon.NewSensor("GPU Core", hwmon.SensorTemperature, coreIndex),
		hwmon.NewSensor("GPU Core", hwmon.SensorClock, coreIndex),
		hwmon.NewSensor("GPU Memory", hwmon.SensorClock, memoryIndex),
		hwmon.NewSensor("GPU Core", hwmon.SensorLoad, coreIndex),
		hwmon.NewSensor("GPU Memory", hwmon.SensorLoad, memoryIndex),
		hwmon.NewSensor("GPU Power", hwmon.SensorPower, 0),
		hwmon.NewSensor("GPU Memory Total", hwmon.SensorSmallData, 0),
		hwmon.NewSensor("GPU Memory Used", hwmon.SensorSmallData, 1),
	}

	d.initFans()
	d.initPowerControl()

	logger.Info().
		Str("name", d.name).
		Int("fans", d.fanCount).
		Msg("Detected GPU")

	// Priming update so sensors carry baseline values right after discovery
	d.Update()

	return d
}

func (d *Device) initFans() {
	count, st := d.api.FanCount()
	if !d.record(OpFanCount, st) || count <= 0 {
		return
	}
	d.fanCount = count

	minSpeed, maxSpeed := uint32(0), uint32(100)
	if lo, hi, st := d.api.FanSpeedLimits(); st.OK() {
		minSpeed, maxSpeed = lo, hi
	}

	for i := 0; i < count; i++ {
		name := fmt.Sprintf("GPU Fan #%d", i+1)
		d.sensors = append(d.sensors, hwmon.NewSensor(name, hwmon.SensorFan, i))

		reporting := hwmon.NewSensor(name, hwmon.SensorControl, i)
		d.sensors = append(d.sensors, reporting)

		control := hwmon.NewControl(name, i, float32(minSpeed), float32(maxSpeed), d.applyFanMode)
		control.Sensor = reporting
		d.controls = append(d.controls, control)
	}
}

func (d *Device) initPowerControl() {
	minLimit, maxLimit, defaultLimit, st := d.api.PowerLimitConstraints()
	if !d.record(OpPowerLimit, st) {
		return
	}

	control := hwmon.NewControl("GPU Power Limit", d.fanCount,
		float32(minLimit)/milliwattsPerWatt,
		float32(maxLimit)/milliwattsPerWatt,
		d.applyPowerMode(defaultLimit))
	d.controls = append(d.controls, control)
}

// applyFanMode translates a fan control transition into vendor calls.
func (d *Device) applyFanMode(c *hwmon.Control) {
	switch c.Mode() {
	case hwmon.ModeSoftware:
		st := d.api.SetFanSpeed(c.Index, uint32(c.SoftwareValue()))
		if !st.OK() {
			logger.Warn().Int("fan", c.Index).Str("status", st.String()).Msg("Failed to set fan speed")
		}
	case hwmon.ModeDefault:
		st := d.api.SetDefaultFanSpeed(c.Index)
		if !st.OK() {
			logger.Warn().Int("fan", c.Index).Str("status", st.String()).Msg("Failed to restore auto fan control")
		}
	case hwmon.ModeUndefined:
	}
}

func (d *Device) applyPowerMode(defaultLimit uint32) hwmon.TransitionFunc {
	return func(c *hwmon.Control) {
		switch c.Mode() {
		case hwmon.ModeSoftware:
			st := d.api.SetPowerLimit(uint32(c.SoftwareValue() * milliwattsPerWatt))
			if !st.OK() {
				logger.Warn().Str("status", st.String()).Msg("Failed to set power limit")
			}
		case hwmon.ModeDefault:
			st := d.api.SetPowerLimit(defaultLimit)
			if !st.OK() {
				logger.Warn().Str("status", st.String()).Msg("Failed to restore default power limit")
			}
		case hwmon.ModeUndefined:
		}
	}
}

func (d *Device) Name() string               { return d.name }
func (d *Device) Vendor() string             { return "NVIDIA" }
func (d *Device) Type() hwmon.DeviceType     { return hwmon.DeviceGPU }
func (d *Device) Sensors() []*hwmon.Sensor   { return d.sensors }
func (d *Device) Controls() []*hwmon.Control { return d.controls }

func (d *Device) Update() {
	d.updateTemperature()
	d.updateClocks()
	d.updateLoad()
	d.updateFans()
	d.updateMemory()
	d.updatePower()
}

// Close transitions every control still asserting a software value back
// to the hardware automatic policy before detaching.
func (d *Device) Close() {
	for _, c := range d.controls {
		c.Release()
	}
}

func (d *Device) updateTemperature() {
	if temp, st := d.api.Temperature(); d.record(OpTemperature, st) {
		hwmon.Activate(d.sensors, hwmon.SensorTemperature, coreIndex, float32(temp))
	}
}

// updateClocks reads the core clock from the primary register slot,
// falling back to the alternate slot; firmware revisions differ on where
// the value lives.
func (d *Device) updateClocks() {
	clock, st := d.api.Clock(ClockCore)
	if !d.record(OpCoreClock, st) {
		clock, st = d.api.Clock(ClockCoreAlt)
		d.record(OpCoreClockAlt, st)
	}
	if st.OK() {
		hwmon.Activate(d.sensors, hwmon.SensorClock, coreIndex, float32(clock))
	}

	if clock, st := d.api.Clock(ClockMemory); d.record(OpMemoryClock, st) {
		hwmon.Activate(d.sensors, hwmon.SensorClock, memoryIndex, float32(clock))
	}
}

// updateLoad prefers the P-state activity percentages and falls back to
// the per-metric usage counters. Unlike the CPU path the values come
// straight from the vendor, not from an estimator.
func (d *Device) updateLoad() {
	gpuLoad, memLoad, st := d.api.DynamicPstates()
	if !d.record(OpDynamicPstates, st) {
		gpuLoad, memLoad, st = d.api.UtilizationRates()
		d.record(OpUtilization, st)
	}
	if !st.OK() {
		return
	}

	hwmon.Activate(d.sensors, hwmon.SensorLoad, coreIndex, float32(gpuLoad))
	hwmon.Activate(d.sensors, hwmon.SensorLoad, memoryIndex, float32(memLoad))
}

func (d *Device) updateFans() {
	for i := 0; i < d.fanCount; i++ {
		speed, st := d.api.FanSpeed(i)
		if i == 0 {
			d.record(OpFanSpeed, st)
		}
		if st.OK() {
			hwmon.Activate(d.sensors, hwmon.SensorFan, i, float32(speed))
		}
	}
}

func (d *Device) updateMemory() {
	total, used, st := d.api.MemoryInfo()
	if !d.record(OpMemoryInfo, st) {
		return
	}

	hwmon.Activate(d.sensors, hwmon.SensorSmallData, 0, float32(total/bytesPerMegabyte))
	hwmon.Activate(d.sensors, hwmon.SensorSmallData, 1, float32(used/bytesPerMegabyte))
}

func (d *Device) updatePower() {
	if power, st := d.api.PowerUsage(); d.record(OpPowerUsage, st) {
		hwmon.Activate(d.sensors, hwmon.SensorPower, 0, float32(power)/milliwattsPerWatt)
	}
}

// record retains the raw status of an operation for the diagnostic
// report and reports whether the call succeeded. Failures never abort
// the surrounding Update.
func (d *Device) record(op Op, st Status) bool {
	d.status[op] = st
	return st.OK()
}

// Status returns the last recorded raw status for an operation.
func (d *Device) Status(op Op) (Status, bool) {
	st, ok := d.status[op]
	return st, ok
}

func (d *Device) Projection() hwmon.Projection {
	p := hwmon.Projection{
		Name:             d.name,
		Vendor:           d.Vendor(),
		CoreCount:        1,
		CoreLoads:        hwmon.Values(d.sensors, hwmon.SensorLoad, 1),
		CoreClocks:       hwmon.Values(d.sensors, hwmon.SensorClock, 1),
		CoreTemperatures: hwmon.Values(d.sensors, hwmon.SensorTemperature, 1),
		CorePowers:       hwmon.Values(d.sensors, hwmon.SensorPower, 1),
	}

	if s := hwmon.Find(d.sensors, hwmon.SensorLoad, coreIndex); s != nil && s.Active() {
		p.TotalLoad = s.Value()
	}
	if s := hwmon.Find(d.sensors, hwmon.SensorTemperature, coreIndex); s != nil && s.Active() {
		p.PackageTemperature = s.Value()
	}

	return p
}
