package cpu

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/hwmond/internal/errors"
	"codeberg.org/mutker/hwmond/internal/hwmon"
	"codeberg.org/mutker/hwmond/internal/logger"
	pscpu "github.com/shirou/gopsutil/v3/cpu"
)

const hertzPerMegahertz = 1e6

// Device is the CPU package device. Per-core and total load come from the
// incremental estimator; clocks and temperatures are refreshed
// best-effort from the host. Load sensors use indices 0..cores-1 with the
// aggregate at index cores; temperature sensors follow the same layout
// with the package temperature last.
type Device struct {
	name      string
	vendor    string
	topology  Topology
	estimator *Estimator
	power     powerReader
	sensors   []*hwmon.Sensor

	hasTSC  bool
	tscFreq float64
}

func NewDevice(source CounterSource, threshold uint64) (*Device, error) {
	errFactory := errors.New()

	topo, err := DetectTopology()
	if err != nil {
		return nil, errFactory.Wrap(ErrTopologyFailed, err)
	}

	d := &Device{
		name:     "CPU",
		vendor:   "Unknown",
		topology: topo,
	}

	if infos, err := pscpu.Info(); err == nil && len(infos) > 0 {
		d.name = strings.TrimSpace(infos[0].ModelName)
		d.vendor = infos[0].VendorID
		d.hasTSC = hasFlag(infos[0].Flags, "tsc")
		if d.hasTSC {
			d.tscFreq = infos[0].Mhz * hertzPerMegahertz
		}
	}

	d.initSensors()
	d.estimator = NewEstimator(source, topo, threshold)

	logger.Info().
		Str("name", d.name).
		Int("cores", topo.CoreCount()).
		Int("threads", topo.LogicalCount()).
		Bool("counters", d.estimator.Available()).
		Msg("Detected CPU")

	// Priming update so sensors carry baseline values right after discovery
	d.Update()

	return d, nil
}

func (d *Device) initSensors() {
	cores := d.topology.CoreCount()
	for c := 0; c < cores; c++ {
		d.sensors = append(d.sensors,
			hwmon.NewSensor(fmt.Sprintf("CPU Core #%d", c+1), hwmon.SensorLoad, c),
			hwmon.NewSensor(fmt.Sprintf("CPU Core #%d", c+1), hwmon.SensorClock, c),
			hwmon.NewSensor(fmt.Sprintf("CPU Core #%d", c+1), hwmon.SensorTemperature, c),
		)
	}
	d.sensors = append(d.sensors,
		hwmon.NewSensor("CPU Total", hwmon.SensorLoad, cores),
		hwmon.NewSensor("CPU Package", hwmon.SensorTemperature, cores),
		hwmon.NewSensor("CPU Package", hwmon.SensorPower, 0),
	)
}

func (d *Device) Name() string               { return d.name }
func (d *Device) Vendor() string             { return d.vendor }
func (d *Device) Type() hwmon.DeviceType     { return hwmon.DeviceCPU }
func (d *Device) Sensors() []*hwmon.Sensor   { return d.sensors }
func (d *Device) Controls() []*hwmon.Control { return nil }

// Update refreshes every owned sensor. A skipped load estimate leaves the
// load sensors untouched; clock and temperature reads that fail leave
// only their own sensor inactive.
func (d *Device) Update() {
	cores := d.topology.CoreCount()

	if perCore, total, ok := d.estimator.Next(); ok {
		for c := 0; c < cores && c < len(perCore); c++ {
			hwmon.Activate(d.sensors, hwmon.SensorLoad, c, perCore[c])
		}
		hwmon.Activate(d.sensors, hwmon.SensorLoad, cores, total)
	}

	d.updateClocks()
	d.updateTemperatures()
	d.updatePower()
}

// Close releases nothing: the CPU device has no controls.
func (d *Device) Close() {}

func (d *Device) Projection() hwmon.Projection {
	cores := d.topology.CoreCount()
	p := hwmon.Projection{
		Name:                      d.name,
		Vendor:                    d.vendor,
		CoreCount:                 cores,
		CoreLoads:                 hwmon.Values(d.sensors, hwmon.SensorLoad, cores),
		CoreClocks:                hwmon.Values(d.sensors, hwmon.SensorClock, cores),
		CoreTemperatures:          hwmon.Values(d.sensors, hwmon.SensorTemperature, cores),
		CorePowers:                make([]float32, cores),
		HasTimeStampCounter:       d.hasTSC,
		TimeStampCounterFrequency: d.tscFreq,
	}

	if s := hwmon.Find(d.sensors, hwmon.SensorLoad, cores); s != nil && s.Active() {
		p.TotalLoad = s.Value()
	}
	if s := hwmon.Find(d.sensors, hwmon.SensorTemperature, cores); s != nil && s.Active() {
		p.PackageTemperature = s.Value()
	}

	return p
}

func (d *Device) updateClocks() {
	infos, err := pscpu.Info()
	if err != nil || len(infos) == 0 {
		return
	}

	for c, threads := range d.topology {
		if len(threads) == 0 || threads[0] >= len(infos) {
			continue
		}
		mhz := infos[threads[0]].Mhz
		if mhz <= 0 {
			continue
		}
		hwmon.Activate(d.sensors, hwmon.SensorClock, c, float32(mhz))
	}
}

func (d *Device) updatePower() {
	if watts, ok := d.power.Read(); ok {
		hwmon.Activate(d.sensors, hwmon.SensorPower, 0, watts)
	}
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}

	return false
}
