package cpu

import (
	"strconv"
	"strings"

	"codeberg.org/mutker/hwmond/internal/hwmon"
	"github.com/shirou/gopsutil/v3/host"
)

// Chip prefixes that report CPU die temperatures.
var packageTempKeys = []string{
	"coretemp_package",
	"k10temp_tctl",
	"k10temp_tdie",
	"zenpower_tdie",
	"zenpower_tctl",
}

// updateTemperatures refreshes the per-core and package temperature
// sensors from the host sensor tree. Everything is best-effort: hosts
// without a known CPU temperature chip simply keep these sensors
// inactive.
func (d *Device) updateTemperatures() {
	temps, err := host.SensorsTemperatures()
	if err != nil || len(temps) == 0 {
		return
	}

	cores := d.topology.CoreCount()
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)

		if core, ok := coreIndexFromKey(key); ok && core < cores {
			hwmon.Activate(d.sensors, hwmon.SensorTemperature, core, float32(t.Temperature))
			continue
		}

		for _, prefix := range packageTempKeys {
			if strings.HasPrefix(key, prefix) {
				hwmon.Activate(d.sensors, hwmon.SensorTemperature, cores, float32(t.Temperature))
				break
			}
		}
	}
}

// coreIndexFromKey extracts N from keys of the form "coretemp_core_N".
func coreIndexFromKey(key string) (int, bool) {
	const prefix = "coretemp_core_"
	if !strings.HasPrefix(key, prefix) {
		return 0, false
	}

	rest := key[len(prefix):]
	if i := strings.IndexByte(rest, '_'); i >= 0 {
		rest = rest[:i]
	}

	core, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}

	return core, true
}
