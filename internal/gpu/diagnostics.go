package gpu

import (
	"fmt"

	"codeberg.org/mutker/hwmond/internal/hwmon"
	"codeberg.org/mutker/hwmond/internal/report"
)

// Diagnostics dumps the raw status of every vendor operation plus the
// current reading where one exists.
func (d *Device) Diagnostics() []report.Field {
	fields := make([]report.Field, 0, len(Ops))
	for _, op := range Ops {
		status := "NOT_QUERIED"
		if st, ok := d.status[op]; ok {
			status = st.String()
		} else if !d.api.Supports(op) {
			status = StatusNotSupported.String()
		}

		fields = append(fields, report.Field{
			Label:  op.Label(),
			Status: status,
			Value:  d.diagnosticValue(op),
		})
	}

	return fields
}

func (d *Device) diagnosticValue(op Op) string {
	sensorValue := func(t hwmon.SensorType, index int, unit string) string {
		if s := hwmon.Find(d.sensors, t, index); s != nil && s.Active() {
			return fmt.Sprintf("%.0f %s", s.Value(), unit)
		}
		return ""
	}

	switch op {
	case OpName:
		return d.name
	case OpTemperature:
		return sensorValue(hwmon.SensorTemperature, coreIndex, "C")
	case OpCoreClock, OpCoreClockAlt:
		return sensorValue(hwmon.SensorClock, coreIndex, "MHz")
	case OpMemoryClock:
		return sensorValue(hwmon.SensorClock, memoryIndex, "MHz")
	case OpDynamicPstates, OpUtilization:
		return sensorValue(hwmon.SensorLoad, coreIndex, "%")
	case OpFanCount:
		return fmt.Sprintf("%d", d.fanCount)
	case OpFanSpeed:
		return sensorValue(hwmon.SensorFan, 0, "%")
	case OpMemoryInfo:
		return sensorValue(hwmon.SensorSmallData, 1, "MB used")
	case OpPowerUsage:
		return sensorValue(hwmon.SensorPower, 0, "W")
	default:
		return ""
	}
}
