package cpu

import (
	"fmt"

	"codeberg.org/mutker/hwmond/internal/hwmon"
	"codeberg.org/mutker/hwmond/internal/report"
)

// Diagnostics dumps the availability of the counter source and the
// detected topology.
func (d *Device) Diagnostics() []report.Field {
	counterStatus := "OK"
	if !d.estimator.Available() {
		counterStatus = "UNAVAILABLE"
	}

	tscStatus := "ABSENT"
	tscValue := ""
	if d.hasTSC {
		tscStatus = "OK"
		tscValue = fmt.Sprintf("%.0f Hz", d.tscFreq)
	}

	powerStatus := "UNAVAILABLE"
	powerValue := ""
	if s := hwmon.Find(d.sensors, hwmon.SensorPower, 0); s != nil && s.Active() {
		powerStatus = "OK"
		powerValue = fmt.Sprintf("%.1f W", s.Value())
	}

	return []report.Field{
		{Label: "Counter source", Status: counterStatus},
		{Label: "Physical cores", Status: "OK", Value: fmt.Sprintf("%d", d.topology.CoreCount())},
		{Label: "Logical processors", Status: "OK", Value: fmt.Sprintf("%d", d.topology.LogicalCount())},
		{Label: "Time stamp counter", Status: tscStatus, Value: tscValue},
		{Label: "Package power", Status: powerStatus, Value: powerValue},
	}
}
