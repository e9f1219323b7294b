package hwmon_test

import (
	"testing"

	"codeberg.org/mutker/hwmond/internal/hwmon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorActivationInvariant(t *testing.T) {
	s := hwmon.NewSensor("CPU Core #1", hwmon.SensorLoad, 0)

	assert.False(t, s.Active(), "a fresh sensor carries no value")

	s.SetValue(42.5)
	assert.True(t, s.Active())
	assert.Equal(t, float32(42.5), s.Value())

	s.Deactivate()
	assert.False(t, s.Active())
	assert.Equal(t, float32(42.5), s.Value(), "last value survives deactivation")
}

func TestActivateWritesMatchingSensor(t *testing.T) {
	sensors := []*hwmon.Sensor{
		hwmon.NewSensor("CPU Core #1", hwmon.SensorLoad, 0),
		hwmon.NewSensor("CPU Core #2", hwmon.SensorLoad, 1),
		hwmon.NewSensor("CPU Core #1", hwmon.SensorClock, 0),
	}

	hwmon.Activate(sensors, hwmon.SensorLoad, 1, 73)

	s := hwmon.Find(sensors, hwmon.SensorLoad, 1)
	require.NotNil(t, s)
	assert.True(t, s.Active())
	assert.Equal(t, float32(73), s.Value())

	// Siblings of other types or indices stay untouched
	assert.False(t, hwmon.Find(sensors, hwmon.SensorLoad, 0).Active())
	assert.False(t, hwmon.Find(sensors, hwmon.SensorClock, 0).Active())
}

func TestActivateIgnoresMissingSensor(t *testing.T) {
	sensors := []*hwmon.Sensor{
		hwmon.NewSensor("CPU Core #1", hwmon.SensorLoad, 0),
	}

	// A device may report more cores than sensors were created for
	hwmon.Activate(sensors, hwmon.SensorLoad, 7, 50)
	assert.False(t, sensors[0].Active())
}

func TestValues(t *testing.T) {
	sensors := []*hwmon.Sensor{
		hwmon.NewSensor("CPU Core #1", hwmon.SensorLoad, 0),
		hwmon.NewSensor("CPU Core #2", hwmon.SensorLoad, 1),
		hwmon.NewSensor("CPU Core #3", hwmon.SensorLoad, 2),
	}
	sensors[0].SetValue(10)
	sensors[2].SetValue(30)

	vals := hwmon.Values(sensors, hwmon.SensorLoad, 3)
	assert.Equal(t, []float32{10, 0, 30}, vals, "inactive sensors read as zero")
}
