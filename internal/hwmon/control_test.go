package hwmon_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/hwmond/internal/hwmon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transitionRecorder captures mode transitions the way an owning device
// would translate them into vendor calls.
type transitionRecorder struct {
	calls []string
}

func (r *transitionRecorder) hook(c *hwmon.Control) {
	switch c.Mode() {
	case hwmon.ModeSoftware:
		r.calls = append(r.calls, fmt.Sprintf("set(%g)", c.SoftwareValue()))
	case hwmon.ModeDefault:
		r.calls = append(r.calls, "restore")
	case hwmon.ModeUndefined:
	}
}

func TestControlStartsUndefined(t *testing.T) {
	rec := &transitionRecorder{}
	c := hwmon.NewControl("GPU Fan #1", 0, 0, 100, rec.hook)

	assert.Equal(t, hwmon.ModeUndefined, c.Mode())
	assert.Empty(t, rec.calls, "no policy asserted, no vendor call")
}

func TestControlRoundTrip(t *testing.T) {
	rec := &transitionRecorder{}
	c := hwmon.NewControl("GPU Fan #1", 0, 30, 100, rec.hook)

	c.SetSoftware(55)
	require.Equal(t, hwmon.ModeSoftware, c.Mode())

	c.SetDefault()
	require.Equal(t, hwmon.ModeDefault, c.Mode())

	// Exactly one set-level call followed by exactly one restore call
	assert.Equal(t, []string{"set(55)", "restore"}, rec.calls)
}

func TestControlClampsSoftwareValue(t *testing.T) {
	rec := &transitionRecorder{}
	c := hwmon.NewControl("GPU Fan #1", 0, 30, 100, rec.hook)

	c.SetSoftware(150)
	assert.Equal(t, float32(100), c.SoftwareValue())

	c.SetSoftware(5)
	assert.Equal(t, float32(30), c.SoftwareValue())

	assert.Equal(t, []string{"set(100)", "set(30)"}, rec.calls)
}

func TestControlReportingSensor(t *testing.T) {
	rec := &transitionRecorder{}
	c := hwmon.NewControl("GPU Fan #1", 0, 0, 100, rec.hook)
	c.Sensor = hwmon.NewSensor("GPU Fan #1", hwmon.SensorControl, 0)

	c.SetSoftware(40)
	assert.True(t, c.Sensor.Active())
	assert.Equal(t, float32(40), c.Sensor.Value())

	c.SetDefault()
	assert.False(t, c.Sensor.Active(), "no asserted value under automatic policy")
}

func TestControlReleaseOnlyFiresForSoftwareMode(t *testing.T) {
	rec := &transitionRecorder{}
	c := hwmon.NewControl("GPU Fan #1", 0, 0, 100, rec.hook)

	// Undefined: nothing was asserted, nothing to release
	c.Release()
	assert.Empty(t, rec.calls)

	c.SetSoftware(60)
	c.Release()
	assert.Equal(t, []string{"set(60)", "restore"}, rec.calls)

	// Already back at the automatic policy: releasing again is a no-op
	c.Release()
	assert.Equal(t, []string{"set(60)", "restore"}, rec.calls)
}

func TestRegistryUpdateAndClose(t *testing.T) {
	d1 := &stubDevice{name: "dev1"}
	d2 := &stubDevice{name: "dev2"}
	r := hwmon.NewRegistry()
	r.Add(d1)
	r.Add(d2)

	r.Update()
	r.Update()
	assert.Equal(t, 2, d1.updates)
	assert.Equal(t, 2, d2.updates)

	r.Close()
	assert.Equal(t, 1, d1.closes)
	assert.Equal(t, 1, d2.closes)
	assert.Empty(t, r.Devices())
}

func TestProjectRefreshesDevice(t *testing.T) {
	d := &stubDevice{name: "stub0"}

	p := hwmon.Project(d)
	assert.Equal(t, 1, d.updates, "projection reads a freshly updated device")
	assert.Equal(t, "stub0", p.Name)

	hwmon.Project(d)
	assert.Equal(t, 2, d.updates)
}

type stubDevice struct {
	name    string
	updates int
	closes  int
}

func (d *stubDevice) Name() string               { return d.name }
func (d *stubDevice) Vendor() string             { return "stub" }
func (d *stubDevice) Type() hwmon.DeviceType     { return hwmon.DeviceCPU }
func (d *stubDevice) Sensors() []*hwmon.Sensor   { return nil }
func (d *stubDevice) Controls() []*hwmon.Control { return nil }

func (d *stubDevice) Update() { d.updates++ }
func (d *stubDevice) Close()  { d.closes++ }

func (d *stubDevice) Projection() hwmon.Projection {
	return hwmon.Projection{Name: d.name}
}
