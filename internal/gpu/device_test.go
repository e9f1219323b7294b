package gpu

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/hwmond/internal/hwmon"
)

// fakeAPI is a scriptable vendor API. The zero Status value is StatusOK,
// so a fresh fake reports every operation as succeeding; tests flip
// individual statuses to exercise fallbacks and failure handling. Setter
// calls are appended to calls in invocation order.
type fakeAPI struct {
	calls []string

	nameStatus        Status
	temperatureStatus Status
	coreStatus        Status
	coreAltStatus     Status
	memClockStatus    Status
	pstatesStatus     Status
	utilizationStatus Status
	fanCountStatus    Status
	fanSpeedStatus    Status
	fanLimitsStatus   Status
	memoryStatus      Status
	powerStatus       Status
	constraintsStatus Status
	setFanStatus      Status
	setDefaultStatus  Status
	setPowerStatus    Status

	pstateGPU    uint32
	pstateMemory uint32
}

func newFakeAPI() *fakeAPI {
	// NVML-like default: P-state activity is not exported, so the
	// utilization counters are the load source.
	return &fakeAPI{pstatesStatus: StatusNotSupported}
}

func (f *fakeAPI) Supports(op Op) bool {
	if op == OpDynamicPstates {
		return f.pstatesStatus.Supported()
	}
	return true
}

func (f *fakeAPI) Name() (string, Status) { return "FakeGPU", f.nameStatus }

func (f *fakeAPI) Temperature() (uint32, Status) { return 65, f.temperatureStatus }

func (f *fakeAPI) Clock(slot ClockSlot) (uint32, Status) {
	switch slot {
	case ClockCore:
		return 1800, f.coreStatus
	case ClockCoreAlt:
		return 1770, f.coreAltStatus
	default:
		return 7000, f.memClockStatus
	}
}

func (f *fakeAPI) DynamicPstates() (uint32, uint32, Status) {
	return f.pstateGPU, f.pstateMemory, f.pstatesStatus
}

func (f *fakeAPI) UtilizationRates() (uint32, uint32, Status) {
	return 42, 17, f.utilizationStatus
}

func (f *fakeAPI) FanCount() (int, Status)       { return 1, f.fanCountStatus }
func (f *fakeAPI) FanSpeed(int) (uint32, Status) { return 35, f.fanSpeedStatus }

func (f *fakeAPI) FanSpeedLimits() (uint32, uint32, Status) {
	return 30, 100, f.fanLimitsStatus
}

func (f *fakeAPI) SetFanSpeed(index int, percent uint32) Status {
	f.calls = append(f.calls, fmt.Sprintf("SetFanSpeed(%d, %d)", index, percent))
	return f.setFanStatus
}

func (f *fakeAPI) SetDefaultFanSpeed(index int) Status {
	f.calls = append(f.calls, fmt.Sprintf("SetDefaultFanSpeed(%d)", index))
	return f.setDefaultStatus
}

func (f *fakeAPI) MemoryInfo() (uint64, uint64, Status) {
	return 8 << 30, 2 << 30, f.memoryStatus
}

func (f *fakeAPI) PowerUsage() (uint32, Status) { return 120000, f.powerStatus }

func (f *fakeAPI) PowerLimitConstraints() (uint32, uint32, uint32, Status) {
	return 100000, 200000, 150000, f.constraintsStatus
}

func (f *fakeAPI) SetPowerLimit(milliwatts uint32) Status {
	f.calls = append(f.calls, fmt.Sprintf("SetPowerLimit(%d)", milliwatts))
	return f.setPowerStatus
}

func fanControl(t *testing.T, d *Device) *hwmon.Control {
	t.Helper()
	for _, c := range d.Controls() {
		if c.Name != "GPU Power Limit" {
			return c
		}
	}
	t.Fatal("device has no fan control")
	return nil
}

func TestDeviceControlRoundTrip(t *testing.T) {
	api := newFakeAPI()
	d := NewDevice(api)

	require.Len(t, d.Controls(), 2)
	api.calls = nil

	c := fanControl(t, d)
	c.SetSoftware(55)
	assert.Equal(t, hwmon.ModeSoftware, c.Mode())
	require.NotNil(t, c.Sensor)
	assert.True(t, c.Sensor.Active())
	assert.InDelta(t, 55.0, c.Sensor.Value(), 0.001)

	c.Release()
	assert.Equal(t, hwmon.ModeDefault, c.Mode())
	assert.False(t, c.Sensor.Active())

	assert.Equal(t, []string{"SetFanSpeed(0, 55)", "SetDefaultFanSpeed(0)"}, api.calls)
}

func TestDeviceControlClampsToFanLimits(t *testing.T) {
	api := newFakeAPI()
	d := NewDevice(api)
	api.calls = nil

	c := fanControl(t, d)
	c.SetSoftware(10)
	assert.InDelta(t, 30.0, c.SoftwareValue(), 0.001)

	c.SetSoftware(250)
	assert.InDelta(t, 100.0, c.SoftwareValue(), 0.001)

	assert.Equal(t, []string{"SetFanSpeed(0, 30)", "SetFanSpeed(0, 100)"}, api.calls)
}

func TestDeviceCloseReleasesOnlySoftwareControls(t *testing.T) {
	api := newFakeAPI()
	d := NewDevice(api)

	// Fan forced, power limit never touched.
	fanControl(t, d).SetSoftware(70)
	api.calls = nil

	d.Close()

	assert.Equal(t, []string{"SetDefaultFanSpeed(0)"}, api.calls)
}

func TestDevicePowerLimitControl(t *testing.T) {
	api := newFakeAPI()
	d := NewDevice(api)
	api.calls = nil

	var power *hwmon.Control
	for _, c := range d.Controls() {
		if c.Name == "GPU Power Limit" {
			power = c
		}
	}
	require.NotNil(t, power)
	assert.InDelta(t, 100.0, power.Min, 0.001)
	assert.InDelta(t, 200.0, power.Max, 0.001)

	power.SetSoftware(180)
	power.Release()

	assert.Equal(t, []string{"SetPowerLimit(180000)", "SetPowerLimit(150000)"}, api.calls)
}

func TestDeviceUpdateIsBestEffort(t *testing.T) {
	api := newFakeAPI()
	api.temperatureStatus = Status(5)
	d := NewDevice(api)

	temp := hwmon.Find(d.Sensors(), hwmon.SensorTemperature, coreIndex)
	require.NotNil(t, temp)
	assert.False(t, temp.Active())

	load := hwmon.Find(d.Sensors(), hwmon.SensorLoad, coreIndex)
	require.NotNil(t, load)
	assert.True(t, load.Active())
	assert.InDelta(t, 42.0, load.Value(), 0.001)

	st, ok := d.Status(OpTemperature)
	require.True(t, ok)
	assert.Equal(t, Status(5), st)
	assert.Equal(t, "ERROR(5)", st.String())
}

func TestDeviceClockSlotFallback(t *testing.T) {
	api := newFakeAPI()
	api.coreStatus = StatusNotSupported
	d := NewDevice(api)

	clock := hwmon.Find(d.Sensors(), hwmon.SensorClock, coreIndex)
	require.NotNil(t, clock)
	assert.True(t, clock.Active())
	assert.InDelta(t, 1770.0, clock.Value(), 0.001)

	st, ok := d.Status(OpCoreClock)
	require.True(t, ok)
	assert.Equal(t, StatusNotSupported, st)

	st, ok = d.Status(OpCoreClockAlt)
	require.True(t, ok)
	assert.True(t, st.OK())
}

func TestDevicePrefersDynamicPstates(t *testing.T) {
	api := newFakeAPI()
	api.pstatesStatus = StatusOK
	api.pstateGPU = 80
	api.pstateMemory = 60
	d := NewDevice(api)

	core := hwmon.Find(d.Sensors(), hwmon.SensorLoad, coreIndex)
	mem := hwmon.Find(d.Sensors(), hwmon.SensorLoad, memoryIndex)
	require.NotNil(t, core)
	require.NotNil(t, mem)
	assert.InDelta(t, 80.0, core.Value(), 0.001)
	assert.InDelta(t, 60.0, mem.Value(), 0.001)

	// The fallback source is never queried while the preferred one works.
	_, ok := d.Status(OpUtilization)
	assert.False(t, ok)
}

func TestDeviceFallsBackToUtilizationRates(t *testing.T) {
	api := newFakeAPI()
	d := NewDevice(api)

	core := hwmon.Find(d.Sensors(), hwmon.SensorLoad, coreIndex)
	require.NotNil(t, core)
	assert.InDelta(t, 42.0, core.Value(), 0.001)

	st, ok := d.Status(OpDynamicPstates)
	require.True(t, ok)
	assert.Equal(t, StatusNotSupported, st)
}

func TestDeviceScalesPowerAndMemory(t *testing.T) {
	d := NewDevice(newFakeAPI())

	power := hwmon.Find(d.Sensors(), hwmon.SensorPower, 0)
	require.NotNil(t, power)
	assert.InDelta(t, 120.0, power.Value(), 0.001)

	total := hwmon.Find(d.Sensors(), hwmon.SensorSmallData, 0)
	used := hwmon.Find(d.Sensors(), hwmon.SensorSmallData, 1)
	require.NotNil(t, total)
	require.NotNil(t, used)
	assert.InDelta(t, 8192.0, total.Value(), 0.001)
	assert.InDelta(t, 2048.0, used.Value(), 0.001)
}

func TestDeviceProjection(t *testing.T) {
	d := NewDevice(newFakeAPI())

	p := d.Projection()
	assert.Equal(t, "FakeGPU", p.Name)
	assert.Equal(t, "NVIDIA", p.Vendor)
	assert.Equal(t, 1, p.CoreCount)
	require.Len(t, p.CoreLoads, 1)
	assert.InDelta(t, 42.0, p.CoreLoads[0], 0.001)
	assert.InDelta(t, 42.0, p.TotalLoad, 0.001)
	assert.InDelta(t, 65.0, p.PackageTemperature, 0.001)
}

func TestDeviceDiagnostics(t *testing.T) {
	api := newFakeAPI()
	d := NewDevice(api)

	fields := d.Diagnostics()
	require.Len(t, fields, len(Ops))

	byLabel := make(map[string]string, len(fields))
	for _, f := range fields {
		byLabel[f.Label] = f.Status
	}

	assert.Equal(t, "OK", byLabel[OpTemperature.Label()])
	assert.Equal(t, "NOT_SUPPORTED", byLabel[OpDynamicPstates.Label()])
	assert.Equal(t, "OK", byLabel[OpUtilization.Label()])
}
