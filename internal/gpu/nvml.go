package gpu

import (
	"codeberg.org/mutker/hwmond/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// Controller manages the NVML library lifecycle and device enumeration.
type Controller struct {
	initialized bool
}

func NewController() *Controller {
	return &Controller{}
}

func (c *Controller) Initialize() error {
	errFactory := errors.New()
	if c.initialized {
		return nil
	}

	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return errFactory.Wrap(ErrInitFailed, newNVMLError(ret))
	}

	c.initialized = true

	return nil
}

func (c *Controller) Shutdown() error {
	errFactory := errors.New()
	if !c.initialized {
		return nil
	}

	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return errFactory.Wrap(ErrShutdownFailed, newNVMLError(ret))
	}

	c.initialized = false

	return nil
}

// APIs returns one vendor API per installed device.
func (c *Controller) APIs() ([]API, error) {
	errFactory := errors.New()
	if !c.initialized {
		return nil, errFactory.New(ErrNotInitialized)
	}

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, errFactory.Wrap(ErrDeviceCountFailed, newNVMLError(ret))
	}

	apis := make([]API, 0, count)
	for i := 0; i < count; i++ {
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			return nil, errFactory.Wrap(ErrDeviceNotFound, newNVMLError(ret))
		}
		apis = append(apis, newNVMLAPI(device))
	}

	return apis, nil
}

// nvmlError represents an NVML-specific error
type nvmlError struct {
	ret nvml.Return
}

func (e *nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

func newNVMLError(ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	return &nvmlError{ret: ret}
}

// statusOf maps an NVML return code onto the vendor Status space.
func statusOf(ret nvml.Return) Status {
	switch ret {
	case nvml.SUCCESS:
		return StatusOK
	case nvml.ERROR_NOT_SUPPORTED, nvml.ERROR_FUNCTION_NOT_FOUND:
		return StatusNotSupported
	default:
		return Status(int(ret))
	}
}

// nvmlAPI adapts one NVML device handle to the vendor API. Read
// operations are probed once at construction to answer Supports; fan
// control support is inferred from the fan count rather than probed,
// since probing a setter would move the fans.
type nvmlAPI struct {
	device nvml.Device
	caps   map[Op]bool
}

func newNVMLAPI(device nvml.Device) API {
	a := &nvmlAPI{
		device: device,
		caps:   make(map[Op]bool, len(Ops)),
	}
	a.probe()

	return a
}

func (a *nvmlAPI) probe() {
	_, st := a.Name()
	a.caps[OpName] = st.Supported()
	_, st = a.Temperature()
	a.caps[OpTemperature] = st.Supported()
	_, st = a.Clock(ClockCore)
	a.caps[OpCoreClock] = st.Supported()
	_, st = a.Clock(ClockCoreAlt)
	a.caps[OpCoreClockAlt] = st.Supported()
	_, st = a.Clock(ClockMemory)
	a.caps[OpMemoryClock] = st.Supported()
	_, _, st = a.DynamicPstates()
	a.caps[OpDynamicPstates] = st.Supported()
	_, _, st = a.UtilizationRates()
	a.caps[OpUtilization] = st.Supported()
	count, st := a.FanCount()
	a.caps[OpFanCount] = st.Supported()
	a.caps[OpFanSpeed] = false
	if st.OK() && count > 0 {
		_, st = a.FanSpeed(0)
		a.caps[OpFanSpeed] = st.Supported()
	}
	a.caps[OpFanControl] = a.caps[OpFanSpeed]
	_, _, st = a.MemoryInfo()
	a.caps[OpMemoryInfo] = st.Supported()
	_, st = a.PowerUsage()
	a.caps[OpPowerUsage] = st.Supported()
	_, _, _, st = a.PowerLimitConstraints()
	a.caps[OpPowerLimit] = st.Supported()
}

func (a *nvmlAPI) Supports(op Op) bool {
	return a.caps[op]
}

func (a *nvmlAPI) Name() (string, Status) {
	name, ret := a.device.GetName()
	return name, statusOf(ret)
}

func (a *nvmlAPI) Temperature() (uint32, Status) {
	temp, ret := a.device.GetTemperature(nvml.TEMPERATURE_GPU)
	return temp, statusOf(ret)
}

func (a *nvmlAPI) Clock(slot ClockSlot) (uint32, Status) {
	var clockType nvml.ClockType
	switch slot {
	case ClockCore:
		clockType = nvml.CLOCK_GRAPHICS
	case ClockCoreAlt:
		clockType = nvml.CLOCK_SM
	case ClockMemory:
		clockType = nvml.CLOCK_MEM
	default:
		return 0, StatusNotSupported
	}

	clock, ret := a.device.GetClockInfo(clockType)

	return clock, statusOf(ret)
}

// DynamicPstates has no NVML equivalent; the P-state activity
// percentages are an NVAPI-only surface. Callers fall back to
// UtilizationRates.
func (a *nvmlAPI) DynamicPstates() (uint32, uint32, Status) {
	return 0, 0, StatusNotSupported
}

func (a *nvmlAPI) UtilizationRates() (uint32, uint32, Status) {
	util, ret := a.device.GetUtilizationRates()
	return util.Gpu, util.Memory, statusOf(ret)
}

func (a *nvmlAPI) FanCount() (int, Status) {
	count, ret := a.device.GetNumFans()
	return count, statusOf(ret)
}

func (a *nvmlAPI) FanSpeed(index int) (uint32, Status) {
	speed, ret := a.device.GetFanSpeed_v2(index)
	return speed, statusOf(ret)
}

func (a *nvmlAPI) FanSpeedLimits() (uint32, uint32, Status) {
	minSpeed, maxSpeed, ret := a.device.GetMinMaxFanSpeed()
	if ret != nvml.SUCCESS {
		return 0, 0, statusOf(ret)
	}

	//nolint:gosec // G115: NVML reports percentages
	return uint32(minSpeed), uint32(maxSpeed), StatusOK
}

func (a *nvmlAPI) SetFanSpeed(index int, percent uint32) Status {
	return statusOf(nvml.DeviceSetFanSpeed_v2(a.device, index, int(percent)))
}

func (a *nvmlAPI) SetDefaultFanSpeed(index int) Status {
	return statusOf(nvml.DeviceSetDefaultFanSpeed_v2(a.device, index))
}

func (a *nvmlAPI) MemoryInfo() (uint64, uint64, Status) {
	info, ret := a.device.GetMemoryInfo()
	return info.Total, info.Used, statusOf(ret)
}

func (a *nvmlAPI) PowerUsage() (uint32, Status) {
	power, ret := a.device.GetPowerUsage()
	return power, statusOf(ret)
}

func (a *nvmlAPI) PowerLimitConstraints() (uint32, uint32, uint32, Status) {
	minLimit, maxLimit, ret := a.device.GetPowerManagementLimitConstraints()
	if ret != nvml.SUCCESS {
		return 0, 0, 0, statusOf(ret)
	}

	defaultLimit, ret := a.device.GetPowerManagementDefaultLimit()
	if ret != nvml.SUCCESS {
		return 0, 0, 0, statusOf(ret)
	}

	return minLimit, maxLimit, defaultLimit, StatusOK
}

func (a *nvmlAPI) SetPowerLimit(milliwatts uint32) Status {
	return statusOf(a.device.SetPowerManagementLimit(milliwatts))
}
