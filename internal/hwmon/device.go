package hwmon

// DeviceType is the closed set of hardware device variants.
type DeviceType int

const (
	DeviceCPU DeviceType = iota
	DeviceGPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceCPU:
		return "cpu"
	case DeviceGPU:
		return "gpu"
	default:
		return "unknown"
	}
}

// Device is a monitored hardware component owning a set of sensors and
// controls.
//
// Update refreshes every owned sensor from the vendor API or the load
// estimator. It never fails: a query that cannot produce a value leaves
// its sensor stale or inactive and the siblings keep updating.
//
// Close releases every control still asserting a software value back to
// the hardware automatic policy and detaches from the vendor API. After
// Close the device must not be updated again.
//
// Callers serialize Update calls per device; there is no locking inside.
type Device interface {
	Name() string
	Vendor() string
	Type() DeviceType
	Sensors() []*Sensor
	Controls() []*Control
	Update()
	Close()
	Projection() Projection
}

// Projection is the read-only per-device view consumed by the
// presentation layer. Slices are freshly allocated per call; mutating
// them has no effect on the device.
type Projection struct {
	Name                      string
	Vendor                    string
	BusClock                  float32
	CoreTemperatures          []float32
	CorePowers                []float32
	CoreClocks                []float32
	CoreLoads                 []float32
	CoreCount                 int
	TotalLoad                 float32
	HasTimeStampCounter       bool
	PackageTemperature        float32
	TimeStampCounterFrequency float64
}

// Project refreshes the device and returns its presentation view.
func Project(d Device) Projection {
	d.Update()
	return d.Projection()
}
