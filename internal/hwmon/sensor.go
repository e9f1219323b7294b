package hwmon

// SensorType identifies what a sensor measures and its unit.
type SensorType int

const (
	SensorTemperature SensorType = iota // °C
	SensorLoad                          // %
	SensorClock                         // MHz
	SensorFan                           // %
	SensorControl                       // %, reports a control's asserted value
	SensorPower                         // W
	SensorSmallData                     // MB
)

func (t SensorType) String() string {
	switch t {
	case SensorTemperature:
		return "temperature"
	case SensorLoad:
		return "load"
	case SensorClock:
		return "clock"
	case SensorFan:
		return "fan"
	case SensorControl:
		return "control"
	case SensorPower:
		return "power"
	case SensorSmallData:
		return "smalldata"
	default:
		return "unknown"
	}
}

// Sensor is a single named, typed, indexed telemetry value. A sensor is
// exclusively owned by one device and lives as long as the device does.
// Index disambiguates sensors of the same type on one device (core 0 load
// vs core 1 load). A sensor stays inactive until its first value is
// written; an inactive sensor has no meaningful value.
type Sensor struct {
	Name  string
	Type  SensorType
	Index int

	value  float32
	active bool
}

func NewSensor(name string, t SensorType, index int) *Sensor {
	return &Sensor{Name: name, Type: t, Index: index}
}

func (s *Sensor) Value() float32 {
	return s.value
}

func (s *Sensor) Active() bool {
	return s.active
}

// SetValue writes a new value and activates the sensor.
func (s *Sensor) SetValue(v float32) {
	s.value = v
	s.active = true
}

// Deactivate marks the sensor as having no current value. The last value
// is kept for callers that want the stale reading anyway.
func (s *Sensor) Deactivate() {
	s.active = false
}

// Activate writes v into the sensor of the given type and index,
// activating it if it was inactive. Sensors the device never created are
// ignored. This is the shared activation path for every device variant.
func Activate(sensors []*Sensor, t SensorType, index int, v float32) {
	if s := Find(sensors, t, index); s != nil {
		s.SetValue(v)
	}
}

// Find returns the sensor with the given type and index, or nil.
func Find(sensors []*Sensor, t SensorType, index int) *Sensor {
	for _, s := range sensors {
		if s.Type == t && s.Index == index {
			return s
		}
	}

	return nil
}

// Values returns the values of the active sensors of the given type with
// index below count, in index order. Inactive or missing sensors are
// reported as 0.
func Values(sensors []*Sensor, t SensorType, count int) []float32 {
	vals := make([]float32, count)
	for i := 0; i < count; i++ {
		if s := Find(sensors, t, i); s != nil && s.Active() {
			vals[i] = s.Value()
		}
	}

	return vals
}
