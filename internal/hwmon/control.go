package hwmon

// ControlMode is the asserted policy of an actuator.
type ControlMode int

const (
	// ModeUndefined means no explicit policy has been asserted yet.
	ModeUndefined ControlMode = iota
	// ModeDefault requests the hardware's automatic policy.
	ModeDefault
	// ModeSoftware asserts a caller-supplied value.
	ModeSoftware
)

func (m ControlMode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeSoftware:
		return "software"
	default:
		return "undefined"
	}
}

// TransitionFunc is invoked synchronously by a Control on every mode
// transition. The owning device supplies it and translates ModeSoftware
// into the vendor "set level" command and ModeDefault into the vendor
// "restore automatic" command. There is at most one consumer per control,
// so no listener registry exists.
type TransitionFunc func(c *Control)

// Control is an actuator (fan, power limit) owned by exactly one device.
// Sensor, when set, is a Control-type sensor on the same device that
// reports the asserted value; it is for reporting only.
type Control struct {
	Name   string
	Index  int
	Min    float32
	Max    float32
	Sensor *Sensor

	mode          ControlMode
	softwareValue float32
	transition    TransitionFunc
}

func NewControl(name string, index int, minValue, maxValue float32, fn TransitionFunc) *Control {
	return &Control{
		Name:       name,
		Index:      index,
		Min:        minValue,
		Max:        maxValue,
		transition: fn,
	}
}

func (c *Control) Mode() ControlMode {
	return c.mode
}

// SoftwareValue returns the currently asserted software value. Only
// meaningful while Mode() == ModeSoftware.
func (c *Control) SoftwareValue() float32 {
	return c.softwareValue
}

// SetSoftware asserts a software value, clamped into [Min, Max], and
// fires the transition.
func (c *Control) SetSoftware(v float32) {
	c.softwareValue = c.Clamp(v)
	c.mode = ModeSoftware
	if c.Sensor != nil {
		c.Sensor.SetValue(c.softwareValue)
	}
	c.fire()
}

// SetDefault requests the hardware automatic policy and fires the
// transition.
func (c *Control) SetDefault() {
	c.mode = ModeDefault
	if c.Sensor != nil {
		c.Sensor.Deactivate()
	}
	c.fire()
}

// Release transitions the control back to ModeDefault, but only when a
// non-default policy was asserted. Devices call this from Close() so a
// fan never stays stuck at a forced level after the engine stops.
func (c *Control) Release() {
	if c.mode == ModeSoftware {
		c.SetDefault()
	}
}

func (c *Control) Clamp(v float32) float32 {
	if v < c.Min {
		return c.Min
	}
	if v > c.Max {
		return c.Max
	}

	return v
}

func (c *Control) fire() {
	if c.transition != nil {
		c.transition(c)
	}
}
