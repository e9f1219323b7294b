package hwmon

import "codeberg.org/mutker/hwmond/internal/logger"

// Registry holds the discovered devices in discovery order and drives
// them from the polling loop. One polling goroutine owns the registry;
// it is not safe for concurrent use.
type Registry struct {
	devices []Device
}

func NewRegistry(devices ...Device) *Registry {
	return &Registry{devices: devices}
}

func (r *Registry) Add(d Device) {
	r.devices = append(r.devices, d)
	logger.Debug().
		Str("device", d.Name()).
		Str("type", d.Type().String()).
		Int("sensors", len(d.Sensors())).
		Int("controls", len(d.Controls())).
		Msg("Device registered")
}

func (r *Registry) Devices() []Device {
	return r.devices
}

// Update refreshes every registered device once, in order.
func (r *Registry) Update() {
	for _, d := range r.devices {
		d.Update()
	}
}

// Close closes every device, releasing any software-controlled actuator
// back to automatic mode.
func (r *Registry) Close() {
	for _, d := range r.devices {
		d.Close()
	}
	r.devices = nil
}
