package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/hwmond/internal/hwmon"
)

// Collector defines the core domain interface
type Collector interface {
	Record(ctx context.Context, samples []Sample) error
	Close() error
}

// Repository defines the interface for sample storage
type Repository interface {
	Store(ctx context.Context, samples []Sample) error
	Close() error
}

// Sample is one active sensor reading at one instant.
type Sample struct {
	Timestamp time.Time
	Device    string
	Sensor    string
	Type      string
	Index     int
	Value     float64
}

// Flatten turns the active sensors of a device into samples. Inactive
// sensors carry no current value and are skipped.
func Flatten(ts time.Time, d hwmon.Device) []Sample {
	sensors := d.Sensors()
	samples := make([]Sample, 0, len(sensors))
	for _, s := range sensors {
		if !s.Active() {
			continue
		}
		samples = append(samples, Sample{
			Timestamp: ts,
			Device:    d.Name(),
			Sensor:    s.Name,
			Type:      s.Type.String(),
			Index:     s.Index,
			Value:     float64(s.Value()),
		})
	}

	return samples
}
