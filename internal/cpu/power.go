package cpu

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	raplEnergyPath      = "/sys/class/powercap/intel-rapl/intel-rapl:0/energy_uj"
	microjoulesPerJoule = 1e6
	microwattsPerWatt   = 1e6
)

// Hwmon chip names that report CPU package power.
var powerChipNames = []string{
	"zenpower",
	"zenpower3",
	"amd_smu",
	"ryzen_smu",
	"rapl",
	"intel-rapl",
	"intel-rapl-msr",
}

// powerReader derives the CPU package power draw in watts, best-effort.
// The RAPL energy counter is cumulative, so the first read only primes
// the baseline; hosts without RAPL fall back to an hwmon power input.
type powerReader struct {
	lastEnergy uint64
	lastTime   time.Time
}

func (r *powerReader) Read() (float32, bool) {
	if watts, ok := r.readRAPL(); ok {
		return watts, true
	}

	return readHwmonPower()
}

func (r *powerReader) readRAPL() (float32, bool) {
	b, err := os.ReadFile(raplEnergyPath)
	if err != nil {
		return 0, false
	}

	energy, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, false
	}

	now := time.Now()
	// Prime on the first read, re-prime after a counter wrap
	if r.lastTime.IsZero() || energy < r.lastEnergy {
		r.lastEnergy = energy
		r.lastTime = now
		return 0, false
	}

	deltaEnergy := float64(energy - r.lastEnergy)
	deltaTime := now.Sub(r.lastTime).Seconds()
	r.lastEnergy = energy
	r.lastTime = now

	if deltaTime <= 0 {
		return 0, false
	}

	return float32(deltaEnergy / microjoulesPerJoule / deltaTime), true
}

func readHwmonPower() (float32, bool) {
	matches, _ := filepath.Glob("/sys/class/hwmon/hwmon*/power1_input")
	for _, path := range matches {
		name, err := os.ReadFile(filepath.Join(filepath.Dir(path), "name"))
		if err != nil {
			continue
		}
		if !isPowerChip(strings.TrimSpace(string(name))) {
			continue
		}

		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		microwatts, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		if err != nil {
			continue
		}

		return float32(microwatts / microwattsPerWatt), true
	}

	return 0, false
}

func isPowerChip(name string) bool {
	for _, chip := range powerChipNames {
		if strings.Contains(name, chip) {
			return true
		}
	}

	return false
}
