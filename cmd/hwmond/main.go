package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/hwmond/internal/config"
	"codeberg.org/mutker/hwmond/internal/cpu"
	"codeberg.org/mutker/hwmond/internal/gpu"
	"codeberg.org/mutker/hwmond/internal/hwmon"
	"codeberg.org/mutker/hwmond/internal/logger"
	"codeberg.org/mutker/hwmond/internal/pid"
	"codeberg.org/mutker/hwmond/internal/report"
	"codeberg.org/mutker/hwmond/internal/telemetry"
)

var (
	cfg        *config.Config
	registry   *hwmon.Registry
	collector  telemetry.Collector
	gpuControl *gpu.Controller
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	cfg.ApplyLogLevel()
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer pid.Remove()

	registry = hwmon.NewRegistry()
	if err := discoverDevices(); err != nil {
		logger.Fatal().Err(err).Msg("failed to discover devices")
	}

	var err error
	collector, err = telemetry.NewService(telemetry.Config{
		DBPath:  cfg.Database,
		Enabled: cfg.Telemetry,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := loop(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	cleanup()
}

// discoverDevices builds the device list once at startup. The CPU device
// is always registered, even when its counter source is unavailable; an
// absent or driverless GPU is skipped.
func discoverDevices() error {
	cpuDevice, err := cpu.NewDevice(cpu.NewSystemSource(), cfg.DeltaThreshold)
	if err != nil {
		return err
	}
	registry.Add(cpuDevice)

	if !cfg.GPU {
		return nil
	}

	gpuControl = gpu.NewController()
	if err := gpuControl.Initialize(); err != nil {
		logger.Warn().Err(err).Msg("GPU driver unavailable, skipping GPU monitoring")
		gpuControl = nil
		return nil
	}

	apis, err := gpuControl.APIs()
	if err != nil {
		logger.Warn().Err(err).Msg("GPU enumeration failed, skipping GPU monitoring")
		return nil
	}
	for _, api := range apis {
		registry.Add(gpu.NewDevice(api))
	}

	return nil
}

func loop(ctx context.Context) error {
	interval := time.Duration(cfg.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reportRequests := make(chan os.Signal, 1)
	signal.Notify(reportRequests, syscall.SIGUSR1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reportRequests:
			writeDiagnosticReport()
		case <-ticker.C:
			registry.Update()
			recordSamples(ctx)
			logDeviceState()
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup() {
	// Close releases every software-forced control back to automatic mode
	registry.Close()

	if gpuControl != nil {
		if err := gpuControl.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown GPU driver")
		}
	}

	if err := collector.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close telemetry")
	}

	logger.Info().Msg("Exiting...")
}

func recordSamples(ctx context.Context) {
	now := time.Now()
	for _, d := range registry.Devices() {
		if err := collector.Record(ctx, telemetry.Flatten(now, d)); err != nil {
			logger.Warn().Err(err).Str("device", d.Name()).Msg("failed to record telemetry")
		}
	}
}

func writeDiagnosticReport() {
	for _, d := range registry.Devices() {
		r, ok := d.(report.Reporter)
		if !ok {
			continue
		}
		if err := report.Write(os.Stdout, d.Name(), r.Diagnostics()); err != nil {
			logger.Error().Err(err).Msg("failed to write diagnostic report")
			return
		}
	}
}

func logDeviceState() {
	if !cfg.Debug && !cfg.Verbose {
		return
	}

	for _, d := range registry.Devices() {
		p := hwmon.Project(d)
		logger.Info().
			Str("device", p.Name).
			Str("vendor", p.Vendor).
			Int("cores", p.CoreCount).
			Floats32("core_loads", p.CoreLoads).
			Float32("total_load", p.TotalLoad).
			Float32("package_temperature", p.PackageTemperature).
			Msg("")
	}
}
