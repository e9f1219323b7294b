package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/hwmond/internal/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultInterval       = 2
	DefaultDeltaThreshold = 100000
	DefaultLogLevel       = "warning"

	defaultDatabase = "/var/lib/hwmond/telemetry.db"
)

// Config holds the runtime configuration of the monitoring daemon.
// DeltaThreshold is the minimum busy-time delta (in 100ns counter units)
// per logical processor below which a load estimate is skipped.
type Config struct {
	Interval       int    `mapstructure:"interval"`
	DeltaThreshold uint64 `mapstructure:"deltathreshold"`
	GPU            bool   `mapstructure:"gpu"`
	Telemetry      bool   `mapstructure:"telemetry"`
	Database       string `mapstructure:"database"`
	LogLevel       string `mapstructure:"log_level"`
	Debug          bool   `mapstructure:"debug"`
	Verbose        bool   `mapstructure:"verbose"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("deltathreshold", DefaultDeltaThreshold)
	v.SetDefault("gpu", true)
	v.SetDefault("telemetry", false)
	v.SetDefault("database", defaultDatabase)
	v.SetDefault("log_level", DefaultLogLevel)

	flags := pflag.NewFlagSet("hwmond", pflag.ContinueOnError)
	flags.Int("interval", DefaultInterval, "Seconds between device updates")
	flags.Uint64("deltathreshold", DefaultDeltaThreshold, "Minimum busy-time delta (100ns units) required for a load estimate")
	flags.Bool("gpu", true, "Enable GPU monitoring")
	flags.Bool("telemetry", false, "Enable telemetry recording")
	flags.String("database", defaultDatabase, "Path to the telemetry database")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// Config file: explicit override via env, /etc by default
	if path := os.Getenv("HWMOND_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("hwmond.conf")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
		}
	}

	// Command line flags override file values
	flags.Visit(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		v.Set(key, f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.ApplyLogLevel()

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}

	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Telemetry && c.Database == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "telemetry enabled without a database path")
	}

	return nil
}

// ApplyLogLevel sets the global log level from the config. logger.Init
// resets the level to its own default, so the daemon re-applies the
// configured level after initializing the logger.
func (c *Config) ApplyLogLevel() {
	if c.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	if c.Verbose {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}

	switch c.LogLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
