// Package config loads and validates the ransched configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (RANSCHED_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/marmos91/ransched/pkg/sched"
)

// Config represents the full ransched configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics"`

	// API contains admin API server configuration
	API APIConfig `mapstructure:"api"`

	// Scheduler contains the MAC scheduler and cell configuration
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
	Output string `mapstructure:"output"`
}

// TelemetryConfig controls tracing and profiling.
type TelemetryConfig struct {
	Enabled    bool            `mapstructure:"enabled"`
	Endpoint   string          `mapstructure:"endpoint"`
	Insecure   bool            `mapstructure:"insecure"`
	SampleRate float64         `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Profiling  ProfilingConfig `mapstructure:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Endpoint     string   `mapstructure:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// APIConfig controls the admin API server.
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// SchedulerConfig holds the MAC scheduler knobs and the cell list.
type SchedulerConfig struct {
	// ConcurrentSlots is how many slot contexts may overlap (1 = strictly
	// serial slot processing).
	ConcurrentSlots int `mapstructure:"concurrent_slots" validate:"min=1,max=4"`

	// MaxRetx is the HARQ retransmission budget per transport block.
	MaxRetx uint32 `mapstructure:"max_retx" validate:"min=1,max=16"`

	// Cells lists the carriers served by this scheduler, in cell index
	// order.
	Cells []CellConfig `mapstructure:"cells" validate:"min=1,max=16,dive"`
}

// CellConfig describes one carrier.
type CellConfig struct {
	// NumPRB is the carrier bandwidth in resource blocks.
	NumPRB uint32 `mapstructure:"num_prb" validate:"min=1,max=275"`

	// SCSKHz is the subcarrier spacing in kHz.
	SCSKHz uint32 `mapstructure:"scs_khz" validate:"oneof=15 30 60 120"`

	// RBGSize overrides the nominal resource block group size (0 derives it).
	RBGSize uint32 `mapstructure:"rbg_size" validate:"oneof=0 2 4 8 16"`

	// PDCCHCandidates[i] is the number of control channel candidates at
	// aggregation level 1<<i.
	PDCCHCandidates []uint8 `mapstructure:"pdcch_candidates" validate:"max=5"`
}

// SchedConfig converts the scheduler section into the sched package config.
func (c *Config) SchedConfig() sched.Config {
	return sched.Config{
		ConcurrentSlots: c.Scheduler.ConcurrentSlots,
		MaxRetx:         c.Scheduler.MaxRetx,
	}
}

// CellConfigs converts the cell list into sched cell configurations.
func (c *Config) CellConfigs() []sched.CellConfig {
	out := make([]sched.CellConfig, 0, len(c.Scheduler.Cells))
	for _, cell := range c.Scheduler.Cells {
		sc := sched.CellConfig{
			NumPRB:  cell.NumPRB,
			SCSKHz:  cell.SCSKHz,
			RBGSize: cell.RBGSize,
		}
		for i, n := range cell.PDCCHCandidates {
			if i < len(sc.PDCCH.NumCandidates) {
				sc.PDCCH.NumCandidates[i] = n
			}
		}
		out = append(out, sc)
	}
	return out
}

// Load reads the configuration from the given file path (or the default
// location when empty), applies environment overrides, and validates the
// result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RANSCHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = GetDefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against the struct constraints plus the
// cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for i, cell := range cfg.Scheduler.Cells {
		total := 0
		for _, n := range cell.PDCCHCandidates {
			total += int(n)
		}
		if len(cell.PDCCHCandidates) > 0 && total == 0 {
			return fmt.Errorf("invalid configuration: cell %d: pdcch_candidates sums to zero", i)
		}
	}
	return nil
}

// GetDefaultConfigPath returns $XDG_CONFIG_HOME/ransched/config.yaml,
// falling back to ~/.config.
func GetDefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "ransched", "config.yaml")
}

// DefaultConfigExists reports whether a config file is present at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
