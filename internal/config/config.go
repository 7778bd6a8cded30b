// Package config loads the run configuration for joythm.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/joythm/internal/gesture"
	"github.com/ayusman/joythm/internal/keys"
)

// ErrInvalid is returned when a configuration value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// Defaults.
const (
	DefaultAccelXThreshold = 2500
	DefaultGyroYThreshold  = 2000
	DefaultAirKey          = "space"
	DefaultEmissionPolicy  = "every-sample"
	DefaultScanInterval    = 500 * time.Millisecond
	DefaultTickRate        = 144
)

// Config is the immutable configuration of one run.
type Config struct {
	AccelXThreshold  int           `yaml:"accel_x_threshold"`
	GyroYThreshold   int           `yaml:"gyro_y_threshold"`
	AirKey           string        `yaml:"air_key"`
	DisconnectAtExit bool          `yaml:"disconnect_at_exit"`
	EmissionPolicy   string        `yaml:"emission_policy"`
	ScanInterval     time.Duration `yaml:"scan_interval"`
	ScanTimeout      time.Duration `yaml:"scan_timeout"`
	TickRate         int           `yaml:"tick_rate"`
	StatusAddr       string        `yaml:"status_addr"`
	SettingsDB       string        `yaml:"settings_db"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		AccelXThreshold: DefaultAccelXThreshold,
		GyroYThreshold:  DefaultGyroYThreshold,
		AirKey:          DefaultAirKey,
		EmissionPolicy:  DefaultEmissionPolicy,
		ScanInterval:    DefaultScanInterval,
		TickRate:        DefaultTickRate,
		SettingsDB:      filepath.Join(DataDir(), "joythm.db"),
	}
}

// DataDir returns ~/.joythm, or .joythm if the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".joythm"
	}
	return filepath.Join(home, ".joythm")
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// Load reads a YAML file on top of the defaults. An empty path loads
// DefaultPath if it exists and the defaults otherwise.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.AccelXThreshold < 0 {
		return fmt.Errorf("%w: accel_x_threshold must not be negative", ErrInvalid)
	}
	if c.GyroYThreshold < 0 {
		return fmt.Errorf("%w: gyro_y_threshold must not be negative", ErrInvalid)
	}
	if _, err := keys.ParseKey(c.AirKey); err != nil {
		return fmt.Errorf("%w: air_key: %v", ErrInvalid, err)
	}
	if _, err := keys.ParsePolicy(c.EmissionPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("%w: scan_interval must be positive", ErrInvalid)
	}
	if c.ScanTimeout < 0 {
		return fmt.Errorf("%w: scan_timeout must not be negative", ErrInvalid)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("%w: tick_rate must be positive", ErrInvalid)
	}
	return nil
}

// Classifier returns the gesture classifier for the configured thresholds.
func (c Config) Classifier() gesture.Classifier {
	return gesture.Classifier{AccelX: c.AccelXThreshold, GyroY: c.GyroYThreshold}
}

// Key returns the configured air key. Call Validate first.
func (c Config) Key() keys.KeyCode {
	code, _ := keys.ParseKey(c.AirKey)
	return code
}

// Policy returns the configured emission policy. Call Validate first.
func (c Config) Policy() keys.Policy {
	p, _ := keys.ParsePolicy(c.EmissionPolicy)
	return p
}

// TickInterval returns the monitor loop period.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// SettingKeys lists the keys accepted by ApplySettings.
var SettingKeys = []string{
	"accel_x_threshold",
	"gyro_y_threshold",
	"air_key",
	"disconnect_at_exit",
	"emission_policy",
	"scan_interval",
	"scan_timeout",
	"tick_rate",
	"status_addr",
}

// ApplySettings overrides fields from key/value settings, as stored in the
// settings database. Keys use the YAML names. The result is validated.
func (c Config) ApplySettings(settings map[string]string) (Config, error) {
	for key, value := range settings {
		if err := c.set(key, value); err != nil {
			return c, err
		}
	}
	return c, c.Validate()
}

// CheckSetting reports whether key=value would be accepted by ApplySettings.
func CheckSetting(key, value string) error {
	_, err := Default().ApplySettings(map[string]string{key: value})
	return err
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "accel_x_threshold":
		c.AccelXThreshold, err = strconv.Atoi(value)
	case "gyro_y_threshold":
		c.GyroYThreshold, err = strconv.Atoi(value)
	case "air_key":
		c.AirKey = value
	case "disconnect_at_exit":
		c.DisconnectAtExit, err = strconv.ParseBool(value)
	case "emission_policy":
		c.EmissionPolicy = value
	case "scan_interval":
		c.ScanInterval, err = time.ParseDuration(value)
	case "scan_timeout":
		c.ScanTimeout, err = time.ParseDuration(value)
	case "tick_rate":
		c.TickRate, err = strconv.Atoi(value)
	case "status_addr":
		c.StatusAddr = value
	default:
		return fmt.Errorf("%w: unknown setting %q", ErrInvalid, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return nil
}
