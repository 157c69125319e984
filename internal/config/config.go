// Package config loads the YAML configuration for the KEBA P30 tool.
//
// Example:
//
//	device:
//	  host: 192.168.2.1
//	current:
//	  default: 6
//	  medium: 11
//	  max: 16
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModbusPort    = 502
	DefaultReportPort    = 7090
	DefaultUnitID        = 1
	DefaultTimeout       = "5s"
	DefaultDriver        = "simonvetter"
	maxRegisterMilliamps = 0xFFFF
)

var (
	ErrMissingHost   = errors.New("device host is not configured")
	ErrInvalidPreset = errors.New("invalid current preset")
)

// Preset names a configured ampere value.
type Preset string

const (
	PresetDefault Preset = "default"
	PresetMedium  Preset = "medium"
	PresetMax     Preset = "max"
)

// DeviceConfig describes how to reach the station over Modbus-TCP.
type DeviceConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	UnitID  uint8  `yaml:"unitId"`
	Timeout string `yaml:"timeout"` // e.g. "5s"
	Driver  string `yaml:"driver"`  // simonvetter or aldas
}

// CurrentConfig holds the ampere presets.
type CurrentConfig struct {
	Default int `yaml:"default"`
	Medium  int `yaml:"medium"`
	Max     int `yaml:"max"`
}

// ReportConfig describes the UDP report endpoint.
type ReportConfig struct {
	Port      int    `yaml:"port"`
	LocalPort int    `yaml:"localPort"` // negative picks an ephemeral port
	Timeout   string `yaml:"timeout"`   // empty or "0s" waits forever
}

// Config is built once at startup and handed to every action.
type Config struct {
	Device      DeviceConfig  `yaml:"device"`
	Current     CurrentConfig `yaml:"current"`
	Report      ReportConfig  `yaml:"report"`
	StatsServer string        `yaml:"statsServer"`
	PauseOnExit *bool         `yaml:"pauseOnExit"` // defaults to true

	timeout       time.Duration
	reportTimeout time.Duration
}

// Load reads and validates the configuration file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data, fills in defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var conf Config
	err := yaml.Unmarshal(data, &conf)
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Set defaults
	conf.Device.Port = withDefault(conf.Device.Port, DefaultModbusPort)
	conf.Device.UnitID = withDefault(conf.Device.UnitID, DefaultUnitID)
	conf.Device.Timeout = withDefault(conf.Device.Timeout, DefaultTimeout)
	conf.Device.Driver = withDefault(conf.Device.Driver, DefaultDriver)
	conf.Report.Port = withDefault(conf.Report.Port, DefaultReportPort)
	conf.Report.LocalPort = withDefault(conf.Report.LocalPort, DefaultReportPort)

	if conf.Device.Host == "" {
		return nil, ErrMissingHost
	}
	conf.timeout, err = time.ParseDuration(conf.Device.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid device timeout format: %w", err)
	}
	if conf.Report.Timeout != "" {
		conf.reportTimeout, err = time.ParseDuration(conf.Report.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid report timeout format: %w", err)
		}
	}
	return &conf, nil
}

// Timeout returns the Modbus request timeout.
func (c *Config) Timeout() time.Duration {
	return c.timeout
}

// ReportTimeout returns the UDP report deadline, zero meaning none.
func (c *Config) ReportTimeout() time.Duration {
	return c.reportTimeout
}

// Pause reports whether the tool waits for a key press before exiting.
func (c *Config) Pause() bool {
	return c.PauseOnExit == nil || *c.PauseOnExit
}

// ModbusAddr returns host:port of the Modbus-TCP endpoint.
func (c *Config) ModbusAddr() string {
	return fmt.Sprintf("%s:%d", c.Device.Host, c.Device.Port)
}

// Milliamps resolves a preset to the register value in milliamps.
// The 6-32A hardware range is not enforced, only values that cannot be
// written to a 16-bit register are rejected.
func (c *Config) Milliamps(p Preset) (uint16, error) {
	var amps int
	switch p {
	case PresetDefault:
		amps = c.Current.Default
	case PresetMedium:
		amps = c.Current.Medium
	case PresetMax:
		amps = c.Current.Max
	default:
		return 0, fmt.Errorf("%w: unknown preset %q", ErrInvalidPreset, p)
	}
	if amps <= 0 {
		return 0, fmt.Errorf("%w: %s preset is not configured", ErrInvalidPreset, p)
	}
	ma := 1000 * amps
	if ma > maxRegisterMilliamps {
		return 0, fmt.Errorf("%w: %s preset %dA does not fit a register", ErrInvalidPreset, p, amps)
	}
	return uint16(ma), nil
}
