// Package config parses and validates flowmeter's configuration, the
// way cmd/goProbe/config does for goProbe: a typed struct with a
// validator per section, loaded from a config file, CLI flags and
// environment variables via spf13/viper.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// validator is the per-section contract, mirrored from goProbe's config
// package: every section knows how to check its own value range.
type validator interface {
	validate() error
}

// Config is flowmeter's full configuration: the union of every CLI knob
// named in §6 EXTERNAL INTERFACES.
type Config struct {
	Input   InputConfig  `json:"input"`
	Output  OutputConfig `json:"output"`
	Tuning  TuningConfig `json:"tuning"`
	Logging LogConfig    `json:"logging"`
}

// InputConfig holds the mutually exclusive input selection (§6 "Input
// selection (mutually exclusive)").
type InputConfig struct {
	Iface   string `json:"iface"`
	File    string `json:"file"`
	List    string `json:"list"`
	Rolling string `json:"rolling"`
}

// OutputConfig holds the output-controls group (§6 "Output controls").
type OutputConfig struct {
	Prefix      string `json:"prefix"`
	Rolling     string `json:"rolling_size"`
	LogFile     string `json:"log_file"`
	MonitorFile string `json:"monitor_file"`
	Forensic    bool   `json:"forensic"`
	AlarmOnly   bool   `json:"alarm_only"`
	Separator   string `json:"separator"`
	StateFile   string `json:"state_file"`
}

// TuningConfig holds the tuning group (§6 "Tuning").
type TuningConfig struct {
	PluginDir       string  `json:"plugin_dir"`
	ManifestFile    string  `json:"manifest_file"`
	SubnetFile      string  `json:"subnet_file"`
	Snaplen         int     `json:"snaplen"`
	RingBufferSize  int     `json:"ring_buffer_size"`
	BPFFile         string  `json:"bpf_file"`
	BPFExpr         string  `json:"bpf_expr"`
	HashScaleFactor int     `json:"hash_scale_factor"`
	SensorID        int     `json:"sensor_id"`
	CPUPin          int     `json:"cpu_pin"`
	MonitorInterval float64 `json:"monitor_interval_seconds"`
	Priority        int     `json:"priority"`
}

// LogConfig stores the logging configuration, mirrored from
// cmd/goProbe/config's LogConfig.
type LogConfig struct {
	Destination string `json:"destination"`
	Level       string `json:"level"`
	Encoding    string `json:"encoding"`
}

const (
	// DefaultHashScaleFactor sizes the flow table relative to the base
	// capacity when -f is not given.
	DefaultHashScaleFactor = 1
	// DefaultSnaplen matches goProbe's default capture length.
	DefaultSnaplen = 65535
	// DefaultRingBufferBlocks mirrors DBConfig.DefaultRingBufferSize.
	DefaultRingBufferBlocks = 4
	// DefaultMonitorIntervalSeconds is SIGALRM's default tick (§5).
	DefaultMonitorIntervalSeconds = 60
)

// New returns a Config populated with flowmeter's defaults.
func New() *Config {
	return &Config{
		Output: OutputConfig{
			Prefix:    "-",
			Separator: "\t",
		},
		Tuning: TuningConfig{
			Snaplen:         DefaultSnaplen,
			RingBufferSize:  DefaultRingBufferBlocks,
			HashScaleFactor: DefaultHashScaleFactor,
			MonitorInterval: DefaultMonitorIntervalSeconds,
		},
		Logging: LogConfig{
			Encoding: "logfmt",
			Level:    "info",
		},
	}
}

func (i InputConfig) validate() error {
	set := 0
	for _, s := range []string{i.Iface, i.File, i.List, i.Rolling} {
		if s != "" {
			set++
		}
	}
	if set == 0 {
		return fmt.Errorf("no input selected: need exactly one of iface, file, list or rolling")
	}
	if set > 1 {
		return fmt.Errorf("iface, file, list and rolling are mutually exclusive")
	}
	return nil
}

func (o OutputConfig) validate() error {
	if o.Prefix == "" {
		return fmt.Errorf("output prefix must not be empty")
	}
	return nil
}

func (t TuningConfig) validate() error {
	if t.Snaplen <= 0 {
		return fmt.Errorf("snap length must be a positive number")
	}
	if t.RingBufferSize <= 0 {
		return fmt.Errorf("ring buffer size must be a positive number")
	}
	if t.HashScaleFactor <= 0 {
		return fmt.Errorf("hash scale factor must be a positive number")
	}
	if t.BPFFile != "" && t.BPFExpr != "" {
		return fmt.Errorf("BPF filter file and inline expression are mutually exclusive")
	}
	if t.MonitorInterval < 0 {
		return fmt.Errorf("monitor interval must not be negative")
	}
	return nil
}

func (l LogConfig) validate() error {
	return nil
}

// Validate runs every section's validator, the way goProbe's
// Config.Validate iterates its validator slice.
func (c *Config) Validate() error {
	for _, section := range []validator{
		c.Input,
		c.Output,
		c.Tuning,
		c.Logging,
	} {
		if err := section.validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParseFile reads a configuration file at path.
func ParseFile(path string) (*Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	return Parse(fd)
}

// Parse reads a configuration from src, starting from New()'s defaults.
func Parse(src io.Reader) (*Config, error) {
	cfg := New()
	if err := json.NewDecoder(src).Decode(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
