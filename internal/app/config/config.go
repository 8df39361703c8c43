package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/myofeed/internal/adapters/buffer"
	"github.com/ghalamif/myofeed/internal/adapters/opcua"
	"github.com/ghalamif/myofeed/internal/adapters/simulator"
	"github.com/ghalamif/myofeed/internal/ports"
	"github.com/ghalamif/myofeed/internal/rate"
)

const (
	SourceSimulator = "simulator"
	SourceOPCUA     = "opcua"
)

type Config struct {
	Policy  ports.Policy  `yaml:"policy"`
	Source  SourceConfig  `yaml:"source"`
	Rate    RateConfig    `yaml:"rate"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

type SourceConfig struct {
	Kind      string           `yaml:"kind"`
	Simulator simulator.Config `yaml:"simulator"`
	OPCUA     opcua.Config     `yaml:"opcua"`
}

type RateConfig struct {
	TimestampUnit string `yaml:"timestamp_unit"`
}

type MetricsConfig struct {
	Addr     string `yaml:"addr"`
	Disabled bool   `yaml:"disabled"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML, fills defaults, and validates the result.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Policy.Capacity == 0 {
		c.Policy.Capacity = buffer.DefaultCapacity
	}
	if c.Policy.Mode == "" {
		c.Policy.Mode = ports.ModeDrain
	}
	if c.Policy.PollInterval == 0 {
		c.Policy.PollInterval = time.Second
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourceSimulator
	}
	if c.Rate.TimestampUnit == "" {
		c.Rate.TimestampUnit = "us"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	switch c.Source.Kind {
	case SourceSimulator:
		c.Source.Simulator.ApplyDefaults()
	case SourceOPCUA:
		c.Source.OPCUA.ApplyDefaults()
	}
}

func (c *Config) Validate() error {
	if c.Policy.Capacity <= 0 {
		return fmt.Errorf("policy.capacity must be > 0, got %d", c.Policy.Capacity)
	}
	if c.Policy.Mode != ports.ModeDrain && c.Policy.Mode != ports.ModeLive {
		return fmt.Errorf("policy.mode must be %q or %q, got %q", ports.ModeDrain, ports.ModeLive, c.Policy.Mode)
	}
	if c.Policy.PollInterval <= 0 {
		return fmt.Errorf("policy.poll_interval must be > 0")
	}
	if _, err := rate.ParseUnit(c.Rate.TimestampUnit); err != nil {
		return fmt.Errorf("rate.timestamp_unit: %w", err)
	}
	if !c.Metrics.Disabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}

	switch c.Source.Kind {
	case SourceSimulator:
		if err := c.Source.Simulator.Validate(); err != nil {
			return fmt.Errorf("source.simulator: %w", err)
		}
	case SourceOPCUA:
		if err := c.Source.OPCUA.Validate(); err != nil {
			return fmt.Errorf("source.opcua: %w", err)
		}
	default:
		return fmt.Errorf("source.kind %q is not supported", c.Source.Kind)
	}
	return nil
}
