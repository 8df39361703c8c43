package myofeed

import (
	"github.com/ghalamif/myofeed/internal/adapters/opcua"
	"github.com/ghalamif/myofeed/internal/adapters/simulator"
	"github.com/ghalamif/myofeed/internal/app/config"
	"github.com/ghalamif/myofeed/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy sets buffer capacity, access mode and consumer cadence.
	Policy = ports.Policy
	// SourceConfig selects and configures the sample producer.
	SourceConfig = config.SourceConfig
	// SimulatorConfig tunes the synthetic EMG generator.
	SimulatorConfig = simulator.Config
	// OPCUAConfig holds connection + channel details.
	OPCUAConfig = opcua.Config
	// OPCUAChannelConfig maps an electrode channel to a node.
	OPCUAChannelConfig = opcua.ChannelConfig
	// RateConfig fixes the timestamp unit used by the rate estimator.
	RateConfig = config.RateConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LogConfig configures the structured logger.
	LogConfig = config.LogConfig
)

const (
	ModeDrain       = ports.ModeDrain
	ModeLive        = ports.ModeLive
	SourceSimulator = config.SourceSimulator
	SourceOPCUA     = config.SourceOPCUA
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
