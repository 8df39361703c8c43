package myofeed

import (
	"io"
	"log/slog"
	"time"

	base "github.com/ghalamif/myofeed/pkg/myofeed"
)

// Re-exported errors for convenience.
var (
	ErrFeedClosed        = base.ErrFeedClosed
	ErrSessionStarted    = base.ErrSessionStarted
	ErrSessionClosed     = base.ErrSessionClosed
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

const (
	ModeDrain       = base.ModeDrain
	ModeLive        = base.ModeLive
	DefaultCapacity = base.DefaultCapacity
	TimestampUnit   = base.TimestampUnit
)

// Type aliases so consumers can import github.com/ghalamif/myofeed directly.
type (
	Config             = base.Config
	Policy             = base.Policy
	SourceConfig       = base.SourceConfig
	SimulatorConfig    = base.SimulatorConfig
	OPCUAConfig        = base.OPCUAConfig
	OPCUAChannelConfig = base.OPCUAChannelConfig
	RateConfig         = base.RateConfig
	MetricsConfig      = base.MetricsConfig
	LogConfig          = base.LogConfig
	Flow               = base.Flow
	FlowOption         = base.FlowOption
	StreamInOption     = base.StreamInOption
	StreamOutOption    = base.StreamOutOption
	Session            = base.Session
	SessionOption      = base.SessionOption
	Sample             = base.Sample
	PipelineSample     = base.PipelineSample
	SampleBatchSink    = base.SampleBatchSink
	Source             = base.Source
	SampleAppender     = base.SampleAppender
	Sink               = base.Sink
	Transformer        = base.Transformer
	Observability      = base.Observability
	BufferStats        = base.BufferStats
	DrainBuffer        = base.DrainBuffer
	LiveBuffer         = base.LiveBuffer
	LiveView           = base.LiveView
	RateEstimator      = base.RateEstimator
	ExternalFeed       = base.ExternalFeed
	ExternalFeedConfig = base.ExternalFeedConfig
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...SessionOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInSource(src Source) StreamInOption {
	return base.StreamInSource(src)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamInCapacity(n int) StreamInOption {
	return base.StreamInCapacity(n)
}

func StreamOutMode(mode string) StreamOutOption {
	return base.StreamOutMode(mode)
}

func StreamOutPollInterval(d time.Duration) StreamOutOption {
	return base.StreamOutPollInterval(d)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutTransformer(tr Transformer) StreamOutOption {
	return base.StreamOutTransformer(tr)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn SampleBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Session and options.
func NewSession(cfg *Config, opts ...SessionOption) (*Session, error) {
	return base.NewSession(cfg, opts...)
}

func WithSource(src Source) SessionOption {
	return base.WithSource(src)
}

func WithSink(s Sink) SessionOption {
	return base.WithSink(s)
}

func WithTransformer(tr Transformer) SessionOption {
	return base.WithTransformer(tr)
}

func WithObservability(obs Observability) SessionOption {
	return base.WithObservability(obs)
}

func WithLogger(l *slog.Logger) SessionOption {
	return base.WithLogger(l)
}

// Buffers and rate estimation.
func NewDrainBuffer(capacity int) *DrainBuffer {
	return base.NewDrainBuffer(capacity)
}

func NewLiveBuffer(capacity int) *LiveBuffer {
	return base.NewLiveBuffer(capacity)
}

func NewRateEstimator(unit time.Duration) RateEstimator {
	return base.NewRateEstimator(unit)
}

// Transformers.
func Rectify() Transformer {
	return base.Rectify()
}

// Sink adapters.
func NewCallbackSink(name string, fn SampleBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewWriterSink(name string, w io.Writer, unit time.Duration) Sink {
	return base.NewWriterSink(name, w, unit)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Sample, func()) {
	return base.NewChannelSink(name, buffer)
}

// External feed.
func NewExternalFeed(cfg *ExternalFeedConfig, sink SampleBatchSink) (*ExternalFeed, error) {
	return base.NewExternalFeed(cfg, sink)
}
