package myofeed

import (
	"context"
	"fmt"
	"time"
)

// Flow builds a Session in three steps: Conf picks the configuration,
// StreamIN the producer and buffer, StreamOUT the consumer side.
type Flow struct {
	cfg  *Config
	opts []SessionOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the producer and the buffer it fills.
type StreamInOption func(*Flow)

// StreamOutOption configures how the buffer is read and where samples go.
type StreamOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the configuration the session will be built from.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw SessionOption values to the builder.
func (f *Flow) Options(opts ...SessionOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN records producer-side overrides.
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT applies the consumer options and builds the Session.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Session, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewSession(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT + Session.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	s, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// WithFlowOptions appends SessionOption values during Conf.
func WithFlowOptions(opts ...SessionOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInSource replaces the configured source, typically with device SDK glue.
func StreamInSource(src Source) StreamInOption {
	return func(f *Flow) {
		if f != nil && src != nil {
			f.appendOptions(WithSource(src))
		}
	}
}

// StreamInObservability replaces the Prometheus observability.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamInCapacity overrides policy.capacity, the number of samples the
// buffer holds before it starts evicting the oldest.
func StreamInCapacity(n int) StreamInOption {
	return func(f *Flow) {
		if f != nil && n > 0 {
			f.cfg.Policy.Capacity = n
		}
	}
}

// StreamOutMode picks how the consumer reads the buffer: ModeDrain hands
// each batch over once, ModeLive redraws the whole window every poll.
func StreamOutMode(mode string) StreamOutOption {
	return func(f *Flow) {
		if f != nil && mode != "" {
			f.cfg.Policy.Mode = mode
		}
	}
}

// StreamOutPollInterval overrides how often the consumer reads the buffer.
func StreamOutPollInterval(d time.Duration) StreamOutOption {
	return func(f *Flow) {
		if f != nil && d > 0 {
			f.cfg.Policy.PollInterval = d
		}
	}
}

// StreamOutSink injects a custom Sink implementation.
func StreamOutSink(s Sink) StreamOutOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSink(s))
		}
	}
}

// StreamOutTransformer installs a transform applied to drained samples before the sink.
func StreamOutTransformer(tr Transformer) StreamOutOption {
	return func(f *Flow) {
		if f != nil && tr != nil {
			f.appendOptions(WithTransformer(tr))
		}
	}
}

// StreamOutObservability replaces the default observability backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutCallback installs a sink built from a simple callback function.
func StreamOutCallback(name string, fn SampleBatchSink) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithSink(NewCallbackSink(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...SessionOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
