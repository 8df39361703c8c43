package myofeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/myofeed/internal/adapters/observability"
	"github.com/ghalamif/myofeed/internal/domain"
	"github.com/ghalamif/myofeed/internal/ports"
)

// ErrFeedClosed is returned by ExternalFeed.Append after Close.
var ErrFeedClosed = errors.New("myofeed: feed closed")

// Sample is a copy of a buffered sample that callers may keep and modify.
type Sample struct {
	Timestamp int64
	Values    []int16
}

// SampleBatchSink is invoked with ordered batches from the consumer loop.
type SampleBatchSink func([]Sample) error

// ExternalFeedConfig configures a feed driven by the caller's own event
// callbacks (a device SDK listener, for instance).
type ExternalFeedConfig struct {
	Policy Policy
	Rate   RateConfig
	Logger *slog.Logger
}

// applyDefaults fills in sane thresholds so callers only override what they need.
func (c *ExternalFeedConfig) applyDefaults() {
	if c.Policy.Capacity == 0 {
		c.Policy.Capacity = DefaultCapacity
	}
	if c.Policy.Mode == "" {
		c.Policy.Mode = ModeDrain
	}
	if c.Policy.PollInterval == 0 {
		c.Policy.PollInterval = 100 * time.Millisecond
	}
	if c.Rate.TimestampUnit == "" {
		c.Rate.TimestampUnit = "us"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *ExternalFeedConfig) validate() error {
	if c.Policy.Capacity <= 0 {
		return fmt.Errorf("policy.capacity must be > 0")
	}
	if c.Policy.Mode != ModeDrain && c.Policy.Mode != ModeLive {
		return fmt.Errorf("policy.mode %q is not supported", c.Policy.Mode)
	}
	if c.Policy.PollInterval <= 0 {
		return fmt.Errorf("policy.poll_interval must be > 0")
	}
	return nil
}

// ExternalFeed lets event-driven producers push samples straight into a
// session's buffer while the session's consumer loop feeds sink.
type ExternalFeed struct {
	session *Session
	src     *pushSource
	closeMu sync.Mutex
	closed  bool
}

// NewExternalFeed builds and starts a session whose source is the caller.
// Metrics are recorded on a private registry and not served.
func NewExternalFeed(cfg *ExternalFeedConfig, sink SampleBatchSink) (*ExternalFeed, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink callback is required")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	src := &pushSource{}
	sessionCfg := &Config{
		Policy:  cfg.Policy,
		Rate:    cfg.Rate,
		Metrics: MetricsConfig{Disabled: true},
	}
	session, err := NewSession(sessionCfg,
		WithSource(src),
		WithSink(NewCallbackSink("external", sink)),
		WithLogger(cfg.Logger),
		WithObservability(observability.NewPromObs(prometheus.NewRegistry(), cfg.Logger)),
	)
	if err != nil {
		return nil, err
	}
	if err := session.Start(); err != nil {
		return nil, err
	}
	return &ExternalFeed{session: session, src: src}, nil
}

// Append hands one reading to the buffer. It never blocks on the consumer.
func (f *ExternalFeed) Append(ts int64, values []int16) error {
	return f.src.push(ts, values)
}

// Stats reports the underlying buffer counters.
func (f *ExternalFeed) Stats() BufferStats { return f.session.Stats() }

// Close rejects further Appends, then stops the consumer loop, respecting ctx.
func (f *ExternalFeed) Close(ctx context.Context) error {
	f.closeMu.Lock()
	defer f.closeMu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.session.Shutdown(ctx)
}

// pushSource turns caller Appends into a Source. Stop takes the write lock,
// so it returns only once in-flight Appends have finished.
type pushSource struct {
	mu  sync.RWMutex
	out ports.SampleAppender
}

func (p *pushSource) Name() string { return "external" }

func (p *pushSource) Start(out ports.SampleAppender) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		return fmt.Errorf("external source already started")
	}
	p.out = out
	return nil
}

func (p *pushSource) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = nil
	return nil
}

func (p *pushSource) push(ts int64, values []int16) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.out == nil {
		return ErrFeedClosed
	}
	p.out.Append(ts, values)
	return nil
}

func sampleFromDomain(s domain.Sample) Sample {
	return Sample{
		Timestamp: s.Timestamp,
		Values:    copyValues(s.Values),
	}
}

func copyValues(src []int16) []int16 {
	if len(src) == 0 {
		return nil
	}
	dst := make([]int16, len(src))
	copy(dst, src)
	return dst
}
