package myofeed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestNewSessionWithCustomAdapters(t *testing.T) {
	src := &stubSource{}
	sink := &stubSink{}
	obs := &stubObservability{}

	s, err := NewSession(testConfig(),
		WithSource(src),
		WithSink(sink),
		WithObservability(obs),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if s.source != src || s.sink != sink || s.obs != obs {
		t.Fatalf("expected custom adapters to be used")
	}
	if s.Registry() != nil {
		t.Fatalf("expected no registry when observability is injected")
	}
	if s.drain == nil || s.live != nil {
		t.Fatalf("expected a drain buffer for drain mode")
	}
}

func TestNewSessionDefaults(t *testing.T) {
	s, err := NewSession(testConfig(), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if s.source.Name() != "simulator" {
		t.Fatalf("expected simulator source, got %s", s.source.Name())
	}
	if s.Registry() == nil {
		t.Fatalf("expected session-local registry")
	}
	if s.Stats().Cap != 8 {
		t.Fatalf("expected capacity 8, got %d", s.Stats().Cap)
	}
}

func TestNewSessionRejectsUnknownMode(t *testing.T) {
	cfg := testConfig()
	cfg.Policy.Mode = "both"
	if _, err := NewSession(cfg, WithLogger(discardLogger())); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestSessionDrainModeDeliversSamples(t *testing.T) {
	src := &stubSource{}
	sink := &stubSink{}
	s, err := NewSession(testConfig(), WithSource(src), WithSink(sink), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrSessionStarted) {
		t.Fatalf("expected ErrSessionStarted, got %v", err)
	}

	for i := int64(1); i <= 3; i++ {
		src.emit(i, []int16{int16(i)})
	}
	waitFor(t, func() bool { return sink.total() == 3 })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	if got := counterValue(t, s, "myofeed_samples_consumed_total"); got != 3 {
		t.Fatalf("expected consumed counter 3, got %f", got)
	}
	if s.Stats().Drained != 3 {
		t.Fatalf("expected 3 drained samples, got %d", s.Stats().Drained)
	}
}

func TestSessionLiveModeRedrawsWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Policy.Mode = ModeLive
	cfg.Policy.Capacity = 2

	src := &stubSource{}
	sink := &stubSink{}
	s, err := NewSession(cfg, WithSource(src), WithSink(sink), WithLogger(discardLogger()), WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	src.emit(1, nil)
	src.emit(2, nil)
	src.emit(3, nil)

	waitFor(t, func() bool {
		last := sink.last()
		return len(last) == 2 && last[0].Timestamp == 2 && last[1].Timestamp == 3
	})

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if s.Stats().Len != 2 || s.Stats().Evicted != 1 {
		t.Fatalf("unexpected stats after live session: %+v", s.Stats())
	}
}

func TestSessionShutdownStopsSourceFirst(t *testing.T) {
	src := &stubSource{}
	sink := &stubSink{}
	s, err := NewSession(testConfig(), WithSource(src), WithSink(sink), WithLogger(discardLogger()), WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if !src.wasStopped() {
		t.Fatalf("expected source to be stopped")
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown should be a no-op, got %v", err)
	}
}

func TestSessionStartSourceFailure(t *testing.T) {
	src := &stubSource{startErr: errors.New("no device")}
	s, err := NewSession(testConfig(), WithSource(src), WithSink(&stubSink{}), WithLogger(discardLogger()), WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatalf("expected Start to surface source error")
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown after failed start should be a no-op, got %v", err)
	}
}

func TestSessionCannotRestartAfterShutdown(t *testing.T) {
	src := &stubSource{}
	s, err := NewSession(testConfig(), WithSource(src), WithSink(&stubSink{}), WithLogger(discardLogger()), WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSessionClosesLogAfterConsumerExits(t *testing.T) {
	src := &stubSource{}
	sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	s, err := NewSession(testConfig(), WithSource(src), WithSink(sink), WithLogger(discardLogger()), WithObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	closer := &recordingCloser{}
	s.logCloser = closer

	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	src.emit(1, []int16{1})
	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received a batch")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error while the sink is blocked, got %v", err)
	}
	if closer.isClosed() {
		t.Fatalf("log closed while the consumer was still running")
	}

	close(sink.release)
	waitFor(t, closer.isClosed)
}

func TestNewSessionDefaultSinkUsesRateUnit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.TimestampUnit = "ms"
	s, err := NewSession(cfg, WithLogger(discardLogger()), WithSource(&stubSource{}))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ws, ok := s.sink.(*writerSink)
	if !ok {
		t.Fatalf("expected writer sink by default, got %T", s.sink)
	}
	if ws.unit != time.Millisecond {
		t.Fatalf("expected millisecond unit, got %s", ws.unit)
	}
}

func counterValue(t *testing.T, s *Session, name string) float64 {
	t.Helper()
	mfs, err := s.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSource struct {
	mu       sync.Mutex
	out      SampleAppender
	stopped  bool
	startErr error
}

func (s *stubSource) Start(out SampleAppender) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = out
	return nil
}

func (s *stubSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.out = nil
	return nil
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) emit(ts int64, values []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out != nil {
		s.out.Append(ts, values)
	}
}

func (s *stubSource) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]PipelineSample
}

func (s *stubSink) WriteBatch(samples []PipelineSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, samples)
	return nil
}

func (s *stubSink) Name() string { return "stub" }

func (s *stubSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *stubSink) last() []PipelineSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil
	}
	return s.batches[len(s.batches)-1]
}

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)             {}
func (s *stubObservability) LogError(string, error, ...Field)     {}
func (s *stubObservability) LogCritical(string, error, ...Field)  {}
func (s *stubObservability) IncCounter(string, float64)           {}
func (s *stubObservability) ObserveLatency(string, float64)       {}
func (s *stubObservability) SetGauge(string, float64)             {}
func (s *stubObservability) RecordRejected(PipelineSample, error) {}

type blockingSink struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSink) WriteBatch([]PipelineSample) error {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return nil
}

func (s *blockingSink) Name() string { return "blocking" }

type recordingCloser struct {
	mu     sync.Mutex
	closed bool
}

func (c *recordingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingCloser) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
