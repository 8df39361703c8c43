package myofeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/myofeed/internal/adapters/buffer"
	"github.com/ghalamif/myofeed/internal/adapters/observability"
	"github.com/ghalamif/myofeed/internal/adapters/opcua"
	"github.com/ghalamif/myofeed/internal/adapters/simulator"
	"github.com/ghalamif/myofeed/internal/app/config"
	"github.com/ghalamif/myofeed/internal/app/pipeline"
	"github.com/ghalamif/myofeed/internal/ports"
	"github.com/ghalamif/myofeed/internal/rate"
)

var (
	// ErrSessionStarted is returned by Start when the session is already running.
	ErrSessionStarted = errors.New("myofeed: session already started")
	// ErrSessionClosed is returned by Start after Shutdown; a session is single use.
	ErrSessionClosed = errors.New("myofeed: session closed")
)

// SessionOption customizes the dependencies used by Session.
type SessionOption func(*sessionOverrides)

type sessionOverrides struct {
	source        Source
	sink          Sink
	transformer   Transformer
	observability Observability
	logger        *slog.Logger
}

// WithSource injects a custom producer (device SDK glue, replay, simulators, etc.).
func WithSource(src Source) SessionOption {
	return func(o *sessionOverrides) {
		o.source = src
	}
}

// WithSink injects a custom sink so samples can be sent to a display or processor.
func WithSink(s Sink) SessionOption {
	return func(o *sessionOverrides) {
		o.sink = s
	}
}

// WithTransformer installs a per-sample transform. It only applies in drain mode.
func WithTransformer(t Transformer) SessionOption {
	return func(o *sessionOverrides) {
		o.transformer = t
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) SessionOption {
	return func(o *sessionOverrides) {
		o.observability = obs
	}
}

// WithLogger replaces the logger built from Config.Log.
func WithLogger(l *slog.Logger) SessionOption {
	return func(o *sessionOverrides) {
		o.logger = l
	}
}

// Session wires a source → buffer → consumer loop → sink for one
// acquisition session and owns their lifecycle.
type Session struct {
	cfg         *Config
	policy      ports.Policy
	obs         ports.Observability
	log         *slog.Logger
	logCloser   io.Closer
	registry    *prometheus.Registry
	source      ports.Source
	transformer ports.Transformer
	sink        ports.Sink
	estimator   rate.Estimator

	drain *buffer.Drain
	live  *buffer.Live

	mu         sync.Mutex
	running    bool
	closed     bool
	stopLoops  context.CancelFunc
	loopsDone  chan struct{}
	metricsSrv *http.Server
}

// NewSession bootstraps the default adapters (configured source, stdout
// sink, Prometheus observability with a session-local registry). Options
// override any of them.
func NewSession(cfg *Config, opts ...SessionOption) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides sessionOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	unit, err := rate.ParseUnit(cfg.Rate.TimestampUnit)
	if err != nil {
		return nil, fmt.Errorf("rate.timestamp_unit: %w", err)
	}

	s := &Session{
		cfg:         cfg,
		policy:      cfg.Policy,
		transformer: overrides.transformer,
		estimator:   rate.New(unit),
		logCloser:   nopCloser{},
	}

	s.log = overrides.logger
	if s.log == nil {
		logger, closer, err := observability.NewLogger(cfg.Log.File, cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		s.log, s.logCloser = logger, closer
	}

	s.obs = overrides.observability
	if s.obs == nil {
		s.registry = prometheus.NewRegistry()
		s.obs = observability.NewPromObs(s.registry, s.log)
	}

	switch cfg.Policy.Mode {
	case ports.ModeDrain, "":
		s.drain = buffer.NewDrain(cfg.Policy.Capacity)
	case ports.ModeLive:
		s.live = buffer.NewLive(cfg.Policy.Capacity)
	default:
		s.logCloser.Close()
		return nil, fmt.Errorf("policy.mode %q is not supported", cfg.Policy.Mode)
	}

	s.source = overrides.source
	if s.source == nil {
		s.source, err = newConfiguredSource(cfg.Source, s.log)
		if err != nil {
			s.logCloser.Close()
			return nil, err
		}
	}

	s.sink = overrides.sink
	if s.sink == nil {
		s.sink = NewWriterSink("stdout", os.Stdout, unit)
	}

	return s, nil
}

func newConfiguredSource(cfg config.SourceConfig, logger *slog.Logger) (ports.Source, error) {
	switch cfg.Kind {
	case config.SourceSimulator, "":
		return simulator.New(cfg.Simulator)
	case config.SourceOPCUA:
		return opcua.NewSource(cfg.OPCUA, logger)
	default:
		return nil, fmt.Errorf("source.kind %q is not supported", cfg.Kind)
	}
}

// Start launches the consumer loop first, then the source, then the
// metrics server. It returns immediately; call Run to block on a context.
func (s *Session) Start() error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.running {
		return ErrSessionStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.runConsumer(ctx)
	}()
	go func() {
		defer wg.Done()
		pipeline.RecordBufferGauges(ctx, s.Stats, time.Second, s.obs)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	if err := s.source.Start(s.appender()); err != nil {
		cancel()
		<-done
		return fmt.Errorf("start source %s: %w", s.source.Name(), err)
	}

	s.stopLoops = cancel
	s.loopsDone = done
	s.running = true

	if !s.cfg.Metrics.Disabled {
		s.startMetrics()
	}

	s.obs.LogInfo("session_started",
		ports.Field{Key: "source", Value: s.source.Name()},
		ports.Field{Key: "mode", Value: s.mode()},
		ports.Field{Key: "capacity", Value: s.Stats().Cap})
	return nil
}

// Run starts the session and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops the source before the consumer, so no sample is appended
// after the consumer has been told to stop, then closes the metrics server.
// The log is closed once the consumer has exited, even if ctx expires first.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.closed = true
	stopLoops, loopsDone, srv := s.stopLoops, s.loopsDone, s.metricsSrv
	s.stopLoops, s.loopsDone, s.metricsSrv = nil, nil, nil
	s.mu.Unlock()

	var errs []error

	if err := s.source.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop source: %w", err))
	}

	stopLoops()
	loopsExited := true
	select {
	case <-loopsDone:
	case <-ctx.Done():
		loopsExited = false
		errs = append(errs, ctx.Err())
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	s.obs.LogInfo("session_stopped", ports.Field{Key: "appended", Value: s.Stats().Appended})

	if !loopsExited {
		go func() {
			<-loopsDone
			_ = s.logCloser.Close()
		}()
		return errors.Join(errs...)
	}
	if err := s.logCloser.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Stats reports the buffer's current counters.
func (s *Session) Stats() BufferStats {
	if s.live != nil {
		return s.live.Stats()
	}
	return s.drain.Stats()
}

// Registry returns the Prometheus registry backing the default
// observability, or nil when a custom one was injected.
func (s *Session) Registry() *prometheus.Registry { return s.registry }

func (s *Session) appender() ports.SampleAppender {
	if s.live != nil {
		return s.live
	}
	return s.drain
}

func (s *Session) mode() string {
	if s.live != nil {
		return ports.ModeLive
	}
	return ports.ModeDrain
}

func (s *Session) runConsumer(ctx context.Context) {
	if s.live != nil {
		pipeline.RunLiveLoop(ctx, s.live.View(), s.sink, s.estimator, s.policy, s.obs)
		return
	}
	pipeline.RunDrainLoop(ctx, s.drain, s.transformer, s.sink, s.estimator, s.policy, s.obs)
}

func (s *Session) startMetrics() {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if s.registry != nil {
		gatherer = s.registry
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.metricsSrv = &http.Server{
		Addr:              s.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := s.metricsSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.obs.LogError("metrics_server_exited", err)
		}
	}()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
