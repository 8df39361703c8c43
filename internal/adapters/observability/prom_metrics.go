package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/myofeed/internal/domain"
	"github.com/ghalamif/myofeed/internal/ports"
)

// Metric names shared by the runtime, the consumer loops and the stats CLI.
const (
	SamplesAppended = "myofeed_samples_appended_total"
	SamplesEvicted  = "myofeed_samples_evicted_total"
	SamplesConsumed = "myofeed_samples_consumed_total"
	SamplesRejected = "myofeed_samples_rejected_total"
	SinkErrors      = "myofeed_sink_errors_total"
	BufferLength    = "myofeed_buffer_length"
	SampleRate      = "myofeed_sample_rate_hz"
	SinkLatency     = "myofeed_sink_latency_seconds"
)

type PromObs struct {
	log      *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the myofeed collectors on reg. A nil reg means
// prometheus.DefaultRegisterer; a nil logger means slog.Default().
func NewPromObs(reg prometheus.Registerer, logger *slog.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = slog.Default()
	}

	appended := prometheus.NewCounter(prometheus.CounterOpts{
		Name: SamplesAppended,
		Help: "Total samples appended to the buffer by the source.",
	})
	evicted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: SamplesEvicted,
		Help: "Samples overwritten before the consumer read them.",
	})
	consumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: SamplesConsumed,
		Help: "Samples handed to the sink.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: SamplesRejected,
		Help: "Samples dropped because the transformer rejected them.",
	})
	sinkErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: SinkErrors,
		Help: "Sink writes that returned an error.",
	})
	length := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: BufferLength,
		Help: "Current number of samples held in the buffer.",
	})
	rate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: SampleRate,
		Help: "Sampling frequency estimated from the last consumed window.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    SinkLatency,
		Help:    "Time spent inside Sink.WriteBatch.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	reg.MustRegister(appended, evicted, consumed, rejected, sinkErrs, length, rate, latency)

	return &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			SamplesAppended: appended,
			SamplesEvicted:  evicted,
			SamplesConsumed: consumed,
			SamplesRejected: rejected,
			SinkErrors:      sinkErrs,
		},
		gauges: map[string]prometheus.Gauge{
			BufferLength: length,
			SampleRate:   rate,
		},
		histos: map[string]prometheus.Observer{
			SinkLatency: latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.log.Error(msg, append(attrs(fields), slog.Any("error", err))...)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.log.Error(msg, append(attrs(fields), slog.Any("error", err), slog.Bool("critical", true))...)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordRejected(s domain.Sample, err error) {
	p.IncCounter(SamplesRejected, 1)
	if err != nil {
		p.log.Warn("sample_rejected", slog.Int64("ts", s.Timestamp), slog.Any("error", err))
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
