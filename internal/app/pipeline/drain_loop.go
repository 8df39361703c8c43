package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/myofeed/internal/adapters/observability"
	"github.com/ghalamif/myofeed/internal/domain"
	"github.com/ghalamif/myofeed/internal/ports"
	"github.com/ghalamif/myofeed/internal/rate"
)

// RunDrainLoop polls buf every pol.PollInterval, hands whatever arrived
// since the previous poll to sink, and returns when ctx is done.
func RunDrainLoop(ctx context.Context, buf ports.SampleDrainer, tr ports.Transformer, sink ports.Sink, est rate.Estimator, pol ports.Policy, obs ports.Observability) {
	ticker := time.NewTicker(pollInterval(pol))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drainOnce(buf, tr, sink, est, obs)
		}
	}
}

func drainOnce(buf ports.SampleDrainer, tr ports.Transformer, sink ports.Sink, est rate.Estimator, obs ports.Observability) int {
	batch := buf.Drain()
	if len(batch) == 0 {
		return 0
	}

	if hz, ok := est.Estimate(batch); ok {
		obs.SetGauge(observability.SampleRate, hz)
	}

	out := batch
	if tr != nil {
		out = make([]domain.Sample, 0, len(batch))
		for _, s := range batch {
			t, err := tr.Transform(s)
			if err != nil {
				obs.RecordRejected(s, err)
				continue
			}
			out = append(out, t)
		}
		if len(out) == 0 {
			return 0
		}
	}

	writeBatch(sink, out, obs)
	return len(out)
}

func writeBatch(sink ports.Sink, batch []domain.Sample, obs ports.Observability) {
	start := time.Now()
	if err := sink.WriteBatch(batch); err != nil {
		obs.IncCounter(observability.SinkErrors, 1)
		obs.LogError("sink_write_failed", err, ports.Field{Key: "sink", Value: sink.Name()})
		return
	}
	obs.ObserveLatency(observability.SinkLatency, time.Since(start).Seconds())
	obs.IncCounter(observability.SamplesConsumed, float64(len(batch)))
}

func pollInterval(pol ports.Policy) time.Duration {
	if pol.PollInterval <= 0 {
		return time.Second
	}
	return pol.PollInterval
}
