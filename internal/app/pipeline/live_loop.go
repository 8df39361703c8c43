package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/myofeed/internal/adapters/observability"
	"github.com/ghalamif/myofeed/internal/ports"
	"github.com/ghalamif/myofeed/internal/rate"
)

// RunLiveLoop redraws from view every pol.PollInterval. Each tick the sink
// receives the whole current window, not just what is new.
func RunLiveLoop(ctx context.Context, view ports.SampleView, sink ports.Sink, est rate.Estimator, pol ports.Policy, obs ports.Observability) {
	ticker := time.NewTicker(pollInterval(pol))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshOnce(view, sink, est, obs)
		}
	}
}

func refreshOnce(view ports.SampleView, sink ports.Sink, est rate.Estimator, obs ports.Observability) int {
	window := view.Samples()
	if len(window) == 0 {
		return 0
	}
	if hz, ok := est.Estimate(window); ok {
		obs.SetGauge(observability.SampleRate, hz)
	}
	writeBatch(sink, window, obs)
	return len(window)
}
