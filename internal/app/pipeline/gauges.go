package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/myofeed/internal/adapters/observability"
	"github.com/ghalamif/myofeed/internal/ports"
)

// RecordBufferGauges publishes buffer occupancy and the append/evict
// counters at every interval until ctx is done.
func RecordBufferGauges(ctx context.Context, stats func() ports.BufferStats, interval time.Duration, obs ports.Observability) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last ports.BufferStats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last = publishStats(stats(), last, obs)
		}
	}
}

func publishStats(cur, last ports.BufferStats, obs ports.Observability) ports.BufferStats {
	obs.SetGauge(observability.BufferLength, float64(cur.Len))
	if d := cur.Appended - last.Appended; d > 0 {
		obs.IncCounter(observability.SamplesAppended, float64(d))
	}
	if d := cur.Evicted - last.Evicted; d > 0 {
		obs.IncCounter(observability.SamplesEvicted, float64(d))
	}
	return cur
}
