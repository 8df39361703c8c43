// Command external shows SDK glue pushing samples from its own listener
// callback while the main goroutine reads a live view once per second.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/myofeed"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	buf := myofeed.NewLiveBuffer(myofeed.DefaultCapacity)
	view := buf.View()
	est := myofeed.NewRateEstimator(myofeed.TimestampUnit)

	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		onEMG(ctx, buf)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			<-listenerDone
			return
		case <-ticker.C:
			window := view.Samples()
			if hz, ok := est.Estimate(window); ok {
				fmt.Printf("window=%d rate=%.0fHz\n", len(window), hz)
			} else {
				fmt.Printf("window=%d rate=unknown\n", len(window))
			}
		}
	}
}

// onEMG stands in for a device listener invoked by an SDK dispatch thread.
func onEMG(ctx context.Context, out myofeed.SampleAppender) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	emg := make([]int16, 8)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for i := range emg {
				emg[i] = int16(rand.Intn(255) - 128)
			}
			out.Append(now.UnixMicro(), emg)
		}
	}
}
