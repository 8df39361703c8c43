package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/myofeed"
)

func main() {
	flow, err := myofeed.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, batches, closeBatches := myofeed.NewChannelSink("processor", 32)
	defer closeBatches()

	go processor(batches)

	if err := flow.Run(ctx, myofeed.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("session error: %v", err)
	}
}

// processor computes a per-channel mean absolute value for every batch.
func processor(batches <-chan []myofeed.Sample) {
	for batch := range batches {
		if len(batch) == 0 {
			continue
		}
		mav := make([]float64, len(batch[0].Values))
		for _, s := range batch {
			for ch, v := range s.Values {
				if ch < len(mav) {
					mav[ch] += abs(float64(v))
				}
			}
		}
		for ch := range mav {
			mav[ch] /= float64(len(batch))
		}
		fmt.Printf("[%s] %d samples mav=%.1f\n", time.Now().Format(time.TimeOnly), len(batch), mav)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
