package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/myofeed/pkg/myofeed"
)

func main() {
	flow, err := myofeed.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(batch []myofeed.Sample) error {
		for _, sample := range batch {
			fmt.Printf("ts=%d emg=%v\n", sample.Timestamp, sample.Values)
		}
		return nil
	}

	if err := flow.Run(ctx,
		myofeed.StreamOutTransformer(myofeed.Rectify()),
		myofeed.StreamOutCallback("stdout", callback),
	); err != nil && err != context.Canceled {
		log.Fatalf("session error: %v", err)
	}
}
