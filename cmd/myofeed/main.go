package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ghalamif/myofeed"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("myofeed %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to session configuration file")
	mode := fs.String("mode", "", "Override policy.mode (drain or live)")
	capacity := fs.Int("capacity", 0, "Override policy.capacity")
	rectify := fs.Bool("rectify", false, "Full-wave rectify samples before printing (drain mode)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := myofeed.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *mode != "" {
		cfg.Policy.Mode = *mode
	}
	if *capacity > 0 {
		cfg.Policy.Capacity = *capacity
	}

	flow, err := myofeed.ConfFromConfig(cfg)
	if err != nil {
		return err
	}

	var outOpts []myofeed.StreamOutOption
	if *rectify {
		outOpts = append(outOpts, myofeed.StreamOutTransformer(myofeed.Rectify()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx, outOpts...)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := myofeed.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good: source=%s mode=%s capacity=%d\n",
		*cfgPath, cfg.Source.Kind, cfg.Policy.Mode, cfg.Policy.Capacity)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	client := &http.Client{Timeout: *interval}

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(client, *url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"myofeed_samples_appended_total": 0,
		"myofeed_samples_evicted_total":  0,
		"myofeed_buffer_length":          0,
		"myofeed_sample_rate_hz":         0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] appended=%.0f evicted=%.0f buffered=%.0f rate=%.1fHz\n",
		time.Now().Format(time.RFC3339),
		targets["myofeed_samples_appended_total"],
		targets["myofeed_samples_evicted_total"],
		targets["myofeed_buffer_length"],
		targets["myofeed_sample_rate_hz"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`myofeed CLI

Usage:
  myofeed <command> [flags]

Commands:
  run        Start an acquisition session using the provided config
  validate   Load and validate a config file without starting a session
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  myofeed run -config ./data/config.yaml
  myofeed run -config ./data/config.yaml -mode live -capacity 400
  myofeed validate -config ./data/config.yaml
  myofeed stats -url http://localhost:9100/metrics -interval 1s
`)
}
