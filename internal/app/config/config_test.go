package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `
policy:
  capacity: 500
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Policy.Capacity != 500 {
		t.Fatalf("expected capacity 500, got %d", cfg.Policy.Capacity)
	}
	if cfg.Policy.Mode != "drain" {
		t.Fatalf("expected default mode drain, got %s", cfg.Policy.Mode)
	}
	if cfg.Policy.PollInterval != time.Second {
		t.Fatalf("expected poll interval 1s, got %s", cfg.Policy.PollInterval)
	}
	if cfg.Source.Kind != SourceSimulator {
		t.Fatalf("expected simulator source, got %s", cfg.Source.Kind)
	}
	if cfg.Source.Simulator.RateHz != 200 {
		t.Fatalf("expected simulator default 200 Hz, got %d", cfg.Source.Simulator.RateHz)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("expected default metrics addr :9100, got %s", cfg.Metrics.Addr)
	}
	if cfg.Rate.TimestampUnit != "us" {
		t.Fatalf("expected default timestamp unit us, got %s", cfg.Rate.TimestampUnit)
	}
}

func TestParseDefaultCapacity(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Policy.Capacity != 200 {
		t.Fatalf("expected capacity 200, got %d", cfg.Policy.Capacity)
	}
}

func TestParseOPCUASource(t *testing.T) {
	data := `
policy:
  mode: live
  poll_interval: 40ms
source:
  kind: opcua
  opcua:
    endpoint: opc.tcp://localhost:4840
    channels:
      - node_id: "ns=2;s=EMG.0"
      - node_id: "ns=2;s=EMG.1"
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Policy.Mode != "live" || cfg.Policy.PollInterval != 40*time.Millisecond {
		t.Fatalf("unexpected policy: %+v", cfg.Policy)
	}
	if got := cfg.Source.OPCUA.Channels[1].Name; got != "emg1" {
		t.Fatalf("expected channel name fallback emg1, got %s", got)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative capacity": "policy: {capacity: -1}",
		"unknown mode":      "policy: {mode: both}",
		"unknown source":    "source: {kind: bluetooth}",
		"opcua no endpoint": "source: {kind: opcua}",
		"bad unit":          "rate: {timestamp_unit: fortnights}",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateNamesOffendingKey(t *testing.T) {
	_, err := Parse([]byte("policy: {mode: both}"))
	if err == nil || !strings.Contains(err.Error(), "policy.mode") {
		t.Fatalf("expected policy.mode in error, got %v", err)
	}
}
