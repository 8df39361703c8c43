package opcua

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/ghalamif/myofeed/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session
// against a gateway that republishes EMG electrodes as nodes.
type Config struct {
	Endpoint         string          `yaml:"endpoint"`
	Username         string          `yaml:"username"`
	Password         string          `yaml:"password"`
	SecurityMode     string          `yaml:"security_mode"`
	SecurityPolicy   string          `yaml:"security_policy"`
	ApplicationName  string          `yaml:"application_name"`
	PublishInterval  time.Duration   `yaml:"publish_interval"`
	SamplingInterval time.Duration   `yaml:"sampling_interval"`
	Channels         []ChannelConfig `yaml:"channels"`
}

// ChannelConfig maps one electrode channel to the node that carries it.
// Channels are ordered; the slice index is the channel index in a sample.
type ChannelConfig struct {
	NodeID string `yaml:"node_id"`
	Name   string `yaml:"name"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "myofeed"
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = 20 * time.Millisecond
	}
	if c.SamplingInterval < 0 {
		c.SamplingInterval = 0
	}
	for i := range c.Channels {
		if c.Channels[i].Name == "" {
			c.Channels[i].Name = fmt.Sprintf("emg%d", i)
		}
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if len(c.Channels) == 0 {
		return errors.New("at least one channel must be configured")
	}
	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.NodeID == "" {
			return fmt.Errorf("channel %q: node_id is required", ch.Name)
		}
		if seen[ch.NodeID] {
			return fmt.Errorf("node %q mapped to more than one channel", ch.NodeID)
		}
		seen[ch.NodeID] = true
	}
	return nil
}

// Source subscribes to the configured nodes and appends one full-width
// sample per device reading. Items of a notification that share a
// timestamp belong to the same reading.
type Source struct {
	cfg    Config
	log    *slog.Logger
	client *opcua.Client
	sub    *opcua.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	started  bool
	starting bool
	// owned by the consume goroutine
	handles map[uint32]int
	latest  []int16
	lastTS  int64
}

func NewSource(cfg Config, logger *slog.Logger) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	handles := make(map[uint32]int, len(cfg.Channels))
	for i := range cfg.Channels {
		handles[uint32(i+1)] = i
	}
	return &Source{
		cfg:     cfg,
		log:     logger.With(slog.String("source", "opcua")),
		handles: handles,
		latest:  make([]int16, len(cfg.Channels)),
	}, nil
}

func (s *Source) Name() string { return "opcua" }

func (s *Source) Start(out ports.SampleAppender) (err error) {
	s.mu.Lock()
	if s.started || s.starting {
		s.mu.Unlock()
		return fmt.Errorf("opcua source already started")
	}
	s.starting = true
	s.mu.Unlock()
	defer func() {
		if err != nil {
			s.mu.Lock()
			s.starting = false
			s.mu.Unlock()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())

	client, err := opcua.NewClient(s.cfg.Endpoint, s.clientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		s.cleanupOnError(cancel, nil, client)
		return fmt.Errorf("opcua connect: %w", err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, len(s.cfg.Channels)*4)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: s.cfg.PublishInterval,
	}, notifyCh)
	if err != nil {
		s.cleanupOnError(cancel, nil, client)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	for i, ch := range s.cfg.Channels {
		nodeID, err := ua.ParseNodeID(ch.NodeID)
		if err != nil {
			s.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("parse node id %q: %w", ch.NodeID, err)
		}
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, uint32(i+1))
		if s.cfg.SamplingInterval > 0 {
			req.RequestedParameters.SamplingInterval = float64(s.cfg.SamplingInterval / time.Millisecond)
		}
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
		if err != nil {
			s.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("monitor node %q: %w", ch.NodeID, err)
		}
		if len(res.Results) == 0 {
			s.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("monitor node %q failed: empty result", ch.NodeID)
		}
		if res.Results[0].StatusCode != ua.StatusOK {
			s.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("monitor node %q failed: %s", ch.NodeID, res.Results[0].StatusCode)
		}
	}

	s.mu.Lock()
	s.client = client
	s.sub = sub
	s.cancel = cancel
	s.started = true
	s.starting = false
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Info("opcua_streaming", slog.String("endpoint", s.cfg.Endpoint), slog.Int("channels", len(s.cfg.Channels)))

	go s.consume(ctx, notifyCh, out)
	return nil
}

// Stop cancels the subscription and waits for the consume goroutine, so
// no Append happens after it returns.
func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	sub := s.sub
	client := s.client
	s.started = false
	s.cancel = nil
	s.sub = nil
	s.client = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if sub != nil {
		if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}
	if client != nil {
		if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}

	s.wg.Wait()
	return err
}

func (s *Source) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData, out ports.SampleAppender) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				s.log.Warn("opcua_notification_error", slog.Any("error", notif.Error))
				continue
			}
			data, ok := notif.Value.(*ua.DataChangeNotification)
			if !ok {
				continue
			}
			s.apply(data, out)
		}
	}
}

type reading struct {
	ts    int64
	index int
	value int16
}

// apply folds the notification into the latest channel readings and
// appends one snapshot per distinct timestamp, oldest first. Timestamps
// never go below the last appended one.
func (s *Source) apply(data *ua.DataChangeNotification, out ports.SampleAppender) {
	now := time.Now()
	readings := make([]reading, 0, len(data.MonitoredItems))
	for _, item := range data.MonitoredItems {
		if item == nil || item.Value == nil {
			continue
		}
		idx, ok := s.handles[item.ClientHandle]
		if !ok {
			continue
		}
		v, ok := variantToInt16(item.Value.Value)
		if !ok {
			s.log.Debug("opcua_unsupported_value",
				slog.String("node", s.cfg.Channels[idx].NodeID),
				slog.String("type", variantType(item.Value.Value)))
			continue
		}
		readings = append(readings, reading{ts: itemTimestamp(item.Value, now), index: idx, value: v})
	}
	sort.SliceStable(readings, func(i, j int) bool { return readings[i].ts < readings[j].ts })

	for i := 0; i < len(readings); {
		ts := readings[i].ts
		for ; i < len(readings) && readings[i].ts == ts; i++ {
			s.latest[readings[i].index] = readings[i].value
		}
		if ts < s.lastTS {
			ts = s.lastTS
		}
		s.lastTS = ts
		out.Append(ts, s.latest)
	}
}

// itemTimestamp prefers the server timestamp, then the source one.
func itemTimestamp(v *ua.DataValue, now time.Time) int64 {
	ts := v.ServerTimestamp
	if ts.IsZero() {
		ts = v.SourceTimestamp
	}
	if ts.IsZero() {
		ts = now
	}
	return ts.UnixMicro()
}

func (s *Source) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(s.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(s.cfg.SecurityPolicy)),
		opcua.ApplicationName(s.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if s.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(s.cfg.Username, s.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func (s *Source) cleanupOnError(cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()
	if sub != nil {
		_ = sub.Cancel(ctx)
	}
	if client != nil {
		_ = client.Close(ctx)
	}
}

func variantToInt16(v *ua.Variant) (int16, bool) {
	if v == nil {
		return 0, false
	}

	var f float64
	switch val := v.Value().(type) {
	case int8:
		return int16(val), true
	case uint8:
		return int16(val), true
	case int16:
		return val, true
	case uint16:
		f = float64(val)
	case int32:
		f = float64(val)
	case uint32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint64:
		f = float64(val)
	case float32:
		f = float64(val)
	case float64:
		f = val
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(f)))), true
}

func variantType(v *ua.Variant) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v.Value())
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.Source = (*Source)(nil)
