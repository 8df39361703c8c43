// Package simulator produces synthetic multi-channel EMG so the rest of the
// pipeline can run without a device attached.
package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/ghalamif/myofeed/internal/ports"
)

type Config struct {
	Channels  int     `yaml:"channels"`
	RateHz    int     `yaml:"rate_hz"`
	Amplitude int     `yaml:"amplitude"`
	BurstHz   float64 `yaml:"burst_hz"` // contraction envelope frequency
	Seed      int64   `yaml:"seed"`

	// Tick is how often the producer wakes up; samples due since the last
	// tick are appended back to back, like a device delivering packets.
	Tick time.Duration `yaml:"tick"`
}

func (c *Config) ApplyDefaults() {
	if c.Channels <= 0 {
		c.Channels = 8
	}
	if c.RateHz <= 0 {
		c.RateHz = 200
	}
	if c.Amplitude <= 0 {
		c.Amplitude = 64
	}
	if c.BurstHz <= 0 {
		c.BurstHz = 0.5
	}
	if c.Tick <= 0 {
		c.Tick = 10 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	if c.Amplitude > math.MaxInt16 {
		return fmt.Errorf("amplitude %d exceeds int16 range", c.Amplitude)
	}
	if c.Channels > 64 {
		return errors.New("at most 64 channels are supported")
	}
	return nil
}

// Source appends synthetic samples at the configured rate until stopped.
type Source struct {
	cfg  Config
	now  func() time.Time
	rnd  *rand.Rand
	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func New(cfg Config) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Source{
		cfg: cfg,
		now: time.Now,
		rnd: rand.New(rand.NewSource(seed)),
	}, nil
}

func (s *Source) Name() string { return "simulator" }

func (s *Source) Start(out ports.SampleAppender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return fmt.Errorf("simulator already started")
	}
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.stop, out)
	return nil
}

// Stop waits for the producer goroutine, so no Append happens afterwards.
func (s *Source) Stop() error {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	s.wg.Wait()
	return nil
}

func (s *Source) run(stop <-chan struct{}, out ports.SampleAppender) {
	defer s.wg.Done()

	period := time.Second / time.Duration(s.cfg.RateHz)
	start := s.now()
	next := start
	values := make([]int16, s.cfg.Channels)

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := s.now()
			for !next.After(now) {
				s.fill(values, next.Sub(start))
				out.Append(next.UnixMicro(), values)
				next = next.Add(period)
			}
		}
	}
}

// fill writes one reading per channel: gaussian noise scaled by a slow
// contraction envelope, with a per-channel gain.
func (s *Source) fill(values []int16, elapsed time.Duration) {
	envelope := 0.2 + 0.8*math.Abs(math.Sin(2*math.Pi*s.cfg.BurstHz*elapsed.Seconds()))
	amp := float64(s.cfg.Amplitude)
	for ch := range values {
		gain := 1 - float64(ch)/float64(2*len(values))
		v := s.rnd.NormFloat64() * amp * envelope * gain / 3
		values[ch] = clamp(v, amp)
	}
}

func clamp(v, limit float64) int16 {
	if v > limit {
		v = limit
	}
	if v < -limit {
		v = -limit
	}
	return int16(math.Round(v))
}

var _ ports.Source = (*Source)(nil)
