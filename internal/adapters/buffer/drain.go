package buffer

import (
	"github.com/ghalamif/myofeed/internal/domain"
	"github.com/ghalamif/myofeed/internal/ports"
)

// Drain is a bounded sample buffer consumed with read-and-clear semantics.
// Each Drain call returns what arrived since the previous one.
type Drain struct {
	r *ring
}

// NewDrain returns an empty buffer; capacity <= 0 means DefaultCapacity.
func NewDrain(capacity int) *Drain {
	return &Drain{r: newRing(capacity)}
}

// Append adds a sample as the newest entry, evicting the oldest at capacity.
func (d *Drain) Append(ts int64, values []int16) { d.r.push(ts, values) }

// Drain returns every held sample oldest first and empties the buffer in
// the same critical section. It never waits for data.
func (d *Drain) Drain() []domain.Sample { return d.r.takeAll() }

// Len reports how many samples are held right now.
func (d *Drain) Len() int { return d.r.len() }

// Cap reports the maximum number of samples held before eviction.
func (d *Drain) Cap() int { return len(d.r.buf) }

// Stats returns the buffer counters read in one critical section.
func (d *Drain) Stats() ports.BufferStats { return d.r.stats() }

var (
	_ ports.SampleAppender = (*Drain)(nil)
	_ ports.SampleDrainer  = (*Drain)(nil)
)
