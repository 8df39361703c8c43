package buffer

import (
	"github.com/ghalamif/myofeed/internal/domain"
	"github.com/ghalamif/myofeed/internal/ports"
)

// Live is a bounded sample buffer observed through a View. Reads never
// remove samples; the producer keeps appending and evicting underneath.
type Live struct {
	r *ring
}

// NewLive returns an empty buffer; capacity <= 0 means DefaultCapacity.
func NewLive(capacity int) *Live {
	return &Live{r: newRing(capacity)}
}

// Append adds a sample as the newest entry, evicting the oldest at capacity.
func (l *Live) Append(ts int64, values []int16) { l.r.push(ts, values) }

// View returns a reference that keeps reflecting the buffer's latest state.
// It is safe to obtain once and read from for the rest of the session.
func (l *Live) View() *View { return &View{r: l.r} }

// Len reports how many samples are held right now.
func (l *Live) Len() int { return l.r.len() }

// Cap reports the maximum number of samples held before eviction.
func (l *Live) Cap() int { return len(l.r.buf) }

// Stats returns the buffer counters read in one critical section.
func (l *Live) Stats() ports.BufferStats { return l.r.stats() }

// View reads the current window of a Live buffer. The lock is held only
// while copying, so callers may process the returned slice at leisure.
type View struct {
	r *ring
}

// Samples returns a fresh copy of the current window, oldest first.
func (v *View) Samples() []domain.Sample { return v.r.snapshot() }

// Latest returns the newest sample, if any.
func (v *View) Latest() (domain.Sample, bool) { return v.r.latest() }

// Len reports the current window length.
func (v *View) Len() int { return v.r.len() }

// Stats returns the counters of the underlying buffer.
func (v *View) Stats() ports.BufferStats { return v.r.stats() }

var (
	_ ports.SampleAppender = (*Live)(nil)
	_ ports.SampleView     = (*View)(nil)
)
