package buffer

import (
	"sync"

	"github.com/ghalamif/myofeed/internal/domain"
	"github.com/ghalamif/myofeed/internal/ports"
)

// DefaultCapacity is used when a constructor is given a non-positive capacity.
const DefaultCapacity = 200

// ring is a fixed-size FIFO that overwrites its oldest entry when full.
// All access goes through mu; callers never see buf directly.
type ring struct {
	mu    sync.Mutex
	buf   []domain.Sample
	head  int // index of the oldest sample
	count int

	appended uint64
	evicted  uint64
	drained  uint64
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ring{buf: make([]domain.Sample, capacity)}
}

func (r *ring) push(ts int64, values []int16) {
	s := domain.NewSample(ts, values)

	r.mu.Lock()
	defer r.mu.Unlock()

	tail := (r.head + r.count) % len(r.buf)
	r.buf[tail] = s
	if r.count == len(r.buf) {
		r.head = (r.head + 1) % len(r.buf)
		r.evicted++
	} else {
		r.count++
	}
	r.appended++
}

// copyLocked returns the held samples oldest first. r.mu must be held.
func (r *ring) copyLocked() []domain.Sample {
	if r.count == 0 {
		return nil
	}
	out := make([]domain.Sample, r.count)
	n := copy(out, r.buf[r.head:min(r.head+r.count, len(r.buf))])
	copy(out[n:], r.buf[:r.count-n])
	return out
}

func (r *ring) snapshot() []domain.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyLocked()
}

func (r *ring) takeAll() []domain.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.copyLocked()
	clear(r.buf)
	r.head = 0
	r.count = 0
	r.drained += uint64(len(out))
	return out
}

func (r *ring) latest() (domain.Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return domain.Sample{}, false
	}
	return r.buf[(r.head+r.count-1)%len(r.buf)], true
}

func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *ring) stats() ports.BufferStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ports.BufferStats{
		Len:      r.count,
		Cap:      len(r.buf),
		Appended: r.appended,
		Evicted:  r.evicted,
		Drained:  r.drained,
	}
}
