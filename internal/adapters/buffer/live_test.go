package buffer

import (
	"sync"
	"testing"
)

func TestViewReflectsLaterAppends(t *testing.T) {
	l := NewLive(3)
	view := l.View()

	if view.Len() != 0 {
		t.Fatalf("expected empty view, got %d", view.Len())
	}
	if _, ok := view.Latest(); ok {
		t.Fatalf("expected no latest sample on empty buffer")
	}

	l.Append(10, []int16{1})
	if got := view.Samples(); len(got) != 1 || got[0].Timestamp != 10 {
		t.Fatalf("view did not reflect first append: %+v", got)
	}

	l.Append(20, []int16{2})
	l.Append(30, []int16{3})
	l.Append(40, []int16{4})

	got := view.Samples()
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	if got[0].Timestamp != 20 || got[2].Timestamp != 40 {
		t.Fatalf("view did not reflect eviction: %+v", got)
	}
	latest, ok := view.Latest()
	if !ok || latest.Timestamp != 40 {
		t.Fatalf("unexpected latest sample: %+v ok=%v", latest, ok)
	}
}

func TestViewReadsAreNonDestructive(t *testing.T) {
	l := NewLive(4)
	l.Append(1, nil)
	l.Append(2, nil)

	view := l.View()
	first := view.Samples()
	second := view.Samples()
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected both reads to see 2 samples, got %d and %d", len(first), len(second))
	}
	if l.Stats().Drained != 0 {
		t.Fatalf("live reads must not count as drained")
	}
}

func TestViewSnapshotIsDetached(t *testing.T) {
	l := NewLive(2)
	l.Append(1, nil)
	view := l.View()

	snap := view.Samples()
	l.Append(2, nil)
	l.Append(3, nil)

	if len(snap) != 1 || snap[0].Timestamp != 1 {
		t.Fatalf("earlier snapshot changed underneath the consumer: %+v", snap)
	}
}

func TestViewConcurrentReadsStayOrdered(t *testing.T) {
	l := NewLive(64)
	view := l.View()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10_000; i++ {
			l.Append(int64(i), []int16{0, 0})
		}
	}()

	for i := 0; i < 1_000; i++ {
		snap := view.Samples()
		if len(snap) > 64 {
			t.Fatalf("snapshot exceeds capacity: %d", len(snap))
		}
		for j := 1; j < len(snap); j++ {
			if snap[j].Timestamp != snap[j-1].Timestamp+1 {
				t.Fatalf("snapshot not contiguous at %d: %d after %d", j, snap[j].Timestamp, snap[j-1].Timestamp)
			}
		}
	}
	wg.Wait()

	if got := view.Samples(); len(got) != 64 || got[63].Timestamp != 9_999 {
		t.Fatalf("final window wrong: len=%d", len(got))
	}
}

func TestLiveNonPositiveCapacityFallsBackToDefault(t *testing.T) {
	l := NewLive(0)
	if l.Cap() != DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultCapacity, l.Cap())
	}
	l.Append(1, []int16{1})
	if l.Len() != 1 || l.Stats().Appended != 1 {
		t.Fatalf("unexpected state after one append: len=%d stats=%+v", l.Len(), l.Stats())
	}
}
