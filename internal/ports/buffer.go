package ports

import "github.com/ghalamif/myofeed/internal/domain"

// SampleAppender is the producer side of a sample buffer.
type SampleAppender interface {
	Append(ts int64, values []int16)
}

// SampleDrainer is the consumer side of a buffer built for drain semantics.
type SampleDrainer interface {
	Drain() []domain.Sample
	Stats() BufferStats
}

// SampleView is a live reference into a buffer. Every call reads the
// current contents; consecutive calls may disagree on length and contents.
type SampleView interface {
	Samples() []domain.Sample
	Len() int
	Stats() BufferStats
}

type BufferStats struct {
	Len      int
	Cap      int
	Appended uint64
	Evicted  uint64
	Drained  uint64
}
