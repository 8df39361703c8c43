package domain

import "time"

// TimestampUnit is the resolution of Sample.Timestamp. Wearable EMG bands
// stamp readings with a microsecond device clock.
const TimestampUnit = time.Microsecond

// Sample is one timestamped EMG reading, one value per electrode channel.
// A Sample is never mutated after it has been appended to a buffer.
type Sample struct {
	Timestamp int64   `json:"ts"`
	Values    []int16 `json:"values"`
}

// NewSample copies values so the producer may reuse its slice.
func NewSample(ts int64, values []int16) Sample {
	var v []int16
	if len(values) > 0 {
		v = make([]int16, len(values))
		copy(v, values)
	}
	return Sample{Timestamp: ts, Values: v}
}
