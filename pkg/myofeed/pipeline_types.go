package myofeed

import (
	"time"

	"github.com/ghalamif/myofeed/internal/adapters/buffer"
	"github.com/ghalamif/myofeed/internal/domain"
	"github.com/ghalamif/myofeed/internal/ports"
	"github.com/ghalamif/myofeed/internal/rate"
)

// PipelineSample is the immutable sample stored in buffers and handed to sinks.
type PipelineSample = domain.Sample

// TimestampUnit is the unit of PipelineSample.Timestamp.
const TimestampUnit = domain.TimestampUnit

// DefaultCapacity is the buffer size used when none is configured.
const DefaultCapacity = buffer.DefaultCapacity

// Source produces samples (device SDK glue, OPC UA, simulators) by calling Append.
type Source = ports.Source

// SampleAppender is what a Source appends into.
type SampleAppender = ports.SampleAppender

// Transformer lets callers mutate samples (rectification, calibration) before the sink.
type Transformer = ports.Transformer

// Sink consumes ordered batches of samples: a display, a classifier, a logger.
type Sink = ports.Sink

// Observability emits metrics/logs about throughput, evictions and sink latency.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// BufferStats exposes cumulative buffer counters.
type BufferStats = ports.BufferStats

type (
	// DrainBuffer is a bounded buffer read with read-and-clear semantics.
	DrainBuffer = buffer.Drain
	// LiveBuffer is a bounded buffer read through a LiveView.
	LiveBuffer = buffer.Live
	// LiveView keeps reflecting a LiveBuffer's latest contents.
	LiveView = buffer.View
	// RateEstimator derives a sampling frequency from a window of samples.
	RateEstimator = rate.Estimator
)

// NewDrainBuffer returns a drain-mode buffer holding at most capacity samples.
func NewDrainBuffer(capacity int) *DrainBuffer { return buffer.NewDrain(capacity) }

// NewLiveBuffer returns a live-view buffer holding at most capacity samples.
func NewLiveBuffer(capacity int) *LiveBuffer { return buffer.NewLive(capacity) }

// NewRateEstimator returns an estimator for timestamps in the given unit.
func NewRateEstimator(unit time.Duration) RateEstimator { return rate.New(unit) }
