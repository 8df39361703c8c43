package myofeed

import (
	"math"

	"github.com/ghalamif/myofeed/internal/domain"
)

// Rectify returns a Transformer producing full-wave rectified samples, the
// usual input for EMG envelope displays.
func Rectify() Transformer { return rectifier{} }

type rectifier struct{}

func (rectifier) Transform(s domain.Sample) (domain.Sample, error) {
	out := make([]int16, len(s.Values))
	for i, v := range s.Values {
		switch {
		case v == math.MinInt16:
			out[i] = math.MaxInt16
		case v < 0:
			out[i] = -v
		default:
			out[i] = v
		}
	}
	return domain.Sample{Timestamp: s.Timestamp, Values: out}, nil
}

func (rectifier) Name() string { return "rectify" }
