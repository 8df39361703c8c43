package myofeed

import "testing"

func TestRectify(t *testing.T) {
	in := PipelineSample{Timestamp: 9, Values: []int16{-5, 0, 7, -32768}}
	out, err := Rectify().Transform(in)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	want := []int16{5, 0, 7, 32767}
	for i := range want {
		if out.Values[i] != want[i] {
			t.Fatalf("channel %d: expected %d, got %d", i, want[i], out.Values[i])
		}
	}
	if in.Values[0] != -5 {
		t.Fatalf("Rectify must not modify its input")
	}
	if out.Timestamp != 9 {
		t.Fatalf("timestamp not preserved")
	}
}
