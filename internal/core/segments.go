package core

import "gonum.org/v1/gonum/stat"

// ChangePoints returns indices i where labels[i] != labels[i-1].
func ChangePoints(labels []Regime) []int {
	changes := []int{}
	for i := 1; i < len(labels); i++ {
		if labels[i] != labels[i-1] {
			changes = append(changes, i)
		}
	}
	return changes
}

// TrailingDuration counts consecutive trailing periods sharing the last label.
func TrailingDuration(labels []Regime) int {
	n := len(labels)
	if n == 0 {
		return 0
	}
	d := 1
	for i := n - 2; i >= 0 && labels[i] == labels[n-1]; i-- {
		d++
	}
	return d
}

// BuildSegments partitions labels into contiguous same-label runs.
// Returns beyond len(labels) are ignored; missing returns leave the
// segment statistics computed over what is available.
func BuildSegments(labels []Regime, returns []float64) []Segment {
	segments := []Segment{}
	if len(labels) == 0 {
		return segments
	}

	start := 0
	for i := 1; i <= len(labels); i++ {
		if i < len(labels) && labels[i] == labels[start] {
			continue
		}
		segments = append(segments, newSegment(labels[start], start, i-1, returns))
		start = i
	}
	return segments
}

func newSegment(label Regime, start, end int, returns []float64) Segment {
	seg := Segment{
		Regime: label,
		Start:  start,
		End:    end,
		Length: end - start + 1,
	}

	if start >= len(returns) {
		return seg
	}
	hi := end + 1
	if hi > len(returns) {
		hi = len(returns)
	}
	window := returns[start:hi]
	seg.MeanReturn = stat.Mean(window, nil)
	if len(window) > 1 {
		seg.Volatility = stat.StdDev(window, nil)
	}
	return seg
}

// PadHead left-pads values to length n by repeating the first element.
func PadHead[T any](values []T, n int) []T {
	if len(values) >= n || len(values) == 0 {
		return values
	}
	out := make([]T, n)
	pad := n - len(values)
	for i := 0; i < pad; i++ {
		out[i] = values[0]
	}
	copy(out[pad:], values)
	return out
}
