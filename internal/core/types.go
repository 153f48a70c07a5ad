package core

import (
	"fmt"
	"sort"
	"strconv"
)

// Regime is a qualitative market condition label.
type Regime string

const (
	RegimeCrisis   Regime = "crisis"
	RegimeBear     Regime = "bear"
	RegimeSideways Regime = "sideways"
	RegimeBull     Regime = "bull"
)

// Method tags identify the classifier that produced a result.
const (
	MethodHMM      = "hmm"
	MethodCluster  = "cluster"
	MethodRule     = "rule"
	MethodEnsemble = "ensemble"
)

// CanonicalRegimes lists every built-in label ordered by expected mean return.
var CanonicalRegimes = []Regime{RegimeCrisis, RegimeBear, RegimeSideways, RegimeBull}

// Rank orders regimes from lowest to highest expected return.
// Labels outside the canonical set rank after all canonical ones.
func (r Regime) Rank() int {
	for i, c := range CanonicalRegimes {
		if r == c {
			return i
		}
	}
	return len(CanonicalRegimes)
}

// LabelsFor returns the canonical ascending labels for an n-state model.
func LabelsFor(n int) ([]Regime, error) {
	switch n {
	case 2:
		return []Regime{RegimeBear, RegimeBull}, nil
	case 3:
		return []Regime{RegimeBear, RegimeSideways, RegimeBull}, nil
	case 4:
		return []Regime{RegimeCrisis, RegimeBear, RegimeSideways, RegimeBull}, nil
	default:
		return nil, Errorf(ErrConfigInvalid, "state count must be between 2 and 4, got %d", n)
	}
}

// SortRegimes sorts labels in canonical rank order, unknown labels alphabetically.
func SortRegimes(labels []Regime) {
	sort.SliceStable(labels, func(i, j int) bool {
		ri, rj := labels[i].Rank(), labels[j].Rank()
		if ri != rj {
			return ri < rj
		}
		return labels[i] < labels[j]
	})
}

// Distribution is a probability mass over regime labels.
type Distribution map[Regime]float64

// Uniform spreads unit mass evenly over labels.
func Uniform(labels []Regime) Distribution {
	d := make(Distribution, len(labels))
	if len(labels) == 0 {
		return d
	}
	p := 1.0 / float64(len(labels))
	for _, l := range labels {
		d[l] = p
	}
	return d
}

// Sum returns the total mass, accumulated in canonical label order so
// repeated calls agree bit for bit.
func (d Distribution) Sum() float64 {
	var s float64
	for _, l := range d.Labels() {
		s += d[l]
	}
	return s
}

// Normalize returns a copy scaled to unit mass. A zero-mass
// distribution normalizes to uniform over its keys.
func (d Distribution) Normalize() Distribution {
	out := make(Distribution, len(d))
	total := d.Sum()
	if total <= 0 {
		for l := range d {
			out[l] = 1.0 / float64(len(d))
		}
		return out
	}
	for l, p := range d {
		out[l] = p / total
	}
	return out
}

// Argmax returns the label with the greatest mass. Ties resolve to the
// label appearing first in order; labels missing from order are
// considered afterwards in canonical order.
func (d Distribution) Argmax(order []Regime) (Regime, float64) {
	labels := d.Labels()
	if len(order) > 0 {
		seen := make(map[Regime]bool, len(order))
		merged := make([]Regime, 0, len(labels))
		for _, l := range order {
			if _, ok := d[l]; ok && !seen[l] {
				merged = append(merged, l)
				seen[l] = true
			}
		}
		for _, l := range labels {
			if !seen[l] {
				merged = append(merged, l)
			}
		}
		labels = merged
	}

	var best Regime
	bestP := -1.0
	for _, l := range labels {
		if d[l] > bestP {
			best, bestP = l, d[l]
		}
	}
	if bestP < 0 {
		return RegimeSideways, 0
	}
	return best, bestP
}

// Labels returns the distribution's keys in canonical order.
func (d Distribution) Labels() []Regime {
	out := make([]Regime, 0, len(d))
	for l := range d {
		out = append(out, l)
	}
	SortRegimes(out)
	return out
}

// Clone returns an independent copy.
func (d Distribution) Clone() Distribution {
	out := make(Distribution, len(d))
	for l, p := range d {
		out[l] = p
	}
	return out
}

// Result is a single-point regime classification.
type Result struct {
	Regime        Regime       `json:"regime"`
	Confidence    float64      `json:"confidence"`
	Probabilities Distribution `json:"probabilities,omitempty"`
	Duration      int          `json:"duration"`
	Method        string       `json:"method"`
}

// Unknown is the "no opinion" result returned when history is too short.
func Unknown(method string) Result {
	return Result{
		Regime:        RegimeSideways,
		Confidence:    0,
		Probabilities: Distribution{},
		Duration:      0,
		Method:        method,
	}
}

// IsUnknown reports whether r carries no opinion.
func (r Result) IsUnknown() bool {
	return r.Confidence == 0 && len(r.Probabilities) == 0
}

// ToMap flattens the result into string key-value pairs.
func (r Result) ToMap() map[string]string {
	m := map[string]string{
		"regime":     string(r.Regime),
		"confidence": strconv.FormatFloat(r.Confidence, 'f', -1, 64),
		"duration":   strconv.Itoa(r.Duration),
		"method":     r.Method,
	}
	for l, p := range r.Probabilities {
		m[fmt.Sprintf("prob.%s", l)] = strconv.FormatFloat(p, 'f', -1, 64)
	}
	return m
}

// Segment is a contiguous run of one regime label.
type Segment struct {
	Regime     Regime  `json:"regime"`
	Start      int     `json:"start"`
	End        int     `json:"end"` // inclusive
	Length     int     `json:"length"`
	MeanReturn float64 `json:"mean_return"`
	Volatility float64 `json:"volatility"`
}

// History is a classification extended over every observation.
type History struct {
	Method        string         `json:"method"`
	Labels        []Regime       `json:"labels"`
	Confidences   []float64      `json:"confidences"`
	Probabilities []Distribution `json:"probabilities,omitempty"`
	Segments      []Segment      `json:"segments"`
}

// Len returns the number of classified observations.
func (h History) Len() int {
	return len(h.Labels)
}

// Last returns the classification at the final step as a Result.
func (h History) Last() Result {
	n := len(h.Labels)
	if n == 0 {
		return Unknown(h.Method)
	}
	res := Result{
		Regime:     h.Labels[n-1],
		Confidence: h.Confidences[n-1],
		Duration:   TrailingDuration(h.Labels),
		Method:     h.Method,
	}
	if len(h.Probabilities) == n {
		res.Probabilities = h.Probabilities[n-1].Clone()
	}
	return res
}
