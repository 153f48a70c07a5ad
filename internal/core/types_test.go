package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelsFor(t *testing.T) {
	tests := []struct {
		n    int
		want []Regime
	}{
		{2, []Regime{RegimeBear, RegimeBull}},
		{3, []Regime{RegimeBear, RegimeSideways, RegimeBull}},
		{4, []Regime{RegimeCrisis, RegimeBear, RegimeSideways, RegimeBull}},
	}
	for _, tt := range tests {
		got, err := LabelsFor(tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	for _, n := range []int{0, 1, 5} {
		_, err := LabelsFor(n)
		assert.True(t, errors.Is(err, ErrConfigInvalid), "n=%d should be rejected", n)
	}
}

func TestLabelsFor_AscendingRank(t *testing.T) {
	for n := 2; n <= 4; n++ {
		labels, err := LabelsFor(n)
		require.NoError(t, err)
		for i := 1; i < len(labels); i++ {
			assert.Less(t, labels[i-1].Rank(), labels[i].Rank())
		}
	}
}

func TestSortRegimes(t *testing.T) {
	labels := []Regime{"melt_up", RegimeBull, RegimeCrisis, RegimeSideways, "bubble", RegimeBear}
	SortRegimes(labels)
	assert.Equal(t, []Regime{RegimeCrisis, RegimeBear, RegimeSideways, RegimeBull, "bubble", "melt_up"}, labels)
}

func TestDistribution_Normalize(t *testing.T) {
	d := Distribution{RegimeBull: 3, RegimeBear: 1}
	n := d.Normalize()
	assert.InDelta(t, 1.0, n.Sum(), 1e-12)
	assert.InDelta(t, 0.75, n[RegimeBull], 1e-12)
	// original untouched
	assert.Equal(t, 3.0, d[RegimeBull])

	zero := Distribution{RegimeBull: 0, RegimeBear: 0}.Normalize()
	assert.InDelta(t, 0.5, zero[RegimeBull], 1e-12)
}

func TestDistribution_SumCanonicalOrder(t *testing.T) {
	d := Distribution{RegimeCrisis: 0.1, RegimeBear: 0.2, RegimeSideways: 1.0 / 3, RegimeBull: 0.7, "recovery": 1e-17}
	want := 0.1 + 0.2 + 1.0/3 + 0.7 + 1e-17
	for i := 0; i < 200; i++ {
		if got := d.Sum(); got != want {
			t.Fatalf("call %d: Sum() = %v, want %v", i, got, want)
		}
	}
}

func TestDistribution_ArgmaxTieBreak(t *testing.T) {
	d := Distribution{RegimeBull: 0.4, RegimeBear: 0.4, RegimeSideways: 0.2}
	label, p := d.Argmax(nil)
	assert.Equal(t, RegimeBear, label, "canonical order breaks ties")
	assert.Equal(t, 0.4, p)

	label, _ = d.Argmax([]Regime{RegimeBull, RegimeBear})
	assert.Equal(t, RegimeBull, label, "explicit order breaks ties")

	label, p = Distribution{}.Argmax(nil)
	assert.Equal(t, RegimeSideways, label)
	assert.Equal(t, 0.0, p)
}

func TestUniform(t *testing.T) {
	u := Uniform(CanonicalRegimes)
	for _, l := range CanonicalRegimes {
		assert.InDelta(t, 0.25, u[l], 1e-12)
	}
	assert.Empty(t, Uniform(nil))
}

func TestUnknown(t *testing.T) {
	r := Unknown(MethodHMM)
	assert.Equal(t, RegimeSideways, r.Regime)
	assert.Equal(t, 0.0, r.Confidence)
	assert.True(t, r.IsUnknown())
	assert.Equal(t, MethodHMM, r.Method)
}

func TestResult_ToMap(t *testing.T) {
	r := Result{
		Regime:        RegimeBull,
		Confidence:    0.75,
		Probabilities: Distribution{RegimeBull: 0.75, RegimeBear: 0.25},
		Duration:      12,
		Method:        MethodCluster,
	}
	m := r.ToMap()
	assert.Equal(t, "bull", m["regime"])
	assert.Equal(t, "0.75", m["confidence"])
	assert.Equal(t, "12", m["duration"])
	assert.Equal(t, "cluster", m["method"])
	assert.Equal(t, "0.25", m["prob.bear"])
}

func TestHistory_Last(t *testing.T) {
	h := History{
		Method:      MethodRule,
		Labels:      []Regime{RegimeBear, RegimeBull, RegimeBull},
		Confidences: []float64{0.6, 0.7, 0.8},
		Probabilities: []Distribution{
			{RegimeBear: 0.6, RegimeBull: 0.4},
			{RegimeBear: 0.3, RegimeBull: 0.7},
			{RegimeBear: 0.2, RegimeBull: 0.8},
		},
	}
	last := h.Last()
	assert.Equal(t, RegimeBull, last.Regime)
	assert.Equal(t, 0.8, last.Confidence)
	assert.Equal(t, 2, last.Duration)
	assert.False(t, math.IsNaN(last.Probabilities[RegimeBull]))

	assert.True(t, History{Method: MethodRule}.Last().IsUnknown())
}
