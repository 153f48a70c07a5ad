package ensemble

import (
	"errors"
	"testing"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareMethods(t *testing.T) {
	e := newEnsemble(t)
	results := []MethodResult{
		{Method: core.MethodHMM, Regime: core.RegimeBull, Confidence: 0.8, Weight: 0.5},
		{Method: core.MethodCluster, Regime: core.RegimeBear, Confidence: 0.6, Weight: 0.5},
	}
	cmp, err := e.CompareMethods(results)
	require.NoError(t, err)

	assert.Equal(t, []string{core.MethodCluster}, cmp.Divergent)
	assert.InDelta(t, 0.2, cmp.ConfidenceSpread, 1e-12)
	assert.True(t, cmp.Transitioning)

	direct, err := e.Combine(results)
	require.NoError(t, err)
	assert.Equal(t, direct, cmp.Consensus, "comparison must not alter the consensus")
}

func TestCompareMethods_Agreeing(t *testing.T) {
	e := newEnsemble(t)
	cmp, err := e.CompareStates(map[string]core.Result{
		core.MethodHMM:     {Regime: core.RegimeSideways, Confidence: 0.7},
		core.MethodCluster: {Regime: core.RegimeSideways, Confidence: 0.7},
	})
	require.NoError(t, err)
	assert.Empty(t, cmp.Divergent)
	assert.Equal(t, 0.0, cmp.ConfidenceSpread)
	assert.False(t, cmp.Transitioning)

	_, err = e.CompareMethods(nil)
	assert.True(t, errors.Is(err, core.ErrNoMethods))
}

func TestCombineHistories(t *testing.T) {
	e := newEnsemble(t)
	histories := map[string]core.History{
		core.MethodHMM: {
			Method:      core.MethodHMM,
			Labels:      []core.Regime{core.RegimeBull, core.RegimeBear, core.RegimeBull},
			Confidences: []float64{0.9, 0.9, 0.9},
		},
		core.MethodCluster: {
			Method:      core.MethodCluster,
			Labels:      []core.Regime{core.RegimeBear, core.RegimeBear},
			Confidences: []float64{0.6, 0.6},
		},
		core.MethodRule: {Method: core.MethodRule},
	}

	h, err := e.CombineHistories(histories, []float64{0.1, -0.01, 0.02})
	require.NoError(t, err)
	require.Equal(t, 2, h.Len())
	assert.Equal(t, core.MethodEnsemble, h.Method)
	assert.Equal(t, []core.Regime{core.RegimeBear, core.RegimeBull}, h.Labels)
	require.Len(t, h.Segments, 2)
	assert.InDelta(t, -0.01, h.Segments[0].MeanReturn, 1e-12)
	for _, d := range h.Probabilities {
		assert.InDelta(t, 1.0, d.Sum(), 1e-9)
	}

	_, err = e.CombineHistories(map[string]core.History{"x": {}}, nil)
	assert.True(t, errors.Is(err, core.ErrNoMethods))
}
