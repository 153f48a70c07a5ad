package transition

import (
	"errors"
	"testing"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bull     = core.RegimeBull
	bear     = core.RegimeBear
	sideways = core.RegimeSideways
	crisis   = core.RegimeCrisis
)

func TestComputeMatrix_ObservedStates(t *testing.T) {
	m := ComputeMatrix([]core.Regime{bull, bull, bear, bear, bull}, 0.1)

	assert.ElementsMatch(t, []core.Regime{bull, bear}, m.States)
	assert.Equal(t, []core.Regime{bear, bull}, m.States, "states follow canonical order")

	p := m.Persistence(bull)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 1.0)

	// bull row: bull->bull 1, bull->bear 1
	assert.InDelta(t, 0.5, m.Probability(bull, bull), 1e-12)
	// bear row: bear->bear 1, bear->bull 1
	assert.InDelta(t, 0.5, m.Probability(bear, bull), 1e-12)
	assert.Equal(t, 1.0, m.Counts[m.Index(bear)][m.Index(bull)])
}

func TestComputeMatrix_RowsStochasticNoZeros(t *testing.T) {
	seqs := [][]core.Regime{
		{bull, bull, bull, bull},
		{crisis, bear, sideways, bull, bull, sideways},
		{bear},
		{},
	}
	for _, seq := range seqs {
		m := ComputeMatrix(seq, 0.1, core.CanonicalRegimes...)
		require.Len(t, m.Probabilities, 4)
		for i, row := range m.Probabilities {
			var sum float64
			for _, v := range row {
				assert.Greater(t, v, 0.0)
				sum += v
			}
			assert.InDelta(t, 1.0, sum, 1e-3, "row %d", i)
		}
	}
}

func TestComputeMatrix_ExplicitStatesIgnoreOthers(t *testing.T) {
	m := ComputeMatrix([]core.Regime{bull, crisis, bull, bull}, 0.1, bull, bear)
	assert.Equal(t, []core.Regime{bull, bear}, m.States)
	assert.Equal(t, 1.0, m.Counts[0][0])
	assert.Equal(t, 0.0, m.Counts[0][1])
	assert.Equal(t, -1, m.Index(crisis))
	assert.Equal(t, 0.0, m.Probability(crisis, bull))
}

func TestExpectedDuration(t *testing.T) {
	assert.Equal(t, MaxDuration, expectedDuration(1))
	assert.InDelta(t, 2.0, expectedDuration(0.5), 1e-12)
	assert.InDelta(t, 10.0, expectedDuration(0.9), 1e-9)

	m := ComputeMatrix([]core.Regime{bull, bull, bull}, 0.1)
	assert.Equal(t, MaxDuration, m.ExpectedDurations[bull], "single self-looping state")
}

func TestMostLikelyNext(t *testing.T) {
	m := ComputeMatrix([]core.Regime{bear, bull, bear, bull, bear, bear}, 0.1)
	next, p, ok := m.MostLikelyNext(bull)
	require.True(t, ok)
	assert.Equal(t, bear, next)
	assert.Greater(t, p, 0.5)

	_, _, ok = m.MostLikelyNext(crisis)
	assert.False(t, ok)
}

func TestSteadyState(t *testing.T) {
	m := Matrix{
		States:        []core.Regime{bear, bull},
		Probabilities: [][]float64{{0.9, 0.1}, {0.5, 0.5}},
	}
	ss := m.SteadyState()
	assert.InDelta(t, 5.0/6.0, ss[bear], 1e-9)
	assert.InDelta(t, 1.0/6.0, ss[bull], 1e-9)
	assert.Empty(t, Matrix{}.SteadyState())
}

func TestForecast(t *testing.T) {
	m := ComputeMatrix([]core.Regime{bull, bull, bear, bear, bull}, 0.1)

	fc, err := Forecast(bear, m, 3)
	require.NoError(t, err)
	require.Len(t, fc, 3)
	assert.InDelta(t, m.Probability(bear, bull), fc[0][bull], 1e-12)
	for _, d := range fc {
		assert.InDelta(t, 1.0, d.Sum(), 1e-9)
	}
}

func TestForecast_UnknownLabelUniform(t *testing.T) {
	m := ComputeMatrix([]core.Regime{bear, bear, sideways, bear}, 0.1)
	fc, err := Forecast(bull, m, 5)
	require.NoError(t, err)
	require.Len(t, fc, 5)
	for _, d := range fc {
		assert.InDelta(t, 1.0, d.Sum(), 1e-9)
		assert.InDelta(t, d[bear], d[sideways], 1e-12)
		assert.Len(t, d, len(m.States))
	}
}

func TestForecast_InvalidHorizon(t *testing.T) {
	_, err := Forecast(bull, Matrix{}, 0)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestDetectChanges(t *testing.T) {
	assert.Equal(t, []int{2, 4}, DetectChanges([]core.Regime{bull, bull, bear, bear, bull}))
	assert.Empty(t, DetectChanges(nil))
}

func TestToMap(t *testing.T) {
	m := ComputeMatrix([]core.Regime{bull, bear}, 0.1)
	tm := m.ToMap()
	require.Contains(t, tm, bull)
	assert.InDelta(t, m.Probability(bull, bear), tm[bull][bear], 1e-12)
}
