// Package transition estimates empirical regime transition dynamics
// from realized label sequences and forecasts future regimes.
package transition

import (
	"math"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"gonum.org/v1/gonum/floats"
)

// MaxDuration is reported for a state that never leaves itself.
const MaxDuration = 999.0

// Config holds analyzer settings.
type Config struct {
	// Alpha is the additive smoothing applied to every transition count.
	Alpha float64
	// Horizon is the default forecast length.
	Horizon int
}

func DefaultConfig() Config {
	return Config{Alpha: 0.1, Horizon: 5}
}

func (c Config) Validate() error {
	if c.Alpha <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "transition alpha must be positive, got %g", c.Alpha)
	}
	if c.Horizon < 1 {
		return core.Errorf(core.ErrConfigInvalid, "forecast horizon must be at least 1, got %d", c.Horizon)
	}
	return nil
}

// Matrix is a row-stochastic transition matrix over States.
type Matrix struct {
	States            []core.Regime           `json:"states"`
	Probabilities     [][]float64             `json:"probabilities"`
	Counts            [][]float64             `json:"counts"`
	ExpectedDurations map[core.Regime]float64 `json:"expected_durations"`
}

// Index returns the row of label, or -1.
func (m Matrix) Index(label core.Regime) int {
	for i, s := range m.States {
		if s == label {
			return i
		}
	}
	return -1
}

// Probability returns P(to | from), or 0 when either label is unknown.
func (m Matrix) Probability(from, to core.Regime) float64 {
	i, j := m.Index(from), m.Index(to)
	if i < 0 || j < 0 {
		return 0
	}
	return m.Probabilities[i][j]
}

// Persistence returns the self-transition probability of label.
func (m Matrix) Persistence(label core.Regime) float64 {
	return m.Probability(label, label)
}

// MostLikelyNext returns the most probable successor of label. Ties go
// to the earlier state. ok is false for an unknown label.
func (m Matrix) MostLikelyNext(label core.Regime) (next core.Regime, p float64, ok bool) {
	i := m.Index(label)
	if i < 0 {
		return "", 0, false
	}
	j := floats.MaxIdx(m.Probabilities[i])
	return m.States[j], m.Probabilities[i][j], true
}

// SteadyState returns the stationary distribution found by power
// iteration from the uniform distribution.
func (m Matrix) SteadyState() core.Distribution {
	n := len(m.States)
	if n == 0 {
		return core.Distribution{}
	}
	v := make([]float64, n)
	for i := range v {
		v[i] = 1 / float64(n)
	}
	for it := 0; it < 10000; it++ {
		next := m.step(v)
		if floats.Distance(next, v, 1) < 1e-12 {
			v = next
			break
		}
		v = next
	}
	return m.toDistribution(v)
}

// ToMap returns the probabilities as nested maps keyed by label.
func (m Matrix) ToMap() map[core.Regime]map[core.Regime]float64 {
	out := make(map[core.Regime]map[core.Regime]float64, len(m.States))
	for i, from := range m.States {
		row := make(map[core.Regime]float64, len(m.States))
		for j, to := range m.States {
			row[to] = m.Probabilities[i][j]
		}
		out[from] = row
	}
	return out
}

func (m Matrix) step(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, p := range v {
		if p == 0 {
			continue
		}
		floats.AddScaled(out, p, m.Probabilities[i])
	}
	return out
}

func (m Matrix) toDistribution(v []float64) core.Distribution {
	d := make(core.Distribution, len(v))
	for i, s := range m.States {
		d[s] = v[i]
	}
	return d
}

// ComputeMatrix counts adjacent label pairs and normalizes the smoothed
// counts row by row. With explicit states, transitions touching other
// labels are ignored; otherwise the observed labels are used in
// canonical order.
func ComputeMatrix(labels []core.Regime, alpha float64, states ...core.Regime) Matrix {
	if len(states) == 0 {
		seen := make(map[core.Regime]bool)
		for _, l := range labels {
			if !seen[l] {
				seen[l] = true
				states = append(states, l)
			}
		}
		core.SortRegimes(states)
	} else {
		states = append([]core.Regime(nil), states...)
	}

	m := Matrix{States: states, ExpectedDurations: make(map[core.Regime]float64, len(states))}
	n := len(states)
	m.Counts = make([][]float64, n)
	m.Probabilities = make([][]float64, n)
	for i := range m.Counts {
		m.Counts[i] = make([]float64, n)
		m.Probabilities[i] = make([]float64, n)
	}

	for t := 1; t < len(labels); t++ {
		i, j := m.Index(labels[t-1]), m.Index(labels[t])
		if i < 0 || j < 0 {
			continue
		}
		m.Counts[i][j]++
	}

	for i := range m.Counts {
		total := floats.Sum(m.Counts[i]) + alpha*float64(n)
		for j, c := range m.Counts[i] {
			if total > 0 {
				m.Probabilities[i][j] = (c + alpha) / total
			} else {
				m.Probabilities[i][j] = 1 / float64(n)
			}
		}
		m.ExpectedDurations[states[i]] = expectedDuration(m.Probabilities[i][i])
	}
	return m
}

func expectedDuration(self float64) float64 {
	if self >= 1 {
		return MaxDuration
	}
	d := 1 / (1 - self)
	if math.IsInf(d, 0) {
		return MaxDuration
	}
	return d
}

// DetectChanges returns the indices where the label differs from its
// predecessor.
func DetectChanges(labels []core.Regime) []int {
	return core.ChangePoints(labels)
}

// Forecast propagates a one-hot vector at current through m for horizon
// steps. An unknown current label yields uniform distributions.
func Forecast(current core.Regime, m Matrix, horizon int) ([]core.Distribution, error) {
	if horizon < 1 {
		return nil, core.Errorf(core.ErrConfigInvalid, "forecast horizon must be at least 1, got %d", horizon)
	}
	out := make([]core.Distribution, horizon)

	i := m.Index(current)
	if i < 0 {
		for h := range out {
			out[h] = core.Uniform(m.States)
		}
		return out, nil
	}

	v := make([]float64, len(m.States))
	v[i] = 1
	for h := range out {
		v = m.step(v)
		out[h] = m.toDistribution(v)
	}
	return out, nil
}
