package transition

import (
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes one regime over a labeled return series.
type Stats struct {
	Count       int     `json:"count"`
	MeanReturn  float64 `json:"mean_return"`
	Volatility  float64 `json:"volatility"`
	AvgDuration float64 `json:"avg_duration"`
	MaxDuration int     `json:"max_duration"`
	Frequency   float64 `json:"frequency"`
}

// RegimeStats computes per-label statistics. Mismatched inputs are
// truncated to the shorter length.
func RegimeStats(labels []core.Regime, returns []float64) map[core.Regime]Stats {
	n := min(len(labels), len(returns))
	labels, returns = labels[:n], returns[:n]

	out := make(map[core.Regime]Stats)
	if n == 0 {
		return out
	}

	byLabel := make(map[core.Regime][]float64)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], returns[i])
	}

	runs := make(map[core.Regime][]int)
	for _, seg := range core.BuildSegments(labels, returns) {
		runs[seg.Regime] = append(runs[seg.Regime], seg.Length)
	}

	for l, rs := range byLabel {
		s := Stats{
			Count:      len(rs),
			MeanReturn: stat.Mean(rs, nil),
			Frequency:  float64(len(rs)) / float64(n),
		}
		if len(rs) > 1 {
			s.Volatility = stat.StdDev(rs, nil)
		}
		var total int
		for _, length := range runs[l] {
			total += length
			s.MaxDuration = max(s.MaxDuration, length)
		}
		if len(runs[l]) > 0 {
			s.AvgDuration = float64(total) / float64(len(runs[l]))
		}
		out[l] = s
	}
	return out
}

// Analyzer applies a fixed configuration to transition analysis.
type Analyzer struct {
	cfg    Config
	logger *zap.Logger
}

// NewAnalyzer validates cfg and returns an analyzer. A nil logger is
// replaced with a no-op logger.
func NewAnalyzer(cfg Config, logger *zap.Logger) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{cfg: cfg, logger: logger}, nil
}

func (a *Analyzer) Config() Config {
	return a.cfg
}

// ComputeMatrix estimates the transition matrix with the configured alpha.
func (a *Analyzer) ComputeMatrix(labels []core.Regime, states ...core.Regime) Matrix {
	m := ComputeMatrix(labels, a.cfg.Alpha, states...)
	a.logger.Debug("transition matrix computed",
		zap.Int("observations", len(labels)),
		zap.Int("states", len(m.States)),
	)
	return m
}

// Forecast uses the configured horizon when horizon is 0.
func (a *Analyzer) Forecast(current core.Regime, m Matrix, horizon int) ([]core.Distribution, error) {
	if horizon == 0 {
		horizon = a.cfg.Horizon
	}
	return Forecast(current, m, horizon)
}

// Report bundles the full transition analysis of one label sequence.
type Report struct {
	Matrix   Matrix                `json:"matrix"`
	Stats    map[core.Regime]Stats `json:"stats"`
	Changes  []int                 `json:"changes"`
	Current  core.Regime           `json:"current"`
	Steady   core.Distribution     `json:"steady_state"`
	Forecast []core.Distribution   `json:"forecast"`
	Next     core.Regime           `json:"most_likely_next,omitempty"`
}

// Analyze computes matrix, statistics, change points and a forecast from
// the last label. returns may be nil.
func (a *Analyzer) Analyze(labels []core.Regime, returns []float64, horizon int) (*Report, error) {
	if len(labels) == 0 {
		return nil, core.Errorf(core.ErrInsufficientData, "no labels to analyze")
	}
	m := a.ComputeMatrix(labels)
	current := labels[len(labels)-1]
	fc, err := a.Forecast(current, m, horizon)
	if err != nil {
		return nil, err
	}
	next, _, _ := m.MostLikelyNext(current)
	if returns == nil {
		returns = make([]float64, len(labels))
	}

	return &Report{
		Matrix:   m,
		Stats:    RegimeStats(labels, returns),
		Changes:  DetectChanges(labels),
		Current:  current,
		Steady:   m.SteadyState(),
		Forecast: fc,
		Next:     next,
	}, nil
}
