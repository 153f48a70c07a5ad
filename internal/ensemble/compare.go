package ensemble

import (
	"sort"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
)

// Comparison reports how far the methods diverge from their consensus.
type Comparison struct {
	Consensus        Consensus       `json:"consensus"`
	Agreement        map[string]bool `json:"agreement"`
	Divergent        []string        `json:"divergent"`
	ConfidenceSpread float64         `json:"confidence_spread"`
	Transitioning    bool            `json:"transitioning"`
}

// CompareMethods combines results and lists the methods that disagree.
// Transitioning is set when the methods are split at best evenly.
func (e *Ensemble) CompareMethods(results []MethodResult) (Comparison, error) {
	c, err := e.Combine(results)
	if err != nil {
		return Comparison{}, err
	}

	divergent := []string{}
	for m, ok := range c.Agreement {
		if !ok {
			divergent = append(divergent, m)
		}
	}
	sort.Strings(divergent)

	lo, hi := results[0].Confidence, results[0].Confidence
	for _, r := range results[1:] {
		lo = min(lo, r.Confidence)
		hi = max(hi, r.Confidence)
	}

	return Comparison{
		Consensus:        c,
		Agreement:        c.Agreement,
		Divergent:        divergent,
		ConfidenceSpread: hi - lo,
		Transitioning:    !c.Unanimous && c.AgreementRatio <= 0.5,
	}, nil
}

// CompareStates is CompareMethods over per-method results weighted by
// the configured table.
func (e *Ensemble) CompareStates(states map[string]core.Result) (Comparison, error) {
	return e.CompareMethods(e.fromStates(states))
}

// CombineHistories blends per-step classifications into a consensus
// history. Histories of different lengths are aligned on their last
// step; empty histories are ignored. returns, aligned the same way,
// feed the segment statistics and may be nil.
func (e *Ensemble) CombineHistories(histories map[string]core.History, returns []float64) (core.History, error) {
	names := make([]string, 0, len(histories))
	n := -1
	for m, h := range histories {
		if h.Len() == 0 {
			continue
		}
		names = append(names, m)
		if n < 0 || h.Len() < n {
			n = h.Len()
		}
	}
	if len(names) == 0 {
		return core.History{}, core.ErrNoMethods
	}
	sort.Strings(names)

	out := core.History{
		Method:        core.MethodEnsemble,
		Labels:        make([]core.Regime, n),
		Confidences:   make([]float64, n),
		Probabilities: make([]core.Distribution, n),
	}
	step := make([]MethodResult, len(names))
	for t := 0; t < n; t++ {
		for i, m := range names {
			h := histories[m]
			k := h.Len() - n + t
			mr := MethodResult{
				Method:     m,
				Regime:     h.Labels[k],
				Confidence: h.Confidences[k],
				Weight:     e.WeightFor(m),
			}
			if len(h.Probabilities) == h.Len() {
				mr.Probabilities = h.Probabilities[k]
			}
			step[i] = mr
		}
		c, err := e.Combine(step)
		if err != nil {
			return core.History{}, err
		}
		out.Labels[t] = c.Regime
		out.Confidences[t] = c.Confidence
		out.Probabilities[t] = c.Probabilities
	}

	if len(returns) > n {
		returns = returns[len(returns)-n:]
	}
	out.Segments = core.BuildSegments(out.Labels, returns)
	return out, nil
}
