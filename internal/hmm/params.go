package hmm

import (
	"math"
	"sort"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"gonum.org/v1/gonum/mat"
)

// Params are the fitted parameters of a Gaussian HMM. A Params value
// is never modified after construction; refitting builds a new one.
type Params struct {
	Labels        []core.Regime `json:"labels"`
	StartProb     []float64     `json:"start_prob"`
	TransMat      [][]float64   `json:"trans_mat"`
	Means         [][]float64   `json:"means"`
	Covars        [][][]float64 `json:"covars"`
	LogLikelihood float64       `json:"log_likelihood"`
	Iterations    int           `json:"iterations"`
	Converged     bool          `json:"converged"`

	emissions []*gaussian
}

func newParams(labels []core.Regime, start []float64, trans, means [][]float64, covars [][][]float64, eps float64) *Params {
	p := &Params{
		Labels:    labels,
		StartProb: start,
		TransMat:  trans,
		Means:     means,
		Covars:    covars,
		emissions: make([]*gaussian, len(means)),
	}
	for i := range means {
		p.emissions[i] = newGaussian(means[i], covars[i], eps)
	}
	return p
}

// NStates returns the number of hidden states.
func (p *Params) NStates() int {
	return len(p.Means)
}

// Dim returns the feature dimension the model was fitted on.
func (p *Params) Dim() int {
	if len(p.Means) == 0 {
		return 0
	}
	return len(p.Means[0])
}

// logEmissions returns log p(x_t | state j) for every row and state.
func (p *Params) logEmissions(rows [][]float64) [][]float64 {
	n := p.NStates()
	d := p.Dim()
	diff := mat.NewVecDense(d, nil)
	solved := mat.NewVecDense(d, nil)

	out := make([][]float64, len(rows))
	for t, x := range rows {
		ll := make([]float64, n)
		for j, g := range p.emissions {
			ll[j] = g.logPDF(x, diff, solved)
		}
		out[t] = ll
	}
	return out
}

// relabel permutes every state-indexed parameter so that states are
// ordered by ascending mean of the first feature, then assigns the
// canonical labels. Means, covariances, transition rows/columns and
// the start vector move together.
func relabel(p *Params, eps float64) (*Params, error) {
	n := p.NStates()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.Means[order[a]][0] < p.Means[order[b]][0]
	})

	labels, err := core.LabelsFor(n)
	if err != nil {
		return nil, err
	}

	start := make([]float64, n)
	trans := make([][]float64, n)
	means := make([][]float64, n)
	covars := make([][][]float64, n)
	for a, oa := range order {
		start[a] = p.StartProb[oa]
		means[a] = p.Means[oa]
		covars[a] = p.Covars[oa]
		trans[a] = make([]float64, n)
		for b, ob := range order {
			trans[a][b] = p.TransMat[oa][ob]
		}
	}

	out := newParams(labels, start, trans, means, covars, eps)
	out.LogLikelihood = p.LogLikelihood
	out.Iterations = p.Iterations
	out.Converged = p.Converged
	return out, nil
}

// normalizeRow scales v to unit sum after flooring every entry at
// floor. A row with no mass becomes uniform.
func normalizeRow(v []float64, floor float64) {
	var sum float64
	for i := range v {
		if math.IsNaN(v[i]) || v[i] < floor {
			v[i] = floor
		}
		sum += v[i]
	}
	if sum <= 0 {
		for i := range v {
			v[i] = 1 / float64(len(v))
		}
		return
	}
	for i := range v {
		v[i] /= sum
	}
}
