package hmm

import (
	"math"
	"sort"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
)

const (
	// probFloor keeps start and transition probabilities strictly
	// positive between EM iterations.
	probFloor = 1e-12
	// initialPersistence is the self-transition probability EM starts from.
	initialPersistence = 0.9
	// minStateWeight is the occupancy below which a state keeps its
	// previous emission parameters.
	minStateWeight = 1e-10
)

// initialParams seeds n states from contiguous quantile chunks of the
// rows sorted along the first feature.
func initialParams(rows [][]float64, n int, eps float64) *Params {
	T := len(rows)
	idx := make([]int, T)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return rows[idx[a]][0] < rows[idx[b]][0]
	})

	ones := make([]float64, T)
	for i := range ones {
		ones[i] = 1
	}
	_, globalCov := weightedMoments(rows, ones)

	means := make([][]float64, n)
	covars := make([][][]float64, n)
	for k := 0; k < n; k++ {
		lo, hi := k*T/n, (k+1)*T/n
		chunk := make([][]float64, 0, hi-lo)
		for _, i := range idx[lo:hi] {
			chunk = append(chunk, rows[i])
		}
		if len(chunk) == 0 {
			chunk = append(chunk, rows[idx[lo%T]])
		}
		w := make([]float64, len(chunk))
		for i := range w {
			w[i] = 1
		}
		mean, cov := weightedMoments(chunk, w)
		if len(chunk) < 2 {
			cov = globalCov
		}
		means[k] = mean
		covars[k] = cov
	}

	start := make([]float64, n)
	trans := make([][]float64, n)
	for i := 0; i < n; i++ {
		start[i] = 1 / float64(n)
		trans[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				trans[i][j] = initialPersistence
			} else {
				trans[i][j] = (1 - initialPersistence) / float64(n-1)
			}
		}
	}

	return newParams(nil, start, trans, means, covars, eps)
}

// maximize re-estimates parameters from one E-step's posterior.
func maximize(rows [][]float64, post posterior, prev *Params, eps float64) *Params {
	n := prev.NStates()
	T := len(rows)

	start := append([]float64(nil), post.gamma[0]...)
	normalizeRow(start, probFloor)

	trans := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := append([]float64(nil), post.xiSum[i]...)
		var sum float64
		for _, v := range row {
			sum += v
		}
		if !(sum > 0) {
			row = append([]float64(nil), prev.TransMat[i]...)
		}
		normalizeRow(row, probFloor)
		trans[i] = row
	}

	means := make([][]float64, n)
	covars := make([][][]float64, n)
	weights := make([]float64, T)
	for k := 0; k < n; k++ {
		var total float64
		for t := 0; t < T; t++ {
			weights[t] = post.gamma[t][k]
			total += weights[t]
		}
		if total < minStateWeight {
			means[k] = prev.Means[k]
			covars[k] = prev.Covars[k]
			continue
		}
		means[k], covars[k] = weightedMoments(rows, weights)
	}

	return newParams(nil, start, trans, means, covars, eps)
}

// fitResult carries the EM outcome before relabeling.
type fitResult struct {
	params     *Params
	iterations int
	converged  bool
}

// expectationMaximization iterates E and M steps until the
// log-likelihood improvement drops below tol or maxIter is reached.
func expectationMaximization(rows [][]float64, n, maxIter int, tol, eps float64) fitResult {
	params := initialParams(rows, n, eps)
	prevLL := math.Inf(-1)

	res := fitResult{}
	for it := 1; it <= maxIter; it++ {
		post := forwardBackward(params.logEmissions(rows), params.StartProb, params.TransMat, true)
		res.iterations = it
		if it > 1 && math.Abs(post.logLikelihood-prevLL) < tol {
			res.converged = true
			break
		}
		prevLL = post.logLikelihood
		params = maximize(rows, post, params, eps)
	}

	final := forwardBackward(params.logEmissions(rows), params.StartProb, params.TransMat, false)
	params.LogLikelihood = final.logLikelihood
	params.Iterations = res.iterations
	params.Converged = res.converged
	res.params = params
	return res
}

// fit runs EM and applies the canonical relabeling.
func fit(rows [][]float64, cfg Config) (*Params, error) {
	res := expectationMaximization(rows, cfg.NStates, cfg.MaxIterations, cfg.Tolerance, cfg.CovarianceEpsilon)
	p, err := relabel(res.params, cfg.CovarianceEpsilon)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	return p, nil
}
