package hmm

import "math"

// posterior is the output of one scaled forward-backward pass.
type posterior struct {
	gamma         [][]float64 // state occupancy per step, rows sum to 1
	xiSum         [][]float64 // expected transition counts summed over time
	logLikelihood float64
}

// forwardBackward runs the scaled recursions over emission
// log-likelihoods. Emissions are shifted by their per-step maximum
// before exponentiation and alpha is renormalized at every step; the
// scaling factors and shifts are kept in parallel arrays and summed
// to recover the true log-likelihood.
func forwardBackward(logB [][]float64, start []float64, trans [][]float64, wantXi bool) posterior {
	T := len(logB)
	n := len(start)
	if T == 0 {
		return posterior{gamma: [][]float64{}}
	}

	b := make([][]float64, T)
	shift := make([]float64, T)
	for t := 0; t < T; t++ {
		b[t] = make([]float64, n)
		m := math.Inf(-1)
		for j := 0; j < n; j++ {
			if logB[t][j] > m {
				m = logB[t][j]
			}
		}
		if math.IsInf(m, -1) || math.IsNaN(m) {
			// Every state rejects this row; treat it as uninformative.
			m = 0
			for j := range b[t] {
				b[t][j] = 1
			}
		} else {
			for j := 0; j < n; j++ {
				b[t][j] = math.Exp(logB[t][j] - m)
			}
		}
		shift[t] = m
	}

	alpha := make([][]float64, T)
	scale := make([]float64, T)

	alpha[0] = make([]float64, n)
	for j := 0; j < n; j++ {
		alpha[0][j] = start[j] * b[0][j]
	}
	scale[0] = rescale(alpha[0], b[0])

	for t := 1; t < T; t++ {
		alpha[t] = make([]float64, n)
		for j := 0; j < n; j++ {
			var s float64
			for i := 0; i < n; i++ {
				s += alpha[t-1][i] * trans[i][j]
			}
			alpha[t][j] = s * b[t][j]
		}
		scale[t] = rescale(alpha[t], b[t])
	}

	beta := make([][]float64, T)
	beta[T-1] = make([]float64, n)
	for i := range beta[T-1] {
		beta[T-1][i] = 1
	}
	for t := T - 2; t >= 0; t-- {
		beta[t] = make([]float64, n)
		for i := 0; i < n; i++ {
			var s float64
			for j := 0; j < n; j++ {
				s += trans[i][j] * b[t+1][j] * beta[t+1][j]
			}
			beta[t][i] = s / scale[t+1]
		}
	}

	post := posterior{gamma: make([][]float64, T)}
	for t := 0; t < T; t++ {
		g := make([]float64, n)
		for i := 0; i < n; i++ {
			g[i] = alpha[t][i] * beta[t][i]
		}
		normalizeRow(g, 0)
		post.gamma[t] = g
		post.logLikelihood += math.Log(scale[t]) + shift[t]
	}

	if wantXi {
		post.xiSum = make([][]float64, n)
		for i := range post.xiSum {
			post.xiSum[i] = make([]float64, n)
		}
		step := make([]float64, n*n)
		for t := 0; t < T-1; t++ {
			var total float64
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					v := alpha[t][i] * trans[i][j] * b[t+1][j] * beta[t+1][j]
					step[i*n+j] = v
					total += v
				}
			}
			if total <= 0 {
				continue
			}
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					post.xiSum[i][j] += step[i*n+j] / total
				}
			}
		}
	}

	return post
}

// rescale normalizes alpha in place and returns the scaling factor.
// When alpha carries no mass (every reachable state gave zero
// probability) it restarts from the emissions alone.
func rescale(alpha, b []float64) float64 {
	var c float64
	for _, v := range alpha {
		c += v
	}
	if !(c > 0) {
		copy(alpha, b)
		c = 0
		for _, v := range alpha {
			c += v
		}
		if !(c > 0) {
			for i := range alpha {
				alpha[i] = 1 / float64(len(alpha))
			}
			return math.SmallestNonzeroFloat64
		}
	}
	for i := range alpha {
		alpha[i] /= c
	}
	return c
}
