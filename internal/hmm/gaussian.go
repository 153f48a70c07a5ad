package hmm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// maxJitterSteps bounds how many times the diagonal epsilon is grown
// before falling back to a diagonal covariance.
const maxJitterSteps = 8

var log2Pi = math.Log(2 * math.Pi)

// gaussian is a multivariate normal with a cached Cholesky factor.
type gaussian struct {
	mean    []float64
	chol    mat.Cholesky
	logNorm float64
}

// newGaussian regularizes cov with eps*I and factorizes it. A matrix
// that still fails to factorize is retried with a growing epsilon and
// finally replaced by its diagonal, so construction never fails.
func newGaussian(mean []float64, cov [][]float64, eps float64) *gaussian {
	d := len(mean)
	g := &gaussian{mean: append([]float64(nil), mean...)}

	jitter := eps
	for step := 0; step <= maxJitterSteps; step++ {
		if g.chol.Factorize(symmetric(cov, jitter)) {
			g.logNorm = -0.5 * (float64(d)*log2Pi + g.chol.LogDet())
			return g
		}
		jitter *= 10
	}

	diag := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		v := 0.0
		if i < len(cov) && i < len(cov[i]) {
			v = cov[i][i]
		}
		if !(v > 0) || math.IsInf(v, 0) {
			v = 0
		}
		diag.SetSym(i, i, v+jitter)
	}
	g.chol.Factorize(diag)
	g.logNorm = -0.5 * (float64(d)*log2Pi + g.chol.LogDet())
	return g
}

// logPDF returns log N(x | mean, cov). diff and solved are caller-owned
// scratch vectors of the model dimension; g is never mutated.
func (g *gaussian) logPDF(x []float64, diff, solved *mat.VecDense) float64 {
	for i := range g.mean {
		diff.SetVec(i, x[i]-g.mean[i])
	}
	if err := g.chol.SolveVecTo(solved, diff); err != nil {
		return math.Inf(-1)
	}
	return g.logNorm - 0.5*mat.Dot(diff, solved)
}

func symmetric(cov [][]float64, eps float64) *mat.SymDense {
	d := len(cov)
	s := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			v := 0.5 * (cov[i][j] + cov[j][i])
			if i == j {
				v += eps
			}
			s.SetSym(i, j, v)
		}
	}
	return s
}

// weightedMoments returns the weighted mean and covariance of rows.
// weights must be non-negative with a positive sum.
func weightedMoments(rows [][]float64, weights []float64) ([]float64, [][]float64) {
	d := len(rows[0])
	total := floats.Sum(weights)

	mean := make([]float64, d)
	for t, r := range rows {
		floats.AddScaled(mean, weights[t], r)
	}
	floats.Scale(1/total, mean)

	cov := make([][]float64, d)
	for i := range cov {
		cov[i] = make([]float64, d)
	}
	diff := make([]float64, d)
	for t, r := range rows {
		w := weights[t]
		if w == 0 {
			continue
		}
		floats.SubTo(diff, r, mean)
		for i := 0; i < d; i++ {
			for j := i; j < d; j++ {
				cov[i][j] += w * diff[i] * diff[j]
			}
		}
	}
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			cov[i][j] /= total
			cov[j][i] = cov[i][j]
		}
	}
	return mean, cov
}
