package cluster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// kmeans runs Lloyd's algorithm. Initial centroids are k distinct rows
// chosen without replacement by a seeded generator, so identical input
// always yields identical centroids.
func kmeans(rows [][]float64, k, maxIter int, tol float64, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(rows))

	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = append([]float64(nil), rows[perm[c]]...)
	}

	assign := make([]int, len(rows))
	for i := range assign {
		assign[i] = -1
	}

	d := len(rows[0])
	for it := 0; it < maxIter; it++ {
		changed := false
		for i, r := range rows {
			c, _, _ := nearestTwo(r, centroids)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, d)
		}
		for i, r := range rows {
			floats.Add(sums[assign[i]], r)
			counts[assign[i]]++
		}

		var shift float64
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty cluster keeps its previous centroid.
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			shift += floats.Distance(sums[c], centroids[c], 2)
			centroids[c] = sums[c]
		}
		if shift < tol {
			break
		}
	}
	return centroids
}

// nearestTwo returns the index of the nearest centroid and the
// distances to the nearest and second-nearest centroids.
func nearestTwo(x []float64, centroids [][]float64) (int, float64, float64) {
	best, first, second := 0, math.Inf(1), math.Inf(1)
	for c, cen := range centroids {
		dist := floats.Distance(x, cen, 2)
		switch {
		case dist < first:
			best, first, second = c, dist, first
		case dist < second:
			second = dist
		}
	}
	if math.IsInf(second, 1) {
		second = first
	}
	return best, first, second
}
