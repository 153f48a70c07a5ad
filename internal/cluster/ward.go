package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

type merge struct {
	a, b   int
	height float64
}

// ward builds a Ward-linkage hierarchy with the nearest-neighbour chain
// algorithm and cuts it at k clusters. It returns the centroid of each
// resulting cluster.
//
// Distances are kept as squared Euclidean distances and updated with
// the Lance-Williams recurrence. Slot i always holds the cluster that
// contains row i, so merges replay directly onto a union-find over rows.
func ward(rows [][]float64, k int) [][]float64 {
	n := len(rows)
	if n <= k {
		out := make([][]float64, n)
		for i, r := range rows {
			out[i] = append([]float64(nil), r...)
		}
		return out
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(rows[i], rows[j], 2)
			dist[i][j] = d * d
			dist[j][i] = d * d
		}
	}

	size := make([]float64, n)
	active := make([]bool, n)
	for i := range size {
		size[i] = 1
		active[i] = true
	}

	merges := make([]merge, 0, n-1)
	chain := make([]int, 0, n)
	remaining := n
	for remaining > 1 {
		if len(chain) == 0 {
			for i := 0; i < n; i++ {
				if active[i] {
					chain = append(chain, i)
					break
				}
			}
		}
		for {
			a := chain[len(chain)-1]
			prev := -1
			if len(chain) > 1 {
				prev = chain[len(chain)-2]
			}

			b, best := -1, math.Inf(1)
			if prev >= 0 {
				b, best = prev, dist[a][prev]
			}
			for i := 0; i < n; i++ {
				if !active[i] || i == a || i == prev {
					continue
				}
				if dist[a][i] < best {
					b, best = i, dist[a][i]
				}
			}

			if b != prev {
				chain = append(chain, b)
				continue
			}

			chain = chain[:len(chain)-2]
			lo, hi := a, b
			if hi < lo {
				lo, hi = hi, lo
			}
			merges = append(merges, merge{a: lo, b: hi, height: best})

			ni, nj := size[lo], size[hi]
			for x := 0; x < n; x++ {
				if !active[x] || x == lo || x == hi {
					continue
				}
				nk := size[x]
				d := ((ni+nk)*dist[lo][x] + (nj+nk)*dist[hi][x] - nk*best) / (ni + nj + nk)
				dist[lo][x] = d
				dist[x][lo] = d
			}
			size[lo] = ni + nj
			active[hi] = false
			remaining--
			break
		}
	}

	sort.SliceStable(merges, func(i, j int) bool { return merges[i].height < merges[j].height })

	uf := newUnionFind(n)
	for _, m := range merges[:n-k] {
		uf.union(m.a, m.b)
	}

	index := make(map[int]int, k)
	var sums [][]float64
	var counts []float64
	for i, r := range rows {
		root := uf.find(i)
		c, ok := index[root]
		if !ok {
			c = len(sums)
			index[root] = c
			sums = append(sums, make([]float64, len(r)))
			counts = append(counts, 0)
		}
		floats.Add(sums[c], r)
		counts[c]++
	}
	for c := range sums {
		floats.Scale(1/counts[c], sums[c])
	}
	return sums
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
