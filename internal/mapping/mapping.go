// Package mapping aligns the label sets of two annotations of the same
// document, e.g. a clustering result against a reference: each hypothesis
// label is mapped to the reference label it shares the most annotated time
// with, one-to-one, by solving an optimal assignment over the cooccurrence
// matrix.
package mapping

import (
	"math"

	"github.com/chronolab/chronoclust/internal/annotation"
	"github.com/chronolab/chronoclust/internal/timeline"
)

// Cooccurrence holds, for every (row, column) label pair, the duration in
// seconds during which both labels are active.
type Cooccurrence struct {
	Rows, Cols []annotation.Label
	Durations  [][]float64
}

// NewCooccurrence computes the pairwise overlap durations between the labels
// of two annotations. Rows come from a, columns from b, both in sorted label
// order.
func NewCooccurrence(a, b *annotation.Annotation) *Cooccurrence {
	rows := a.Labels()
	cols := b.Labels()

	rowCov := make([]*timeline.Timeline, len(rows))
	for i, l := range rows {
		rowCov[i] = a.LabelCoverage(l)
	}
	colCov := make([]*timeline.Timeline, len(cols))
	for j, l := range cols {
		colCov[j] = b.LabelCoverage(l)
	}

	d := make([][]float64, len(rows))
	for i := range rows {
		d[i] = make([]float64, len(cols))
		for j := range cols {
			d[i][j] = rowCov[i].CropTimeline(colCov[j], timeline.CropIntersection).Duration()
		}
	}
	return &Cooccurrence{Rows: rows, Cols: cols, Durations: d}
}

// MapLabels returns the one-to-one mapping from a's labels to b's labels
// that maximizes total cooccurrence duration. Labels whose best assignment
// shares no time are left out of the mapping. The result plugs directly into
// Annotation.Relabel.
func MapLabels(a, b *annotation.Annotation) map[annotation.Label]annotation.Label {
	co := NewCooccurrence(a, b)
	if len(co.Rows) == 0 || len(co.Cols) == 0 {
		return map[annotation.Label]annotation.Label{}
	}

	// The solver minimizes, so negate the durations. Zero-overlap pairs are
	// forbidden outright.
	cost := make([][]float64, len(co.Rows))
	for i := range co.Rows {
		cost[i] = make([]float64, len(co.Cols))
		for j := range co.Cols {
			if co.Durations[i][j] > 0 {
				cost[i][j] = -co.Durations[i][j]
			} else {
				cost[i][j] = forbidden
			}
		}
	}

	out := make(map[annotation.Label]annotation.Label)
	for i, j := range Assign(cost) {
		if j >= 0 {
			out[co.Rows[i]] = co.Cols[j]
		}
	}
	return out
}

// forbidden stands in for infinity in cost matrices.
const forbidden = 1e18

// Assign solves the rectangular assignment problem for an n×m cost matrix,
// minimizing total cost in O(n³). It returns assignments[i] = column index
// assigned to row i, or -1 if unassigned. Costs ≥ forbidden are never
// selected.
//
// Kuhn–Munkres with potentials (Jonker–Volgenant variant); the matrix is
// padded square with forbidden entries so excess rows stay unassigned.
func Assign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		result := make([]int, n)
		for i := range result {
			result[i] = -1
		}
		return result
	}

	dim := n
	if m > dim {
		dim = m
	}

	c := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			if i < n && j < m {
				c[i][j] = cost[i][j]
			} else {
				c[i][j] = forbidden
			}
		}
	}

	// 1-indexed internally for cleaner index arithmetic; column 0 is
	// virtual.
	const inf = math.MaxFloat64 / 2

	u := make([]float64, dim+1) // row potentials
	v := make([]float64, dim+1) // column potentials
	p := make([]int, dim+1)     // p[j] = row assigned to column j
	way := make([]int, dim+1)   // way[j] = previous column in augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	rowAssign := make([]int, dim)
	for i := range rowAssign {
		rowAssign[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if p[j] > 0 && p[j] <= dim {
			rowAssign[p[j]-1] = j - 1
		}
	}

	result := make([]int, n)
	for i := 0; i < n; i++ {
		col := rowAssign[i]
		if col < 0 || col >= m || cost[i][col] >= forbidden {
			result[i] = -1
		} else {
			result[i] = col
		}
	}
	return result
}
