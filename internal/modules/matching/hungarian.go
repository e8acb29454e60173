package matching

import "math"

// Pair is one row/column match returned by Solve.
type Pair struct {
	Row int
	Col int
}

// Solve computes a minimum-cost assignment for a rows x cols cost matrix
// with the Kuhn-Munkres algorithm in O(n³). The matrix is padded to square
// with Infeasible cells, so every real row is matched when there are at least
// as many columns; pairs that land on padding are dropped. Solve does not
// filter Infeasible pairs: callers must discard them.
//
// Rows shorter than the first row are read as Infeasible in the missing cells.
func Solve(cost [][]float64) []Pair {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		return nil
	}
	dim := n
	if m > dim {
		dim = m
	}

	c := make([][]float64, dim)
	for i := range c {
		c[i] = make([]float64, dim)
		for j := range c[i] {
			c[i][j] = Infeasible
			if i < n && j < len(cost[i]) && j < m {
				c[i][j] = cost[i][j]
			}
		}
	}

	// Potentials formulation; 1-indexed with column 0 as the virtual start.
	const inf = math.MaxFloat64 / 2
	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)   // p[j]: row matched to column j
	way := make([]int, dim+1) // way[j]: previous column on the augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0
		for j := 0; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := 0
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
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	pairs := make([]Pair, 0, n)
	rowCol := make([]int, dim)
	for j := 1; j <= dim; j++ {
		if p[j] > 0 {
			rowCol[p[j]-1] = j - 1
		}
	}
	for i := 0; i < n; i++ {
		if rowCol[i] < m {
			pairs = append(pairs, Pair{Row: i, Col: rowCol[i]})
		}
	}
	return pairs
}

// TotalCost sums the cost of pairs over the matrix.
func TotalCost(cost [][]float64, pairs []Pair) float64 {
	var total float64
	for _, pr := range pairs {
		total += cost[pr.Row][pr.Col]
	}
	return total
}
