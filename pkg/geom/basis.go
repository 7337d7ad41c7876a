package geom

import (
	"fmt"
	"sort"
)

// findSpan returns the knot span index i with knots[i] <= t < knots[i+1],
// clamping t to the valid range. n is the index of the last control point.
func findSpan(n, p int, t float64, knots []float64) int {
	if t >= knots[n+1] {
		return n
	}
	if t <= knots[p] {
		return p
	}
	low, high := p, n+1
	mid := (low + high) / 2
	for t < knots[mid] || t >= knots[mid+1] {
		if t < knots[mid] {
			high = mid
		} else {
			low = mid
		}
		mid = (low + high) / 2
	}
	return mid
}

// dersBasisFuns computes the non-vanishing basis functions of degree p at t
// and their derivatives up to order n. ders[k][j] is the k-th derivative of
// basis function span-p+j.
func dersBasisFuns(span int, t float64, p, n int, knots []float64) [][]float64 {
	ndu := grid(p+1, p+1)
	left := make([]float64, p+1)
	right := make([]float64, p+1)
	ndu[0][0] = 1
	for j := 1; j <= p; j++ {
		left[j] = t - knots[span+1-j]
		right[j] = knots[span+j] - t
		saved := 0.0
		for r := 0; r < j; r++ {
			ndu[j][r] = right[r+1] + left[j-r]
			temp := ndu[r][j-1] / ndu[j][r]
			ndu[r][j] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		ndu[j][j] = saved
	}

	ders := grid(n+1, p+1)
	for j := 0; j <= p; j++ {
		ders[0][j] = ndu[j][p]
	}
	a := grid(2, p+1)
	for r := 0; r <= p; r++ {
		s1, s2 := 0, 1
		a[0][0] = 1
		for k := 1; k <= n; k++ {
			d := 0.0
			rk, pk := r-k, p-k
			if r >= k {
				a[s2][0] = a[s1][0] / ndu[pk+1][rk]
				d = a[s2][0] * ndu[rk][pk]
			}
			j1 := 1
			if rk < -1 {
				j1 = -rk
			}
			j2 := p - r
			if r-1 <= pk {
				j2 = k - 1
			}
			for j := j1; j <= j2; j++ {
				a[s2][j] = (a[s1][j] - a[s1][j-1]) / ndu[pk+1][rk+j]
				d += a[s2][j] * ndu[rk+j][pk]
			}
			if r <= pk {
				a[s2][k] = -a[s1][k-1] / ndu[pk+1][r]
				d += a[s2][k] * ndu[r][pk]
			}
			ders[k][r] = d
			s1, s2 = s2, s1
		}
	}
	f := float64(p)
	for k := 1; k <= n; k++ {
		for j := 0; j <= p; j++ {
			ders[k][j] *= f
		}
		f *= float64(p - k)
	}
	return ders
}

func grid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}

func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}

// validateKnots checks the clamped knot law: count = controls + degree + 1,
// non-decreasing values, full multiplicity at both ends and interior
// multiplicity at most degree.
func validateKnots(dir string, degree, controls int, knots []float64) error {
	if degree < 1 {
		return &KnotError{Direction: dir, Reason: fmt.Sprintf("degree %d < 1", degree)}
	}
	if controls < degree+1 {
		return &KnotError{Direction: dir, Reason: fmt.Sprintf("%d control points cannot carry degree %d", controls, degree)}
	}
	if len(knots) != controls+degree+1 {
		return &KnotError{Direction: dir, Reason: fmt.Sprintf("%d knots, want %d control points + degree %d + 1 = %d",
			len(knots), controls, degree, controls+degree+1)}
	}
	if !sort.Float64sAreSorted(knots) {
		return &KnotError{Direction: dir, Reason: "knots decrease"}
	}
	for i := 1; i <= degree; i++ {
		if knots[i] != knots[0] || knots[len(knots)-1-i] != knots[len(knots)-1] {
			return &KnotError{Direction: dir, Reason: "ends are not clamped"}
		}
	}
	if knots[0] == knots[len(knots)-1] {
		return &KnotError{Direction: dir, Reason: "empty parameter range"}
	}
	if n := len(knots); knots[degree+1] == knots[0] || knots[n-degree-2] == knots[n-1] {
		return &KnotError{Direction: dir, Reason: fmt.Sprintf("end multiplicity exceeds %d", degree+1)}
	}
	run := 1
	for i := degree + 2; i < len(knots)-degree-1; i++ {
		if knots[i] == knots[i-1] {
			run++
		} else {
			run = 1
		}
		if run > degree {
			return &KnotError{Direction: dir, Reason: fmt.Sprintf("interior knot %g has multiplicity > %d", knots[i], degree)}
		}
	}
	return nil
}
