package planar

import "math"

// Mesh is a triangulation that accepts Steiner points and keeps itself
// Delaunay away from its boundary edges.
type Mesh struct {
	Points []Point
	Tris   [][3]int

	owner map[[2]int]int
	fixed map[[2]int]bool
	eps   float64
}

func undirected(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// NewMesh wraps a counter-clockwise triangulation. Edges used by a single
// triangle are constrained and never flipped or split.
func NewMesh(points []Point, tris [][3]int) *Mesh {
	m := &Mesh{
		Points: append([]Point(nil), points...),
		owner:  make(map[[2]int]int),
		fixed:  make(map[[2]int]bool),
	}
	lo, hi := Bounds(points)
	s := Dist(lo, hi)
	m.eps = 1e-12 * s * s
	for _, t := range tris {
		m.Tris = append(m.Tris, [3]int{})
		m.put(len(m.Tris)-1, t)
	}
	for e := range m.owner {
		if _, ok := m.owner[[2]int{e[1], e[0]}]; !ok {
			m.fixed[undirected(e[0], e[1])] = true
		}
	}
	return m
}

func (m *Mesh) put(t int, tri [3]int) {
	m.Tris[t] = tri
	for k := 0; k < 3; k++ {
		m.owner[[2]int{tri[k], tri[(k+1)%3]}] = t
	}
}

func (m *Mesh) drop(t int) {
	tri := m.Tris[t]
	for k := 0; k < 3; k++ {
		e := [2]int{tri[k], tri[(k+1)%3]}
		if m.owner[e] == t {
			delete(m.owner, e)
		}
	}
}

func (m *Mesh) add(tri [3]int) {
	m.Tris = append(m.Tris, [3]int{})
	m.put(len(m.Tris)-1, tri)
}

func third(tri [3]int, a, b int) int {
	for _, v := range tri {
		if v != a && v != b {
			return v
		}
	}
	return -1
}

// Legalize flips every interior edge that fails the empty circumcircle test.
func (m *Mesh) Legalize() {
	var stack [][2]int
	for e := range m.owner {
		stack = append(stack, e)
	}
	m.legalize(stack)
}

// Insert adds p as a vertex. Points on a constrained edge, points outside
// the mesh and points coinciding with a vertex are refused.
func (m *Mesh) Insert(p Point) bool {
	for t, tri := range m.Tris {
		a, b, c := m.Points[tri[0]], m.Points[tri[1]], m.Points[tri[2]]
		if p == a || p == b || p == c {
			return false
		}
		w := [3]float64{Orient(b, c, p), Orient(c, a, p), Orient(a, b, p)}
		if w[0] < -m.eps || w[1] < -m.eps || w[2] < -m.eps {
			continue
		}
		on := -1
		for k := range w {
			if w[k] <= m.eps {
				if on >= 0 {
					return false
				}
				on = k
			}
		}
		idx := len(m.Points)
		if on < 0 {
			m.Points = append(m.Points, p)
			m.drop(t)
			m.put(t, [3]int{tri[0], tri[1], idx})
			m.add([3]int{tri[1], tri[2], idx})
			m.add([3]int{tri[2], tri[0], idx})
			m.legalize([][2]int{{tri[0], tri[1]}, {tri[1], tri[2]}, {tri[2], tri[0]}})
			return true
		}
		// Opposite vertex on is zero, so p lies on edge (u, v).
		u, v := tri[(on+1)%3], tri[(on+2)%3]
		cv := tri[on]
		t2, ok := m.owner[[2]int{v, u}]
		if !ok || m.fixed[undirected(u, v)] {
			return false
		}
		d := third(m.Tris[t2], v, u)
		m.Points = append(m.Points, p)
		m.drop(t)
		m.drop(t2)
		m.put(t, [3]int{u, idx, cv})
		m.put(t2, [3]int{idx, v, cv})
		m.add([3]int{v, idx, d})
		m.add([3]int{idx, u, d})
		m.legalize([][2]int{{cv, u}, {v, cv}, {d, v}, {u, d}})
		return true
	}
	return false
}

func (m *Mesh) legalize(stack [][2]int) {
	for guard := 0; len(stack) > 0 && guard < 1<<20; guard++ {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		a, b := e[0], e[1]
		t1, ok1 := m.owner[e]
		t2, ok2 := m.owner[[2]int{b, a}]
		if !ok1 || !ok2 || m.fixed[undirected(a, b)] {
			continue
		}
		c := third(m.Tris[t1], a, b)
		d := third(m.Tris[t2], b, a)
		pa, pb, pc, pd := m.Points[a], m.Points[b], m.Points[c], m.Points[d]
		if inCircle(pa, pb, pc, pd) <= m.eps*m.eps*1e12 {
			continue
		}
		if Orient(pa, pd, pc) <= m.eps || Orient(pd, pb, pc) <= m.eps {
			continue
		}
		m.drop(t1)
		m.drop(t2)
		m.put(t1, [3]int{a, d, c})
		m.put(t2, [3]int{d, b, c})
		stack = append(stack, [2]int{a, d}, [2]int{d, b}, [2]int{b, c}, [2]int{c, a})
	}
}

// inCircle is positive when d lies inside the circumcircle of the
// counter-clockwise triangle abc.
func inCircle(a, b, c, d Point) float64 {
	adx, ady := a.X-d.X, a.Y-d.Y
	bdx, bdy := b.X-d.X, b.Y-d.Y
	cdx, cdy := c.X-d.X, c.Y-d.Y
	return (adx*adx+ady*ady)*(bdx*cdy-cdx*bdy) +
		(bdx*bdx+bdy*bdy)*(cdx*ady-adx*cdy) +
		(cdx*cdx+cdy*cdy)*(adx*bdy-bdx*ady)
}

// MinAngle is the smallest interior angle of any triangle, in radians.
func (m *Mesh) MinAngle() float64 {
	best := math.Pi
	for _, t := range m.Tris {
		for k := 0; k < 3; k++ {
			a, b, c := m.Points[t[k]], m.Points[t[(k+1)%3]], m.Points[t[(k+2)%3]]
			u, v := b.Sub(a), c.Sub(a)
			ang := math.Atan2(math.Abs(Orient(a, b, c)), u.Dot(v))
			best = math.Min(best, ang)
		}
	}
	return best
}
