package topo

import (
	"math"

	"github.com/chazu/kerf/pkg/geom"
)

// EdgeSample is one point of an edge polyline.
type EdgeSample struct {
	T float64
	P geom.Point
}

const maxSampleDepth = 12

// SampleEdge returns a polyline along the edge from Start to End whose
// chords deviate from the curve by at most flatness. Lines give their two
// end points and degree-1 B-splines their knots, so polylines traced from
// intersections are reproduced exactly. The first and last samples sit
// exactly on the end vertices.
func (a *arena) SampleEdge(e EdgeID, flatness float64) []EdgeSample {
	edge := a.edges[e]
	ts := SampleCurve(edge.Curve, edge.Range, flatness)
	out := make([]EdgeSample, len(ts))
	for i, t := range ts {
		out[i] = EdgeSample{T: t, P: edge.Curve.At(t)}
	}
	out[0].P = a.vertices[edge.Start].Point
	out[len(out)-1].P = a.vertices[edge.End].Point
	return out
}

// SampleCurve returns increasing parameters over iv, starting and ending at
// its bounds, whose chords stay within flatness of the curve.
func SampleCurve(c geom.Curve, iv geom.Interval, flatness float64) []float64 {
	var init []float64
	switch c := c.(type) {
	case *geom.Line:
		return []float64{iv.Min, iv.Max}
	case *geom.BSplineCurve:
		init = append(init, iv.Min)
		for _, k := range c.Knots {
			if k > init[len(init)-1] && k < iv.Max {
				if c.Degree == 1 {
					init = append(init, k)
					continue
				}
				// Split each span so curved spans start from several chords.
				prev := init[len(init)-1]
				for j := 1; j < c.Degree; j++ {
					init = append(init, prev+(k-prev)*float64(j)/float64(c.Degree))
				}
				init = append(init, k)
			}
		}
		if c.Degree == 1 {
			return append(init, iv.Max)
		}
		init = append(init, iv.Max)
	default:
		n := int(math.Ceil(iv.Length() / (math.Pi / 4)))
		n = max(n, 2)
		for i := 0; i <= n; i++ {
			init = append(init, iv.Lerp(float64(i)/float64(n)))
		}
	}
	out := []float64{init[0]}
	for i := 1; i < len(init); i++ {
		out = refineSpan(c, init[i-1], init[i], flatness, 0, out)
	}
	return out
}

// refineSpan appends samples over (t0, t1], splitting while the curve
// strays from the chord.
func refineSpan(c geom.Curve, t0, t1, flatness float64, depth int, out []float64) []float64 {
	if depth < maxSampleDepth {
		p0, p1 := c.At(t0), c.At(t1)
		for _, s := range []float64{0.25, 0.5, 0.75} {
			q := c.At(t0 + s*(t1-t0))
			if chordDeviation(q, p0, p1) > flatness {
				mid := 0.5 * (t0 + t1)
				out = refineSpan(c, t0, mid, flatness, depth+1, out)
				return refineSpan(c, mid, t1, flatness, depth+1, out)
			}
		}
	}
	return append(out, t1)
}

func chordDeviation(q, a, b geom.Point) float64 {
	d := b.Sub(a)
	l2 := d.Dot(d)
	if l2 == 0 {
		return geom.Dist(q, a)
	}
	s := math.Max(0, math.Min(1, q.Sub(a).Dot(d)/l2))
	return geom.Dist(q, a.Add(d.MulScalar(s)))
}

// defaultFlatness is the chordal tolerance used for validation sampling:
// a small fraction of the edge size, never below ε.
func (a *arena) defaultFlatness(e EdgeID) float64 {
	edge := a.edges[e]
	b := geom.CurveBounds(edge.Curve, edge.Range)
	return math.Max(2e-3*geom.Diagonal(b), a.tol.Eps(geom.Magnitude(geom.Center(b))))
}
