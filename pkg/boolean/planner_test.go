package boolean

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/modeling"
	"github.com/chazu/kerf/pkg/topo"
)

// cutPlanner runs a union of two overlapping cubes up to the point where
// faces are cut.
func cutPlanner(t *testing.T) *planner {
	t.Helper()
	tol := geom.DefaultTolerance()
	a, err := modeling.Box(tol, 1, 1, 1)
	require.NoError(t, err)
	b := modeling.Translate(a, geom.Vec(0.5, 0.5, 0.5))

	p := newPlanner(OpUnion, a, b, tol, Options{Parallelism: 2}.normalized(), zaptest.NewLogger(t))
	for i, s := range []*topo.Solid{a, b} {
		p.ops[i], err = newOperand(side(i), s, p.flat, 4*p.flat, 2)
		require.NoError(t, err)
	}
	p.registerVertices()
	results, err := p.intersectPairs(p.broadPhase())
	require.NoError(t, err)
	p.splitEdges(results)
	p.buildCuts(results)
	p.canonicalize()
	return p
}

func TestFaceErrorNamesCuttingFace(t *testing.T) {
	p := cutPlanner(t)
	checked := 0
	for _, sd := range []side{sideA, sideB} {
		for _, f := range p.ops[sd].faces {
			if len(p.cuts[faceRef{sd, f.id}]) == 0 {
				continue
			}
			var be *Error
			require.ErrorAs(t, p.faceError("arrange", sd, f.id, errors.New("bad loop")), &be)
			assert.GreaterOrEqual(t, int(be.FaceA), 0, "face %d of side %d", f.id, sd)
			assert.GreaterOrEqual(t, int(be.FaceB), 0, "face %d of side %d", f.id, sd)
			if sd == sideA {
				assert.Equal(t, f.id, be.FaceA)
			} else {
				assert.Equal(t, f.id, be.FaceB)
			}
			checked++
		}
	}
	assert.Equal(t, 6, checked)
}

func TestOpenResultNamesBothOperands(t *testing.T) {
	p := cutPlanner(t)
	frags, err := p.fragmentFaces()
	require.NoError(t, err)
	require.NoError(t, p.classifyAll(frags))
	var kept []*fragment
	for _, fr := range frags {
		if ok, _ := keep(p.op, fr.side, fr.class); ok {
			kept = append(kept, fr)
		}
	}
	s, err := p.assemble(kept)
	require.NoError(t, err)
	require.False(t, s.Empty())

	// Leaving out a cut fragment of B opens the seam it shares with A.
	cut := func(fr *fragment) bool {
		for _, loop := range fr.loops {
			for _, u := range loop {
				if u.seg.key.kind == keyCut {
					return true
				}
			}
		}
		return false
	}
	drop := -1
	for i, fr := range kept {
		if fr.side == sideB && cut(fr) {
			drop = i
			break
		}
	}
	require.GreaterOrEqual(t, drop, 0)
	kept = append(kept[:drop:drop], kept[drop+1:]...)
	_, err = p.assemble(kept)
	require.ErrorIs(t, err, ErrNonManifoldResult)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "reassemble", be.Phase)
	assert.GreaterOrEqual(t, int(be.FaceA), 0)
	assert.GreaterOrEqual(t, int(be.FaceB), 0)
	assert.NotContains(t, be.Error(), "/-1")
}
