package tether

import (
	"github.com/akmonengine/tether/actor"
	"github.com/akmonengine/tether/gjk"
)

// MeshTester is the triangle soup narrow phase. Mesh boxes are compared
// first, then triangle boxes, and GJK confirms every remaining pair.
type MeshTester struct {
	// Workers splits the triangles of the first mesh over that many
	// goroutines in AllContacts mode. Below 2 the test runs inline.
	Workers int
}

type worldTriangle struct {
	index  int
	points gjk.Triangle
	bounds actor.AABB
}

// Collide returns the overlapping triangle pairs ordered by (TriangleA, TriangleB).
func (m MeshTester) Collide(meshA *actor.Mesh, transformA actor.Transform, meshB *actor.Mesh, transformB actor.Transform, mode actor.ContactMode) []actor.ContactPair {
	if meshA == nil || meshB == nil || meshA.NumTriangles() == 0 || meshB.NumTriangles() == 0 {
		return nil
	}

	boundsA := meshA.Bounds().Transformed(transformA)
	boundsB := meshB.Bounds().Transformed(transformB)
	if !boundsA.Overlaps(boundsB) {
		return nil
	}

	// Only triangles reaching into the other mesh's box can touch it.
	trianglesA := worldTriangles(meshA, transformA, boundsB)
	trianglesB := worldTriangles(meshB, transformB, boundsA)
	if len(trianglesA) == 0 || len(trianglesB) == 0 {
		return nil
	}

	if mode == actor.FirstContact {
		for _, a := range trianglesA {
			if pair, ok := firstContact(a, trianglesB); ok {
				return []actor.ContactPair{pair}
			}
		}
		return nil
	}

	if m.Workers < 2 || len(trianglesA) < 2*m.Workers {
		var pairs []actor.ContactPair
		for _, a := range trianglesA {
			pairs = appendContacts(pairs, a, trianglesB)
		}
		return pairs
	}

	type chunk struct {
		triangles []worldTriangle
		pairs     []actor.ContactPair
	}
	size := (len(trianglesA) + m.Workers - 1) / m.Workers
	chunks := make([]*chunk, 0, m.Workers)
	for start := 0; start < len(trianglesA); start += size {
		chunks = append(chunks, &chunk{triangles: trianglesA[start:min(start+size, len(trianglesA))]})
	}
	task(m.Workers, chunks, func(c *chunk) {
		for _, a := range c.triangles {
			c.pairs = appendContacts(c.pairs, a, trianglesB)
		}
	})

	var pairs []actor.ContactPair
	for _, c := range chunks {
		pairs = append(pairs, c.pairs...)
	}
	return pairs
}

func worldTriangles(mesh *actor.Mesh, transform actor.Transform, against actor.AABB) []worldTriangle {
	out := make([]worldTriangle, 0, mesh.NumTriangles())
	for i := 0; i < mesh.NumTriangles(); i++ {
		p1, p2, p3 := mesh.Triangle(i)
		tri := worldTriangle{
			index: i,
			points: gjk.Triangle{
				transform.TransformPoint(p1),
				transform.TransformPoint(p2),
				transform.TransformPoint(p3),
			},
		}
		tri.bounds = actor.EmptyAABB().Extend(tri.points[0]).Extend(tri.points[1]).Extend(tri.points[2])
		if tri.bounds.Overlaps(against) {
			out = append(out, tri)
		}
	}
	return out
}

func appendContacts(pairs []actor.ContactPair, a worldTriangle, others []worldTriangle) []actor.ContactPair {
	for _, b := range others {
		if a.bounds.Overlaps(b.bounds) && gjk.Intersect(a.points, b.points) {
			pairs = append(pairs, actor.ContactPair{TriangleA: a.index, TriangleB: b.index})
		}
	}
	return pairs
}

func firstContact(a worldTriangle, others []worldTriangle) (actor.ContactPair, bool) {
	for _, b := range others {
		if a.bounds.Overlaps(b.bounds) && gjk.Intersect(a.points, b.points) {
			return actor.ContactPair{TriangleA: a.index, TriangleB: b.index}, true
		}
	}
	return actor.ContactPair{}, false
}
