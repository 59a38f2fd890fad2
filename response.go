package tether

import (
	"log"
	"slices"

	"github.com/akmonengine/tether/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	normalForceScale = 40
	axisForceScale   = 30
)

// computeObjectsToAddForce picks, on each side of a contact between leaves a
// and b, the node of the lineage that absorbs the response force. A nil
// result means that side gets no force.
//
// With touched groups, each side takes its nearest lineage member whose
// primary collision group was touched, unless the other side shares it.
// Without, each side takes the highest lineage member not shared with the
// other side, so siblings push each other rather than their common group.
func computeObjectsToAddForce(a, b *actor.Node, touched *GroupSet) (objA, objB *actor.Node) {
	lineageA, lineageB := a.Lineage(), b.Lineage()
	if touched.Len() > 0 {
		return nearestTouched(lineageA, lineageB, touched), nearestTouched(lineageB, lineageA, touched)
	}
	return highestUnshared(lineageA, lineageB), highestUnshared(lineageB, lineageA)
}

func nearestTouched(lineage, other []*actor.Node, touched *GroupSet) *actor.Node {
	for _, n := range lineage {
		if touched.Contains(n.PrimaryCollisionGroupNum()) {
			if slices.Contains(other, n) {
				return nil
			}
			return n
		}
	}
	return nil
}

func highestUnshared(lineage, other []*actor.Node) *actor.Node {
	idx := slices.IndexFunc(lineage, func(n *actor.Node) bool { return slices.Contains(other, n) })
	switch idx {
	case -1:
		return lineage[len(lineage)-1]
	case 0:
		return nil
	}
	return lineage[idx-1]
}

// applyNormalResponse pushes each body along the other body's surface normal
// at every contact, at the centroid of its own triangle. The magnitude is
// split over the contacts so that many small overlaps do not add up to a
// violent push.
func applyNormalResponse(a, b *actor.Node, contacts []actor.ContactPair, touched *GroupSet, collisionForce float64) {
	meshA, meshB := a.Mesh(), b.Mesh()
	if len(contacts) == 0 || meshA == nil || meshB == nil {
		return
	}

	objA, objB := computeObjectsToAddForce(a, b, touched)
	if objA == nil && objB == nil {
		return
	}

	worldA, worldB := a.WorldTransform(), b.WorldTransform()
	magnitude := collisionForce * normalForceScale / float64(len(contacts))

	for _, c := range contacts {
		if objA != nil {
			force := worldB.TransformVector(meshB.Normal(c.TriangleB)).Mul(magnitude)
			objA.AddForce(worldA.TransformPoint(meshA.Centroid(c.TriangleA)), force)
		}
		if objB != nil {
			force := worldA.TransformVector(meshA.Normal(c.TriangleA)).Mul(magnitude)
			objB.AddForce(worldB.TransformPoint(meshB.Centroid(c.TriangleB)), force)
		}
	}
}

// contactAxis fits a plane through the vertices of the contacted triangles of
// one side, in that body's frame. It returns the vertex mean and the unit
// plane normal, turned to the side of the mean as seen from the body origin.
// ok is false when the contact has no usable axis.
func contactAxis(mesh *actor.Mesh, triangles []int, logger *log.Logger) (mean, axis mgl64.Vec3, ok bool) {
	total := 3 * len(triangles)
	if total < 2 {
		return mean, axis, false
	}

	for _, t := range triangles {
		p1, p2, p3 := mesh.Triangle(t)
		mean = mean.Add(p1).Add(p2).Add(p3)
	}
	mean = mean.Mul(1 / float64(total))

	var covariance mgl64.Mat3
	for _, t := range triangles {
		p1, p2, p3 := mesh.Triangle(t)
		for _, p := range [3]mgl64.Vec3{p1, p2, p3} {
			d := mean.Sub(p)
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					covariance.Set(i, j, covariance.At(i, j)+d[i]*d[j])
				}
			}
		}
	}
	covariance = covariance.Mul(1 / float64(total-1))

	vectors, values, converged := eigen3(covariance)
	if !converged && logger != nil {
		logger.Printf("eigen: too many iterations in Jacobi transform")
	}

	axis = vectors.Col(smallestAxis(values))
	if axis.LenSqr() < 1e-24 {
		return mean, axis, false
	}
	axis = axis.Normalize()
	if axis.Dot(mean) < 0 {
		axis = axis.Mul(-1)
	}
	return mean, axis, true
}

// applyAxisResponse pushes each body once per contact list, along the least
// spread axis of its contacted vertices, at their mean.
func applyAxisResponse(a, b *actor.Node, contacts []actor.ContactPair, touched *GroupSet, collisionForce float64, logger *log.Logger) {
	meshA, meshB := a.Mesh(), b.Mesh()
	if len(contacts) == 0 || meshA == nil || meshB == nil {
		return
	}

	trianglesA := make([]int, len(contacts))
	trianglesB := make([]int, len(contacts))
	for i, c := range contacts {
		trianglesA[i] = c.TriangleA
		trianglesB[i] = c.TriangleB
	}

	objA, objB := computeObjectsToAddForce(a, b, touched)
	magnitude := collisionForce * axisForceScale

	if objA != nil {
		if mean, axis, ok := contactAxis(meshA, trianglesA, logger); ok {
			world := a.WorldTransform()
			objA.AddForce(world.TransformPoint(mean), world.TransformVector(axis).Mul(magnitude))
		}
	}
	if objB != nil {
		if mean, axis, ok := contactAxis(meshB, trianglesB, logger); ok {
			world := b.WorldTransform()
			objB.AddForce(world.TransformPoint(mean), world.TransformVector(axis).Mul(magnitude))
		}
	}
}
