package tether

import (
	"github.com/akmonengine/tether/actor"
	"github.com/akmonengine/tether/config"
	"github.com/akmonengine/tether/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// stepper carries the routines shared by every strategy. It is read-only
// during a step.
type stepper struct {
	settings config.Settings
}

// ============================================================================
// Integration
// ============================================================================

// integrate advances n by one explicit Newton-Euler step from its
// accumulated force and torque. Nodes without a model use the configured
// default mass properties.
func (s stepper) integrate(n *actor.Node, dt float64) {
	force, torque := n.Force(), n.Torque()
	if force == (mgl64.Vec3{}) && torque == (mgl64.Vec3{}) {
		return
	}

	inverseMass, inverseMoment, ok := n.MassProperties()
	if !ok {
		inverseMass = s.settings.DefaultInverseMass
		inverseMoment = s.settings.DefaultInverseMoment
	}

	position := n.Position().Add(force.Mul(dt * inverseMass))

	// Torque is kept in the body frame, so the spin is right-multiplied.
	orientation := n.Orientation()
	angularVelocity := torque.Mul(inverseMoment)
	spin := orientation.Mul(mgl64.Quat{W: 0, V: angularVelocity})
	orientation = orientation.Add(spin.Scale(0.5 * dt)).Normalize()

	n.SetWorldPose(position, orientation)
}

func (s stepper) applyEuler(list []*actor.Node, dt float64, clearForces bool) {
	for _, n := range list {
		s.integrate(n, dt)
		if clearForces {
			n.ClearForces()
		}
	}
}

// integrateListAndGroups integrates the top-level list, then the direct
// children of every touched group.
func (s stepper) integrateListAndGroups(list []*actor.Node, groups *NodeSet, dt float64, clearForces bool) {
	s.applyEuler(list, dt, clearForces)
	for _, group := range groups.Items() {
		s.applyEuler(group.Children(), dt, clearForces)
	}
}

// ============================================================================
// Collision passes
// ============================================================================

// needsTest reports whether n belongs to any group of filter. An empty filter
// matches every node.
func needsTest(n *actor.Node, filter *GroupSet) bool {
	if filter.Len() == 0 {
		return true
	}
	for _, group := range filter.Items() {
		if n.IsInCollisionGroup(group) {
			return true
		}
	}
	return false
}

// collideAndRespond tests every ordered pair (i, j), i != j, whose first
// member passes the filter. With a grid, pairs whose boxes are apart are
// skipped. In FirstContact mode it returns on the first hit.
func collideAndRespond(list []*actor.Node, filter *GroupSet, mode actor.ContactMode, responder actor.Responder, grid *SpatialGrid) bool {
	if grid != nil {
		grid.Rebuild(list)
	}

	found := false
	for i, a := range list {
		if !needsTest(a, filter) {
			continue
		}

		var candidates []int
		if grid != nil {
			candidates = grid.Candidates(i)
		}

		test := func(j int) bool {
			if j == i || !a.Collide(list[j], responder, mode) {
				return false
			}
			found = true
			return mode == actor.FirstContact
		}

		if grid != nil {
			for _, j := range candidates {
				if test(j) {
					return true
				}
			}
			continue
		}
		for j := range list {
			if test(j) {
				return true
			}
		}
	}
	return found
}

// collideWithinGroups runs collideAndRespond over the children of every
// touched group. Every group is visited in AllContacts mode.
func collideWithinGroups(groups *NodeSet, filter *GroupSet, mode actor.ContactMode, responder actor.Responder) bool {
	found := false
	for _, group := range groups.Items() {
		if collideAndRespond(group.Children(), filter, mode, responder, nil) {
			found = true
			if mode == actor.FirstContact {
				break
			}
		}
	}
	return found
}

// ============================================================================
// Springs
// ============================================================================

// springForcesFromList applies every connection and records what the forces
// reached: the primary collision group of each endpoint, and for endpoints
// that keep their forces inside a group, every ancestor together with its
// primary group.
func springForcesFromList(list []constraint.Connection, touched *GroupSet, groups *NodeSet) bool {
	applied := false
	for _, c := range list {
		if !c.AddForce() {
			continue
		}
		applied = true

		for _, end := range []constraint.End{constraint.EndA, constraint.EndB} {
			n := c.Endpoint(end)
			if n == nil {
				continue
			}
			if n.Parent() != nil && !n.PropagateForceToParent {
				for p := n.Parent(); p != nil; p = p.Parent() {
					groups.Insert(p)
					if g := p.PrimaryCollisionGroupNum(); g != actor.OBJECT_HAS_NO_GROUP {
						touched.Insert(g)
					}
				}
			}
			if g := n.PrimaryCollisionGroupNum(); g != actor.OBJECT_HAS_NO_GROUP {
				touched.Insert(g)
			}
		}
	}
	return applied
}

// ============================================================================
// Rollback & force bookkeeping
// ============================================================================

// The helpers below only descend into groups listed in groups.

func setLastLocation(list []*actor.Node, groups *NodeSet) {
	for _, n := range list {
		n.SetLastLocation()
		if groups.Contains(n) {
			setLastLocation(n.Children(), groups)
		}
	}
}

// restoreToLastLocation restores parents before their children so that each
// child lands on its snapshotted world pose.
func restoreToLastLocation(list []*actor.Node, groups *NodeSet) {
	for _, n := range list {
		n.RestoreToLastLocation()
		if groups.Contains(n) {
			restoreToLastLocation(n.Children(), groups)
		}
	}
}

func clearForces(list []*actor.Node, groups *NodeSet) {
	for _, n := range list {
		n.ClearForces()
		if groups.Contains(n) {
			clearForces(n.Children(), groups)
		}
	}
}

func divideForces(list []*actor.Node, groups *NodeSet, divisor float64) {
	scale := 1 / divisor
	for _, n := range list {
		n.SetForceAndTorque(n.Force().Mul(scale), n.Torque().Mul(scale))
		if groups.Contains(n) {
			divideForces(n.Children(), groups, divisor)
		}
	}
}
