package tether

import (
	"testing"

	"github.com/akmonengine/tether/actor"
	"github.com/akmonengine/tether/config"
	"github.com/akmonengine/tether/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

type response struct {
	a, b *actor.Node
	mode actor.ContactMode
}

type recordingResponder struct {
	responses []response
}

func (r *recordingResponder) RespondToCollision(a, b *actor.Node, _ []actor.ContactPair, mode actor.ContactMode) {
	r.responses = append(r.responses, response{a, b, mode})
}

// =============================================================================
// Integration
// =============================================================================

func TestIntegrate(t *testing.T) {
	scene := actor.NewScene(nil)
	heavy := actor.NewModel("heavy", 2, 1, actor.NewBoxMesh(mgl64.Vec3{0.5, 0.5, 0.5}))
	s := stepper{settings: config.Default()}

	t.Run("force moves the body", func(t *testing.T) {
		n, _ := scene.NewLeaf(heavy, 0)
		n.AddForce(n.Position(), mgl64.Vec3{1, 0, 0})

		s.integrate(n, 0.5)

		if !vec3AlmostEqual(n.Position(), mgl64.Vec3{1, 0, 0}, 1e-12) {
			t.Errorf("position = %v, want (1, 0, 0)", n.Position())
		}
		if n.Orientation() != mgl64.QuatIdent() {
			t.Errorf("orientation = %v, want identity", n.Orientation())
		}
	})

	t.Run("no force, no move", func(t *testing.T) {
		n, _ := scene.NewLeaf(heavy, 0)
		n.SetPosAndOrient(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(0.3, mgl64.Vec3{0, 1, 0}))
		position, orientation := n.Position(), n.Orientation()

		s.integrate(n, 1)

		if n.Position() != position || n.Orientation() != orientation {
			t.Errorf("pose changed to %v, %v", n.Position(), n.Orientation())
		}
	})

	t.Run("torque turns the body", func(t *testing.T) {
		n, _ := scene.NewLeaf(heavy, 0)
		n.AddForce(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})

		s.integrate(n, 0.1)

		q := n.Orientation()
		if !almostEqual(q.Len(), 1, 1e-12) {
			t.Errorf("orientation not normalized: %v", q)
		}
		// Torque (0, 0, 1) turns +x towards +y.
		if turned := q.Rotate(mgl64.Vec3{1, 0, 0}); turned.Y() <= 0 {
			t.Errorf("rotated x = %v, want positive y", turned)
		}
	})

	t.Run("bodies without model use defaults", func(t *testing.T) {
		settings := config.Default()
		settings.DefaultInverseMass = 0.25
		n, _ := scene.NewLeaf(nil, 0)
		n.AddForce(n.Position(), mgl64.Vec3{0, 0, 4})

		stepper{settings: settings}.integrate(n, 1)

		if !vec3AlmostEqual(n.Position(), mgl64.Vec3{0, 0, 1}, 1e-12) {
			t.Errorf("position = %v, want (0, 0, 1)", n.Position())
		}
	})
}

func TestIntegrateListAndGroups(t *testing.T) {
	scene := actor.NewScene(nil)
	s := stepper{settings: config.Default()}

	top, _ := scene.NewLeaf(nil, 0)
	group := scene.NewGroup()
	child, _ := scene.NewLeaf(nil, 0)
	_ = scene.AddChild(group, child)

	push := func() {
		top.AddForce(top.Position(), mgl64.Vec3{1, 0, 0})
		child.AddForce(child.Position(), mgl64.Vec3{1, 0, 0})
	}

	push()
	var none NodeSet
	s.integrateListAndGroups([]*actor.Node{top, group}, &none, 1, false)
	if top.Position().X() != 1 || child.Position().X() != 0 {
		t.Errorf("untouched group integrated: top %v, child %v", top.Position(), child.Position())
	}
	if top.Force() == (mgl64.Vec3{}) {
		t.Errorf("forces cleared without asking")
	}

	top.ClearForces()
	child.ClearForces()
	push()
	var groups NodeSet
	groups.Insert(group)
	s.integrateListAndGroups([]*actor.Node{top, group}, &groups, 1, true)
	if child.Position().X() != 1 {
		t.Errorf("child of touched group at %v, want x = 1", child.Position())
	}
	if top.Force() != (mgl64.Vec3{}) || child.Force() != (mgl64.Vec3{}) {
		t.Errorf("forces not cleared")
	}
}

// =============================================================================
// Collision passes
// =============================================================================

func TestNeedsTest(t *testing.T) {
	scene := actor.NewScene(nil)
	n, _ := scene.NewLeaf(nil, 0)
	n.SetPrimaryCollisionGroupNum(3)
	n.AddToCollisionGroup(7)

	tests := []struct {
		name     string
		filter   *GroupSet
		expected bool
	}{
		{"empty filter", groupSet(), true},
		{"primary group", groupSet(3), true},
		{"secondary group", groupSet(1, 7), true},
		{"other groups", groupSet(1, 2), false},
	}

	for _, tt := range tests {
		if got := needsTest(n, tt.filter); got != tt.expected {
			t.Errorf("%s: needsTest() = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestCollideAndRespond(t *testing.T) {
	box := actor.NewModel("box", 1, 1, actor.NewBoxMesh(mgl64.Vec3{0.5, 0.5, 0.5}))

	setup := func(hits int) (*scriptedTester, []*actor.Node) {
		tester := &scriptedTester{hits: hits}
		scene := actor.NewScene(tester)
		list := make([]*actor.Node, 3)
		for i := range list {
			list[i], _ = scene.NewLeaf(box, 0)
			list[i].SetPosition(mgl64.Vec3{float64(i) * 0.8, 0, 0})
			list[i].SetPrimaryCollisionGroupNum(i + 1)
		}
		return tester, list
	}

	t.Run("every ordered pair", func(t *testing.T) {
		tester, list := setup(-1)
		responder := &recordingResponder{}

		if !collideAndRespond(list, groupSet(), actor.AllContacts, responder, nil) {
			t.Errorf("collideAndRespond() = false")
		}
		if tester.calls != 6 || len(responder.responses) != 6 {
			t.Errorf("calls = %d, responses = %d, want 6", tester.calls, len(responder.responses))
		}
		if first := responder.responses[0]; first.a != list[0] || first.b != list[1] {
			t.Errorf("first response = %v, want (0, 1)", first)
		}
	})

	t.Run("filter", func(t *testing.T) {
		tester, list := setup(-1)

		collideAndRespond(list, groupSet(2), actor.AllContacts, &recordingResponder{}, nil)
		if tester.calls != 2 {
			t.Errorf("calls = %d, want 2", tester.calls)
		}
	})

	t.Run("first contact stops", func(t *testing.T) {
		tester, list := setup(-1)
		responder := &recordingResponder{}

		if !collideAndRespond(list, groupSet(), actor.FirstContact, responder, nil) {
			t.Errorf("collideAndRespond() = false")
		}
		if tester.calls != 1 || responder.responses[0].mode != actor.FirstContact {
			t.Errorf("calls = %d, responses = %v", tester.calls, responder.responses)
		}
	})

	t.Run("no contact", func(t *testing.T) {
		_, list := setup(0)
		if collideAndRespond(list, groupSet(), actor.AllContacts, nil, nil) {
			t.Errorf("collideAndRespond() = true")
		}
	})

	t.Run("grid skips far pairs", func(t *testing.T) {
		tester, list := setup(-1)
		list[2].SetPosition(mgl64.Vec3{20, 0, 0})

		collideAndRespond(list, groupSet(), actor.AllContacts, nil, NewSpatialGrid(1, 64))
		// Only 0 and 1 are close.
		if tester.calls != 2 {
			t.Errorf("calls = %d, want 2", tester.calls)
		}
	})
}

func TestCollideWithinGroups(t *testing.T) {
	tester := &scriptedTester{hits: -1}
	scene := actor.NewScene(tester)
	box := actor.NewModel("box", 1, 1, actor.NewBoxMesh(mgl64.Vec3{0.5, 0.5, 0.5}))

	var groups NodeSet
	for i := 0; i < 2; i++ {
		group := scene.NewGroup()
		for j := 0; j < 2; j++ {
			leaf, _ := scene.NewLeaf(box, 0)
			_ = scene.AddChild(group, leaf)
		}
		groups.Insert(group)
	}

	if !collideWithinGroups(&groups, groupSet(), actor.AllContacts, nil) || tester.calls != 4 {
		t.Errorf("AllContacts calls = %d, want 4", tester.calls)
	}

	tester.calls = 0
	if !collideWithinGroups(&groups, groupSet(), actor.FirstContact, nil) || tester.calls != 1 {
		t.Errorf("FirstContact calls = %d, want 1", tester.calls)
	}
}

// =============================================================================
// Springs
// =============================================================================

func TestSpringForcesFromList(t *testing.T) {
	scene := actor.NewScene(nil)
	group := scene.NewGroup()
	group.SetPrimaryCollisionGroupNum(10)
	inner, _ := scene.NewLeaf(nil, 0)
	inner.SetPrimaryCollisionGroupNum(11)
	_ = scene.AddChild(group, inner)

	top, _ := scene.NewLeaf(nil, 0)
	top.SetPrimaryCollisionGroupNum(20)
	top.SetPosition(mgl64.Vec3{5, 0, 0})

	bare, _ := scene.NewLeaf(nil, 0)
	bare.SetPosition(mgl64.Vec3{0, 5, 0})

	t.Run("grouped endpoint", func(t *testing.T) {
		var touched GroupSet
		var groups NodeSet
		list := []constraint.Connection{constraint.NewSpring(inner, top, mgl64.Vec3{}, mgl64.Vec3{}, 1, 0, 0)}

		if !springForcesFromList(list, &touched, &groups) {
			t.Fatalf("springForcesFromList() = false")
		}
		if touched.Len() != 3 || !touched.Contains(10) || !touched.Contains(11) || !touched.Contains(20) {
			t.Errorf("touched = %v, want 11, 10, 20", touched.Items())
		}
		if groups.Len() != 1 || !groups.Contains(group) {
			t.Errorf("groups = %v, want the group", groups.Items())
		}
	})

	t.Run("propagating endpoint", func(t *testing.T) {
		inner.PropagateForceToParent = true
		defer func() { inner.PropagateForceToParent = false }()

		var touched GroupSet
		var groups NodeSet
		list := []constraint.Connection{constraint.NewSpring(nil, inner, mgl64.Vec3{0, 0, 3}, mgl64.Vec3{}, 1, 0, 0)}

		springForcesFromList(list, &touched, &groups)
		if groups.Len() != 0 || touched.Len() != 1 || !touched.Contains(11) {
			t.Errorf("touched = %v, groups = %d", touched.Items(), groups.Len())
		}
		if group.Force() == (mgl64.Vec3{}) {
			t.Errorf("force did not reach the group")
		}
	})

	t.Run("ungrouped and slack", func(t *testing.T) {
		var touched GroupSet
		var groups NodeSet
		list := []constraint.Connection{
			constraint.NewSpring(nil, bare, mgl64.Vec3{}, mgl64.Vec3{}, 1, 0, 0),
			constraint.NewSpring(nil, top, mgl64.Vec3{5, 0, 1}, mgl64.Vec3{}, 1, 0, 2),
		}

		if !springForcesFromList(list, &touched, &groups) {
			t.Errorf("springForcesFromList() = false")
		}
		if touched.Len() != 0 {
			t.Errorf("touched = %v, want none", touched.Items())
		}
	})

	t.Run("nothing applied", func(t *testing.T) {
		var touched GroupSet
		var groups NodeSet
		list := []constraint.Connection{constraint.NewConnector(top, bare, mgl64.Vec3{}, mgl64.Vec3{})}

		if springForcesFromList(list, &touched, &groups) {
			t.Errorf("springForcesFromList() = true for a bare connector")
		}
	})
}

// =============================================================================
// Rollback & force bookkeeping
// =============================================================================

func TestRollbackHelpers(t *testing.T) {
	scene := actor.NewScene(nil)
	group := scene.NewGroup()
	a, _ := scene.NewLeaf(nil, 0)
	b, _ := scene.NewLeaf(nil, 0)
	a.SetPosition(mgl64.Vec3{-1, 0, 0})
	b.SetPosition(mgl64.Vec3{1, 0, 0})
	_ = scene.AddChild(group, a)
	_ = scene.AddChild(group, b)
	list := []*actor.Node{group}

	var groups NodeSet
	groups.Insert(group)

	setLastLocation(list, &groups)
	group.SetPosition(mgl64.Vec3{0, 4, 0})
	a.SetWorldPose(mgl64.Vec3{-3, 0, 0}, mgl64.QuatIdent())

	restoreToLastLocation(list, &groups)
	if !vec3AlmostEqual(group.Position(), mgl64.Vec3{}, 1e-12) {
		t.Errorf("group at %v, want origin", group.Position())
	}
	if !vec3AlmostEqual(a.Position(), mgl64.Vec3{-1, 0, 0}, 1e-12) || !vec3AlmostEqual(b.Position(), mgl64.Vec3{1, 0, 0}, 1e-12) {
		t.Errorf("children at %v, %v", a.Position(), b.Position())
	}

	a.AddForce(a.Position(), mgl64.Vec3{4, 0, 0})
	group.AddForce(group.Position(), mgl64.Vec3{0, 8, 0})

	var none NodeSet
	divideForces(list, &none, 2)
	if group.Force() != (mgl64.Vec3{0, 4, 0}) || a.Force() != (mgl64.Vec3{4, 0, 0}) {
		t.Errorf("untouched group children divided: %v, %v", group.Force(), a.Force())
	}

	divideForces(list, &groups, 4)
	if group.Force() != (mgl64.Vec3{0, 1, 0}) || a.Force() != (mgl64.Vec3{1, 0, 0}) {
		t.Errorf("forces = %v, %v after division", group.Force(), a.Force())
	}

	clearForces(list, &groups)
	if group.Force() != (mgl64.Vec3{}) || a.Force() != (mgl64.Vec3{}) {
		t.Errorf("forces not cleared")
	}
}
