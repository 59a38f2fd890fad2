package tether

import (
	"errors"
	"testing"

	"github.com/akmonengine/tether/actor"
	"github.com/akmonengine/tether/config"
	"github.com/akmonengine/tether/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// scriptedTester reports a contact for its first hits calls, or for every call
// when hits is negative.
type scriptedTester struct {
	hits  int
	calls int
}

func (s *scriptedTester) Collide(_ *actor.Mesh, _ actor.Transform, _ *actor.Mesh, _ actor.Transform, _ actor.ContactMode) []actor.ContactPair {
	s.calls++
	if s.hits < 0 || s.calls <= s.hits {
		return []actor.ContactPair{{TriangleA: 0, TriangleB: 0}}
	}
	return nil
}

// pulledWorld places a box at the origin, an obstacle far along +y, and a
// hand spring pulling the box towards (10, 0, 0) with a force of 10.
func pulledWorld(t *testing.T, mode Mode, tester actor.Tester) (*World, *actor.Node, *actor.Node) {
	t.Helper()

	settings := config.Default()
	settings.Mode = int(mode)
	settings.BackoffIterations = 4
	w := newTestWorld(t, settings)
	if tester != nil {
		w.Scene.Tester = tester
	}

	a := addBox(t, w, mgl64.Vec3{0, 0, 0})
	b := addBox(t, w, mgl64.Vec3{0, 5, 0})
	if err := w.AddHandSpring(0, constraint.NewSpring(nil, a, mgl64.Vec3{10, 0, 0}, mgl64.Vec3{}, 1, 0, 0)); err != nil {
		t.Fatalf("AddHandSpring() error = %v", err)
	}
	return w, a, b
}

// =============================================================================
// Mode Tests
// =============================================================================

func TestMode_String(t *testing.T) {
	tests := []struct {
		mode     Mode
		expected string
	}{
		{ModeDirect, "direct"},
		{ModePoseFirst, "pose-first"},
		{ModeBinaryBackoff, "binary-backoff"},
		{ModePosePCA, "pose-pca"},
		{Mode(4), "Mode(4)"},
		{Mode(-1), "Mode(-1)"},
	}

	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.expected {
			t.Errorf("Mode(%d).String() = %q, want %q", int(tt.mode), got, tt.expected)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name     string
		expected Mode
		wantErr  bool
	}{
		{"direct", ModeDirect, false},
		{"Pose-First", ModePoseFirst, false},
		{"BINARY-BACKOFF", ModeBinaryBackoff, false},
		{"pose-pca", ModePosePCA, false},
		{"physics", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := ParseMode(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMode) {
					t.Errorf("ParseMode(%q) error = %v, want ErrInvalidMode", tt.name, err)
				}
				return
			}
			if err != nil || mode != tt.expected {
				t.Errorf("ParseMode(%q) = %v, %v, want %v", tt.name, mode, err, tt.expected)
			}
		})
	}
}

func TestNewStrategy(t *testing.T) {
	for mode := ModeDirect; mode <= ModePosePCA; mode++ {
		s, err := NewStrategy(mode, config.Default(), nil)
		if err != nil {
			t.Fatalf("NewStrategy(%s) error = %v", mode, err)
		}
		if s.Mode() != mode {
			t.Errorf("NewStrategy(%s).Mode() = %s", mode, s.Mode())
		}
	}

	if _, err := NewStrategy(Mode(9), config.Default(), nil); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("NewStrategy(9) error = %v, want ErrInvalidMode", err)
	}
}

func TestStepInput_SourcesOrder(t *testing.T) {
	handA := []constraint.Connection{&constraint.Connector{}}
	handB := []constraint.Connection{&constraint.Connector{}, &constraint.Connector{}}
	general := []constraint.Connection{}

	in := StepInput{HandA: handA, HandB: handB, General: general}
	sources := in.sources()
	if len(sources) != 2 || len(sources[0]) != 2 || len(sources[1]) != 1 {
		t.Errorf("sources() without general springs = %v", sources)
	}

	in.ApplyGeneral = true
	if got := len(in.sources()); got != 3 {
		t.Errorf("len(sources()) = %d, want 3", got)
	}
}

// =============================================================================
// Direct
// =============================================================================

func TestDirect_PushesOverlappingSpheresApart(t *testing.T) {
	for _, gridCellSize := range []float64{0, 1} {
		settings := config.Default()
		settings.Mode = int(ModeDirect)
		settings.GridCellSize = gridCellSize
		w := newTestWorld(t, settings)

		a, _ := w.AddLeaf("sphere", 0, mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent())
		b, _ := w.AddLeaf("sphere", 0, mgl64.Vec3{0, 0, 1.5}, mgl64.QuatIdent())
		contacts := func() int {
			return len(MeshTester{}.Collide(a.Mesh(), a.WorldTransform(), b.Mesh(), b.WorldTransform(), actor.AllContacts))
		}
		before := contacts()

		step(t, w, 0.01)

		if after := contacts(); after >= before {
			t.Errorf("grid %v: %d overlapping triangle pairs after the step, %d before", gridCellSize, after, before)
		}
		if a.Position().Z() >= 0 || b.Position().Z() <= 1.5 {
			t.Errorf("grid %v: spheres at z = %v, %v, want pushed apart", gridCellSize, a.Position().Z(), b.Position().Z())
		}
	}
}

func TestDirect_GridMatchesBruteForce(t *testing.T) {
	run := func(gridCellSize float64) []mgl64.Vec3 {
		settings := config.Default()
		settings.Mode = int(ModeDirect)
		settings.GridCellSize = gridCellSize
		w := newTestWorld(t, settings)

		for _, p := range []mgl64.Vec3{{0, 0, 0}, {1.2, 0, 0}, {0, 1.6, 0}, {10, 0, 0}} {
			if _, err := w.AddLeaf("sphere", 0, p, mgl64.QuatIdent()); err != nil {
				t.Fatalf("AddLeaf() error = %v", err)
			}
		}
		step(t, w, 0.01)

		positions := make([]mgl64.Vec3, len(w.Bodies))
		for i, n := range w.Bodies {
			positions[i] = n.Position()
		}
		return positions
	}

	brute, grid := run(0), run(1.5)
	for i := range brute {
		if !vec3AlmostEqual(brute[i], grid[i], 1e-12) {
			t.Errorf("body %d: brute force %v, grid %v", i, brute[i], grid[i])
		}
	}
}

// =============================================================================
// Pose first
// =============================================================================

func TestPoseFirst_KeepsCollisionFreeMove(t *testing.T) {
	tester := &scriptedTester{hits: 0}
	w, a, _ := pulledWorld(t, ModePoseFirst, tester)

	report := step(t, w, 0.1)

	if report.SourcesApplied != 1 || report.SourcesRolledBack != 0 {
		t.Errorf("report = %+v", report)
	}
	if !vec3AlmostEqual(a.Position(), mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("position = %v, want (1, 0, 0)", a.Position())
	}
	if a.Force() != (mgl64.Vec3{}) {
		t.Errorf("forces not cleared: %v", a.Force())
	}
}

func TestPoseFirst_RollsBackPersistentCollision(t *testing.T) {
	for _, mode := range []Mode{ModePoseFirst, ModePosePCA} {
		t.Run(mode.String(), func(t *testing.T) {
			tester := &scriptedTester{hits: -1}
			w, a, b := pulledWorld(t, mode, tester)

			report := step(t, w, 0.1)

			if report.SourcesRolledBack != 1 {
				t.Errorf("SourcesRolledBack = %d, want 1", report.SourcesRolledBack)
			}
			if !vec3AlmostEqual(a.Position(), mgl64.Vec3{0, 0, 0}, 1e-12) {
				t.Errorf("grabbed body at %v, want restored to origin", a.Position())
			}
			if !vec3AlmostEqual(b.Position(), mgl64.Vec3{0, 5, 0}, 1e-12) {
				t.Errorf("obstacle at %v, want restored", b.Position())
			}
			// One full pass and one early-exit retest, only a passes the filter.
			if tester.calls != 2 {
				t.Errorf("tester calls = %d, want 2", tester.calls)
			}
		})
	}
}

func TestPoseFirst_KeepsMoveClearedByResponse(t *testing.T) {
	tester := &scriptedTester{hits: 1}
	w, a, _ := pulledWorld(t, ModePoseFirst, tester)

	report := step(t, w, 0.1)

	if report.SourcesRolledBack != 0 || report.SourcesApplied != 1 {
		t.Errorf("report = %+v", report)
	}
	if a.Position() == (mgl64.Vec3{}) {
		t.Errorf("move was undone")
	}
}

func TestPoseFirst_RespondsOnlyToFullContactLists(t *testing.T) {
	w := newTestWorld(t, config.Default())
	a := addBox(t, w, mgl64.Vec3{0, 0, 0})
	b := addBox(t, w, mgl64.Vec3{0.5, 0, 0})
	contacts := []actor.ContactPair{{TriangleA: 0, TriangleB: 2}}

	s, _ := NewStrategy(ModePoseFirst, config.Default(), nil)
	var touched GroupSet

	s.RespondToCollision(a, b, contacts, actor.FirstContact, &touched)
	if a.Force() != (mgl64.Vec3{}) || b.Force() != (mgl64.Vec3{}) {
		t.Errorf("first contact test produced forces %v, %v", a.Force(), b.Force())
	}

	s.RespondToCollision(a, b, contacts, actor.AllContacts, &touched)
	if a.Force() == (mgl64.Vec3{}) || b.Force() == (mgl64.Vec3{}) {
		t.Errorf("full contact list produced no force")
	}
}

// =============================================================================
// Binary backoff
// =============================================================================

func TestBackoff_HalvesUntilFree(t *testing.T) {
	tests := []struct {
		name       string
		hits       int
		iterations int
		capReached bool
		travel     float64
	}{
		{"free move", 0, 0, false, 1},
		{"one halving", 1, 1, false, 0.5},
		{"two halvings", 2, 2, false, 0.25},
		{"cap", -1, 3, true, 0.125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, a, b := pulledWorld(t, ModeBinaryBackoff, &scriptedTester{hits: tt.hits})

			report := step(t, w, 0.1)

			if report.BackoffIterations != tt.iterations {
				t.Errorf("BackoffIterations = %d, want %d", report.BackoffIterations, tt.iterations)
			}
			if report.BackoffCapReached != tt.capReached {
				t.Errorf("BackoffCapReached = %v, want %v", report.BackoffCapReached, tt.capReached)
			}
			if !vec3AlmostEqual(a.Position(), mgl64.Vec3{tt.travel, 0, 0}, 1e-9) {
				t.Errorf("position = %v, want (%v, 0, 0)", a.Position(), tt.travel)
			}
			if b.Position() != (mgl64.Vec3{0, 5, 0}) {
				t.Errorf("obstacle moved to %v", b.Position())
			}
			if a.Force() != (mgl64.Vec3{}) {
				t.Errorf("forces not cleared: %v", a.Force())
			}
		})
	}
}

func TestBackoff_NoCollisionCheck(t *testing.T) {
	tester := &scriptedTester{hits: -1}
	w, a, _ := pulledWorld(t, ModeBinaryBackoff, tester)
	w.SetCollisionCheck(false)

	report := step(t, w, 0.1)

	if report.BackoffIterations != 0 || tester.calls != 0 {
		t.Errorf("report = %+v, tester calls = %d", report, tester.calls)
	}
	if !vec3AlmostEqual(a.Position(), mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("position = %v, want (1, 0, 0)", a.Position())
	}
}

func TestBackoff_IgnoresResponses(t *testing.T) {
	w := newTestWorld(t, config.Default())
	a := addBox(t, w, mgl64.Vec3{0, 0, 0})
	b := addBox(t, w, mgl64.Vec3{0.5, 0, 0})

	s, _ := NewStrategy(ModeBinaryBackoff, config.Default(), nil)
	var touched GroupSet
	s.RespondToCollision(a, b, []actor.ContactPair{{TriangleA: 0, TriangleB: 0}}, actor.AllContacts, &touched)

	if a.Force() != (mgl64.Vec3{}) || b.Force() != (mgl64.Vec3{}) {
		t.Errorf("backoff response produced forces")
	}
}

func TestGeneralSpringsFollowSwitch(t *testing.T) {
	settings := config.Default()
	settings.CollisionCheck = false
	w := newTestWorld(t, settings)

	a := addBox(t, w, mgl64.Vec3{0, 0, 0})
	b := addBox(t, w, mgl64.Vec3{4, 0, 0})
	w.AddSpring(a, b, mgl64.Vec3{}, mgl64.Vec3{}, false, 1, 0, 0)

	w.SetPhysicsSprings(false)
	if report := step(t, w, 0.1); report.SourcesApplied != 0 {
		t.Errorf("disabled springs applied: %+v", report)
	}

	w.SetPhysicsSprings(true)
	if report := step(t, w, 0.1); report.SourcesApplied != 1 {
		t.Errorf("enabled springs not applied: %+v", report)
	}
	if a.Position().X() <= 0 || b.Position().X() >= 4 {
		t.Errorf("spring did not pull: %v, %v", a.Position(), b.Position())
	}
}
