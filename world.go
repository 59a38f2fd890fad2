package tether

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"slices"

	"github.com/akmonengine/tether/actor"
	"github.com/akmonengine/tether/config"
	"github.com/akmonengine/tether/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const DEFAULT_GRID_CELLS = 1024

var (
	ErrNotInWorld    = errors.New("node is not in the world")
	ErrUnknownSpring = errors.New("connection is not in the world")
	ErrInvalidHand   = errors.New("invalid hand index")
)

// Stats accumulates step reports over the life of a world.
type Stats struct {
	Steps             int
	SourcesApplied    int
	SourcesRolledBack int
	BackoffIterations int
	BackoffCapHits    int
}

// Line is a connector drawn between its two attachment points.
type Line struct {
	A, B mgl64.Vec3
}

type World struct {
	Scene  *actor.Scene
	Models *actor.ModelRegistry

	// Bodies are the top-level nodes. Grouped nodes are reached through their group.
	Bodies []*actor.Node

	// HandSprings hold the connections grabbed by each hand.
	HandSprings [2][]constraint.Connection
	// Springs are the general connections, applied when Settings.PhysicsSprings is on.
	Springs []constraint.Connection

	Settings config.Settings
	Logger   *log.Logger
	Stats    Stats

	strategies  [config.NumModes]Strategy
	grid        *SpatialGrid
	maxGroupNum int
}

// NewWorld builds an empty world. The narrow phase is a MeshTester using
// settings.Workers goroutines.
func NewWorld(settings config.Settings) (*World, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		Scene:    actor.NewScene(MeshTester{Workers: settings.Workers}),
		Models:   actor.NewModelRegistry(),
		Settings: settings,
		Logger:   log.New(os.Stderr, "tether: ", log.LstdFlags),
	}

	for mode := range w.strategies {
		strategy, err := NewStrategy(Mode(mode), settings, w.Logger)
		if err != nil {
			return nil, err
		}
		w.strategies[mode] = strategy
	}

	if settings.GridCellSize > 0 {
		cells := settings.GridCells
		if cells == 0 {
			cells = DEFAULT_GRID_CELLS
		}
		w.grid = NewSpatialGrid(settings.GridCellSize, cells)
	}
	return w, nil
}

// ============================================================================
// Modes & switches
// ============================================================================

func (w *World) Mode() Mode {
	return Mode(w.Settings.Mode)
}

func (w *World) SetMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("set mode: %w: %d", ErrInvalidMode, int(mode))
	}
	if mode != w.Mode() {
		w.Logger.Printf("collision response mode %s -> %s", w.Mode(), mode)
	}
	w.Settings.Mode = int(mode)
	return nil
}

// Strategy returns the strategy used by the current mode, or nil when
// Settings.Mode holds no known mode.
func (w *World) Strategy() Strategy {
	if !w.Mode().Valid() {
		return nil
	}
	return w.strategies[w.Settings.Mode]
}

func (w *World) SetCollisionCheck(on bool) {
	w.Settings.CollisionCheck = on
}

func (w *World) SetPhysicsSprings(on bool) {
	w.Settings.PhysicsSprings = on
}

// ============================================================================
// Bodies
// ============================================================================

// NextGroupID returns a collision group number never handed out before.
func (w *World) NextGroupID() int {
	w.maxGroupNum++
	return w.maxGroupNum
}

// AddObject puts a detached node at the top level. A node without a
// collision group gets a fresh one.
func (w *World) AddObject(n *actor.Node) error {
	if n.Scene() != w.Scene {
		return actor.ErrForeignNode
	}
	if n.Parent() != nil {
		return fmt.Errorf("add object %d: %w", n.ID(), actor.ErrAttached)
	}
	if slices.Contains(w.Bodies, n) {
		return nil
	}

	w.Bodies = append(w.Bodies, n)
	if n.PrimaryCollisionGroupNum() == actor.OBJECT_HAS_NO_GROUP {
		n.SetPrimaryCollisionGroupNum(w.NextGroupID())
	}
	return nil
}

// AddLeaf instantiates a registered model at a world pose.
func (w *World) AddLeaf(model string, conformation int, position mgl64.Vec3, orientation mgl64.Quat) (*actor.Node, error) {
	m, err := w.Models.Get(model)
	if err != nil {
		return nil, err
	}
	n, err := w.Scene.NewLeaf(m, conformation)
	if err != nil {
		return nil, err
	}
	n.SetPosAndOrient(position, orientation)
	if err := w.AddObject(n); err != nil {
		return nil, err
	}
	return n, nil
}

// GroupObjects moves top-level nodes into a new top-level group.
func (w *World) GroupObjects(nodes ...*actor.Node) (*actor.Node, error) {
	for _, n := range nodes {
		if !slices.Contains(w.Bodies, n) {
			return nil, fmt.Errorf("group object %d: %w", n.ID(), ErrNotInWorld)
		}
	}

	group := w.Scene.NewGroup()
	for _, n := range nodes {
		if err := w.RemoveObject(n); err != nil {
			return nil, err
		}
		if err := w.Scene.AddChild(group, n); err != nil {
			return nil, err
		}
	}
	if err := w.AddObject(group); err != nil {
		return nil, err
	}
	return group, nil
}

// RemoveObject takes a node out of the top level, or out of its group when
// the group belongs to the world. The node itself stays in the scene.
func (w *World) RemoveObject(n *actor.Node) error {
	if i := slices.Index(w.Bodies, n); i >= 0 {
		w.Bodies = slices.Delete(w.Bodies, i, i+1)
		return nil
	}

	parent := n.Parent()
	if parent == nil {
		return fmt.Errorf("remove object %d: %w", n.ID(), ErrNotInWorld)
	}
	lineage := n.Lineage()
	if !slices.Contains(w.Bodies, lineage[len(lineage)-1]) {
		return fmt.Errorf("remove object %d: %w", n.ID(), ErrNotInWorld)
	}
	return w.Scene.RemoveChild(parent, n)
}

// ClosestObject returns the top-level node whose box is nearest to point.
// Inside several boxes, the smallest box wins. It returns nil for an empty world.
func (w *World) ClosestObject(point mgl64.Vec3) (*actor.Node, float64) {
	var closest *actor.Node
	best := math.MaxFloat64
	for _, n := range w.Bodies {
		if d := distanceOutside(n.Bounds(), point); d < best {
			closest, best = n, d
		}
	}
	return closest, best
}

// distanceOutside is the distance from point to the box, or minus the inverse
// box volume when the point is inside.
func distanceOutside(box actor.AABB, point mgl64.Vec3) float64 {
	size := box.Max.Sub(box.Min)
	if size.X() == 0 || size.Y() == 0 || size.Z() == 0 {
		return box.Min.Sub(point).Len()
	}
	if box.ContainsPoint(point) {
		return -1 / (size.X() * size.Y() * size.Z())
	}

	var outside mgl64.Vec3
	for i := 0; i < 3; i++ {
		outside[i] = max(box.Min[i]-point[i], 0, point[i]-box.Max[i])
	}
	return outside.Len()
}

// ============================================================================
// Connections
// ============================================================================

// AddSpring builds a spring like constraint.MakeSpring and adds it to the general list.
func (w *World) AddSpring(a, b *actor.Node, positionA, positionB mgl64.Vec3, worldRelative bool, stiffness, minRestLength, maxRestLength float64) *constraint.Spring {
	s := constraint.MakeSpring(a, b, positionA, positionB, worldRelative, stiffness, minRestLength, maxRestLength)
	w.Springs = append(w.Springs, s)
	return s
}

func (w *World) AddConnection(c constraint.Connection) {
	w.Springs = append(w.Springs, c)
}

func (w *World) RemoveSpring(c constraint.Connection) error {
	i := slices.Index(w.Springs, c)
	if i < 0 {
		return ErrUnknownSpring
	}
	w.Springs = slices.Delete(w.Springs, i, i+1)
	return nil
}

func (w *World) ClearSprings() {
	w.Springs = nil
}

// AddHandSpring attaches c to hand 0 or 1.
func (w *World) AddHandSpring(hand int, c constraint.Connection) error {
	if hand < 0 || hand >= len(w.HandSprings) {
		return fmt.Errorf("%w: %d", ErrInvalidHand, hand)
	}
	w.HandSprings[hand] = append(w.HandSprings[hand], c)
	return nil
}

func (w *World) ClearHandSprings(hand int) error {
	if hand < 0 || hand >= len(w.HandSprings) {
		return fmt.Errorf("%w: %d", ErrInvalidHand, hand)
	}
	w.HandSprings[hand] = nil
	return nil
}

type endLocator interface {
	EndWorldPosition(end constraint.End) mgl64.Vec3
}

// ClosestConnection returns the connection, hands included, whose segment
// passes nearest to point, with that distance and whether point lies on the
// EndA half of the segment. It returns nil for a world without connections.
func (w *World) ClosestConnection(point mgl64.Vec3) (constraint.Connection, float64, bool) {
	var closest constraint.Connection
	best, closerToA := math.MaxFloat64, false
	for _, c := range w.connections() {
		l, ok := c.(endLocator)
		if !ok {
			continue
		}
		a, b := l.EndWorldPosition(constraint.EndA), l.EndWorldPosition(constraint.EndB)
		d, t := distanceToSegment(point, a, b)
		if d < best {
			closest, best, closerToA = c, d, t < 0.5
		}
	}
	return closest, best, closerToA
}

// distanceToSegment returns the distance from point to segment ab and the
// projection parameter of point along it, unclamped.
func distanceToSegment(point, a, b mgl64.Vec3) (float64, float64) {
	ab := b.Sub(a)
	lengthSq := ab.LenSqr()
	if lengthSq == 0 {
		return point.Sub(a).Len(), 0
	}
	t := point.Sub(a).Dot(ab) / lengthSq
	switch {
	case t < 0:
		return point.Sub(a).Len(), t
	case t > 1:
		return point.Sub(b).Len(), t
	}
	return point.Sub(a.Add(ab.Mul(t))).Len(), t
}

// ============================================================================
// Step
// ============================================================================

// Step advances the world by dt with the current strategy. It fails with
// ErrInvalidMode, leaving the world untouched, when Settings.Mode holds no
// known mode.
func (w *World) Step(dt float64) (StepReport, error) {
	mode := w.Mode()
	if !mode.Valid() {
		return StepReport{}, fmt.Errorf("step: %w: %d", ErrInvalidMode, int(mode))
	}
	for _, n := range w.Bodies {
		n.ClearForces()
		// The hand already snapshotted what it grabbed in pose mode.
		if mode != ModePoseFirst || !n.Grabbed {
			n.SetLastLocation()
		}
	}

	report := w.Strategy().PerformStep(StepInput{
		HandA:          w.HandSprings[0],
		HandB:          w.HandSprings[1],
		General:        w.Springs,
		ApplyGeneral:   w.Settings.PhysicsSprings,
		Bodies:         w.Bodies,
		Dt:             dt,
		CollisionCheck: w.Settings.CollisionCheck,
		Grid:           w.grid,
	})

	w.Stats.Steps++
	w.Stats.SourcesApplied += report.SourcesApplied
	w.Stats.SourcesRolledBack += report.SourcesRolledBack
	w.Stats.BackoffIterations += report.BackoffIterations
	if report.BackoffCapReached {
		w.Stats.BackoffCapHits++
		w.Logger.Printf("binary backoff stopped after %d iterations, bodies may still overlap", w.Settings.BackoffIterations)
	}

	w.updateConnectors()
	return report, nil
}

type endUpdater interface {
	UpdateEnds()
	Ends() (a, b mgl64.Vec3)
}

func (w *World) connections() []constraint.Connection {
	return slices.Concat(w.HandSprings[0], w.HandSprings[1], w.Springs)
}

func (w *World) updateConnectors() {
	for _, c := range w.connections() {
		if u, ok := c.(endUpdater); ok {
			u.UpdateEnds()
		}
	}
}

// Lines returns the attachment points of every drawable connection as of the last step.
func (w *World) Lines() []Line {
	var lines []Line
	for _, c := range w.connections() {
		if u, ok := c.(endUpdater); ok {
			a, b := u.Ends()
			lines = append(lines, Line{A: a, B: b})
		}
	}
	return lines
}
