package actor

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// OBJECT_HAS_NO_GROUP is returned as the primary collision group of a node with no groups.
const OBJECT_HAS_NO_GROUP = -1

// NodeID addresses a node inside its Scene.
type NodeID int

// NoNode is the parent of a top level node.
const NoNode NodeID = -1

// Kind tells leaves (one body with a mesh) from groups (composites of other nodes).
type Kind uint8

const (
	KindLeaf Kind = iota
	KindGroup
)

// TransformMode tells who owns a node's world transform.
type TransformMode uint8

const (
	// TransformAuthoritative nodes derive the world transform from their
	// parent-relative position and orientation.
	TransformAuthoritative TransformMode = iota
	// TransformExternal nodes have the world transform written by an outside
	// driver; position and orientation are read back from it.
	TransformExternal
)

// Node is one entry of the scene graph.
type Node struct {
	id    NodeID
	scene *Scene
	kind  Kind
	mode  TransformMode

	// Parent-relative when the node has a parent, world otherwise.
	position    mgl64.Vec3
	orientation mgl64.Quat
	world       Transform

	lastPosition    mgl64.Vec3
	lastOrientation mgl64.Quat

	force  mgl64.Vec3
	torque mgl64.Vec3

	parent   NodeID
	children []NodeID

	collisionGroups []int

	// PropagateForceToParent hands every force applied to this node over to its parent.
	PropagateForceToParent bool
	// Grabbed is set while a manipulator holds the node.
	Grabbed bool

	model        *Model
	mesh         *Mesh
	conformation int

	events    events
	keyframes []Keyframe
}

func newNode(scene *Scene, id NodeID, kind Kind) *Node {
	return &Node{
		id:              id,
		scene:           scene,
		kind:            kind,
		orientation:     mgl64.QuatIdent(),
		world:           NewTransform(),
		lastOrientation: mgl64.QuatIdent(),
		parent:          NoNode,
	}
}

func (n *Node) ID() NodeID                   { return n.id }
func (n *Node) Kind() Kind                   { return n.kind }
func (n *Node) IsLeaf() bool                 { return n.kind == KindLeaf }
func (n *Node) IsGroup() bool                { return n.kind == KindGroup }
func (n *Node) Scene() *Scene                { return n.scene }
func (n *Node) Model() *Model                { return n.model }
func (n *Node) Mesh() *Mesh                  { return n.mesh }
func (n *Node) Conformation() int            { return n.conformation }
func (n *Node) TransformMode() TransformMode { return n.mode }
func (n *Node) WorldTransform() Transform    { return n.world }

// SetConformation switches a leaf to another mesh of its model.
func (n *Node) SetConformation(conformation int) error {
	if n.model == nil {
		return nil
	}
	mesh, err := n.model.Mesh(conformation)
	if err != nil {
		return err
	}
	n.mesh = mesh
	n.conformation = conformation
	return nil
}

// MassProperties returns the model's inverse mass and inverse moment of inertia.
// ok is false for nodes without a model, which then use configured defaults.
func (n *Node) MassProperties() (inverseMass, inverseMoment float64, ok bool) {
	if n.model == nil {
		return 0, 0, false
	}
	return n.model.InverseMass, n.model.InverseMoment, true
}

// ============================================================================
// Pose
// ============================================================================

func (n *Node) readsBack() bool {
	return n.parent != NoNode || n.mode == TransformExternal
}

// Position returns the world position.
func (n *Node) Position() mgl64.Vec3 {
	if n.readsBack() {
		return n.world.Position
	}
	return n.position
}

// Orientation returns the world orientation.
func (n *Node) Orientation() mgl64.Quat {
	if n.readsBack() {
		return n.world.Rotation
	}
	return n.orientation
}

// LocalPosition returns the stored position, relative to the parent if there is one.
func (n *Node) LocalPosition() mgl64.Vec3 { return n.position }

func (n *Node) LocalOrientation() mgl64.Quat { return n.orientation }

func (n *Node) SetPosition(position mgl64.Vec3) {
	n.position = position
	n.recompute()
	n.events.emit(MovedEvent{Node: n})
}

func (n *Node) SetOrientation(orientation mgl64.Quat) {
	n.orientation = orientation
	n.recompute()
	n.events.emit(MovedEvent{Node: n})
}

// SetPosAndOrient sets the authoritative pose, relative to the parent if there is one.
func (n *Node) SetPosAndOrient(position mgl64.Vec3, orientation mgl64.Quat) {
	n.position = position
	n.orientation = orientation
	n.recompute()
	n.events.emit(MovedEvent{Node: n})
}

// SetWorldPose places the node in world space. A node with a parent stores
// the equivalent parent-relative pose.
func (n *Node) SetWorldPose(position mgl64.Vec3, orientation mgl64.Quat) {
	if n.mode == TransformExternal {
		n.SetWorldTransform(NewTransformFrom(position, orientation))
		return
	}
	parent := n.Parent()
	if parent == nil {
		n.SetPosAndOrient(position, orientation)
		return
	}
	rel := NewTransformFrom(position, orientation).RelativeTo(parent.world)
	n.SetPosAndOrient(rel.Position, rel.Rotation)
}

// SetWorldTransform is used by the driver of a TransformExternal node.
// Authoritative nodes treat it as SetWorldPose.
func (n *Node) SetWorldTransform(t Transform) {
	if n.mode != TransformExternal {
		n.SetWorldPose(t.Position, t.Rotation)
		return
	}
	n.world = NewTransformFrom(t.Position, t.Rotation)
	n.recomputeChildren()
	n.events.emit(MovedEvent{Node: n})
}

// SetTransformMode switches ownership of the world transform. Going back to
// TransformAuthoritative recomputes it from position and orientation.
func (n *Node) SetTransformMode(mode TransformMode) {
	n.mode = mode
	if mode == TransformAuthoritative {
		n.recompute()
	}
}

func (n *Node) recompute() {
	if n.mode == TransformAuthoritative {
		local := NewTransformFrom(n.position, n.orientation)
		if parent := n.Parent(); parent != nil {
			n.world = parent.world.Compose(local)
		} else {
			n.world = local
		}
	}
	n.recomputeChildren()
}

func (n *Node) recomputeChildren() {
	for _, child := range n.Children() {
		child.recompute()
	}
}

// ============================================================================
// Hierarchy
// ============================================================================

func (n *Node) Parent() *Node {
	if n.parent == NoNode {
		return nil
	}
	return n.scene.Node(n.parent)
}

func (n *Node) Children() []*Node {
	if len(n.children) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(n.children))
	for _, id := range n.children {
		out = append(out, n.scene.Node(id))
	}
	return out
}

func (n *Node) NumChildren() int {
	return len(n.children)
}

// Lineage returns the node followed by its ancestors, nearest first.
func (n *Node) Lineage() []*Node {
	out := []*Node{n}
	for p := n.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	return out
}

// GroupingLevel is the number of ancestors.
func (n *Node) GroupingLevel() int {
	return len(n.Lineage()) - 1
}

// IsAncestorOf reports whether n is other or one of other's ancestors.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other; p != nil; p = p.Parent() {
		if p == n {
			return true
		}
	}
	return false
}

// NumInstances is 1 for a leaf. For a group it is the negated count of
// contained leaves.
func (n *Node) NumInstances() int {
	if n.kind == KindLeaf {
		return 1
	}
	sum := 0
	for _, child := range n.Children() {
		c := child.NumInstances()
		if c < 0 {
			c = -c
		}
		sum += c
	}
	return -sum
}

// Bounds returns the world-space box around the node's geometry.
func (n *Node) Bounds() AABB {
	if n.kind == KindLeaf {
		if n.mesh == nil {
			return AABB{Min: n.world.Position, Max: n.world.Position}
		}
		return n.mesh.Bounds().Transformed(n.world)
	}
	out := EmptyAABB()
	for _, child := range n.Children() {
		out = out.Union(child.Bounds())
	}
	if out.IsEmpty() {
		return AABB{Min: n.world.Position, Max: n.world.Position}
	}
	return out
}

// ============================================================================
// Forces
// ============================================================================

// AddForce applies a world-space force at a world-space point. The torque is
// computed in the node's local frame.
func (n *Node) AddForce(point, force mgl64.Vec3) {
	if parent := n.Parent(); n.PropagateForceToParent && parent != nil {
		parent.AddForce(point, force)
	} else {
		n.force = n.force.Add(force)
		localPoint := n.world.InverseTransformPoint(point)
		localForce := n.world.InverseTransformVector(force)
		n.torque = n.torque.Add(localPoint.Cross(localForce))
	}
	n.events.emit(PushedEvent{Node: n})
}

func (n *Node) Force() mgl64.Vec3  { return n.force }
func (n *Node) Torque() mgl64.Vec3 { return n.torque }

func (n *Node) SetForceAndTorque(force, torque mgl64.Vec3) {
	n.force = force
	n.torque = torque
	n.events.emit(PushedEvent{Node: n})
}

func (n *Node) ClearForces() {
	n.force = mgl64.Vec3{}
	n.torque = mgl64.Vec3{}
}

// ============================================================================
// Rollback
// ============================================================================

// SetLastLocation snapshots the world pose.
func (n *Node) SetLastLocation() {
	n.lastPosition = n.Position()
	n.lastOrientation = n.Orientation()
}

// RestoreToLastLocation puts the node back at the snapshotted world pose,
// whatever happened to its parent in between.
func (n *Node) RestoreToLastLocation() {
	n.SetWorldPose(n.lastPosition, n.lastOrientation)
}

func (n *Node) LastPosition() mgl64.Vec3    { return n.lastPosition }
func (n *Node) LastOrientation() mgl64.Quat { return n.lastOrientation }

// ============================================================================
// Collision groups
// ============================================================================

func (n *Node) PrimaryCollisionGroupNum() int {
	if len(n.collisionGroups) == 0 {
		return OBJECT_HAS_NO_GROUP
	}
	return n.collisionGroups[0]
}

// SetPrimaryCollisionGroupNum moves num to the front of the group list, inserting it if needed.
func (n *Node) SetPrimaryCollisionGroupNum(num int) {
	if i := slices.Index(n.collisionGroups, num); i >= 0 {
		n.collisionGroups = slices.Delete(n.collisionGroups, i, i+1)
	}
	n.collisionGroups = slices.Insert(n.collisionGroups, 0, num)
}

func (n *Node) AddToCollisionGroup(num int) {
	if num == OBJECT_HAS_NO_GROUP || slices.Contains(n.collisionGroups, num) {
		return
	}
	n.collisionGroups = append(n.collisionGroups, num)
}

func (n *Node) IsInCollisionGroup(num int) bool {
	return slices.Contains(n.collisionGroups, num)
}

func (n *Node) RemoveFromCollisionGroup(num int) {
	n.collisionGroups = slices.DeleteFunc(n.collisionGroups, func(g int) bool { return g == num })
}

func (n *Node) CollisionGroups() []int {
	return slices.Clone(n.collisionGroups)
}

// ============================================================================
// Collision
// ============================================================================

// Collide tests n against other. Two leaves go through the scene's Tester and
// the responder is only invoked when contacts were found. Groups recurse into
// their children and OR the results, stopping at the first hit in
// FirstContact mode.
func (n *Node) Collide(other *Node, responder Responder, mode ContactMode) bool {
	if n.kind == KindGroup {
		hit := false
		for _, child := range n.Children() {
			if child.Collide(other, responder, mode) {
				hit = true
				if mode == FirstContact {
					break
				}
			}
		}
		return hit
	}

	if n.mesh == nil {
		return false
	}
	if other.NumInstances() != 1 {
		return other.Collide(n, responder, mode)
	}
	if other.mesh == nil || n.scene.Tester == nil {
		return false
	}

	contacts := n.scene.Tester.Collide(n.mesh, n.world, other.mesh, other.world, mode)
	if len(contacts) == 0 {
		return false
	}
	if responder != nil {
		responder.RespondToCollision(n, other, contacts, mode)
	}
	return true
}

// ============================================================================
// Observers
// ============================================================================

func (n *Node) Subscribe(eventType EventType, listener EventListener) Subscription {
	return n.events.subscribe(eventType, listener)
}

func (n *Node) Unsubscribe(sub Subscription) {
	n.events.unsubscribe(sub)
}
