package actor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrNotGroup    = errors.New("node is not a group")
	ErrCycle       = errors.New("node would become its own ancestor")
	ErrAttached    = errors.New("node is still attached")
	ErrNotChild    = errors.New("node is not a child of the group")
	ErrForeignNode = errors.New("node belongs to another scene")
)

// Scene owns every node and resolves the id links between them.
type Scene struct {
	// Tester is the narrow phase used by leaf-against-leaf Collide calls.
	Tester Tester

	nodes  map[NodeID]*Node
	nextID NodeID
}

func NewScene(tester Tester) *Scene {
	return &Scene{
		Tester: tester,
		nodes:  make(map[NodeID]*Node),
	}
}

// Node looks a node up by id, nil if it is unknown.
func (s *Scene) Node(id NodeID) *Node {
	return s.nodes[id]
}

func (s *Scene) Len() int {
	return len(s.nodes)
}

// Nodes returns every node in id order.
func (s *Scene) Nodes() []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *Scene) allocate(kind Kind) *Node {
	id := s.nextID
	s.nextID++
	n := newNode(s, id, kind)
	s.nodes[id] = n
	return n
}

// NewLeaf creates a body from a model conformation. A nil model gives a
// body without geometry that uses default mass properties.
func (s *Scene) NewLeaf(model *Model, conformation int) (*Node, error) {
	var mesh *Mesh
	if model != nil {
		m, err := model.Mesh(conformation)
		if err != nil {
			return nil, err
		}
		mesh = m
	}

	n := s.allocate(KindLeaf)
	n.model = model
	n.mesh = mesh
	n.conformation = conformation
	return n, nil
}

func (s *Scene) NewGroup() *Node {
	return s.allocate(KindGroup)
}

// Remove deletes a detached node from the scene. Connectors that still
// reference it must be cleared by the caller beforehand.
func (s *Scene) Remove(n *Node) error {
	if n.scene != s {
		return ErrForeignNode
	}
	if n.parent != NoNode || len(n.children) > 0 {
		return fmt.Errorf("remove node %d: %w", n.id, ErrAttached)
	}
	delete(s.nodes, n.id)
	return nil
}

// AddChild moves child under group. The group is re-centred on the mean of
// its children's world positions and no child moves in world space. A group
// with a single child also takes that child's orientation.
func (s *Scene) AddChild(group, child *Node) error {
	if group.scene != s || child.scene != s {
		return ErrForeignNode
	}
	if group.kind != KindGroup {
		return fmt.Errorf("add child %d to %d: %w", child.id, group.id, ErrNotGroup)
	}
	if child.IsAncestorOf(group) {
		return fmt.Errorf("add child %d to %d: %w", child.id, group.id, ErrCycle)
	}
	if child.parent != NoNode {
		return fmt.Errorf("add child %d to %d: %w", child.id, group.id, ErrAttached)
	}

	childPos, childOrient := child.Position(), child.Orientation()
	group.children = append(group.children, child.id)
	child.parent = group.id
	child.SetWorldPose(childPos, childOrient)

	s.recenter(group)
	group.events.emit(SubobjectAddedEvent{Group: group, Child: child})
	return nil
}

// RemoveChild detaches child from group, leaving the child where it is in world space.
func (s *Scene) RemoveChild(group, child *Node) error {
	if child.parent != group.id || group.scene != s {
		return fmt.Errorf("remove child %d from %d: %w", child.id, group.id, ErrNotChild)
	}

	childPos, childOrient := child.Position(), child.Orientation()
	for i, id := range group.children {
		if id == child.id {
			group.children = append(group.children[:i], group.children[i+1:]...)
			break
		}
	}
	child.parent = NoNode
	child.SetPosAndOrient(childPos, childOrient)

	s.recenter(group)
	group.events.emit(SubobjectRemovedEvent{Group: group, Child: child})
	return nil
}

func (s *Scene) recenter(group *Node) {
	children := group.Children()
	if len(children) == 0 {
		return
	}

	type pose struct {
		position    mgl64.Vec3
		orientation mgl64.Quat
	}
	saved := make([]pose, len(children))
	center := mgl64.Vec3{}
	for i, child := range children {
		saved[i] = pose{child.Position(), child.Orientation()}
		center = center.Add(saved[i].position)
	}
	center = center.Mul(1 / float64(len(children)))

	orientation := group.Orientation()
	if len(children) == 1 {
		orientation = saved[0].orientation
	}
	group.SetWorldPose(center, orientation)

	for i, child := range children {
		if len(children) == 1 {
			child.SetPosAndOrient(mgl64.Vec3{}, mgl64.QuatIdent())
			continue
		}
		child.SetWorldPose(saved[i].position, saved[i].orientation)
	}
}
