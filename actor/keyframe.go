package actor

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Keyframe is a pose captured at a point of the animation timeline.
type Keyframe struct {
	Time                float64
	Position            mgl64.Vec3
	Orientation         mgl64.Quat
	AbsolutePosition    mgl64.Vec3
	AbsoluteOrientation mgl64.Quat
	Level               int
	Parent              NodeID
}

// CaptureKeyframe records the current pose at time t on n and all of its
// descendants, replacing any keyframe already at t. Negative times are ignored.
func (n *Node) CaptureKeyframe(t float64) {
	if t < 0 {
		return
	}

	kf := Keyframe{
		Time:                t,
		Position:            n.position,
		Orientation:         n.orientation,
		AbsolutePosition:    n.Position(),
		AbsoluteOrientation: n.Orientation(),
		Level:               n.GroupingLevel(),
		Parent:              n.parent,
	}

	i := sort.Search(len(n.keyframes), func(i int) bool { return n.keyframes[i].Time >= t })
	if i < len(n.keyframes) && n.keyframes[i].Time == t {
		n.keyframes[i] = kf
	} else {
		n.keyframes = append(n.keyframes, Keyframe{})
		copy(n.keyframes[i+1:], n.keyframes[i:])
		n.keyframes[i] = kf
	}

	for _, child := range n.Children() {
		child.CaptureKeyframe(t)
	}
	n.events.emit(KeyframedEvent{Node: n, Time: t})
}

// Keyframes returns the captured keyframes sorted by time.
func (n *Node) Keyframes() []Keyframe {
	return append([]Keyframe(nil), n.keyframes...)
}

func (n *Node) HasKeyframes() bool {
	return len(n.keyframes) > 0
}

// KeyframeAt returns the keyframe captured exactly at t.
func (n *Node) KeyframeAt(t float64) (Keyframe, bool) {
	i := sort.Search(len(n.keyframes), func(i int) bool { return n.keyframes[i].Time >= t })
	if i < len(n.keyframes) && n.keyframes[i].Time == t {
		return n.keyframes[i], true
	}
	return Keyframe{}, false
}

// HasChangedSinceKeyframe reports whether the pose or the parent differ from
// the last keyframe at or before t. A node without such a keyframe has changed.
func (n *Node) HasChangedSinceKeyframe(t float64) bool {
	i := sort.Search(len(n.keyframes), func(i int) bool { return n.keyframes[i].Time > t })
	if i == 0 {
		return true
	}
	kf := n.keyframes[i-1]
	if kf.Parent != n.parent {
		return true
	}
	const eps = 1e-9
	return !n.position.ApproxEqualThreshold(kf.Position, eps) ||
		!n.orientation.ApproxEqualThreshold(kf.Orientation, eps)
}

func (n *Node) RemoveKeyframe(t float64) {
	i := sort.Search(len(n.keyframes), func(i int) bool { return n.keyframes[i].Time >= t })
	if i < len(n.keyframes) && n.keyframes[i].Time == t {
		n.keyframes = append(n.keyframes[:i], n.keyframes[i+1:]...)
	}
}

func (n *Node) ClearKeyframes() {
	n.keyframes = nil
}
