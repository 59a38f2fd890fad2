package tether

import (
	"fmt"

	"github.com/akmonengine/tether/actor"
)

// MaxReplicas bounds the length of a replicated chain.
const MaxReplicas = 100

// Replicator repeats the rigid step between two bodies into a chain of
// copies. The two originals are grouped; every replica is a child of that
// group placed one step further than the previous link. Replicas follow the
// originals and hand every force they receive to the group.
type Replicator struct {
	world         *World
	first, second *actor.Node
	group         *actor.Node
	replicas      []*actor.Node

	subscriptions map[*actor.Node]actor.Subscription
	updating      bool
}

// NewReplicator groups two top-level bodies of w and returns a replicator
// showing no copies yet.
func NewReplicator(w *World, first, second *actor.Node) (*Replicator, error) {
	if first == second {
		return nil, fmt.Errorf("replicate %d onto itself: %w", first.ID(), actor.ErrCycle)
	}
	group, err := w.GroupObjects(first, second)
	if err != nil {
		return nil, err
	}

	r := &Replicator{
		world:         w,
		first:         first,
		second:        second,
		group:         group,
		subscriptions: make(map[*actor.Node]actor.Subscription),
	}
	for _, n := range []*actor.Node{first, second, group} {
		r.subscriptions[n] = n.Subscribe(actor.OBJECT_MOVED, func(actor.Event) { r.Update() })
	}
	return r, nil
}

func (r *Replicator) Group() *actor.Node { return r.group }

func (r *Replicator) NumShown() int { return len(r.replicas) }

// Replicas returns the copies, nearest to the originals first.
func (r *Replicator) Replicas() []*actor.Node {
	return r.replicas
}

// step is the transform carrying the first original onto the second.
func (r *Replicator) step() actor.Transform {
	return r.first.WorldTransform().Inverse().Compose(r.second.WorldTransform())
}

// SetNumShown grows or shrinks the chain to n copies, clamped to [0, MaxReplicas].
// Copies alternate between the models of the first and the second original.
func (r *Replicator) SetNumShown(n int) error {
	n = max(0, min(n, MaxReplicas))

	r.updating = true
	defer func() { r.updating = false }()

	for len(r.replicas) > n {
		last := r.replicas[len(r.replicas)-1]
		if err := r.world.Scene.RemoveChild(r.group, last); err != nil {
			return err
		}
		if err := r.world.Scene.Remove(last); err != nil {
			return err
		}
		r.replicas = r.replicas[:len(r.replicas)-1]
	}

	step := r.step()
	for len(r.replicas) < n {
		source := r.first
		if len(r.replicas)%2 == 1 {
			source = r.second
		}
		previous := r.second
		if len(r.replicas) > 0 {
			previous = r.replicas[len(r.replicas)-1]
		}

		replica, err := r.world.Scene.NewLeaf(source.Model(), source.Conformation())
		if err != nil {
			return err
		}
		replica.SetTransformMode(actor.TransformExternal)
		replica.PropagateForceToParent = true
		replica.SetWorldTransform(previous.WorldTransform().Compose(step))
		if err := r.world.Scene.AddChild(r.group, replica); err != nil {
			return err
		}
		r.replicas = append(r.replicas, replica)
	}
	return nil
}

// Update places every copy again from the current pose of the originals.
func (r *Replicator) Update() {
	if r.updating {
		return
	}
	r.updating = true
	defer func() { r.updating = false }()

	step := r.step()
	previous := r.second.WorldTransform()
	for _, replica := range r.replicas {
		next := previous.Compose(step)
		replica.SetWorldTransform(next)
		previous = next
	}
}

// Close removes every copy and stops following the originals. The originals
// stay grouped.
func (r *Replicator) Close() error {
	if err := r.SetNumShown(0); err != nil {
		return err
	}
	for n, sub := range r.subscriptions {
		n.Unsubscribe(sub)
	}
	clear(r.subscriptions)
	return nil
}
