package constraint

import (
	"github.com/akmonengine/tether/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// End selects one side of a connector.
type End uint8

const (
	EndA End = iota
	EndB
)

// Connection is anything the step pipeline can ask for forces.
type Connection interface {
	// AddForce pushes the attached nodes and reports whether a non-zero force was applied.
	AddForce() bool
	// Endpoint returns the node attached at end, nil for a fixed world point.
	Endpoint(end End) *actor.Node
}

// Connector links two attachment points. Each point sits in the local frame
// of its endpoint node, or in world space when that endpoint is nil.
type Connector struct {
	endpoints [2]*actor.Node
	offsets   [2]mgl64.Vec3
	ends      [2]mgl64.Vec3

	// Display hints, unused by the simulation.
	Alpha  float64
	Radius float64
}

// NewConnector attaches a and b at the given local offsets.
func NewConnector(a, b *actor.Node, offsetA, offsetB mgl64.Vec3) *Connector {
	c := &Connector{
		endpoints: [2]*actor.Node{a, b},
		offsets:   [2]mgl64.Vec3{offsetA, offsetB},
		Alpha:     1,
		Radius:    1,
	}
	c.UpdateEnds()
	return c
}

func (c *Connector) Endpoint(end End) *actor.Node {
	return c.endpoints[end]
}

func (c *Connector) Offset(end End) mgl64.Vec3 {
	return c.offsets[end]
}

// EndWorldPosition returns the world position of an attachment point.
func (c *Connector) EndWorldPosition(end End) mgl64.Vec3 {
	if node := c.endpoints[end]; node != nil {
		return node.WorldTransform().TransformPoint(c.offsets[end])
	}
	return c.offsets[end]
}

// SetEndWorldPosition moves an attachment point to a world position.
func (c *Connector) SetEndWorldPosition(end End, position mgl64.Vec3) {
	if node := c.endpoints[end]; node != nil {
		c.offsets[end] = node.WorldTransform().InverseTransformPoint(position)
		return
	}
	c.offsets[end] = position
}

// SetEndpoint reattaches one side to node, nil meaning world space. The
// attachment point keeps its world position.
func (c *Connector) SetEndpoint(end End, node *actor.Node) {
	world := c.EndWorldPosition(end)
	c.endpoints[end] = node
	c.SetEndWorldPosition(end, world)
}

// Detach replaces every endpoint equal to node by the fixed world point it was at.
func (c *Connector) Detach(node *actor.Node) {
	for _, end := range []End{EndA, EndB} {
		if c.endpoints[end] == node {
			c.SetEndpoint(end, nil)
		}
	}
}

// References reports whether node is attached at either end.
func (c *Connector) References(node *actor.Node) bool {
	return c.endpoints[EndA] == node || c.endpoints[EndB] == node
}

// AddForce of a bare connector does nothing.
func (c *Connector) AddForce() bool {
	return false
}

// UpdateEnds caches the world attachment points, e.g. for drawing lines.
func (c *Connector) UpdateEnds() {
	c.ends[EndA] = c.EndWorldPosition(EndA)
	c.ends[EndB] = c.EndWorldPosition(EndB)
}

// Ends returns the points cached by the last UpdateEnds.
func (c *Connector) Ends() (a, b mgl64.Vec3) {
	return c.ends[EndA], c.ends[EndB]
}
