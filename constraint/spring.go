package constraint

import (
	"github.com/akmonengine/tether/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Below this length a spring has no usable direction.
const springEpsilon = 1e-8

// Spring pulls its ends back into the [MinRestLength, MaxRestLength] band.
// Inside the band it applies no force.
type Spring struct {
	Connector

	MinRestLength float64
	MaxRestLength float64
	Stiffness     float64
}

// NewSpring attaches a spring at local offsets of a and b.
func NewSpring(a, b *actor.Node, offsetA, offsetB mgl64.Vec3, stiffness, minRestLength, maxRestLength float64) *Spring {
	s := &Spring{
		Connector: Connector{
			endpoints: [2]*actor.Node{a, b},
			offsets:   [2]mgl64.Vec3{offsetA, offsetB},
			Alpha:     1,
			Radius:    1,
		},
		MinRestLength: minRestLength,
		MaxRestLength: max(minRestLength, maxRestLength),
		Stiffness:     stiffness,
	}
	s.UpdateEnds()
	return s
}

// MakeSpring builds a spring from attachment positions. With worldRelative
// set the positions are world coordinates and are converted into each
// endpoint's local frame, otherwise they already are local offsets.
func MakeSpring(a, b *actor.Node, positionA, positionB mgl64.Vec3, worldRelative bool, stiffness, minRestLength, maxRestLength float64) *Spring {
	if worldRelative {
		if a != nil {
			positionA = a.WorldTransform().InverseTransformPoint(positionA)
		}
		if b != nil {
			positionB = b.WorldTransform().InverseTransformPoint(positionB)
		}
	}
	return NewSpring(a, b, positionA, positionB, stiffness, minRestLength, maxRestLength)
}

// Length is the current distance between the two attachment points.
func (s *Spring) Length() float64 {
	return s.EndWorldPosition(EndB).Sub(s.EndWorldPosition(EndA)).Len()
}

// Displacement is how far the current length lies outside the rest band:
// positive when compressed, negative when stretched, zero inside.
func (s *Spring) Displacement() float64 {
	return s.displacement(s.Length())
}

func (s *Spring) displacement(length float64) float64 {
	switch {
	case length < s.MinRestLength:
		return s.MinRestLength - length
	case length > s.MaxRestLength:
		return s.MaxRestLength - length
	}
	return 0
}

// AddForce applies equal and opposite forces at both attachment points.
func (s *Spring) AddForce() bool {
	a, b := s.endpoints[EndA], s.endpoints[EndB]
	if a == b {
		return false
	}

	posA, posB := s.EndWorldPosition(EndA), s.EndWorldPosition(EndB)
	diff := posB.Sub(posA)
	length := diff.Len()
	if length < springEpsilon {
		return false
	}

	displacement := s.displacement(length)
	if displacement == 0 {
		return false
	}

	force := diff.Mul(displacement * s.Stiffness / length)
	if force.LenSqr() == 0 {
		return false
	}
	if b != nil {
		b.AddForce(posB, force)
	}
	if a != nil {
		a.AddForce(posA, force.Mul(-1))
	}
	return true
}
