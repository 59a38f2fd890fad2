package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform is a rigid placement: a rotation followed by a translation.
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// NewTransformFrom builds a transform from a position and an orientation.
// The orientation is normalized.
func NewTransformFrom(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	rotation = rotation.Normalize()
	return Transform{
		Position:        position,
		Rotation:        rotation,
		InverseRotation: rotation.Conjugate(),
	}
}

// TransformPoint maps a point from local space to the space the transform lives in.
func (t Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(p).Add(t.Position)
}

// InverseTransformPoint maps a point back into local space.
func (t Transform) InverseTransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotation.Rotate(p.Sub(t.Position))
}

func (t Transform) TransformVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(v)
}

func (t Transform) InverseTransformVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotation.Rotate(v)
}

// Compose returns t ∘ child: the child transform expressed in t's parent space.
func (t Transform) Compose(child Transform) Transform {
	return NewTransformFrom(t.TransformPoint(child.Position), t.Rotation.Mul(child.Rotation))
}

func (t Transform) Inverse() Transform {
	return NewTransformFrom(t.InverseRotation.Rotate(t.Position.Mul(-1)), t.InverseRotation)
}

// RelativeTo expresses t in the local frame of parent, so that parent.Compose(result) == t.
func (t Transform) RelativeTo(parent Transform) Transform {
	return parent.Inverse().Compose(t)
}
