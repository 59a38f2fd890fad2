package actor

// ContactPair names one overlapping triangle of each mesh, by index.
type ContactPair struct {
	TriangleA int
	TriangleB int
}

// ContactMode selects between a full contact list and an early exit on the first pair found.
type ContactMode uint8

const (
	AllContacts ContactMode = iota
	FirstContact
)

func (m ContactMode) String() string {
	if m == FirstContact {
		return "first-contact"
	}
	return "all-contacts"
}

// Tester is the narrow phase. Given two meshes placed in the world it returns
// the overlapping triangle pairs, or nil when they do not touch. In
// FirstContact mode at most one pair is returned.
type Tester interface {
	Collide(meshA *Mesh, transformA Transform, meshB *Mesh, transformB Transform, mode ContactMode) []ContactPair
}

// Responder turns a contact list between two leaves into forces.
type Responder interface {
	RespondToCollision(a, b *Node, contacts []ContactPair, mode ContactMode)
}
