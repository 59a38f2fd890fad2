package actor

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownModel   = errors.New("unknown model")
	ErrDuplicateModel = errors.New("model already registered")
	ErrConformation   = errors.New("conformation out of range")
)

// Model carries the mass properties and collision surfaces shared by every
// leaf instantiated from it. A model may have several conformations, each with
// its own mesh.
type Model struct {
	Name          string
	InverseMass   float64
	InverseMoment float64
	Conformations []*Mesh
}

func NewModel(name string, inverseMass, inverseMoment float64, conformations ...*Mesh) *Model {
	return &Model{
		Name:          name,
		InverseMass:   inverseMass,
		InverseMoment: inverseMoment,
		Conformations: conformations,
	}
}

func (m *Model) NumConformations() int {
	return len(m.Conformations)
}

// Mesh returns the collision mesh of a conformation.
func (m *Model) Mesh(conformation int) (*Mesh, error) {
	if conformation < 0 || conformation >= len(m.Conformations) {
		return nil, fmt.Errorf("%s: %w: %d of %d", m.Name, ErrConformation, conformation, len(m.Conformations))
	}
	return m.Conformations[conformation], nil
}

// ModelRegistry resolves models by identifier.
type ModelRegistry struct {
	models map[string]*Model
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{models: make(map[string]*Model)}
}

func (r *ModelRegistry) Register(model *Model) error {
	if _, ok := r.models[model.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, model.Name)
	}
	r.models[model.Name] = model
	return nil
}

func (r *ModelRegistry) Get(name string) (*Model, error) {
	model, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return model, nil
}

// Lookup resolves a model and one of its conformation meshes.
func (r *ModelRegistry) Lookup(name string, conformation int) (*Model, *Mesh, error) {
	model, err := r.Get(name)
	if err != nil {
		return nil, nil, err
	}
	mesh, err := model.Mesh(conformation)
	if err != nil {
		return nil, nil, err
	}
	return model, mesh, nil
}

// Names lists registered identifiers in sorted order.
func (r *ModelRegistry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
