package actor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is a rigid triangle surface in model space.
// Triangles are wound counter-clockwise when seen from outside the surface.
type Mesh struct {
	Vertices  []mgl64.Vec3
	Triangles [][3]int

	bounds AABB
}

// NewMesh validates triangle indices and caches the model-space bounds.
func NewMesh(vertices []mgl64.Vec3, triangles [][3]int) (*Mesh, error) {
	for i, tri := range triangles {
		for _, v := range tri {
			if v < 0 || v >= len(vertices) {
				return nil, fmt.Errorf("triangle %d references vertex %d, mesh has %d vertices", i, v, len(vertices))
			}
		}
	}

	m := &Mesh{Vertices: vertices, Triangles: triangles}
	m.bounds = EmptyAABB()
	for _, v := range vertices {
		m.bounds = m.bounds.Extend(v)
	}
	return m, nil
}

func (m *Mesh) NumTriangles() int {
	return len(m.Triangles)
}

func (m *Mesh) Bounds() AABB {
	return m.bounds
}

// Triangle returns the three corners of triangle i.
func (m *Mesh) Triangle(i int) (p1, p2, p3 mgl64.Vec3) {
	tri := m.Triangles[i]
	return m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
}

// Normal returns the outward unit normal of triangle i, (p2-p1)×(p3-p1) normalized.
// A degenerate triangle yields the zero vector.
func (m *Mesh) Normal(i int) mgl64.Vec3 {
	p1, p2, p3 := m.Triangle(i)
	n := p2.Sub(p1).Cross(p3.Sub(p1))
	if n.LenSqr() < 1e-24 {
		return mgl64.Vec3{}
	}
	return n.Normalize()
}

func (m *Mesh) Centroid(i int) mgl64.Vec3 {
	p1, p2, p3 := m.Triangle(i)
	return p1.Add(p2).Add(p3).Mul(1.0 / 3.0)
}

// NewSphereMesh tessellates a UV sphere centred on the origin.
func NewSphereMesh(radius float64, stacks, slices int) *Mesh {
	stacks = max(stacks, 2)
	slices = max(slices, 3)

	vertices := make([]mgl64.Vec3, 0, (stacks-1)*slices+2)
	vertices = append(vertices, mgl64.Vec3{0, 0, radius})
	for i := 1; i < stacks; i++ {
		phi := math.Pi * float64(i) / float64(stacks)
		z := radius * math.Cos(phi)
		r := radius * math.Sin(phi)
		for j := 0; j < slices; j++ {
			theta := 2 * math.Pi * float64(j) / float64(slices)
			vertices = append(vertices, mgl64.Vec3{r * math.Cos(theta), r * math.Sin(theta), z})
		}
	}
	vertices = append(vertices, mgl64.Vec3{0, 0, -radius})

	top, bottom := 0, len(vertices)-1
	ring := func(i, j int) int {
		return 1 + (i-1)*slices + j%slices
	}

	triangles := make([][3]int, 0, 2*slices*(stacks-1))
	for j := 0; j < slices; j++ {
		triangles = append(triangles, [3]int{top, ring(1, j), ring(1, j+1)})
	}
	for i := 1; i < stacks-1; i++ {
		for j := 0; j < slices; j++ {
			a, b := ring(i, j), ring(i, j+1)
			c, d := ring(i+1, j), ring(i+1, j+1)
			triangles = append(triangles, [3]int{a, c, d}, [3]int{a, d, b})
		}
	}
	for j := 0; j < slices; j++ {
		triangles = append(triangles, [3]int{bottom, ring(stacks-1, j+1), ring(stacks-1, j)})
	}

	orientOutward(vertices, triangles)
	mesh, _ := NewMesh(vertices, triangles)
	return mesh
}

// NewBoxMesh builds the 12 triangles of a box with the given half extents.
func NewBoxMesh(halfExtents mgl64.Vec3) *Mesh {
	hx, hy, hz := halfExtents.X(), halfExtents.Y(), halfExtents.Z()
	vertices := []mgl64.Vec3{
		{-hx, -hy, -hz},
		{+hx, -hy, -hz},
		{-hx, +hy, -hz},
		{+hx, +hy, -hz},
		{-hx, -hy, +hz},
		{+hx, -hy, +hz},
		{-hx, +hy, +hz},
		{+hx, +hy, +hz},
	}

	faces := [6][4]int{
		{1, 5, 7, 3}, // +X
		{4, 0, 2, 6}, // -X
		{2, 3, 7, 6}, // +Y
		{4, 5, 1, 0}, // -Y
		{4, 6, 7, 5}, // +Z
		{1, 3, 2, 0}, // -Z
	}

	triangles := make([][3]int, 0, 12)
	for _, f := range faces {
		triangles = append(triangles, [3]int{f[0], f[1], f[2]}, [3]int{f[0], f[2], f[3]})
	}

	orientOutward(vertices, triangles)
	mesh, _ := NewMesh(vertices, triangles)
	return mesh
}

// orientOutward flips any triangle of an origin-centred convex surface whose
// normal points towards the origin.
func orientOutward(vertices []mgl64.Vec3, triangles [][3]int) {
	for i, tri := range triangles {
		p1, p2, p3 := vertices[tri[0]], vertices[tri[1]], vertices[tri[2]]
		n := p2.Sub(p1).Cross(p3.Sub(p1))
		centroid := p1.Add(p2).Add(p3)
		if n.Dot(centroid) < 0 {
			triangles[i][1], triangles[i][2] = tri[2], tri[1]
		}
	}
}
