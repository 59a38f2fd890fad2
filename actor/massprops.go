package actor

import "math"

// Models store a single moment of inertia, so the helpers below reduce the
// inertia tensor of a solid to the mean of its diagonal.

// SphereMassProperties returns the inverse mass and inverse moment of a solid
// sphere. A non-positive density gives an immovable body.
func SphereMassProperties(radius, density float64) (inverseMass, inverseMoment float64) {
	// Volume of sphere = (4/3) * π * r³
	volume := (4.0 / 3.0) * math.Pi * radius * radius * radius
	mass := density * volume

	// I = (2/5) * m * r², the same on every axis
	return inverse(mass), inverse((2.0 / 5.0) * mass * radius * radius)
}

// BoxMassProperties returns the inverse mass and inverse mean moment of a
// solid box given by its half extents.
func BoxMassProperties(halfExtents [3]float64, density float64) (inverseMass, inverseMoment float64) {
	x, y, z := 2*halfExtents[0], 2*halfExtents[1], 2*halfExtents[2]
	mass := density * x * y * z

	// I = (m/12) * (d1² + d2²) per axis
	factor := mass / 12.0
	ix := factor * (y*y + z*z)
	iy := factor * (x*x + z*z)
	iz := factor * (x*x + y*y)

	return inverse(mass), inverse((ix + iy + iz) / 3)
}

func inverse(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return 1 / v
}
