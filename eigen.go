package tether

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const jacobiMaxSweeps = 50

// eigen3 diagonalizes the symmetric matrix m with cyclic Jacobi rotations.
// The eigenvectors are the columns of vectors, in the same order as values.
// ok is false when the off-diagonal did not vanish within jacobiMaxSweeps;
// the partial result is still returned.
func eigen3(m mgl64.Mat3) (vectors mgl64.Mat3, values mgl64.Vec3, ok bool) {
	const n = 3

	var a, v [n][n]float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a[i][j] = m.At(i, j)
		}
		v[i][i] = 1
	}

	var b, d, z [n]float64
	for p := 0; p < n; p++ {
		b[p] = a[p][p]
		d[p] = a[p][p]
	}

	rotate := func(mat *[n][n]float64, i, j, k, l int, s, tau float64) {
		g, h := mat[i][j], mat[k][l]
		mat[i][j] = g - s*(h+g*tau)
		mat[k][l] = h + s*(g-h*tau)
	}

	for sweep := 0; sweep < jacobiMaxSweeps; sweep++ {
		sm := 0.0
		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				sm += math.Abs(a[p][q])
			}
		}
		if sm == 0 {
			return matFromRows(v), mgl64.Vec3{d[0], d[1], d[2]}, true
		}

		// Early sweeps only rotate away the large entries.
		threshold := 0.0
		if sweep < 3 {
			threshold = 0.2 * sm / (n * n)
		}

		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				g := 100 * math.Abs(a[p][q])
				if sweep > 3 && math.Abs(d[p])+g == math.Abs(d[p]) && math.Abs(d[q])+g == math.Abs(d[q]) {
					a[p][q] = 0
					continue
				}
				if math.Abs(a[p][q]) <= threshold {
					continue
				}

				h := d[q] - d[p]
				var t float64
				if math.Abs(h)+g == math.Abs(h) {
					t = a[p][q] / h
				} else {
					theta := 0.5 * h / a[p][q]
					t = 1 / (math.Abs(theta) + math.Sqrt(1+theta*theta))
					if theta < 0 {
						t = -t
					}
				}
				c := 1 / math.Sqrt(1+t*t)
				s := t * c
				tau := s / (1 + c)
				h = t * a[p][q]
				z[p] -= h
				z[q] += h
				d[p] -= h
				d[q] += h
				a[p][q] = 0

				for j := 0; j < p; j++ {
					rotate(&a, j, p, j, q, s, tau)
				}
				for j := p + 1; j < q; j++ {
					rotate(&a, p, j, j, q, s, tau)
				}
				for j := q + 1; j < n; j++ {
					rotate(&a, p, j, q, j, s, tau)
				}
				for j := 0; j < n; j++ {
					rotate(&v, j, p, j, q, s, tau)
				}
			}
		}

		for p := 0; p < n; p++ {
			b[p] += z[p]
			d[p] = b[p]
			z[p] = 0
		}
	}

	return matFromRows(v), mgl64.Vec3{d[0], d[1], d[2]}, false
}

func matFromRows(rows [3][3]float64) mgl64.Mat3 {
	var out mgl64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, rows[i][j])
		}
	}
	return out
}

// smallestAxis returns the index of the smallest value.
func smallestAxis(values mgl64.Vec3) int {
	if values[0] < values[1] {
		if values[2] < values[0] {
			return 2
		}
		return 0
	}
	if values[2] < values[1] {
		return 2
	}
	return 1
}
