package gjk

import "github.com/go-gl/mathgl/mgl64"

// Triangle is a flat convex shape given by its three corners.
type Triangle [3]mgl64.Vec3

func (t Triangle) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := t[0]
	bestDot := best.Dot(direction)
	for _, p := range t[1:] {
		if d := p.Dot(direction); d > bestDot {
			best, bestDot = p, d
		}
	}
	return best
}

func (t Triangle) Center() mgl64.Vec3 {
	return t[0].Add(t[1]).Add(t[2]).Mul(1.0 / 3.0)
}

// Points is the convex hull of a point cloud.
type Points []mgl64.Vec3

func (p Points) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := p[0]
	bestDot := best.Dot(direction)
	for _, q := range p[1:] {
		if d := q.Dot(direction); d > bestDot {
			best, bestDot = q, d
		}
	}
	return best
}

func (p Points) Center() mgl64.Vec3 {
	sum := mgl64.Vec3{}
	for _, q := range p {
		sum = sum.Add(q)
	}
	return sum.Mul(1 / float64(len(p)))
}
