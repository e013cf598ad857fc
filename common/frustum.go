package common

import (
	"math"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum represents the six planes of a view frustum.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix.
// Uses the Gribb/Hartmann method for plane extraction, adapted to the WebGPU [0, 1] depth range
// (the near plane is row2 alone rather than row3 + row2).
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	var f Frustum

	// For column-major matrix M, element M[row][col] is at index col*4 + row.
	row := func(r int) [4]float32 {
		return [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	set := func(idx int, v [4]float32) {
		f.Planes[idx].Normal = [3]float32{v[0], v[1], v[2]}
		f.Planes[idx].Distance = v[3]
	}
	add := func(a, b [4]float32) [4]float32 {
		return [4]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
	}
	sub := func(a, b [4]float32) [4]float32 {
		return [4]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
	}

	set(FrustumLeft, add(r3, r0))
	set(FrustumRight, sub(r3, r0))
	set(FrustumBottom, add(r3, r1))
	set(FrustumTop, sub(r3, r1))
	set(FrustumNear, r2)
	set(FrustumFar, sub(r3, r2))

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// ContainsPoint reports whether the point lies inside (or on) every plane of the frustum.
//
// Parameters:
//   - p: the world-space point to test
//
// Returns:
//   - bool: true if the point is inside the frustum
func (f Frustum) ContainsPoint(p [3]float32) bool {
	for _, pl := range f.Planes {
		d := pl.Normal[0]*p[0] + pl.Normal[1]*p[1] + pl.Normal[2]*p[2] + pl.Distance
		if d < -1e-5 {
			return false
		}
	}
	return true
}

// FrustumCorners returns the eight world-space corners of the volume described by a
// view-projection matrix, obtained by transforming the clip-space cube through its inverse.
// The first four corners lie on the near plane, the last four on the far plane, each in
// the order (-x,-y), (+x,-y), (+x,+y), (-x,+y).
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - [8][3]float32: the frustum corners
//   - bool: false if the matrix is singular
func FrustumCorners(viewProj []float32) ([8][3]float32, bool) {
	var corners [8][3]float32
	var inv [16]float32
	if !Invert4(inv[:], viewProj) {
		return corners, false
	}
	ndc := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for i, xy := range ndc {
		corners[i] = TransformPoint(inv[:], [3]float32{xy[0], xy[1], 0})
		corners[i+4] = TransformPoint(inv[:], [3]float32{xy[0], xy[1], 1})
	}
	return corners, true
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := float32(math.Sqrt(float64(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)))

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}

// FrustumLines returns the 12 edges of a frustum given its corners in FrustumCorners order.
func FrustumLines(corners [8][3]float32, color Color) []Line {
	lines := make([]Line, 0, 12)
	for i := range 4 {
		j := (i + 1) % 4
		lines = append(lines,
			Line{From: corners[i], To: corners[j], Color: color},
			Line{From: corners[i+4], To: corners[j+4], Color: color},
			Line{From: corners[i], To: corners[i+4], Color: color},
		)
	}
	return lines
}
