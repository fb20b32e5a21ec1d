package scene

import "github.com/chewxy/math32"

// Vec3 is a float32 3-vector. The engine's buffers, matrices, and culling
// math are float32 throughout to match GPU layouts, so math32 (not the
// standard math package) backs every trig/sqrt call in this file.
type Vec3 struct {
	X, Y, Z float32
}

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float32) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func (a Vec3) Dot(b Vec3) float32 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) LengthSquared() float32 { return a.Dot(a) }

func (a Vec3) Length() float32 { return math32.Sqrt(a.LengthSquared()) }

func (a Vec3) Normalize() Vec3 {
	l := a.Length()
	if l == 0 {
		return a
	}
	return a.Scale(1 / l)
}

// DistanceSquared is used by the opaque sort (front-to-back by squared
// distance avoids a sqrt per object).
func (a Vec3) DistanceSquared(b Vec3) float32 { return a.Sub(b).LengthSquared() }

// Mat4 is a row-major 4x4 matrix stored as 16 consecutive float32s:
// m[row*4+col]. Row-major keeps the memory layout identical to the
// per-object/per-view constant buffers the GPU reads.
type Mat4 [16]float32

// Identity returns the 4x4 identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func (m Mat4) at(row, col int) float32 { return m[row*4+col] }

// Mul computes m x n (applies n first, then m — matches the
// column-vector convention v' = M * v used by the view-projection chain).
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m.at(r, k) * n.at(k, c)
			}
			out[r*4+c] = sum
		}
	}
	return out
}

// MulPoint transforms a point (w=1) and performs the perspective divide.
func (m Mat4) MulPoint(v Vec3) Vec3 {
	x := m[0]*v.X + m[1]*v.Y + m[2]*v.Z + m[3]
	y := m[4]*v.X + m[5]*v.Y + m[6]*v.Z + m[7]
	z := m[8]*v.X + m[9]*v.Y + m[10]*v.Z + m[11]
	w := m[12]*v.X + m[13]*v.Y + m[14]*v.Z + m[15]
	if w != 0 && w != 1 {
		inv := 1 / w
		return Vec3{x * inv, y * inv, z * inv}
	}
	return Vec3{x, y, z}
}

// MulDirection transforms a direction vector (w=0); no translation applied.
func (m Mat4) MulDirection(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		m[4]*v.X + m[5]*v.Y + m[6]*v.Z,
		m[8]*v.X + m[9]*v.Y + m[10]*v.Z,
	}
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[c*4+r] = m[r*4+c]
		}
	}
	return out
}

// Translation builds a translation matrix.
func Translation(t Vec3) Mat4 {
	m := Identity()
	m[3], m[7], m[11] = t.X, t.Y, t.Z
	return m
}

// LookAt builds a right-handed view matrix looking from eye toward
// target, with the given up vector.
func LookAt(eye, target, up Vec3) Mat4 {
	f := target.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)
	return Mat4{
		s.X, s.Y, s.Z, -s.Dot(eye),
		u.X, u.Y, u.Z, -u.Dot(eye),
		-f.X, -f.Y, -f.Z, f.Dot(eye),
		0, 0, 0, 1,
	}
}

// Perspective builds a right-handed perspective projection with depth
// range [0,1] (the convention every included backend targets), fovY in
// radians.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY/2)
	var m Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = (near * far) / (near - far)
	m[14] = -1
	return m
}

// Orthographic builds a right-handed orthographic projection with the same
// [0,1] depth range Perspective uses, for shadow-map cascades and other
// non-perspective projections.
func Orthographic(left, right, bottom, top, near, far float32) Mat4 {
	m := Identity()
	m[0] = 2 / (right - left)
	m[5] = 2 / (top - bottom)
	m[10] = -1 / (far - near)
	m[3] = -(right + left) / (right - left)
	m[7] = -(top + bottom) / (top - bottom)
	m[11] = -near / (far - near)
	return m
}

// Inverse returns the inverse of m via cofactor expansion, and false if m
// is singular (determinant within epsilon of zero).
func (m Mat4) Inverse() (Mat4, bool) {
	a := m
	var inv Mat4

	inv[0] = a[5]*a[10]*a[15] - a[5]*a[11]*a[14] - a[9]*a[6]*a[15] + a[9]*a[7]*a[14] + a[13]*a[6]*a[11] - a[13]*a[7]*a[10]
	inv[4] = -a[4]*a[10]*a[15] + a[4]*a[11]*a[14] + a[8]*a[6]*a[15] - a[8]*a[7]*a[14] - a[12]*a[6]*a[11] + a[12]*a[7]*a[10]
	inv[8] = a[4]*a[9]*a[15] - a[4]*a[11]*a[13] - a[8]*a[5]*a[15] + a[8]*a[7]*a[13] + a[12]*a[5]*a[11] - a[12]*a[7]*a[9]
	inv[12] = -a[4]*a[9]*a[14] + a[4]*a[10]*a[13] + a[8]*a[5]*a[14] - a[8]*a[6]*a[13] - a[12]*a[5]*a[10] + a[12]*a[6]*a[9]

	inv[1] = -a[1]*a[10]*a[15] + a[1]*a[11]*a[14] + a[9]*a[2]*a[15] - a[9]*a[3]*a[14] - a[13]*a[2]*a[11] + a[13]*a[3]*a[10]
	inv[5] = a[0]*a[10]*a[15] - a[0]*a[11]*a[14] - a[8]*a[2]*a[15] + a[8]*a[3]*a[14] + a[12]*a[2]*a[11] - a[12]*a[3]*a[10]
	inv[9] = -a[0]*a[9]*a[15] + a[0]*a[11]*a[13] + a[8]*a[1]*a[15] - a[8]*a[3]*a[13] - a[12]*a[1]*a[11] + a[12]*a[3]*a[9]
	inv[13] = a[0]*a[9]*a[14] - a[0]*a[10]*a[13] - a[8]*a[1]*a[14] + a[8]*a[2]*a[13] + a[12]*a[1]*a[10] - a[12]*a[2]*a[9]

	inv[2] = a[1]*a[6]*a[15] - a[1]*a[7]*a[14] - a[5]*a[2]*a[15] + a[5]*a[3]*a[14] + a[13]*a[2]*a[7] - a[13]*a[3]*a[6]
	inv[6] = -a[0]*a[6]*a[15] + a[0]*a[7]*a[14] + a[4]*a[2]*a[15] - a[4]*a[3]*a[14] - a[12]*a[2]*a[7] + a[12]*a[3]*a[6]
	inv[10] = a[0]*a[5]*a[15] - a[0]*a[7]*a[13] - a[4]*a[1]*a[15] + a[4]*a[3]*a[13] + a[12]*a[1]*a[7] - a[12]*a[3]*a[5]
	inv[14] = -a[0]*a[5]*a[14] + a[0]*a[6]*a[13] + a[4]*a[1]*a[14] - a[4]*a[2]*a[13] - a[12]*a[1]*a[6] + a[12]*a[2]*a[5]

	inv[3] = -a[1]*a[6]*a[11] + a[1]*a[7]*a[10] + a[5]*a[2]*a[11] - a[5]*a[3]*a[10] - a[9]*a[2]*a[7] + a[9]*a[3]*a[6]
	inv[7] = a[0]*a[6]*a[11] - a[0]*a[7]*a[10] - a[4]*a[2]*a[11] + a[4]*a[3]*a[10] + a[8]*a[2]*a[7] - a[8]*a[3]*a[6]
	inv[11] = -a[0]*a[5]*a[11] + a[0]*a[7]*a[9] + a[4]*a[1]*a[11] - a[4]*a[3]*a[9] - a[8]*a[1]*a[7] + a[8]*a[3]*a[5]
	inv[15] = a[0]*a[5]*a[10] - a[0]*a[6]*a[9] - a[4]*a[1]*a[10] + a[4]*a[2]*a[9] + a[8]*a[1]*a[6] - a[8]*a[2]*a[5]

	det := a[0]*inv[0] + a[1]*inv[4] + a[2]*inv[8] + a[3]*inv[12]
	if det > -1e-8 && det < 1e-8 {
		return Identity(), false
	}
	invDet := 1 / det
	for i := range inv {
		inv[i] *= invDet
	}
	return inv, true
}

// NegateRow negates an entire row in place — used for the Y-down clip
// space fixup the pipeline cache applies to the stored view-projection.
func (m *Mat4) NegateRow(row int) {
	for c := 0; c < 4; c++ {
		m[row*4+c] = -m[row*4+c]
	}
}

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min, Max Vec3
}

// UnionPoint grows the box to include p.
func (b AABB) UnionPoint(p Vec3) AABB {
	return AABB{
		Min: Vec3{min32(b.Min.X, p.X), min32(b.Min.Y, p.Y), min32(b.Min.Z, p.Z)},
		Max: Vec3{max32(b.Max.X, p.X), max32(b.Max.Y, p.Y), max32(b.Max.Z, p.Z)},
	}
}

// Center returns the box's midpoint.
func (b AABB) Center() Vec3 {
	return Vec3{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2, (b.Min.Z + b.Max.Z) / 2}
}

// Extents returns the box's half-extents.
func (b AABB) Extents() Vec3 {
	return Vec3{(b.Max.X - b.Min.X) / 2, (b.Max.Y - b.Min.Y) / 2, (b.Max.Z - b.Min.Z) / 2}
}

// Transform computes the AABB of b after transforming all eight corners
// by m and re-fitting — the standard (conservative) approach for
// transforming an AABB by an arbitrary matrix.
func (b AABB) Transform(m Mat4) AABB {
	corners := [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z}, {b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z}, {b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z}, {b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z}, {b.Max.X, b.Max.Y, b.Max.Z},
	}
	out := AABB{Min: m.MulPoint(corners[0]), Max: m.MulPoint(corners[0])}
	for _, c := range corners[1:] {
		out = out.UnionPoint(m.MulPoint(c))
	}
	return out
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Plane is a plane in Hessian normal form: Normal.Dot(p) + D == 0 for any
// point p on the plane, with Normal pointing toward the half-space the
// frustum considers "inside".
type Plane struct {
	Normal Vec3
	D      float32
}

func normalizePlane(p Plane) Plane {
	l := p.Normal.Length()
	if l == 0 {
		return p
	}
	inv := 1 / l
	return Plane{Normal: p.Normal.Scale(inv), D: p.D * inv}
}

// DistanceToPoint is positive when pt is on the normal's side of the plane.
func (p Plane) DistanceToPoint(pt Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum is the six half-spaces of a camera's view volume, extracted
// from a view-projection matrix via the Gribb/Hartmann method (row
// combinations of the clip-space matrix).
type Frustum struct {
	Planes [6]Plane
}

const (
	frustumLeft = iota
	frustumRight
	frustumBottom
	frustumTop
	frustumNear
	frustumFar
)

// SetFromMatrix extracts the six frustum planes from a combined
// view-projection matrix m, assuming row-major storage and a clip-space
// depth range of [0,1] (Perspective's convention).
func (f *Frustum) SetFromMatrix(m Mat4) {
	row := func(i int) Vec3 { return Vec3{m.at(i, 0), m.at(i, 1), m.at(i, 2)} }
	rowD := func(i int) float32 { return m.at(i, 3) }

	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	d0, d1, d2, d3 := rowD(0), rowD(1), rowD(2), rowD(3)

	f.Planes[frustumLeft] = normalizePlane(Plane{r3.Add(r0), d3 + d0})
	f.Planes[frustumRight] = normalizePlane(Plane{r3.Sub(r0), d3 - d0})
	f.Planes[frustumBottom] = normalizePlane(Plane{r3.Add(r1), d3 + d1})
	f.Planes[frustumTop] = normalizePlane(Plane{r3.Sub(r1), d3 - d1})
	f.Planes[frustumNear] = normalizePlane(Plane{r2, d2})
	f.Planes[frustumFar] = normalizePlane(Plane{r3.Sub(r2), d3 - d2})
}

// IntersectsAABB reports whether box lies at least partially inside every
// plane's positive half-space (the standard conservative AABB-vs-frustum
// test: for each plane, the box is entirely outside only if its
// positive-most corner along the plane normal is still on the negative
// side).
func (f Frustum) IntersectsAABB(box AABB) bool {
	center := box.Center()
	extents := box.Extents()
	for _, p := range f.Planes {
		radius := extents.X*math32.Abs(p.Normal.X) + extents.Y*math32.Abs(p.Normal.Y) + extents.Z*math32.Abs(p.Normal.Z)
		if p.DistanceToPoint(center) < -radius {
			return false
		}
	}
	return true
}
