package mathutil

import "github.com/go-gl/mathgl/mgl32"

// Rows returns the four row vectors of m.
func Rows(m mgl32.Mat4) [4]mgl32.Vec4 {
	return [4]mgl32.Vec4{m.Row(0), m.Row(1), m.Row(2), m.Row(3)}
}

// FromColumnMajor64 converts a column-major float64 matrix (glTF node and
// inverse-bind layout) to an mgl32.Mat4, which is also column-major.
func FromColumnMajor64(m [16]float64) mgl32.Mat4 {
	var out mgl32.Mat4
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// TRS composes translation * rotation * scale.
func TRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// IsIdentity checks if the matrix is approximately identity.
func IsIdentity(m mgl32.Mat4) bool {
	return m.ApproxEqualThreshold(mgl32.Ident4(), 1e-6)
}
