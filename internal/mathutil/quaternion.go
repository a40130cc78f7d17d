package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// EulerToQuat converts Euler XYZ (radians) to a quaternion.
// Matches the BMD client's angle-to-quaternion routine.
func EulerToQuat(rx, ry, rz float64) mgl32.Quat {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	return mgl32.Quat{
		W: float32(cx*cy*cz + sx*sy*sz),
		V: mgl32.Vec3{
			float32(sx*cy*cz - cx*sy*sz), // x
			float32(cx*sy*cz + sx*cy*sz), // y
			float32(cx*cy*sz - sx*sy*cz), // z
		},
	}
}

// QuatToXYZW permutes a scalar-first quaternion into vector-first,
// scalar-last component order.
func QuatToXYZW(q mgl32.Quat) mgl32.Vec4 {
	return mgl32.Vec4{q.V[0], q.V[1], q.V[2], q.W}
}

// XYZWToQuat is the inverse of QuatToXYZW.
func XYZWToQuat(v mgl32.Vec4) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

// QuatFromXYZW builds a quaternion from float64 components stored x, y, z, w
// (the glTF layout).
func QuatFromXYZW(c [4]float64) mgl32.Quat {
	return mgl32.Quat{
		W: float32(c[3]),
		V: mgl32.Vec3{float32(c[0]), float32(c[1]), float32(c[2])},
	}
}
