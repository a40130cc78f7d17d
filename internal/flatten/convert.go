package flatten

import (
	"github.com/go-gl/mathgl/mgl32"

	"sobjconv/internal/mathutil"
	"sobjconv/internal/sobj"
)

func toVec3(v mgl32.Vec3) sobj.Vec3 {
	return sobj.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func toVec4(v mgl32.Vec4) sobj.Vec4 {
	return sobj.Vec4{X: v[0], Y: v[1], Z: v[2], W: v[3]}
}

// toQuat stores q vector-first, scalar-last.
func toQuat(q mgl32.Quat) sobj.Vec4 {
	return toVec4(mathutil.QuatToXYZW(q))
}

func toMat4(m mgl32.Mat4) sobj.Mat4 {
	rows := mathutil.Rows(m)
	return sobj.Mat4{
		A: toVec4(rows[0]),
		B: toVec4(rows[1]),
		C: toVec4(rows[2]),
		D: toVec4(rows[3]),
	}
}
