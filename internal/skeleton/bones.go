// Package skeleton computes bind-pose matrices for BMD skeletons.
package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"

	"sobjconv/internal/bmd"
	"sobjconv/internal/mathutil"
)

// Local returns a bone's local transform from its Euler rotation and
// position.
func Local(pos, rot [3]float32) mgl32.Mat4 {
	q := mathutil.EulerToQuat(float64(rot[0]), float64(rot[1]), float64(rot[2]))
	return mgl32.Translate3D(pos[0], pos[1], pos[2]).Mul4(q.Mat4())
}

// BindLocal is Local evaluated at the bind pose (frame 0, action 0).
// Dummy bones get the identity.
func BindLocal(b *bmd.Bone) mgl32.Mat4 {
	if b.IsDummy {
		return mgl32.Ident4()
	}
	return Local(b.BindPosition(), b.BindRotation())
}

// HasParent reports whether bone i has a usable parent. Parents must come
// earlier in the list and must not be dummies.
func HasParent(bones []bmd.Bone, i int) bool {
	p := bones[i].Parent
	return p >= 0 && p < i && !bones[p].IsDummy
}

// BuildWorldMatrices computes the bind-pose world transform for each bone.
// Returns a slice of matrices indexed by bone index.
func BuildWorldMatrices(bones []bmd.Bone) []mgl32.Mat4 {
	worlds := make([]mgl32.Mat4, len(bones))
	for i := range bones {
		local := BindLocal(&bones[i])
		if HasParent(bones, i) {
			worlds[i] = worlds[bones[i].Parent].Mul4(local)
		} else {
			worlds[i] = local
		}
	}
	return worlds
}

// ApplyTransforms moves mesh vertices and normals from bone space into
// model space using the bone world matrices.
// Rigid skinning: 1 bone per vertex, weight = 1.0.
func ApplyTransforms(meshes []bmd.Mesh, worlds []mgl32.Mat4) {
	allIdentity := true
	for _, w := range worlds {
		if !mathutil.IsIdentity(w) {
			allIdentity = false
			break
		}
	}
	if allIdentity {
		return
	}

	for mi := range meshes {
		mesh := &meshes[mi]
		for vi, v := range mesh.Verts {
			w, ok := boneMatrix(worlds, mesh.Nodes, vi)
			if !ok {
				continue
			}
			p := mgl32.TransformCoordinate(mgl32.Vec3(v), w)
			mesh.Verts[vi] = [3]float32(p)
		}
		for ni, n := range mesh.Normals {
			w, ok := boneMatrix(worlds, mesh.NormalNodes, ni)
			if !ok {
				continue
			}
			d := mgl32.TransformNormal(mgl32.Vec3(n), w)
			if d.Len() > 0 {
				d = d.Normalize()
			}
			mesh.Normals[ni] = [3]float32(d)
		}
	}
}

func boneMatrix(worlds []mgl32.Mat4, nodes []int16, i int) (mgl32.Mat4, bool) {
	if i >= len(nodes) {
		return mgl32.Mat4{}, false
	}
	b := int(nodes[i])
	if b < 0 || b >= len(worlds) {
		return mgl32.Mat4{}, false
	}
	return worlds[b], true
}
