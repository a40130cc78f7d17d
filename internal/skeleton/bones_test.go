package skeleton

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"sobjconv/internal/bmd"
)

func bone(name string, parent int, pos, rot [3]float32) bmd.Bone {
	return bmd.Bone{
		Name:    name,
		Parent:  parent,
		Actions: []bmd.BoneAction{{Positions: [][3]float32{pos}, Rotations: [][3]float32{rot}}},
	}
}

func TestBuildWorldMatricesChainsParents(t *testing.T) {
	bones := []bmd.Bone{
		bone("root", -1, [3]float32{0, 0, 1}, [3]float32{0, 0, math.Pi / 2}),
		bone("child", 0, [3]float32{1, 0, 0}, [3]float32{}),
		{Parent: -1, IsDummy: true},
		bone("orphan", 2, [3]float32{5, 0, 0}, [3]float32{}),
	}
	worlds := BuildWorldMatrices(bones)

	// child origin: root rotates +X onto +Y, then lifts by 1 on Z.
	got := mgl32.TransformCoordinate(mgl32.Vec3{}, worlds[1])
	if !got.ApproxEqualThreshold(mgl32.Vec3{0, 1, 1}, 1e-5) {
		t.Fatalf("child origin = %v", got)
	}
	if !worlds[2].ApproxEqual(mgl32.Ident4()) {
		t.Fatalf("dummy world = %v", worlds[2])
	}
	// A dummy parent does not chain.
	got = mgl32.TransformCoordinate(mgl32.Vec3{}, worlds[3])
	if !got.ApproxEqualThreshold(mgl32.Vec3{5, 0, 0}, 1e-5) {
		t.Fatalf("orphan origin = %v", got)
	}
}

func TestApplyTransforms(t *testing.T) {
	bones := []bmd.Bone{bone("root", -1, [3]float32{0, 0, 2}, [3]float32{0, 0, math.Pi / 2})}
	meshes := []bmd.Mesh{{
		Verts:       [][3]float32{{1, 0, 0}, {3, 3, 3}},
		Nodes:       []int16{0, 7},
		Normals:     [][3]float32{{1, 0, 0}},
		NormalNodes: []int16{0},
	}}
	ApplyTransforms(meshes, BuildWorldMatrices(bones))

	if got := mgl32.Vec3(meshes[0].Verts[0]); !got.ApproxEqualThreshold(mgl32.Vec3{0, 1, 2}, 1e-5) {
		t.Fatalf("vertex 0 = %v", got)
	}
	if meshes[0].Verts[1] != [3]float32{3, 3, 3} {
		t.Fatalf("vertex with unknown bone moved: %v", meshes[0].Verts[1])
	}
	if got := mgl32.Vec3(meshes[0].Normals[0]); !got.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-5) {
		t.Fatalf("normal = %v", got)
	}
}
