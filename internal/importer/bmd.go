package importer

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"sobjconv/internal/bmd"
	"sobjconv/internal/mathutil"
	"sobjconv/internal/scene"
	"sobjconv/internal/skeleton"
)

// bmdTicksPerSecond is the playback rate of BMD actions, one tick per key.
const bmdTicksPerSecond = 24

// decodeBMD converts a BMD model. Geometry is baked into the bind pose and
// each vertex is bound rigidly to the bone it was authored against.
func decodeBMD(data []byte, opts Options) (*scene.Scene, error) {
	model, err := bmd.Parse(data, bmd.Options{LEAKey: opts.BMDKey})
	if err != nil {
		return nil, err
	}

	names := scene.NewNameSet()
	root := &scene.Node{Name: names.Unique(model.Name, "BMD"), Transform: mgl32.Ident4()}
	sc := &scene.Scene{Root: root}

	// Bone nodes. Parents always precede children in a BMD skeleton.
	boneNodes := make([]*scene.Node, len(model.Bones))
	for i := range model.Bones {
		b := &model.Bones[i]
		if b.IsDummy {
			continue
		}
		n := &scene.Node{
			Name:      names.Unique(b.Name, fmt.Sprintf("bone_%d", i)),
			Transform: skeleton.BindLocal(b),
		}
		if skeleton.HasParent(model.Bones, i) && boneNodes[b.Parent] != nil {
			boneNodes[b.Parent].AddChild(n)
		} else {
			root.AddChild(n)
		}
		boneNodes[i] = n
	}

	worlds := skeleton.BuildWorldMatrices(model.Bones)
	skeleton.ApplyTransforms(model.Meshes, worlds)

	for i := range model.Meshes {
		mesh, err := bmdMesh(&model.Meshes[i], i, boneNodes, worlds)
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		mesh.MaterialIndex = len(sc.Materials)
		sc.Materials = append(sc.Materials, bmdMaterial(&model.Meshes[i], i))
		root.Meshes = append(root.Meshes, len(sc.Meshes))
		sc.Meshes = append(sc.Meshes, mesh)
	}

	for a, act := range model.Actions {
		if act.Keys == 0 {
			continue
		}
		sc.Animations = append(sc.Animations, bmdAnimation(model, a, boneNodes))
	}
	return sc, nil
}

func bmdMesh(src *bmd.Mesh, idx int, boneNodes []*scene.Node, worlds []mgl32.Mat4) (*scene.Mesh, error) {
	mesh := &scene.Mesh{Name: fmt.Sprintf("mesh_%d", idx)}
	hasNormals := len(src.Normals) > 0
	hasUVs := len(src.UVs) > 0
	var uvs []mgl32.Vec3
	bones := make(map[int]*scene.Bone)
	var boneOrder []int

	for ti, t := range src.Tris {
		face := scene.Face{Indices: make([]uint32, 0, t.Corners())}
		for k := 0; k < t.Corners(); k++ {
			vi, ni, uvi := int(t.VI[k]), int(t.NI[k]), int(t.TI[k])
			if vi < 0 || vi >= len(src.Verts) {
				return nil, fmt.Errorf("triangle %d: vertex index %d out of range", ti, vi)
			}
			if hasNormals && (ni < 0 || ni >= len(src.Normals)) {
				return nil, fmt.Errorf("triangle %d: normal index %d out of range", ti, ni)
			}
			if hasUVs && (uvi < 0 || uvi >= len(src.UVs)) {
				return nil, fmt.Errorf("triangle %d: texcoord index %d out of range", ti, uvi)
			}

			id := uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, mgl32.Vec3(src.Verts[vi]))
			if hasNormals {
				mesh.Normals = append(mesh.Normals, mgl32.Vec3(src.Normals[ni]))
			}
			if hasUVs {
				uv := src.UVs[uvi]
				uvs = append(uvs, mgl32.Vec3{uv[0], uv[1], 0})
			}
			face.Indices = append(face.Indices, id)

			b := int(src.Nodes[vi])
			if b < 0 || b >= len(boneNodes) || boneNodes[b] == nil {
				continue
			}
			bone, ok := bones[b]
			if !ok {
				bone = &scene.Bone{Name: boneNodes[b].Name, OffsetMatrix: worlds[b].Inv()}
				bones[b] = bone
				boneOrder = append(boneOrder, b)
			}
			bone.Weights = append(bone.Weights, scene.VertexWeight{VertexID: id, Weight: 1})
		}
		mesh.Faces = append(mesh.Faces, face)
	}

	if hasUVs {
		mesh.TexCoords = [][]mgl32.Vec3{uvs}
		mesh.NumUVComponents = []int{2}
	}
	for _, b := range boneOrder {
		mesh.Bones = append(mesh.Bones, bones[b])
	}
	return mesh, nil
}

func bmdMaterial(src *bmd.Mesh, idx int) *scene.Material {
	m := &scene.Material{Textures: map[scene.TextureType]string{}}
	if src.TexPath == "" {
		m.Name = fmt.Sprintf("material_%d", idx)
		return m
	}
	m.Name = strings.TrimSuffix(path.Base(src.TexPath), path.Ext(src.TexPath))
	m.Textures[scene.TextureDiffuse] = src.TexPath
	return m
}

func bmdAnimation(model *bmd.Model, a int, boneNodes []*scene.Node) *scene.Animation {
	act := model.Actions[a]
	anim := &scene.Animation{
		Name:           fmt.Sprintf("action_%d", a),
		Duration:       float64(act.Keys - 1),
		TicksPerSecond: bmdTicksPerSecond,
	}
	for i := range model.Bones {
		b := &model.Bones[i]
		if boneNodes[i] == nil || a >= len(b.Actions) {
			continue
		}
		ba := b.Actions[a]
		ch := &scene.NodeAnim{NodeName: boneNodes[i].Name}
		for k, p := range ba.Positions {
			ch.PositionKeys = append(ch.PositionKeys, scene.VectorKey{Time: float64(k), Value: mgl32.Vec3(p)})
		}
		for k, r := range ba.Rotations {
			q := mathutil.EulerToQuat(float64(r[0]), float64(r[1]), float64(r[2]))
			ch.RotationKeys = append(ch.RotationKeys, scene.QuatKey{Time: float64(k), Value: q})
		}
		if len(ch.PositionKeys) > 0 || len(ch.RotationKeys) > 0 {
			anim.Channels = append(anim.Channels, ch)
		}
	}
	return anim
}
