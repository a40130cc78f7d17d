package importer

import (
	"bytes"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sheenobu/go-obj/obj"

	"sobjconv/internal/scene"
)

// decodeOBJ builds a single-mesh scene from Wavefront OBJ text. Every face
// corner becomes its own vertex; JoinIdenticalVertices merges them later.
func decodeOBJ(data []byte, _ Options) (*scene.Scene, error) {
	o, err := obj.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	mesh := &scene.Mesh{Name: "Mesh"}
	hasNormals, hasUVs := true, true
	for _, f := range o.Faces {
		for _, p := range f.Points {
			if p.Normal == nil {
				hasNormals = false
			}
			if p.Texture == nil {
				hasUVs = false
			}
		}
	}

	var uvs []mgl32.Vec3
	var i uint32
	for _, f := range o.Faces {
		face := scene.Face{Indices: make([]uint32, 0, len(f.Points))}
		for _, p := range f.Points {
			if p.Vertex == nil {
				return nil, fmt.Errorf("face corner %d has no position", i)
			}
			mesh.Vertices = append(mesh.Vertices, mgl32.Vec3{float32(p.Vertex.X), float32(p.Vertex.Y), float32(p.Vertex.Z)})
			if hasNormals {
				mesh.Normals = append(mesh.Normals, mgl32.Vec3{float32(p.Normal.X), float32(p.Normal.Y), float32(p.Normal.Z)})
			}
			if hasUVs {
				uvs = append(uvs, mgl32.Vec3{float32(p.Texture.U), float32(p.Texture.V), 0})
			}
			face.Indices = append(face.Indices, i)
			i++
		}
		mesh.Faces = append(mesh.Faces, face)
	}
	if hasUVs && len(uvs) > 0 {
		mesh.TexCoords = [][]mgl32.Vec3{uvs}
		mesh.NumUVComponents = []int{2}
	}

	root := &scene.Node{Name: "Root", Transform: mgl32.Ident4(), Meshes: []int{0}}
	return &scene.Scene{
		Root:      root,
		Meshes:    []*scene.Mesh{mesh},
		Materials: []*scene.Material{defaultMaterial()},
	}, nil
}
