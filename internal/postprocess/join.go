package postprocess

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"sobjconv/internal/scene"
)

// vertexKey holds every attribute a vertex can carry. Two vertices merge
// only when all of them match and they are driven by the same bones.
type vertexKey struct {
	pos, norm, tan, bit mgl32.Vec3
	uv                  [4]mgl32.Vec3
	skin                string
}

// joinIdenticalVertices merges duplicate vertices and rewrites faces and
// bone weights to the surviving indices.
func joinIdenticalVertices(m *scene.Mesh) {
	if len(m.Vertices) == 0 {
		return
	}

	skins := skinSignatures(m)
	remap := make([]uint32, len(m.Vertices))
	seen := make(map[vertexKey]uint32, len(m.Vertices))
	keep := make([]int, 0, len(m.Vertices))

	for i := range m.Vertices {
		k := vertexKey{pos: m.Vertices[i], skin: skins[i]}
		if len(m.Normals) > 0 {
			k.norm = m.Normals[i]
		}
		if len(m.Tangents) > 0 {
			k.tan = m.Tangents[i]
		}
		if len(m.Bitangents) > 0 {
			k.bit = m.Bitangents[i]
		}
		for c := 0; c < len(m.TexCoords) && c < len(k.uv); c++ {
			if i < len(m.TexCoords[c]) {
				k.uv[c] = m.TexCoords[c][i]
			}
		}

		if j, ok := seen[k]; ok {
			remap[i] = j
			continue
		}
		j := uint32(len(keep))
		seen[k] = j
		remap[i] = j
		keep = append(keep, i)
	}
	if len(keep) == len(m.Vertices) {
		return
	}

	m.Vertices = gather(m.Vertices, keep)
	m.Normals = gather(m.Normals, keep)
	m.Tangents = gather(m.Tangents, keep)
	m.Bitangents = gather(m.Bitangents, keep)
	for c := range m.TexCoords {
		m.TexCoords[c] = gather(m.TexCoords[c], keep)
	}

	for fi := range m.Faces {
		idx := make([]uint32, len(m.Faces[fi].Indices))
		for k, v := range m.Faces[fi].Indices {
			if int(v) < len(remap) {
				idx[k] = remap[v]
			} else {
				idx[k] = v
			}
		}
		m.Faces[fi].Indices = idx
	}

	for _, b := range m.Bones {
		merged := make(map[uint32]bool, len(b.Weights))
		out := b.Weights[:0]
		for _, w := range b.Weights {
			if int(w.VertexID) >= len(remap) {
				continue
			}
			w.VertexID = remap[w.VertexID]
			if merged[w.VertexID] {
				continue
			}
			merged[w.VertexID] = true
			out = append(out, w)
		}
		b.Weights = out
	}
}

func gather(src []mgl32.Vec3, keep []int) []mgl32.Vec3 {
	if len(src) == 0 {
		return src
	}
	out := make([]mgl32.Vec3, len(keep))
	for i, k := range keep {
		out[i] = src[k]
	}
	return out
}

// skinSignatures returns, per vertex, a string identifying its bone
// weights so differently skinned vertices never merge.
func skinSignatures(m *scene.Mesh) []string {
	sigs := make([]string, len(m.Vertices))
	if len(m.Bones) == 0 {
		return sigs
	}
	for bi, b := range m.Bones {
		for _, w := range b.Weights {
			if int(w.VertexID) < len(sigs) {
				sigs[w.VertexID] += fmt.Sprintf("%d:%g;", bi, w.Weight)
			}
		}
	}
	return sigs
}
