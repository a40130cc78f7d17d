package postprocess

import "sobjconv/internal/scene"

// triangulate splits every polygon into a triangle fan around its first
// corner. Points and lines are left alone.
func triangulate(m *scene.Mesh) {
	needed := false
	for _, f := range m.Faces {
		if len(f.Indices) > 3 {
			needed = true
			break
		}
	}
	if !needed {
		return
	}

	out := make([]scene.Face, 0, len(m.Faces))
	for _, f := range m.Faces {
		if len(f.Indices) <= 3 {
			out = append(out, f)
			continue
		}
		for i := 1; i+1 < len(f.Indices); i++ {
			out = append(out, scene.Face{Indices: []uint32{f.Indices[0], f.Indices[i], f.Indices[i+1]}})
		}
	}
	m.Faces = out
}

// dropDegenerate removes point and line primitives, leaving a pure
// polygon mesh.
func dropDegenerate(m *scene.Mesh) {
	out := m.Faces[:0]
	for _, f := range m.Faces {
		if len(f.Indices) >= 3 {
			out = append(out, f)
		}
	}
	m.Faces = out
}

// flipUVs mirrors texture coordinates vertically.
func flipUVs(m *scene.Mesh) {
	for _, ch := range m.TexCoords {
		for i := range ch {
			ch[i][1] = 1 - ch[i][1]
		}
	}
}
