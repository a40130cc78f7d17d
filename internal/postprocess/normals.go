package postprocess

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"sobjconv/internal/scene"
)

func faceCorners(m *scene.Mesh, f scene.Face) (a, b, c mgl32.Vec3, err error) {
	for _, idx := range f.Indices[:3] {
		if int(idx) >= len(m.Vertices) {
			return a, b, c, fmt.Errorf("face index %d out of range (%d vertices)", idx, len(m.Vertices))
		}
	}
	return m.Vertices[f.Indices[0]], m.Vertices[f.Indices[1]], m.Vertices[f.Indices[2]], nil
}

// genSmoothNormals computes area-weighted vertex normals. Vertices that
// share a position share a normal so seams along UV splits stay smooth.
func genSmoothNormals(m *scene.Mesh) error {
	byPos := make(map[mgl32.Vec3]mgl32.Vec3, len(m.Vertices))
	for _, f := range m.Faces {
		if len(f.Indices) < 3 {
			continue
		}
		a, b, c, err := faceCorners(m, f)
		if err != nil {
			return err
		}
		// Cross product length is twice the triangle area.
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range f.Indices[:3] {
			p := m.Vertices[idx]
			byPos[p] = byPos[p].Add(n)
		}
	}

	m.Normals = make([]mgl32.Vec3, len(m.Vertices))
	for i, p := range m.Vertices {
		n := byPos[p]
		if n.Len() > 1e-12 {
			n = n.Normalize()
		}
		m.Normals[i] = n
	}
	return nil
}

// calcTangentSpace derives per-vertex tangents and bitangents from the
// first UV channel, orthogonalised against the vertex normal.
func calcTangentSpace(m *scene.Mesh) error {
	uv := m.TexCoords[0]
	if len(uv) != len(m.Vertices) {
		return fmt.Errorf("%d texture coordinates for %d vertices", len(uv), len(m.Vertices))
	}

	tan := make([]mgl32.Vec3, len(m.Vertices))
	bit := make([]mgl32.Vec3, len(m.Vertices))
	for _, f := range m.Faces {
		if len(f.Indices) < 3 {
			continue
		}
		p0, p1, p2, err := faceCorners(m, f)
		if err != nil {
			return err
		}
		i0, i1, i2 := f.Indices[0], f.Indices[1], f.Indices[2]
		e1, e2 := p1.Sub(p0), p2.Sub(p0)
		du1, dv1 := uv[i1][0]-uv[i0][0], uv[i1][1]-uv[i0][1]
		du2, dv2 := uv[i2][0]-uv[i0][0], uv[i2][1]-uv[i0][1]

		det := du1*dv2 - du2*dv1
		if det == 0 {
			continue
		}
		r := 1 / det
		t := e1.Mul(dv2).Sub(e2.Mul(dv1)).Mul(r)
		b := e2.Mul(du1).Sub(e1.Mul(du2)).Mul(r)
		for _, idx := range f.Indices[:3] {
			tan[idx] = tan[idx].Add(t)
			bit[idx] = bit[idx].Add(b)
		}
	}

	for i := range m.Vertices {
		n := m.Normals[i]
		t := tan[i].Sub(n.Mul(n.Dot(tan[i])))
		if t.Len() > 1e-12 {
			t = t.Normalize()
		}
		b := bit[i]
		if b.Len() > 1e-12 {
			b = b.Normalize()
		}
		tan[i], bit[i] = t, b
	}
	m.Tangents, m.Bitangents = tan, bit
	return nil
}
