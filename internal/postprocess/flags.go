// Package postprocess applies import-time processing steps to a scene.
//
// The steps mirror the flags the converter asks of an asset import
// library: triangulation, primitive sorting, normal and tangent
// generation, vertex joining and UV flipping.
package postprocess

import (
	"fmt"
	"strings"

	"sobjconv/internal/scene"
)

// Flags selects processing steps.
type Flags uint32

const (
	Triangulate Flags = 1 << iota
	JoinIdenticalVertices
	GenSmoothNormals
	SortByPType
	CalcTangentSpace
	FlipUVs
)

// DefaultFlags is the step set used for every conversion.
const DefaultFlags = Triangulate | JoinIdenticalVertices | GenSmoothNormals | SortByPType | CalcTangentSpace

var flagNames = []struct {
	flag Flags
	name string
}{
	{Triangulate, "triangulate"},
	{JoinIdenticalVertices, "join-identical-vertices"},
	{GenSmoothNormals, "gen-smooth-normals"},
	{SortByPType, "sort-by-ptype"},
	{CalcTangentSpace, "calc-tangent-space"},
	{FlipUVs, "flip-uvs"},
}

func (f Flags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Has reports whether every bit of g is set in f.
func (f Flags) Has(g Flags) bool { return f&g == g }

// Apply runs the selected steps on every mesh of sc in a fixed order.
func Apply(sc *scene.Scene, flags Flags) error {
	for _, m := range sc.Meshes {
		if err := applyMesh(m, flags); err != nil {
			return fmt.Errorf("postprocess: mesh %q: %w", m.Name, err)
		}
	}
	return nil
}

func applyMesh(m *scene.Mesh, flags Flags) error {
	if err := m.CheckAttributes(); err != nil {
		return err
	}
	if flags.Has(Triangulate) {
		triangulate(m)
	}
	if flags.Has(SortByPType) {
		dropDegenerate(m)
	}
	if flags.Has(GenSmoothNormals) && len(m.Normals) == 0 {
		if err := genSmoothNormals(m); err != nil {
			return err
		}
	}
	if flags.Has(CalcTangentSpace) && len(m.Tangents) == 0 && len(m.Normals) > 0 && len(m.TexCoords) > 0 && len(m.TexCoords[0]) > 0 {
		if err := calcTangentSpace(m); err != nil {
			return err
		}
	}
	if flags.Has(JoinIdenticalVertices) {
		joinIdenticalVertices(m)
	}
	if flags.Has(FlipUVs) {
		flipUVs(m)
	}
	return nil
}
