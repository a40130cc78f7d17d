package flatten

import (
	"errors"
	"fmt"

	"sobjconv/internal/scene"
)

var (
	// ErrUVChannel is returned for meshes whose texture coordinates are
	// not a single 2-component channel.
	ErrUVChannel = errors.New("only a single 2-component texture coordinate channel is supported")
	// ErrNonTriangularFace is returned for faces without exactly three indices.
	ErrNonTriangularFace = errors.New("non-triangular face")
	// ErrVertexIndex is returned for face or weight indices past the vertex list.
	ErrVertexIndex = errors.New("vertex index out of range")
	// ErrAttributeLength is returned when a per-vertex array does not match
	// the vertex count.
	ErrAttributeLength = scene.ErrAttributeLength
	// ErrMaterialIndex is returned for meshes referring to a material the
	// scene does not have.
	ErrMaterialIndex = errors.New("material index out of range")
	// ErrUnknownBoneNode is returned when a bone names a node missing from
	// the scene graph.
	ErrUnknownBoneNode = errors.New("bone refers to unknown node")
	// ErrNoRoot is returned for scenes without a root node.
	ErrNoRoot = errors.New("scene has no root node")
)

// Warning is a non-fatal problem found during conversion.
type Warning struct {
	Animation string
	Node      string
}

func (w Warning) String() string {
	return fmt.Sprintf("animation %s operates on unneeded node %s", w.Animation, w.Node)
}
