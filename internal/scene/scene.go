// Package scene holds the in-memory scene graph produced by the importers.
//
// The graph mirrors what general-purpose asset import libraries hand back:
// a node tree with local transforms, a flat mesh list referenced by index
// from nodes, bones that name the nodes they drive, and animation channels
// that also refer to nodes by name. Consumers treat it as read-only.
package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrAttributeLength is returned when a per-vertex array does not match
// the vertex count.
var ErrAttributeLength = errors.New("vertex attribute length mismatch")

// Scene is the root of an imported asset.
type Scene struct {
	Root       *Node
	Meshes     []*Mesh
	Materials  []*Material
	Animations []*Animation
	// Textures holds still-encoded images embedded in the source file.
	// Material texture paths of the form "*N" refer to Textures[N].
	Textures []*EmbeddedTexture
}

// Node is a transform node in the scene graph.
type Node struct {
	Name      string
	Transform mgl32.Mat4 // local, relative to Parent
	Parent    *Node
	Children  []*Node
	Meshes    []int // indices into Scene.Meshes
}

// AddChild links c under n.
func (n *Node) AddChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// Path returns the names from the root down to n, joined with "/".
func (n *Node) Path() string {
	if n.Parent == nil {
		return n.Name
	}
	return n.Parent.Path() + "/" + n.Name
}

// Face is one polygon as indices into the mesh's vertex arrays.
type Face struct {
	Indices []uint32
}

// Mesh is a single-material vertex/face set.
//
// All per-vertex arrays are either empty (attribute absent) or the same
// length as Vertices. TexCoords holds one slice per UV channel and
// NumUVComponents the number of meaningful components in each.
type Mesh struct {
	Name            string
	MaterialIndex   int
	Vertices        []mgl32.Vec3
	Normals         []mgl32.Vec3
	Tangents        []mgl32.Vec3
	Bitangents      []mgl32.Vec3
	TexCoords       [][]mgl32.Vec3
	NumUVComponents []int
	Faces           []Face
	Bones           []*Bone
}

// HasTexCoords reports whether any UV channel of the mesh is non-empty.
func (m *Mesh) HasTexCoords() bool {
	for _, ch := range m.TexCoords {
		if len(ch) > 0 {
			return true
		}
	}
	return false
}

// CheckAttributes verifies that every non-empty per-vertex array has one
// entry per vertex.
func (m *Mesh) CheckAttributes() error {
	nv := len(m.Vertices)
	for _, attr := range []struct {
		name string
		n    int
	}{
		{"normals", len(m.Normals)},
		{"tangents", len(m.Tangents)},
		{"bitangents", len(m.Bitangents)},
	} {
		if attr.n != 0 && attr.n != nv {
			return fmt.Errorf("%w: %d %s for %d vertices", ErrAttributeLength, attr.n, attr.name, nv)
		}
	}
	for c, ch := range m.TexCoords {
		if len(ch) != 0 && len(ch) != nv {
			return fmt.Errorf("%w: %d texture coordinates in channel %d for %d vertices", ErrAttributeLength, len(ch), c, nv)
		}
	}
	return nil
}

// VertexWeight is the influence of a bone on one vertex.
type VertexWeight struct {
	VertexID uint32
	Weight   float32
}

// Bone binds a mesh to the node of the same name.
type Bone struct {
	Name string
	// OffsetMatrix maps mesh space into bone space (inverse bind pose).
	OffsetMatrix mgl32.Mat4
	Weights      []VertexWeight
}

// TextureType selects one of the material texture slots.
type TextureType int

const (
	TextureDiffuse TextureType = iota
	TextureSpecular
	TextureNormal
	TextureEmissive
)

// TextureTypes lists every slot in output order.
var TextureTypes = []TextureType{TextureDiffuse, TextureSpecular, TextureNormal, TextureEmissive}

func (t TextureType) String() string {
	switch t {
	case TextureDiffuse:
		return "diffuse"
	case TextureSpecular:
		return "specular"
	case TextureNormal:
		return "normal"
	case TextureEmissive:
		return "emissive"
	default:
		return "unknown"
	}
}

// Material describes surface properties. Textures maps a slot to a file
// path or to an embedded reference ("*N").
type Material struct {
	Name      string
	Shininess *float32
	Textures  map[TextureType]string
}

// EmbeddedTexture is an image stored inside the source file.
type EmbeddedTexture struct {
	Hint string // format hint such as "png" or "jpg", may be empty
	Data []byte
}

// Animation is a set of per-node keyframe channels.
type Animation struct {
	Name           string
	Duration       float64 // in ticks
	TicksPerSecond float64
	Channels       []*NodeAnim
}

// NodeAnim animates the node called NodeName.
type NodeAnim struct {
	NodeName     string
	PositionKeys []VectorKey
	RotationKeys []QuatKey
	ScalingKeys  []VectorKey
}

// VectorKey is a timed 3-vector.
type VectorKey struct {
	Time  float64
	Value mgl32.Vec3
}

// QuatKey is a timed rotation. The quaternion is scalar-first (W, then V).
type QuatKey struct {
	Time  float64
	Value mgl32.Quat
}
