// Package sobj defines the flattened scene document and its encodings.
//
// A Document is a set of parallel tables cross-referenced by position:
// hierarchy nodes, mesh instances, meshes, joints, materials and
// animations. Hierarchy entry 0 is always the scene root.
package sobj

// Vec2 is a 2-component vector.
type Vec2 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

// Vec3 is a 3-component vector.
type Vec3 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

// Vec4 is a 4-component vector. Rotations are stored x, y, z, w.
type Vec4 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
	W float32 `yaml:"w"`
}

// Mat4 is a 4×4 matrix stored as four rows.
type Mat4 struct {
	A Vec4 `yaml:"a"`
	B Vec4 `yaml:"b"`
	C Vec4 `yaml:"c"`
	D Vec4 `yaml:"d"`
}

// Document is one converted scene.
type Document struct {
	Hierarchy  []*Node      `yaml:"hierarchy"`
	Instances  []*Instance  `yaml:"instances"`
	Meshes     []*Mesh      `yaml:"meshes"`
	Joints     []*Joint     `yaml:"joints"`
	Materials  []*Material  `yaml:"materials"`
	Animations []*Animation `yaml:"animations"`
}

// Node is a hierarchy entry. Its ID is its index in Document.Hierarchy.
type Node struct {
	Name      string   `yaml:"name"`
	Transform Mat4     `yaml:"transform"`
	Children  []uint32 `yaml:"children,flow,omitempty"`
	JointID   *uint32  `yaml:"jointID,omitempty"`
}

// Instance places a mesh at a pre-composed transform.
type Instance struct {
	MeshID    uint32 `yaml:"meshID"`
	Transform Mat4   `yaml:"transform"`
}

// Vertex carries the per-vertex attributes of a mesh.
type Vertex struct {
	Position  Vec3  `yaml:"position"`
	Normal    Vec3  `yaml:"normal"`
	UV        *Vec2 `yaml:"uv,omitempty"`
	Tangent   Vec3  `yaml:"tangent"`
	Bitangent Vec3  `yaml:"bitangent"`
}

// Face is a triangle.
type Face struct {
	A uint32 `yaml:"a"`
	B uint32 `yaml:"b"`
	C uint32 `yaml:"c"`
}

// VertexWeight is one skin weight.
type VertexWeight struct {
	Vertex uint32  `yaml:"vertex"`
	Weight float32 `yaml:"weight"`
}

// WeightList holds the weights a single joint applies to a mesh.
type WeightList struct {
	Weights []*VertexWeight `yaml:"weights"`
}

// Mesh is a triangle mesh. Weights is keyed by joint ID.
type Mesh struct {
	Name       string                 `yaml:"name"`
	MaterialID uint32                 `yaml:"materialID"`
	Vertices   []*Vertex              `yaml:"vertices"`
	Faces      []*Face                `yaml:"faces"`
	Weights    map[uint32]*WeightList `yaml:"weights,omitempty"`
}

// Joint is a skinning joint; the hierarchy node pointing at it carries
// the animated transform.
type Joint struct {
	InverseBind Mat4 `yaml:"inverseBind"`
}

// Texture is an encoded image. Format names the encoding ("png", "webp").
type Texture struct {
	Format string `yaml:"format,omitempty"`
	Data   []byte `yaml:"data"`
}

// Material holds surface parameters and embedded textures.
type Material struct {
	Name      string   `yaml:"name"`
	Shininess *float32 `yaml:"shininess,omitempty"`
	Diffuse   *Texture `yaml:"diffuse,omitempty"`
	Specular  *Texture `yaml:"specular,omitempty"`
	Normal    *Texture `yaml:"normal,omitempty"`
	Emissive  *Texture `yaml:"emissive,omitempty"`
}

// Vec3Key is a timed position or scale.
type Vec3Key struct {
	Time  float32 `yaml:"time"`
	Value Vec3    `yaml:"value"`
}

// QuatKey is a timed rotation (x, y, z, w).
type QuatKey struct {
	Time  float32 `yaml:"time"`
	Value Vec4    `yaml:"value"`
}

// Channel animates one hierarchy node.
type Channel struct {
	NodeID      uint32     `yaml:"nodeID"`
	PosFrames   []*Vec3Key `yaml:"posFrames,omitempty"`
	RotFrames   []*QuatKey `yaml:"rotFrames,omitempty"`
	ScaleFrames []*Vec3Key `yaml:"scaleFrames,omitempty"`
}

// Animation is a named clip. Duration is in ticks.
type Animation struct {
	Name     string     `yaml:"name"`
	Duration float32    `yaml:"duration"`
	TPS      float32    `yaml:"tps"`
	Channels []*Channel `yaml:"channels"`
}
