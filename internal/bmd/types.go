package bmd

// Model is a parsed BMD file.
type Model struct {
	Name    string
	Version byte
	Meshes  []Mesh
	Actions []Action
	Bones   []Bone
}

// Triangle holds polygon type and index quads into the vertex, normal and
// texcoord arrays. Polygon == 4 means quad (0-1-2-3), otherwise the first
// three indices are used.
type Triangle struct {
	Polygon int
	VI      [4]int16
	NI      [4]int16
	TI      [4]int16
}

// Corners returns how many of the index slots are in use.
func (t Triangle) Corners() int {
	if t.Polygon == 4 {
		return 4
	}
	return 3
}

// Mesh holds parsed geometry for one sub-mesh within a BMD file.
// Positions and normals are in the space of the bone named by the
// matching Nodes / NormalNodes entry.
type Mesh struct {
	Verts        [][3]float32
	Nodes        []int16 // bone index per vertex
	Normals      [][3]float32
	NormalNodes  []int16
	UVs          [][2]float32
	Tris         []Triangle
	TextureIndex int16
	TexPath      string // texture reference from BMD (e.g. "sword04.jpg")
}

// Action is one animation clip. Every non-dummy bone carries Keys frames
// for each action.
type Action struct {
	Keys          int
	LockPositions bool
	Positions     [][3]float32 // root motion, present when LockPositions
}

// BoneAction holds a bone's keyframes for one action.
type BoneAction struct {
	Positions [][3]float32
	Rotations [][3]float32 // Euler XYZ radians
}

// Bone is one node of the skeleton. Dummy bones occupy an index but carry
// no data.
type Bone struct {
	Name    string
	Parent  int
	IsDummy bool
	Actions []BoneAction
}

// BindPosition is the first position key of the first action, which the
// format uses as the bind pose.
func (b *Bone) BindPosition() [3]float32 {
	if len(b.Actions) == 0 || len(b.Actions[0].Positions) == 0 {
		return [3]float32{}
	}
	return b.Actions[0].Positions[0]
}

// BindRotation is the rotation counterpart of BindPosition.
func (b *Bone) BindRotation() [3]float32 {
	if len(b.Actions) == 0 || len(b.Actions[0].Rotations) == 0 {
		return [3]float32{}
	}
	return b.Actions[0].Rotations[0]
}
