// Package flatten converts an imported scene graph into a flat SOBJ
// document.
//
// The conversion runs in fixed passes because later passes depend on IDs
// handed out by earlier ones:
//
//  1. mesh IDs follow declaration order
//  2. instances are discovered by walking the graph
//  3. the root node is flattened first so it gets ID 0
//  4. nodes carrying instances are flattened
//  5. meshes are converted; their bones grow the joint table and the
//     hierarchy on demand
//  6. materials are converted
//  7. animations are converted last, against the final name→ID table
//
// Only nodes that carry an instance, drive a joint, or are ancestors of
// such a node end up in the hierarchy.
package flatten

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"sobjconv/internal/scene"
	"sobjconv/internal/sobj"
)

// TextureSource loads and encodes the image a material refers to.
type TextureSource interface {
	Load(path string) (*sobj.Texture, error)
}

// Options controls a conversion.
type Options struct {
	// Textures embeds material textures when non-nil.
	Textures TextureSource
}

// Result is a converted document plus the warnings raised on the way.
type Result struct {
	Document *sobj.Document
	Warnings []Warning
}

type flattener struct {
	sc   *scene.Scene
	opts Options
	doc  *sobj.Document

	nodes      map[string]*scene.Node // every source node by name
	meshIDs    map[*scene.Mesh]uint32
	nodeIDs    map[string]uint32
	jointIDs   map[string]uint32
	instanceAt []*scene.Node
	warnings   []Warning
}

// Flatten converts sc. Any hard error aborts the whole conversion and no
// document is returned.
func Flatten(sc *scene.Scene, opts Options) (*Result, error) {
	if sc == nil || sc.Root == nil {
		return nil, ErrNoRoot
	}

	f := &flattener{
		sc:       sc,
		opts:     opts,
		doc:      &sobj.Document{},
		nodes:    sc.Nodes(),
		meshIDs:  make(map[*scene.Mesh]uint32, len(sc.Meshes)),
		nodeIDs:  make(map[string]uint32),
		jointIDs: make(map[string]uint32),
	}

	for i, m := range sc.Meshes {
		f.meshIDs[m] = uint32(i)
	}

	if err := f.discoverInstances(sc.Root, mgl32.Ident4()); err != nil {
		return nil, err
	}

	f.flattenNode(sc.Root)
	for _, n := range f.instanceAt {
		f.ensureHierarchy(f.flattenNode(n))
	}

	for _, m := range sc.Meshes {
		cm, err := f.convertMesh(m)
		if err != nil {
			return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
		}
		f.doc.Meshes = append(f.doc.Meshes, cm)
	}

	for _, m := range sc.Materials {
		cm, err := f.convertMaterial(m)
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", m.Name, err)
		}
		f.doc.Materials = append(f.doc.Materials, cm)
	}

	for _, a := range sc.Animations {
		f.doc.Animations = append(f.doc.Animations, f.convertAnimation(a))
	}

	return &Result{Document: f.doc, Warnings: f.warnings}, nil
}

// discoverInstances records one instance per mesh attachment, carrying the
// transform accumulated from the root down to and including n.
func (f *flattener) discoverInstances(n *scene.Node, parent mgl32.Mat4) error {
	world := parent.Mul4(n.Transform)
	for _, mi := range n.Meshes {
		if mi < 0 || mi >= len(f.sc.Meshes) {
			return fmt.Errorf("node %q: mesh index %d out of range", n.Name, mi)
		}
		f.doc.Instances = append(f.doc.Instances, &sobj.Instance{
			MeshID:    f.meshIDs[f.sc.Meshes[mi]],
			Transform: toMat4(world),
		})
	}
	if len(n.Meshes) > 0 {
		f.instanceAt = append(f.instanceAt, n)
	}

	for _, c := range n.Children {
		if err := f.discoverInstances(c, world); err != nil {
			return err
		}
	}
	return nil
}

// flattenNode returns the hierarchy entry for n, creating it on first use.
func (f *flattener) flattenNode(n *scene.Node) uint32 {
	if id, ok := f.nodeIDs[n.Name]; ok {
		return id
	}

	id := uint32(len(f.doc.Hierarchy))
	f.doc.Hierarchy = append(f.doc.Hierarchy, &sobj.Node{
		Name:      n.Name,
		Transform: toMat4(n.Transform),
	})
	f.nodeIDs[n.Name] = id
	return id
}

// ensureHierarchy makes sure every ancestor of entry id exists and lists
// its child. It stops at the scene root or at a parent that already links
// the child, so repeated calls are harmless.
func (f *flattener) ensureHierarchy(id uint32) {
	n := f.nodes[f.doc.Hierarchy[id].Name]
	if n == nil || n.Parent == nil {
		return
	}

	parentID := f.flattenNode(n.Parent)
	parent := f.doc.Hierarchy[parentID]
	for _, c := range parent.Children {
		if c == id {
			return
		}
	}

	parent.Children = append(parent.Children, id)
	f.ensureHierarchy(parentID)
}

func (f *flattener) convertMesh(m *scene.Mesh) (*sobj.Mesh, error) {
	nv := len(m.Vertices)
	if err := m.CheckAttributes(); err != nil {
		return nil, err
	}

	var uvs []mgl32.Vec3
	if m.HasTexCoords() {
		if len(m.TexCoords) != 1 || len(m.NumUVComponents) == 0 || m.NumUVComponents[0] != 2 {
			return nil, fmt.Errorf("%w (got %d channels, components %v)", ErrUVChannel, len(m.TexCoords), m.NumUVComponents)
		}
		uvs = m.TexCoords[0]
	}

	if m.MaterialIndex < 0 || m.MaterialIndex >= len(f.sc.Materials) {
		return nil, fmt.Errorf("%w: material %d, %d materials", ErrMaterialIndex, m.MaterialIndex, len(f.sc.Materials))
	}

	cm := &sobj.Mesh{
		Name:       m.Name,
		MaterialID: uint32(m.MaterialIndex),
		Vertices:   make([]*sobj.Vertex, nv),
		Faces:      make([]*sobj.Face, 0, len(m.Faces)),
	}

	for i, p := range m.Vertices {
		v := &sobj.Vertex{Position: toVec3(p)}
		if len(m.Normals) > 0 {
			v.Normal = toVec3(m.Normals[i])
		}
		if len(m.Tangents) > 0 {
			v.Tangent = toVec3(m.Tangents[i])
		}
		if len(m.Bitangents) > 0 {
			v.Bitangent = toVec3(m.Bitangents[i])
		}
		if uvs != nil {
			v.UV = &sobj.Vec2{X: uvs[i][0], Y: uvs[i][1]}
		}
		cm.Vertices[i] = v
	}

	for fi, face := range m.Faces {
		if len(face.Indices) != 3 {
			return nil, fmt.Errorf("%w: face %d has %d indices", ErrNonTriangularFace, fi, len(face.Indices))
		}
		for _, idx := range face.Indices {
			if int(idx) >= nv {
				return nil, fmt.Errorf("%w: face %d index %d, %d vertices", ErrVertexIndex, fi, idx, nv)
			}
		}
		cm.Faces = append(cm.Faces, &sobj.Face{A: face.Indices[0], B: face.Indices[1], C: face.Indices[2]})
	}

	for _, b := range m.Bones {
		jointID, err := f.convertBone(b)
		if err != nil {
			return nil, err
		}

		if cm.Weights == nil {
			cm.Weights = make(map[uint32]*sobj.WeightList)
		}
		wl := cm.Weights[jointID]
		if wl == nil {
			wl = &sobj.WeightList{}
			cm.Weights[jointID] = wl
		}
		for _, w := range b.Weights {
			if int(w.VertexID) >= nv {
				return nil, fmt.Errorf("%w: bone %q weight on vertex %d, %d vertices", ErrVertexIndex, b.Name, w.VertexID, nv)
			}
			wl.Weights = append(wl.Weights, &sobj.VertexWeight{Vertex: w.VertexID, Weight: w.Weight})
		}
	}

	return cm, nil
}

// convertBone resolves the shared joint for b and wires its hierarchy
// entry. Meshes may share bones; the first one seen defines the joint.
func (f *flattener) convertBone(b *scene.Bone) (uint32, error) {
	jointID, ok := f.jointIDs[b.Name]
	if !ok {
		jointID = uint32(len(f.doc.Joints))
		f.jointIDs[b.Name] = jointID
		f.doc.Joints = append(f.doc.Joints, &sobj.Joint{InverseBind: toMat4(b.OffsetMatrix)})
	}

	n := f.nodes[b.Name]
	if n == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownBoneNode, b.Name)
	}

	id := f.flattenNode(n)
	entry := f.doc.Hierarchy[id]
	jid := jointID
	entry.JointID = &jid
	f.ensureHierarchy(id)
	return jointID, nil
}

func (f *flattener) convertMaterial(m *scene.Material) (*sobj.Material, error) {
	cm := &sobj.Material{Name: m.Name}
	if m.Shininess != nil {
		s := *m.Shininess
		cm.Shininess = &s
	}

	if f.opts.Textures == nil {
		return cm, nil
	}

	slots := map[scene.TextureType]**sobj.Texture{
		scene.TextureDiffuse:  &cm.Diffuse,
		scene.TextureSpecular: &cm.Specular,
		scene.TextureNormal:   &cm.Normal,
		scene.TextureEmissive: &cm.Emissive,
	}
	for _, tt := range scene.TextureTypes {
		path, ok := m.Textures[tt]
		if !ok || path == "" {
			continue
		}
		tex, err := f.opts.Textures.Load(path)
		if err != nil {
			return nil, fmt.Errorf("%s texture: %w", tt, err)
		}
		*slots[tt] = tex
	}
	return cm, nil
}

func (f *flattener) convertAnimation(a *scene.Animation) *sobj.Animation {
	ca := &sobj.Animation{
		Name:     a.Name,
		Duration: float32(a.Duration),
		TPS:      float32(a.TicksPerSecond),
	}

	for _, c := range a.Channels {
		id, ok := f.nodeIDs[c.NodeName]
		if !ok {
			f.warnings = append(f.warnings, Warning{Animation: a.Name, Node: c.NodeName})
			continue
		}

		cc := &sobj.Channel{NodeID: id}
		for _, k := range c.PositionKeys {
			cc.PosFrames = append(cc.PosFrames, &sobj.Vec3Key{Time: float32(k.Time), Value: toVec3(k.Value)})
		}
		for _, k := range c.RotationKeys {
			cc.RotFrames = append(cc.RotFrames, &sobj.QuatKey{Time: float32(k.Time), Value: toQuat(k.Value)})
		}
		for _, k := range c.ScalingKeys {
			cc.ScaleFrames = append(cc.ScaleFrames, &sobj.Vec3Key{Time: float32(k.Time), Value: toVec3(k.Value)})
		}
		ca.Channels = append(ca.Channels, cc)
	}
	return ca
}
