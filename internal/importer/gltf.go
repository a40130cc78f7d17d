package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"sobjconv/internal/mathutil"
	"sobjconv/internal/scene"
)

var errNoPositions = errors.New("primitive has no POSITION attribute")

var identity64 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// gltfImport carries the state of one glTF/GLB conversion.
type gltfImport struct {
	doc   *gltf.Document
	sc    *scene.Scene
	names *scene.NameSet

	nodes      map[int]*scene.Node // glTF node index -> scene node
	meshPrims  [][]int             // glTF mesh index -> scene mesh indices
	meshSkin   map[int]int         // glTF mesh index -> skin bound to it
	images     map[int]string      // glTF image index -> texture reference
	defaultMat int
}

// decodeGLTF converts a glTF JSON or GLB document. Buffers and images must be
// embedded or data URIs; external files are not reachable from a stream.
func decodeGLTF(data []byte, _ Options) (*scene.Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	g := &gltfImport{
		doc:        doc,
		sc:         &scene.Scene{},
		names:      scene.NewNameSet(),
		nodes:      make(map[int]*scene.Node),
		meshSkin:   make(map[int]int),
		images:     make(map[int]string),
		defaultMat: -1,
	}

	roots, sceneName := g.rootNodes()
	g.sc.Root = &scene.Node{Name: g.names.Unique(sceneName, "Scene"), Transform: mgl32.Ident4()}

	for _, idx := range roots {
		if err := g.buildNode(idx, g.sc.Root, 0); err != nil {
			return nil, err
		}
	}
	g.bindSkins()

	if err := g.convertMaterials(); err != nil {
		return nil, err
	}
	if err := g.convertMeshes(); err != nil {
		return nil, err
	}
	for idx, n := range g.nodes {
		if m := doc.Nodes[idx].Mesh; m != nil {
			n.Meshes = append(n.Meshes, g.meshPrims[*m]...)
		}
	}
	if err := g.convertAnimations(); err != nil {
		return nil, err
	}
	return g.sc, nil
}

// rootNodes returns the top-level nodes of the default scene. Without
// scenes every node that is nobody's child is a root.
func (g *gltfImport) rootNodes() ([]int, string) {
	doc := g.doc
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			si = *doc.Scene
		}
		return doc.Scenes[si].Nodes, doc.Scenes[si].Name
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots, ""
}

func (g *gltfImport) buildNode(idx int, parent *scene.Node, depth int) error {
	if idx < 0 || idx >= len(g.doc.Nodes) {
		return fmt.Errorf("node index %d out of range", idx)
	}
	if _, seen := g.nodes[idx]; seen {
		return fmt.Errorf("node %d is reachable twice", idx)
	}
	if depth > len(g.doc.Nodes) {
		return fmt.Errorf("node hierarchy has a cycle at node %d", idx)
	}

	src := g.doc.Nodes[idx]
	n := &scene.Node{
		Name:      g.names.Unique(src.Name, "node_"+strconv.Itoa(idx)),
		Transform: nodeTransform(src),
	}
	parent.AddChild(n)
	g.nodes[idx] = n

	for _, c := range src.Children {
		if err := g.buildNode(c, n, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func nodeTransform(n *gltf.Node) mgl32.Mat4 {
	if m := n.MatrixOrDefault(); m != identity64 {
		return mathutil.FromColumnMajor64(m)
	}
	t := n.TranslationOrDefault()
	s := n.ScaleOrDefault()
	return mathutil.TRS(
		mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])},
		mathutil.QuatFromXYZW(n.RotationOrDefault()),
		mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])},
	)
}

// bindSkins records which skin deforms each mesh. The first skinned node
// referencing a mesh wins.
func (g *gltfImport) bindSkins() {
	for idx := range g.nodes {
		src := g.doc.Nodes[idx]
		if src.Mesh == nil || src.Skin == nil {
			continue
		}
		if _, ok := g.meshSkin[*src.Mesh]; !ok {
			g.meshSkin[*src.Mesh] = *src.Skin
		}
	}
}

// nodeName returns the scene name of a glTF node, falling back to its
// source name when the node is outside the imported scene.
func (g *gltfImport) nodeName(idx int) string {
	if n, ok := g.nodes[idx]; ok {
		return n.Name
	}
	if idx >= 0 && idx < len(g.doc.Nodes) {
		if name := g.doc.Nodes[idx].Name; name != "" {
			return name
		}
	}
	return "node_" + strconv.Itoa(idx)
}

func (g *gltfImport) convertMaterials() error {
	for i, m := range g.doc.Materials {
		mat := &scene.Material{
			Name:     m.Name,
			Textures: map[scene.TextureType]string{},
		}
		if mat.Name == "" {
			mat.Name = "material_" + strconv.Itoa(i)
		}
		if pbr := m.PBRMetallicRoughness; pbr != nil {
			r := float32(1)
			if pbr.RoughnessFactor != nil {
				r = float32(*pbr.RoughnessFactor)
			}
			shininess := (1 - r) * (1 - r) * 1000
			mat.Shininess = &shininess
			if pbr.BaseColorTexture != nil {
				if err := g.setTexture(mat, scene.TextureDiffuse, pbr.BaseColorTexture.Index); err != nil {
					return fmt.Errorf("material %q: %w", mat.Name, err)
				}
			}
			// The metal/roughness map is the closest glTF core has to a
			// specular map.
			if pbr.MetallicRoughnessTexture != nil {
				if err := g.setTexture(mat, scene.TextureSpecular, pbr.MetallicRoughnessTexture.Index); err != nil {
					return fmt.Errorf("material %q: %w", mat.Name, err)
				}
			}
		}
		if m.NormalTexture != nil && m.NormalTexture.Index != nil {
			if err := g.setTexture(mat, scene.TextureNormal, *m.NormalTexture.Index); err != nil {
				return fmt.Errorf("material %q: %w", mat.Name, err)
			}
		}
		if m.EmissiveTexture != nil {
			if err := g.setTexture(mat, scene.TextureEmissive, m.EmissiveTexture.Index); err != nil {
				return fmt.Errorf("material %q: %w", mat.Name, err)
			}
		}
		g.sc.Materials = append(g.sc.Materials, mat)
	}
	return nil
}

func (g *gltfImport) setTexture(mat *scene.Material, slot scene.TextureType, texIdx int) error {
	if texIdx < 0 || texIdx >= len(g.doc.Textures) {
		return fmt.Errorf("texture index %d out of range", texIdx)
	}
	src := g.doc.Textures[texIdx].Source
	if src == nil {
		return nil
	}
	ref, err := g.imageRef(*src)
	if err != nil {
		return err
	}
	if ref != "" {
		mat.Textures[slot] = ref
	}
	return nil
}

// imageRef returns "*N" for images stored in the document and the URI
// for external ones.
func (g *gltfImport) imageRef(idx int) (string, error) {
	if ref, ok := g.images[idx]; ok {
		return ref, nil
	}
	if idx < 0 || idx >= len(g.doc.Images) {
		return "", fmt.Errorf("image index %d out of range", idx)
	}
	img := g.doc.Images[idx]

	var data []byte
	switch {
	case img.BufferView != nil:
		if *img.BufferView >= len(g.doc.BufferViews) {
			return "", fmt.Errorf("image %d: buffer view %d out of range", idx, *img.BufferView)
		}
		b, err := modeler.ReadBufferView(g.doc, g.doc.BufferViews[*img.BufferView])
		if err != nil {
			return "", fmt.Errorf("image %d: %w", idx, err)
		}
		data = b
	case img.IsEmbeddedResource():
		b, err := img.MarshalData()
		if err != nil {
			return "", fmt.Errorf("image %d: %w", idx, err)
		}
		data = b
	default:
		g.images[idx] = img.URI
		return img.URI, nil
	}

	ref := "*" + strconv.Itoa(len(g.sc.Textures))
	g.sc.Textures = append(g.sc.Textures, &scene.EmbeddedTexture{
		Hint: strings.TrimPrefix(img.MimeType, "image/"),
		Data: data,
	})
	g.images[idx] = ref
	return ref, nil
}

func (g *gltfImport) materialIndex(m *int) int {
	if m != nil && *m >= 0 && *m < len(g.doc.Materials) {
		return *m
	}
	if g.defaultMat < 0 {
		g.defaultMat = len(g.sc.Materials)
		g.sc.Materials = append(g.sc.Materials, defaultMaterial())
	}
	return g.defaultMat
}

func (g *gltfImport) convertMeshes() error {
	g.meshPrims = make([][]int, len(g.doc.Meshes))
	for mi, m := range g.doc.Meshes {
		name := m.Name
		if name == "" {
			name = "mesh_" + strconv.Itoa(mi)
		}
		for pi, p := range m.Primitives {
			mesh, err := g.convertPrimitive(p, mi)
			if err != nil {
				return fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
			}
			mesh.Name = name
			g.meshPrims[mi] = append(g.meshPrims[mi], len(g.sc.Meshes))
			g.sc.Meshes = append(g.sc.Meshes, mesh)
		}
	}
	return nil
}

func (g *gltfImport) accessor(attr string, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(g.doc.Accessors) {
		return nil, fmt.Errorf("%s: accessor %d out of range", attr, idx)
	}
	return g.doc.Accessors[idx], nil
}

func (g *gltfImport) convertPrimitive(p *gltf.Primitive, meshIdx int) (*scene.Mesh, error) {
	doc := g.doc
	mesh := &scene.Mesh{MaterialIndex: g.materialIndex(p.Material)}

	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, errNoPositions
	}
	acr, err := g.accessor(gltf.POSITION, posIdx)
	if err != nil {
		return nil, err
	}
	pos, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	for _, v := range pos {
		mesh.Vertices = append(mesh.Vertices, mgl32.Vec3(v))
	}

	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		acr, err := g.accessor(gltf.NORMAL, idx)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
		for _, n := range normals {
			mesh.Normals = append(mesh.Normals, mgl32.Vec3(n))
		}
	}

	if idx, ok := p.Attributes[gltf.TANGENT]; ok && len(mesh.Normals) == len(mesh.Vertices) {
		acr, err := g.accessor(gltf.TANGENT, idx)
		if err != nil {
			return nil, err
		}
		tangents, err := modeler.ReadTangent(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read tangents: %w", err)
		}
		for i, t := range tangents {
			tan := mgl32.Vec3{t[0], t[1], t[2]}
			mesh.Tangents = append(mesh.Tangents, tan)
			if i < len(mesh.Normals) {
				mesh.Bitangents = append(mesh.Bitangents, mesh.Normals[i].Cross(tan).Mul(t[3]))
			}
		}
	}

	for ch := 0; ; ch++ {
		attr := "TEXCOORD_" + strconv.Itoa(ch)
		idx, ok := p.Attributes[attr]
		if !ok {
			break
		}
		acr, err := g.accessor(attr, idx)
		if err != nil {
			return nil, err
		}
		uv, err := modeler.ReadTextureCoord(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", attr, err)
		}
		coords := make([]mgl32.Vec3, len(uv))
		for i, c := range uv {
			coords[i] = mgl32.Vec3{c[0], c[1], 0}
		}
		mesh.TexCoords = append(mesh.TexCoords, coords)
		mesh.NumUVComponents = append(mesh.NumUVComponents, 2)
	}

	indices, err := g.primitiveIndices(p, len(mesh.Vertices))
	if err != nil {
		return nil, err
	}
	faces, err := primitiveFaces(p.Mode, indices)
	if err != nil {
		return nil, err
	}
	mesh.Faces = faces

	if skin, ok := g.meshSkin[meshIdx]; ok {
		bones, err := g.primitiveBones(p, skin)
		if err != nil {
			return nil, err
		}
		mesh.Bones = bones
	}
	return mesh, nil
}

func (g *gltfImport) primitiveIndices(p *gltf.Primitive, count int) ([]uint32, error) {
	if p.Indices == nil {
		out := make([]uint32, count)
		for i := range out {
			out[i] = uint32(i)
		}
		return out, nil
	}
	acr, err := g.accessor("indices", *p.Indices)
	if err != nil {
		return nil, err
	}
	out, err := modeler.ReadIndices(g.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read indices: %w", err)
	}
	return out, nil
}

// primitiveFaces groups an index stream into faces for the primitive
// mode. Strips and fans become triangles, loops and strips of lines
// become line segments.
func primitiveFaces(mode gltf.PrimitiveMode, idx []uint32) ([]scene.Face, error) {
	var faces []scene.Face
	add := func(ids ...uint32) {
		faces = append(faces, scene.Face{Indices: ids})
	}

	switch mode {
	case gltf.PrimitiveTriangles:
		for i := 0; i+2 < len(idx); i += 3 {
			add(idx[i], idx[i+1], idx[i+2])
		}
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				add(idx[i], idx[i+1], idx[i+2])
			} else {
				add(idx[i+1], idx[i], idx[i+2])
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			add(idx[0], idx[i], idx[i+1])
		}
	case gltf.PrimitivePoints:
		for _, i := range idx {
			add(i)
		}
	case gltf.PrimitiveLines:
		for i := 0; i+1 < len(idx); i += 2 {
			add(idx[i], idx[i+1])
		}
	case gltf.PrimitiveLineStrip, gltf.PrimitiveLineLoop:
		for i := 0; i+1 < len(idx); i++ {
			add(idx[i], idx[i+1])
		}
		if mode == gltf.PrimitiveLineLoop && len(idx) > 2 {
			add(idx[len(idx)-1], idx[0])
		}
	default:
		return nil, fmt.Errorf("unsupported primitive mode %d", mode)
	}
	return faces, nil
}

// primitiveBones turns JOINTS_0/WEIGHTS_0 into one bone per joint that has
// a non-zero influence, named after the joint's node.
func (g *gltfImport) primitiveBones(p *gltf.Primitive, skinIdx int) ([]*scene.Bone, error) {
	if skinIdx < 0 || skinIdx >= len(g.doc.Skins) {
		return nil, fmt.Errorf("skin %d out of range", skinIdx)
	}
	jIdx, hasJ := p.Attributes[gltf.JOINTS_0]
	wIdx, hasW := p.Attributes[gltf.WEIGHTS_0]
	if !hasJ || !hasW {
		return nil, nil
	}
	skin := g.doc.Skins[skinIdx]

	jAcr, err := g.accessor(gltf.JOINTS_0, jIdx)
	if err != nil {
		return nil, err
	}
	joints, err := modeler.ReadJoints(g.doc, jAcr, nil)
	if err != nil {
		return nil, fmt.Errorf("read joints: %w", err)
	}
	wAcr, err := g.accessor(gltf.WEIGHTS_0, wIdx)
	if err != nil {
		return nil, err
	}
	weights, err := modeler.ReadWeights(g.doc, wAcr, nil)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	if len(joints) != len(weights) {
		return nil, fmt.Errorf("%d joint sets for %d weight sets", len(joints), len(weights))
	}

	var inverse [][4][4]float32
	if skin.InverseBindMatrices != nil {
		acr, err := g.accessor("inverseBindMatrices", *skin.InverseBindMatrices)
		if err != nil {
			return nil, err
		}
		data, err := modeler.ReadAccessor(g.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read inverse bind matrices: %w", err)
		}
		m, ok := data.([][4][4]float32)
		if !ok {
			return nil, fmt.Errorf("inverse bind matrices have type %T", data)
		}
		inverse = m
	}

	bones := make(map[int]*scene.Bone)
	var order []int
	for v := range joints {
		for k := 0; k < 4; k++ {
			w := weights[v][k]
			if w == 0 {
				continue
			}
			j := int(joints[v][k])
			if j >= len(skin.Joints) {
				return nil, fmt.Errorf("vertex %d: joint %d out of range", v, j)
			}
			bone, ok := bones[j]
			if !ok {
				bone = &scene.Bone{Name: g.nodeName(skin.Joints[j]), OffsetMatrix: mgl32.Ident4()}
				if j < len(inverse) {
					bone.OffsetMatrix = columnsToMat4(inverse[j])
				}
				bones[j] = bone
				order = append(order, j)
			}
			bone.Weights = append(bone.Weights, scene.VertexWeight{VertexID: uint32(v), Weight: w})
		}
	}

	out := make([]*scene.Bone, 0, len(order))
	for _, j := range order {
		out = append(out, bones[j])
	}
	return out, nil
}

// columnsToMat4 converts an accessor matrix, stored as four columns.
func columnsToMat4(c [4][4]float32) mgl32.Mat4 {
	var m mgl32.Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			m[col*4+row] = c[col][row]
		}
	}
	return m
}

func (g *gltfImport) convertAnimations() error {
	for ai, a := range g.doc.Animations {
		anim := &scene.Animation{Name: a.Name, TicksPerSecond: 1}
		if anim.Name == "" {
			anim.Name = "animation_" + strconv.Itoa(ai)
		}
		byNode := make(map[int]*scene.NodeAnim)
		var order []int

		for ci, ch := range a.Channels {
			if ch.Target.Node == nil {
				continue
			}
			if ch.Sampler < 0 || ch.Sampler >= len(a.Samplers) {
				return fmt.Errorf("animation %q channel %d: sampler %d out of range", anim.Name, ci, ch.Sampler)
			}
			node := *ch.Target.Node
			na, ok := byNode[node]
			if !ok {
				na = &scene.NodeAnim{NodeName: g.nodeName(node)}
				byNode[node] = na
				order = append(order, node)
			}
			end, err := g.readChannel(na, a.Samplers[ch.Sampler], ch.Target.Path)
			if err != nil {
				return fmt.Errorf("animation %q channel %d: %w", anim.Name, ci, err)
			}
			if end > anim.Duration {
				anim.Duration = end
			}
		}

		for _, node := range order {
			na := byNode[node]
			if len(na.PositionKeys)+len(na.RotationKeys)+len(na.ScalingKeys) > 0 {
				anim.Channels = append(anim.Channels, na)
			}
		}
		g.sc.Animations = append(g.sc.Animations, anim)
	}
	return nil
}

// readChannel appends the keys of one sampler to na and returns the time
// of its last key. Cubic spline outputs keep only the value element.
func (g *gltfImport) readChannel(na *scene.NodeAnim, s *gltf.AnimationSampler, path gltf.TRSProperty) (float64, error) {
	if path != gltf.TRSTranslation && path != gltf.TRSRotation && path != gltf.TRSScale {
		return 0, nil
	}

	in, err := g.accessor("input", s.Input)
	if err != nil {
		return 0, err
	}
	raw, err := modeler.ReadAccessor(g.doc, in, nil)
	if err != nil {
		return 0, fmt.Errorf("read input: %w", err)
	}
	times, ok := raw.([]float32)
	if !ok {
		return 0, fmt.Errorf("input has type %T", raw)
	}

	out, err := g.accessor("output", s.Output)
	if err != nil {
		return 0, err
	}
	raw, err = modeler.ReadAccessor(g.doc, out, nil)
	if err != nil {
		return 0, fmt.Errorf("read output: %w", err)
	}

	stride, offset := 1, 0
	if s.Interpolation == gltf.InterpolationCubicSpline {
		stride, offset = 3, 1
	}
	value := func(n, k int) (int, error) {
		i := k*stride + offset
		if i >= n {
			return 0, fmt.Errorf("output has %d values for %d keys", n, len(times))
		}
		return i, nil
	}

	switch path {
	case gltf.TRSTranslation, gltf.TRSScale:
		vs, ok := raw.([][3]float32)
		if !ok {
			return 0, fmt.Errorf("%v output has type %T", path, raw)
		}
		for k, t := range times {
			i, err := value(len(vs), k)
			if err != nil {
				return 0, err
			}
			key := scene.VectorKey{Time: float64(t), Value: mgl32.Vec3(vs[i])}
			if path == gltf.TRSTranslation {
				na.PositionKeys = append(na.PositionKeys, key)
			} else {
				na.ScalingKeys = append(na.ScalingKeys, key)
			}
		}
	case gltf.TRSRotation:
		qs, ok := raw.([][4]float32)
		if !ok {
			return 0, fmt.Errorf("rotation output has type %T", raw)
		}
		for k, t := range times {
			i, err := value(len(qs), k)
			if err != nil {
				return 0, err
			}
			q := mathutil.XYZWToQuat(mgl32.Vec4(qs[i]))
			na.RotationKeys = append(na.RotationKeys, scene.QuatKey{Time: float64(t), Value: q})
		}
	}

	if len(times) == 0 {
		return 0, nil
	}
	return float64(times[len(times)-1]), nil
}
