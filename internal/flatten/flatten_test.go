package flatten

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"sobjconv/internal/mathutil"
	"sobjconv/internal/scene"
	"sobjconv/internal/sobj"
)

func triangleMesh(name string) *scene.Mesh {
	return &scene.Mesh{
		Name:     name,
		Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:  []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Faces:    []scene.Face{{Indices: []uint32{0, 1, 2}}},
	}
}

// fromQuat undoes toQuat.
func fromQuat(v sobj.Vec4) mgl32.Quat {
	return mathutil.XYZWToQuat(mgl32.Vec4{v.X, v.Y, v.Z, v.W})
}

func plainMaterials() []*scene.Material {
	return []*scene.Material{{Name: "DefaultMaterial"}}
}

func link(parent *scene.Node, children ...*scene.Node) *scene.Node {
	for _, c := range children {
		parent.AddChild(c)
	}
	return parent
}

func TestSingleMeshScene(t *testing.T) {
	root := &scene.Node{Name: "Root", Transform: mgl32.Ident4(), Meshes: []int{0}}
	sc := &scene.Scene{Root: root, Materials: plainMaterials(), Meshes: []*scene.Mesh{triangleMesh("Tri")}}

	res, err := Flatten(sc, Options{})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	doc := res.Document
	if len(doc.Hierarchy) != 1 || doc.Hierarchy[0].Name != "Root" {
		t.Fatalf("expected only the root in the hierarchy, got %+v", doc.Hierarchy)
	}
	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Vertices) != 3 || len(doc.Meshes[0].Faces) != 1 {
		t.Fatalf("unexpected meshes: %+v", doc.Meshes)
	}
	if len(doc.Joints) != 0 || len(doc.Animations) != 0 {
		t.Fatalf("expected no joints or animations, got %d/%d", len(doc.Joints), len(doc.Animations))
	}
	if len(doc.Instances) != 1 || doc.Instances[0].MeshID != 0 {
		t.Fatalf("expected one instance of mesh 0, got %+v", doc.Instances)
	}
	if doc.Meshes[0].Vertices[0].UV != nil {
		t.Fatal("expected no UV on a mesh without texture coordinates")
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestRootAlwaysFirst(t *testing.T) {
	root := &scene.Node{Name: "Root", Transform: mgl32.Ident4()}
	a := &scene.Node{Name: "A", Transform: mgl32.Ident4()}
	b := &scene.Node{Name: "B", Transform: mgl32.Ident4(), Meshes: []int{0}}
	link(root, link(a, b))
	sc := &scene.Scene{Root: root, Materials: plainMaterials(), Meshes: []*scene.Mesh{triangleMesh("Tri")}}

	res, err := Flatten(sc, Options{})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	h := res.Document.Hierarchy
	if h[0].Name != "Root" {
		t.Fatalf("expected Root at ID 0, got %q", h[0].Name)
	}
	if len(h) != 3 {
		t.Fatalf("expected Root, A and B, got %d entries", len(h))
	}
	ids := map[string]uint32{}
	for i, n := range h {
		ids[n.Name] = uint32(i)
	}
	if got := h[0].Children; len(got) != 1 || got[0] != ids["A"] {
		t.Fatalf("root children = %v, want [%d]", got, ids["A"])
	}
	if got := h[ids["A"]].Children; len(got) != 1 || got[0] != ids["B"] {
		t.Fatalf("A children = %v, want [%d]", got, ids["B"])
	}
}

func TestUnneededNodesArePruned(t *testing.T) {
	root := &scene.Node{Name: "Root", Transform: mgl32.Ident4(), Meshes: []int{0}}
	link(root, &scene.Node{Name: "Camera", Transform: mgl32.Ident4()}, &scene.Node{Name: "Light", Transform: mgl32.Ident4()})
	sc := &scene.Scene{Root: root, Materials: plainMaterials(), Meshes: []*scene.Mesh{triangleMesh("Tri")}}

	res, err := Flatten(sc, Options{})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	if len(res.Document.Hierarchy) != 1 {
		t.Fatalf("expected unused nodes to be pruned, got %d entries", len(res.Document.Hierarchy))
	}
}

func TestInstanceCarriesAccumulatedTransform(t *testing.T) {
	root := &scene.Node{Name: "Root", Transform: mgl32.Translate3D(1, 0, 0)}
	child := &scene.Node{Name: "Child", Transform: mgl32.Translate3D(0, 2, 0), Meshes: []int{0}}
	link(root, child)
	sc := &scene.Scene{Root: root, Materials: plainMaterials(), Meshes: []*scene.Mesh{triangleMesh("Tri")}}

	res, err := Flatten(sc, Options{})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	want := toMat4(mgl32.Translate3D(1, 2, 0))
	if got := res.Document.Instances[0].Transform; got != want {
		t.Fatalf("instance transform = %+v, want %+v", got, want)
	}
	if got := res.Document.Hierarchy[1].Transform; got != toMat4(child.Transform) {
		t.Fatalf("hierarchy entry should keep the local transform, got %+v", got)
	}
}

func TestUVChannelMustHaveTwoComponents(t *testing.T) {
	m := triangleMesh("Tri")
	m.TexCoords = [][]mgl32.Vec3{{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
	m.NumUVComponents = []int{3}
	sc := &scene.Scene{Root: &scene.Node{Name: "Root", Meshes: []int{0}}, Materials: plainMaterials(), Meshes: []*scene.Mesh{m}}

	res, err := Flatten(sc, Options{})
	if !errors.Is(err, ErrUVChannel) {
		t.Fatalf("expected ErrUVChannel, got %v", err)
	}
	if res != nil {
		t.Fatal("expected no result on failure")
	}
}

func TestUVChannelConverted(t *testing.T) {
	m := triangleMesh("Tri")
	m.TexCoords = [][]mgl32.Vec3{{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
	m.NumUVComponents = []int{2}
	sc := &scene.Scene{Root: &scene.Node{Name: "Root", Meshes: []int{0}}, Materials: plainMaterials(), Meshes: []*scene.Mesh{m}}

	res, err := Flatten(sc, Options{})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	uv := res.Document.Meshes[0].Vertices[2].UV
	if uv == nil || *uv != (sobj.Vec2{X: 0, Y: 1}) {
		t.Fatalf("unexpected uv %v", uv)
	}
}

func TestUVChannelZeroEmptyStillChecked(t *testing.T) {
	m := triangleMesh("Tri")
	m.TexCoords = [][]mgl32.Vec3{nil, {{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
	m.NumUVComponents = []int{0, 2}
	sc := &scene.Scene{Root: &scene.Node{Name: "Root", Meshes: []int{0}}, Materials: plainMaterials(), Meshes: []*scene.Mesh{m}}

	if _, err := Flatten(sc, Options{}); !errors.Is(err, ErrUVChannel) {
		t.Fatalf("expected ErrUVChannel, got %v", err)
	}
}

func TestMaterialIndexOutOfRangeFails(t *testing.T) {
	tests := []struct {
		name  string
		index int
	}{
		{"past end", 3},
		{"negative", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := triangleMesh("Tri")
			m.MaterialIndex = tt.index
			sc := &scene.Scene{Root: &scene.Node{Name: "Root", Meshes: []int{0}}, Materials: plainMaterials(), Meshes: []*scene.Mesh{m}}

			_, err := Flatten(sc, Options{})
			if !errors.Is(err, ErrMaterialIndex) {
				t.Fatalf("expected ErrMaterialIndex, got %v", err)
			}
			if strings.HasPrefix(err.Error(), "flatten:") {
				t.Fatalf("error carries the caller's prefix: %q", err)
			}
		})
	}
}

func TestNonTriangularFaceFails(t *testing.T) {
	m := triangleMesh("Quad")
	m.Vertices = append(m.Vertices, mgl32.Vec3{1, 1, 0})
	m.Normals = append(m.Normals, mgl32.Vec3{0, 0, 1})
	m.Faces = []scene.Face{{Indices: []uint32{0, 1, 3, 2}}}
	sc := &scene.Scene{Root: &scene.Node{Name: "Root", Meshes: []int{0}}, Materials: plainMaterials(), Meshes: []*scene.Mesh{m}}

	if _, err := Flatten(sc, Options{}); !errors.Is(err, ErrNonTriangularFace) {
		t.Fatalf("expected ErrNonTriangularFace, got %v", err)
	}
}

func TestAttributeLengthMismatchFails(t *testing.T) {
	m := triangleMesh("Tri")
	m.Normals = m.Normals[:2]
	sc := &scene.Scene{Root: &scene.Node{Name: "Root"}, Materials: plainMaterials(), Meshes: []*scene.Mesh{m}}

	if _, err := Flatten(sc, Options{}); !errors.Is(err, ErrAttributeLength) {
		t.Fatalf("expected ErrAttributeLength, got %v", err)
	}
}

func TestFaceIndexOutOfRangeFails(t *testing.T) {
	m := triangleMesh("Tri")
	m.Faces = []scene.Face{{Indices: []uint32{0, 1, 7}}}
	sc := &scene.Scene{Root: &scene.Node{Name: "Root"}, Materials: plainMaterials(), Meshes: []*scene.Mesh{m}}

	if _, err := Flatten(sc, Options{}); !errors.Is(err, ErrVertexIndex) {
		t.Fatalf("expected ErrVertexIndex, got %v", err)
	}
}

func skinnedScene() *scene.Scene {
	root := &scene.Node{Name: "Root", Transform: mgl32.Ident4()}
	armature := &scene.Node{Name: "Armature", Transform: mgl32.Ident4()}
	hips := &scene.Node{Name: "Hips", Transform: mgl32.Translate3D(0, 1, 0)}
	spine := &scene.Node{Name: "Spine", Transform: mgl32.Translate3D(0, 0.5, 0)}
	body := &scene.Node{Name: "Body", Transform: mgl32.Ident4(), Meshes: []int{0, 1}}
	link(root, link(armature, link(hips, spine)), body)

	inv := mgl32.Translate3D(0, -1.5, 0)
	a := triangleMesh("Torso")
	a.Bones = []*scene.Bone{
		{Name: "Spine", OffsetMatrix: inv, Weights: []scene.VertexWeight{{VertexID: 0, Weight: 1}, {VertexID: 1, Weight: 0.5}}},
		{Name: "Hips", OffsetMatrix: mgl32.Translate3D(0, -1, 0), Weights: []scene.VertexWeight{{VertexID: 1, Weight: 0.5}}},
	}
	b := triangleMesh("Arms")
	b.Bones = []*scene.Bone{
		{Name: "Spine", OffsetMatrix: inv, Weights: []scene.VertexWeight{{VertexID: 2, Weight: 1}}},
	}
	return &scene.Scene{Root: root, Materials: plainMaterials(), Meshes: []*scene.Mesh{a, b}}
}

func TestSharedBoneCreatesOneJoint(t *testing.T) {
	res, err := Flatten(skinnedScene(), Options{})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	doc := res.Document
	if len(doc.Joints) != 2 {
		t.Fatalf("expected 2 joints (Spine, Hips), got %d", len(doc.Joints))
	}

	var spineID *uint32
	for _, n := range doc.Hierarchy {
		if n.Name == "Spine" {
			spineID = n.JointID
		}
	}
	if spineID == nil {
		t.Fatal("expected Spine hierarchy entry to carry a joint ID")
	}
	for _, m := range doc.Meshes {
		if _, ok := m.Weights[*spineID]; !ok {
			t.Fatalf("mesh %s has no weights for Spine joint %d: %v", m.Name, *spineID, m.Weights)
		}
	}
	if got := doc.Joints[*spineID].InverseBind; got != toMat4(mgl32.Translate3D(0, -1.5, 0)) {
		t.Fatalf("unexpected Spine inverse bind %+v", got)
	}
}

func TestBonesPullInAncestors(t *testing.T) {
	res, err := Flatten(skinnedScene(), Options{})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	h := res.Document.Hierarchy
	ids := map[string]uint32{}
	for i, n := range h {
		if _, dup := ids[n.Name]; dup {
			t.Fatalf("duplicate hierarchy entry %q", n.Name)
		}
		ids[n.Name] = uint32(i)
	}
	for _, name := range []string{"Root", "Body", "Armature", "Hips", "Spine"} {
		if _, ok := ids[name]; !ok {
			t.Fatalf("expected %s in hierarchy, got %v", name, ids)
		}
	}
	if ids["Root"] != 0 {
		t.Fatalf("root ID = %d", ids["Root"])
	}
	if c := h[ids["Hips"]].Children; len(c) != 1 || c[0] != ids["Spine"] {
		t.Fatalf("Hips children = %v", c)
	}
	if c := h[ids["Armature"]].Children; len(c) != 1 || c[0] != ids["Hips"] {
		t.Fatalf("Armature children = %v", c)
	}
	if c := h[0].Children; len(c) != 2 {
		t.Fatalf("Root children = %v, want Body and Armature", c)
	}
}

func TestEnsureHierarchyIsIdempotent(t *testing.T) {
	sc := skinnedScene()
	f := &flattener{
		sc:       sc,
		doc:      &sobj.Document{},
		nodes:    sc.Nodes(),
		nodeIDs:  map[string]uint32{},
		jointIDs: map[string]uint32{},
	}
	f.flattenNode(sc.Root)
	spine := f.flattenNode(sc.FindNode("Spine"))
	f.ensureHierarchy(spine)
	before := len(f.doc.Hierarchy)
	f.ensureHierarchy(spine)
	f.ensureHierarchy(spine)

	if len(f.doc.Hierarchy) != before {
		t.Fatalf("hierarchy grew from %d to %d", before, len(f.doc.Hierarchy))
	}
	hips := f.nodeIDs["Hips"]
	if c := f.doc.Hierarchy[hips].Children; len(c) != 1 {
		t.Fatalf("Hips children duplicated: %v", c)
	}
	if again := f.flattenNode(sc.FindNode("Spine")); again != spine {
		t.Fatalf("flattenNode not idempotent: %d then %d", spine, again)
	}
}

func TestUnknownBoneNodeFails(t *testing.T) {
	sc := skinnedScene()
	sc.Meshes[0].Bones[0].Name = "Tail"
	if _, err := Flatten(sc, Options{}); !errors.Is(err, ErrUnknownBoneNode) {
		t.Fatalf("expected ErrUnknownBoneNode, got %v", err)
	}
}

func TestAnimationChannelForMissingNodeIsDropped(t *testing.T) {
	sc := skinnedScene()
	rot := mgl32.Quat{W: 0.1, V: mgl32.Vec3{0.2, 0.3, 0.4}}
	sc.Animations = []*scene.Animation{{
		Name:           "Wave",
		Duration:       20,
		TicksPerSecond: 24,
		Channels: []*scene.NodeAnim{
			{NodeName: "Ghost", PositionKeys: []scene.VectorKey{{Time: 0, Value: mgl32.Vec3{1, 1, 1}}}},
			{
				NodeName:     "Spine",
				PositionKeys: []scene.VectorKey{{Time: 0, Value: mgl32.Vec3{0, 0.5, 0}}},
				RotationKeys: []scene.QuatKey{{Time: 5, Value: rot}},
				ScalingKeys:  []scene.VectorKey{{Time: 10, Value: mgl32.Vec3{1, 1, 1}}},
			},
		},
	}}

	res, err := Flatten(sc, Options{})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Node != "Ghost" || res.Warnings[0].Animation != "Wave" {
		t.Fatalf("unexpected warnings %v", res.Warnings)
	}

	anim := res.Document.Animations[0]
	if anim.Duration != 20 || anim.TPS != 24 {
		t.Fatalf("unexpected animation timing %+v", anim)
	}
	if len(anim.Channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(anim.Channels))
	}
	ch := anim.Channels[0]
	if res.Document.Hierarchy[ch.NodeID].Name != "Spine" {
		t.Fatalf("channel targets %q", res.Document.Hierarchy[ch.NodeID].Name)
	}
	got := ch.RotFrames[0].Value
	if got != (sobj.Vec4{X: 0.2, Y: 0.3, Z: 0.4, W: 0.1}) {
		t.Fatalf("rotation not permuted to x,y,z,w: %+v", got)
	}
	if fromQuat(got) != rot {
		t.Fatalf("inverse permutation = %v, want %v", fromQuat(got), rot)
	}
	if ch.RotFrames[0].Time != 5 || ch.ScaleFrames[0].Time != 10 {
		t.Fatalf("unexpected key times %+v", ch)
	}
}

type fakeTextures map[string]*sobj.Texture

func (f fakeTextures) Load(path string) (*sobj.Texture, error) {
	t, ok := f[path]
	if !ok {
		return nil, errors.New("missing " + path)
	}
	return t, nil
}

func TestMaterialTextures(t *testing.T) {
	shine := float32(64)
	sc := &scene.Scene{
		Root: &scene.Node{Name: "Root"},
		Materials: []*scene.Material{{
			Name:      "Skin",
			Shininess: &shine,
			Textures: map[scene.TextureType]string{
				scene.TextureDiffuse: "skin.png",
				scene.TextureNormal:  "skin_n.png",
			},
		}},
	}
	textures := fakeTextures{
		"skin.png":   {Format: "png", Data: []byte("d")},
		"skin_n.png": {Format: "png", Data: []byte("n")},
	}

	res, err := Flatten(sc, Options{Textures: textures})
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	m := res.Document.Materials[0]
	if m.Name != "Skin" || m.Shininess == nil || *m.Shininess != 64 {
		t.Fatalf("unexpected material %+v", m)
	}
	if m.Diffuse == nil || string(m.Diffuse.Data) != "d" || m.Normal == nil || string(m.Normal.Data) != "n" {
		t.Fatalf("textures not attached: %+v", m)
	}
	if m.Specular != nil || m.Emissive != nil {
		t.Fatal("unexpected textures in empty slots")
	}

	res, err = Flatten(sc, Options{})
	if err != nil {
		t.Fatalf("Flatten without textures returned error: %v", err)
	}
	if res.Document.Materials[0].Diffuse != nil {
		t.Fatal("expected no textures when loading is disabled")
	}

	sc.Materials[0].Textures[scene.TextureSpecular] = "missing.png"
	if _, err := Flatten(sc, Options{Textures: textures}); err == nil {
		t.Fatal("expected texture load failure to abort conversion")
	}
}

func TestNoRoot(t *testing.T) {
	if _, err := Flatten(&scene.Scene{}, Options{}); !errors.Is(err, ErrNoRoot) {
		t.Fatalf("expected ErrNoRoot, got %v", err)
	}
}
