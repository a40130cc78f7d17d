package scene

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func buildTree() *Scene {
	root := &Node{Name: "Root"}
	arm := &Node{Name: "Arm"}
	hand := &Node{Name: "Hand"}
	leg := &Node{Name: "Leg"}
	root.AddChild(arm)
	arm.AddChild(hand)
	root.AddChild(leg)
	return &Scene{Root: root}
}

func TestWalkOrderIsDepthFirst(t *testing.T) {
	sc := buildTree()
	var got []string
	sc.Walk(func(n *Node) bool {
		got = append(got, n.Name)
		return true
	})
	want := []string{"Root", "Arm", "Hand", "Leg"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestFindNodeAndPath(t *testing.T) {
	sc := buildTree()
	hand := sc.FindNode("Hand")
	if hand == nil {
		t.Fatal("expected to find Hand")
	}
	if hand.Path() != "Root/Arm/Hand" {
		t.Fatalf("unexpected path %q", hand.Path())
	}
	if sc.FindNode("Tail") != nil {
		t.Fatal("expected nil for missing node")
	}
	if len(sc.Nodes()) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(sc.Nodes()))
	}
}

func TestNameSetUnique(t *testing.T) {
	ns := NewNameSet()
	got := []string{
		ns.Unique("bone", "node"),
		ns.Unique("bone", "node"),
		ns.Unique("bone_1", "node"),
		ns.Unique("bone", "node"),
		ns.Unique("", "node_7"),
	}
	want := []string{"bone", "bone_1", "bone_1_1", "bone_2", "node_7"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("name %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestHasTexCoordsLooksAtEveryChannel(t *testing.T) {
	m := &Mesh{Vertices: make([]mgl32.Vec3, 2)}
	if m.HasTexCoords() {
		t.Fatal("mesh without channels reports texture coordinates")
	}
	m.TexCoords = [][]mgl32.Vec3{nil, make([]mgl32.Vec3, 2)}
	if !m.HasTexCoords() {
		t.Fatal("second channel ignored")
	}
}

func TestCheckAttributes(t *testing.T) {
	tests := []struct {
		name string
		mesh Mesh
		ok   bool
	}{
		{"absent", Mesh{Vertices: make([]mgl32.Vec3, 3)}, true},
		{"complete", Mesh{Vertices: make([]mgl32.Vec3, 3), Normals: make([]mgl32.Vec3, 3), TexCoords: [][]mgl32.Vec3{make([]mgl32.Vec3, 3)}}, true},
		{"short normals", Mesh{Vertices: make([]mgl32.Vec3, 3), Normals: make([]mgl32.Vec3, 1)}, false},
		{"long bitangents", Mesh{Vertices: make([]mgl32.Vec3, 3), Bitangents: make([]mgl32.Vec3, 4)}, false},
		{"short second channel", Mesh{Vertices: make([]mgl32.Vec3, 3), TexCoords: [][]mgl32.Vec3{nil, make([]mgl32.Vec3, 2)}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.CheckAttributes()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrAttributeLength) {
				t.Fatalf("expected ErrAttributeLength, got %v", err)
			}
		})
	}
}
