package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sobjconv/internal/bmd"
	"sobjconv/internal/bmd/bmdtest"
	"sobjconv/internal/sobj"
)

const triangleOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
f 1/1 2/2 3/3
`

type result struct {
	code   int
	stdout []byte
	stderr string
}

func runCLI(t *testing.T, args []string, stdin []byte, env map[string]string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	code := run(args, streams{in: bytes.NewReader(stdin), out: &out, err: &errOut}, lookup)
	return result{code: code, stdout: out.Bytes(), stderr: errOut.String()}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no arguments", args: nil},
		{name: "two arguments", args: []string{"obj", "gltf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, tt.args, []byte(triangleOBJ), nil)
			if res.code != 1 {
				t.Fatalf("exit code = %d, want 1", res.code)
			}
			if len(res.stdout) != 0 {
				t.Fatalf("stdout should be empty, got %q", res.stdout)
			}
			if !strings.Contains(res.stderr, "Usage:") {
				t.Fatalf("stderr missing usage: %q", res.stderr)
			}
		})
	}
}

func TestConvertOBJText(t *testing.T) {
	res := runCLI(t, []string{"obj"}, []byte(triangleOBJ), map[string]string{"SOBJ_TEXT": "1"})
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", res.code, res.stderr)
	}
	doc, err := sobj.UnmarshalText(res.stdout)
	if err != nil {
		t.Fatalf("stdout is not a text document: %v\n%s", err, res.stdout)
	}
	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Faces) != 1 || len(doc.Instances) != 1 {
		t.Fatalf("unexpected document: %d meshes, %d instances", len(doc.Meshes), len(doc.Instances))
	}
	if len(doc.Hierarchy) != 1 || doc.Hierarchy[0].Name != "Root" {
		t.Fatalf("hierarchy = %+v", doc.Hierarchy)
	}
}

func TestConvertOBJBinary(t *testing.T) {
	res := runCLI(t, []string{".OBJ"}, []byte(triangleOBJ), nil)
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", res.code, res.stderr)
	}
	doc, err := sobj.Unmarshal(res.stdout)
	if err != nil {
		t.Fatalf("stdout is not a binary document: %v", err)
	}
	if len(doc.Meshes) != 1 || len(doc.Materials) != 1 {
		t.Fatalf("unexpected document: %d meshes, %d materials", len(doc.Meshes), len(doc.Materials))
	}
	// Textures are on by default, so UVs are flipped.
	for _, v := range doc.Meshes[0].Vertices {
		if v.UV == nil || v.UV.Y != 1-v.Position.Y {
			t.Fatalf("vertex %+v: uv not flipped", v)
		}
	}
}

func TestConversionFailureWritesNothing(t *testing.T) {
	res := runCLI(t, []string{"fbx"}, []byte(triangleOBJ), nil)
	if res.code != 1 || len(res.stdout) != 0 {
		t.Fatalf("exit code %d, stdout %q", res.code, res.stdout)
	}
	if !strings.Contains(res.stderr, "unsupported format") {
		t.Fatalf("stderr = %q", res.stderr)
	}
}

func writeTexture(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func texturedModel() []byte {
	return bmdtest.Encode(&bmd.Model{
		Name: "Shield",
		Meshes: []bmd.Mesh{{
			Verts:   [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			UVs:     [][2]float32{{0, 0}, {1, 0}, {0, 1}},
			Tris:    []bmd.Triangle{{Polygon: 3, VI: [4]int16{0, 1, 2}, TI: [4]int16{0, 1, 2}}},
			TexPath: "shield01.tga",
		}},
	})
}

func TestConvertEmbedsRemappedTexture(t *testing.T) {
	dir := t.TempDir()
	writeTexture(t, filepath.Join(dir, "shield_fixed.png"))

	res := runCLI(t, []string{"bmd"}, texturedModel(), map[string]string{
		"SOBJ_TEX_DIR": dir,
		"SOBJ_TEX_MAP": "shield01.tga=shield_fixed.png",
	})
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", res.code, res.stderr)
	}
	doc, err := sobj.Unmarshal(res.stdout)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	diffuse := doc.Materials[0].Diffuse
	if diffuse == nil || diffuse.Format != "png" {
		t.Fatalf("diffuse texture = %+v", diffuse)
	}
	if _, err := png.Decode(bytes.NewReader(diffuse.Data)); err != nil {
		t.Fatalf("embedded texture is not a PNG: %v", err)
	}
}

func TestMissingTextureAborts(t *testing.T) {
	res := runCLI(t, []string{"bmd"}, texturedModel(), map[string]string{"SOBJ_TEX_DIR": t.TempDir()})
	if res.code != 1 || len(res.stdout) != 0 {
		t.Fatalf("exit code %d, stdout %d bytes", res.code, len(res.stdout))
	}
	if !strings.Contains(res.stderr, `sobjconv: flatten: material "shield01"`) || strings.Contains(res.stderr, "flatten: flatten") {
		t.Fatalf("unexpected diagnostic %q", res.stderr)
	}
}

func TestSkipTextures(t *testing.T) {
	res := runCLI(t, []string{"bmd"}, texturedModel(), map[string]string{"SOBJ_SKIP_TEXTURES": "1"})
	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", res.code, res.stderr)
	}
	doc, err := sobj.Unmarshal(res.stdout)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Materials[0].Diffuse != nil {
		t.Fatal("texture embedded despite SOBJ_SKIP_TEXTURES")
	}
}
