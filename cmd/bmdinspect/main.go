// Command bmdinspect prints the structure of BMD model files: meshes with
// their bounding boxes before and after the bind pose is applied, texture
// resolution, bones and actions.
//
//	bmdinspect <bmd-file> [<bmd-file> ...]
//
// SOBJ_BMD_KEY and SOBJ_TEX_DIR are honoured as for sobjconv.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sobjconv/internal/bmd"
	"sobjconv/internal/config"
	"sobjconv/internal/skeleton"
	"sobjconv/internal/texture"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <bmd-file> [<bmd-file> ...]\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}

	cfg, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key, err := cfg.Key()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	failed := false
	for i, path := range os.Args[1:] {
		if i > 0 {
			fmt.Println()
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
			failed = true
			continue
		}
		dir := cfg.TexDir
		if dir == "" {
			dir = filepath.Dir(path)
		}
		if err := inspect(os.Stdout, path, raw, bmd.Options{LEAKey: key}, &texture.Resolver{Remap: cfg.TexMap, Dir: dir}); err != nil {
			fmt.Fprintf(os.Stderr, "parse %s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func inspect(w io.Writer, name string, raw []byte, opts bmd.Options, res *texture.Resolver) error {
	m, err := bmd.Parse(raw, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "=== %s: %q v%d (meshes=%d bones=%d actions=%d) ===\n",
		name, m.Name, m.Version, len(m.Meshes), len(m.Bones), len(m.Actions))

	fmt.Fprintln(w, "--- RAW (bone space) ---")
	printMeshes(w, m.Meshes, res)

	skeleton.ApplyTransforms(m.Meshes, skeleton.BuildWorldMatrices(m.Bones))
	fmt.Fprintln(w, "--- AFTER BONES (bind pose) ---")
	printMeshes(w, m.Meshes, nil)

	if len(m.Bones) > 0 {
		fmt.Fprintln(w, "--- BONES ---")
	}
	for i := range m.Bones {
		b := &m.Bones[i]
		if b.IsDummy {
			fmt.Fprintf(w, "  Bone[%d]: dummy\n", i)
			continue
		}
		p, r := b.BindPosition(), b.BindRotation()
		fmt.Fprintf(w, "  Bone[%d] %q: parent=%d, pos=(%.2f, %.2f, %.2f), rot=(%.4f, %.4f, %.4f)\n",
			i, b.Name, b.Parent, p[0], p[1], p[2], r[0], r[1], r[2])
	}

	for i, a := range m.Actions {
		lock := ""
		if a.LockPositions {
			lock = " [LOCKED]"
		}
		fmt.Fprintf(w, "  Action[%d]: keys=%d%s\n", i, a.Keys, lock)
	}
	return nil
}

// printMeshes lists geometry counts and bounds. Texture lookups are only
// reported when res is non-nil.
func printMeshes(w io.Writer, meshes []bmd.Mesh, res *texture.Resolver) {
	for i, m := range meshes {
		stem := strings.TrimSuffix(filepath.Base(m.TexPath), filepath.Ext(m.TexPath))
		quads := 0
		for _, t := range m.Tris {
			if t.Corners() == 4 {
				quads++
			}
		}
		fmt.Fprintf(w, "  Mesh[%d]: v=%d n=%d uv=%d t=%d (quads=%d) tex=%q",
			i, len(m.Verts), len(m.Normals), len(m.UVs), len(m.Tris), quads, stem)
		if res != nil && m.TexPath != "" {
			if p, err := res.Resolve(m.TexPath); err == nil {
				fmt.Fprintf(w, " -> %s", filepath.Base(p))
			} else {
				fmt.Fprint(w, " MISSING")
			}
		}
		if len(m.Verts) > 0 {
			minV, maxV := m.Verts[0], m.Verts[0]
			for _, v := range m.Verts[1:] {
				for k := 0; k < 3; k++ {
					minV[k] = min(minV[k], v[k])
					maxV[k] = max(maxV[k], v[k])
				}
			}
			fmt.Fprintf(w, " size=(%.1f,%.1f,%.1f) min=(%.1f,%.1f,%.1f) max=(%.1f,%.1f,%.1f)",
				maxV[0]-minV[0], maxV[1]-minV[1], maxV[2]-minV[2],
				minV[0], minV[1], minV[2], maxV[0], maxV[1], maxV[2])
		}
		fmt.Fprintln(w)
	}
}
