package texture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no file exists for a texture reference.
var ErrNotFound = errors.New("texture: not found")

// containerAlternates lists the BMD container files that may stand in for
// a referenced image. OZT wins over OZJ for the same stem (alpha channel).
var containerAlternates = map[string][]string{
	".jpg":  {".ozj"},
	".jpeg": {".ozj"},
	".tga":  {".ozt"},
	".png":  {".ozt", ".ozj"},
	".bmp":  {".ozt", ".ozj"},
}

// Resolver maps a material's texture reference to a file on disk.
type Resolver struct {
	// Remap replaces references before lookup. Keys match the whole
	// reference first, then its base name.
	Remap map[string]string
	// Dir anchors relative references.
	Dir string
}

// Resolve returns the filesystem path for ref.
func (r *Resolver) Resolve(ref string) (string, error) {
	path := r.remap(ref)
	path = strings.ReplaceAll(path, "\\", "/")
	if !filepath.IsAbs(path) && r.Dir != "" {
		path = filepath.Join(r.Dir, path)
	}

	if fileExists(path) {
		return path, nil
	}
	if alt, ok := findAlternate(path); ok {
		return alt, nil
	}
	return "", fmt.Errorf("%w: %s (from %q)", ErrNotFound, path, ref)
}

func (r *Resolver) remap(ref string) string {
	if dst, ok := r.Remap[ref]; ok {
		return dst
	}
	norm := strings.ReplaceAll(ref, "\\", "/")
	if dst, ok := r.Remap[norm]; ok {
		return dst
	}
	if dst, ok := r.Remap[filepath.Base(norm)]; ok {
		return dst
	}
	return ref
}

// findAlternate looks in path's directory for a file with the same stem,
// ignoring case, preferring container formats for the original extension.
func findAlternate(path string) (string, bool) {
	dir := filepath.Dir(path)
	ext := strings.ToLower(filepath.Ext(path))
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	byExt := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))) != stem {
			continue
		}
		byExt[strings.ToLower(filepath.Ext(name))] = filepath.Join(dir, name)
	}

	candidates := append([]string{ext}, containerAlternates[ext]...)
	for _, c := range candidates {
		if p, ok := byExt[c]; ok {
			return p, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
