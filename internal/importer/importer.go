// Package importer reads asset files into a scene.Scene and applies the
// requested post-processing.
package importer

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"sobjconv/internal/postprocess"
	"sobjconv/internal/scene"
)

// ErrUnsupportedFormat is returned for an unknown file type hint.
var ErrUnsupportedFormat = errors.New("importer: unsupported format")

// Options controls an import.
type Options struct {
	Flags postprocess.Flags
	// BMDKey decrypts version 15 BMD files.
	BMDKey []byte
}

type decodeFunc func(data []byte, opts Options) (*scene.Scene, error)

var decoders = map[string]decodeFunc{
	"gltf": decodeGLTF,
	"glb":  decodeGLTF,
	"obj":  decodeOBJ,
	"bmd":  decodeBMD,
}

// Formats lists the accepted type hints in sorted order.
func Formats() []string {
	out := make([]string, 0, len(decoders))
	for k := range decoders {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// normalizeHint lower-cases a type hint and strips a leading dot.
func normalizeHint(hint string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hint)), ".")
}

// Import reads the whole of r and decodes it as the format named by hint
// ("gltf", ".OBJ", ...).
func Import(r io.Reader, hint string, opts Options) (*scene.Scene, error) {
	format := normalizeHint(hint)
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnsupportedFormat, hint, strings.Join(Formats(), ", "))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("importer: read input: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("importer: %s: empty input", format)
	}

	sc, err := decode(data, opts)
	if err != nil {
		return nil, fmt.Errorf("importer: %s: %w", format, err)
	}
	if err := postprocess.Apply(sc, opts.Flags); err != nil {
		return nil, fmt.Errorf("importer: %s: %w", format, err)
	}
	return sc, nil
}

// defaultMaterial is appended for meshes whose source names none.
func defaultMaterial() *scene.Material {
	return &scene.Material{Name: "DefaultMaterial", Textures: map[scene.TextureType]string{}}
}
