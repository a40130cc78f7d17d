// Package texture turns material texture references into embedded,
// canonically encoded image payloads.
package texture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"sobjconv/internal/scene"
	"sobjconv/internal/sobj"
)

// Loader resolves, decodes and re-encodes textures, caching the result
// per file. It is not safe for concurrent use.
type Loader struct {
	resolver *Resolver
	format   string
	embedded []*scene.EmbeddedTexture
	logger   *log.Logger

	items map[string]*sobj.Texture
}

// NewLoader creates a Loader. embedded backs "*N" references.
func NewLoader(resolver *Resolver, format string, embedded []*scene.EmbeddedTexture, logger *log.Logger) *Loader {
	if resolver == nil {
		resolver = &Resolver{}
	}
	if format == "" {
		format = FormatPNG
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{
		resolver: resolver,
		format:   format,
		embedded: embedded,
		logger:   logger,
		items:    make(map[string]*sobj.Texture),
	}
}

// Load returns the encoded texture for ref.
func (l *Loader) Load(ref string) (*sobj.Texture, error) {
	if strings.HasPrefix(ref, "*") {
		return l.loadEmbedded(ref)
	}

	path, err := l.resolver.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if t, ok := l.items[path]; ok {
		return t, nil
	}

	img, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	data, err := Encode(img, l.format)
	if err != nil {
		return nil, fmt.Errorf("texture: %s: %w", path, err)
	}

	t := &sobj.Texture{Format: l.format, Data: data}
	l.items[path] = t
	l.logger.Debug("texture embedded", "ref", ref, "path", path, "bytes", len(data))
	return t, nil
}

func (l *Loader) loadEmbedded(ref string) (*sobj.Texture, error) {
	if t, ok := l.items[ref]; ok {
		return t, nil
	}

	idx, err := strconv.Atoi(ref[1:])
	if err != nil || idx < 0 || idx >= len(l.embedded) {
		return nil, fmt.Errorf("%w: embedded reference %q", ErrNotFound, ref)
	}
	et := l.embedded[idx]
	img, err := Decode(et.Data, et.Hint)
	if err != nil {
		return nil, fmt.Errorf("texture: decode embedded %s: %w", ref, err)
	}
	data, err := Encode(img, l.format)
	if err != nil {
		return nil, fmt.Errorf("texture: embedded %s: %w", ref, err)
	}

	t := &sobj.Texture{Format: l.format, Data: data}
	l.items[ref] = t
	l.logger.Debug("embedded texture converted", "ref", ref, "bytes", len(data))
	return t, nil
}
