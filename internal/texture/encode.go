package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/HugoSmits86/nativewebp"
)

// Canonical output formats.
const (
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// Encode re-encodes img in the canonical format.
func Encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatPNG, "":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("texture: png encode: %w", err)
		}
	case FormatWebP:
		if err := nativewebp.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("texture: webp encode: %w", err)
		}
	default:
		return nil, fmt.Errorf("texture: unknown format %q", format)
	}
	return buf.Bytes(), nil
}
