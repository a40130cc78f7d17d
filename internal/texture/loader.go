package texture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Container headers wrapped around JPEG (OZJ) and TGA (OZT) payloads.
const (
	ozjHeader = 24
	oztHeader = 4
)

// DecodeFile opens path, decodes it and returns an NRGBA image. The file
// is closed before returning on every path.
func DecodeFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texture: open %s: %w", path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}
	img, err := Decode(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes raw image bytes. ext ("ozj", ".OZT", ...) selects the
// container header to strip; other formats are sniffed.
func Decode(raw []byte, ext string) (*image.NRGBA, error) {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "ozj":
		if len(raw) <= ozjHeader {
			return nil, fmt.Errorf("OZJ too short (%d bytes)", len(raw))
		}
		raw = raw[ozjHeader:]
	case "ozt":
		if len(raw) <= oztHeader {
			return nil, fmt.Errorf("OZT too short (%d bytes)", len(raw))
		}
		raw = raw[oztHeader:]
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return toNRGBA(img), nil
}

// toNRGBA converts any image to NRGBA format.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}
