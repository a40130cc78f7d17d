// Package bmd parses BMD model files (versions 10, 12 and 15).
package bmd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"sobjconv/internal/crypto"
)

var (
	// ErrHeader is returned when the data does not start with "BMD".
	ErrHeader = errors.New("bmd: invalid header")
	// ErrTruncated is returned when a section runs past the end of the data.
	ErrTruncated = errors.New("bmd: truncated data")
	// ErrKeyRequired is returned for version 15 files when no LEA key is set.
	ErrKeyRequired = errors.New("bmd: version 15 needs a decryption key")
)

const maxMeshes = 100

// Options controls decryption.
type Options struct {
	// LEAKey is the 32-byte key for version 15 payloads.
	LEAKey []byte
}

// Parse decodes a BMD model from raw file bytes.
// Supports versions 10 (unencrypted), 12 (XOR), and 15 (LEA-256 ECB).
func Parse(raw []byte, opts Options) (*Model, error) {
	if len(raw) < 4 || string(raw[:3]) != "BMD" {
		return nil, ErrHeader
	}

	version := raw[3]
	var data []byte

	switch version {
	case 12, 15:
		if len(raw) < 8 {
			return nil, fmt.Errorf("%w: v%d header", ErrTruncated, version)
		}
		size := int(binary.LittleEndian.Uint32(raw[4:8]))
		if size > len(raw)-8 {
			return nil, fmt.Errorf("%w: v%d payload wants %d bytes, have %d", ErrTruncated, version, size, len(raw)-8)
		}
		payload := raw[8 : 8+size]
		if version == 12 {
			data = crypto.DecryptXOR(payload)
			break
		}
		if len(opts.LEAKey) != 32 {
			return nil, ErrKeyRequired
		}
		var key [32]byte
		copy(key[:], opts.LEAKey)
		dec, err := crypto.DecryptLEA(payload, key)
		if err != nil {
			return nil, fmt.Errorf("bmd: decrypt v15: %w", err)
		}
		data = dec
	default:
		data = raw[4:]
	}

	r := &reader{data: data}
	m, err := r.parse()
	if err != nil {
		return nil, err
	}
	m.Version = version
	return m, nil
}

// reader returns zero values past the end of data and records the overrun.
type reader struct {
	data  []byte
	off   int
	short bool
}

func (r *reader) take(n int) []byte {
	if n < 0 || r.off+n > len(r.data) {
		r.off = len(r.data)
		r.short = true
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) readStr(n int) string {
	s := r.take(n)
	// Find null terminator
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

func (r *reader) readI16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

func (r *reader) readU16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) readF32() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *reader) readVec3() [3]float32 {
	return [3]float32{r.readF32(), r.readF32(), r.readF32()}
}

func (r *reader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) count(what string) (int, error) {
	n := int(r.readI16())
	if n < 0 {
		return 0, fmt.Errorf("bmd: negative %s count %d", what, n)
	}
	return n, nil
}

func (r *reader) parse() (*Model, error) {
	m := &Model{Name: r.readStr(32)}
	meshCount := int(r.readU16())
	boneCount := int(r.readU16())
	actionCount := int(r.readU16())

	if meshCount > maxMeshes {
		return nil, fmt.Errorf("bmd: invalid mesh count %d", meshCount)
	}

	m.Meshes = make([]Mesh, 0, meshCount)
	for i := 0; i < meshCount; i++ {
		mesh, err := r.parseMesh()
		if err != nil {
			return nil, fmt.Errorf("bmd: mesh %d: %w", i, err)
		}
		m.Meshes = append(m.Meshes, mesh)
	}

	m.Actions = make([]Action, actionCount)
	for a := range m.Actions {
		keys, err := r.count("key")
		if err != nil {
			return nil, fmt.Errorf("bmd: action %d: %w", a, err)
		}
		act := Action{Keys: keys, LockPositions: r.readByte() > 0}
		if act.LockPositions {
			act.Positions = make([][3]float32, keys)
			for k := range act.Positions {
				act.Positions[k] = r.readVec3()
			}
		}
		m.Actions[a] = act
	}

	m.Bones = make([]Bone, 0, boneCount)
	for b := 0; b < boneCount; b++ {
		if r.readByte() > 0 {
			m.Bones = append(m.Bones, Bone{Parent: -1, IsDummy: true})
			continue
		}

		bone := Bone{
			Name:    r.readStr(32),
			Parent:  int(r.readI16()),
			Actions: make([]BoneAction, actionCount),
		}
		for a, act := range m.Actions {
			if act.Keys == 0 {
				continue
			}
			ba := BoneAction{
				Positions: make([][3]float32, act.Keys),
				Rotations: make([][3]float32, act.Keys),
			}
			for k := range ba.Positions {
				ba.Positions[k] = r.readVec3()
			}
			for k := range ba.Rotations {
				ba.Rotations[k] = r.readVec3()
			}
			bone.Actions[a] = ba
		}
		m.Bones = append(m.Bones, bone)
	}

	if r.short {
		return nil, ErrTruncated
	}
	return m, nil
}

func (r *reader) parseMesh() (Mesh, error) {
	var counts [4]int
	for i, what := range []string{"vertex", "normal", "texcoord", "triangle"} {
		n, err := r.count(what)
		if err != nil {
			return Mesh{}, err
		}
		counts[i] = n
	}
	nv, nn, ntc, nt := counts[0], counts[1], counts[2], counts[3]
	mesh := Mesh{TextureIndex: r.readI16()}

	// Vertices: 16 bytes each (node:i16, pad:i16, x:f32, y:f32, z:f32)
	mesh.Verts = make([][3]float32, nv)
	mesh.Nodes = make([]int16, nv)
	for j := 0; j < nv; j++ {
		mesh.Nodes[j] = r.readI16()
		_ = r.readI16() // padding
		mesh.Verts[j] = r.readVec3()
	}

	// Normals: 20 bytes each (node:i16, pad:i16, nx:f32, ny:f32, nz:f32, bind:i16, pad:i16)
	mesh.Normals = make([][3]float32, nn)
	mesh.NormalNodes = make([]int16, nn)
	for j := 0; j < nn; j++ {
		mesh.NormalNodes[j] = r.readI16()
		_ = r.readI16() // padding
		mesh.Normals[j] = r.readVec3()
		_ = r.readI16() // bindVertex
		_ = r.readI16() // padding
	}

	// TexCoords: 8 bytes each (u:f32, v:f32)
	mesh.UVs = make([][2]float32, ntc)
	for j := 0; j < ntc; j++ {
		mesh.UVs[j] = [2]float32{r.readF32(), r.readF32()}
	}

	// Triangles: 64 bytes each, of which the first 26 are used
	mesh.Tris = make([]Triangle, nt)
	for j := 0; j < nt; j++ {
		b := r.take(64)
		if b == nil {
			return Mesh{}, ErrTruncated
		}
		t := Triangle{Polygon: int(b[0])}
		for k := 0; k < 4; k++ {
			t.VI[k] = int16(binary.LittleEndian.Uint16(b[2+k*2:]))
			t.NI[k] = int16(binary.LittleEndian.Uint16(b[10+k*2:]))
			t.TI[k] = int16(binary.LittleEndian.Uint16(b[18+k*2:]))
		}
		mesh.Tris[j] = t
	}

	mesh.TexPath = strings.ReplaceAll(r.readStr(32), "\\", "/")
	return mesh, nil
}
