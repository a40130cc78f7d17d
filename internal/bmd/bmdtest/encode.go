// Package bmdtest writes BMD files for tests.
package bmdtest

import (
	"bytes"
	"encoding/binary"
	"strings"

	"sobjconv/internal/bmd"
	"sobjconv/internal/crypto"
)

// Encode serialises m as an unencrypted version 10 file.
func Encode(m *bmd.Model) []byte {
	return append([]byte{'B', 'M', 'D', 10}, payload(m)...)
}

// EncodeXOR serialises m as a version 12 file.
func EncodeXOR(m *bmd.Model) []byte {
	return wrap(12, crypto.EncryptXOR(payload(m)))
}

// EncodeLEA serialises m as a version 15 file encrypted with key.
func EncodeLEA(m *bmd.Model, key [32]byte) []byte {
	p := payload(m)
	if pad := len(p) % crypto.BlockSize; pad != 0 {
		p = append(p, make([]byte, crypto.BlockSize-pad)...)
	}
	enc, err := crypto.EncryptLEA(p, key)
	if err != nil {
		panic(err)
	}
	return wrap(15, enc)
}

func wrap(version byte, data []byte) []byte {
	out := []byte{'B', 'M', 'D', version, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(out[4:], uint32(len(data)))
	return append(out, data...)
}

type writer struct{ bytes.Buffer }

func (w *writer) put(v any) { _ = binary.Write(&w.Buffer, binary.LittleEndian, v) }

func (w *writer) str(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	w.Write(b)
}

func payload(m *bmd.Model) []byte {
	var w writer
	w.str(m.Name, 32)
	w.put(uint16(len(m.Meshes)))
	w.put(uint16(len(m.Bones)))
	w.put(uint16(len(m.Actions)))

	for _, mesh := range m.Meshes {
		w.put(int16(len(mesh.Verts)))
		w.put(int16(len(mesh.Normals)))
		w.put(int16(len(mesh.UVs)))
		w.put(int16(len(mesh.Tris)))
		w.put(mesh.TextureIndex)
		for i, v := range mesh.Verts {
			var node int16
			if i < len(mesh.Nodes) {
				node = mesh.Nodes[i]
			}
			w.put(node)
			w.put(int16(0))
			w.put(v)
		}
		for i, n := range mesh.Normals {
			var node int16
			if i < len(mesh.NormalNodes) {
				node = mesh.NormalNodes[i]
			}
			w.put(node)
			w.put(int16(0))
			w.put(n)
			w.put(int16(0))
			w.put(int16(0))
		}
		for _, uv := range mesh.UVs {
			w.put(uv)
		}
		for _, t := range mesh.Tris {
			tri := make([]byte, 64)
			tri[0] = byte(t.Polygon)
			for k := 0; k < 4; k++ {
				binary.LittleEndian.PutUint16(tri[2+k*2:], uint16(t.VI[k]))
				binary.LittleEndian.PutUint16(tri[10+k*2:], uint16(t.NI[k]))
				binary.LittleEndian.PutUint16(tri[18+k*2:], uint16(t.TI[k]))
			}
			w.Write(tri)
		}
		w.str(strings.ReplaceAll(mesh.TexPath, "/", "\\"), 32)
	}

	for _, a := range m.Actions {
		w.put(int16(a.Keys))
		if a.LockPositions {
			w.put(byte(1))
			for k := 0; k < a.Keys; k++ {
				var p [3]float32
				if k < len(a.Positions) {
					p = a.Positions[k]
				}
				w.put(p)
			}
		} else {
			w.put(byte(0))
		}
	}

	for _, b := range m.Bones {
		if b.IsDummy {
			w.put(byte(1))
			continue
		}
		w.put(byte(0))
		w.str(b.Name, 32)
		w.put(int16(b.Parent))
		for a, act := range m.Actions {
			var ba bmd.BoneAction
			if a < len(b.Actions) {
				ba = b.Actions[a]
			}
			for k := 0; k < act.Keys; k++ {
				var p [3]float32
				if k < len(ba.Positions) {
					p = ba.Positions[k]
				}
				w.put(p)
			}
			for k := 0; k < act.Keys; k++ {
				var r [3]float32
				if k < len(ba.Rotations) {
					r = ba.Rotations[k]
				}
				w.put(r)
			}
		}
	}
	return w.Bytes()
}
