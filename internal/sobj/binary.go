package sobj

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when a binary document cannot be decoded.
var ErrMalformed = errors.New("sobj: malformed document")

// Marshal encodes doc in protocol-buffers wire format.
func Marshal(doc *Document) []byte {
	var b []byte
	for _, n := range doc.Hierarchy {
		b = appendMessage(b, 1, appendNode(nil, n))
	}
	for _, in := range doc.Instances {
		b = appendMessage(b, 2, appendInstance(nil, in))
	}
	for _, m := range doc.Meshes {
		b = appendMessage(b, 3, appendMesh(nil, m))
	}
	for _, j := range doc.Joints {
		b = appendMessage(b, 4, appendMessage(nil, 1, appendMat4(nil, j.InverseBind)))
	}
	for _, m := range doc.Materials {
		b = appendMessage(b, 5, appendMaterial(nil, m))
	}
	for _, a := range doc.Animations {
		b = appendMessage(b, 6, appendAnimation(nil, a))
	}
	return b
}

func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendUint32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	return appendUint32Always(b, num, v)
}

func appendUint32Always(b []byte, num protowire.Number, v uint32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	bits := math.Float32bits(v)
	if bits == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, bits)
}

func appendFloatAlways(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendVec2(b []byte, v Vec2) []byte {
	b = appendFloat(b, 1, v.X)
	return appendFloat(b, 2, v.Y)
}

func appendVec3(b []byte, v Vec3) []byte {
	b = appendFloat(b, 1, v.X)
	b = appendFloat(b, 2, v.Y)
	return appendFloat(b, 3, v.Z)
}

func appendVec4(b []byte, v Vec4) []byte {
	b = appendFloat(b, 1, v.X)
	b = appendFloat(b, 2, v.Y)
	b = appendFloat(b, 3, v.Z)
	return appendFloat(b, 4, v.W)
}

func appendMat4(b []byte, m Mat4) []byte {
	b = appendMessage(b, 1, appendVec4(nil, m.A))
	b = appendMessage(b, 2, appendVec4(nil, m.B))
	b = appendMessage(b, 3, appendVec4(nil, m.C))
	return appendMessage(b, 4, appendVec4(nil, m.D))
}

func appendNode(b []byte, n *Node) []byte {
	b = appendString(b, 1, n.Name)
	b = appendMessage(b, 2, appendMat4(nil, n.Transform))
	if len(n.Children) > 0 {
		var packed []byte
		for _, c := range n.Children {
			packed = protowire.AppendVarint(packed, uint64(c))
		}
		b = appendMessage(b, 3, packed)
	}
	if n.JointID != nil {
		b = appendUint32Always(b, 4, *n.JointID)
	}
	return b
}

func appendInstance(b []byte, in *Instance) []byte {
	b = appendUint32(b, 1, in.MeshID)
	return appendMessage(b, 2, appendMat4(nil, in.Transform))
}

func appendMesh(b []byte, m *Mesh) []byte {
	b = appendString(b, 1, m.Name)
	b = appendUint32(b, 2, m.MaterialID)
	for _, v := range m.Vertices {
		var vb []byte
		vb = appendMessage(vb, 1, appendVec3(nil, v.Position))
		vb = appendMessage(vb, 2, appendVec3(nil, v.Normal))
		if v.UV != nil {
			vb = appendMessage(vb, 3, appendVec2(nil, *v.UV))
		}
		vb = appendMessage(vb, 4, appendVec3(nil, v.Tangent))
		vb = appendMessage(vb, 5, appendVec3(nil, v.Bitangent))
		b = appendMessage(b, 3, vb)
	}
	for _, f := range m.Faces {
		var fb []byte
		fb = appendUint32(fb, 1, f.A)
		fb = appendUint32(fb, 2, f.B)
		fb = appendUint32(fb, 3, f.C)
		b = appendMessage(b, 4, fb)
	}

	// Map entries are emitted in key order so output is reproducible.
	keys := make([]uint32, 0, len(m.Weights))
	for k := range m.Weights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		var lb []byte
		if wl := m.Weights[k]; wl != nil {
			for _, w := range wl.Weights {
				var wb []byte
				wb = appendUint32(wb, 1, w.Vertex)
				wb = appendFloat(wb, 2, w.Weight)
				lb = appendMessage(lb, 1, wb)
			}
		}
		var entry []byte
		entry = appendUint32(entry, 1, k)
		entry = appendMessage(entry, 2, lb)
		b = appendMessage(b, 5, entry)
	}
	return b
}

func appendTexture(b []byte, num protowire.Number, t *Texture) []byte {
	if t == nil {
		return b
	}
	var tb []byte
	if len(t.Data) > 0 {
		tb = protowire.AppendTag(tb, 1, protowire.BytesType)
		tb = protowire.AppendBytes(tb, t.Data)
	}
	tb = appendString(tb, 2, t.Format)
	return appendMessage(b, num, tb)
}

func appendMaterial(b []byte, m *Material) []byte {
	b = appendString(b, 1, m.Name)
	if m.Shininess != nil {
		b = appendFloatAlways(b, 2, *m.Shininess)
	}
	b = appendTexture(b, 3, m.Diffuse)
	b = appendTexture(b, 4, m.Specular)
	b = appendTexture(b, 5, m.Normal)
	return appendTexture(b, 6, m.Emissive)
}

func appendVec3Key(b []byte, k *Vec3Key) []byte {
	b = appendFloat(b, 1, k.Time)
	return appendMessage(b, 2, appendVec3(nil, k.Value))
}

func appendAnimation(b []byte, a *Animation) []byte {
	b = appendString(b, 1, a.Name)
	b = appendFloat(b, 2, a.Duration)
	b = appendFloat(b, 3, a.TPS)
	for _, c := range a.Channels {
		var cb []byte
		cb = appendUint32(cb, 1, c.NodeID)
		for _, k := range c.PosFrames {
			cb = appendMessage(cb, 2, appendVec3Key(nil, k))
		}
		for _, k := range c.RotFrames {
			var kb []byte
			kb = appendFloat(kb, 1, k.Time)
			kb = appendMessage(kb, 2, appendVec4(nil, k.Value))
			cb = appendMessage(cb, 3, kb)
		}
		for _, k := range c.ScaleFrames {
			cb = appendMessage(cb, 4, appendVec3Key(nil, k))
		}
		b = appendMessage(b, 4, cb)
	}
	return b
}

// Binary writes the wire-format encoding.
type Binary struct{}

// Encode writes doc to w.
func (Binary) Encode(w io.Writer, doc *Document) error {
	if _, err := w.Write(Marshal(doc)); err != nil {
		return fmt.Errorf("sobj: write binary: %w", err)
	}
	return nil
}
