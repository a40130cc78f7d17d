package sobj

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded wire field. Only the member matching typ is set.
type field struct {
	num   protowire.Number
	typ   protowire.Type
	bytes []byte
	u64   uint64
	u32   uint32
}

func (f field) is(num protowire.Number, typ protowire.Type) bool {
	return f.num == num && f.typ == typ
}

func (f field) float() float32 { return math.Float32frombits(f.u32) }

// eachField walks the fields of a message. Fields of unexpected number or
// type are passed through to fn, which ignores what it does not know.
func eachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u64, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			f.u32, n = protowire.ConsumeFixed32(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal decodes a wire-format document.
func Unmarshal(b []byte) (*Document, error) {
	doc := &Document{}
	err := eachField(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case 1:
			n, err := decodeNode(f.bytes)
			if err != nil {
				return err
			}
			doc.Hierarchy = append(doc.Hierarchy, n)
		case 2:
			in := &Instance{}
			err := eachField(f.bytes, func(f field) error {
				switch {
				case f.is(1, protowire.VarintType):
					in.MeshID = uint32(f.u64)
				case f.is(2, protowire.BytesType):
					return decodeMat4(f.bytes, &in.Transform)
				}
				return nil
			})
			if err != nil {
				return err
			}
			doc.Instances = append(doc.Instances, in)
		case 3:
			m, err := decodeMesh(f.bytes)
			if err != nil {
				return err
			}
			doc.Meshes = append(doc.Meshes, m)
		case 4:
			j := &Joint{}
			err := eachField(f.bytes, func(f field) error {
				if f.is(1, protowire.BytesType) {
					return decodeMat4(f.bytes, &j.InverseBind)
				}
				return nil
			})
			if err != nil {
				return err
			}
			doc.Joints = append(doc.Joints, j)
		case 5:
			m, err := decodeMaterial(f.bytes)
			if err != nil {
				return err
			}
			doc.Materials = append(doc.Materials, m)
		case 6:
			a, err := decodeAnimation(f.bytes)
			if err != nil {
				return err
			}
			doc.Animations = append(doc.Animations, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeFloats(b []byte, dst ...*float32) error {
	return eachField(b, func(f field) error {
		i := int(f.num) - 1
		if f.typ == protowire.Fixed32Type && i >= 0 && i < len(dst) {
			*dst[i] = f.float()
		}
		return nil
	})
}

func decodeVec2(b []byte, v *Vec2) error { return decodeFloats(b, &v.X, &v.Y) }
func decodeVec3(b []byte, v *Vec3) error { return decodeFloats(b, &v.X, &v.Y, &v.Z) }
func decodeVec4(b []byte, v *Vec4) error { return decodeFloats(b, &v.X, &v.Y, &v.Z, &v.W) }

func decodeMat4(b []byte, m *Mat4) error {
	rows := []*Vec4{&m.A, &m.B, &m.C, &m.D}
	return eachField(b, func(f field) error {
		i := int(f.num) - 1
		if f.typ == protowire.BytesType && i >= 0 && i < len(rows) {
			return decodeVec4(f.bytes, rows[i])
		}
		return nil
	})
}

func decodeNode(b []byte) (*Node, error) {
	n := &Node{}
	err := eachField(b, func(f field) error {
		switch {
		case f.is(1, protowire.BytesType):
			n.Name = string(f.bytes)
		case f.is(2, protowire.BytesType):
			return decodeMat4(f.bytes, &n.Transform)
		case f.is(3, protowire.BytesType):
			packed := f.bytes
			for len(packed) > 0 {
				v, k := protowire.ConsumeVarint(packed)
				if k < 0 {
					return fmt.Errorf("%w: children: %v", ErrMalformed, protowire.ParseError(k))
				}
				n.Children = append(n.Children, uint32(v))
				packed = packed[k:]
			}
		case f.is(3, protowire.VarintType):
			n.Children = append(n.Children, uint32(f.u64))
		case f.is(4, protowire.VarintType):
			id := uint32(f.u64)
			n.JointID = &id
		}
		return nil
	})
	return n, err
}

func decodeMesh(b []byte) (*Mesh, error) {
	m := &Mesh{}
	err := eachField(b, func(f field) error {
		switch {
		case f.is(1, protowire.BytesType):
			m.Name = string(f.bytes)
		case f.is(2, protowire.VarintType):
			m.MaterialID = uint32(f.u64)
		case f.is(3, protowire.BytesType):
			v := &Vertex{}
			err := eachField(f.bytes, func(f field) error {
				if f.typ != protowire.BytesType {
					return nil
				}
				switch f.num {
				case 1:
					return decodeVec3(f.bytes, &v.Position)
				case 2:
					return decodeVec3(f.bytes, &v.Normal)
				case 3:
					v.UV = &Vec2{}
					return decodeVec2(f.bytes, v.UV)
				case 4:
					return decodeVec3(f.bytes, &v.Tangent)
				case 5:
					return decodeVec3(f.bytes, &v.Bitangent)
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.Vertices = append(m.Vertices, v)
		case f.is(4, protowire.BytesType):
			face := &Face{}
			idx := []*uint32{&face.A, &face.B, &face.C}
			err := eachField(f.bytes, func(f field) error {
				i := int(f.num) - 1
				if f.typ == protowire.VarintType && i >= 0 && i < len(idx) {
					*idx[i] = uint32(f.u64)
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.Faces = append(m.Faces, face)
		case f.is(5, protowire.BytesType):
			var key uint32
			wl := &WeightList{}
			err := eachField(f.bytes, func(f field) error {
				switch {
				case f.is(1, protowire.VarintType):
					key = uint32(f.u64)
				case f.is(2, protowire.BytesType):
					return eachField(f.bytes, func(f field) error {
						if !f.is(1, protowire.BytesType) {
							return nil
						}
						w := &VertexWeight{}
						err := eachField(f.bytes, func(f field) error {
							switch {
							case f.is(1, protowire.VarintType):
								w.Vertex = uint32(f.u64)
							case f.is(2, protowire.Fixed32Type):
								w.Weight = f.float()
							}
							return nil
						})
						wl.Weights = append(wl.Weights, w)
						return err
					})
				}
				return nil
			})
			if err != nil {
				return err
			}
			if m.Weights == nil {
				m.Weights = make(map[uint32]*WeightList)
			}
			m.Weights[key] = wl
		}
		return nil
	})
	return m, err
}

func decodeTexture(b []byte) (*Texture, error) {
	t := &Texture{}
	err := eachField(b, func(f field) error {
		switch {
		case f.is(1, protowire.BytesType):
			t.Data = append([]byte(nil), f.bytes...)
		case f.is(2, protowire.BytesType):
			t.Format = string(f.bytes)
		}
		return nil
	})
	return t, err
}

func decodeMaterial(b []byte) (*Material, error) {
	m := &Material{}
	err := eachField(b, func(f field) error {
		var err error
		switch {
		case f.is(1, protowire.BytesType):
			m.Name = string(f.bytes)
		case f.is(2, protowire.Fixed32Type):
			s := f.float()
			m.Shininess = &s
		case f.is(3, protowire.BytesType):
			m.Diffuse, err = decodeTexture(f.bytes)
		case f.is(4, protowire.BytesType):
			m.Specular, err = decodeTexture(f.bytes)
		case f.is(5, protowire.BytesType):
			m.Normal, err = decodeTexture(f.bytes)
		case f.is(6, protowire.BytesType):
			m.Emissive, err = decodeTexture(f.bytes)
		}
		return err
	})
	return m, err
}

func decodeVec3Key(b []byte) (*Vec3Key, error) {
	k := &Vec3Key{}
	err := eachField(b, func(f field) error {
		switch {
		case f.is(1, protowire.Fixed32Type):
			k.Time = f.float()
		case f.is(2, protowire.BytesType):
			return decodeVec3(f.bytes, &k.Value)
		}
		return nil
	})
	return k, err
}

func decodeAnimation(b []byte) (*Animation, error) {
	a := &Animation{}
	err := eachField(b, func(f field) error {
		switch {
		case f.is(1, protowire.BytesType):
			a.Name = string(f.bytes)
		case f.is(2, protowire.Fixed32Type):
			a.Duration = f.float()
		case f.is(3, protowire.Fixed32Type):
			a.TPS = f.float()
		case f.is(4, protowire.BytesType):
			c, err := decodeChannel(f.bytes)
			if err != nil {
				return err
			}
			a.Channels = append(a.Channels, c)
		}
		return nil
	})
	return a, err
}

func decodeChannel(b []byte) (*Channel, error) {
	c := &Channel{}
	err := eachField(b, func(f field) error {
		switch {
		case f.is(1, protowire.VarintType):
			c.NodeID = uint32(f.u64)
		case f.is(2, protowire.BytesType):
			k, err := decodeVec3Key(f.bytes)
			if err != nil {
				return err
			}
			c.PosFrames = append(c.PosFrames, k)
		case f.is(3, protowire.BytesType):
			k := &QuatKey{}
			err := eachField(f.bytes, func(f field) error {
				switch {
				case f.is(1, protowire.Fixed32Type):
					k.Time = f.float()
				case f.is(2, protowire.BytesType):
					return decodeVec4(f.bytes, &k.Value)
				}
				return nil
			})
			if err != nil {
				return err
			}
			c.RotFrames = append(c.RotFrames, k)
		case f.is(4, protowire.BytesType):
			k, err := decodeVec3Key(f.bytes)
			if err != nil {
				return err
			}
			c.ScaleFrames = append(c.ScaleFrames, k)
		}
		return nil
	})
	return c, err
}
