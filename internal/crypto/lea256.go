package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// BlockSize is the LEA block size in bytes.
const BlockSize = 16

// ErrBlockSize is returned for LEA input that is not a whole number of blocks.
var ErrBlockSize = errors.New("crypto: input is not a multiple of the block size")

var leaDelta = [8]uint32{
	0xc3efe9db, 0x44626b02, 0x79e27c8a, 0x78df30ec,
	0x715ea49e, 0xc785da0a, 0xe04ef22a, 0xe5c40957,
}

var leaShifts = [6]int{1, 3, 6, 11, 13, 17}

// leaKeySchedule expands a 32-byte key into 32 rounds of six round keys.
func leaKeySchedule(key [32]byte) [32][6]uint32 {
	var t [8]uint32
	for i := range t {
		t[i] = binary.LittleEndian.Uint32(key[i*4:])
	}

	var rk [32][6]uint32
	for i := 0; i < 32; i++ {
		d := leaDelta[i&7]
		s := (i * 6) & 7
		for j := 0; j < 6; j++ {
			idx := (s + j) & 7
			t[idx] = bits.RotateLeft32(t[idx]+bits.RotateLeft32(d, i+j), leaShifts[j])
			rk[i][j] = t[idx]
		}
	}
	return rk
}

// DecryptLEA decrypts data with LEA-256 in ECB mode, as used by BMD v15.
func DecryptLEA(data []byte, key [32]byte) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockSize, len(data))
	}
	rk := leaKeySchedule(key)
	out := make([]byte, len(data))

	for off := 0; off < len(data); off += BlockSize {
		var x [4]uint32
		for k := range x {
			x[k] = binary.LittleEndian.Uint32(data[off+k*4:])
		}
		for r := 31; r >= 0; r-- {
			k := &rk[r]
			x0 := x[3]
			x1 := (bits.RotateLeft32(x[0], -9) - (x0 ^ k[0])) ^ k[1]
			x2 := (bits.RotateLeft32(x[1], 5) - (x1 ^ k[2])) ^ k[3]
			x3 := (bits.RotateLeft32(x[2], 3) - (x2 ^ k[4])) ^ k[5]
			x = [4]uint32{x0, x1, x2, x3}
		}
		for k := range x {
			binary.LittleEndian.PutUint32(out[off+k*4:], x[k])
		}
	}
	return out, nil
}

// EncryptLEA is the inverse of DecryptLEA.
func EncryptLEA(data []byte, key [32]byte) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockSize, len(data))
	}
	rk := leaKeySchedule(key)
	out := make([]byte, len(data))

	for off := 0; off < len(data); off += BlockSize {
		var x [4]uint32
		for k := range x {
			x[k] = binary.LittleEndian.Uint32(data[off+k*4:])
		}
		for r := 0; r < 32; r++ {
			k := &rk[r]
			x = [4]uint32{
				bits.RotateLeft32((x[0]^k[0])+(x[1]^k[1]), 9),
				bits.RotateLeft32((x[1]^k[2])+(x[2]^k[3]), -5),
				bits.RotateLeft32((x[2]^k[4])+(x[3]^k[5]), -3),
				x[0],
			}
		}
		for k := range x {
			binary.LittleEndian.PutUint32(out[off+k*4:], x[k])
		}
	}
	return out, nil
}
