// Package crypto decrypts the payloads of encrypted BMD model files.
package crypto

// XORKey is the 16-byte key of the BMD v12 chained XOR scheme.
var XORKey = [16]byte{
	0xD1, 0x73, 0x52, 0xF6, 0xD2, 0x9A, 0xCB, 0x27,
	0x3E, 0xAF, 0x59, 0x31, 0x37, 0xB3, 0xE7, 0xA2,
}

const (
	xorChainSeed = 0x5E
	xorChainStep = 0x3D
)

// DecryptXOR decrypts a BMD v12 payload. Each output byte depends on the
// previous ciphertext byte:
//
//	out[i] = (data[i] ^ XORKey[i&15]) - chain
//	chain  = data[i] + 0x3D
func DecryptXOR(data []byte) []byte {
	out := make([]byte, len(data))
	chain := byte(xorChainSeed)
	for i, b := range data {
		out[i] = (b ^ XORKey[i&15]) - chain
		chain = b + xorChainStep
	}
	return out
}

// EncryptXOR is the inverse of DecryptXOR.
func EncryptXOR(data []byte) []byte {
	out := make([]byte, len(data))
	chain := byte(xorChainSeed)
	for i, b := range data {
		out[i] = (b + chain) ^ XORKey[i&15]
		chain = out[i] + xorChainStep
	}
	return out
}
