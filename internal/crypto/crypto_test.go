package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestDecryptXORKnownVector(t *testing.T) {
	got := DecryptXOR(mustHex(t, "71885b4e295dd8a66ca51f"))
	if string(got) != "BMD payload" {
		t.Fatalf("DecryptXOR = %q", got)
	}
}

func TestXORRoundTrip(t *testing.T) {
	plain := make([]byte, 100)
	for i := range plain {
		plain[i] = byte(i * 7)
	}
	if got := DecryptXOR(EncryptXOR(plain)); !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch:\n got % x\nwant % x", got, plain)
	}
}

// KISA reference vector for LEA-256.
func TestLEAReferenceVector(t *testing.T) {
	var key [32]byte
	copy(key[:], mustHex(t, "0f1e2d3c4b5a69788796a5b4c3d2e1f0f0e1d2c3b4a5968778695a4b3c2d1e0f"))
	plain := mustHex(t, "303132333435363738393a3b3c3d3e3f")
	cipher := mustHex(t, "d651aff647b189c13a8900ca27f9e197")

	enc, err := EncryptLEA(plain, key)
	if err != nil {
		t.Fatalf("EncryptLEA returned error: %v", err)
	}
	if !bytes.Equal(enc, cipher) {
		t.Fatalf("EncryptLEA = %x, want %x", enc, cipher)
	}

	dec, err := DecryptLEA(cipher, key)
	if err != nil {
		t.Fatalf("DecryptLEA returned error: %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatalf("DecryptLEA = %x, want %x", dec, plain)
	}
}

func TestLEARejectsPartialBlock(t *testing.T) {
	if _, err := DecryptLEA(make([]byte, 17), [32]byte{}); !errors.Is(err, ErrBlockSize) {
		t.Fatalf("expected ErrBlockSize, got %v", err)
	}
}
