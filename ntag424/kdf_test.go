package ntag424

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// S1's fixed nonces, reused by the wrapper scenario tests.
var (
	s1Key   = make([]byte, 16)
	s1RandA = hexMust("13c5db8a5930439fc3def9a4c675360f")
	s1RandB = hexMust("3af907807b6051236a0a4f9f96906d96")
)

func hexMust(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Property 3: same (RandA, RandB, K) always derives the same (Kenc, Kmac).
func TestDeriveSessionKeysDeterministic(t *testing.T) {
	kEnc1, kMac1, err := deriveSessionKeys(s1Key, s1RandA, s1RandB)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	kEnc2, kMac2, err := deriveSessionKeys(s1Key, s1RandA, s1RandB)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(kEnc1, kEnc2) || !bytes.Equal(kMac1, kMac2) {
		t.Fatal("deriveSessionKeys is not deterministic for identical inputs")
	}
}

// S1: Kenc and Kmac are each AES-CMAC(K, SV) over the documented
// byte layout, differing only in the leading label bytes.
func TestDeriveSessionKeysSVLayout(t *testing.T) {
	sv1 := buildSV(0xA5, 0x5A, s1RandA, s1RandB)
	sv2 := buildSV(0x5A, 0xA5, s1RandA, s1RandB)

	if len(sv1) != 32 || len(sv2) != 32 {
		t.Fatalf("SV length = %d/%d, want 32/32", len(sv1), len(sv2))
	}
	if !bytes.Equal(sv1[2:], sv2[2:]) {
		t.Fatal("SV1 and SV2 must be identical except for the leading two label bytes")
	}
	if sv1[0] != 0xA5 || sv1[1] != 0x5A || sv2[0] != 0x5A || sv2[1] != 0xA5 {
		t.Fatal("SV label bytes do not match section 4.3")
	}

	wantEnc, err := aesCMAC(s1Key, sv1)
	if err != nil {
		t.Fatalf("cmac: %v", err)
	}
	wantMac, err := aesCMAC(s1Key, sv2)
	if err != nil {
		t.Fatalf("cmac: %v", err)
	}

	kEnc, kMac, err := deriveSessionKeys(s1Key, s1RandA, s1RandB)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(kEnc, wantEnc) {
		t.Fatalf("Kenc = %x, want %x", kEnc, wantEnc)
	}
	if !bytes.Equal(kMac, wantMac) {
		t.Fatalf("Kmac = %x, want %x", kMac, wantMac)
	}
}

func TestBuildSVXORLayout(t *testing.T) {
	sv := buildSV(0xA5, 0x5A, s1RandA, s1RandB)
	if !bytes.Equal(sv[:6], []byte{0xA5, 0x5A, 0x00, 0x01, 0x00, 0x80}) {
		t.Fatalf("SV header = %x, want A5 5A 00 01 00 80", sv[:6])
	}
	if !bytes.Equal(sv[6:8], s1RandA[0:2]) {
		t.Fatalf("SV[6:8] = %x, want RandA[0:2] = %x", sv[6:8], s1RandA[0:2])
	}
	for i := 0; i < 6; i++ {
		want := s1RandA[2+i] ^ s1RandB[i]
		if sv[8+i] != want {
			t.Fatalf("SV[%d] = %02X, want RandA[%d]^RandB[%d] = %02X", 8+i, sv[8+i], 2+i, i, want)
		}
	}
	if !bytes.Equal(sv[14:24], s1RandB[6:16]) {
		t.Fatalf("SV[14:24] = %x, want RandB[6:16] = %x", sv[14:24], s1RandB[6:16])
	}
	if !bytes.Equal(sv[24:32], s1RandA[8:16]) {
		t.Fatalf("SV[24:32] = %x, want RandA[8:16] = %x", sv[24:32], s1RandA[8:16])
	}
}
