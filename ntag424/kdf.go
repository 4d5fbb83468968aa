package ntag424

// deriveSessionKeys derives (Kenc, Kmac) from the two 16-byte random
// nonces and the 16-byte authentication key, per spec.md section 4.3.
//
//	last2A = RandA[0:2]
//	xor6   = RandA[2:8] XOR RandB[0:6]
//	restB  = RandB[6:16]
//	restA  = RandA[8:16]
//	SV1 = A5 5A 00 01 00 80 || last2A || xor6 || restB || restA
//	SV2 = 5A A5 00 01 00 80 || last2A || xor6 || restB || restA
//	Kenc = AES-CMAC(K, SV1)
//	Kmac = AES-CMAC(K, SV2)
func deriveSessionKeys(key, randA, randB []byte) (kEnc, kMac []byte, err error) {
	sv1 := buildSV(0xA5, 0x5A, randA, randB)
	sv2 := buildSV(0x5A, 0xA5, randA, randB)

	kEnc, err = aesCMAC(key, sv1)
	if err != nil {
		return nil, nil, err
	}
	kMac, err = aesCMAC(key, sv2)
	if err != nil {
		return nil, nil, err
	}
	return kEnc, kMac, nil
}

func buildSV(b0, b1 byte, randA, randB []byte) []byte {
	sv := make([]byte, 0, 32)
	sv = append(sv, b0, b1, 0x00, 0x01, 0x00, 0x80)
	sv = append(sv, randA[0:2]...)
	for i := 0; i < 6; i++ {
		sv = append(sv, randA[2+i]^randB[i])
	}
	sv = append(sv, randB[6:16]...)
	sv = append(sv, randA[8:16]...)
	return sv
}
