package ntag424

import (
	"bytes"
	"crypto/rand"
	"io"
)

const (
	insAuthFirst    = 0x71
	insAuthNonFirst = 0x77
	insAuthContinue = 0xAF
)

// AuthenticateEV2First runs the two-phase EV2First challenge-response
// handshake against slot using key, and on success installs a fresh
// Session (TI renewed, CC reset to zero). Any failure once the
// handshake has started leaves no session fields set (spec.md section
// 8, property 7); a key of the wrong length is rejected before any APDU
// is sent and leaves the session as it was.
func (e *Engine) AuthenticateEV2First(slot byte, key []byte) error {
	return e.authenticate(slot, key, insAuthFirst, true)
}

// AuthenticateEV2NonFirst rotates the session keys against an already
// active session without resetting TI or the command counter. Requires
// a currently active session.
func (e *Engine) AuthenticateEV2NonFirst(slot byte, key []byte) error {
	e.mu.Lock()
	active := e.session.Active()
	e.mu.Unlock()
	if !active {
		return errNotAuthenticated()
	}
	return e.authenticate(slot, key, insAuthNonFirst, false)
}

func (e *Engine) authenticate(slot byte, key []byte, ins byte, first bool) error {
	if len(key) != 16 {
		return errInvalidArgument("key must be 16 bytes")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	randB, err := e.authPhase1(key, ins, slot)
	if err != nil {
		e.session.terminate()
		return err
	}

	randA := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, randA); err != nil {
		e.session.terminate()
		return errTransport(err)
	}

	ti, err := e.authPhase2(key, randA, randB, first)
	if err != nil {
		e.session.terminate()
		return err
	}

	kEnc, kMac, err := deriveSessionKeys(key, randA, randB)
	if err != nil {
		e.session.terminate()
		return err
	}

	if first {
		e.session.install(kEnc, kMac, ti, slot)
	} else {
		e.session.rotateKeys(kEnc, kMac)
		e.session.authedSlot = slot
	}
	return nil
}

// authPhase1 sends the key-slot challenge and returns the decrypted
// RandB.
func (e *Engine) authPhase1(key []byte, ins, slot byte) ([]byte, error) {
	body := []byte{slot, 0x03, 0x00, 0x00, 0x00}
	apdu := buildAPDU(header4{0x90, ins, 0x00, 0x00}, body, true)
	resp, sw, err := transmit(e.card, apdu)
	if err != nil {
		return nil, err
	}
	if sw != swMoreData || len(resp) != 16 {
		return nil, errProtocolDesync("auth phase 1: unexpected response shape")
	}

	iv0 := make([]byte, 16)
	return aesCBCDecrypt(key, iv0, resp)
}

// authPhase2 sends the encrypted RandA||rotate(RandB) and returns the
// session TI (renewed on first, reused otherwise after RandA
// verification).
func (e *Engine) authPhase2(key, randA, randB []byte, first bool) ([]byte, error) {
	iv0 := make([]byte, 16)
	randBRot := rotateLeft1(randB)
	plain := append(append([]byte{}, randA...), randBRot...)
	ct, err := aesCBCEncrypt(key, iv0, plain)
	if err != nil {
		return nil, err
	}

	apdu := buildAPDU(header4{0x90, insAuthContinue, 0x00, 0x00}, ct, true)
	resp, sw, err := transmit(e.card, apdu)
	if err != nil {
		return nil, err
	}
	if sw != swOK {
		return nil, errStatusWord(insAuthContinue, sw)
	}

	wantLen := 16
	if first {
		wantLen = 32
	}
	if len(resp) != wantLen {
		return nil, errProtocolDesync("auth phase 2: unexpected response length")
	}

	dec, err := aesCBCDecrypt(key, iv0, resp)
	if err != nil {
		return nil, err
	}

	var ti, randARotCard []byte
	if first {
		ti = dec[0:4]
		randARotCard = dec[4:20]
	} else {
		ti = e.session.ti[:]
		randARotCard = dec[0:16]
	}

	if !bytes.Equal(rotateRight1(randARotCard), randA) {
		return nil, errProtocolDesync("auth phase 2: RandA verification failed")
	}
	return ti, nil
}
