package ntag424

// Status words the framer recognises directly; every other SW is
// surfaced as KindStatusWord.
const (
	swOK       = 0x9100 // complete success
	swMoreData = 0x91AF // additional frames follow (EV2 auth, GetVersion)
)

// header4 is the 4-byte ISO-7816 CLA/INS/P1/P2 prefix.
type header4 [4]byte

// buildAPDU assembles a short-form ISO-7816 APDU: header || [Lc] ||
// body || [Le=00]. Lc is omitted when body is empty.
func buildAPDU(hdr header4, body []byte, includeLe bool) []byte {
	out := make([]byte, 0, 4+1+len(body)+1)
	out = append(out, hdr[:]...)
	if len(body) > 0 {
		out = append(out, byte(len(body)))
		out = append(out, body...)
	}
	if includeLe {
		out = append(out, 0x00)
	}
	return out
}

// swOKForMode reports whether sw is an accepted success code for the
// given command mode: plain accepts 9100 or 91AF, mac/full require
// 9100.
func swOKForMode(sw uint16, mode Mode) bool {
	if sw == swOK {
		return true
	}
	return mode == ModePlain && sw == swMoreData
}
