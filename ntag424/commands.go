package ntag424

import "encoding/binary"

// FileID is the enumerated domain of section 3.
type FileID int

const (
	FileMaster FileID = iota
	FileApplication
	FileCC
	FileNDEF
	FileProprietary
)

// fileNumber returns the DESFire file number for file IDs that have
// one (CC/NDEF/Proprietary); master and application select by DF/AID
// instead and have no file number.
func (f FileID) fileNumber() (byte, bool) {
	switch f {
	case FileCC:
		return 0x01, true
	case FileNDEF:
		return 0x02, true
	case FileProprietary:
		return 0x03, true
	default:
		return 0, false
	}
}

// maxSize is the documented maximum size in bytes for CC/NDEF/Proprietary.
func (f FileID) maxSize() (int, bool) {
	switch f {
	case FileCC:
		return 32, true
	case FileNDEF:
		return 256, true
	case FileProprietary:
		return 128, true
	default:
		return 0, false
	}
}

var applicationAID = []byte{0xE1, 0x10}

// SelectFile selects master (DF 3F00), the application (AID E110), or
// one of the three application files (which implicitly selects the
// application first).
func (e *Engine) SelectFile(file FileID) error {
	hdr := header4{0x00, 0xA4, 0x00, 0x0C}

	switch file {
	case FileMaster:
		_, err := e.do(request{hdr: hdr, cmd: 0xA4, cmdData: []byte{0x3F, 0x00}, includeLe: true}, ModePlain)
		return err
	case FileApplication:
		_, err := e.do(request{hdr: hdr, cmd: 0xA4, cmdData: applicationAID, includeLe: true}, ModePlain)
		return err
	case FileCC, FileNDEF, FileProprietary:
		if err := e.SelectFile(FileApplication); err != nil {
			return err
		}
		num, _ := file.fileNumber()
		body := []byte{0xE1, 0x03 + num - 1}
		_, err := e.do(request{hdr: hdr, cmd: 0xA4, cmdData: body, includeLe: true}, ModePlain)
		return err
	default:
		return errInvalidArgument("unknown file id")
	}
}

// GetCardUID retrieves the 7-byte tag UID. The request is MAC-mode but
// the response body is full-encrypted under the session keys, so it is
// decrypted per section 4.5.5 even though the command itself was sent
// MAC-only (spec.md section 4.7 catalog note).
func (e *Engine) GetCardUID() ([]byte, error) {
	req := request{hdr: header4{0x90, 0x51, 0x00, 0x00}, cmd: 0x51, includeLe: true}

	e.mu.Lock()
	defer e.mu.Unlock()
	data, err := e.ccUIDLocked(req)
	return data, e.teardownOnFailure(ModeFull, err)
}

// ccUIDLocked performs GetCardUID's hybrid MAC-request/full-response
// exchange while the engine mutex is held.
func (e *Engine) ccUIDLocked(req request) ([]byte, error) {
	sess := &e.session
	if !sess.Active() {
		return nil, errNotAuthenticated()
	}

	macInput := make([]byte, 0, 1+2+4)
	macInput = append(macInput, req.cmd)
	macInput = append(macInput, sess.ccLE()...)
	macInput = append(macInput, sess.ti[:]...)
	cmac, err := aesCMAC(sess.kMac[:], macInput)
	if err != nil {
		return nil, err
	}
	mac := truncateMAC(cmac)

	apdu := buildAPDU(req.hdr, mac, req.includeLe)
	data, sw, err := transmit(e.card, apdu)
	if err != nil {
		return nil, err
	}
	if sw != swOK {
		return nil, errStatusWord(req.cmd, sw)
	}
	if err := sess.incrementCC(); err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, errProtocolDesync("GetCardUID response shorter than the trailing MAC")
	}

	if _, err := verifyResponseMAC(sess, 0x00, data); err != nil {
		return nil, err
	}
	respEnc := data[:len(data)-8]
	ivr, err := responseIV(sess)
	if err != nil {
		return nil, err
	}
	plain, err := aesCBCDecrypt(sess.kEnc[:], ivr, respEnc)
	if err != nil {
		return nil, err
	}
	return unpadISO9797M2(plain)
}

// GetFileSettings retrieves a file's comm mode, access rights, size,
// and SDM configuration via MAC-mode secure messaging.
func (e *Engine) GetFileSettings(file FileID) (*FileSettings, error) {
	num, ok := file.fileNumber()
	if !ok {
		return nil, errInvalidArgument("file has no file number")
	}
	req := request{hdr: header4{0x90, 0xF5, 0x00, 0x00}, cmd: 0xF5, cmdHeader: []byte{num}, includeLe: true}
	data, err := e.do(req, ModeMac)
	if err != nil {
		return nil, err
	}
	return parseFileSettings(data)
}

// ChangeFileSettings writes a file's comm mode, access rights, and SDM
// configuration via full secure messaging.
func (e *Engine) ChangeFileSettings(file FileID, settings []byte) error {
	num, ok := file.fileNumber()
	if !ok {
		return errInvalidArgument("file has no file number")
	}
	req := request{hdr: header4{0x90, 0x5F, 0x00, 0x00}, cmd: 0x5F, cmdHeader: []byte{num}, cmdData: settings, includeLe: true}
	_, err := e.do(req, ModeFull)
	return err
}

// ReadData reads length bytes at offset from file, deriving the
// command mode from the file's current settings (spec.md section 4.7):
// GetFileSettings is itself a MAC-mode call and advances the command
// counter as a documented side effect of this operation.
func (e *Engine) ReadData(file FileID, offset, length byte) ([]byte, error) {
	num, ok := file.fileNumber()
	if !ok {
		return nil, errInvalidArgument("file has no file number")
	}
	maxSize, _ := file.maxSize()
	if int(offset)+int(length) > maxSize {
		return nil, errInvalidArgument("offset+length exceeds file size")
	}

	mode, err := e.readModeForFile(file)
	if err != nil {
		return nil, err
	}

	cmdHeader := []byte{num, offset, 0x00, 0x00, length, 0x00, 0x00}
	req := request{hdr: header4{0x90, 0xAD, 0x00, 0x00}, cmd: 0xAD, cmdHeader: cmdHeader, includeLe: true}
	return e.do(req, mode)
}

// WriteData writes data at offset into file, deriving the command mode
// the same way ReadData does. data is sent as given: it is not
// zero-filled up to the file's size (in full mode only the wrapper's
// block padding is added). NDEF writes are
// constrained to 248 bytes of payload per command (spec.md section 3).
func (e *Engine) WriteData(file FileID, data []byte, offset byte) error {
	num, ok := file.fileNumber()
	if !ok {
		return errInvalidArgument("file has no file number")
	}
	maxSize, _ := file.maxSize()
	if int(offset)+len(data) > maxSize {
		return errInvalidArgument("offset+len(data) exceeds file size")
	}
	if file == FileNDEF && len(data) > 248 {
		return errInvalidArgument("NDEF writes are constrained to 248 bytes of payload per command")
	}

	mode, err := e.readModeForFile(file)
	if err != nil {
		return err
	}

	cmdHeader := []byte{num, offset, 0x00, 0x00, byte(len(data)), 0x00, 0x00}
	req := request{hdr: header4{0x90, 0x8D, 0x00, 0x00}, cmd: 0x8D, cmdHeader: cmdHeader, cmdData: data, includeLe: true}
	_, err = e.do(req, mode)
	return err
}

func (e *Engine) readModeForFile(file FileID) (Mode, error) {
	fs, err := e.GetFileSettings(file)
	if err != nil {
		return ModePlain, err
	}
	return modeFromFileSettingsByte(fs.FileOption), nil
}

// GetKeyVersion returns the one-byte version of a key slot.
func (e *Engine) GetKeyVersion(slot byte) (byte, error) {
	req := request{hdr: header4{0x90, 0x64, 0x00, 0x00}, cmd: 0x64, cmdHeader: []byte{slot}, includeLe: true}
	data, err := e.do(req, ModeMac)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, errProtocolDesync("GetKeyVersion: empty response")
	}
	return data[0], nil
}

// ChangeMasterKey changes key slot 0, the application master key.
func (e *Engine) ChangeMasterKey(newKey []byte, newKeyVersion byte) error {
	if len(newKey) != 16 {
		return errInvalidArgument("new key must be 16 bytes")
	}
	data := make([]byte, 0, 17)
	data = append(data, newKey...)
	data = append(data, newKeyVersion)
	req := request{hdr: header4{0x90, 0xC4, 0x00, 0x00}, cmd: 0xC4, cmdHeader: []byte{0x00}, cmdData: data, includeLe: true}
	_, err := e.do(req, ModeFull)
	return err
}

// ChangeApplicationKey changes key slot 1..4 using the XOR+CRC form;
// only slot 0 may perform this (spec.md section 3). The caller must
// already be authenticated as slot 0.
func (e *Engine) ChangeApplicationKey(slot byte, oldKey, newKey []byte, currentKeyVersion byte) error {
	if slot < 1 || slot > 4 {
		return errInvalidArgument("slot must be in 1..4")
	}
	if len(oldKey) != 16 || len(newKey) != 16 {
		return errInvalidArgument("keys must be 16 bytes")
	}

	xorBuf := make([]byte, 16)
	for i := range xorBuf {
		xorBuf[i] = oldKey[i] ^ newKey[i]
	}
	crc := crc32JAMCRC(newKey)

	data := make([]byte, 0, 21)
	data = append(data, xorBuf...)
	data = append(data, currentKeyVersion)
	data = append(data, crc[:]...)

	req := request{hdr: header4{0x90, 0xC4, 0x00, 0x00}, cmd: 0xC4, cmdHeader: []byte{slot}, cmdData: data, includeLe: true}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.AuthedSlot() != 0 {
		return errInvalidArgument("changing slots 1..4 requires authentication as slot 0")
	}
	_, err := wrap(e.card, &e.session, req, ModeFull)
	return e.teardownOnFailure(ModeFull, err)
}

// FileSettings is the parsed GetFileSettings response (spec.md section 3).
type FileSettings struct {
	FileType   byte
	FileOption byte
	AR1        byte
	AR2        byte
	Size       int

	SDMEnabled bool
	SDMOptions byte
	SDMMeta    byte
	SDMFile    byte
	SDMCtr     byte

	UIDOffset      uint32
	CtrOffset      uint32
	MACInputOffset uint32
	MACOffset      uint32
	ENCOffset      uint32
	ENCLength      uint32
	CtrLimit       uint32
}

func parseFileSettings(data []byte) (*FileSettings, error) {
	if len(data) < 7 {
		return nil, errProtocolDesync("file settings response too short")
	}
	fs := &FileSettings{
		FileType:   data[0],
		FileOption: data[1],
		AR1:        data[2],
		AR2:        data[3],
		Size:       int(data[4]) | int(data[5])<<8 | int(data[6])<<16,
	}
	if fs.FileOption&0x40 == 0 {
		return fs, nil
	}
	fs.SDMEnabled = true

	idx := 7
	if len(data) < idx+3 {
		return nil, errProtocolDesync("file settings missing SDM fields")
	}
	fs.SDMOptions = data[idx]
	sdmAR := binary.LittleEndian.Uint16(data[idx+1 : idx+3])
	fs.SDMMeta = byte((sdmAR >> 12) & 0x0F)
	fs.SDMFile = byte((sdmAR >> 8) & 0x0F)
	fs.SDMCtr = byte(sdmAR & 0x0F)
	idx += 3

	if fs.SDMOptions&0x80 != 0 && fs.SDMMeta == 0x0E {
		if len(data) < idx+3 {
			return nil, errProtocolDesync("file settings missing UIDOffset")
		}
		fs.UIDOffset = readU24LE(data, idx)
		idx += 3
	}
	if fs.SDMOptions&0x40 != 0 && fs.SDMMeta == 0x0E {
		if len(data) < idx+3 {
			return nil, errProtocolDesync("file settings missing CtrOffset")
		}
		fs.CtrOffset = readU24LE(data, idx)
		idx += 3
	}
	if fs.SDMMeta != 0x0E && fs.SDMMeta != 0x0F {
		if len(data) < idx+3 {
			return nil, errProtocolDesync("file settings missing PICC data offset")
		}
		fs.UIDOffset = readU24LE(data, idx)
		idx += 3
	}
	if fs.SDMFile != 0x0F {
		if len(data) < idx+6 {
			return nil, errProtocolDesync("file settings missing MAC offsets")
		}
		fs.MACInputOffset = readU24LE(data, idx)
		fs.MACOffset = readU24LE(data, idx+3)
		idx += 6
	}
	if fs.SDMOptions&0x10 != 0 {
		if len(data) < idx+6 {
			return nil, errProtocolDesync("file settings missing ENC offsets")
		}
		fs.ENCOffset = readU24LE(data, idx)
		fs.ENCLength = readU24LE(data, idx+3)
		idx += 6
	}
	if fs.SDMOptions&0x20 != 0 {
		if len(data) < idx+3 {
			return nil, errProtocolDesync("file settings missing CtrLimit")
		}
		fs.CtrLimit = readU24LE(data, idx)
		idx += 3
	}
	return fs, nil
}

// BuildChangeFileSettingsData assembles the ChangeFileSettings payload
// for either a basic (SDM disabled) or SDM-enabled configuration.
func BuildChangeFileSettingsData(commMode byte, ar1, ar2 byte, sdmOptions, sdmMeta, sdmFile, sdmCtr byte,
	uidOffset, ctrOffset, macInputOffset, macOffset uint32) []byte {

	data := make([]byte, 0, 32)
	fileOption := commMode & 0x03
	if sdmOptions != 0x00 {
		fileOption |= 0x40
	}
	data = append(data, fileOption, ar1, ar2)

	if sdmOptions == 0x00 {
		return data
	}
	data = append(data, sdmOptions)
	sdmAR := uint16(sdmMeta&0x0F)<<12 | uint16(sdmFile&0x0F)<<8 | 0x0F<<4 | uint16(sdmCtr&0x0F)
	data = append(data, byte(sdmAR), byte(sdmAR>>8))

	if sdmOptions&0x80 != 0 && sdmMeta == 0x0E {
		data = append(data, u24LE(uidOffset)...)
	}
	if sdmOptions&0x40 != 0 && sdmMeta == 0x0E {
		data = append(data, u24LE(ctrOffset)...)
	}
	if sdmFile != 0x0F {
		data = append(data, u24LE(macInputOffset)...)
		data = append(data, u24LE(macOffset)...)
	}
	return data
}

func readU24LE(data []byte, offset int) uint32 {
	return uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16
}

func u24LE(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16)}
}
