package ntag424

// TagVersion holds the hardware and software identification returned by
// GetVersion, plus the factory UID and production data that ship in the
// plaintext third frame.
type TagVersion struct {
	HWVendorID    byte
	HWType        byte
	HWSubType     byte
	HWMajorVer    byte
	HWMinorVer    byte
	HWStorageSize byte
	HWProtocol    byte
	SWVendorID    byte
	SWType        byte
	SWSubType     byte
	SWMajorVer    byte
	SWMinorVer    byte
	SWStorageSize byte
	SWProtocol    byte
	UID           []byte
	BatchNo       []byte
	FabKey        byte
	ProdYear      byte
	ProdWeek      byte
}

// GetVersion runs the three-frame DESFire GetVersion exchange (INS
// 0x60, each frame continued with 0xAF). It is always sent in the
// clear at PICC level and works without an active session.
func (e *Engine) GetVersion() (*TagVersion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	resp1, sw, err := transmit(e.card, buildAPDU(header4{0x90, 0x60, 0x00, 0x00}, nil, true))
	if err != nil {
		return nil, err
	}
	if sw != swMoreData || len(resp1) != 7 {
		return nil, errProtocolDesync("GetVersion part 1: unexpected response shape")
	}

	resp2, sw, err := transmit(e.card, buildAPDU(header4{0x90, insAuthContinue, 0x00, 0x00}, nil, true))
	if err != nil {
		return nil, err
	}
	if sw != swMoreData || len(resp2) != 7 {
		return nil, errProtocolDesync("GetVersion part 2: unexpected response shape")
	}

	resp3, sw, err := transmit(e.card, buildAPDU(header4{0x90, insAuthContinue, 0x00, 0x00}, nil, true))
	if err != nil {
		return nil, err
	}
	if sw != swOK || len(resp3) != 14 {
		return nil, errProtocolDesync("GetVersion part 3: unexpected response shape")
	}

	return &TagVersion{
		HWVendorID:    resp1[0],
		HWType:        resp1[1],
		HWSubType:     resp1[2],
		HWMajorVer:    resp1[3],
		HWMinorVer:    resp1[4],
		HWStorageSize: resp1[5],
		HWProtocol:    resp1[6],
		SWVendorID:    resp2[0],
		SWType:        resp2[1],
		SWSubType:     resp2[2],
		SWMajorVer:    resp2[3],
		SWMinorVer:    resp2[4],
		SWStorageSize: resp2[5],
		SWProtocol:    resp2[6],
		UID:           append([]byte{}, resp3[0:7]...),
		BatchNo:       append([]byte{}, resp3[7:12]...),
		FabKey:        resp3[12],
		ProdYear:      resp3[13] >> 4,
		ProdWeek:      resp3[13] & 0x0F,
	}, nil
}
