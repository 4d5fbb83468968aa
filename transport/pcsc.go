// Package transport binds the ntag424 secure-messaging engine to a
// real PC/SC reader via github.com/ebfe/scard. This is the only
// package in the module allowed to import scard; the core package
// only ever sees the minimal Card interface.
package transport

import (
	"fmt"

	"github.com/ebfe/scard"

	"github.com/ntag424dna/hostdriver/ntag424"
)

// Connection wraps a PC/SC card connection and implements the
// ntag424.Card interface.
type Connection struct {
	ctx       *scard.Context
	card      *scard.Card
	reader    string
	readerIdx int
}

// wrapTransportErr classifies a scard-layer failure as ntag424.KindTransport,
// the same taxonomy every secured command failure surfaces as, so CLI
// and caller error handling never has to special-case "the PC/SC layer
// failed" versus "the card rejected the command".
func wrapTransportErr(msg string, err error) error {
	if err == nil {
		return nil
	}
	return &ntag424.Error{Kind: ntag424.KindTransport, Err: fmt.Errorf("%s: %w", msg, err)}
}

// Connect establishes a PC/SC context and connects to the reader at
// readerIndex (0-based, per scard.Context.ListReaders order).
func Connect(readerIndex int) (*Connection, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, wrapTransportErr("establish PC/SC context", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		ctx.Release()
		return nil, wrapTransportErr("list PC/SC readers", err)
	}
	if len(readers) == 0 {
		ctx.Release()
		return nil, &ntag424.Error{Kind: ntag424.KindTransport, Msg: "no PC/SC readers found"}
	}
	if readerIndex < 0 || readerIndex >= len(readers) {
		ctx.Release()
		return nil, &ntag424.Error{Kind: ntag424.KindTransport, Msg: fmt.Sprintf("reader index out of range [0,%d]", len(readers)-1)}
	}

	reader := readers[readerIndex]
	card, err := ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		ctx.Release()
		return nil, wrapTransportErr(fmt.Sprintf("connect to reader %q", reader), err)
	}

	return &Connection{ctx: ctx, card: card, reader: reader, readerIdx: readerIndex}, nil
}

// Reader returns the PC/SC reader name this connection is bound to.
func (c *Connection) Reader() string { return c.reader }

// ReaderIndex returns the 0-based reader index passed to Connect.
func (c *Connection) ReaderIndex() int { return c.readerIdx }

// Close disconnects the card and releases the PC/SC context.
func (c *Connection) Close() {
	if c == nil {
		return
	}
	if c.card != nil {
		_ = c.card.Disconnect(scard.LeaveCard)
	}
	if c.ctx != nil {
		_ = c.ctx.Release()
	}
}

// Transmit implements ntag424.Card.
func (c *Connection) Transmit(apdu []byte) ([]byte, error) {
	if c == nil || c.card == nil {
		return nil, fmt.Errorf("transport: connection not established")
	}
	return c.card.Transmit(apdu)
}

// ListReaders enumerates the PC/SC readers visible to the system
// without connecting to any of them, for diagnostic listing.
func ListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, wrapTransportErr("establish PC/SC context", err)
	}
	defer ctx.Release()

	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, wrapTransportErr("list PC/SC readers", err)
	}
	return readers, nil
}
