package ntag424

import "sync"

// Engine is the secure-messaging engine: a Card, the Session it owns,
// and the mutex that serialises every secured operation for the
// lifetime of a single wrapper invocation (spec.md section 5). There is
// no background goroutine and no shared mutable state beyond the
// Session itself.
type Engine struct {
	mu      sync.Mutex
	card    Card
	session Session
}

// New binds an Engine to a transport. The transport is not owned:
// Terminate releases the session, not the transport.
func New(card Card) *Engine {
	return &Engine{card: card}
}

// Initiate is a no-op hook mirroring the host API's bind/release
// lifecycle (spec.md section 6.2); transports that need an explicit
// connect step perform it before constructing the Engine.
func (e *Engine) Initiate() error { return nil }

// Terminate clears the session. It does not close or release the
// transport.
func (e *Engine) Terminate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.terminate()
}

// Session exposes read-only session introspection (active, authed
// slot, command counter) for diagnostics and logging.
func (e *Engine) Session() *Session {
	return &e.session
}

// teardownOnFailure clears the session after any secured-command
// failure, per spec.md section 7: Transport, StatusWord, MacMismatch,
// and ProtocolDesync failures of a secured command mandate full
// teardown so host/card counters can never disagree. A transport
// failure can occur after the card has already processed and
// incremented its own counter, so it is torn down exactly like a bad
// status word rather than left as a recoverable, still-Active session.
func (e *Engine) teardownOnFailure(mode Mode, err error) error {
	if err == nil || mode == ModePlain {
		return err
	}
	if IsKind(err, KindTransport) || IsKind(err, KindStatusWord) || IsKind(err, KindMacMismatch) || IsKind(err, KindProtocolDesync) {
		e.session.terminate()
	}
	return err
}

// do runs req through the wrapper under mode, holding the engine mutex
// for the full request/transceive/verify/increment cycle, and tears
// the session down on any secured-command failure.
func (e *Engine) do(req request, mode Mode) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, err := wrap(e.card, &e.session, req, mode)
	return data, e.teardownOnFailure(mode, err)
}
