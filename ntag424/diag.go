package ntag424

import "errors"

// AuthSlotResult holds the outcome of one authentication attempt made
// by DiagnoseAuthSlots.
type AuthSlotResult struct {
	Slot    byte
	Success bool
	Kind    Kind
	SW      uint16
	Err     error
}

// DiagnoseAuthSlots tries AuthenticateEV2First with key against each
// slot in turn, terminating the session between attempts regardless of
// outcome. It exists to help a caller locate which key slot a given
// key actually belongs to when the application's access-rights layout
// is unknown or suspect.
func (e *Engine) DiagnoseAuthSlots(key []byte, slots []byte) []AuthSlotResult {
	results := make([]AuthSlotResult, 0, len(slots))
	for _, slot := range slots {
		err := e.AuthenticateEV2First(slot, key)
		result := AuthSlotResult{Slot: slot, Success: err == nil, Err: err}
		if err != nil {
			var apiErr *Error
			if errors.As(err, &apiErr) {
				result.Kind = apiErr.Kind
				result.SW = apiErr.SW
			}
		}
		e.Terminate()
		results = append(results, result)
	}
	return results
}
