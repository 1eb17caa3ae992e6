// Package transport defines the byte-level capability the GRC protocol stack
// is built on, and the concrete backends that implement it.
//
// No component above this package ever touches a bus directly: every frame
// built by pkg/grc/frame is handed to Transport.Write in a single call, and
// every fixed-size response is read back with a single Transport.Read.
package transport

import "time"

// Transport is the pluggable capability the core protocol stack consumes.
// Write must send its argument atomically — one bus transaction per call.
// Read blocks up to the backend's configured timeout.
type Transport interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Sleep(d time.Duration)
}

// Resettable is implemented by backends that expose the GRC's optional
// hardware reset line. Backends without a wired reset pin simply don't
// implement it; callers type-assert for it (see session.Session.Reset).
type Resettable interface {
	ResetHigh() error
	ResetLow() error
}
