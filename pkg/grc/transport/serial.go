package transport

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// SerialBridgeTransport talks to the GRC through a USB-to-I²C bridge exposed
// to the host as a plain serial device, for bench rigs that have no native
// I²C controller wired up. The bridge is assumed to pass bytes through
// transparently; GRC framing (pkg/grc/frame) is unaware of the bridge.
type SerialBridgeTransport struct {
	port *serial.Port
}

// NewSerialBridgeTransport opens devicePath at baud with readTimeout applied
// to every Read call.
func NewSerialBridgeTransport(devicePath string, baud int, readTimeout time.Duration) (*SerialBridgeTransport, error) {
	cfg := &serial.Config{
		Name:        devicePath,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: readTimeout,
	}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: open serial bridge %q: %w", devicePath, err)
	}
	return &SerialBridgeTransport{port: port}, nil
}

// Write sends p over the bridge in a single call.
func (t *SerialBridgeTransport) Write(p []byte) (int, error) {
	n, err := t.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: serial bridge write: %w", err)
	}
	return n, nil
}

// Read reads up to len(p) bytes from the bridge.
func (t *SerialBridgeTransport) Read(p []byte) (int, error) {
	n, err := t.port.Read(p)
	if err != nil {
		return n, fmt.Errorf("transport: serial bridge read: %w", err)
	}
	return n, nil
}

// Sleep cooperatively delays the caller.
func (t *SerialBridgeTransport) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Close releases the underlying serial port. There is no reset line on this
// backend, so SerialBridgeTransport does not implement Resettable.
func (t *SerialBridgeTransport) Close() error {
	return t.port.Close()
}
