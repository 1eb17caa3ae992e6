package transport

import (
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

// I2CTransport talks to the GRC over a native host I²C controller. It is the
// concrete backend used on single-board computers and microcontrollers with
// periph.io host support.
type I2CTransport struct {
	bus      i2c.BusCloser
	dev      i2c.Dev
	resetPin gpio.PinIO
}

// NewI2CTransport opens busName (empty string selects the default bus) and
// addresses the GRC at addr. If resetPinName is non-empty, it is resolved via
// gpioreg and wired up as the optional hardware reset line.
func NewI2CTransport(busName string, addr uint16, resetPinName string) (*I2CTransport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("transport: periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("transport: open i2c bus %q: %w", busName, err)
	}
	t := &I2CTransport{
		bus: bus,
		dev: i2c.Dev{Bus: bus, Addr: addr},
	}
	if resetPinName != "" {
		p := gpioreg.ByName(resetPinName)
		if p == nil {
			bus.Close()
			return nil, fmt.Errorf("transport: unknown reset pin %q", resetPinName)
		}
		t.resetPin = p
	}
	return t, nil
}

// Write sends p to the GRC in a single I²C transaction.
func (t *I2CTransport) Write(p []byte) (int, error) {
	if err := t.dev.Tx(p, nil); err != nil {
		return 0, fmt.Errorf("transport: i2c write: %w", err)
	}
	return len(p), nil
}

// Read reads len(p) bytes from the GRC in a single I²C transaction.
func (t *I2CTransport) Read(p []byte) (int, error) {
	if err := t.dev.Tx(nil, p); err != nil {
		return 0, fmt.Errorf("transport: i2c read: %w", err)
	}
	return len(p), nil
}

// Sleep cooperatively delays the caller; the protocol state machine uses this
// to back off between settling reads and status polls.
func (t *I2CTransport) Sleep(d time.Duration) {
	time.Sleep(d)
}

// ResetHigh drives the reset line high. It returns an error if no reset pin
// was configured.
func (t *I2CTransport) ResetHigh() error {
	if t.resetPin == nil {
		return fmt.Errorf("transport: no reset pin configured")
	}
	return t.resetPin.Out(gpio.High)
}

// ResetLow drives the reset line low. It returns an error if no reset pin was
// configured.
func (t *I2CTransport) ResetLow() error {
	if t.resetPin == nil {
		return fmt.Errorf("transport: no reset pin configured")
	}
	return t.resetPin.Out(gpio.Low)
}

// Close releases the underlying I²C bus handle.
func (t *I2CTransport) Close() error {
	return t.bus.Close()
}
