package transport

import (
	"fmt"
	"sync"
	"time"
)

// Mock is a scripted Transport double: each Write is recorded, and Reads are
// served from a queue of canned responses supplied up front. It lets
// pkg/grc/command, pkg/grc/protocol, pkg/session and pkg/agent tests
// exercise bit-exact wire scenarios without real hardware.
type Mock struct {
	mu         sync.Mutex
	reads      [][]byte
	readIdx    int
	writes     [][]byte
	sleeps     []time.Duration
	resetState []bool // true = high, false = low, in call order
}

// NewMock returns a Mock that serves reads, in order, one per Read call.
func NewMock(reads ...[]byte) *Mock {
	return &Mock{reads: reads}
}

// Write records p and always succeeds.
func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(p))
	copy(cp, p)
	m.writes = append(m.writes, cp)
	return len(p), nil
}

// Read copies the next scripted response into p. It fails the test scenario
// loudly (returns an error) if the script is exhausted or the response size
// does not match the requested size, since the GRC command layer always
// reads a fixed, well-known size.
func (m *Mock) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readIdx >= len(m.reads) {
		return 0, fmt.Errorf("transport mock: read %d requested past end of script (%d reads scripted)", m.readIdx, len(m.reads))
	}
	resp := m.reads[m.readIdx]
	m.readIdx++
	if len(resp) != len(p) {
		return 0, fmt.Errorf("transport mock: scripted read %d is %d bytes, caller wants %d", m.readIdx-1, len(resp), len(p))
	}
	n := copy(p, resp)
	return n, nil
}

// Sleep records the requested delay without actually blocking.
func (m *Mock) Sleep(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = append(m.sleeps, d)
}

// ResetHigh records a reset-high call.
func (m *Mock) ResetHigh() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetState = append(m.resetState, true)
	return nil
}

// ResetLow records a reset-low call.
func (m *Mock) ResetLow() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetState = append(m.resetState, false)
	return nil
}

// Writes returns every buffer passed to Write, in call order.
func (m *Mock) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.writes...)
}

// Sleeps returns every duration passed to Sleep, in call order.
func (m *Mock) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.sleeps...)
}

// ResetCalls returns the sequence of reset-pin transitions, true for high.
func (m *Mock) ResetCalls() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.resetState...)
}

// ReadsRemaining reports how many scripted reads have not yet been consumed.
func (m *Mock) ReadsRemaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reads) - m.readIdx
}
