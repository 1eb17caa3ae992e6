package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/grovety/grc/pkg/grc/frame"
	"github.com/grovety/grc/pkg/grc/transport"
	"github.com/grovety/grc/pkg/grcerr"
)

// statusByte packs the get-function-status response byte.
func statusByte(called, running bool, retcode byte) byte {
	var b byte
	if called {
		b |= 0x80
	}
	if running {
		b |= 0x40
	}
	b |= retcode & 0x3F
	return b
}

func allDelivered(n int) []byte {
	var resp [frame.StreamingResultByteCount]byte
	for k := 1; k <= n; k++ {
		byteIdx := frame.StreamingResultByteCount - 1 - (k-1)/8
		bitIdx := uint((k - 1) % 8)
		resp[byteIdx] |= 1 << bitIdx
	}
	return resp[:]
}

func TestStartTrainingHappyPath(t *testing.T) {
	m := transport.NewMock(
		[]byte{0x00},                             // get-current-function: idle
		allDelivered(1),                           // get-stream-result
		[]byte{statusByte(true, true, 0)},         // status: still running
		[]byte{statusByte(false, false, byte(grcerr.RetcodeOk))}, // status: done, Ok
	)
	d := NewDevice(m)
	retcode, err := d.StartTraining(context.Background(), -1)
	if err != nil {
		t.Fatalf("StartTraining: %v", err)
	}
	if retcode != grcerr.RetcodeOk {
		t.Errorf("retcode = %v, want Ok", retcode)
	}
	if len(m.Sleeps()) == 0 {
		t.Error("expected at least one poll sleep")
	}
}

func TestStartTrainingRejectsWhenBusy(t *testing.T) {
	m := transport.NewMock([]byte{0x09}) // another function already running
	d := NewDevice(m)
	_, err := d.StartTraining(context.Background(), -1)
	if !errors.Is(err, grcerr.ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
}

func TestStreamBlocksReportsUndelivered(t *testing.T) {
	var zero [frame.StreamingResultByteCount]byte
	m := transport.NewMock(
		[]byte{0x00},
		zero[:], // nothing delivered
	)
	d := NewDevice(m)
	_, err := d.FeedSingle(context.Background(), 1.0)
	if !errors.Is(err, grcerr.ErrDataNotDelivered) {
		t.Fatalf("err = %v, want ErrDataNotDelivered", err)
	}
}

func TestGetStatusFetchesResultOnOk(t *testing.T) {
	m := transport.NewMock(
		[]byte{0x00},
		[]byte{statusByte(false, false, byte(grcerr.RetcodeOk))},
		frame.EncodeInt32LE(3),
	)
	d := NewDevice(m)
	v, retcode, err := d.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if retcode != grcerr.RetcodeOk {
		t.Errorf("retcode = %v, want Ok", retcode)
	}
	if v != 3 {
		t.Errorf("v = %d, want 3", v)
	}
}

func TestGetStatusSkipsResultOnError(t *testing.T) {
	m := transport.NewMock(
		[]byte{0x00},
		[]byte{statusByte(false, false, byte(grcerr.RetcodeError))},
	)
	d := NewDevice(m)
	v, retcode, err := d.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if retcode != grcerr.RetcodeError {
		t.Errorf("retcode = %v, want Error", retcode)
	}
	if v != 0 {
		t.Errorf("v = %d, want 0 (no result fetched)", v)
	}
	if m.ReadsRemaining() != 0 {
		t.Errorf("ReadsRemaining = %d, want 0 (get-function-result must not be called)", m.ReadsRemaining())
	}
}

func TestFeedArrayStreamsMultipleBlocks(t *testing.T) {
	vals := make([]float32, 200)
	blocks, _, err := frame.FloatArrayBlocks(vals)
	if err != nil {
		t.Fatalf("FloatArrayBlocks: %v", err)
	}
	m := transport.NewMock(
		[]byte{0x00},
		allDelivered(len(blocks)),
		[]byte{statusByte(false, false, byte(grcerr.RetcodeOk))},
	)
	d := NewDevice(m)
	retcode, err := d.FeedArray(context.Background(), vals)
	if err != nil {
		t.Fatalf("FeedArray: %v", err)
	}
	if retcode != grcerr.RetcodeOk {
		t.Errorf("retcode = %v, want Ok", retcode)
	}
	// precondition + activate-streaming + one write per block + get-stream-result + call-function + get-function-status
	writes := m.Writes()
	wantWrites := 1 + 1 + len(blocks) + 1 + 1 + 1
	if len(writes) != wantWrites {
		t.Errorf("len(writes) = %d, want %d", len(writes), wantWrites)
	}
}
