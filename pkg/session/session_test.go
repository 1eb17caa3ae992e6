package session

import (
	"testing"

	"github.com/grovety/grc/pkg/grc/frame"
	"github.com/grovety/grc/pkg/grc/protocol"
	"github.com/grovety/grc/pkg/grc/transport"
)

func statusByte(called, running bool, retcode byte) byte {
	var b byte
	if called {
		b |= 0x80
	}
	if running {
		b |= 0x40
	}
	return b | (retcode & 0x3F)
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

// TestOpenHandshake mirrors the SDK-handshake scenario: get-sdk-version
// then one set-parameters RPC pushing the resolved architecture.
func TestOpenHandshake(t *testing.T) {
	m := transport.NewMock(
		frame.EncodeInt32LE(1), // get-sdk-version -> 1
		[]byte{0x00},           // get-current-function: idle
		allDelivered(1),        // get-stream-result
		[]byte{statusByte(false, false, 0)}, // status: done, Ok
	)
	s, err := Open(m, Config{InputChannels: 3, Neurons: 10})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Version() != 1 {
		t.Errorf("Version() = %d, want 1", s.Version())
	}
}

func TestOpenRejectsUnknownArchitecture(t *testing.T) {
	m := transport.NewMock(frame.EncodeInt32LE(1))
	if _, err := Open(m, Config{InputChannels: 2, Neurons: 5}); err == nil {
		t.Fatal("expected error for an architecture outside the fixed set")
	}
}

func openForTest(t *testing.T) (*Session, *transport.Mock) {
	t.Helper()
	m := transport.NewMock(
		frame.EncodeInt32LE(1),
		[]byte{0x00},
		allDelivered(1),
		[]byte{statusByte(false, false, 0)},
	)
	s, err := Open(m, Config{InputChannels: 3, Neurons: 10})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, m
}

// TestTrainAssignsNewTag mirrors training a single two-float sample with
// FlagAddNewTag: the tag table grows by one and the assigned index is 0.
func TestTrainAssignsNewTag(t *testing.T) {
	s, _ := openForTest(t)
	m2 := transport.NewMock(
		[]byte{0x00},                        // start-training precondition
		allDelivered(1),                     // start-training stream-result
		[]byte{statusByte(false, false, 0)}, // start-training done
		[]byte{0x00},                        // feed-array precondition
		allDelivered(1),                     // feed-array stream-result
		[]byte{statusByte(false, false, 0)}, // feed-array done
		[]byte{0x00},                        // stop-training precondition
		[]byte{statusByte(false, false, 0)}, // stop-training done
	)
	s.dev = protocol.NewDevice(m2)

	idx, err := s.Train(FlagAddNewTag, 99, []float32{1.0, 2.0})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if idx != 0 {
		t.Errorf("idx = %d, want 0", idx)
	}
	if s.tags.len() != 1 {
		t.Errorf("tag table len = %d, want 1", s.tags.len())
	}
	// FlagAddNewTag records the synthetic class index itself, not the
	// caller-supplied tag (99) — the caller's own tag is discarded on this
	// path, matching grc_i2c.c's grc_train and spec scenario S2.
	if tag, _ := s.tags.tagAt(0); tag != 0 {
		t.Errorf("tag at 0 = %d, want 0 (synthetic index)", tag)
	}
}

func TestTrainRejectsRetrainWithoutOverwrite(t *testing.T) {
	s, _ := openForTest(t)
	s.tags.append(7)
	if _, err := s.Train(0, 7, []float32{1.0}); err == nil {
		t.Fatal("expected ArgumentError retraining an existing tag without FlagOverwrite")
	}
}

// TestInferenceTranslatesIndexToTag mirrors the inference-translation
// scenario: tag table [7, 42], device reports class index 1 -> tag 42.
func TestInferenceTranslatesIndexToTag(t *testing.T) {
	s, _ := openForTest(t)
	s.tags.append(7)
	s.tags.append(42)

	m2 := transport.NewMock(
		[]byte{0x00},                        // start-inference precondition
		[]byte{statusByte(false, false, 0)}, // start-inference done
		[]byte{0x00},                        // feed-array precondition
		allDelivered(1),                     // feed-array stream-result
		[]byte{statusByte(false, false, 0)}, // feed-array done
		[]byte{0x00},                        // stop-inference precondition
		[]byte{statusByte(false, false, 0)}, // stop-inference done
		[]byte{0x00},                        // get-status precondition
		[]byte{statusByte(false, false, 0)}, // get-status done
		frame.EncodeInt32LE(1),              // get-function-result = 1
	)
	s.dev = protocol.NewDevice(m2)

	tag, err := s.Inference(0, 0, []float32{0.5})
	if err != nil {
		t.Fatalf("Inference: %v", err)
	}
	if tag != 42 {
		t.Errorf("tag = %d, want 42", tag)
	}
}

func TestInferenceRejectsOutOfRangeIndex(t *testing.T) {
	s, _ := openForTest(t)
	s.tags.append(7)

	m2 := transport.NewMock(
		[]byte{0x00},
		[]byte{statusByte(false, false, 0)},
		[]byte{0x00},
		allDelivered(1),
		[]byte{statusByte(false, false, 0)},
		[]byte{0x00},
		[]byte{statusByte(false, false, 0)},
		[]byte{0x00},
		[]byte{statusByte(false, false, 0)},
		frame.EncodeInt32LE(5), // device reports index 5, table has len 1
	)
	s.dev = protocol.NewDevice(m2)

	if _, err := s.Inference(0, 0, []float32{0.5}); err == nil {
		t.Fatal("expected WrongAnswer for an out-of-range device class index")
	}
}

func TestClearStateEmptiesTagTable(t *testing.T) {
	s, _ := openForTest(t)
	s.tags.append(1)
	s.tags.append(2)

	m2 := transport.NewMock(
		[]byte{0x00},
		[]byte{statusByte(false, false, 0)},
	)
	s.dev = protocol.NewDevice(m2)

	if err := s.ClearState(); err != nil {
		t.Fatalf("ClearState: %v", err)
	}
	if s.tags.len() != 0 {
		t.Errorf("tag table len = %d, want 0", s.tags.len())
	}
}

// TestDownloadThenUpload mirrors the download/upload round-trip scenario.
func TestDownloadThenUpload(t *testing.T) {
	s, _ := openForTest(t)

	m2 := transport.NewMock(
		[]byte{0x00}, // set-parameters(SaveDataLen) precondition
		allDelivered(1),
		[]byte{statusByte(false, false, 0)},
		[]byte{0x00}, // get-status for length
		[]byte{statusByte(false, false, 0)},
		frame.EncodeInt32LE(2), // download_len = 2
		[]byte{0x00},           // set-parameters(NextDataElm) precondition
		allDelivered(1),
		[]byte{statusByte(false, false, 0)},
		[]byte{0x00}, // get-status element 0
		[]byte{statusByte(false, false, 0)},
		frame.EncodeFloat32LE(0.5),
		[]byte{0x00}, // get-status element 1
		[]byte{statusByte(false, false, 0)},
		frame.EncodeFloat32LE(-1.0),
		[]byte{0x00}, // set-parameters(CatsQty) precondition
		allDelivered(1),
		[]byte{statusByte(false, false, 0)},
		[]byte{0x00}, // get-status for class count
		[]byte{statusByte(false, false, 0)},
		frame.EncodeInt32LE(1),
	)
	s.dev = protocol.NewDevice(m2)

	values, classCount, err := s.Download()
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(values) != 2 || values[0] != 0.5 || values[1] != -1.0 {
		t.Fatalf("values = %v, want [0.5 -1]", values)
	}
	if classCount != 1 {
		t.Errorf("classCount = %d, want 1", classCount)
	}

	m3 := transport.NewMock(
		[]byte{0x00}, // feed-single(0.5) precondition
		allDelivered(1),
		[]byte{statusByte(false, false, 0)},
		[]byte{0x00}, // feed-single(-1.0) precondition
		allDelivered(1),
		[]byte{statusByte(false, false, 0)},
		[]byte{0x00}, // set-parameters(LoadTrainData) precondition
		allDelivered(1),
		[]byte{statusByte(false, false, 0)},
	)
	s.dev = protocol.NewDevice(m3)

	if err := s.Upload(values, classCount); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if s.tags.len() != 1 {
		t.Fatalf("tag table len = %d, want 1", s.tags.len())
	}
	if tag, _ := s.tags.tagAt(0); tag != 0 {
		t.Errorf("tag at 0 = %d, want 0", tag)
	}
}
