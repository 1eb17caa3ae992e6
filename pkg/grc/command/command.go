// Package command implements the one-function-per-wire-verb layer that sits
// directly on top of pkg/grc/frame and pkg/grc/transport: each exported
// function here does at most one Write and at most one fixed-size Read.
package command

import (
	"fmt"
	"time"

	"github.com/grovety/grc/pkg/grc/frame"
	"github.com/grovety/grc/pkg/grc/transport"
	"github.com/grovety/grc/pkg/grcerr"
)

const (
	opGetCurFunction    byte = 0x01
	opActivateStream    byte = 0x02
	opGetStreamResult   byte = 0x03
	opCallFunction      byte = 0x04
	opGetFunctionState  byte = 0x05
	opGetFunctionResult byte = 0x06
	opGetSDKVersion     byte = 0x07

	// FunctionMin and FunctionMax bound the remote-function ID space that
	// call-function, get-function-status and get-function-result accept.
	FunctionMin byte = 0x07
	FunctionMax byte = 0x0F

	settleDelayLong  = 10 * time.Millisecond
	settleDelayShort = 1 * time.Millisecond

	// ExpectedSDKVersion is the only protocol version this driver speaks.
	ExpectedSDKVersion uint32 = 1
)

func validFunctionID(f byte) bool {
	return f >= FunctionMin && f <= FunctionMax
}

// GetCurrentFunction asks the device which remote function, if any, is in
// progress. It returns 0 for idle, a value in [FunctionMin, FunctionMax] for
// a function in progress, or ErrWrongAnswer for anything else.
func GetCurrentFunction(t transport.Transport) (byte, error) {
	if _, err := t.Write([]byte{opGetCurFunction}); err != nil {
		return 0, fmt.Errorf("command: get-current-function write: %w", err)
	}
	t.Sleep(settleDelayLong)
	var resp [1]byte
	if _, err := t.Read(resp[:]); err != nil {
		return 0, fmt.Errorf("command: get-current-function read: %w", err)
	}
	v := resp[0]
	if v != 0 && !validFunctionID(v) {
		return 0, fmt.Errorf("%w: get-current-function returned 0x%02X", grcerr.ErrWrongAnswer, v)
	}
	return v, nil
}

// ActivateStreaming sends the three-byte activation command that must be
// immediately followed by exactly blockCount data blocks of blockSize bytes.
func ActivateStreaming(t transport.Transport, blockSize, blockCount uint8) error {
	if _, err := t.Write(frame.ActivateStreaming(blockSize, blockCount)); err != nil {
		return fmt.Errorf("command: activate-streaming write: %w", err)
	}
	return nil
}

// SendBlock writes one already-framed data block as a single bus
// transaction.
func SendBlock(t transport.Transport, block []byte) error {
	if _, err := t.Write(block); err != nil {
		return fmt.Errorf("command: data block write: %w", err)
	}
	return nil
}

// GetStreamResult reads the 256-bit delivery bitmap for the most recently
// streamed argument blocks.
func GetStreamResult(t transport.Transport) ([frame.StreamingResultByteCount]byte, error) {
	var resp [frame.StreamingResultByteCount]byte
	if _, err := t.Write([]byte{opGetStreamResult}); err != nil {
		return resp, fmt.Errorf("command: get-stream-result write: %w", err)
	}
	t.Sleep(settleDelayShort)
	if _, err := t.Read(resp[:]); err != nil {
		return resp, fmt.Errorf("command: get-stream-result read: %w", err)
	}
	return resp, nil
}

// CallFunction invokes remote function f. It has no response: completion is
// observed through GetFunctionStatus.
func CallFunction(t transport.Transport, f byte) error {
	if !validFunctionID(f) {
		return fmt.Errorf("%w: call-function id 0x%02X out of range", grcerr.ErrArgument, f)
	}
	if _, err := t.Write([]byte{opCallFunction, f}); err != nil {
		return fmt.Errorf("command: call-function write: %w", err)
	}
	return nil
}

// FunctionStatus is the decomposed one-byte get-function-status response.
type FunctionStatus struct {
	Called  bool
	Running bool
	Retcode grcerr.Retcode
}

// GetFunctionStatus reads and decomposes the status byte for remote
// function f: bit 7 called, bit 6 running, bits 5..0 device return code.
func GetFunctionStatus(t transport.Transport, f byte) (FunctionStatus, error) {
	if !validFunctionID(f) {
		return FunctionStatus{}, fmt.Errorf("%w: get-function-status id 0x%02X out of range", grcerr.ErrArgument, f)
	}
	if _, err := t.Write([]byte{opGetFunctionState, f}); err != nil {
		return FunctionStatus{}, fmt.Errorf("command: get-function-status write: %w", err)
	}
	t.Sleep(settleDelayShort)
	var resp [1]byte
	if _, err := t.Read(resp[:]); err != nil {
		return FunctionStatus{}, fmt.Errorf("command: get-function-status read: %w", err)
	}
	b := resp[0]
	return FunctionStatus{
		Called:  b&0x80 != 0,
		Running: b&0x40 != 0,
		Retcode: grcerr.Retcode(b & 0x3F),
	}, nil
}

// GetFunctionResult reads the signed 32-bit little-endian result of remote
// function f.
func GetFunctionResult(t transport.Transport, f byte) (int32, error) {
	if !validFunctionID(f) {
		return 0, fmt.Errorf("%w: get-function-result id 0x%02X out of range", grcerr.ErrArgument, f)
	}
	if _, err := t.Write([]byte{opGetFunctionResult, f}); err != nil {
		return 0, fmt.Errorf("command: get-function-result write: %w", err)
	}
	t.Sleep(settleDelayShort)
	var resp [4]byte
	if _, err := t.Read(resp[:]); err != nil {
		return 0, fmt.Errorf("command: get-function-result read: %w", err)
	}
	return frame.DecodeInt32LE(resp[:]), nil
}

// GetSDKVersion reads the device's protocol version and rejects anything
// other than ExpectedSDKVersion.
func GetSDKVersion(t transport.Transport) (uint32, error) {
	if _, err := t.Write([]byte{opGetSDKVersion}); err != nil {
		return 0, fmt.Errorf("command: get-sdk-version write: %w", err)
	}
	t.Sleep(settleDelayLong)
	var resp [4]byte
	if _, err := t.Read(resp[:]); err != nil {
		return 0, fmt.Errorf("command: get-sdk-version read: %w", err)
	}
	v := uint32(frame.DecodeInt32LE(resp[:]))
	if v != ExpectedSDKVersion {
		return v, fmt.Errorf("%w: device reports version %d, want %d", grcerr.ErrSDKVersionMismatch, v, ExpectedSDKVersion)
	}
	return v, nil
}
