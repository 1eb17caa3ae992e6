// Package protocol implements the GRC remote-function state machine:
// precondition check, argument streaming, delivery verification, invocation
// and completion polling, one operation per remote function.
//
// Device owns no package-level state — unlike the Grovety SDK's C ancestor,
// which kept a static scratch buffer and delivery-bitmap in file scope,
// every Device can be driven independently.
package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/grovety/grc/pkg/grc/command"
	"github.com/grovety/grc/pkg/grc/frame"
	"github.com/grovety/grc/pkg/grc/transport"
	"github.com/grovety/grc/pkg/grcerr"
)

// Remote function IDs.
const (
	FuncStartTraining   byte = 0x07
	FuncStopTraining    byte = 0x08
	FuncStartInference  byte = 0x09
	FuncStopInference   byte = 0x0A
	FuncFeedSingleFloat byte = 0x0B
	FuncFeedFloatArray  byte = 0x0C
	FuncGetStatus       byte = 0x0D
	FuncClear           byte = 0x0E
	FuncSetParameters   byte = 0x0F
)

const pollInterval = 2 * time.Millisecond

// Device drives the remote-function protocol over a single Transport. It is
// not safe for concurrent use: only one operation may be in flight at a time.
type Device struct {
	t transport.Transport
}

// NewDevice wraps t in the remote-function protocol state machine.
func NewDevice(t transport.Transport) *Device {
	return &Device{t: t}
}

// precondition requires the device to be idle before a new remote function
// is driven.
func (d *Device) precondition() error {
	cur, err := command.GetCurrentFunction(d.t)
	if err != nil {
		return err
	}
	if cur != 0 {
		return fmt.Errorf("%w: function 0x%02X in progress", grcerr.ErrBusy, cur)
	}
	return nil
}

// streamBlocks runs the argument-streaming and delivery-verification steps
// for an already-framed sequence of blocks.
func (d *Device) streamBlocks(blockSize uint8, blocks [][]byte) error {
	if err := command.ActivateStreaming(d.t, blockSize, uint8(len(blocks))); err != nil {
		return err
	}
	for _, b := range blocks {
		if err := command.SendBlock(d.t, b); err != nil {
			return err
		}
	}
	resp, err := command.GetStreamResult(d.t)
	if err != nil {
		return err
	}
	if !frame.AllBlocksDelivered(resp, len(blocks)) {
		return grcerr.ErrDataNotDelivered
	}
	return nil
}

// pollStatus busy-waits on remote function f's status, yielding via the
// transport's cooperative Sleep between probes. If ctx is non-nil and is
// cancelled or its deadline elapses, polling stops and ctx's error is
// returned; the remote function is left running and the caller must treat
// the next operation as observing ErrBusy.
func (d *Device) pollStatus(ctx context.Context, f byte) (grcerr.Retcode, error) {
	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			default:
			}
		}
		st, err := command.GetFunctionStatus(d.t, f)
		if err != nil {
			return 0, err
		}
		if st.Called || st.Running {
			d.t.Sleep(pollInterval)
			continue
		}
		return st.Retcode, nil
	}
}

// runWithArgs drives the canonical argument-carrying sequence for remote
// function f: precondition, stream blockSize/blocks, call, poll.
func (d *Device) runWithArgs(ctx context.Context, f byte, blockSize uint8, blocks [][]byte) (grcerr.Retcode, error) {
	if err := d.precondition(); err != nil {
		return 0, err
	}
	if err := d.streamBlocks(blockSize, blocks); err != nil {
		return 0, err
	}
	if err := command.CallFunction(d.t, f); err != nil {
		return 0, err
	}
	return d.pollStatus(ctx, f)
}

// runWithoutArgs drives the argument-less sequence for remote function f:
// precondition, call, poll.
func (d *Device) runWithoutArgs(ctx context.Context, f byte) (grcerr.Retcode, error) {
	if err := d.precondition(); err != nil {
		return 0, err
	}
	if err := command.CallFunction(d.t, f); err != nil {
		return 0, err
	}
	return d.pollStatus(ctx, f)
}

// SetParameters sends one parameter block and drives FuncSetParameters to
// completion. A parameter batch repeats this call once per parameter.
func (d *Device) SetParameters(ctx context.Context, kind uint8, rawValue [4]byte) (grcerr.Retcode, error) {
	block := frame.ParamBlock(kind, rawValue)
	return d.runWithArgs(ctx, FuncSetParameters, 9, [][]byte{block})
}

// StartTraining streams the target class index (negative means "append a
// new class", per the ADD_NEW_TAG convention) and drives FuncStartTraining.
func (d *Device) StartTraining(ctx context.Context, classIdx int32) (grcerr.Retcode, error) {
	block := frame.IntBlock(classIdx)
	return d.runWithArgs(ctx, FuncStartTraining, 8, [][]byte{block})
}

// StopTraining drives FuncStopTraining, which carries no arguments.
func (d *Device) StopTraining(ctx context.Context) (grcerr.Retcode, error) {
	return d.runWithoutArgs(ctx, FuncStopTraining)
}

// StartInference drives FuncStartInference, which carries no arguments.
func (d *Device) StartInference(ctx context.Context) (grcerr.Retcode, error) {
	return d.runWithoutArgs(ctx, FuncStartInference)
}

// StopInference drives FuncStopInference, which carries no arguments.
func (d *Device) StopInference(ctx context.Context) (grcerr.Retcode, error) {
	return d.runWithoutArgs(ctx, FuncStopInference)
}

// FeedSingle streams a single float argument and drives FuncFeedSingleFloat.
func (d *Device) FeedSingle(ctx context.Context, v float32) (grcerr.Retcode, error) {
	block := frame.FloatBlock(v)
	return d.runWithArgs(ctx, FuncFeedSingleFloat, 8, [][]byte{block})
}

// FeedArray streams a float array argument and drives FuncFeedFloatArray.
func (d *Device) FeedArray(ctx context.Context, vals []float32) (grcerr.Retcode, error) {
	blocks, blockSize, err := frame.FloatArrayBlocks(vals)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", grcerr.ErrArgument, err)
	}
	return d.runWithArgs(ctx, FuncFeedFloatArray, blockSize, blocks)
}

// Clear drives FuncClear, which carries no arguments.
func (d *Device) Clear(ctx context.Context) (grcerr.Retcode, error) {
	return d.runWithoutArgs(ctx, FuncClear)
}

// GetStatus drives FuncGetStatus and, on success, retrieves its signed
// 32-bit integer result — the only remote function with a result to fetch.
func (d *Device) GetStatus(ctx context.Context) (int32, grcerr.Retcode, error) {
	retcode, err := d.runWithoutArgs(ctx, FuncGetStatus)
	if err != nil {
		return 0, 0, err
	}
	if retcode != grcerr.RetcodeOk {
		return 0, retcode, nil
	}
	v, err := command.GetFunctionResult(d.t, FuncGetStatus)
	if err != nil {
		return 0, retcode, err
	}
	return v, retcode, nil
}
