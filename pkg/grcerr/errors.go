// Package grcerr consolidates the transport, protocol and device error
// taxonomy of the GRC driver into typed, errors.Is/As-compatible Go errors,
// mirroring the single-integer-return convention of the Grovety GRC SDK's
// grc_error_codes.h (non-negative = success or result, negative = error)
// without forcing callers back onto magic ints.
package grcerr

import "fmt"

// Transport-layer errors.
var (
	// ErrI2C is the sentinel for a failed bus transaction. The backends in
	// pkg/grc/transport report bus failures with their own wrapped errors
	// and do not wrap ErrI2C, so errors.Is(err, ErrI2C) does not match them.
	ErrI2C = fmt.Errorf("grc: i2c transport error")
	// ErrDataNotDelivered is returned when the device's delivery bitmap
	// (see pkg/grc/frame) reports at least one undelivered data block.
	ErrDataNotDelivered = fmt.Errorf("grc: data block not delivered")
)

// Protocol-layer errors.
var (
	// ErrWrongAnswer is returned when the device reports a value outside
	// the legal wire protocol (an out-of-range current-function byte, a
	// negative download length, a class index beyond the tag table).
	ErrWrongAnswer = fmt.Errorf("grc: unexpected device answer")
	// ErrBusy is returned when a remote function is requested while the
	// device is already executing a different one.
	ErrBusy = fmt.Errorf("grc: device is busy")
	// ErrSDKVersionMismatch is returned when the device reports a protocol
	// version other than the one this driver speaks.
	ErrSDKVersionMismatch = fmt.Errorf("grc: sdk version mismatch")
)

// Argument-layer errors.
var (
	// ErrArgument is returned for host-detected invalid input: an
	// unrecognised hyperparameter kind, a tag collision without
	// OVERWRITE, a float-array length that would need more than 255
	// blocks, and similar.
	ErrArgument = fmt.Errorf("grc: invalid argument")
	// ErrNotClassified is returned by Inference when the device reports
	// NOT_CLASSIFIED (the wire value -1). This is not a transport or
	// protocol failure — it is a legitimate inference outcome.
	ErrNotClassified = fmt.Errorf("grc: input not classified")
	// ErrNotImplemented is returned for operations the protocol reserves
	// but never honours on the host side (ASYNC training/inference).
	ErrNotImplemented = fmt.Errorf("grc: not implemented")
)

// Remote-side errors, one per device Retcode other than Ok.
var (
	ErrRemoteFunctionError        = fmt.Errorf("grc: REMOTE_FUNCTION_ERROR")
	ErrRemoteFunctionInvalState   = fmt.Errorf("grc: REMOTE_FUNCTION_INVAL_STATE")
	ErrRemoteFunctionInvalParam   = fmt.Errorf("grc: REMOTE_FUNCTION_INVAL_PARAM")
	ErrRemoteFunctionInvalDataLen = fmt.Errorf("grc: REMOTE_FUNCTION_INVAL_DATA_LEN")
	ErrRemoteFunctionNotCalled    = fmt.Errorf("grc: REMOTE_FUNCTION_NOT_CALLED")
	ErrRemoteFunctionNotImplement = fmt.Errorf("grc: REMOTE_FUNCTION_NOT_IMPLEMENTED")
)

// Retcode is the 6-bit device status reported by get-function-status,
// decomposed per protocol_structures.h's Retcode enum.
type Retcode uint8

const (
	RetcodeOk             Retcode = 0
	RetcodeError          Retcode = 1
	RetcodeInvalState     Retcode = 10
	RetcodeInvalParm      Retcode = 11
	RetcodeInvalDataLen   Retcode = 12
	RetcodeNotCalled      Retcode = 20
	RetcodeNotImplemented Retcode = 30
)

// RemoteError wraps a non-Ok device Retcode so callers can recover the raw
// code while still matching it with errors.Is against the sentinel table
// above via Unwrap.
type RemoteError struct {
	Code Retcode
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("grc: remote function returned retcode %d (%s)", e.Code, e.Code)
}

func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case RetcodeError:
		return ErrRemoteFunctionError
	case RetcodeInvalState:
		return ErrRemoteFunctionInvalState
	case RetcodeInvalParm:
		return ErrRemoteFunctionInvalParam
	case RetcodeInvalDataLen:
		return ErrRemoteFunctionInvalDataLen
	case RetcodeNotCalled:
		return ErrRemoteFunctionNotCalled
	case RetcodeNotImplemented:
		return ErrRemoteFunctionNotImplement
	default:
		return ErrRemoteFunctionError
	}
}

func (c Retcode) String() string {
	switch c {
	case RetcodeOk:
		return "Ok"
	case RetcodeError:
		return "Error"
	case RetcodeInvalState:
		return "InvalState"
	case RetcodeInvalParm:
		return "InvalParm"
	case RetcodeInvalDataLen:
		return "InvalDataLen"
	case RetcodeNotCalled:
		return "NotCalled"
	case RetcodeNotImplemented:
		return "NotImplemented"
	default:
		return fmt.Sprintf("Retcode(%d)", uint8(c))
	}
}

// FromRetcode returns nil for RetcodeOk and a *RemoteError otherwise.
func FromRetcode(code Retcode) error {
	if code == RetcodeOk {
		return nil
	}
	return &RemoteError{Code: code}
}
