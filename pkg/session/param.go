package session

import "github.com/grovety/grc/pkg/grc/frame"

// Kind identifies what a Param means to the device, per protocol_structures.h's
// ParamKind enum. The wire payload is always 4 raw bytes; Kind disambiguates
// whether those bytes are an int32 or a bit-cast float32.
type Kind uint8

const (
	KindPredictSignal        Kind = 1
	KindSeparateInaccuracies Kind = 2
	KindNoise                Kind = 3
	KindInputScaling         Kind = 4
	KindFeedbackScaling      Kind = 5
	KindThresholdFactor      Kind = 6
	KindReservoirKind        Kind = 10
	KindAskExtStatus         Kind = 20
	KindLoadTrainData        Kind = 21
	KindReqCategory          Kind = 22
)

// ExtStatusReq selects which piece of extended device status the next
// get-status call will return.
type ExtStatusReq int32

const (
	ExtStatusNone        ExtStatusReq = 0
	ExtStatusCatsQty     ExtStatusReq = 1
	ExtStatusSaveDataLen ExtStatusReq = 2
	ExtStatusNextDataElm ExtStatusReq = 3
)

// Param is the tagged value sent to the device via set-parameters: Kind
// selects the wire meaning, and exactly one of IVal/FVal is meaningful —
// an explicit sum type in place of the original driver's untagged C union.
type Param struct {
	Kind Kind
	IVal int32
	FVal float32
}

// IntParam builds a Param carrying an integer payload.
func IntParam(kind Kind, v int32) Param {
	return Param{Kind: kind, IVal: v}
}

// FloatParam builds a Param carrying a float payload.
func FloatParam(kind Kind, v float32) Param {
	return Param{Kind: kind, FVal: v}
}

// rawValue returns the Param's 4-byte wire payload. Integer kinds are
// encoded from IVal; all others are treated as float kinds encoded from
// FVal, matching the device's untyped 4-byte parameter slot.
func (p Param) rawValue() [4]byte {
	var raw [4]byte
	switch p.Kind {
	case KindPredictSignal, KindSeparateInaccuracies, KindReservoirKind,
		KindAskExtStatus, KindLoadTrainData, KindReqCategory:
		copy(raw[:], frame.EncodeInt32LE(p.IVal))
	default:
		copy(raw[:], frame.EncodeFloat32LE(p.FVal))
	}
	return raw
}
