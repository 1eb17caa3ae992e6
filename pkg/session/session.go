// Package session sequences the GRC remote-function protocol into the
// operations a caller actually wants: open/configure a session, train and
// run inference against user-visible tags, and move trained model state to
// and from the host.
package session

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/grovety/grc/pkg/grc/command"
	"github.com/grovety/grc/pkg/grc/protocol"
	"github.com/grovety/grc/pkg/grc/transport"
	"github.com/grovety/grc/pkg/grcerr"
)

// resetSettleDelay is held between driving the reset line low and high.
const resetSettleDelay = 50 * time.Millisecond

// Config selects the reservoir architecture for Open, as the
// (input-channels, neurons) pair it resolves to an ArchType.
type Config struct {
	InputChannels int
	Neurons       int
}

// Session is a device handle: the negotiated protocol version plus the
// host-side tag table, owned exclusively by this handle — no package-level
// statics. Not safe for concurrent use by multiple goroutines; serialize
// externally (see pkg/agent).
type Session struct {
	ctx       context.Context
	t         transport.Transport
	dev       *protocol.Device
	version   uint32
	tags      *tagTable
	tagTabCap int
}

// Open performs SDK version negotiation, resolves cfg to its ArchType and
// pushes it via set-parameters, and starts with an empty tag table.
func Open(t transport.Transport, cfg Config) (*Session, error) {
	version, err := command.GetSDKVersion(t)
	if err != nil {
		return nil, fmt.Errorf("session: open: %w", err)
	}

	arch, err := ResolveArchType(cfg.InputChannels, cfg.Neurons)
	if err != nil {
		return nil, fmt.Errorf("session: open: %w", err)
	}

	s := &Session{
		ctx:       context.Background(),
		t:         t,
		dev:       protocol.NewDevice(t),
		version:   version,
		tags:      newTagTable(DefaultTagTableCapacity),
		tagTabCap: DefaultTagTableCapacity,
	}

	archParam := IntParam(KindReservoirKind, int32(arch))
	if err := s.setParameter(archParam); err != nil {
		return nil, fmt.Errorf("session: open: push architecture: %w", err)
	}
	log.Printf("grc session: opened, sdk version %d, arch %d (%d ch / %d nn)", version, arch, cfg.InputChannels, cfg.Neurons)
	return s, nil
}

// setParameter drives one set-parameters RPC for p and maps its retcode.
func (s *Session) setParameter(p Param) error {
	retcode, err := s.dev.SetParameters(s.ctx, byte(p.Kind), p.rawValue())
	if err != nil {
		return err
	}
	return grcerr.FromRetcode(retcode)
}

// SetConfig translates each hyperparameter to a Param and issues one
// set-parameters RPC per entry. A Param whose Kind is not one of the
// declared Kind constants fails with ErrArgument.
func (s *Session) SetConfig(params []Param) error {
	for _, p := range params {
		switch p.Kind {
		case KindPredictSignal, KindSeparateInaccuracies, KindNoise, KindInputScaling,
			KindFeedbackScaling, KindThresholdFactor, KindReservoirKind,
			KindAskExtStatus, KindLoadTrainData, KindReqCategory:
		default:
			return fmt.Errorf("session: set-config: unknown parameter kind %d: %w", p.Kind, grcerr.ErrArgument)
		}
		if err := s.setParameter(p); err != nil {
			return fmt.Errorf("session: set-config: %w", err)
		}
	}
	return nil
}

// ClearState clears the device's learned state and empties the tag table.
func (s *Session) ClearState() error {
	retcode, err := s.dev.Clear(s.ctx)
	if err != nil {
		return fmt.Errorf("session: clear-state: %w", err)
	}
	if err := grcerr.FromRetcode(retcode); err != nil {
		return fmt.Errorf("session: clear-state: %w", err)
	}
	s.tags.clear()
	return nil
}

// Train runs one training pass on values and assigns it class tag. With
// FlagAddNewTag (or when tag is not yet known), the device appends a new
// class; otherwise FlagOverwrite is required to retrain an existing tag. When
// a new class is appended under FlagAddNewTag, the tag table records the
// synthetic class index itself rather than the caller's tag — the caller is
// expected to look the class up by that index afterward. It returns the
// assigned class index.
func (s *Session) Train(flags Flags, tag uint32, values []float32) (int, error) {
	if flags.has(FlagAsync) {
		return 0, fmt.Errorf("session: train: %w", grcerr.ErrNotImplemented)
	}

	classIdx := -1
	if !flags.has(FlagAddNewTag) {
		classIdx = s.tags.indexOf(tag)
	}
	if classIdx >= 0 && !flags.has(FlagOverwrite) {
		return 0, fmt.Errorf("session: train: tag already trained: %w", grcerr.ErrArgument)
	}

	if retcode, err := s.dev.StartTraining(s.ctx, int32(classIdx)); err != nil {
		return 0, fmt.Errorf("session: train: start: %w", err)
	} else if err := grcerr.FromRetcode(retcode); err != nil {
		return 0, fmt.Errorf("session: train: start: %w", err)
	}
	if retcode, err := s.dev.FeedArray(s.ctx, values); err != nil {
		return 0, fmt.Errorf("session: train: feed: %w", err)
	} else if err := grcerr.FromRetcode(retcode); err != nil {
		return 0, fmt.Errorf("session: train: feed: %w", err)
	}
	if retcode, err := s.dev.StopTraining(s.ctx); err != nil {
		return 0, fmt.Errorf("session: train: stop: %w", err)
	} else if err := grcerr.FromRetcode(retcode); err != nil {
		return 0, fmt.Errorf("session: train: stop: %w", err)
	}

	if classIdx < 0 {
		storedTag := tag
		if flags.has(FlagAddNewTag) {
			storedTag = uint32(s.tags.len())
		}
		idx, err := s.tags.append(storedTag)
		if err != nil {
			return 0, fmt.Errorf("session: train: %w", err)
		}
		classIdx = idx
	}
	return classIdx, nil
}

// Inference runs one inference pass on values. With FlagSingleClass it
// first asks the device to score only the class bound to tag. It returns
// the caller's tag for the predicted class, or ErrNotClassified.
func (s *Session) Inference(flags Flags, tag uint32, values []float32) (uint32, error) {
	if flags.has(FlagAsync) {
		return 0, fmt.Errorf("session: inference: %w", grcerr.ErrNotImplemented)
	}

	if flags.has(FlagSingleClass) {
		classIdx := s.tags.indexOf(tag)
		if classIdx < 0 {
			return 0, fmt.Errorf("session: inference: %w", grcerr.ErrArgument)
		}
		if err := s.setParameter(IntParam(KindReqCategory, int32(classIdx))); err != nil {
			return 0, fmt.Errorf("session: inference: request category: %w", err)
		}
	}

	if retcode, err := s.dev.StartInference(s.ctx); err != nil {
		return 0, fmt.Errorf("session: inference: start: %w", err)
	} else if err := grcerr.FromRetcode(retcode); err != nil {
		return 0, fmt.Errorf("session: inference: start: %w", err)
	}
	if retcode, err := s.dev.FeedArray(s.ctx, values); err != nil {
		return 0, fmt.Errorf("session: inference: feed: %w", err)
	} else if err := grcerr.FromRetcode(retcode); err != nil {
		return 0, fmt.Errorf("session: inference: feed: %w", err)
	}
	if retcode, err := s.dev.StopInference(s.ctx); err != nil {
		return 0, fmt.Errorf("session: inference: stop: %w", err)
	} else if err := grcerr.FromRetcode(retcode); err != nil {
		return 0, fmt.Errorf("session: inference: stop: %w", err)
	}

	classIdx, retcode, err := s.dev.GetStatus(s.ctx)
	if err != nil {
		return 0, fmt.Errorf("session: inference: get-status: %w", err)
	}
	if err := grcerr.FromRetcode(retcode); err != nil {
		return 0, fmt.Errorf("session: inference: get-status: %w", err)
	}

	if classIdx < 0 {
		return 0, grcerr.ErrNotClassified
	}
	tagOut, ok := s.tags.tagAt(int(classIdx))
	if !ok {
		return 0, fmt.Errorf("session: inference: device index %d outside tag table: %w", classIdx, grcerr.ErrWrongAnswer)
	}
	return tagOut, nil
}

// ClassesCount asks the device how many classes have been trained.
func (s *Session) ClassesCount() (int, error) {
	if err := s.setParameter(IntParam(KindAskExtStatus, int32(ExtStatusCatsQty))); err != nil {
		return 0, fmt.Errorf("session: classes-count: %w", err)
	}
	v, retcode, err := s.dev.GetStatus(s.ctx)
	if err != nil {
		return 0, fmt.Errorf("session: classes-count: %w", err)
	}
	if err := grcerr.FromRetcode(retcode); err != nil {
		return 0, fmt.Errorf("session: classes-count: %w", err)
	}
	return int(v), nil
}

// Download retrieves the device's full internal-state buffer (all trained
// classes packed into one vector) along with the trained class count.
func (s *Session) Download() ([]float32, int, error) {
	if err := s.setParameter(IntParam(KindAskExtStatus, int32(ExtStatusSaveDataLen))); err != nil {
		return nil, 0, fmt.Errorf("session: download: %w", err)
	}
	n, retcode, err := s.dev.GetStatus(s.ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("session: download: length: %w", err)
	}
	if err := grcerr.FromRetcode(retcode); err != nil {
		return nil, 0, fmt.Errorf("session: download: length: %w", err)
	}
	if n < 0 {
		return nil, 0, fmt.Errorf("session: download: %w", grcerr.ErrWrongAnswer)
	}

	if err := s.setParameter(IntParam(KindAskExtStatus, int32(ExtStatusNextDataElm))); err != nil {
		return nil, 0, fmt.Errorf("session: download: %w", err)
	}

	values := make([]float32, n)
	for i := 0; i < int(n); i++ {
		raw, retcode, err := s.dev.GetStatus(s.ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("session: download: element %d: %w", i, err)
		}
		if err := grcerr.FromRetcode(retcode); err != nil {
			return nil, 0, fmt.Errorf("session: download: element %d: %w", i, err)
		}
		values[i] = float32FromBits(raw)
	}

	classCount, err := s.ClassesCount()
	if err != nil {
		return nil, 0, fmt.Errorf("session: download: %w", err)
	}
	return values, classCount, nil
}

// Upload streams values back onto the device one element at a time, tells
// it how many classes that buffer represents, and reinitialises the tag
// table to the identity map 0..classCount-1 (the device has no memory of
// the caller's original tags).
func (s *Session) Upload(values []float32, classCount int) error {
	for i, v := range values {
		if retcode, err := s.dev.FeedSingle(s.ctx, v); err != nil {
			return fmt.Errorf("session: upload: element %d: %w", i, err)
		} else if err := grcerr.FromRetcode(retcode); err != nil {
			return fmt.Errorf("session: upload: element %d: %w", i, err)
		}
	}
	if err := s.setParameter(IntParam(KindLoadTrainData, int32(classCount))); err != nil {
		return fmt.Errorf("session: upload: %w", err)
	}
	s.tags.reinitIdentity(classCount)
	return nil
}

// Reset drives the device's optional reset line low then high, with a
// settling sleep in between. It is a no-op if t does not implement
// transport.Resettable.
func (s *Session) Reset() error {
	r, ok := s.t.(transport.Resettable)
	if !ok {
		return nil
	}
	if err := r.ResetLow(); err != nil {
		return fmt.Errorf("session: reset: %w", err)
	}
	s.t.Sleep(resetSettleDelay)
	if err := r.ResetHigh(); err != nil {
		return fmt.Errorf("session: reset: %w", err)
	}
	return nil
}

// Release tears down the session. The transport itself outlives the
// session; callers close it separately (most transports implement
// io.Closer).
func (s *Session) Release() error {
	return nil
}

// Version reports the SDK protocol version negotiated at Open.
func (s *Session) Version() uint32 {
	return s.version
}

// float32FromBits bit-casts a get-status 32-bit pattern to a float32,
// matching the device's untyped status-word convention: each download
// element read implicitly advances the device's internal cursor.
func float32FromBits(v int32) float32 {
	return math.Float32frombits(uint32(v))
}
