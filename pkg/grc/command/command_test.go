package command

import (
	"testing"

	"github.com/grovety/grc/pkg/grc/frame"
	"github.com/grovety/grc/pkg/grc/transport"
	"github.com/grovety/grc/pkg/grcerr"
)

func TestGetCurrentFunctionIdle(t *testing.T) {
	m := transport.NewMock([]byte{0x00})
	f, err := GetCurrentFunction(m)
	if err != nil {
		t.Fatalf("GetCurrentFunction: %v", err)
	}
	if f != 0 {
		t.Errorf("f = %d, want 0", f)
	}
	if got := m.Writes(); len(got) != 1 || got[0][0] != opGetCurFunction {
		t.Errorf("writes = %v", got)
	}
}

func TestGetCurrentFunctionInProgress(t *testing.T) {
	m := transport.NewMock([]byte{0x07})
	f, err := GetCurrentFunction(m)
	if err != nil {
		t.Fatalf("GetCurrentFunction: %v", err)
	}
	if f != 0x07 {
		t.Errorf("f = 0x%02X, want 0x07", f)
	}
}

func TestGetCurrentFunctionWrongAnswer(t *testing.T) {
	m := transport.NewMock([]byte{0xAA})
	if _, err := GetCurrentFunction(m); err == nil {
		t.Fatal("expected ErrWrongAnswer")
	} else if !errorsIsWrongAnswer(err) {
		t.Errorf("err = %v, want ErrWrongAnswer", err)
	}
}

func errorsIsWrongAnswer(err error) bool {
	for err != nil {
		if err == grcerr.ErrWrongAnswer {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func TestCallFunctionRejectsOutOfRange(t *testing.T) {
	m := transport.NewMock()
	if err := CallFunction(m, 0x06); err == nil {
		t.Fatal("expected error for out-of-range function id")
	}
}

func TestGetFunctionStatusDecodesBits(t *testing.T) {
	// called=1 running=1 retcode=0b000001 -> 0b11000001 = 0xC1
	m := transport.NewMock([]byte{0xC1})
	st, err := GetFunctionStatus(m, FunctionMin)
	if err != nil {
		t.Fatalf("GetFunctionStatus: %v", err)
	}
	if !st.Called || !st.Running {
		t.Errorf("st = %+v, want Called and Running set", st)
	}
	if st.Retcode != grcerr.RetcodeError {
		t.Errorf("Retcode = %v, want Error", st.Retcode)
	}
}

func TestGetFunctionStatusDoneOk(t *testing.T) {
	m := transport.NewMock([]byte{0x00})
	st, err := GetFunctionStatus(m, FunctionMin)
	if err != nil {
		t.Fatalf("GetFunctionStatus: %v", err)
	}
	if st.Called || st.Running {
		t.Errorf("st = %+v, want neither Called nor Running", st)
	}
	if st.Retcode != grcerr.RetcodeOk {
		t.Errorf("Retcode = %v, want Ok", st.Retcode)
	}
}

func TestGetFunctionResultDecodesLE(t *testing.T) {
	m := transport.NewMock(frame.EncodeInt32LE(-5))
	v, err := GetFunctionResult(m, FunctionMin)
	if err != nil {
		t.Fatalf("GetFunctionResult: %v", err)
	}
	if v != -5 {
		t.Errorf("v = %d, want -5", v)
	}
}

func TestGetSDKVersionAccepted(t *testing.T) {
	m := transport.NewMock(frame.EncodeInt32LE(int32(ExpectedSDKVersion)))
	v, err := GetSDKVersion(m)
	if err != nil {
		t.Fatalf("GetSDKVersion: %v", err)
	}
	if v != ExpectedSDKVersion {
		t.Errorf("v = %d, want %d", v, ExpectedSDKVersion)
	}
}

func TestGetSDKVersionMismatch(t *testing.T) {
	m := transport.NewMock(frame.EncodeInt32LE(99))
	if _, err := GetSDKVersion(m); err == nil {
		t.Fatal("expected ErrSDKVersionMismatch")
	}
}
