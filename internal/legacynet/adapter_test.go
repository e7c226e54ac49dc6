package legacynet

import (
	"testing"

	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
)

// stubNetsvc stands in for internal/netsvc's Device, simulating enough of
// the modern Open/Read/Write/Close convention to exercise the adapter's
// translation without a real HTTP round trip.
type stubNetsvc struct {
	openErr  model.StatusCode
	data     []byte
	writes   []byte
	closed   bool
	handleID uint16
}

func (s *stubNetsvc) HandleRequest(req model.Request) model.Response {
	if req.DeviceID != networkServiceDeviceID {
		return model.NewErrorResponse(req, model.StatusInternalError)
	}
	switch req.Type {
	case model.RequestOpen:
		if s.openErr != 0 {
			return model.NewErrorResponse(req, s.openErr)
		}
		return model.Response{Status: model.StatusOk, Payload: []byte{byte(s.handleID), byte(s.handleID >> 8)}}
	case model.RequestRead:
		offset := req.Params[1]
		length := req.Params[2]
		if offset >= uint32(len(s.data)) {
			return model.Response{Status: model.StatusOk, Payload: nil}
		}
		end := offset + length
		if end > uint32(len(s.data)) {
			end = uint32(len(s.data))
		}
		return model.Response{Status: model.StatusOk, Payload: s.data[offset:end]}
	case model.RequestWrite:
		s.writes = append(s.writes, req.Payload...)
		return model.Response{Status: model.StatusOk}
	case model.RequestClose:
		s.closed = true
		return model.Response{Status: model.StatusOk}
	default:
		return model.NewErrorResponse(req, model.StatusUnsupported)
	}
}

const legacySlot model.DeviceID = 0x71

func TestAdapterPassesThroughNonLegacyDevices(t *testing.T) {
	stub := &stubNetsvc{}
	a := New(stub, nil)

	resp := a.HandleRequest(model.Request{DeviceID: 0x31, Command: 'R'})
	if resp.Status != model.StatusInternalError {
		t.Fatalf("expected the passthrough request to reach stubNetsvc unmodified, got %+v", resp)
	}
}

func TestAdapterOpenReadClose(t *testing.T) {
	stub := &stubNetsvc{data: []byte("hello world"), handleID: 7}
	a := New(stub, nil)

	openResp := a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdOpen, Params: []uint32{0}, Payload: []byte("http://x/\x00")})
	if openResp.Status != model.StatusOk {
		t.Fatalf("open failed: %+v", openResp)
	}

	readResp := a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdRead, Params: []uint32{11, 0}})
	if readResp.Status != model.StatusOk || string(readResp.Payload) != "hello world" {
		t.Fatalf("unexpected read response: %+v", readResp)
	}

	closeResp := a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdClose})
	if closeResp.Status != model.StatusOk || !stub.closed {
		t.Fatalf("expected Close to reach the downstream device, got %+v closed=%v", closeResp, stub.closed)
	}
}

func TestAdapterOpenTwiceIsDeviceBusy(t *testing.T) {
	stub := &stubNetsvc{data: []byte("x")}
	a := New(stub, nil)

	a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdOpen, Payload: []byte("http://x/\x00")})
	resp := a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdOpen, Payload: []byte("http://y/\x00")})
	if resp.Status != model.StatusDeviceBusy {
		t.Fatalf("expected StatusDeviceBusy on a second Open, got %+v", resp)
	}
}

func TestAdapterWriteForwardsSequentialOffset(t *testing.T) {
	stub := &stubNetsvc{}
	a := New(stub, nil)

	a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdOpen, Params: []uint32{1}, Payload: []byte("http://x/\x00")})
	a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdWrite, Payload: []byte("abc")})
	a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdWrite, Payload: []byte("def")})

	if string(stub.writes) != "abcdef" {
		t.Fatalf("expected writes to arrive in order as 'abcdef', got %q", stub.writes)
	}
}

func TestAdapterStatusWithoutHandleReportsErrorAndEof(t *testing.T) {
	a := New(&stubNetsvc{}, nil)

	resp := a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdStatus})
	if resp.Status != model.StatusOk || len(resp.Payload) != 1 {
		t.Fatalf("unexpected status response: %+v", resp)
	}
	if resp.Payload[0]&statusErrorBit == 0 || resp.Payload[0]&statusEofBit == 0 {
		t.Fatalf("expected both error and EOF bits set, got %#x", resp.Payload[0])
	}
}

func TestAdapterStatusReportsWaitingBytes(t *testing.T) {
	stub := &stubNetsvc{data: []byte("short")}
	a := New(stub, nil)
	a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdOpen, Payload: []byte("http://x/\x00")})

	resp := a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdStatus})
	if resp.Status != model.StatusOk {
		t.Fatalf("status failed: %+v", resp)
	}
	waiting := resp.Payload[0] &^ statusEofBit &^ statusErrorBit
	if int(waiting) != len("short") {
		t.Fatalf("expected %d waiting bytes, got %d", len("short"), waiting)
	}
	if resp.Payload[0]&statusEofBit == 0 {
		t.Fatal("expected EOF bit set once the probe read exhausts the backend")
	}
}

func TestAdapterReadBeforeOpenIsNotReady(t *testing.T) {
	a := New(&stubNetsvc{}, nil)
	resp := a.HandleRequest(model.Request{DeviceID: legacySlot, Command: cmdRead})
	if resp.Status != model.StatusNotReady {
		t.Fatalf("expected StatusNotReady, got %+v", resp)
	}
}
