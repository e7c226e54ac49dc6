package legacy

import (
	"testing"

	"github.com/markjfisher/fujinet-nio-sub001/internal/channel"
	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
)

func frameWithChecksum(device, comnd, aux1, aux2 byte) []byte {
	f := CommandFrame{Device: device, Comnd: comnd, Aux1: aux1, Aux2: aux2}
	data := f.Bytes()
	return []byte{device, comnd, aux1, aux2, foldChecksum(data[:])}
}

// TestByteTransportNoDataCommand covers a command that needs no data phase.
// 'S' carries data under defaultCommandNeedsData, so this uses 'R', which
// is outside that set.
func TestByteTransportNoDataCommand(t *testing.T) {
	ch := channel.NewMemory()
	tr := NewByteTransport(ch, AtariSIOTraits(), nil)

	ch.Feed(frameWithChecksum(0x31, 'R', 1, 0))
	tr.Poll()

	var req model.Request
	if !tr.Receive(&req) {
		t.Fatal("expected a request after one command-only frame")
	}
	if req.DeviceID != 0x31 || req.Command != 'R' {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Params[0] != 1 {
		t.Fatalf("expected aux1=1, got %+v", req.Params)
	}

	sent := ch.TakeSent()
	if len(sent) != 1 || sent[0] != ACK {
		t.Fatalf("expected a single ACK, got %v", sent)
	}
}

func TestByteTransportWriteCommandWithDataPhase(t *testing.T) {
	ch := channel.NewMemory()
	tr := NewByteTransport(ch, AtariSIOTraits(), nil)

	ch.Feed(frameWithChecksum(0x31, 'W', 0, 0))
	tr.Poll()

	var req model.Request
	if tr.Receive(&req) {
		t.Fatal("'W' needs a data phase, should not produce a request yet")
	}
	if got := ch.TakeSent(); len(got) != 1 || got[0] != ACK {
		t.Fatalf("expected ACK after command phase, got %v", got)
	}

	payload := make([]byte, defaultDataFrameLength)
	for i := range payload {
		payload[i] = byte(i)
	}
	ch.Feed(append(payload, foldChecksum(payload)))
	tr.Poll()

	if !tr.Receive(&req) {
		t.Fatal("expected a request after the data phase completed")
	}
	if len(req.Payload) != defaultDataFrameLength {
		t.Fatalf("expected %d payload bytes, got %d", defaultDataFrameLength, len(req.Payload))
	}
	if got := ch.TakeSent(); len(got) != 1 || got[0] != ACK {
		t.Fatalf("expected ACK after data phase, got %v", got)
	}
}

func TestByteTransportBadChecksumSendsNak(t *testing.T) {
	ch := channel.NewMemory()
	tr := NewByteTransport(ch, AtariSIOTraits(), nil)

	frame := frameWithChecksum(0x31, 'R', 1, 0)
	frame[4] ^= 0xFF // corrupt checksum
	ch.Feed(frame)
	tr.Poll()

	var req model.Request
	if tr.Receive(&req) {
		t.Fatal("a corrupted command frame must not produce a request")
	}
	if got := ch.TakeSent(); len(got) != 1 || got[0] != NAK {
		t.Fatalf("expected NAK, got %v", got)
	}
}

func TestByteTransportSendComplete(t *testing.T) {
	ch := channel.NewMemory()
	tr := NewByteTransport(ch, AtariSIOTraits(), nil)

	tr.Send(model.Response{Status: model.StatusOk, Payload: []byte("hi")})

	sent := ch.TakeSent()
	if len(sent) == 0 || sent[0] != COMPLETE {
		t.Fatalf("expected leading COMPLETE byte, got %v", sent)
	}
	payload := sent[1 : len(sent)-1]
	if string(payload) != "hi" {
		t.Fatalf("expected payload 'hi', got %q", payload)
	}
	if sent[len(sent)-1] != foldChecksum([]byte("hi")) {
		t.Fatalf("expected trailing checksum byte")
	}
}

func TestByteTransportSendError(t *testing.T) {
	ch := channel.NewMemory()
	tr := NewByteTransport(ch, AtariSIOTraits(), nil)

	tr.Send(model.Response{Status: model.StatusIOError})

	sent := ch.TakeSent()
	if len(sent) != 1 || sent[0] != ERROR {
		t.Fatalf("expected a single ERROR byte, got %v", sent)
	}
}

func TestByteTransportImmediateDataStyle(t *testing.T) {
	ch := channel.NewMemory()
	traits := AtariSIOTraits()
	traits.ResponseStyle = ImmediateData
	tr := NewByteTransport(ch, traits, nil)

	tr.Send(model.Response{Status: model.StatusOk, Payload: []byte("ok")})

	sent := ch.TakeSent()
	if len(sent) != len("ok")+1 {
		t.Fatalf("expected payload+checksum only, no status byte, got %v", sent)
	}
}
