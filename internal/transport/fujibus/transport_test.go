package fujibus

import (
	"testing"

	"github.com/markjfisher/fujinet-nio-sub001/internal/channel"
	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/protocol/fujibus"
)

func TestTransportReceiveOneFrame(t *testing.T) {
	ch := channel.NewMemory()
	tr := New(ch, nil)

	pkt := fujibus.Packet{Device: 0x31, Command: 'S', Params: []fujibus.Param{{Value: 2, Size: 1}}}
	ch.Feed(pkt.Serialize())
	tr.Poll()

	var req model.Request
	if !tr.Receive(&req) {
		t.Fatal("expected a request to be decoded")
	}
	if req.DeviceID != 0x31 || req.Command != 'S' || req.Params[0] != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if tr.Receive(&req) {
		t.Fatal("expected only one request from a single frame")
	}
}

func TestTransportReceiveMultipleFramesInOneRead(t *testing.T) {
	ch := channel.NewMemory()
	tr := New(ch, nil)

	p1 := fujibus.Packet{Device: 0x31, Command: 'R'}
	p2 := fujibus.Packet{Device: 0x32, Command: 'W'}
	ch.Feed(append(p1.Serialize(), p2.Serialize()...))
	tr.Poll()

	var req model.Request
	if !tr.Receive(&req) || req.DeviceID != 0x31 {
		t.Fatalf("expected first request from device 0x31, got %+v", req)
	}
	if !tr.Receive(&req) || req.DeviceID != 0x32 {
		t.Fatalf("expected second request from device 0x32, got %+v", req)
	}
	if tr.Receive(&req) {
		t.Fatal("expected no further requests")
	}
}

func TestTransportSendEncodesStatusAsFirstParam(t *testing.T) {
	ch := channel.NewMemory()
	tr := New(ch, nil)

	tr.Send(model.Response{DeviceID: 0x31, Status: model.StatusOk, Payload: []byte("hi")})

	sent := ch.TakeSent()
	pkt, err := fujibus.Parse(sent)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pkt.Device != 0x31 || string(pkt.Payload) != "hi" {
		t.Fatalf("unexpected packet: %+v", pkt)
	}
	if len(pkt.Params) != 1 || pkt.Params[0].Value != uint32(model.StatusOk) {
		t.Fatalf("expected status as first param, got %+v", pkt.Params)
	}
}

func TestTransportReceiveWaitsOnIncompleteFrame(t *testing.T) {
	ch := channel.NewMemory()
	tr := New(ch, nil)

	pkt := fujibus.Packet{Device: 0x31, Command: 'S'}
	wire := pkt.Serialize()
	ch.Feed(wire[:len(wire)-1]) // drop the final END byte
	tr.Poll()

	var req model.Request
	if tr.Receive(&req) {
		t.Fatal("expected no request from an incomplete frame")
	}

	ch.Feed(wire[len(wire)-1:])
	tr.Poll()
	if !tr.Receive(&req) {
		t.Fatal("expected the request once the frame completed")
	}
}
