package legacypacket

import (
	"testing"

	"github.com/markjfisher/fujinet-nio-sub001/internal/channel"
	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/protocol/fujibus"
)

func TestTransportReceiveCommandPacket(t *testing.T) {
	ch := channel.NewMemory()
	tr := New(ch, nil)

	pkt := fujibus.Packet{Device: 0x71, Command: 'O', Params: []fujibus.Param{{Value: 3, Size: 1}}}
	ch.Feed(pkt.Serialize())
	tr.Poll()

	var req model.Request
	if !tr.Receive(&req) {
		t.Fatal("expected a request")
	}
	if req.DeviceID != 0x71 || req.Command != 'O' || req.Params[0] != 3 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestTransportSendEmitsStatusThenDataPacket(t *testing.T) {
	ch := channel.NewMemory()
	tr := New(ch, nil)

	tr.Send(model.Response{DeviceID: 0x71, Command: 'R', Status: model.StatusOk, Payload: []byte("data")})

	sent := ch.TakeSent()

	statusPkt, err := fujibus.Parse(sent)
	if err != nil {
		t.Fatalf("parse status packet: %v", err)
	}
	if len(statusPkt.Params) != 1 || statusPkt.Params[0].Value != 0x00 {
		t.Fatalf("expected status byte 0x00, got %+v", statusPkt.Params)
	}
	if len(statusPkt.Payload) != 0 {
		t.Fatalf("status packet should carry no payload, got %q", statusPkt.Payload)
	}

	// Each frame is delimited by a leading and trailing END byte; split off
	// the first frame to find where the second (data) packet begins.
	firstEnd := -1
	for i := 1; i < len(sent); i++ {
		if sent[i] == fujibus.SlipEnd {
			firstEnd = i
			break
		}
	}
	if firstEnd < 0 {
		t.Fatal("expected two END-delimited frames in the sent bytes")
	}
	afterStatus := sent[firstEnd+1:]
	dataPkt, err := fujibus.Parse(afterStatus)
	if err != nil {
		t.Fatalf("parse data packet: %v", err)
	}
	if string(dataPkt.Payload) != "data" {
		t.Fatalf("expected payload 'data', got %q", dataPkt.Payload)
	}
}

func TestTransportSendErrorStatusOmitsDataPacket(t *testing.T) {
	ch := channel.NewMemory()
	tr := New(ch, nil)

	tr.Send(model.Response{DeviceID: 0x71, Command: 'R', Status: model.StatusIOError})

	sent := ch.TakeSent()
	pkt, err := fujibus.Parse(sent)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pkt.Params[0].Value != 0x27 {
		t.Fatalf("expected IOError status byte 0x27, got %#x", pkt.Params[0].Value)
	}
	ends := 0
	for _, b := range sent {
		if b == fujibus.SlipEnd {
			ends++
		}
	}
	if ends != 2 {
		t.Fatalf("expected only the status packet (2 END bytes), got %d END bytes", ends)
	}
}
