// Package fujibus implements the packet-framed transport: turns a SLIP/
// descriptor-encoded FujiBus byte stream into Requests/Responses.
//
// Grounded on spec.md §4.2 and the reference's
// src/lib/fujibus_transport.cpp framing loop.
package fujibus

import (
	"github.com/markjfisher/fujinet-nio-sub001/internal/channel"
	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/logger"
	"github.com/markjfisher/fujinet-nio-sub001/internal/protocol/fujibus"
)

// Transport implements device.RequestHandler-adjacent transport.Transport
// over a byte Channel using FujiBus packet framing.
type Transport struct {
	ch        channel.Channel
	log       logger.Logger
	accum     []byte
	nextReqID model.RequestID
	readBuf   [4096]byte
}

// New creates a packet-framed transport reading/writing ch.
func New(ch channel.Channel, log logger.Logger) *Transport {
	return &Transport{
		ch:        ch,
		log:       logger.OrNop(log),
		nextReqID: 1,
	}
}

// Poll drains whatever bytes are currently available from the channel into
// the internal accumulator.
func (t *Transport) Poll() {
	for t.ch.Available() {
		n := t.ch.Read(t.readBuf[:])
		if n == 0 {
			break
		}
		t.accum = append(t.accum, t.readBuf[:n]...)
	}
}

// Receive extracts one complete SLIP frame from the accumulator, decodes it
// as a FujiBus packet, and maps it verbatim to a Request (params are
// request params, never status — spec.md §4.2 invariant). Unparseable
// frames are dropped and the accumulator advances so resynchronization is
// eventual; bytes before the first END are discarded as line noise.
func (t *Transport) Receive(out *model.Request) bool {
	for {
		pkt, err := fujibus.Parse(t.accum)
		if err != nil {
			if err == fujibus.ErrNoFrame {
				// Nothing we can do yet; wait for more bytes. But if there's
				// noise before a never-arriving END, trim it so the buffer
				// doesn't grow unboundedly.
				if start := indexOf(t.accum, fujibus.SlipEnd, 0); start < 0 {
					t.accum = t.accum[:0]
				} else if start > 0 {
					t.accum = append([]byte(nil), t.accum[start:]...)
				}
				return false
			}

			// A frame-shaped chunk existed but was malformed: drop it and
			// resync at the next END after the one we started from.
			t.log.Warnf("fujibus: dropping malformed frame: %v", err)
			t.advancePastBadFrame()
			continue
		}

		t.consumeFrame()

		out.ID = t.nextReqID
		t.nextReqID++
		out.DeviceID = pkt.Device
		out.Type = model.RequestCommand
		out.Command = pkt.Command
		out.Params = paramValues(pkt.Params)
		out.Payload = pkt.Payload
		return true
	}
}

// Send builds a response packet: the response's status as the first u8
// parameter, followed by the payload, and writes it to the channel.
func (t *Transport) Send(resp model.Response) {
	pkt := &fujibus.Packet{
		Device:  resp.DeviceID,
		Command: resp.Command,
		Payload: resp.Payload,
	}
	pkt.ParamU8(uint8(resp.Status))

	wire := pkt.Serialize()
	t.ch.Write(wire)
}

func paramValues(params []fujibus.Param) []uint32 {
	if len(params) == 0 {
		return nil
	}
	out := make([]uint32, len(params))
	for i, p := range params {
		out[i] = p.Value
	}
	return out
}

// consumeFrame removes the bytes of the frame just parsed (up to and
// including its closing END) from the accumulator.
func (t *Transport) consumeFrame() {
	start := indexOf(t.accum, fujibus.SlipEnd, 0)
	if start < 0 {
		t.accum = t.accum[:0]
		return
	}
	end := indexOf(t.accum, fujibus.SlipEnd, start+1)
	if end < 0 {
		t.accum = t.accum[:0]
		return
	}
	t.accum = append([]byte(nil), t.accum[end+1:]...)
}

// advancePastBadFrame drops everything up to and including the next END
// after the frame-start, so the accumulator resynchronizes.
func (t *Transport) advancePastBadFrame() {
	t.consumeFrame()
}

func indexOf(buf []byte, b byte, from int) int {
	for i := from; i < len(buf); i++ {
		if buf[i] == b {
			return i
		}
	}
	return -1
}
