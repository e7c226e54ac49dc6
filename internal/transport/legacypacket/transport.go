// Package legacypacket implements the legacy packet-based transport
// family (IWM and similar): the wire protocol is itself packet-framed and
// checksum-validated, so there is no ACK/NAK — the packet layer subsumes
// flow control.
//
// Grounded on spec.md §4.4 and the reference's
// include/fujinet/io/transport/legacy/packet_based_legacy_transport.h and
// src/lib/transport/legacy/packet_based_legacy_transport.cpp. No concrete
// packet encoding survives in the reference (the only subclass, IWM, is
// all TODO stubs over raw SPI/GPIO phase lines), so this reuses the
// FujiBus packet codec (internal/protocol/fujibus) for both command and
// status/data packets — the same descriptor+checksum framing spec.md
// §4.1 already defines, rather than inventing a second wire format.
package legacypacket

import (
	"github.com/markjfisher/fujinet-nio-sub001/internal/channel"
	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/logger"
	"github.com/markjfisher/fujinet-nio-sub001/internal/protocol/fujibus"
)

// Transport implements transport.Transport for the legacy packet-based
// bus family.
type Transport struct {
	ch        channel.Channel
	log       logger.Logger
	accum     []byte
	nextReqID model.RequestID
	readBuf   [4096]byte
}

// New creates a legacy packet-based transport over ch.
func New(ch channel.Channel, log logger.Logger) *Transport {
	return &Transport{
		ch:        ch,
		log:       logger.OrNop(log),
		nextReqID: 1,
	}
}

// Poll drains available bytes from the channel into the accumulator.
func (t *Transport) Poll() {
	for t.ch.Available() {
		n := t.ch.Read(t.readBuf[:])
		if n == 0 {
			break
		}
		t.accum = append(t.accum, t.readBuf[:n]...)
	}
}

// Receive decodes one command packet. There is no ACK/NAK phase: a
// malformed packet is simply dropped and the accumulator resynchronizes
// at the next frame, since the packet codec's own checksum already
// validated anything that gets through (spec.md §4.4).
func (t *Transport) Receive(out *model.Request) bool {
	for {
		pkt, err := fujibus.Parse(t.accum)
		if err != nil {
			if err == fujibus.ErrNoFrame {
				return false
			}
			t.log.Warnf("legacypacket: dropping malformed command packet: %v", err)
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

// Send emits a status packet and, if the response carries one, a
// following data packet (spec.md §4.4).
func (t *Transport) Send(resp model.Response) {
	t.sendStatusPacket(resp)
	if len(resp.Payload) > 0 {
		t.sendDataPacket(resp)
	}
}

// sendStatusPacket maps the internal StatusCode onto the legacy wire
// status byte (spec.md §4.4 table, ported verbatim from
// packet_based_legacy_transport.cpp's send()).
func (t *Transport) sendStatusPacket(resp model.Response) {
	pkt := &fujibus.Packet{
		Device:  resp.DeviceID,
		Command: resp.Command,
	}
	pkt.ParamU8(statusByte(resp.Status))
	t.ch.Write(pkt.Serialize())
}

func (t *Transport) sendDataPacket(resp model.Response) {
	pkt := &fujibus.Packet{
		Device:  resp.DeviceID,
		Command: resp.Command,
		Payload: resp.Payload,
	}
	t.ch.Write(pkt.Serialize())
}

// statusByte maps a StatusCode to the protocol-specific status byte
// (spec.md §4.4: Ok->0x00, InvalidRequest->0x01, IOError->0x27,
// NotReady->0x2F, otherwise 0x01).
func statusByte(status model.StatusCode) uint8 {
	switch status {
	case model.StatusOk:
		return 0x00
	case model.StatusInvalidRequest:
		return 0x01
	case model.StatusIOError:
		return 0x27
	case model.StatusNotReady:
		return 0x2F
	default:
		return 0x01
	}
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
