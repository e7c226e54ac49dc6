package legacy

import (
	"github.com/markjfisher/fujinet-nio-sub001/internal/channel"
	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/logger"
)

// defaultDataFrameLength is the conservative default expected length for a
// command's data phase (spec.md §4.3: "The default expected length is
// 256").
const defaultDataFrameLength = 256

// state is the byte-based transport's state machine (spec.md §4.3
// "State machine"): WaitingForCommand -> WaitingForData -> WaitingForCommand.
// A command that does not need data skips the middle state.
type state uint8

const (
	stateWaitingForCommand state = iota
	stateWaitingForData
)

// ByteTransport implements transport.Transport for the legacy byte-based
// bus family (Atari SIO and relatives): a 5-byte command frame, ACK/NAK,
// an optional exact-length data phase, then COMPLETE/ERROR + payload.
//
// Grounded on
// src/lib/transport/legacy/byte_based_legacy_transport.cpp.
type ByteTransport struct {
	ch     channel.Channel
	traits BusTraits
	log    logger.Logger

	accum []byte
	state state

	pending   CommandFrame
	nextReqID model.RequestID
	readBuf   [512]byte
}

// NewByteTransport creates a legacy byte-based transport over ch using the
// given bus traits.
func NewByteTransport(ch channel.Channel, traits BusTraits, log logger.Logger) *ByteTransport {
	if traits.MapDeviceID == nil {
		traits.MapDeviceID = identityMapper
	}
	if traits.CommandNeedsData == nil {
		traits.CommandNeedsData = defaultCommandNeedsData
	}
	return &ByteTransport{
		ch:        ch,
		traits:    traits,
		log:       logger.OrNop(log),
		nextReqID: 1,
	}
}

// Poll drains available bytes from the channel into the accumulator.
func (t *ByteTransport) Poll() {
	for t.ch.Available() {
		n := t.ch.Read(t.readBuf[:])
		if n == 0 {
			break
		}
		t.accum = append(t.accum, t.readBuf[:n]...)
	}
}

// expectedDataFrameLength returns how many payload bytes the data phase
// for frame carries. Default is 256 (spec.md §4.3); commands that always
// carry a fixed, smaller payload can be special-cased here.
func (t *ByteTransport) expectedDataFrameLength(frame CommandFrame) int {
	return defaultDataFrameLength
}

// Receive implements transport.Transport. See spec.md §4.3 for the full
// three/four-phase exchange this drives.
func (t *ByteTransport) Receive(out *model.Request) bool {
	if t.state == stateWaitingForData {
		return t.receiveDataPhase(out)
	}
	return t.receiveCommandPhase(out)
}

func (t *ByteTransport) receiveCommandPhase(out *model.Request) bool {
	const frameLen = 5
	if len(t.accum) < frameLen {
		return false
	}

	frame := CommandFrame{
		Device:   t.accum[0],
		Comnd:    t.accum[1],
		Aux1:     t.accum[2],
		Aux2:     t.accum[3],
		Checksum: t.accum[4],
	}
	t.accum = append([]byte(nil), t.accum[frameLen:]...)

	data := frame.Bytes()
	if !t.traits.ValidateChecksum(data[:], frame.Checksum) {
		t.log.Warnf("legacy: bad command checksum from device 0x%02X", frame.Device)
		t.sendNak()
		return false
	}

	t.sendAck()

	if t.traits.CommandNeedsData(frame.Comnd) {
		t.pending = frame
		t.state = stateWaitingForData
		return false
	}

	*out = t.frameToRequest(frame, nil)
	t.state = stateWaitingForCommand
	return true
}

func (t *ByteTransport) receiveDataPhase(out *model.Request) bool {
	want := t.expectedDataFrameLength(t.pending) + 1 // + trailing checksum byte
	if len(t.accum) < want {
		return false
	}

	data := t.accum[:want-1]
	recvChecksum := t.accum[want-1]
	t.accum = append([]byte(nil), t.accum[want:]...)

	if !t.traits.ValidateChecksum(data, recvChecksum) {
		t.log.Warnf("legacy: bad data-frame checksum from device 0x%02X", t.pending.Device)
		t.sendNak()
		t.state = stateWaitingForCommand
		return false
	}

	t.sendAck()

	*out = t.frameToRequest(t.pending, append([]byte(nil), data...))
	t.state = stateWaitingForCommand
	return true
}

func (t *ByteTransport) frameToRequest(frame CommandFrame, payload []byte) model.Request {
	req := model.Request{
		ID:       t.nextReqID,
		DeviceID: t.traits.MapDeviceID(frame.Device),
		Type:     model.RequestCommand,
		Command:  frame.Comnd,
		Params:   []uint32{uint32(frame.Aux1), uint32(frame.Aux2)},
		Payload:  payload,
	}
	t.nextReqID++
	return req
}

// Send implements transport.Transport. Response style is driven by
// BusTraits.ResponseStyle (spec.md §9 "Variant codings").
func (t *ByteTransport) Send(resp model.Response) {
	switch t.traits.ResponseStyle {
	case ImmediateData:
		if len(resp.Payload) > 0 {
			t.writeDataFrame(resp.Payload)
		}
	default: // AckNakThenData
		if resp.Status == model.StatusOk {
			t.sendComplete()
			if len(resp.Payload) > 0 {
				t.writeDataFrame(resp.Payload)
			}
		} else {
			t.sendError()
		}
	}
	t.state = stateWaitingForCommand
}

func (t *ByteTransport) sendAck()      { t.ch.Write([]byte{ACK}) }
func (t *ByteTransport) sendNak()      { t.ch.Write([]byte{NAK}) }
func (t *ByteTransport) sendComplete() { t.ch.Write([]byte{COMPLETE}) }
func (t *ByteTransport) sendError()    { t.ch.Write([]byte{ERROR}) }

// writeDataFrame writes payload followed by its trailing checksum byte.
func (t *ByteTransport) writeDataFrame(payload []byte) {
	t.ch.Write(payload)
	t.ch.Write([]byte{t.traits.Checksum(payload)})
}
