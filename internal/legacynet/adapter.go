// Package legacynet implements the legacy-network adapter: a routing-
// stage device.RequestHandler that translates the eight legacy network
// device ids (0x71..0x78), addressed with single-letter verbs
// O/C/R/W/S, into the modern binary network-service device (0xFD).
//
// Grounded on include/fujinet/io/legacy/legacy_network_adapter.h (the
// slot struct and device-id range survive verbatim; the .cpp body was
// never checked into the reference tree, so the request/response
// conversion below is this repo's own, built directly against
// internal/netsvc's Open/Read/Write/Close convention) and the bridging
// narrative in src/lib/transport/legacy/byte_based_legacy_transport.cpp.
package legacynet

import (
	"bytes"

	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/device"
	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/logger"
)

// Legacy device id range and wire commands (spec.md §4.8).
const (
	legacyFirst = 0x71
	legacyLast  = 0x78

	networkServiceDeviceID model.DeviceID = 0xFD

	cmdOpen   = 'O'
	cmdClose  = 'C'
	cmdRead   = 'R'
	cmdWrite  = 'W'
	cmdStatus = 'S'
)

// Legacy status byte bit layout (this repo's decision for spec.md §9
// Open Question (b), recorded in DESIGN.md): bit7 = error/not-connected,
// bit6 = EOF, bits0-5 = a clamped count of bytes waiting.
const (
	statusErrorBit   = 0x80
	statusEofBit     = 0x40
	statusWaitingMax = 0x3F

	// probeSize bounds how much the Status probe-read is allowed to pull
	// from the backend and cache, per spec.md §4.8 and §9 Open Question (b)
	// ("keep the cache bounded").
	probeSize = 256

	// defaultReadLength is used when the legacy Read request carries no
	// usable aux12 length.
	defaultReadLength = 256
)

type slot struct {
	hasHandle       bool
	handle          uint16
	nextReadOffset  uint32
	nextWriteOffset uint32
	awaitingCommit  bool
	pendingRead     []byte
	pendingEof      bool
}

func (s *slot) reset() { *s = slot{} }

// Adapter implements device.RequestHandler. Non-legacy-network requests
// pass straight through to downstream; legacy network requests are
// translated per-slot.
type Adapter struct {
	downstream device.RequestHandler
	log        logger.Logger
	slots      [8]slot
}

// New creates an Adapter forwarding everything it doesn't translate to
// downstream (typically the registry or router).
func New(downstream device.RequestHandler, log logger.Logger) *Adapter {
	return &Adapter{downstream: downstream, log: logger.OrNop(log)}
}

func isLegacyNetDevice(id model.DeviceID) bool {
	return id >= legacyFirst && id <= legacyLast
}

// HandleRequest implements device.RequestHandler.
func (a *Adapter) HandleRequest(req model.Request) model.Response {
	if !isLegacyNetDevice(req.DeviceID) {
		return a.downstream.HandleRequest(req)
	}

	s := &a.slots[req.DeviceID-legacyFirst]

	switch req.Command {
	case cmdOpen:
		return a.handleOpen(req, s)
	case cmdRead:
		return a.handleRead(req, s)
	case cmdWrite:
		return a.handleWrite(req, s)
	case cmdClose:
		return a.handleClose(req, s)
	case cmdStatus:
		return a.handleStatus(req, s)
	default:
		return model.NewErrorResponse(req, model.StatusUnsupported)
	}
}

// extractURL recovers the target URL from the Open payload: null-
// terminated if a NUL is present, otherwise the whole payload
// (length-delimited, per the source semantics this is ported from).
func extractURL(payload []byte) string {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		return string(payload[:i])
	}
	return string(payload)
}

// methodFromAux1 maps the legacy Open command's aux1 byte directly onto
// netsvc's method constants. The reference never checked in a concrete
// mapping; this repo's own decision (recorded in DESIGN.md) is aux1's
// low two bits select GET/POST/PUT/DELETE in that order.
func methodFromAux1(aux1 uint32) uint32 {
	return aux1 & 0x03
}

func (a *Adapter) handleOpen(req model.Request, s *slot) model.Response {
	if s.hasHandle {
		return model.NewErrorResponse(req, model.StatusDeviceBusy)
	}

	var aux1 uint32
	if len(req.Params) > 0 {
		aux1 = req.Params[0]
	}
	method := methodFromAux1(aux1)
	url := extractURL(req.Payload)
	if url == "" {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}

	modernResp := a.downstream.HandleRequest(model.Request{
		ID:       req.ID,
		DeviceID: networkServiceDeviceID,
		Type:     model.RequestOpen,
		Params:   []uint32{method},
		Payload:  []byte(url),
	})
	if modernResp.Status != model.StatusOk {
		return model.NewErrorResponse(req, modernResp.Status)
	}
	if len(modernResp.Payload) < 2 {
		return model.NewErrorResponse(req, model.StatusInternalError)
	}

	s.reset()
	s.hasHandle = true
	s.handle = uint16(modernResp.Payload[0]) | uint16(modernResp.Payload[1])<<8

	return okResponse(req)
}

func (a *Adapter) handleRead(req model.Request, s *slot) model.Response {
	if !s.hasHandle {
		return model.NewErrorResponse(req, model.StatusNotReady)
	}

	length := aux12(req)
	if length == 0 {
		length = defaultReadLength
	}

	data := a.drainOrRead(s, length)
	return model.Response{ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Command: req.Command, Payload: data}
}

// drainOrRead serves length bytes from the pendingRead cache first, only
// issuing a modern read for the remainder (spec.md §4.8).
func (a *Adapter) drainOrRead(s *slot, length uint32) []byte {
	var data []byte

	if len(s.pendingRead) > 0 {
		take := uint32(len(s.pendingRead))
		if take > length {
			take = length
		}
		data = append(data, s.pendingRead[:take]...)
		s.pendingRead = s.pendingRead[take:]
		length -= take
	}

	if length > 0 && !s.pendingEof {
		data = append(data, a.modernRead(s, length)...)
	}

	return data
}

func (a *Adapter) modernRead(s *slot, length uint32) []byte {
	resp := a.downstream.HandleRequest(model.Request{
		DeviceID: networkServiceDeviceID,
		Type:     model.RequestRead,
		Params:   []uint32{uint32(s.handle), s.nextReadOffset, length},
	})
	if resp.Status != model.StatusOk {
		s.pendingEof = true
		return nil
	}

	s.nextReadOffset += uint32(len(resp.Payload))
	s.pendingEof = uint32(len(resp.Payload)) < length
	return resp.Payload
}

func (a *Adapter) handleWrite(req model.Request, s *slot) model.Response {
	if !s.hasHandle {
		return model.NewErrorResponse(req, model.StatusNotReady)
	}

	resp := a.downstream.HandleRequest(model.Request{
		DeviceID: networkServiceDeviceID,
		Type:     model.RequestWrite,
		Params:   []uint32{uint32(s.handle), s.nextWriteOffset},
		Payload:  req.Payload,
	})
	if resp.Status != model.StatusOk {
		return model.NewErrorResponse(req, resp.Status)
	}

	s.nextWriteOffset += uint32(len(req.Payload))
	s.awaitingCommit = true
	return okResponse(req)
}

func (a *Adapter) handleClose(req model.Request, s *slot) model.Response {
	if s.hasHandle {
		a.downstream.HandleRequest(model.Request{
			DeviceID: networkServiceDeviceID,
			Type:     model.RequestClose,
			Params:   []uint32{uint32(s.handle)},
		})
	}
	s.reset()
	return okResponse(req)
}

func (a *Adapter) handleStatus(req model.Request, s *slot) model.Response {
	if !s.hasHandle {
		// The only response this adapter invents without reaching a
		// backend (spec.md §4.8).
		return model.Response{
			ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Command: req.Command,
			Payload: []byte{statusErrorBit | statusEofBit},
		}
	}

	if len(s.pendingRead) == 0 && !s.pendingEof {
		probe := a.modernRead(s, probeSize)
		s.pendingRead = append(s.pendingRead, probe...)
	}

	waiting := len(s.pendingRead)
	if waiting > statusWaitingMax {
		waiting = statusWaitingMax
	}
	var b byte = byte(waiting)
	if s.pendingEof {
		b |= statusEofBit
	}
	return model.Response{ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Command: req.Command, Payload: []byte{b}}
}

func aux12(req model.Request) uint32 {
	if len(req.Params) < 2 {
		return 0
	}
	return req.Params[0] | req.Params[1]<<8
}

func okResponse(req model.Request) model.Response {
	return model.Response{ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Command: req.Command}
}
