// Package model holds the wire-independent request/response types shared
// by every transport, the router, the registry, and every device.
package model

import "fmt"

// DeviceID is an 8-bit logical address scoped to this process. Transports
// map their bus-specific addressing onto this space.
type DeviceID = uint8

// RequestID correlates a Response to the Request that produced it. It is a
// 32-bit monotonic counter assigned by the originating transport and is
// unique only within that transport's lifetime.
type RequestID = uint32

// RequestType classifies the high-level operation a Request represents.
type RequestType uint8

const (
	RequestCommand RequestType = iota
	RequestRead
	RequestWrite
	RequestOpen
	RequestClose
	RequestControl
)

func (t RequestType) String() string {
	switch t {
	case RequestCommand:
		return "Command"
	case RequestRead:
		return "Read"
	case RequestWrite:
		return "Write"
	case RequestOpen:
		return "Open"
	case RequestClose:
		return "Close"
	case RequestControl:
		return "Control"
	default:
		return fmt.Sprintf("RequestType(%d)", uint8(t))
	}
}

// StatusCode is the closed set of outcomes a device (or the dispatch layer
// itself) can report for a Request.
type StatusCode uint8

const (
	StatusOk StatusCode = iota
	StatusDeviceNotFound
	StatusInvalidRequest
	StatusDeviceBusy
	StatusNotReady
	StatusIOError
	StatusTimeout
	StatusUnsupported
	StatusInternalError
)

func (s StatusCode) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusDeviceNotFound:
		return "DeviceNotFound"
	case StatusInvalidRequest:
		return "InvalidRequest"
	case StatusDeviceBusy:
		return "DeviceBusy"
	case StatusNotReady:
		return "NotReady"
	case StatusIOError:
		return "IOError"
	case StatusTimeout:
		return "Timeout"
	case StatusUnsupported:
		return "Unsupported"
	case StatusInternalError:
		return "InternalError"
	default:
		return fmt.Sprintf("StatusCode(%d)", uint8(s))
	}
}

// Request is a unified view of a host -> device operation. Params and
// Payload are opaque below the transport that produced them: a transport
// sets DeviceID from wire addressing, but what Command/Params/Payload mean
// is entirely up to the target device.
type Request struct {
	ID       RequestID
	DeviceID DeviceID
	Type     RequestType
	Command  uint8
	Params   []uint32
	Payload  []byte
}

// Response is the result of a device handling a Request. ID and DeviceID
// MUST equal the originating Request's; the registry enforces this even if
// a device mutates them.
type Response struct {
	ID       RequestID
	DeviceID DeviceID
	Status   StatusCode
	Command  uint8
	Payload  []byte
}

// NewErrorResponse builds a Response with the given status and no payload,
// correlated to req. This is the shape every failure path in this codebase
// produces so correlation fields are never forgotten.
func NewErrorResponse(req Request, status StatusCode) Response {
	return Response{
		ID:       req.ID,
		DeviceID: req.DeviceID,
		Status:   status,
		Command:  req.Command,
	}
}
