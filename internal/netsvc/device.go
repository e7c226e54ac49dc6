// Package netsvc implements the modern binary network-service device
// (wire id 0xFD) that backs the legacy-network adapter
// (internal/legacynet). It is the one device in this repo that reaches
// an external backend, over plain HTTP.
//
// There is no surviving reference implementation of NetworkDevice in
// the original source tree (src/lib/network_device_init.cpp registers
// one but its body was never checked in) — the request/response shape
// here is this repo's own, built directly on model.Request/Response the
// way every other device does, using net/http directly for the
// transport idiom.
package netsvc

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/device"
	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/logger"
)

// Request/response conventions (documented here since this device has no
// wire format of its own beyond the shared Request/Response types):
//
//	Open:  params=[method], payload=url            -> payload=2-byte LE handle
//	Read:  params=[handle, offset, length]          -> payload=data (short read == EOF)
//	Write: params=[handle, offset], payload=data    -> (buffered; see Close)
//	Close: params=[handle]                          -> commits any buffered write

// Method constants, selected by the legacy adapter from the legacy
// Open command's aux1 byte.
const (
	MethodGet uint32 = iota
	MethodPost
	MethodPut
	MethodDelete
)

type session struct {
	method string
	url    string

	body      io.ReadCloser // set once the read-side request has been issued
	bytesRead int64

	writeBuf  bytes.Buffer
	isUpload  bool
	committed bool
}

// Device implements device.Device for wire id 0xFD.
type Device struct {
	device.NoopPoller

	mu         sync.Mutex
	client     *http.Client
	log        logger.Logger
	sessions   map[uint16]*session
	nextHandle uint16
}

// New creates a netsvc Device with a bounded HTTP client timeout.
func New(log logger.Logger) *Device {
	return &Device{
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logger.OrNop(log),
		sessions: make(map[uint16]*session),
	}
}

// Handle implements device.Device.
func (d *Device) Handle(req model.Request) model.Response {
	switch req.Type {
	case model.RequestOpen:
		return d.handleOpen(req)
	case model.RequestRead:
		return d.handleRead(req)
	case model.RequestWrite:
		return d.handleWrite(req)
	case model.RequestClose:
		return d.handleClose(req)
	default:
		return model.NewErrorResponse(req, model.StatusUnsupported)
	}
}

func methodName(method uint32) (string, bool) {
	switch method {
	case MethodGet:
		return http.MethodGet, false
	case MethodPost:
		return http.MethodPost, true
	case MethodPut:
		return http.MethodPut, true
	case MethodDelete:
		return http.MethodDelete, false
	default:
		return "", false
	}
}

func (d *Device) handleOpen(req model.Request) model.Response {
	if len(req.Params) < 1 {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}
	method, isUpload := methodName(req.Params[0])
	if method == "" {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}
	url := string(req.Payload)
	if url == "" {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}

	sess := &session{method: method, url: url, isUpload: isUpload}

	if !isUpload {
		httpReq, err := http.NewRequest(method, url, nil)
		if err != nil {
			d.log.Warnf("netsvc: open %s %s: %v", method, url, err)
			return model.NewErrorResponse(req, model.StatusIOError)
		}
		resp, err := d.client.Do(httpReq)
		if err != nil {
			d.log.Warnf("netsvc: open %s %s: %v", method, url, err)
			return model.NewErrorResponse(req, model.StatusIOError)
		}
		sess.body = resp.Body
	}

	d.mu.Lock()
	handle := d.nextHandle
	d.nextHandle++
	d.sessions[handle] = sess
	d.mu.Unlock()

	payload := []byte{byte(handle), byte(handle >> 8)}
	return model.Response{ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Command: req.Command, Payload: payload}
}

func (d *Device) handleRead(req model.Request) model.Response {
	if len(req.Params) < 3 {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}
	handle := uint16(req.Params[0])
	offset := req.Params[1]
	length := req.Params[2]

	sess, ok := d.lookup(handle)
	if !ok {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}
	if sess.body == nil {
		return model.NewErrorResponse(req, model.StatusNotReady)
	}
	if uint32(sess.bytesRead) != offset {
		// This device only supports the adapter's own sequential read
		// pattern (spec.md §4.8: nextReadOffset always advances by what was
		// actually read).
		return model.NewErrorResponse(req, model.StatusUnsupported)
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(sess.body, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return model.NewErrorResponse(req, model.StatusIOError)
	}
	sess.bytesRead += int64(n)

	return model.Response{ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Command: req.Command, Payload: buf[:n]}
}

func (d *Device) handleWrite(req model.Request) model.Response {
	if len(req.Params) < 2 {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}
	handle := uint16(req.Params[0])
	offset := req.Params[1]

	sess, ok := d.lookup(handle)
	if !ok {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}
	if !sess.isUpload {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}
	if offset != uint32(sess.writeBuf.Len()) {
		return model.NewErrorResponse(req, model.StatusUnsupported)
	}
	sess.writeBuf.Write(req.Payload)

	return model.Response{ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Command: req.Command}
}

func (d *Device) handleClose(req model.Request) model.Response {
	if len(req.Params) < 1 {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}
	handle := uint16(req.Params[0])

	d.mu.Lock()
	sess, ok := d.sessions[handle]
	if ok {
		delete(d.sessions, handle)
	}
	d.mu.Unlock()
	if !ok {
		return model.NewErrorResponse(req, model.StatusInvalidRequest)
	}

	if sess.isUpload && !sess.committed {
		sess.committed = true
		httpReq, err := http.NewRequest(sess.method, sess.url, bytes.NewReader(sess.writeBuf.Bytes()))
		if err != nil {
			return model.NewErrorResponse(req, model.StatusIOError)
		}
		resp, err := d.client.Do(httpReq)
		if err != nil {
			d.log.Warnf("netsvc: commit %s %s: %v", sess.method, sess.url, err)
			return model.NewErrorResponse(req, model.StatusIOError)
		}
		resp.Body.Close()
	}
	if sess.body != nil {
		sess.body.Close()
	}

	return model.Response{ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Command: req.Command}
}

func (d *Device) lookup(handle uint16) (*session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, ok := d.sessions[handle]
	return sess, ok
}
