// Package device defines the small interface sets that the rest of the
// runtime is built from: a Device (disk, printer, clock, modem, ...) and
// the broader RequestHandler any routing stage can stand in for.
//
// Grounded on include/fujinet/io/devices/virtual_device.h and
// include/fujinet/io/core/request_handler.h in the reference implementation.
package device

import "github.com/markjfisher/fujinet-nio-sub001/internal/core/model"

// RequestHandler handles a single request and returns a response. The
// router and the legacy-network adapter both implement this without being
// a Device themselves — RequestHandler is intentionally broader.
type RequestHandler interface {
	HandleRequest(req model.Request) model.Response
}

// Device is the abstract base for every virtual device (disk, printer,
// clock, modem, ...). Poll is called periodically so a device can advance
// its own state machine; devices that don't need it may embed NoopPoller.
type Device interface {
	Handle(req model.Request) model.Response
	Poll()
}

// NoopPoller can be embedded by devices with no background work.
type NoopPoller struct{}

// Poll is a no-op.
func (NoopPoller) Poll() {}
