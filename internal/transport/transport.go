// Package transport defines the Transport contract every concrete framing
// implementation (FujiBus packet framing, legacy byte-based, legacy
// packet-based) satisfies.
//
// Grounded on include/fujinet/io/transport/transport.h.
package transport

import "github.com/markjfisher/fujinet-nio-sub001/internal/core/model"

// Transport adapts a byte Channel into Requests/Responses.
type Transport interface {
	// Poll does whatever background work this transport needs each loop
	// iteration (draining the channel, timeouts, internal state machines).
	Poll()

	// Receive tries to produce one complete Request. Returns false if none
	// is available right now.
	Receive(out *model.Request) bool

	// Send writes a Response back over this transport.
	Send(resp model.Response)
}
