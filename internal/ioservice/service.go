// Package ioservice implements the I/O service: the cooperative,
// single-threaded loop that pumps Requests from every registered
// transport through a handler and ships Responses back.
//
// Grounded on include/fujinet/io/transport/io_service.h and
// src/lib/io_service.cpp.
package ioservice

import (
	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/device"
	"github.com/markjfisher/fujinet-nio-sub001/internal/transport"
)

// Service owns a set of transports and pumps Requests through a handler.
// It does not own the transports' lifetime.
type Service struct {
	handler    device.RequestHandler
	transports []transport.Transport
}

// New creates a Service dispatching through handler.
func New(handler device.RequestHandler) *Service {
	return &Service{handler: handler}
}

// AddTransport registers a transport to be serviced on every tick.
func (s *Service) AddTransport(t transport.Transport) {
	if t != nil {
		s.transports = append(s.transports, t)
	}
}

// ServiceOnce is one pass of the loop: poll every transport, then drain
// each transport's available requests, dispatching and replying in
// arrival order per transport. There is no ordering guarantee across
// transports (spec.md §4.5).
func (s *Service) ServiceOnce() {
	for _, t := range s.transports {
		t.Poll()
	}

	var req model.Request
	for _, t := range s.transports {
		for t.Receive(&req) {
			resp := s.handler.HandleRequest(req)
			t.Send(resp)
		}
	}
}
