// Package router implements the Router: a thin dispatcher that sits in
// front of the device registry and can optionally be taken over by a
// single higher-priority handler.
//
// Grounded on include/fujinet/io/core/routing_manager.h and
// src/lib/routing_manager.cpp.
package router

import (
	"sync"

	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/device"
)

// Router implements device.RequestHandler. Every request goes to the
// override handler if one is set, otherwise to the registry (spec.md
// §4.6). Set/Clear are non-blocking and take effect on the next
// dispatched request.
type Router struct {
	mu       sync.RWMutex
	registry device.RequestHandler
	override device.RequestHandler
}

// New creates a Router forwarding to registry by default.
func New(registry device.RequestHandler) *Router {
	return &Router{registry: registry}
}

// SetOverride installs handler as the sole recipient of every request
// until cleared. Use case: a modem "takeover" mode in which the
// connected device steals the bus until it relinquishes control.
func (r *Router) SetOverride(handler device.RequestHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.override = handler
}

// ClearOverride removes any installed override; subsequent requests go
// back to the registry.
func (r *Router) ClearOverride() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.override = nil
}

// HasOverride reports whether an override handler is currently installed.
func (r *Router) HasOverride() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.override != nil
}

// HandleRequest implements device.RequestHandler.
func (r *Router) HandleRequest(req model.Request) model.Response {
	r.mu.RLock()
	h := r.override
	r.mu.RUnlock()

	if h != nil {
		return h.HandleRequest(req)
	}
	return r.registry.HandleRequest(req)
}
