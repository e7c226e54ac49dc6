// Package engine is the composition root tying together the device
// registry, router, and I/O service into the single-threaded cooperative
// loop spec.md §5 describes: "the engine advances on explicit tick calls;
// the service loop's serviceOnce and every device's poll run on that same
// thread."
package engine

import (
	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/device"
	"github.com/markjfisher/fujinet-nio-sub001/internal/ioservice"
	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/logger"
	"github.com/markjfisher/fujinet-nio-sub001/internal/registry"
	"github.com/markjfisher/fujinet-nio-sub001/internal/router"
	"github.com/markjfisher/fujinet-nio-sub001/internal/transport"
)

// Engine owns the registry and router, and drives a Service. There is no
// static mutable state; callers pass an Engine by reference (spec.md §9
// "Global state").
type Engine struct {
	Registry *registry.Registry
	Router   *router.Router
	service  *ioservice.Service
	ticks    uint64
}

// New builds an Engine with a fresh registry and router wired together:
// the service dispatches through the router, the router defaults to
// routing into the registry.
func New(log logger.Logger) *Engine {
	reg := registry.New(log)
	rt := router.New(reg)
	return &Engine{
		Registry: reg,
		Router:   rt,
		service:  ioservice.New(rt),
	}
}

// Register binds a device to id via the registry.
func (e *Engine) Register(id model.DeviceID, dev device.Device) error {
	return e.Registry.Register(id, dev)
}

// AddTransport registers a transport to be serviced on every tick.
func (e *Engine) AddTransport(t transport.Transport) {
	e.service.AddTransport(t)
}

// Tick advances the engine by one step: services every transport, then
// polls every device, then advances the tick counter. This is the
// engine's only unit of time; anything tick-scoped (the modem's listen
// timeout) counts these.
func (e *Engine) Tick() {
	e.service.ServiceOnce()
	e.Registry.PollDevices()
	e.ticks++
}

// Ticks reports how many times Tick has been called.
func (e *Engine) Ticks() uint64 {
	return e.ticks
}
