// Package registry implements the device registry: exclusive ownership of
// every registered virtual device, request dispatch, and the periodic
// device poll fan-out.
//
// Grounded on include/fujinet/io/core/io_device_manager.h and
// src/lib/io_device_manager.cpp in the reference implementation.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/device"
	"github.com/markjfisher/fujinet-nio-sub001/internal/pkg/logger"
)

// Registry owns every registered Device, keyed by DeviceID.
type Registry struct {
	mu      sync.RWMutex
	devices map[model.DeviceID]device.Device
	log     logger.Logger
}

// New creates an empty Registry.
func New(log logger.Logger) *Registry {
	return &Registry{
		devices: make(map[model.DeviceID]device.Device),
		log:     logger.OrNop(log),
	}
}

// Register binds a device to id. It fails if the id is already bound.
func (r *Registry) Register(id model.DeviceID, dev device.Device) error {
	if dev == nil {
		return fmt.Errorf("registry: nil device for id 0x%02X", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[id]; exists {
		return fmt.Errorf("registry: device 0x%02X already registered", id)
	}
	r.devices[id] = dev
	r.log.Debugf("registry: registered device 0x%02X", id)
	return nil
}

// Unregister removes a device by id. It reports whether a device was removed.
func (r *Registry) Unregister(id model.DeviceID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[id]; !exists {
		return false
	}
	delete(r.devices, id)
	return true
}

// Get looks up a device by id, returning false if none is registered.
func (r *Registry) Get(id model.DeviceID) (device.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.devices[id]
	return dev, ok
}

// Count reports how many devices are registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// HandleRequest implements device.RequestHandler. On a missing device id it
// returns StatusDeviceNotFound with an empty payload. Correlation fields
// (ID, DeviceID) are overwritten from the request after calling the device,
// so a device cannot forge them even by mutation. A status outside the
// closed StatusCode set is replaced with StatusInternalError.
func (r *Registry) HandleRequest(req model.Request) model.Response {
	dev, ok := r.Get(req.DeviceID)
	if !ok {
		return model.NewErrorResponse(req, model.StatusDeviceNotFound)
	}

	resp := dev.Handle(req)
	resp.ID = req.ID
	resp.DeviceID = req.DeviceID
	if resp.Status > model.StatusInternalError {
		resp.Status = model.StatusInternalError
	}
	return resp
}

// PollDevices invokes Poll on every registered device in ascending DeviceID
// order, so the order is stable for as long as the set of registered devices
// is unchanged. It does not itself mutate the registry.
func (r *Registry) PollDevices() {
	r.mu.RLock()
	ids := make([]model.DeviceID, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	devs := make([]device.Device, 0, len(ids))
	for _, id := range ids {
		devs = append(devs, r.devices[id])
	}
	r.mu.RUnlock()

	for _, dev := range devs {
		dev.Poll()
	}
}
