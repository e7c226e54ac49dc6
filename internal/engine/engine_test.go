package engine

import (
	"testing"

	"github.com/markjfisher/fujinet-nio-sub001/internal/core/model"
	"github.com/markjfisher/fujinet-nio-sub001/internal/device"
)

// echoDevice replies with the request's payload reversed so tests can tell
// a request actually reached it.
type echoDevice struct {
	polled  int
	handled int
}

func (d *echoDevice) Handle(req model.Request) model.Response {
	d.handled++
	out := make([]byte, len(req.Payload))
	for i, b := range req.Payload {
		out[len(out)-1-i] = b
	}
	return model.Response{ID: req.ID, DeviceID: req.DeviceID, Status: model.StatusOk, Payload: out}
}

func (d *echoDevice) Poll() { d.polled++ }

// HandleRequest lets an echoDevice stand in as a router override.
func (d *echoDevice) HandleRequest(req model.Request) model.Response { return d.Handle(req) }

var _ device.Device = (*echoDevice)(nil)

// fakeTransport hands back exactly one queued request and records every
// response it's given.
type fakeTransport struct {
	queue  []model.Request
	polled int
	sent   []model.Response
}

func (t *fakeTransport) Poll() { t.polled++ }

func (t *fakeTransport) Receive(out *model.Request) bool {
	if len(t.queue) == 0 {
		return false
	}
	*out = t.queue[0]
	t.queue = t.queue[1:]
	return true
}

func (t *fakeTransport) Send(resp model.Response) {
	t.sent = append(t.sent, resp)
}

func TestEngineTickDispatchesRequestsAndPolls(t *testing.T) {
	eng := New(nil)
	dev := &echoDevice{}
	if err := eng.Register(0x31, dev); err != nil {
		t.Fatalf("register: %v", err)
	}

	tr := &fakeTransport{queue: []model.Request{
		{ID: 1, DeviceID: 0x31, Type: model.RequestWrite, Payload: []byte("abc")},
	}}
	eng.AddTransport(tr)

	eng.Tick()

	if eng.Ticks() != 1 {
		t.Fatalf("expected 1 tick, got %d", eng.Ticks())
	}
	if tr.polled != 1 {
		t.Fatalf("expected the transport to be polled once, got %d", tr.polled)
	}
	if dev.polled != 1 {
		t.Fatalf("expected the device to be polled once, got %d", dev.polled)
	}
	if len(tr.sent) != 1 || string(tr.sent[0].Payload) != "cba" {
		t.Fatalf("expected a reversed-payload response, got %+v", tr.sent)
	}
}

func TestEngineRouterOverrideBypassesRegistry(t *testing.T) {
	eng := New(nil)
	dev := &echoDevice{}
	eng.Register(0x31, dev)

	override := &echoDevice{}
	eng.Router.SetOverride(override)

	tr := &fakeTransport{queue: []model.Request{
		{ID: 1, DeviceID: 0x31, Payload: []byte("x")},
	}}
	eng.AddTransport(tr)
	eng.Tick()

	if dev.polled != 1 {
		// Registry devices still get polled regardless of a router override.
		t.Fatalf("expected the registered device to still be polled, got %d", dev.polled)
	}
	if override.polled != 0 {
		t.Fatal("override handler is not a registered device and should not be polled")
	}
	if len(tr.sent) != 1 {
		t.Fatalf("expected one response via the override path, got %d", len(tr.sent))
	}
	if override.handled != 1 || dev.handled != 0 {
		t.Fatalf("expected the override to handle the request instead of the registry, got override=%d registry=%d", override.handled, dev.handled)
	}

	eng.Router.ClearOverride()
	if eng.Router.HasOverride() {
		t.Fatal("expected override cleared")
	}
}

func TestEngineRequestToUnregisteredDeviceReportsNotFound(t *testing.T) {
	eng := New(nil)
	tr := &fakeTransport{queue: []model.Request{{ID: 1, DeviceID: 0x99}}}
	eng.AddTransport(tr)
	eng.Tick()

	if len(tr.sent) != 1 || tr.sent[0].Status != model.StatusDeviceNotFound {
		t.Fatalf("expected StatusDeviceNotFound, got %+v", tr.sent)
	}
}
