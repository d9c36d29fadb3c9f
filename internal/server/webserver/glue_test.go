package webserver

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yndnr/webhost-go/internal/server/discovery"
	"github.com/yndnr/webhost-go/internal/server/httpserver"
	"github.com/yndnr/webhost-go/internal/telemetry/metric"
)

type fakeAdvertiser struct {
	mu     sync.Mutex
	active map[uint16]bool
	calls  []string
}

func newFakeAdvertiser() *fakeAdvertiser {
	return &fakeAdvertiser{active: map[uint16]bool{}}
}

func (a *fakeAdvertiser) Advertise(service string, port uint16) (discovery.Registration, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active[port] = true
	a.calls = append(a.calls, "advertise")
	return &fakeRegistration{owner: a, port: port}, nil
}

func (a *fakeAdvertiser) ports() []uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []uint16
	for p, ok := range a.active {
		if ok {
			out = append(out, p)
		}
	}
	return out
}

type fakeRegistration struct {
	owner *fakeAdvertiser
	port  uint16
}

func (r *fakeRegistration) Port() uint16 { return r.port }

func (r *fakeRegistration) Shutdown() error {
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	r.owner.active[r.port] = false
	r.owner.calls = append(r.owner.calls, "shutdown")
	return nil
}

func TestAdvertiseOn(t *testing.T) {
	adv := newFakeAdvertiser()
	pub := discovery.NewPublisher(adv, discovery.WithLogger(discardLogger()))
	bus := httpserver.NewBus()
	advertiseOn(bus, pub, "_webhost-http._tcp")

	bus.Publish(httpserver.Event{Kind: httpserver.EventStarted, Instance: "http", Port: 8090})
	assert.Equal(t, []uint16{8090}, adv.ports())

	// Port changes are reported but do not move the registration.
	bus.Publish(httpserver.Event{Kind: httpserver.EventPortChanged, Instance: "http", Port: 8090})
	assert.Equal(t, []string{"advertise"}, adv.calls)

	bus.Publish(httpserver.Event{Kind: httpserver.EventStopped, Instance: "http", Port: 8090})
	assert.Empty(t, adv.ports())

	bus.Publish(httpserver.Event{Kind: httpserver.EventStarted, Instance: "http", Port: 8091})
	bus.Publish(httpserver.Event{Kind: httpserver.EventError, Instance: "http", Port: 8091, Err: errors.New("serve")})
	assert.Empty(t, adv.ports())
	assert.Equal(t, uint16(0), pub.Port())
}

func TestAdvertiseOn_IgnoresSecure(t *testing.T) {
	adv := newFakeAdvertiser()
	pub := discovery.NewPublisher(adv, discovery.WithLogger(discardLogger()))
	bus := httpserver.NewBus()
	advertiseOn(bus, pub, "_webhost-http._tcp")

	bus.Publish(httpserver.Event{Kind: httpserver.EventStarted, Instance: "https", Secure: true, Port: 8092})
	assert.Empty(t, adv.calls)
}

type stateRecorder struct {
	metric.NoopRecorder
	mu     sync.Mutex
	states []string
	ports  []uint16
	kinds  []string
}

func (r *stateRecorder) SetListenerState(_ string, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *stateRecorder) SetListenerPort(_ string, port uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ports = append(r.ports, port)
}

func (r *stateRecorder) IncListenerEvent(_ string, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func TestRecordOn(t *testing.T) {
	rec := &stateRecorder{}
	bus := httpserver.NewBus()
	recordOn(bus, rec)

	bus.Publish(httpserver.Event{Kind: httpserver.EventStarted, Instance: "http", Port: 8090})
	bus.Publish(httpserver.Event{Kind: httpserver.EventPortChanged, Instance: "http", Port: 8090})
	bus.Publish(httpserver.Event{Kind: httpserver.EventStopped, Instance: "http", Port: 8090})
	bus.Publish(httpserver.Event{Kind: httpserver.EventError, Instance: "http", Port: 8090})

	assert.Equal(t, []string{"started", "port_changed", "stopped", "error"}, rec.kinds)
	assert.Equal(t, []string{"running", "stopped", "failed"}, rec.states)
	assert.Equal(t, []uint16{8090}, rec.ports)
}
