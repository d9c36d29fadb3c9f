package discovery

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAdvertiser records the life of every registration it hands out.
type fakeAdvertiser struct {
	mu   sync.Mutex
	fail error
	regs []*fakeRegistration
	log  []string
}

func (f *fakeAdvertiser) Advertise(service string, port uint16) (Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	r := &fakeRegistration{owner: f, service: service, port: port}
	f.regs = append(f.regs, r)
	f.log = append(f.log, "advertise")
	return r, nil
}

func (f *fakeAdvertiser) active() []*fakeRegistration {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeRegistration
	for _, r := range f.regs {
		if !r.closed {
			out = append(out, r)
		}
	}
	return out
}

type fakeRegistration struct {
	owner   *fakeAdvertiser
	service string
	port    uint16
	closed  bool
}

func (r *fakeRegistration) Port() uint16 { return r.port }

func (r *fakeRegistration) Shutdown() error {
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	r.closed = true
	r.owner.log = append(r.owner.log, "shutdown")
	return nil
}

func newTestPublisher(adv Advertiser) *Publisher {
	return NewPublisher(adv, WithLogger(discardLogger()))
}

func TestPublisher_Register(t *testing.T) {
	adv := &fakeAdvertiser{}
	p := newTestPublisher(adv)

	p.Register("_webhost-http._tcp", 8090)

	active := adv.active()
	require.Len(t, active, 1)
	assert.Equal(t, "_webhost-http._tcp", active[0].service)
	assert.Equal(t, uint16(8090), p.Port())
}

func TestPublisher_RegisterSamePortIsNoop(t *testing.T) {
	adv := &fakeAdvertiser{}
	p := newTestPublisher(adv)

	p.Register("_webhost-http._tcp", 8090)
	p.Register("_webhost-http._tcp", 8090)

	assert.Equal(t, []string{"advertise"}, adv.log)
}

func TestPublisher_PortChangeReplacesRegistration(t *testing.T) {
	adv := &fakeAdvertiser{}
	p := newTestPublisher(adv)

	p.Register("_webhost-http._tcp", 8090)
	p.Register("_webhost-http._tcp", 8091)

	// The stale registration is withdrawn before the new one exists.
	assert.Equal(t, []string{"advertise", "shutdown", "advertise"}, adv.log)

	active := adv.active()
	require.Len(t, active, 1)
	assert.Equal(t, uint16(8091), active[0].port)
	assert.Equal(t, uint16(8091), p.Port())
}

func TestPublisher_FailureLeavesNoRegistration(t *testing.T) {
	adv := &fakeAdvertiser{}
	p := newTestPublisher(adv)
	p.Register("_webhost-http._tcp", 8090)

	adv.fail = errors.New("multicast unavailable")
	p.Register("_webhost-http._tcp", 8091)

	assert.Empty(t, adv.active())
	assert.Zero(t, p.Port())
}

func TestPublisher_Unregister(t *testing.T) {
	adv := &fakeAdvertiser{}
	p := newTestPublisher(adv)

	p.Unregister()
	p.Register("_webhost-http._tcp", 8090)
	p.Unregister()
	p.Unregister()

	assert.Empty(t, adv.active())
	assert.Zero(t, p.Port())
	assert.Equal(t, []string{"advertise", "shutdown"}, adv.log)
}

func TestPublisher_NilAdvertiserIsNoop(t *testing.T) {
	p := newTestPublisher(nil)

	p.Register("_webhost-http._tcp", 8090)
	assert.Equal(t, uint16(8090), p.Port())
	assert.Nil(t, p.Peers())
}
