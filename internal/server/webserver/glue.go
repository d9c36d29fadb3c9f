package webserver

import (
	"github.com/yndnr/webhost-go/internal/server/discovery"
	"github.com/yndnr/webhost-go/internal/server/httpserver"
	"github.com/yndnr/webhost-go/internal/telemetry/metric"
)

// advertiseOn keeps the publisher in step with a non-secure listener:
// Started registers (or moves) the service, Stopped and Error withdraw it.
func advertiseOn(bus *httpserver.Bus, pub *discovery.Publisher, service string) {
	bus.Subscribe(func(e httpserver.Event) {
		if e.Secure {
			return
		}
		switch e.Kind {
		case httpserver.EventStarted:
			pub.Register(service, e.Port)
		case httpserver.EventStopped, httpserver.EventError:
			pub.Unregister()
		}
	})
}

// recordOn mirrors listener events into metrics.
func recordOn(bus *httpserver.Bus, rec metric.Recorder) {
	bus.Subscribe(func(e httpserver.Event) {
		rec.IncListenerEvent(e.Instance, e.Kind.String())
		switch e.Kind {
		case httpserver.EventStarted:
			rec.SetListenerState(e.Instance, httpserver.StateRunning.String())
			rec.SetListenerPort(e.Instance, e.Port)
		case httpserver.EventStopped:
			rec.SetListenerState(e.Instance, httpserver.StateStopped.String())
		case httpserver.EventError:
			rec.SetListenerState(e.Instance, httpserver.StateFailed.String())
		}
	})
}
