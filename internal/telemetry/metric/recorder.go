package metric

import "time"

// Recorder receives measurements from the listener stack.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// ObserveReconcile records the duration of one reconciliation pass.
	ObserveReconcile(instance string, d time.Duration)
	// IncPortAdjusted counts passes where the requested port was busy.
	IncPortAdjusted(instance string)
	// SetListenerState marks state as the current state of instance.
	SetListenerState(instance, state string)
	// SetListenerPort records the port instance is bound to.
	SetListenerPort(instance string, port uint16)
	// IncListenerEvent counts lifecycle events by kind.
	IncListenerEvent(instance, kind string)
	// SetCertificates records how many certificates the last load accepted.
	SetCertificates(instance string, valid int)
	// IncKeyLoadFailure counts private keys that could not be loaded.
	IncKeyLoadFailure(instance string)
	// IncDiscoveryRegistration counts advertisement attempts by result.
	IncDiscoveryRegistration(result string)
}

// NoopRecorder discards every measurement.
type NoopRecorder struct{}

func (NoopRecorder) ObserveReconcile(string, time.Duration) {}
func (NoopRecorder) IncPortAdjusted(string)                 {}
func (NoopRecorder) SetListenerState(string, string)        {}
func (NoopRecorder) SetListenerPort(string, uint16)         {}
func (NoopRecorder) IncListenerEvent(string, string)        {}
func (NoopRecorder) SetCertificates(string, int)            {}
func (NoopRecorder) IncKeyLoadFailure(string)               {}
func (NoopRecorder) IncDiscoveryRegistration(string)        {}

// ListenerStates lists every state label SetListenerState may receive.
var ListenerStates = []string{"stopped", "starting", "running", "stopping", "failed"}
