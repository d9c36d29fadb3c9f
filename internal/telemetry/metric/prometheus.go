package metric

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "webhost"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reconcileDuration *prom.HistogramVec
	portAdjustments   *prom.CounterVec
	listenerState     *prom.GaugeVec
	listenerPort      *prom.GaugeVec
	listenerEvents    *prom.CounterVec
	certificates      *prom.GaugeVec
	keyFailures       *prom.CounterVec
	registrations     *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		reconcileDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of settings reconciliation passes",
			Buckets:   prom.DefBuckets,
		}, []string{"instance"}),
		portAdjustments: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "port_adjustments_total",
			Help:      "Reconciliation passes that moved to a higher port because the requested one was busy",
		}, []string{"instance"}),
		listenerState: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "listener_state",
			Help:      "Current listener state (1 for the active state label)",
		}, []string{"instance", "state"}),
		listenerPort: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "listener_port",
			Help:      "Port the listener is bound to",
		}, []string{"instance"}),
		listenerEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "listener_events_total",
			Help:      "Listener lifecycle events by kind",
		}, []string{"instance", "kind"}),
		certificates: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "tls_certificates_loaded",
			Help:      "Certificates accepted by the last TLS material load",
		}, []string{"instance"}),
		keyFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tls_key_load_failures_total",
			Help:      "Private keys that could not be loaded",
		}, []string{"instance"}),
		registrations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_registrations_total",
			Help:      "Service advertisement attempts by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		pr.reconcileDuration,
		pr.portAdjustments,
		pr.listenerState,
		pr.listenerPort,
		pr.listenerEvents,
		pr.certificates,
		pr.keyFailures,
		pr.registrations,
	)
	return pr
}

func (p *PrometheusRecorder) ObserveReconcile(instance string, d time.Duration) {
	p.reconcileDuration.WithLabelValues(instance).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPortAdjusted(instance string) {
	p.portAdjustments.WithLabelValues(instance).Inc()
}

func (p *PrometheusRecorder) SetListenerState(instance, state string) {
	for _, s := range ListenerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		p.listenerState.WithLabelValues(instance, s).Set(v)
	}
}

func (p *PrometheusRecorder) SetListenerPort(instance string, port uint16) {
	p.listenerPort.WithLabelValues(instance).Set(float64(port))
}

func (p *PrometheusRecorder) IncListenerEvent(instance, kind string) {
	p.listenerEvents.WithLabelValues(instance, kind).Inc()
}

func (p *PrometheusRecorder) SetCertificates(instance string, valid int) {
	p.certificates.WithLabelValues(instance).Set(float64(valid))
}

func (p *PrometheusRecorder) IncKeyLoadFailure(instance string) {
	p.keyFailures.WithLabelValues(instance).Inc()
}

func (p *PrometheusRecorder) IncDiscoveryRegistration(result string) {
	p.registrations.WithLabelValues(result).Inc()
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prom.Registry {
	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(g prom.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
