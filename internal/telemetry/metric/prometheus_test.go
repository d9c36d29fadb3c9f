package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_Counters(t *testing.T) {
	reg := NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncPortAdjusted("http")
	r.IncPortAdjusted("http")
	r.IncKeyLoadFailure("https")
	r.IncDiscoveryRegistration("ok")
	r.IncListenerEvent("http", "started")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.portAdjustments.WithLabelValues("http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.keyFailures.WithLabelValues("https")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.registrations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.listenerEvents.WithLabelValues("http", "started")))
}

func TestPrometheusRecorder_ListenerState(t *testing.T) {
	r := NewPrometheusRecorder(nil)

	r.SetListenerState("http", "running")
	r.SetListenerPort("http", 8091)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.listenerState.WithLabelValues("http", "running")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.listenerState.WithLabelValues("http", "failed")))
	assert.Equal(t, 8091.0, testutil.ToFloat64(r.listenerPort.WithLabelValues("http")))

	r.SetListenerState("http", "failed")
	assert.Equal(t, 0.0, testutil.ToFloat64(r.listenerState.WithLabelValues("http", "running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.listenerState.WithLabelValues("http", "failed")))
}

func TestPrometheusRecorder_ReconcileAndCertificates(t *testing.T) {
	r := NewPrometheusRecorder(nil)

	r.ObserveReconcile("https", 20*time.Millisecond)
	r.SetCertificates("https", 2)

	assert.Equal(t, 1, testutil.CollectAndCount(r.reconcileDuration))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.certificates.WithLabelValues("https")))
}

func TestExpiryCollector(t *testing.T) {
	notAfter := time.Date(2046, 10, 1, 0, 0, 0, 0, time.UTC)
	c := NewExpiryCollector(func() map[string]time.Time {
		return map[string]time.Time{"https": notAfter}
	})

	expected := `
# HELP webhost_tls_certificate_expiry_timestamp_seconds Unix time at which the earliest served certificate expires
# TYPE webhost_tls_certificate_expiry_timestamp_seconds gauge
webhost_tls_certificate_expiry_timestamp_seconds{instance="https"} 2.4219648e+09
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

func TestExpiryCollector_Empty(t *testing.T) {
	c := NewExpiryCollector(func() map[string]time.Time { return nil })
	assert.Equal(t, 0, testutil.CollectAndCount(c))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	r := NewPrometheusRecorder(reg)
	r.IncPortAdjusted("http")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `webhost_port_adjustments_total{instance="http"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveReconcile("http", time.Second)
	r.SetListenerState("http", "running")
	r.IncDiscoveryRegistration("error")
}
