package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/webhost-go/internal/server/config"
	"github.com/yndnr/webhost-go/internal/server/discovery"
	"github.com/yndnr/webhost-go/internal/telemetry/logger"
)

func testConfig(t *testing.T) *config.ServerConfig {
	t.Helper()
	cfg := config.Default()
	cfg.WebServer.Port = freePort(t)
	cfg.WebServer.SSLPort = freePort(t)
	cfg.WebServer.WatchTLS = false
	cfg.Discovery.Mode = config.DiscoveryNone
	return cfg
}

func waitRunning(t *testing.T, d *daemon, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		running := 0
		for _, st := range d.status.Snapshot() {
			if st.State == "running" {
				running++
			}
		}
		return running == n
	}, 5*time.Second, 20*time.Millisecond)
}

func httpGet(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestDaemon_ServesBothInstances(t *testing.T) {
	cfg := testConfig(t)
	d := newDaemon(cfg, &GlobalFlags{}, logger.Discard())
	require.Len(t, d.services, 2)

	ctx, cancel := context.WithCancel(context.Background())
	d.start(ctx)
	waitRunning(t, d, 2)

	metrics := httpGet(t, fmt.Sprintf("http://127.0.0.1:%d/metrics", cfg.WebServer.Port))
	assert.Contains(t, metrics, "webhost_listener_state")
	assert.Contains(t, metrics, `webhost_tls_certificate_expiry_timestamp_seconds{instance="https"}`)

	status := httpGet(t, fmt.Sprintf("http://127.0.0.1:%d/status", cfg.WebServer.Port))
	assert.Contains(t, status, `"instance":"https"`)

	out, err := runApp(t, "status",
		"--server", fmt.Sprintf("https://127.0.0.1:%d", cfg.WebServer.SSLPort),
		"--ca", "builtin://server.crt",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "running")

	cancel()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	require.NoError(t, d.wait(waitCtx))
	for _, svc := range d.services {
		assert.False(t, svc.Server().IsListening())
	}
}

func TestDaemon_PlainOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.WebServer.SSLEnabled = false
	cfg.Metrics.Enabled = false

	d := newDaemon(cfg, &GlobalFlags{}, logger.Discard())
	require.Len(t, d.services, 1)
	assert.Nil(t, d.registry)
	assert.Empty(t, d.certificateExpiry())
}

func TestDaemon_ReloadMovesPort(t *testing.T) {
	cfg := testConfig(t)
	cfg.WebServer.SSLEnabled = false
	d := newDaemon(cfg, &GlobalFlags{}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		d.wait(context.Background())
	}()
	d.start(ctx)
	waitRunning(t, d, 1)

	next := *cfg
	next.WebServer.Port = freePort(t)
	d.load = func() (*config.ServerConfig, error) { return &next, nil }
	d.reload()

	require.Eventually(t, func() bool {
		return d.services[0].Server().Port() == uint16(next.WebServer.Port) &&
			d.services[0].Server().IsListening()
	}, 5*time.Second, 20*time.Millisecond)
}

func TestDaemon_ReloadKeepsConfigOnError(t *testing.T) {
	cfg := testConfig(t)
	d := newDaemon(cfg, &GlobalFlags{}, logger.Discard())
	d.load = func() (*config.ServerConfig, error) { return nil, errors.New("broken") }

	d.reload()
	assert.Same(t, cfg, d.cfg)
}

func TestRestartRequired(t *testing.T) {
	prev := config.Default()
	next := config.Default()
	assert.Empty(t, restartRequired(prev, next))

	next.WebServer.Port = 9000
	next.Log.Level = "debug"
	assert.Empty(t, restartRequired(prev, next))

	next.Discovery.Mode = config.DiscoveryGossip
	next.HTTP.RateLimit = 10
	next.WebServer.SSLEnabled = false
	assert.ElementsMatch(t, []string{"discovery", "http", "webserver.ssl_enabled"}, restartRequired(prev, next))
}

func TestNewAdvertiser_ModeCaseFromConfigFile(t *testing.T) {
	tests := []struct {
		mode string
		want discovery.Advertiser
	}{
		{"MDNS", &discovery.MDNS{}},
		{"Gossip", &discovery.Gossip{}},
		{"NONE", discovery.Noop{}},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			path := writeConfig(t, fmt.Sprintf("discovery:\n  mode: %s\n", tt.mode))
			cfg, err := config.Load(config.Source{File: path})
			require.NoError(t, err)

			assert.IsType(t, tt.want, newAdvertiser(cfg.Discovery, logger.Discard()))
		})
	}
}

func TestNewDaemon_TrustedProxies(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTP.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.1"}
	assert.Len(t, trustedProxies(cfg.HTTP, logger.Discard()), 2)

	cfg.HTTP.TrustedProxies = []string{"not a proxy"}
	assert.Empty(t, trustedProxies(cfg.HTTP, logger.Discard()))
}
