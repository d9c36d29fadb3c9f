package webserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/webhost-go/internal/server/httpserver"
)

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return uint16(port)
}

// startedEvents forwards EventStarted from the service bus.
func startedEvents(s *Service) <-chan httpserver.Event {
	ch := make(chan httpserver.Event, 8)
	s.Bus().Subscribe(func(e httpserver.Event) {
		if e.Kind == httpserver.EventStarted {
			ch <- e
		}
	})
	return ch
}

func waitEvent(t *testing.T, ch <-chan httpserver.Event) httpserver.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for listener event")
		return httpserver.Event{}
	}
}

func runService(t *testing.T, s *Service) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return cancel
}

func get(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestService_ServesDocumentRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("from disk"), 0o644))

	status := NewStatusBoard()
	svc := NewService(Options{Name: "http", Logger: discardLogger(), Status: status})
	started := startedEvents(svc)
	runService(t, svc)

	port := freePort(t)
	require.NoError(t, svc.Submit(context.Background(), Settings{DocumentRoot: dir, Port: port}))
	e := waitEvent(t, started)
	assert.Equal(t, port, e.Port)

	code, body := get(t, http.DefaultClient, fmt.Sprintf("http://127.0.0.1:%d/index.html", port))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "from disk", body)

	code, _ = get(t, http.DefaultClient, fmt.Sprintf("http://127.0.0.1:%d/healthz", port))
	assert.Equal(t, http.StatusOK, code)

	code, body = get(t, http.DefaultClient, fmt.Sprintf("http://127.0.0.1:%d/status", port))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"state":"running"`)
}

func TestService_OccupiedPortAdvertisesChosenPort(t *testing.T) {
	occupied, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer occupied.Close()
	busy := uint16(occupied.Addr().(*net.TCPAddr).Port)

	adv := newFakeAdvertiser()
	svc := NewService(Options{
		Name:        "http",
		Logger:      discardLogger(),
		Advertiser:  adv,
		ServiceName: "_webhost-http._tcp",
	})
	started := startedEvents(svc)
	cancel := runService(t, svc)

	require.NoError(t, svc.Submit(context.Background(), Settings{Port: busy}))
	e := waitEvent(t, started)

	assert.Greater(t, e.Port, busy)
	assert.Equal(t, e.Port, svc.Server().Port())
	assert.Equal(t, []uint16{e.Port}, adv.ports())

	cancel()
	<-svc.Done()
	assert.Empty(t, adv.ports())
	assert.False(t, svc.Server().IsListening())
}

func TestService_SecureServesBuiltinCertificate(t *testing.T) {
	svc := NewService(Options{Name: "https", Secure: true, Logger: discardLogger()})
	assert.Nil(t, svc.Publisher())
	started := startedEvents(svc)
	runService(t, svc)

	port := freePort(t)
	// Secure is forced by the instance.
	require.NoError(t, svc.Submit(context.Background(), Settings{Port: 1, SSLPort: port}))
	e := waitEvent(t, started)
	assert.True(t, e.Secure)
	assert.Equal(t, port, e.Port)

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}}
	code, body := get(t, client, fmt.Sprintf("https://127.0.0.1:%d/", port))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "webhost")
	assert.NotEmpty(t, svc.Server().Certificates())
}

func TestService_SubmitAfterStop(t *testing.T) {
	svc := NewService(Options{Name: "http", Logger: discardLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)
	cancel()
	<-svc.Done()

	err := svc.Submit(context.Background(), Settings{Port: freePort(t)})
	// The buffered queue may still accept the update, but nothing runs it.
	if err != nil {
		assert.ErrorIs(t, err, ErrServiceStopped)
	}
	assert.False(t, svc.Server().IsListening())
}
