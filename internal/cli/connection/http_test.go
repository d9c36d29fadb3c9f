package connection

import (
	"context"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   string
	}{
		{"with http prefix", "http://localhost:8090", "http://localhost:8090"},
		{"with https prefix", "https://localhost:8092", "https://localhost:8092"},
		{"without prefix", "localhost:8090", "http://localhost:8090"},
		{"trailing slash", "http://localhost:8090/", "http://localhost:8090"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewHTTPClient(tt.server)
			if client.BaseURL() != tt.want {
				t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), tt.want)
			}
		})
	}
}

func TestHTTPClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "webhost-server/") {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"instances":[{"instance":"http","port":8090}]}`))
	}))
	defer server.Close()

	var body struct {
		Instances []struct {
			Instance string `json:"instance"`
			Port     int    `json:"port"`
		} `json:"instances"`
	}
	client := NewHTTPClient(server.URL)
	if err := client.GetJSON(context.Background(), "/status", &body); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if len(body.Instances) != 1 || body.Instances[0].Port != 8090 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHTTPClient_GetJSON_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	err := NewHTTPClient(server.URL).GetJSON(context.Background(), "/status", nil)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("GetJSON() error = %v, want status 404", err)
	}
}

func TestHTTPClient_InsecureTLS(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	if err := NewHTTPClient(server.URL).GetJSON(context.Background(), "/", nil); err == nil {
		t.Error("expected verification failure against a self-signed server")
	}
	if err := NewHTTPClient(server.URL, WithInsecure()).GetJSON(context.Background(), "/", nil); err != nil {
		t.Errorf("insecure GetJSON() error = %v", err)
	}
}

func TestHTTPClient_RootCAs(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	roots := x509.NewCertPool()
	roots.AddCert(server.Certificate())

	if err := NewHTTPClient(server.URL, WithRootCAs(roots)).GetJSON(context.Background(), "/", nil); err != nil {
		t.Errorf("GetJSON() with trusted root error = %v", err)
	}
}
