package webserver

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/yndnr/webhost-go/internal/infra/buildinfo"
	"github.com/yndnr/webhost-go/internal/server/discovery"
	"github.com/yndnr/webhost-go/internal/server/httpserver"
)

// InstanceStatus is the last known state of one listener.
type InstanceStatus struct {
	Instance  string    `json:"instance"`
	Secure    bool      `json:"secure"`
	State     string    `json:"state"`
	Port      uint16    `json:"port"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusBoard tracks listener events of every instance and serves them as
// JSON on /status.
type StatusBoard struct {
	mu        sync.RWMutex
	instances map[string]*InstanceStatus
	peers     func() []discovery.Peer
	now       func() time.Time
}

// NewStatusBoard creates an empty board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{
		instances: make(map[string]*InstanceStatus),
		now:       time.Now,
	}
}

// SetPeers sets the source of discovered peers shown on /status.
func (b *StatusBoard) SetPeers(fn func() []discovery.Peer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.peers = fn
}

// Observe is an httpserver.Handler recording e.
func (b *StatusBoard) Observe(e httpserver.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.instances[e.Instance]
	if !ok {
		st = &InstanceStatus{Instance: e.Instance, Secure: e.Secure, State: httpserver.StateStopped.String()}
		b.instances[e.Instance] = st
	}

	switch e.Kind {
	case httpserver.EventStarted:
		st.State = httpserver.StateRunning.String()
		st.LastError = ""
	case httpserver.EventStopped:
		st.State = httpserver.StateStopped.String()
	case httpserver.EventError:
		st.State = httpserver.StateFailed.String()
		if e.Err != nil {
			st.LastError = e.Err.Error()
		}
	}
	st.Port = e.Port
	st.UpdatedAt = b.now()
}

// Snapshot returns the tracked instances sorted by name.
func (b *StatusBoard) Snapshot() []InstanceStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]InstanceStatus, 0, len(b.instances))
	for _, st := range b.instances {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}

type statusResponse struct {
	Build     buildinfo.Info   `json:"build"`
	Instances []InstanceStatus `json:"instances"`
	Peers     []discovery.Peer `json:"peers,omitempty"`
}

// ServeHTTP implements http.Handler.
func (b *StatusBoard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Build:     buildinfo.Get(),
		Instances: b.Snapshot(),
	}

	b.mu.RLock()
	peers := b.peers
	b.mu.RUnlock()
	if peers != nil {
		resp.Peers = peers()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
