package discovery

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/hashicorp/memberlist"

	"github.com/yndnr/webhost-go/internal/telemetry/logger"
)

// GossipConfig configures memberlist based advertisement.
type GossipConfig struct {
	// NodeName is the unique member name. Default: memberlist picks the hostname.
	NodeName string

	// BindAddr and BindPort are used for gossip traffic. Port 0 picks a free port.
	BindAddr string
	BindPort int

	// Seeds are existing members to join. An unreachable seed is logged and
	// the node keeps running alone.
	Seeds []string

	// LeaveTimeout bounds the leave broadcast on Shutdown. Default: 1s.
	LeaveTimeout time.Duration

	Logger *slog.Logger
}

// Gossip advertises services as memberlist node metadata.
type Gossip struct {
	cfg GossipConfig
}

// NewGossip creates a gossip advertiser.
func NewGossip(cfg GossipConfig) *Gossip {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LeaveTimeout <= 0 {
		cfg.LeaveTimeout = time.Second
	}
	return &Gossip{cfg: cfg}
}

// serviceMeta is the node metadata shared with other members.
type serviceMeta struct {
	Service string `json:"service"`
	Port    uint16 `json:"port"`
}

// Advertise implements Advertiser by joining the gossip cluster with the
// service in the node metadata.
func (g *Gossip) Advertise(service string, port uint16) (Registration, error) {
	meta, err := json.Marshal(serviceMeta{Service: service, Port: port})
	if err != nil {
		return nil, fmt.Errorf("encode node metadata: %w", err)
	}

	mlConfig := memberlist.DefaultLANConfig()
	if g.cfg.NodeName != "" {
		mlConfig.Name = g.cfg.NodeName
	}
	mlConfig.BindAddr = g.cfg.BindAddr
	mlConfig.BindPort = g.cfg.BindPort
	mlConfig.AdvertisePort = g.cfg.BindPort
	mlConfig.Delegate = &metadataDelegate{meta: meta}
	mlConfig.Logger = logger.StdLogger(g.cfg.Logger, "memberlist")

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}

	if len(g.cfg.Seeds) > 0 {
		n, err := ml.Join(g.cfg.Seeds)
		if err != nil {
			g.cfg.Logger.Warn("could not join gossip seeds, running alone",
				"seeds", g.cfg.Seeds,
				"error", err,
			)
		} else {
			g.cfg.Logger.Info("joined gossip cluster", "seeds", g.cfg.Seeds, "contacted", n)
		}
	}

	reg := &gossipRegistration{ml: ml, port: port, leaveTimeout: g.cfg.LeaveTimeout}
	g.cfg.Logger.Info("advertising over gossip", "service", service, "port", port, "gossip_addr", reg.Addr())
	return reg, nil
}

type gossipRegistration struct {
	ml           *memberlist.Memberlist
	port         uint16
	leaveTimeout time.Duration
}

func (r *gossipRegistration) Port() uint16 {
	return r.port
}

// Addr returns the gossip address of the local member.
func (r *gossipRegistration) Addr() string {
	n := r.ml.LocalNode()
	return net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port)))
}

func (r *gossipRegistration) Shutdown() error {
	if err := r.ml.Leave(r.leaveTimeout); err != nil {
		r.ml.Shutdown()
		return fmt.Errorf("leave gossip cluster: %w", err)
	}
	if err := r.ml.Shutdown(); err != nil {
		return fmt.Errorf("shutdown memberlist: %w", err)
	}
	return nil
}

// Peers lists the other members that advertise a service.
func (r *gossipRegistration) Peers() []Peer {
	local := r.ml.LocalNode().Name
	var peers []Peer
	for _, n := range r.ml.Members() {
		if n.Name == local {
			continue
		}
		var meta serviceMeta
		if err := json.Unmarshal(n.Meta, &meta); err != nil || meta.Service == "" {
			continue
		}
		peers = append(peers, Peer{
			Node:    n.Name,
			Addr:    n.Addr.String(),
			Service: meta.Service,
			Port:    meta.Port,
		})
	}
	return peers
}

// metadataDelegate provides the service metadata to memberlist.
type metadataDelegate struct {
	meta []byte
}

// NodeMeta returns metadata about this node (up to limit bytes).
func (m *metadataDelegate) NodeMeta(limit int) []byte {
	if len(m.meta) > limit {
		return nil
	}
	return m.meta
}

// NotifyMsg is called when a user message is received (not used).
func (m *metadataDelegate) NotifyMsg([]byte) {}

// GetBroadcasts is called to get broadcasts to send (not used).
func (m *metadataDelegate) GetBroadcasts(overhead, limit int) [][]byte {
	return nil
}

// LocalState returns the local state for synchronization (not used).
func (m *metadataDelegate) LocalState(join bool) []byte {
	return nil
}

// MergeRemoteState merges remote state (not used).
func (m *metadataDelegate) MergeRemoteState(buf []byte, join bool) {}
