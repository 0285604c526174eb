package gossip

import (
	"fmt"
	"time"

	"peerchat/internal/logging"
	"peerchat/internal/metrics"
	"peerchat/internal/peer"
)

const (
	DefaultDiscoveryInterval      = 5 * time.Second
	DefaultAntiEntropyInterval    = 3 * time.Second
	DefaultRetransmissionInterval = 2 * time.Second
	DefaultRouteRumorInterval     = 60 * time.Second

	// DefaultBasePort..DefaultBasePort+DefaultMaxPorts is the local port
	// range scanned by the discovery tick, the only hardcoded topology.
	DefaultBasePort = 9000
	DefaultMaxPorts = 10

	DefaultAdvertiseIP = "127.0.0.1"
	DefaultEventBuffer = 128
)

// Config carries the startup inputs for a node. Zero values take the
// defaults above; MaxPorts < 0 disables the local port scan entirely.
type Config struct {
	// Origin is the node identity, assumed unique across the overlay.
	Origin string

	// ListenPort is the UDP bind port. 0 lets the kernel pick, which is
	// only useful in tests.
	ListenPort int

	// AdvertiseIP is the address written into LastIP on outbound datagrams.
	AdvertiseIP string

	// Bootstrap endpoints get an unsolicited discovery datagram at startup.
	Bootstrap []string

	// NoForward makes the node a terminal point: private traffic addressed
	// elsewhere is dropped instead of forwarded.
	NoForward bool

	DiscoveryInterval      time.Duration
	AntiEntropyInterval    time.Duration
	RetransmissionInterval time.Duration
	RouteRumorInterval     time.Duration
	PeerTimeout            time.Duration

	BasePort int
	MaxPorts int

	EventBuffer int

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

func (c *Config) withDefaults() (Config, error) {
	out := *c
	if out.Origin == "" {
		return Config{}, fmt.Errorf("origin must not be empty")
	}
	if out.ListenPort < 0 || out.ListenPort > 65535 {
		return Config{}, fmt.Errorf("listen port %d out of range", out.ListenPort)
	}
	if out.AdvertiseIP == "" {
		out.AdvertiseIP = DefaultAdvertiseIP
	}
	if out.DiscoveryInterval <= 0 {
		out.DiscoveryInterval = DefaultDiscoveryInterval
	}
	if out.AntiEntropyInterval <= 0 {
		out.AntiEntropyInterval = DefaultAntiEntropyInterval
	}
	if out.RetransmissionInterval <= 0 {
		out.RetransmissionInterval = DefaultRetransmissionInterval
	}
	if out.RouteRumorInterval <= 0 {
		out.RouteRumorInterval = DefaultRouteRumorInterval
	}
	if out.PeerTimeout <= 0 {
		out.PeerTimeout = peer.DefaultTimeout
	}
	if out.BasePort == 0 {
		out.BasePort = DefaultBasePort
	}
	if out.MaxPorts == 0 {
		out.MaxPorts = DefaultMaxPorts
	}
	if out.EventBuffer <= 0 {
		out.EventBuffer = DefaultEventBuffer
	}
	if out.Logger == nil {
		out.Logger = logging.Nop{}
	}
	return out, nil
}
