package gossip

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/netip"
	"time"

	"github.com/Arceliar/phony"

	"peerchat/internal/logging"
	"peerchat/internal/metrics"
	"peerchat/internal/peer"
	"peerchat/internal/proto"
	"peerchat/internal/routing"
	"peerchat/internal/store"
)

// Node is one overlay participant: a UDP endpoint, the peer/message/routing
// tables, and the timers that drive protocol traffic. All mutable state is
// owned by the embedded actor; the socket reader and every timer funnel
// their work through Act, so no handler ever races another.
type Node struct {
	phony.Inbox

	cfg Config
	log logging.Logger
	m   *metrics.Metrics

	conn  *net.UDPConn
	local netip.AddrPort // advertised endpoint, written into LastIP/LastPort

	peers   *peer.Table
	msgs    *store.Store
	pending *store.PendingAcks
	routes  *routing.Table

	seq      uint32 // last allocated chat sequence
	routeSeq uint32 // last emitted own-route sequence

	rng    *rand.Rand
	events chan Event

	discoveryTimer   *time.Timer
	antiEntropyTimer *time.Timer
	retransmitTimer  *time.Timer
	routeRumorTimer  *time.Timer
	closed           bool
}

// New binds the UDP socket and initializes the tables. The node is inert
// until Start.
func New(cfg Config) (*Node, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: cfg.ListenPort})
	if err != nil {
		return nil, fmt.Errorf("bind udp port %d: %w", cfg.ListenPort, err)
	}
	advertise, parseErr := netip.ParseAddr(cfg.AdvertiseIP)
	if parseErr != nil {
		conn.Close()
		return nil, fmt.Errorf("advertise ip %q: %w", cfg.AdvertiseIP, parseErr)
	}
	boundPort := uint16(conn.LocalAddr().(*net.UDPAddr).Port)

	n := &Node{
		cfg:     cfg,
		log:     cfg.Logger.With("origin", cfg.Origin),
		m:       cfg.Metrics,
		conn:    conn,
		local:   netip.AddrPortFrom(advertise.Unmap(), boundPort),
		peers:   peer.NewTable(cfg.Origin, cfg.PeerTimeout),
		msgs:    store.New(),
		pending: store.NewPendingAcks(),
		routes:  routing.NewTable(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		events:  make(chan Event, cfg.EventBuffer),
	}
	return n, nil
}

// Start launches the socket reader, primes the bootstrap endpoints, and
// arms the periodic timers.
func (n *Node) Start() error {
	var bootErr error
	phony.Block(n, func() {
		for _, ep := range n.cfg.Bootstrap {
			if err := n._manualAdd(ep); err != nil {
				bootErr = err
				return
			}
		}
	})
	if bootErr != nil {
		return bootErr
	}
	go n.readLoop()
	n.Act(nil, func() {
		n._discoveryTick()
		n._antiEntropyTick()
		n._retransmitTick()
		n._routeRumorTick()
	})
	return nil
}

// Close stops the timers and the socket. Events already queued stay
// readable; the channel is not closed.
func (n *Node) Close() {
	phony.Block(n, func() {
		if n.closed {
			return
		}
		n.closed = true
		for _, t := range []*time.Timer{n.discoveryTimer, n.antiEntropyTimer, n.retransmitTimer, n.routeRumorTimer} {
			if t != nil {
				t.Stop()
			}
		}
	})
	n.conn.Close()
}

// Events is the stream consumed by the front end.
func (n *Node) Events() <-chan Event {
	return n.events
}

func (n *Node) Origin() string {
	return n.cfg.Origin
}

// LocalAddr is the advertised endpoint: the configured advertise IP with
// the actually bound port.
func (n *Node) LocalAddr() netip.AddrPort {
	return n.local
}

func (n *Node) readLoop() {
	buf := make([]byte, 65535)
	for {
		nr, raddr, err := n.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			return // socket closed
		}
		dgram := make([]byte, nr)
		copy(dgram, buf[:nr])
		from := netip.AddrPortFrom(raddr.Addr().Unmap(), raddr.Port())
		n.Act(nil, func() {
			n.handleDatagram(dgram, from)
		})
	}
}

// emit hands an event to the front end without ever blocking the loop.
func (n *Node) emit(ev Event) {
	select {
	case n.events <- ev:
	default:
		n.log.Debug(context.Background(), "event dropped, consumer lagging", "event", fmt.Sprintf("%T", ev))
	}
}

// sendPayload frames and transmits one already-encoded message payload.
// Send failures are logged and dropped; UDP gives no delivery promise the
// protocol would miss.
func (n *Node) sendPayload(payload []byte, encErr error, to netip.AddrPort) {
	if encErr != nil {
		n.log.Error(context.Background(), "encode failed", "err", encErr)
		return
	}
	frame, err := proto.EncodeFrame(payload)
	if err != nil {
		n.log.Error(context.Background(), "frame failed", "err", err)
		return
	}
	if _, err := n.conn.WriteToUDPAddrPort(frame, to); err != nil {
		n.m.IncSendErrors()
		n.log.Warn(context.Background(), "send failed", "to", to, "err", err)
		return
	}
	n.m.IncFramesOut()
}

// broadcastPayload sends one payload to every known peer.
func (n *Node) broadcastPayload(payload []byte, encErr error) {
	for _, p := range n.peers.Snapshot() {
		n.sendPayload(payload, encErr, p.Addr)
	}
}

// sendBestPath delivers to dest via routing table, then direct peer entry,
// then broadcast.
func (n *Node) sendBestPath(dest string, payload []byte, encErr error) {
	if hop, ok := n.routes.NextHop(dest); ok {
		n.sendPayload(payload, encErr, hop)
		return
	}
	if r, ok := n.peers.Lookup(dest); ok {
		n.sendPayload(payload, encErr, r.Addr)
		return
	}
	n.broadcastPayload(payload, encErr)
}

// randomPeerExcept picks one peer uniformly at random whose endpoint is not
// `except`. ok is false when no such peer exists.
func (n *Node) randomPeerExcept(except netip.AddrPort) (peer.Record, bool) {
	var candidates []peer.Record
	for _, p := range n.peers.Snapshot() {
		if p.Addr != except {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return peer.Record{}, false
	}
	return candidates[n.rng.Intn(len(candidates))], true
}

// rearm schedules f back into the actor after d, the only way periodic work
// may touch node state.
func (n *Node) rearm(d time.Duration, f func()) *time.Timer {
	return time.AfterFunc(d, func() {
		n.Act(nil, func() {
			if !n.closed {
				f()
			}
		})
	})
}
