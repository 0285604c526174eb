package gossip

import (
	"context"
	"net/netip"
	"time"

	"peerchat/internal/proto"
)

// _discoveryTick scans the bootstrap port range and evicts silent peers.
func (n *Node) _discoveryTick() {
	n._scanPorts()
	n._expirePeers()
	n.discoveryTimer = n.rearm(n.cfg.DiscoveryInterval, n._discoveryTick)
}

func (n *Node) _scanPorts() {
	if n.cfg.MaxPorts <= 0 {
		return
	}
	payload, err := n.discoveryPayload()
	loopback := netip.AddrFrom4([4]byte{127, 0, 0, 1})
	for port := n.cfg.BasePort; port < n.cfg.BasePort+n.cfg.MaxPorts; port++ {
		if port == int(n.local.Port()) {
			continue
		}
		n.sendPayload(payload, err, netip.AddrPortFrom(loopback, uint16(port)))
	}
}

func (n *Node) _expirePeers() {
	for _, r := range n.peers.Expire(time.Now()) {
		n.routes.RemoveDirect(r.Origin)
		n.m.IncPeersExpired()
		n.emit(PeerExpired{Origin: r.Origin})
		n.log.Info(context.Background(), "peer timed out", "peer", r.Origin, "addr", r.Addr)
	}
}

// _antiEntropyTick sends the local summary to every peer. The receiving
// side pushes back whatever this node is missing.
func (n *Node) _antiEntropyTick() {
	payload, err := proto.EncodeVectorClock(proto.VectorClockMsg{
		Origin:      n.cfg.Origin,
		VectorClock: n.msgs.Summary(),
	})
	n.broadcastPayload(payload, err)
	n.antiEntropyTimer = n.rearm(n.cfg.AntiEntropyInterval, n._antiEntropyTick)
}

// _retransmitTick re-sends every pending message older than the interval.
// There is no retry cap; the pending set shrinks only through acks.
func (n *Node) _retransmitTick() {
	now := time.Now()
	for _, seq := range n.pending.Pending(n.cfg.Origin) {
		rec, ok := n.msgs.Get(n.cfg.Origin, seq)
		if !ok {
			continue
		}
		if now.Sub(rec.Timestamp) <= n.cfg.RetransmissionInterval {
			continue
		}
		payload, err := n.chatPayload(rec)
		if rec.Destination == proto.BroadcastDest {
			n.broadcastPayload(payload, err)
		} else {
			n.sendBestPath(rec.Destination, payload, err)
		}
		n.m.IncRetransmissions()
		n.emit(Retransmitted{Origin: n.cfg.Origin, Sequence: seq})
		n.log.Debug(context.Background(), "retransmitting", "seq", seq, "dest", rec.Destination)
	}
	n.retransmitTimer = n.rearm(n.cfg.RetransmissionInterval, n._retransmitTick)
}

// _routeRumorTick announces this node's reachability to one random
// neighbor under a fresh own-route sequence.
func (n *Node) _routeRumorTick() {
	n.routeSeq++
	ip, port := proto.SplitEndpoint(n.local)
	payload, err := proto.EncodeRouteRumor(proto.RouteRumorMsg{
		Origin:   n.cfg.Origin,
		SeqNo:    n.routeSeq,
		LastIP:   ip,
		LastPort: port,
	})
	if p, ok := n.randomPeerExcept(netip.AddrPort{}); ok {
		n.sendPayload(payload, err, p.Addr)
	}
	n.routeRumorTimer = n.rearm(n.cfg.RouteRumorInterval, n._routeRumorTick)
}
