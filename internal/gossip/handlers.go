package gossip

import (
	"context"
	"net/netip"
	"time"

	"peerchat/internal/proto"
	"peerchat/internal/routing"
	"peerchat/internal/store"
)

// handleDatagram decodes and dispatches one inbound datagram. Malformed and
// unknown traffic is dropped silently, counted but never answered.
func (n *Node) handleDatagram(dgram []byte, from netip.AddrPort) {
	ctx := context.Background()
	n.m.IncFramesIn()

	payload, err := proto.DecodeFrame(dgram)
	if err != nil {
		n.m.IncDecodeDrops()
		n.log.Debug(ctx, "dropped frame", "from", from, "err", err)
		return
	}
	msg, err := proto.DecodeMessage(payload)
	if err != nil {
		n.m.IncDecodeDrops()
		n.log.Debug(ctx, "dropped payload", "from", from, "err", err)
		return
	}

	switch m := msg.(type) {
	case proto.DiscoveryMsg:
		n.m.IncRecvByType(proto.MsgTypeDiscovery)
		n.observePeer(m.Origin, from)
		n.observeEndpoint(m.Origin, m.LastIP, m.LastPort, from)
		n.handleDiscovery(m, from)
	case proto.DiscoveryRespMsg:
		n.m.IncRecvByType(proto.MsgTypeDiscoveryResp)
		n.observePeer(m.Origin, from)
		n.observeEndpoint(m.Origin, m.LastIP, m.LastPort, from)
	case proto.ChatMsg:
		n.m.IncRecvByType(proto.MsgTypeChat)
		n.observePeer(m.Origin, from)
		n.handleChat(m, from)
	case proto.AckMsg:
		n.m.IncRecvByType(proto.MsgTypeAck)
		n.observePeer(m.Origin, from)
		n.handleAck(m)
	case proto.VectorClockMsg:
		n.m.IncRecvByType(proto.MsgTypeVectorClock)
		n.observePeer(m.Origin, from)
		n.handleVectorClock(m, from)
	case proto.SyncMsg:
		n.m.IncRecvByType(proto.MsgTypeSync)
		n.observePeer(m.Origin, from)
		n.handleSync(m)
	case proto.RouteRumorMsg:
		n.m.IncRecvByType(proto.MsgTypeRouteRumor)
		n.observePeer(m.Origin, from)
		n.handleRouteRumor(m, from)
	case proto.PrivateMsg:
		n.m.IncRecvByType(proto.MsgTypePrivate)
		n.observePeer(m.Origin, from)
		n.handlePrivate(m, from)
	}
}

// observePeer refreshes the peer table from the envelope. First contact
// also installs a hop-1 direct route so unicast works before any rumor.
func (n *Node) observePeer(origin string, from netip.AddrPort) {
	now := time.Now()
	if !n.peers.Observe(origin, from, now) {
		return
	}
	n.emit(PeerAdded{Origin: origin, Addr: from})
	n.log.Info(context.Background(), "peer added", "peer", origin, "addr", from)
	n.updateRoute(routing.Entry{
		Dest:      origin,
		NextHop:   from,
		HopCount:  1,
		Direct:    true,
		UpdatedAt: now,
	})
}

// updateRoute feeds a candidate through the better-route predicate and
// reports accepted changes to the front end.
func (n *Node) updateRoute(e routing.Entry) {
	if !n.routes.Update(e) {
		return
	}
	n.emit(RouteUpdated{Dest: e.Dest, NextHop: e.NextHop, SeqNo: e.SeqNo, HopCount: e.HopCount})
	n.log.Debug(context.Background(), "route updated", "dest", e.Dest, "next_hop", e.NextHop, "seq", e.SeqNo)
}

// classifyEndpoint compares an origin's self-reported endpoint against the
// datagram envelope. direct means they agree, so the datagram came straight
// from its origin. translated means some address translator rewrote the
// envelope; loopback and unspecified addresses never count as translation.
func classifyEndpoint(reported, envelope netip.AddrPort) (direct, translated bool) {
	if !reported.IsValid() {
		return false, false
	}
	if reported == envelope {
		return true, false
	}
	if isLocalOnly(reported.Addr()) || isLocalOnly(envelope.Addr()) {
		return false, false
	}
	return false, true
}

func isLocalOnly(a netip.Addr) bool {
	return a.IsLoopback() || a.IsUnspecified()
}

// observeEndpoint applies classifyEndpoint to an inbound datagram and
// records a detected public endpoint on the peer and route tables. The
// observation is logged once per origin; nothing is ever substituted for
// the envelope when sending.
func (n *Node) observeEndpoint(origin, lastIP string, lastPort int, from netip.AddrPort) (direct bool) {
	reported, _ := proto.Endpoint(lastIP, lastPort)
	direct, translated := classifyEndpoint(reported, from)
	if translated {
		n.routes.SetPublic(origin, from)
		if n.peers.SetPublic(origin, from) {
			n.emit(AddrTranslation{Origin: origin, Reported: reported, Public: from})
			n.log.Info(context.Background(), "address translation observed", "peer", origin, "reported", reported, "public", from)
		}
	}
	return direct
}

func (n *Node) handleDiscovery(_ proto.DiscoveryMsg, from netip.AddrPort) {
	ip, port := proto.SplitEndpoint(n.local)
	payload, err := proto.EncodeDiscoveryResp(proto.DiscoveryRespMsg{
		Origin:   n.cfg.Origin,
		Port:     port,
		LastIP:   ip,
		LastPort: port,
	})
	n.sendPayload(payload, err, from)
}

func (n *Node) handleChat(m proto.ChatMsg, from netip.AddrPort) {
	direct := n.observeEndpoint(m.Origin, m.LastIP, m.LastPort, from)

	// A user message doubles as a route announcement for its origin.
	n.updateRoute(routing.Entry{
		Dest:      m.Origin,
		NextHop:   from,
		SeqNo:     m.Sequence,
		HopCount:  1,
		Direct:    direct,
		UpdatedAt: time.Now(),
	})

	if n.msgs.Has(m.Origin, m.Sequence) {
		n.m.IncDuplicates()
		return
	}
	n.msgs.Put(store.Message{
		Origin:      m.Origin,
		Destination: m.Destination,
		Text:        m.ChatText,
		Sequence:    m.Sequence,
		Timestamp:   time.Now(),
	})
	n.m.IncStored()

	// First receipt is acked to the envelope sender; duplicates are not.
	ack, err := proto.EncodeAck(proto.AckMsg{
		Origin:      n.cfg.Origin,
		AckOrigin:   m.Origin,
		AckSequence: m.Sequence,
	})
	n.sendPayload(ack, err, from)

	if m.Destination == n.cfg.Origin || m.Destination == proto.BroadcastDest {
		n.emit(NewMessage{
			Origin:    m.Origin,
			Text:      m.ChatText,
			Broadcast: m.Destination == proto.BroadcastDest,
		})
	}
}

func (n *Node) handleAck(m proto.AckMsg) {
	if m.AckOrigin == n.cfg.Origin && n.pending.Remove(m.AckOrigin, m.AckSequence) {
		n.log.Debug(context.Background(), "ack cleared", "seq", m.AckSequence, "by", m.Origin)
	}
	n.msgs.Acknowledge(m.AckOrigin, m.AckSequence, m.Origin)
}

// handleVectorClock pushes every record the sender is missing. Convergence
// is bidirectional only because both sides tick independently.
func (n *Node) handleVectorClock(m proto.VectorClockMsg, from netip.AddrPort) {
	for _, origin := range n.msgs.Origins() {
		for _, rec := range n.msgs.After(origin, m.VectorClock[origin]) {
			payload, err := proto.EncodeSync(proto.SyncMsg{
				Origin:          n.cfg.Origin,
				SyncOrigin:      rec.Origin,
				SyncSequence:    rec.Sequence,
				SyncDestination: rec.Destination,
				SyncText:        rec.Text,
			})
			n.sendPayload(payload, err, from)
			n.m.IncSyncsSent()
		}
	}
}

func (n *Node) handleSync(m proto.SyncMsg) {
	if n.msgs.Has(m.SyncOrigin, m.SyncSequence) {
		n.m.IncDuplicates()
		return
	}
	n.msgs.Put(store.Message{
		Origin:      m.SyncOrigin,
		Destination: m.SyncDestination,
		Text:        m.SyncText,
		Sequence:    m.SyncSequence,
		Timestamp:   time.Now(),
	})
	n.m.IncStored()
	n.m.IncSyncsApplied()
	n.log.Debug(context.Background(), "synced", "origin", m.SyncOrigin, "seq", m.SyncSequence)

	if m.SyncDestination == n.cfg.Origin || m.SyncDestination == proto.BroadcastDest {
		n.emit(NewMessage{
			Origin:    m.SyncOrigin,
			Text:      m.SyncText,
			Broadcast: m.SyncDestination == proto.BroadcastDest,
		})
	}
}

func (n *Node) handleRouteRumor(m proto.RouteRumorMsg, from netip.AddrPort) {
	if m.Origin == n.cfg.Origin {
		return
	}
	if n.routes.Stale(m.Origin, m.SeqNo) {
		n.m.IncStaleRumors()
		return
	}
	direct := n.observeEndpoint(m.Origin, m.LastIP, m.LastPort, from)
	n.updateRoute(routing.Entry{
		Dest:      m.Origin,
		NextHop:   from,
		SeqNo:     m.SeqNo,
		HopCount:  1,
		Direct:    direct,
		UpdatedAt: time.Now(),
	})

	// Rumor-mongering: one uniformly random peer other than the envelope
	// sender gets an unchanged copy. Nodes that saw the sequence drop it at
	// the staleness check, which bounds the fan-out.
	if p, ok := n.randomPeerExcept(from); ok {
		payload, err := proto.EncodeRouteRumor(m)
		n.sendPayload(payload, err, p.Addr)
		n.m.IncRumorsRelayed()
	}
}

func (n *Node) handlePrivate(m proto.PrivateMsg, from netip.AddrPort) {
	n.observeEndpoint(m.Origin, m.LastIP, m.LastPort, from)

	if m.Dest == n.cfg.Origin {
		n.emit(NewMessage{Origin: m.Origin, Text: m.ChatText, Private: true})
		return
	}
	if n.cfg.NoForward {
		n.m.IncPrivatesDropped()
		n.log.Debug(context.Background(), "private dropped, forwarding disabled", "dest", m.Dest)
		return
	}
	m.HopLimit--
	if m.HopLimit <= 0 {
		n.m.IncPrivatesDropped()
		n.log.Debug(context.Background(), "private dropped, hop limit exhausted", "dest", m.Dest)
		return
	}
	m.LastIP, m.LastPort = proto.SplitEndpoint(n.local)
	payload, err := proto.EncodePrivate(m)
	if hop, ok := n.routes.NextHop(m.Dest); ok {
		n.sendPayload(payload, err, hop)
	} else {
		n.broadcastPayload(payload, err)
	}
	n.m.IncPrivatesForwarded()
}
