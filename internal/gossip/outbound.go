package gossip

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/Arceliar/phony"

	"peerchat/internal/proto"
	"peerchat/internal/store"
)

// SendDirect sends text to the named node under a fresh sequence. The
// message is stored locally and retransmitted until the first ack arrives.
func (n *Node) SendDirect(dest, text string) {
	n.Act(nil, func() { n._sendChat(dest, text) })
}

// Broadcast sends text to every known peer under the broadcast sentinel.
// The outgoing record is stored locally so anti-entropy serves it later.
func (n *Node) Broadcast(text string) {
	n.Act(nil, func() { n._sendChat(proto.BroadcastDest, text) })
}

func (n *Node) _sendChat(dest, text string) {
	n.seq++
	rec := store.Message{
		Origin:      n.cfg.Origin,
		Destination: dest,
		Text:        text,
		Sequence:    n.seq,
		Timestamp:   time.Now(),
	}
	n.msgs.Put(rec)
	n.m.IncStored()

	payload, err := n.chatPayload(rec)
	if dest == proto.BroadcastDest {
		n.broadcastPayload(payload, err)
		return
	}
	n.pending.Add(n.cfg.Origin, rec.Sequence)
	n.sendBestPath(dest, payload, err)
}

// SendPrivate sends text to dest through the routing table, hop-limited and
// unacknowledged. Without a route the datagram falls back to broadcast.
func (n *Node) SendPrivate(dest, text string) {
	n.Act(nil, func() { n._sendPrivate(dest, text) })
}

func (n *Node) _sendPrivate(dest, text string) {
	n.seq++
	ip, port := proto.SplitEndpoint(n.local)
	payload, err := proto.EncodePrivate(proto.PrivateMsg{
		Origin:   n.cfg.Origin,
		Dest:     dest,
		ChatText: text,
		HopLimit: proto.DefaultHopLimit,
		Sequence: n.seq,
		LastIP:   ip,
		LastPort: port,
	})
	if hop, ok := n.routes.NextHop(dest); ok {
		n.sendPayload(payload, err, hop)
	} else {
		n.broadcastPayload(payload, err)
	}
}

// AddPeer sends an unsolicited discovery datagram to addr ("ip:port"). No
// peer entry is inserted until the reply arrives.
func (n *Node) AddPeer(addr string) error {
	var err error
	phony.Block(n, func() { err = n._manualAdd(addr) })
	return err
}

func (n *Node) _manualAdd(addr string) error {
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", addr, err)
	}
	payload, encErr := n.discoveryPayload()
	n.sendPayload(payload, encErr, ap)
	return nil
}

func (n *Node) discoveryPayload() ([]byte, error) {
	ip, port := proto.SplitEndpoint(n.local)
	return proto.EncodeDiscovery(proto.DiscoveryMsg{
		Origin:   n.cfg.Origin,
		Port:     port,
		LastIP:   ip,
		LastPort: port,
	})
}

func (n *Node) chatPayload(rec store.Message) ([]byte, error) {
	ip, port := proto.SplitEndpoint(n.local)
	return proto.EncodeChat(proto.ChatMsg{
		Origin:      rec.Origin,
		Destination: rec.Destination,
		ChatText:    rec.Text,
		Sequence:    rec.Sequence,
		Timestamp:   rec.Timestamp.UnixMilli(),
		LastIP:      ip,
		LastPort:    port,
	})
}
