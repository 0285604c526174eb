package gossip

import (
	"github.com/Arceliar/phony"

	"peerchat/internal/peer"
	"peerchat/internal/routing"
	"peerchat/internal/store"
)

// Synchronous read-only views over the actor-owned tables, for the front
// end and tests. Each call blocks until the loop is idle, so the snapshot
// is consistent.

func (n *Node) PeerList() []peer.Record {
	var out []peer.Record
	phony.Block(n, func() { out = n.peers.Snapshot() })
	return out
}

func (n *Node) RouteList() []routing.Entry {
	var out []routing.Entry
	phony.Block(n, func() { out = n.routes.Snapshot() })
	return out
}

func (n *Node) Route(dest string) (routing.Entry, bool) {
	var (
		e  routing.Entry
		ok bool
	)
	phony.Block(n, func() { e, ok = n.routes.Lookup(dest) })
	return e, ok
}

// Summary is the node's current vector-clock view.
func (n *Node) Summary() map[string]uint32 {
	var out map[string]uint32
	phony.Block(n, func() { out = n.msgs.Summary() })
	return out
}

func (n *Node) HasMessage(origin string, seq uint32) bool {
	var ok bool
	phony.Block(n, func() { ok = n.msgs.Has(origin, seq) })
	return ok
}

// Archive returns origin's stored messages in sequence order.
func (n *Node) Archive(origin string) []store.Message {
	var out []store.Message
	phony.Block(n, func() { out = n.msgs.After(origin, 0) })
	return out
}

// PendingSequences lists the local messages still awaiting their first ack.
func (n *Node) PendingSequences() []uint32 {
	var out []uint32
	phony.Block(n, func() { out = n.pending.Pending(n.cfg.Origin) })
	return out
}
