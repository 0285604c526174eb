package gossip

import "net/netip"

// Event is what the node reports to its front end. The stream is best
// effort: when the consumer lags behind the buffer, events are dropped
// rather than stalling the protocol loop.
type Event interface {
	event()
}

// NewMessage fires when a chat message addressed to this node, or a
// broadcast, is first delivered locally.
type NewMessage struct {
	Origin    string
	Text      string
	Broadcast bool
	Private   bool
}

// PeerAdded fires on first contact with an origin.
type PeerAdded struct {
	Origin string
	Addr   netip.AddrPort
}

// PeerExpired fires when the discovery tick evicts a silent peer.
type PeerExpired struct {
	Origin string
}

// RouteUpdated fires when the routing table accepts a better route.
type RouteUpdated struct {
	Dest     string
	NextHop  netip.AddrPort
	SeqNo    uint32
	HopCount int
}

// AddrTranslation fires once per origin when the observed envelope differs
// from the origin's self-reported endpoint.
type AddrTranslation struct {
	Origin   string
	Reported netip.AddrPort
	Public   netip.AddrPort
}

// Retransmitted fires each time an unacknowledged message is re-sent.
type Retransmitted struct {
	Origin   string
	Sequence uint32
}

func (NewMessage) event()      {}
func (PeerAdded) event()       {}
func (PeerExpired) event()     {}
func (RouteUpdated) event()    {}
func (AddrTranslation) event() {}
func (Retransmitted) event()   {}
