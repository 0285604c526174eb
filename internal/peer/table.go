package peer

import (
	"net/netip"
	"time"
)

// DefaultTimeout is how long a peer may stay silent before the discovery
// tick evicts it.
const DefaultTimeout = 30 * time.Second

// Record is one known peer. Addr is the endpoint observed on the datagram
// envelope; Public is set only when an address translator was detected
// between us and the peer.
type Record struct {
	Origin   string
	Addr     netip.AddrPort
	LastSeen time.Time
	Public   netip.AddrPort
}

// Table tracks known peers by origin. It is not safe for concurrent use;
// the gossip node serializes all access through its event loop.
type Table struct {
	self    string
	timeout time.Duration
	peers   map[string]Record
}

func NewTable(self string, timeout time.Duration) *Table {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Table{
		self:    self,
		timeout: timeout,
		peers:   make(map[string]Record),
	}
}

// Observe records an inbound datagram from origin with envelope addr. Every
// record whose endpoint matches the envelope is refreshed; an unknown
// non-self origin is inserted. Reports whether this was first contact.
func (t *Table) Observe(origin string, addr netip.AddrPort, now time.Time) bool {
	if origin == "" || origin == t.self {
		return false
	}
	for o, r := range t.peers {
		if r.Addr == addr {
			r.LastSeen = now
			t.peers[o] = r
		}
	}
	if _, ok := t.peers[origin]; ok {
		return false
	}
	t.peers[origin] = Record{Origin: origin, Addr: addr, LastSeen: now}
	return true
}

// SetPublic stores the observed public endpoint for origin. Reports whether
// this is the first observation, so the caller can log it once.
func (t *Table) SetPublic(origin string, public netip.AddrPort) bool {
	r, ok := t.peers[origin]
	if !ok {
		return false
	}
	first := !r.Public.IsValid()
	r.Public = public
	t.peers[origin] = r
	return first
}

func (t *Table) Lookup(origin string) (Record, bool) {
	r, ok := t.peers[origin]
	return r, ok
}

func (t *Table) Contains(origin string) bool {
	_, ok := t.peers[origin]
	return ok
}

func (t *Table) Len() int {
	return len(t.peers)
}

// Snapshot returns all current peers, for broadcast and anti-entropy fan-out.
func (t *Table) Snapshot() []Record {
	out := make([]Record, 0, len(t.peers))
	for _, r := range t.peers {
		out = append(out, r)
	}
	return out
}

// Expire removes every peer not seen within the timeout and returns the
// evicted records so the caller can tear down their direct routes.
func (t *Table) Expire(now time.Time) []Record {
	var evicted []Record
	for o, r := range t.peers {
		if now.Sub(r.LastSeen) > t.timeout {
			evicted = append(evicted, r)
			delete(t.peers, o)
		}
	}
	return evicted
}
