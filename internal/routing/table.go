package routing

import (
	"net/netip"
	"sort"
	"time"
)

// Entry is one route, keyed by destination origin. NextHop is the endpoint
// to forward through. SeqNo is minted by the destination itself and never
// decreases for a given destination. Direct is true when the route was
// learned from a datagram whose origin was the envelope sender; an indirect
// route never displaces a direct one of equal sequence.
type Entry struct {
	Dest      string
	NextHop   netip.AddrPort
	SeqNo     uint32
	HopCount  int
	Direct    bool
	Public    netip.AddrPort
	UpdatedAt time.Time
}

// Table is the sequenced distance-vector routing table. Not safe for
// concurrent use; the gossip node serializes all access.
type Table struct {
	routes map[string]Entry
}

func NewTable() *Table {
	return &Table{routes: make(map[string]Entry)}
}

// Stale reports whether seqNo has already been seen for dest. Stale rumors
// are dropped without forwarding, which bounds rumor fan-out.
func (t *Table) Stale(dest string, seqNo uint32) bool {
	cur, ok := t.routes[dest]
	return ok && seqNo <= cur.SeqNo
}

// Update applies the better-route predicate: the candidate replaces the
// incumbent iff its sequence is strictly greater, or sequences are equal and
// the candidate is direct while the incumbent is not, or directness also
// ties and the candidate has strictly fewer hops. Reports whether the table
// changed. A candidate keeps the incumbent's public endpoint.
func (t *Table) Update(c Entry) bool {
	cur, ok := t.routes[c.Dest]
	if ok && !better(c, cur) {
		return false
	}
	if ok && !c.Public.IsValid() {
		c.Public = cur.Public
	}
	t.routes[c.Dest] = c
	return true
}

func better(c, cur Entry) bool {
	if c.SeqNo != cur.SeqNo {
		return c.SeqNo > cur.SeqNo
	}
	if c.Direct != cur.Direct {
		return c.Direct
	}
	return c.HopCount < cur.HopCount
}

func (t *Table) Lookup(dest string) (Entry, bool) {
	e, ok := t.routes[dest]
	return e, ok
}

// NextHop returns the forwarding endpoint for dest, if any.
func (t *Table) NextHop(dest string) (netip.AddrPort, bool) {
	e, ok := t.routes[dest]
	if !ok {
		return netip.AddrPort{}, false
	}
	return e.NextHop, true
}

// SetPublic records dest's observed public endpoint on its route entry.
func (t *Table) SetPublic(dest string, public netip.AddrPort) {
	if e, ok := t.routes[dest]; ok {
		e.Public = public
		t.routes[dest] = e
	}
}

// RemoveDirect tears down dest's route if it is direct, as happens when the
// matching peer entry expires. Indirect routes survive peer expiry.
func (t *Table) RemoveDirect(dest string) bool {
	e, ok := t.routes[dest]
	if !ok || !e.Direct {
		return false
	}
	delete(t.routes, dest)
	return true
}

// Dests lists the reachable destinations in sorted order.
func (t *Table) Dests() []string {
	out := make([]string, 0, len(t.routes))
	for dest := range t.routes {
		out = append(out, dest)
	}
	sort.Strings(out)
	return out
}

func (t *Table) Snapshot() []Entry {
	out := make([]Entry, 0, len(t.routes))
	for _, e := range t.routes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dest < out[j].Dest })
	return out
}
