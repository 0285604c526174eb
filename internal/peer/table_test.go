package peer

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA = netip.MustParseAddrPort("127.0.0.1:9001")
	addrB = netip.MustParseAddrPort("127.0.0.1:9002")
)

func TestObserveInsertsOnce(t *testing.T) {
	tbl := NewTable("self", 0)
	now := time.Now()

	require.True(t, tbl.Observe("alice", addrA, now))
	require.False(t, tbl.Observe("alice", addrA, now.Add(time.Second)))
	assert.Equal(t, 1, tbl.Len())

	r, ok := tbl.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, addrA, r.Addr)
	assert.Equal(t, now.Add(time.Second), r.LastSeen)
}

func TestObserveIgnoresSelf(t *testing.T) {
	tbl := NewTable("self", 0)
	assert.False(t, tbl.Observe("self", addrA, time.Now()))
	assert.False(t, tbl.Observe("", addrA, time.Now()))
	assert.Equal(t, 0, tbl.Len())
}

func TestObserveRefreshesByEnvelope(t *testing.T) {
	tbl := NewTable("self", 0)
	t0 := time.Now()
	tbl.Observe("alice", addrA, t0)

	// A datagram from the same endpoint refreshes alice even when the origin
	// differs; the original record's endpoint is what matters.
	t1 := t0.Add(10 * time.Second)
	tbl.Observe("bob", addrA, t1)

	r, _ := tbl.Lookup("alice")
	assert.Equal(t, t1, r.LastSeen)
	// bob was inserted with the same envelope endpoint.
	assert.True(t, tbl.Contains("bob"))
}

func TestExpire(t *testing.T) {
	tbl := NewTable("self", 30*time.Second)
	t0 := time.Now()
	tbl.Observe("alice", addrA, t0)
	tbl.Observe("bob", addrB, t0.Add(20*time.Second))

	evicted := tbl.Expire(t0.Add(31 * time.Second))
	require.Len(t, evicted, 1)
	assert.Equal(t, "alice", evicted[0].Origin)
	assert.False(t, tbl.Contains("alice"))
	assert.True(t, tbl.Contains("bob"))

	assert.Empty(t, tbl.Expire(t0.Add(32*time.Second)))
}

func TestSetPublicOnce(t *testing.T) {
	tbl := NewTable("self", 0)
	pub := netip.MustParseAddrPort("203.0.113.9:4242")

	assert.False(t, tbl.SetPublic("alice", pub), "unknown origin")

	tbl.Observe("alice", addrA, time.Now())
	assert.True(t, tbl.SetPublic("alice", pub))
	assert.False(t, tbl.SetPublic("alice", pub), "second observation is not first")

	r, _ := tbl.Lookup("alice")
	assert.Equal(t, pub, r.Public)
}

func TestSnapshot(t *testing.T) {
	tbl := NewTable("self", 0)
	now := time.Now()
	tbl.Observe("alice", addrA, now)
	tbl.Observe("bob", addrB, now)

	snap := tbl.Snapshot()
	require.Len(t, snap, 2)
	seen := map[string]bool{}
	for _, r := range snap {
		seen[r.Origin] = true
	}
	assert.True(t, seen["alice"] && seen["bob"])
}
