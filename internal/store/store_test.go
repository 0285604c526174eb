package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(origin string, seq uint32, text string) Message {
	return Message{
		Origin:      origin,
		Destination: "-1",
		Text:        text,
		Sequence:    seq,
		Timestamp:   time.Now(),
	}
}

func TestPutIdempotent(t *testing.T) {
	s := New()
	require.True(t, s.Put(msg("alice", 1, "hi")))
	require.False(t, s.Put(msg("alice", 1, "different text, same key")))

	got, ok := s.Get("alice", 1)
	require.True(t, ok)
	assert.Equal(t, "hi", got.Text, "first insert wins")
}

func TestHasGet(t *testing.T) {
	s := New()
	s.Put(msg("alice", 2, "two"))

	assert.True(t, s.Has("alice", 2))
	assert.False(t, s.Has("alice", 1))
	assert.False(t, s.Has("bob", 2))

	_, ok := s.Get("bob", 1)
	assert.False(t, ok)
}

func TestHighWaterAndSummary(t *testing.T) {
	s := New()
	assert.Equal(t, uint32(0), s.HighWater("alice"))

	s.Put(msg("alice", 1, "a"))
	s.Put(msg("alice", 3, "c")) // gap at 2 until anti-entropy fills it
	s.Put(msg("bob", 2, "b"))

	assert.Equal(t, uint32(3), s.HighWater("alice"))
	assert.Equal(t, uint32(2), s.HighWater("bob"))
	assert.Equal(t, map[string]uint32{"alice": 3, "bob": 2}, s.Summary())
}

func TestAfter(t *testing.T) {
	s := New()
	s.Put(msg("alice", 1, "a"))
	s.Put(msg("alice", 2, "b"))
	s.Put(msg("alice", 3, "c"))

	after := s.After("alice", 1)
	require.Len(t, after, 2)
	assert.Equal(t, uint32(2), after[0].Sequence)
	assert.Equal(t, uint32(3), after[1].Sequence)

	assert.Empty(t, s.After("alice", 3))
	assert.Empty(t, s.After("carol", 0))
}

func TestAcknowledge(t *testing.T) {
	s := New()
	s.Put(msg("alice", 1, "a"))

	s.Acknowledge("alice", 1, "bob")
	s.Acknowledge("alice", 1, "bob") // same acker counted once
	s.Acknowledge("alice", 1, "carol")
	s.Acknowledge("alice", 9, "bob") // unknown record ignored

	assert.Equal(t, 2, s.AckCount("alice", 1))
	assert.Equal(t, 0, s.AckCount("alice", 9))
}

func TestOrigins(t *testing.T) {
	s := New()
	s.Put(msg("carol", 1, "c"))
	s.Put(msg("alice", 1, "a"))
	assert.Equal(t, []string{"alice", "carol"}, s.Origins())
}

func TestPendingAcks(t *testing.T) {
	p := NewPendingAcks()
	p.Add("self", 3)
	p.Add("self", 1)
	p.Add("self", 1)

	assert.Equal(t, []uint32{1, 3}, p.Pending("self"))

	assert.True(t, p.Remove("self", 1))
	assert.False(t, p.Remove("self", 1))
	assert.False(t, p.Remove("other", 5))
	assert.Equal(t, []uint32{3}, p.Pending("self"))

	assert.True(t, p.Remove("self", 3))
	assert.Empty(t, p.Pending("self"))
}
