package proto

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessageDispatch(t *testing.T) {
	chat, err := EncodeChat(ChatMsg{
		Origin:      "alice",
		Destination: "bob",
		ChatText:    "hi",
		Sequence:    1,
		Timestamp:   1700000000000,
		LastIP:      "127.0.0.1",
		LastPort:    9001,
	})
	require.NoError(t, err)

	got, err := DecodeMessage(chat)
	require.NoError(t, err)
	m, ok := got.(ChatMsg)
	require.True(t, ok, "want ChatMsg, got %T", got)
	assert.Equal(t, "alice", m.Origin)
	assert.Equal(t, uint32(1), m.Sequence)

	rumor, err := EncodeRouteRumor(RouteRumorMsg{Origin: "alice", SeqNo: 7, LastIP: "10.0.0.1", LastPort: 9001})
	require.NoError(t, err)
	got, err = DecodeMessage(rumor)
	require.NoError(t, err)
	r, ok := got.(RouteRumorMsg)
	require.True(t, ok, "want RouteRumorMsg, got %T", got)
	assert.Equal(t, uint32(7), r.SeqNo)
}

func TestDecodeMessageUnknownType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"Type":"gossip_push","Origin":"x"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"message without origin", `{"Type":"message","Destination":"bob","Sequence":1}`},
		{"message without sequence", `{"Type":"message","Origin":"alice","Destination":"bob"}`},
		{"ack without acked origin", `{"Type":"ack","Origin":"bob","AckSequence":3}`},
		{"vector clock without clock", `{"Type":"vector_clock","Origin":"bob"}`},
		{"sync without destination", `{"Type":"sync_message","Origin":"bob","SyncOrigin":"alice","SyncSequence":2}`},
		{"rumor without seqno", `{"Type":"route_rumor","Origin":"alice"}`},
		{"private without dest", `{"Type":"private","Origin":"alice","Sequence":1,"HopLimit":10}`},
		{"discovery without port", `{"Type":"discovery","Origin":"alice"}`},
		{"not json", `GET / HTTP/1.1`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeMessage([]byte(tc.payload))
			assert.Error(t, err)
		})
	}
}

func TestWireFieldNames(t *testing.T) {
	data, err := EncodePrivate(PrivateMsg{Origin: "a", Dest: "d", ChatText: "s", HopLimit: 10, Sequence: 2, LastIP: "127.0.0.1", LastPort: 9003})
	require.NoError(t, err)
	for _, field := range []string{`"Type":"private"`, `"Origin"`, `"Dest"`, `"ChatText"`, `"HopLimit"`, `"Sequence"`, `"LastIP"`, `"LastPort"`} {
		assert.Contains(t, string(data), field)
	}

	data, err = EncodeVectorClock(VectorClockMsg{Origin: "a", VectorClock: map[string]uint32{"b": 3}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"VectorClock":{"b":3}`)
}

func TestEndpoint(t *testing.T) {
	ap, ok := Endpoint("127.0.0.1", 9001)
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddrPort("127.0.0.1:9001"), ap)

	ip, port := SplitEndpoint(ap)
	assert.Equal(t, "127.0.0.1", ip)
	assert.Equal(t, 9001, port)

	for _, tc := range []struct {
		ip   string
		port int
	}{
		{"", 9001},
		{"127.0.0.1", 0},
		{"127.0.0.1", 70000},
		{"not-an-ip", 9001},
	} {
		_, ok := Endpoint(tc.ip, tc.port)
		assert.False(t, ok, "Endpoint(%q,%d)", tc.ip, tc.port)
	}

	ip, port = SplitEndpoint(netip.AddrPort{})
	assert.Equal(t, "", ip)
	assert.Equal(t, 0, port)
}
