package proto

import (
	"encoding/json"
	"fmt"
)

// DefaultHopLimit is the residual forward budget stamped on a fresh private
// message.
const DefaultHopLimit = 10

// RouteRumorMsg announces that Origin is reachable, with a sequence number
// minted by Origin itself. LastIP/LastPort are Origin's self-reported
// endpoint; a rumor is forwarded without rewriting them.
type RouteRumorMsg struct {
	Type     string `json:"Type"`
	Origin   string `json:"Origin"`
	SeqNo    uint32 `json:"SeqNo"`
	LastIP   string `json:"LastIP"`
	LastPort int    `json:"LastPort"`
}

// PrivateMsg is a point-to-point message routed hop by hop. Forwarders
// decrement HopLimit and rewrite LastIP/LastPort to their own endpoint.
type PrivateMsg struct {
	Type     string `json:"Type"`
	Origin   string `json:"Origin"`
	Dest     string `json:"Dest"`
	ChatText string `json:"ChatText"`
	HopLimit int    `json:"HopLimit"`
	Sequence uint32 `json:"Sequence"`
	LastIP   string `json:"LastIP"`
	LastPort int    `json:"LastPort"`
}

func EncodeRouteRumor(m RouteRumorMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeRouteRumor
	}
	return json.Marshal(m)
}

func DecodeRouteRumor(data []byte) (RouteRumorMsg, error) {
	var m RouteRumorMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return RouteRumorMsg{}, err
	}
	if m.Type != MsgTypeRouteRumor {
		return RouteRumorMsg{}, fmt.Errorf("unexpected msg type: %s", m.Type)
	}
	if m.Origin == "" || m.SeqNo == 0 {
		return RouteRumorMsg{}, fmt.Errorf("route_rumor missing origin or sequence")
	}
	return m, nil
}

func EncodePrivate(m PrivateMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypePrivate
	}
	return json.Marshal(m)
}

func DecodePrivate(data []byte) (PrivateMsg, error) {
	var m PrivateMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return PrivateMsg{}, err
	}
	if m.Type != MsgTypePrivate {
		return PrivateMsg{}, fmt.Errorf("unexpected msg type: %s", m.Type)
	}
	if m.Origin == "" || m.Dest == "" || m.Sequence == 0 {
		return PrivateMsg{}, fmt.Errorf("private missing origin, dest or sequence")
	}
	if m.HopLimit < 0 || m.HopLimit > 255 {
		return PrivateMsg{}, fmt.Errorf("private hop limit out of range: %d", m.HopLimit)
	}
	return m, nil
}
