package proto

import (
	"encoding/json"
	"fmt"
)

type DiscoveryMsg struct {
	Type     string `json:"Type"`
	Origin   string `json:"Origin"`
	Port     int    `json:"Port"`
	LastIP   string `json:"LastIP"`
	LastPort int    `json:"LastPort"`
}

type DiscoveryRespMsg struct {
	Type     string `json:"Type"`
	Origin   string `json:"Origin"`
	Port     int    `json:"Port"`
	LastIP   string `json:"LastIP"`
	LastPort int    `json:"LastPort"`
}

func EncodeDiscovery(m DiscoveryMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeDiscovery
	}
	return json.Marshal(m)
}

func DecodeDiscovery(data []byte) (DiscoveryMsg, error) {
	var m DiscoveryMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return DiscoveryMsg{}, err
	}
	if m.Type != MsgTypeDiscovery {
		return DiscoveryMsg{}, fmt.Errorf("unexpected msg type: %s", m.Type)
	}
	if m.Origin == "" || m.Port <= 0 || m.Port > 65535 {
		return DiscoveryMsg{}, fmt.Errorf("discovery missing origin or port")
	}
	return m, nil
}

func EncodeDiscoveryResp(m DiscoveryRespMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeDiscoveryResp
	}
	return json.Marshal(m)
}

func DecodeDiscoveryResp(data []byte) (DiscoveryRespMsg, error) {
	var m DiscoveryRespMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return DiscoveryRespMsg{}, err
	}
	if m.Type != MsgTypeDiscoveryResp {
		return DiscoveryRespMsg{}, fmt.Errorf("unexpected msg type: %s", m.Type)
	}
	if m.Origin == "" || m.Port <= 0 || m.Port > 65535 {
		return DiscoveryRespMsg{}, fmt.Errorf("discovery_response missing origin or port")
	}
	return m, nil
}
