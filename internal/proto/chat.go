package proto

import (
	"encoding/json"
	"fmt"
)

// ChatMsg is a user message. Destination "-1" marks a broadcast. Timestamp
// is milliseconds since the Unix epoch at creation on the origin.
type ChatMsg struct {
	Type        string `json:"Type"`
	Origin      string `json:"Origin"`
	Destination string `json:"Destination"`
	ChatText    string `json:"ChatText"`
	Sequence    uint32 `json:"Sequence"`
	Timestamp   int64  `json:"Timestamp"`
	LastIP      string `json:"LastIP"`
	LastPort    int    `json:"LastPort"`
}

type AckMsg struct {
	Type        string `json:"Type"`
	Origin      string `json:"Origin"`
	AckOrigin   string `json:"AckOrigin"`
	AckSequence uint32 `json:"AckSequence"`
}

func EncodeChat(m ChatMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeChat
	}
	return json.Marshal(m)
}

func DecodeChat(data []byte) (ChatMsg, error) {
	var m ChatMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return ChatMsg{}, err
	}
	if m.Type != MsgTypeChat {
		return ChatMsg{}, fmt.Errorf("unexpected msg type: %s", m.Type)
	}
	if m.Origin == "" || m.Destination == "" || m.Sequence == 0 {
		return ChatMsg{}, fmt.Errorf("message missing origin, destination or sequence")
	}
	return m, nil
}

func EncodeAck(m AckMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeAck
	}
	return json.Marshal(m)
}

func DecodeAck(data []byte) (AckMsg, error) {
	var m AckMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return AckMsg{}, err
	}
	if m.Type != MsgTypeAck {
		return AckMsg{}, fmt.Errorf("unexpected msg type: %s", m.Type)
	}
	if m.Origin == "" || m.AckOrigin == "" || m.AckSequence == 0 {
		return AckMsg{}, fmt.Errorf("ack missing origin or sequence")
	}
	return m, nil
}
