package proto

import (
	"encoding/json"
	"fmt"
)

// VectorClockMsg carries the sender's per-origin high-water marks.
type VectorClockMsg struct {
	Type        string            `json:"Type"`
	Origin      string            `json:"Origin"`
	VectorClock map[string]uint32 `json:"VectorClock"`
}

// SyncMsg back-fills one archived message during anti-entropy. Origin is the
// pushing node; the Sync* fields describe the archived record.
type SyncMsg struct {
	Type            string `json:"Type"`
	Origin          string `json:"Origin"`
	SyncOrigin      string `json:"SyncOrigin"`
	SyncSequence    uint32 `json:"SyncSequence"`
	SyncDestination string `json:"SyncDestination"`
	SyncText        string `json:"SyncText"`
}

func EncodeVectorClock(m VectorClockMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeVectorClock
	}
	if m.VectorClock == nil {
		m.VectorClock = map[string]uint32{}
	}
	return json.Marshal(m)
}

func DecodeVectorClock(data []byte) (VectorClockMsg, error) {
	var m VectorClockMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return VectorClockMsg{}, err
	}
	if m.Type != MsgTypeVectorClock {
		return VectorClockMsg{}, fmt.Errorf("unexpected msg type: %s", m.Type)
	}
	if m.Origin == "" || m.VectorClock == nil {
		return VectorClockMsg{}, fmt.Errorf("vector_clock missing origin or clock")
	}
	return m, nil
}

func EncodeSync(m SyncMsg) ([]byte, error) {
	if m.Type == "" {
		m.Type = MsgTypeSync
	}
	return json.Marshal(m)
}

func DecodeSync(data []byte) (SyncMsg, error) {
	var m SyncMsg
	if err := json.Unmarshal(data, &m); err != nil {
		return SyncMsg{}, err
	}
	if m.Type != MsgTypeSync {
		return SyncMsg{}, fmt.Errorf("unexpected msg type: %s", m.Type)
	}
	if m.Origin == "" || m.SyncOrigin == "" || m.SyncSequence == 0 || m.SyncDestination == "" {
		return SyncMsg{}, fmt.Errorf("sync_message missing required fields")
	}
	return m, nil
}
