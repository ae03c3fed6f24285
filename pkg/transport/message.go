package transport

import (
	"encoding/json"

	"github.com/vango-dev/enhance/internal/errors"
)

// Message types.
const (
	TypeHMRUpdate   = "hmr:update"
	TypeStateUpdate = "state:update"
	TypeBatchUpdate = "state:batch-update"
)

// Message is one frame on the socket.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// HMRUpdate announces a changed file.
type HMRUpdate struct {
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
}

// StateUpdate carries one state value.
type StateUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// BatchUpdate carries several state values applied together.
type BatchUpdate struct {
	Updates []StateUpdate `json:"updates"`
}

// Encode builds a frame of the given type.
func Encode(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.New("E062").WithDetail(typ).Wrap(err)
	}
	return json.Marshal(Message{Type: typ, Data: raw})
}

// Decode parses a frame.
func Decode(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, errors.New("E062").Wrap(err)
	}
	if msg.Type == "" {
		return Message{}, errors.New("E062").WithDetail("missing type")
	}
	return msg, nil
}

// Payload decodes the message data into v.
func (m Message) Payload(v any) error {
	if len(m.Data) == 0 {
		return errors.New("E062").WithDetail(m.Type + ": missing data")
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("E062").WithDetail(m.Type).Wrap(err)
	}
	return nil
}
