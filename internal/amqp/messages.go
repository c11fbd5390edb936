package amqp

import (
	"encoding/json"
	"time"
)

// StateChangedMessage announces that records or settings changed. It carries
// no records; consumers read the current state from storage.
type StateChangedMessage struct {
	Action      string    `json:"action"`
	Revision    uint64    `json:"revision"`
	RecordCount int       `json:"recordCount"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewStateChangedMessage creates a new message stamped with the current time
func NewStateChangedMessage(action string, revision uint64, records int) *StateChangedMessage {
	return &StateChangedMessage{
		Action:      action,
		Revision:    revision,
		RecordCount: records,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StateChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StateChangedMessageFromJSON creates a message from JSON bytes
func StateChangedMessageFromJSON(data []byte) (*StateChangedMessage, error) {
	var msg StateChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
