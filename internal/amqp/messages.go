package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Ledger event operations carried on the wire.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// LedgerEventMessage signals that the ledger changed. It is
// intentionally light: the worker reads the authoritative snapshot from
// storage rather than trusting event payloads.
type LedgerEventMessage struct {
	Op            string    `json:"op"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Count         int       `json:"count"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event for the given operation.
func NewLedgerEventMessage(op, transactionID string, count int) *LedgerEventMessage {
	return &LedgerEventMessage{
		Op:            op,
		TransactionID: transactionID,
		Count:         count,
		Timestamp:     time.Now(),
	}
}

// Validate checks the operation field.
func (m *LedgerEventMessage) Validate() error {
	switch m.Op {
	case OpAdd, OpRemove, OpReplace:
		return nil
	default:
		return fmt.Errorf("unknown ledger event op %q", m.Op)
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
