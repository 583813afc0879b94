package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"milkledger/internal/core"
)

// LedgerChangeMessage announces a persisted ledger mutation. It carries no
// record data; consumers read the ledger itself.
type LedgerChangeMessage struct {
	Slot      string        `json:"slot"`
	Op        core.ChangeOp `json:"op"`
	Index     int           `json:"index"`
	Count     int           `json:"count"`
	Version   string        `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewLedgerChangeMessage(slot string, c core.Change) *LedgerChangeMessage {
	ts := c.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerChangeMessage{
		Slot:      slot,
		Op:        c.Op,
		Index:     c.Index,
		Count:     c.Count,
		Version:   c.Version,
		Timestamp: ts,
	}
}

// Change converts the message back to the domain event.
func (m *LedgerChangeMessage) Change() core.Change {
	return core.Change{
		Op:        m.Op,
		Index:     m.Index,
		Count:     m.Count,
		Version:   m.Version,
		Timestamp: m.Timestamp,
	}
}

func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Op {
	case core.OpCreate, core.OpUpdate, core.OpDelete:
	default:
		return nil, fmt.Errorf("unknown ledger op %q", msg.Op)
	}
	return &msg, nil
}
