package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventBalanceCreated = "balance.created"
	EventBalanceDeleted = "balance.deleted"
)

// BalanceEventMessage announces a change to a balance record.
// It carries only identifiers; consumers load the record themselves.
type BalanceEventMessage struct {
	Type      string    `json:"type"`
	BalanceID int64     `json:"balance_id"`
	Date      string    `json:"date"` // YYYY-MM-DD of the record
	Timestamp time.Time `json:"timestamp"`
}

// NewBalanceEventMessage creates a message stamped with the current time
func NewBalanceEventMessage(eventType string, id int64, date string) *BalanceEventMessage {
	return &BalanceEventMessage{
		Type:      eventType,
		BalanceID: id,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (m *BalanceEventMessage) Validate() error {
	switch m.Type {
	case EventBalanceCreated, EventBalanceDeleted:
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.BalanceID <= 0 {
		return fmt.Errorf("invalid balance id %d", m.BalanceID)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *BalanceEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BalanceEventMessageFromJSON decodes and validates a message
func BalanceEventMessageFromJSON(data []byte) (*BalanceEventMessage, error) {
	var msg BalanceEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
