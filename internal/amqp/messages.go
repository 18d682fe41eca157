package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"spender/internal/core"
)

const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
)

// TransactionEvent is published after a transaction is written. It carries
// identifiers only; consumers read the current row from storage.
type TransactionEvent struct {
	Type          string    `json:"type"`
	TransactionID int64     `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	Month         string    `json:"month"` // YYYY-MM of the transaction date
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent builds an event of the given type for t.
func NewTransactionEvent(eventType string, t core.Transaction) TransactionEvent {
	return TransactionEvent{
		Type:          eventType,
		TransactionID: t.ID,
		UserID:        t.UserID,
		Month:         core.Month{Year: t.Date.Year(), Month: t.Date.Month()}.String(),
		Timestamp:     time.Now().UTC(),
	}
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and sanity-checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventTransactionCreated, EventTransactionUpdated:
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.TransactionID <= 0 || ev.UserID <= 0 {
		return nil, fmt.Errorf("event %q missing identifiers", ev.Type)
	}
	return &ev, nil
}
