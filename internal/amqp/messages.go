package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finwise/internal/core"
)

// EventKind names a ledger mutation.
type EventKind string

const (
	EventTransactionAdded EventKind = "transaction.added"
	EventPaidToggled      EventKind = "transaction.paid_toggled"
)

// TransactionEvent is a lightweight notification about one transaction.
// The worker re-reads the full row from the database, so only the id and
// the resulting paid flag travel on the wire.
type TransactionEvent struct {
	Kind      EventKind `json:"kind"`
	ID        string    `json:"id"`
	Paid      bool      `json:"paid"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Kind:      kind,
		ID:        t.ID,
		Paid:      t.Paid,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case EventTransactionAdded, EventPaidToggled:
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("event without transaction id")
	}
	return &e, nil
}
