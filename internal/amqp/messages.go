package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Action tells the consumer what happened to a transaction.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// TransactionEvent is a lightweight change notification. It carries only
// identifiers; consumers load the current row from the database.
type TransactionEvent struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(id, ownerID string, action Action) *TransactionEvent {
	return &TransactionEvent{
		ID:        id,
		OwnerID:   ownerID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event body. Errors mean
// the message can never be processed.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		return nil, errors.New("transaction event: missing id")
	}
	switch e.Action {
	case ActionUpsert, ActionDelete:
	default:
		return nil, fmt.Errorf("transaction event: unknown action %q", e.Action)
	}
	return &e, nil
}
