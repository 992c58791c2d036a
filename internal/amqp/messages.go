package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReconcileMessage wakes the reconcile worker for one locally created
// entity. It carries only the local ID and kind; the worker reads the full
// payload from the fallback store.
type ReconcileMessage struct {
	LocalID   string    `json:"local_id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReconcileMessage creates a reconcile message for a pending entity.
func NewReconcileMessage(localID, kind string) *ReconcileMessage {
	return &ReconcileMessage{
		LocalID:   localID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReconcileMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReconcileMessageFromJSON creates a message from JSON bytes
func ReconcileMessageFromJSON(data []byte) (*ReconcileMessage, error) {
	var msg ReconcileMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.LocalID == "" {
		return nil, fmt.Errorf("reconcile message missing local_id")
	}
	return &msg, nil
}
