package amqp

import (
	"encoding/json"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

// BalanceMessage is the wire form of a balance change. It carries the whole
// change so consumers never read the store.
type BalanceMessage struct {
	EventID       string    `json:"event_id"`
	CategoryID    string    `json:"category_id"`
	CategoryName  string    `json:"category_name"`
	OwnerID       string    `json:"owner_id,omitempty"`
	PreviousTotal float64   `json:"previous_total"`
	Total         float64   `json:"total"`
	Limit         *int64    `json:"limit,omitempty"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewBalanceMessage(e *events.BalanceChangedEvent) *BalanceMessage {
	return &BalanceMessage{
		EventID:       e.ID,
		CategoryID:    e.CategoryID,
		CategoryName:  e.CategoryName,
		OwnerID:       e.OwnerID,
		PreviousTotal: e.PreviousTotal,
		Total:         e.Total,
		Limit:         e.Limit,
		Reason:        e.Reason,
		Timestamp:     e.Timestamp,
	}
}

// ToEvent rebuilds the in-process event so consumers can reuse the same
// handlers the server runs.
func (m *BalanceMessage) ToEvent() *events.BalanceChangedEvent {
	e := events.NewBalanceChangedEvent(m.CategoryID, m.CategoryName, m.OwnerID, m.PreviousTotal, m.Total, m.Limit, m.Reason)
	if m.EventID != "" {
		e.ID = m.EventID
	}
	if !m.Timestamp.IsZero() {
		e.Timestamp = m.Timestamp
	}
	return e
}

func (m *BalanceMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BalanceMessageFromJSON(data []byte) (*BalanceMessage, error) {
	var msg BalanceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
