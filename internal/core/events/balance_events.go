package events

import (
	"time"

	"github.com/google/uuid"
)

const EventTypeBalanceChanged = "balance.changed"

const (
	ReasonCategoryCreated  = "category_created"
	ReasonExpenseCreated   = "expense_created"
	ReasonExpenseUpdated   = "expense_updated"
	ReasonExpenseDeleted   = "expense_deleted"
	ReasonTotalOverwritten = "total_overwritten"
)

type BalanceChangedEvent struct {
	BaseEvent
	CategoryID    string  `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	OwnerID       string  `json:"owner_id,omitempty"`
	PreviousTotal float64 `json:"previous_total"`
	Total         float64 `json:"total"`
	Limit         *int64  `json:"limit,omitempty"`
	Reason        string  `json:"reason"`
}

func NewBalanceChangedEvent(categoryID, categoryName, ownerID string, previous, total float64, limit *int64, reason string) *BalanceChangedEvent {
	return &BalanceChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBalanceChanged,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"category_id":    categoryID,
				"previous_total": previous,
				"total":          total,
				"reason":         reason,
			},
		},
		CategoryID:    categoryID,
		CategoryName:  categoryName,
		OwnerID:       ownerID,
		PreviousTotal: previous,
		Total:         total,
		Limit:         limit,
		Reason:        reason,
	}
}

// OverLimit reports whether the new total exceeds the category's limit.
func (e *BalanceChangedEvent) OverLimit() bool {
	return e.Limit != nil && e.Total > float64(*e.Limit)
}
