package balance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

// LimitAlertHandler warns when a change pushes a category past its limit.
// Changes that stay over an already exceeded limit are logged at debug.
func LimitAlertHandler(logger *slog.Logger) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		e, ok := event.(*events.BalanceChangedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		if !e.OverLimit() {
			return nil
		}

		attrs := []any{
			"category_id", e.CategoryID,
			"category", e.CategoryName,
			"total", e.Total,
			"limit", *e.Limit,
			"reason", e.Reason,
		}
		if e.OwnerID != "" {
			attrs = append(attrs, "owner_id", e.OwnerID)
		}

		if e.PreviousTotal > float64(*e.Limit) {
			logger.DebugContext(ctx, "category still over its limit", attrs...)
			return nil
		}
		logger.WarnContext(ctx, "category exceeded its spending limit", attrs...)
		return nil
	}
}
