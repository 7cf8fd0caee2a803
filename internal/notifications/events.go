package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"biblio/internal/middleware"
	"biblio/internal/models"
)

// LifecycleEvent is the payload pushed to dashboards when a borrow request
// changes state.
type LifecycleEvent struct {
	Type       string                 `json:"type"`
	RequestID  uint                   `json:"request_id"`
	BorrowerID uint                   `json:"borrower_id"`
	BookID     uint                   `json:"book_id"`
	Status     models.EffectiveStatus `json:"status"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// LifecycleBroadcaster fans lifecycle events out over the Notifier. It
// satisfies the lifecycle engine's publisher contract: broadcast to admin
// dashboards, plus a direct message to the borrower's linked account.
type LifecycleBroadcaster struct {
	notifier *Notifier
}

// NewLifecycleBroadcaster wraps a Notifier for lifecycle fan-out.
func NewLifecycleBroadcaster(notifier *Notifier) *LifecycleBroadcaster {
	return &LifecycleBroadcaster{notifier: notifier}
}

// RequestChanged publishes the event. Delivery is best effort; a failed
// publish never fails the transition that caused it.
func (b *LifecycleBroadcaster) RequestChanged(ctx context.Context, event string, req *models.BorrowRequest) {
	payload, err := json.Marshal(LifecycleEvent{
		Type:       event,
		RequestID:  req.ID,
		BorrowerID: req.BorrowerID,
		BookID:     req.BookID,
		Status:     models.DeriveStatus(req, time.Now().UTC()),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := b.notifier.PublishBroadcast(ctx, string(payload)); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to broadcast lifecycle event",
			slog.String("event", event),
			slog.Uint64("request_id", uint64(req.ID)),
			slog.String("error", err.Error()),
		)
	}

	if req.Borrower != nil && req.Borrower.UserID != nil {
		if err := b.notifier.PublishUser(ctx, *req.Borrower.UserID, string(payload)); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to notify borrower",
				slog.String("event", event),
				slog.Uint64("request_id", uint64(req.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
}
