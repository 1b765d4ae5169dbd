package calendar

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/synchq/scheduler/internal/interval"
	"github.com/synchq/scheduler/internal/store"
)

// Reader computes the organizer's free windows. When no active calendar
// connection exists, or the provider call fails, the organizer is treated as
// fully free during business hours: the job must not die because the
// organizer never connected a calendar.
type Reader struct {
	store  store.Store
	client Client
}

func NewReader(s store.Store, client Client) *Reader {
	return &Reader{store: s, client: client}
}

func (r *Reader) FreeSlots(ctx context.Context, userID string, rng interval.Window) []interval.Window {
	logger := zap.S().Named("calendar_reader")

	integration, err := r.store.Integration().GetActive(ctx, userID, ToolkitGoogleCalendar)
	if err != nil {
		if !errors.Is(err, store.ErrRecordNotFound) {
			logger.Errorw("failed to look up calendar connection", "error", err, "user_id", userID)
		} else {
			logger.Infow("no calendar connection, assuming all free", "user_id", userID)
		}
		return interval.DefaultFreeSlots(rng.Start, rng.End)
	}

	result, err := r.client.Execute(ctx, integration.ConnectedAccountID, actionListEvents, map[string]interface{}{
		"timeMin":    rng.Start,
		"timeMax":    rng.End,
		"maxResults": 50,
	}, userID)
	if err != nil || !result.Success {
		if err == nil {
			err = errors.New(result.Error)
		}
		logger.Errorw("calendar fetch failed, falling back to default free slots", "error", err, "user_id", userID)
		return interval.DefaultFreeSlots(rng.Start, rng.End)
	}

	busy := busyWindows(unwrapEvents(result.Data))
	return interval.SubtractBusy(interval.DefaultFreeSlots(rng.Start, rng.End), busy)
}
