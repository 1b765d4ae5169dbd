package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"go.uber.org/zap"

	"github.com/synchq/scheduler/internal/events"
	"github.com/synchq/scheduler/internal/store"
	"github.com/synchq/scheduler/internal/store/model"
)

// EventWriter is the notification channel towards the UI.
type EventWriter interface {
	Write(ctx context.Context, kind string, body io.Reader) error
}

// Notifier records a human-readable outcome against the job and the owning
// user. It is always the last action on a terminal path and never changes the
// job status; a failure to notify is logged, not propagated.
type Notifier struct {
	store       store.Store
	eventWriter EventWriter
}

func NewNotifier(store store.Store, eventWriter EventWriter) *Notifier {
	return &Notifier{store: store, eventWriter: eventWriter}
}

func (n *Notifier) Notify(ctx context.Context, job *model.SchedulingJob, message string) {
	logger := zap.S().Named("notifier")

	subject := job.MeetingSubject
	if subject == "" {
		subject = "Meeting"
	}
	title := "Meeting Scheduling: " + subject

	notification := model.Notification{
		UserID:  job.UserID,
		Type:    model.NotificationTypeScheduling,
		Title:   title,
		Message: message,
		Metadata: model.MakeJSONField(map[string]string{
			"job_id": job.ID.String(),
		}),
	}
	if _, err := n.store.Notification().Create(ctx, notification); err != nil {
		logger.Errorw("failed to create notification", "error", err, "job_id", job.ID)
	}

	job.UserNotified = true
	job.NotificationMessage = message
	if _, err := n.store.Job().Update(ctx, job, "user_notified", "notification_message"); err != nil {
		logger.Errorw("failed to record notification on job", "error", err, "job_id", job.ID)
	}

	if n.eventWriter == nil {
		return
	}

	data, err := json.Marshal(events.NotificationEvent{
		JobID:   job.ID.String(),
		UserID:  job.UserID,
		Status:  string(job.Status),
		Title:   title,
		Message: message,
	})
	if err != nil {
		logger.Errorw("failed to marshal notification event", "error", err, "job_id", job.ID)
		return
	}
	if err := n.eventWriter.Write(ctx, events.NotificationMessageKind, bytes.NewBuffer(data)); err != nil {
		logger.Errorw("failed to write notification event", "error", err, "event_kind", events.NotificationMessageKind)
	}
}
