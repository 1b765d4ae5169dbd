package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/synchq/scheduler/internal/interval"
	"github.com/synchq/scheduler/internal/store"
)

// Event identifies the created calendar entry.
type Event struct {
	ID   string
	Link string
}

// Writer books the final meeting. Unlike the reader it has no fallback: a
// missing connection or a failed provider call is reported as an error and
// the orchestrator degrades the job to partial instead of pretending a
// booking happened.
type Writer struct {
	store  store.Store
	client Client
}

func NewWriter(s store.Store, client Client) *Writer {
	return &Writer{store: s, client: client}
}

type attendee struct {
	Email string `json:"email"`
}

func (w *Writer) CreateEvent(ctx context.Context, userID, subject, description string, emails []string, slot interval.Window) (*Event, error) {
	integration, err := w.store.Integration().GetActive(ctx, userID, ToolkitGoogleCalendar)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, errors.New("no calendar connection for event creation")
		}
		return nil, fmt.Errorf("looking up calendar connection: %w", err)
	}

	attendees := make([]attendee, 0, len(emails))
	for _, email := range emails {
		if email != "" {
			attendees = append(attendees, attendee{Email: email})
		}
	}

	if subject == "" {
		subject = "Meeting"
	}

	result, err := w.client.Execute(ctx, integration.ConnectedAccountID, actionCreateEvent, map[string]interface{}{
		"summary":     subject,
		"start":       map[string]interface{}{"dateTime": slot.Start},
		"end":         map[string]interface{}{"dateTime": slot.End},
		"description": description,
		"attendees":   attendees,
	}, userID)
	if err != nil {
		return nil, fmt.Errorf("creating calendar event: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("creating calendar event: %s", result.Error)
	}

	return unwrapEvent(result.Data), nil
}

// unwrapEvent pulls the event id and link out of the provider payload,
// tolerating one level of data nesting.
func unwrapEvent(data json.RawMessage) *Event {
	var body struct {
		ID       string `json:"id"`
		HtmlLink string `json:"htmlLink"`
		Data     struct {
			ID       string `json:"id"`
			HtmlLink string `json:"htmlLink"`
		} `json:"data"`
	}
	_ = json.Unmarshal(data, &body)

	event := &Event{ID: body.ID, Link: body.HtmlLink}
	if event.ID == "" {
		event.ID = body.Data.ID
	}
	if event.Link == "" {
		event.Link = body.Data.HtmlLink
	}
	return event
}
