package calendar

import (
	"encoding/json"
	"time"

	"github.com/synchq/scheduler/internal/interval"
)

type eventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type event struct {
	Start eventTime `json:"start"`
	End   eventTime `json:"end"`
}

// unwrapEvents digs the event list out of the provider payload. The provider
// wraps responses in several nested forms; every known shape is tried before
// giving up with an empty list.
func unwrapEvents(data json.RawMessage) []event {
	if len(data) == 0 {
		return nil
	}

	var direct []event
	if err := json.Unmarshal(data, &direct); err == nil {
		return direct
	}

	var wrapped struct {
		Items        []event         `json:"items"`
		Data         json.RawMessage `json:"data"`
		ResponseData json.RawMessage `json:"response_data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil
	}

	if len(wrapped.Items) > 0 {
		return wrapped.Items
	}
	if len(wrapped.Data) > 0 {
		if inner := unwrapEvents(wrapped.Data); len(inner) > 0 {
			return inner
		}
	}
	if len(wrapped.ResponseData) > 0 {
		return unwrapEvents(wrapped.ResponseData)
	}
	return nil
}

func (t eventTime) parse() (time.Time, bool) {
	if t.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return parsed, true
		}
	}
	if t.Date != "" {
		if parsed, err := time.Parse("2006-01-02", t.Date); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// busyWindows converts events into busy windows, dropping anything without a
// usable start and end.
func busyWindows(events []event) []interval.Window {
	var busy []interval.Window
	for _, e := range events {
		start, ok := e.Start.parse()
		if !ok {
			continue
		}
		end, ok := e.End.parse()
		if !ok {
			continue
		}
		if !start.Before(end) {
			continue
		}
		busy = append(busy, interval.Window{Start: start, End: end})
	}
	return busy
}
