// Package v1alpha1 holds the wire types of the scheduling API.
package v1alpha1

import (
	"time"
)

type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Participant struct {
	Name         string   `json:"name"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email,omitempty"`
	ProspectID   string   `json:"prospect_id,omitempty"`
	Status       string   `json:"status"`
	Availability []Window `json:"availability,omitempty"`
	Error        string   `json:"error,omitempty"`
}

type SchedulingJob struct {
	ID                     string        `json:"id"`
	UserID                 string        `json:"user_id"`
	OrgID                  string        `json:"org_id,omitempty"`
	Status                 string        `json:"status"`
	MeetingSubject         string        `json:"meeting_subject"`
	MeetingDurationMinutes int           `json:"meeting_duration_minutes"`
	DateRangeStart         time.Time     `json:"date_range_start"`
	DateRangeEnd           time.Time     `json:"date_range_end"`
	Participants           []Participant `json:"participants"`
	UserAvailability       []Window      `json:"user_availability,omitempty"`
	CandidateSlots         []Window      `json:"candidate_slots,omitempty"`
	SelectedSlot           *Window       `json:"selected_slot,omitempty"`
	CalendarEventID        string        `json:"calendar_event_id,omitempty"`
	CalendarEventLink      string        `json:"calendar_event_link,omitempty"`
	FromPhoneNumber        string        `json:"from_phone_number,omitempty"`
	ErrorMessage           string        `json:"error_message,omitempty"`
	UserNotified           bool          `json:"user_notified"`
	NotificationMessage    string        `json:"notification_message,omitempty"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              *time.Time    `json:"updated_at,omitempty"`
	CompletedAt            *time.Time    `json:"completed_at,omitempty"`
}

type CreateJobParticipant struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	ProspectID string `json:"prospect_id,omitempty"`
}

type CreateJobRequest struct {
	UserID                 string                 `json:"user_id"`
	OrgID                  string                 `json:"org_id,omitempty"`
	MeetingSubject         string                 `json:"meeting_subject"`
	MeetingDurationMinutes int                    `json:"meeting_duration_minutes,omitempty"`
	DateRangeStart         time.Time              `json:"date_range_start"`
	DateRangeEnd           time.Time              `json:"date_range_end"`
	FromPhoneNumber        string                 `json:"from_phone_number"`
	Participants           []CreateJobParticipant `json:"participants"`
}

type Error struct {
	Message string `json:"error"`
}

type Health struct {
	Status string `json:"status"`
}
