package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/synchq/scheduler/internal/interval"
)

// JobStatus is the closed set of states a scheduling job moves through.
// Completed, failed and partial are terminal.
type JobStatus string

const (
	JobStatusCreated          JobStatus = "created"
	JobStatusCheckingCalendar JobStatus = "checking_calendar"
	JobStatusCalling          JobStatus = "calling"
	JobStatusBetweenCalls     JobStatus = "between_calls"
	JobStatusFindingSlot      JobStatus = "finding_slot"
	JobStatusScheduling       JobStatus = "scheduling"
	JobStatusCompleted        JobStatus = "completed"
	JobStatusFailed           JobStatus = "failed"
	JobStatusPartial          JobStatus = "partial"
)

// IsTerminal reports whether no further transition is legal from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusPartial:
		return true
	default:
		return false
	}
}

// ParticipantStatus only moves forward: pending -> calling -> completed|failed.
type ParticipantStatus string

const (
	ParticipantStatusPending   ParticipantStatus = "pending"
	ParticipantStatusCalling   ParticipantStatus = "calling"
	ParticipantStatusCompleted ParticipantStatus = "completed"
	ParticipantStatusFailed    ParticipantStatus = "failed"
)

// Participant is one invitee to be called for availability. Stored as part of
// the job's jsonb participants column; the job row stays the single source of
// truth between invocations.
type Participant struct {
	Name         string            `json:"name"`
	Phone        string            `json:"phone"`
	Email        string            `json:"email"`
	ProspectID   string            `json:"prospect_id,omitempty"`
	Status       ParticipantStatus `json:"status"`
	Availability []interval.Window `json:"availability,omitempty"`
	CallSID      string            `json:"call_sid,omitempty"`
	CallRecordID string            `json:"call_record_id,omitempty"`
	Error        string            `json:"error,omitempty"`
}

type SchedulingJob struct {
	ID     uuid.UUID `gorm:"primaryKey;"`
	UserID string    `gorm:"not null;index:scheduling_jobs_user_id_idx"`
	OrgID  string    `gorm:"index:scheduling_jobs_org_id_idx"`

	Status JobStatus `gorm:"type:VARCHAR(50);not null"`

	MeetingSubject         string
	MeetingDurationMinutes int
	DateRangeStart         time.Time
	DateRangeEnd           time.Time

	Participants            *JSONField[[]Participant]     `gorm:"type:jsonb"`
	UserAvailability        *JSONField[[]interval.Window] `gorm:"type:jsonb"`
	CandidateSlots          *JSONField[[]interval.Window] `gorm:"type:jsonb"`
	SelectedSlot            *JSONField[interval.Window]   `gorm:"type:jsonb"`
	CurrentParticipantIndex int
	CurrentCallSID          string

	CalendarEventID   string
	CalendarEventLink string

	FromPhoneNumber string

	ErrorMessage        string
	RetryCount          int
	UserNotified        bool
	NotificationMessage string

	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   *time.Time
	CompletedAt *time.Time
}

type SchedulingJobList []SchedulingJob

func (j SchedulingJob) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

// GetParticipants returns the decoded participants list, never nil-panicking
// on an unset column.
func (j *SchedulingJob) GetParticipants() []Participant {
	if j.Participants == nil {
		return nil
	}
	return j.Participants.Data
}

// FirstPendingParticipant returns the index of the first participant still
// pending, or -1 when every participant is terminal.
func (j *SchedulingJob) FirstPendingParticipant() int {
	for i, p := range j.GetParticipants() {
		if p.Status == ParticipantStatusPending {
			return i
		}
	}
	return -1
}
