package mappers

import (
	"time"

	"github.com/synchq/scheduler/internal/store/model"
)

type ParticipantForm struct {
	Name       string
	Phone      string
	Email      string
	ProspectID string
}

type JobCreateForm struct {
	UserID                 string
	OrgID                  string
	MeetingSubject         string
	MeetingDurationMinutes int
	DateRangeStart         time.Time
	DateRangeEnd           time.Time
	FromPhoneNumber        string
	Participants           []ParticipantForm
}

func (f JobCreateForm) ToJob() model.SchedulingJob {
	participants := make([]model.Participant, 0, len(f.Participants))
	for _, p := range f.Participants {
		participants = append(participants, model.Participant{
			Name:       p.Name,
			Phone:      p.Phone,
			Email:      p.Email,
			ProspectID: p.ProspectID,
			Status:     model.ParticipantStatusPending,
		})
	}

	return model.SchedulingJob{
		UserID:                 f.UserID,
		OrgID:                  f.OrgID,
		Status:                 model.JobStatusCreated,
		MeetingSubject:         f.MeetingSubject,
		MeetingDurationMinutes: f.MeetingDurationMinutes,
		DateRangeStart:         f.DateRangeStart,
		DateRangeEnd:           f.DateRangeEnd,
		FromPhoneNumber:        f.FromPhoneNumber,
		Participants:           model.MakeJSONField(participants),
	}
}
