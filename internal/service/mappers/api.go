package mappers

import (
	api "github.com/synchq/scheduler/api/v1alpha1"
	"github.com/synchq/scheduler/internal/interval"
	"github.com/synchq/scheduler/internal/store/model"
)

func JobCreateFormFromApi(req api.CreateJobRequest) JobCreateForm {
	participants := make([]ParticipantForm, 0, len(req.Participants))
	for _, p := range req.Participants {
		participants = append(participants, ParticipantForm{
			Name:       p.Name,
			Phone:      p.Phone,
			Email:      p.Email,
			ProspectID: p.ProspectID,
		})
	}

	return JobCreateForm{
		UserID:                 req.UserID,
		OrgID:                  req.OrgID,
		MeetingSubject:         req.MeetingSubject,
		MeetingDurationMinutes: req.MeetingDurationMinutes,
		DateRangeStart:         req.DateRangeStart,
		DateRangeEnd:           req.DateRangeEnd,
		FromPhoneNumber:        req.FromPhoneNumber,
		Participants:           participants,
	}
}

func JobToApi(job *model.SchedulingJob) api.SchedulingJob {
	out := api.SchedulingJob{
		ID:                     job.ID.String(),
		UserID:                 job.UserID,
		OrgID:                  job.OrgID,
		Status:                 string(job.Status),
		MeetingSubject:         job.MeetingSubject,
		MeetingDurationMinutes: job.MeetingDurationMinutes,
		DateRangeStart:         job.DateRangeStart,
		DateRangeEnd:           job.DateRangeEnd,
		CalendarEventID:        job.CalendarEventID,
		CalendarEventLink:      job.CalendarEventLink,
		FromPhoneNumber:        job.FromPhoneNumber,
		ErrorMessage:           job.ErrorMessage,
		UserNotified:           job.UserNotified,
		NotificationMessage:    job.NotificationMessage,
		CreatedAt:              job.CreatedAt,
		UpdatedAt:              job.UpdatedAt,
		CompletedAt:            job.CompletedAt,
	}

	for _, p := range job.GetParticipants() {
		out.Participants = append(out.Participants, api.Participant{
			Name:         p.Name,
			Phone:        p.Phone,
			Email:        p.Email,
			ProspectID:   p.ProspectID,
			Status:       string(p.Status),
			Availability: windowsToApi(p.Availability),
			Error:        p.Error,
		})
	}

	if job.UserAvailability != nil {
		out.UserAvailability = windowsToApi(job.UserAvailability.Data)
	}
	if job.CandidateSlots != nil {
		out.CandidateSlots = windowsToApi(job.CandidateSlots.Data)
	}
	if job.SelectedSlot != nil {
		slot := api.Window{Start: job.SelectedSlot.Data.Start, End: job.SelectedSlot.Data.End}
		out.SelectedSlot = &slot
	}

	return out
}

func windowsToApi(windows []interval.Window) []api.Window {
	out := make([]api.Window, 0, len(windows))
	for _, w := range windows {
		out = append(out, api.Window{Start: w.Start, End: w.End})
	}
	return out
}
