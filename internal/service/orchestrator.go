package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/synchq/scheduler/internal/calendar"
	"github.com/synchq/scheduler/internal/continuation"
	"github.com/synchq/scheduler/internal/extractor"
	"github.com/synchq/scheduler/internal/interval"
	"github.com/synchq/scheduler/internal/store"
	"github.com/synchq/scheduler/internal/store/model"
	"github.com/synchq/scheduler/internal/telephony"
)

const defaultMeetingDurationMinutes = 30

// Orchestrator is the state machine that sequences calendar reads, outbound
// calls, availability extraction and the final booking. Each of Start,
// CallCompleted and Advance is a stateless handler: all cross-invocation
// state lives in the job row, and every status transition is a guarded
// compare-and-set so a re-delivered event is a no-op instead of a race.
type Orchestrator struct {
	store     store.Store
	caller    telephony.Caller
	reader    *calendar.Reader
	writer    *calendar.Writer
	extractor extractor.Extractor
	trigger   continuation.Trigger
	notifier  *Notifier
}

func NewOrchestrator(
	store store.Store,
	caller telephony.Caller,
	reader *calendar.Reader,
	writer *calendar.Writer,
	extractor extractor.Extractor,
	trigger continuation.Trigger,
	notifier *Notifier,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		caller:    caller,
		reader:    reader,
		writer:    writer,
		extractor: extractor,
		trigger:   trigger,
		notifier:  notifier,
	}
}

// Start moves a freshly created job into motion: reads the organizer's
// calendar, persists the free windows and dials the first pending
// participant. A second start on an already advanced job is rejected.
func (o *Orchestrator) Start(ctx context.Context, jobID uuid.UUID) (*model.SchedulingJob, error) {
	logger := zap.S().Named("orchestrator")

	job, err := o.store.Job().Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(jobID)
		}
		return nil, err
	}

	if err := o.store.Job().UpdateStatus(ctx, jobID, model.JobStatusCreated, model.JobStatusCheckingCalendar, nil); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrInvalidTransition(jobID, model.JobStatusCreated, model.JobStatusCheckingCalendar)
		}
		return nil, err
	}
	job.Status = model.JobStatusCheckingCalendar

	userAvailability := o.reader.FreeSlots(ctx, job.UserID, interval.Window{Start: job.DateRangeStart, End: job.DateRangeEnd})
	job.UserAvailability = model.MakeJSONField(userAvailability)
	if _, err := o.store.Job().Update(ctx, job, "user_availability"); err != nil {
		return nil, err
	}

	firstPending := job.FirstPendingParticipant()
	if firstPending == -1 {
		msg := "No pending participants to call"
		if err := o.store.Job().UpdateStatus(ctx, jobID, job.Status, model.JobStatusFailed, &msg); err != nil {
			return nil, err
		}
		job.Status = model.JobStatusFailed
		job.ErrorMessage = msg
		logger.Warnw("job has no pending participants", "job_id", jobID)
		return job, nil
	}

	if err := o.placeCall(ctx, job, firstPending); err != nil {
		return nil, err
	}
	return job, nil
}

// CallCompleted records one participant's result: it loads the captured
// transcript, extracts availability windows and marks the participant
// completed whether or not any windows were stated. Deciding what happens
// next is decoupled from recording the result: an advance signal is issued
// asynchronously, never awaited.
func (o *Orchestrator) CallCompleted(ctx context.Context, jobID uuid.UUID, participantIndex int) (*model.SchedulingJob, error) {
	logger := zap.S().Named("orchestrator")

	job, err := o.store.Job().Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(jobID)
		}
		return nil, err
	}

	participants := job.GetParticipants()
	if participantIndex < 0 || participantIndex >= len(participants) {
		return nil, NewErrParticipantNotFound(jobID, participantIndex)
	}

	participant := participants[participantIndex]
	if participant.Status == model.ParticipantStatusCompleted || participant.Status == model.ParticipantStatusFailed {
		// provider redelivery; the result is already recorded
		logger.Infow("duplicate completion delivery ignored", "job_id", jobID, "participant_index", participantIndex)
		return job, nil
	}

	logger.Infow("call completed", "job_id", jobID, "participant", participant.Name, "participant_index", participantIndex)

	availability := o.extractAvailability(ctx, job, participant.CallRecordID)

	participants[participantIndex].Availability = availability
	participants[participantIndex].Status = model.ParticipantStatusCompleted

	ctx, err = o.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	job.Participants = model.MakeJSONField(participants)
	if _, err := o.store.Job().Update(ctx, job, "participants"); err != nil {
		_, _ = store.Rollback(ctx)
		return nil, err
	}

	if err := o.store.Job().UpdateStatus(ctx, jobID, model.JobStatusCalling, model.JobStatusBetweenCalls, nil); err != nil {
		_, _ = store.Rollback(ctx)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrInvalidTransition(jobID, model.JobStatusCalling, model.JobStatusBetweenCalls)
		}
		return nil, err
	}
	job.Status = model.JobStatusBetweenCalls

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}

	o.trigger.Advance(ctx, jobID)
	return job, nil
}

// Advance is the decision point: dial the next pending participant, or once
// everyone is done, intersect the collected windows and book the meeting.
func (o *Orchestrator) Advance(ctx context.Context, jobID uuid.UUID) (*model.SchedulingJob, error) {
	logger := zap.S().Named("orchestrator")

	job, err := o.store.Job().Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(jobID)
		}
		return nil, err
	}

	// A late or re-delivered advance must not reopen a job that is already
	// finalizing or done.
	if job.Status.IsTerminal() || job.Status == model.JobStatusFindingSlot || job.Status == model.JobStatusScheduling {
		return nil, NewErrInvalidTransition(jobID, job.Status, model.JobStatusFindingSlot)
	}

	if nextPending := job.FirstPendingParticipant(); nextPending != -1 {
		job.CandidateSlots = model.MakeJSONField(candidateSlots(job))
		if _, err := o.store.Job().Update(ctx, job, "candidate_slots"); err != nil {
			return nil, err
		}
		if err := o.placeCall(ctx, job, nextPending); err != nil {
			return nil, err
		}
		return job, nil
	}

	// No pending participant left. Finalizing while a call is still in
	// flight would settle the job without that participant's answer, so a
	// stray advance bounces until the completion event lands.
	participants := job.GetParticipants()
	for _, p := range participants {
		if p.Status == model.ParticipantStatusCalling {
			return nil, NewErrInvalidTransition(jobID, job.Status, model.JobStatusFindingSlot)
		}
	}

	// Exactly one advance may enter finalization: the compare-and-set loses
	// for any concurrent delivery that read the same pre-terminal status.
	logger.Infow("all calls complete, finding overlapping slot", "job_id", jobID)
	if err := o.store.Job().UpdateStatus(ctx, jobID, job.Status, model.JobStatusFindingSlot, nil); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrInvalidTransition(jobID, job.Status, model.JobStatusFindingSlot)
		}
		return nil, err
	}
	job.Status = model.JobStatusFindingSlot

	allAvailability := make([][]interval.Window, 0, len(participants))
	for _, p := range participants {
		if p.Status == model.ParticipantStatusCompleted && len(p.Availability) > 0 {
			allAvailability = append(allAvailability, p.Availability)
		}
	}

	if len(allAvailability) == 0 {
		msg := "No participants provided availability"
		if err := o.store.Job().UpdateStatus(ctx, jobID, model.JobStatusFindingSlot, model.JobStatusFailed, &msg); err != nil {
			return nil, err
		}
		job.Status = model.JobStatusFailed
		job.ErrorMessage = msg
		o.notifier.Notify(ctx, job, "None of the participants provided availability for the meeting.")
		return job, nil
	}

	slotSets := allAvailability
	if job.UserAvailability != nil && len(job.UserAvailability.Data) > 0 {
		slotSets = append([][]interval.Window{job.UserAvailability.Data}, allAvailability...)
	}

	duration := job.MeetingDurationMinutes
	if duration <= 0 {
		duration = defaultMeetingDurationMinutes
	}

	slot, found := interval.FitDuration(interval.IntersectAll(slotSets...), time.Duration(duration)*time.Minute)
	if !found {
		if err := o.store.Job().UpdateStatus(ctx, jobID, model.JobStatusFindingSlot, model.JobStatusPartial, nil); err != nil {
			return nil, err
		}
		job.Status = model.JobStatusPartial
		o.notifier.Notify(ctx, job, noOverlapMessage(job))
		return job, nil
	}

	logger.Infow("found slot", "job_id", jobID, "start", slot.Start, "end", slot.End)
	if err := o.store.Job().UpdateStatus(ctx, jobID, model.JobStatusFindingSlot, model.JobStatusScheduling, nil); err != nil {
		return nil, err
	}
	job.Status = model.JobStatusScheduling

	if err := o.store.Job().SetSelectedSlot(ctx, jobID, slot); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrInvalidTransition(jobID, model.JobStatusFindingSlot, model.JobStatusScheduling)
		}
		return nil, err
	}
	job.SelectedSlot = model.MakeJSONField(slot)

	names := participantNames(participants, ", ")
	description := fmt.Sprintf("Meeting with %s. Scheduled automatically.", names)
	emails := make([]string, 0, len(participants))
	for _, p := range participants {
		emails = append(emails, p.Email)
	}

	event, err := o.writer.CreateEvent(ctx, job.UserID, job.MeetingSubject, description, emails, slot)
	if err != nil {
		logger.Errorw("calendar event creation failed", "error", err, "job_id", jobID)
		msg := "Calendar event creation failed"
		if serr := o.store.Job().UpdateStatus(ctx, jobID, model.JobStatusScheduling, model.JobStatusPartial, &msg); serr != nil {
			return nil, serr
		}
		job.Status = model.JobStatusPartial
		job.ErrorMessage = msg
		o.notifier.Notify(ctx, job, fmt.Sprintf(
			"I found a time for %q with %s: %s. I couldn't create the calendar event automatically, please create it manually.",
			job.MeetingSubject, participantNames(participants, " and "), formatSlotTime(slot.Start)))
		return job, nil
	}

	job.CalendarEventID = event.ID
	job.CalendarEventLink = event.Link
	if _, err := o.store.Job().Update(ctx, job, "calendar_event_id", "calendar_event_link"); err != nil {
		return nil, err
	}
	if err := o.store.Job().UpdateStatus(ctx, jobID, model.JobStatusScheduling, model.JobStatusCompleted, nil); err != nil {
		return nil, err
	}
	job.Status = model.JobStatusCompleted

	message := fmt.Sprintf("Meeting scheduled! %q with %s on %s.",
		job.MeetingSubject, participantNames(participants, " and "), formatSlotTime(slot.Start))
	if event.Link != "" {
		message += " Calendar event: " + event.Link
	}
	o.notifier.Notify(ctx, job, message)

	return job, nil
}

// placeCall dials one participant. The status transition happens before the
// provider call so a duplicate signal cannot dial twice; a placement failure
// marks the participant failed and immediately requests an advance so the job
// is never stuck waiting on a call that was never placed.
func (o *Orchestrator) placeCall(ctx context.Context, job *model.SchedulingJob, index int) error {
	logger := zap.S().Named("orchestrator")

	if err := o.store.Job().UpdateStatus(ctx, job.ID, job.Status, model.JobStatusCalling, nil); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrInvalidTransition(job.ID, job.Status, model.JobStatusCalling)
		}
		return err
	}
	job.Status = model.JobStatusCalling

	participants := job.GetParticipants()
	participant := participants[index]
	logger.Infow("initiating call", "job_id", job.ID, "participant", participant.Name, "phone", participant.Phone)

	ref, err := o.caller.PlaceCall(ctx, telephony.PlaceCallRequest{
		To:               participant.Phone,
		From:             job.FromPhoneNumber,
		JobID:            job.ID,
		ParticipantIndex: index,
	})
	if err != nil {
		logger.Errorw("call placement failed", "error", err, "job_id", job.ID, "participant_index", index)
		participants[index].Status = model.ParticipantStatusFailed
		participants[index].Error = err.Error()
		job.Participants = model.MakeJSONField(participants)
		if _, uerr := o.store.Job().Update(ctx, job, "participants"); uerr != nil {
			return uerr
		}
		// skip this participant
		o.trigger.Advance(ctx, job.ID)
		return nil
	}

	participants[index].Status = model.ParticipantStatusCalling
	participants[index].CallSID = ref.SID
	job.Participants = model.MakeJSONField(participants)
	job.CurrentParticipantIndex = index
	job.CurrentCallSID = ref.SID
	if _, err := o.store.Job().Update(ctx, job, "participants", "current_participant_index", "current_call_sid"); err != nil {
		return err
	}

	logger.Infow("call initiated", "job_id", job.ID, "call_sid", ref.SID)
	return nil
}

// extractAvailability loads the participant's transcript and runs the
// extractor. A missing record, an empty transcript or an extraction failure
// all mean "no availability stated", never an error for the job.
func (o *Orchestrator) extractAvailability(ctx context.Context, job *model.SchedulingJob, callRecordID string) []interval.Window {
	logger := zap.S().Named("orchestrator")

	if callRecordID == "" {
		return nil
	}
	recordID, err := uuid.Parse(callRecordID)
	if err != nil {
		logger.Warnw("invalid call record reference", "call_record_id", callRecordID, "job_id", job.ID)
		return nil
	}

	record, err := o.store.CallRecord().Get(ctx, recordID)
	if err != nil {
		if !errors.Is(err, store.ErrRecordNotFound) {
			logger.Errorw("failed to load call record", "error", err, "call_record_id", recordID)
		}
		return nil
	}

	messages := record.Messages()
	if len(messages) == 0 {
		return nil
	}

	transcript := make([]extractor.Utterance, 0, len(messages))
	for _, m := range messages {
		transcript = append(transcript, extractor.Utterance{Role: m.Role, Content: m.Content})
	}

	windows, err := o.extractor.Extract(ctx, transcript, job.DateRangeStart, job.DateRangeEnd)
	if err != nil {
		logger.Errorw("availability extraction failed", "error", err, "job_id", job.ID)
		return nil
	}
	return windows
}

// candidateSlots narrows the intersection as results come in. Diagnostic
// only: the authoritative computation happens once all calls are done.
func candidateSlots(job *model.SchedulingJob) []interval.Window {
	var candidates []interval.Window
	if job.UserAvailability != nil {
		candidates = job.UserAvailability.Data
	}

	for _, p := range job.GetParticipants() {
		if p.Status != model.ParticipantStatusCompleted || len(p.Availability) == 0 {
			continue
		}
		if len(candidates) == 0 {
			candidates = p.Availability
		} else {
			candidates = interval.Intersect(candidates, p.Availability)
		}
	}
	return candidates
}

func noOverlapMessage(job *model.SchedulingJob) string {
	lines := make([]string, 0, len(job.GetParticipants()))
	for _, p := range job.GetParticipants() {
		if len(p.Availability) == 0 {
			continue
		}
		times := make([]string, 0, len(p.Availability))
		for _, w := range p.Availability {
			times = append(times, w.Start.Format("Mon, Jan 2, 3:04 PM"))
		}
		lines = append(lines, fmt.Sprintf("%s: %s", p.Name, strings.Join(times, ", ")))
	}

	return fmt.Sprintf(
		"I couldn't find a time that works for everyone for %q. Here's what each person said:\n\n%s\n\nWould you like to pick a time manually?",
		job.MeetingSubject, strings.Join(lines, "\n"))
}

func participantNames(participants []model.Participant, sep string) string {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.Name)
	}
	return strings.Join(names, sep)
}

func formatSlotTime(t time.Time) string {
	return t.Format("Monday, January 2") + " at " + t.Format("3:04 PM")
}
