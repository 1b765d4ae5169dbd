package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/synchq/scheduler/internal/calendar"
	"github.com/synchq/scheduler/internal/config"
	"github.com/synchq/scheduler/internal/extractor"
	"github.com/synchq/scheduler/internal/interval"
	"github.com/synchq/scheduler/internal/service"
	"github.com/synchq/scheduler/internal/store"
	"github.com/synchq/scheduler/internal/store/model"
	"github.com/synchq/scheduler/internal/telephony"
)

var _ = Describe("orchestrator", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	// Monday of a fixed week, business hours apply Mon-Fri.
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	window := func(dayOffset, startHour, startMin, endHour, endMin int) interval.Window {
		d := monday.AddDate(0, 0, dayOffset)
		return interval.Window{
			Start: time.Date(d.Year(), d.Month(), d.Day(), startHour, startMin, 0, 0, time.UTC),
			End:   time.Date(d.Year(), d.Month(), d.Day(), endHour, endMin, 0, 0, time.UTC),
		}
	}

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM scheduling_jobs;")
		gormdb.Exec("DELETE FROM call_records;")
		gormdb.Exec("DELETE FROM integrations;")
		gormdb.Exec("DELETE FROM notifications;")
	})

	makeCallRecord := func(phrase string) string {
		record, err := s.CallRecord().Create(context.TODO(), model.CallRecord{
			Transcript: model.MakeJSONField([]model.TranscriptMessage{{Role: "user", Content: phrase}}),
		})
		Expect(err).To(BeNil())
		return record.ID.String()
	}

	makeJob := func(durationMinutes int, participants []model.Participant) *model.SchedulingJob {
		job, err := s.Job().Create(context.TODO(), model.SchedulingJob{
			UserID:                 "user-1",
			Status:                 model.JobStatusCreated,
			MeetingSubject:         "Quarterly Review",
			MeetingDurationMinutes: durationMinutes,
			DateRangeStart:         monday,
			DateRangeEnd:           monday.AddDate(0, 0, 4),
			FromPhoneNumber:        "+15550001111",
			Participants:           model.MakeJSONField(participants),
		})
		Expect(err).To(BeNil())
		return job
	}

	connectCalendar := func() {
		_, err := s.Integration().Create(context.TODO(), model.Integration{
			UserID:             "user-1",
			ToolkitSlug:        calendar.ToolkitGoogleCalendar,
			ConnectedAccountID: "acc-1",
			Status:             model.IntegrationStatusActive,
		})
		Expect(err).To(BeNil())
	}

	newOrchestrator := func(caller *fakeCaller, client *fakeCalendarClient, ext *fakeExtractor, trigger *fakeTrigger) *service.Orchestrator {
		return service.NewOrchestrator(
			s, caller,
			calendar.NewReader(s, client),
			calendar.NewWriter(s, client),
			ext, trigger,
			service.NewNotifier(s, nil),
		)
	}

	callingCount := func(jobID uuid.UUID) int {
		job, err := s.Job().Get(context.TODO(), jobID)
		Expect(err).To(BeNil())
		count := 0
		for _, p := range job.GetParticipants() {
			if p.Status == model.ParticipantStatusCalling {
				count++
			}
		}
		return count
	}

	Context("start", func() {
		It("fails for an unknown job", func() {
			orch := newOrchestrator(&fakeCaller{}, okCalendarClient(), &fakeExtractor{}, &fakeTrigger{})
			_, err := orch.Start(context.TODO(), uuid.New())
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})

		It("rejects a second start on an already advanced job", func() {
			caller := &fakeCaller{}
			orch := newOrchestrator(caller, okCalendarClient(), &fakeExtractor{}, &fakeTrigger{})
			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusPending},
			})

			started, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(started.Status).To(Equal(model.JobStatusCalling))
			Expect(caller.placed).To(HaveLen(1))

			_, err = orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidTransition{}))
			Expect(caller.placed).To(HaveLen(1))
		})

		It("fails the job when no participant is pending", func() {
			orch := newOrchestrator(&fakeCaller{}, okCalendarClient(), &fakeExtractor{}, &fakeTrigger{})
			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusCompleted},
			})

			result, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(result.Status).To(Equal(model.JobStatusFailed))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusFailed))
			Expect(stored.ErrorMessage).To(Equal("No pending participants to call"))
		})

		It("persists the organizer's free windows", func() {
			orch := newOrchestrator(&fakeCaller{}, okCalendarClient(), &fakeExtractor{}, &fakeTrigger{})
			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusPending},
			})

			_, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.UserAvailability).NotTo(BeNil())
			// five weekdays of business hours
			Expect(stored.UserAvailability.Data).To(HaveLen(5))
		})
	})

	Context("full scheduling run", func() {
		It("selects the earliest slot that fits everyone and books it", func() {
			connectCalendar()
			caller := &fakeCaller{}
			trigger := &fakeTrigger{}
			ext := &fakeExtractor{byPhrase: map[string][]interval.Window{
				"alice-times": {window(0, 14, 0, 17, 0)},
				"bob-times":   {window(0, 15, 0, 16, 0), window(1, 10, 0, 11, 0)},
			}}
			orch := newOrchestrator(caller, okCalendarClient(), ext, trigger)

			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Email: "alice@example.com", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("alice-times")},
				{Name: "Bob", Phone: "+15550003333", Email: "bob@example.com", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("bob-times")},
			})

			_, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(caller.placed).To(HaveLen(1))
			Expect(caller.placed[0].To).To(Equal("+15550002222"))
			Expect(callingCount(job.ID)).To(Equal(1))

			_, err = orch.CallCompleted(context.TODO(), job.ID, 0)
			Expect(err).To(BeNil())
			Expect(trigger.advanced).To(HaveLen(1))

			_, err = orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(caller.placed).To(HaveLen(2))
			Expect(caller.placed[1].To).To(Equal("+15550003333"))
			Expect(callingCount(job.ID)).To(Equal(1))

			_, err = orch.CallCompleted(context.TODO(), job.ID, 1)
			Expect(err).To(BeNil())

			final, err := orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.JobStatusCompleted))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusCompleted))
			Expect(stored.SelectedSlot).NotTo(BeNil())
			Expect(stored.SelectedSlot.Data.Start).To(Equal(window(0, 15, 0, 15, 30).Start))
			Expect(stored.SelectedSlot.Data.End).To(Equal(window(0, 15, 0, 15, 30).End))
			Expect(stored.CalendarEventID).To(Equal("evt-1"))
			Expect(stored.CalendarEventLink).To(Equal("https://calendar.example/evt-1"))
			Expect(stored.UserNotified).To(BeTrue())
			Expect(stored.NotificationMessage).To(ContainSubstring("Meeting scheduled!"))
			Expect(stored.NotificationMessage).To(ContainSubstring("Alice and Bob"))
			Expect(stored.CompletedAt).NotTo(BeNil())

			notifications, err := s.Notification().ListByUser(context.TODO(), "user-1")
			Expect(err).To(BeNil())
			Expect(notifications).To(HaveLen(1))
			Expect(notifications[0].Title).To(Equal("Meeting Scheduling: Quarterly Review"))
		})

		It("skips a participant whose call cannot be placed", func() {
			connectCalendar()
			caller := &fakeCaller{failTo: map[string]error{"+15550002222": errors.New("unreachable carrier")}}
			trigger := &fakeTrigger{}
			ext := &fakeExtractor{byPhrase: map[string][]interval.Window{
				"bob-times": {window(0, 10, 0, 11, 0)},
			}}
			orch := newOrchestrator(caller, okCalendarClient(), ext, trigger)

			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusPending},
				{Name: "Bob", Phone: "+15550003333", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("bob-times")},
			})

			_, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			// placement failed, an advance was requested to skip Alice
			Expect(trigger.advanced).To(HaveLen(1))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.GetParticipants()[0].Status).To(Equal(model.ParticipantStatusFailed))
			Expect(stored.GetParticipants()[0].Error).To(Equal("unreachable carrier"))

			_, err = orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(caller.placed).To(HaveLen(1))
			Expect(caller.placed[0].To).To(Equal("+15550003333"))

			_, err = orch.CallCompleted(context.TODO(), job.ID, 1)
			Expect(err).To(BeNil())

			final, err := orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.JobStatusCompleted))

			stored, err = s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.SelectedSlot.Data.Start).To(Equal(window(0, 10, 0, 10, 30).Start))
			Expect(stored.SelectedSlot.Data.End).To(Equal(window(0, 10, 0, 10, 30).End))
		})

		It("fails the job when nobody provided availability", func() {
			caller := &fakeCaller{}
			orch := newOrchestrator(caller, okCalendarClient(), &fakeExtractor{}, &fakeTrigger{})

			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("nothing-a")},
				{Name: "Bob", Phone: "+15550003333", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("nothing-b")},
			})

			_, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			_, err = orch.CallCompleted(context.TODO(), job.ID, 0)
			Expect(err).To(BeNil())
			_, err = orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			_, err = orch.CallCompleted(context.TODO(), job.ID, 1)
			Expect(err).To(BeNil())

			final, err := orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.JobStatusFailed))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusFailed))
			Expect(stored.ErrorMessage).To(Equal("No participants provided availability"))
			Expect(stored.NotificationMessage).To(Equal("None of the participants provided availability for the meeting."))
		})

		It("ends partial when a slot is found but the calendar write fails", func() {
			// no calendar connection: reads fall open, writes fail
			caller := &fakeCaller{}
			ext := &fakeExtractor{byPhrase: map[string][]interval.Window{
				"carol-times": {window(2, 14, 0, 15, 0)},
			}}
			orch := newOrchestrator(caller, okCalendarClient(), ext, &fakeTrigger{})

			job := makeJob(30, []model.Participant{
				{Name: "Carol", Phone: "+15550004444", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("carol-times")},
			})

			_, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			_, err = orch.CallCompleted(context.TODO(), job.ID, 0)
			Expect(err).To(BeNil())

			final, err := orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.JobStatusPartial))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusPartial))
			Expect(stored.CalendarEventID).To(BeEmpty())
			Expect(stored.SelectedSlot).NotTo(BeNil())
			Expect(stored.SelectedSlot.Data.Start).To(Equal(window(2, 14, 0, 14, 30).Start))
			Expect(stored.NotificationMessage).To(ContainSubstring("Wednesday, March 4"))
			Expect(stored.NotificationMessage).To(ContainSubstring("create it manually"))
		})

		It("ends partial with a per-participant summary when no overlap exists", func() {
			connectCalendar()
			caller := &fakeCaller{}
			ext := &fakeExtractor{byPhrase: map[string][]interval.Window{
				"alice-times": {window(0, 9, 0, 10, 0)},
				"bob-times":   {window(1, 9, 0, 10, 0)},
			}}
			orch := newOrchestrator(caller, okCalendarClient(), ext, &fakeTrigger{})

			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("alice-times")},
				{Name: "Bob", Phone: "+15550003333", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("bob-times")},
			})

			_, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			_, err = orch.CallCompleted(context.TODO(), job.ID, 0)
			Expect(err).To(BeNil())
			_, err = orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			_, err = orch.CallCompleted(context.TODO(), job.ID, 1)
			Expect(err).To(BeNil())

			final, err := orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.JobStatusPartial))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.SelectedSlot).To(BeNil())
			Expect(stored.NotificationMessage).To(ContainSubstring("couldn't find a time that works for everyone"))
			Expect(stored.NotificationMessage).To(ContainSubstring("Alice:"))
			Expect(stored.NotificationMessage).To(ContainSubstring("Bob:"))
			Expect(stored.NotificationMessage).To(ContainSubstring("pick a time manually"))
		})
	})

	Context("duplicate deliveries", func() {
		It("ignores a re-delivered completion and never dials twice", func() {
			connectCalendar()
			caller := &fakeCaller{}
			trigger := &fakeTrigger{}
			ext := &fakeExtractor{byPhrase: map[string][]interval.Window{
				"alice-times": {window(0, 14, 0, 17, 0)},
				"bob-times":   {window(0, 15, 0, 16, 0)},
			}}
			orch := newOrchestrator(caller, okCalendarClient(), ext, trigger)

			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("alice-times")},
				{Name: "Bob", Phone: "+15550003333", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("bob-times")},
			})

			_, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			_, err = orch.CallCompleted(context.TODO(), job.ID, 0)
			Expect(err).To(BeNil())

			firstAvailability := func() []interval.Window {
				stored, err := s.Job().Get(context.TODO(), job.ID)
				Expect(err).To(BeNil())
				return stored.GetParticipants()[0].Availability
			}()

			// provider redelivery: no new advance, no re-extraction side effects
			_, err = orch.CallCompleted(context.TODO(), job.ID, 0)
			Expect(err).To(BeNil())
			Expect(trigger.advanced).To(HaveLen(1))
			Expect(firstAvailability).To(Equal(func() []interval.Window {
				stored, err := s.Job().Get(context.TODO(), job.ID)
				Expect(err).To(BeNil())
				return stored.GetParticipants()[0].Availability
			}()))

			_, err = orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(caller.placed).To(HaveLen(2))

			// a second advance while Bob's call is in flight bounces
			_, err = orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidTransition{}))
			Expect(caller.placed).To(HaveLen(2))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusCalling))
		})

		It("rejects an advance on a terminal job", func() {
			connectCalendar()
			caller := &fakeCaller{}
			ext := &fakeExtractor{byPhrase: map[string][]interval.Window{
				"alice-times": {window(0, 14, 0, 17, 0)},
			}}
			orch := newOrchestrator(caller, okCalendarClient(), ext, &fakeTrigger{})

			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusPending, CallRecordID: makeCallRecord("alice-times")},
			})

			_, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			_, err = orch.CallCompleted(context.TODO(), job.ID, 0)
			Expect(err).To(BeNil())

			final, err := orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(final.Status).To(Equal(model.JobStatusCompleted))

			_, err = orch.Advance(context.TODO(), job.ID)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidTransition{}))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusCompleted))
		})
	})

	Context("call completed", func() {
		It("fails for a participant index out of range", func() {
			orch := newOrchestrator(&fakeCaller{}, okCalendarClient(), &fakeExtractor{}, &fakeTrigger{})
			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusPending},
			})

			_, err := orch.CallCompleted(context.TODO(), job.ID, 5)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})

		It("marks the participant completed even with an empty transcript", func() {
			caller := &fakeCaller{}
			orch := newOrchestrator(caller, okCalendarClient(), &fakeExtractor{}, &fakeTrigger{})
			job := makeJob(30, []model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusPending},
			})

			_, err := orch.Start(context.TODO(), job.ID)
			Expect(err).To(BeNil())

			result, err := orch.CallCompleted(context.TODO(), job.ID, 0)
			Expect(err).To(BeNil())
			Expect(result.Status).To(Equal(model.JobStatusBetweenCalls))
			Expect(result.GetParticipants()[0].Status).To(Equal(model.ParticipantStatusCompleted))
			Expect(result.GetParticipants()[0].Availability).To(BeEmpty())
		})
	})
})

type fakeCaller struct {
	placed []telephony.PlaceCallRequest
	failTo map[string]error
	sids   int
}

func (c *fakeCaller) PlaceCall(_ context.Context, req telephony.PlaceCallRequest) (*telephony.CallRef, error) {
	if err, ok := c.failTo[req.To]; ok {
		return nil, err
	}
	c.placed = append(c.placed, req)
	c.sids++
	return &telephony.CallRef{SID: fmt.Sprintf("CA%d", c.sids)}, nil
}

type fakeExtractor struct {
	byPhrase map[string][]interval.Window
}

func (e *fakeExtractor) Extract(_ context.Context, transcript []extractor.Utterance, _, _ time.Time) ([]interval.Window, error) {
	if len(transcript) == 0 {
		return nil, nil
	}
	return e.byPhrase[transcript[0].Content], nil
}

type fakeTrigger struct {
	advanced []uuid.UUID
}

func (t *fakeTrigger) Advance(_ context.Context, jobID uuid.UUID) {
	t.advanced = append(t.advanced, jobID)
}

type fakeCalendarClient struct {
	listData   json.RawMessage
	createData json.RawMessage
	createErr  string
}

func okCalendarClient() *fakeCalendarClient {
	return &fakeCalendarClient{
		listData:   json.RawMessage(`{"items":[]}`),
		createData: json.RawMessage(`{"id":"evt-1","htmlLink":"https://calendar.example/evt-1"}`),
	}
}

func (c *fakeCalendarClient) Execute(_ context.Context, _, action string, _ map[string]interface{}, _ string) (*calendar.Result, error) {
	if action == "GOOGLECALENDAR_LIST_EVENTS" {
		return &calendar.Result{Success: true, Data: c.listData}, nil
	}
	if c.createErr != "" {
		return &calendar.Result{Success: false, Error: c.createErr}, nil
	}
	return &calendar.Result{Success: true, Data: c.createData}, nil
}
