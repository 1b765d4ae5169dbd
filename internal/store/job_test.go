package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/synchq/scheduler/internal/config"
	"github.com/synchq/scheduler/internal/interval"
	"github.com/synchq/scheduler/internal/store"
	"github.com/synchq/scheduler/internal/store/model"
)

var _ = Describe("job store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

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
	})

	makeJob := func() *model.SchedulingJob {
		job, err := s.Job().Create(context.TODO(), model.SchedulingJob{
			UserID:                 "user-1",
			MeetingSubject:         "Sync",
			MeetingDurationMinutes: 30,
			Participants: model.MakeJSONField([]model.Participant{
				{Name: "Alice", Phone: "+15550002222", Status: model.ParticipantStatusPending},
			}),
		})
		Expect(err).To(BeNil())
		return job
	}

	Context("create and get", func() {
		It("defaults a new job to status created", func() {
			job := makeJob()
			Expect(job.ID).NotTo(Equal(uuid.Nil))
			Expect(job.Status).To(Equal(model.JobStatusCreated))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusCreated))
			Expect(stored.GetParticipants()).To(HaveLen(1))
		})

		It("returns ErrRecordNotFound for an unknown id", func() {
			_, err := s.Job().Get(context.TODO(), uuid.New())
			Expect(err).To(Equal(store.ErrRecordNotFound))
		})
	})

	Context("guarded status transitions", func() {
		It("moves the status when the guard matches", func() {
			job := makeJob()

			err := s.Job().UpdateStatus(context.TODO(), job.ID, model.JobStatusCreated, model.JobStatusCheckingCalendar, nil)
			Expect(err).To(BeNil())

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusCheckingCalendar))
		})

		It("rejects a stale transition", func() {
			job := makeJob()

			err := s.Job().UpdateStatus(context.TODO(), job.ID, model.JobStatusCreated, model.JobStatusCheckingCalendar, nil)
			Expect(err).To(BeNil())

			// same guard again: the row moved on, the duplicate loses
			err = s.Job().UpdateStatus(context.TODO(), job.ID, model.JobStatusCreated, model.JobStatusCheckingCalendar, nil)
			Expect(err).To(Equal(store.ErrRecordNotFound))
		})

		It("stamps completed_at on a terminal transition", func() {
			job := makeJob()

			msg := "no overlap"
			err := s.Job().UpdateStatus(context.TODO(), job.ID, model.JobStatusCreated, model.JobStatusFailed, &msg)
			Expect(err).To(BeNil())

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusFailed))
			Expect(stored.ErrorMessage).To(Equal("no overlap"))
			Expect(stored.CompletedAt).NotTo(BeNil())
		})
	})

	Context("selected slot", func() {
		It("writes the slot exactly once", func() {
			job := makeJob()
			first := interval.Window{
				Start: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC),
			}

			Expect(s.Job().SetSelectedSlot(context.TODO(), job.ID, first)).To(BeNil())

			second := interval.Window{
				Start: time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 3, 3, 10, 30, 0, 0, time.UTC),
			}
			Expect(s.Job().SetSelectedSlot(context.TODO(), job.ID, second)).To(Equal(store.ErrRecordNotFound))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.SelectedSlot).NotTo(BeNil())
			Expect(stored.SelectedSlot.Data.Start).To(Equal(first.Start))
		})
	})

	Context("update", func() {
		It("only touches the named fields", func() {
			job := makeJob()

			job.NotificationMessage = "done"
			job.UserNotified = true
			job.MeetingSubject = "should not persist"
			_, err := s.Job().Update(context.TODO(), job, "user_notified", "notification_message")
			Expect(err).To(BeNil())

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.UserNotified).To(BeTrue())
			Expect(stored.NotificationMessage).To(Equal("done"))
			Expect(stored.MeetingSubject).To(Equal("Sync"))
			Expect(stored.UpdatedAt).NotTo(BeNil())
		})
	})
})
