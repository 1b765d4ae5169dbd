package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/synchq/scheduler/internal/interval"
	"github.com/synchq/scheduler/internal/store/model"
)

// Job persists scheduling jobs. The job row is the single source of truth
// between orchestrator invocations, so every transition goes through here.
type Job interface {
	Create(ctx context.Context, job model.SchedulingJob) (*model.SchedulingJob, error)
	Get(ctx context.Context, id uuid.UUID) (*model.SchedulingJob, error)
	Update(ctx context.Context, job *model.SchedulingJob, fields ...string) (*model.SchedulingJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.JobStatus, errorMessage *string) error
	SetSelectedSlot(ctx context.Context, id uuid.UUID, slot interval.Window) error
	InitialMigration() error
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.SchedulingJob{})
}

func (s *JobStore) Create(ctx context.Context, job model.SchedulingJob) (*model.SchedulingJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = model.JobStatusCreated
	}

	if result := s.getDB(ctx).Create(&job); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating scheduling job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.SchedulingJob, error) {
	var job model.SchedulingJob
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying scheduling job: %w", result.Error)
	}
	return &job, nil
}

// Update writes the named fields of the job. The updated_at column is always
// touched so stalled jobs stay detectable from the outside.
func (s *JobStore) Update(ctx context.Context, job *model.SchedulingJob, fields ...string) (*model.SchedulingJob, error) {
	now := time.Now()
	job.UpdatedAt = &now
	fields = append(fields, "updated_at")

	result := s.getDB(ctx).Model(job).Clauses(clause.Returning{}).Select(fields).Updates(job)
	if result.Error != nil {
		return nil, fmt.Errorf("updating scheduling job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return job, nil
}

// UpdateStatus performs a guarded compare-and-set transition from -> to.
// A stale or duplicate delivery loses the guard and gets ErrRecordNotFound,
// making re-delivered events no-ops instead of races.
func (s *JobStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.JobStatus, errorMessage *string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}
	if to.IsTerminal() {
		updates["completed_at"] = now
	}

	result := s.getDB(ctx).Model(&model.SchedulingJob{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating job status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SetSelectedSlot writes the chosen slot exactly once. A second write is
// rejected at the SQL level; the slot is immutable once set.
func (s *JobStore) SetSelectedSlot(ctx context.Context, id uuid.UUID, slot interval.Window) error {
	result := s.getDB(ctx).Model(&model.SchedulingJob{}).
		Where("id = ? AND selected_slot IS NULL", id).
		Updates(map[string]interface{}{
			"selected_slot": model.MakeJSONField(slot),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("setting selected slot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
