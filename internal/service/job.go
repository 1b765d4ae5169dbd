package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/synchq/scheduler/internal/service/mappers"
	"github.com/synchq/scheduler/internal/store"
	"github.com/synchq/scheduler/internal/store/model"
)

// JobService covers the thin CRUD surface around scheduling jobs: the
// upstream trigger creates the row, the dashboard polls it. All mutation
// beyond creation goes through the orchestrator.
type JobService struct {
	store store.Store
}

func NewJobService(store store.Store) *JobService {
	return &JobService{store: store}
}

func (s *JobService) CreateJob(ctx context.Context, form mappers.JobCreateForm) (*model.SchedulingJob, error) {
	job, err := s.store.Job().Create(ctx, form.ToJob())
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*model.SchedulingJob, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}
