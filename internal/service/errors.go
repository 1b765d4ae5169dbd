package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/synchq/scheduler/internal/store/model"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "scheduling job")
}

func NewErrParticipantNotFound(jobID uuid.UUID, index int) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("scheduling job %s has no participant at index %d", jobID, index)}
}

type ErrInvalidTransition struct {
	error
}

func NewErrInvalidTransition(id uuid.UUID, from, to model.JobStatus) *ErrInvalidTransition {
	return &ErrInvalidTransition{fmt.Errorf("job %s is no longer in status %s, refusing transition to %s", id, from, to)}
}
