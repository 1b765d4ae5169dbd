package v1alpha1

import (
	"net/http"

	api "github.com/synchq/scheduler/api/v1alpha1"
)

type JobReply struct {
	api.SchedulingJob
}

type ErrorReply struct {
	api.Error
}

type HealthReply struct {
	api.Health
}

func (j JobReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (h HealthReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
