// Package v1alpha1 exposes the scheduling trigger surface over HTTP. The
// three orchestrator operations are each invoked by a different external
// caller: the upstream initiator, the telephony provider's webhook and the
// service's own continuation trigger.
package v1alpha1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/synchq/scheduler/api/v1alpha1"
	"github.com/synchq/scheduler/internal/service"
	"github.com/synchq/scheduler/internal/service/mappers"
)

type SchedulingHandler struct {
	jobService   *service.JobService
	orchestrator *service.Orchestrator
}

func NewSchedulingHandler(jobService *service.JobService, orchestrator *service.Orchestrator) *SchedulingHandler {
	return &SchedulingHandler{jobService: jobService, orchestrator: orchestrator}
}

func (h *SchedulingHandler) RegisterRoutes(router chi.Router) {
	router.Post("/api/v1/scheduling/jobs", h.CreateJob)
	router.Get("/api/v1/scheduling/jobs/{id}", h.GetJob)
	router.Post("/api/v1/scheduling/jobs/{id}/start", h.StartJob)
	router.Post("/api/v1/scheduling/jobs/{id}/call-completed", h.CallCompleted)
	router.Post("/api/v1/scheduling/jobs/{id}/advance", h.AdvanceJob)
	router.Get("/api/v1/health", h.Health)
}

func (h *SchedulingHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req api.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if msg, ok := validateCreateJob(req); !ok {
		renderError(w, r, http.StatusBadRequest, msg)
		return
	}

	job, err := h.jobService.CreateJob(r.Context(), mappers.JobCreateFormFromApi(req))
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	_ = render.Render(w, r, JobReply{mappers.JobToApi(job)})
}

func (h *SchedulingHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	job, err := h.jobService.GetJob(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, JobReply{mappers.JobToApi(job)})
}

func (h *SchedulingHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	job, err := h.orchestrator.Start(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, JobReply{mappers.JobToApi(job)})
}

func (h *SchedulingHandler) CallCompleted(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	participantIndex := 0
	if raw := r.URL.Query().Get("participantIndex"); raw != "" {
		var err error
		participantIndex, err = strconv.Atoi(raw)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "participantIndex must be an integer")
			return
		}
	}

	job, err := h.orchestrator.CallCompleted(r.Context(), id, participantIndex)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, JobReply{mappers.JobToApi(job)})
}

func (h *SchedulingHandler) AdvanceJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	job, err := h.orchestrator.Advance(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, JobReply{mappers.JobToApi(job)})
}

func (h *SchedulingHandler) Health(w http.ResponseWriter, r *http.Request) {
	_ = render.Render(w, r, HealthReply{api.Health{Status: "ok"}})
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid job id")
		return uuid.Nil, false
	}
	return id, true
}

func validateCreateJob(req api.CreateJobRequest) (string, bool) {
	if req.UserID == "" {
		return "user_id is required", false
	}
	if len(req.Participants) == 0 {
		return "at least one participant is required", false
	}
	for _, p := range req.Participants {
		if p.Name == "" || p.Phone == "" {
			return "every participant needs a name and a phone number", false
		}
	}
	if req.DateRangeStart.IsZero() || req.DateRangeEnd.IsZero() || !req.DateRangeStart.Before(req.DateRangeEnd) {
		return "date_range_start must be before date_range_end", false
	}
	return "", true
}

func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch err.(type) {
	case *service.ErrResourceNotFound:
		renderError(w, r, http.StatusNotFound, err.Error())
	case *service.ErrInvalidTransition:
		renderError(w, r, http.StatusConflict, err.Error())
	default:
		zap.S().Named("scheduling_handler").Errorw("request failed", "error", err)
		renderError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func renderError(w http.ResponseWriter, r *http.Request, code int, message string) {
	render.Status(r, code)
	_ = render.Render(w, r, ErrorReply{api.Error{Message: message}})
}
