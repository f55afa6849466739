package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/usecases"
)

// RecruiterService is the part of usecases.RecruiterUsecase the handlers need.
type RecruiterService interface {
	PostJob(ctx context.Context, in usecases.PostJobInput) (*domain.Job, error)
	MyJobs(ctx context.Context, recruiterID string, page domain.Page) (*usecases.Paged[*domain.Job], error)
	JobCandidates(ctx context.Context, jobID, recruiterID string, page domain.Page) (*usecases.Paged[*domain.Application], error)
	AcceptCandidate(ctx context.Context, jobID, candidateID, recruiterID string) (*domain.Application, error)
	RejectCandidate(ctx context.Context, jobID, candidateID, recruiterID string) (*domain.Application, error)
}

var _ RecruiterService = (*usecases.RecruiterUsecase)(nil)

// RecruiterHandler handles job posting and candidate decisions.
type RecruiterHandler struct {
	responder
	recruiters RecruiterService
}

func NewRecruiterHandler(recruiters RecruiterService, logger *zap.Logger) *RecruiterHandler {
	return &RecruiterHandler{responder: responder{logger: logger}, recruiters: recruiters}
}

type recruiterRequest struct {
	RecruiterID string `json:"recruiter_id"`
}

// PostJob handles POST /jobs
func (h *RecruiterHandler) PostJob(w http.ResponseWriter, r *http.Request) {
	var in usecases.PostJobInput
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if in.RecruiterID == "" || in.Title == "" {
		h.respondError(w, r, http.StatusBadRequest, "recruiter_id and title are required")
		return
	}

	job, err := h.recruiters.PostJob(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to post job", err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, job)
}

// MyJobs handles GET /recruiters/{id}/jobs
func (h *RecruiterHandler) MyJobs(w http.ResponseWriter, r *http.Request) {
	page, perPage, window, err := parsePagination(r)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.recruiters.MyJobs(r.Context(), chi.URLParam(r, "id"), window)
	if err != nil {
		h.fail(w, r, "failed to list recruiter jobs", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listResponse{Data: res.Data, Pagination: paginate(page, perPage, res.Total)})
}

// JobCandidates handles GET /jobs/{id}/applications?recruiter_id=
func (h *RecruiterHandler) JobCandidates(w http.ResponseWriter, r *http.Request) {
	page, perPage, window, err := parsePagination(r)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	recruiterID := r.URL.Query().Get("recruiter_id")
	if recruiterID == "" {
		h.respondError(w, r, http.StatusBadRequest, "recruiter_id is required")
		return
	}

	res, err := h.recruiters.JobCandidates(r.Context(), chi.URLParam(r, "id"), recruiterID, window)
	if err != nil {
		h.fail(w, r, "failed to list job candidates", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listResponse{Data: res.Data, Pagination: paginate(page, perPage, res.Total)})
}

// AcceptCandidate handles POST /jobs/{id}/candidates/{candidateID}/accept
func (h *RecruiterHandler) AcceptCandidate(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "failed to accept candidate", h.recruiters.AcceptCandidate)
}

// RejectCandidate handles POST /jobs/{id}/candidates/{candidateID}/reject
func (h *RecruiterHandler) RejectCandidate(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "failed to reject candidate", h.recruiters.RejectCandidate)
}

func (h *RecruiterHandler) decide(w http.ResponseWriter, r *http.Request, msg string, fn func(ctx context.Context, jobID, candidateID, recruiterID string) (*domain.Application, error)) {
	var req recruiterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.RecruiterID == "" {
		h.respondError(w, r, http.StatusBadRequest, "recruiter_id is required")
		return
	}

	app, err := fn(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "candidateID"), req.RecruiterID)
	if err != nil {
		h.fail(w, r, msg, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, app)
}
