package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/usecases"
)

// CandidateService is the part of usecases.CandidateUsecase the handlers need.
type CandidateService interface {
	Apply(ctx context.Context, in usecases.ApplyInput) (*domain.Application, error)
	MyApplications(ctx context.Context, candidateID string, page domain.Page) ([]*domain.Application, error)
	StartInterview(ctx context.Context, in usecases.StartInterviewInput) (*domain.Interview, error)
	SubmitInterview(ctx context.Context, in usecases.SubmitInterviewInput) (*domain.Interview, error)
}

var _ CandidateService = (*usecases.CandidateUsecase)(nil)

type CandidateHandler struct {
	responder
	candidates CandidateService
}

func NewCandidateHandler(candidates CandidateService, logger *zap.Logger) *CandidateHandler {
	return &CandidateHandler{responder: responder{logger: logger}, candidates: candidates}
}

// Apply handles POST /jobs/{id}/applications
func (h *CandidateHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var in usecases.ApplyInput
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if in.CandidateID == "" || in.ResumeKey == "" {
		h.respondError(w, r, http.StatusBadRequest, "candidate_id and resume_key are required")
		return
	}
	in.JobID = chi.URLParam(r, "id")

	app, err := h.candidates.Apply(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to apply for job", err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, app)
}

// MyApplications handles GET /candidates/{id}/applications
func (h *CandidateHandler) MyApplications(w http.ResponseWriter, r *http.Request) {
	page, perPage, window, err := parsePagination(r)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	apps, err := h.candidates.MyApplications(r.Context(), chi.URLParam(r, "id"), window)
	if err != nil {
		h.fail(w, r, "failed to list applications", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{
		"data":     apps,
		"page":     page,
		"per_page": perPage,
	})
}

// StartInterview handles POST /jobs/{id}/interview
func (h *CandidateHandler) StartInterview(w http.ResponseWriter, r *http.Request) {
	var in usecases.StartInterviewInput
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if in.CandidateID == "" {
		h.respondError(w, r, http.StatusBadRequest, "candidate_id is required")
		return
	}
	in.JobID = chi.URLParam(r, "id")

	interview, err := h.candidates.StartInterview(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to start interview", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, interview)
}

// SubmitInterview handles POST /jobs/{id}/interview/submit
func (h *CandidateHandler) SubmitInterview(w http.ResponseWriter, r *http.Request) {
	var in usecases.SubmitInterviewInput
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if in.CandidateID == "" || len(in.Answers) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "candidate_id and answers are required")
		return
	}
	in.JobID = chi.URLParam(r, "id")

	interview, err := h.candidates.SubmitInterview(r.Context(), in)
	if err != nil {
		h.fail(w, r, "failed to submit interview", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, interview)
}
