package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/usecases"
)

const (
	// maxBulkJobs bounds the ids accepted by one bulk approval.
	maxBulkJobs = 500

	defaultStatsRange = "7d"
)

// AdminService is the part of usecases.AdminUsecase the handlers need.
type AdminService interface {
	ListJobs(ctx context.Context, filter domain.JobFilter, page domain.Page) (*usecases.Paged[*domain.Job], error)
	PendingJobs(ctx context.Context, page domain.Page) (*usecases.Paged[*domain.Job], error)
	ApproveJob(ctx context.Context, jobID, adminID string) (*domain.Job, error)
	RejectJob(ctx context.Context, jobID, adminID string) (*domain.Job, error)
	BulkApprove(ctx context.Context, adminID string, jobIDs []string) ([]*domain.BatchResult, error)
	ToggleUserActive(ctx context.Context, userID, adminID string) (*domain.User, error)
	ListUsers(ctx context.Context, filter domain.UserFilter, page domain.Page) (*usecases.Paged[*domain.User], error)
	ActivityFeed(ctx context.Context, filter domain.ActivityFilter, page domain.Page) ([]*domain.ActivityLog, error)
	SystemStats(ctx context.Context, window time.Duration) (*usecases.SystemStats, error)
}

var _ AdminService = (*usecases.AdminUsecase)(nil)

// AdminHandler handles job moderation, user management, the activity feed and system stats.
type AdminHandler struct {
	responder
	admin AdminService
}

func NewAdminHandler(admin AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{responder: responder{logger: logger}, admin: admin}
}

type adminRequest struct {
	AdminID string `json:"admin_id"`
}

type bulkApproveRequest struct {
	AdminID string   `json:"admin_id"`
	JobIDs  []string `json:"job_ids"`
}

type bulkApproveResponse struct {
	Results  []*domain.BatchResult `json:"results"`
	Approved int                   `json:"approved"`
	Skipped  int                   `json:"skipped"`
	Failed   int                   `json:"failed"`
}

// ListJobs handles GET /jobs
func (h *AdminHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	page, perPage, window, err := parsePagination(r)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	filter := domain.JobFilter{
		Status:     domain.JobStatus(q.Get("status")),
		Department: q.Get("department"),
		CreatorID:  q.Get("creator_id"),
	}
	switch filter.Status {
	case "", domain.JobStatusPending, domain.JobStatusApproved, domain.JobStatusRejected, domain.JobStatusClosed:
	default:
		h.respondError(w, r, http.StatusBadRequest, "invalid status parameter")
		return
	}

	res, err := h.admin.ListJobs(r.Context(), filter, window)
	if err != nil {
		h.fail(w, r, "failed to list jobs", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listResponse{Data: res.Data, Pagination: paginate(page, perPage, res.Total)})
}

// PendingJobs handles GET /jobs/pending
func (h *AdminHandler) PendingJobs(w http.ResponseWriter, r *http.Request) {
	page, perPage, window, err := parsePagination(r)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.admin.PendingJobs(r.Context(), window)
	if err != nil {
		h.fail(w, r, "failed to list pending jobs", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listResponse{Data: res.Data, Pagination: paginate(page, perPage, res.Total)})
}

// ApproveJob handles POST /jobs/{id}/approve
func (h *AdminHandler) ApproveJob(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "failed to approve job", h.admin.ApproveJob)
}

// RejectJob handles POST /jobs/{id}/reject
func (h *AdminHandler) RejectJob(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "failed to reject job", h.admin.RejectJob)
}

func (h *AdminHandler) moderate(w http.ResponseWriter, r *http.Request, msg string, fn func(ctx context.Context, jobID, adminID string) (*domain.Job, error)) {
	var req adminRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.AdminID == "" {
		h.respondError(w, r, http.StatusBadRequest, "admin_id is required")
		return
	}

	job, err := fn(r.Context(), chi.URLParam(r, "id"), req.AdminID)
	if err != nil {
		h.fail(w, r, msg, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, job)
}

// BulkApprove handles POST /jobs/approve
func (h *AdminHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	var req bulkApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case req.AdminID == "":
		h.respondError(w, r, http.StatusBadRequest, "admin_id is required")
		return
	case len(req.JobIDs) == 0:
		h.respondError(w, r, http.StatusBadRequest, "job_ids must not be empty")
		return
	case len(req.JobIDs) > maxBulkJobs:
		h.respondError(w, r, http.StatusBadRequest, "too many job_ids, at most "+strconv.Itoa(maxBulkJobs)+" allowed")
		return
	}

	results, err := h.admin.BulkApprove(r.Context(), req.AdminID, req.JobIDs)
	if err != nil {
		h.fail(w, r, "failed to approve jobs", err)
		return
	}

	resp := bulkApproveResponse{Results: results}
	for _, res := range results {
		switch res.Status {
		case domain.BatchStatusSuccess:
			resp.Approved++
		case domain.BatchStatusSkipped:
			resp.Skipped++
		default:
			resp.Failed++
		}
	}
	h.respondJSON(w, r, http.StatusOK, resp)
}

// ListUsers handles GET /users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage, window, err := parsePagination(r)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	filter := domain.UserFilter{Role: domain.Role(q.Get("role"))}
	switch filter.Role {
	case "", domain.RoleCandidate, domain.RoleRecruiter, domain.RoleAdmin:
	default:
		h.respondError(w, r, http.StatusBadRequest, "invalid role parameter")
		return
	}
	if s := q.Get("active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			h.respondError(w, r, http.StatusBadRequest, "invalid active parameter")
			return
		}
		filter.Active = &active
	}

	res, err := h.admin.ListUsers(r.Context(), filter, window)
	if err != nil {
		h.fail(w, r, "failed to list users", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, listResponse{Data: res.Data, Pagination: paginate(page, perPage, res.Total)})
}

// ToggleUserActive handles POST /users/{id}/toggle-active
func (h *AdminHandler) ToggleUserActive(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.AdminID == "" {
		h.respondError(w, r, http.StatusBadRequest, "admin_id is required")
		return
	}

	user, err := h.admin.ToggleUserActive(r.Context(), chi.URLParam(r, "id"), req.AdminID)
	if err != nil {
		h.fail(w, r, "failed to toggle user status", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, user)
}

// ActivityFeed handles GET /activity
func (h *AdminHandler) ActivityFeed(w http.ResponseWriter, r *http.Request) {
	page, perPage, window, err := parsePagination(r)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	filter := domain.ActivityFilter{UserID: q.Get("user_id"), Action: q.Get("action")}

	logs, err := h.admin.ActivityFeed(r.Context(), filter, window)
	if err != nil {
		h.fail(w, r, "failed to list activity", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{
		"data":     logs,
		"page":     page,
		"per_page": perPage,
	})
}

// SystemStats handles GET /stats?range=7d
func (h *AdminHandler) SystemStats(w http.ResponseWriter, r *http.Request) {
	window, err := parseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.admin.SystemStats(r.Context(), window)
	if err != nil {
		h.fail(w, r, "failed to compute system stats", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, stats)
}

// parseTimeRange reads a count followed by h, d, w or m. A month is four weeks.
func parseTimeRange(s string) (time.Duration, error) {
	if s == "" {
		s = defaultStatsRange
	}
	units := map[byte]time.Duration{
		'h': time.Hour,
		'd': 24 * time.Hour,
		'w': 7 * 24 * time.Hour,
		'm': 28 * 24 * time.Hour,
	}
	unit, ok := units[s[len(s)-1]]
	n, err := strconv.Atoi(s[:len(s)-1])
	if !ok || err != nil || n < 1 || n > 520 {
		return 0, fmt.Errorf("invalid range parameter %q: use a count and one of h, d, w, m", s)
	}
	return time.Duration(n) * unit, nil
}
