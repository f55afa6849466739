// Package handlers exposes the admin, recruiter and candidate services over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/middleware"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
	maxPerPage     = 100
	maxBodyBytes   = 1 << 20
)

// pagination is the page-based view of a skip/limit window.
type pagination struct {
	Page       int64 `json:"page"`
	PerPage    int64 `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

type listResponse struct {
	Data       any         `json:"data"`
	Pagination *pagination `json:"pagination"`
}

func paginate(page, perPage, total int64) *pagination {
	p := &pagination{Page: page, PerPage: perPage, Total: total}
	if perPage > 0 {
		p.TotalPages = (total + perPage - 1) / perPage
	}
	p.HasMore = page*perPage < total
	return p
}

// parsePagination reads page and per_page (1-based) and converts them to a store window.
func parsePagination(r *http.Request) (page, perPage int64, window domain.Page, err error) {
	page, perPage = defaultPage, defaultPerPage

	if s := r.URL.Query().Get("page"); s != "" {
		page, err = strconv.ParseInt(s, 10, 64)
		if err != nil || page < 1 {
			return 0, 0, domain.Page{}, fmt.Errorf("invalid page parameter: must be a positive integer")
		}
	}
	if s := r.URL.Query().Get("per_page"); s != "" {
		perPage, err = strconv.ParseInt(s, 10, 64)
		if err != nil || perPage < 1 {
			return 0, 0, domain.Page{}, fmt.Errorf("invalid per_page parameter: must be a positive integer")
		}
		if perPage > maxPerPage {
			perPage = maxPerPage
		}
	}
	return page, perPage, domain.Page{Skip: (page - 1) * perPage, Limit: perPage}, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindInvalidIdentifier, domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindTransient, domain.KindConnectionFatal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// responder writes JSON responses and logs failures with the request id.
type responder struct {
	logger *zap.Logger
}

func (h responder) respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err),
		)
	}
}

func (h responder) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, r, status, map[string]string{
		"error":      message,
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

// fail logs err and writes the status its kind maps to. Server-side failures hide the cause.
func (h responder) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.Stringer("kind", domain.KindOf(err)),
		zap.Error(err),
	}

	message := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		h.logger.Error(msg, fields...)
		message = msg
	case status == http.StatusServiceUnavailable:
		h.logger.Warn(msg, fields...)
		message = "service temporarily unavailable"
	default:
		h.logger.Info(msg, fields...)
	}
	h.respondError(w, r, status, message)
}
