package report

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/msntech/reports-api/internal/middleware"
	"github.com/msntech/reports-api/internal/pkg/ratelimit"
	"github.com/msntech/reports-api/internal/pkg/response"
	"github.com/msntech/reports-api/internal/pkg/validator"
)

// Handler handles report HTTP requests
type Handler struct {
	service *Service
	limiter *ratelimit.Limiter
}

// NewHandler creates report handler
func NewHandler(service *Service, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		service: service,
		limiter: limiter,
	}
}

// Submit files a new report
// POST /reports
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	// Admission control before the draft ever reaches storage.
	if !h.limiter.Allow(req.PlayerUUID, ratelimit.ActionReport) {
		remaining := h.limiter.Remaining(req.PlayerUUID, ratelimit.ActionReport)
		response.TooManyRequests(w, int(remaining.Seconds()))
		return
	}

	resp, err := h.service.Submit(r.Context(), &req, clientAddr(r))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "REPORT_NOT_SAVED",
			"Your report could not be saved, please try again later")
		return
	}

	response.Created(w, resp)
}

// List returns paginated report summaries
// GET /reports?page=&per_page=&status=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := &ListFilter{
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "per_page", 10),
	}
	if filter.PerPage > 50 {
		filter.PerPage = 50
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			response.BadRequest(w, "Unknown status filter")
			return
		}
		filter.Status = string(status)
	}

	rows, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		response.InternalError(w)
		return
	}

	pages := (total + filter.PerPage - 1) / filter.PerPage
	response.WithMeta(w, rows, response.Meta{
		Total:   total,
		Page:    filter.Page,
		Limit:   filter.PerPage,
		Pages:   pages,
		HasNext: filter.Page < pages,
		HasPrev: filter.Page > 1,
	})
}

// GetDetail returns one report with decrypted fields
// GET /reports/{id}
func (h *Handler) GetDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	rep, err := h.service.GetDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			response.NotFound(w, "Report not found")
		} else {
			response.InternalError(w)
		}
		return
	}

	response.OK(w, rep)
}

// GetComments returns the report's comment log
// GET /reports/{id}/comments
func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	comments, err := h.service.GetComments(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			response.NotFound(w, "Report not found")
		} else {
			response.InternalError(w)
		}
		return
	}

	response.OK(w, comments)
}

// AddComment appends a staff comment
// POST /reports/{id}/comments
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	var req AddCommentRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	actorID := middleware.GetActorID(r.Context()).String()
	if !h.limiter.Allow(actorID, ratelimit.ActionComment) {
		remaining := h.limiter.Remaining(actorID, ratelimit.ActionComment)
		response.TooManyRequests(w, int(remaining.Seconds()))
		return
	}

	added, err := h.service.AddComment(r.Context(), id, middleware.GetActorName(r.Context()), req.Text)
	if err != nil {
		response.InternalError(w)
		return
	}
	if !added {
		response.NotFound(w, "Report not found")
		return
	}

	response.OK(w, map[string]string{"message": "Comment added"})
}

// UpdateStatus moves the report to a new status
// PATCH /reports/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), id, StatusFromString(req.Status), middleware.GetActorName(r.Context()))
	if err != nil {
		response.InternalError(w)
		return
	}
	if !updated {
		response.NotFound(w, "Report not found")
		return
	}

	response.OK(w, map[string]string{"message": "Status updated"})
}

// Delete drives the two-phase delete, or a forced delete with ?force=true
// DELETE /reports/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}

	actor := middleware.GetActorName(r.Context())

	if r.URL.Query().Get("force") == "true" {
		if err := h.service.ForceDelete(r.Context(), id, actor); err != nil {
			if errors.Is(err, ErrReportNotFound) {
				response.NotFound(w, "Report not found")
			} else {
				response.InternalError(w)
			}
			return
		}
		response.OK(w, &DeleteResponse{Deleted: true})
		return
	}

	actorID := middleware.GetActorID(r.Context()).String()
	resp, err := h.service.RequestDelete(r.Context(), actorID, id, actor)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			response.NotFound(w, "Report not found")
		} else {
			response.InternalError(w)
		}
		return
	}

	if resp.Pending {
		response.JSON(w, http.StatusAccepted, resp)
		return
	}
	response.OK(w, resp)
}

func reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Report ID must be a positive number")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// clientAddr strips the port from the remote address; RealIP middleware
// has already resolved proxy headers.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
