package controllers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"agriregistration/internal/delivery/http/helpers"
	"agriregistration/internal/domain"
)

// RegistrationListResponse is the response body for the offset-paginated list.
type RegistrationListResponse struct {
	Registrations []*domain.Registration `json:"registrations"`
	Meta          helpers.PaginationMeta `json:"meta"`
}

// CursorListResponse is the response body when the cursor query parameter is
// used. NextCursor is empty once iteration is exhausted.
type CursorListResponse struct {
	Registrations []*domain.Registration `json:"registrations"`
	NextCursor    string                 `json:"next_cursor"`
}

// BulkStatusRequest is the request body for the bulk status endpoints.
type BulkStatusRequest struct {
	StudentIDs []string `json:"student_ids"`
}

// Validate implements Validator.
func (b BulkStatusRequest) Validate() []string {
	var errs []string
	if len(b.StudentIDs) == 0 {
		errs = append(errs, "student_ids is required")
	}
	return errs
}

// BulkStatusResponse reports how many records a bulk operation changed. The
// count may be less than the input when some records already had the flag set.
type BulkStatusResponse struct {
	UpdatedCount int64 `json:"updated_count"`
}

// RecentCountResponse is the dashboard badge payload.
type RecentCountResponse struct {
	Count int `json:"count"`
}

// AdminController handles the authenticated dashboard endpoints.
type AdminController struct {
	Logger    *slog.Logger
	Service   domain.RegistrationService
	Analytics domain.AnalyticsService
	Exports   domain.ExportService
	Debug     bool
}

// NewAdminController creates an AdminController.
func NewAdminController(logger *slog.Logger, svc domain.RegistrationService, analytics domain.AnalyticsService, exports domain.ExportService, debug bool) *AdminController {
	return &AdminController{
		Logger:    logger,
		Service:   svc,
		Analytics: analytics,
		Exports:   exports,
		Debug:     debug,
	}
}

// List godoc
// @Summary List registrations
// @Description Paginated, filterable registration list, newest first. Pass cursor for keyset pagination; otherwise page/per_page offset pagination is used.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param experience query string false "Experience level code"
// @Param location query string false "Location substring"
// @Param verified query bool false "Verified flag"
// @Param contacted query bool false "Contacted flag"
// @Param age_from query int false "Minimum age"
// @Param age_to query int false "Maximum age"
// @Param school query string false "School name substring"
// @Param search query string false "Free-text search over names, emails, school, and location"
// @Param per_page query int false "Page size, max 100"
// @Param cursor query string false "Opaque cursor from a previous response"
// @Success 200 {object} helpers.APIResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 422 {object} helpers.APIResponse "error.code: validation_failed"
// @Router /v1/admin/registrations [get]
func (c *AdminController) List(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)
	page := helpers.ParsePagination(r)

	if r.URL.Query().Has("cursor") {
		result, err := c.Service.ListByCursor(r.Context(), filter, r.URL.Query().Get("cursor"), page.PageSize)
		if err != nil {
			c.writeServiceError(w, r, err)
			return
		}
		helpers.WriteJSONSuccess(w, http.StatusOK, CursorListResponse{
			Registrations: result.Items,
			NextCursor:    result.NextCursor,
		})
		return
	}

	result, err := c.Service.List(r.Context(), filter, page)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RegistrationListResponse{
		Registrations: result.Items,
		Meta:          helpers.NewPaginationMeta(result.Page, result.PerPage, result.Total),
	})
}

// Show godoc
// @Summary Get one registration
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration id"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /v1/admin/registrations/{id} [get]
func (c *AdminController) Show(w http.ResponseWriter, r *http.Request) {
	reg, err := c.Service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// MarkVerified godoc
// @Summary Mark a registration verified
// @Description Idempotently sets the verified flag. Returns the updated record.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration id"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /v1/admin/registrations/{id}/verified [patch]
func (c *AdminController) MarkVerified(w http.ResponseWriter, r *http.Request) {
	reg, err := c.Service.MarkVerified(r.Context(), r.PathValue("id"))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// MarkContacted godoc
// @Summary Mark a registration contacted
// @Description Idempotently sets the contacted flag. Returns the updated record.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration id"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /v1/admin/registrations/{id}/contacted [patch]
func (c *AdminController) MarkContacted(w http.ResponseWriter, r *http.Request) {
	reg, err := c.Service.MarkContacted(r.Context(), r.PathValue("id"))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// BulkMarkVerified godoc
// @Summary Mark up to 100 registrations verified
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BulkStatusRequest true "Registration ids"
// @Success 200 {object} helpers.APIResponse "data contains updated_count"
// @Failure 422 {object} helpers.APIResponse "error.code: validation_failed"
// @Router /v1/admin/registrations/bulk-verified [post]
func (c *AdminController) BulkMarkVerified(w http.ResponseWriter, r *http.Request) {
	c.bulkMark(w, r, c.Service.BulkMarkVerified)
}

// BulkMarkContacted godoc
// @Summary Mark up to 100 registrations contacted
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BulkStatusRequest true "Registration ids"
// @Success 200 {object} helpers.APIResponse "data contains updated_count"
// @Failure 422 {object} helpers.APIResponse "error.code: validation_failed"
// @Router /v1/admin/registrations/bulk-contacted [post]
func (c *AdminController) BulkMarkContacted(w http.ResponseWriter, r *http.Request) {
	c.bulkMark(w, r, c.Service.BulkMarkContacted)
}

func (c *AdminController) bulkMark(w http.ResponseWriter, r *http.Request, bulk func(ctx context.Context, ids []string) (int64, error)) {
	var req BulkStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	updated, err := bulk(r.Context(), req.StudentIDs)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, BulkStatusResponse{UpdatedCount: updated})
}

// Export godoc
// @Summary Download registrations as a spreadsheet or PDF
// @Description Renders the filtered registrations with the selected field subset. fields is a comma-separated list; omitted means the default subset.
// @Tags admin
// @Produce application/octet-stream
// @Security BearerAuth
// @Param format query string true "xlsx or pdf"
// @Param fields query string false "Comma-separated export fields"
// @Success 200 {file} binary
// @Failure 422 {object} helpers.APIResponse "error.code: validation_failed"
// @Router /v1/admin/registrations/export [get]
func (c *AdminController) Export(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)

	var fields []string
	if raw := strings.TrimSpace(r.URL.Query().Get("fields")); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	format := domain.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = domain.ExportFormatXLSX
	}

	result, err := c.Exports.Export(r.Context(), filter, fields, format)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Content)
}

// Schools godoc
// @Summary List distinct school names
// @Description Sorted distinct school names of active registrations, for filter dropdowns. Cached.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse
// @Router /v1/admin/schools [get]
func (c *AdminController) Schools(w http.ResponseWriter, r *http.Request) {
	schools, err := c.Service.SchoolOptions(r.Context())
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, schools)
}

// Stats godoc
// @Summary Get dashboard statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse
// @Router /v1/admin/stats [get]
func (c *AdminController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Analytics.GetStats(r.Context())
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// RecentCount godoc
// @Summary Get the recent-registrations badge count
// @Description Number of registrations created in the last 30 days, cached on a short TTL.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse
// @Router /v1/admin/registrations/recent-count [get]
func (c *AdminController) RecentCount(w http.ResponseWriter, r *http.Request) {
	count, err := c.Analytics.GetRecentCount(r.Context())
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RecentCountResponse{Count: count})
}

// writeServiceError maps service errors onto the response envelope.
func (c *AdminController) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		helpers.WriteValidationError(w, ve)
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registration not found")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		message := "something went wrong, please try again later"
		if c.Debug {
			message = err.Error()
		}
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, message)
	}
}

// parseFilter reads the shared filter query parameters used by the list and
// export endpoints. Unparseable values impose no constraint.
func parseFilter(r *http.Request) domain.RegistrationFilter {
	q := r.URL.Query()
	filter := domain.RegistrationFilter{
		Experience: q.Get("experience"),
		Location:   q.Get("location"),
		School:     q.Get("school"),
		Search:     strings.TrimSpace(q.Get("search")),
	}
	if s := q.Get("verified"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			filter.Verified = &v
		}
	}
	if s := q.Get("contacted"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			filter.Contacted = &v
		}
	}
	if s := q.Get("age_from"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			filter.AgeFrom = &v
		}
	}
	if s := q.Get("age_to"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			filter.AgeTo = &v
		}
	}
	return filter
}
