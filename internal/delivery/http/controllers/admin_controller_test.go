package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriregistration/internal/delivery/http/helpers"
	"agriregistration/internal/domain"
)

// fakeExportService implements domain.ExportService for handler tests.
type fakeExportService struct {
	result    *domain.ExportResult
	err       error
	gotFields []string
	gotFormat domain.ExportFormat
}

func (f *fakeExportService) Export(ctx context.Context, filter domain.RegistrationFilter, fields []string, format domain.ExportFormat) (*domain.ExportResult, error) {
	f.gotFields, f.gotFormat = fields, format
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newAdminController(svc *fakeRegistrationService, analytics *fakeAnalyticsService, exports *fakeExportService) *AdminController {
	if analytics == nil {
		analytics = &fakeAnalyticsService{}
	}
	if exports == nil {
		exports = &fakeExportService{}
	}
	return NewAdminController(testControllerLogger(), svc, analytics, exports, false)
}

func TestAdminController_List(t *testing.T) {
	regs := []*domain.Registration{{ID: "reg-1"}, {ID: "reg-2"}}

	t.Run("offset pagination with meta", func(t *testing.T) {
		fake := &fakeRegistrationService{page: &domain.RegistrationPage{
			Items: regs, Page: 1, PerPage: 20, Total: 45, TotalPages: 3,
		}}
		ctrl := newAdminController(fake, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/admin/registrations?experience=beginner&verified=true", nil)
		rr := httptest.NewRecorder()
		ctrl.List(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var envelope helpers.APIResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
		require.Nil(t, envelope.Error)

		dataBytes, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		var resp RegistrationListResponse
		require.NoError(t, json.Unmarshal(dataBytes, &resp))
		assert.Len(t, resp.Registrations, 2)
		assert.Equal(t, 3, resp.Meta.LastPage)
		assert.True(t, resp.Meta.HasMorePages)
	})

	t.Run("cursor pagination", func(t *testing.T) {
		fake := &fakeRegistrationService{cursorPage: &domain.RegistrationPage{
			Items: regs, PerPage: 2, NextCursor: "opaque-next",
		}}
		ctrl := newAdminController(fake, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/admin/registrations?cursor=opaque&per_page=2", nil)
		rr := httptest.NewRecorder()
		ctrl.List(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "opaque", fake.gotCursor)
		assert.Equal(t, 2, fake.gotLimit)

		var envelope helpers.APIResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
		dataBytes, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		var resp CursorListResponse
		require.NoError(t, json.Unmarshal(dataBytes, &resp))
		assert.Equal(t, "opaque-next", resp.NextCursor)
	})
}

func TestAdminController_Show(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		fake := &fakeRegistrationService{byID: &domain.Registration{ID: "reg-1", FirstName: "Mary"}}
		ctrl := newAdminController(fake, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/admin/registrations/reg-1", nil)
		req.SetPathValue("id", "reg-1")
		rr := httptest.NewRecorder()
		ctrl.Show(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		fake := &fakeRegistrationService{byIDErr: domain.ErrNotFound}
		ctrl := newAdminController(fake, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/admin/registrations/missing", nil)
		req.SetPathValue("id", "missing")
		rr := httptest.NewRecorder()
		ctrl.Show(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
		var envelope helpers.APIResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
		require.NotNil(t, envelope.Error)
		assert.Equal(t, helpers.ErrCodeNotFound, envelope.Error.Code)
	})
}

func TestAdminController_MarkVerified(t *testing.T) {
	fake := &fakeRegistrationService{marked: &domain.Registration{ID: "reg-1", IsVerified: true}}
	ctrl := newAdminController(fake, nil, nil)

	req := httptest.NewRequest(http.MethodPatch, "http://test/v1/admin/registrations/reg-1/verified", nil)
	req.SetPathValue("id", "reg-1")
	rr := httptest.NewRecorder()
	ctrl.MarkVerified(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "reg-1", fake.markID)
	assert.Contains(t, rr.Body.String(), `"is_verified":true`)
}

func TestAdminController_BulkMarkContacted(t *testing.T) {
	t.Run("success reports updated count", func(t *testing.T) {
		fake := &fakeRegistrationService{bulkCount: 2}
		ctrl := newAdminController(fake, nil, nil)

		body, _ := json.Marshal(BulkStatusRequest{StudentIDs: []string{"a", "b", "c"}})
		req := httptest.NewRequest(http.MethodPost, "http://test/v1/admin/registrations/bulk-contacted", bytes.NewReader(body))
		rr := httptest.NewRecorder()
		ctrl.BulkMarkContacted(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []string{"a", "b", "c"}, fake.bulkIDs)
		assert.Contains(t, rr.Body.String(), `"updated_count":2`)
	})

	t.Run("empty ids rejected by the DTO", func(t *testing.T) {
		ctrl := newAdminController(&fakeRegistrationService{}, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "http://test/v1/admin/registrations/bulk-contacted", bytes.NewReader([]byte(`{"student_ids":[]}`)))
		rr := httptest.NewRecorder()
		ctrl.BulkMarkContacted(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("service validation surfaces as 422", func(t *testing.T) {
		ve := domain.NewValidationError()
		ve.Add("student_ids", "one or more student ids do not reference an existing registration")
		fake := &fakeRegistrationService{bulkErr: ve}
		ctrl := newAdminController(fake, nil, nil)

		body, _ := json.Marshal(BulkStatusRequest{StudentIDs: []string{"ghost"}})
		req := httptest.NewRequest(http.MethodPost, "http://test/v1/admin/registrations/bulk-contacted", bytes.NewReader(body))
		rr := httptest.NewRecorder()
		ctrl.BulkMarkContacted(rr, req)

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestAdminController_Export(t *testing.T) {
	result := &domain.ExportResult{
		Filename:    "student-registrations-2025-06-15-10-30-45.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     []byte("spreadsheet-bytes"),
	}
	exports := &fakeExportService{result: result}
	ctrl := newAdminController(&fakeRegistrationService{}, nil, exports)

	req := httptest.NewRequest(http.MethodGet, "http://test/v1/admin/registrations/export?format=xlsx&fields=first_name,email", nil)
	rr := httptest.NewRecorder()
	ctrl.Export(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"first_name", "email"}, exports.gotFields)
	assert.Equal(t, domain.ExportFormatXLSX, exports.gotFormat)
	assert.Equal(t, result.ContentType, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), result.Filename)
	assert.Equal(t, "spreadsheet-bytes", rr.Body.String())
}

func TestAdminController_Export_defaultsToXLSX(t *testing.T) {
	exports := &fakeExportService{result: &domain.ExportResult{ContentType: "application/pdf"}}
	ctrl := newAdminController(&fakeRegistrationService{}, nil, exports)

	req := httptest.NewRequest(http.MethodGet, "http://test/v1/admin/registrations/export", nil)
	rr := httptest.NewRecorder()
	ctrl.Export(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.ExportFormatXLSX, exports.gotFormat)
	assert.Nil(t, exports.gotFields)
}

func TestAdminController_Schools(t *testing.T) {
	fake := &fakeRegistrationService{schools: []string{"Green Valley", "Sunrise"}}
	ctrl := newAdminController(fake, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "http://test/v1/admin/schools", nil)
	rr := httptest.NewRecorder()
	ctrl.Schools(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Green Valley")
}

func TestAdminController_Stats(t *testing.T) {
	stats := &domain.RegistrationStats{TotalRegistrations: 10, VerificationRate: 50.0}
	ctrl := newAdminController(&fakeRegistrationService{}, &fakeAnalyticsService{stats: stats}, nil)

	req := httptest.NewRequest(http.MethodGet, "http://test/v1/admin/stats", nil)
	rr := httptest.NewRecorder()
	ctrl.Stats(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total_registrations":10`)
}

func TestAdminController_RecentCount(t *testing.T) {
	ctrl := newAdminController(&fakeRegistrationService{}, &fakeAnalyticsService{recent: 7}, nil)

	req := httptest.NewRequest(http.MethodGet, "http://test/v1/admin/registrations/recent-count", nil)
	rr := httptest.NewRecorder()
	ctrl.RecentCount(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"count":7`)
}

func TestParseFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"http://test/v1/admin/registrations?experience=beginner&location=Lagos&verified=true&contacted=false&age_from=13&age_to=17&school=Green&search=mary", nil)

	filter := parseFilter(req)

	assert.Equal(t, "beginner", filter.Experience)
	assert.Equal(t, "Lagos", filter.Location)
	require.NotNil(t, filter.Verified)
	assert.True(t, *filter.Verified)
	require.NotNil(t, filter.Contacted)
	assert.False(t, *filter.Contacted)
	require.NotNil(t, filter.AgeFrom)
	assert.Equal(t, 13, *filter.AgeFrom)
	require.NotNil(t, filter.AgeTo)
	assert.Equal(t, 17, *filter.AgeTo)
	assert.Equal(t, "Green", filter.School)
	assert.Equal(t, "mary", filter.Search)
}

func TestParseFilter_ignoresGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"http://test/v1/admin/registrations?verified=maybe&age_from=abc", nil)

	filter := parseFilter(req)

	assert.Nil(t, filter.Verified)
	assert.Nil(t, filter.AgeFrom)
}
