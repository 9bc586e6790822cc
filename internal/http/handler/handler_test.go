package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pagelink/internal/model"
	"pagelink/internal/service"
	serviceMocks "pagelink/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, filename, content, expiration string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("html_file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	if expiration != "" {
		require.NoError(t, writer.WriteField("expiration", expiration))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadAPI(t *testing.T) {
	mockSvc := new(serviceMocks.MockPageService)
	app := fiber.New()
	app.Post("/api/upload", UploadAPI(mockSvc))

	t.Run("success", func(t *testing.T) {
		expires := time.Date(2025, 6, 22, 12, 0, 0, 0, time.UTC)
		res := &service.UploadResult{
			Page: &model.Page{ID: "a1B2c3D4e5F6g7H8", Size: 24, ExpiresAt: &expires},
			Link: "http://localhost:8000/link/a1B2c3D4e5F6g7H8",
		}
		mockSvc.On("Upload", mock.Anything, []byte("<html><p>hello</p></html>"), 7).
			Return(res, nil).Once()

		body, contentType := multipartBody(t, "page.html", "<html><p>hello</p></html>", "7")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result uploadResponse
		json.NewDecoder(resp.Body).Decode(&result)
		assert.True(t, result.Success)
		assert.Equal(t, "a1B2c3D4e5F6g7H8", result.ID)
		assert.Equal(t, res.Link, result.Link)
		assert.Equal(t, int64(24), result.SizeBytes)
		require.NotNil(t, result.ExpiresAt)
		assert.True(t, result.ExpiresAt.Equal(expires))
		mockSvc.AssertExpectations(t)
	})

	t.Run("expiration defaults to seven days", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, 7).
			Return(&service.UploadResult{Page: &model.Page{ID: "x"}}, nil).Once()

		body, contentType := multipartBody(t, "page.html", "<p>hi</p>", "")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})

	t.Run("non-numeric expiration", func(t *testing.T) {
		body, contentType := multipartBody(t, "page.html", "<p>hi</p>", "soon")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_EXPIRATION", res.Error.Code)
	})

	t.Run("unknown expiration class", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, 3).
			Return(nil, service.ErrInvalidExpiration).Once()

		body, contentType := multipartBody(t, "page.html", "<p>hi</p>", "3")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_EXPIRATION", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("oversized content", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, 7).
			Return(nil, service.ErrContentTooLarge).Once()

		body, contentType := multipartBody(t, "big.html", strings.Repeat("x", 64), "7")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "CONTENT_TOO_LARGE", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty content", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, 7).
			Return(nil, service.ErrEmptyContent).Once()

		body, contentType := multipartBody(t, "empty.html", "   ", "7")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "EMPTY_CONTENT", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("id exhaustion", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, 7).
			Return(nil, service.ErrIDExhausted).Once()

		body, contentType := multipartBody(t, "page.html", "<p>hi</p>", "7")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "ID_EXHAUSTED", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("store down answers retryable 503", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, 7).
			Return(nil, fmt.Errorf("save page: %w: %w", service.ErrStoreUnavailable, errors.New("db down"))).Once()

		body, contentType := multipartBody(t, "page.html", "<p>hi</p>", "7")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "SERVICE_UNAVAILABLE", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("unclassified error", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, 7).
			Return(nil, errors.New("boom")).Once()

		body, contentType := multipartBody(t, "page.html", "<p>hi</p>", "7")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestUploadForm(t *testing.T) {
	mockSvc := new(serviceMocks.MockPageService)
	app := fiber.New()
	app.Post("/upload", UploadForm(mockSvc))

	t.Run("browser gets a redirect", func(t *testing.T) {
		res := &service.UploadResult{
			Page: &model.Page{ID: "a1B2c3D4e5F6g7H8", Size: 9},
			Link: "http://localhost:8000/link/a1B2c3D4e5F6g7H8",
		}
		mockSvc.On("Upload", mock.Anything, []byte("<p>hi</p>"), 1).Return(res, nil).Once()

		form := url.Values{}
		form.Set("html_content", "<p>hi</p>")
		form.Set("expiration", "1")
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, res.Link, resp.Header.Get("Location"))
		mockSvc.AssertExpectations(t)
	})

	t.Run("json client gets the api shape", func(t *testing.T) {
		res := &service.UploadResult{
			Page: &model.Page{ID: "jsonclient000001", Size: 9},
			Link: "http://localhost:8000/link/jsonclient000001",
		}
		mockSvc.On("Upload", mock.Anything, []byte("<p>hi</p>"), 7).Return(res, nil).Once()

		form := url.Values{}
		form.Set("html_content", "<p>hi</p>")
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		req.Header.Set("Accept", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var result uploadResponse
		json.NewDecoder(resp.Body).Decode(&result)
		assert.True(t, result.Success)
		assert.Equal(t, "jsonclient000001", result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("file field overrides inline content", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, []byte("<p>from file</p>"), 7).
			Return(&service.UploadResult{Page: &model.Page{ID: "x"}, Link: "l"}, nil).Once()

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, _ := writer.CreateFormFile("html_file", "page.html")
		part.Write([]byte("<p>from file</p>"))
		writer.WriteField("html_content", "<p>ignored</p>")
		writer.WriteField("expiration", "7")
		writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty content", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, 7).
			Return(nil, service.ErrEmptyContent).Once()

		form := url.Values{}
		form.Set("html_content", "")
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestViewPage(t *testing.T) {
	mockSvc := new(serviceMocks.MockPageService)
	app := fiber.New()
	app.Get("/link/:id", ViewPage(mockSvc))

	t.Run("serves raw html", func(t *testing.T) {
		content := "<html><body>shared page</body></html>"
		page := &model.Page{ID: "live-id", Size: int64(len(content))}
		mockSvc.On("Get", mock.Anything, "live-id").
			Return(io.NopCloser(strings.NewReader(content)), page, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/link/live-id", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, content, string(body))
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "missing").
			Return(nil, nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/link/missing", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("store down answers retryable 503", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "live-id").
			Return(nil, nil, fmt.Errorf("load content: %w", service.ErrStoreUnavailable)).Once()

		req := httptest.NewRequest(http.MethodGet, "/link/live-id", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "SERVICE_UNAVAILABLE", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("expired looks exactly like not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "stale").
			Return(nil, nil, service.ErrExpired).Once()

		req := httptest.NewRequest(http.MethodGet, "/link/stale", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		assert.Equal(t, "page not found", res.Error.Message)
		mockSvc.AssertExpectations(t)
	})
}

func TestPageInfo(t *testing.T) {
	mockSvc := new(serviceMocks.MockPageService)
	app := fiber.New()
	app.Get("/api/info/:id", PageInfo(mockSvc))

	t.Run("success", func(t *testing.T) {
		created := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		expires := created.Add(7 * 24 * time.Hour)
		mockSvc.On("Info", mock.Anything, "live-id").
			Return(&model.Page{ID: "live-id", Size: 42, CreatedAt: created, ExpiresAt: &expires}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/info/live-id", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "live-id", result["id"])
		assert.Equal(t, float64(42), result["size_bytes"])
		assert.NotEmpty(t, result["created_at"])
		assert.NotEmpty(t, result["expires_at"])
		assert.NotContains(t, result, "storage_path")
		mockSvc.AssertExpectations(t)
	})

	t.Run("never-expiring page has null expires_at", func(t *testing.T) {
		mockSvc.On("Info", mock.Anything, "forever").
			Return(&model.Page{ID: "forever", Size: 1}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/info/forever", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Contains(t, result, "expires_at")
		assert.Nil(t, result["expires_at"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("unknown id leaks nothing", func(t *testing.T) {
		mockSvc.On("Info", mock.Anything, "missing").
			Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/info/missing", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestStats(t *testing.T) {
	mockSvc := new(serviceMocks.MockPageService)
	app := fiber.New()
	app.Get("/api/stats", Stats(mockSvc))

	mockSvc.On("Stats", mock.Anything).Return(12, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]any
	json.NewDecoder(resp.Body).Decode(&result)
	assert.Equal(t, float64(12), result["pages"])
	mockSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockPageService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("openapi document is embedded", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "openapi: 3.0")
	})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})
}
