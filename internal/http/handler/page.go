package handler

import (
	"context"
	"database/sql"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"pagelink/internal/service"
)

// uploadResponse is the JSON shape returned by both upload endpoints.
type uploadResponse struct {
	Success   bool       `json:"success"`
	Link      string     `json:"link"`
	ID        string     `json:"id"`
	ExpiresAt *time.Time `json:"expires_at"`
	SizeBytes int64      `json:"size_bytes"`
}

func newUploadResponse(res *service.UploadResult) uploadResponse {
	return uploadResponse{
		Success:   true,
		Link:      res.Link,
		ID:        res.Page.ID,
		ExpiresAt: res.Page.ExpiresAt,
		SizeBytes: res.Page.Size,
	}
}

// UploadForm handles the browser form POST. Content arrives either as the
// html_content text field or as an html_file upload (the file wins when both
// are present). Browsers get a redirect to the new link; clients that accept
// JSON (curl) get the API response shape.
func UploadForm(svc service.PageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		content := []byte(c.FormValue("html_content"))
		if fh, err := c.FormFile("html_file"); err == nil && fh != nil && fh.Filename != "" {
			fileContent, err := readFormFile(fh.Open())
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			content = fileContent
		}

		class, err := parseExpiration(c.FormValue("expiration", "7"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRATION", "invalid expiration option")
		}

		res, err := svc.Upload(c.UserContext(), content, class)
		if err != nil {
			return writeServiceError(c, err)
		}

		if acceptsJSON(c) {
			return c.Status(fiber.StatusCreated).JSON(newUploadResponse(res))
		}
		return c.Redirect(res.Link, fiber.StatusSeeOther)
	}
}

// UploadAPI handles multipart uploads from non-browser clients:
//
//	curl -F "html_file=@page.html" -F "expiration=7" https://example.com/api/upload
func UploadAPI(svc service.PageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("html_file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "html_file is required")
		}

		content, err := readFormFile(fh.Open())
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}

		class, err := parseExpiration(c.FormValue("expiration", "7"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRATION", "invalid expiration option")
		}

		res, err := svc.Upload(c.UserContext(), content, class)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(newUploadResponse(res))
	}
}

// ViewPage serves the stored HTML for a live link. Misses and expired pages
// are both 404; nothing distinguishes them to the caller.
func ViewPage(svc service.PageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, page, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Set(fiber.HeaderContentType, "text/html; charset=utf-8")
		// fasthttp closes the stream after the response is sent.
		return c.SendStream(rc, int(page.Size))
	}
}

// PageInfo returns page metadata without content.
func PageInfo(svc service.PageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := svc.Info(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(page)
	}
}

// Stats reports the number of stored pages.
func Stats(svc service.PageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := svc.Stats(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"pages": n})
	}
}

// HealthCheck reports readiness including database connectivity. A page
// service that cannot reach its store is not healthy, so this probe is
// deliberately store-dependent; LivenessProbe covers pure liveness.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always succeeds while the process serves requests.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

func parseExpiration(raw string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(raw))
}

func readFormFile(f io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func acceptsJSON(c *fiber.Ctx) bool {
	accept := c.Get(fiber.HeaderAccept)
	return strings.Contains(accept, fiber.MIMEApplicationJSON) ||
		strings.Contains(accept, fiber.MIMETextPlain)
}
