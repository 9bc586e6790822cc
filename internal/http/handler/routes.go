package handler

import (
	"database/sql"
	_ "embed"

	"github.com/gofiber/fiber/v2"

	"pagelink/internal/service"
)

// Embedded so the document is served regardless of the process working
// directory.
//
//go:embed openapi.yaml
var openapiSpec []byte

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin; business rules live in the service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, pageSvc service.PageService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.Send(openapiSpec)
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint checks DB connectivity; healthz is pure liveness
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Upload endpoints: browser form and curl-style API
	app.Post("/upload", UploadForm(pageSvc))
	app.Post("/api/upload", UploadAPI(pageSvc))

	// Metadata endpoints
	app.Get("/api/info/:id", PageInfo(pageSvc))
	app.Get("/api/stats", Stats(pageSvc))

	// Shareable link serving the raw HTML
	app.Get("/link/:id", ViewPage(pageSvc))
}
