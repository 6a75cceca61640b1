package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"mediadl/internal/core/download"
	"mediadl/internal/core/job"
	"mediadl/internal/health"
	"mediadl/internal/logger"
)

type Dependencies struct {
	Download *download.Service
	Store    job.Store
}

var log = logger.New("Server")

// NewApp builds the fiber application with the error handling every route
// relies on.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "mediadl",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	return app
}

// ErrorHandler turns anything a handler did not map itself into a JSON error.
// Unexpected errors are logged in full and reported generically.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg := fe.Message
		if fe.Code == fiber.StatusNotFound {
			msg = "Endpoint not found"
		}
		return c.Status(fe.Code).JSON(fiber.Map{"success": false, "error": msg})
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("Internal server error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Internal server error"})
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	healthHandler := health.NewHealthHandler(map[string]health.Pinger{"store": d.Store})
	app.Get("/health", healthHandler.HandleHealth)

	h := download.NewHandler(d.Download)
	app.Post("/get_info", h.HandleGetInfo)
	app.Post("/start_download", h.HandleStartDownload)
	app.Get("/download_status/:id", h.HandleDownloadStatus)
	app.Get("/download_file/:id", h.HandleDownloadFile)
	app.Post("/batch_download", h.HandleBatchDownload)
	app.Get("/batch_status/:id", h.HandleBatchStatus)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	return healthHandler
}
