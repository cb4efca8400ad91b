// Package api exposes job status, logs and cancellation over HTTP.
package api

import (
	"extci/internal/operators"

	"github.com/gofiber/fiber/v3"
)

func Routes(app fiber.Router, h *Handlers, auth *operators.Auth) {
	jobs := app.Group("/jobs")

	jobs.Get("/", h.list)
	jobs.Get("/:id", h.get)
	jobs.Get("/:id/log", h.log)
	jobs.Get("/:id/logs", h.follow)

	jobs.Post("/:id/cancel", auth.Middleware, h.cancel)
}
