// Package githubhooks exposes handlers for GitHub webhook callbacks.
package githubhooks

import "github.com/gofiber/fiber/v3"

// Routes wires the GitHub webhook endpoints under /ci/github.
func Routes(app fiber.Router, h *Handler) {
	group := app.Group("/github")

	// POST /ci/github/push turns push notifications into CI jobs.
	group.Post("/push", h.push)
}
