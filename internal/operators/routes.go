package operators

import "github.com/gofiber/fiber/v3"

func Routes(app fiber.Router, a *Auth) {
	operators := app.Group("/operators")

	operators.Post("/login", a.login)
	operators.Get("/whoami", a.Middleware, whoami)
}
