package social

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// RegisterSocialRoutes mounts the redirect endpoints:
// GET /auth/:provider starts the consent flow, GET
// /auth/:provider/callback terminates it with a token pair.
func RegisterSocialRoutes(app *fiber.App, sa *Authenticator) {
	app.Get("/auth/:provider", sa.Begin)
	app.Get("/auth/:provider/callback", sa.Callback)
}

// Begin redirects the client to the provider consent page.
func (sa *Authenticator) Begin(c *fiber.Ctx) error {
	redirect, err := sa.BeginAuth(c.Context(), c.Params("provider"))
	if err != nil {
		return handleError(c, err)
	}

	return c.Redirect(redirect.URL, fiber.StatusFound)
}

// Callback handles the provider redirect and responds with the token
// pair envelope used by local login.
func (sa *Authenticator) Callback(c *fiber.Ctx) error {
	pair, err := sa.CompleteAuth(
		c.Context(),
		c.Params("provider"),
		c.Query("code"),
		c.Query("state"),
	)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":    "User logged in successfully",
		"statusCode": fiber.StatusOK,
		"data":       pair,
	})
}

func handleError(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(fiber.Map{
		"message":    richErr.Message,
		"statusCode": status,
	})
}
