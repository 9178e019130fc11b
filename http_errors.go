package auth

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// statusForError maps the package error kinds onto HTTP statuses. Unknown
// errors collapse to 500 without leaking internals.
func statusForError(err error) int {
	switch {
	case goerrors.Is(err, ErrEmailNotConfirmed):
		return fiber.StatusForbidden
	case goerrors.Is(err, ErrNoActiveSession):
		return fiber.StatusUnauthorized
	case goerrors.Is(err, ErrIdentityNotFound):
		return fiber.StatusUnauthorized
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return fiber.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// errorBody is the uniform error envelope for the JSON surface.
func errorBody(err error) fiber.Map {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return fiber.Map{
			"error": fiber.Map{
				"message": "an unexpected error occurred",
			},
		}
	}

	body := fiber.Map{
		"message": richErr.Message,
	}

	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}

	return fiber.Map{"error": body}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"message": message,
		},
	})
}

func validationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": fiber.Map{
			"message": "validation failed",
			"fields":  err,
		},
	})
}

func parseUserID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}
