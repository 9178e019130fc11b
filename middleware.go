package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const localsUserKey = "auth_user"

// RequireAuth resolves the bearer access token and stores the current user
// in request locals. The confirmation re-check happens inside
// ResolveCurrentUser on every request.
func RequireAuth(sessions Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		user, err := sessions.ResolveCurrentUser(c.UserContext(), raw)
		if err != nil {
			return c.Status(statusForError(err)).JSON(errorBody(err))
		}

		c.Locals(localsUserKey, user)
		c.SetUserContext(WithContext(c.UserContext(), user))

		return c.Next()
	}
}

// RequireScope gates a route on an exact scope name. Must run after
// RequireAuth.
func RequireScope(authorizer *Authorizer, scopeName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		if err := authorizer.RequireScope(c.UserContext(), user.ID, scopeName); err != nil {
			return c.Status(statusForError(err)).JSON(errorBody(err))
		}

		return c.Next()
	}
}

// CurrentUser returns the principal resolved by RequireAuth, or nil.
func CurrentUser(c *fiber.Ctx) *User {
	user, ok := c.Locals(localsUserKey).(*User)
	if !ok {
		return nil
	}
	return user
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
