package auth

import (
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// RefreshCookieName is the cookie carrying the refresh token. HTTP-only,
// Secure, SameSite=Strict, max age equal to the refresh token TTL.
const RefreshCookieName = "refresh_token"

var hasDigit = regexp.MustCompile(`[0-9]`)

// AuthController wires the core into fiber routes. It owns no business
// logic: every handler binds a payload, validates it, and dispatches to the
// session manager, a command handler, or the authorizer.
type AuthController struct {
	Debug     bool
	Logger    Logger
	Config    Config
	Sessions  Sessions
	Authorize *Authorizer
	Elevation *AdminElevation

	Register      *RegisterUserHandler
	ConfirmEmail  *ConfirmEmailHandler
	ResetInit     *InitializePasswordResetHandler
	ResetFinalize *FinalizePasswordResetHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing Sessions in auth controller...")
	}

	if c.Authorize == nil {
		panic("Missing Authorizer in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// RegisterRoutes mounts the auth and admin surface on the app.
func (a *AuthController) RegisterRoutes(app *fiber.App) {
	grp := app.Group("/auth")
	grp.Post("/register", a.RegistrationCreate)
	grp.Post("/login", a.LoginPost)
	grp.Post("/refresh", a.RefreshPost)
	grp.Post("/logout", a.LogoutPost)
	grp.Post("/logout-all", RequireAuth(a.Sessions), a.LogoutAllPost)
	grp.Get("/confirm", a.ConfirmEmailGet)
	grp.Post("/password-reset/request", a.PasswordResetRequest)
	grp.Post("/password-reset/confirm", a.PasswordResetConfirm)
	grp.Get("/me", RequireAuth(a.Sessions), a.MeGet)

	adm := app.Group("/admin")
	adm.Get("/promote-link", RequireAuth(a.Sessions), a.PromoteLinkGet)
	adm.Get("/promote", a.PromoteGet)

	scp := app.Group("/scopes", RequireAuth(a.Sessions), RequireScope(a.Authorize, AdminScopeName))
	scp.Post("/", a.ScopeCreate)
	scp.Post("/users/:id", a.ScopeGrant)
	scp.Delete("/users/:id", a.ScopeRevoke)
	scp.Get("/users/:id", a.ScopeList)
}

// RegistrationCreatePayload is the registration body
type RegistrationCreatePayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 100),
			validation.Match(hasDigit).Error("must contain at least one digit"),
		),
	)
}

func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	var created *User
	msg := RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(user *User) {
			created = user
		},
	}

	if err := a.Register.Execute(c.UserContext(), msg); err != nil {
		a.Logger.Error("register user error", "error", err)
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": fiber.Map{
			"id":    created.ID,
			"email": created.Email,
			"name":  created.Name,
		},
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	pair, err := a.Sessions.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	a.setRefreshCookie(c, pair)

	return c.JSON(pair)
}

func (a *AuthController) RefreshPost(c *fiber.Ctx) error {
	raw := c.Cookies(RefreshCookieName)
	if raw == "" {
		return c.Status(statusForError(ErrInvalidOrExpiredRefresh)).JSON(errorBody(ErrInvalidOrExpiredRefresh))
	}

	pair, err := a.Sessions.Refresh(c.UserContext(), raw)
	if err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	a.setRefreshCookie(c, pair)

	return c.JSON(pair)
}

func (a *AuthController) LogoutPost(c *fiber.Ctx) error {
	raw := c.Cookies(RefreshCookieName)
	if raw == "" {
		return c.Status(statusForError(ErrNoActiveSession)).JSON(errorBody(ErrNoActiveSession))
	}

	if err := a.Sessions.Logout(c.UserContext(), raw); err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	a.clearRefreshCookie(c)

	return c.JSON(fiber.Map{"detail": "signed out"})
}

func (a *AuthController) LogoutAllPost(c *fiber.Ctx) error {
	user := CurrentUser(c)

	if err := a.Sessions.LogoutAll(c.UserContext(), user.ID); err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	a.clearRefreshCookie(c)

	return c.JSON(fiber.Map{"detail": "signed out everywhere"})
}

func (a *AuthController) ConfirmEmailGet(c *fiber.Ctx) error {
	token := c.Query("token")

	if err := a.ConfirmEmail.Execute(c.UserContext(), ConfirmEmailMessage{Token: token}); err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	return c.JSON(fiber.Map{"detail": "email confirmed"})
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) PasswordResetRequest(c *fiber.Ctx) error {
	payload := new(PasswordResetRequestPayload)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	if err := a.ResetInit.Execute(c.UserContext(), InitializePasswordResetMessage{Email: payload.Email}); err != nil {
		a.Logger.Error("password reset initialize error", "error", err)
	}

	// same shape whether or not the account exists
	return c.JSON(fiber.Map{"detail": "if the address is registered, instructions are on the way"})
}

// PasswordResetConfirmPayload finalizes a reset
type PasswordResetConfirmPayload struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Validate will validate the payload
func (r PasswordResetConfirmPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(
			&r.NewPassword,
			validation.Required,
			validation.Length(8, 100),
			validation.Match(hasDigit).Error("must contain at least one digit"),
		),
	)
}

func (a *AuthController) PasswordResetConfirm(c *fiber.Ctx) error {
	payload := new(PasswordResetConfirmPayload)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	msg := FinalizePasswordResetMessage{Token: payload.Token, NewPassword: payload.NewPassword}
	if err := a.ResetFinalize.Execute(c.UserContext(), msg); err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	return c.JSON(fiber.Map{"detail": "password changed"})
}

func (a *AuthController) MeGet(c *fiber.Ctx) error {
	user := CurrentUser(c)

	scopes, err := a.Authorize.ScopesOf(c.UserContext(), user.ID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	return c.JSON(fiber.Map{
		"id":     user.ID,
		"email":  user.Email,
		"name":   user.Name,
		"scopes": scopes,
	})
}

func (a *AuthController) PromoteLinkGet(c *fiber.Ctx) error {
	user := CurrentUser(c)

	if err := a.Elevation.Request(c.UserContext(), user); err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	return c.JSON(fiber.Map{"detail": "further instructions were sent by email"})
}

func (a *AuthController) PromoteGet(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return badRequest(c, "missing token")
	}

	user, err := a.Elevation.Consume(c.UserContext(), token)
	if err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	return c.JSON(fiber.Map{
		"detail": fmt.Sprintf("user %s promoted to admin", user.Email),
	})
}

// ScopeCreatePayload creates scope reference data
type ScopeCreatePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate will validate the payload
func (r ScopeCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 500)),
	)
}

func (a *AuthController) ScopeCreate(c *fiber.Ctx) error {
	payload := new(ScopeCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	scope, err := a.Authorize.CreateScope(c.UserContext(), payload.Name, payload.Description)
	if err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	return c.Status(fiber.StatusCreated).JSON(scope)
}

// ScopeGrantPayload assigns scopes to a user
type ScopeGrantPayload struct {
	Scopes []string `json:"scopes"`
}

// Validate will validate the payload
func (r ScopeGrantPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Scopes, validation.Required, validation.Length(1, 50)),
	)
}

func (a *AuthController) ScopeGrant(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	payload := new(ScopeGrantPayload)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	for _, name := range payload.Scopes {
		if err := a.Authorize.GrantScope(c.UserContext(), userID, name); err != nil {
			return c.Status(statusForError(err)).JSON(errorBody(err))
		}
	}

	return c.JSON(fiber.Map{"detail": "scopes granted"})
}

func (a *AuthController) ScopeRevoke(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	payload := new(ScopeGrantPayload)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	for _, name := range payload.Scopes {
		if err := a.Authorize.RevokeScope(c.UserContext(), userID, name); err != nil {
			return c.Status(statusForError(err)).JSON(errorBody(err))
		}
	}

	return c.JSON(fiber.Map{"detail": "scopes revoked"})
}

func (a *AuthController) ScopeList(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	scopes, err := a.Authorize.ScopesOf(c.UserContext(), userID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(errorBody(err))
	}

	return c.JSON(fiber.Map{"scopes": scopes})
}

func (a *AuthController) setRefreshCookie(c *fiber.Ctx, pair *TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.RefreshToken,
		Expires:  pair.RefreshExpiresAt,
		MaxAge:   int(time.Until(pair.RefreshExpiresAt).Seconds()),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}

func (a *AuthController) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}
