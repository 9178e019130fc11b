package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UseHashid bool   `json:"-"`

	OnResponse func(user *User)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates unconfirmed accounts and dispatches the
// confirmation email. The email goes out after commit: a mail failure never
// rolls back a persisted registration.
type RegisterUserHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	cfg      Config
	logger   Logger
	activity ActivitySink
}

func NewRegisterUserHandler(repo RepositoryManager, mailer Mailer, cfg Config) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		mailer:   mailer,
		cfg:      cfg,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	confirmationToken := uuid.NewString()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, email); err == nil {
			return ErrEmailTaken
		} else if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}

		user.Name = event.Name
		user.Email = email
		user.PasswordHash = hash
		user.IsConfirmed = false
		user.ConfirmationToken = &confirmationToken
		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			// unique constraint race between the existence check and the
			// insert lands here; the tx rolls back
			return ErrRegistrationFailed
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.dispatchConfirmation(ctx, user, confirmationToken)

	emitActivity(ctx, h.activity, h.logger, ActivityEventRegistration, user.ID.String(), map[string]any{
		"email": user.Email,
	})

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

func (h *RegisterUserHandler) dispatchConfirmation(ctx context.Context, user *User, token string) {
	link := ConfirmationLink(h.cfg.GetConfirmationURL(), token)

	err := h.mailer.Send(ctx,
		user.Email,
		"Confirm your email",
		"To confirm your email address, please follow the link:",
		link,
	)

	if err != nil {
		h.logger.Warn("confirmation email dispatch failed", "error", err, "user_id", user.ID.String())
		emitActivity(ctx, h.activity, h.logger, ActivityEventMailFailure, user.ID.String(), map[string]any{
			"error": err.Error(),
		})
	}
}
